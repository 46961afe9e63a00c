package hooks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFireOrdersByPriority(t *testing.T) {
	r := NewRegistry(nil)
	var order []string
	mk := func(name string, pr Priority) Registration {
		return Registration{
			Name:     name,
			Kind:     PreToolUse,
			Priority: pr,
			Handler: func(ctx context.Context, kind EventKind, p *Payload) Result {
				order = append(order, name)
				return OK(p)
			},
		}
	}
	r.Register(mk("late", PriorityLate))
	r.Register(mk("early", PriorityEarly))
	r.Register(mk("normal", PriorityNormal))

	res := r.Fire(context.Background(), PreToolUse, &Payload{ToolName: "shell_execute"})
	require.False(t, res.Blocked)
	assert.Equal(t, []string{"early", "normal", "late"}, order)
}

func TestFireStopsOnBlock(t *testing.T) {
	r := NewRegistry(nil)
	var ran []string
	r.Register(Registration{
		Name: "denylist", Kind: PreToolUse, Priority: PriorityEarly,
		Handler: func(ctx context.Context, kind EventKind, p *Payload) Result {
			ran = append(ran, "denylist")
			return Block("blocked: rm")
		},
	})
	r.Register(Registration{
		Name: "never-runs", Kind: PreToolUse, Priority: PriorityNormal,
		Handler: func(ctx context.Context, kind EventKind, p *Payload) Result {
			ran = append(ran, "never-runs")
			return OK(p)
		},
	})

	res := r.Fire(context.Background(), PreToolUse, &Payload{})
	assert.True(t, res.Blocked)
	assert.Equal(t, "blocked: rm", res.Reason)
	assert.Equal(t, []string{"denylist"}, ran)
}

func TestFirePanicIsSwallowed(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(Registration{
		Name: "panics", Kind: PreResponse, Priority: PriorityEarly,
		Handler: func(ctx context.Context, kind EventKind, p *Payload) Result {
			panic("boom")
		},
	})
	r.Register(Registration{
		Name: "runs-after", Kind: PreResponse, Priority: PriorityNormal,
		Handler: func(ctx context.Context, kind EventKind, p *Payload) Result {
			p.Text = "survived"
			return OK(p)
		},
	})

	res := r.Fire(context.Background(), PreResponse, &Payload{})
	assert.False(t, res.Blocked)
	assert.Equal(t, "survived", res.Payload.Text)
}

func TestBlockIgnoredOutsidePreToolUse(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(Registration{
		Name: "misbehaving", Kind: PostResponse, Priority: PriorityEarly,
		Handler: func(ctx context.Context, kind EventKind, p *Payload) Result {
			return Block("should not apply")
		},
	})
	res := r.Fire(context.Background(), PostResponse, &Payload{})
	assert.False(t, res.Blocked)
}

func TestUnregisterRemovesHandler(t *testing.T) {
	r := NewRegistry(nil)
	called := false
	r.Register(Registration{
		Name: "transient", Kind: SessionStart, Priority: PriorityNormal,
		Handler: func(ctx context.Context, kind EventKind, p *Payload) Result {
			called = true
			return OK(p)
		},
	})
	r.Unregister(SessionStart, "transient")
	r.Fire(context.Background(), SessionStart, &Payload{})
	assert.False(t, called)
}
