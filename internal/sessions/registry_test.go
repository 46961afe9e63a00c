package sessions

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/agentrt/pkg/models"
)

func TestEnsureCreatesThenReturnsSameHandle(t *testing.T) {
	r := New(0, nil)
	s1, err := r.Ensure(context.Background(), "sess-1", "user-1", "web")
	require.NoError(t, err)
	s2, err := r.Ensure(context.Background(), "sess-1", "user-2", "web")
	require.NoError(t, err)
	assert.Same(t, s1, s2)
	assert.Equal(t, "user-1", s2.OwnerUserID)
}

func TestEnsureFailsWhenAtCapacity(t *testing.T) {
	r := New(1, nil)
	_, err := r.Ensure(context.Background(), "sess-1", "user-1", "web")
	require.NoError(t, err)
	_, err = r.Ensure(context.Background(), "sess-2", "user-1", "web")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestLookupDeniesNonOwner(t *testing.T) {
	r := New(0, nil)
	_, _ = r.Ensure(context.Background(), "sess-1", "user-1", "web")
	_, err := r.Lookup("sess-1", "user-2", false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookupAllowsAnonymousWhenAuthDisabled(t *testing.T) {
	r := New(0, nil)
	_, _ = r.Ensure(context.Background(), "sess-1", "user-1", "web")
	s, err := r.Lookup("sess-1", AnonymousUser, true)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", s.SessionID)
}

func TestLookupDeniesAnonymousWhenAuthEnabled(t *testing.T) {
	r := New(0, nil)
	_, _ = r.Ensure(context.Background(), "sess-1", "user-1", "web")
	_, err := r.Lookup("sess-1", AnonymousUser, false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookupUnknownSessionIsNotFound(t *testing.T) {
	r := New(0, nil)
	_, err := r.Lookup("missing", "user-1", false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTerminatePublishesSessionEnded(t *testing.T) {
	var events []models.Event
	r := New(0, func(e models.Event) { events = append(events, e) })
	_, _ = r.Ensure(context.Background(), "sess-1", "user-1", "web")
	r.Terminate("sess-1", "user_requested")

	require.Len(t, events, 1)
	assert.Equal(t, models.EventSessionEnded, events[0].Type)
	assert.Equal(t, "sess-1", events[0].SessionID)
	assert.Equal(t, "user_requested", events[0].Payload["cause"])

	_, err := r.Lookup("sess-1", "user-1", false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTerminateIsNoOpForUnknownSession(t *testing.T) {
	called := false
	r := New(0, func(models.Event) { called = true })
	r.Terminate("missing", "whatever")
	assert.False(t, called)
}

func TestSubmitRunsTasksSeriallyPerSession(t *testing.T) {
	r := New(0, nil)
	_, _ = r.Ensure(context.Background(), "sess-1", "user-1", "web")

	var order []int
	var mu sync.Mutex
	done := make(chan struct{})
	for i := 0; i < 3; i++ {
		i := i
		go func() {
			_, _ = r.Submit(context.Background(), "sess-1", func(context.Context) (any, error) {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				time.Sleep(5 * time.Millisecond)
				return nil, nil
			})
			done <- struct{}{}
		}()
	}
	for i := 0; i < 3; i++ {
		<-done
	}
	assert.Len(t, order, 3)
}

func TestSubmitUnknownSessionIsNotFound(t *testing.T) {
	r := New(0, nil)
	_, err := r.Submit(context.Background(), "missing", func(context.Context) (any, error) { return nil, nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReapIdleTerminatesPastWindow(t *testing.T) {
	r := New(0, nil)
	s, _ := r.Ensure(context.Background(), "sess-1", "user-1", "web")
	s.LastActivity = time.Now().Add(-2 * time.Hour)

	n := r.ReapIdle(time.Hour)
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, r.Count())
}

func TestReapIdleLeavesFreshSessions(t *testing.T) {
	r := New(0, nil)
	_, _ = r.Ensure(context.Background(), "sess-1", "user-1", "web")
	n := r.ReapIdle(time.Hour)
	assert.Equal(t, 0, n)
	assert.Equal(t, 1, r.Count())
}
