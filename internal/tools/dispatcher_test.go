package tools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoTool() Tool {
	return Tool{
		Name: "echo",
		Schema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"text": map[string]any{"type": "string"}},
			"required":   []string{"text"},
		},
		Handler: func(ctx context.Context, args json.RawMessage) (Result, error) {
			var in struct {
				Text string `json:"text"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return Result{}, err
			}
			return Result{Content: in.Text}, nil
		},
	}
}

func TestDispatchUnknownTool(t *testing.T) {
	d := NewDispatcher(NewRegistry(), time.Second)
	res := d.Dispatch(context.Background(), "missing", nil)
	assert.True(t, res.IsError)
	assert.Equal(t, "unknown_tool", res.Content)
}

func TestDispatchValidatesSchema(t *testing.T) {
	reg := NewRegistry()
	reg.Register(echoTool())
	d := NewDispatcher(reg, time.Second)

	res := d.Dispatch(context.Background(), "echo", json.RawMessage(`{}`))
	require.True(t, res.IsError)

	res = d.Dispatch(context.Background(), "echo", json.RawMessage(`{"text":"hi"}`))
	require.False(t, res.IsError)
	assert.Equal(t, "hi", res.Content)
}

func TestDispatchTimesOut(t *testing.T) {
	reg := NewRegistry()
	reg.Register(Tool{
		Name: "slow",
		Handler: func(ctx context.Context, args json.RawMessage) (Result, error) {
			select {
			case <-time.After(200 * time.Millisecond):
				return Result{Content: "done"}, nil
			case <-ctx.Done():
				return Result{}, ctx.Err()
			}
		},
		Timeout: 10,
	})
	d := NewDispatcher(reg, time.Second)
	res := d.Dispatch(context.Background(), "slow", nil)
	assert.True(t, res.IsError)
	assert.Equal(t, "tool_timeout", res.Content)
}

func TestDispatchRecoversPanic(t *testing.T) {
	reg := NewRegistry()
	reg.Register(Tool{
		Name: "boom",
		Handler: func(ctx context.Context, args json.RawMessage) (Result, error) {
			panic("kaboom")
		},
	})
	d := NewDispatcher(reg, time.Second)
	res := d.Dispatch(context.Background(), "boom", nil)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content, "tool_panic")
}
