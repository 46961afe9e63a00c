package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryRegisterGetUnregister(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Get("echo")
	assert.False(t, ok)

	r.Register(echoTool())
	tool, ok := r.Get("echo")
	assert.True(t, ok)
	assert.Equal(t, "echo", tool.Name)

	r.Unregister("echo")
	_, ok = r.Get("echo")
	assert.False(t, ok)
}

func TestRegistrySnapshotIsStable(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool())
	snap := r.Snapshot()
	assert.Len(t, snap, 1)

	r.Register(Tool{Name: "other"})
	assert.Len(t, snap, 1, "earlier snapshot must not observe later registrations")
	assert.Len(t, r.Snapshot(), 2)
}
