package tools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShellToolDeniesListedCommands(t *testing.T) {
	tool := NewShellTool(t.TempDir(), nil, time.Second)
	args, _ := json.Marshal(map[string]string{"command": "rm -rf /"})
	res, err := tool.Handler(context.Background(), args)
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content, "deny-list")
}

func TestShellToolDeniesSudoPrefixedCommand(t *testing.T) {
	tool := NewShellTool(t.TempDir(), nil, time.Second)
	args, _ := json.Marshal(map[string]string{"command": "sudo dd if=/dev/zero of=/dev/sda"})
	res, err := tool.Handler(context.Background(), args)
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestShellToolRunsAllowedCommand(t *testing.T) {
	tool := NewShellTool(t.TempDir(), nil, time.Second)
	args, _ := json.Marshal(map[string]string{"command": "echo hello"})
	res, err := tool.Handler(context.Background(), args)
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, res.Content, "hello")
}

func TestShellToolRejectsCwdEscape(t *testing.T) {
	tool := NewShellTool(t.TempDir(), nil, time.Second)
	args, _ := json.Marshal(map[string]string{"command": "echo hi", "cwd": "../../../../etc"})
	res, err := tool.Handler(context.Background(), args)
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content, "escapes workspace")
}
