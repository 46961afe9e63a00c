package providers

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/agentrt/pkg/models"
)

func TestConvertMessagesOpenAIIncludesSystemAndToolResult(t *testing.T) {
	messages := []models.Message{
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleAssistant, Content: "", ToolCalls: []models.ToolCall{
			{ID: "call_1", Name: "echo", Arguments: json.RawMessage(`{"text":"hi"}`)},
		}},
		{Role: models.RoleTool, Content: "hi", ToolCallID: "call_1"},
	}
	out, err := convertMessagesOpenAI(messages, "be terse")
	require.NoError(t, err)
	require.Len(t, out, 4)
	assert.Equal(t, "system", out[0].Role)
	assert.Equal(t, "be terse", out[0].Content)
	assert.Equal(t, "user", out[1].Role)
	assert.Equal(t, "assistant", out[2].Role)
	require.Len(t, out[2].ToolCalls, 1)
	assert.Equal(t, "echo", out[2].ToolCalls[0].Function.Name)
	assert.Equal(t, "tool", out[3].Role)
	assert.Equal(t, "call_1", out[3].ToolCallID)
}

func TestConvertToolsOpenAI(t *testing.T) {
	tools := []models.ToolDescriptor{
		{Name: "echo", Description: "echoes", Schema: map[string]any{"type": "object"}},
	}
	out := convertToolsOpenAI(tools)
	require.Len(t, out, 1)
	assert.Equal(t, "echo", out[0].Function.Name)
}

func TestIsRetryableOpenAIErr(t *testing.T) {
	assert.True(t, isRetryableOpenAIErr(assertErr("rate limit exceeded")))
	assert.False(t, isRetryableOpenAIErr(assertErr("invalid api key")))
}

type simpleErr string

func (e simpleErr) Error() string { return string(e) }

func assertErr(msg string) error { return simpleErr(msg) }
