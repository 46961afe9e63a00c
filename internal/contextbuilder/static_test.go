package contextbuilder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/agentrt/pkg/models"
)

func TestNewStaticBaseIncludesGuardrailAndTools(t *testing.T) {
	sb := NewStaticBase([]models.ToolDescriptor{
		{Name: "shell_execute", Description: "runs a shell command"},
	})
	text := sb.Text()
	assert.Contains(t, text, "shell_execute")
	assert.Contains(t, text, SecurityGuardrail)
	assert.Contains(t, text, BehaviouralProfile)
	assert.Greater(t, sb.Tokens(), 0)
}

func TestRecomputeUpdatesCachedText(t *testing.T) {
	sb := NewStaticBase(nil)
	before := sb.Text()
	sb.Recompute([]models.ToolDescriptor{{Name: "file_read", Description: "reads a file"}})
	after := sb.Text()
	require.NotEqual(t, before, after)
	assert.Contains(t, after, "file_read")
}
