package agent

import (
	"time"

	"github.com/haasonsaas/agentrt/internal/providers"
	"github.com/haasonsaas/agentrt/pkg/models"
)

// drainCompletion consumes a provider's CompletionChunk stream to
// completion, assembling the accumulated text and tool calls into one
// assistant Message plus the reported token counts (spec §4.4 step c/e).
// A non-nil error means the provider surfaced a hard failure mid-stream;
// the caller treats this the same as a failed Complete call.
func drainCompletion(chunks <-chan *providers.CompletionChunk) (models.Message, int, int, error) {
	msg := models.Message{Role: models.RoleAssistant, Timestamp: time.Now()}
	var inputTokens, outputTokens int

	for chunk := range chunks {
		if chunk == nil {
			continue
		}
		if chunk.Error != nil {
			return msg, inputTokens, outputTokens, chunk.Error
		}
		if chunk.Text != "" {
			msg.Content += chunk.Text
		}
		if chunk.ToolCall != nil {
			msg.ToolCalls = append(msg.ToolCalls, *chunk.ToolCall)
		}
		if chunk.InputTokens > 0 {
			inputTokens = chunk.InputTokens
		}
		if chunk.OutputTokens > 0 {
			outputTokens = chunk.OutputTokens
		}
		if chunk.Done {
			break
		}
	}

	return msg, inputTokens, outputTokens, nil
}
