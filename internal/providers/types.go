// Package providers wraps concrete LLM vendor SDKs behind a single
// streaming contract and routes a classified Signal to the provider/model
// pair that should handle it.
package providers

import (
	"context"

	"github.com/haasonsaas/agentrt/pkg/models"
)

// LLMProvider is the vendor-agnostic completion contract every backend
// implements, grounded on the teacher's internal/agent.LLMProvider.
type LLMProvider interface {
	Complete(ctx context.Context, req *CompletionRequest) (<-chan *CompletionChunk, error)
	Name() string
	Models() []Model
	SupportsTools() bool
}

// CompletionRequest is one turn of context handed to a provider.
type CompletionRequest struct {
	Model     string
	System    string
	Messages  []models.Message
	Tools     []models.ToolDescriptor
	MaxTokens int
}

// CompletionChunk is one unit of a streamed response. Exactly one of
// Text/ToolCall/Error is meaningful per chunk; Done marks stream end.
type CompletionChunk struct {
	Text         string
	ToolCall     *models.ToolCall
	Done         bool
	Error        error
	InputTokens  int
	OutputTokens int
}

// Model describes one model a provider exposes.
type Model struct {
	ID             string
	Name           string
	ContextSize    int
	SupportsVision bool
}
