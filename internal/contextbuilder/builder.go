package contextbuilder

import (
	"github.com/haasonsaas/agentrt/pkg/models"
)

// SystemMessage is the assembled system prompt, split into a
// cache-eligible static block and an uncached dynamic block so a
// provider with prompt-caching support can mark the former as
// cache-eligible (spec §4.5 "Provider-specific optimisation").
type SystemMessage struct {
	StaticBlock   string
	DynamicBlock  string
	CacheEligible bool
}

// Combined concatenates both blocks for providers with no caching
// support.
func (m SystemMessage) Combined() string {
	if m.StaticBlock == "" {
		return m.DynamicBlock
	}
	if m.DynamicBlock == "" {
		return m.StaticBlock
	}
	return m.StaticBlock + blockSeparator + m.DynamicBlock
}

// Builder assembles the system message within a per-call token budget.
type Builder struct {
	static            *StaticBase
	maxTokens         int
	responseReserve   int
	supportsCaching   func(provider string) bool
}

// NewBuilder creates a Builder backed by static, reserving
// responseReserve tokens for the model's reply out of maxTokens.
func NewBuilder(static *StaticBase, maxTokens, responseReserve int, supportsCaching func(provider string) bool) *Builder {
	if supportsCaching == nil {
		supportsCaching = func(string) bool { return false }
	}
	return &Builder{
		static:          static,
		maxTokens:       maxTokens,
		responseReserve: responseReserve,
		supportsCaching: supportsCaching,
	}
}

// Build assembles the system message for one call. historyTokens is the
// caller's estimate of the conversation history token cost; B = max_tokens
// - response_reserve - tokens(history) (spec §4.5), and the dynamic overlay
// is fitted to B minus the static base's tokens.
func (b *Builder) Build(signal models.Signal, rc RuntimeContext, ov Overlay, historyTokens int) SystemMessage {
	budget := b.maxTokens - b.responseReserve - historyTokens - b.static.Tokens()
	if budget < 0 {
		budget = 0
	}

	dynamic := BuildDynamicOverlay(signal, rc, ov, budget)
	return SystemMessage{
		StaticBlock:   b.static.Text(),
		DynamicBlock:  dynamic,
		CacheEligible: b.supportsCaching(rc.Provider),
	}
}
