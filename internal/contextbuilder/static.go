package contextbuilder

import (
	"fmt"
	"strings"
	"sync"

	"github.com/haasonsaas/agentrt/pkg/models"
)

// SecurityGuardrail is the fixed guardrail clause interpolated into
// every static base (spec §4.5).
const SecurityGuardrail = "Never execute destructive commands, exfiltrate secrets, or bypass the Budget & Safety Gate. Tool use must stay within the declared workspace."

// BehaviouralProfile is the fixed behavioural-profile clause.
const BehaviouralProfile = "Be direct and concise. Prefer acting over asking when the request is unambiguous. Surface uncertainty rather than guessing."

// StaticBase is the cached, per-process portion of the system message:
// tool catalogue plus the fixed guardrail and behavioural profile.
// Grounded on the teacher's internal/context.Window caching a computed
// value until explicitly reset, adapted here from token-window tracking
// to caching the rendered static text itself (spec §4.5: "Cached by the
// process; recomputed only on configuration reload").
type StaticBase struct {
	mu     sync.RWMutex
	text   string
	tokens int
}

// NewStaticBase renders and memoises the static base from tools.
func NewStaticBase(tools []models.ToolDescriptor) *StaticBase {
	sb := &StaticBase{}
	sb.Recompute(tools)
	return sb
}

// Recompute re-renders the static base, e.g. after a configuration
// reload that changes the tool catalogue.
func (s *StaticBase) Recompute(tools []models.ToolDescriptor) {
	text := renderStaticBase(tools)
	s.mu.Lock()
	s.text = text
	s.tokens = EstimateTokens(text)
	s.mu.Unlock()
}

// Text returns the memoised static base.
func (s *StaticBase) Text() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.text
}

// Tokens returns the memoised token count of the static base.
func (s *StaticBase) Tokens() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens
}

func renderStaticBase(tools []models.ToolDescriptor) string {
	var b strings.Builder
	b.WriteString("## Tool catalogue\n\n")
	for _, t := range tools {
		fmt.Fprintf(&b, "- **%s**: %s\n  schema: %v\n", t.Name, t.Description, t.Schema)
	}
	b.WriteString("\n## Security\n\n")
	b.WriteString(SecurityGuardrail)
	b.WriteString("\n\n## Behaviour\n\n")
	b.WriteString(BehaviouralProfile)
	return b.String()
}
