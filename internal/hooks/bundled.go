package hooks

import "context"

// The built-in hooks named in spec §4.7. The actual policy logic
// (deny-lists, budget math) lives in internal/tools and internal/budget;
// keeping handler bodies here would duplicate that logic. This file only
// fixes the names so that configuration and tests can refer to them by a
// stable identifier; nothing in this package registers a handler under
// these names.

// Names of the built-in hooks spec §4.7 lists as examples.
const (
	HookSecurityCheck         = "security_check"
	HookBudgetTracker         = "budget_tracker"
	HookToolGating            = "tool_gating"
	HookContextInjection      = "context_injection"
	HookLearningCapture       = "learning_capture"
	HookTelemetry             = "telemetry"
	HookQualityCheck          = "quality_check"
	HookMemoryFlush           = "memory_flush"
	HookPatternConsolidation  = "pattern_consolidation"
)

// NoOpHandler is a placeholder Handler used for hooks that have not been
// wired with real logic by the caller; it always continues.
func NoOpHandler(_ context.Context, _ EventKind, p *Payload) Result {
	return OK(p)
}
