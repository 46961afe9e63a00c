// Package hooks implements the Hook Pipeline (spec §4.7): priority-ordered
// lifecycle middleware for the Agent Loop. The event model and priority
// scheme are grounded on the teacher's internal/hooks package, narrowed to
// the seven lifecycle events spec §4.7 names.
package hooks

import "context"

// EventKind is one of the seven lifecycle events spec §4.7 defines.
type EventKind string

const (
	PreToolUse   EventKind = "pre_tool_use"
	PostToolUse  EventKind = "post_tool_use"
	PreCompact   EventKind = "pre_compact"
	SessionStart EventKind = "session_start"
	SessionEnd   EventKind = "session_end"
	PreResponse  EventKind = "pre_response"
	PostResponse EventKind = "post_response"
)

// Priority determines call order within an event; lower runs earlier.
type Priority int

const (
	PriorityEarly  Priority = 0
	PriorityNormal Priority = 50
	PriorityLate   Priority = 100
)

// Outcome is the tri-state result a Handler returns.
type Outcome int

const (
	// OutcomeOK continues the pipeline, optionally with a transformed payload.
	OutcomeOK Outcome = iota
	// OutcomeBlock aborts the current tool call (valid only on PreToolUse).
	OutcomeBlock
	// OutcomeSkip drops this handler's effect silently.
	OutcomeSkip
)

// Result is what a Handler returns: an Outcome plus, for OutcomeBlock, a
// reason, and for OutcomeOK, a possibly-transformed Payload.
type Result struct {
	Outcome Outcome
	Reason  string
	Payload *Payload
}

func ok(p *Payload) Result        { return Result{Outcome: OutcomeOK, Payload: p} }
func block(reason string) Result  { return Result{Outcome: OutcomeBlock, Reason: reason} }
func skip() Result                { return Result{Outcome: OutcomeSkip} }

// OK returns a continue-with-payload Result.
func OK(p *Payload) Result { return ok(p) }

// Block returns an abort-this-tool-call Result. Only meaningful on PreToolUse.
func Block(reason string) Result { return block(reason) }

// Skip returns a silently-ignored Result.
func Skip() Result { return skip() }

// Payload is the event-specific data passed to a Handler. Only the fields
// relevant to the firing EventKind are populated.
type Payload struct {
	SessionID  string
	ToolName   string
	ToolArgs   []byte
	ToolResult string
	IsError    bool
	Text       string
	Extra      map[string]any
}

// Handler processes one lifecycle event firing.
type Handler func(ctx context.Context, kind EventKind, payload *Payload) Result

// Registration is a named, prioritized Handler bound to one EventKind.
type Registration struct {
	Name     string
	Kind     EventKind
	Priority Priority
	Handler  Handler
}
