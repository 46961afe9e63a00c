// Package agent implements the Agent Loop (spec §4.4): the bounded
// reason-act engine that drives one session's request through
// classification, context assembly, provider completion, and tool
// dispatch. Grounded on the teacher's internal/agent.Loop orchestration
// shape (classify → build context → call provider → dispatch tools →
// repeat), adapted to the spec's explicit iteration cap and event
// publication points.
package agent

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/haasonsaas/agentrt/internal/apierr"
	"github.com/haasonsaas/agentrt/internal/budget"
	"github.com/haasonsaas/agentrt/internal/classifier"
	"github.com/haasonsaas/agentrt/internal/contextbuilder"
	"github.com/haasonsaas/agentrt/internal/eventbus"
	"github.com/haasonsaas/agentrt/internal/hooks"
	"github.com/haasonsaas/agentrt/internal/providers"
	"github.com/haasonsaas/agentrt/internal/tools"
	"github.com/haasonsaas/agentrt/pkg/models"
)

// DefaultMaxIterations is MAX_ITERATIONS' spec default.
const DefaultMaxIterations = 20

// Status is the outer tag of an Outcome, mirroring process_message's
// three-way contract from spec §4.4.
type Status string

const (
	StatusOK       Status = "ok"
	StatusFiltered Status = "filtered"
	StatusError    Status = "error"
)

// Outcome is process_message's return value: {ok, final_reply} |
// {filtered, signal} | {error, reason}.
type Outcome struct {
	Status     Status
	FinalReply string
	Signal     models.Signal
	Reason     string
}

// PricingFunc estimates the USD cost of a completion given an estimated
// token budget. ToolCostFunc does the same for a single tool call; a nil
// ToolCostFunc, or one returning 0, means tool calls never count against
// budget on their own (only the provider call that requested them does),
// matching spec §4.9's "any model-costing operation" framing.
type (
	PricingFunc  func(provider string, estimatedInputTokens, reservedOutputTokens int) float64
	ToolCostFunc func(toolName string) float64
)

// Loop wires the Context Builder, a provider, the Tool Registry, the Hook
// Pipeline, and the Budget Gate into spec §4.4's algorithm. One Loop may be
// shared across sessions; all per-session state lives on the *models.Session
// passed to ProcessMessage, and callers are responsible for serialising
// calls per session (spec §5), e.g. via internal/sessions.Queue.
type Loop struct {
	Classifier     *classifier.Classifier
	NoiseFilter    *classifier.NoiseFilter
	ContextBuilder *contextbuilder.Builder
	Provider       providers.LLMProvider
	Tools          *tools.Registry
	Dispatcher     *tools.Dispatcher
	Hooks          *hooks.Registry
	Budget         *budget.Ledger
	EventBus       *eventbus.Hub
	Pricing        PricingFunc
	ToolCost       ToolCostFunc
	MaxIterations  int
	Logger         *slog.Logger
	ReservedOutputTokens int
}

func (l *Loop) applyDefaults() {
	if l.MaxIterations <= 0 {
		l.MaxIterations = DefaultMaxIterations
	}
	if l.Logger == nil {
		l.Logger = slog.Default()
	}
	if l.ReservedOutputTokens <= 0 {
		l.ReservedOutputTokens = 512
	}
}

// ProcessMessage implements spec §4.4's algorithm for one inbound message
// on session.
func (l *Loop) ProcessMessage(ctx context.Context, session *models.Session, userText, channel string) Outcome {
	l.applyDefaults()

	signal := l.Classifier.Classify(userText, channel, time.Now())
	decision := l.NoiseFilter.Apply(ctx, signal)
	if !decision.Pass {
		l.publish(models.NewEvent(models.EventSignalFiltered, session.SessionID, map[string]any{
			"mode": string(decision.Signal.Mode), "weight": decision.Signal.Weight,
		}))
		return Outcome{Status: StatusFiltered, Signal: decision.Signal}
	}
	signal = decision.Signal

	if len(session.HistorySnapshot()) == 0 {
		l.Hooks.Fire(ctx, hooks.SessionStart, &hooks.Payload{SessionID: session.SessionID})
	}

	session.AppendMessage(models.Message{Role: models.RoleUser, Content: userText, Timestamp: time.Now()})

	var lastAssistantText string
	for i := 0; i < l.MaxIterations; i++ {
		reply, terminal, outcome := l.runIteration(ctx, session, signal, i)
		if terminal {
			return outcome
		}
		lastAssistantText = reply
	}

	return Outcome{
		Status:     StatusError,
		Reason:     string(apierr.KindIterationLimit),
		FinalReply: lastAssistantText,
	}
}

// runIteration runs one pass of the loop body (spec §4.4 step 4). terminal
// is true when ProcessMessage should return outcome immediately; otherwise
// reply carries the best-effort assistant text seen this iteration, used as
// the iteration_limit fallback content.
func (l *Loop) runIteration(ctx context.Context, session *models.Session, signal models.Signal, iteration int) (reply string, terminal bool, outcome Outcome) {
	history := session.HistorySnapshot()
	historyTokens := estimateHistoryTokens(history)

	sys := l.ContextBuilder.Build(signal, contextbuilder.RuntimeContext{
		SessionID: session.SessionID,
		Channel:   session.Channel,
		Provider:  l.Provider.Name(),
		Timestamp: time.Now(),
	}, contextbuilder.Overlay{}, historyTokens)

	l.publish(models.NewEvent(models.EventLLMRequest, session.SessionID, map[string]any{"iteration": iteration}))

	estCost := 0.0
	if l.Pricing != nil {
		estCost = l.Pricing(l.Provider.Name(), historyTokens+contextbuilder.EstimateTokens(sys.Combined()), l.ReservedOutputTokens)
	}
	if l.Budget != nil {
		if gate := l.Budget.Check(estCost); !gate.Allowed {
			l.publish(models.NewEvent(models.EventBudgetExceeded, session.SessionID, map[string]any{"reason": gate.Reason}))
			return "", true, Outcome{Status: StatusError, Reason: string(apierr.KindBudgetExceeded)}
		} else if gate.Event == "budget_warning" {
			l.publish(models.NewEvent(models.EventBudgetWarning, session.SessionID, map[string]any{"reason": gate.Reason}))
		}
	}

	req := &providers.CompletionRequest{
		System:    sys.Combined(),
		Messages:  history,
		Tools:     toolDescriptors(l.Tools.Snapshot()),
		MaxTokens: l.ReservedOutputTokens,
	}

	chunks, err := l.Provider.Complete(ctx, req)
	if err != nil {
		return "", true, Outcome{Status: StatusError, Reason: string(apierr.KindProviderHard)}
	}

	assistant, inTok, outTok, streamErr := drainCompletion(chunks)
	if streamErr != nil {
		return "", true, Outcome{Status: StatusError, Reason: string(apierr.KindProviderHard)}
	}

	if l.Budget != nil {
		actualCost := estCost
		if l.Pricing != nil {
			actualCost = l.Pricing(l.Provider.Name(), inTok, outTok)
		}
		l.Budget.Charge(models.Charge{
			Provider:      l.Provider.Name(),
			TokensIn:      int64(inTok),
			TokensOut:     int64(outTok),
			EstimatedCost: actualCost,
		})
	}
	l.publish(models.NewEvent(models.EventLLMResponse, session.SessionID, map[string]any{
		"iteration": iteration, "input_tokens": inTok, "output_tokens": outTok,
	}))

	if len(assistant.ToolCalls) == 0 {
		session.AppendMessage(assistant)
		l.Hooks.Fire(ctx, hooks.PreResponse, &hooks.Payload{SessionID: session.SessionID, Text: assistant.Content})
		l.publish(models.NewEvent(models.EventAgentResponse, session.SessionID, map[string]any{"content": assistant.Content}))
		l.Hooks.FireAsync(ctx, hooks.PostResponse, &hooks.Payload{SessionID: session.SessionID, Text: assistant.Content})
		return "", true, Outcome{Status: StatusOK, FinalReply: assistant.Content, Signal: signal}
	}

	session.AppendMessage(assistant)
	l.runToolCalls(ctx, session, assistant.ToolCalls)
	return assistant.Content, false, Outcome{}
}

// runToolCalls executes assistant.ToolCalls sequentially in provider-returned
// order (spec §4.4 step g), appending one tool-result message to history per
// call regardless of whether it was blocked, budget-denied, or dispatched.
func (l *Loop) runToolCalls(ctx context.Context, session *models.Session, calls []models.ToolCall) {
	for _, call := range calls {
		session.RecordToolUse(call.Name)

		preResult := l.Hooks.Fire(ctx, hooks.PreToolUse, &hooks.Payload{
			SessionID: session.SessionID,
			ToolName:  call.Name,
			ToolArgs:  []byte(call.Arguments),
		})
		if preResult.Blocked {
			l.publish(models.NewEvent(models.EventHookBlocked, session.SessionID, map[string]any{"tool": call.Name, "reason": preResult.Reason}))
			session.AppendMessage(toolResultMessage(call.ID, "blocked: "+preResult.Reason))
			continue
		}

		if l.Budget != nil {
			cost := 0.0
			if l.ToolCost != nil {
				cost = l.ToolCost(call.Name)
			}
			if gate := l.Budget.Check(cost); !gate.Allowed {
				l.publish(models.NewEvent(models.EventBudgetExceeded, session.SessionID, map[string]any{"tool": call.Name, "reason": gate.Reason}))
				session.AppendMessage(toolResultMessage(call.ID, "budget_exceeded"))
				continue
			} else if cost > 0 {
				l.Budget.Charge(models.Charge{EstimatedCost: cost})
			}
		}

		l.publish(models.NewEvent(models.EventToolCallStart, session.SessionID, map[string]any{"tool": call.Name, "tool_call_id": call.ID}))
		result := l.Dispatcher.Dispatch(ctx, call.Name, json.RawMessage(call.Arguments))
		l.publish(models.NewEvent(models.EventToolCallEnd, session.SessionID, map[string]any{"tool": call.Name, "tool_call_id": call.ID, "is_error": result.IsError}))

		content := result.Content
		if result.IsError && content == "" {
			content = "tool_error"
		}
		session.AppendMessage(toolResultMessage(call.ID, content))

		l.Hooks.FireAsync(ctx, hooks.PostToolUse, &hooks.Payload{
			SessionID:  session.SessionID,
			ToolName:   call.Name,
			ToolResult: result.Content,
			IsError:    result.IsError,
		})
	}
}

func toolResultMessage(toolCallID, content string) models.Message {
	return models.Message{
		Role:       models.RoleTool,
		Content:    content,
		ToolCallID: toolCallID,
		Timestamp:  time.Now(),
	}
}

func (l *Loop) publish(evt models.Event) {
	if l.EventBus != nil {
		l.EventBus.Publish(evt)
	}
}

func estimateHistoryTokens(history []models.Message) int {
	total := 0
	for _, m := range history {
		total += contextbuilder.EstimateTokens(m.Content)
	}
	return total
}

func toolDescriptors(snapshot []tools.Tool) []models.ToolDescriptor {
	out := make([]models.ToolDescriptor, 0, len(snapshot))
	for _, t := range snapshot {
		out = append(out, models.ToolDescriptor{Name: t.Name, Description: t.Description, Schema: t.Schema})
	}
	return out
}
