// Package swarm implements the Swarm Orchestrator (spec §4.10): a bounded
// multi-worker coordinator, peer of the Session Registry, that decomposes a
// task into a plan, runs it under one of four coordination patterns, and
// synthesizes the workers' output into a single answer.
//
// Grounded on the teacher's internal/multiagent.Swarm: a semaphore-bounded
// worker pool driven by sync.WaitGroup, with a child context.WithCancel
// used to abort the remaining pool on an unrecoverable failure. Unlike the
// teacher's single dependency-graph executor, agentrt names four named
// patterns directly (spec §4.10) rather than deriving stages from a
// dependency graph, since the spec's patterns don't express
// agent-to-agent dependencies, only shared coordination shapes.
package swarm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/agentrt/internal/eventbus"
	"github.com/haasonsaas/agentrt/pkg/models"
)

const (
	// DefaultMaxConcurrentSwarms is spec §4.10's max_concurrent_swarms default.
	DefaultMaxConcurrentSwarms = 10
	// DefaultMaxAgentsPerSwarm is spec §4.10's max_agents_per_swarm default.
	DefaultMaxAgentsPerSwarm = 10
	// DefaultTimeout is spec §4.10's default per-swarm timeout.
	DefaultTimeout = 5 * time.Minute
	// DefaultRoundCap bounds debate/review rounds absent an earlier
	// convergence signal.
	DefaultRoundCap = 3
)

var (
	// ErrInvalidPattern is returned by Launch for a pattern outside the
	// four named coordination strategies (spec §4.10 step 1).
	ErrInvalidPattern = errors.New("invalid_pattern")
	// ErrTooManySwarms is returned by Launch once max_concurrent_swarms
	// active swarms are already running.
	ErrTooManySwarms = errors.New("too_many_swarms")
	// ErrNotRunning is cancel(swarm_id)'s idempotent no-op response for a
	// swarm that has already reached a terminal state, or never existed
	// (spec §4.10 "Idempotency").
	ErrNotRunning = errors.New("not_running")
	// ErrNotFound is returned by Get for an unknown swarm_id.
	ErrNotFound = errors.New("swarm_not_found")
)

// Planner decomposes a task into a plan of at most maxAgents items
// (spec §4.10 step 2).
type Planner interface {
	Plan(ctx context.Context, task string, maxAgents int) ([]models.PlanItem, error)
}

// PlannerFunc adapts a function to a Planner.
type PlannerFunc func(ctx context.Context, task string, maxAgents int) ([]models.PlanItem, error)

func (f PlannerFunc) Plan(ctx context.Context, task string, maxAgents int) ([]models.PlanItem, error) {
	return f(ctx, task, maxAgents)
}

// Worker runs one plan item given its accumulated input text (the original
// subtask for "parallel", the previous worker's output folded in for
// "pipeline"/"debate"/"review") and returns its output text.
type Worker interface {
	Run(ctx context.Context, item models.PlanItem, input string) (string, error)
}

// WorkerFunc adapts a function to a Worker.
type WorkerFunc func(ctx context.Context, item models.PlanItem, input string) (string, error)

func (f WorkerFunc) Run(ctx context.Context, item models.PlanItem, input string) (string, error) {
	return f(ctx, item, input)
}

// Synthesizer combines all worker output into one final answer
// (spec §4.10 "Synthesis").
type Synthesizer interface {
	Synthesize(ctx context.Context, task string, pattern models.SwarmPattern, results []models.WorkerResult) (string, error)
}

// SynthesizerFunc adapts a function to a Synthesizer.
type SynthesizerFunc func(ctx context.Context, task string, pattern models.SwarmPattern, results []models.WorkerResult) (string, error)

func (f SynthesizerFunc) Synthesize(ctx context.Context, task string, pattern models.SwarmPattern, results []models.WorkerResult) (string, error) {
	return f(ctx, task, pattern, results)
}

// state is the Orchestrator's internal record for one launched swarm: the
// public models.Swarm plus the machinery to cancel it. status is the
// single source of truth gating terminal transitions (spec §4.10
// "Idempotency": "use a single source of truth, the swarm status field").
type state struct {
	mu     sync.Mutex
	swarm  models.Swarm
	cancel context.CancelFunc
}

func (s *state) snapshot() models.Swarm {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.swarm
	out.Plan = append([]models.PlanItem(nil), s.swarm.Plan...)
	out.Results = append([]models.WorkerResult(nil), s.swarm.Results...)
	return out
}

func isTerminal(status models.SwarmStatus) bool {
	switch status {
	case models.SwarmCompleted, models.SwarmFailed, models.SwarmCancelled, models.SwarmTimeout:
		return true
	default:
		return false
	}
}

// Orchestrator is the process-wide Swarm Orchestrator (spec §4.10).
type Orchestrator struct {
	mu     sync.Mutex
	swarms map[string]*state

	MaxConcurrentSwarms int
	MaxAgentsPerSwarm    int
	DefaultTimeout       time.Duration
	RoundCap             int

	Planner     Planner
	Worker      Worker
	Synthesizer Synthesizer

	EventBus *eventbus.Hub
	Logger   *slog.Logger

	idGen func() string
}

// New constructs an Orchestrator. planner/worker/synthesizer must be
// supplied by the caller (see ProviderPlanner/ProviderWorker/
// ProviderSynthesizer for the provider-backed defaults); a nil Planner
// falls back to the single-agent plan unconditionally, matching spec
// §4.10 step 2's "on planner failure, fall back to a single-agent plan".
func New(planner Planner, worker Worker, synthesizer Synthesizer, bus *eventbus.Hub, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		swarms:               make(map[string]*state),
		MaxConcurrentSwarms:  DefaultMaxConcurrentSwarms,
		MaxAgentsPerSwarm:    DefaultMaxAgentsPerSwarm,
		DefaultTimeout:       DefaultTimeout,
		RoundCap:             DefaultRoundCap,
		Planner:              planner,
		Worker:               worker,
		Synthesizer:          synthesizer,
		EventBus:             bus,
		Logger:               logger,
		idGen:                func() string { return uuid.NewString() },
	}
}

func (o *Orchestrator) activeCount() int {
	n := 0
	for _, st := range o.swarms {
		if !isTerminal(st.snapshot().Status) {
			n++
		}
	}
	return n
}

// Launch implements spec §4.10's Launch algorithm and returns the new
// swarm_id. The swarm runs in a detached goroutine; callers observe
// progress via Get or the Event Bus's swarm_completed/swarm_failed/
// swarm_cancelled/swarm_timeout events.
func (o *Orchestrator) Launch(ctx context.Context, task string, pattern models.SwarmPattern, maxAgents int, timeout time.Duration) (string, error) {
	switch pattern {
	case models.PatternParallel, models.PatternPipeline, models.PatternDebate, models.PatternReview:
	default:
		return "", ErrInvalidPattern
	}

	o.mu.Lock()
	if o.MaxConcurrentSwarms > 0 && o.activeCount() >= o.MaxConcurrentSwarms {
		o.mu.Unlock()
		return "", ErrTooManySwarms
	}
	o.mu.Unlock()

	limit := o.MaxAgentsPerSwarm
	if maxAgents > 0 && maxAgents < limit {
		limit = maxAgents
	}
	if limit <= 0 {
		limit = DefaultMaxAgentsPerSwarm
	}

	plan, err := o.decompose(ctx, task, limit)
	if err != nil {
		return "", fmt.Errorf("swarm: decompose: %w", err)
	}

	if timeout <= 0 {
		timeout = o.DefaultTimeout
	}
	now := time.Now()
	swarmID := o.idGen()

	runCtx, cancel := context.WithCancel(context.Background())
	st := &state{
		cancel: cancel,
		swarm: models.Swarm{
			SwarmID:         swarmID,
			TaskText:        task,
			Pattern:         pattern,
			Plan:            plan,
			Status:          models.SwarmRunning,
			StartedAt:       now,
			TimeoutDeadline: now.Add(timeout),
		},
	}

	o.mu.Lock()
	o.swarms[swarmID] = st
	o.mu.Unlock()

	go o.run(runCtx, st, timeout)

	return swarmID, nil
}

// decompose runs the configured Planner, clipped to maxAgents, falling
// back to a single generalist plan on any planner failure or absent
// Planner (spec §4.10 step 2).
func (o *Orchestrator) decompose(ctx context.Context, task string, maxAgents int) ([]models.PlanItem, error) {
	fallback := []models.PlanItem{{Role: "generalist", SubtaskText: task}}
	if o.Planner == nil {
		return fallback, nil
	}
	plan, err := o.Planner.Plan(ctx, task, maxAgents)
	if err != nil || len(plan) == 0 {
		o.Logger.Warn("swarm: planner failed, using single-agent fallback", "error", err)
		return fallback, nil
	}
	if len(plan) > maxAgents {
		plan = plan[:maxAgents]
	}
	return plan, nil
}

// run executes one swarm end to end: pattern execution, synthesis, and
// exactly one terminal-event emission (spec §4.10 "Terminal states").
func (o *Orchestrator) run(ctx context.Context, st *state, timeout time.Duration) {
	deadline, deadlineCancel := context.WithTimeout(ctx, timeout)
	defer deadlineCancel()

	st.mu.Lock()
	pattern := st.swarm.Pattern
	plan := append([]models.PlanItem(nil), st.swarm.Plan...)
	task := st.swarm.TaskText
	st.mu.Unlock()

	results, runErr := o.runPattern(deadline, pattern, task, plan)

	st.mu.Lock()
	if isTerminal(st.swarm.Status) {
		// Cancel() already finalized this swarm (spec §4.10 "a late
		// swarm_complete arriving after a cancel must not double-decrement
		// active counters"); nothing left to do.
		st.mu.Unlock()
		return
	}
	if deadline.Err() == context.DeadlineExceeded {
		st.swarm.Status = models.SwarmTimeout
		st.swarm.FailureReason = "timeout"
		st.swarm.CompletedAt = time.Now()
		st.mu.Unlock()
		o.publish(models.EventSwarmTimeout, st)
		return
	}
	st.mu.Unlock()

	if runErr != nil {
		o.finishFailed(st, runErr.Error())
		return
	}

	allFailed := len(results) > 0
	for _, r := range results {
		if r.Err == "" {
			allFailed = false
			break
		}
	}
	if allFailed {
		o.finishFailed(st, "all_workers_failed")
		return
	}

	st.mu.Lock()
	st.swarm.Results = results
	st.swarm.Status = models.SwarmSynthesizing
	st.mu.Unlock()

	synthesis, synthErr := o.synthesize(deadline, task, pattern, results)

	st.mu.Lock()
	if isTerminal(st.swarm.Status) {
		st.mu.Unlock()
		return
	}
	st.swarm.Synthesis = synthesis
	st.swarm.Status = models.SwarmCompleted
	st.swarm.CompletedAt = time.Now()
	st.mu.Unlock()
	_ = synthErr // synthesize() already applied the concatenation fallback
	o.publish(models.EventSwarmCompleted, st)
}

func (o *Orchestrator) finishFailed(st *state, reason string) {
	st.mu.Lock()
	if isTerminal(st.swarm.Status) {
		st.mu.Unlock()
		return
	}
	st.swarm.Status = models.SwarmFailed
	st.swarm.FailureReason = reason
	st.swarm.CompletedAt = time.Now()
	st.mu.Unlock()
	o.publish(models.EventSwarmFailed, st)
}

// synthesize calls the configured Synthesizer, falling back to
// concatenating per-agent outputs with separators on failure or absence
// (spec §4.10 "Synthesis").
func (o *Orchestrator) synthesize(ctx context.Context, task string, pattern models.SwarmPattern, results []models.WorkerResult) (string, error) {
	if o.Synthesizer != nil {
		if text, err := o.Synthesizer.Synthesize(ctx, task, pattern, results); err == nil {
			return text, nil
		} else {
			o.Logger.Warn("swarm: synthesis failed, concatenating worker outputs", "error", err)
		}
	}
	return concatenateResults(results), nil
}

func concatenateResults(results []models.WorkerResult) string {
	out := ""
	for i, r := range results {
		if i > 0 {
			out += "\n---\n"
		}
		if r.Err != "" {
			out += fmt.Sprintf("[%s] error: %s", r.Role, r.Err)
			continue
		}
		out += fmt.Sprintf("[%s] %s", r.Role, r.Output)
	}
	return out
}

// publish emits exactly one terminal event carrying the swarm_id.
func (o *Orchestrator) publish(eventType models.EventType, st *state) {
	if o.EventBus == nil {
		return
	}
	snap := st.snapshot()
	o.EventBus.Publish(models.NewEvent(eventType, "", map[string]any{
		"swarm_id": snap.SwarmID,
		"status":   string(snap.Status),
		"reason":   snap.FailureReason,
	}))
}

// Cancel implements spec §4.10's idempotent cancel(swarm_id): a non-running
// swarm returns ErrNotRunning with no side effects; a running swarm's
// worker pool is aborted, its mailbox partition considered cleared, and
// exactly one swarm_cancelled is emitted, here rather than from run()'s
// goroutine, so the status field transitions atomically with the event.
func (o *Orchestrator) Cancel(swarmID string) error {
	o.mu.Lock()
	st, ok := o.swarms[swarmID]
	o.mu.Unlock()
	if !ok {
		return ErrNotRunning
	}

	st.mu.Lock()
	if isTerminal(st.swarm.Status) {
		st.mu.Unlock()
		return ErrNotRunning
	}
	st.swarm.Status = models.SwarmCancelled
	st.swarm.FailureReason = "cancelled"
	st.swarm.CompletedAt = time.Now()
	cancel := st.cancel
	st.mu.Unlock()

	cancel()
	o.publish(models.EventSwarmCancelled, st)
	return nil
}

// Get returns a snapshot of swarmID's current state.
func (o *Orchestrator) Get(swarmID string) (models.Swarm, error) {
	o.mu.Lock()
	st, ok := o.swarms[swarmID]
	o.mu.Unlock()
	if !ok {
		return models.Swarm{}, ErrNotFound
	}
	return st.snapshot(), nil
}

// ActiveCount reports the number of swarms not yet in a terminal state.
func (o *Orchestrator) ActiveCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.activeCount()
}
