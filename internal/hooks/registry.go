package hooks

import (
	"context"
	"log/slog"
	"sort"
	"sync"
)

// Registry holds hook Registrations and fires them in ascending-priority
// order per event (spec §4.7). Writers are linearised by mu; readers get a
// freshly-sorted snapshot slice so an in-flight firing is never mutated
// under it (spec §5 "read-mostly shared state").
type Registry struct {
	mu    sync.RWMutex
	byKind map[EventKind][]Registration
	logger *slog.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		byKind: make(map[EventKind][]Registration),
		logger: logger,
	}
}

// Register adds reg, ordering it into the correct priority slot.
func (r *Registry) Register(reg Registration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := append(r.byKind[reg.Kind], reg)
	sort.SliceStable(list, func(i, j int) bool { return list[i].Priority < list[j].Priority })
	r.byKind[reg.Kind] = list
}

// Unregister removes every registration with the given name at kind.
func (r *Registry) Unregister(kind EventKind, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.byKind[kind]
	out := list[:0:0]
	for _, reg := range list {
		if reg.Name != name {
			out = append(out, reg)
		}
	}
	r.byKind[kind] = out
}

func (r *Registry) snapshot(kind EventKind) []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := r.byKind[kind]
	out := make([]Registration, len(list))
	copy(out, list)
	return out
}

// FireResult is the overall outcome of running one event through every
// registered handler.
type FireResult struct {
	Blocked bool
	Reason  string
	Payload *Payload
}

// Fire runs all PreToolUse/PreResponse/session_start/pre_compact handlers
// synchronously in ascending priority order, stopping at the first Block.
// post_tool_use and post_response handlers are the caller's responsibility to
// dispatch asynchronously (spec §4.7); Fire still executes them synchronously
// here and lets the caller decide whether to wait, since "fire and forget" is
// a scheduling choice, not a pipeline-semantics one.
func (r *Registry) Fire(ctx context.Context, kind EventKind, payload *Payload) FireResult {
	for _, reg := range r.snapshot(kind) {
		res := r.runOne(ctx, reg, payload)
		switch res.Outcome {
		case OutcomeBlock:
			if kind != PreToolUse {
				r.logger.Warn("hook returned block outside pre_tool_use; ignoring",
					"hook", reg.Name, "event", kind)
				continue
			}
			return FireResult{Blocked: true, Reason: res.Reason, Payload: payload}
		case OutcomeOK:
			if res.Payload != nil {
				payload = res.Payload
			}
		case OutcomeSkip:
			// no-op
		}
	}
	return FireResult{Payload: payload}
}

// runOne invokes a single handler, recovering from panics per spec §9's
// fault-isolation design note: a hook crash is logged and swallowed, never
// propagated to the loop.
func (r *Registry) runOne(ctx context.Context, reg Registration, payload *Payload) (res Result) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("hook handler panicked", "hook", reg.Name, "event", reg.Kind, "recover", rec)
			res = Result{Outcome: OutcomeSkip}
		}
	}()
	return reg.Handler(ctx, reg.Kind, payload)
}

// FireAsync runs post_tool_use/post_response handlers without blocking the
// caller; their results are discarded per spec §4.7.
func (r *Registry) FireAsync(ctx context.Context, kind EventKind, payload *Payload) {
	list := r.snapshot(kind)
	go func() {
		for _, reg := range list {
			r.runOne(ctx, reg, payload)
		}
	}()
}
