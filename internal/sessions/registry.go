// Package sessions implements the Session Registry (spec §4.3): a
// process-wide session_id -> handle map with ownership checks, fault
// isolation, and idle reaping.
package sessions

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/haasonsaas/agentrt/pkg/models"
)

// ErrNotFound is returned by Lookup/Terminate for an unknown session id,
// and also for a session the requester does not own (spec §4.3: ownership
// failures are indistinguishable from not-found to the caller).
var ErrNotFound = errors.New("session not found")

// ErrUnavailable is returned by Ensure when the registry cannot spawn a
// backing execution unit for a new session (spec §4.3 "session_unavailable";
// callers must surface this as 503).
var ErrUnavailable = errors.New("session_unavailable")

// AnonymousUser is the designated user_id that bypasses ownership checks,
// and only when auth is globally disabled (spec §4.3).
const AnonymousUser = "anonymous"

// Registry owns Session records exclusively (spec §3 ownership table).
type Registry struct {
	mu          sync.Mutex
	sessions    map[string]*models.Session
	queue       *Queue
	maxSessions int // 0 means unbounded
	publish     func(models.Event)
}

// New creates an empty Registry. maxSessions bounds concurrently live
// sessions to model "resource exhaustion" (0 = unbounded); publish
// receives lifecycle events (session_ended) and may be nil.
func New(maxSessions int, publish func(models.Event)) *Registry {
	if publish == nil {
		publish = func(models.Event) {}
	}
	return &Registry{
		sessions:    make(map[string]*models.Session),
		queue:       NewQueue(),
		maxSessions: maxSessions,
		publish:     publish,
	}
}

// Ensure returns the existing session for sessionID, creating it owned
// by userID on channel if absent.
func (r *Registry) Ensure(_ context.Context, sessionID, userID, channel string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[sessionID]; ok {
		return s, nil
	}
	if r.maxSessions > 0 && len(r.sessions) >= r.maxSessions {
		return nil, ErrUnavailable
	}
	s := models.NewSession(sessionID, userID, channel)
	r.sessions[sessionID] = s
	return s, nil
}

// Lookup returns sessionID's handle, enforcing the ownership check:
// a requester whose userID differs from the session's OwnerUserID gets
// ErrNotFound, unless requesterUserID is AnonymousUser and authDisabled.
func (r *Registry) Lookup(sessionID, requesterUserID string, authDisabled bool) (*models.Session, error) {
	r.mu.Lock()
	s, ok := r.sessions[sessionID]
	r.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	if requesterUserID == AnonymousUser && authDisabled {
		return s, nil
	}
	if s.OwnerUserID != requesterUserID {
		return nil, ErrNotFound
	}
	return s, nil
}

// Submit runs task on sessionID's serial lane (spec §5: strictly serial
// within a session), returning ErrNotFound if the session is unknown.
func (r *Registry) Submit(ctx context.Context, sessionID string, task func(context.Context) (any, error)) (any, error) {
	r.mu.Lock()
	_, ok := r.sessions[sessionID]
	r.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	return r.queue.Submit(ctx, sessionID, task)
}

// Terminate deallocates sessionID, cancelling any outstanding operation
// (which returns ErrTerminated to its caller) and publishing
// session_ended with cause.
func (r *Registry) Terminate(sessionID, cause string) {
	r.mu.Lock()
	_, ok := r.sessions[sessionID]
	delete(r.sessions, sessionID)
	r.mu.Unlock()
	if !ok {
		return
	}
	r.queue.Terminate(sessionID)
	r.publish(models.NewEvent(models.EventSessionEnded, sessionID, map[string]any{"cause": cause}))
}

// ReapIdle terminates every session whose IdleSince exceeds maxIdle,
// returning how many were reaped. Each reaped session's termination is
// observable via the usual session_ended event with cause "idle_reaped"
// (spec §4.3: "reaping is observable via a session_ended event").
func (r *Registry) ReapIdle(maxIdle time.Duration) int {
	r.mu.Lock()
	var stale []string
	for id, s := range r.sessions {
		if s.IdleSince() >= maxIdle {
			stale = append(stale, id)
		}
	}
	r.mu.Unlock()

	for _, id := range stale {
		r.Terminate(id, "idle_reaped")
	}
	return len(stale)
}

// Count reports the number of currently live sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
