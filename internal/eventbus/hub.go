// Package eventbus implements the process-wide publish/subscribe fabric
// (spec §4.8): session-scoped topics plus a global firehose, with
// bounded per-subscriber backlogs and drop-on-full backpressure.
package eventbus

import (
	"log/slog"
	"sync"

	"github.com/haasonsaas/agentrt/pkg/models"
)

const subscriberBacklog = 64

// Hub fans Events out to session-scoped subscribers and a firehose.
// Grounded on the teacher's canvas.Hub (map[string]map[chan]struct{}
// subscriber registry, non-blocking select/default broadcast), extended
// with a second always-delivered firehose topic per spec §4.8.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[chan models.Event]struct{}
	firehose map[chan models.Event]struct{}
	logger   *slog.Logger
}

// NewHub creates an empty Hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		sessions: make(map[string]map[chan models.Event]struct{}),
		firehose: make(map[chan models.Event]struct{}),
		logger:   logger,
	}
}

// Subscribe registers a listener for a session's topic. The returned
// cancel func closes the channel and deregisters it; callers must drain
// or discard the channel after calling cancel.
func (h *Hub) Subscribe(sessionID string) (<-chan models.Event, func()) {
	ch := make(chan models.Event, subscriberBacklog)
	h.mu.Lock()
	listeners := h.sessions[sessionID]
	if listeners == nil {
		listeners = make(map[chan models.Event]struct{})
		h.sessions[sessionID] = listeners
	}
	listeners[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		listeners := h.sessions[sessionID]
		if listeners != nil {
			delete(listeners, ch)
			if len(listeners) == 0 {
				delete(h.sessions, sessionID)
			}
		}
		h.mu.Unlock()
		close(ch)
	}
	return ch, cancel
}

// SubscribeFirehose registers a listener that receives every event
// published to the Hub, regardless of session.
func (h *Hub) SubscribeFirehose() (<-chan models.Event, func()) {
	ch := make(chan models.Event, subscriberBacklog)
	h.mu.Lock()
	h.firehose[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		delete(h.firehose, ch)
		h.mu.Unlock()
		close(ch)
	}
	return ch, cancel
}

// Publish delivers evt to its session topic (if any) and to the
// firehose. A subscriber whose backlog is full is dropped from
// delivery for this event rather than blocking the publisher; it is
// not deregistered, so it may still receive later events once it
// drains.
func (h *Hub) Publish(evt models.Event) {
	if h == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	if evt.SessionID != "" {
		for ch := range h.sessions[evt.SessionID] {
			select {
			case ch <- evt:
			default:
				h.logger.Warn("eventbus: dropping event for slow session subscriber",
					"session_id", evt.SessionID, "type", evt.Type)
			}
		}
	}
	for ch := range h.firehose {
		select {
		case ch <- evt:
		default:
			h.logger.Warn("eventbus: dropping event for slow firehose subscriber", "type", evt.Type)
		}
	}
}

// SessionSubscriberCount reports how many listeners are registered on a
// session's topic. Intended for tests and diagnostics.
func (h *Hub) SessionSubscriberCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}
