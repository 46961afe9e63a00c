package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/haasonsaas/agentrt/internal/agent"
	"github.com/haasonsaas/agentrt/internal/apierr"
	"github.com/haasonsaas/agentrt/internal/eventbus"
	"github.com/haasonsaas/agentrt/internal/sessions"
	"github.com/haasonsaas/agentrt/internal/swarm"
	"github.com/haasonsaas/agentrt/pkg/models"
)

// mapSessionErr tags internal/sessions' plain sentinel errors with the
// apierr.Kind spec §7 assigns them, since that package has no HTTP-layer
// concept of its own.
func mapSessionErr(err error) error {
	switch {
	case errors.Is(err, sessions.ErrNotFound):
		return apierr.New(apierr.KindNotFound, "session not found")
	case errors.Is(err, sessions.ErrUnavailable):
		return apierr.New(apierr.KindUnavailable, "session_unavailable")
	default:
		return err
	}
}

// requestUserID resolves the caller's user_id from an X-User-ID header or
// a user_id query parameter, defaulting to the anonymous sentinel. Per-
// channel authentication is explicitly out of scope (spec §6's "Channel
// interface"); this is the HTTP surface's equivalent of a channel
// identity claim.
func requestUserID(r *http.Request) string {
	if v := r.Header.Get("X-User-ID"); v != "" {
		return v
	}
	if v := r.URL.Query().Get("user_id"); v != "" {
		return v
	}
	return sessions.AnonymousUser
}

type orchestrateRequest struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Channel   string `json:"channel"`
	Text      string `json:"text"`
}

type orchestrateResponse struct {
	Status     string        `json:"status"`
	FinalReply string        `json:"final_reply,omitempty"`
	Signal     *models.Signal `json:"signal,omitempty"`
	Reason     string        `json:"reason,omitempty"`
}

// handleOrchestrate implements POST /orchestrate (spec §6): ensures the
// session, rate-limits per session_id, then runs the message through the
// Agent Loop on the session's serial lane.
func (s *Server) handleOrchestrate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, s.Logger, apierr.New(apierr.KindInvalidInput, "method not allowed"))
		return
	}
	var req orchestrateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, s.Logger, apierr.New(apierr.KindInvalidInput, "invalid JSON body"))
		return
	}
	if strings.TrimSpace(req.SessionID) == "" || strings.TrimSpace(req.Text) == "" {
		writeError(w, s.Logger, apierr.New(apierr.KindInvalidInput, "session_id and text are required"))
		return
	}
	userID := req.UserID
	if userID == "" {
		userID = requestUserID(r)
	}

	if !s.sessionLimiter(req.SessionID).Allow() {
		writeError(w, s.Logger, apierr.New(apierr.KindUnavailable, "orchestrate rate limit exceeded for session"))
		return
	}

	session, err := s.Sessions.Ensure(r.Context(), req.SessionID, userID, req.Channel)
	if err != nil {
		writeError(w, s.Logger, mapSessionErr(err))
		return
	}

	result, err := s.Sessions.Submit(r.Context(), req.SessionID, func(ctx context.Context) (any, error) {
		return s.Loop.ProcessMessage(ctx, session, req.Text, req.Channel), nil
	})
	if err != nil {
		writeError(w, s.Logger, mapSessionErr(err))
		return
	}

	outcome := result.(agent.Outcome)
	resp := orchestrateResponse{Status: string(outcome.Status), FinalReply: outcome.FinalReply, Reason: outcome.Reason}
	status := http.StatusOK
	switch outcome.Status {
	case agent.StatusFiltered:
		resp.Signal = &outcome.Signal
		status = http.StatusUnprocessableEntity
	case agent.StatusError:
		status = apierr.HTTPStatus(apierr.Kind(outcome.Reason))
	}
	writeJSON(w, s.Logger, status, resp)
}

// handleSessionStream implements GET /stream/{session_id} (spec §6, §4.8):
// one SSE connection per subscriber on that session's topic, 404 on an
// unknown session or an ownership mismatch (spec property 8).
func (s *Server) handleSessionStream(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimPrefix(r.URL.Path, "/stream/")
	if sessionID == "" {
		writeError(w, s.Logger, apierr.ErrNotFound)
		return
	}
	if _, err := s.Sessions.Lookup(sessionID, requestUserID(r), !s.cfg.RequireAuth); err != nil {
		writeError(w, s.Logger, apierr.ErrNotFound)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, s.Logger, apierr.New(apierr.KindInternal, "streaming unsupported"))
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events, cancel := s.Hub.Subscribe(sessionID)
	defer cancel()
	eventbus.StreamSSE(r.Context(), flushWriter{w, flusher}, events, s.Logger)
}

// handleFirehoseSSE implements GET /events/stream: the global firehose.
func (s *Server) handleFirehoseSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, s.Logger, apierr.New(apierr.KindInternal, "streaming unsupported"))
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events, cancel := s.Hub.SubscribeFirehose()
	defer cancel()
	eventbus.StreamSSE(r.Context(), flushWriter{w, flusher}, events, s.Logger)
}

type flushWriter struct {
	w http.ResponseWriter
	f http.Flusher
}

func (fw flushWriter) Write(p []byte) (int, error) { return fw.w.Write(p) }
func (fw flushWriter) Flush()                      { fw.f.Flush() }

type classifyRequest struct {
	Text    string `json:"text"`
	Channel string `json:"channel"`
}

// handleClassify implements POST /classify: returns only the Signal,
// never running it through the Noise Filter or the loop.
func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, s.Logger, apierr.New(apierr.KindInvalidInput, "method not allowed"))
		return
	}
	var req classifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, s.Logger, apierr.New(apierr.KindInvalidInput, "invalid JSON body"))
		return
	}
	signal := s.Classifier.Classify(req.Text, req.Channel, time.Now())
	writeJSON(w, s.Logger, http.StatusOK, signal)
}

// handleListTools implements GET /tools.
func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, s.Logger, apierr.New(apierr.KindInvalidInput, "method not allowed"))
		return
	}
	snapshot := s.Tools.Snapshot()
	descriptors := make([]models.ToolDescriptor, 0, len(snapshot))
	for _, t := range snapshot {
		descriptors = append(descriptors, models.ToolDescriptor{Name: t.Name, Description: t.Description, Schema: t.Schema})
	}
	writeJSON(w, s.Logger, http.StatusOK, map[string]any{"tools": descriptors})
}

// handleExecuteTool implements POST /tools/{name}/execute: invokes a
// tool directly, bypassing the Agent Loop entirely.
func (s *Server) handleExecuteTool(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, s.Logger, apierr.New(apierr.KindInvalidInput, "method not allowed"))
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/tools/")
	name = strings.TrimSuffix(name, "/execute")
	if name == "" {
		writeError(w, s.Logger, apierr.New(apierr.KindInvalidInput, "missing tool name"))
		return
	}

	args := json.RawMessage(readBodyOrEmpty(r))

	result := s.Dispatcher.Dispatch(r.Context(), name, args)
	status := http.StatusOK
	if result.IsError {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, s.Logger, status, result)
}

func readBodyOrEmpty(r *http.Request) []byte {
	if r.Body == nil {
		return []byte("{}")
	}
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil || len(raw) == 0 {
		return []byte("{}")
	}
	return raw
}

type swarmLaunchRequest struct {
	Task      string `json:"task"`
	Pattern   string `json:"pattern"`
	MaxAgents int    `json:"max_agents"`
	TimeoutMS int    `json:"timeout_ms"`
}

// handleSwarmLaunch implements POST /swarm/launch: 202 Accepted on
// success, the async-launch status spec §6 names.
func (s *Server) handleSwarmLaunch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, s.Logger, apierr.New(apierr.KindInvalidInput, "method not allowed"))
		return
	}
	var req swarmLaunchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, s.Logger, apierr.New(apierr.KindInvalidInput, "invalid JSON body"))
		return
	}
	if strings.TrimSpace(req.Task) == "" {
		writeError(w, s.Logger, apierr.New(apierr.KindInvalidInput, "task is required"))
		return
	}

	var timeout time.Duration
	if req.TimeoutMS > 0 {
		timeout = time.Duration(req.TimeoutMS) * time.Millisecond
	}

	swarmID, err := s.Orchestrator.Launch(r.Context(), req.Task, models.SwarmPattern(req.Pattern), req.MaxAgents, timeout)
	if err != nil {
		switch {
		case errors.Is(err, swarm.ErrInvalidPattern):
			writeError(w, s.Logger, apierr.New(apierr.KindInvalidInput, "pattern must be one of parallel, pipeline, debate, review"))
		case errors.Is(err, swarm.ErrTooManySwarms):
			writeError(w, s.Logger, apierr.New(apierr.KindUnavailable, "too many concurrent swarms"))
		default:
			writeError(w, s.Logger, apierr.New(apierr.KindInternal, err.Error()))
		}
		return
	}
	if s.Metrics != nil {
		s.Metrics.RecordSwarmLaunch()
	}
	writeJSON(w, s.Logger, http.StatusAccepted, map[string]any{"swarm_id": swarmID})
}

// handleSwarmByID dispatches GET (status) and DELETE (cancel) for
// /swarm/{id}.
func (s *Server) handleSwarmByID(w http.ResponseWriter, r *http.Request) {
	swarmID := strings.TrimPrefix(r.URL.Path, "/swarm/")
	if swarmID == "" {
		writeError(w, s.Logger, apierr.ErrNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		snap, err := s.Orchestrator.Get(swarmID)
		if err != nil {
			writeError(w, s.Logger, apierr.ErrNotFound)
			return
		}
		writeJSON(w, s.Logger, http.StatusOK, snap)
	case http.MethodDelete:
		if err := s.Orchestrator.Cancel(swarmID); err != nil {
			writeError(w, s.Logger, apierr.New(apierr.KindInvalidInput, "not_running"))
			return
		}
		writeJSON(w, s.Logger, http.StatusOK, map[string]any{"swarm_id": swarmID, "status": "cancelled"})
	default:
		writeError(w, s.Logger, apierr.New(apierr.KindInvalidInput, "method not allowed"))
	}
}
