// Package httpapi serves the HTTP surface (spec §6): a small JSON API in
// front of the Session Registry, Signal Classifier, Tool Registry, and
// Swarm Orchestrator, plus SSE/websocket event streaming.
//
// Grounded on the teacher's internal/gateway/http_server.go: stdlib
// net/http.ServeMux, promhttp.Handler() mounted at /metrics, and the
// manual marshal-then-write-with-logged-error idiom its handleHealthz
// uses — no third-party router is pulled in, matching the teacher.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/haasonsaas/agentrt/internal/agent"
	"github.com/haasonsaas/agentrt/internal/classifier"
	"github.com/haasonsaas/agentrt/internal/eventbus"
	"github.com/haasonsaas/agentrt/internal/observability"
	"github.com/haasonsaas/agentrt/internal/sessions"
	"github.com/haasonsaas/agentrt/internal/swarm"
	"github.com/haasonsaas/agentrt/internal/tools"
)

// Config configures auth and rate limiting for a Server, mirroring the
// teacher's auth.Service toggle (require_auth) plus a per-session
// throttle layered in front of the loop.
type Config struct {
	RequireAuth  bool
	SharedSecret string

	// IntegritySecret, when non-empty, requires every request to carry a
	// valid X-SIG/X-TIMESTAMP/X-NONCE triple (spec §6 "request integrity
	// layer"), HMAC-SHA256 over "timestamp\nnonce\nbody" keyed by this
	// secret.
	IntegritySecret string

	// OrchestrateRateLimit/OrchestrateRateBurst bound /orchestrate calls
	// per session_id via golang.org/x/time/rate (spec §4.9 throttling,
	// generalised from the budget gate to the transport boundary).
	OrchestrateRateLimit rate.Limit
	OrchestrateRateBurst int
}

// Server wires every agentrt component the HTTP surface fronts.
type Server struct {
	cfg Config

	Sessions     *sessions.Registry
	Loop         *agent.Loop
	Classifier   *classifier.Classifier
	NoiseFilter  *classifier.NoiseFilter
	Tools        *tools.Registry
	Dispatcher   *tools.Dispatcher
	Orchestrator *swarm.Orchestrator
	Hub          *eventbus.Hub
	Metrics      *observability.Metrics
	Tracer       *observability.Tracer

	Logger *slog.Logger

	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter
	nonces    *nonceTable

	httpServer   *http.Server
	httpListener net.Listener
}

// NewServer builds a Server. cfg.OrchestrateRateLimit/Burst default to
// 1 req/s burst 5 per session when zero.
func NewServer(cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.OrchestrateRateLimit == 0 {
		cfg.OrchestrateRateLimit = 1
	}
	if cfg.OrchestrateRateBurst == 0 {
		cfg.OrchestrateRateBurst = 5
	}
	return &Server{
		cfg:      cfg,
		Logger:   logger,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Mux builds the routed handler, wrapping every route (other than
// /healthz and /metrics) in the auth/integrity/metrics middleware chain.
func (s *Server) Mux() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", s.handleHealthz)

	mux.HandleFunc("/orchestrate", s.withMiddleware("/orchestrate", s.handleOrchestrate))
	mux.HandleFunc("/stream/", s.withMiddleware("/stream", s.handleSessionStream))
	mux.HandleFunc("/classify", s.withMiddleware("/classify", s.handleClassify))
	mux.HandleFunc("/tools", s.withMiddleware("/tools", s.handleListTools))
	mux.HandleFunc("/tools/", s.withMiddleware("/tools/execute", s.handleExecuteTool))
	mux.HandleFunc("/swarm/launch", s.withMiddleware("/swarm/launch", s.handleSwarmLaunch))
	mux.HandleFunc("/swarm/", s.withMiddleware("/swarm", s.handleSwarmByID))
	mux.HandleFunc("/events/stream", s.withMiddleware("/events/stream", s.handleFirehoseSSE))
	mux.Handle("/events/stream/ws", s.wrapMiddleware("/events/stream/ws", eventbus.NewWSFirehoseHandler(s.Hub, s.Logger)))

	return mux
}

// Serve starts listening on addr in a background goroutine, matching the
// teacher's startHTTPServer/net.Listen/go server.Serve shape.
func (s *Server) Serve(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("httpapi: listen: %w", err)
	}
	s.httpListener = listener

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Logger.Error("httpapi: server error", "error", err)
		}
	}()
	s.Logger.Info("httpapi: listening", "addr", addr)
	return nil
}

// Shutdown gracefully stops the server, matching the teacher's
// stopHTTPServer's ctx-with-fallback-timeout shape.
func (s *Server) Shutdown(ctx context.Context) {
	if s.httpServer == nil {
		return
	}
	shutdownCtx := ctx
	if shutdownCtx == nil {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.Logger.Warn("httpapi: shutdown error", "error", err)
	}
	s.httpServer = nil
	s.httpListener = nil
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Logger, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.Sessions.Count(),
		"swarms":   s.Orchestrator.ActiveCount(),
	})
}

// sessionLimiter returns (creating if absent) the token-bucket limiter
// for sessionID.
func (s *Server) sessionLimiter(sessionID string) *rate.Limiter {
	s.limiterMu.Lock()
	defer s.limiterMu.Unlock()
	l, ok := s.limiters[sessionID]
	if !ok {
		l = rate.NewLimiter(s.cfg.OrchestrateRateLimit, s.cfg.OrchestrateRateBurst)
		s.limiters[sessionID] = l
	}
	return l
}
