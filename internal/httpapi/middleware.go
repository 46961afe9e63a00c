package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/haasonsaas/agentrt/internal/apierr"
)

// withMiddleware wraps an http.HandlerFunc in the auth/integrity/metrics
// chain keyed by route, the label used for HTTP metrics.
func (s *Server) withMiddleware(route string, next http.HandlerFunc) http.HandlerFunc {
	wrapped := s.wrapMiddleware(route, next)
	return wrapped.ServeHTTP
}

// wrapMiddleware is the http.Handler form, used for the websocket alias
// which isn't itself a HandlerFunc.
func (s *Server) wrapMiddleware(route string, next http.Handler) http.Handler {
	var h http.Handler = next
	h = s.integrityMiddleware(h)
	h = s.authMiddleware(h)
	h = s.metricsMiddleware(route, h)
	return h
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *Server) metricsMiddleware(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if s.Metrics != nil {
			s.Metrics.RecordHTTPRequest(route, strconv.Itoa(rec.status), time.Since(start).Seconds())
		}
	})
}

// authMiddleware enforces the bearer-token check from spec §6
// "Authentication", grounded on the teacher's web.AuthMiddleware's
// Bearer-prefix parsing (simplified to a single shared secret rather
// than the teacher's JWT/API-key/cookie/query fan-out, since agentrt has
// no user-account subsystem to validate against).
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.cfg.RequireAuth {
			next.ServeHTTP(w, r)
			return
		}
		header := r.Header.Get("Authorization")
		if strings.HasPrefix(strings.ToLower(header), "bearer ") {
			token := strings.TrimSpace(header[len("bearer "):])
			if token != "" && token == s.cfg.SharedSecret {
				next.ServeHTTP(w, r)
				return
			}
		}
		writeError(w, s.Logger, apierr.New(apierr.KindUnauthorised, "missing or invalid bearer token"))
	})
}
