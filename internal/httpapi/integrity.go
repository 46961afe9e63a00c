package httpapi

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/haasonsaas/agentrt/internal/apierr"
)

const (
	integrityWindow    = 5 * time.Minute
	nonceRetention     = 10 * time.Minute
	noncePruneInterval = time.Minute
)

// nonceTable deduplicates X-NONCE values within a sliding window (spec
// §6: "single-use, deduplicated in a sliding-window table").
type nonceTable struct {
	mu      sync.Mutex
	seen    map[string]time.Time
	lastGC  time.Time
}

func newNonceTable() *nonceTable {
	return &nonceTable{seen: make(map[string]time.Time)}
}

// claim returns false if nonce was already seen within the retention
// window, true (and records it) otherwise.
func (t *nonceTable) claim(nonce string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if now.Sub(t.lastGC) > noncePruneInterval {
		for n, seenAt := range t.seen {
			if now.Sub(seenAt) > nonceRetention {
				delete(t.seen, n)
			}
		}
		t.lastGC = now
	}

	if _, ok := t.seen[nonce]; ok {
		return false
	}
	t.seen[nonce] = now
	return true
}

// integrityMiddleware validates the optional X-SIG/X-TIMESTAMP/X-NONCE
// triple layered above bearer auth (spec §6): HMAC-SHA256 over
// "timestamp\nnonce\nbody" keyed by IntegritySecret, a 5-minute
// timestamp window, and single-use nonces. A Server with no
// IntegritySecret configured skips this layer entirely.
func (s *Server) integrityMiddleware(next http.Handler) http.Handler {
	if s.cfg.IntegritySecret == "" {
		return next
	}
	if s.nonces == nil {
		s.nonces = newNonceTable()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sig := r.Header.Get("X-SIG")
		ts := r.Header.Get("X-TIMESTAMP")
		nonce := r.Header.Get("X-NONCE")
		if sig == "" || ts == "" || nonce == "" {
			writeError(w, s.Logger, apierr.New(apierr.KindUnauthorised, "missing integrity headers"))
			return
		}

		sec, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			writeError(w, s.Logger, apierr.New(apierr.KindUnauthorised, "invalid X-TIMESTAMP"))
			return
		}
		requestTime := time.Unix(sec, 0)
		now := time.Now()
		if requestTime.Before(now.Add(-integrityWindow)) || requestTime.After(now.Add(integrityWindow)) {
			writeError(w, s.Logger, apierr.New(apierr.KindUnauthorised, "timestamp outside acceptable window"))
			return
		}

		if !s.nonces.claim(nonce, now) {
			writeError(w, s.Logger, apierr.New(apierr.KindUnauthorised, "nonce already used"))
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, s.Logger, apierr.New(apierr.KindInvalidInput, "unreadable body"))
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		mac := hmac.New(sha256.New, []byte(s.cfg.IntegritySecret))
		mac.Write([]byte(ts + "\n" + nonce + "\n"))
		mac.Write(body)
		expected := hex.EncodeToString(mac.Sum(nil))
		if !hmac.Equal([]byte(expected), []byte(sig)) {
			writeError(w, s.Logger, apierr.New(apierr.KindUnauthorised, "signature mismatch"))
			return
		}

		next.ServeHTTP(w, r)
	})
}
