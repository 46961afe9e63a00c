package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/haasonsaas/agentrt/internal/apierr"
)

// errorBody is the consistent JSON error shape spec §6 requires:
// {error: kind, details: string}.
type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

// writeJSON marshals payload and writes it with status, logging (never
// panicking on) a write failure — grounded on the teacher's
// handleHealthz marshal-then-write-with-logged-error idiom.
func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		if logger != nil {
			logger.Error("httpapi: response marshal failed", "error", err)
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil && logger != nil {
		logger.Debug("httpapi: response write failed", "error", err)
	}
}

// writeError maps err's apierr.Kind to its HTTP status (spec §7) and
// writes the consistent error body. A plain error (not tagged) maps to
// internal_error/500, matching "uncaught exceptions at the HTTP layer
// are translated into internal_error 500 responses".
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	kind, detail := apierr.As(err)
	writeJSON(w, logger, apierr.HTTPStatus(kind), errorBody{Error: string(kind), Details: detail})
}
