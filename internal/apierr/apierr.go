// Package apierr defines the error taxonomy shared by the HTTP surface and
// the Agent Loop (spec §7), independent of any particular HTTP framework.
package apierr

import (
	"errors"
	"fmt"
)

// Kind is a taxonomy tag, not a Go type, so that every subsystem can surface
// the same vocabulary regardless of how the error was constructed.
type Kind string

const (
	KindInvalidInput    Kind = "invalid_input"
	KindUnauthorised    Kind = "unauthorised"
	KindNotFound        Kind = "not_found"
	KindSignalFiltered  Kind = "signal_filtered"
	KindBudgetExceeded  Kind = "budget_exceeded"
	KindToolTimeout     Kind = "tool_timeout"
	KindToolError       Kind = "tool_error"
	KindProviderTransient Kind = "provider_transient"
	KindProviderHard    Kind = "provider_hard"
	KindCancelled       Kind = "cancelled"
	KindIterationLimit  Kind = "iteration_limit"
	KindInternal        Kind = "internal_error"
	KindUnavailable     Kind = "unavailable"
)

// httpStatus maps a Kind to the status code spec §7/§6 assigns it.
var httpStatus = map[Kind]int{
	KindInvalidInput:      400,
	KindUnauthorised:      401,
	KindNotFound:          404,
	KindSignalFiltered:    422,
	KindBudgetExceeded:    422,
	KindToolTimeout:       500,
	KindToolError:         500,
	KindProviderTransient: 500,
	KindProviderHard:      500,
	KindCancelled:         500,
	KindIterationLimit:    422,
	KindInternal:          500,
	KindUnavailable:       503,
}

// HTTPStatus returns the status code for kind, defaulting to 500.
func HTTPStatus(kind Kind) int {
	if code, ok := httpStatus[kind]; ok {
		return code
	}
	return 500
}

// Error is a taxonomy-tagged error carrying a human-readable detail and an
// optional wrapped cause.
type Error struct {
	Kind    Kind
	Detail  string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs a tagged Error.
func New(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// Wrap constructs a tagged Error around cause.
func Wrap(kind Kind, detail string, cause error) *Error {
	return &Error{Kind: kind, Detail: detail, Cause: cause}
}

// As extracts the taxonomy Kind from err, defaulting to internal_error.
func As(err error) (Kind, string) {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Kind, tagged.Detail
	}
	return KindInternal, err.Error()
}

var (
	ErrSessionUnavailable = New(KindUnavailable, "session_unavailable")
	ErrNotFound           = New(KindNotFound, "not_found")
	ErrCancelled          = New(KindCancelled, "cancelled")
)
