// Package tools implements the Tool Registry + Dispatcher (spec §4.6): a
// uniform tool interface, JSON-schema argument validation at the boundary,
// timeout-bounded dispatch, and the built-in shell/file tools' deny-list and
// allow-list safety checks. The registry shape is grounded on the teacher's
// internal/agent.ToolRegistry (thread-safe map, Register/Unregister/Get,
// hot-reload via atomic map swap).
package tools

import (
	"context"
	"encoding/json"
)

// Result is a handler's outcome: exactly one of Content/Image is set on
// success, or an error reason string on failure (spec §3 "Tool descriptor").
type Result struct {
	Content string
	Image   *ImageEnvelope
	IsError bool
}

// ImageEnvelope carries binary tool output inline.
type ImageEnvelope struct {
	MediaType string
	Base64    string
	Path      string
}

// Handler executes a tool call. Handlers must never throw; signal failure by
// returning IsError=true (spec §4.6 contract).
type Handler func(ctx context.Context, args json.RawMessage) (Result, error)

// Tool is a named callable with a JSON-schema argument contract (spec §3
// "Tool descriptor").
type Tool struct {
	Name        string
	Description string
	Schema      map[string]any
	Handler     Handler

	// Timeout overrides the dispatcher's default per-tool timeout when > 0.
	Timeout int64 // milliseconds; 0 = use dispatcher default
}
