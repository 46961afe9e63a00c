package models

// ToolDescriptor is the registry's view of a tool: its name and the
// human-readable description and JSON Schema surfaced to the provider. The
// handler that executes it lives in internal/tools since it is runtime
// behavior, not wire data.
type ToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Schema      map[string]any `json:"input_schema"`
}
