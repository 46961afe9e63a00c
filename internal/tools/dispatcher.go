package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// DefaultTimeout is the per-tool dispatch timeout spec §4.6 defaults to.
const DefaultTimeout = 30 * time.Second

// Dispatcher enforces the argument-schema and timeout boundary described in
// spec §4.6 around a Registry.
type Dispatcher struct {
	registry       *Registry
	defaultTimeout time.Duration
	schemas        map[string]*jsonschema.Schema
}

// NewDispatcher wraps registry with schema validation and timeout handling.
func NewDispatcher(registry *Registry, defaultTimeout time.Duration) *Dispatcher {
	if defaultTimeout <= 0 {
		defaultTimeout = DefaultTimeout
	}
	return &Dispatcher{
		registry:       registry,
		defaultTimeout: defaultTimeout,
		schemas:        make(map[string]*jsonschema.Schema),
	}
}

// compiledSchema lazily compiles and caches a tool's JSON Schema.
func (d *Dispatcher) compiledSchema(name string, schema map[string]any) (*jsonschema.Schema, error) {
	if cached, ok := d.schemas[name]; ok {
		return cached, nil
	}
	if len(schema) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	resourceURL := "mem://" + name + ".json"
	if err := compiler.AddResource(resourceURL, bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	compiled, err := compiler.Compile(resourceURL)
	if err != nil {
		return nil, err
	}
	d.schemas[name] = compiled
	return compiled, nil
}

// Dispatch validates args against the tool's schema, then executes the
// handler under a per-tool timeout. Unknown tool name or a schema
// validation failure both surface as an error Result rather than a Go
// error, matching spec §4.6 ("unknown tool name yields {error,
// unknown_tool}").
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args json.RawMessage) Result {
	tool, ok := d.registry.Get(name)
	if !ok {
		return Result{IsError: true, Content: "unknown_tool"}
	}

	if schema, err := d.compiledSchema(name, tool.Schema); err != nil {
		return Result{IsError: true, Content: fmt.Sprintf("invalid_schema: %v", err)}
	} else if schema != nil {
		var decoded any
		if len(args) == 0 {
			decoded = map[string]any{}
		} else if err := json.Unmarshal(args, &decoded); err != nil {
			return Result{IsError: true, Content: fmt.Sprintf("invalid_arguments: %v", err)}
		}
		if err := schema.Validate(decoded); err != nil {
			return Result{IsError: true, Content: fmt.Sprintf("invalid_arguments: %v", err)}
		}
	}

	timeout := d.defaultTimeout
	if tool.Timeout > 0 {
		timeout = time.Duration(tool.Timeout) * time.Millisecond
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		res Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{res: Result{IsError: true, Content: fmt.Sprintf("tool_panic: %v", r)}}
			}
		}()
		res, err := tool.Handler(callCtx, args)
		done <- outcome{res: res, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return Result{IsError: true, Content: out.err.Error()}
		}
		return out.res
	case <-callCtx.Done():
		return Result{IsError: true, Content: "tool_timeout"}
	}
}
