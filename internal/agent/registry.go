package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
)

// Handler executes one tool invocation. A returned error is converted by the
// registry into an error-status result; it never propagates to the turn.
type Handler interface {
	Execute(ctx context.Context, call ToolCall) (ToolResult, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, call ToolCall) (ToolResult, error)

func (f HandlerFunc) Execute(ctx context.Context, call ToolCall) (ToolResult, error) {
	return f(ctx, call)
}

type registeredTool struct {
	def     ToolDef
	handler Handler
}

// Registry holds the tools available to the model and dispatches calls
// against them.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]registeredTool
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]registeredTool)}
}

func (r *Registry) Register(def ToolDef, handler Handler) error {
	if r == nil {
		return errors.New("nil tool registry")
	}
	name := strings.TrimSpace(def.Name)
	if name == "" {
		return errors.New("tool name is required")
	}
	if handler == nil {
		return fmt.Errorf("tool %s missing handler", name)
	}
	def.Name = name

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[name]; ok {
		return fmt.Errorf("duplicate tool %q", name)
	}
	r.tools[name] = registeredTool{def: def, handler: handler}
	return nil
}

// Snapshot returns the tool declarations sorted by name.
func (r *Registry) Snapshot() []ToolDef {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ToolDef, 0, len(r.tools))
	for _, item := range r.tools {
		out = append(out, item.def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Registry) resolve(name string) (ToolDef, Handler, bool) {
	if r == nil {
		return ToolDef{}, nil, false
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ToolDef{}, nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.tools[name]
	if !ok {
		return ToolDef{}, nil, false
	}
	return item.def, item.handler, true
}

// Dispatch executes the calls serially, in the order the model emitted them,
// and returns one result per call. Unknown tools, schema violations, and
// handler errors all produce error-status results; Dispatch itself never
// fails.
func (r *Registry) Dispatch(ctx context.Context, calls []ToolCall) []ToolResult {
	if len(calls) == 0 {
		return nil
	}
	results := make([]ToolResult, len(calls))
	for idx, call := range calls {
		call.Name = strings.TrimSpace(call.Name)
		if call.Name == "" {
			results[idx] = ToolResult{ToolID: call.ID, Status: ResultError, Summary: "tool.argument_error", Details: "missing tool name"}
			continue
		}
		def, handler, ok := r.resolve(call.Name)
		if !ok {
			results[idx] = ToolResult{ToolID: call.ID, ToolName: call.Name, Status: ResultError, Summary: "tool.argument_error", Details: fmt.Sprintf("unknown tool: %s", call.Name)}
			continue
		}
		if err := validateToolArgs(def, call.Args); err != nil {
			results[idx] = ToolResult{ToolID: call.ID, ToolName: call.Name, Status: ResultError, Summary: "tool.argument_error", Details: err.Error()}
			continue
		}
		results[idx] = r.executeOne(ctx, call, handler)
	}
	return results
}

func (r *Registry) executeOne(ctx context.Context, call ToolCall, handler Handler) ToolResult {
	if err := ctx.Err(); err != nil {
		return ToolResult{ToolID: call.ID, ToolName: call.Name, Status: ResultError, Summary: "tool.aborted", Details: err.Error()}
	}
	result, err := handler.Execute(ctx, call)
	if err != nil {
		return ToolResult{ToolID: call.ID, ToolName: call.Name, Status: ResultError, Summary: "tool.error", Details: err.Error()}
	}
	result.ToolID = call.ID
	result.ToolName = call.Name
	if strings.TrimSpace(result.Status) == "" {
		result.Status = ResultSuccess
	}
	return result
}

func validateToolArgs(def ToolDef, args map[string]any) error {
	if len(def.InputSchema) == 0 {
		return nil
	}
	if args == nil {
		args = map[string]any{}
	}
	var schema map[string]any
	if err := json.Unmarshal(def.InputSchema, &schema); err != nil {
		return nil
	}
	if req, ok := schema["required"].([]any); ok {
		for _, item := range req {
			name, _ := item.(string)
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if _, exists := args[name]; !exists {
				return fmt.Errorf("missing required field: %s", name)
			}
		}
	}
	properties, _ := schema["properties"].(map[string]any)
	for key, val := range args {
		propRaw, ok := properties[key]
		if !ok {
			continue
		}
		prop, _ := propRaw.(map[string]any)
		typeName, _ := prop["type"].(string)
		if typeName = strings.TrimSpace(typeName); typeName != "" {
			if !matchesSchemaType(typeName, val) {
				return fmt.Errorf("invalid type for %s: expected %s", key, typeName)
			}
		}
		if allowed, ok := prop["enum"].([]any); ok && len(allowed) > 0 {
			if err := matchesEnum(key, allowed, val); err != nil {
				return err
			}
		}
	}
	return nil
}

func matchesEnum(key string, allowed []any, v any) error {
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("invalid value for %s: expected one of the allowed strings", key)
	}
	for _, item := range allowed {
		if a, ok := item.(string); ok && strings.EqualFold(strings.TrimSpace(s), a) {
			return nil
		}
	}
	return fmt.Errorf("invalid value for %s: %q is not allowed", key, s)
}

func matchesSchemaType(typeName string, v any) bool {
	switch strings.ToLower(strings.TrimSpace(typeName)) {
	case "string":
		_, ok := v.(string)
		return ok
	case "boolean":
		_, ok := v.(bool)
		return ok
	case "integer", "number":
		switch v.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float64, float32:
			return true
		default:
			return false
		}
	case "object":
		return reflect.TypeOf(v) != nil && reflect.TypeOf(v).Kind() == reflect.Map
	case "array":
		kind := reflect.TypeOf(v)
		return kind != nil && (kind.Kind() == reflect.Slice || kind.Kind() == reflect.Array)
	default:
		return true
	}
}
