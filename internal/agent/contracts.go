// Package agent drives the tool-calling conversation loop between the
// student, the model backend, and the request workflow tools.
package agent

import (
	"context"
	"encoding/json"
)

// Tool result statuses.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Message is one entry in the model conversation.
//
// Cross-turn history carries only role "user"/"assistant" with Text set. Tool
// exchanges (role "assistant" with ToolCalls, role "tool" with Results) are
// built per turn and never survive into the next turn's history.
type Message struct {
	Role      string       `json:"role"`
	Text      string       `json:"text,omitempty"`
	ToolCalls []ToolCall   `json:"tool_calls,omitempty"`
	Results   []ToolResult `json:"results,omitempty"`
}

// ToolDef declares a tool to the model.
type ToolDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
	Mutating    bool            `json:"mutating,omitempty"`
}

// ToolCall is one tool invocation requested by the model.
type ToolCall struct {
	ID   string         `json:"id,omitempty"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`

	// RawArgs preserves the provider's argument JSON for replay.
	RawArgs string `json:"raw_args,omitempty"`
}

// ToolResult is the structured outcome of one tool invocation. Handlers never
// panic or return naked errors to the model; failures become error-status
// results the model can react to.
type ToolResult struct {
	ToolID   string `json:"tool_id,omitempty"`
	ToolName string `json:"tool_name,omitempty"`
	Status   string `json:"status"`
	Summary  string `json:"summary,omitempty"`
	Details  string `json:"details,omitempty"`
	Data     any    `json:"data,omitempty"`
}

// Payload renders the result as the JSON fed back to the model.
func (r ToolResult) Payload() string {
	b, err := json.Marshal(struct {
		Status  string `json:"status"`
		Summary string `json:"summary,omitempty"`
		Details string `json:"details,omitempty"`
		Data    any    `json:"data,omitempty"`
	}{r.Status, r.Summary, r.Details, r.Data})
	if err != nil {
		return `{"status":"error","details":"unencodable tool result"}`
	}
	return string(b)
}

// TurnRequest is one model invocation: the full message history composed so
// far plus the active tool declarations.
type TurnRequest struct {
	Model    string    `json:"model"`
	System   string    `json:"system,omitempty"`
	Messages []Message `json:"messages"`
	Tools    []ToolDef `json:"tools,omitempty"`
}

// TurnResult is the model's reply: assistant text and any tool calls, in the
// order the model emitted them.
type TurnResult struct {
	Text      string     `json:"text,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// Provider is the model backend adapter contract.
type Provider interface {
	Complete(ctx context.Context, req TurnRequest) (TurnResult, error)
}
