// Package provider implements the model provider boundary: a neutral
// request/response surface over tool-capable and analysis-only LLM
// backends.
package provider

import (
	"context"
	"encoding/json"
)

// Stop reasons reported by Complete.
const (
	StopEndTurn = "end_turn"
	StopToolUse = "tool_use"
	StopMaxTok  = "max_tokens"
)

// Message roles in provider conversation history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Image is an inline image attached to a user message.
type Image struct {
	// MediaType is the MIME type (e.g. "image/png").
	MediaType string `json:"media_type"`
	// Data is the base64-encoded payload.
	Data string `json:"data"`
}

// ToolCall is one structured tool invocation emitted by the model.
type ToolCall struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// ToolOutput is the result of a tool invocation fed back to the model.
type ToolOutput struct {
	CallID  string `json:"call_id"`
	Content string `json:"content"`
	IsError bool   `json:"is_error"`
}

// Message is one entry of provider conversation history. User messages
// carry text and optional images; assistant messages carry text and the
// tool calls the model emitted; tool messages carry tool outputs.
type Message struct {
	Role        string       `json:"role"`
	Content     string       `json:"content,omitempty"`
	Images      []Image      `json:"images,omitempty"`
	ToolCalls   []ToolCall   `json:"tool_calls,omitempty"`
	ToolOutputs []ToolOutput `json:"tool_outputs,omitempty"`
}

// ToolDefinition is a provider-neutral tool schema. Implementations
// translate it to their wire format.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Properties  map[string]any `json:"properties"`
	Required    []string       `json:"required,omitempty"`
}

// Request is one completion request for an agent turn.
type Request struct {
	System    string
	Messages  []Message
	Tools     []ToolDefinition
	Model     string
	MaxTokens int
}

// Usage reports token consumption for one call.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Response is the model's output for one turn: assistant text and/or
// structured tool invocations.
type Response struct {
	Text       string     `json:"text"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	StopReason string     `json:"stop_reason"`
	Usage      Usage      `json:"usage"`
}

// ModelProvider is the polymorphic provider boundary. Tool-capable
// implementations honor Request.Tools; analysis-only implementations
// are never offered tools by the orchestrator.
type ModelProvider interface {
	// ID is the provider identifier used by the capability registry.
	ID() string
	// ToolCapable reports whether the provider can execute tool calls.
	ToolCapable() bool
	// Complete runs one model call for a turn.
	Complete(ctx context.Context, req *Request) (*Response, error)
}
