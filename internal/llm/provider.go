package llm

import (
	"context"
	"encoding/json"
)

// Provider is the abstraction over the text-generation endpoint.
// The generation pipeline requests free text (no schema) and reconstructs
// structure itself; the grading pipeline requests schema-constrained JSON.
type Provider interface {
	// Generate sends a prompt and returns the model output. When the
	// request carries a Schema, the provider uses its native structured
	// output mechanism and the response Content is validated JSON.
	// When Schema is nil, Content is the raw text of the response.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured for.
	ModelID() string
}

// Request describes a single call to the model.
type Request struct {
	// System sets the model's role and output contract.
	System string

	// Messages is the conversation. Every call in this pipeline is
	// single-turn: one user message.
	Messages []Message

	// Schema, when set, constrains the response to the given JSON Schema.
	// Used on the grading path. The generation path leaves it nil and
	// relies on the parser/repairer downstream.
	Schema *Schema

	// MaxTokens bounds the response length.
	MaxTokens int

	// Temperature controls randomness, 0.0-1.0. Zero value means the
	// provider default.
	Temperature float64
}

// Message is one turn in the conversation.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema names a JSON Schema the response must conform to.
type Schema struct {
	// Name identifies the schema (tool name for Anthropic, schema name
	// for OpenAI). Kebab-case, e.g. "grading-result".
	Name string

	// Description guides the model.
	Description string

	// Definition is the JSON Schema definition as a map.
	Definition map[string]any
}

// Response holds the model output.
type Response struct {
	// Content is raw text (no Schema) or validated JSON (Schema set),
	// wrapped as json.RawMessage either way.
	Content json.RawMessage

	// Usage reports token consumption for this request.
	Usage Usage

	// Model is the model that actually served the request.
	Model string

	// StopReason is normalized to "end", "max_tokens" or "error".
	// "max_tokens" on the generation path signals truncated output that
	// the repairer must deal with.
	StopReason string
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Text returns the response content as a plain string.
func (r *Response) Text() string {
	return string(r.Content)
}
