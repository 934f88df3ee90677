package llm

import (
	"context"
	"encoding/json"
)

// Provider is the single seam between the lesson engine and a remote
// language model. Every content and grading call in lingua goes through it.
type Provider interface {
	// Generate sends a prompt and returns the model output. When req.Schema
	// is set the output is JSON validated against it; otherwise the text
	// reply is returned as a JSON string.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes what to send to the LLM.
type Request struct {
	// System sets the tutor persona and output constraints.
	System string

	// Messages is the conversation history. Exercise generation and grading
	// send one user message; conversation practice sends the whole
	// transcript.
	Messages []Message

	// Schema is the JSON Schema the response must conform to.
	Schema *Schema

	// MaxTokens caps the response length.
	MaxTokens int

	// Temperature controls randomness in [0, 1]. Zero leaves the provider default.
	Temperature float64
}

// Message is a single turn sent to the model.
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

// Schema defines the JSON structure expected from the LLM.
type Schema struct {
	// Name identifies this schema, kebab-case (e.g. "idiom-task").
	// It doubles as the cache key for compiled validators.
	Name string

	// Description is sent to providers that accept one.
	Description string

	// Definition is the JSON Schema document.
	Definition map[string]any
}

// Response holds the LLM's output.
type Response struct {
	// Content is the validated JSON object for schema requests, or a JSON
	// string holding the reply text otherwise.
	Content json.RawMessage

	Usage Usage

	// Model is the model that actually served the request.
	Model string

	// StopReason is normalized to "end" or "max_tokens".
	StopReason string
}

// Text returns Content decoded as a plain string. It is meant for
// schema-less requests; for JSON objects it returns the raw JSON.
func (r *Response) Text() string {
	var s string
	if err := json.Unmarshal(r.Content, &s); err == nil {
		return s
	}
	return string(r.Content)
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// finalize turns a provider's raw reply into a Response: truncated
// structured replies become ErrMaxTokensExceeded, structured replies are
// validated, and text replies are JSON-quoted.
func finalize(req Request, raw string, usage Usage, model, stop string) (*Response, error) {
	var content json.RawMessage
	if req.Schema != nil {
		content = json.RawMessage(raw)
		if stop == "max_tokens" {
			return nil, &ErrMaxTokensExceeded{Content: content}
		}
		if err := validateResponse(req.Schema, content); err != nil {
			return nil, err
		}
	} else {
		quoted, err := json.Marshal(raw)
		if err != nil {
			return nil, &ErrInvalidResponse{Err: err}
		}
		content = quoted
	}

	return &Response{
		Content:    content,
		Usage:      usage,
		Model:      model,
		StopReason: stop,
	}, nil
}
