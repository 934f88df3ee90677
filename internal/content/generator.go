// Package content is the boundary to the generative model. It sends an
// instruction with an optional output schema and returns either reply
// text or JSON for the caller to decode. Every failure leaves this
// package as a *GenerationError; nothing is retried here.
package content

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/abhisek/lingua/internal/llm"
)

// Generator produces model content for a prompt.
type Generator interface {
	Generate(ctx context.Context, p Prompt) (*Content, error)
}

// Prompt is one generation request.
type Prompt struct {
	// Text is the instruction, sent as the final user message.
	Text string

	// System is the optional system instruction.
	System string

	// Schema requests structured output. Nil asks for plain text.
	Schema *llm.Schema

	// Purpose tags the request in the event log.
	Purpose string

	// History is sent before Text, for conversational prompts.
	History []llm.Message

	// MaxTokens and Temperature override the generator config when set.
	MaxTokens   int
	Temperature float64
}

// Content is a successful reply.
type Content struct {
	// Raw is the JSON reply. For text prompts it is a JSON string.
	Raw json.RawMessage

	// Text is the plain reply for prompts without a schema.
	Text string

	Usage llm.Usage
	Model string
}

// Config holds defaults applied to every prompt.
type Config struct {
	MaxTokens   int
	Temperature float64
}

// DefaultConfig returns the generation defaults.
func DefaultConfig() Config {
	return Config{
		MaxTokens:   1024,
		Temperature: 0.7,
	}
}

// LLMGenerator implements Generator on top of an llm.Provider.
type LLMGenerator struct {
	provider llm.Provider
	config   Config
}

// New creates a new LLMGenerator with the given provider and config.
func New(provider llm.Provider, cfg Config) *LLMGenerator {
	return &LLMGenerator{provider: provider, config: cfg}
}

// Generate sends the prompt. It does not check the reply against the
// caller's expectations; use Decode for that.
func (g *LLMGenerator) Generate(ctx context.Context, p Prompt) (*Content, error) {
	if p.Purpose != "" {
		ctx = llm.WithPurpose(ctx, p.Purpose)
	}

	msgs := slices.Clone(p.History)
	if p.Text != "" {
		msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: p.Text})
	}
	if len(msgs) == 0 {
		return nil, &GenerationError{Kind: KindTransport, Err: ErrEmptyPrompt}
	}

	req := llm.Request{
		System:      p.System,
		Messages:    msgs,
		Schema:      p.Schema,
		MaxTokens:   g.config.MaxTokens,
		Temperature: g.config.Temperature,
	}
	if p.MaxTokens > 0 {
		req.MaxTokens = p.MaxTokens
	}
	if p.Temperature > 0 {
		req.Temperature = p.Temperature
	}

	resp, err := g.provider.Generate(ctx, req)
	if err != nil {
		return nil, classify(err)
	}
	if resp == nil {
		return nil, &GenerationError{Kind: KindTransport, Err: fmt.Errorf("provider returned no response")}
	}

	c := &Content{
		Raw:   resp.Content,
		Usage: resp.Usage,
		Model: resp.Model,
	}
	if p.Schema == nil {
		c.Text = resp.Text()
	}
	return c, nil
}

// Decode unmarshals structured content into T and runs the given checks
// in order. Any mismatch is reported as a decode GenerationError, never
// as a silently defaulted value.
func Decode[T any](c *Content, checks ...func(*T) error) (*T, error) {
	if c == nil || len(c.Raw) == 0 {
		return nil, DecodeError(fmt.Errorf("empty content"))
	}
	var v T
	if err := json.Unmarshal(c.Raw, &v); err != nil {
		return nil, DecodeError(fmt.Errorf("unmarshal: %w", err))
	}
	for _, check := range checks {
		if err := check(&v); err != nil {
			return nil, DecodeError(err)
		}
	}
	return &v, nil
}
