package content

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/abhisek/lingua/internal/llm"
)

var replySchema = &llm.Schema{
	Name: "test-reply",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"reply": map[string]any{"type": "string"},
		},
		"required": []any{"reply"},
	},
}

type reply struct {
	Reply string `json:"reply"`
}

func TestGenerate_Structured(t *testing.T) {
	mock := llm.NewMockProvider(llm.JSONResponse(map[string]any{"reply": "hola"}))
	g := New(mock, DefaultConfig())

	c, err := g.Generate(context.Background(), Prompt{
		Text:    "greet",
		System:  "be brief",
		Schema:  replySchema,
		Purpose: llm.PurposeChat,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r, err := Decode[reply](c)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if r.Reply != "hola" {
		t.Fatalf("reply = %q", r.Reply)
	}

	req, _ := mock.LastCall()
	if req.System != "be brief" || req.Schema != replySchema || req.MaxTokens != 1024 {
		t.Fatalf("unexpected request: %+v", req)
	}
	if len(req.Messages) != 1 || req.Messages[0].Content != "greet" {
		t.Fatalf("unexpected messages: %+v", req.Messages)
	}
}

func TestGenerate_Text(t *testing.T) {
	mock := llm.NewMockProvider(llm.TextResponse("¿Qué tal?"))
	g := New(mock, DefaultConfig())

	c, err := g.Generate(context.Background(), Prompt{
		History: []llm.Message{{Role: llm.RoleAssistant, Content: "Hola"}},
		Text:    "bien",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Text != "¿Qué tal?" {
		t.Fatalf("Text = %q", c.Text)
	}
	req, _ := mock.LastCall()
	if n := len(req.Messages); n != 2 {
		t.Fatalf("messages = %d, want 2", n)
	}
}

func TestGenerate_PromptOverrides(t *testing.T) {
	mock := llm.NewMockProvider(llm.TextResponse("ok"))
	g := New(mock, Config{MaxTokens: 100, Temperature: 0.2})

	if _, err := g.Generate(context.Background(), Prompt{Text: "x", MaxTokens: 50, Temperature: 0.9}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req, _ := mock.LastCall()
	if req.MaxTokens != 50 || req.Temperature != 0.9 {
		t.Fatalf("overrides not applied: %+v", req)
	}
}

func TestGenerate_ErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unavailable", &llm.ErrProviderUnavailable{Err: errors.New("down")}, ErrTransport},
		{"rate limit", &llm.ErrRateLimit{Err: errors.New("429")}, ErrTransport},
		{"deadline", context.DeadlineExceeded, ErrTransport},
		{"invalid", &llm.ErrInvalidResponse{Err: errors.New("bad")}, ErrDecode},
		{"truncated", &llm.ErrMaxTokensExceeded{}, ErrDecode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(llm.NewMockProvider(llm.MockResponse{Err: tt.err}), DefaultConfig())
			_, err := g.Generate(context.Background(), Prompt{Text: "x"})
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
			var ge *GenerationError
			if !errors.As(err, &ge) {
				t.Fatalf("expected *GenerationError, got %T", err)
			}
			if !errors.Is(err, tt.err) {
				t.Fatal("cause should stay reachable")
			}
		})
	}
}

func TestGenerate_EmptyPrompt(t *testing.T) {
	mock := llm.NewMockProvider()
	_, err := New(mock, DefaultConfig()).Generate(context.Background(), Prompt{})
	if !errors.Is(err, ErrEmptyPrompt) {
		t.Fatalf("expected ErrEmptyPrompt, got %v", err)
	}
	if mock.CallCount() != 0 {
		t.Fatal("empty prompt should not reach the provider")
	}
}

func TestDecode(t *testing.T) {
	nonEmpty := func(r *reply) error {
		if r.Reply == "" {
			return fmt.Errorf("reply is empty")
		}
		return nil
	}

	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"ok", `{"reply":"hola"}`, false},
		{"check fails", `{"reply":""}`, true},
		{"wrong type", `{"reply":3}`, true},
		{"text not object", `"just text"`, true},
		{"empty", ``, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(&Content{Raw: []byte(tt.raw)}, nonEmpty)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Decode() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrDecode) {
				t.Fatalf("expected ErrDecode, got %v", err)
			}
		})
	}
}

func TestDecode_NilContent(t *testing.T) {
	if _, err := Decode[reply](nil); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}
