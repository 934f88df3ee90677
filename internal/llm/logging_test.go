package llm

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/abhisek/lingua/internal/store"
)

func openEventRepo(t *testing.T) store.EventRepo {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s.EventRepo()
}

func TestLogging_RecordsSuccess(t *testing.T) {
	repo := openEventRepo(t)
	mock := NewMockProvider(MockResponse{
		Content: []byte(`{"reply":"hola"}`),
		Usage:   Usage{InputTokens: 12, OutputTokens: 4},
	})
	p := WithLogging(mock, "mock", repo)

	ctx := WithPurpose(context.Background(), PurposeChat)
	_, err := p.Generate(ctx, Request{
		System:   "You are a friendly Spanish tutor.",
		Messages: []Message{{Role: RoleUser, Content: "hola"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	events, err := repo.QueryLLMEvents(context.Background(), store.QueryOpts{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	e := events[0]
	if e.Purpose != PurposeChat || !e.Success || e.InputTokens != 12 || e.Provider != "mock" {
		t.Fatalf("unexpected event: %+v", e)
	}
	if !strings.Contains(e.RequestBody, "[system]") || !strings.Contains(e.RequestBody, "[user]\nhola") {
		t.Fatalf("request body missing transcript: %q", e.RequestBody)
	}
	if e.ResponseBody != `{"reply":"hola"}` {
		t.Fatalf("response body = %q", e.ResponseBody)
	}
}

func TestLogging_RecordsFailure(t *testing.T) {
	repo := openEventRepo(t)
	mock := NewMockProvider(MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("offline")}})
	p := WithLogging(mock, "mock", repo)

	if _, err := p.Generate(context.Background(), Request{}); err == nil {
		t.Fatal("expected error")
	}

	events, err := repo.QueryLLMEvents(context.Background(), store.QueryOpts{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(events) != 1 || events[0].Success || !strings.Contains(events[0].ErrorMessage, "offline") {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestLogging_NilRepo(t *testing.T) {
	p := WithLogging(NewMockProvider(TextResponse("ok")), "mock", nil)
	if _, err := p.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSerializeRequest_IncludesSchema(t *testing.T) {
	out := serializeRequest(Request{Schema: idiomSchema()})
	if !strings.Contains(out, "[schema: test-idiom]") {
		t.Fatalf("schema header missing: %q", out)
	}
}
