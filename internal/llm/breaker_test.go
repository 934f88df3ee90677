package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCircuitBreaker_DisabledReturnsInner(t *testing.T) {
	mock := NewMockProvider()
	if p := WithCircuitBreaker(mock, CircuitBreakerConfig{}); p != Provider(mock) {
		t.Fatalf("expected unwrapped provider, got %T", p)
	}
}

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	mock := NewMockProvider(down(), down(), TextResponse("never reached"))
	p := WithCircuitBreaker(mock, CircuitBreakerConfig{FailureThreshold: 2, OpenTimeout: time.Minute})

	for range 2 {
		if _, err := p.Generate(context.Background(), Request{}); err == nil {
			t.Fatal("expected provider error")
		}
	}

	_, err := p.Generate(context.Background(), Request{})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if !IsTransport(err) {
		t.Fatal("open circuit should read as a transport failure")
	}
	if mock.CallCount() != 2 {
		t.Fatalf("open circuit should not reach the provider, got %d calls", mock.CallCount())
	}
}

func TestCircuitBreaker_InvalidResponsesDoNotTrip(t *testing.T) {
	bad := MockResponse{Err: &ErrInvalidResponse{Err: errors.New("bad json")}}
	mock := NewMockProvider(bad, bad, bad, TextResponse("fine"))
	p := WithCircuitBreaker(mock, CircuitBreakerConfig{FailureThreshold: 2, OpenTimeout: time.Minute})

	for range 3 {
		_, err := p.Generate(context.Background(), Request{})
		var inv *ErrInvalidResponse
		if !errors.As(err, &inv) {
			t.Fatalf("expected the provider's ErrInvalidResponse, got %v", err)
		}
	}

	resp, err := p.Generate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("circuit should still be closed: %v", err)
	}
	if resp.Text() != "fine" {
		t.Fatalf("Text() = %q", resp.Text())
	}
}
