package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
)

// ErrCircuitOpen is returned while the breaker rejects calls after
// repeated provider failures.
var ErrCircuitOpen = errors.New("LLM provider circuit open")

// BreakerProvider is a decorator that stops calling a provider that keeps
// failing, so a dead network fails fast instead of stalling every exercise.
type BreakerProvider struct {
	inner Provider
	cb    circuitbreaker.CircuitBreaker[*Response]
}

// WithCircuitBreaker wraps a Provider with a circuit breaker. A
// FailureThreshold of zero or less returns p unchanged.
func WithCircuitBreaker(p Provider, cfg CircuitBreakerConfig) Provider {
	if cfg.FailureThreshold <= 0 {
		return p
	}
	threshold := cfg.FailureThreshold
	openFor := cfg.OpenTimeout
	if openFor <= 0 {
		openFor = 30 * time.Second
	}

	cb := circuitbreaker.New[*Response](circuitbreaker.Config{
		MaxRequests: 1,
		Timeout:     openFor,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return int(counts.ConsecutiveFailures) >= threshold
		},
		OnStateChange: func(from, to circuitbreaker.State) {
			slog.Warn("llm circuit breaker state change",
				"model", p.ModelID(),
				"from", from.String(),
				"to", to.String())
		},
	})
	return &BreakerProvider{inner: p, cb: cb}
}

func (b *BreakerProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	var (
		called    bool
		passedErr error
	)
	resp, err := b.cb.Execute(ctx, func(ctx context.Context) (*Response, error) {
		called = true
		resp, err := b.inner.Generate(ctx, req)
		if err != nil && !countsAsFailure(err) {
			// Reported to the caller but not to the breaker.
			passedErr = err
			return nil, nil
		}
		return resp, err
	})
	if passedErr != nil {
		return nil, passedErr
	}
	if err != nil && !called {
		return nil, &ErrProviderUnavailable{Err: ErrCircuitOpen}
	}
	return resp, err
}

func (b *BreakerProvider) ModelID() string {
	return b.inner.ModelID()
}

// countsAsFailure reports whether err says something about provider
// health. Malformed output and caller cancellation do not.
func countsAsFailure(err error) bool {
	var inv *ErrInvalidResponse
	var maxTok *ErrMaxTokensExceeded
	switch {
	case errors.As(err, &inv), errors.As(err, &maxTok):
		return false
	case errors.Is(err, context.Canceled):
		return false
	}
	return true
}
