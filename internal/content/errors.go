package content

import (
	"errors"
	"fmt"

	"github.com/abhisek/lingua/internal/llm"
)

// Kind classifies a generation failure.
type Kind int

const (
	// KindTransport covers network, provider and model failures.
	KindTransport Kind = iota + 1

	// KindDecode covers replies that did not match the expected shape.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Sentinels matched by GenerationError.Is.
var (
	ErrTransport = errors.New("content generation failed")
	ErrDecode    = errors.New("malformed model response")
)

// ErrEmptyPrompt is returned when a prompt has neither text nor history.
var ErrEmptyPrompt = errors.New("empty prompt")

// GenerationError is the only error type a Generator returns.
type GenerationError struct {
	Kind Kind
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation %s error: %v", e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrTransport) and errors.Is(err, ErrDecode) match
// on kind.
func (e *GenerationError) Is(target error) bool {
	switch target {
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrDecode:
		return e.Kind == KindDecode
	}
	return false
}

// DecodeError wraps err as a decode failure.
func DecodeError(err error) error {
	return &GenerationError{Kind: KindDecode, Err: err}
}

// classify converts a provider error into a GenerationError. Replies
// that failed schema validation or were truncated are decode failures;
// everything else is transport.
func classify(err error) *GenerationError {
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ge
	}
	var inv *llm.ErrInvalidResponse
	var maxTok *llm.ErrMaxTokensExceeded
	if errors.As(err, &inv) || errors.As(err, &maxTok) {
		return &GenerationError{Kind: KindDecode, Err: err}
	}
	return &GenerationError{Kind: KindTransport, Err: err}
}
