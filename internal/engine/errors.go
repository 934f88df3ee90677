package engine

import (
	"context"
	"errors"

	"github.com/abhisek/lingua/internal/content"
	"github.com/abhisek/lingua/internal/i18n"
	"github.com/abhisek/lingua/internal/validate"
)

var (
	// ErrBusy rejects an operation while a request is in flight. Nothing
	// is queued.
	ErrBusy = errors.New("surface is busy")

	// ErrNoTask is returned when answering with no task loaded.
	ErrNoTask = errors.New("no task loaded")

	// ErrAnswered is returned when answering a task that already has a
	// verdict. Input stays locked until the next task.
	ErrAnswered = errors.New("task already answered")

	// ErrDiscarded is returned when a result landed after the surface
	// was reset and was dropped.
	ErrDiscarded = errors.New("result discarded after reset")
)

// Message maps an error to the single localized line shown to the
// learner. The context carries the localizer.
func Message(ctx context.Context, err error) string {
	switch {
	case err == nil, errors.Is(err, ErrDiscarded):
		return ""
	case errors.Is(err, content.ErrDecode):
		return i18n.T(ctx, "ErrGenerationDecode")
	case errors.Is(err, content.ErrTransport):
		return i18n.T(ctx, "ErrGenerationTransport")
	case errors.Is(err, validate.ErrInputRejected):
		return i18n.T(ctx, "ErrInputRejected")
	case errors.Is(err, ErrBusy):
		return i18n.T(ctx, "ErrBusy")
	default:
		return err.Error()
	}
}
