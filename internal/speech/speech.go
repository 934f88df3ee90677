// Package speech defines the speech collaborators the orchestrators talk
// to: a capturer that turns the learner's voice into a transcript, and a
// speaker that reads text aloud.
package speech

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// ErrCaptureUnavailable is returned when there is no capture device or
// permission was denied.
var ErrCaptureUnavailable = errors.New("speech capture unavailable")

// Permission is the microphone permission state.
type Permission string

const (
	PermissionPrompt  Permission = "prompt"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// EventKind identifies a capture event.
type EventKind int

const (
	EventPartial    EventKind = iota // Interim transcript
	EventFinal                       // Final transcript of an utterance
	EventEnd                         // Capture stopped
	EventPermission                  // Permission state changed
	EventError                       // Capture failed
)

// Event is emitted by a Capturer.
type Event struct {
	Kind       EventKind
	Text       string
	Permission Permission

	// Reason is a short code such as "not-allowed" or "no-speech".
	Reason string
}

// Capturer is a speech-to-text source.
type Capturer interface {
	Start(ctx context.Context) error
	Stop() error
	Events() <-chan Event
}

// Speaker reads text aloud. Speak returns immediately and cancels any
// utterance still playing.
type Speaker interface {
	Speak(text string)
}

// NopSpeaker discards everything.
type NopSpeaker struct{}

func (NopSpeaker) Speak(string) {}

// Capture folds capture events into the two facts the orchestrators use:
// whether capture is running and the transcript so far.
type Capture struct {
	mu         sync.Mutex
	capturing  bool
	final      []string
	partial    string
	permission Permission
	err        error
}

// Apply updates the capture state with one event.
func (c *Capture) Apply(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch e.Kind {
	case EventPartial:
		c.capturing = true
		c.partial = e.Text
	case EventFinal:
		c.capturing = true
		c.partial = ""
		if t := strings.TrimSpace(e.Text); t != "" {
			c.final = append(c.final, t)
		}
	case EventEnd:
		c.capturing = false
		c.partial = ""
	case EventPermission:
		c.permission = e.Permission
		if e.Permission == PermissionDenied {
			c.capturing = false
			c.err = ErrCaptureUnavailable
		}
	case EventError:
		c.capturing = false
		c.err = &CaptureError{Reason: e.Reason}
	}
}

// Capturing reports whether capture is running.
func (c *Capture) Capturing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capturing
}

// Transcript returns the final transcript, with any pending partial
// text appended while capture is still running.
func (c *Capture) Transcript() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	parts := append([]string(nil), c.final...)
	if c.capturing && c.partial != "" {
		parts = append(parts, c.partial)
	}
	return strings.Join(parts, " ")
}

// Permission returns the last reported permission state.
func (c *Capture) Permission() Permission {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.permission
}

// Err returns the last capture failure.
func (c *Capture) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Reset clears the transcript and error for a new utterance.
func (c *Capture) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.final, c.partial, c.err = nil, "", nil
	c.capturing = false
}

// CaptureError carries the capturer's reason code. It matches
// ErrCaptureUnavailable for permission failures.
type CaptureError struct {
	Reason string
}

func (e *CaptureError) Error() string {
	return "speech capture failed: " + e.Reason
}

func (e *CaptureError) Is(target error) bool {
	return target == ErrCaptureUnavailable &&
		(e.Reason == "not-allowed" || e.Reason == "service-not-allowed" || e.Reason == "audio-capture")
}
