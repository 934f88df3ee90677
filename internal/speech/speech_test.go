package speech

import (
	"errors"
	"testing"
)

func TestCapture_Transcript(t *testing.T) {
	var c Capture
	c.Apply(Event{Kind: EventPermission, Permission: PermissionGranted})
	c.Apply(Event{Kind: EventPartial, Text: "me gus"})
	if !c.Capturing() {
		t.Fatal("expected capturing after partial")
	}
	if got := c.Transcript(); got != "me gus" {
		t.Fatalf("transcript = %q", got)
	}

	c.Apply(Event{Kind: EventFinal, Text: "me gusta el café"})
	c.Apply(Event{Kind: EventPartial, Text: "con"})
	if got := c.Transcript(); got != "me gusta el café con" {
		t.Fatalf("transcript = %q", got)
	}

	c.Apply(Event{Kind: EventEnd})
	if c.Capturing() {
		t.Fatal("expected capture stopped")
	}
	if got := c.Transcript(); got != "me gusta el café" {
		t.Fatalf("partial text should be dropped on end, got %q", got)
	}
	if c.Permission() != PermissionGranted {
		t.Fatalf("permission = %s", c.Permission())
	}
}

func TestCapture_PermissionDenied(t *testing.T) {
	var c Capture
	c.Apply(Event{Kind: EventPermission, Permission: PermissionDenied})
	if !errors.Is(c.Err(), ErrCaptureUnavailable) {
		t.Fatalf("expected ErrCaptureUnavailable, got %v", c.Err())
	}
}

func TestCapture_ErrorReasons(t *testing.T) {
	tests := []struct {
		reason      string
		unavailable bool
	}{
		{"not-allowed", true},
		{"audio-capture", true},
		{"no-speech", false},
		{"network", false},
	}
	for _, tt := range tests {
		var c Capture
		c.Apply(Event{Kind: EventError, Reason: tt.reason})
		if got := errors.Is(c.Err(), ErrCaptureUnavailable); got != tt.unavailable {
			t.Errorf("reason %q: unavailable = %v, want %v", tt.reason, got, tt.unavailable)
		}
		var ce *CaptureError
		if !errors.As(c.Err(), &ce) || ce.Reason != tt.reason {
			t.Errorf("reason %q not preserved: %v", tt.reason, c.Err())
		}
	}
}

func TestCapture_Reset(t *testing.T) {
	var c Capture
	c.Apply(Event{Kind: EventFinal, Text: "hola"})
	c.Apply(Event{Kind: EventError, Reason: "network"})
	c.Reset()
	if c.Transcript() != "" || c.Err() != nil || c.Capturing() {
		t.Fatal("reset should clear transcript and error")
	}
}

func TestNewCommandSpeaker_Fallbacks(t *testing.T) {
	if _, ok := NewCommandSpeaker("").(NopSpeaker); !ok {
		t.Error("empty command should give NopSpeaker")
	}
	if _, ok := NewCommandSpeaker("definitely-not-a-tts-binary-xyz").(NopSpeaker); !ok {
		t.Error("missing binary should give NopSpeaker")
	}
}
