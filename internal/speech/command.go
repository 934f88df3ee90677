package speech

import (
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
)

// CommandSpeaker speaks through an external text-to-speech program such
// as "say" or "espeak-ng -v es". Text is passed as the last argument.
type CommandSpeaker struct {
	argv []string

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewCommandSpeaker parses a command line like "espeak-ng -v es". It
// returns NopSpeaker when the command is empty or not on PATH.
func NewCommandSpeaker(command string) Speaker {
	argv := strings.Fields(command)
	if len(argv) == 0 {
		return NopSpeaker{}
	}
	if _, err := exec.LookPath(argv[0]); err != nil {
		slog.Warn("tts command not found, speech output disabled", "command", argv[0])
		return NopSpeaker{}
	}
	return &CommandSpeaker{argv: argv}
}

// Speak stops any running utterance and starts a new one.
func (s *CommandSpeaker) Speak(text string) {
	text = strings.TrimSpace(text)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if text == "" {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	args := append(append([]string(nil), s.argv[1:]...), text)
	cmd := exec.CommandContext(ctx, s.argv[0], args...)
	if err := cmd.Start(); err != nil {
		slog.Warn("tts start failed", "error", err)
		cancel()
		return
	}
	go func() {
		_ = cmd.Wait()
		cancel()
	}()
}

// Stop cancels the current utterance.
func (s *CommandSpeaker) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
