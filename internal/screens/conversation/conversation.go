// Package conversation is the screen for Chat Partner and Speaking
// Practice: a growing transcript, an input line and, in speaking
// practice, feedback under each learner turn.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	conv "github.com/abhisek/lingua/internal/conversation"
	"github.com/abhisek/lingua/internal/engine"
	"github.com/abhisek/lingua/internal/exercise"
	"github.com/abhisek/lingua/internal/i18n"
	"github.com/abhisek/lingua/internal/screen"
	"github.com/abhisek/lingua/internal/speech"
	"github.com/abhisek/lingua/internal/ui/components"
	"github.com/abhisek/lingua/internal/ui/layout"
	"github.com/abhisek/lingua/internal/ui/theme"
	"github.com/abhisek/lingua/internal/workspace"
)

// Options are the optional speech collaborators.
type Options struct {
	// Capturer fills the input from the microphone. Nil disables voice
	// input.
	Capturer speech.Capturer

	// Speaker reads partner lines aloud in speaking practice.
	Speaker speech.Speaker
}

type settledMsg struct {
	err error
}

type tickMsg time.Time

// captureMsg carries one capture event; closed is set when the event
// channel is closed.
type captureMsg struct {
	ev     speech.Event
	closed bool
}

func tick() tea.Cmd {
	return tea.Tick(150*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// ConversationScreen implements screen.Screen for a conversation surface.
type ConversationScreen struct {
	ws      *workspace.Workspace
	o       *conv.Orchestrator
	surface workspace.Surface
	opts    Options

	input     components.TextInput
	capture   speech.Capture
	listening bool
	spoken    int // transcript length already read aloud
	errMsg    string
}

var _ screen.Screen = (*ConversationScreen)(nil)
var _ screen.KeyHintProvider = (*ConversationScreen)(nil)

// New creates a screen for the chat or speaking surface of ws.
func New(ws *workspace.Workspace, surface workspace.Surface, opts Options) *ConversationScreen {
	o := ws.Chat()
	placeholder := "Say something…"
	if surface == workspace.SurfaceSpeaking {
		o = ws.Speaking()
		placeholder = "Reply to your partner…"
	}
	if opts.Speaker == nil {
		opts.Speaker = speech.NopSpeaker{}
	}
	return &ConversationScreen{
		ws:      ws,
		o:       o,
		surface: surface,
		opts:    opts,
		input:   components.NewTextInput(placeholder, 500),
	}
}

func (s *ConversationScreen) Init() tea.Cmd {
	s.spoken = len(s.o.Transcript())
	s.sync()
	ws, surface, o := s.ws, s.surface, s.o
	cmds := []tea.Cmd{s.input.Init(), func() tea.Msg {
		return settledMsg{err: ws.Enter(surface)}
	}, tick()}
	// A learner turn restored without its reply is answered now.
	if o.Pending() && !o.Busy() {
		ctx, sc := ws.Context(), ws.Session()
		cmds = append(cmds, func() tea.Msg {
			return settledMsg{err: o.Resolve(ctx, sc)}
		})
	}
	return tea.Batch(cmds...)
}

func (s *ConversationScreen) Title() string { return s.surface.Title() }

func (s *ConversationScreen) KeyHints() []layout.KeyHint {
	hints := []layout.KeyHint{{Key: "Enter", Description: "Send"}}
	if s.opts.Capturer != nil {
		label := "Speak"
		if s.capture.Capturing() {
			label = "Stop"
		}
		hints = append(hints, layout.KeyHint{Key: "Ctrl+T", Description: label})
	}
	return append(hints,
		layout.KeyHint{Key: "Ctrl+N", Description: "New conversation"},
		layout.KeyHint{Key: "Esc", Description: "Back"})
}

// Leave stops capture and saves the transcript.
func (s *ConversationScreen) Leave() {
	if s.capture.Capturing() && s.opts.Capturer != nil {
		_ = s.opts.Capturer.Stop()
	}
	s.ws.Persist()
}

func (s *ConversationScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case settledMsg:
		if msg.err != nil && s.o.Err() == "" {
			s.errMsg = engine.Message(s.ws.Context(), msg.err)
		}
		s.sync()
		return s, nil

	case tickMsg:
		s.sync()
		if s.o.Busy() {
			return s, tick()
		}
		return s, nil

	case captureMsg:
		return s.applyCapture(msg)

	case tea.KeyPressMsg:
		return s.handleKey(msg)
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s *ConversationScreen) handleKey(msg tea.KeyPressMsg) (screen.Screen, tea.Cmd) {
	ctx, sc, o := s.ws.Context(), s.ws.Session(), s.o

	switch msg.String() {
	case "ctrl+n":
		ws, surface := s.ws, s.surface
		s.errMsg = ""
		s.spoken = 0
		s.input.SetValue("")
		return s, tea.Batch(func() tea.Msg {
			if err := ws.Reset(surface); err != nil {
				return settledMsg{err: err}
			}
			return settledMsg{err: o.Start(ctx, sc)}
		}, tick())

	case "ctrl+t":
		return s.toggleCapture()
	}

	if o.Busy() {
		return s, nil
	}

	if msg.String() == "enter" {
		text := s.input.Value()
		if !o.Started() {
			return s, tea.Batch(func() tea.Msg {
				return settledMsg{err: o.Start(ctx, sc)}
			}, tick())
		}
		if _, err := o.Send(text); err != nil {
			s.errMsg = engine.Message(ctx, err)
			return s, nil
		}
		s.errMsg = ""
		s.input.SetValue("")
		s.capture.Reset()
		s.sync()
		return s, tea.Batch(func() tea.Msg {
			return settledMsg{err: o.Resolve(ctx, sc)}
		}, tick())
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s *ConversationScreen) toggleCapture() (screen.Screen, tea.Cmd) {
	c := s.opts.Capturer
	if c == nil {
		s.errMsg = i18n.T(s.ws.Context(), "ErrCaptureUnavailable")
		return s, nil
	}
	if s.capture.Capturing() {
		if err := c.Stop(); err != nil {
			s.errMsg = err.Error()
		}
		return s, nil
	}
	if err := c.Start(s.ws.Context()); err != nil {
		s.errMsg = i18n.T(s.ws.Context(), "ErrCaptureUnavailable")
		return s, nil
	}
	s.errMsg = ""
	s.capture.Reset()
	s.capture.Apply(speech.Event{Kind: speech.EventPartial})
	if s.listening {
		return s, nil
	}
	s.listening = true
	return s, waitForCapture(c)
}

func waitForCapture(c speech.Capturer) tea.Cmd {
	events := c.Events()
	return func() tea.Msg {
		ev, ok := <-events
		return captureMsg{ev: ev, closed: !ok}
	}
}

func (s *ConversationScreen) applyCapture(msg captureMsg) (screen.Screen, tea.Cmd) {
	if msg.closed {
		s.listening = false
		s.capture.Apply(speech.Event{Kind: speech.EventEnd})
		return s, nil
	}
	s.capture.Apply(msg.ev)
	if t := s.capture.Transcript(); t != "" && !s.o.Busy() {
		s.input.SetValue(t)
	}
	if err := s.capture.Err(); err != nil {
		s.errMsg = err.Error()
		if errors.Is(err, speech.ErrCaptureUnavailable) {
			s.errMsg = i18n.T(s.ws.Context(), "ErrCaptureUnavailable")
		}
	}
	if !s.capture.Capturing() {
		s.listening = false
		return s, nil
	}
	return s, waitForCapture(s.opts.Capturer)
}

// sync refreshes the input state and reads new partner lines aloud.
func (s *ConversationScreen) sync() {
	s.input.Disabled = s.o.Busy() || !s.o.Started()
	turns := s.o.Transcript()
	if s.surface != workspace.SurfaceSpeaking {
		s.spoken = len(turns)
		return
	}
	for ; s.spoken < len(turns); s.spoken++ {
		if t := turns[s.spoken]; t.Role == exercise.RoleAssistant {
			s.opts.Speaker.Speak(t.Text)
		}
	}
}

func (s *ConversationScreen) View(width, height int) string {
	ctx := s.ws.Context()
	inner := min(width-8, 76)

	var head strings.Builder
	if sc := s.o.Scenario(); sc != nil {
		head.WriteString(theme.Title.Width(width).Render(sc.Title))
		head.WriteString("\n")
		head.WriteString(layout.Wrap(sc.Setting+" "+sc.Goal, width, 76, theme.Hint))
		head.WriteString("\n")
	}

	var foot strings.Builder
	if s.o.Pending() {
		foot.WriteString(theme.Hint.Render("  " + i18n.T(ctx, "Typing")))
		foot.WriteString("\n")
	}
	foot.WriteString("\n")
	foot.WriteString(layout.Centered("› "+s.input.View(), width))
	foot.WriteString("\n")
	if s.capture.Capturing() {
		foot.WriteString(layout.Centered(lipgloss.NewStyle().Foreground(theme.Error).Render("● listening"), width))
		foot.WriteString("\n")
	}
	errLine := s.o.Err()
	if s.errMsg != "" {
		errLine = s.errMsg
	}
	if errLine != "" {
		foot.WriteString(layout.Centered(theme.ErrorLine.Render(errLine), width))
		foot.WriteString("\n")
	}

	var lines []string
	for _, t := range s.o.Transcript() {
		lines = append(lines, renderTurn(ctx, t, inner)...)
	}
	// Show the tail of the transcript that fits.
	avail := max(height-lipgloss.Height(head.String())-lipgloss.Height(foot.String())-1, 3)
	if len(lines) > avail {
		lines = lines[len(lines)-avail:]
	}
	pad := strings.Repeat(" ", max((width-inner)/2, 0))
	for i := range lines {
		lines[i] = pad + lines[i]
	}

	return head.String() + "\n" + strings.Join(lines, "\n") + "\n" + foot.String()
}

func renderTurn(ctx context.Context, t exercise.Turn, width int) []string {
	var who lipgloss.Style
	name := "Partner"
	switch t.Role {
	case exercise.RoleUser:
		who = lipgloss.NewStyle().Foreground(theme.Secondary).Bold(true)
		name = "You"
	default:
		who = lipgloss.NewStyle().Foreground(theme.Primary).Bold(true)
	}
	text := lipgloss.NewStyle().Width(width).Foreground(theme.Text).Render(t.Text)
	out := append([]string{who.Render(name)}, strings.Split(text, "\n")...)
	if t.Feedback != nil {
		out = append(out, feedbackLines(*t.Feedback, width)...)
	}
	return append(out, "")
}

func feedbackLines(f exercise.SpeakingFeedback, width int) []string {
	dim := lipgloss.NewStyle().Width(width-2).Foreground(theme.TextDim)
	var out []string
	out = append(out, "  "+lipgloss.NewStyle().Foreground(theme.Accent).Render(fmt.Sprintf("Accuracy %d/100", f.AccuracyScore)))
	for _, tip := range f.PronunciationTips {
		for _, l := range strings.Split(dim.Render(fmt.Sprintf("%s: %s", tip.Word, tip.Tip)), "\n") {
			out = append(out, "  "+l)
		}
	}
	for _, c := range []string{f.FluencyComment, f.GrammarComment} {
		if c == "" {
			continue
		}
		for _, l := range strings.Split(dim.Render(c), "\n") {
			out = append(out, "  "+l)
		}
	}
	return out
}
