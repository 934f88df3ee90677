// Package practice is the screen for the single-task surfaces: one
// task at a time, answered by typing or by picking an option.
package practice

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/lingua/internal/engine"
	"github.com/abhisek/lingua/internal/exercise"
	"github.com/abhisek/lingua/internal/i18n"
	"github.com/abhisek/lingua/internal/screen"
	"github.com/abhisek/lingua/internal/ui/components"
	"github.com/abhisek/lingua/internal/ui/layout"
	"github.com/abhisek/lingua/internal/ui/theme"
	"github.com/abhisek/lingua/internal/workspace"
)

// Presenter describes how one kind of task is shown.
type Presenter[T exercise.Task] struct {
	// Prompt is the main text of the task.
	Prompt func(T) string

	// Detail is an optional dimmed line under the prompt.
	Detail func(T) string

	// Options switches the screen to multiple choice when non-nil.
	Options func(T) []string

	Placeholder string
}

// settledMsg is sent when a start, submit or reset has finished.
type settledMsg struct {
	err error
}

// tickMsg refreshes the view while a request is in flight.
type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(150*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Screen drives one engine.Machine.
type Screen[T exercise.Task] struct {
	ws      *workspace.Workspace
	m       *engine.Machine[T]
	surface workspace.Surface
	p       Presenter[T]

	input  components.TextInput
	choice components.Choice
	shown  string // id of the task the input belongs to
}

// New creates a practice screen for a machine owned by ws.
func New[T exercise.Task](ws *workspace.Workspace, surface workspace.Surface, m *engine.Machine[T], p Presenter[T]) *Screen[T] {
	return &Screen[T]{
		ws:      ws,
		m:       m,
		surface: surface,
		p:       p,
		input:   components.NewTextInput(p.Placeholder, 500),
	}
}

func (s *Screen[T]) Init() tea.Cmd {
	s.sync()
	ws, surface := s.ws, s.surface
	enter := func() tea.Msg {
		return settledMsg{err: ws.Enter(surface)}
	}
	return tea.Batch(s.input.Init(), enter, tick())
}

func (s *Screen[T]) Title() string { return s.surface.Title() }

func (s *Screen[T]) KeyHints() []layout.KeyHint {
	switch s.m.State() {
	case engine.StateFeedback:
		return []layout.KeyHint{
			{Key: "Enter", Description: "Next task"},
			{Key: "Esc", Description: "Back"},
		}
	case engine.StateReady:
		hints := []layout.KeyHint{{Key: "Enter", Description: "Check"}}
		if s.p.Options != nil {
			hints = append(hints, layout.KeyHint{Key: "↑↓/A-D", Description: "Choose"})
		}
		return append(hints,
			layout.KeyHint{Key: "Ctrl+N", Description: "New task"},
			layout.KeyHint{Key: "Esc", Description: "Back"})
	}
	return []layout.KeyHint{{Key: "Esc", Description: "Back"}}
}

// Leave saves the draft.
func (s *Screen[T]) Leave() {
	s.ws.Persist()
}

func (s *Screen[T]) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case settledMsg:
		s.sync()
		return s, nil

	case tickMsg:
		if s.m.Busy() {
			return s, tick()
		}
		return s, nil

	case tea.KeyPressMsg:
		return s.handleKey(msg)
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s *Screen[T]) handleKey(msg tea.KeyPressMsg) (screen.Screen, tea.Cmd) {
	if s.m.Busy() {
		return s, nil
	}
	ctx, sc, m := s.ws.Context(), s.ws.Session(), s.m

	switch msg.String() {
	case "enter":
		switch m.State() {
		case engine.StateReady:
			answer := s.answer()
			s.input.Disabled = true
			return s, tea.Batch(func() tea.Msg {
				_, err := m.Submit(ctx, sc, answer)
				return settledMsg{err: err}
			}, tick())
		case engine.StateFeedback, engine.StateIdle:
			s.input.SetValue("")
			s.input.Disabled = true
			return s, tea.Batch(func() tea.Msg {
				return settledMsg{err: m.Regenerate(ctx, sc)}
			}, tick())
		}
		return s, nil

	case "ctrl+n":
		ws, surface := s.ws, s.surface
		s.input.SetValue("")
		s.input.Disabled = true
		return s, tea.Batch(func() tea.Msg {
			if err := ws.Reset(surface); err != nil {
				return settledMsg{err: err}
			}
			return settledMsg{err: m.Start(ctx, sc)}
		}, tick())
	}

	if m.State() != engine.StateReady {
		return s, nil
	}
	var cmd tea.Cmd
	if s.p.Options != nil {
		s.choice, cmd = s.choice.Update(msg)
		m.SetDraft(s.choice.Value())
		return s, cmd
	}
	s.input, cmd = s.input.Update(msg)
	m.SetDraft(s.input.Value())
	return s, cmd
}

func (s *Screen[T]) answer() string {
	if s.p.Options != nil {
		return s.choice.Value()
	}
	return s.input.Value()
}

// sync refreshes the input from the machine after a settled change.
func (s *Screen[T]) sync() {
	s.input.Disabled = s.m.Busy() || s.m.State() != engine.StateReady
	task, ok := s.m.Task()
	if !ok {
		s.shown = ""
		return
	}
	if task.TaskID() != s.shown {
		s.shown = task.TaskID()
		s.input.SetValue(s.m.Draft())
		if s.p.Options != nil {
			s.choice = components.NewChoice(s.p.Options(task)).Select(s.m.Draft())
		}
	}
	if s.m.State() == engine.StateReady && s.m.Draft() != "" && s.input.Value() == "" {
		s.input.SetValue(s.m.Draft())
	}
	if v := s.m.Verdict(); v != nil && s.p.Options != nil {
		chosen := ""
		if a := s.m.Answer(); a != nil {
			chosen = a.Value
		}
		correct := v.Expected
		if v.Correct {
			correct = chosen
		}
		s.choice = s.choice.Reveal(chosen, correct)
	}
}

func (s *Screen[T]) View(width, height int) string {
	ctx := s.ws.Context()
	var b strings.Builder
	b.WriteString("\n")

	task, ok := s.m.Task()
	switch {
	case s.m.State() == engine.StateGenerating:
		b.WriteString(theme.Subtitle.Width(width).Render(i18n.T(ctx, "Generating")))
		b.WriteString("\n\n")
	case ok:
		b.WriteString(layout.Wrap(s.p.Prompt(task), width, 76, theme.Body.Bold(true)))
		b.WriteString("\n")
		if s.p.Detail != nil {
			if d := s.p.Detail(task); d != "" {
				b.WriteString(layout.Wrap(d, width, 76, theme.Hint))
				b.WriteString("\n")
			}
		}
		b.WriteString("\n")
		if s.p.Options != nil {
			b.WriteString(layout.Centered(s.choice.View(), width))
		} else {
			b.WriteString(layout.Centered("› "+s.input.View(), width))
		}
		b.WriteString("\n\n")
	}

	if s.m.State() == engine.StateSubmitted {
		b.WriteString(theme.Subtitle.Width(width).Render(i18n.T(ctx, "Grading")))
		b.WriteString("\n")
	}
	if v := s.m.Verdict(); v != nil {
		b.WriteString(renderVerdict(ctx, *v, width))
	}
	if e := s.m.Err(); e != "" {
		b.WriteString("\n")
		b.WriteString(layout.Centered(theme.ErrorLine.Render(e), width))
	}
	return b.String()
}

func renderVerdict(ctx context.Context, v exercise.Verdict, width int) string {
	var b strings.Builder
	headline := theme.Correct.Render(i18n.T(ctx, "Correct"))
	if !v.Correct {
		if v.Expected != "" {
			headline = theme.Incorrect.Render(i18n.Td(ctx, "IncorrectAnswerWas", map[string]any{"Answer": v.Expected}))
		} else {
			headline = theme.Incorrect.Render(i18n.T(ctx, "Incorrect"))
		}
	}
	if v.Score > 0 {
		headline += lipgloss.NewStyle().Foreground(theme.Accent).Render(fmt.Sprintf("  %d/100", v.Score))
	}
	b.WriteString(layout.Centered(headline, width))
	b.WriteString("\n")
	if v.Message != "" {
		b.WriteString("\n")
		b.WriteString(layout.Wrap(v.Message, width, 70, theme.Body))
		b.WriteString("\n")
	}
	return b.String()
}
