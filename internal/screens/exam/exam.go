// Package exam is the screen for Exam Mode: pick a type and length,
// answer every question, then read the graded results.
package exam

import (
	"fmt"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	ex "github.com/abhisek/lingua/internal/exam"
	"github.com/abhisek/lingua/internal/exercise"
	"github.com/abhisek/lingua/internal/i18n"
	"github.com/abhisek/lingua/internal/screen"
	"github.com/abhisek/lingua/internal/ui/components"
	"github.com/abhisek/lingua/internal/ui/layout"
	"github.com/abhisek/lingua/internal/ui/theme"
	"github.com/abhisek/lingua/internal/workspace"
)

type settledMsg struct {
	err error
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(150*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// ExamScreen implements screen.Screen for Exam Mode.
type ExamScreen struct {
	ws *workspace.Workspace
	o  *ex.Orchestrator

	types components.Menu
	count int // index into ex.QuestionCounts

	input  components.TextInput
	choice components.Choice
	shown  string // position the input belongs to
	scroll int
}

var _ screen.Screen = (*ExamScreen)(nil)
var _ screen.KeyHintProvider = (*ExamScreen)(nil)

// New creates the exam screen.
func New(ws *workspace.Workspace) *ExamScreen {
	items := make([]components.MenuItem, len(ex.Types))
	for i, t := range ex.Types {
		items[i] = components.MenuItem{Label: TypeLabel(t), Detail: typeDetail(t)}
	}
	return &ExamScreen{
		ws:    ws,
		o:     ws.Exam(),
		types: components.NewMenu(items),
		input: components.NewTextInput("Your answer", 1000),
	}
}

// TypeLabel returns the display name of an exam type.
func TypeLabel(t ex.Type) string {
	return cases.Title(language.English).String(string(t))
}

func typeDetail(t ex.Type) string {
	switch t {
	case ex.TypeMixed:
		return "a bit of everything"
	case ex.TypeGrammar:
		return "sentence structure and forms"
	case ex.TypeVocabulary:
		return "words and meanings"
	case ex.TypeReading:
		return "short passages"
	case ex.TypeListening:
		return "questions read aloud"
	}
	return ""
}

func (s *ExamScreen) Init() tea.Cmd {
	setup := s.o.Setup()
	for i, t := range ex.Types {
		if t == setup.Type {
			s.types.Selected = i
		}
	}
	for i, n := range ex.QuestionCounts {
		if n == setup.QuestionCount {
			s.count = i
		}
	}
	s.sync()
	ws := s.ws
	return tea.Batch(s.input.Init(), func() tea.Msg {
		return settledMsg{err: ws.Enter(workspace.SurfaceExam)}
	})
}

func (s *ExamScreen) Title() string { return workspace.SurfaceExam.Title() }

func (s *ExamScreen) KeyHints() []layout.KeyHint {
	switch s.o.Phase() {
	case ex.PhaseSetup:
		return []layout.KeyHint{
			{Key: "↑↓", Description: "Type"},
			{Key: "←→", Description: "Questions"},
			{Key: "Enter", Description: "Start"},
			{Key: "Esc", Description: "Back"},
		}
	case ex.PhaseInProgress:
		q, idx, total := s.o.Current()
		hints := []layout.KeyHint{{Key: "Enter", Description: "Next"}}
		if idx == total-1 {
			hints[0].Description = "Submit"
		}
		if idx > 0 {
			hints = append(hints, layout.KeyHint{Key: "Ctrl+B", Description: "Previous"})
		}
		if q.Kind == exercise.QuestionListening {
			hints = append(hints, layout.KeyHint{Key: "Ctrl+L", Description: "Replay"})
		}
		return append(hints, layout.KeyHint{Key: "Ctrl+N", Description: "Abandon"})
	}
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Scroll"},
		{Key: "N", Description: "New exam"},
		{Key: "Esc", Description: "Back"},
	}
}

// Leave saves the exam in progress.
func (s *ExamScreen) Leave() {
	s.commitInput()
	s.ws.Persist()
}

func (s *ExamScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case settledMsg:
		s.sync()
		return s, nil
	case tickMsg:
		if s.o.Busy() {
			return s, tick()
		}
		s.sync()
		return s, nil
	case tea.KeyPressMsg:
		if s.o.Busy() {
			return s, nil
		}
		switch s.o.Phase() {
		case ex.PhaseSetup:
			return s.updateSetup(msg)
		case ex.PhaseInProgress:
			return s.updateQuestion(msg)
		default:
			return s.updateResults(msg)
		}
	}
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s *ExamScreen) updateSetup(msg tea.KeyPressMsg) (screen.Screen, tea.Cmd) {
	switch msg.String() {
	case "left", "h":
		if s.count > 0 {
			s.count--
		}
		return s, nil
	case "right", "l":
		if s.count < len(ex.QuestionCounts)-1 {
			s.count++
		}
		return s, nil
	case "enter":
		setup := ex.Setup{Type: ex.Types[s.types.Selected], QuestionCount: ex.QuestionCounts[s.count]}
		ctx, sc, o := s.ws.Context(), s.ws.Session(), s.o
		return s, tea.Batch(func() tea.Msg {
			return settledMsg{err: o.Begin(ctx, sc, setup)}
		}, tick())
	}
	s.types, _ = s.types.Update(msg)
	return s, nil
}

func (s *ExamScreen) updateQuestion(msg tea.KeyPressMsg) (screen.Screen, tea.Cmd) {
	q, idx, total := s.o.Current()
	switch msg.String() {
	case "enter":
		s.commitInput()
		if !s.o.CanAdvance() {
			return s, nil
		}
		if idx < total-1 {
			if err := s.o.Next(); err == nil {
				s.ws.Persist()
			}
			s.sync()
			return s, nil
		}
		ctx, sc, o := s.ws.Context(), s.ws.Session(), s.o
		s.input.Disabled = true
		return s, tea.Batch(func() tea.Msg {
			_, err := o.Submit(ctx, sc)
			return settledMsg{err: err}
		}, tick())
	case "ctrl+b":
		s.commitInput()
		if err := s.o.Back(); err == nil {
			s.ws.Persist()
		}
		s.sync()
		return s, nil
	case "ctrl+l":
		s.o.Replay()
		return s, nil
	case "ctrl+n":
		s.o.Restart()
		s.sync()
		return s, nil
	}

	var cmd tea.Cmd
	if q.Kind == exercise.QuestionMCQ {
		s.choice, cmd = s.choice.Update(msg)
		_ = s.o.Choose(s.choice.Selected)
		return s, cmd
	}
	s.input, cmd = s.input.Update(msg)
	_ = s.o.SetInput(s.input.Value())
	return s, cmd
}

func (s *ExamScreen) updateResults(msg tea.KeyPressMsg) (screen.Screen, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if s.scroll > 0 {
			s.scroll--
		}
	case "down", "j":
		s.scroll++
	case "n", "N":
		s.o.Restart()
		s.scroll = 0
		s.sync()
	}
	return s, nil
}

// commitInput copies the visible answer into the orchestrator.
func (s *ExamScreen) commitInput() {
	if s.o.Phase() != ex.PhaseInProgress {
		return
	}
	q, _, _ := s.o.Current()
	if q.Kind == exercise.QuestionMCQ {
		if len(s.choice.Options) > 0 {
			_ = s.o.Choose(s.choice.Selected)
		}
		return
	}
	_ = s.o.SetInput(s.input.Value())
}

// sync rebuilds the answer widgets when the current question changes.
func (s *ExamScreen) sync() {
	if s.o.Phase() != ex.PhaseInProgress {
		s.shown = ""
		s.input.Disabled = true
		return
	}
	q, idx, _ := s.o.Current()
	s.input.Disabled = s.o.Busy() || q.Kind == exercise.QuestionMCQ
	key := fmt.Sprintf("%d:%d", idx, q.ID)
	if key == s.shown {
		return
	}
	s.shown = key
	s.input.SetValue(s.o.Input())
	if q.Kind == exercise.QuestionMCQ {
		s.choice = components.NewChoice(q.Options).Select(s.o.Input())
	}
}

func (s *ExamScreen) View(width, height int) string {
	var body string
	switch s.o.Phase() {
	case ex.PhaseSetup:
		body = s.viewSetup(width)
	case ex.PhaseInProgress:
		body = s.viewQuestion(width)
	default:
		body = s.viewResults(width, height)
	}
	if e := s.o.Err(); e != "" {
		body += "\n" + layout.Centered(theme.ErrorLine.Render(e), width) + "\n"
	}
	return body
}

func (s *ExamScreen) viewSetup(width int) string {
	ctx := s.ws.Context()
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(theme.Title.Width(width).Render("New exam"))
	b.WriteString("\n\n")
	b.WriteString(layout.Centered(s.types.View(), width))
	b.WriteString("\n")

	counts := make([]string, len(ex.QuestionCounts))
	for i, n := range ex.QuestionCounts {
		label := fmt.Sprintf(" %d ", n)
		if i == s.count {
			counts[i] = theme.Selected.Render("[" + label + "]")
		} else {
			counts[i] = theme.Unselected.Render(" " + label + " ")
		}
	}
	b.WriteString(layout.Centered(strings.Join(counts, " "), width))
	b.WriteString("\n")
	b.WriteString(theme.Subtitle.Width(width).Render(
		i18n.Tp(ctx, "QuestionsCount", ex.QuestionCounts[s.count])))
	b.WriteString("\n")

	if s.o.Busy() {
		b.WriteString("\n")
		b.WriteString(theme.Subtitle.Width(width).Render(i18n.T(ctx, "Generating")))
		b.WriteString("\n")
	}
	return b.String()
}

func (s *ExamScreen) viewQuestion(width int) string {
	ctx := s.ws.Context()
	q, idx, total := s.o.Current()
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(theme.Subtitle.Width(width).Render(
		i18n.Td(ctx, "QuestionProgress", map[string]any{"Current": idx + 1, "Total": total})))
	b.WriteString("\n")
	b.WriteString(layout.Centered(components.Bar("", float64(idx+1)/float64(total), min(width-8, 40)), width))
	b.WriteString("\n\n")

	if q.Kind == exercise.QuestionListening {
		b.WriteString(theme.Subtitle.Width(width).Render("🔊 Listen, then answer. Ctrl+L to replay."))
		b.WriteString("\n\n")
	} else {
		b.WriteString(layout.Wrap(q.Text, width, 76, theme.Body.Bold(true)))
		b.WriteString("\n\n")
	}

	if q.Kind == exercise.QuestionMCQ {
		b.WriteString(layout.Centered(s.choice.View(), width))
	} else {
		b.WriteString(layout.Centered("› "+s.input.View(), width))
	}
	b.WriteString("\n")

	if s.o.Busy() {
		b.WriteString("\n")
		b.WriteString(theme.Subtitle.Width(width).Render(i18n.T(ctx, "Grading")))
		b.WriteString("\n")
	}
	return b.String()
}
