// Package progress is the screen showing per-surface accuracy and
// streaks, the exam history and tutor usage.
package progress

import (
	"context"
	"fmt"
	"slices"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/lingua/internal/progress"
	"github.com/abhisek/lingua/internal/screen"
	"github.com/abhisek/lingua/internal/store"
	"github.com/abhisek/lingua/internal/ui/components"
	"github.com/abhisek/lingua/internal/ui/layout"
	"github.com/abhisek/lingua/internal/ui/theme"
	"github.com/abhisek/lingua/internal/workspace"
)

type usageLoadedMsg struct {
	Usage []store.PurposeUsage
	Err   error
}

// ProgressScreen displays the learner's progress.
type ProgressScreen struct {
	ws       *workspace.Workspace
	events   store.EventRepo
	tracker  progress.Tracker
	usage    []store.PurposeUsage
	selected int
	errMsg   string
}

var _ screen.Screen = (*ProgressScreen)(nil)
var _ screen.KeyHintProvider = (*ProgressScreen)(nil)

// New creates a ProgressScreen. events may be nil, in which case no
// usage is shown.
func New(ws *workspace.Workspace, events store.EventRepo) *ProgressScreen {
	return &ProgressScreen{ws: ws, events: events}
}

func (s *ProgressScreen) Init() tea.Cmd {
	s.tracker = s.ws.Progress()
	if s.events == nil {
		return nil
	}
	events := s.events
	return func() tea.Msg {
		usage, err := events.LLMUsageByPurpose(context.Background())
		return usageLoadedMsg{Usage: usage, Err: err}
	}
}

func (s *ProgressScreen) Title() string {
	return "Progress"
}

func (s *ProgressScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Exams"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *ProgressScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case usageLoadedMsg:
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
		} else {
			s.usage = msg.Usage
		}
		return s, nil

	case tea.KeyPressMsg:
		switch msg.String() {
		case "up", "k":
			if s.selected > 0 {
				s.selected--
			}
		case "down", "j":
			if s.selected < len(s.tracker.Exams)-1 {
				s.selected++
			}
		}
	}
	return s, nil
}

func (s *ProgressScreen) View(width, height int) string {
	total := s.tracker.Totals()
	if total.Attempts == 0 && len(s.tracker.Exams) == 0 {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).Italic(true).
			Render("\n\n  Nothing here yet. Start practicing!")
	}

	var b strings.Builder
	b.WriteString("\n")
	statsLine := fmt.Sprintf("Answered: %d        Correct: %d        Accuracy: %.0f%%        Best streak: %d",
		total.Attempts, total.Correct, total.Accuracy*100, total.BestStreak)
	b.WriteString(lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.Text).
		Render(statsLine))
	b.WriteString("\n")

	barWidth := min(width-8, 64)
	if names := s.tracker.SurfaceNames(); len(names) > 0 {
		b.WriteString(section("Surfaces", width))
		for _, name := range names {
			st := s.tracker.Get(name)
			label := fmt.Sprintf("%-20s", workspace.Surface(name).Title())
			b.WriteString(layout.Centered(components.Bar(label, st.Accuracy, barWidth), width))
			b.WriteString("\n")
			detail := fmt.Sprintf("%d answered · streak %d · best %d", st.Attempts, st.Streak, st.BestStreak)
			if st.Streak > 0 {
				detail += fmt.Sprintf(" · next milestone %d", progress.NextStreakThreshold(st.Streak))
			}
			b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center,
				lipgloss.NewStyle().Foreground(theme.TextDim).Render(detail)))
			b.WriteString("\n")
		}
	}

	if len(s.tracker.Exams) > 0 {
		b.WriteString(section(fmt.Sprintf("Exams (average %.0f)", s.tracker.AverageExamScore()), width))
		exams := slices.Clone(s.tracker.Exams)
		slices.Reverse(exams)
		for i, e := range exams {
			prefix := "  "
			style := lipgloss.NewStyle().Foreground(theme.Text)
			if i == s.selected {
				prefix = "> "
				style = style.Foreground(theme.Primary).Bold(true)
			}
			line := fmt.Sprintf("%s%s  %-10s  %2d questions  %3d/100",
				prefix, e.TakenAt.Local().Format("Jan 02, 2006"), e.Type, e.Questions, e.Score)
			b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, style.Render(line)))
			b.WriteString("\n")
		}
	}

	if len(s.usage) > 0 {
		b.WriteString(section("Tutor usage", width))
		for _, u := range s.usage {
			line := fmt.Sprintf("%-16s %4d calls  %7d in  %7d out  %5dms avg",
				u.Purpose, u.Calls, u.InputTokens, u.OutputTokens, u.AvgLatencyMs)
			b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center,
				lipgloss.NewStyle().Foreground(theme.TextDim).Render(line)))
			b.WriteString("\n")
		}
	}
	if s.errMsg != "" {
		b.WriteString("\n")
		b.WriteString(layout.Centered(theme.ErrorLine.Render(s.errMsg), width))
		b.WriteString("\n")
	}
	return b.String()
}

func section(title string, width int) string {
	divider := lipgloss.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", min(width-8, 60)))
	return "\n" + lipgloss.PlaceHorizontal(width, lipgloss.Center,
		lipgloss.NewStyle().Foreground(theme.TextDim).Render(title)) + "\n" +
		lipgloss.PlaceHorizontal(width, lipgloss.Center, divider) + "\n"
}
