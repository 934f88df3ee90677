package exam

import (
	"fmt"
	"image/color"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/lingua/internal/exercise"
	"github.com/abhisek/lingua/internal/i18n"
	"github.com/abhisek/lingua/internal/ui/layout"
	"github.com/abhisek/lingua/internal/ui/theme"
)

func (s *ExamScreen) viewResults(width, height int) string {
	ctx := s.ws.Context()
	v := s.o.Verdict()
	if v == nil {
		if s.o.Busy() {
			return "\n" + theme.Subtitle.Width(width).Render(i18n.T(ctx, "Grading")) + "\n"
		}
		return ""
	}
	setup := s.o.Setup()

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.Primary).
		Bold(true).
		Render("Exam complete!"))
	b.WriteString("\n\n")

	b.WriteString(lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(scoreColor(v.OverallScore)).
		Bold(true).
		Render(fmt.Sprintf("%d / 100", v.OverallScore)))
	b.WriteString("\n")

	correct := 0
	for _, qf := range v.PerQuestion {
		if qf.Correct {
			correct++
		}
	}
	statsLine := fmt.Sprintf("%s        %s        Correct: %d",
		TypeLabel(setup.Type), i18n.Tp(ctx, "QuestionsCount", len(v.PerQuestion)), correct)
	b.WriteString(lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.TextDim).
		Render(statsLine))
	b.WriteString("\n\n")

	if v.Summary != "" {
		b.WriteString(layout.Wrap(v.Summary, width, 70, theme.Body))
		b.WriteString("\n\n")
	}

	divider := lipgloss.NewStyle().Foreground(theme.Border).Render(
		strings.Repeat("─", min(width-8, 60)))
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center,
		lipgloss.NewStyle().Foreground(theme.TextDim).Render("Questions")))
	b.WriteString("\n")
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, divider))
	b.WriteString("\n")

	var lines []string
	for _, qf := range v.PerQuestion {
		lines = append(lines, questionLines(qf, width)...)
	}
	// Keep the header visible and scroll the question list.
	avail := max(height-lipgloss.Height(b.String())-1, 3)
	s.scroll = min(s.scroll, max(len(lines)-avail, 0))
	end := min(s.scroll+avail, len(lines))
	b.WriteString(strings.Join(lines[s.scroll:end], "\n"))
	b.WriteString("\n")
	return b.String()
}

func questionLines(qf exercise.QuestionFeedback, width int) []string {
	mark := theme.Correct.Render("✓")
	if !qf.Correct {
		mark = theme.Incorrect.Render("✗")
	}
	inner := min(width-8, 70)
	pad := strings.Repeat(" ", max((width-inner)/2, 0))

	var out []string
	head := fmt.Sprintf("%s %d. %s", mark, qf.QuestionID, qf.QuestionText)
	for _, l := range strings.Split(lipgloss.NewStyle().Width(inner).Foreground(theme.Text).Render(head), "\n") {
		out = append(out, pad+l)
	}
	if qf.UserAnswer != "" {
		ans := lipgloss.NewStyle().Width(inner).Foreground(theme.TextDim).Render("   › " + qf.UserAnswer)
		for _, l := range strings.Split(ans, "\n") {
			out = append(out, pad+l)
		}
	}
	fb := lipgloss.NewStyle().Width(inner).Foreground(theme.Secondary).Render("   " + qf.Feedback)
	for _, l := range strings.Split(fb, "\n") {
		out = append(out, pad+l)
	}
	return append(out, "")
}

// scoreColor returns the theme color for an overall score.
func scoreColor(score int) color.Color {
	switch {
	case score >= 80:
		return theme.Success
	case score >= 50:
		return theme.Accent
	default:
		return theme.Error
	}
}
