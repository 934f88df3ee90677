package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/lingua/internal/ui/theme"
)

// Bar renders a horizontal bar filled to fraction (0-1) with a label
// on the left and the percentage on the right.
func Bar(label string, fraction float64, width int) string {
	out := ""
	if label != "" {
		out = lipgloss.NewStyle().Foreground(theme.Text).Render(label) + "  "
	}
	const percentWidth = 6 // "  100%"

	barWidth := max(width-lipgloss.Width(out)-percentWidth, 4)
	filled := min(max(int(float64(barWidth)*fraction), 0), barWidth)

	out += lipgloss.NewStyle().Background(theme.Secondary).Render(strings.Repeat(" ", filled))
	out += lipgloss.NewStyle().Background(theme.Border).Render(strings.Repeat(" ", barWidth-filled))
	out += lipgloss.NewStyle().Foreground(theme.TextDim).Render(fmt.Sprintf("  %d%%", int(fraction*100)))
	return out
}
