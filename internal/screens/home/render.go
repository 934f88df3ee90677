package home

import (
	"fmt"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/lingua/internal/progress"
	"github.com/abhisek/lingua/internal/session"
	"github.com/abhisek/lingua/internal/ui/components"
	"github.com/abhisek/lingua/internal/ui/theme"
)

const titleFull = `██╗     ██╗███╗   ██╗ ██████╗ ██╗   ██╗ █████╗
██║     ██║████╗  ██║██╔════╝ ██║   ██║██╔══██╗
██║     ██║██╔██╗ ██║██║  ███╗██║   ██║███████║
██║     ██║██║╚██╗██║██║   ██║██║   ██║██╔══██║
███████╗██║██║ ╚████║╚██████╔╝╚██████╔╝██║  ██║
╚══════╝╚═╝╚═╝  ╚═══╝ ╚═════╝  ╚═════╝ ╚═╝  ╚═╝`

const titleCompact = "L · I · N · G · U · A"

// contentWidth returns the uniform inner width used for all sections.
func contentWidth(frameWidth int) int {
	// Leave room for the frame border (2) + inner padding (4)
	return min(max(frameWidth-6, 20), 64)
}

// renderTitle returns the styled title block or compact fallback.
func renderTitle(cw int, compact bool) string {
	style := lipgloss.NewStyle().
		Foreground(theme.Primary).
		Bold(true)

	art := titleFull
	if compact || cw < 50 {
		art = titleCompact
	}
	return lipgloss.NewStyle().
		Width(cw).
		Align(lipgloss.Center).
		Render(style.Render(art))
}

// renderStatsBar renders the language line and totals in a bordered box
// matching content width.
func renderStatsBar(total progress.Stats, exams int, s session.Settings, cw int, compact bool) string {
	langStyle := lipgloss.NewStyle().Foreground(theme.Secondary).Bold(true)
	streakStyle := lipgloss.NewStyle().Foreground(theme.Accent).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(theme.TextDim)

	var stats string
	if compact {
		stats = fmt.Sprintf("%s %s %s",
			langStyle.Render(fmt.Sprintf("%s %s", s.TargetLanguage, s.Level)),
			streakStyle.Render(fmt.Sprintf("★%d", total.BestStreak)),
			dimStyle.Render(fmt.Sprintf("✎%d", total.Attempts)),
		)
	} else {
		stats = fmt.Sprintf("%s  %s  %s",
			langStyle.Render(fmt.Sprintf("%s · %s", s.TargetName(), s.Level)),
			streakStyle.Render(fmt.Sprintf("★ BEST STREAK %d", total.BestStreak)),
			dimStyle.Render(fmt.Sprintf("%d ANSWERED · %d EXAMS", total.Attempts, exams)),
		)
	}

	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(theme.Secondary).
		Width(cw - 2). // account for border chars
		Align(lipgloss.Center).
		Padding(0, 1).
		Render(stats)
}

// renderMenu renders the menu left-aligned inside a centered block.
func renderMenu(m components.Menu, cw int) string {
	return lipgloss.NewStyle().
		Width(cw).
		Align(lipgloss.Center).
		Render(lipgloss.NewStyle().Align(lipgloss.Left).Render(m.View()))
}

// renderLLMBanner renders a warning banner when no LLM API key is configured.
func renderLLMBanner(cw int) string {
	return lipgloss.NewStyle().
		Foreground(theme.Accent).
		Width(cw).
		Align(lipgloss.Center).
		Render("⚠ Set an LLM API key to start practicing (see lingua --help)")
}

// renderFrame wraps content in a rounded frame, centering it vertically
// and horizontally within the given dimensions.
func renderFrame(content string, width, height int) string {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border).
		Width(width - 2).   // account for border chars
		Height(height - 2). // account for border chars
		Align(lipgloss.Center, lipgloss.Center).
		Render(content)
}
