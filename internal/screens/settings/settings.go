// Package settings is the screen for the learner's preferences.
package settings

import (
	"fmt"
	"slices"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/lingua/internal/exercise"
	"github.com/abhisek/lingua/internal/router"
	"github.com/abhisek/lingua/internal/screen"
	"github.com/abhisek/lingua/internal/session"
	"github.com/abhisek/lingua/internal/ui/layout"
	"github.com/abhisek/lingua/internal/ui/theme"
	"github.com/abhisek/lingua/internal/workspace"
)

// Languages offered for learning and as the native language.
var Languages = []string{"en", "es", "fr", "de", "it", "pt", "nl", "ja", "ko", "zh"}

type field struct {
	label  string
	values []string
	get    func(session.Settings) string
	set    func(*session.Settings, string)
	name   func(string) string
}

var fields = []field{
	{
		label:  "Learning",
		values: Languages,
		get:    func(s session.Settings) string { return s.TargetLanguage },
		set:    func(s *session.Settings, v string) { s.TargetLanguage = v },
		name:   func(v string) string { return session.Settings{TargetLanguage: v}.TargetName() },
	},
	{
		label:  "Native language",
		values: Languages,
		get:    func(s session.Settings) string { return s.NativeLanguage },
		set:    func(s *session.Settings, v string) { s.NativeLanguage = v },
		name:   func(v string) string { return session.Settings{NativeLanguage: v}.NativeName() },
	},
	{
		label:  "Level",
		values: levels(),
		get:    func(s session.Settings) string { return string(s.Level) },
		set:    func(s *session.Settings, v string) { s.Level = session.Level(v) },
	},
	{
		label:  "Tutor",
		values: exercise.Personas,
		get:    func(s session.Settings) string { return s.Persona },
		set:    func(s *session.Settings, v string) { s.Persona = v },
	},
	{
		label:  "Theme",
		values: theme.Names,
		get:    func(s session.Settings) string { return s.Theme },
		set:    func(s *session.Settings, v string) { s.Theme = v },
	},
}

func levels() []string {
	out := make([]string, len(session.Levels))
	for i, l := range session.Levels {
		out[i] = string(l)
	}
	return out
}

// SettingsScreen edits a copy of the settings and saves on Enter.
type SettingsScreen struct {
	ws       *workspace.Workspace
	draft    session.Settings
	selected int
	errMsg   string
}

var _ screen.Screen = (*SettingsScreen)(nil)
var _ screen.KeyHintProvider = (*SettingsScreen)(nil)

// New creates a settings screen for ws.
func New(ws *workspace.Workspace) *SettingsScreen {
	return &SettingsScreen{ws: ws}
}

func (s *SettingsScreen) Init() tea.Cmd {
	s.draft = s.ws.Session().Settings
	return nil
}

func (s *SettingsScreen) Title() string { return "Settings" }

func (s *SettingsScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Field"},
		{Key: "←→", Description: "Change"},
		{Key: "Enter", Description: "Save"},
		{Key: "Esc", Description: "Cancel"},
	}
}

func (s *SettingsScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	kmsg, ok := msg.(tea.KeyPressMsg)
	if !ok {
		return s, nil
	}
	switch kmsg.String() {
	case "up", "k":
		if s.selected > 0 {
			s.selected--
		}
	case "down", "j":
		if s.selected < len(fields)-1 {
			s.selected++
		}
	case "left", "h":
		s.cycle(-1)
	case "right", "l":
		s.cycle(1)
	case "enter":
		if err := s.ws.UpdateSettings(s.draft); err != nil {
			s.errMsg = err.Error()
			return s, nil
		}
		theme.Apply(s.draft.Theme)
		return s, func() tea.Msg { return router.PopScreenMsg{} }
	}
	return s, nil
}

func (s *SettingsScreen) cycle(step int) {
	f := fields[s.selected]
	i := slices.Index(f.values, f.get(s.draft))
	n := len(f.values)
	f.set(&s.draft, f.values[((i+step)%n+n)%n])
	s.errMsg = ""
}

// Draft returns the unsaved settings.
func (s *SettingsScreen) Draft() session.Settings { return s.draft }

func (s *SettingsScreen) View(width, height int) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(theme.Title.Width(width).Render("Settings"))
	b.WriteString("\n")
	b.WriteString(theme.Subtitle.Width(width).Render(s.ws.Session().UserID))
	b.WriteString("\n\n")

	var rows []string
	for i, f := range fields {
		v := f.get(s.draft)
		if f.name != nil {
			v = fmt.Sprintf("%s (%s)", f.name(v), v)
		}
		label := lipgloss.NewStyle().Width(18).Foreground(theme.TextDim).Render(f.label)
		value := theme.Unselected.Render("  " + v + "  ")
		if i == s.selected {
			value = theme.Selected.Render("‹ " + v + " ›")
		}
		rows = append(rows, label+value)
	}
	b.WriteString(layout.Centered(strings.Join(rows, "\n\n"), width))
	b.WriteString("\n")

	if s.errMsg != "" {
		b.WriteString("\n")
		b.WriteString(layout.Centered(theme.ErrorLine.Render(s.errMsg), width))
		b.WriteString("\n")
	}
	return b.String()
}
