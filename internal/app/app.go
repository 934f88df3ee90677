// Package app is the root Bubble Tea model: a screen router framed by a
// header and a footer.
package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/lingua/internal/i18n"
	"github.com/abhisek/lingua/internal/router"
	"github.com/abhisek/lingua/internal/screen"
	"github.com/abhisek/lingua/internal/screens/home"
	"github.com/abhisek/lingua/internal/speech"
	"github.com/abhisek/lingua/internal/store"
	"github.com/abhisek/lingua/internal/ui/layout"
	"github.com/abhisek/lingua/internal/ui/theme"
	"github.com/abhisek/lingua/internal/workspace"
)

// noticeDuration is how long a footer notice stays up.
const noticeDuration = 4 * time.Second

// Options configures the program.
type Options struct {
	Workspace *workspace.Workspace
	Capturer  speech.Capturer
	Speaker   speech.Speaker
	Events    store.EventRepo
	NoKey     bool
}

type noticeMsg struct {
	text string
}

type clearNoticeMsg struct {
	seq int
}

// AppModel is the root Bubble Tea model.
type AppModel struct {
	ws        *workspace.Workspace
	router    *router.Router
	width     int
	height    int
	notice    string
	noticeSeq int
}

// newAppModel creates an AppModel with the home screen.
func newAppModel(opts Options) AppModel {
	theme.Apply(opts.Workspace.Session().Settings.Theme)
	homeScreen := home.New(opts.Workspace, home.Options{
		Capturer: opts.Capturer,
		Speaker:  opts.Speaker,
		Events:   opts.Events,
		NoKey:    opts.NoKey,
	})
	return AppModel{
		ws:     opts.Workspace,
		router: router.New(homeScreen),
	}
}

func (m AppModel) Init() tea.Cmd {
	return m.router.Active().Init()
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case noticeMsg:
		m.noticeSeq++
		m.notice = msg.text
		seq := m.noticeSeq
		return m, tea.Tick(noticeDuration, func(time.Time) tea.Msg { return clearNoticeMsg{seq: seq} })

	case clearNoticeMsg:
		if msg.seq == m.noticeSeq {
			m.notice = ""
		}
		return m, nil

	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			if b, ok := m.router.Active().(screen.BackBlocker); ok && b.BlocksBack() {
				break
			}
			if m.router.Depth() > 1 {
				return m, func() tea.Msg { return router.PopScreenMsg{} }
			}
			return m, nil
		}
	}

	cmd := m.router.Update(msg)
	return m, cmd
}

// status is the header's right side: target language, level and the
// best streak.
func (m AppModel) status() string {
	s := m.ws.Session().Settings
	out := fmt.Sprintf("%s · %s", strings.ToUpper(s.TargetLanguage), s.Level)
	if best := m.ws.Progress().Totals().BestStreak; best > 0 {
		out += fmt.Sprintf("  ★ %d", best)
	}
	return out + "  "
}

func (m AppModel) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		return v
	}

	if layout.IsTooSmall(m.width, m.height) {
		v.SetContent(layout.RenderMinSizeMessage(m.width, m.height))
		return v
	}

	v.SetContent(m.frame())
	return v
}

// frame renders header, active screen and footer at the current size.
func (m AppModel) frame() string {
	active := m.router.Active()
	title := ""
	if active != nil {
		title = active.Title()
	}

	header := layout.RenderHeader(title, m.status(), m.width)

	var footerHints []layout.KeyHint
	if p, ok := active.(screen.KeyHintProvider); ok {
		footerHints = p.KeyHints()
	} else if m.router.Depth() > 1 {
		footerHints = []layout.KeyHint{
			{Key: "Esc", Description: "Back"},
			{Key: "Ctrl+C", Description: "Quit"},
		}
	} else {
		footerHints = []layout.KeyHint{
			{Key: "↑↓", Description: "Navigate"},
			{Key: "Enter", Description: "Select"},
			{Key: "Ctrl+C", Description: "Quit"},
		}
	}

	footer := layout.RenderFooter(footerHints, m.notice, m.width)

	contentHeight := max(m.height-lipgloss.Height(header)-lipgloss.Height(footer), 0)

	content := m.router.View(m.width, contentHeight)
	return layout.RenderFrame(header, content, footer, m.width, m.height)
}

// noticeText renders a workspace notice for the footer.
func noticeText(ws *workspace.Workspace, n workspace.Notice) string {
	switch {
	case n.Exam != nil:
		return fmt.Sprintf("Exam graded: %d/100", n.Exam.Score)
	case n.Milestone > 0:
		return "★ " + i18n.Tp(ws.Context(), "StreakMilestone", n.Milestone)
	}
	return ""
}

// Run starts the Bubble Tea program and blocks until it exits.
func Run(opts Options) error {
	p := tea.NewProgram(newAppModel(opts))
	ws := opts.Workspace
	ws.OnNotice(func(n workspace.Notice) {
		if text := noticeText(ws, n); text != "" {
			p.Send(noticeMsg{text: text})
		}
	})
	defer ws.OnNotice(nil)

	_, err := p.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error running program:", err)
		return err
	}
	return nil
}
