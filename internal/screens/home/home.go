package home

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/lingua/internal/progress"
	"github.com/abhisek/lingua/internal/router"
	"github.com/abhisek/lingua/internal/screen"
	"github.com/abhisek/lingua/internal/screens/conversation"
	"github.com/abhisek/lingua/internal/screens/exam"
	"github.com/abhisek/lingua/internal/screens/practice"
	progressscreen "github.com/abhisek/lingua/internal/screens/progress"
	"github.com/abhisek/lingua/internal/screens/settings"
	"github.com/abhisek/lingua/internal/speech"
	"github.com/abhisek/lingua/internal/store"
	"github.com/abhisek/lingua/internal/ui/components"
	"github.com/abhisek/lingua/internal/workspace"
)

// Options carries the collaborators the home menu hands to the screens
// it opens.
type Options struct {
	Capturer speech.Capturer
	Speaker  speech.Speaker
	Events   store.EventRepo

	// NoKey shows a banner asking for an API key.
	NoKey bool
}

// HomeScreen is the main menu.
type HomeScreen struct {
	ws      *workspace.Workspace
	opts    Options
	menu    components.Menu
	tracker progress.Tracker
}

var _ screen.Screen = (*HomeScreen)(nil)

// New creates the home screen for ws.
func New(ws *workspace.Workspace, opts Options) *HomeScreen {
	h := &HomeScreen{ws: ws, opts: opts}
	h.menu = components.NewMenu(h.items())
	if i := h.indexOf(ws.Active()); i >= 0 {
		h.menu.Selected = i
	}
	return h
}

// Open returns the screen for a surface.
func Open(ws *workspace.Workspace, s workspace.Surface, opts Options) screen.Screen {
	switch s {
	case workspace.SurfaceExam:
		return exam.New(ws)
	case workspace.SurfaceChat, workspace.SurfaceSpeaking:
		return conversation.New(ws, s, conversation.Options{Capturer: opts.Capturer, Speaker: opts.Speaker})
	}
	return practice.ForSurface(ws, s)
}

func push(s screen.Screen) tea.Cmd {
	return func() tea.Msg { return router.PushScreenMsg{Screen: s} }
}

func (h *HomeScreen) items() []components.MenuItem {
	var items []components.MenuItem
	for _, s := range workspace.Surfaces() {
		items = append(items, components.MenuItem{
			Label:    s.Title(),
			Disabled: h.opts.NoKey,
			Action: func() tea.Cmd {
				return push(Open(h.ws, s, h.opts))
			},
		})
	}
	return append(items,
		components.MenuItem{Label: "Progress", Action: func() tea.Cmd {
			return push(progressscreen.New(h.ws, h.opts.Events))
		}},
		components.MenuItem{Label: "Settings", Action: func() tea.Cmd {
			return push(settings.New(h.ws))
		}},
		components.MenuItem{Label: "Quit", Action: func() tea.Cmd {
			return tea.Quit
		}},
	)
}

func (h *HomeScreen) indexOf(s workspace.Surface) int {
	if s == "" || h.opts.NoKey {
		return -1
	}
	for i, surface := range workspace.Surfaces() {
		if surface == s {
			return i
		}
	}
	return -1
}

// Init refreshes the stats; it runs again whenever a screen above is
// popped.
func (h *HomeScreen) Init() tea.Cmd {
	h.tracker = h.ws.Progress()
	for i := range workspace.Surfaces() {
		h.menu.Items[i].Detail = h.detail(workspace.Surfaces()[i])
	}
	return nil
}

func (h *HomeScreen) detail(s workspace.Surface) string {
	if s == workspace.SurfaceExam {
		if n := len(h.tracker.Exams); n > 0 {
			return fmt.Sprintf("last %d/100", h.tracker.Exams[n-1].Score)
		}
		return ""
	}
	st := h.tracker.Get(string(s))
	if st.Attempts == 0 {
		return ""
	}
	return fmt.Sprintf("%.0f%% · streak %d", st.Accuracy*100, st.Streak)
}

func (h *HomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	var cmd tea.Cmd
	h.menu, cmd = h.menu.Update(msg)
	return h, cmd
}

func (h *HomeScreen) View(width, height int) string {
	compact := height < 28 || width < 90
	cw := contentWidth(width)

	var sections []string
	sections = append(sections, renderTitle(cw, compact))
	if h.opts.NoKey {
		sections = append(sections, renderLLMBanner(cw))
	}
	total := h.tracker.Totals()
	sections = append(sections, renderStatsBar(total, len(h.tracker.Exams), h.ws.Session().Settings, cw, compact))
	sections = append(sections, renderMenu(h.menu, cw))

	return renderFrame(strings.Join(sections, "\n\n"), width, height)
}

func (h *HomeScreen) Title() string {
	return "Home"
}
