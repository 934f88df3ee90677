package home

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/lingua/internal/content"
	"github.com/abhisek/lingua/internal/llm"
	"github.com/abhisek/lingua/internal/router"
	"github.com/abhisek/lingua/internal/screens/conversation"
	"github.com/abhisek/lingua/internal/screens/exam"
	"github.com/abhisek/lingua/internal/session"
	"github.com/abhisek/lingua/internal/store"
	"github.com/abhisek/lingua/internal/workspace"
)

func openWorkspace(t *testing.T) *workspace.Workspace {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "lingua.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	ws, err := workspace.Open(context.Background(), session.NewContext("ana@example.com", session.DefaultSettings(), false), workspace.Deps{
		Generator: content.New(llm.NewMockProvider(), content.DefaultConfig()),
		Store:     workspace.NewStore(st.KV()),
	})
	if err != nil {
		t.Fatalf("open workspace: %v", err)
	}
	t.Cleanup(func() { ws.Close(context.Background()) })
	return ws
}

func TestHome_MenuListsSurfaces(t *testing.T) {
	h := New(openWorkspace(t), Options{})
	h.Init()
	want := len(workspace.Surfaces()) + 3
	if len(h.menu.Items) != want {
		t.Fatalf("menu items = %d, want %d", len(h.menu.Items), want)
	}
	view := h.View(120, 40)
	for _, label := range []string{"Story Time", "Exam Mode", "Speaking Practice", "Settings"} {
		if !strings.Contains(view, label) {
			t.Errorf("view missing %q", label)
		}
	}
}

func TestHome_EnterPushesSurface(t *testing.T) {
	h := New(openWorkspace(t), Options{})
	h.Init()
	_, cmd := h.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected a push command")
	}
	msg, ok := cmd().(router.PushScreenMsg)
	if !ok {
		t.Fatal("expected PushScreenMsg")
	}
	if msg.Screen.Title() != "Story Time" {
		t.Errorf("pushed %q, want Story Time", msg.Screen.Title())
	}
}

func TestHome_NoKeyDisablesSurfaces(t *testing.T) {
	h := New(openWorkspace(t), Options{NoKey: true})
	h.Init()
	if got := h.menu.Items[h.menu.Selected].Label; got != "Progress" {
		t.Fatalf("selected %q, want the first enabled item", got)
	}
	if !strings.Contains(h.View(120, 40), "Set an LLM API key") {
		t.Fatal("banner missing")
	}
}

func TestOpen(t *testing.T) {
	ws := openWorkspace(t)
	for _, s := range workspace.Surfaces() {
		scr := Open(ws, s, Options{})
		switch s {
		case workspace.SurfaceExam:
			if _, ok := scr.(*exam.ExamScreen); !ok {
				t.Errorf("%s: got %T", s, scr)
			}
		case workspace.SurfaceChat, workspace.SurfaceSpeaking:
			if _, ok := scr.(*conversation.ConversationScreen); !ok {
				t.Errorf("%s: got %T", s, scr)
			}
		default:
			if scr == nil || scr.Title() != s.Title() {
				t.Errorf("%s: got %v", s, scr)
			}
		}
	}
}
