package practice

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/lingua/internal/content"
	"github.com/abhisek/lingua/internal/engine"
	"github.com/abhisek/lingua/internal/exercise"
	"github.com/abhisek/lingua/internal/llm"
	"github.com/abhisek/lingua/internal/screen"
	"github.com/abhisek/lingua/internal/session"
	"github.com/abhisek/lingua/internal/store"
	"github.com/abhisek/lingua/internal/workspace"
)

func openWorkspace(t *testing.T, responses ...llm.MockResponse) *workspace.Workspace {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "lingua.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	mock := llm.NewMockProvider(responses...)
	ws, err := workspace.Open(context.Background(), session.NewContext("ana@example.com", session.DefaultSettings(), false), workspace.Deps{
		Generator: content.New(mock, content.DefaultConfig()),
		Store:     workspace.NewStore(st.KV()),
	})
	if err != nil {
		t.Fatalf("open workspace: %v", err)
	}
	t.Cleanup(func() { ws.Close(context.Background()) })
	return ws
}

// settle runs cmd and delivers any settledMsg it produces.
func settle(s screen.Screen, cmd tea.Cmd) screen.Screen {
	if cmd == nil {
		return s
	}
	msgs := []tea.Msg{cmd()}
	if batch, ok := msgs[0].(tea.BatchMsg); ok {
		msgs = msgs[:0]
		for _, c := range batch {
			if c != nil {
				msgs = append(msgs, c())
			}
		}
	}
	for _, msg := range msgs {
		if sm, ok := msg.(settledMsg); ok {
			s, _ = s.Update(sm)
		}
	}
	return s
}

func typeText(s screen.Screen, text string) screen.Screen {
	for _, r := range text {
		s, _ = s.Update(tea.KeyPressMsg{Code: r, Text: string(r)})
	}
	return s
}

func press(s screen.Screen, code rune) (screen.Screen, tea.Cmd) {
	return s.Update(tea.KeyPressMsg{Code: code})
}

func TestGrammar_AnswerAndNext(t *testing.T) {
	ws := openWorkspace(t,
		llm.JSONResponse(map[string]any{
			"incorrect":   "Yo es cansado.",
			"correct":     "Yo estoy cansado.",
			"explanation": "Use estar for temporary states.",
		}),
		llm.JSONResponse(map[string]any{
			"incorrect":   "Ella tiene frío mucho.",
			"correct":     "Ella tiene mucho frío.",
			"explanation": "Mucho goes before the noun.",
		}),
	)
	var s screen.Screen = ForSurface(ws, "grammar")
	s = settle(s, s.Init())

	if got := ws.Grammar().State(); got != engine.StateReady {
		t.Fatalf("state = %s, want ready", got)
	}
	if !strings.Contains(s.View(100, 30), "Yo es cansado.") {
		t.Fatal("task not rendered")
	}

	s = typeText(s, "yo estoy cansado")
	if ws.Grammar().Draft() != "yo estoy cansado" {
		t.Fatalf("draft = %q", ws.Grammar().Draft())
	}
	s, cmd := press(s, tea.KeyEnter)
	s = settle(s, cmd)

	if ws.Grammar().State() != engine.StateFeedback {
		t.Fatalf("state = %s, want feedback", ws.Grammar().State())
	}
	if view := s.View(100, 30); !strings.Contains(view, "Correct!") {
		t.Fatalf("verdict not rendered:\n%s", view)
	}

	// Typing is ignored once answered.
	s = typeText(s, "x")
	if ws.Grammar().Draft() != "" {
		t.Fatal("draft changed after verdict")
	}

	s, cmd = press(s, tea.KeyEnter)
	s = settle(s, cmd)
	task, _ := ws.Grammar().Task()
	if task.Incorrect != "Ella tiene frío mucho." {
		t.Fatalf("expected next task, got %q", task.Incorrect)
	}
}

func TestIdiom_PickOption(t *testing.T) {
	ws := openWorkspace(t, llm.JSONResponse(map[string]any{
		"context_sentence": "Cuando le hablé, estaba en las nubes.",
		"idiom":            "estar en las nubes",
		"meaning":          "to be daydreaming",
		"options":          []string{"to be daydreaming", "to be flying", "to be angry", "to be asleep"},
		"explanation":      "Literally 'to be in the clouds'.",
	}))
	var s screen.Screen = ForSurface(ws, "idiom")
	s = settle(s, s.Init())

	task, ok := ws.Idiom().Task()
	if !ok {
		t.Fatal("no idiom task")
	}
	idx := -1
	for i, o := range task.Options {
		if o == task.CorrectMeaning {
			idx = i
		}
	}
	s = typeText(s, fmt.Sprint(idx+1))
	s, cmd := press(s, tea.KeyEnter)
	s = settle(s, cmd)

	v := ws.Idiom().Verdict()
	if v == nil || !v.Correct {
		t.Fatalf("expected correct verdict, got %+v", v)
	}
	if !s.(*Screen[exercise.IdiomTask]).choice.Locked {
		t.Fatal("options must lock after the verdict")
	}
}

func TestGeneration_FailureShowsError(t *testing.T) {
	ws := openWorkspace(t, llm.MockResponse{Err: &llm.ErrProviderUnavailable{}})
	var s screen.Screen = ForSurface(ws, "writing")
	s = settle(s, s.Init())

	if ws.Writing().State() != engine.StateIdle {
		t.Fatalf("state = %s, want idle", ws.Writing().State())
	}
	if !strings.Contains(s.View(100, 30), "Couldn't reach the tutor") {
		t.Fatal("error line missing")
	}
}

func TestForSurface_Unknown(t *testing.T) {
	ws := openWorkspace(t)
	if ForSurface(ws, workspace.SurfaceChat) != nil {
		t.Fatal("chat is not a practice surface")
	}
}
