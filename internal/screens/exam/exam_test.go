package exam

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/lingua/internal/content"
	ex "github.com/abhisek/lingua/internal/exam"
	"github.com/abhisek/lingua/internal/llm"
	"github.com/abhisek/lingua/internal/screen"
	"github.com/abhisek/lingua/internal/session"
	"github.com/abhisek/lingua/internal/store"
	"github.com/abhisek/lingua/internal/workspace"
)

func questionsResponse(n int) llm.MockResponse {
	kinds := []string{"mcq", "writing", "speaking", "listening"}
	qs := make([]map[string]any, n)
	for i := range n {
		q := map[string]any{
			"id":      i + 1,
			"kind":    kinds[i%len(kinds)],
			"text":    fmt.Sprintf("Pregunta %d", i+1),
			"options": []string{},
		}
		if kinds[i%len(kinds)] == "mcq" {
			q["options"] = []string{"uno", "dos", "tres", "cuatro"}
		}
		qs[i] = q
	}
	return llm.JSONResponse(map[string]any{"questions": qs})
}

func gradeResponse(n, score int) llm.MockResponse {
	fb := make([]map[string]any, n)
	for i := range n {
		fb[i] = map[string]any{"question_id": i + 1, "correct": i%2 == 0, "feedback": fmt.Sprintf("nota %d", i+1)}
	}
	return llm.JSONResponse(map[string]any{"overall_score": score, "summary": "Buen trabajo.", "feedback": fb})
}

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

func TestExamScreen_FullRun(t *testing.T) {
	ws := openWorkspace(t, questionsResponse(5), gradeResponse(5, 80))
	var s screen.Screen = New(ws)
	s = settle(s, s.Init())

	if !strings.Contains(s.View(100, 30), "New exam") {
		t.Fatal("expected the setup view")
	}
	s, cmd := press(s, tea.KeyEnter)
	s = settle(s, cmd)
	o := ws.Exam()
	if o.Phase() != ex.PhaseInProgress {
		t.Fatalf("phase = %s, want in-progress", o.Phase())
	}

	for i := range 5 {
		q, _, _ := o.Current()
		if q.Options != nil {
			s = typeText(s, "2")
		} else {
			s = typeText(s, "hola")
		}
		s, cmd = press(s, tea.KeyEnter)
		if i < 4 {
			if cmd != nil {
				t.Fatalf("question %d: Next must be synchronous", i+1)
			}
			continue
		}
		s = settle(s, cmd)
	}

	if o.Phase() != ex.PhaseResults {
		t.Fatalf("phase = %s, want results", o.Phase())
	}
	answers := o.Answers()
	if answers[1] != "dos" || answers[2] != "hola" {
		t.Fatalf("answers = %v", answers)
	}
	view := s.View(100, 40)
	for _, want := range []string{"Exam complete!", "80 / 100", "Buen trabajo.", "nota 1"} {
		if !strings.Contains(view, want) {
			t.Errorf("results view missing %q", want)
		}
	}
	if got := ws.Progress().Exams; len(got) != 1 || got[0].Score != 80 {
		t.Fatalf("exam history = %+v", got)
	}

	s = typeText(s, "n")
	if o.Phase() != ex.PhaseSetup {
		t.Fatalf("phase = %s, want setup after restart", o.Phase())
	}
}

func TestExamScreen_BackRestoresAnswer(t *testing.T) {
	ws := openWorkspace(t, questionsResponse(5))
	var s screen.Screen = New(ws)
	s = settle(s, s.Init())
	// Pick 10 questions, then back to 5.
	s, _ = press(s, tea.KeyRight)
	s, _ = press(s, tea.KeyLeft)
	s, cmd := press(s, tea.KeyEnter)
	s = settle(s, cmd)

	s = typeText(s, "3")
	s, _ = press(s, tea.KeyEnter)
	s = typeText(s, "hola")
	s, _ = s.Update(tea.KeyPressMsg{Code: 'b', Mod: tea.ModCtrl})

	o := ws.Exam()
	if _, idx, _ := o.Current(); idx != 0 {
		t.Fatalf("index = %d, want 0", idx)
	}
	if o.Input() != "tres" {
		t.Fatalf("input = %q, want the earlier choice", o.Input())
	}
	if got := s.(*ExamScreen).choice.Selected; got != 2 {
		t.Fatalf("choice cursor = %d, want 2", got)
	}

	s, _ = press(s, tea.KeyEnter)
	if got := s.(*ExamScreen).input.Value(); got != "hola" {
		t.Fatalf("input = %q, want the draft kept on the second question", got)
	}
}

func TestExamScreen_GenerationFailureStaysInSetup(t *testing.T) {
	ws := openWorkspace(t, llm.MockResponse{Err: &llm.ErrProviderUnavailable{}})
	var s screen.Screen = New(ws)
	s = settle(s, s.Init())
	s, cmd := press(s, tea.KeyEnter)
	s = settle(s, cmd)

	if ws.Exam().Phase() != ex.PhaseSetup {
		t.Fatalf("phase = %s, want setup", ws.Exam().Phase())
	}
	if !strings.Contains(s.View(100, 30), "Couldn't reach the tutor") {
		t.Fatal("error line missing")
	}
}

func TestTypeLabel(t *testing.T) {
	if got := TypeLabel(ex.TypeVocabulary); got != "Vocabulary" {
		t.Errorf("TypeLabel = %q", got)
	}
}
