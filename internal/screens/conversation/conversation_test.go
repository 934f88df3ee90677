package conversation

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/lingua/internal/content"
	"github.com/abhisek/lingua/internal/exercise"
	"github.com/abhisek/lingua/internal/llm"
	"github.com/abhisek/lingua/internal/screen"
	"github.com/abhisek/lingua/internal/session"
	"github.com/abhisek/lingua/internal/speech"
	"github.com/abhisek/lingua/internal/store"
	"github.com/abhisek/lingua/internal/workspace"
)

type recordingSpeaker struct {
	mu     sync.Mutex
	spoken []string
}

func (r *recordingSpeaker) Speak(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spoken = append(r.spoken, text)
}

type fakeCapturer struct {
	events  chan speech.Event
	started int
	stopped int
}

func (f *fakeCapturer) Start(context.Context) error { f.started++; return nil }
func (f *fakeCapturer) Stop() error                 { f.stopped++; return nil }
func (f *fakeCapturer) Events() <-chan speech.Event { return f.events }

func openWorkspace(t *testing.T, responses ...llm.MockResponse) *workspace.Workspace {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "lingua.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	mock := llm.NewMockProvider(responses...)
	ws, err := workspace.Open(context.Background(), session.NewContext("ana@example.com", session.DefaultSettings(), false), workspace.Deps{
		Generator:  content.New(mock, content.DefaultConfig()),
		Store:      workspace.NewStore(st.KV()),
		ReplyDelay: -1,
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

func TestChat_SendAndReply(t *testing.T) {
	ws := openWorkspace(t, llm.TextResponse("¡Qué bien! ¿Y tú?"))
	var s screen.Screen = New(ws, workspace.SurfaceChat, Options{})
	s = settle(s, s.Init())

	if got := len(ws.Chat().Transcript()); got != 1 {
		t.Fatalf("transcript length = %d, want the greeting", got)
	}

	s = typeText(s, "Estoy bien")
	s, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	turns := ws.Chat().Transcript()
	if len(turns) != 2 || turns[1].Text != "Estoy bien" {
		t.Fatalf("learner turn not shown before the reply: %+v", turns)
	}
	if !strings.Contains(s.View(100, 30), "Tutor is typing...") {
		t.Fatal("typing indicator missing")
	}

	s = settle(s, cmd)
	turns = ws.Chat().Transcript()
	if len(turns) != 3 || turns[2].Role != exercise.RoleAssistant {
		t.Fatalf("reply missing: %+v", turns)
	}
	if !strings.Contains(s.View(100, 30), "¡Qué bien!") {
		t.Fatal("reply not rendered")
	}
}

func TestChat_BlankInputShowsError(t *testing.T) {
	ws := openWorkspace(t)
	var s screen.Screen = New(ws, workspace.SurfaceChat, Options{})
	s = settle(s, s.Init())

	s, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	if cmd != nil {
		t.Fatal("blank input must not reach the model")
	}
	if !strings.Contains(s.View(100, 30), "Type an answer first.") {
		t.Fatal("input error missing")
	}
}

func TestSpeaking_FeedbackAndSpeech(t *testing.T) {
	ws := openWorkspace(t,
		llm.TextResponse("Buenas tardes, ¿qué le pongo?"),
		llm.JSONResponse(map[string]any{
			"accuracy_score":     85,
			"pronunciation_tips": []map[string]string{{"word": "café", "tip": "stress the last syllable"}},
			"fluency_comment":    "Good pace.",
			"grammar_comment":    "Well formed.",
			"reply":              "Ahora mismo.",
		}),
	)
	sp := &recordingSpeaker{}
	var s screen.Screen = New(ws, workspace.SurfaceSpeaking, Options{Speaker: sp})
	s = settle(s, s.Init())

	s = typeText(s, "Un café, por favor")
	s, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	s = settle(s, cmd)

	view := s.View(100, 40)
	for _, want := range []string{"Accuracy 85/100", "stress the last syllable", "Ahora mismo."} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if len(sp.spoken) != 2 || sp.spoken[1] != "Ahora mismo." {
		t.Fatalf("spoken = %v, want the opening and the reply", sp.spoken)
	}
}

func TestCapture_FillsInput(t *testing.T) {
	ws := openWorkspace(t)
	fc := &fakeCapturer{events: make(chan speech.Event, 4)}
	var s screen.Screen = New(ws, workspace.SurfaceChat, Options{Capturer: fc})
	s = settle(s, s.Init())

	fc.events <- speech.Event{Kind: speech.EventPartial, Text: "hola"}
	fc.events <- speech.Event{Kind: speech.EventFinal, Text: "hola amigo"}
	fc.events <- speech.Event{Kind: speech.EventEnd}

	s, cmd := s.Update(tea.KeyPressMsg{Code: 't', Mod: tea.ModCtrl})
	if fc.started != 1 {
		t.Fatal("capture not started")
	}
	for cmd != nil {
		s, cmd = s.Update(cmd())
	}
	if got := s.(*ConversationScreen).input.Value(); got != "hola amigo" {
		t.Fatalf("input = %q, want the final transcript", got)
	}
}

func TestCapture_Unavailable(t *testing.T) {
	ws := openWorkspace(t)
	var s screen.Screen = New(ws, workspace.SurfaceChat, Options{})
	s = settle(s, s.Init())

	s, _ = s.Update(tea.KeyPressMsg{Code: 't', Mod: tea.ModCtrl})
	if !strings.Contains(s.View(100, 30), "Microphone unavailable") {
		t.Fatal("capture error missing")
	}
}
