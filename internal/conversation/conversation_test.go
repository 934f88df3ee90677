package conversation

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/lingua/internal/content"
	"github.com/abhisek/lingua/internal/engine"
	"github.com/abhisek/lingua/internal/exercise"
	"github.com/abhisek/lingua/internal/i18n"
	"github.com/abhisek/lingua/internal/llm"
	"github.com/abhisek/lingua/internal/session"
	"github.com/abhisek/lingua/internal/validate"
)

var sc = session.NewContext("ana@example.com", session.DefaultSettings(), false)

func turnResponse(reply string, tips int) llm.MockResponse {
	pt := make([]map[string]string, tips)
	for i := range pt {
		pt[i] = map[string]string{"word": "perro", "tip": "roll the double r"}
	}
	return llm.JSONResponse(map[string]any{
		"accuracy_score":     82,
		"pronunciation_tips": pt,
		"fluency_comment":    "Natural pace.",
		"grammar_comment":    "Use the subjunctive after 'quiero que'.",
		"reply":              reply,
	})
}

func newChat(t *testing.T, responses ...llm.MockResponse) (*Orchestrator, *llm.MockProvider) {
	t.Helper()
	mock := llm.NewMockProvider(responses...)
	return New(content.New(mock, content.DefaultConfig()), ModeChat, Options{ReplyDelay: -1}), mock
}

func newSpeaking(t *testing.T, responses ...llm.MockResponse) (*Orchestrator, *llm.MockProvider) {
	t.Helper()
	catalog, err := LoadCatalog()
	require.NoError(t, err)
	mock := llm.NewMockProvider(responses...)
	o := New(content.New(mock, content.DefaultConfig()), ModeSpeaking, Options{
		Catalog:    catalog,
		Rand:       rand.New(rand.NewPCG(1, 2)),
		ReplyDelay: -1,
	})
	return o, mock
}

func TestChat_StartGreets(t *testing.T) {
	o, mock := newChat(t)
	require.NoError(t, o.Start(context.Background(), sc))

	turns := o.Transcript()
	require.Len(t, turns, 1)
	assert.Equal(t, exercise.RoleAssistant, turns[0].Role)
	assert.Equal(t, i18n.In("es", "ChatGreeting"), turns[0].Text)
	assert.Zero(t, mock.CallCount())
}

func TestChat_SendThenResolve(t *testing.T) {
	o, mock := newChat(t, llm.TextResponse("¡Qué bien! ¿Y tú?"))
	require.NoError(t, o.Start(context.Background(), sc))

	idx, err := o.Send("  Hoy fui al parque  ")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	turns := o.Transcript()
	require.Len(t, turns, 2)
	assert.Equal(t, "Hoy fui al parque", turns[1].Text)
	assert.True(t, o.Busy())
	assert.True(t, o.Pending())

	require.NoError(t, o.Resolve(context.Background(), sc))
	turns = o.Transcript()
	require.Len(t, turns, 3)
	assert.Equal(t, exercise.RoleAssistant, turns[2].Role)
	assert.Equal(t, "¡Qué bien! ¿Y tú?", turns[2].Text)
	assert.Nil(t, turns[1].Feedback)
	assert.False(t, o.Busy())
	assert.False(t, o.Pending())

	req, _ := mock.LastCall()
	assert.Nil(t, req.Schema)
	require.NotEmpty(t, req.Messages)
	assert.Equal(t, llm.RoleUser, req.Messages[0].Role)
	assert.Equal(t, "Hoy fui al parque", req.Messages[len(req.Messages)-1].Content)
}

func TestChat_SendRejections(t *testing.T) {
	o, _ := newChat(t, llm.TextResponse("vale"))

	_, err := o.Send("hola")
	assert.ErrorIs(t, err, ErrNotStarted)

	require.NoError(t, o.Start(context.Background(), sc))
	_, err = o.Send("   ")
	assert.ErrorIs(t, err, validate.ErrInputRejected)
	assert.Len(t, o.Transcript(), 1)

	_, err = o.Send("hola")
	require.NoError(t, err)
	_, err = o.Send("otra vez")
	assert.ErrorIs(t, err, engine.ErrBusy)
	assert.Len(t, o.Transcript(), 2)
	assert.ErrorIs(t, o.Start(context.Background(), sc), engine.ErrBusy)
}

func TestChat_ResolveWithoutPending(t *testing.T) {
	o, _ := newChat(t)
	require.NoError(t, o.Start(context.Background(), sc))
	assert.ErrorIs(t, o.Resolve(context.Background(), sc), ErrNoPending)
}

func TestChat_FailureFallbacks(t *testing.T) {
	tests := []struct {
		name     string
		response llm.MockResponse
		key      string
	}{
		{"transport", llm.MockResponse{Err: &llm.ErrProviderUnavailable{Err: errors.New("offline")}}, "ChatApology"},
		{"malformed", llm.MockResponse{Err: &llm.ErrInvalidResponse{Err: errors.New("bad json")}}, "ChatFiller"},
		{"empty", llm.TextResponse("   "), "ChatFiller"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, _ := newChat(t, tt.response)
			require.NoError(t, o.Start(context.Background(), sc))
			require.NoError(t, o.Submit(context.Background(), sc, "hola"))

			turns := o.Transcript()
			require.Len(t, turns, 3)
			assert.Equal(t, i18n.In("es", tt.key), turns[2].Text)
			assert.False(t, o.Busy())
		})
	}
}

func TestSpeaking_FeedbackOnLearnerTurnOnly(t *testing.T) {
	o, mock := newSpeaking(t, llm.TextResponse("Buenos días, ¿qué le pongo?"), turnResponse("Enseguida.", 2))
	require.NoError(t, o.Start(context.Background(), sc))
	require.NotNil(t, o.Scenario())

	turns := o.Transcript()
	require.Len(t, turns, 1)
	assert.Equal(t, "Buenos días, ¿qué le pongo?", turns[0].Text)

	require.NoError(t, o.Submit(context.Background(), sc, "Un café con leche, por favor"))
	turns = o.Transcript()
	require.Len(t, turns, 3)
	assert.Nil(t, turns[0].Feedback)
	require.NotNil(t, turns[1].Feedback)
	assert.Equal(t, 82, turns[1].Feedback.AccuracyScore)
	assert.Len(t, turns[1].Feedback.PronunciationTips, 2)
	assert.Nil(t, turns[2].Feedback)
	assert.Equal(t, "Enseguida.", turns[2].Text)

	req, _ := mock.LastCall()
	require.NotNil(t, req.Schema)
	assert.Equal(t, TurnSchema.Name, req.Schema.Name)
	assert.Contains(t, req.System, o.Scenario().Partner)
}

func TestSpeaking_TooManyTipsIsMalformed(t *testing.T) {
	o, _ := newSpeaking(t, llm.TextResponse("Hola."), turnResponse("Vale.", 4))
	require.NoError(t, o.Start(context.Background(), sc))
	require.NoError(t, o.Submit(context.Background(), sc, "Quiero un billete"))

	turns := o.Transcript()
	require.Len(t, turns, 3)
	assert.Nil(t, turns[1].Feedback)
	assert.Equal(t, i18n.In("es", "ChatFiller"), turns[2].Text)
}

func TestSpeaking_OpeningFailureFallsBack(t *testing.T) {
	o, _ := newSpeaking(t, llm.MockResponse{Err: &llm.ErrProviderUnavailable{Err: errors.New("offline")}})
	err := o.Start(context.Background(), sc)
	assert.ErrorIs(t, err, content.ErrTransport)

	turns := o.Transcript()
	require.Len(t, turns, 1)
	assert.Equal(t, i18n.In("es", "ChatGreeting"), turns[0].Text)
	assert.NotEmpty(t, o.Err())
	assert.False(t, o.Busy())
}

func TestConversation_ResetDropsReply(t *testing.T) {
	o, _ := newChat(t, llm.TextResponse("tarde"))
	require.NoError(t, o.Start(context.Background(), sc))
	_, err := o.Send("hola")
	require.NoError(t, err)

	o.Reset()
	assert.Empty(t, o.Transcript())
	assert.False(t, o.Busy())
	assert.ErrorIs(t, o.Resolve(context.Background(), sc), ErrNoPending)
}

func TestConversation_SnapshotRestore(t *testing.T) {
	o, _ := newSpeaking(t, llm.TextResponse("Hola."), turnResponse("Claro.", 1))
	require.NoError(t, o.Start(context.Background(), sc))
	require.NoError(t, o.Submit(context.Background(), sc, "Necesito una habitación"))
	snap := o.Snapshot()

	restored, _ := newSpeaking(t)
	require.NoError(t, restored.Restore(snap))
	assert.Equal(t, o.Transcript(), restored.Transcript())
	assert.Equal(t, o.Scenario(), restored.Scenario())
	assert.False(t, restored.Pending())
}

func TestConversation_RestorePendingTurn(t *testing.T) {
	o, _ := newChat(t, llm.TextResponse("Perfecto."))
	require.NoError(t, o.Restore(Snapshot{Transcript: []exercise.Turn{
		{Role: exercise.RoleAssistant, Text: "Hola", Feedback: &exercise.SpeakingFeedback{AccuracyScore: 10}},
		{Role: exercise.RoleUser, Text: "Buenas"},
	}}))
	assert.True(t, o.Pending())
	assert.Nil(t, o.Transcript()[0].Feedback)

	require.NoError(t, o.Resolve(context.Background(), sc))
	assert.Len(t, o.Transcript(), 3)
}

func TestConversation_TranscriptIsCopy(t *testing.T) {
	o, _ := newSpeaking(t, llm.TextResponse("Hola."), turnResponse("Sí.", 1))
	require.NoError(t, o.Start(context.Background(), sc))
	require.NoError(t, o.Submit(context.Background(), sc, "Buenas tardes"))

	turns := o.Transcript()
	turns[1].Feedback.PronunciationTips[0].Word = "gato"
	turns[0].Text = "changed"
	assert.Equal(t, "perro", o.Transcript()[1].Feedback.PronunciationTips[0].Word)
	assert.Equal(t, "Hola.", o.Transcript()[0].Text)
}

func TestCatalog(t *testing.T) {
	c, err := LoadCatalog()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(c.Scenarios), 5)

	s, ok := c.Get("cafe")
	require.True(t, ok)
	assert.NotEmpty(t, s.Partner)

	a := c.Random(rand.New(rand.NewPCG(7, 7)))
	b := c.Random(rand.New(rand.NewPCG(7, 7)))
	assert.Equal(t, a, b)
}

func TestParseCatalog_Invalid(t *testing.T) {
	tests := map[string]string{
		"empty":     "scenarios: []",
		"missing":   "scenarios:\n  - id: a\n    setting: x\n",
		"duplicate": "scenarios:\n  - {id: a, setting: x, partner: y}\n  - {id: a, setting: x, partner: y}\n",
		"not yaml":  "scenarios: [",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(data))
			assert.Error(t, err)
		})
	}
}

// gatedGen counts calls and holds each reply until gate receives.
type gatedGen struct {
	calls chan struct{}
	gate  chan string
}

func (g gatedGen) Generate(ctx context.Context, p content.Prompt) (*content.Content, error) {
	g.calls <- struct{}{}
	return &content.Content{Text: <-g.gate}, nil
}

func TestConversation_OneResolveAtATime(t *testing.T) {
	g := gatedGen{calls: make(chan struct{}, 4), gate: make(chan string)}
	o := New(g, ModeChat, Options{ReplyDelay: -1})
	ctx := context.Background()
	require.NoError(t, o.Start(ctx, sc))
	_, err := o.Send("Quiero un café")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- o.Resolve(ctx, sc) }()
	<-g.calls

	assert.ErrorIs(t, o.Resolve(ctx, sc), engine.ErrBusy)
	_, err = o.Send("¿Y tú?")
	assert.ErrorIs(t, err, engine.ErrBusy)

	g.gate <- "Uno."
	require.NoError(t, <-done)

	turns := o.Transcript()
	require.Len(t, turns, 3)
	assert.Equal(t, "Uno.", turns[2].Text)
	assert.Len(t, g.calls, 0)
	assert.False(t, o.Pending())
}

func TestConversation_RestoredPendingBlocksSend(t *testing.T) {
	o, mock := newChat(t, llm.TextResponse("Perfecto."))
	require.NoError(t, o.Restore(Snapshot{Transcript: []exercise.Turn{
		{Role: exercise.RoleAssistant, Text: "Hola"},
		{Role: exercise.RoleUser, Text: "Buenas"},
	}}))

	_, err := o.Send("¿Hay alguien?")
	assert.ErrorIs(t, err, engine.ErrBusy)
	assert.Len(t, o.Transcript(), 2)

	require.NoError(t, o.Resolve(context.Background(), sc))
	assert.Len(t, o.Transcript(), 3)
	assert.Equal(t, 1, mock.CallCount())

	_, err = o.Send("¿Hay alguien?")
	require.NoError(t, err)
}

func TestConversation_ResetDuringResolveReportsDiscarded(t *testing.T) {
	g := gatedGen{calls: make(chan struct{}, 1), gate: make(chan string)}
	o := New(g, ModeChat, Options{ReplyDelay: -1})
	ctx := context.Background()
	require.NoError(t, o.Start(ctx, sc))
	_, err := o.Send("hola")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- o.Resolve(ctx, sc) }()
	<-g.calls
	o.Reset()
	g.gate <- "tarde"

	assert.ErrorIs(t, <-done, engine.ErrDiscarded)
	assert.Empty(t, o.Transcript())
}
