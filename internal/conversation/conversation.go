// Package conversation runs open chat and role-play speaking practice.
// The transcript only ever grows; each learner turn is answered by one
// model call that returns both feedback on that turn and the next line.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/abhisek/lingua/internal/content"
	"github.com/abhisek/lingua/internal/engine"
	"github.com/abhisek/lingua/internal/exercise"
	"github.com/abhisek/lingua/internal/i18n"
	"github.com/abhisek/lingua/internal/llm"
	"github.com/abhisek/lingua/internal/session"
	"github.com/abhisek/lingua/internal/validate"
)

// Mode selects chat or speaking practice.
type Mode string

const (
	ModeChat     Mode = "chat"
	ModeSpeaking Mode = "speaking"
)

var (
	ErrNotStarted = errors.New("conversation not started")
	ErrNoPending  = errors.New("no learner turn awaiting a reply")
)

// DefaultReplyDelay is the pause before an assistant turn is appended,
// so the UI can show a typing indicator.
const DefaultReplyDelay = 600 * time.Millisecond

// maxHistory bounds how many turns are sent with each call.
const maxHistory = 24

// Options configures an Orchestrator.
type Options struct {
	// Catalog supplies speaking scenarios. Required for ModeSpeaking.
	Catalog *Catalog

	// Rand picks scenarios. Nil uses the global source.
	Rand *rand.Rand

	// ReplyDelay overrides DefaultReplyDelay. Negative disables it.
	ReplyDelay time.Duration
}

// Event is delivered to the observer after every settled change.
type Event struct {
	Mode Mode

	// Feedback is set when a learner turn was graded.
	Feedback *exercise.SpeakingFeedback
}

// Orchestrator drives one conversation surface. It is safe for
// concurrent use; the lock is never held across a model call or the
// reply delay.
type Orchestrator struct {
	gen     content.Generator
	mode    Mode
	catalog *Catalog
	rng     *rand.Rand
	delay   time.Duration

	mu         sync.Mutex
	transcript []exercise.Turn
	scenario   *Scenario
	busy       bool
	resolving  bool
	pending    int // index of the user turn awaiting a reply, or -1
	errMsg     string
	epoch      uint64
	observe    func(Event)
}

// New returns an orchestrator with an empty transcript.
func New(gen content.Generator, mode Mode, opts Options) *Orchestrator {
	delay := opts.ReplyDelay
	if delay == 0 {
		delay = DefaultReplyDelay
	}
	return &Orchestrator{
		gen:     gen,
		mode:    mode,
		catalog: opts.Catalog,
		rng:     opts.Rand,
		delay:   delay,
		pending: -1,
	}
}

// Mode returns the conversation mode.
func (o *Orchestrator) Mode() Mode { return o.mode }

// Observe registers fn to be called after every settled change.
func (o *Orchestrator) Observe(fn func(Event)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observe = fn
}

// Start resets the transcript to a single opening assistant turn: a
// fixed greeting in chat, or the partner's first line for a random
// scenario in speaking practice.
func (o *Orchestrator) Start(ctx context.Context, sc session.Context) error {
	o.mu.Lock()
	if o.busy {
		o.mu.Unlock()
		return engine.ErrBusy
	}
	o.epoch++
	o.transcript = nil
	o.pending = -1
	o.resolving = false
	o.errMsg = ""
	o.scenario = nil

	if o.mode == ModeChat {
		o.transcript = []exercise.Turn{{
			Role: exercise.RoleAssistant,
			Text: i18n.In(sc.Settings.TargetLanguage, "ChatGreeting"),
		}}
		observe := o.observe
		o.mu.Unlock()
		o.notify(observe, Event{Mode: o.mode})
		return nil
	}

	if o.catalog == nil {
		o.mu.Unlock()
		return fmt.Errorf("speaking practice needs a scenario catalog")
	}
	scenario := o.catalog.Random(o.rng)
	o.scenario = &scenario
	o.busy = true
	epoch := o.epoch
	o.mu.Unlock()

	c, err := o.gen.Generate(ctx, content.Prompt{
		Text:    openingInstruction,
		System:  speakingSystemPrompt(sc.Settings, scenario),
		Purpose: llm.PurposeSpeaking,
	})
	opening := ""
	if err == nil {
		opening = strings.TrimSpace(c.Text)
		if opening == "" {
			err = content.DecodeError(fmt.Errorf("empty opening line"))
		}
	}

	o.mu.Lock()
	if o.epoch != epoch {
		o.mu.Unlock()
		return nil
	}
	o.busy = false
	if err != nil {
		slog.Warn("speaking opening failed", "scenario", scenario.ID, "error", err)
		opening = i18n.In(sc.Settings.TargetLanguage, "ChatGreeting")
		o.errMsg = engine.Message(ctx, err)
	}
	o.transcript = []exercise.Turn{{Role: exercise.RoleAssistant, Text: opening}}
	observe := o.observe
	o.mu.Unlock()

	o.notify(observe, Event{Mode: o.mode})
	return err
}

// Send appends the learner's turn right away and marks it as awaiting
// a reply. It returns the turn's index. Call Resolve to get the reply.
// A turn that is still awaiting its reply blocks new turns.
func (o *Orchestrator) Send(text string) (int, error) {
	if err := validate.CheckInput(text); err != nil {
		return -1, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.busy || o.pending >= 0 {
		return -1, engine.ErrBusy
	}
	if len(o.transcript) == 0 {
		return -1, ErrNotStarted
	}
	o.transcript = append(o.transcript, exercise.Turn{Role: exercise.RoleUser, Text: strings.TrimSpace(text)})
	o.pending = len(o.transcript) - 1
	o.busy = true
	o.errMsg = ""
	return o.pending, nil
}

type turnOutput struct {
	AccuracyScore     int                         `json:"accuracy_score"`
	PronunciationTips []exercise.PronunciationTip `json:"pronunciation_tips"`
	FluencyComment    string                      `json:"fluency_comment"`
	GrammarComment    string                      `json:"grammar_comment"`
	Reply             string                      `json:"reply"`
}

func checkTurn(out *turnOutput) error {
	if out.AccuracyScore < 0 || out.AccuracyScore > 100 {
		return fmt.Errorf("accuracy score %d out of range", out.AccuracyScore)
	}
	if len(out.PronunciationTips) > 3 {
		return fmt.Errorf("%d pronunciation tips, at most 3 allowed", len(out.PronunciationTips))
	}
	if strings.TrimSpace(out.Reply) == "" {
		return fmt.Errorf("reply is empty")
	}
	return nil
}

// Resolve answers the pending learner turn with one model call. On
// success feedback is attached to that turn and the reply is appended
// after the reply delay. A malformed reply appends a filler turn and a
// transport failure an apology, so the conversation never stalls.
// Only one Resolve runs at a time; a second one gets engine.ErrBusy.
func (o *Orchestrator) Resolve(ctx context.Context, sc session.Context) error {
	o.mu.Lock()
	if o.pending < 0 {
		o.mu.Unlock()
		return ErrNoPending
	}
	if o.resolving {
		o.mu.Unlock()
		return engine.ErrBusy
	}
	o.resolving = true
	o.busy = true
	pending := o.pending
	history := o.historyLocked()
	scenario := o.scenario
	epoch := o.epoch
	o.mu.Unlock()

	reply, feedback, err := o.respond(ctx, sc, history, scenario)
	if err != nil {
		key := "ChatApology"
		if errors.Is(err, content.ErrDecode) {
			key = "ChatFiller"
		}
		slog.Warn("conversation turn failed", "mode", o.mode, "error", err)
		reply, feedback = i18n.In(sc.Settings.TargetLanguage, key), nil
	}

	o.mu.Lock()
	if o.epoch != epoch {
		o.mu.Unlock()
		return engine.ErrDiscarded
	}
	if feedback != nil && o.transcript[pending].Role == exercise.RoleUser && o.transcript[pending].Feedback == nil {
		o.transcript[pending].Feedback = feedback
	}
	o.mu.Unlock()

	o.wait(ctx)

	o.mu.Lock()
	if o.epoch != epoch {
		o.mu.Unlock()
		return engine.ErrDiscarded
	}
	o.transcript = append(o.transcript, exercise.Turn{Role: exercise.RoleAssistant, Text: reply})
	o.pending = -1
	o.resolving = false
	o.busy = false
	observe := o.observe
	o.mu.Unlock()

	o.notify(observe, Event{Mode: o.mode, Feedback: feedback})
	return nil
}

// Submit is Send followed by Resolve.
func (o *Orchestrator) Submit(ctx context.Context, sc session.Context, text string) error {
	if _, err := o.Send(text); err != nil {
		return err
	}
	return o.Resolve(ctx, sc)
}

func (o *Orchestrator) respond(ctx context.Context, sc session.Context, history []llm.Message, scenario *Scenario) (string, *exercise.SpeakingFeedback, error) {
	if o.mode == ModeChat || scenario == nil {
		c, err := o.gen.Generate(ctx, content.Prompt{
			System:  chatSystemPrompt(sc.Settings),
			History: history,
			Purpose: llm.PurposeChat,
		})
		if err != nil {
			return "", nil, err
		}
		reply := strings.TrimSpace(c.Text)
		if reply == "" {
			return "", nil, content.DecodeError(fmt.Errorf("empty reply"))
		}
		return reply, nil, nil
	}

	c, err := o.gen.Generate(ctx, content.Prompt{
		System:  speakingSystemPrompt(sc.Settings, *scenario) + feedbackInstruction,
		History: history,
		Schema:  TurnSchema,
		Purpose: llm.PurposeSpeaking,
	})
	if err != nil {
		return "", nil, err
	}
	out, err := content.Decode[turnOutput](c, checkTurn)
	if err != nil {
		return "", nil, err
	}
	return strings.TrimSpace(out.Reply), &exercise.SpeakingFeedback{
		AccuracyScore:     out.AccuracyScore,
		PronunciationTips: out.PronunciationTips,
		FluencyComment:    out.FluencyComment,
		GrammarComment:    out.GrammarComment,
	}, nil
}

// historyLocked converts the most recent turns to model messages. The
// first message sent must come from the user, so a leading assistant
// turn is carried in the system prompt's place as an assistant message
// after a short user cue.
func (o *Orchestrator) historyLocked() []llm.Message {
	turns := o.transcript
	if len(turns) > maxHistory {
		turns = turns[len(turns)-maxHistory:]
	}
	msgs := make([]llm.Message, 0, len(turns)+1)
	if len(turns) > 0 && turns[0].Role == exercise.RoleAssistant {
		msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: "(start)"})
	}
	for _, t := range turns {
		role := llm.RoleUser
		if t.Role == exercise.RoleAssistant {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Content: t.Text})
	}
	return msgs
}

func (o *Orchestrator) wait(ctx context.Context) {
	if o.delay <= 0 {
		return
	}
	t := time.NewTimer(o.delay)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func (o *Orchestrator) notify(fn func(Event), ev Event) {
	if fn != nil {
		fn(ev)
	}
}

// Reset clears the transcript. A reply still in flight is dropped.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	o.epoch++
	o.transcript = nil
	o.scenario = nil
	o.pending = -1
	o.resolving = false
	o.busy = false
	o.errMsg = ""
	observe := o.observe
	o.mu.Unlock()
	o.notify(observe, Event{Mode: o.mode})
}

// Transcript returns a copy of the turns.
func (o *Orchestrator) Transcript() []exercise.Turn {
	o.mu.Lock()
	defer o.mu.Unlock()
	return cloneTurns(o.transcript)
}

// Scenario returns the active role-play scenario, if any.
func (o *Orchestrator) Scenario() *Scenario {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.scenario == nil {
		return nil
	}
	s := *o.scenario
	return &s
}

// Busy reports whether a reply is in flight.
func (o *Orchestrator) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.busy
}

// Pending reports whether a learner turn is awaiting a reply.
func (o *Orchestrator) Pending() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.pending >= 0
}

// Started reports whether the conversation has an opening turn.
func (o *Orchestrator) Started() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.transcript) > 0
}

// Err returns the single error line, or "".
func (o *Orchestrator) Err() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.errMsg
}

// Snapshot is the persisted form of a conversation.
type Snapshot struct {
	Scenario   *Scenario       `json:"scenario,omitempty"`
	Transcript []exercise.Turn `json:"transcript,omitempty"`
}

// Snapshot returns a value copy of the conversation.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := Snapshot{Transcript: cloneTurns(o.transcript)}
	if o.scenario != nil {
		sc := *o.scenario
		s.Scenario = &sc
	}
	return s
}

// Restore replaces the conversation with s. Feedback found on assistant
// turns is dropped, and a trailing learner turn is left pending so the
// caller can Resolve it.
func (o *Orchestrator) Restore(s Snapshot) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.busy {
		return engine.ErrBusy
	}
	o.epoch++
	o.transcript = cloneTurns(s.Transcript)
	for i := range o.transcript {
		if o.transcript[i].Role != exercise.RoleUser {
			o.transcript[i].Feedback = nil
		}
	}
	o.scenario = nil
	if s.Scenario != nil {
		sc := *s.Scenario
		o.scenario = &sc
	}
	o.pending = -1
	o.resolving = false
	if n := len(o.transcript); n > 0 && o.transcript[n-1].Role == exercise.RoleUser {
		o.pending = n - 1
	}
	o.errMsg = ""
	return nil
}

func cloneTurns(turns []exercise.Turn) []exercise.Turn {
	out := slices.Clone(turns)
	for i := range out {
		if out[i].Feedback != nil {
			fb := *out[i].Feedback
			fb.PronunciationTips = slices.Clone(fb.PronunciationTips)
			out[i].Feedback = &fb
		}
	}
	return out
}
