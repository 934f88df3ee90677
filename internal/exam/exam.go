// Package exam runs a fixed-length, multi-question assessment: one call
// generates every question, answers are kept per question id while the
// learner moves back and forth, and one call grades the whole attempt.
package exam

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/lingua/internal/content"
	"github.com/abhisek/lingua/internal/engine"
	"github.com/abhisek/lingua/internal/exercise"
	"github.com/abhisek/lingua/internal/i18n"
	"github.com/abhisek/lingua/internal/llm"
	"github.com/abhisek/lingua/internal/session"
	"github.com/abhisek/lingua/internal/speech"
)

// Phase is the exam lifecycle position.
type Phase int

const (
	PhaseSetup Phase = iota
	PhaseInProgress
	PhaseResults
)

func (p Phase) String() string {
	switch p {
	case PhaseSetup:
		return "setup"
	case PhaseInProgress:
		return "in-progress"
	case PhaseResults:
		return "results"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Type is the exam focus.
type Type string

const (
	TypeMixed      Type = "mixed"
	TypeGrammar    Type = "grammar"
	TypeVocabulary Type = "vocabulary"
	TypeReading    Type = "reading"
	TypeListening  Type = "listening"
)

// Types lists exam types in menu order.
var Types = []Type{TypeMixed, TypeGrammar, TypeVocabulary, TypeReading, TypeListening}

// QuestionCounts are the allowed exam lengths.
var QuestionCounts = []int{5, 10, 15}

// Setup is chosen before an exam starts.
type Setup struct {
	Type          Type `json:"type"`
	QuestionCount int  `json:"question_count"`
}

// Validate checks the setup.
func (s Setup) Validate() error {
	if !slices.Contains(QuestionCounts, s.QuestionCount) {
		return fmt.Errorf("%w: question count %d", ErrInvalidSetup, s.QuestionCount)
	}
	if !slices.Contains(Types, s.Type) {
		return fmt.Errorf("%w: exam type %q", ErrInvalidSetup, s.Type)
	}
	return nil
}

var (
	ErrInvalidSetup  = errors.New("invalid exam setup")
	ErrWrongPhase    = errors.New("not allowed in this phase")
	ErrNoAnswer      = errors.New("current question has no answer")
	ErrLastQuestion  = errors.New("already at the last question")
	ErrFirstQuestion = errors.New("already at the first question")
	ErrNotLast       = errors.New("submit is only allowed on the last question")
)

// Event is delivered to the observer after every settled change.
type Event struct {
	Phase Phase

	// Result is set once, when grading succeeds.
	Result *Result
}

// Result is a graded exam.
type Result struct {
	ID      string
	Setup   Setup
	Verdict exercise.ExamVerdict
	TakenAt time.Time
}

// Orchestrator drives one exam surface. It is safe for concurrent use;
// the lock is never held across a model call.
type Orchestrator struct {
	gen     content.Generator
	speaker speech.Speaker
	now     func() time.Time

	mu        sync.Mutex
	phase     Phase
	busy      bool
	setup     Setup
	id        string
	questions []exercise.ExamQuestion
	current   int
	input     string
	answers   map[int]string
	verdict   *exercise.ExamVerdict
	errMsg    string
	epoch     uint64
	observe   func(Event)
}

// New returns an orchestrator in Setup. speaker may be nil.
func New(gen content.Generator, speaker speech.Speaker) *Orchestrator {
	if speaker == nil {
		speaker = speech.NopSpeaker{}
	}
	return &Orchestrator{
		gen:     gen,
		speaker: speaker,
		now:     time.Now,
		answers: make(map[int]string),
	}
}

// Observe registers fn to be called after every settled change.
func (o *Orchestrator) Observe(fn func(Event)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observe = fn
}

type questionsOutput struct {
	Questions []exercise.ExamQuestion `json:"questions"`
}

// Begin generates the exam in a single call. On failure the orchestrator
// stays in Setup with one error line.
func (o *Orchestrator) Begin(ctx context.Context, sc session.Context, setup Setup) error {
	if err := setup.Validate(); err != nil {
		return err
	}

	o.mu.Lock()
	if o.busy {
		o.mu.Unlock()
		return engine.ErrBusy
	}
	if o.phase != PhaseSetup {
		o.mu.Unlock()
		return ErrWrongPhase
	}
	o.busy = true
	o.setup = setup
	o.errMsg = ""
	epoch := o.epoch
	o.mu.Unlock()

	questions, err := o.generate(ctx, sc, setup)

	o.mu.Lock()
	if o.epoch != epoch {
		o.mu.Unlock()
		return nil
	}
	o.busy = false
	if err != nil {
		o.errMsg = engine.Message(ctx, err)
		slog.Warn("exam generation failed", "type", setup.Type, "error", err)
	} else {
		o.phase = PhaseInProgress
		o.id = uuid.NewString()
		o.questions = questions
		o.answers = make(map[int]string)
		o.current = 0
		o.input = ""
		o.verdict = nil
	}
	ev := Event{Phase: o.phase}
	observe := o.observe
	first := o.currentQuestionLocked()
	o.mu.Unlock()

	if err == nil {
		o.announce(first)
	}
	if observe != nil {
		observe(ev)
	}
	return err
}

func (o *Orchestrator) generate(ctx context.Context, sc session.Context, setup Setup) ([]exercise.ExamQuestion, error) {
	c, err := o.gen.Generate(ctx, content.Prompt{
		Text:      buildGenerateMessage(setup),
		System:    exercise.SystemPrompt(sc.Settings, generateInstruction),
		Schema:    QuestionsSchema,
		Purpose:   llm.PurposeExamGenerate,
		MaxTokens: 300 * setup.QuestionCount,
	})
	if err != nil {
		return nil, err
	}
	out, err := content.Decode[questionsOutput](c, checkQuestions(setup.QuestionCount))
	if err != nil {
		return nil, err
	}
	return out.Questions, nil
}

// checkQuestions verifies count, kinds and options. Ids are taken as
// given; only questionable numbering is logged.
func checkQuestions(count int) func(*questionsOutput) error {
	return func(out *questionsOutput) error {
		if len(out.Questions) != count {
			return fmt.Errorf("expected %d questions, got %d", count, len(out.Questions))
		}
		for i := range out.Questions {
			q := &out.Questions[i]
			if strings.TrimSpace(q.Text) == "" {
				return fmt.Errorf("question %d has no text", q.ID)
			}
			switch q.Kind {
			case exercise.QuestionMCQ:
				if len(q.Options) != 4 {
					return fmt.Errorf("mcq question %d has %d options, want 4", q.ID, len(q.Options))
				}
			case exercise.QuestionWriting, exercise.QuestionSpeaking, exercise.QuestionListening:
				if len(q.Options) != 0 {
					return fmt.Errorf("%s question %d must not have options", q.Kind, q.ID)
				}
				q.Options = nil
			default:
				return fmt.Errorf("question %d has unknown kind %q", q.ID, q.Kind)
			}
			if q.ID != i+1 {
				slog.Warn("exam question ids are not sequential", "position", i+1, "id", q.ID)
			}
		}
		return nil
	}
}

// SetInput replaces the answer field of the current question.
func (o *Orchestrator) SetInput(text string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.phase != PhaseInProgress || o.busy {
		return ErrWrongPhase
	}
	o.input = text
	return nil
}

// Choose selects option i of the current mcq question.
func (o *Orchestrator) Choose(i int) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.phase != PhaseInProgress || o.busy {
		return ErrWrongPhase
	}
	q := o.questions[o.current]
	if q.Kind != exercise.QuestionMCQ || i < 0 || i >= len(q.Options) {
		return fmt.Errorf("no option %d on question %d", i, q.ID)
	}
	o.input = q.Options[i]
	return nil
}

// CanAdvance reports whether the current question has an answer.
func (o *Orchestrator) CanAdvance() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase == PhaseInProgress && !o.busy && strings.TrimSpace(o.input) != ""
}

// Next commits the current answer, replacing any earlier answer for the
// same question id, moves forward and restores that question's answer.
func (o *Orchestrator) Next() error {
	o.mu.Lock()
	if o.phase != PhaseInProgress || o.busy {
		o.mu.Unlock()
		return ErrWrongPhase
	}
	if strings.TrimSpace(o.input) == "" {
		o.mu.Unlock()
		return ErrNoAnswer
	}
	if o.current == len(o.questions)-1 {
		o.mu.Unlock()
		return ErrLastQuestion
	}
	o.commitLocked()
	o.current++
	o.input = o.answers[o.questions[o.current].ID]
	q := o.questions[o.current]
	o.mu.Unlock()

	o.announce(q)
	return nil
}

// Back commits a non-empty answer and moves to the previous question,
// restoring its answer.
func (o *Orchestrator) Back() error {
	o.mu.Lock()
	if o.phase != PhaseInProgress || o.busy {
		o.mu.Unlock()
		return ErrWrongPhase
	}
	if o.current == 0 {
		o.mu.Unlock()
		return ErrFirstQuestion
	}
	if strings.TrimSpace(o.input) != "" {
		o.commitLocked()
	}
	o.current--
	o.input = o.answers[o.questions[o.current].ID]
	q := o.questions[o.current]
	o.mu.Unlock()

	o.announce(q)
	return nil
}

func (o *Orchestrator) commitLocked() {
	o.answers[o.questions[o.current].ID] = o.input
}

// Submit commits the last answer, moves to Results and grades the whole
// exam in one call. If grading fails the exam is discarded and the
// orchestrator returns to Setup.
func (o *Orchestrator) Submit(ctx context.Context, sc session.Context) (*exercise.ExamVerdict, error) {
	o.mu.Lock()
	switch {
	case o.busy:
		o.mu.Unlock()
		return nil, engine.ErrBusy
	case o.phase != PhaseInProgress:
		o.mu.Unlock()
		return nil, ErrWrongPhase
	case o.current != len(o.questions)-1:
		o.mu.Unlock()
		return nil, ErrNotLast
	case strings.TrimSpace(o.input) == "":
		o.mu.Unlock()
		return nil, ErrNoAnswer
	}
	o.commitLocked()
	o.phase = PhaseResults
	o.busy = true
	o.errMsg = ""
	setup := o.setup
	questions := slices.Clone(o.questions)
	answers := maps.Clone(o.answers)
	epoch := o.epoch
	o.mu.Unlock()

	verdict, err := o.grade(ctx, sc, setup, questions, answers)

	o.mu.Lock()
	if o.epoch != epoch {
		o.mu.Unlock()
		return nil, engine.ErrDiscarded
	}
	o.busy = false
	ev := Event{}
	if err != nil {
		slog.Warn("exam grading failed", "exam", o.id, "error", err)
		o.resetLocked()
		o.errMsg = i18n.T(ctx, "ErrGradingFailed")
	} else {
		o.verdict = verdict
		ev.Result = &Result{ID: o.id, Setup: setup, Verdict: *verdict, TakenAt: o.now().UTC()}
	}
	ev.Phase = o.phase
	observe := o.observe
	o.mu.Unlock()

	if observe != nil {
		observe(ev)
	}
	if err != nil {
		return nil, err
	}
	return verdict, nil
}

type resultOutput struct {
	OverallScore int    `json:"overall_score"`
	Summary      string `json:"summary"`
	Feedback     []struct {
		QuestionID int    `json:"question_id"`
		Correct    bool   `json:"correct"`
		Feedback   string `json:"feedback"`
	} `json:"feedback"`
}

func checkResult(out *resultOutput) error {
	if out.OverallScore < 0 || out.OverallScore > 100 {
		return fmt.Errorf("overall score %d out of range", out.OverallScore)
	}
	return nil
}

func (o *Orchestrator) grade(ctx context.Context, sc session.Context, setup Setup, questions []exercise.ExamQuestion, answers map[int]string) (*exercise.ExamVerdict, error) {
	c, err := o.gen.Generate(ctx, content.Prompt{
		Text:        buildGradeMessage(setup, questions, answers),
		System:      exercise.SystemPrompt(sc.Settings, gradeInstruction),
		Schema:      ResultSchema,
		Purpose:     llm.PurposeExamGrade,
		MaxTokens:   200 * len(questions),
		Temperature: 0.2,
	})
	if err != nil {
		return nil, err
	}
	out, err := content.Decode[resultOutput](c, checkResult)
	if err != nil {
		return nil, err
	}
	return align(ctx, out, questions, answers), nil
}

// align builds per-question feedback in question order, matching the
// model's entries by question id. Questions the model skipped get a
// placeholder entry.
func align(ctx context.Context, out *resultOutput, questions []exercise.ExamQuestion, answers map[int]string) *exercise.ExamVerdict {
	type graded struct {
		correct  bool
		feedback string
	}
	byID := make(map[int]graded, len(out.Feedback))
	for _, f := range out.Feedback {
		if _, dup := byID[f.QuestionID]; !dup {
			byID[f.QuestionID] = graded{correct: f.Correct, feedback: f.Feedback}
		}
	}

	v := &exercise.ExamVerdict{
		OverallScore: out.OverallScore,
		Summary:      out.Summary,
		PerQuestion:  make([]exercise.QuestionFeedback, 0, len(questions)),
	}
	for _, q := range questions {
		qf := exercise.QuestionFeedback{
			QuestionID:   q.ID,
			QuestionText: q.Text,
			UserAnswer:   answers[q.ID],
		}
		if g, ok := byID[q.ID]; ok {
			qf.Correct = g.correct
			qf.Feedback = g.feedback
		} else {
			qf.Feedback = i18n.T(ctx, "NoFeedback")
		}
		v.PerQuestion = append(v.PerQuestion, qf)
	}
	return v
}

// Restart discards the exam and returns to Setup. A request still in
// flight is dropped when it lands.
func (o *Orchestrator) Restart() {
	o.mu.Lock()
	o.resetLocked()
	o.errMsg = ""
	ev := Event{Phase: o.phase}
	observe := o.observe
	o.mu.Unlock()

	if observe != nil {
		observe(ev)
	}
}

func (o *Orchestrator) resetLocked() {
	o.epoch++
	o.phase = PhaseSetup
	o.busy = false
	o.id = ""
	o.questions = nil
	o.answers = make(map[int]string)
	o.current = 0
	o.input = ""
	o.verdict = nil
}

func (o *Orchestrator) currentQuestionLocked() exercise.ExamQuestion {
	if o.current < len(o.questions) {
		return o.questions[o.current]
	}
	return exercise.ExamQuestion{}
}

// announce reads listening questions aloud.
func (o *Orchestrator) announce(q exercise.ExamQuestion) {
	if q.Kind == exercise.QuestionListening {
		o.speaker.Speak(q.Text)
	}
}

// Replay reads the current listening question aloud again.
func (o *Orchestrator) Replay() {
	o.mu.Lock()
	q := o.currentQuestionLocked()
	o.mu.Unlock()
	o.announce(q)
}

// Phase returns the current phase.
func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

// Busy reports whether generation or grading is in flight.
func (o *Orchestrator) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.busy
}

// Setup returns the chosen setup.
func (o *Orchestrator) Setup() Setup {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.setup
}

// Current returns the current question, its index and the question count.
func (o *Orchestrator) Current() (exercise.ExamQuestion, int, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.currentQuestionLocked(), o.current, len(o.questions)
}

// Input returns the answer field of the current question.
func (o *Orchestrator) Input() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.input
}

// Answers returns a copy of the committed answers keyed by question id.
func (o *Orchestrator) Answers() map[int]string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return maps.Clone(o.answers)
}

// Verdict returns the graded result once available.
func (o *Orchestrator) Verdict() *exercise.ExamVerdict {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.verdict == nil {
		return nil
	}
	v := *o.verdict
	v.PerQuestion = slices.Clone(o.verdict.PerQuestion)
	return &v
}

// Err returns the single error line, or "".
func (o *Orchestrator) Err() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.errMsg
}

// Snapshot is the persisted form of the exam surface.
type Snapshot struct {
	Phase     Phase                   `json:"phase"`
	Setup     Setup                   `json:"setup"`
	ID        string                  `json:"id,omitempty"`
	Questions []exercise.ExamQuestion `json:"questions,omitempty"`
	Current   int                     `json:"current"`
	Input     string                  `json:"input,omitempty"`
	Answers   map[int]string          `json:"answers,omitempty"`
	Verdict   *exercise.ExamVerdict   `json:"verdict,omitempty"`
}

// Snapshot returns a value copy of the exam. An exam being graded is
// recorded as in progress on its last question so it can be resubmitted.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := Snapshot{
		Phase:     o.phase,
		Setup:     o.setup,
		ID:        o.id,
		Questions: slices.Clone(o.questions),
		Current:   o.current,
		Input:     o.input,
		Answers:   maps.Clone(o.answers),
	}
	if o.verdict != nil {
		v := *o.verdict
		v.PerQuestion = slices.Clone(o.verdict.PerQuestion)
		s.Verdict = &v
	}
	if o.phase == PhaseResults && o.verdict == nil {
		s.Phase = PhaseInProgress
	}
	return s
}

// Restore replaces the exam state with s, falling back to Setup when
// the snapshot does not describe a usable exam.
func (o *Orchestrator) Restore(s Snapshot) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.busy {
		return engine.ErrBusy
	}
	o.resetLocked()
	o.setup = s.Setup
	o.errMsg = ""

	if len(s.Questions) == 0 || s.Phase == PhaseSetup {
		return nil
	}
	if s.Phase == PhaseResults && s.Verdict == nil {
		s.Phase = PhaseInProgress
	}
	o.phase = s.Phase
	o.id = s.ID
	o.questions = slices.Clone(s.Questions)
	if s.Answers != nil {
		o.answers = maps.Clone(s.Answers)
	}
	o.current = min(max(s.Current, 0), len(o.questions)-1)
	o.input = s.Input
	if s.Verdict != nil && o.phase == PhaseResults {
		v := *s.Verdict
		o.verdict = &v
	}
	return nil
}
