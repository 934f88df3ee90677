// Package engine runs the lifecycle of a single-task exercise surface:
// Idle → Generating → Ready → Submitted → Feedback. It owns the task,
// the answer and the verdict, and rejects new work while busy.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/abhisek/lingua/internal/exercise"
	"github.com/abhisek/lingua/internal/session"
	"github.com/abhisek/lingua/internal/validate"
)

// Source produces new tasks.
type Source[T exercise.Task] interface {
	Next(ctx context.Context, sc session.Context) (T, error)
}

// Checker produces a verdict for an answer.
type Checker[T exercise.Task] interface {
	Check(ctx context.Context, sc session.Context, task T, answer string) (exercise.Verdict, error)
}

// Event is delivered to the observer after every settled change.
type Event struct {
	Kind  exercise.Kind
	State State

	// Verdict is set only for the change that produced it.
	Verdict *exercise.Verdict
}

// Machine is the state machine for one surface. It is safe for
// concurrent use; the lock is never held across a model call.
type Machine[T exercise.Task] struct {
	kind    exercise.Kind
	source  Source[T]
	checker Checker[T]

	mu      sync.Mutex
	state   State
	task    *T
	draft   string
	answer  *exercise.Answer
	verdict *exercise.Verdict
	errMsg  string
	epoch   uint64
	observe func(Event)
}

// New returns an idle machine for kind.
func New[T exercise.Task](kind exercise.Kind, source Source[T], checker Checker[T]) *Machine[T] {
	return &Machine[T]{kind: kind, source: source, checker: checker}
}

// Kind returns the surface this machine drives.
func (m *Machine[T]) Kind() exercise.Kind { return m.kind }

// Observe registers fn to be called after every settled change. fn runs
// without the machine lock held.
func (m *Machine[T]) Observe(fn func(Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observe = fn
}

// State returns the current state.
func (m *Machine[T]) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Busy reports whether a request is in flight.
func (m *Machine[T]) Busy() bool {
	return m.State().Busy()
}

// Task returns the loaded task.
func (m *Machine[T]) Task() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.task == nil {
		var zero T
		return zero, false
	}
	return *m.task, true
}

// Answer returns the submitted answer, if any.
func (m *Machine[T]) Answer() *exercise.Answer {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.answer == nil {
		return nil
	}
	a := *m.answer
	return &a
}

// Verdict returns the verdict for the current task, if any.
func (m *Machine[T]) Verdict() *exercise.Verdict {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.verdict == nil {
		return nil
	}
	v := *m.verdict
	return &v
}

// Draft returns the unsubmitted input text.
func (m *Machine[T]) Draft() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.draft
}

// SetDraft records unsubmitted input while a task awaits an answer.
func (m *Machine[T]) SetDraft(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateReady {
		m.draft = text
	}
}

// Err returns the single error line for the surface, or "".
func (m *Machine[T]) Err() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errMsg
}

// Start loads a task if none is loaded. It does nothing when a task is
// already present, so entering a surface is lazy.
func (m *Machine[T]) Start(ctx context.Context, sc session.Context) error {
	m.mu.Lock()
	if m.state.Busy() {
		m.mu.Unlock()
		return ErrBusy
	}
	if m.task != nil {
		m.mu.Unlock()
		return nil
	}
	return m.generateLocked(ctx, sc)
}

// Regenerate discards the task, answer and verdict and requests a new
// task. It is the only way out of Feedback.
func (m *Machine[T]) Regenerate(ctx context.Context, sc session.Context) error {
	m.mu.Lock()
	if m.state.Busy() {
		m.mu.Unlock()
		return ErrBusy
	}
	return m.generateLocked(ctx, sc)
}

// generateLocked is entered with m.mu held and releases it.
func (m *Machine[T]) generateLocked(ctx context.Context, sc session.Context) error {
	m.task, m.answer, m.verdict = nil, nil, nil
	m.draft, m.errMsg = "", ""
	m.state = StateGenerating
	epoch := m.epoch
	m.mu.Unlock()

	task, err := m.source.Next(ctx, sc)

	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		slog.Debug("dropping task for reset surface", "kind", m.kind)
		return nil
	}
	if err != nil {
		m.state = StateIdle
		m.errMsg = Message(ctx, err)
		slog.Warn("task generation failed", "kind", m.kind, "error", err)
	} else {
		m.task = &task
		m.state = StateReady
	}
	ev := Event{Kind: m.kind, State: m.state}
	observe := m.observe
	m.mu.Unlock()

	if observe != nil {
		observe(ev)
	}
	return err
}

// Submit checks answer against the loaded task. A blank answer is
// rejected without leaving Ready. If checking fails the machine returns
// to Ready with the answer kept as the draft.
func (m *Machine[T]) Submit(ctx context.Context, sc session.Context, answer string) (*exercise.Verdict, error) {
	m.mu.Lock()
	switch {
	case m.state.Busy():
		m.mu.Unlock()
		return nil, ErrBusy
	case m.state == StateFeedback:
		m.mu.Unlock()
		return nil, ErrAnswered
	case m.state != StateReady || m.task == nil:
		m.mu.Unlock()
		return nil, ErrNoTask
	}
	if err := validate.CheckInput(answer); err != nil {
		m.errMsg = Message(ctx, err)
		m.mu.Unlock()
		return nil, err
	}

	task := *m.task
	m.answer = &exercise.Answer{TaskID: task.TaskID(), Value: answer}
	m.draft, m.errMsg = "", ""
	m.state = StateSubmitted
	epoch := m.epoch
	m.mu.Unlock()

	verdict, err := m.checker.Check(ctx, sc, task, answer)

	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return nil, ErrDiscarded
	}
	ev := Event{Kind: m.kind}
	if err != nil {
		m.state = StateReady
		m.answer = nil
		m.draft = answer
		m.errMsg = Message(ctx, err)
		slog.Warn("answer check failed", "kind", m.kind, "error", err)
	} else {
		m.verdict = &verdict
		m.state = StateFeedback
		v := verdict
		ev.Verdict = &v
	}
	ev.State = m.state
	observe := m.observe
	m.mu.Unlock()

	if observe != nil {
		observe(ev)
	}
	if err != nil {
		return nil, err
	}
	return &verdict, nil
}

// Reset clears the surface back to Idle. It is the explicit "new task"
// action and is allowed while busy; a result landing afterwards is
// dropped, and a Submit waiting on it returns ErrDiscarded.
func (m *Machine[T]) Reset() {
	m.mu.Lock()
	m.epoch++
	m.state = StateIdle
	m.task, m.answer, m.verdict = nil, nil, nil
	m.draft, m.errMsg = "", ""
	ev := Event{Kind: m.kind, State: m.state}
	observe := m.observe
	m.mu.Unlock()

	if observe != nil {
		observe(ev)
	}
}

// ClearError drops the error line.
func (m *Machine[T]) ClearError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errMsg = ""
}

// Snapshot is the persisted form of a surface.
type Snapshot[T exercise.Task] struct {
	State   State             `json:"state"`
	Task    *T                `json:"task,omitempty"`
	Draft   string            `json:"draft,omitempty"`
	Answer  *exercise.Answer  `json:"answer,omitempty"`
	Verdict *exercise.Verdict `json:"verdict,omitempty"`
}

// Snapshot returns a value copy of the surface state. In-flight states
// are recorded as the state they will fall back to on restore.
func (m *Machine[T]) Snapshot() Snapshot[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Snapshot[T]{State: m.state, Draft: m.draft}
	if m.task != nil {
		t := *m.task
		s.Task = &t
	}
	if m.answer != nil {
		a := *m.answer
		s.Answer = &a
	}
	if m.verdict != nil {
		v := *m.verdict
		s.Verdict = &v
	}
	switch m.state {
	case StateGenerating:
		s.State = StateIdle
		s.Task = nil
	case StateSubmitted:
		s.State = StateReady
		if s.Answer != nil {
			s.Draft = s.Answer.Value
		}
		s.Answer = nil
	}
	return s
}

// Restore replaces the surface state with s. Inconsistent snapshots are
// repaired toward the nearest valid state rather than rejected.
func (m *Machine[T]) Restore(s Snapshot[T]) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Busy() {
		return ErrBusy
	}

	m.epoch++
	m.task, m.answer, m.verdict = nil, nil, nil
	m.draft, m.errMsg = s.Draft, ""
	m.state = StateIdle

	if s.Task == nil {
		m.draft = ""
		return nil
	}
	t := *s.Task
	m.task = &t
	m.state = StateReady

	if s.State == StateFeedback && s.Verdict != nil && s.Answer != nil && s.Answer.TaskID == t.TaskID() {
		a, v := *s.Answer, *s.Verdict
		m.answer, m.verdict = &a, &v
		m.state = StateFeedback
		m.draft = ""
	}
	return nil
}

// IsBusy reports whether err is ErrBusy.
func IsBusy(err error) bool { return errors.Is(err, ErrBusy) }
