// Package workspace holds every practice surface for one signed-in
// learner. It rehydrates surfaces from the stored record, creates them
// lazily on first use and saves the whole record after every settled
// change.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/abhisek/lingua/internal/content"
	"github.com/abhisek/lingua/internal/conversation"
	"github.com/abhisek/lingua/internal/engine"
	"github.com/abhisek/lingua/internal/exam"
	"github.com/abhisek/lingua/internal/exercise"
	"github.com/abhisek/lingua/internal/i18n"
	"github.com/abhisek/lingua/internal/progress"
	"github.com/abhisek/lingua/internal/session"
	"github.com/abhisek/lingua/internal/speech"
	"github.com/abhisek/lingua/internal/validate"
)

// Surface names one practice area.
type Surface string

const (
	SurfaceExam     Surface = "exam"
	SurfaceChat     Surface = "chat"
	SurfaceSpeaking Surface = "speaking"
)

// ExerciseSurface returns the surface for a single-task kind.
func ExerciseSurface(k exercise.Kind) Surface { return Surface(k) }

// Surfaces lists every surface in menu order.
func Surfaces() []Surface {
	out := make([]Surface, 0, len(exercise.Kinds)+3)
	for _, k := range exercise.Kinds {
		out = append(out, ExerciseSurface(k))
	}
	return append(out, SurfaceExam, SurfaceChat, SurfaceSpeaking)
}

// Title is the menu label for s.
func (s Surface) Title() string {
	switch s {
	case SurfaceExam:
		return "Exam Mode"
	case SurfaceChat:
		return "Chat Partner"
	case SurfaceSpeaking:
		return "Speaking Practice"
	}
	return exercise.Kind(s).Title()
}

var (
	ErrUnknownSurface = errors.New("unknown surface")
	ErrClosed         = errors.New("workspace closed")
)

// Deps are the collaborators shared by every surface.
type Deps struct {
	Generator content.Generator
	Store     *session.Store[Record]

	// Speaker reads listening questions aloud. Nil is silent.
	Speaker speech.Speaker

	// Catalog supplies role-play scenarios. Nil loads the embedded one.
	Catalog *conversation.Catalog

	// Rand seeds shuffles and scenario picks. It is not safe for
	// concurrent use, so leave it nil outside tests.
	Rand *rand.Rand

	Exercise   exercise.Config
	ReplyDelay time.Duration
}

// Notice reports progress worth telling the learner about.
type Notice struct {
	Surface Surface

	// Milestone is a streak length just reached, or 0.
	Milestone int

	// Exam is set when an exam was graded.
	Exam *progress.ExamResult
}

// Workspace owns the surfaces of one session.
type Workspace struct {
	deps    Deps
	ctx     context.Context
	cancel  context.CancelFunc
	now     func() time.Time
	catalog *conversation.Catalog

	// saveMu serializes record writes; it is taken before mu.
	saveMu sync.Mutex

	mu       sync.Mutex
	sc       session.Context
	rec      Record
	active   Surface
	closed   bool
	onNotice func(Notice)

	story       *engine.Machine[exercise.StoryTask]
	sentence    *engine.Machine[exercise.SentenceTask]
	grammar     *engine.Machine[exercise.GrammarTask]
	idiom       *engine.Machine[exercise.IdiomTask]
	translation *engine.Machine[exercise.TranslationTask]
	writing     *engine.Machine[exercise.WritingTask]
	exam        *exam.Orchestrator
	chat        *conversation.Orchestrator
	speaking    *conversation.Orchestrator
}

// Open loads the learner's record and returns a workspace for it. A
// stored record's settings replace those in sc.
func Open(ctx context.Context, sc session.Context, deps Deps) (*Workspace, error) {
	if deps.Generator == nil || deps.Store == nil {
		return nil, fmt.Errorf("workspace needs a generator and a store")
	}
	if deps.Exercise == (exercise.Config{}) {
		deps.Exercise = exercise.DefaultConfig()
	}
	catalog := deps.Catalog
	if catalog == nil {
		c, err := conversation.LoadCatalog()
		if err != nil {
			return nil, err
		}
		catalog = c
	}

	rec, err := deps.Store.Load(ctx, sc)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if rec == nil {
		rec = &Record{Settings: sc.Settings}
	} else if err := rec.Settings.Normalize().Validate(); err == nil {
		sc = session.NewContext(sc.UserID, rec.Settings, sc.Incognito)
	} else {
		slog.Warn("stored settings invalid, using defaults", "user", sc.UserID, "error", err)
	}
	rec.Settings = sc.Settings

	base, cancel := context.WithCancel(i18n.WithLanguage(context.Background(), sc.Settings.NativeLanguage))
	w := &Workspace{
		deps:    deps,
		ctx:     base,
		cancel:  cancel,
		now:     time.Now,
		catalog: catalog,
		sc:      sc,
		rec:     *rec,
		active:  rec.Active,
	}
	slog.Info("workspace opened", "user", sc.UserID, "incognito", sc.Incognito, "restored", rec.Active != "")
	return w, nil
}

// Context carries the localizer for the learner's current native
// language. It is cancelled by Close.
func (w *Workspace) Context() context.Context {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.contextLocked()
}

func (w *Workspace) contextLocked() context.Context {
	return i18n.WithLanguage(w.ctx, w.sc.Settings.NativeLanguage)
}

// Session returns the current session context.
func (w *Workspace) Session() session.Context {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sc
}

// OnNotice registers fn for streak milestones and graded exams.
func (w *Workspace) OnNotice(fn func(Notice)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onNotice = fn
}

// Active returns the surface last entered.
func (w *Workspace) Active() Surface {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active
}

// Progress returns a copy of the learner's progress.
func (w *Workspace) Progress() progress.Tracker {
	w.mu.Lock()
	defer w.mu.Unlock()
	t := progress.Tracker{Exams: append([]progress.ExamResult(nil), w.rec.Progress.Exams...)}
	for _, name := range w.rec.Progress.SurfaceNames() {
		s := w.rec.Progress.Get(name)
		if t.Surfaces == nil {
			t.Surfaces = make(map[string]*progress.Stats)
		}
		t.Surfaces[name] = &s
	}
	return t
}

// Enter makes s the active surface, creating its state on first use.
// Single-task surfaces with no task start generating one.
func (w *Workspace) Enter(s Surface) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	if !known(s) {
		w.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownSurface, s)
	}
	w.active = s
	start := w.surfaceLocked(s)
	w.mu.Unlock()

	w.Persist()
	if start != nil {
		return start()
	}
	return nil
}

// surfaceLocked creates the state for s if needed and returns the
// action that starts it, if any.
func (w *Workspace) surfaceLocked(s Surface) func() error {
	sc := w.sc
	switch s {
	case SurfaceExam:
		w.examLocked()
		return nil
	case SurfaceChat, SurfaceSpeaking:
		o := w.conversationLocked(s)
		if o.Started() {
			return nil
		}
		ctx := w.contextLocked()
		return func() error { return o.Start(ctx, sc) }
	}
	m := w.exerciseLocked(exercise.Kind(s))
	ctx := w.contextLocked()
	return func() error { return m.Start(ctx, sc) }
}

// starter is the part of engine.Machine the workspace drives generically.
type starter interface {
	Start(ctx context.Context, sc session.Context) error
	Reset()
}

func (w *Workspace) exerciseLocked(k exercise.Kind) starter {
	gen, cfg, r := w.deps.Generator, w.deps.Exercise, w.deps.Rand
	switch k {
	case exercise.KindStory:
		return ensure(w, &w.story, k, w.rec.Story, func() (engine.Source[exercise.StoryTask], engine.Checker[exercise.StoryTask]) {
			return exercise.NewStorySource(gen, cfg), validate.NewStoryGrader(gen)
		})
	case exercise.KindSentence:
		return ensure(w, &w.sentence, k, w.rec.Sentence, func() (engine.Source[exercise.SentenceTask], engine.Checker[exercise.SentenceTask]) {
			return exercise.NewSentenceSource(gen, cfg, r), validate.Sentence{}
		})
	case exercise.KindGrammar:
		return ensure(w, &w.grammar, k, w.rec.Grammar, func() (engine.Source[exercise.GrammarTask], engine.Checker[exercise.GrammarTask]) {
			return exercise.NewGrammarSource(gen, cfg), validate.Grammar{}
		})
	case exercise.KindIdiom:
		return ensure(w, &w.idiom, k, w.rec.Idiom, func() (engine.Source[exercise.IdiomTask], engine.Checker[exercise.IdiomTask]) {
			return exercise.NewIdiomSource(gen, cfg, r), validate.Idiom{}
		})
	case exercise.KindTranslation:
		return ensure(w, &w.translation, k, w.rec.Translation, func() (engine.Source[exercise.TranslationTask], engine.Checker[exercise.TranslationTask]) {
			return exercise.NewTranslationSource(gen, cfg), validate.NewTranslationGrader(gen)
		})
	default:
		return ensure(w, &w.writing, k, w.rec.Writing, func() (engine.Source[exercise.WritingTask], engine.Checker[exercise.WritingTask]) {
			return exercise.NewWritingSource(gen, cfg), validate.NewWritingGrader(gen)
		})
	}
}

func ensure[T exercise.Task](w *Workspace, slot **engine.Machine[T], k exercise.Kind, snap *engine.Snapshot[T], build func() (engine.Source[T], engine.Checker[T])) *engine.Machine[T] {
	if *slot != nil {
		return *slot
	}
	src, chk := build()
	m := engine.New(k, src, chk)
	if snap != nil {
		if err := m.Restore(*snap); err != nil {
			slog.Warn("restore surface failed", "surface", k, "error", err)
		}
	}
	m.Observe(w.exerciseSettled)
	*slot = m
	return m
}

func (w *Workspace) examLocked() *exam.Orchestrator {
	if w.exam != nil {
		return w.exam
	}
	o := exam.New(w.deps.Generator, w.deps.Speaker)
	if w.rec.Exam != nil {
		if err := o.Restore(*w.rec.Exam); err != nil {
			slog.Warn("restore exam failed", "error", err)
		}
	}
	o.Observe(w.examSettled)
	w.exam = o
	return o
}

func (w *Workspace) conversationLocked(s Surface) *conversation.Orchestrator {
	slot, snap, mode := &w.chat, w.rec.Chat, conversation.ModeChat
	if s == SurfaceSpeaking {
		slot, snap, mode = &w.speaking, w.rec.Speaking, conversation.ModeSpeaking
	}
	if *slot != nil {
		return *slot
	}
	o := conversation.New(w.deps.Generator, mode, conversation.Options{
		Catalog:    w.catalog,
		Rand:       w.deps.Rand,
		ReplyDelay: w.deps.ReplyDelay,
	})
	if snap != nil {
		if err := o.Restore(*snap); err != nil {
			slog.Warn("restore conversation failed", "mode", mode, "error", err)
		}
	}
	o.Observe(func(conversation.Event) { w.Persist() })
	*slot = o
	return o
}

func (w *Workspace) exerciseSettled(ev engine.Event) {
	if ev.Verdict != nil {
		w.mu.Lock()
		milestone := w.rec.Progress.Record(string(ev.Kind), ev.Verdict.Correct, w.now().UTC())
		notify := w.onNotice
		w.mu.Unlock()
		if milestone > 0 && notify != nil {
			notify(Notice{Surface: ExerciseSurface(ev.Kind), Milestone: milestone})
		}
	}
	w.Persist()
}

func (w *Workspace) examSettled(ev exam.Event) {
	if ev.Result != nil {
		r := progress.ExamResult{
			ID:        ev.Result.ID,
			Type:      string(ev.Result.Setup.Type),
			Questions: ev.Result.Setup.QuestionCount,
			Score:     ev.Result.Verdict.OverallScore,
			TakenAt:   ev.Result.TakenAt,
		}
		w.mu.Lock()
		w.rec.Progress.RecordExam(r)
		notify := w.onNotice
		w.mu.Unlock()
		if notify != nil {
			notify(Notice{Surface: SurfaceExam, Exam: &r})
		}
	}
	w.Persist()
}

// Story returns the story surface, creating it if needed.
func (w *Workspace) Story() *engine.Machine[exercise.StoryTask] {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.exerciseLocked(exercise.KindStory)
	return w.story
}

// Sentence returns the sentence surface, creating it if needed.
func (w *Workspace) Sentence() *engine.Machine[exercise.SentenceTask] {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.exerciseLocked(exercise.KindSentence)
	return w.sentence
}

// Grammar returns the grammar surface, creating it if needed.
func (w *Workspace) Grammar() *engine.Machine[exercise.GrammarTask] {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.exerciseLocked(exercise.KindGrammar)
	return w.grammar
}

// Idiom returns the idiom surface, creating it if needed.
func (w *Workspace) Idiom() *engine.Machine[exercise.IdiomTask] {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.exerciseLocked(exercise.KindIdiom)
	return w.idiom
}

// Translation returns the translation surface, creating it if needed.
func (w *Workspace) Translation() *engine.Machine[exercise.TranslationTask] {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.exerciseLocked(exercise.KindTranslation)
	return w.translation
}

// Writing returns the writing surface, creating it if needed.
func (w *Workspace) Writing() *engine.Machine[exercise.WritingTask] {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.exerciseLocked(exercise.KindWriting)
	return w.writing
}

// Exam returns the exam surface, creating it if needed.
func (w *Workspace) Exam() *exam.Orchestrator {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.examLocked()
}

// Chat returns the chat surface, creating it if needed.
func (w *Workspace) Chat() *conversation.Orchestrator {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conversationLocked(SurfaceChat)
}

// Speaking returns the speaking surface, creating it if needed.
func (w *Workspace) Speaking() *conversation.Orchestrator {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conversationLocked(SurfaceSpeaking)
}

// Reset discards the state of s. For single-task surfaces this is the
// explicit "new task" action; a request in flight is dropped.
func (w *Workspace) Reset(s Surface) error {
	if !known(s) {
		return fmt.Errorf("%w: %q", ErrUnknownSurface, s)
	}
	w.mu.Lock()
	var reset func()
	switch s {
	case SurfaceExam:
		reset = w.examLocked().Restart
	case SurfaceChat, SurfaceSpeaking:
		reset = w.conversationLocked(s).Reset
	default:
		reset = w.exerciseLocked(exercise.Kind(s)).Reset
	}
	w.mu.Unlock()

	// Observers persist the change.
	reset()
	return nil
}

// UpdateSettings replaces the learner's settings and saves them. Tasks
// already generated keep the settings they were generated with.
func (w *Workspace) UpdateSettings(s session.Settings) error {
	s = s.Normalize()
	if err := s.Validate(); err != nil {
		return err
	}
	w.mu.Lock()
	w.sc = session.NewContext(w.sc.UserID, s, w.sc.Incognito)
	w.rec.Settings = w.sc.Settings
	w.mu.Unlock()
	w.Persist()
	return nil
}

// Persist saves the record now. Callers use it after changes the
// surfaces do not announce, such as navigating exam questions or
// editing a draft. Failures are logged, not returned.
func (w *Workspace) Persist() {
	if err := w.save(w.ctx); err != nil && !errors.Is(err, ErrClosed) {
		slog.Error("save session failed", "error", err)
	}
}

func (w *Workspace) save(ctx context.Context) error {
	w.saveMu.Lock()
	defer w.saveMu.Unlock()

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	rec := w.snapshotLocked()
	sc := w.sc
	w.mu.Unlock()

	return w.deps.Store.Save(ctx, sc, rec)
}

// snapshotLocked builds the record from live surfaces, carrying the
// loaded state of surfaces not opened this session.
func (w *Workspace) snapshotLocked() Record {
	rec := w.rec
	rec.Active = w.active
	rec.Story = snapshotOf(w.story, rec.Story)
	rec.Sentence = snapshotOf(w.sentence, rec.Sentence)
	rec.Grammar = snapshotOf(w.grammar, rec.Grammar)
	rec.Idiom = snapshotOf(w.idiom, rec.Idiom)
	rec.Translation = snapshotOf(w.translation, rec.Translation)
	rec.Writing = snapshotOf(w.writing, rec.Writing)
	if w.exam != nil {
		s := w.exam.Snapshot()
		rec.Exam = &s
	}
	if w.chat != nil {
		s := w.chat.Snapshot()
		rec.Chat = &s
	}
	if w.speaking != nil {
		s := w.speaking.Snapshot()
		rec.Speaking = &s
	}
	return rec
}

func snapshotOf[T exercise.Task](m *engine.Machine[T], loaded *engine.Snapshot[T]) *engine.Snapshot[T] {
	if m == nil {
		return loaded
	}
	s := m.Snapshot()
	return &s
}

// Close saves the record one last time and detaches every surface.
// Responses still in flight are applied to the detached state and
// never saved.
func (w *Workspace) Close(ctx context.Context) error {
	err := w.save(ctx)
	w.mu.Lock()
	w.closed = true
	user := w.sc.UserID
	w.mu.Unlock()
	w.cancel()
	if errors.Is(err, ErrClosed) {
		return nil
	}
	slog.Info("workspace closed", "user", user)
	return err
}

func known(s Surface) bool {
	switch s {
	case SurfaceExam, SurfaceChat, SurfaceSpeaking:
		return true
	}
	for _, k := range exercise.Kinds {
		if Surface(k) == s {
			return true
		}
	}
	return false
}
