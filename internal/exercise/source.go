package exercise

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/abhisek/lingua/internal/content"
	"github.com/abhisek/lingua/internal/llm"
	"github.com/abhisek/lingua/internal/session"
)

// Config controls task generation.
type Config struct {
	// MaxRecent is how many recent items are listed in the prompt so the
	// model does not repeat itself.
	MaxRecent int

	// MaxTokens is the token budget for one task.
	MaxTokens int

	// Temperature controls output variety (0.0-1.0).
	Temperature float64
}

// DefaultConfig returns the recommended generation settings.
func DefaultConfig() Config {
	return Config{
		MaxRecent:   8,
		MaxTokens:   800,
		Temperature: 0.9,
	}
}

// LLMSource generates tasks of one kind through a content.Generator.
// Each decoded reply gets a fresh task id.
type LLMSource[T Task] struct {
	gen    content.Generator
	config Config
	recipe recipe[T]

	mu     sync.Mutex
	recent []string
}

type recipe[T Task] struct {
	kind        Kind
	schema      *llm.Schema
	instruction string
	purpose     string
	build       func(c *content.Content, s session.Settings, id string) (T, error)
	summary     func(T) string
}

func newSource[T Task](gen content.Generator, cfg Config, sp recipe[T]) *LLMSource[T] {
	return &LLMSource[T]{gen: gen, config: cfg, recipe: sp}
}

// Kind returns the surface this source feeds.
func (s *LLMSource[T]) Kind() Kind { return s.recipe.kind }

// Next generates one task for the session's settings.
func (s *LLMSource[T]) Next(ctx context.Context, sc session.Context) (T, error) {
	var zero T

	s.mu.Lock()
	user := buildUserMessage(s.recipe.kind, s.recent, s.config.MaxRecent)
	s.mu.Unlock()

	c, err := s.gen.Generate(ctx, content.Prompt{
		Text:        user,
		System:      SystemPrompt(sc.Settings, s.recipe.instruction),
		Schema:      s.recipe.schema,
		Purpose:     s.recipe.purpose,
		MaxTokens:   s.config.MaxTokens,
		Temperature: s.config.Temperature,
	})
	if err != nil {
		return zero, err
	}

	task, err := s.recipe.build(c, sc.Settings, uuid.NewString())
	if err != nil {
		return zero, err
	}

	s.remember(s.recipe.summary(task))
	return task, nil
}

func (s *LLMSource[T]) remember(item string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recent = append(s.recent, item)
	if max := s.config.MaxRecent; max > 0 && len(s.recent) > max {
		s.recent = s.recent[len(s.recent)-max:]
	}
}

type storyOutput struct {
	Title    string `json:"title"`
	Text     string `json:"text"`
	Question string `json:"question"`
}

// NewStorySource returns a source of Story Time tasks.
func NewStorySource(gen content.Generator, cfg Config) *LLMSource[StoryTask] {
	return newSource(gen, cfg, recipe[StoryTask]{
		kind:        KindStory,
		schema:      StorySchema,
		instruction: storyInstruction,
		purpose:     llm.PurposeStory,
		build: func(c *content.Content, _ session.Settings, id string) (StoryTask, error) {
			out, err := content.Decode[storyOutput](c, checkStory)
			if err != nil {
				return StoryTask{}, err
			}
			return StoryTask{ID: id, Title: out.Title, Text: out.Text, Question: out.Question}, nil
		},
		summary: func(t StoryTask) string { return t.Title },
	})
}

type sentenceOutput struct {
	Sentence    string `json:"sentence"`
	Translation string `json:"translation"`
}

// NewSentenceSource returns a source of Sentence Builder tasks. The word
// bank is shuffled locally with r, or the global source when r is nil.
func NewSentenceSource(gen content.Generator, cfg Config, r *rand.Rand) *LLMSource[SentenceTask] {
	return newSource(gen, cfg, recipe[SentenceTask]{
		kind:        KindSentence,
		schema:      SentenceSchema,
		instruction: sentenceInstruction,
		purpose:     llm.PurposeSentence,
		build: func(c *content.Content, _ session.Settings, id string) (SentenceTask, error) {
			out, err := content.Decode[sentenceOutput](c, checkSentence)
			if err != nil {
				return SentenceTask{}, err
			}
			original := strings.Join(strings.Fields(out.Sentence), " ")
			return SentenceTask{
				ID:          id,
				Original:    original,
				Scrambled:   Scramble(strings.Fields(original), r),
				Translation: out.Translation,
			}, nil
		},
		summary: func(t SentenceTask) string { return t.Original },
	})
}

type grammarOutput struct {
	Incorrect   string `json:"incorrect"`
	Correct     string `json:"correct"`
	Explanation string `json:"explanation"`
}

// NewGrammarSource returns a source of Grammar Gauntlet tasks.
func NewGrammarSource(gen content.Generator, cfg Config) *LLMSource[GrammarTask] {
	return newSource(gen, cfg, recipe[GrammarTask]{
		kind:        KindGrammar,
		schema:      GrammarSchema,
		instruction: grammarInstruction,
		purpose:     llm.PurposeGrammar,
		build: func(c *content.Content, _ session.Settings, id string) (GrammarTask, error) {
			out, err := content.Decode[grammarOutput](c, checkGrammar)
			if err != nil {
				return GrammarTask{}, err
			}
			return GrammarTask{ID: id, Incorrect: out.Incorrect, Correct: out.Correct, Explanation: out.Explanation}, nil
		},
		summary: func(t GrammarTask) string { return t.Incorrect },
	})
}

type idiomOutput struct {
	ContextSentence string   `json:"context_sentence"`
	Idiom           string   `json:"idiom"`
	Meaning         string   `json:"meaning"`
	Options         []string `json:"options"`
	Explanation     string   `json:"explanation"`
}

// NewIdiomSource returns a source of Idiom Quest tasks. Options are
// shuffled locally so the answer position carries no signal.
func NewIdiomSource(gen content.Generator, cfg Config, r *rand.Rand) *LLMSource[IdiomTask] {
	return newSource(gen, cfg, recipe[IdiomTask]{
		kind:        KindIdiom,
		schema:      IdiomSchema,
		instruction: idiomInstruction,
		purpose:     llm.PurposeIdiom,
		build: func(c *content.Content, _ session.Settings, id string) (IdiomTask, error) {
			out, err := content.Decode[idiomOutput](c, checkIdiom)
			if err != nil {
				return IdiomTask{}, err
			}
			options := make([]string, len(out.Options))
			for i, o := range out.Options {
				options[i] = strings.TrimSpace(o)
			}
			shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] }, r)
			return IdiomTask{
				ID:              id,
				ContextSentence: out.ContextSentence,
				CorrectIdiom:    out.Idiom,
				CorrectMeaning:  strings.TrimSpace(out.Meaning),
				Options:         options,
				Explanation:     out.Explanation,
			}, nil
		},
		summary: func(t IdiomTask) string { return t.CorrectIdiom },
	})
}

type translationOutput struct {
	Source    string `json:"source"`
	Reference string `json:"reference"`
}

// NewTranslationSource returns a source of Translation Practice tasks.
func NewTranslationSource(gen content.Generator, cfg Config) *LLMSource[TranslationTask] {
	return newSource(gen, cfg, recipe[TranslationTask]{
		kind:        KindTranslation,
		schema:      TranslationSchema,
		instruction: translationInstruction,
		purpose:     llm.PurposeTranslation,
		build: func(c *content.Content, s session.Settings, id string) (TranslationTask, error) {
			out, err := content.Decode[translationOutput](c, checkTranslation)
			if err != nil {
				return TranslationTask{}, err
			}
			return TranslationTask{
				ID:             id,
				Source:         out.Source,
				SourceLanguage: s.NativeLanguage,
				TargetLanguage: s.TargetLanguage,
				Reference:      out.Reference,
			}, nil
		},
		summary: func(t TranslationTask) string { return t.Source },
	})
}

type writingOutput struct {
	Topic    string `json:"topic"`
	Guidance string `json:"guidance"`
	MinWords int    `json:"min_words"`
}

// NewWritingSource returns a source of Writing Analysis tasks.
func NewWritingSource(gen content.Generator, cfg Config) *LLMSource[WritingTask] {
	return newSource(gen, cfg, recipe[WritingTask]{
		kind:        KindWriting,
		schema:      WritingSchema,
		instruction: writingInstruction,
		purpose:     llm.PurposeWriting,
		build: func(c *content.Content, _ session.Settings, id string) (WritingTask, error) {
			out, err := content.Decode[writingOutput](c, checkWriting)
			if err != nil {
				return WritingTask{}, err
			}
			return WritingTask{ID: id, Topic: out.Topic, Guidance: out.Guidance, MinWords: out.MinWords}, nil
		},
		summary: func(t WritingTask) string { return t.Topic },
	})
}

func shuffle(n int, swap func(i, j int), r *rand.Rand) {
	if r != nil {
		r.Shuffle(n, swap)
		return
	}
	rand.Shuffle(n, swap)
}

// Scramble returns a shuffled copy of tokens. If the shuffle leaves the
// order unchanged it reshuffles once; short sentences can still come back
// in their original order.
func Scramble(tokens []string, r *rand.Rand) []string {
	out := make([]string, len(tokens))
	copy(out, tokens)
	swap := func(i, j int) { out[i], out[j] = out[j], out[i] }
	shuffle(len(out), swap, r)
	if slices.Equal(out, tokens) {
		shuffle(len(out), swap, r)
	}
	return out
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is empty", field)
	}
	return nil
}
