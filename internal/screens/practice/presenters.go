package practice

import (
	"fmt"
	"strings"

	"github.com/abhisek/lingua/internal/exercise"
	"github.com/abhisek/lingua/internal/screen"
	"github.com/abhisek/lingua/internal/workspace"
)

var (
	storyPresenter = Presenter[exercise.StoryTask]{
		Prompt: func(t exercise.StoryTask) string {
			return t.Title + "\n\n" + t.Text + "\n\n" + t.Question
		},
		Placeholder: "Answer the question about the story...",
	}

	sentencePresenter = Presenter[exercise.SentenceTask]{
		Prompt: func(t exercise.SentenceTask) string {
			return strings.Join(t.Scrambled, "  ·  ")
		},
		Detail: func(t exercise.SentenceTask) string {
			return t.Translation
		},
		Placeholder: "Type the words in the right order...",
	}

	grammarPresenter = Presenter[exercise.GrammarTask]{
		Prompt: func(t exercise.GrammarTask) string {
			return t.Incorrect
		},
		Detail: func(exercise.GrammarTask) string {
			return "Rewrite the sentence without the mistake."
		},
		Placeholder: "Corrected sentence...",
	}

	idiomPresenter = Presenter[exercise.IdiomTask]{
		Prompt: func(t exercise.IdiomTask) string {
			return t.ContextSentence
		},
		Detail: func(t exercise.IdiomTask) string {
			return fmt.Sprintf("What does %q mean here?", t.CorrectIdiom)
		},
		Options: func(t exercise.IdiomTask) []string {
			return t.Options
		},
	}

	translationPresenter = Presenter[exercise.TranslationTask]{
		Prompt: func(t exercise.TranslationTask) string {
			return t.Source
		},
		Detail: func(t exercise.TranslationTask) string {
			return fmt.Sprintf("Translate from %s to %s.", t.SourceLanguage, t.TargetLanguage)
		},
		Placeholder: "Your translation...",
	}

	writingPresenter = Presenter[exercise.WritingTask]{
		Prompt: func(t exercise.WritingTask) string {
			return t.Topic
		},
		Detail: func(t exercise.WritingTask) string {
			if t.MinWords > 0 {
				return fmt.Sprintf("%s (at least %d words)", t.Guidance, t.MinWords)
			}
			return t.Guidance
		},
		Placeholder: "Write your answer...",
	}
)

// ForSurface returns the practice screen for a single-task surface, or
// nil if s is not one.
func ForSurface(ws *workspace.Workspace, s workspace.Surface) screen.Screen {
	switch exercise.Kind(s) {
	case exercise.KindStory:
		return New(ws, s, ws.Story(), storyPresenter)
	case exercise.KindSentence:
		return New(ws, s, ws.Sentence(), sentencePresenter)
	case exercise.KindGrammar:
		return New(ws, s, ws.Grammar(), grammarPresenter)
	case exercise.KindIdiom:
		return New(ws, s, ws.Idiom(), idiomPresenter)
	case exercise.KindTranslation:
		return New(ws, s, ws.Translation(), translationPresenter)
	case exercise.KindWriting:
		return New(ws, s, ws.Writing(), writingPresenter)
	}
	return nil
}
