// Package validate checks learner answers. Local strategies compare
// strings or token sequences; the remote strategy asks the model to grade.
package validate

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/abhisek/lingua/internal/exercise"
	"github.com/abhisek/lingua/internal/session"
)

// ErrInputRejected is returned for blank answers. They never reach a
// validator or the model.
var ErrInputRejected = errors.New("answer is empty")

// Strategy names how an answer is checked.
type Strategy string

const (
	LocalExact    Strategy = "local-exact"
	LocalSequence Strategy = "local-sequence"
	RemoteGraded  Strategy = "remote-graded"
)

// StrategyFor returns the strategy used by a surface.
func StrategyFor(k exercise.Kind) Strategy {
	switch k {
	case exercise.KindGrammar, exercise.KindIdiom:
		return LocalExact
	case exercise.KindSentence:
		return LocalSequence
	default:
		return RemoteGraded
	}
}

// CheckInput rejects blank answers.
func CheckInput(answer string) error {
	if strings.TrimSpace(answer) == "" {
		return ErrInputRejected
	}
	return nil
}

// Normalize lower-cases s, strips ' " . and , and trims surrounding space.
func Normalize(s string) string {
	return exercise.Fold(s)
}

// Exact reports whether two strings match ignoring case and punctuation.
func Exact(expected, answer string) bool {
	return Normalize(expected) == Normalize(answer)
}

// Sequence reports whether answer holds exactly the expected tokens in
// the same order.
func Sequence(expected, answer []string) bool {
	return slices.Equal(expected, answer)
}

// JoinTokens encodes an arranged word sequence as an answer value.
func JoinTokens(tokens []string) string {
	return strings.Join(tokens, " ")
}

// Grammar checks Grammar Gauntlet answers against the corrected sentence.
type Grammar struct{}

func (Grammar) Check(_ context.Context, _ session.Context, task exercise.GrammarTask, answer string) (exercise.Verdict, error) {
	if err := CheckInput(answer); err != nil {
		return exercise.Verdict{}, err
	}
	if Exact(task.Correct, answer) {
		return exercise.Verdict{Correct: true, Message: task.Explanation}, nil
	}
	return exercise.Verdict{
		Correct:  false,
		Message:  task.Explanation,
		Expected: task.Correct,
	}, nil
}

// Idiom checks the chosen option against the idiom's meaning. Only the
// one option that carries the meaning is accepted, even when another
// option differs from it only in case or punctuation.
type Idiom struct{}

func (Idiom) Check(_ context.Context, _ session.Context, task exercise.IdiomTask, answer string) (exercise.Verdict, error) {
	if err := CheckInput(answer); err != nil {
		return exercise.Verdict{}, err
	}
	correct := Exact(task.CorrectMeaning, answer)
	if opt, ok := meaningOption(task); ok {
		correct = strings.TrimSpace(answer) == opt
	}
	if correct {
		return exercise.Verdict{Correct: true, Message: task.Explanation}, nil
	}
	return exercise.Verdict{
		Correct:  false,
		Message:  fmt.Sprintf("%s: %s", task.CorrectIdiom, task.Explanation),
		Expected: task.CorrectMeaning,
	}, nil
}

// meaningOption returns the option that carries the meaning: the exact
// match if there is one, otherwise the first that folds to it.
func meaningOption(task exercise.IdiomTask) (string, bool) {
	meaning := strings.TrimSpace(task.CorrectMeaning)
	for _, opt := range task.Options {
		if strings.TrimSpace(opt) == meaning {
			return strings.TrimSpace(opt), true
		}
	}
	for _, opt := range task.Options {
		if Exact(meaning, opt) {
			return strings.TrimSpace(opt), true
		}
	}
	return "", false
}

// Sentence checks a rebuilt sentence token by token. The answer is the
// arranged tokens joined by single spaces.
type Sentence struct{}

func (Sentence) Check(_ context.Context, _ session.Context, task exercise.SentenceTask, answer string) (exercise.Verdict, error) {
	if err := CheckInput(answer); err != nil {
		return exercise.Verdict{}, err
	}
	if Sequence(task.Tokens(), strings.Fields(answer)) {
		return exercise.Verdict{Correct: true, Message: task.Translation}, nil
	}
	return exercise.Verdict{
		Correct:  false,
		Message:  task.Translation,
		Expected: task.Original,
	}, nil
}
