package exercise

import (
	"fmt"
	"strings"
)

var punctuation = strings.NewReplacer("'", "", `"`, "", ".", "", ",", "")

// Fold lower-cases s, strips ' " . and , and trims surrounding space.
// Strings that fold alike count as the same answer.
func Fold(s string) string {
	return strings.TrimSpace(strings.ToLower(punctuation.Replace(s)))
}

// Structural checks run on every decoded reply. A failure is reported as
// a decode error, so a half-formed task is never installed.

func checkStory(o *storyOutput) error {
	if err := required("title", o.Title); err != nil {
		return err
	}
	if err := required("text", o.Text); err != nil {
		return err
	}
	return required("question", o.Question)
}

func checkSentence(o *sentenceOutput) error {
	if err := required("sentence", o.Sentence); err != nil {
		return err
	}
	if n := len(strings.Fields(o.Sentence)); n < 2 {
		return fmt.Errorf("sentence has %d word(s), need at least 2", n)
	}
	return required("translation", o.Translation)
}

func checkGrammar(o *grammarOutput) error {
	if err := required("incorrect", o.Incorrect); err != nil {
		return err
	}
	if err := required("correct", o.Correct); err != nil {
		return err
	}
	if strings.TrimSpace(o.Incorrect) == strings.TrimSpace(o.Correct) {
		return fmt.Errorf("correct sentence is identical to the incorrect one")
	}
	return required("explanation", o.Explanation)
}

func checkIdiom(o *idiomOutput) error {
	if err := required("idiom", o.Idiom); err != nil {
		return err
	}
	if err := required("meaning", o.Meaning); err != nil {
		return err
	}
	if err := required("context_sentence", o.ContextSentence); err != nil {
		return err
	}
	if len(o.Options) != 4 {
		return fmt.Errorf("expected 4 options, got %d", len(o.Options))
	}
	meaning := Fold(o.Meaning)
	matches := 0
	seen := make(map[string]bool, len(o.Options))
	for _, opt := range o.Options {
		key := Fold(opt)
		if key == "" {
			return fmt.Errorf("empty option")
		}
		if seen[key] {
			return fmt.Errorf("duplicate option %q", opt)
		}
		seen[key] = true
		if key == meaning {
			matches++
		}
	}
	if matches != 1 {
		return fmt.Errorf("exactly one option must equal the meaning, found %d", matches)
	}
	return nil
}

func checkTranslation(o *translationOutput) error {
	if err := required("source", o.Source); err != nil {
		return err
	}
	return required("reference", o.Reference)
}

func checkWriting(o *writingOutput) error {
	if err := required("topic", o.Topic); err != nil {
		return err
	}
	if o.MinWords < 0 {
		return fmt.Errorf("min_words is negative")
	}
	return nil
}
