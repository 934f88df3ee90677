package exercise

import (
	"fmt"
	"strings"

	"github.com/abhisek/lingua/internal/session"
)

var personas = map[string]string{
	"friendly": "You are a warm, encouraging language tutor.",
	"strict":   "You are a precise, demanding language tutor who values accuracy.",
	"playful":  "You are a playful language tutor who likes humour and surprising topics.",
}

// Personas lists the selectable tutor personas.
var Personas = []string{"friendly", "strict", "playful"}

// PersonaLine returns the tutor persona sentence for a settings value.
func PersonaLine(persona string) string {
	if p, ok := personas[persona]; ok {
		return p
	}
	return personas["friendly"]
}

// SystemPrompt builds the shared system instruction for a surface.
func SystemPrompt(s session.Settings, task string) string {
	var b strings.Builder
	b.WriteString(PersonaLine(s.Persona))
	fmt.Fprintf(&b, "\nThe learner is a %s speaker learning %s at CEFR level %s.\n",
		s.NativeName(), s.TargetName(), s.Level)
	b.WriteString("\nRules:\n")
	b.WriteString("- Match vocabulary and grammar to the learner's level.\n")
	b.WriteString("- Reply only with the requested JSON object.\n")
	fmt.Fprintf(&b, "- %s\n", task)
	return strings.TrimRight(b.String(), "\n")
}

const (
	storyInstruction       = "Write an original short story and one comprehension question about it."
	sentenceInstruction    = "Write one natural everyday sentence. Use plain words separated by spaces; keep punctuation attached to words."
	grammarInstruction     = "Write one sentence with exactly one common learner grammar mistake, and its correction."
	idiomInstruction       = "Pick a common idiom, use it in a sentence, and give four candidate meanings where exactly one is correct and the others are plausible."
	translationInstruction = "Write a short passage for the learner to translate into the language they are learning."
	writingInstruction     = "Suggest a short writing topic the learner can answer in a paragraph."
)

// buildUserMessage lists recently used items so the model avoids them.
func buildUserMessage(kind Kind, recent []string, max int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Exercise: %s\n", kind.Title())
	b.WriteString("\nAlready used in this session:\n")
	b.WriteString(buildRecent(recent, max))
	return b.String()
}

func buildRecent(items []string, max int) string {
	if len(items) == 0 {
		return "None"
	}
	if max > 0 && len(items) > max {
		items = items[len(items)-max:]
	}
	var b strings.Builder
	for i, it := range items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, it)
	}
	return strings.TrimRight(b.String(), "\n")
}
