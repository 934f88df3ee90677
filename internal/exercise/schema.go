package exercise

import "github.com/abhisek/lingua/internal/llm"

func str(desc string) map[string]any {
	return map[string]any{"type": "string", "minLength": 1, "description": desc}
}

func object(props map[string]any, required ...string) map[string]any {
	req := make([]any, len(required))
	for i, r := range required {
		req[i] = r
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             req,
		"additionalProperties": false,
	}
}

// StorySchema is the reply shape for Story Time.
var StorySchema = &llm.Schema{
	Name:        "story-task",
	Description: "A short story in the target language with one comprehension question",
	Definition: object(map[string]any{
		"title":    str("Story title in the target language"),
		"text":     str("The story, 80-150 words, in the target language"),
		"question": str("One open comprehension question about the story, in the target language"),
	}, "title", "text", "question"),
}

// SentenceSchema is the reply shape for Sentence Builder.
var SentenceSchema = &llm.Schema{
	Name:        "sentence-task",
	Description: "One sentence for the learner to rebuild from shuffled words",
	Definition: object(map[string]any{
		"sentence":    str("A single sentence of 4-10 words in the target language"),
		"translation": str("The sentence translated into the learner's native language"),
	}, "sentence", "translation"),
}

// GrammarSchema is the reply shape for Grammar Gauntlet.
var GrammarSchema = &llm.Schema{
	Name:        "grammar-task",
	Description: "A sentence with one grammar mistake and its correction",
	Definition: object(map[string]any{
		"incorrect":   str("The sentence containing exactly one grammar mistake"),
		"correct":     str("The same sentence with the mistake fixed and nothing else changed"),
		"explanation": str("Why the correction is needed, in the learner's native language"),
	}, "incorrect", "correct", "explanation"),
}

// IdiomSchema is the reply shape for Idiom Quest.
var IdiomSchema = &llm.Schema{
	Name:        "idiom-task",
	Description: "An idiom used in context with four candidate meanings",
	Definition: object(map[string]any{
		"context_sentence": str("A sentence in the target language that uses the idiom"),
		"idiom":            str("The idiom exactly as it appears in the sentence"),
		"meaning":          str("The idiom's meaning in the learner's native language"),
		"options": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"minItems":    4,
			"maxItems":    4,
			"description": "Four candidate meanings; exactly one is identical to meaning",
		},
		"explanation": str("Origin or usage note for the idiom, in the learner's native language"),
	}, "context_sentence", "idiom", "meaning", "options", "explanation"),
}

// TranslationSchema is the reply shape for Translation Practice.
var TranslationSchema = &llm.Schema{
	Name:        "translation-task",
	Description: "A passage in the learner's native language to translate",
	Definition: object(map[string]any{
		"source":    str("One or two sentences in the learner's native language"),
		"reference": str("A good translation into the target language"),
	}, "source", "reference"),
}

// WritingSchema is the reply shape for Writing Analysis.
var WritingSchema = &llm.Schema{
	Name:        "writing-task",
	Description: "A short writing prompt",
	Definition: object(map[string]any{
		"topic":    str("The writing topic, in the target language"),
		"guidance": str("Two or three hints on what to cover, in the learner's native language"),
		"min_words": map[string]any{
			"type":        "integer",
			"minimum":     10,
			"maximum":     200,
			"description": "Suggested minimum length in words",
		},
	}, "topic", "guidance", "min_words"),
}
