package validate

import (
	"context"
	"fmt"
	"strings"

	"github.com/abhisek/lingua/internal/content"
	"github.com/abhisek/lingua/internal/exercise"
	"github.com/abhisek/lingua/internal/llm"
	"github.com/abhisek/lingua/internal/session"
)

// VerdictSchema is the reply shape for model grading.
var VerdictSchema = &llm.Schema{
	Name:        "answer-verdict",
	Description: "A grade for one learner answer",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"correct": map[string]any{
				"type":        "boolean",
				"description": "Whether the answer is acceptable for the learner's level",
			},
			"score": map[string]any{
				"type":        "integer",
				"minimum":     0,
				"maximum":     100,
				"description": "Overall quality from 0 to 100",
			},
			"feedback": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "Short, specific feedback in the learner's native language",
			},
			"corrected": map[string]any{
				"type":        "string",
				"description": "An improved version of the answer; empty if none is needed",
			},
		},
		"required":             []any{"correct", "score", "feedback", "corrected"},
		"additionalProperties": false,
	},
}

const gradeInstruction = "Grade the learner's answer to the exercise. Be encouraging but honest, and point out at most three issues."

type verdictOutput struct {
	Correct   bool   `json:"correct"`
	Score     int    `json:"score"`
	Feedback  string `json:"feedback"`
	Corrected string `json:"corrected"`
}

func checkVerdict(v *verdictOutput) error {
	if v.Score < 0 || v.Score > 100 {
		return fmt.Errorf("score %d out of range", v.Score)
	}
	if strings.TrimSpace(v.Feedback) == "" {
		return fmt.Errorf("feedback is empty")
	}
	return nil
}

// Remote grades answers with a second model call.
type Remote[T exercise.Task] struct {
	gen   content.Generator
	brief func(T) string
}

// Check grades answer. Generation failures are returned as-is so the
// caller can tell transport from decode.
func (r *Remote[T]) Check(ctx context.Context, sc session.Context, task T, answer string) (exercise.Verdict, error) {
	if err := CheckInput(answer); err != nil {
		return exercise.Verdict{}, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Exercise: %s\n\n", task.Kind().Title())
	b.WriteString(r.brief(task))
	fmt.Fprintf(&b, "\n\nLearner's answer:\n%s", strings.TrimSpace(answer))

	c, err := r.gen.Generate(ctx, content.Prompt{
		Text:        b.String(),
		System:      exercise.SystemPrompt(sc.Settings, gradeInstruction),
		Schema:      VerdictSchema,
		Purpose:     llm.PurposeGrade,
		Temperature: 0.2,
	})
	if err != nil {
		return exercise.Verdict{}, err
	}
	out, err := content.Decode[verdictOutput](c, checkVerdict)
	if err != nil {
		return exercise.Verdict{}, err
	}
	return exercise.Verdict{
		Correct:  out.Correct,
		Message:  out.Feedback,
		Score:    out.Score,
		Expected: out.Corrected,
	}, nil
}

// NewStoryGrader grades comprehension answers for Story Time.
func NewStoryGrader(gen content.Generator) *Remote[exercise.StoryTask] {
	return &Remote[exercise.StoryTask]{gen: gen, brief: func(t exercise.StoryTask) string {
		return fmt.Sprintf("Story:\n%s\n\nQuestion:\n%s", t.Text, t.Question)
	}}
}

// NewTranslationGrader grades Translation Practice answers.
func NewTranslationGrader(gen content.Generator) *Remote[exercise.TranslationTask] {
	return &Remote[exercise.TranslationTask]{gen: gen, brief: func(t exercise.TranslationTask) string {
		return fmt.Sprintf("Translate from %s to %s:\n%s\n\nReference translation (one of many acceptable):\n%s",
			t.SourceLanguage, t.TargetLanguage, t.Source, t.Reference)
	}}
}

// NewWritingGrader grades Writing Analysis answers.
func NewWritingGrader(gen content.Generator) *Remote[exercise.WritingTask] {
	return &Remote[exercise.WritingTask]{gen: gen, brief: func(t exercise.WritingTask) string {
		return fmt.Sprintf("Topic:\n%s\n\nGuidance:\n%s\n\nSuggested minimum: %d words", t.Topic, t.Guidance, t.MinWords)
	}}
}
