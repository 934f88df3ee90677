package exam

import (
	"fmt"
	"strings"

	"github.com/abhisek/lingua/internal/exercise"
	"github.com/abhisek/lingua/internal/llm"
)

// QuestionsSchema is the reply shape for exam generation.
var QuestionsSchema = &llm.Schema{
	Name:        "exam-questions",
	Description: "An ordered list of exam questions",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"questions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id": map[string]any{
							"type":        "integer",
							"description": "Sequential question number starting at 1",
						},
						"kind": map[string]any{
							"type": "string",
							"enum": []any{"mcq", "writing", "speaking", "listening"},
						},
						"text": map[string]any{
							"type":        "string",
							"description": "The question. For listening, the passage read aloud followed by the question.",
						},
						"options": map[string]any{
							"type":        "array",
							"items":       map[string]any{"type": "string"},
							"description": "Exactly 4 options for mcq, empty for every other kind",
						},
					},
					"required":             []any{"id", "kind", "text", "options"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"questions"},
		"additionalProperties": false,
	},
}

// ResultSchema is the reply shape for batch exam grading.
var ResultSchema = &llm.Schema{
	Name:        "exam-result",
	Description: "Grades for every exam question and an overall score",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"overall_score": map[string]any{
				"type":    "integer",
				"minimum": 0,
				"maximum": 100,
			},
			"summary": map[string]any{
				"type":        "string",
				"description": "Two or three sentences on strengths and what to practise next",
			},
			"feedback": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"question_id": map[string]any{"type": "integer"},
						"correct":     map[string]any{"type": "boolean"},
						"feedback":    map[string]any{"type": "string"},
					},
					"required":             []any{"question_id", "correct", "feedback"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"overall_score", "summary", "feedback"},
		"additionalProperties": false,
	},
}

const generateInstruction = "Write a language exam. Mix question kinds to suit the exam type. Multiple-choice questions have exactly one correct option."

const gradeInstruction = "Grade every answer of the exam. Give one feedback entry per question id, in the learner's native language."

func buildGenerateMessage(s Setup) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Exam type: %s\n", s.Type)
	fmt.Fprintf(&b, "Number of questions: %d\n", s.QuestionCount)
	b.WriteString("Number the questions 1, 2, 3, ... in order.")
	return b.String()
}

func buildGradeMessage(s Setup, questions []exercise.ExamQuestion, answers map[int]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Exam type: %s\n\n", s.Type)
	for _, q := range questions {
		fmt.Fprintf(&b, "Question %d (%s): %s\n", q.ID, q.Kind, q.Text)
		for i, opt := range q.Options {
			fmt.Fprintf(&b, "  %c) %s\n", 'A'+i, opt)
		}
		fmt.Fprintf(&b, "Answer: %s\n\n", answers[q.ID])
	}
	return strings.TrimRight(b.String(), "\n")
}
