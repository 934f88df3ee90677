package conversation

import (
	"fmt"
	"strings"

	"github.com/abhisek/lingua/internal/exercise"
	"github.com/abhisek/lingua/internal/llm"
	"github.com/abhisek/lingua/internal/session"
)

// TurnSchema is the combined reply for one speaking turn: feedback on
// the learner's line and the partner's next line.
var TurnSchema = &llm.Schema{
	Name:        "speaking-turn",
	Description: "Feedback on the learner's last line and the next line of the role-play",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"accuracy_score": map[string]any{
				"type":        "integer",
				"minimum":     0,
				"maximum":     100,
				"description": "How accurate the learner's last line was",
			},
			"pronunciation_tips": map[string]any{
				"type":     "array",
				"maxItems": 3,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"word": map[string]any{"type": "string"},
						"tip":  map[string]any{"type": "string"},
					},
					"required":             []any{"word", "tip"},
					"additionalProperties": false,
				},
				"description": "Up to three words likely to be mispronounced, with a tip each",
			},
			"fluency_comment": map[string]any{"type": "string"},
			"grammar_comment": map[string]any{"type": "string"},
			"reply": map[string]any{
				"type":        "string",
				"description": "Your next line in the role-play, in the target language",
			},
		},
		"required":             []any{"accuracy_score", "pronunciation_tips", "fluency_comment", "grammar_comment", "reply"},
		"additionalProperties": false,
	},
}

func chatSystemPrompt(s session.Settings) string {
	var b strings.Builder
	b.WriteString(exercise.PersonaLine(s.Persona))
	fmt.Fprintf(&b, "\nYou are chatting with a %s speaker who is learning %s at CEFR level %s.\n",
		s.NativeName(), s.TargetName(), s.Level)
	fmt.Fprintf(&b, "Reply only in %s, in one to three short sentences, and keep the conversation going with a question.", s.TargetName())
	return b.String()
}

func speakingSystemPrompt(s session.Settings, sc Scenario) string {
	var b strings.Builder
	b.WriteString(exercise.PersonaLine(s.Persona))
	fmt.Fprintf(&b, "\nYou are role-playing %s. Setting: %s.\n", sc.Partner, sc.Setting)
	fmt.Fprintf(&b, "The learner is a %s speaker practising spoken %s at CEFR level %s. Their goal: %s.\n",
		s.NativeName(), s.TargetName(), s.Level, sc.Goal)
	fmt.Fprintf(&b, "Speak only in %s and keep each line under 30 words.", s.TargetName())
	return b.String()
}

const openingInstruction = "Open the role-play with your first line. Reply with the line only."

const feedbackInstruction = "\nThe learner's lines come from speech recognition. Grade their last line and give your next line, as the requested JSON."
