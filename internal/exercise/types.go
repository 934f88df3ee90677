// Package exercise defines the tasks, answers and verdicts that flow
// through the lesson engine, and the model-backed sources that generate
// tasks for each practice surface.
package exercise

import "strings"

// Kind identifies a practice surface.
type Kind string

const (
	KindStory       Kind = "story"
	KindSentence    Kind = "sentence"
	KindGrammar     Kind = "grammar"
	KindIdiom       Kind = "idiom"
	KindTranslation Kind = "translation"
	KindWriting     Kind = "writing"
)

// Kinds lists the single-task surfaces in menu order.
var Kinds = []Kind{KindStory, KindSentence, KindGrammar, KindIdiom, KindTranslation, KindWriting}

// Title is the menu label for the surface.
func (k Kind) Title() string {
	switch k {
	case KindStory:
		return "Story Time"
	case KindSentence:
		return "Sentence Builder"
	case KindGrammar:
		return "Grammar Gauntlet"
	case KindIdiom:
		return "Idiom Quest"
	case KindTranslation:
		return "Translation Practice"
	case KindWriting:
		return "Writing Analysis"
	default:
		return string(k)
	}
}

// Task is one generated unit of exercise content. TaskID is assigned
// when the task is created and never changes; answers are correlated
// to their task through it.
type Task interface {
	TaskID() string
	Kind() Kind
}

// StoryTask is a short story followed by a comprehension question.
type StoryTask struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Text     string `json:"text"`
	Question string `json:"question"`
}

func (t StoryTask) TaskID() string { return t.ID }
func (t StoryTask) Kind() Kind     { return KindStory }

// SentenceTask asks the learner to rebuild Original from Scrambled.
type SentenceTask struct {
	ID          string   `json:"id"`
	Original    string   `json:"original"`
	Scrambled   []string `json:"scrambled"`
	Translation string   `json:"translation"`
}

func (t SentenceTask) TaskID() string { return t.ID }
func (t SentenceTask) Kind() Kind     { return KindSentence }

// Tokens returns Original split into the words the learner arranges.
func (t SentenceTask) Tokens() []string {
	return strings.Fields(t.Original)
}

// GrammarTask asks the learner to correct an ungrammatical sentence.
type GrammarTask struct {
	ID          string `json:"id"`
	Incorrect   string `json:"incorrect"`
	Correct     string `json:"correct"`
	Explanation string `json:"explanation"`
}

func (t GrammarTask) TaskID() string { return t.ID }
func (t GrammarTask) Kind() Kind     { return KindGrammar }

// IdiomTask is a four-option quiz on the meaning of an idiom.
// Exactly one of Options equals CorrectMeaning.
type IdiomTask struct {
	ID              string   `json:"id"`
	ContextSentence string   `json:"context_sentence"`
	CorrectIdiom    string   `json:"correct_idiom"`
	CorrectMeaning  string   `json:"correct_meaning"`
	Options         []string `json:"options"`
	Explanation     string   `json:"explanation"`
}

func (t IdiomTask) TaskID() string { return t.ID }
func (t IdiomTask) Kind() Kind     { return KindIdiom }

// TranslationTask asks the learner to translate Source into TargetLanguage.
type TranslationTask struct {
	ID             string `json:"id"`
	Source         string `json:"source"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
	Reference      string `json:"reference"`
}

func (t TranslationTask) TaskID() string { return t.ID }
func (t TranslationTask) Kind() Kind     { return KindTranslation }

// WritingTask is a free-writing prompt graded by the model.
type WritingTask struct {
	ID       string `json:"id"`
	Topic    string `json:"topic"`
	Guidance string `json:"guidance"`
	MinWords int    `json:"min_words"`
}

func (t WritingTask) TaskID() string { return t.ID }
func (t WritingTask) Kind() Kind     { return KindWriting }

// Answer is a learner's response to a task.
type Answer struct {
	TaskID string `json:"task_id"`
	Value  string `json:"value"`
}

// Verdict is the outcome of checking one answer.
type Verdict struct {
	Correct bool   `json:"correct"`
	Message string `json:"message"`

	// Score is 0-100 for model-graded answers and unset for local checks.
	Score int `json:"score,omitempty"`

	// Expected is revealed to the learner after a wrong answer.
	Expected string `json:"expected,omitempty"`
}

// QuestionKind is the answer mode of an exam question.
type QuestionKind string

const (
	QuestionMCQ       QuestionKind = "mcq"
	QuestionWriting   QuestionKind = "writing"
	QuestionSpeaking  QuestionKind = "speaking"
	QuestionListening QuestionKind = "listening"
)

// ExamQuestion is one question of an exam. Options is set only for mcq
// questions and then holds exactly four entries.
type ExamQuestion struct {
	ID      int          `json:"id"`
	Kind    QuestionKind `json:"kind"`
	Text    string       `json:"text"`
	Options []string     `json:"options,omitempty"`
}

// QuestionFeedback is the grade for one exam question.
type QuestionFeedback struct {
	QuestionID   int    `json:"question_id"`
	QuestionText string `json:"question_text"`
	UserAnswer   string `json:"user_answer"`
	Correct      bool   `json:"correct"`
	Feedback     string `json:"feedback"`
}

// ExamVerdict is the batch grade of a whole exam. PerQuestion follows
// question order and has one entry per question.
type ExamVerdict struct {
	OverallScore int                `json:"overall_score"`
	Summary      string             `json:"summary"`
	PerQuestion  []QuestionFeedback `json:"per_question"`
}

// Role is the speaker of a conversation turn.
type Role string

const (
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
)

// PronunciationTip is advice on one word.
type PronunciationTip struct {
	Word string `json:"word"`
	Tip  string `json:"tip"`
}

// SpeakingFeedback grades one spoken user turn.
type SpeakingFeedback struct {
	AccuracyScore     int                `json:"accuracy_score"`
	PronunciationTips []PronunciationTip `json:"pronunciation_tips"`
	FluencyComment    string             `json:"fluency_comment"`
	GrammarComment    string             `json:"grammar_comment"`
}

// Turn is one utterance in a conversation. Feedback is only ever set on
// user turns.
type Turn struct {
	Role     Role              `json:"role"`
	Text     string            `json:"text"`
	Feedback *SpeakingFeedback `json:"feedback,omitempty"`
}
