package llm

import "context"

type contextKey struct{}

// Purpose labels recorded with every request in the event log.
const (
	PurposeStory        = "story"
	PurposeSentence     = "sentence"
	PurposeGrammar      = "grammar"
	PurposeIdiom        = "idiom"
	PurposeTranslation  = "translation"
	PurposeWriting      = "writing"
	PurposeGrade        = "grade"
	PurposeExamGenerate = "exam-generate"
	PurposeExamGrade    = "exam-grade"
	PurposeChat         = "chat"
	PurposeSpeaking     = "speaking"
)

// WithPurpose attaches a purpose label to the context for event logging.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, contextKey{}, purpose)
}

// PurposeFrom extracts the purpose label from the context.
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(contextKey{}).(string); ok {
		return v
	}
	return "unknown"
}
