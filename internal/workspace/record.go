package workspace

import (
	"fmt"

	"github.com/abhisek/lingua/internal/conversation"
	"github.com/abhisek/lingua/internal/engine"
	"github.com/abhisek/lingua/internal/exam"
	"github.com/abhisek/lingua/internal/exercise"
	"github.com/abhisek/lingua/internal/progress"
	"github.com/abhisek/lingua/internal/session"
	"github.com/abhisek/lingua/internal/store"
)

// RecordVersion is the schema version written with every record.
const RecordVersion = "v2.0.0"

// Record is everything persisted for one learner. Each surface is
// stored independently; a missing surface rehydrates empty.
type Record struct {
	Settings session.Settings `json:"settings"`
	Active   Surface          `json:"active,omitempty"`

	Story       *engine.Snapshot[exercise.StoryTask]       `json:"story,omitempty"`
	Sentence    *engine.Snapshot[exercise.SentenceTask]    `json:"sentence,omitempty"`
	Grammar     *engine.Snapshot[exercise.GrammarTask]     `json:"grammar,omitempty"`
	Idiom       *engine.Snapshot[exercise.IdiomTask]       `json:"idiom,omitempty"`
	Translation *engine.Snapshot[exercise.TranslationTask] `json:"translation,omitempty"`
	Writing     *engine.Snapshot[exercise.WritingTask]     `json:"writing,omitempty"`

	Exam     *exam.Snapshot         `json:"exam,omitempty"`
	Chat     *conversation.Snapshot `json:"chat,omitempty"`
	Speaking *conversation.Snapshot `json:"speaking,omitempty"`

	Progress progress.Tracker `json:"progress"`
}

// Migrations upgrade older record layouts.
var Migrations = []session.Migration{
	{Version: "v2.0.0", Apply: migrateV2},
}

// NewStore returns the record store over kv.
func NewStore(kv store.KV) *session.Store[Record] {
	return session.NewStore[Record](kv, RecordVersion, Migrations...)
}

// migrateV2 lifts v1 records, which nested exercise surfaces under
// "surfaces" and kept per-surface stats under "stats".
func migrateV2(doc map[string]any) error {
	if raw, ok := doc["surfaces"]; ok {
		surfaces, ok := raw.(map[string]any)
		if !ok {
			return fmt.Errorf("surfaces is %T, want object", raw)
		}
		for name, snap := range surfaces {
			if _, taken := doc[name]; !taken {
				doc[name] = snap
			}
		}
		delete(doc, "surfaces")
	}
	if raw, ok := doc["stats"]; ok {
		stats, ok := raw.(map[string]any)
		if !ok {
			return fmt.Errorf("stats is %T, want object", raw)
		}
		if _, taken := doc["progress"]; !taken {
			doc["progress"] = map[string]any{"surfaces": stats}
		}
		delete(doc, "stats")
	}
	return nil
}
