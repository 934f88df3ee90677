// Package session holds who is learning and how (Context, Settings) and
// persists their durable record in the key/value store.
package session

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Level is a CEFR proficiency level.
type Level string

const (
	LevelA1 Level = "A1"
	LevelA2 Level = "A2"
	LevelB1 Level = "B1"
	LevelB2 Level = "B2"
	LevelC1 Level = "C1"
	LevelC2 Level = "C2"
)

// Levels lists every supported level from beginner to mastery.
var Levels = []Level{LevelA1, LevelA2, LevelB1, LevelB2, LevelC1, LevelC2}

// Settings are the learner's preferences. They travel with the record.
type Settings struct {
	Theme          string `json:"theme"`
	Persona        string `json:"persona"`
	TargetLanguage string `json:"target_language"`
	NativeLanguage string `json:"native_language"`
	Level          Level  `json:"level"`
}

// DefaultSettings returns settings for an English speaker learning Spanish.
func DefaultSettings() Settings {
	return Settings{
		Theme:          "dark",
		Persona:        "friendly",
		TargetLanguage: "es",
		NativeLanguage: "en",
		Level:          LevelA2,
	}
}

// Normalize fills empty fields from defaults and canonicalizes language tags.
func (s Settings) Normalize() Settings {
	def := DefaultSettings()
	if s.Theme == "" {
		s.Theme = def.Theme
	}
	if s.Persona == "" {
		s.Persona = def.Persona
	}
	if s.TargetLanguage == "" {
		s.TargetLanguage = def.TargetLanguage
	}
	if s.NativeLanguage == "" {
		s.NativeLanguage = def.NativeLanguage
	}
	if s.Level == "" {
		s.Level = def.Level
	}
	if tag, err := language.Parse(s.TargetLanguage); err == nil {
		s.TargetLanguage = tag.String()
	}
	if tag, err := language.Parse(s.NativeLanguage); err == nil {
		s.NativeLanguage = tag.String()
	}
	s.Level = Level(strings.ToUpper(string(s.Level)))
	return s
}

// Validate checks language tags and the level.
func (s Settings) Validate() error {
	if _, err := language.Parse(s.TargetLanguage); err != nil {
		return fmt.Errorf("target language %q: %w", s.TargetLanguage, err)
	}
	if _, err := language.Parse(s.NativeLanguage); err != nil {
		return fmt.Errorf("native language %q: %w", s.NativeLanguage, err)
	}
	for _, l := range Levels {
		if s.Level == l {
			return nil
		}
	}
	return fmt.Errorf("unknown level %q", s.Level)
}

// TargetName is the English name of the language being learned,
// e.g. "Spanish". Prompts use it so the model sees a name, not a tag.
func (s Settings) TargetName() string {
	return languageName(s.TargetLanguage)
}

// NativeName is the English name of the learner's own language.
func (s Settings) NativeName() string {
	return languageName(s.NativeLanguage)
}

func languageName(tag string) string {
	t, err := language.Parse(tag)
	if err != nil {
		return tag
	}
	if name := display.English.Tags().Name(t); name != "" {
		return name
	}
	return tag
}

// Context is the explicit session object handed to every orchestrator
// call in place of ambient globals. It is built at login and dropped at
// logout or account switch.
type Context struct {
	// UserID is the learner's email address.
	UserID string

	Settings Settings

	// Incognito keeps every change in memory only.
	Incognito bool
}

// NewContext builds a Context with normalized settings.
func NewContext(userID string, settings Settings, incognito bool) Context {
	return Context{
		UserID:    strings.TrimSpace(userID),
		Settings:  settings.Normalize(),
		Incognito: incognito,
	}
}
