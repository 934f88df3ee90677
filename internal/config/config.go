// Package config resolves lingua's runtime configuration from flags,
// LINGUA_* environment variables and an optional lingua.yaml, in that
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/abhisek/lingua/internal/llm"
	"github.com/abhisek/lingua/internal/session"
	"github.com/abhisek/lingua/internal/store"
)

// Config is the resolved configuration for one run.
type Config struct {
	DB        string
	User      string
	Incognito bool

	Settings session.Settings
	LLM      llm.Config

	LogLevel  string
	LogFormat string
	LogFile   string

	// TTSCommand reads listening questions aloud. Empty is silent.
	TTSCommand string

	// ReplyDelay is the pause before a conversation reply appears.
	ReplyDelay time.Duration
}

// RegisterFlags adds the shared flags to the root command.
func RegisterFlags(cmd *cobra.Command) {
	d := session.DefaultSettings()
	f := cmd.PersistentFlags()
	f.String("config", "", "Config file (default: lingua.yaml in . or $HOME/.config/lingua)")
	f.String("db", "", "SQLite database path (default: $XDG_DATA_HOME/lingua/lingua.db)")
	f.StringP("user", "u", "", "Learner email used to key saved progress")
	f.Bool("incognito", false, "Do not save progress and discard any saved progress for this user")
	f.String("target", d.TargetLanguage, "Language being learned (BCP 47 tag)")
	f.String("native", d.NativeLanguage, "Learner's native language (BCP 47 tag)")
	f.String("level", string(d.Level), "CEFR level (A1-C2)")
	f.String("persona", d.Persona, "Tutor persona (friendly, strict, playful)")
	f.String("theme", d.Theme, "Color theme (dark, light)")
	f.String("provider", "", "LLM provider (anthropic, openai, gemini, openrouter, mock)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	f.String("log-file", "", "Log file (default: lingua.log next to the database)")
	f.String("tts-command", "", "Command that speaks its argument aloud, e.g. say or espeak")
	f.Duration("reply-delay", 600*time.Millisecond, "Pause before a conversation reply is shown")
}

// Viper binds the command's flags and environment to a fresh viper
// instance and reads the config file if there is one.
func Viper(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())
	_ = v.BindPFlags(cmd.InheritedFlags())

	v.SetEnvPrefix("LINGUA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("lingua")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/lingua")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}
	return v
}

// Load resolves the configuration for cmd.
func Load(cmd *cobra.Command) (*Config, error) {
	return FromViper(Viper(cmd))
}

// FromViper resolves the configuration from v.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DB:         v.GetString("db"),
		User:       strings.TrimSpace(v.GetString("user")),
		Incognito:  v.GetBool("incognito"),
		LogLevel:   v.GetString("log-level"),
		LogFormat:  v.GetString("log-format"),
		LogFile:    v.GetString("log-file"),
		TTSCommand: v.GetString("tts-command"),
		ReplyDelay: v.GetDuration("reply-delay"),
	}
	if cfg.User == "" {
		cfg.User = defaultUser()
	}

	cfg.Settings = session.Settings{
		Theme:          v.GetString("theme"),
		Persona:        v.GetString("persona"),
		TargetLanguage: v.GetString("target"),
		NativeLanguage: v.GetString("native"),
		Level:          session.Level(v.GetString("level")),
	}.Normalize()
	if err := cfg.Settings.Validate(); err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}

	llmCfg, err := resolveLLM(v)
	if err != nil {
		return nil, err
	}
	cfg.LLM = llmCfg

	if cfg.DB == "" {
		p, err := store.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolve database path: %w", err)
		}
		cfg.DB = p
	} else if err := store.EnsureDir(cfg.DB); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	if cfg.LogFile == "" {
		cfg.LogFile = filepath.Join(filepath.Dir(cfg.DB), "lingua.log")
	}
	return cfg, nil
}

// resolveLLM layers the llm section of the config file over the
// LINGUA_* environment, falling back to the vendors' own key variables
// when no key is configured.
func resolveLLM(v *viper.Viper) (llm.Config, error) {
	cfg := llm.ConfigFromEnv()
	if v.IsSet("llm") {
		if err := v.UnmarshalKey("llm", &cfg); err != nil {
			return llm.Config{}, fmt.Errorf("llm config: %w", err)
		}
	}
	if p := v.GetString("provider"); p != "" {
		cfg.Provider = p
	}
	if !cfg.HasKey() && v.GetString("provider") == "" {
		if discovered, ok := llm.DiscoverConfig(); ok {
			slog.Debug("using discovered LLM provider", "provider", discovered.Provider)
			discovered.Timeout = cfg.Timeout
			discovered.Retry = cfg.Retry
			discovered.Breaker = cfg.Breaker
			cfg = discovered
		}
	}
	return cfg, nil
}

func defaultUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u + "@localhost"
	}
	return "learner@localhost"
}
