package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/lingua/internal/session"
)

func newCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "lingua"}
	RegisterFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestLoad_Defaults(t *testing.T) {
	db := filepath.Join(t.TempDir(), "data", "lingua.db")
	cfg, err := Load(newCmd(t, "--db", db, "--provider", "mock", "--user", "Ana@Example.com"))
	require.NoError(t, err)

	assert.Equal(t, session.DefaultSettings(), cfg.Settings)
	assert.Equal(t, "mock", cfg.LLM.Provider)
	assert.Equal(t, "Ana@Example.com", cfg.User)
	assert.Equal(t, filepath.Join(filepath.Dir(db), "lingua.log"), cfg.LogFile)
	assert.Equal(t, 600*time.Millisecond, cfg.ReplyDelay)
	assert.DirExists(t, filepath.Dir(db))
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "lingua.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
user: luis@example.com
target: fr
level: b2
persona: strict
llm:
  provider: openai
  timeout: 10s
  openai:
    api_key: sk-test
    model: gpt-4o
`), 0o644))

	cfg, err := Load(newCmd(t, "--config", file, "--db", filepath.Join(dir, "lingua.db")))
	require.NoError(t, err)

	assert.Equal(t, "luis@example.com", cfg.User)
	assert.Equal(t, "fr", cfg.Settings.TargetLanguage)
	assert.Equal(t, session.Level("B2"), cfg.Settings.Level)
	assert.Equal(t, "strict", cfg.Settings.Persona)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.LLM.OpenAI.APIKey)
	assert.Equal(t, "gpt-4o", cfg.LLM.OpenAI.Model)
	assert.Equal(t, 10*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 1, cfg.LLM.Retry.MaxAttempts, "unset fields keep their defaults")
}

func TestLoad_Precedence(t *testing.T) {
	t.Setenv("LINGUA_LEVEL", "c1")
	t.Setenv("LINGUA_TARGET", "de")
	db := filepath.Join(t.TempDir(), "lingua.db")

	cfg, err := Load(newCmd(t, "--db", db, "--provider", "mock", "--target", "it"))
	require.NoError(t, err)
	assert.Equal(t, session.Level("C1"), cfg.Settings.Level, "env beats default")
	assert.Equal(t, "it", cfg.Settings.TargetLanguage, "flag beats env")
}

func TestLoad_InvalidSettings(t *testing.T) {
	db := filepath.Join(t.TempDir(), "lingua.db")
	_, err := Load(newCmd(t, "--db", db, "--provider", "mock", "--level", "D4"))
	assert.Error(t, err)
}
