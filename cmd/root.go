package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/abhisek/lingua/internal/config"
	"github.com/abhisek/lingua/internal/store"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "lingua",
	Short: "AI language tutor in your terminal",
	Long:  "Lingua is a terminal app for practicing a foreign language with exercises, exams and conversation.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd)
	},
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	config.RegisterFlags(rootCmd)

	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(accountsCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// openStore resolves the configuration and opens the database it names.
func openStore(cmd *cobra.Command) (*config.Config, *store.Store, error) {
	cfg, err := config.Load(cmd)
	if err != nil {
		return nil, nil, err
	}
	s, err := store.Open(cfg.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	return cfg, s, nil
}

// setupLogging points the default logger at w. The TUI owns the
// terminal, so the interactive run logs to a file.
func setupLogging(w io.Writer, level, format string) {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(format) {
	case "json":
		logHandler = slog.NewJSONHandler(w, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(w, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// openLogFile opens path for appending, falling back to discarding
// output when it cannot be created.
func openLogFile(path string) io.WriteCloser {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Could not open log file:", err)
		return nopCloser{io.Discard}
	}
	return f
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
