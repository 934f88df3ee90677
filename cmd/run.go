package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/abhisek/lingua/internal/app"
	"github.com/abhisek/lingua/internal/content"
	"github.com/abhisek/lingua/internal/llm"
	"github.com/abhisek/lingua/internal/session"
	"github.com/abhisek/lingua/internal/speech"
	"github.com/abhisek/lingua/internal/workspace"
	"github.com/spf13/cobra"
)

// runApp opens the store, builds dependencies, and launches the TUI.
func runApp(cmd *cobra.Command) error {
	ctx := cmd.Context()

	cfg, st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	logFile := openLogFile(cfg.LogFile)
	defer logFile.Close()
	setupLogging(logFile, cfg.LogLevel, cfg.LogFormat)

	eventRepo := st.EventRepo()
	opts := app.Options{Events: eventRepo}

	var provider llm.Provider
	if cfg.LLM.HasKey() || cfg.LLM.Provider == "mock" {
		provider, err = llm.NewProvider(ctx, cfg.LLM, eventRepo)
	} else {
		err = fmt.Errorf("no API key for provider %q", cfg.LLM.Provider)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "LLM provider not configured:", err)
		fmt.Fprintln(os.Stderr, "Exercises will be unavailable.")
		slog.Warn("llm provider unavailable", "error", err)
		provider = llm.NewMockProvider()
		opts.NoKey = true
	}

	speaker := speech.NewCommandSpeaker(cfg.TTSCommand)
	opts.Speaker = speaker

	sc := session.NewContext(cfg.User, cfg.Settings, cfg.Incognito)
	ws, err := workspace.Open(ctx, sc, workspace.Deps{
		Generator:  content.New(provider, content.DefaultConfig()),
		Store:      workspace.NewStore(st.KV()),
		Speaker:    speaker,
		ReplyDelay: cfg.ReplyDelay,
	})
	if err != nil {
		return fmt.Errorf("open workspace: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ws.Close(closeCtx); err != nil {
			slog.Error("saving session failed", "error", err)
		}
	}()
	opts.Workspace = ws

	return app.Run(opts)
}
