package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/chris/wingman/config"
	"github.com/chris/wingman/internal/db"
	"github.com/chris/wingman/internal/ingest"
	"github.com/chris/wingman/internal/llm"
	"github.com/chris/wingman/internal/prompt"
)

var rootCmd = &cobra.Command{
	Use:   "wingman",
	Short: "Relationship memory and reply suggestions for your DMs",
	Long: `wingman keeps a profile for everyone you talk to, learns facts from
each message and suggests replies grounded in what it has learned.

Configuration is read from the environment or a .env file.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.AddCommand(serveCmd, suggestCmd, importCmd, simulateCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app is the wiring shared by every command.
type app struct {
	cfg    *config.Config
	logger *log.Logger
	db     *db.DB
	ctrl   *ingest.Controller
}

func newApp(ctx context.Context) (*app, error) {
	cfg := config.Load()
	logger := newLogger(cfg.LogLevel)

	database, err := db.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	client, err := llm.NewClient(ctx, llm.ProviderConfig{
		Provider: cfg.LLMProvider,
		APIKey:   cfg.APIKey(),
		Model:    cfg.LLMModel,
		BaseURL:  cfg.OllamaBaseURL,
	})
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("creating LLM client: %w", err)
	}
	llm.ReplyOptions.Temperature = cfg.LLMTemperature

	ctrl := ingest.New(database, client, prompt.New(), ingest.Identity{
		SelfID:    cfg.SelfID,
		SelfLabel: cfg.SelfLabel,
		SelfName:  cfg.SelfName,
	}, logger)

	logger.Debug("app ready", "provider", cfg.LLMProvider, "db", cfg.DatabaseDriver)
	return &app{cfg: cfg, logger: logger, db: database, ctrl: ctrl}, nil
}

func (a *app) Close() {
	a.db.Close()
}

func newLogger(level string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Prefix:          "wingman",
	})
}
