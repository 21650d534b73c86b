package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Tiliavir/babytalk/internal/assistant"
	"github.com/Tiliavir/babytalk/internal/config"
	"github.com/Tiliavir/babytalk/internal/credentials"
	"github.com/Tiliavir/babytalk/internal/model"
	"github.com/Tiliavir/babytalk/internal/openai"
	"github.com/Tiliavir/babytalk/internal/storage"
)

var (
	configPath  string
	dataDirFlag string

	cfg    config.Config
	loc    = time.Local
	logger = log.New(os.Stderr, "babytalk: ", 0)
)

var rootCmd = &cobra.Command{
	Use:   "babytalk",
	Short: "BabyTalk – log feedings, sleep and diapers, by hand or by voice",
	Long: `babytalk keeps a day-by-day log of a baby's feedings, sleep, diapers and notes.
Entries can be typed in, or recorded as audio and structured by an AI assistant.
All data is stored as JSON files in ~/.babytalk/.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute is the entry point called from main.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.babytalk/config.json)")
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "Data directory (overrides the config file)")

	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(dayCmd)
	rootCmd.AddCommand(notesCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(insightsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(keyCmd)
	rootCmd.AddCommand(serveCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	c, err := config.Load(configPath)
	if err != nil {
		fail(1, err)
	}
	if dataDirFlag != "" {
		c.DataDir = dataDirFlag
	}
	l, err := c.Location()
	if err != nil {
		fail(1, err)
	}
	cfg, loc = c, l

	if cfg.LogFile != "" {
		if err := setupLogging(cfg.LogFile); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v; logging to stderr\n", err)
		}
	}
	return nil
}

// setupLogging appends diagnostic output to path for the rest of the process.
func setupLogging(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	logger = log.New(f, "babytalk: ", log.LstdFlags)
	return nil
}

// fail prints err and exits. Code 1 is a usage or domain error, 2 a storage
// error.
func fail(code int, err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(code)
}

func openStore() *storage.Store {
	store, err := storage.Open(cfg.DataDir, storage.Options{Location: loc, Logger: logger})
	if err != nil {
		fail(2, err)
	}
	return store
}

// saveEntry stores e. On a write failure the entry is printed so it can be
// re-entered, and the process exits with code 2.
func saveEntry(store *storage.Store, e model.LogEntry) {
	if err := store.AddEntry(e); err != nil {
		fmt.Fprintln(os.Stderr, "entry captured but not saved:", err)
		if data, jerr := json.MarshalIndent(e, "", "  "); jerr == nil {
			fmt.Fprintln(os.Stderr, string(data))
		}
		os.Exit(2)
	}
}

func babyID(store *storage.Store) uuid.UUID {
	if p, ok := store.Profile(); ok {
		return p.ID
	}
	return uuid.Nil
}

func newResolver() *credentials.Resolver {
	return credentials.NewResolver(cfg.DataDir, cfg.AI.APIKey)
}

func newAIClient() *openai.Client {
	return openai.NewClient(newResolver().TokenSource(), openai.Options{
		BaseURL:            cfg.AI.BaseURL,
		Model:              cfg.AI.Model,
		TranscriptionModel: cfg.AI.TranscriptionModel,
		Timeout:            cfg.Timeout(),
	})
}

func assistantOptions(store *storage.Store) assistant.Options {
	return assistant.Options{
		BabyID:   babyID(store),
		Location: loc,
		Logger:   logger,
	}
}

// failAI reports an assistant error and exits with code 1.
func failAI(err error) {
	if errors.Is(err, openai.ErrNoCredential) {
		fail(1, fmt.Errorf("%w: run 'babytalk key set <key>' or set %s", err, credentials.EnvKey))
	}
	fail(1, err)
}
