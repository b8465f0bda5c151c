package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/nvandessel/graphrat/internal/config"
	"github.com/nvandessel/graphrat/internal/logging"
	"github.com/nvandessel/graphrat/internal/store"
	"github.com/spf13/cobra"
)

// loadConfig resolves the configuration for cmd: defaults, the config file
// (--config or ~/.graphrat/config.yaml), environment, then --log-level.
// The result is validated.
func loadConfig(cmd *cobra.Command) (*config.GraphratConfig, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadPath(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level, _ = cmd.Flags().GetString("log-level")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger returns the operational logger for cmd. Log output goes to
// stderr so it never mixes with reports on stdout.
func newLogger(cmd *cobra.Command, cfg *config.GraphratConfig) *slog.Logger {
	return logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
}

// storeRoot returns the directory holding .graphrat/ for run history.
func storeRoot(cfg *config.GraphratConfig) (string, error) {
	if cfg.Store.Root != "" {
		return cfg.Store.Root, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return home, nil
}

// openRunStore opens the run history database.
func openRunStore(cfg *config.GraphratConfig) (*store.SQLiteRunStore, error) {
	root, err := storeRoot(cfg)
	if err != nil {
		return nil, err
	}
	rs, err := store.NewSQLiteRunStore(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open run store: %w", err)
	}
	return rs, nil
}

// signalContext returns a context cancelled on interrupt.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	notifySignals(sigCh)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// createOutput opens path for writing, or returns w when path is empty or "-".
func createOutput(path string, w io.Writer) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return w, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return f, f.Close, nil
}
