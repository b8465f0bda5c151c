// Package mcp provides an MCP (Model Context Protocol) server for graphrat.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/graphrat/internal/pathutil"
	"github.com/nvandessel/graphrat/internal/ratelimit"
	"github.com/nvandessel/graphrat/internal/store"
)

// Server wraps the MCP SDK server with graphrat tools.
type Server struct {
	server       *sdk.Server
	store        store.RunStore
	root         string
	allowedDirs  []string
	threads      int
	logger       *slog.Logger
	toolLimiters ratelimit.ToolLimiters
	auditLogger  *AuditLogger

	closeOnce sync.Once
	closeErr  error
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "graphrat")
	Version string // Server version
	Root    string // Project root directory

	// Threads bounds the worker goroutines of each simulation. Zero means one.
	Threads int

	Logger *slog.Logger
}

// NewServer creates a new MCP server with graphrat tools. Runs are recorded
// in the project's SQLite run store.
func NewServer(cfg *Config) (*Server, error) {
	runStore, err := store.NewSQLiteRunStore(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to create run store: %w", err)
	}
	return newServer(cfg, runStore)
}

func newServer(cfg *Config, runStore store.RunStore) (*Server, error) {
	allowed, err := pathutil.AllowedInputDirs(cfg.Root)
	if err != nil {
		runStore.Close()
		return nil, fmt.Errorf("failed to resolve allowed directories: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	s := &Server{
		server:       mcpServer,
		store:        runStore,
		root:         cfg.Root,
		allowedDirs:  allowed,
		threads:      max(1, cfg.Threads),
		logger:       logger,
		toolLimiters: ratelimit.NewToolLimiters(),
		auditLogger:  NewAuditLogger(cfg.Root),
	}

	s.registerTools()
	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects, the context is cancelled or the
// process receives an interrupt.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	err := s.server.Run(ctx, &sdk.StdioTransport{})
	if cerr := s.Close(); err == nil {
		err = cerr
	}
	return err
}

// Close releases the run store and the audit log. It is safe to call more
// than once.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.store.Close()
		if err := s.auditLogger.Close(); err != nil && s.closeErr == nil {
			s.closeErr = err
		}
	})
	return s.closeErr
}
