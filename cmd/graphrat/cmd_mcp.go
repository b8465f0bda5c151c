package main

import (
	"fmt"
	"path/filepath"

	"github.com/nvandessel/graphrat/internal/mcp"
	"github.com/spf13/cobra"
)

func newMCPServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp-server",
		Short: "Run graphrat as an MCP server over stdio",
		Long: `Run graphrat as a Model Context Protocol server over stdio.

Tools:
  graphrat_simulate  run a simulation from graph and rat files under the root
  graphrat_runs      list recorded runs or show one
  graphrat_graph     render a graph as DOT, JSON, or an HTML heatmap

Runs are recorded in <root>/.graphrat/graphrat.db and every tool call is
appended to <root>/.graphrat/audit.jsonl. File arguments must resolve
inside the root or ~/.graphrat.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			root, err := filepath.Abs(root)
			if err != nil {
				return fmt.Errorf("failed to resolve root: %w", err)
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			server, err := mcp.NewServer(&mcp.Config{
				Name:    "graphrat",
				Version: version,
				Root:    root,
				Threads: cfg.Simulation.Threads,
				// stdout carries the protocol; logs must go to stderr.
				Logger: newLogger(cmd, cfg),
			})
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "graphrat MCP server %s listening on stdio (root %s)\n", version, root)
			return server.Run(cmd.Context())
		},
	}

	cmd.Flags().String("root", ".", "Project root directory")
	return cmd
}
