package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nvandessel/graphrat/internal/store"
	"github.com/nvandessel/graphrat/internal/visualization"
	"github.com/spf13/cobra"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded runs",
		Long: `List, show, view, delete, back up, and restore runs recorded in the
history database.

Examples:
  graphrat runs list
  graphrat runs show 3
  graphrat runs view 3
  graphrat runs delete 3
  graphrat runs backup
  graphrat runs restore history.gra`,
	}

	cmd.AddCommand(
		newRunsListCmd(),
		newRunsShowCmd(),
		newRunsViewCmd(),
		newRunsDeleteCmd(),
		newRunsBackupCmd(),
		newRunsRestoreCmd(),
	)
	return cmd
}

func newRunsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			limit, _ := cmd.Flags().GetInt("limit")

			rs, err := openRunStoreForCmd(cmd)
			if err != nil {
				return err
			}
			defer rs.Close()

			runs, err := rs.ListRuns(context.Background(), limit)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}

			if jsonOut {
				if runs == nil {
					runs = []store.Run{}
				}
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"runs":  runs,
					"count": len(runs),
				})
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No recorded runs.")
				return nil
			}
			fmt.Fprintf(out, "%-5s %-9s %-12s %7s %9s %6s %10s  %s\n", "ID", "STATUS", "MODE", "NODES", "RATS", "STEPS", "ELAPSED", "GRAPH")
			for _, run := range runs {
				fmt.Fprintf(out, "%-5d %-9s %-12s %7d %9d %6d %10s  %s\n",
					run.ID, run.Status, run.Mode, run.Nodes, run.Rats, run.Steps,
					run.Elapsed.Round(time.Millisecond), run.GraphPath)
			}
			return nil
		},
	}

	cmd.Flags().Int("limit", 20, "Maximum number of runs to list (0 for all)")
	return cmd
}

func newRunsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			id, err := parseRunID(args[0])
			if err != nil {
				return err
			}

			rs, err := openRunStoreForCmd(cmd)
			if err != nil {
				return err
			}
			defer rs.Close()

			ctx := context.Background()
			run, err := getRun(ctx, rs, id)
			if err != nil {
				return err
			}
			snaps, err := rs.Snapshots(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to load snapshots: %w", err)
			}
			steps := make([]int, len(snaps))
			for i, snap := range snaps {
				steps[i] = snap.Step
			}

			var identical []int64
			if run.CountsHash != "" {
				ids, err := rs.FindByCountsHash(ctx, run.CountsHash)
				if err != nil {
					return err
				}
				for _, other := range ids {
					if other != run.ID {
						identical = append(identical, other)
					}
				}
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"run":       run,
					"steps":     steps,
					"identical": identical,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %d (%s)\n", run.ID, run.Status)
			fmt.Fprintf(out, "  graph:      %s\n", run.GraphPath)
			fmt.Fprintf(out, "  rats:       %s\n", run.RatsPath)
			fmt.Fprintf(out, "  size:       %d nodes, %d edges, %d rats\n", run.Nodes, run.Edges, run.Rats)
			fmt.Fprintf(out, "  mode:       %s (batch size %d)\n", run.Mode, run.BatchSize)
			fmt.Fprintf(out, "  steps:      %d (seed %d, %d threads)\n", run.Steps, run.Seed, run.Threads)
			fmt.Fprintf(out, "  started:    %s\n", run.StartedAt.Format(time.RFC3339))
			fmt.Fprintf(out, "  elapsed:    %s\n", run.Elapsed.Round(time.Millisecond))
			fmt.Fprintf(out, "  fallbacks:  %d\n", run.Fallbacks)
			fmt.Fprintf(out, "  recorded:   %d snapshots\n", len(steps))
			if run.Error != "" {
				fmt.Fprintf(out, "  error:      %s\n", run.Error)
			}
			if len(identical) > 0 {
				fmt.Fprintf(out, "  same final state as runs %v\n", identical)
			}
			return nil
		},
	}
}

func newRunsViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view <id>",
		Short: "Browse a recorded run's heatmaps in a local web server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			noOpen, _ := cmd.Flags().GetBool("no-open")
			id, err := parseRunID(args[0])
			if err != nil {
				return err
			}

			rs, err := openRunStoreForCmd(cmd)
			if err != nil {
				return err
			}
			defer rs.Close()

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			if _, err := getRun(ctx, rs, id); err != nil {
				return err
			}
			return runViewServer(cmd, ctx, rs, id, noOpen)
		},
	}

	cmd.Flags().Bool("no-open", false, "Don't open browser after starting the server")
	return cmd
}

// runViewServer starts the run viewer and blocks until ctx is cancelled.
func runViewServer(cmd *cobra.Command, ctx context.Context, rs store.RunStore, runID int64, noOpen bool) error {
	srv := visualization.NewServer(rs, runID)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(ctx) }()

	// Wait for server to start
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if srv.Addr() != "" {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	addr := srv.Addr()
	if addr == "" {
		return fmt.Errorf("server failed to start")
	}

	url := "http://" + addr
	fmt.Fprintf(cmd.OutOrStdout(), "Run viewer running at %s\n", url)
	fmt.Fprintf(cmd.OutOrStdout(), "Press Ctrl-C to stop.\n")

	if !noOpen {
		if err := visualization.OpenBrowser(url); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Could not open browser: %v\nOpen %s manually.\n", err, url)
		}
	}

	if err := <-errCh; err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func newRunsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a recorded run and its snapshots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			id, err := parseRunID(args[0])
			if err != nil {
				return err
			}

			rs, err := openRunStoreForCmd(cmd)
			if err != nil {
				return err
			}
			defer rs.Close()

			if err := rs.DeleteRun(context.Background(), id); err != nil {
				if errors.Is(err, store.ErrRunNotFound) {
					return fmt.Errorf("run %d not found", id)
				}
				return fmt.Errorf("failed to delete run %d: %w", id, err)
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"status": "deleted", "id": id})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %d\n", id)
			return nil
		},
	}
}

func openRunStoreForCmd(cmd *cobra.Command) (*store.SQLiteRunStore, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return openRunStore(cfg)
}

func parseRunID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid run id %q", s)
	}
	return id, nil
}

func getRun(ctx context.Context, rs store.RunStore, id int64) (*store.Run, error) {
	run, err := rs.GetRun(ctx, id)
	if errors.Is(err, store.ErrRunNotFound) {
		return nil, fmt.Errorf("run %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %d: %w", id, err)
	}
	return run, nil
}
