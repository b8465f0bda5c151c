package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nvandessel/graphrat/internal/graph"
	"github.com/nvandessel/graphrat/internal/store"
	"github.com/nvandessel/graphrat/internal/visualization"
	"github.com/spf13/cobra"
)

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph [graph-file]",
		Short: "Visualize a graph",
		Long: `Output a graph in DOT (Graphviz), JSON, or HTML heatmap format.

With --run, nodes are shaded by the recorded run's final occupancy and the
graph file defaults to the one the run used. HTML output requires --run.

Examples:
  graphrat graph grid.gph | dot -Tsvg > grid.svg
  graphrat graph grid.gph --format json
  graphrat graph --run 3 --format html`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			runID, _ := cmd.Flags().GetInt64("run")
			output, _ := cmd.Flags().GetString("output")
			noOpen, _ := cmd.Flags().GetBool("no-open")

			f, err := visualization.ParseFormat(format)
			if err != nil {
				return err
			}
			if f == visualization.FormatHTML && runID == 0 {
				return errors.New("html format requires --run")
			}

			ctx := context.Background()
			var run *store.Run
			var rs store.RunStore
			if runID != 0 {
				sqlStore, err := openRunStoreForCmd(cmd)
				if err != nil {
					return err
				}
				defer sqlStore.Close()
				rs = sqlStore
				if run, err = getRun(ctx, rs, runID); err != nil {
					return err
				}
			}

			if f == visualization.FormatHTML {
				return writeRunHTML(cmd, ctx, rs, run, output, noOpen)
			}

			graphPath := ""
			if len(args) > 0 {
				graphPath = args[0]
			} else if run != nil {
				graphPath = run.GraphPath
			}
			if graphPath == "" {
				return errors.New("graph file is required unless --run names a recorded run")
			}
			g, err := graph.Load(graphPath)
			if err != nil {
				return fmt.Errorf("failed to load graph: %w", err)
			}

			var counts []int32
			if run != nil {
				if run.Nodes != g.NodeCount() {
					return fmt.Errorf("run %d has %d nodes but %s has %d", run.ID, run.Nodes, graphPath, g.NodeCount())
				}
				counts = run.FinalCounts
			}

			w, closeFn, err := createOutput(output, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer closeFn()

			switch f {
			case visualization.FormatDOT:
				fmt.Fprint(w, visualization.RenderDOT(g, counts))
			case visualization.FormatJSON:
				if err := writeJSON(w, visualization.RenderJSON(g, counts)); err != nil {
					return fmt.Errorf("encode JSON: %w", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().String("format", "dot", "Output format: dot, json, or html")
	cmd.Flags().Int64("run", 0, "Shade nodes by this recorded run's occupancy")
	cmd.Flags().StringP("output", "o", "", "Output file path")
	cmd.Flags().Bool("no-open", false, "Don't open browser after generating HTML")

	return cmd
}

// writeRunHTML renders a run's heatmap to a self-contained HTML file.
func writeRunHTML(cmd *cobra.Command, ctx context.Context, rs store.RunStore, run *store.Run, output string, noOpen bool) error {
	htmlBytes, err := visualization.RenderRunHTML(ctx, rs, run)
	if err != nil {
		return fmt.Errorf("render HTML: %w", err)
	}

	outPath := output
	if outPath == "" {
		outPath = filepath.Join(os.TempDir(), fmt.Sprintf("graphrat-run-%d.html", run.ID))
	}
	if err := os.WriteFile(outPath, htmlBytes, 0644); err != nil {
		return fmt.Errorf("write HTML file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Heatmap written to %s\n", outPath)

	if !noOpen {
		if err := visualization.OpenBrowser(outPath); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Could not open browser: %v\nOpen %s manually.\n", err, outPath)
		}
	}
	return nil
}
