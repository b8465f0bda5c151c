package main

import (
	"fmt"

	"github.com/nvandessel/graphrat/internal/generate"
	"github.com/nvandessel/graphrat/internal/placement"
	"github.com/nvandessel/graphrat/internal/rng"
	"github.com/spf13/cobra"
)

func newGenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate graph and rat files",
		Long: `Generate k x k grid graphs and matching rat placements.

Examples:
  graphrat gen graph -k 64 -o grid.gph
  graphrat gen graph -k 64 --fractal -o fractal.gph
  graphrat gen rats -k 64 --mode upper-left --load 10 -o grid.rats`,
	}

	cmd.AddCommand(
		newGenGraphCmd(),
		newGenRatsCmd(),
	)
	return cmd
}

func newGenGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Generate a k x k grid graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, _ := cmd.Flags().GetInt("k")
			fractal, _ := cmd.Flags().GetBool("fractal")
			tile, _ := cmd.Flags().GetInt("tile")
			output, _ := cmd.Flags().GetString("output")

			grid, err := generate.NewGrid(k, generate.Options{Fractal: fractal, Tile: tile})
			if err != nil {
				return err
			}

			w, closeFn, err := createOutput(output, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := grid.Write(w); err != nil {
				closeFn()
				return fmt.Errorf("failed to write graph: %w", err)
			}
			if err := closeFn(); err != nil {
				return fmt.Errorf("failed to close %s: %w", output, err)
			}
			if output != "" && output != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d nodes and %d edges to %s\n", grid.NodeCount(), grid.EdgeCount(), output)
			}
			return nil
		},
	}

	cmd.Flags().IntP("k", "k", 10, "Grid side length")
	cmd.Flags().Bool("fractal", false, "Add a fractal hierarchy of hub nodes")
	cmd.Flags().Int("tile", 0, "Connect one hub per tile x tile square (0 disables)")
	cmd.Flags().StringP("output", "o", "", "Output file (default stdout)")
	return cmd
}

func newGenRatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rats",
		Short: "Generate a rat placement for a k x k grid",
		Long: `Generate a rat placement for a k x k grid.

Modes:
  uniform      every node gets load rats
  diagonal     rats are spread along the main diagonal
  upper-left   all rats start on the upper-left node
  lower-right  all rats start on the lower-right node

The total is k*k*load rats; the order is shuffled with the given seed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			k, _ := cmd.Flags().GetInt("k")
			modeName, _ := cmd.Flags().GetString("mode")
			load, _ := cmd.Flags().GetInt("load")
			seed, _ := cmd.Flags().GetUint32("seed")
			output, _ := cmd.Flags().GetString("output")

			mode, err := generate.ParseRatMode(modeName)
			if err != nil {
				return err
			}
			positions, err := generate.Rats(k, mode, load, seed)
			if err != nil {
				return err
			}

			w, closeFn, err := createOutput(output, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := placement.Write(w, k*k, positions, generate.RatComments(mode, load, seed)...); err != nil {
				closeFn()
				return fmt.Errorf("failed to write rats: %w", err)
			}
			if err := closeFn(); err != nil {
				return fmt.Errorf("failed to close %s: %w", output, err)
			}
			if output != "" && output != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d rats to %s\n", len(positions), output)
			}
			return nil
		},
	}

	cmd.Flags().IntP("k", "k", 10, "Grid side length")
	cmd.Flags().StringP("mode", "m", "uniform", "Placement: uniform, diagonal, upper-left, or lower-right")
	cmd.Flags().IntP("load", "l", 10, "Average rats per node")
	cmd.Flags().Uint32P("seed", "s", rng.DefaultSeed, "Shuffle seed")
	cmd.Flags().StringP("output", "o", "", "Output file (default stdout)")
	return cmd
}
