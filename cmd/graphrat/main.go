package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Overridden with -ldflags "-X main.version=..." at release time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "graphrat",
		Short: "Graphrat - congestion-avoiding random walks on graphs",
		Long: `graphrat simulates a population of rats moving over a directed graph.

Each step, every rat picks a neighbour (or stays put) with probability
weighted by how crowded that node is, so the population spreads out
toward an even load. Runs can be reported as drive, grid, or JSON output,
recorded in a local history database, compared, and visualized.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.graphrat/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: info, debug, or trace")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newGenCmd(),
		newGraphCmd(),
		newRunsCmd(),
		newCompareCmd(),
		newConfigCmd(),
		newMCPServerCmd(),
	)
	return rootCmd
}
