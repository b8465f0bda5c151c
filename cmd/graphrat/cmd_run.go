package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/nvandessel/graphrat/internal/config"
	"github.com/nvandessel/graphrat/internal/graph"
	"github.com/nvandessel/graphrat/internal/logging"
	"github.com/nvandessel/graphrat/internal/metrics"
	"github.com/nvandessel/graphrat/internal/placement"
	"github.com/nvandessel/graphrat/internal/report"
	"github.com/nvandessel/graphrat/internal/rng"
	"github.com/nvandessel/graphrat/internal/sim"
	"github.com/nvandessel/graphrat/internal/simulation"
	"github.com/nvandessel/graphrat/internal/store"
	"github.com/nvandessel/graphrat/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulation",
		Long: `Load a graph and a rat placement and simulate the rats for a number of steps.

Snapshots are written to stdout in drive, grid, or json format. Log
messages and timing go to stderr. Unless --record=false, the run is saved
in the history database (~/.graphrat/graphrat.db) with every counted
snapshot.

Examples:
  graphrat run -g grid.gph -r grid.rats -n 50
  graphrat run -g grid.gph -r grid.rats -n 50 -u rat-order -q
  graphrat run -g grid.gph -r grid.rats -n 1000 -i 100 --format json
  graphrat run -g grid.gph -r grid.rats -n 50 -t 8 --metrics-addr :9090`,
		RunE: runSimulation,
	}

	cmd.Flags().StringP("graph", "g", "", "Graph file (required)")
	cmd.Flags().StringP("rats", "r", "", "Rat file (required)")
	cmd.Flags().IntP("steps", "n", 1, "Number of simulation steps")
	cmd.Flags().Uint32P("seed", "s", rng.DefaultSeed, "Random seed")
	cmd.Flags().StringP("mode", "u", "batched", "Update mode: synchronous, rat-order, or batched")
	cmd.Flags().Float64("batch-fraction", sim.DefaultBatchFraction, "Fraction of rats per batch in batched mode")
	cmd.Flags().IntP("threads", "t", 1, "Worker goroutines per batch")
	cmd.Flags().IntP("interval", "i", sim.DefaultDisplayInterval, "Report full counts every N steps")
	cmd.Flags().BoolP("quiet", "q", false, "Only report completion")
	cmd.Flags().String("format", "", "Output format: drive, grid, or json (default: grid on a terminal, drive otherwise)")
	cmd.Flags().Bool("check-invariants", false, "Recount occupancy after every batch (slow)")
	cmd.Flags().Bool("record", true, "Record the run in the history database")
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	cmd.Flags().String("tracing", "", "Trace exporter: none or stdout")
	cmd.MarkFlagRequired("graph")
	cmd.MarkFlagRequired("rats")

	return cmd
}

// applyRunFlags overrides cfg with every run flag the user set.
func applyRunFlags(cmd *cobra.Command, cfg *config.GraphratConfig) {
	flags := cmd.Flags()
	if flags.Changed("steps") {
		cfg.Simulation.Steps, _ = flags.GetInt("steps")
	}
	if flags.Changed("seed") {
		cfg.Simulation.Seed, _ = flags.GetUint32("seed")
	}
	if flags.Changed("mode") {
		cfg.Simulation.Mode, _ = flags.GetString("mode")
	}
	if flags.Changed("batch-fraction") {
		cfg.Simulation.BatchFraction, _ = flags.GetFloat64("batch-fraction")
	}
	if flags.Changed("threads") {
		cfg.Simulation.Threads, _ = flags.GetInt("threads")
	}
	if flags.Changed("check-invariants") {
		cfg.Simulation.CheckInvariants, _ = flags.GetBool("check-invariants")
	}
	if flags.Changed("interval") {
		cfg.Output.Interval, _ = flags.GetInt("interval")
	}
	if flags.Changed("quiet") {
		cfg.Output.Quiet, _ = flags.GetBool("quiet")
	}
	if flags.Changed("format") {
		cfg.Output.Format, _ = flags.GetString("format")
	}
	if flags.Changed("record") {
		cfg.Store.Record, _ = flags.GetBool("record")
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr, _ = flags.GetString("metrics-addr")
	}
	if flags.Changed("tracing") {
		cfg.Tracing.Exporter, _ = flags.GetString("tracing")
	}
}

// defaultFormat picks the grid view for terminals and the machine-readable
// drive format for pipes and files.
func defaultFormat(w io.Writer) string {
	if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return report.FormatGrid
	}
	return report.FormatDrive
}

func runSimulation(cmd *cobra.Command, args []string) error {
	jsonOut, _ := cmd.Flags().GetBool("json")
	graphPath, _ := cmd.Flags().GetString("graph")
	ratsPath, _ := cmd.Flags().GetString("rats")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyRunFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger := newLogger(cmd, cfg)

	mode, err := sim.ParseMode(cfg.Simulation.Mode, cfg.Simulation.BatchFraction)
	if err != nil {
		return err
	}

	format := cfg.Output.Format
	if format == "" {
		format = defaultFormat(cmd.OutOrStdout())
		if jsonOut {
			format = report.FormatJSON
		}
	}
	reporter, err := report.New(format, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	// Absolute paths keep recorded runs meaningful from any directory.
	if abs, err := filepath.Abs(graphPath); err == nil {
		graphPath = abs
	}
	if abs, err := filepath.Abs(ratsPath); err == nil {
		ratsPath = abs
	}
	g, err := graph.Load(graphPath)
	if err != nil {
		return fmt.Errorf("failed to load graph: %w", err)
	}
	positions, err := placement.Load(ratsPath, g.NodeCount())
	if err != nil {
		return fmt.Errorf("failed to load rats: %w", err)
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    "graphrat",
		ServiceVersion: version,
		Exporter:       cfg.Tracing.Exporter,
		Writer:         cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		timeout := cfg.Tracing.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("failed to flush traces", "error", err)
		}
	}()

	opts := []simulation.Option{
		simulation.WithReporter(reporter),
		simulation.WithLogger(logger),
	}

	if cfg.Metrics.Addr != "" {
		collector, shutdownMetrics, err := startMetrics(cfg.Metrics.Addr, len(positions), logger)
		if err != nil {
			return err
		}
		defer shutdownMetrics()
		opts = append(opts, simulation.WithObserver(collector))
	}

	root, err := storeRoot(cfg)
	if err != nil {
		return err
	}
	diag := logging.NewDiagnosticLogger(store.LocalPath(root), cfg.Logging.Level)
	defer diag.Close()
	opts = append(opts, simulation.WithDiagnostics(diag))

	if cfg.Store.Record {
		rs, err := openRunStore(cfg)
		if err != nil {
			return err
		}
		defer rs.Close()
		opts = append(opts, simulation.WithStore(rs))
	}

	out, err := simulation.NewRunner(opts...).Run(ctx, simulation.Scenario{
		Name:            filepath.Base(graphPath),
		GraphPath:       graphPath,
		Graph:           g,
		RatsPath:        ratsPath,
		Positions:       positions,
		Steps:           cfg.Simulation.Steps,
		Seed:            cfg.Simulation.Seed,
		Mode:            mode,
		Threads:         cfg.Simulation.Threads,
		Quiet:           cfg.Output.Quiet,
		DisplayInterval: cfg.Output.Interval,
		CheckInvariants: cfg.Simulation.CheckInvariants,
	})
	if err != nil {
		return err
	}

	if out.RunID != 0 {
		logger.Info("recorded run", "run_id", out.RunID)
	}
	logger.Debug(simulation.FormatOutcome(out))
	return nil
}

// startMetrics serves the simulation metrics plus Go runtime and process
// collectors on addr.
func startMetrics(addr string, rats int, logger *slog.Logger) (*metrics.Collector, func(), error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg, rats)

	srv, err := metrics.Serve(addr, reg, logger)
	if err != nil {
		return nil, nil, err
	}
	return collector, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("failed to stop metrics server", "error", err)
		}
	}, nil
}
