package simulation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nvandessel/graphrat/internal/logging"
	"github.com/nvandessel/graphrat/internal/report"
	"github.com/nvandessel/graphrat/internal/sim"
	"github.com/nvandessel/graphrat/internal/store"
)

// Runner executes scenarios. A Runner holds no per-run state and may be
// reused, but not concurrently when it has a reporter.
type Runner struct {
	store     store.RunStore
	reporter  sim.Reporter
	observers []sim.Observer
	logger    *slog.Logger
	diag      *logging.DiagnosticLogger
	capture   bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithStore records every run in s.
func WithStore(s store.RunStore) Option {
	return func(r *Runner) { r.store = s }
}

// WithReporter sends snapshots to rep.
func WithReporter(rep sim.Reporter) Option {
	return func(r *Runner) { r.reporter = rep }
}

// WithObserver adds an observer of run-time events.
func WithObserver(o sim.Observer) Option {
	return func(r *Runner) {
		if o != nil {
			r.observers = append(r.observers, o)
		}
	}
}

// WithLogger sets the logger for progress messages.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithDiagnostics writes run and fallback events to dl. A nil dl is ignored.
func WithDiagnostics(dl *logging.DiagnosticLogger) Option {
	return func(r *Runner) { r.diag = dl }
}

// WithCapture keeps every counted snapshot in Outcome.Snapshots.
func WithCapture() Option {
	return func(r *Runner) { r.capture = true }
}

// NewRunner creates a Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	return r
}

// Outcome is the result of one scenario.
type Outcome struct {
	// RunID is zero when no store is configured.
	RunID int64

	Mode      string
	Result    sim.Result
	Initial   sim.OccupancyStats
	Final     sim.OccupancyStats
	Counts    []int32
	Snapshots []sim.Snapshot
}

// Run loads the scenario's inputs and simulates it. With a store, the run
// is created before the first step and finished (or marked failed) after
// the last; every counted snapshot is recorded.
func (r *Runner) Run(ctx context.Context, sc Scenario) (*Outcome, error) {
	if err := sc.validate(); err != nil {
		return nil, err
	}

	g, positions, err := sc.load()
	if err != nil {
		return nil, err
	}
	r.logger.Info("loaded graph", "path", sc.GraphPath, "nodes", g.NodeCount(), "edges", g.EdgeCount())
	r.logger.Info("loaded rats", "path", sc.RatsPath, "rats", len(positions))

	st, err := sim.NewState(g, positions, sc.Seed)
	if err != nil {
		return nil, fmt.Errorf("failed to create simulation state: %w", err)
	}

	mode := sc.mode()
	threads := max(1, sc.Threads)
	out := &Outcome{
		Mode:    mode.Name(),
		Initial: sim.ComputeStats(st.Counts()),
	}

	display := !sc.Quiet
	var reporters report.Tee
	if r.reporter != nil {
		if sc.Quiet {
			reporters = append(reporters, doneOnly{r.reporter})
		} else {
			reporters = append(reporters, r.reporter)
		}
	}
	if r.capture {
		reporters = append(reporters, &captureReporter{out: out})
		display = true
	}
	if r.store != nil {
		id, err := r.store.CreateRun(ctx, sc.params(g, len(positions), mode.BatchSize(len(positions))))
		if err != nil {
			return nil, fmt.Errorf("failed to create run: %w", err)
		}
		out.RunID = id
		reporters = append(reporters, store.NewRecorder(ctx, r.store, id))
		display = true
	}

	observers := append(sim.Observers(nil), r.observers...)
	if r.diag != nil {
		observers = append(observers, r.diag)
	}

	opts := sim.Options{
		Mode:            mode,
		Threads:         threads,
		Display:         display,
		DisplayInterval: sc.DisplayInterval,
		Observer:        observers,
		Logger:          r.logger,
		CheckInvariants: sc.CheckInvariants,
	}
	if len(reporters) > 0 {
		opts.Reporter = reporters
	}

	simulator, err := sim.New(st, opts)
	if err != nil {
		return nil, r.fail(ctx, out.RunID, fmt.Errorf("failed to create simulator: %w", err))
	}

	r.logger.Info("running simulation", "threads", threads, "mode", mode.Name(), "batch_size", simulator.BatchSize())
	r.diag.RunStarted(out.RunID, g.NodeCount(), len(positions), sc.Steps, mode.Name(), simulator.BatchSize(), threads)

	res, err := simulator.Run(ctx, sc.Steps)
	r.diag.RunFinished(out.RunID, res, err)
	if err != nil {
		return nil, r.fail(ctx, out.RunID, fmt.Errorf("simulation failed: %w", err))
	}

	out.Result = res
	out.Counts = st.Counts()
	out.Final = sim.ComputeStats(out.Counts)

	if r.store != nil {
		summary := store.RunSummary{
			Status:      store.StatusFinished,
			Elapsed:     res.Elapsed,
			Fallbacks:   res.Fallbacks,
			FinalCounts: out.Counts,
		}
		if err := r.store.FinishRun(context.WithoutCancel(ctx), out.RunID, summary); err != nil {
			return nil, fmt.Errorf("failed to finish run %d: %w", out.RunID, err)
		}
	}

	r.logger.Info("simulation finished",
		"steps", res.Steps, "rats", res.Rats, "seconds", res.Elapsed.Seconds(),
		"mrps", res.MegaRatsPerSecond(), "fallbacks", res.Fallbacks)
	return out, nil
}

// fail marks a recorded run failed and returns err.
func (r *Runner) fail(ctx context.Context, runID int64, err error) error {
	if r.store == nil || runID == 0 {
		return err
	}
	summary := store.RunSummary{Status: store.StatusFailed, Error: err.Error()}
	if ferr := r.store.FinishRun(context.WithoutCancel(ctx), runID, summary); ferr != nil {
		r.logger.Warn("failed to mark run failed", "run_id", runID, "error", ferr)
	}
	return err
}

// doneOnly forwards only Done, for quiet runs that still record snapshots.
type doneOnly struct{ sim.Reporter }

func (doneOnly) Report(sim.Snapshot) error { return nil }

type captureReporter struct{ out *Outcome }

func (c *captureReporter) Report(snap sim.Snapshot) error {
	if snap.Counts != nil {
		c.out.Snapshots = append(c.out.Snapshots, snap)
	}
	return nil
}

func (c *captureReporter) Done() error { return nil }
