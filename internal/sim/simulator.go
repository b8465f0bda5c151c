package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("graphrat.sim")

// DefaultDisplayInterval is the number of steps between reports that carry
// occupancy counts.
const DefaultDisplayInterval = 1

// Snapshot is one report emitted by the driver. Counts is nil on display
// steps that fall between intervals.
type Snapshot struct {
	Step      int
	NodeCount int
	RatCount  int
	Counts    []int32
}

// Reporter receives snapshots between steps. Implementations need not be
// safe for concurrent use; the driver calls them from one goroutine.
type Reporter interface {
	Report(snap Snapshot) error
	Done() error
}

// Observer receives run-time events. MoveFallback may be called from
// several worker goroutines at once.
type Observer interface {
	BatchCommitted(size int)
	StepCompleted(step int, elapsed time.Duration)
	MoveFallback(f Fallback)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) BatchCommitted(int) {}

func (NopObserver) StepCompleted(int, time.Duration) {}

func (NopObserver) MoveFallback(Fallback) {}

// Observers fans every event out to each element in order.
type Observers []Observer

func (o Observers) BatchCommitted(size int) {
	for _, ob := range o {
		ob.BatchCommitted(size)
	}
}

func (o Observers) StepCompleted(step int, elapsed time.Duration) {
	for _, ob := range o {
		ob.StepCompleted(step, elapsed)
	}
}

func (o Observers) MoveFallback(f Fallback) {
	for _, ob := range o {
		ob.MoveFallback(f)
	}
}

// Options configures a Simulator.
type Options struct {
	// Mode selects the batch size. Nil means Synchronous.
	Mode Mode

	// Threads bounds the worker goroutines per batch phase. Values below
	// one mean one.
	Threads int

	// Display enables per-step reporting.
	Display bool

	// DisplayInterval is the step interval at which reports carry counts.
	// Zero means DefaultDisplayInterval.
	DisplayInterval int

	Reporter Reporter
	Observer Observer
	Logger   *slog.Logger

	// CheckInvariants verifies conservation after every committed batch.
	CheckInvariants bool
}

// Result summarizes a finished run.
type Result struct {
	Steps     int
	Rats      int
	Nodes     int
	BatchSize int
	Elapsed   time.Duration
	Fallbacks int64
}

// MegaRatsPerSecond is the throughput in millions of rat moves per second.
func (r Result) MegaRatsPerSecond() float64 {
	secs := r.Elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(r.Steps) * float64(r.Rats) / secs / 1e6
}

// Simulator advances a State.
type Simulator struct {
	state     *State
	mode      Mode
	batchSize int
	interval  int
	opts      Options
	pool      pool
	logger    *slog.Logger
	observer  Observer

	// step counts completed steps across Run calls.
	step int

	mu        sync.Mutex
	fallbacks int64
}

// New returns a Simulator for st.
func New(st *State, opts Options) (*Simulator, error) {
	if st == nil {
		return nil, errors.New("sim: nil state")
	}
	if opts.DisplayInterval < 0 {
		return nil, fmt.Errorf("sim: display interval must be positive, got %d", opts.DisplayInterval)
	}
	s := &Simulator{
		state:    st,
		mode:     opts.Mode,
		interval: opts.DisplayInterval,
		opts:     opts,
		pool:     pool{threads: max(1, opts.Threads)},
		logger:   opts.Logger,
		observer: opts.Observer,
	}
	if s.mode == nil {
		s.mode = Synchronous{}
	}
	if s.interval == 0 {
		s.interval = DefaultDisplayInterval
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.observer == nil {
		s.observer = NopObserver{}
	}
	s.batchSize = s.mode.BatchSize(st.RatCount())
	return s, nil
}

// State returns the simulated state.
func (s *Simulator) State() *State { return s.state }

// Mode returns the update mode.
func (s *Simulator) Mode() Mode { return s.mode }

// BatchSize returns the number of rats per batch.
func (s *Simulator) BatchSize() int { return s.batchSize }

// Steps returns the number of steps completed so far.
func (s *Simulator) Steps() int { return s.step }

// Fallbacks returns the number of move selections that fell back to the
// rat's own node.
func (s *Simulator) Fallbacks() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fallbacks
}

// Run rebuilds the census and advances the state steps times, reporting
// between steps. ctx carries tracing only; a run is never cut short.
func (s *Simulator) Run(ctx context.Context, steps int) (Result, error) {
	st := s.state
	ctx, span := tracer.Start(ctx, "sim.Run",
		trace.WithAttributes(
			attribute.Int("graphrat.steps", steps),
			attribute.Int("graphrat.rats", st.RatCount()),
			attribute.Int("graphrat.nodes", st.NodeCount()),
			attribute.String("graphrat.mode", s.mode.Name()),
			attribute.Int("graphrat.batch_size", s.batchSize),
			attribute.Int("graphrat.threads", s.pool.threads),
		),
	)
	defer span.End()

	fail := func(err error) (Result, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}

	st.Census()
	if s.opts.CheckInvariants {
		if err := st.CheckInvariants(); err != nil {
			return fail(err)
		}
	}
	s.logger.Debug("simulation starting",
		"steps", steps, "mode", s.mode.Name(), "batch_size", s.batchSize, "threads", s.pool.threads)

	if err := s.report(true); err != nil {
		return fail(err)
	}

	start := time.Now()
	before := s.Fallbacks()
	for i := 0; i < steps; i++ {
		stepStart := time.Now()
		if err := s.runStep(ctx); err != nil {
			return fail(err)
		}
		s.step++
		s.observer.StepCompleted(s.step, time.Since(stepStart))

		show := (i+1)%s.interval == 0 || i == steps-1
		if err := s.report(show); err != nil {
			return fail(err)
		}
	}
	elapsed := time.Since(start)

	if s.opts.Reporter != nil {
		if err := s.opts.Reporter.Done(); err != nil {
			return fail(fmt.Errorf("finishing report: %w", err))
		}
	}

	res := Result{
		Steps:     steps,
		Rats:      st.RatCount(),
		Nodes:     st.NodeCount(),
		BatchSize: s.batchSize,
		Elapsed:   elapsed,
		Fallbacks: s.Fallbacks() - before,
	}
	span.SetAttributes(attribute.Int64("graphrat.fallbacks", res.Fallbacks))
	return res, nil
}

// Step advances the state by one step without reporting.
func (s *Simulator) Step(ctx context.Context) error {
	if err := s.runStep(ctx); err != nil {
		return err
	}
	s.step++
	return nil
}

// report emits the current state if display is on. Counts are attached
// only when withCounts is set.
func (s *Simulator) report(withCounts bool) error {
	if !s.opts.Display || s.opts.Reporter == nil {
		return nil
	}
	snap := Snapshot{
		Step:      s.step,
		NodeCount: s.state.NodeCount(),
		RatCount:  s.state.RatCount(),
	}
	if withCounts {
		snap.Counts = s.state.Counts()
	}
	if err := s.opts.Reporter.Report(snap); err != nil {
		return fmt.Errorf("reporting step %d: %w", s.step, err)
	}
	return nil
}

// runStep processes every rat once, batch by batch, in index order.
func (s *Simulator) runStep(ctx context.Context) error {
	_, span := tracer.Start(ctx, "sim.step", trace.WithAttributes(attribute.Int("graphrat.step", s.step+1)))
	defer span.End()

	nrat := s.state.RatCount()
	size := max(1, s.batchSize)
	for lo := 0; lo < nrat; lo += size {
		hi := min(lo+size, nrat)
		if err := s.processBatch(lo, hi); err != nil {
			span.RecordError(err)
			return err
		}
	}
	return nil
}

// processBatch runs both phases for rats [lo, hi). Phase 1 writes only
// next[r] and rat r's stream; Phase 2 starts after every Phase 1 worker
// has returned.
func (s *Simulator) processBatch(lo, hi int) error {
	st := s.state
	shared := s.pool.parallel(hi - lo)

	s.pool.each(lo, hi, func(a, b int) {
		for r := a; r < b; r++ {
			dest, fb := st.chooseMove(r)
			st.next[r] = dest
			if fb != nil {
				s.recordFallback(*fb)
			}
		}
	})
	s.pool.each(lo, hi, func(a, b int) {
		st.commit(a, b, shared)
	})
	s.observer.BatchCommitted(hi - lo)

	if s.opts.CheckInvariants {
		if err := st.CheckInvariants(); err != nil {
			return fmt.Errorf("after batch [%d, %d) of step %d: %w", lo, hi, s.step+1, err)
		}
	}
	return nil
}

func (s *Simulator) recordFallback(fb Fallback) {
	s.mu.Lock()
	s.fallbacks++
	s.mu.Unlock()
	s.logger.Warn("move selection fell back to current node",
		"rat", fb.Rat, "node", fb.Node, "degree", fb.Degree,
		"target", fb.Target, "total", fb.Total, "limit", fb.Limit)
	s.observer.MoveFallback(fb)
}
