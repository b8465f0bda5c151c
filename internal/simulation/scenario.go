package simulation

import (
	"errors"
	"fmt"

	"github.com/nvandessel/graphrat/internal/graph"
	"github.com/nvandessel/graphrat/internal/placement"
	"github.com/nvandessel/graphrat/internal/sim"
	"github.com/nvandessel/graphrat/internal/store"
)

// Scenario input errors.
var (
	ErrNoGraph = errors.New("simulation: scenario has no graph")
	ErrNoRats  = errors.New("simulation: scenario has no rat placement")
)

// Scenario defines one simulation run.
type Scenario struct {
	Name string

	// GraphPath is read when Graph is nil.
	GraphPath string
	Graph     *graph.Graph

	// RatsPath is read when Positions is nil.
	RatsPath  string
	Positions []int32

	Steps int
	Seed  uint32

	// Mode selects the batching policy. Nil means synchronous.
	Mode    sim.Mode
	Threads int

	// Quiet suppresses per-step output; the output reporter still sees Done.
	Quiet           bool
	DisplayInterval int
	CheckInvariants bool
}

func (sc Scenario) validate() error {
	if sc.Steps < 0 {
		return fmt.Errorf("simulation: step count must not be negative, got %d", sc.Steps)
	}
	if sc.DisplayInterval < 0 {
		return fmt.Errorf("simulation: display interval must not be negative, got %d", sc.DisplayInterval)
	}
	return nil
}

func (sc Scenario) mode() sim.Mode {
	if sc.Mode == nil {
		return sim.Synchronous{}
	}
	return sc.Mode
}

// load resolves the graph and the initial placement.
func (sc Scenario) load() (*graph.Graph, []int32, error) {
	g := sc.Graph
	if g == nil {
		if sc.GraphPath == "" {
			return nil, nil, ErrNoGraph
		}
		var err error
		if g, err = graph.Load(sc.GraphPath); err != nil {
			return nil, nil, fmt.Errorf("failed to load graph: %w", err)
		}
	}

	positions := sc.Positions
	if positions == nil {
		if sc.RatsPath == "" {
			return nil, nil, ErrNoRats
		}
		var err error
		if positions, err = placement.Load(sc.RatsPath, g.NodeCount()); err != nil {
			return nil, nil, fmt.Errorf("failed to load rats: %w", err)
		}
	}
	return g, positions, nil
}

// params describes the run for the store.
func (sc Scenario) params(g *graph.Graph, rats, batchSize int) store.RunParams {
	interval := sc.DisplayInterval
	if interval == 0 {
		interval = sim.DefaultDisplayInterval
	}
	return store.RunParams{
		GraphPath:       sc.GraphPath,
		RatsPath:        sc.RatsPath,
		Nodes:           g.NodeCount(),
		Edges:           g.EdgeCount(),
		Rats:            rats,
		Steps:           sc.Steps,
		Seed:            sc.Seed,
		Mode:            sc.mode().Name(),
		BatchSize:       batchSize,
		Threads:         max(1, sc.Threads),
		DisplayInterval: interval,
	}
}
