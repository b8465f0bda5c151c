package sim

import (
	"errors"
	"fmt"

	"github.com/nvandessel/graphrat/internal/congestion"
	"github.com/nvandessel/graphrat/internal/graph"
	"github.com/nvandessel/graphrat/internal/rng"
)

// Sentinel errors for state construction and checking.
var (
	// ErrNoRats indicates an empty initial placement.
	ErrNoRats = errors.New("sim: no rats to simulate")

	// ErrInvalidPosition indicates a rat placed on a node outside the graph.
	ErrInvalidPosition = errors.New("sim: rat position out of range")

	// ErrInvariantViolated indicates the occupancy counts no longer match
	// the rat positions.
	ErrInvariantViolated = errors.New("sim: state invariant violated")
)

// State is the mutable simulation state. Positions are authoritative;
// counts is a cached aggregate rebuilt by Census and maintained
// incrementally by batch commits.
type State struct {
	g    *graph.Graph
	seed uint32

	// positions[r] is the node rat r occupies. Length = ratCount.
	positions []int32
	// next[r] is rat r's destination chosen in Phase 1 of its batch.
	next []int32
	// counts[n] is the number of rats at node n. Length = nodeCount.
	counts []int32
	// streams[r] is owned by rat r alone.
	streams []rng.Stream

	loadFactor float64
	weights    *congestion.Table
}

// NewState places rats on g at the given positions and derives each rat's
// random stream from the global seed and the rat's index. positions is
// copied. Any rat placed outside the graph fails construction.
func NewState(g *graph.Graph, positions []int32, seed uint32) (*State, error) {
	if g == nil {
		return nil, errors.New("sim: nil graph")
	}
	if len(positions) == 0 {
		return nil, ErrNoRats
	}
	nnode := g.NodeCount()
	for r, p := range positions {
		if p < 0 || int(p) >= nnode {
			return nil, fmt.Errorf("%w: rat %d at node %d, graph has %d nodes", ErrInvalidPosition, r, p, nnode)
		}
	}

	nrat := len(positions)
	s := &State{
		g:          g,
		seed:       seed,
		positions:  append([]int32(nil), positions...),
		next:       make([]int32, nrat),
		counts:     make([]int32, nnode),
		streams:    make([]rng.Stream, nrat),
		loadFactor: float64(nrat) / float64(nnode),
	}
	for r := range s.streams {
		s.streams[r].Reseed(seed, uint32(r))
	}
	s.weights = congestion.NewTable(nrat, s.loadFactor)
	s.Census()
	return s, nil
}

// Graph returns the graph the rats move over.
func (s *State) Graph() *graph.Graph { return s.g }

// RatCount returns the population size.
func (s *State) RatCount() int { return len(s.positions) }

// NodeCount returns the number of graph nodes.
func (s *State) NodeCount() int { return len(s.counts) }

// LoadFactor returns rats per node.
func (s *State) LoadFactor() float64 { return s.loadFactor }

// Seed returns the global seed the rat streams were derived from.
func (s *State) Seed() uint32 { return s.seed }

// Position returns the node rat r occupies.
func (s *State) Position(r int) int { return int(s.positions[r]) }

// Count returns the number of rats at node n.
func (s *State) Count(n int) int { return int(s.counts[n]) }

// Positions returns a copy of every rat's position.
func (s *State) Positions() []int32 {
	return append([]int32(nil), s.positions...)
}

// Counts returns a copy of the per-node occupancy counts.
func (s *State) Counts() []int32 {
	return append([]int32(nil), s.counts...)
}

// Census rebuilds the occupancy counts from the rat positions.
func (s *State) Census() {
	clear(s.counts)
	for _, p := range s.positions {
		s.counts[p]++
	}
}

// CheckInvariants verifies that every rat is on a valid node, that the
// counts sum to the population, and that the counts are exactly the image
// of the positions.
func (s *State) CheckInvariants() error {
	nnode := len(s.counts)
	expect := make([]int32, nnode)
	for r, p := range s.positions {
		if p < 0 || int(p) >= nnode {
			return fmt.Errorf("%w: rat %d at node %d", ErrInvariantViolated, r, p)
		}
		expect[p]++
	}
	var total int64
	for n, c := range s.counts {
		total += int64(c)
		if c != expect[n] {
			return fmt.Errorf("%w: node %d count %d, %d rats located there", ErrInvariantViolated, n, c, expect[n])
		}
	}
	if total != int64(len(s.positions)) {
		return fmt.Errorf("%w: counts sum to %d, population %d", ErrInvariantViolated, total, len(s.positions))
	}
	return nil
}
