// Package graph provides the immutable adjacency structure rats move over.
//
// Adjacency is stored in compressed sparse row form: one flat slice of
// neighbor ids plus a per-node start offset table. Every node lists itself
// as its first neighbor so that staying put is always a legal move.
package graph

import (
	"errors"
	"fmt"
)

// ErrInvalidGraph is returned by Validate when the adjacency structure
// breaks one of its invariants.
var ErrInvalidGraph = errors.New("graph: invalid structure")

// Graph is a read-only directed graph with an implicit self-loop per node.
// It is safe for concurrent use once built.
type Graph struct {
	nodeCount int
	edgeCount int

	// neighbor holds every adjacency list back to back. Length = edgeCount + nodeCount.
	neighbor []int32
	// start[n] is the offset of node n's list in neighbor. Length = nodeCount + 1.
	start []int32
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return g.nodeCount }

// EdgeCount returns the number of edges read from the source, excluding
// the implicit self-loops.
func (g *Graph) EdgeCount() int { return g.edgeCount }

// Neighbors returns the adjacency list of node, starting with node itself.
// The returned slice aliases the graph and must not be modified.
func (g *Graph) Neighbors(node int) []int32 {
	return g.neighbor[g.start[node]:g.start[node+1]]
}

// Degree returns the number of neighbors of node, including itself.
func (g *Graph) Degree(node int) int {
	return int(g.start[node+1] - g.start[node])
}

// Edges calls fn for every explicit edge in head order. Self-loops added at
// construction are skipped; self-loops that were listed in the source are not.
func (g *Graph) Edges(fn func(head, tail int)) {
	for n := 0; n < g.nodeCount; n++ {
		list := g.Neighbors(n)
		for _, t := range list[1:] {
			fn(n, int(t))
		}
	}
}

// Validate checks the CSR invariants: offsets are monotone and cover the
// neighbor slice exactly, every id is in range, and every node's first
// neighbor is itself.
func (g *Graph) Validate() error {
	if len(g.start) != g.nodeCount+1 {
		return fmt.Errorf("%w: offset table has %d entries, want %d", ErrInvalidGraph, len(g.start), g.nodeCount+1)
	}
	if len(g.neighbor) != g.edgeCount+g.nodeCount {
		return fmt.Errorf("%w: neighbor list has %d entries, want %d", ErrInvalidGraph, len(g.neighbor), g.edgeCount+g.nodeCount)
	}
	if g.start[0] != 0 || int(g.start[g.nodeCount]) != len(g.neighbor) {
		return fmt.Errorf("%w: offsets do not span the neighbor list", ErrInvalidGraph)
	}
	for n := 0; n < g.nodeCount; n++ {
		if g.start[n+1] <= g.start[n] {
			return fmt.Errorf("%w: node %d has no self-loop", ErrInvalidGraph, n)
		}
		list := g.Neighbors(n)
		if int(list[0]) != n {
			return fmt.Errorf("%w: node %d does not list itself first", ErrInvalidGraph, n)
		}
		for _, t := range list {
			if t < 0 || int(t) >= g.nodeCount {
				return fmt.Errorf("%w: node %d has neighbor %d out of range", ErrInvalidGraph, n, t)
			}
		}
	}
	return nil
}
