package graph

import (
	"errors"
	"fmt"
	"math"
)

// MaxEntries bounds nodeCount+edgeCount, the length of the neighbor array,
// so every offset fits in an int32.
const MaxEntries = math.MaxInt32

// preallocLimit caps capacity reserved up front; larger graphs grow as
// their edges arrive.
const preallocLimit = 1 << 20

// Sentinel errors for graph construction.
var (
	// ErrNoNodes indicates a graph with a non-positive node count.
	ErrNoNodes = errors.New("graph: node count must be positive")

	// ErrHeadOutOfRange indicates an edge whose head is not a valid node id.
	ErrHeadOutOfRange = errors.New("graph: head index out of range")

	// ErrTailOutOfRange indicates an edge whose tail is not a valid node id.
	ErrTailOutOfRange = errors.New("graph: tail index out of range")

	// ErrHeadOutOfOrder indicates an edge whose head is smaller than the previous head.
	ErrHeadOutOfOrder = errors.New("graph: head index out of order")

	// ErrEdgeCount indicates that more or fewer edges were added than declared.
	ErrEdgeCount = errors.New("graph: edge count mismatch")
)

// Builder assembles a Graph from edges supplied in non-decreasing head
// order. The zero value is not usable; call NewBuilder.
type Builder struct {
	nodeCount int
	edgeCount int

	neighbor []int32
	start    []int32

	// last node whose adjacency list has been opened; -1 before the first edge.
	last  int
	added int
}

// NewBuilder returns a Builder for a graph with nodeCount nodes and
// edgeCount explicit edges.
func NewBuilder(nodeCount, edgeCount int) (*Builder, error) {
	if nodeCount <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrNoNodes, nodeCount)
	}
	if nodeCount > MaxEntries {
		return nil, fmt.Errorf("%w: node count %d exceeds %d", ErrMalformedHeader, nodeCount, MaxEntries)
	}
	if edgeCount < 0 {
		return nil, fmt.Errorf("%w: negative edge count %d", ErrEdgeCount, edgeCount)
	}
	if edgeCount > MaxEntries-nodeCount {
		return nil, fmt.Errorf("%w: %d nodes and %d edges exceed %d entries", ErrEdgeCount, nodeCount, edgeCount, MaxEntries)
	}
	return &Builder{
		nodeCount: nodeCount,
		edgeCount: edgeCount,
		neighbor:  make([]int32, 0, min(nodeCount+edgeCount, preallocLimit)),
		start:     make([]int32, 0, min(nodeCount+1, preallocLimit)),
		last:      -1,
	}, nil
}

// AddEdge appends the edge head->tail. Heads must arrive in non-decreasing
// order; opening a new head also opens (with only their self-loop) any
// skipped nodes in between.
func (b *Builder) AddEdge(head, tail int) error {
	if head < 0 || head >= b.nodeCount {
		return fmt.Errorf("%w: %d", ErrHeadOutOfRange, head)
	}
	if tail < 0 || tail >= b.nodeCount {
		return fmt.Errorf("%w: %d", ErrTailOutOfRange, tail)
	}
	if head < b.last {
		return fmt.Errorf("%w: %d after %d", ErrHeadOutOfOrder, head, b.last)
	}
	if b.added == b.edgeCount {
		return fmt.Errorf("%w: more than %d edges", ErrEdgeCount, b.edgeCount)
	}
	b.openThrough(head)
	b.neighbor = append(b.neighbor, int32(tail))
	b.added++
	return nil
}

// openThrough starts the adjacency lists of every node up to and including
// node, each beginning with its self-loop.
func (b *Builder) openThrough(node int) {
	for b.last < node {
		b.last++
		b.start = append(b.start, int32(len(b.neighbor)))
		b.neighbor = append(b.neighbor, int32(b.last))
	}
}

// Build finalizes the graph. Nodes with no outgoing edges receive only
// their self-loop.
func (b *Builder) Build() (*Graph, error) {
	if b.added != b.edgeCount {
		return nil, fmt.Errorf("%w: declared %d, added %d", ErrEdgeCount, b.edgeCount, b.added)
	}
	b.openThrough(b.nodeCount - 1)
	b.start = append(b.start, int32(len(b.neighbor)))
	return &Graph{
		nodeCount: b.nodeCount,
		edgeCount: b.edgeCount,
		neighbor:  b.neighbor,
		start:     b.start,
	}, nil
}

// FromEdges builds a graph from an edge list that is already sorted by head.
func FromEdges(nodeCount int, edges [][2]int) (*Graph, error) {
	b, err := NewBuilder(nodeCount, len(edges))
	if err != nil {
		return nil, err
	}
	for i, e := range edges {
		if err := b.AddEdge(e[0], e[1]); err != nil {
			return nil, fmt.Errorf("edge %d: %w", i, err)
		}
	}
	return b.Build()
}
