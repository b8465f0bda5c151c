// Package generate builds synthetic grid graphs and initial rat placements.
package generate

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/nvandessel/graphrat/internal/graph"
)

// ErrInvalidSize indicates a non-positive grid dimension or tile size.
var ErrInvalidSize = errors.New("generate: invalid size")

// Options selects the hub structures superimposed on the base grid.
type Options struct {
	// Fractal adds a recursive hierarchy of hub nodes, densest toward the
	// lower-right corner.
	Fractal bool

	// Tile, when positive, partitions the grid into Tile x Tile squares and
	// connects one hub per square to every node in it.
	Tile int
}

// Grid is a k x k grid of nodes with 4-neighbour edges plus optional hubs.
// Every edge is stored in both directions and self-loops are never stored.
type Grid struct {
	k     int
	opts  Options
	edges map[[2]int]struct{}
}

// NewGrid generates a k x k grid.
func NewGrid(k int, opts Options) (*Grid, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k = %d", ErrInvalidSize, k)
	}
	if opts.Tile < 0 {
		return nil, fmt.Errorf("%w: tile = %d", ErrInvalidSize, opts.Tile)
	}
	g := &Grid{k: k, opts: opts, edges: make(map[[2]int]struct{})}
	for r := 0; r < k; r++ {
		for c := 0; c < k; c++ {
			own := g.id(r, c)
			for _, nb := range [4]int{g.id(r-1, c), g.id(r+1, c), g.id(r, c-1), g.id(r, c+1)} {
				if nb >= 0 {
					g.addEdge(own, nb)
				}
			}
		}
	}
	if opts.Fractal {
		g.fracture(0, 0, k)
	}
	if opts.Tile > 0 {
		g.tile(opts.Tile)
	}
	return g, nil
}

// K returns the grid side length.
func (g *Grid) K() int { return g.k }

// NodeCount returns k*k.
func (g *Grid) NodeCount() int { return g.k * g.k }

// EdgeCount returns the number of directed edges.
func (g *Grid) EdgeCount() int { return len(g.edges) }

// id maps a row and column to a node id, or -1 off the grid.
func (g *Grid) id(r, c int) int {
	if r < 0 || r >= g.k || c < 0 || c >= g.k {
		return -1
	}
	return r*g.k + c
}

func (g *Grid) addEdge(i, j int) {
	if i == j || i < 0 || j < 0 {
		return
	}
	g.edges[[2]int{i, j}] = struct{}{}
	g.edges[[2]int{j, i}] = struct{}{}
}

// fracture adds hubs over the top band of the w x w square at (x, y), then
// over its lower-left quadrant, and recurses into the lower-right quadrant.
// Odd widths end the recursion with a single hub over the whole square.
func (g *Grid) fracture(x, y, w int) {
	if w%2 != 0 {
		g.makeHubs(x, y, w, w, 1, 1)
		return
	}
	nw := w / 2
	g.makeHubs(x, y, w, nw, 4, 1)
	g.makeHubs(x, y+nw, nw, nw, 1, 1)
	g.fracture(x+nw, y+nw, nw)
}

func (g *Grid) tile(size int) {
	for x := 0; x < g.k; x += size {
		w := min(size, g.k-x)
		for y := 0; y <= g.k-size; y += size {
			h := min(size, g.k-y)
			g.makeHubs(x, y, w, h, 1, 1)
		}
	}
}

// makeHubs places xcount*ycount hubs in the w x h rectangle whose top-left
// node is column x, row y, and connects each hub to every node in it.
func (g *Grid) makeHubs(x, y, w, h, xcount, ycount int) {
	var wsep int
	if w <= 2*xcount {
		wsep = w / xcount
	} else {
		wsep = w / (xcount + 1)
	}
	hsep := h / (ycount + 1)

	cx := make([]int, xcount)
	for i := range cx {
		switch {
		case w <= xcount:
			cx[i] = x + wsep*i
		case w <= 2*xcount:
			cx[i] = 1 + x + wsep*i
		default:
			cx[i] = x + wsep*(i+1)
		}
	}
	for _, hx := range cx {
		for i := 1; i <= ycount; i++ {
			hub := g.id(y+hsep*i, hx)
			for j := 0; j < w; j++ {
				for r := 0; r < h; r++ {
					g.addEdge(hub, g.id(y+r, x+j))
				}
			}
		}
	}
}

// Edges returns every directed edge sorted by head, then tail.
func (g *Grid) Edges() [][2]int {
	out := make([][2]int, 0, len(g.edges))
	for e := range g.edges {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b [2]int) int {
		if c := cmp.Compare(a[0], b[0]); c != 0 {
			return c
		}
		return cmp.Compare(a[1], b[1])
	})
	return out
}

// Graph builds the simulation graph for the grid.
func (g *Grid) Graph() (*graph.Graph, error) {
	return graph.FromEdges(g.NodeCount(), g.Edges())
}

// Comments returns provenance lines describing how the grid was generated.
func (g *Grid) Comments() []string {
	kind := "uniform"
	if g.opts.Fractal {
		kind = "fractal"
	}
	params := fmt.Sprintf("Parameters: k = %d, %s", g.k, kind)
	if g.opts.Tile > 0 {
		params += fmt.Sprintf(", tile = %d", g.opts.Tile)
	}
	return []string{params}
}

// Write emits the grid in graph file format with its provenance comments
// followed by extra.
func (g *Grid) Write(w io.Writer, extra ...string) error {
	gr, err := g.Graph()
	if err != nil {
		return fmt.Errorf("building grid graph: %w", err)
	}
	return graph.Write(w, gr, append(g.Comments(), extra...)...)
}
