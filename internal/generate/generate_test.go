package generate

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/nvandessel/graphrat/internal/graph"
)

func TestNewGrid_EdgeCounts(t *testing.T) {
	tests := []struct {
		name  string
		k     int
		opts  Options
		edges int
	}{
		{"plain 3", 3, Options{}, 24},
		{"plain 4", 4, Options{}, 48},
		{"fractal 4", 4, Options{Fractal: true}, 80},
		{"fractal 7", 7, Options{Fractal: true}, 256},
		{"fractal 8", 8, Options{Fractal: true}, 484},
		{"tiled 6", 6, Options{Tile: 3}, 152},
		{"fractal tiled 5", 5, Options{Fractal: true, Tile: 2}, 126},
		{"single node", 1, Options{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGrid(tt.k, tt.opts)
			if err != nil {
				t.Fatalf("NewGrid: %v", err)
			}
			if g.NodeCount() != tt.k*tt.k {
				t.Errorf("NodeCount = %d, want %d", g.NodeCount(), tt.k*tt.k)
			}
			if g.EdgeCount() != tt.edges {
				t.Errorf("EdgeCount = %d, want %d", g.EdgeCount(), tt.edges)
			}
			for _, e := range g.Edges() {
				if e[0] == e[1] {
					t.Errorf("stored self-loop %v", e)
				}
				if _, ok := g.edges[[2]int{e[1], e[0]}]; !ok {
					t.Errorf("edge %v has no reverse", e)
				}
			}
		})
	}
}

func TestNewGrid_FractalHubs(t *testing.T) {
	g, err := NewGrid(4, Options{Fractal: true})
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	gr, err := g.Graph()
	if err != nil {
		t.Fatalf("Graph: %v", err)
	}
	want := map[int][]int32{
		0:  {0, 1, 4, 5, 6, 7},
		4:  {4, 0, 1, 2, 3, 5, 6, 7, 8},
		15: {15, 11, 14},
	}
	for n, w := range want {
		if got := gr.Neighbors(n); !reflect.DeepEqual(got, w) {
			t.Errorf("Neighbors(%d) = %v, want %v", n, got, w)
		}
	}
}

func TestNewGrid_Invalid(t *testing.T) {
	if _, err := NewGrid(0, Options{}); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("k=0 error = %v, want ErrInvalidSize", err)
	}
	if _, err := NewGrid(3, Options{Tile: -1}); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("tile=-1 error = %v, want ErrInvalidSize", err)
	}
}

func TestGrid_WriteParses(t *testing.T) {
	g, err := NewGrid(5, Options{Fractal: true})
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	var buf bytes.Buffer
	if err := g.Write(&buf, "Generated for test"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "# Parameters: k = 5, fractal\n") || !strings.Contains(out, "# Generated for test\n") {
		t.Errorf("missing provenance comments:\n%s", out[:min(len(out), 200)])
	}
	parsed, err := graph.Parse(&buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.NodeCount() != 25 || parsed.EdgeCount() != g.EdgeCount() {
		t.Errorf("parsed (%d, %d), want (25, %d)", parsed.NodeCount(), parsed.EdgeCount(), g.EdgeCount())
	}
}

func TestRats(t *testing.T) {
	tests := []struct {
		name string
		k    int
		mode RatMode
		load int
		seed uint32
		want []int32
	}{
		{"uniform", 2, Uniform, 1, 618, []int32{0, 2, 3, 1}},
		{"diagonal", 3, Diagonal, 2, 618, []int32{0, 0, 0, 4, 0, 4, 8, 4, 8, 8, 8, 8, 0, 4, 0, 8, 4, 4}},
		{"upper left", 2, UpperLeft, 2, 5, []int32{0, 0, 0, 0, 0, 0, 0, 0}},
		{"lower right", 3, LowerRight, 1, 618, []int32{8, 8, 8, 8, 8, 8, 8, 8, 8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Rats(tt.k, tt.mode, tt.load, tt.seed)
			if err != nil {
				t.Fatalf("Rats: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Rats = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRats_Invalid(t *testing.T) {
	if _, err := Rats(0, Uniform, 1, 1); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("k=0 error = %v", err)
	}
	if _, err := Rats(3, Uniform, 0, 1); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("load=0 error = %v", err)
	}
	if _, err := Rats(3, RatMode(9), 1, 1); !errors.Is(err, ErrUnknownRatMode) {
		t.Errorf("bad mode error = %v", err)
	}
}

func TestParseRatMode(t *testing.T) {
	tests := []struct {
		in   string
		want RatMode
	}{
		{"uniform", Uniform},
		{"D", Diagonal},
		{"upper-left", UpperLeft},
		{"ul", UpperLeft},
		{"lower-right", LowerRight},
		{"lr", LowerRight},
	}
	for _, tt := range tests {
		got, err := ParseRatMode(tt.in)
		if err != nil {
			t.Errorf("ParseRatMode(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseRatMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
		if back, _ := ParseRatMode(got.String()); back != got {
			t.Errorf("String round trip for %v gave %v", got, back)
		}
	}
	if _, err := ParseRatMode("middle"); !errors.Is(err, ErrUnknownRatMode) {
		t.Errorf("unknown mode error = %v", err)
	}
}
