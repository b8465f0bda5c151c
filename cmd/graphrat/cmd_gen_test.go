package main

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/graphrat/internal/graph"
	"github.com/nvandessel/graphrat/internal/placement"
)

func TestGenCmd_WritesLoadableFiles(t *testing.T) {
	tmpDir := t.TempDir()
	graphPath, ratsPath := writeFixtures(t, tmpDir)

	g, err := graph.Load(graphPath)
	if err != nil {
		t.Fatalf("load generated graph: %v", err)
	}
	if g.NodeCount() != 9 {
		t.Errorf("NodeCount() = %d, want 9", g.NodeCount())
	}

	rats, err := placement.Load(ratsPath, g.NodeCount())
	if err != nil {
		t.Fatalf("load generated rats: %v", err)
	}
	if len(rats) != 18 {
		t.Fatalf("len(rats) = %d, want 18", len(rats))
	}
	for i, r := range rats {
		if r != 0 {
			t.Fatalf("rat %d at node %d, want upper-left node 0", i, r)
		}
	}
}

func TestGenGraphCmd_Stdout(t *testing.T) {
	out, err := execute(t, "gen", "graph", "-k", "2")
	if err != nil {
		t.Fatalf("gen graph: %v", err)
	}
	if !strings.Contains(out, "# Parameters: k = 2, uniform") {
		t.Errorf("missing provenance comment:\n%s", out)
	}
	// 2x2 grid: 4 nodes, 8 directed edges.
	if !strings.HasPrefix(out, "4 8\n") {
		t.Errorf("missing header line:\n%s", out)
	}
}

func TestGenRatsCmd_Uniform(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "u.rats")
	if _, err := execute(t, "gen", "rats", "-k", "2", "--load", "3", "-o", path); err != nil {
		t.Fatalf("gen rats: %v", err)
	}

	rats, err := placement.Load(path, 4)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	perNode := make([]int, 4)
	for _, r := range rats {
		perNode[r]++
	}
	for node, n := range perNode {
		if n != 3 {
			t.Errorf("node %d has %d rats, want 3", node, n)
		}
	}
}

func TestGenCmd_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"zero size graph", []string{"gen", "graph", "-k", "0"}},
		{"unknown rat mode", []string{"gen", "rats", "-k", "3", "--mode", "sideways"}},
		{"zero size rats", []string{"gen", "rats", "-k", "0"}},
		{"unwritable output", []string{"gen", "graph", "-k", "2", "-o", filepath.Join(t.TempDir(), "missing", "g.gph")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := execute(t, tt.args...); err == nil {
				t.Errorf("expected error for %v", tt.args)
			}
		})
	}
}
