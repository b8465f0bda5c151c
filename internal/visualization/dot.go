// Package visualization renders rat graphs and occupancy in various output formats.
package visualization

import (
	"fmt"
	"slices"
	"strings"

	"github.com/nvandessel/graphrat/internal/graph"
)

// Format specifies the output format for graph rendering.
type Format string

const (
	FormatDOT  Format = "dot"
	FormatJSON Format = "json"
	FormatHTML Format = "html"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatDOT, FormatJSON, FormatHTML:
		return f, nil
	}
	return "", fmt.Errorf("unknown format %q (valid: dot, json, html)", s)
}

// shades is the number of fill levels in the DOT color scheme.
const shades = 9

// Edge is one graph edge after self-loops are dropped and opposite
// directions are merged.
type Edge struct {
	Source        int  `json:"source"`
	Target        int  `json:"target"`
	Bidirectional bool `json:"bidirectional"`
}

// CollectEdges returns the edges of g without self-loops. An edge whose
// reverse also exists is returned once, from the lower node, with
// Bidirectional set. The result is sorted by source, then target.
func CollectEdges(g *graph.Graph) []Edge {
	present := make(map[[2]int]bool, g.EdgeCount())
	g.Edges(func(head, tail int) {
		if head != tail {
			present[[2]int{head, tail}] = true
		}
	})

	edges := make([]Edge, 0, len(present))
	for e := range present {
		back := present[[2]int{e[1], e[0]}]
		if back && e[0] > e[1] {
			continue
		}
		edges = append(edges, Edge{Source: e[0], Target: e[1], Bidirectional: back})
	}
	slices.SortFunc(edges, func(a, b Edge) int {
		if a.Source != b.Source {
			return a.Source - b.Source
		}
		return a.Target - b.Target
	})
	return edges
}

// shade maps a count onto 1..shades relative to the fullest node.
func shade(count, peak int32) int {
	if peak <= 0 || count <= 0 {
		return 1
	}
	return 1 + int(int64(count)*(shades-1)/int64(peak))
}

// RenderDOT produces a Graphviz DOT representation of g. When counts is
// non-nil each node is labelled with its occupancy and filled darker the
// more crowded it is relative to the fullest node.
func RenderDOT(g *graph.Graph, counts []int32) string {
	var peak int32
	for _, c := range counts {
		peak = max(peak, c)
	}

	var b strings.Builder
	b.WriteString("digraph graphrat {\n")
	b.WriteString("  node [shape=circle, style=filled, fontname=\"Helvetica\"")
	if counts != nil {
		fmt.Fprintf(&b, ", colorscheme=blues%d", shades)
	}
	b.WriteString("];\n\n")

	for n := 0; n < g.NodeCount(); n++ {
		if counts == nil {
			fmt.Fprintf(&b, "  %d [fillcolor=lightgray];\n", n)
			continue
		}
		level := shade(counts[n], peak)
		font := "black"
		if level > shades/2+1 {
			font = "white"
		}
		fmt.Fprintf(&b, "  %d [label=\"%d\\n%d\", fillcolor=%d, fontcolor=%s, tooltip=\"rats=%d\"];\n",
			n, n, counts[n], level, font, counts[n])
	}
	b.WriteString("\n")

	for _, e := range CollectEdges(g) {
		if e.Bidirectional {
			fmt.Fprintf(&b, "  %d -> %d [dir=both];\n", e.Source, e.Target)
		} else {
			fmt.Fprintf(&b, "  %d -> %d;\n", e.Source, e.Target)
		}
	}

	b.WriteString("}\n")
	return b.String()
}

// Node is one node of a JSON rendering.
type Node struct {
	ID     int    `json:"id"`
	Degree int    `json:"degree"`
	Count  *int32 `json:"count,omitempty"`
}

// Document is the JSON rendering of a graph.
type Document struct {
	Nodes     []Node `json:"nodes"`
	Edges     []Edge `json:"edges"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
	RatCount  int64  `json:"rat_count,omitempty"`
}

// RenderJSON produces a JSON-ready graph representation with nodes and
// edges arrays. Degree counts the self-loop, matching the move choice set.
// Counts are attached when counts is non-nil.
func RenderJSON(g *graph.Graph, counts []int32) *Document {
	doc := &Document{
		Nodes:     make([]Node, g.NodeCount()),
		Edges:     CollectEdges(g),
		NodeCount: g.NodeCount(),
	}
	doc.EdgeCount = len(doc.Edges)
	for n := range doc.Nodes {
		doc.Nodes[n] = Node{ID: n, Degree: g.Degree(n)}
		if counts != nil {
			c := counts[n]
			doc.Nodes[n].Count = &c
			doc.RatCount += int64(c)
		}
	}
	return doc
}
