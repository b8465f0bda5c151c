// Package regress compares two simulation traces snapshot by snapshot.
package regress

import (
	"fmt"

	"github.com/nvandessel/graphrat/internal/sim"
)

// DefaultLimit is the number of mismatches reported in detail.
const DefaultLimit = 5

// Mismatch describes one difference between two traces. Node is -1 for
// differences that are not about a single node's count.
type Mismatch struct {
	Step   int    `json:"step"`
	Node   int    `json:"node"`
	Field  string `json:"field"`
	Want   int64  `json:"want"`
	Got    int64  `json:"got"`
	Detail string `json:"detail,omitempty"`
}

func (m Mismatch) String() string {
	if m.Node >= 0 {
		return fmt.Sprintf("step %d node %d: want %d, got %d", m.Step, m.Node, m.Want, m.Got)
	}
	if m.Detail != "" {
		return fmt.Sprintf("step %d %s: %s", m.Step, m.Field, m.Detail)
	}
	return fmt.Sprintf("step %d %s: want %d, got %d", m.Step, m.Field, m.Want, m.Got)
}

// Result holds the outcome of a comparison. Total counts every mismatch;
// Mismatches holds at most the requested limit of them.
type Result struct {
	Snapshots  int        `json:"snapshots"`
	Total      int        `json:"total"`
	Mismatches []Mismatch `json:"mismatches,omitempty"`
}

// OK reports whether the traces matched.
func (r Result) OK() bool { return r.Total == 0 }

// Compare checks got against want. A limit of zero or less means
// DefaultLimit. Traces of different length are compared up to the shorter
// one, and the length difference counts as one mismatch.
func Compare(want, got []sim.Snapshot, limit int) Result {
	if limit <= 0 {
		limit = DefaultLimit
	}
	var res Result
	add := func(m Mismatch) {
		res.Total++
		if len(res.Mismatches) < limit {
			res.Mismatches = append(res.Mismatches, m)
		}
	}

	n := min(len(want), len(got))
	res.Snapshots = n
	for i := 0; i < n; i++ {
		w, g := want[i], got[i]
		if w.NodeCount != g.NodeCount {
			add(Mismatch{Step: w.Step, Node: -1, Field: "nodes", Want: int64(w.NodeCount), Got: int64(g.NodeCount)})
			continue
		}
		if w.RatCount != g.RatCount {
			add(Mismatch{Step: w.Step, Node: -1, Field: "rats", Want: int64(w.RatCount), Got: int64(g.RatCount)})
		}
		switch {
		case w.Counts == nil && g.Counts == nil:
		case w.Counts == nil || g.Counts == nil:
			add(Mismatch{Step: w.Step, Node: -1, Field: "counts", Detail: fmt.Sprintf("present in want: %t, in got: %t", w.Counts != nil, g.Counts != nil)})
		default:
			for node := range min(len(w.Counts), len(g.Counts)) {
				if w.Counts[node] != g.Counts[node] {
					add(Mismatch{Step: w.Step, Node: node, Field: "count", Want: int64(w.Counts[node]), Got: int64(g.Counts[node])})
				}
			}
		}
	}
	if len(want) != len(got) {
		add(Mismatch{Step: n, Node: -1, Field: "snapshots", Want: int64(len(want)), Got: int64(len(got))})
	}
	return res
}

// Counted returns the snapshots that carry counts, in order. Traces
// reported at different display intervals compare equal after filtering
// when they agree on every counted step.
func Counted(snaps []sim.Snapshot) []sim.Snapshot {
	out := make([]sim.Snapshot, 0, len(snaps))
	for _, s := range snaps {
		if s.Counts != nil {
			out = append(out, s)
		}
	}
	return out
}
