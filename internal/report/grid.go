package report

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/nvandessel/graphrat/internal/sim"
)

// Grid renders counted snapshots as an ASCII k x k table, where k is the
// integer square root of the node count. Empty nodes print as blank cells
// and each count is centered in a cell wide enough for the whole
// population. Snapshots without counts are skipped.
type Grid struct {
	w *bufio.Writer
}

// NewGrid returns a Grid reporter writing to w.
func NewGrid(w io.Writer) *Grid {
	return &Grid{w: bufio.NewWriter(w)}
}

func (g *Grid) Report(snap sim.Snapshot) error {
	if snap.Counts == nil {
		return nil
	}
	k := int(math.Sqrt(float64(snap.NodeCount)))
	digits := max(1, int(math.Ceil(math.Log10(float64(snap.RatCount)+1))))
	sep := "+" + strings.Repeat(strings.Repeat("-", digits)+"+", k)

	fmt.Fprintf(g.w, "t = %d.\n", snap.Step)
	g.w.WriteString(sep + "\n")
	for row := 0; row < k; row++ {
		var line strings.Builder
		line.WriteByte('|')
		for _, v := range snap.Counts[row*k : row*k+k] {
			cell := ""
			if v != 0 {
				cell = strconv.Itoa(int(v))
			}
			pad := max(0, digits-len(cell))
			line.WriteString(strings.Repeat(" ", (pad+1)/2))
			line.WriteString(cell)
			line.WriteString(strings.Repeat(" ", pad/2))
			line.WriteByte('|')
		}
		g.w.WriteString(line.String() + "\n")
		g.w.WriteString(sep + "\n")
	}
	return g.w.Flush()
}

func (g *Grid) Done() error { return g.w.Flush() }
