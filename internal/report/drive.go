// Package report renders simulation snapshots.
//
// Every format implements sim.Reporter. The drive format is line oriented
// and can be read back with ReadDrive, so one run can drive a visualizer or
// be compared against another.
package report

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nvandessel/graphrat/internal/sim"
)

// ErrMalformedDrive indicates drive-format input that cannot be decoded.
var ErrMalformedDrive = errors.New("report: malformed drive input")

// Drive writes the drive format:
//
//	STEP <nnode> <nrat>
//	<count of node 0>
//	...
//	END
//
// Count lines are present only when the snapshot carries counts. Done
// writes a final DONE line.
type Drive struct {
	w *bufio.Writer
}

// NewDrive returns a Drive reporter writing to w.
func NewDrive(w io.Writer) *Drive {
	return &Drive{w: bufio.NewWriter(w)}
}

func (d *Drive) Report(snap sim.Snapshot) error {
	fmt.Fprintf(d.w, "STEP %d %d\n", snap.NodeCount, snap.RatCount)
	for _, c := range snap.Counts {
		d.w.WriteString(strconv.Itoa(int(c)))
		d.w.WriteByte('\n')
	}
	d.w.WriteString("END\n")
	return d.w.Flush()
}

func (d *Drive) Done() error {
	d.w.WriteString("DONE\n")
	return d.w.Flush()
}

// ReadDrive decodes a drive stream. Snapshots are numbered from zero in
// stream order. Reading stops at DONE or at end of input.
func ReadDrive(r io.Reader) ([]sim.Snapshot, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		out    []sim.Snapshot
		cur    *sim.Snapshot
		lineNo int
	)
	bad := func(format string, args ...any) error {
		return fmt.Errorf("%w: line %d: %s", ErrMalformedDrive, lineNo, fmt.Sprintf(format, args...))
	}

	for sc.Scan() {
		lineNo++
		tokens := strings.Fields(sc.Text())
		if cur == nil {
			if len(tokens) >= 1 && tokens[0] == "DONE" {
				return out, nil
			}
			if len(tokens) != 3 || tokens[0] != "STEP" {
				return nil, bad("expected STEP header, got %q", sc.Text())
			}
			nnode, err1 := strconv.Atoi(tokens[1])
			nrat, err2 := strconv.Atoi(tokens[2])
			if err1 != nil || err2 != nil || nnode < 0 || nrat < 0 {
				return nil, bad("invalid STEP parameters %q", sc.Text())
			}
			cur = &sim.Snapshot{Step: len(out), NodeCount: nnode, RatCount: nrat}
			continue
		}

		switch {
		case len(tokens) == 1 && tokens[0] == "END":
			if cur.Counts != nil && len(cur.Counts) != cur.NodeCount {
				return nil, bad("got %d counts for %d nodes", len(cur.Counts), cur.NodeCount)
			}
			out = append(out, *cur)
			cur = nil
		case len(tokens) == 1:
			v, err := strconv.Atoi(tokens[0])
			if err != nil {
				return nil, bad("invalid count %q", tokens[0])
			}
			if len(cur.Counts) == cur.NodeCount {
				return nil, bad("more than %d counts", cur.NodeCount)
			}
			if cur.Counts == nil {
				cur.Counts = make([]int32, 0, cur.NodeCount)
			}
			cur.Counts = append(cur.Counts, int32(v))
		default:
			return nil, bad("unexpected line %q", sc.Text())
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading drive input: %w", err)
	}
	if cur != nil {
		return nil, bad("missing END for step %d", cur.Step)
	}
	return out, nil
}
