// Package placement reads and writes rat position files.
//
// The format mirrors graph files: comment lines start with '#', the header
// is "nnode nrat", and each of the following nrat data lines holds the node
// id of one rat. Rats are numbered by line order.
package placement

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/nvandessel/graphrat/internal/graph"
)

// Sentinel errors for rat file parsing.
var (
	// ErrMalformedHeader indicates the header line is not "nnode nrat".
	ErrMalformedHeader = errors.New("placement: malformed header")

	// ErrNodeCountMismatch indicates the file was written for a graph of a
	// different size.
	ErrNodeCountMismatch = errors.New("placement: node count mismatch")

	// ErrMalformedLine indicates a position line does not start with an integer.
	ErrMalformedLine = errors.New("placement: malformed position line")

	// ErrInvalidPosition indicates a node id outside the graph.
	ErrInvalidPosition = errors.New("placement: invalid rat position")

	// ErrTruncated indicates fewer position lines than the header declared.
	ErrTruncated = errors.New("placement: truncated input")
)

// ParseError reports a problem at a specific line of a rat file.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse reads rat positions for a graph of nodeCount nodes.
func Parse(r io.Reader, nodeCount int) ([]int32, error) {
	lr := graph.NewLineReader(r)

	fields, line, err := lr.Next()
	if err == io.EOF {
		return nil, &ParseError{Line: line, Err: fmt.Errorf("%w: empty input", ErrMalformedHeader)}
	}
	if err != nil {
		return nil, fmt.Errorf("reading rat header: %w", err)
	}
	hdr, ok := graph.ParseInts(fields, 2)
	if !ok || hdr[1] < 0 {
		return nil, &ParseError{Line: line, Err: ErrMalformedHeader}
	}
	if hdr[1] > math.MaxInt32 {
		return nil, &ParseError{Line: line, Err: fmt.Errorf("%w: %d rats exceeds %d", ErrMalformedHeader, hdr[1], math.MaxInt32)}
	}
	if hdr[0] != nodeCount {
		return nil, &ParseError{Line: line, Err: fmt.Errorf("%w: graph has %d nodes, rat file has %d", ErrNodeCountMismatch, nodeCount, hdr[0])}
	}

	nrat := hdr[1]
	positions := make([]int32, 0, min(nrat, 1<<16))
	for len(positions) < nrat {
		fields, line, err = lr.Next()
		if err == io.EOF {
			return nil, &ParseError{Line: line, Err: fmt.Errorf("%w: read %d of %d rats", ErrTruncated, len(positions), nrat)}
		}
		if err != nil {
			return nil, fmt.Errorf("reading rat %d: %w", len(positions), err)
		}
		v, ok := graph.ParseInts(fields, 1)
		if !ok {
			return nil, &ParseError{Line: line, Err: ErrMalformedLine}
		}
		if v[0] < 0 || v[0] >= nodeCount {
			return nil, &ParseError{Line: line, Err: fmt.Errorf("%w: %d", ErrInvalidPosition, v[0])}
		}
		positions = append(positions, int32(v[0]))
	}
	return positions, nil
}

// Load parses the rat file at path.
func Load(path string, nodeCount int) ([]int32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening rat file: %w", err)
	}
	defer f.Close()

	positions, err := Parse(f, nodeCount)
	if err != nil {
		return nil, fmt.Errorf("parsing rat file %s: %w", path, err)
	}
	return positions, nil
}

// Write emits positions in the format accepted by Parse. Comment lines are
// written after the header, each prefixed with "# " unless it already
// starts with '#'.
func Write(w io.Writer, nodeCount int, positions []int32, comments ...string) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d %d\n", nodeCount, len(positions))
	for _, c := range comments {
		if !strings.HasPrefix(c, "#") {
			c = "# " + c
		}
		fmt.Fprintln(bw, c)
	}
	for _, p := range positions {
		fmt.Fprintf(bw, "%d\n", p)
	}
	return bw.Flush()
}

// Save writes positions to path, replacing any existing file.
func Save(path string, nodeCount int, positions []int32, comments ...string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating rat file: %w", err)
	}
	if err := Write(f, nodeCount, positions, comments...); err != nil {
		f.Close()
		return fmt.Errorf("writing rat file %s: %w", path, err)
	}
	return f.Close()
}
