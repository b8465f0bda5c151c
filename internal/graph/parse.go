package graph

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Sentinel errors for graph file parsing.
var (
	// ErrMalformedHeader indicates the header line is not "nnode nedge".
	ErrMalformedHeader = errors.New("graph: malformed header")

	// ErrMalformedLine indicates an edge line is not "head tail".
	ErrMalformedLine = errors.New("graph: malformed edge line")

	// ErrTruncated indicates the input ended before all declared edges were read.
	ErrTruncated = errors.New("graph: truncated input")
)

// ParseError reports a problem at a specific line of a graph file.
type ParseError struct {
	Line int // 1-based physical line number; 0 when not tied to a line
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsComment reports whether a line carries no data: it is blank or its
// first non-space character is '#'.
func IsComment(line string) bool {
	s := strings.TrimSpace(line)
	return s == "" || s[0] == '#'
}

// LineReader yields the data lines of a text file, skipping comments and
// tracking physical line numbers.
type LineReader struct {
	sc   *bufio.Scanner
	line int
}

// NewLineReader wraps r.
func NewLineReader(r io.Reader) *LineReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &LineReader{sc: sc}
}

// Next returns the fields of the next data line and its line number.
// It returns io.EOF when the input is exhausted.
func (lr *LineReader) Next() ([]string, int, error) {
	for lr.sc.Scan() {
		lr.line++
		text := lr.sc.Text()
		if IsComment(text) {
			continue
		}
		return strings.Fields(text), lr.line, nil
	}
	if err := lr.sc.Err(); err != nil {
		return nil, lr.line, err
	}
	return nil, lr.line, io.EOF
}

// Line returns the number of the last line read.
func (lr *LineReader) Line() int { return lr.line }

// ParseInts parses the first n fields as decimal integers.
func ParseInts(fields []string, n int) ([]int, bool) {
	if len(fields) < n {
		return nil, false
	}
	out := make([]int, n)
	for i := 0; i < n; i++ {
		v, err := strconv.Atoi(fields[i])
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

// Parse reads a graph in the text format: a header "nnode nedge" followed
// by nedge lines "head tail" with heads in non-decreasing order. Lines whose
// first non-space character is '#' are comments. Any violation aborts the
// parse with a *ParseError; no partial graph is returned.
func Parse(r io.Reader) (*Graph, error) {
	lr := NewLineReader(r)

	fields, line, err := lr.Next()
	if err == io.EOF {
		return nil, &ParseError{Line: line, Err: fmt.Errorf("%w: empty input", ErrMalformedHeader)}
	}
	if err != nil {
		return nil, fmt.Errorf("reading graph header: %w", err)
	}
	hdr, ok := ParseInts(fields, 2)
	if !ok {
		return nil, &ParseError{Line: line, Err: ErrMalformedHeader}
	}

	b, err := NewBuilder(hdr[0], hdr[1])
	if err != nil {
		return nil, &ParseError{Line: line, Err: err}
	}

	for i := 0; i < hdr[1]; i++ {
		fields, line, err = lr.Next()
		if err == io.EOF {
			return nil, &ParseError{Line: line, Err: fmt.Errorf("%w: read %d of %d edges", ErrTruncated, i, hdr[1])}
		}
		if err != nil {
			return nil, fmt.Errorf("reading graph edge %d: %w", i, err)
		}
		e, ok := ParseInts(fields, 2)
		if !ok {
			return nil, &ParseError{Line: line, Err: ErrMalformedLine}
		}
		if err := b.AddEdge(e[0], e[1]); err != nil {
			return nil, &ParseError{Line: line, Err: err}
		}
	}

	g, err := b.Build()
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	return g, nil
}

// Load parses the graph file at path.
func Load(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening graph file: %w", err)
	}
	defer f.Close()

	g, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing graph file %s: %w", path, err)
	}
	return g, nil
}

// Write emits g in the text format accepted by Parse, preceded by the
// given comment lines (each is prefixed with "# " unless it already starts
// with '#').
func Write(w io.Writer, g *Graph, comments ...string) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d %d\n", g.NodeCount(), g.EdgeCount())
	for _, c := range comments {
		if !strings.HasPrefix(c, "#") {
			c = "# " + c
		}
		fmt.Fprintln(bw, c)
	}
	g.Edges(func(head, tail int) {
		fmt.Fprintf(bw, "%d %d\n", head, tail)
	})
	return bw.Flush()
}
