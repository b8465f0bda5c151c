package generate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nvandessel/graphrat/internal/rng"
)

// ErrUnknownRatMode is returned by ParseRatMode for an unrecognized token.
var ErrUnknownRatMode = errors.New("generate: unknown rat mode")

// RatMode chooses the nodes that initially hold rats.
type RatMode int

const (
	// Uniform spreads rats over every node.
	Uniform RatMode = iota
	// Diagonal places rats on the main diagonal.
	Diagonal
	// UpperLeft stacks every rat on node 0.
	UpperLeft
	// LowerRight stacks every rat on the last node.
	LowerRight
)

var ratModeNames = [...]string{"uniform", "diagonal", "upper-left", "lower-right"}

func (m RatMode) String() string {
	if m < 0 || int(m) >= len(ratModeNames) {
		return fmt.Sprintf("RatMode(%d)", int(m))
	}
	return ratModeNames[m]
}

// ParseRatMode maps a name or its initial ("u", "d", "ul", "lr") to a RatMode.
func ParseRatMode(s string) (RatMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "uniform", "u":
		return Uniform, nil
	case "diagonal", "d":
		return Diagonal, nil
	case "upper-left", "upperleft", "ul":
		return UpperLeft, nil
	case "lower-right", "lowerright", "lr":
		return LowerRight, nil
	}
	return 0, fmt.Errorf("%w: %q (valid: %s)", ErrUnknownRatMode, s, strings.Join(ratModeNames[:], ", "))
}

// Rats returns initial positions for a k x k grid. Each node selected by
// mode is repeated nodeCount*load/len(selected) times, and the resulting
// list is shuffled with a stream seeded from seed.
func Rats(k int, mode RatMode, load int, seed uint32) ([]int32, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k = %d", ErrInvalidSize, k)
	}
	if load <= 0 {
		return nil, fmt.Errorf("%w: load = %d", ErrInvalidSize, load)
	}
	n := k * k

	var nodes []int32
	switch mode {
	case Uniform:
		nodes = make([]int32, n)
		for i := range nodes {
			nodes[i] = int32(i)
		}
	case Diagonal:
		nodes = make([]int32, k)
		for i := range nodes {
			nodes[i] = int32((k + 1) * i)
		}
	case UpperLeft:
		nodes = []int32{0}
	case LowerRight:
		nodes = []int32{int32(n - 1)}
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownRatMode, mode)
	}

	factor := n * load / len(nodes)
	full := make([]int32, 0, factor*len(nodes))
	for range factor {
		full = append(full, nodes...)
	}

	stream := rng.New(seed)
	order := stream.Permute(len(full))
	out := make([]int32, len(full))
	for i, idx := range order {
		out[i] = full[idx]
	}
	return out, nil
}

// RatComments returns provenance lines for a generated rat file.
func RatComments(mode RatMode, load int, seed uint32) []string {
	return []string{fmt.Sprintf("Parameters: load = %d, mode = %s, seed = %d", load, mode, seed)}
}
