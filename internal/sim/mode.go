package sim

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// DefaultBatchFraction is the batch size of Batched mode as a fraction of
// the population.
const DefaultBatchFraction = 0.02

// ErrUnknownMode is returned by ParseMode for an unrecognized token.
var ErrUnknownMode = errors.New("sim: unknown update mode")

// Mode selects how many rats share one occupancy snapshot within a step.
// The set of modes is closed: Synchronous, RatOrder and Batched.
type Mode interface {
	// Name returns the canonical token for the mode.
	Name() string

	// BatchSize returns the batch size for a population of ratCount.
	// It is at least 1 for any positive population.
	BatchSize(ratCount int) int

	mode()
}

// Synchronous computes every move from the pre-step census, then commits
// all of them.
type Synchronous struct{}

func (Synchronous) Name() string { return "synchronous" }

func (Synchronous) BatchSize(ratCount int) int { return max(1, ratCount) }

func (Synchronous) mode() {}

// RatOrder moves rats one at a time; every move sees all earlier moves.
type RatOrder struct{}

func (RatOrder) Name() string { return "rat-order" }

func (RatOrder) BatchSize(int) int { return 1 }

func (RatOrder) mode() {}

// Batched moves rats in fixed-size chunks. Fraction is the batch size as a
// fraction of the population; zero means DefaultBatchFraction.
type Batched struct {
	Fraction float64
}

func (Batched) Name() string { return "batched" }

// BatchSize rounds Fraction*ratCount to the nearest integer and clamps the
// result to [1, ratCount].
func (b Batched) BatchSize(ratCount int) int {
	f := b.Fraction
	if f <= 0 {
		f = DefaultBatchFraction
	}
	n := int(math.Round(f * float64(ratCount)))
	if n > ratCount {
		n = ratCount
	}
	return max(1, n)
}

func (Batched) mode() {}

// ParseMode maps a mode token to a Mode. Accepted tokens (case-insensitive):
// "synchronous"/"sync"/"s", "rat-order"/"rat"/"r", "batched"/"batch"/"b".
// fraction configures Batched mode and is ignored otherwise.
func ParseMode(token string, fraction float64) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "synchronous", "sync", "s":
		return Synchronous{}, nil
	case "rat-order", "ratorder", "rat", "r":
		return RatOrder{}, nil
	case "batched", "batch", "b":
		if fraction < 0 || fraction > 1 {
			return nil, fmt.Errorf("sim: batch fraction must be in [0, 1], got %v", fraction)
		}
		return Batched{Fraction: fraction}, nil
	default:
		return nil, fmt.Errorf("%w: %q (valid: synchronous, rat-order, batched)", ErrUnknownMode, token)
	}
}
