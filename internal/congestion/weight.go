// Package congestion computes the weights that bias a rat's next move
// toward moderately loaded nodes.
package congestion

import "math"

// Weight curve parameters. The curve peaks where the relative load equals
// OptVal.
const (
	Coeff  = 0.5
	OptVal = 1.5

	// minArg keeps log2 finite if the argument would reach zero or below.
	// Non-negative occupancy never gets there (the argument is at least 0.25).
	minArg = 1e-9
)

// Curve evaluates the weight for a relative load value
// (occupancy / load factor): 1 / (1 + log2(1 + Coeff*(val-OptVal))^2).
func Curve(val float64) float64 {
	arg := 1.0 + Coeff*(val-OptVal)
	if arg < minArg || math.IsNaN(arg) {
		arg = minArg
	}
	lg := math.Log(arg) * math.Log2E
	return 1.0 / (1.0 + lg*lg)
}

// Weight returns the weight of a node holding occupancy rats when the
// average load is loadFactor rats per node.
func Weight(occupancy int, loadFactor float64) float64 {
	return Curve(float64(occupancy) / loadFactor)
}

// Table caches Weight for every occupancy a run can reach. A node never
// holds more rats than exist, so occupancies 0..ratCount cover all lookups.
type Table struct {
	loadFactor float64
	w          []float64
}

// NewTable precomputes weights for occupancies 0..maxOccupancy.
func NewTable(maxOccupancy int, loadFactor float64) *Table {
	if maxOccupancy < 0 {
		maxOccupancy = 0
	}
	t := &Table{loadFactor: loadFactor, w: make([]float64, maxOccupancy+1)}
	for c := range t.w {
		t.w[c] = Weight(c, loadFactor)
	}
	return t
}

// LoadFactor returns the load factor the table was built for.
func (t *Table) LoadFactor() float64 { return t.loadFactor }

// At returns the weight for occupancy. Values outside the table fall back
// to direct evaluation.
func (t *Table) At(occupancy int32) float64 {
	if occupancy >= 0 && int(occupancy) < len(t.w) {
		return t.w[occupancy]
	}
	return Weight(int(occupancy), t.loadFactor)
}

// SumWeight returns the total weight of the given neighbor list under the
// occupancy snapshot counts.
func (t *Table) SumWeight(neighbors []int32, counts []int32) float64 {
	sum := 0.0
	for _, n := range neighbors {
		sum += t.At(counts[n])
	}
	return sum
}
