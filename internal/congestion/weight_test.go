package congestion

import (
	"math"
	"testing"
)

func TestCurve_KnownValues(t *testing.T) {
	tests := []struct {
		name string
		val  float64
		want float64
	}{
		{"optimum", OptVal, 1.0},
		{"empty node", 0, 0.2},
		{"arg two", 3.5, 0.5},
		{"arg half", 0.5, 0.5},
		{"arg four", 7.5, 0.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Curve(tt.val); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Curve(%v) = %v, want %v", tt.val, got, tt.want)
			}
		})
	}
}

func TestCurve_NaturalLogScaled(t *testing.T) {
	// The log2 is taken as ln(x)*log2(e), which can differ from math.Log2
	// in the last bit; move selection compares cumulative sums exactly.
	for _, lf := range []float64{0.3, 2.0 / 3.0, 1, 7.25} {
		for c := 0; c <= 40; c++ {
			val := float64(c) / lf
			lg := math.Log(1.0+Coeff*(val-OptVal)) * math.Log2E
			want := 1.0 / (1.0 + lg*lg)
			if got := Curve(val); got != want {
				t.Errorf("Curve(%v) = %b, want %b", val, got, want)
			}
		}
	}
}

func TestWeight_PeaksNearOptimum(t *testing.T) {
	const loadFactor = 10.0
	best, bestW := -1, -1.0
	for occ := 0; occ <= 100; occ++ {
		w := Weight(occ, loadFactor)
		if w <= 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			t.Fatalf("Weight(%d) = %v, want strictly positive and finite", occ, w)
		}
		if w > bestW {
			best, bestW = occ, w
		}
	}
	if best != 15 {
		t.Errorf("peak at occupancy %d, want 15 (1.5 * load factor)", best)
	}
}

func TestWeight_MonotoneAroundPeak(t *testing.T) {
	const loadFactor = 4.0
	peak := int(OptVal * loadFactor)
	for occ := 1; occ <= peak; occ++ {
		if Weight(occ, loadFactor) <= Weight(occ-1, loadFactor) {
			t.Errorf("weight not increasing at %d below peak", occ)
		}
	}
	for occ := peak + 1; occ < 200; occ++ {
		if Weight(occ, loadFactor) >= Weight(occ-1, loadFactor) {
			t.Errorf("weight not decreasing at %d above peak", occ)
		}
	}
}

func TestCurve_ClampsNonPositiveArgument(t *testing.T) {
	w := Curve(-10)
	if w <= 0 || math.IsNaN(w) {
		t.Errorf("Curve(-10) = %v, want small positive value", w)
	}
	if w >= Curve(0) {
		t.Errorf("clamped weight %v should be below Curve(0) = %v", w, Curve(0))
	}
}

func TestTable_MatchesDirectEvaluation(t *testing.T) {
	const rats = 250
	lf := float64(rats) / 64.0
	tab := NewTable(rats, lf)
	if tab.LoadFactor() != lf {
		t.Errorf("LoadFactor = %v, want %v", tab.LoadFactor(), lf)
	}
	for c := int32(0); c <= rats+5; c++ {
		if got, want := tab.At(c), Weight(int(c), lf); got != want {
			t.Errorf("At(%d) = %v, want %v", c, got, want)
		}
	}
}

func TestTable_SumWeight(t *testing.T) {
	tab := NewTable(3, 1.0)
	counts := []int32{0, 3, 1}
	neighbors := []int32{1, 2, 0}
	want := Weight(3, 1.0) + Weight(1, 1.0) + Weight(0, 1.0)
	if got := tab.SumWeight(neighbors, counts); got != want {
		t.Errorf("SumWeight = %v, want %v", got, want)
	}
}
