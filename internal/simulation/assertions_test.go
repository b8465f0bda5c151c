package simulation

import (
	"slices"
	"testing"
)

// AssertConserved asserts that every captured snapshot and the final
// counts hold exactly the simulated population.
func AssertConserved(t *testing.T, out *Outcome) {
	t.Helper()
	rats := int64(out.Result.Rats)
	for _, snap := range out.Snapshots {
		var sum int64
		for n, c := range snap.Counts {
			if c < 0 {
				t.Errorf("AssertConserved: step %d: node %d has negative count %d", snap.Step, n, c)
			}
			sum += int64(c)
		}
		if sum != rats {
			t.Errorf("AssertConserved: step %d: counts sum to %d, want %d", snap.Step, sum, rats)
		}
	}
	if out.Final.Rats != rats {
		t.Errorf("AssertConserved: final counts sum to %d, want %d", out.Final.Rats, rats)
	}
}

// AssertVarianceDecreases asserts that occupancy variance at the end of the
// run is below the initial variance.
func AssertVarianceDecreases(t *testing.T, out *Outcome) {
	t.Helper()
	if out.Final.Variance >= out.Initial.Variance {
		t.Errorf("AssertVarianceDecreases: variance %.4f -> %.4f did not decrease", out.Initial.Variance, out.Final.Variance)
	}
}

// AssertSameTrajectory asserts that two outcomes passed through identical
// occupancy vectors.
func AssertSameTrajectory(t *testing.T, a, b *Outcome) {
	t.Helper()
	if len(a.Snapshots) != len(b.Snapshots) {
		t.Fatalf("AssertSameTrajectory: %d snapshots vs %d", len(a.Snapshots), len(b.Snapshots))
	}
	for i := range a.Snapshots {
		if !slices.Equal(a.Snapshots[i].Counts, b.Snapshots[i].Counts) {
			t.Errorf("AssertSameTrajectory: step %d differs", a.Snapshots[i].Step)
		}
	}
	if !slices.Equal(a.Counts, b.Counts) {
		t.Error("AssertSameTrajectory: final counts differ")
	}
}
