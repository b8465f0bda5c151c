package simulation

import (
	"fmt"

	"github.com/nvandessel/graphrat/internal/generate"
)

// GridScenario builds an in-memory scenario over a generated k x k grid
// with load rats per node placed by mode. The placement shuffle uses seed,
// as does the run itself.
func GridScenario(k int, opts generate.Options, mode generate.RatMode, load int, seed uint32) (Scenario, error) {
	grid, err := generate.NewGrid(k, opts)
	if err != nil {
		return Scenario{}, err
	}
	g, err := grid.Graph()
	if err != nil {
		return Scenario{}, fmt.Errorf("failed to build grid graph: %w", err)
	}
	positions, err := generate.Rats(k, mode, load, seed)
	if err != nil {
		return Scenario{}, err
	}
	return Scenario{
		Name:      fmt.Sprintf("grid-%dx%d-%s", k, k, mode),
		Graph:     g,
		Positions: positions,
		Seed:      seed,
	}, nil
}

// FormatOutcome returns a one-line summary of an outcome.
func FormatOutcome(out *Outcome) string {
	return fmt.Sprintf("mode=%s steps=%d rats=%d nodes=%d fallbacks=%d variance %.3f -> %.3f",
		out.Mode, out.Result.Steps, out.Result.Rats, out.Result.Nodes, out.Result.Fallbacks,
		out.Initial.Variance, out.Final.Variance)
}
