// Package simulation runs complete graphrat experiments.
//
// A Scenario names the inputs of one run: a graph and an initial rat
// placement (either files on disk or values built in memory), the step
// count, seed, update mode and thread count. A Runner loads the inputs,
// registers the run with a store.RunStore when one is configured, drives a
// sim.Simulator and finishes the recorded run with its outcome. The CLI and
// the MCP server both run simulations through a Runner.
//
// Usage:
//
//	r := simulation.NewRunner(
//	    simulation.WithStore(runStore),
//	    simulation.WithReporter(report.NewDrive(os.Stdout)),
//	)
//	out, err := r.Run(ctx, simulation.Scenario{
//	    GraphPath: "grid.gph",
//	    RatsPath:  "grid.rats",
//	    Steps:     50,
//	    Mode:      sim.Batched{Fraction: sim.DefaultBatchFraction},
//	})
package simulation
