// Package sim runs the graph rat simulation.
//
// A State holds every rat's position and private random stream together with
// the per-node occupancy counts derived from those positions. A Simulator
// advances the state one step at a time. Each step visits the rats in index
// order, in batches whose size is chosen by the update Mode:
//
//	Synchronous  one batch of every rat; all moves see the pre-step census
//	RatOrder     batches of one rat; every move sees all earlier moves
//	Batched      fixed-size batches; moves see earlier batches only
//
// Each batch runs in two phases. Phase 1 chooses a destination for every rat
// in the batch from the committed occupancy counts and writes it to a scratch
// slice. Phase 2 moves the rats and updates the counts. Phase 1 never
// observes a Phase 2 write from its own batch, and batch k+1 starts only
// after batch k has committed. Both phases may be split across worker
// goroutines; Phase 2 then updates the shared counts atomically.
//
// Usage:
//
//	st, err := sim.NewState(g, positions, rng.DefaultSeed)
//	if err != nil {
//	    return err
//	}
//	s, err := sim.New(st, sim.Options{Mode: sim.Batched{}, Threads: 4, Display: true, Reporter: r})
//	if err != nil {
//	    return err
//	}
//	result, err := s.Run(ctx, 100)
package sim
