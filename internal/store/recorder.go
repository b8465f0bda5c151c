package store

import (
	"context"

	"github.com/nvandessel/graphrat/internal/sim"
)

// Recorder persists the counted snapshots of one run. It implements
// sim.Reporter, so it can sit next to an output reporter in a report.Tee.
type Recorder struct {
	ctx   context.Context
	store RunStore
	runID int64
}

// NewRecorder returns a Recorder writing snapshots of runID to s. ctx is
// used for every store call the recorder makes.
func NewRecorder(ctx context.Context, s RunStore, runID int64) *Recorder {
	return &Recorder{ctx: ctx, store: s, runID: runID}
}

// RunID returns the run being recorded.
func (r *Recorder) RunID() int64 { return r.runID }

// Report stores snap if it carries counts.
func (r *Recorder) Report(snap sim.Snapshot) error {
	if snap.Counts == nil {
		return nil
	}
	return r.store.RecordSnapshot(r.ctx, r.runID, snap.Step, snap.Counts)
}

// Done is a no-op; FinishRun records the outcome.
func (r *Recorder) Done() error { return nil }

// SimSnapshots converts recorded snapshots of run into the driver's form.
func SimSnapshots(run *Run, snaps []Snapshot) []sim.Snapshot {
	out := make([]sim.Snapshot, len(snaps))
	for i, s := range snaps {
		out[i] = sim.Snapshot{Step: s.Step, NodeCount: run.Nodes, RatCount: run.Rats, Counts: s.Counts}
	}
	return out
}
