package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/nvandessel/graphrat/internal/sim"
)

func testParams() RunParams {
	return RunParams{
		GraphPath:       "g.gph",
		RatsPath:        "r.rats",
		Nodes:           4,
		Edges:           8,
		Rats:            6,
		Steps:           3,
		Seed:            618,
		Mode:            "batched",
		BatchSize:       1,
		Threads:         2,
		DisplayInterval: 1,
	}
}

// runStores returns a fresh instance of every RunStore implementation.
func runStores(t *testing.T) map[string]RunStore {
	t.Helper()
	sqlite, err := NewSQLiteRunStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewSQLiteRunStore() error = %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })
	return map[string]RunStore{
		"sqlite": sqlite,
		"memory": NewInMemoryRunStore(),
	}
}

func TestNewSQLiteRunStore(t *testing.T) {
	tmpDir := t.TempDir()

	s, err := NewSQLiteRunStore(tmpDir)
	if err != nil {
		t.Fatalf("NewSQLiteRunStore() error = %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(filepath.Join(tmpDir, ".graphrat")); os.IsNotExist(err) {
		t.Error(".graphrat directory was not created")
	}
	if s.Path() != DatabasePath(tmpDir) {
		t.Errorf("Path() = %s, want %s", s.Path(), DatabasePath(tmpDir))
	}
	if _, err := os.Stat(s.Path()); os.IsNotExist(err) {
		t.Error("graphrat.db was not created")
	}
}

func TestRunStore_Lifecycle(t *testing.T) {
	for name, s := range runStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id, err := s.CreateRun(ctx, testParams())
			if err != nil {
				t.Fatalf("CreateRun() error = %v", err)
			}

			run, err := s.GetRun(ctx, id)
			if err != nil {
				t.Fatalf("GetRun() error = %v", err)
			}
			if run.Status != StatusRunning || run.FinishedAt != nil {
				t.Errorf("new run status = %s, finished = %v", run.Status, run.FinishedAt)
			}
			if run.RunParams != testParams() {
				t.Errorf("params = %+v, want %+v", run.RunParams, testParams())
			}
			if time.Since(run.StartedAt) > time.Minute {
				t.Errorf("StartedAt = %v", run.StartedAt)
			}

			for step, counts := range [][]int32{{6, 0, 0, 0}, {3, 3, 0, 0}, {2, 2, 1, 1}} {
				if err := s.RecordSnapshot(ctx, id, step, counts); err != nil {
					t.Fatalf("RecordSnapshot(%d) error = %v", step, err)
				}
			}
			final := []int32{2, 2, 1, 1}
			if err := s.FinishRun(ctx, id, RunSummary{Elapsed: 3 * time.Millisecond, Fallbacks: 1, FinalCounts: final}); err != nil {
				t.Fatalf("FinishRun() error = %v", err)
			}

			run, err = s.GetRun(ctx, id)
			if err != nil {
				t.Fatalf("GetRun() error = %v", err)
			}
			if run.Status != StatusFinished || run.FinishedAt == nil {
				t.Errorf("finished run status = %s, finished = %v", run.Status, run.FinishedAt)
			}
			if run.Elapsed != 3*time.Millisecond || run.Fallbacks != 1 {
				t.Errorf("Elapsed/Fallbacks = %v/%d", run.Elapsed, run.Fallbacks)
			}
			if !reflect.DeepEqual(run.FinalCounts, final) {
				t.Errorf("FinalCounts = %v, want %v", run.FinalCounts, final)
			}
			if run.CountsHash != CountsHash(final) {
				t.Errorf("CountsHash = %s, want %s", run.CountsHash, CountsHash(final))
			}

			snaps, err := s.Snapshots(ctx, id)
			if err != nil {
				t.Fatalf("Snapshots() error = %v", err)
			}
			if len(snaps) != 3 || snaps[1].Step != 1 || !reflect.DeepEqual(snaps[2].Counts, final) {
				t.Errorf("Snapshots() = %+v", snaps)
			}
		})
	}
}

func TestRunStore_FailedRun(t *testing.T) {
	for name, s := range runStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id, err := s.CreateRun(ctx, testParams())
			if err != nil {
				t.Fatalf("CreateRun() error = %v", err)
			}
			if err := s.FinishRun(ctx, id, RunSummary{Status: StatusFailed, Error: "reporter broke"}); err != nil {
				t.Fatalf("FinishRun() error = %v", err)
			}
			run, err := s.GetRun(ctx, id)
			if err != nil {
				t.Fatalf("GetRun() error = %v", err)
			}
			if run.Status != StatusFailed || run.Error != "reporter broke" {
				t.Errorf("run = %+v", run)
			}
			if run.FinalCounts != nil || run.CountsHash != "" {
				t.Errorf("failed run has counts %v / %q", run.FinalCounts, run.CountsHash)
			}
		})
	}
}

func TestRunStore_ListRuns(t *testing.T) {
	for name, s := range runStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			var ids []int64
			for i := 0; i < 4; i++ {
				p := testParams()
				p.Steps = i
				id, err := s.CreateRun(ctx, p)
				if err != nil {
					t.Fatalf("CreateRun() error = %v", err)
				}
				ids = append(ids, id)
			}

			runs, err := s.ListRuns(ctx, 0)
			if err != nil {
				t.Fatalf("ListRuns() error = %v", err)
			}
			if len(runs) != 4 || runs[0].ID != ids[3] || runs[3].ID != ids[0] {
				t.Errorf("ListRuns(0) order wrong: %+v", runs)
			}

			runs, err = s.ListRuns(ctx, 2)
			if err != nil {
				t.Fatalf("ListRuns() error = %v", err)
			}
			if len(runs) != 2 || runs[0].Steps != 3 {
				t.Errorf("ListRuns(2) = %+v", runs)
			}
		})
	}
}

func TestRunStore_NotFound(t *testing.T) {
	for name, s := range runStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := s.GetRun(ctx, 42); !errors.Is(err, ErrRunNotFound) {
				t.Errorf("GetRun() error = %v, want ErrRunNotFound", err)
			}
			if _, err := s.Snapshots(ctx, 42); !errors.Is(err, ErrRunNotFound) {
				t.Errorf("Snapshots() error = %v, want ErrRunNotFound", err)
			}
			if err := s.FinishRun(ctx, 42, RunSummary{}); !errors.Is(err, ErrRunNotFound) {
				t.Errorf("FinishRun() error = %v, want ErrRunNotFound", err)
			}
			if err := s.DeleteRun(ctx, 42); !errors.Is(err, ErrRunNotFound) {
				t.Errorf("DeleteRun() error = %v, want ErrRunNotFound", err)
			}
		})
	}
}

func TestRunStore_DeleteRunRemovesSnapshots(t *testing.T) {
	for name, s := range runStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id, err := s.CreateRun(ctx, testParams())
			if err != nil {
				t.Fatalf("CreateRun() error = %v", err)
			}
			if err := s.RecordSnapshot(ctx, id, 0, []int32{1, 2, 3}); err != nil {
				t.Fatalf("RecordSnapshot() error = %v", err)
			}
			if err := s.DeleteRun(ctx, id); err != nil {
				t.Fatalf("DeleteRun() error = %v", err)
			}
			if _, err := s.Snapshots(ctx, id); !errors.Is(err, ErrRunNotFound) {
				t.Errorf("Snapshots() after delete error = %v", err)
			}
		})
	}
}

func TestSQLiteRunStore_FindByCountsHash(t *testing.T) {
	s, err := NewSQLiteRunStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewSQLiteRunStore() error = %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	counts := []int32{1, 0, 5}
	var want []int64
	for i := 0; i < 3; i++ {
		id, err := s.CreateRun(ctx, testParams())
		if err != nil {
			t.Fatalf("CreateRun() error = %v", err)
		}
		final := counts
		if i == 1 {
			final = []int32{5, 0, 1}
		} else {
			want = append(want, id)
		}
		if err := s.FinishRun(ctx, id, RunSummary{FinalCounts: final}); err != nil {
			t.Fatalf("FinishRun() error = %v", err)
		}
	}

	got, err := s.FindByCountsHash(ctx, CountsHash(counts))
	if err != nil {
		t.Fatalf("FindByCountsHash() error = %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FindByCountsHash() = %v, want %v", got, want)
	}
}

func TestSQLiteRunStore_Reopen(t *testing.T) {
	dir := t.TempDir()
	s, err := NewSQLiteRunStore(dir)
	if err != nil {
		t.Fatalf("NewSQLiteRunStore() error = %v", err)
	}
	id, err := s.CreateRun(context.Background(), testParams())
	if err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}
	s.Close()

	s, err = NewSQLiteRunStore(dir)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()
	if _, err := s.GetRun(context.Background(), id); err != nil {
		t.Errorf("GetRun() after reopen error = %v", err)
	}
}

func TestCountsHash(t *testing.T) {
	a := CountsHash([]int32{1, 2, 3})
	if len(a) != 16 {
		t.Errorf("hash length = %d, want 16", len(a))
	}
	if a != CountsHash([]int32{1, 2, 3}) {
		t.Error("hash not deterministic")
	}
	if a == CountsHash([]int32{3, 2, 1}) {
		t.Error("hash ignores order")
	}
}

func TestRecorder(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryRunStore()
	id, err := s.CreateRun(ctx, testParams())
	if err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}
	rec := NewRecorder(ctx, s, id)
	if rec.RunID() != id {
		t.Errorf("RunID() = %d, want %d", rec.RunID(), id)
	}

	reports := []sim.Snapshot{
		{Step: 0, NodeCount: 4, RatCount: 6, Counts: []int32{6, 0, 0, 0}},
		{Step: 1, NodeCount: 4, RatCount: 6},
		{Step: 2, NodeCount: 4, RatCount: 6, Counts: []int32{2, 2, 1, 1}},
	}
	for _, snap := range reports {
		if err := rec.Report(snap); err != nil {
			t.Fatalf("Report() error = %v", err)
		}
	}
	if err := rec.Done(); err != nil {
		t.Fatalf("Done() error = %v", err)
	}

	snaps, err := s.Snapshots(ctx, id)
	if err != nil {
		t.Fatalf("Snapshots() error = %v", err)
	}
	run, err := s.GetRun(ctx, id)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	got := SimSnapshots(run, snaps)
	want := []sim.Snapshot{reports[0], reports[2]}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("recorded = %+v, want %+v", got, want)
	}
}
