package backup

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nvandessel/graphrat/internal/store"
)

// recordRun adds a finished run with snapshots at steps 0 and 1.
func recordRun(t *testing.T, rs store.RunStore, seed uint32, final []int32) int64 {
	t.Helper()
	ctx := context.Background()
	id, err := rs.CreateRun(ctx, store.RunParams{
		GraphPath: "/g/grid.gph", RatsPath: "/g/grid.rats",
		Nodes: len(final), Rats: 6, Steps: 1, Seed: seed, Mode: "batched", Threads: 1,
	})
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if err := rs.RecordSnapshot(ctx, id, 0, []int32{6, 0, 0}); err != nil {
		t.Fatalf("RecordSnapshot: %v", err)
	}
	if err := rs.RecordSnapshot(ctx, id, 1, final); err != nil {
		t.Fatalf("RecordSnapshot: %v", err)
	}
	if err := rs.FinishRun(ctx, id, store.RunSummary{
		Status: store.StatusFinished, Elapsed: 3 * time.Millisecond, Fallbacks: 2, FinalCounts: final,
	}); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	return id
}

func TestBackupRestore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	src, err := store.NewSQLiteRunStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	recordRun(t, src, 1, []int32{2, 2, 2})
	recordRun(t, src, 2, []int32{1, 4, 1})
	running, err := src.CreateRun(ctx, store.RunParams{Nodes: 3, Rats: 6, Mode: "synchronous"})
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "runs"+backupExt)
	archive, err := Backup(ctx, src, path)
	if err != nil {
		t.Fatalf("Backup() error = %v", err)
	}
	if len(archive.Runs) != 3 || archive.Runs[0].ID != 1 || archive.Runs[2].ID != running {
		t.Fatalf("archived runs not oldest first: %+v", archive.Runs)
	}

	dst := store.NewInMemoryRunStore()
	result, err := Restore(ctx, dst, path, RestoreMerge)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if result.RunsRestored != 3 || result.RunsSkipped != 0 || result.SnapshotsRestored != 4 {
		t.Errorf("result = %+v", result)
	}

	run, err := dst.GetRun(ctx, result.IDs[2])
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Seed != 2 || run.Status != store.StatusFinished || run.Fallbacks != 2 || run.Elapsed != 3*time.Millisecond {
		t.Errorf("restored run = %+v", run)
	}
	if run.CountsHash != store.CountsHash([]int32{1, 4, 1}) {
		t.Errorf("CountsHash = %q", run.CountsHash)
	}
	snaps, err := dst.Snapshots(ctx, run.ID)
	if err != nil || len(snaps) != 2 || snaps[1].Counts[1] != 4 {
		t.Errorf("snapshots = %+v, %v", snaps, err)
	}

	unfinished, err := dst.GetRun(ctx, result.IDs[running])
	if err != nil || unfinished.Status != store.StatusRunning {
		t.Errorf("unfinished run = %+v, %v", unfinished, err)
	}
}

func TestRestore_MergeSkipsPresentRuns(t *testing.T) {
	ctx := context.Background()
	rs := store.NewInMemoryRunStore()
	recordRun(t, rs, 1, []int32{2, 2, 2})

	path := filepath.Join(t.TempDir(), "runs"+backupExt)
	if _, err := Backup(ctx, rs, path); err != nil {
		t.Fatal(err)
	}
	recordRun(t, rs, 5, []int32{0, 6, 0})

	result, err := Restore(ctx, rs, path, RestoreMerge)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if result.RunsRestored != 0 || result.RunsSkipped != 1 {
		t.Errorf("result = %+v, want the archived run skipped", result)
	}
	runs, _ := rs.ListRuns(ctx, 0)
	if len(runs) != 2 {
		t.Errorf("store holds %d runs, want 2", len(runs))
	}
}

func TestRestore_Replace(t *testing.T) {
	ctx := context.Background()
	rs := store.NewInMemoryRunStore()
	recordRun(t, rs, 1, []int32{2, 2, 2})

	path := filepath.Join(t.TempDir(), "runs"+backupExt)
	if _, err := Backup(ctx, rs, path); err != nil {
		t.Fatal(err)
	}
	recordRun(t, rs, 5, []int32{0, 6, 0})

	result, err := Restore(ctx, rs, path, RestoreReplace)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if result.RunsRestored != 1 {
		t.Errorf("result = %+v", result)
	}
	runs, _ := rs.ListRuns(ctx, 0)
	if len(runs) != 1 || runs[0].Seed != 1 {
		t.Errorf("runs after replace = %+v", runs)
	}
}

func TestRestore_Errors(t *testing.T) {
	ctx := context.Background()
	rs := store.NewInMemoryRunStore()
	path := filepath.Join(t.TempDir(), "runs"+backupExt)
	if _, err := Backup(ctx, rs, path); err != nil {
		t.Fatalf("Backup() of empty store: %v", err)
	}

	if _, err := Restore(ctx, rs, path, "append"); err == nil || !strings.Contains(err.Error(), "unknown restore mode") {
		t.Errorf("unknown mode error = %v", err)
	}
	if _, err := Restore(ctx, rs, filepath.Join(t.TempDir(), "none"+backupExt), RestoreMerge); err == nil {
		t.Error("expected error for missing archive")
	}
}

func TestGenerateBackupPath(t *testing.T) {
	dir := t.TempDir()
	path := GenerateBackupPath(dir)
	if filepath.Dir(path) != dir || !isBackupFile(filepath.Base(path)) {
		t.Errorf("GenerateBackupPath() = %q", path)
	}
	if got := DefaultBackupDir("/proj"); got != filepath.Join("/proj", ".graphrat", "backups") {
		t.Errorf("DefaultBackupDir() = %q", got)
	}
}
