// Package backup archives recorded runs and their snapshots to a single
// compressed file and restores them into a run store.
package backup

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/nvandessel/graphrat/internal/store"
)

// Archive is the payload of a backup file.
type Archive struct {
	Version   int           `json:"version"`
	CreatedAt time.Time     `json:"created_at"`
	Runs      []ArchivedRun `json:"runs"`
}

// ArchivedRun is a run together with every snapshot recorded for it.
type ArchivedRun struct {
	store.Run
	Snapshots []store.Snapshot `json:"snapshots"`
}

func (a *Archive) snapshotCount() int {
	n := 0
	for _, r := range a.Runs {
		n += len(r.Snapshots)
	}
	return n
}

// DefaultBackupDir returns <root>/.graphrat/backups.
func DefaultBackupDir(root string) string {
	return filepath.Join(store.LocalPath(root), "backups")
}

// GenerateBackupPath creates a timestamped backup filename in dir.
func GenerateBackupPath(dir string) string {
	ts := time.Now().Format("20060102-150405")
	return filepath.Join(dir, fmt.Sprintf("%s%s%s", backupPrefix, ts, backupExt))
}

// Backup archives every run in rs to outputPath, oldest first.
func Backup(ctx context.Context, rs store.RunStore, outputPath string) (*Archive, error) {
	runs, err := rs.ListRuns(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	slices.SortFunc(runs, func(a, b store.Run) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})

	archive := &Archive{
		Version:   FormatVersion,
		CreatedAt: time.Now().UTC(),
		Runs:      make([]ArchivedRun, 0, len(runs)),
	}
	for _, run := range runs {
		snaps, err := rs.Snapshots(ctx, run.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to read snapshots of run %d: %w", run.ID, err)
		}
		archive.Runs = append(archive.Runs, ArchivedRun{Run: run, Snapshots: snaps})
	}

	if err := WriteArchive(outputPath, archive); err != nil {
		return nil, fmt.Errorf("failed to write backup: %w", err)
	}
	return archive, nil
}

// RestoreMode controls how restore handles existing runs.
type RestoreMode string

const (
	// RestoreMerge skips archived runs already present in the store (default).
	RestoreMerge RestoreMode = "merge"
	// RestoreReplace deletes every existing run before restoring.
	RestoreReplace RestoreMode = "replace"
)

// RestoreResult contains statistics about a restore.
type RestoreResult struct {
	RunsRestored      int `json:"runs_restored"`
	RunsSkipped       int `json:"runs_skipped"`
	SnapshotsRestored int `json:"snapshots_restored"`
	// IDs maps archived run IDs to the IDs assigned by the store.
	IDs map[int64]int64 `json:"ids"`
}

// Restore imports the runs of a backup file into rs. Restored runs get
// fresh IDs from the store. In merge mode a run is present when a stored run
// has the same parameters, status and final-state hash.
func Restore(ctx context.Context, rs store.RunStore, inputPath string, mode RestoreMode) (*RestoreResult, error) {
	archive, err := ReadArchive(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup: %w", err)
	}

	existing, err := rs.ListRuns(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	present := make(map[runKey]bool)
	switch mode {
	case RestoreReplace:
		for _, r := range existing {
			if err := rs.DeleteRun(ctx, r.ID); err != nil && !errors.Is(err, store.ErrRunNotFound) {
				return nil, fmt.Errorf("failed to clear run %d: %w", r.ID, err)
			}
		}
	case RestoreMerge, "":
		for _, r := range existing {
			present[keyOf(&r)] = true
		}
	default:
		return nil, fmt.Errorf("unknown restore mode %q", mode)
	}

	result := &RestoreResult{IDs: make(map[int64]int64)}
	for i := range archive.Runs {
		ar := &archive.Runs[i]
		key := keyOf(&ar.Run)
		if present[key] {
			result.RunsSkipped++
			continue
		}

		id, err := rs.CreateRun(ctx, ar.RunParams)
		if err != nil {
			return nil, fmt.Errorf("failed to restore run %d: %w", ar.ID, err)
		}
		for _, snap := range ar.Snapshots {
			if err := rs.RecordSnapshot(ctx, id, snap.Step, snap.Counts); err != nil {
				return nil, fmt.Errorf("failed to restore snapshot %d of run %d: %w", snap.Step, ar.ID, err)
			}
			result.SnapshotsRestored++
		}
		if ar.Status != store.StatusRunning {
			summary := store.RunSummary{
				Status:      ar.Status,
				Elapsed:     ar.Elapsed,
				Fallbacks:   ar.Fallbacks,
				FinalCounts: ar.FinalCounts,
				Error:       ar.Error,
			}
			if err := rs.FinishRun(ctx, id, summary); err != nil {
				return nil, fmt.Errorf("failed to finish run %d: %w", ar.ID, err)
			}
		}

		present[key] = true
		result.IDs[ar.ID] = id
		result.RunsRestored++
	}
	return result, nil
}

type runKey struct {
	params store.RunParams
	status string
	hash   string
}

func keyOf(r *store.Run) runKey {
	hash := r.CountsHash
	if hash == "" && r.FinalCounts != nil {
		hash = store.CountsHash(r.FinalCounts)
	}
	return runKey{params: r.RunParams, status: r.Status, hash: hash}
}
