package backup

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nvandessel/graphrat/internal/store"
)

func testArchive() *Archive {
	return &Archive{
		Version:   FormatVersion,
		CreatedAt: time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC),
		Runs: []ArchivedRun{{
			Run: store.Run{
				ID:          3,
				RunParams:   store.RunParams{Nodes: 4, Rats: 8, Steps: 2, Seed: 618, Mode: "batched"},
				Status:      store.StatusFinished,
				FinalCounts: []int32{2, 2, 2, 2},
			},
			Snapshots: []store.Snapshot{
				{Step: 0, Counts: []int32{8, 0, 0, 0}},
				{Step: 2, Counts: []int32{2, 2, 2, 2}},
			},
		}},
	}
}

func TestWriteArchive_ReadArchive_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "runs"+backupExt)
	if err := WriteArchive(path, testArchive()); err != nil {
		t.Fatalf("WriteArchive() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("archive permissions = %o, want 600", perm)
	}

	got, err := ReadArchive(path)
	if err != nil {
		t.Fatalf("ReadArchive() error = %v", err)
	}
	if len(got.Runs) != 1 || got.Runs[0].ID != 3 || got.Runs[0].Seed != 618 {
		t.Fatalf("runs = %+v", got.Runs)
	}
	snaps := got.Runs[0].Snapshots
	if len(snaps) != 2 || snaps[1].Step != 2 || snaps[0].Counts[0] != 8 {
		t.Errorf("snapshots = %+v", snaps)
	}
	if !got.CreatedAt.Equal(testArchive().CreatedAt) {
		t.Errorf("CreatedAt = %v", got.CreatedAt)
	}
}

func TestReadHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs"+backupExt)
	if err := WriteArchive(path, testArchive()); err != nil {
		t.Fatal(err)
	}

	header, err := ReadHeader(path)
	if err != nil {
		t.Fatalf("ReadHeader() error = %v", err)
	}
	if header.RunCount != 1 || header.SnapshotCount != 2 || !header.Compressed {
		t.Errorf("header = %+v", header)
	}
	if header.CreatedAt != "2026-10-18T09:30:00Z" {
		t.Errorf("CreatedAt = %q", header.CreatedAt)
	}
	if !strings.HasPrefix(header.Checksum, "sha256:") {
		t.Errorf("Checksum = %q", header.Checksum)
	}
}

func TestVerifyChecksum_Tampered(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs"+backupExt)
	if err := WriteArchive(path, testArchive()); err != nil {
		t.Fatal(err)
	}
	if err := VerifyChecksum(path); err != nil {
		t.Fatalf("VerifyChecksum() on intact archive = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	data[len(data)-1] ^= 0xff
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}

	if err := VerifyChecksum(path); err == nil || !strings.Contains(err.Error(), "checksum mismatch") {
		t.Errorf("VerifyChecksum() error = %v, want checksum mismatch", err)
	}
	if _, err := ReadArchive(path); err == nil {
		t.Error("ReadArchive() should reject a tampered archive")
	}
}

func TestReadArchive_Malformed(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"no header line", `{"version":1}`},
		{"not JSON", "hello\nworld"},
		{"wrong version", `{"version":9,"checksum":"sha256:00"}` + "\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "-"))
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}
			if _, err := ReadArchive(path); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := ReadArchive(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing file")
	}
}
