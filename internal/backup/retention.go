package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	backupPrefix = "graphrat-backup-"
	backupExt    = ".gra"
)

func isBackupFile(name string) bool {
	return strings.HasPrefix(name, backupPrefix) && strings.HasSuffix(name, backupExt)
}

// BackupInfo describes one archive in a backup directory.
type BackupInfo struct {
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
	Runs      int       `json:"runs"`
}

// RetentionPolicy selects the archives to keep from a newest-first list.
type RetentionPolicy interface {
	Apply(backups []BackupInfo) (keep []BackupInfo)
}

// CountPolicy keeps the MaxCount newest archives.
type CountPolicy struct {
	MaxCount int
}

func (p *CountPolicy) Apply(backups []BackupInfo) []BackupInfo {
	return backups[:min(len(backups), p.MaxCount)]
}

// AgePolicy keeps archives modified within MaxAge.
type AgePolicy struct {
	MaxAge time.Duration
}

func (p *AgePolicy) Apply(backups []BackupInfo) []BackupInfo {
	cutoff := time.Now().Add(-p.MaxAge)
	return slices.DeleteFunc(slices.Clone(backups), func(b BackupInfo) bool {
		return !b.CreatedAt.After(cutoff)
	})
}

// SizePolicy keeps the newest archives whose combined size fits in
// MaxTotalBytes. The newest archive is always kept.
type SizePolicy struct {
	MaxTotalBytes int64
}

func (p *SizePolicy) Apply(backups []BackupInfo) []BackupInfo {
	var total int64
	for i, b := range backups {
		total += b.Size
		if i > 0 && total > p.MaxTotalBytes {
			return backups[:i]
		}
	}
	return backups
}

// CompositePolicy keeps an archive when any of its policies keeps it.
type CompositePolicy struct {
	Policies []RetentionPolicy
}

func (p *CompositePolicy) Apply(backups []BackupInfo) []BackupInfo {
	kept := make(map[string]bool)
	for _, policy := range p.Policies {
		for _, b := range policy.Apply(backups) {
			kept[b.Path] = true
		}
	}
	return slices.DeleteFunc(slices.Clone(backups), func(b BackupInfo) bool {
		return !kept[b.Path]
	})
}

// ListBackups returns the archives in dir, newest first by the timestamp in
// their names. A missing directory holds no archives.
func ListBackups(dir string) ([]BackupInfo, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading backup directory: %w", err)
	}

	var backups []BackupInfo
	for _, e := range entries {
		if e.IsDir() || !isBackupFile(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		b := BackupInfo{
			Path:      filepath.Join(dir, e.Name()),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		}
		// Unreadable archives are still listed so retention can remove them.
		if header, err := ReadHeader(b.Path); err == nil {
			b.Runs = header.RunCount
		}
		backups = append(backups, b)
	}

	slices.SortFunc(backups, func(a, b BackupInfo) int {
		return strings.Compare(filepath.Base(b.Path), filepath.Base(a.Path))
	})
	return backups, nil
}

// ApplyRetention removes the archives in dir that policy does not keep and
// returns their paths.
func ApplyRetention(dir string, policy RetentionPolicy) (deleted []string, err error) {
	backups, err := ListBackups(dir)
	if err != nil {
		return nil, err
	}

	keep := make(map[string]bool)
	for _, b := range policy.Apply(backups) {
		keep[b.Path] = true
	}
	for _, b := range backups {
		if keep[b.Path] {
			continue
		}
		if err := os.Remove(b.Path); err != nil {
			return deleted, fmt.Errorf("removing %s: %w", filepath.Base(b.Path), err)
		}
		deleted = append(deleted, b.Path)
	}
	return deleted, nil
}

// ParseDuration accepts Go durations ("720h") plus whole days ("30d") and
// weeks ("2w").
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("empty duration string")
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	unit := map[byte]time.Duration{'d': 24 * time.Hour, 'w': 7 * 24 * time.Hour}[s[len(s)-1]]
	if unit == 0 {
		return 0, fmt.Errorf("invalid duration: %q (expected a Go duration or a d/w suffix)", s)
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}
	return time.Duration(n) * unit, nil
}

// ParseSize parses sizes with a B, KB, MB or GB suffix (powers of 1024).
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	// Longest suffix first so "MB" is not read as "B".
	for _, u := range []struct {
		suffix string
		scale  int64
	}{{"GB", 1 << 30}, {"MB", 1 << 20}, {"KB", 1 << 10}, {"B", 1}} {
		num, ok := strings.CutSuffix(s, u.suffix)
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(num, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid size: %q", s)
		}
		return n * u.scale, nil
	}
	return 0, fmt.Errorf("invalid size: %q (expected suffix: B, KB, MB, GB)", s)
}
