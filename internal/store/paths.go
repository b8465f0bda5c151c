package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// DirName is the name of the per-root data directory.
const DirName = ".graphrat"

// GlobalPath returns the path to the global .graphrat directory.
// On Unix: ~/.graphrat
// On Windows: %USERPROFILE%\.graphrat
func GlobalPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, DirName), nil
}

// LocalPath returns the path to the .graphrat directory under root.
func LocalPath(root string) string {
	return filepath.Join(root, DirName)
}

// DatabasePath returns the run database path under root.
func DatabasePath(root string) string {
	return filepath.Join(LocalPath(root), "graphrat.db")
}

// EnsureGlobalDir creates the global .graphrat directory if it doesn't exist.
func EnsureGlobalDir() error {
	globalPath, err := GlobalPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(globalPath, 0755); err != nil {
		return fmt.Errorf("failed to create global .graphrat directory: %w", err)
	}
	return nil
}
