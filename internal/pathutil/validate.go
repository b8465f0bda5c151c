// Package pathutil confines file paths supplied by MCP clients to the
// directories the server is allowed to read.
package pathutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nvandessel/graphrat/internal/store"
)

// ErrOutsideAllowed is returned when a path escapes every allowed directory.
var ErrOutsideAllowed = errors.New("path is outside allowed directories")

// RedactPath reduces a full path to .../<parent>/<basename> for error messages.
// For example, "/home/user/.graphrat/config.yaml" becomes ".../.graphrat/config.yaml".
func RedactPath(path string) string {
	if path == "" {
		return ""
	}
	cleaned := filepath.Clean(path)
	parent := filepath.Base(filepath.Dir(cleaned))
	base := filepath.Base(cleaned)
	if parent == "." || parent == string(filepath.Separator) {
		return base
	}
	return ".../" + parent + "/" + base
}

// AllowedInputDirs returns the directories graph and rat files may be read
// from: the project root and the global ~/.graphrat directory.
func AllowedInputDirs(projectRoot string) ([]string, error) {
	global, err := store.GlobalPath()
	if err != nil {
		return nil, err
	}
	return []string{projectRoot, global}, nil
}

// Resolve interprets path relative to root when it is not absolute and
// checks the result with ValidatePath. It returns the cleaned absolute path.
func Resolve(root, path string, allowedDirs []string) (string, error) {
	if path == "" {
		return "", errors.New("path validation failed: path is empty")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	if err := ValidatePath(path, allowedDirs); err != nil {
		return "", err
	}
	return filepath.Abs(filepath.Clean(path))
}

// ValidatePath checks that path lies within one of allowedDirs after
// cleaning and symlink resolution. The file itself need not exist.
func ValidatePath(path string, allowedDirs []string) error {
	if path == "" {
		return errors.New("path validation failed: path is empty")
	}
	if len(allowedDirs) == 0 {
		return errors.New("path validation failed: no allowed directories configured")
	}
	if strings.ContainsRune(path, '\x00') {
		return errors.New("path validation failed: path contains null byte")
	}

	resolved, err := resolve(path)
	if err != nil {
		return fmt.Errorf("path validation failed: %w", err)
	}

	for _, allowed := range allowedDirs {
		abs, err := filepath.Abs(filepath.Clean(allowed))
		if err != nil {
			continue
		}
		base, err := resolveExistingParent(abs)
		if err != nil {
			continue
		}
		if isSubpath(resolved, base) {
			return nil
		}
	}
	return fmt.Errorf("path validation failed: %q: %w", RedactPath(resolved), ErrOutsideAllowed)
}

// resolve makes path absolute and resolves symlinks in its deepest
// existing ancestor.
func resolve(path string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("cannot resolve absolute path: %w", err)
	}
	dir, err := resolveExistingParent(filepath.Dir(abs))
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, filepath.Base(abs)), nil
}

// resolveExistingParent resolves symlinks on the deepest existing ancestor
// of dir and re-appends the missing tail.
func resolveExistingParent(dir string) (string, error) {
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		return resolved, nil
	}

	parent := filepath.Dir(dir)
	if parent == dir {
		return "", fmt.Errorf("cannot resolve path: %s", RedactPath(dir))
	}
	resolvedParent, err := resolveExistingParent(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedParent, filepath.Base(dir)), nil
}

// isSubpath reports whether path equals base or lies beneath it.
func isSubpath(path, base string) bool {
	if path == base {
		return true
	}
	return strings.HasPrefix(path, base+string(os.PathSeparator))
}
