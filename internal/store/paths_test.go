package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGlobalPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	got, err := GlobalPath()
	if err != nil {
		t.Fatalf("GlobalPath() error = %v", err)
	}
	if !strings.HasSuffix(got, DirName) {
		t.Errorf("GlobalPath() = %v, should end with %s", got, DirName)
	}
	if !strings.HasPrefix(got, home) {
		t.Errorf("GlobalPath() = %v, should start with home directory %v", got, home)
	}
}

func TestLocalPath(t *testing.T) {
	tests := []struct {
		name string
		root string
		want string
	}{
		{"unix path", "/home/user/project", filepath.Join("/home/user/project", ".graphrat")},
		{"relative path", ".", ".graphrat"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LocalPath(tt.root); got != tt.want {
				t.Errorf("LocalPath(%q) = %v, want %v", tt.root, got, tt.want)
			}
		})
	}
	if got := DatabasePath("/x"); got != filepath.Join("/x", ".graphrat", "graphrat.db") {
		t.Errorf("DatabasePath = %s", got)
	}
}

func TestEnsureGlobalDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	if err := EnsureGlobalDir(); err != nil {
		t.Fatalf("EnsureGlobalDir() error = %v", err)
	}
	info, err := os.Stat(filepath.Join(home, DirName))
	if err != nil || !info.IsDir() {
		t.Errorf("global dir not created: %v", err)
	}
	// Idempotent.
	if err := EnsureGlobalDir(); err != nil {
		t.Errorf("second EnsureGlobalDir() error = %v", err)
	}
}
