package pathutil

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestValidatePath(t *testing.T) {
	root := t.TempDir()
	other := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "graphs", "real"), 0700); err != nil {
		t.Fatal(err)
	}
	if runtime.GOOS != "windows" {
		if err := os.Symlink(other, filepath.Join(root, "escape")); err != nil {
			t.Fatal(err)
		}
		if err := os.Symlink(filepath.Join(root, "graphs", "real"), filepath.Join(root, "graphs", "link")); err != nil {
			t.Fatal(err)
		}
	}
	sep := string(os.PathSeparator)

	tests := []struct {
		name        string
		path        string
		allowed     []string
		symlink     bool
		errContains string // empty means the path is accepted
	}{
		{name: "file in root", path: filepath.Join(root, "grid.gph"), allowed: []string{root}},
		{name: "nested missing file", path: filepath.Join(root, "graphs", "new", "grid.gph"), allowed: []string{root}},
		{name: "root itself", path: root, allowed: []string{root}},
		{name: "doubled separator", path: root + sep + sep + "grid.rats", allowed: []string{root}},
		{name: "second allowed dir", path: filepath.Join(other, "grid.gph"), allowed: []string{root, other}},
		{name: "dot-dot escape", path: root + sep + ".." + sep + "grid.gph", allowed: []string{root}, errContains: "outside allowed"},
		{name: "nested dot-dot escape", path: root + sep + "graphs" + sep + ".." + sep + ".." + sep + "x", allowed: []string{root}, errContains: "outside allowed"},
		{name: "other dir", path: filepath.Join(other, "grid.gph"), allowed: []string{root}, errContains: "outside allowed"},
		{name: "null byte", path: filepath.Join(root, "gr\x00id.gph"), allowed: []string{root}, errContains: "null byte"},
		{name: "empty", path: "", allowed: []string{root}, errContains: "empty"},
		{name: "nothing allowed", path: filepath.Join(root, "grid.gph"), errContains: "no allowed directories"},
		{name: "symlink leaving root", path: filepath.Join(root, "escape", "grid.gph"), allowed: []string{root}, symlink: true, errContains: "outside allowed"},
		{name: "symlink within root", path: filepath.Join(root, "graphs", "link", "grid.gph"), allowed: []string{root}, symlink: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.symlink && runtime.GOOS == "windows" {
				t.Skip("symlinks need privileges on windows")
			}
			err := ValidatePath(tt.path, tt.allowed)
			if tt.errContains == "" {
				if err != nil {
					t.Errorf("ValidatePath(%q) = %v, want nil", tt.path, err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("ValidatePath(%q) = %v, want error containing %q", tt.path, err, tt.errContains)
			}
		})
	}
}

func TestRedactPath(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"simple", "/home/user/.graphrat/config.yaml", ".../.graphrat/config.yaml"},
		{"deep", "/a/b/c/d/e.txt", ".../d/e.txt"},
		{"root file", "/file.txt", "file.txt"},
		{"relative", "dir/file.txt", ".../dir/file.txt"},
		{"just filename", "file.txt", "file.txt"},
		{"trailing slash cleaned", "/home/user/.graphrat/", ".../user/.graphrat"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RedactPath(tt.input)
			if got != tt.want {
				t.Errorf("RedactPath(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestAllowedInputDirs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	projectRoot := t.TempDir()

	dirs, err := AllowedInputDirs(projectRoot)
	if err != nil {
		t.Fatalf("AllowedInputDirs() error = %v", err)
	}
	want := []string{projectRoot, filepath.Join(home, ".graphrat")}
	if len(dirs) != len(want) {
		t.Fatalf("AllowedInputDirs() = %v, want %v", dirs, want)
	}
	for i := range want {
		if dirs[i] != want[i] {
			t.Errorf("dirs[%d] = %q, want %q", i, dirs[i], want[i])
		}
	}
}

func TestResolve(t *testing.T) {
	root := t.TempDir()
	other := t.TempDir()
	allowed := []string{root}

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr error
	}{
		{"relative", "graphs/grid.gph", filepath.Join(root, "graphs", "grid.gph"), nil},
		{"absolute inside", filepath.Join(root, "grid.rats"), filepath.Join(root, "grid.rats"), nil},
		{"relative escape", "../outside.gph", "", ErrOutsideAllowed},
		{"absolute outside", filepath.Join(other, "grid.gph"), "", ErrOutsideAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(root, tt.path, allowed)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Resolve(%q) error = %v, want %v", tt.path, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%q) error = %v", tt.path, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}

	if _, err := Resolve(root, "", allowed); err == nil {
		t.Error("Resolve(\"\") should fail")
	}
}
