package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/graphrat/internal/config"
)

func TestConfigSetGet(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	if _, err := execute(t, "config", "set", "simulation.threads", "8"); err != nil {
		t.Fatalf("config set: %v", err)
	}

	// Written to ~/.graphrat/config.yaml with private permissions.
	path := filepath.Join(tmpDir, "home", ".graphrat", "config.yaml")
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config file permissions = %o, want 600", perm)
	}

	out, err := execute(t, "config", "get", "simulation.threads")
	if err != nil {
		t.Fatalf("config get: %v", err)
	}
	if strings.TrimSpace(out) != "simulation.threads = 8" {
		t.Errorf("config get output = %q", out)
	}

	out, err = execute(t, "config", "get", "simulation.threads", "--json")
	if err != nil {
		t.Fatalf("config get --json: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("parse JSON: %v", err)
	}
	if got["value"] != float64(8) {
		t.Errorf("value = %v, want 8", got["value"])
	}
}

func TestConfigSet_ExplicitFile(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	cfgPath := filepath.Join(tmpDir, "custom", "graphrat.yaml")

	if _, err := execute(t, "config", "set", "tracing.timeout", "2s", "--config", cfgPath); err != nil {
		t.Fatalf("config set: %v", err)
	}
	cfg, err := config.LoadFromFile(cfgPath)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.Tracing.Timeout.String() != "2s" {
		t.Errorf("Timeout = %v, want 2s", cfg.Tracing.Timeout)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "home", ".graphrat", "config.yaml")); !os.IsNotExist(err) {
		t.Error("home config should not be written when --config is given")
	}
}

func TestConfigSet_Errors(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	tests := []struct {
		name        string
		key, value  string
		errContains string
	}{
		{"unknown key", "llm.provider", "anthropic", "unknown configuration key"},
		{"not an integer", "simulation.steps", "many", "invalid integer"},
		{"bad seed", "simulation.seed", "-1", "invalid seed"},
		{"bad mode", "simulation.mode", "chaotic", "invalid value for simulation.mode"},
		{"bad fraction", "simulation.batch_fraction", "1.5", "invalid value"},
		{"bad duration", "tracing.timeout", "soon", "invalid duration"},
		{"bad backup age", "backup.max_age", "3y", "invalid value for backup.max_age"},
		{"bad backup size", "backup.max_total_size", "lots", "invalid value for backup.max_total_size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, "config", "set", tt.key, tt.value)
			if err == nil || !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("error = %v, want containing %q", err, tt.errContains)
			}
		})
	}

	if _, err := os.Stat(filepath.Join(tmpDir, "home", ".graphrat", "config.yaml")); !os.IsNotExist(err) {
		t.Error("rejected values should not be saved")
	}
}

func TestConfigList(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	out, err := execute(t, "config", "list")
	if err != nil {
		t.Fatalf("config list: %v", err)
	}
	for _, key := range configKeys {
		if !strings.Contains(out, key+":") {
			t.Errorf("list output missing %s", key)
		}
	}
	if !strings.Contains(out, "store.root:") || !strings.Contains(out, "(not set)") {
		t.Errorf("empty values should show as (not set):\n%s", out)
	}

	out, err = execute(t, "config", "list", "--json")
	if err != nil {
		t.Fatalf("config list --json: %v", err)
	}
	var cfg config.GraphratConfig
	if err := json.Unmarshal([]byte(out), &cfg); err != nil {
		t.Fatalf("parse JSON: %v", err)
	}
	if cfg.Simulation.Mode != "batched" {
		t.Errorf("Mode = %q, want batched", cfg.Simulation.Mode)
	}
}

func TestGetConfigValue_CoversEveryKey(t *testing.T) {
	cfg := config.Default()
	for _, key := range configKeys {
		if _, ok := getConfigValue(cfg, key); !ok {
			t.Errorf("getConfigValue(%q) not found", key)
		}
	}
	if _, ok := getConfigValue(cfg, "nope"); ok {
		t.Error("unknown key should not be found")
	}
}
