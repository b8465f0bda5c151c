package main

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/graphrat/internal/config"
	"github.com/nvandessel/graphrat/internal/report"
	"github.com/nvandessel/graphrat/internal/store"
)

func TestNewRunCmd(t *testing.T) {
	cmd := newRunCmd()
	if cmd.Use != "run" {
		t.Errorf("Use = %q, want %q", cmd.Use, "run")
	}
	for _, flag := range []string{"graph", "rats", "steps", "seed", "mode", "batch-fraction", "threads",
		"interval", "quiet", "format", "check-invariants", "record", "metrics-addr", "tracing"} {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("missing --%s flag", flag)
		}
	}
}

func TestApplyRunFlags(t *testing.T) {
	cmd := newRunCmd()
	if err := cmd.ParseFlags([]string{"-n", "40", "-u", "rat-order", "-t", "4", "--record=false", "-q"}); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}

	cfg := config.Default()
	cfg.Simulation.Seed = 7
	applyRunFlags(cmd, cfg)

	if cfg.Simulation.Steps != 40 || cfg.Simulation.Mode != "rat-order" || cfg.Simulation.Threads != 4 {
		t.Errorf("simulation = %+v", cfg.Simulation)
	}
	if cfg.Store.Record || !cfg.Output.Quiet {
		t.Errorf("record = %v quiet = %v", cfg.Store.Record, cfg.Output.Quiet)
	}
	// Unset flags leave config values alone.
	if cfg.Simulation.Seed != 7 {
		t.Errorf("Seed = %d, want 7 from config", cfg.Simulation.Seed)
	}
}

func TestRunCmd_DriveOutput(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	graphPath, ratsPath := writeFixtures(t, tmpDir)

	out, err := execute(t, "run", "-g", graphPath, "-r", ratsPath, "-n", "2", "-u", "sync", "--record=false")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	snaps, err := report.ReadDrive(strings.NewReader(out))
	if err != nil {
		t.Fatalf("ReadDrive: %v", err)
	}
	if len(snaps) != 3 {
		t.Fatalf("got %d snapshots, want 3 (initial + 2 steps)", len(snaps))
	}
	for i, snap := range snaps {
		if snap.NodeCount != 9 || snap.RatCount != 18 || len(snap.Counts) != 9 {
			t.Errorf("snapshot %d = %+v", i, snap)
		}
		var sum int32
		for _, c := range snap.Counts {
			sum += c
		}
		if sum != 18 {
			t.Errorf("snapshot %d holds %d rats, want 18", i, sum)
		}
	}
	if snaps[0].Counts[0] != 18 {
		t.Errorf("initial count at node 0 = %d, want 18", snaps[0].Counts[0])
	}
	if !strings.HasSuffix(out, "DONE\n") {
		t.Error("output should end with DONE")
	}

	if _, err := os.Stat(filepath.Join(tmpDir, "home", ".graphrat", "graphrat.db")); !os.IsNotExist(err) {
		t.Error("--record=false should not create the run store")
	}
}

func TestRunCmd_QuietJSON(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	graphPath, ratsPath := writeFixtures(t, tmpDir)

	out, err := execute(t, "run", "-g", graphPath, "-r", ratsPath, "-n", "5", "-q", "--json", "--record=false")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	sc := bufio.NewScanner(strings.NewReader(out))
	var lines []map[string]any
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("line %q is not JSON: %v", sc.Text(), err)
		}
		lines = append(lines, m)
	}
	if len(lines) != 1 || lines[0]["done"] != true {
		t.Errorf("quiet JSON output = %v, want only the done record", lines)
	}
}

func TestRunCmd_RecordsRun(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	graphPath, ratsPath := writeFixtures(t, tmpDir)

	if _, err := execute(t, "run", "-g", graphPath, "-r", ratsPath, "-n", "4", "-i", "2"); err != nil {
		t.Fatalf("run: %v", err)
	}

	rs, err := store.NewSQLiteRunStore(filepath.Join(tmpDir, "home"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer rs.Close()

	ctx := t.Context()
	run, err := rs.GetRun(ctx, 1)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != store.StatusFinished || run.Steps != 4 || run.Rats != 18 || run.Mode != "batched" {
		t.Errorf("run = %+v", run)
	}
	if run.GraphPath != graphPath {
		t.Errorf("GraphPath = %q, want %q", run.GraphPath, graphPath)
	}
	snaps, err := rs.Snapshots(ctx, 1)
	if err != nil {
		t.Fatalf("Snapshots: %v", err)
	}
	var steps []int
	for _, s := range snaps {
		steps = append(steps, s.Step)
	}
	if len(steps) != 3 || steps[0] != 0 || steps[1] != 2 || steps[2] != 4 {
		t.Errorf("recorded steps = %v, want [0 2 4]", steps)
	}
}

func TestRunCmd_ConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	graphPath, ratsPath := writeFixtures(t, tmpDir)

	cfgPath := filepath.Join(tmpDir, "graphrat.yaml")
	content := "simulation:\n  steps: 3\n  mode: rat-order\noutput:\n  format: drive\nstore:\n  record: false\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "run", "--config", cfgPath, "-g", graphPath, "-r", ratsPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := strings.Count(out, "STEP "); got != 4 {
		t.Errorf("got %d STEP blocks, want 4 (steps from config file)", got)
	}
}

func TestRunCmd_Errors(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	graphPath, ratsPath := writeFixtures(t, tmpDir)

	badRats := filepath.Join(tmpDir, "bad.rats")
	if err := os.WriteFile(badRats, []byte("4 1\n0\n"), 0600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name        string
		args        []string
		errContains string
	}{
		{"missing graph flag", []string{"run", "-r", ratsPath}, "graph"},
		{"missing graph file", []string{"run", "-g", filepath.Join(tmpDir, "none.gph"), "-r", ratsPath}, "failed to load graph"},
		{"node count mismatch", []string{"run", "-g", graphPath, "-r", badRats}, "failed to load rats"},
		{"unknown mode", []string{"run", "-g", graphPath, "-r", ratsPath, "-u", "chaotic"}, "invalid simulation mode"},
		{"unknown format", []string{"run", "-g", graphPath, "-r", ratsPath, "--format", "xml"}, "invalid output format"},
		{"zero threads", []string{"run", "-g", graphPath, "-r", ratsPath, "-t", "0"}, "threads must be at least 1"},
		{"bad log level", []string{"run", "-g", graphPath, "-r", ratsPath, "--log-level", "loud"}, "invalid log level"},
		{"bad tracing exporter", []string{"run", "-g", graphPath, "-r", ratsPath, "--tracing", "jaeger"}, "invalid tracing exporter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("error = %v, want containing %q", err, tt.errContains)
			}
		})
	}
}

func TestRunCmd_MetricsEndpoint(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	graphPath, ratsPath := writeFixtures(t, tmpDir)

	if _, err := execute(t, "run", "-g", graphPath, "-r", ratsPath, "-n", "2", "--record=false",
		"--metrics-addr", "127.0.0.1:0"); err != nil {
		t.Fatalf("run with metrics: %v", err)
	}
}
