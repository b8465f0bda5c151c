// Package config provides unified configuration loading for graphrat.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/nvandessel/graphrat/internal/backup"
	"github.com/nvandessel/graphrat/internal/report"
	"github.com/nvandessel/graphrat/internal/rng"
	"github.com/nvandessel/graphrat/internal/sim"
	"gopkg.in/yaml.v3"
)

// GraphratConfig contains all graphrat configuration settings.
type GraphratConfig struct {
	// Simulation holds the defaults for `graphrat run`.
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`

	// Output controls how snapshots are reported.
	Output OutputConfig `json:"output" yaml:"output"`

	// Logging contains settings for operational and diagnostic logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Store controls run history recording.
	Store StoreConfig `json:"store" yaml:"store"`

	// Metrics configures the Prometheus endpoint.
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`

	// Tracing configures OpenTelemetry span export.
	Tracing TracingConfig `json:"tracing" yaml:"tracing"`

	// Backup configures run history backups.
	Backup BackupConfig `json:"backup" yaml:"backup"`
}

// SimulationConfig holds simulation parameters.
type SimulationConfig struct {
	// Steps is the number of simulation steps.
	Steps int `json:"steps" yaml:"steps"`

	// Seed is the global RNG seed.
	Seed uint32 `json:"seed" yaml:"seed"`

	// Mode is the update mode: "synchronous", "rat-order", or "batched".
	Mode string `json:"mode" yaml:"mode"`

	// BatchFraction is the share of rats per batch in batched mode.
	BatchFraction float64 `json:"batch_fraction" yaml:"batch_fraction"`

	// Threads bounds the worker count for batch phases.
	Threads int `json:"threads" yaml:"threads"`

	// CheckInvariants recounts occupancy after every batch. Slow.
	CheckInvariants bool `json:"check_invariants" yaml:"check_invariants"`
}

// OutputConfig controls snapshot reporting.
type OutputConfig struct {
	// Format is "drive", "grid", "json", or "" to pick by terminal.
	Format string `json:"format" yaml:"format"`

	// Interval emits full counts every Interval steps.
	Interval int `json:"interval" yaml:"interval"`

	// Quiet suppresses all per-step output.
	Quiet bool `json:"quiet" yaml:"quiet"`
}

// LoggingConfig configures graphrat's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables diagnostic logging to .graphrat/diagnostics.jsonl.
	// "trace" additionally logs every committed batch.
	Level string `json:"level" yaml:"level"`
}

// StoreConfig controls run history recording.
type StoreConfig struct {
	// Record stores each run in the history database.
	Record bool `json:"record" yaml:"record"`

	// Root is the directory holding .graphrat/. Empty means the home directory.
	Root string `json:"root,omitempty" yaml:"root,omitempty"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address for /metrics, e.g. ":9090". Empty disables it.
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
}

// TracingConfig configures OpenTelemetry span export.
type TracingConfig struct {
	// Exporter is "none" (default) or "stdout".
	Exporter string `json:"exporter" yaml:"exporter"`

	// Timeout bounds the flush of pending spans on shutdown.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// BackupConfig configures retention of `graphrat runs backup` archives.
// A backup is kept when any configured limit keeps it.
type BackupConfig struct {
	// MaxCount keeps the N newest archives. Zero disables the limit.
	MaxCount int `json:"max_count" yaml:"max_count"`

	// MaxAge keeps archives younger than this, e.g. "30d" or "2w".
	MaxAge string `json:"max_age,omitempty" yaml:"max_age,omitempty"`

	// MaxTotalSize keeps the newest archives up to this total, e.g. "100MB".
	MaxTotalSize string `json:"max_total_size,omitempty" yaml:"max_total_size,omitempty"`
}

// Default returns a GraphratConfig with sensible defaults.
func Default() *GraphratConfig {
	return &GraphratConfig{
		Simulation: SimulationConfig{
			Steps:         1,
			Seed:          rng.DefaultSeed,
			Mode:          "batched",
			BatchFraction: sim.DefaultBatchFraction,
			Threads:       1,
		},
		Output: OutputConfig{
			Interval: sim.DefaultDisplayInterval,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Store: StoreConfig{
			Record: true,
		},
		Tracing: TracingConfig{
			Exporter: "none",
			Timeout:  5 * time.Second,
		},
		Backup: BackupConfig{
			MaxCount: 10,
		},
	}
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.graphrat/config.yaml -> environment variables
func Load() (*GraphratConfig, error) {
	config := Default()

	// Try to load from default config file
	homeDir, err := os.UserHomeDir()
	if err == nil {
		configPath := filepath.Join(homeDir, ".graphrat", "config.yaml")
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	// Apply environment variable overrides
	applyEnvOverrides(config)

	return config, nil
}

// LoadPath is Load with an explicit config file in place of
// ~/.graphrat/config.yaml. An empty path behaves like Load.
func LoadPath(path string) (*GraphratConfig, error) {
	if path == "" {
		return Load()
	}
	config, err := LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	applyEnvOverrides(config)
	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*GraphratConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.Store.Root = expandEnvVars(config.Store.Root)

	return config, nil
}

// Validate checks that the configuration is valid.
func (c *GraphratConfig) Validate() error {
	if c.Simulation.Steps < 0 {
		return fmt.Errorf("steps must be non-negative, got %d", c.Simulation.Steps)
	}

	if c.Simulation.Threads < 1 {
		return fmt.Errorf("threads must be at least 1, got %d", c.Simulation.Threads)
	}

	if _, err := sim.ParseMode(c.Simulation.Mode, c.Simulation.BatchFraction); err != nil {
		return fmt.Errorf("invalid simulation mode: %w", err)
	}

	if c.Output.Interval < 1 {
		return fmt.Errorf("interval must be at least 1, got %d", c.Output.Interval)
	}

	if c.Output.Format != "" {
		if !slices.Contains(report.Formats, strings.ToLower(c.Output.Format)) {
			return fmt.Errorf("invalid output format: %s (valid: %s)", c.Output.Format, strings.Join(report.Formats, ", "))
		}
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	validExporters := map[string]bool{"": true, "none": true, "stdout": true}
	if !validExporters[c.Tracing.Exporter] {
		return fmt.Errorf("invalid tracing exporter: %s (valid: none, stdout)", c.Tracing.Exporter)
	}

	if c.Tracing.Timeout < 0 {
		return fmt.Errorf("tracing timeout must be non-negative, got %v", c.Tracing.Timeout)
	}

	if c.Backup.MaxCount < 0 {
		return fmt.Errorf("backup max_count must be non-negative, got %d", c.Backup.MaxCount)
	}
	if c.Backup.MaxAge != "" {
		if _, err := backup.ParseDuration(c.Backup.MaxAge); err != nil {
			return fmt.Errorf("invalid backup max_age: %w", err)
		}
	}
	if c.Backup.MaxTotalSize != "" {
		if _, err := backup.ParseSize(c.Backup.MaxTotalSize); err != nil {
			return fmt.Errorf("invalid backup max_total_size: %w", err)
		}
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *GraphratConfig) {
	if v := os.Getenv("GRAPHRAT_STEPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Simulation.Steps = n
		}
	}

	if v := os.Getenv("GRAPHRAT_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 0, 32); err == nil {
			config.Simulation.Seed = uint32(n)
		}
	}

	if v := os.Getenv("GRAPHRAT_MODE"); v != "" {
		config.Simulation.Mode = v
	}

	if v := os.Getenv("GRAPHRAT_BATCH_FRACTION"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Simulation.BatchFraction = f
		}
	}

	if v := os.Getenv("GRAPHRAT_THREADS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Simulation.Threads = n
		}
	}

	if v := os.Getenv("GRAPHRAT_FORMAT"); v != "" {
		config.Output.Format = v
	}

	if v := os.Getenv("GRAPHRAT_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Output.Interval = n
		}
	}

	if v := os.Getenv("GRAPHRAT_RECORD"); v != "" {
		config.Store.Record = v == "true" || v == "1"
	}

	if v := os.Getenv("GRAPHRAT_STORE_ROOT"); v != "" {
		config.Store.Root = v
	}

	if v := os.Getenv("GRAPHRAT_METRICS_ADDR"); v != "" {
		config.Metrics.Addr = v
	}

	if v := os.Getenv("GRAPHRAT_TRACING"); v != "" {
		config.Tracing.Exporter = v
	}

	if v := os.Getenv("GRAPHRAT_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
