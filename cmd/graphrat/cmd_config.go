package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/nvandessel/graphrat/internal/config"
	"github.com/nvandessel/graphrat/internal/store"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage graphrat configuration",
		Long: `View and modify graphrat configuration settings.

Configuration is stored in ~/.graphrat/config.yaml unless --config names
another file. GRAPHRAT_* environment variables override the file.

Examples:
  graphrat config list                        # Show all settings
  graphrat config get simulation.mode         # Get a specific setting
  graphrat config set simulation.threads 8    # Set a setting
  graphrat config set output.format grid`,
	}

	cmd.AddCommand(
		newConfigListCmd(),
		newConfigGetCmd(),
		newConfigSetCmd(),
	)

	return cmd
}

// configKeys lists the settable keys in display order.
var configKeys = []string{
	"simulation.steps",
	"simulation.seed",
	"simulation.mode",
	"simulation.batch_fraction",
	"simulation.threads",
	"simulation.check_invariants",
	"output.format",
	"output.interval",
	"output.quiet",
	"logging.level",
	"store.record",
	"store.root",
	"metrics.addr",
	"tracing.exporter",
	"tracing.timeout",
	"backup.max_count",
	"backup.max_age",
	"backup.max_total_size",
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), cfg)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration (%s):\n\n", configFilePath(cmd))
			for _, key := range configKeys {
				value, _ := getConfigValue(cfg, key)
				if s, ok := value.(string); ok && s == "" {
					value = "(not set)"
				}
				fmt.Fprintf(out, "  %-28s %v\n", key+":", value)
			}
			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key := args[0]

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			value, found := getConfigValue(cfg, key)
			if !found {
				return fmt.Errorf("unknown configuration key: %s", key)
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"key":   key,
					"value": value,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", key, value)
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key := args[0]
			value := args[1]

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			if err := setConfigValue(cfg, key, value); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}

			if err := saveConfig(cfg, configFilePath(cmd)); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"status": "updated",
					"key":    key,
					"value":  value,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
			return nil
		},
	}
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.GraphratConfig, key string) (any, bool) {
	switch key {
	case "simulation.steps":
		return cfg.Simulation.Steps, true
	case "simulation.seed":
		return cfg.Simulation.Seed, true
	case "simulation.mode":
		return cfg.Simulation.Mode, true
	case "simulation.batch_fraction":
		return cfg.Simulation.BatchFraction, true
	case "simulation.threads":
		return cfg.Simulation.Threads, true
	case "simulation.check_invariants":
		return cfg.Simulation.CheckInvariants, true
	case "output.format":
		return cfg.Output.Format, true
	case "output.interval":
		return cfg.Output.Interval, true
	case "output.quiet":
		return cfg.Output.Quiet, true
	case "logging.level":
		return cfg.Logging.Level, true
	case "store.record":
		return cfg.Store.Record, true
	case "store.root":
		return cfg.Store.Root, true
	case "metrics.addr":
		return cfg.Metrics.Addr, true
	case "tracing.exporter":
		return cfg.Tracing.Exporter, true
	case "tracing.timeout":
		return cfg.Tracing.Timeout.String(), true
	case "backup.max_count":
		return cfg.Backup.MaxCount, true
	case "backup.max_age":
		return cfg.Backup.MaxAge, true
	case "backup.max_total_size":
		return cfg.Backup.MaxTotalSize, true
	default:
		return nil, false
	}
}

// setConfigValue sets a configuration value by dot-notation key. Range and
// enum checks are left to GraphratConfig.Validate.
func setConfigValue(cfg *config.GraphratConfig, key, value string) error {
	atoi := func() (int, error) {
		n, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid integer for %s: %s", key, value)
		}
		return n, nil
	}
	boolean := func() bool { return value == "true" || value == "1" }

	var err error
	switch key {
	case "simulation.steps":
		cfg.Simulation.Steps, err = atoi()
	case "simulation.seed":
		n, perr := strconv.ParseUint(value, 0, 32)
		if perr != nil {
			return fmt.Errorf("invalid seed: %s (must fit in 32 bits)", value)
		}
		cfg.Simulation.Seed = uint32(n)
	case "simulation.mode":
		cfg.Simulation.Mode = value
	case "simulation.batch_fraction":
		f, perr := strconv.ParseFloat(value, 64)
		if perr != nil {
			return fmt.Errorf("invalid batch fraction: %s", value)
		}
		cfg.Simulation.BatchFraction = f
	case "simulation.threads":
		cfg.Simulation.Threads, err = atoi()
	case "simulation.check_invariants":
		cfg.Simulation.CheckInvariants = boolean()
	case "output.format":
		cfg.Output.Format = value
	case "output.interval":
		cfg.Output.Interval, err = atoi()
	case "output.quiet":
		cfg.Output.Quiet = boolean()
	case "logging.level":
		cfg.Logging.Level = value
	case "store.record":
		cfg.Store.Record = boolean()
	case "store.root":
		cfg.Store.Root = value
	case "metrics.addr":
		cfg.Metrics.Addr = value
	case "tracing.exporter":
		cfg.Tracing.Exporter = value
	case "tracing.timeout":
		d, perr := time.ParseDuration(value)
		if perr != nil {
			return fmt.Errorf("invalid duration: %s", value)
		}
		cfg.Tracing.Timeout = d
	case "backup.max_count":
		cfg.Backup.MaxCount, err = atoi()
	case "backup.max_age":
		cfg.Backup.MaxAge = value
	case "backup.max_total_size":
		cfg.Backup.MaxTotalSize = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return err
}

// configFilePath returns --config or ~/.graphrat/config.yaml.
func configFilePath(cmd *cobra.Command) string {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return path
	}
	dir, err := store.GlobalPath()
	if err != nil {
		return filepath.Join("~", store.DirName, "config.yaml")
	}
	return filepath.Join(dir, "config.yaml")
}

// saveConfig writes the configuration as YAML to path.
func saveConfig(cfg *config.GraphratConfig, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
