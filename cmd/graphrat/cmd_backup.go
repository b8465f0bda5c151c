package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nvandessel/graphrat/internal/backup"
	"github.com/nvandessel/graphrat/internal/config"
	"github.com/spf13/cobra"
)

func newRunsBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Archive the run history to a compressed file",
		Long: `Archive every recorded run and its snapshots to a checksummed,
gzip-compressed file.

Default location: <store root>/.graphrat/backups/graphrat-backup-YYYYMMDD-HHMMSS.gra
Archives in that directory are pruned by the backup.* retention settings.

Examples:
  graphrat runs backup
  graphrat runs backup -o history.gra
  graphrat runs backup list
  graphrat runs backup verify history.gra`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			outputPath, _ := cmd.Flags().GetString("output")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			root, err := storeRoot(cfg)
			if err != nil {
				return err
			}
			dir := backup.DefaultBackupDir(root)
			if outputPath == "" {
				outputPath = backup.GenerateBackupPath(dir)
			}
			policy, err := buildRetentionPolicy(&cfg.Backup)
			if err != nil {
				return err
			}

			rs, err := openRunStore(cfg)
			if err != nil {
				return err
			}
			defer rs.Close()

			archive, err := backup.Backup(cmd.Context(), rs, outputPath)
			if err != nil {
				return fmt.Errorf("backup failed: %w", err)
			}

			// Retention only prunes the default directory.
			var pruned []string
			if filepath.Dir(outputPath) == dir && policy != nil {
				pruned, err = backup.ApplyRetention(dir, policy)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to apply retention: %v\n", err)
				}
			}

			snapshots := 0
			for _, r := range archive.Runs {
				snapshots += len(r.Snapshots)
			}
			if jsonOut {
				var size int64
				if info, err := os.Stat(outputPath); err == nil {
					size = info.Size()
				}
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"path":       outputPath,
					"runs":       len(archive.Runs),
					"snapshots":  snapshots,
					"size_bytes": size,
					"pruned":     len(pruned),
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Backup created: %d runs, %d snapshots\n", len(archive.Runs), snapshots)
			fmt.Fprintf(out, "  Path: %s\n", outputPath)
			if len(pruned) > 0 {
				fmt.Fprintf(out, "  Pruned %d old backups\n", len(pruned))
			}
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "", "Output file (default: timestamped file in the backup directory)")
	cmd.AddCommand(newRunsBackupListCmd(), newRunsBackupVerifyCmd())
	return cmd
}

// buildRetentionPolicy combines the configured limits. It returns nil when
// no limit is set.
func buildRetentionPolicy(cfg *config.BackupConfig) (backup.RetentionPolicy, error) {
	var policies []backup.RetentionPolicy
	if cfg.MaxCount > 0 {
		policies = append(policies, &backup.CountPolicy{MaxCount: cfg.MaxCount})
	}
	if cfg.MaxAge != "" {
		d, err := backup.ParseDuration(cfg.MaxAge)
		if err != nil {
			return nil, fmt.Errorf("invalid backup max_age: %w", err)
		}
		policies = append(policies, &backup.AgePolicy{MaxAge: d})
	}
	if cfg.MaxTotalSize != "" {
		n, err := backup.ParseSize(cfg.MaxTotalSize)
		if err != nil {
			return nil, fmt.Errorf("invalid backup max_total_size: %w", err)
		}
		policies = append(policies, &backup.SizePolicy{MaxTotalBytes: n})
	}

	switch len(policies) {
	case 0:
		return nil, nil
	case 1:
		return policies[0], nil
	}
	return &backup.CompositePolicy{Policies: policies}, nil
}

func newRunsBackupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List archives in the backup directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			root, err := storeRoot(cfg)
			if err != nil {
				return err
			}
			dir := backup.DefaultBackupDir(root)

			backups, err := backup.ListBackups(dir)
			if err != nil {
				return fmt.Errorf("failed to list backups: %w", err)
			}
			if jsonOut {
				if backups == nil {
					backups = []backup.BackupInfo{}
				}
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"backups":   backups,
					"count":     len(backups),
					"directory": dir,
				})
			}

			out := cmd.OutOrStdout()
			if len(backups) == 0 {
				fmt.Fprintf(out, "No backups found in %s\n", dir)
				return nil
			}
			fmt.Fprintf(out, "Backups in %s:\n", dir)
			var total int64
			for _, b := range backups {
				total += b.Size
				fmt.Fprintf(out, "  %s  %8s  %4d runs  %s\n",
					b.CreatedAt.Format("2006-01-02 15:04"), formatBytes(b.Size), b.Runs, filepath.Base(b.Path))
			}
			fmt.Fprintf(out, "Total: %d backups, %s\n", len(backups), formatBytes(total))
			return nil
		},
	}
}

func newRunsBackupVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file>",
		Short: "Check an archive's SHA-256 checksum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			path := args[0]

			if err := backup.VerifyChecksum(path); err != nil {
				return fmt.Errorf("verification failed: %w", err)
			}
			header, err := backup.ReadHeader(path)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"path":   path,
					"valid":  true,
					"header": header,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "OK: %s (%d runs, %d snapshots, %s)\n",
				path, header.RunCount, header.SnapshotCount, header.Checksum)
			return nil
		},
	}
}

func newRunsRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <file>",
		Short: "Restore runs from a backup archive",
		Long: `Restore recorded runs from an archive written by 'graphrat runs backup'.
Restored runs receive new IDs.

Modes:
  merge   - Skip runs already in the history (default)
  replace - Delete every recorded run first

Examples:
  graphrat runs restore ~/.graphrat/backups/graphrat-backup-20261018-120000.gra
  graphrat runs restore history.gra --mode replace`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			mode, _ := cmd.Flags().GetString("mode")

			restoreMode := backup.RestoreMode(mode)
			if restoreMode != backup.RestoreMerge && restoreMode != backup.RestoreReplace {
				return fmt.Errorf("invalid restore mode %q (valid: merge, replace)", mode)
			}

			rs, err := openRunStoreForCmd(cmd)
			if err != nil {
				return err
			}
			defer rs.Close()

			result, err := backup.Restore(cmd.Context(), rs, args[0], restoreMode)
			if err != nil {
				return fmt.Errorf("restore failed: %w", err)
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Restore complete (mode: %s)\n", mode)
			fmt.Fprintf(out, "  Runs: %d restored, %d skipped\n", result.RunsRestored, result.RunsSkipped)
			fmt.Fprintf(out, "  Snapshots: %d restored\n", result.SnapshotsRestored)
			return nil
		},
	}

	cmd.Flags().String("mode", string(backup.RestoreMerge), "Restore mode: merge or replace")
	return cmd
}

// formatBytes formats a byte count as a human-readable string.
func formatBytes(b int64) string {
	const (
		kb = 1024
		mb = kb * 1024
		gb = mb * 1024
	)
	switch {
	case b >= gb:
		return fmt.Sprintf("%.1fGB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.1fMB", float64(b)/float64(mb))
	case b >= kb:
		return fmt.Sprintf("%.1fKB", float64(b)/float64(kb))
	default:
		return fmt.Sprintf("%dB", b)
	}
}
