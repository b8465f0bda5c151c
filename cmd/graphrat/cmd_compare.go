package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/nvandessel/graphrat/internal/regress"
	"github.com/nvandessel/graphrat/internal/report"
	"github.com/nvandessel/graphrat/internal/sim"
	"github.com/nvandessel/graphrat/internal/store"
	"github.com/spf13/cobra"
)

const runRefPrefix = "run:"

func newCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <want> <got>",
		Short: "Compare two simulation traces",
		Long: `Compare two simulation traces snapshot by snapshot.

Each trace is either a file of drive-format output or run:<id> for a
recorded run. Only snapshots carrying counts are compared, so traces
reported at different intervals still match on the steps they share.
Exits non-zero when the traces differ.

Examples:
  graphrat run -g grid.gph -r grid.rats -n 20 --format drive > ref.out
  graphrat compare ref.out run:4
  graphrat compare run:3 run:4 --limit 20`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			limit, _ := cmd.Flags().GetInt("limit")

			var rs store.RunStore
			if strings.HasPrefix(args[0], runRefPrefix) || strings.HasPrefix(args[1], runRefPrefix) {
				sqlStore, err := openRunStoreForCmd(cmd)
				if err != nil {
					return err
				}
				defer sqlStore.Close()
				rs = sqlStore
			}

			ctx := context.Background()
			want, err := loadTrace(ctx, rs, args[0])
			if err != nil {
				return err
			}
			got, err := loadTrace(ctx, rs, args[1])
			if err != nil {
				return err
			}

			res := regress.Compare(regress.Counted(want), regress.Counted(got), limit)

			if jsonOut {
				if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				if res.OK() {
					fmt.Fprintf(out, "Traces match (%d snapshots compared)\n", res.Snapshots)
				} else {
					fmt.Fprintf(out, "%d mismatches in %d snapshots compared\n", res.Total, res.Snapshots)
					for _, m := range res.Mismatches {
						fmt.Fprintf(out, "  %s\n", m)
					}
					if hidden := res.Total - len(res.Mismatches); hidden > 0 {
						fmt.Fprintf(out, "  ... and %d more\n", hidden)
					}
				}
			}

			if !res.OK() {
				return fmt.Errorf("traces differ: %d mismatches", res.Total)
			}
			return nil
		},
	}

	cmd.Flags().Int("limit", regress.DefaultLimit, "Mismatches to report in detail")
	return cmd
}

// loadTrace reads a drive-format file or a run:<id> reference.
func loadTrace(ctx context.Context, rs store.RunStore, ref string) ([]sim.Snapshot, error) {
	if idStr, ok := strings.CutPrefix(ref, runRefPrefix); ok {
		id, err := parseRunID(idStr)
		if err != nil {
			return nil, err
		}
		run, err := getRun(ctx, rs, id)
		if err != nil {
			return nil, err
		}
		snaps, err := rs.Snapshots(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load snapshots of run %d: %w", id, err)
		}
		return store.SimSnapshots(run, snaps), nil
	}

	f, err := os.Open(ref)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace: %w", err)
	}
	defer f.Close()
	snaps, err := report.ReadDrive(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", ref, err)
	}
	return snaps, nil
}
