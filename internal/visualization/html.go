package visualization

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"math"

	"github.com/nvandessel/graphrat/internal/sim"
	"github.com/nvandessel/graphrat/internal/store"
)

type heatCell struct {
	Node  int
	Count int32
	Level int
}

// htmlTemplateData holds data passed to the HTML template.
type htmlTemplateData struct {
	Title    string
	Step     int
	Steps    []int
	K        int
	CellSize int
	Hidden   int
	Rows     [][]heatCell
	Stats    sim.OccupancyStats
}

var heatmapTemplate = template.Must(template.ParseFS(templates, "templates/heatmap.html.tmpl"))

// RenderHTML produces a self-contained HTML page showing snap as a k x k
// heatmap, k being the integer square root of the node count. steps, when
// non-empty, becomes a navigation bar of ?step= links.
func RenderHTML(title string, snap sim.Snapshot, steps []int) ([]byte, error) {
	if snap.Counts == nil {
		return nil, fmt.Errorf("snapshot of step %d has no counts", snap.Step)
	}

	k := int(math.Sqrt(float64(len(snap.Counts))))
	var peak int32
	for _, c := range snap.Counts {
		peak = max(peak, c)
	}

	rows := make([][]heatCell, k)
	for r := range rows {
		rows[r] = make([]heatCell, k)
		for c := range rows[r] {
			n := r*k + c
			rows[r][c] = heatCell{Node: n, Count: snap.Counts[n], Level: shade(snap.Counts[n], peak)}
		}
	}

	data := htmlTemplateData{
		Title:    title,
		Step:     snap.Step,
		Steps:    steps,
		K:        k,
		CellSize: max(8, min(32, 640/max(k, 1))),
		Hidden:   len(snap.Counts) - k*k,
		Rows:     rows,
		Stats:    sim.ComputeStats(snap.Counts),
	}

	var buf bytes.Buffer
	if err := heatmapTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute HTML template: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderRunHTML renders the heatmap of a run's last recorded snapshot. Runs
// recorded without snapshots fall back to their final counts.
func RenderRunHTML(ctx context.Context, rs store.RunStore, run *store.Run) ([]byte, error) {
	snaps, err := rs.Snapshots(ctx, run.ID)
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}
	steps := make([]int, len(snaps))
	for i, snap := range snaps {
		steps[i] = snap.Step
	}

	last := sim.Snapshot{Step: run.Steps, NodeCount: run.Nodes, RatCount: run.Rats, Counts: run.FinalCounts}
	if converted := store.SimSnapshots(run, snaps); len(converted) > 0 {
		last = converted[len(converted)-1]
	}
	return RenderHTML(fmt.Sprintf("graphrat run %d", run.ID), last, steps)
}
