package mcp

import (
	"time"

	"github.com/nvandessel/graphrat/internal/sim"
)

// GraphratSimulateInput defines the input for graphrat_simulate tool.
type GraphratSimulateInput struct {
	Graph         string  `json:"graph" jsonschema:"Graph file path (relative to project root)"`
	Rats          string  `json:"rats" jsonschema:"Initial rat position file path (relative to project root)"`
	Steps         int     `json:"steps,omitempty" jsonschema:"Number of simulation steps (default: 1)"`
	Seed          uint32  `json:"seed,omitempty" jsonschema:"Global random seed (default: 618)"`
	Mode          string  `json:"mode,omitempty" jsonschema:"Update mode: synchronous, rat-order or batched (default: batched)"`
	BatchFraction float64 `json:"batch_fraction,omitempty" jsonschema:"Fraction of rats per batch in batched mode (default: 0.02)"`
	Threads       int     `json:"threads,omitempty" jsonschema:"Worker goroutines per batch phase (default: server setting)"`
	Record        bool    `json:"record,omitempty" jsonschema:"Record the run and its snapshots in the run history (default: false)"`
	IncludeCounts bool    `json:"include_counts,omitempty" jsonschema:"Return the final per-node rat counts (default: false)"`
}

// GraphratSimulateOutput defines the output for graphrat_simulate tool.
type GraphratSimulateOutput struct {
	RunID     int64              `json:"run_id,omitempty" jsonschema:"ID of the recorded run (only when record is set)"`
	Mode      string             `json:"mode" jsonschema:"Update mode used"`
	BatchSize int                `json:"batch_size" jsonschema:"Rats per batch"`
	Steps     int                `json:"steps" jsonschema:"Steps simulated"`
	Nodes     int                `json:"nodes" jsonschema:"Number of graph nodes"`
	Rats      int                `json:"rats" jsonschema:"Number of rats"`
	Fallbacks int64              `json:"fallbacks" jsonschema:"Move selections that fell back to the rat's own node"`
	ElapsedMs int64              `json:"elapsed_ms" jsonschema:"Wall-clock simulation time in milliseconds"`
	MRPS      float64            `json:"mrps" jsonschema:"Throughput in millions of rat moves per second"`
	Initial   sim.OccupancyStats `json:"initial" jsonschema:"Occupancy statistics before the first step"`
	Final     sim.OccupancyStats `json:"final" jsonschema:"Occupancy statistics after the last step"`
	Counts    []int32            `json:"counts,omitempty" jsonschema:"Final rats per node (only when include_counts is set)"`
	Message   string             `json:"message" jsonschema:"Human-readable result message"`
}

// GraphratRunsInput defines the input for graphrat_runs tool.
type GraphratRunsInput struct {
	ID    int64 `json:"id,omitempty" jsonschema:"Show a single run with its recorded steps instead of listing"`
	Limit int   `json:"limit,omitempty" jsonschema:"Maximum number of runs to list, newest first (default: 20)"`
}

// GraphratRunsOutput defines the output for graphrat_runs tool.
type GraphratRunsOutput struct {
	Runs  []RunListItem `json:"runs" jsonschema:"Recorded runs"`
	Count int           `json:"count" jsonschema:"Number of runs returned"`
	Steps []int         `json:"steps,omitempty" jsonschema:"Recorded snapshot steps (only when id is set)"`
}

// RunListItem provides a list view of a recorded run.
type RunListItem struct {
	ID        int64     `json:"id"`
	Status    string    `json:"status"`
	GraphPath string    `json:"graph_path"`
	RatsPath  string    `json:"rats_path"`
	Nodes     int       `json:"nodes"`
	Rats      int       `json:"rats"`
	Steps     int       `json:"steps"`
	Seed      uint32    `json:"seed"`
	Mode      string    `json:"mode"`
	Threads   int       `json:"threads"`
	StartedAt time.Time `json:"started_at"`
	ElapsedMs int64     `json:"elapsed_ms"`
	Fallbacks int64     `json:"fallbacks"`
	Error     string    `json:"error,omitempty"`
}

// GraphratGraphInput defines the input for graphrat_graph tool.
type GraphratGraphInput struct {
	Graph  string `json:"graph,omitempty" jsonschema:"Graph file path (relative to project root; defaults to the run's graph when run_id is set)"`
	Format string `json:"format,omitempty" jsonschema:"Output format: dot, json or html (default: json)"`
	RunID  int64  `json:"run_id,omitempty" jsonschema:"Shade nodes by the final occupancy of a recorded run (required for html)"`
}

// GraphratGraphOutput defines the output for graphrat_graph tool.
type GraphratGraphOutput struct {
	Format    string `json:"format" jsonschema:"Rendered format"`
	Graph     any    `json:"graph" jsonschema:"Rendered graph: DOT or HTML text, or a JSON document"`
	NodeCount int    `json:"node_count" jsonschema:"Number of nodes"`
	EdgeCount int    `json:"edge_count" jsonschema:"Number of distinct edges after collapsing reverse pairs"`
}
