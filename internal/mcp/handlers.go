package mcp

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/graphrat/internal/graph"
	"github.com/nvandessel/graphrat/internal/pathutil"
	"github.com/nvandessel/graphrat/internal/ratelimit"
	"github.com/nvandessel/graphrat/internal/rng"
	"github.com/nvandessel/graphrat/internal/sim"
	"github.com/nvandessel/graphrat/internal/simulation"
	"github.com/nvandessel/graphrat/internal/store"
	"github.com/nvandessel/graphrat/internal/visualization"
)

const (
	// maxSimulateSteps bounds a single graphrat_simulate call.
	maxSimulateSteps = 100000

	defaultRunsLimit = 20
	maxRunsLimit     = 1000
)

// registerTools registers all graphrat MCP tools with the server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "graphrat_simulate",
		Description: "Simulate rats moving over a graph with congestion-avoiding random moves and report occupancy statistics",
	}, s.handleGraphratSimulate)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "graphrat_runs",
		Description: "List recorded simulation runs, or show one run and its recorded steps",
	}, s.handleGraphratRuns)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "graphrat_graph",
		Description: "Render a graph in DOT (Graphviz), JSON, or HTML heatmap format, optionally shaded by a recorded run's occupancy",
	}, s.handleGraphratGraph)
}

// handleGraphratSimulate implements the graphrat_simulate tool.
func (s *Server) handleGraphratSimulate(ctx context.Context, req *sdk.CallToolRequest, args GraphratSimulateInput) (_ *sdk.CallToolResult, _ GraphratSimulateOutput, retErr error) {
	start := time.Now()
	var runID int64
	defer func() {
		s.auditTool("graphrat_simulate", start, retErr, runID, sanitizeToolParams(map[string]any{
			"graph": args.Graph, "rats": args.Rats, "steps": args.Steps, "seed": args.Seed,
			"mode": args.Mode, "batch_fraction": args.BatchFraction, "threads": args.Threads,
			"record": args.Record, "include_counts": args.IncludeCounts,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "graphrat_simulate"); err != nil {
		return nil, GraphratSimulateOutput{}, err
	}

	graphPath, err := pathutil.Resolve(s.root, args.Graph, s.allowedDirs)
	if err != nil {
		return nil, GraphratSimulateOutput{}, fmt.Errorf("invalid graph path: %w", err)
	}
	ratsPath, err := pathutil.Resolve(s.root, args.Rats, s.allowedDirs)
	if err != nil {
		return nil, GraphratSimulateOutput{}, fmt.Errorf("invalid rats path: %w", err)
	}

	steps := args.Steps
	if steps == 0 {
		steps = 1
	}
	if steps < 0 || steps > maxSimulateSteps {
		return nil, GraphratSimulateOutput{}, fmt.Errorf("steps must be between 1 and %d, got %d", maxSimulateSteps, steps)
	}

	seed := args.Seed
	if seed == 0 {
		seed = rng.DefaultSeed
	}

	modeName := args.Mode
	if modeName == "" {
		modeName = "batched"
	}
	fraction := args.BatchFraction
	if fraction == 0 {
		fraction = sim.DefaultBatchFraction
	}
	mode, err := sim.ParseMode(modeName, fraction)
	if err != nil {
		return nil, GraphratSimulateOutput{}, err
	}

	threads := args.Threads
	if threads <= 0 {
		threads = s.threads
	}
	threads = min(threads, runtime.GOMAXPROCS(0))

	opts := []simulation.Option{simulation.WithLogger(s.logger)}
	if args.Record {
		opts = append(opts, simulation.WithStore(s.store))
	}
	out, err := simulation.NewRunner(opts...).Run(ctx, simulation.Scenario{
		GraphPath: graphPath,
		RatsPath:  ratsPath,
		Steps:     steps,
		Seed:      seed,
		Mode:      mode,
		Threads:   threads,
		Quiet:     true,
	})
	if err != nil {
		return nil, GraphratSimulateOutput{}, err
	}
	runID = out.RunID

	result := GraphratSimulateOutput{
		RunID:     out.RunID,
		Mode:      out.Mode,
		BatchSize: out.Result.BatchSize,
		Steps:     out.Result.Steps,
		Nodes:     out.Result.Nodes,
		Rats:      out.Result.Rats,
		Fallbacks: out.Result.Fallbacks,
		ElapsedMs: out.Result.Elapsed.Milliseconds(),
		MRPS:      out.Result.MegaRatsPerSecond(),
		Initial:   out.Initial,
		Final:     out.Final,
		Message: fmt.Sprintf("Simulated %d rats on %d nodes for %d steps (%s mode); occupancy stddev %.3f -> %.3f",
			out.Result.Rats, out.Result.Nodes, out.Result.Steps, out.Mode, out.Initial.StdDev, out.Final.StdDev),
	}
	if args.IncludeCounts {
		result.Counts = out.Counts
	}
	if out.RunID != 0 {
		result.Message += fmt.Sprintf(" [recorded as run %d]", out.RunID)
	}
	return nil, result, nil
}

// handleGraphratRuns implements the graphrat_runs tool.
func (s *Server) handleGraphratRuns(ctx context.Context, req *sdk.CallToolRequest, args GraphratRunsInput) (_ *sdk.CallToolResult, _ GraphratRunsOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("graphrat_runs", start, retErr, args.ID, sanitizeToolParams(map[string]any{
			"id": args.ID, "limit": args.Limit,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "graphrat_runs"); err != nil {
		return nil, GraphratRunsOutput{}, err
	}

	if args.ID != 0 {
		run, err := s.getRun(ctx, args.ID)
		if err != nil {
			return nil, GraphratRunsOutput{}, err
		}
		snaps, err := s.store.Snapshots(ctx, args.ID)
		if err != nil {
			return nil, GraphratRunsOutput{}, fmt.Errorf("failed to load snapshots: %w", err)
		}
		steps := make([]int, len(snaps))
		for i, snap := range snaps {
			steps[i] = snap.Step
		}
		return nil, GraphratRunsOutput{
			Runs:  []RunListItem{runListItem(*run)},
			Count: 1,
			Steps: steps,
		}, nil
	}

	limit := args.Limit
	if limit <= 0 {
		limit = defaultRunsLimit
	}
	limit = min(limit, maxRunsLimit)

	runs, err := s.store.ListRuns(ctx, limit)
	if err != nil {
		return nil, GraphratRunsOutput{}, fmt.Errorf("failed to list runs: %w", err)
	}
	items := make([]RunListItem, 0, len(runs))
	for _, run := range runs {
		items = append(items, runListItem(run))
	}
	return nil, GraphratRunsOutput{Runs: items, Count: len(items)}, nil
}

// handleGraphratGraph implements the graphrat_graph tool.
func (s *Server) handleGraphratGraph(ctx context.Context, req *sdk.CallToolRequest, args GraphratGraphInput) (_ *sdk.CallToolResult, _ GraphratGraphOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("graphrat_graph", start, retErr, args.RunID, sanitizeToolParams(map[string]any{
			"graph": args.Graph, "format": args.Format, "run_id": args.RunID,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "graphrat_graph"); err != nil {
		return nil, GraphratGraphOutput{}, err
	}

	format := visualization.FormatJSON
	if args.Format != "" {
		var err error
		if format, err = visualization.ParseFormat(args.Format); err != nil {
			return nil, GraphratGraphOutput{}, err
		}
	}

	var run *store.Run
	if args.RunID != 0 {
		var err error
		if run, err = s.getRun(ctx, args.RunID); err != nil {
			return nil, GraphratGraphOutput{}, err
		}
	}
	if format == visualization.FormatHTML && run == nil {
		return nil, GraphratGraphOutput{}, errors.New("html format requires run_id")
	}

	graphArg := args.Graph
	if graphArg == "" && run != nil {
		graphArg = run.GraphPath
	}
	if graphArg == "" {
		return nil, GraphratGraphOutput{}, errors.New("graph is required unless run_id names a recorded run")
	}
	graphPath, err := pathutil.Resolve(s.root, graphArg, s.allowedDirs)
	if err != nil {
		return nil, GraphratGraphOutput{}, fmt.Errorf("invalid graph path: %w", err)
	}
	g, err := graph.Load(graphPath)
	if err != nil {
		return nil, GraphratGraphOutput{}, err
	}

	var counts []int32
	if run != nil {
		if run.Nodes != g.NodeCount() {
			return nil, GraphratGraphOutput{}, fmt.Errorf("run %d has %d nodes but the graph has %d", run.ID, run.Nodes, g.NodeCount())
		}
		counts = run.FinalCounts
	}

	result := GraphratGraphOutput{
		Format:    string(format),
		NodeCount: g.NodeCount(),
		EdgeCount: len(visualization.CollectEdges(g)),
	}

	switch format {
	case visualization.FormatDOT:
		result.Graph = visualization.RenderDOT(g, counts)
	case visualization.FormatJSON:
		result.Graph = visualization.RenderJSON(g, counts)
	case visualization.FormatHTML:
		html, err := visualization.RenderRunHTML(ctx, s.store, run)
		if err != nil {
			return nil, GraphratGraphOutput{}, fmt.Errorf("render HTML: %w", err)
		}
		result.Graph = string(html)
	}
	return nil, result, nil
}

func (s *Server) getRun(ctx context.Context, id int64) (*store.Run, error) {
	run, err := s.store.GetRun(ctx, id)
	if errors.Is(err, store.ErrRunNotFound) {
		return nil, fmt.Errorf("run %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %d: %w", id, err)
	}
	return run, nil
}

func runListItem(run store.Run) RunListItem {
	return RunListItem{
		ID:        run.ID,
		Status:    run.Status,
		GraphPath: run.GraphPath,
		RatsPath:  run.RatsPath,
		Nodes:     run.Nodes,
		Rats:      run.Rats,
		Steps:     run.Steps,
		Seed:      run.Seed,
		Mode:      run.Mode,
		Threads:   run.Threads,
		StartedAt: run.StartedAt,
		ElapsedMs: run.Elapsed.Milliseconds(),
		Fallbacks: run.Fallbacks,
		Error:     run.Error,
	}
}
