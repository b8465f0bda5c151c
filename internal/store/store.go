// Package store defines the RunStore interface for recording simulation
// runs and their occupancy snapshots.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrRunNotFound is returned when a run ID does not exist.
var ErrRunNotFound = errors.New("run not found")

// Run statuses.
const (
	StatusRunning  = "running"
	StatusFinished = "finished"
	StatusFailed   = "failed"
)

// RunParams describes the inputs of a run.
type RunParams struct {
	GraphPath       string `json:"graph_path"`
	RatsPath        string `json:"rats_path"`
	Nodes           int    `json:"nodes"`
	Edges           int    `json:"edges"`
	Rats            int    `json:"rats"`
	Steps           int    `json:"steps"`
	Seed            uint32 `json:"seed"`
	Mode            string `json:"mode"`
	BatchSize       int    `json:"batch_size"`
	Threads         int    `json:"threads"`
	DisplayInterval int    `json:"display_interval"`
}

// RunSummary describes how a run ended.
type RunSummary struct {
	Status      string        `json:"status"`
	Elapsed     time.Duration `json:"elapsed"`
	Fallbacks   int64         `json:"fallbacks"`
	FinalCounts []int32       `json:"final_counts,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// Run is a recorded run.
type Run struct {
	ID int64 `json:"id"`
	RunParams
	Status      string        `json:"status"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  *time.Time    `json:"finished_at,omitempty"`
	Elapsed     time.Duration `json:"elapsed"`
	Fallbacks   int64         `json:"fallbacks"`
	FinalCounts []int32       `json:"final_counts,omitempty"`
	CountsHash  string        `json:"counts_hash,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// Snapshot is one recorded occupancy vector.
type Snapshot struct {
	Step   int     `json:"step"`
	Counts []int32 `json:"counts"`
}

// RunStore records runs and their snapshots.
type RunStore interface {
	// CreateRun registers a new run in the running state and returns its ID.
	CreateRun(ctx context.Context, params RunParams) (int64, error)

	// RecordSnapshot stores the counts of one step. Recording the same
	// step twice replaces the earlier counts.
	RecordSnapshot(ctx context.Context, runID int64, step int, counts []int32) error

	// FinishRun marks the run finished or failed.
	FinishRun(ctx context.Context, runID int64, summary RunSummary) error

	// GetRun returns a run or ErrRunNotFound.
	GetRun(ctx context.Context, id int64) (*Run, error)

	// ListRuns returns up to limit runs, newest first. A limit of zero or
	// less returns every run.
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// Snapshots returns a run's snapshots in step order.
	Snapshots(ctx context.Context, runID int64) ([]Snapshot, error)

	// DeleteRun removes a run and its snapshots.
	DeleteRun(ctx context.Context, id int64) error

	Close() error
}
