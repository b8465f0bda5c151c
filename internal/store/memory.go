package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// InMemoryRunStore implements RunStore for testing and for runs that are
// not meant to outlive the process.
type InMemoryRunStore struct {
	mu        sync.RWMutex
	nextID    int64
	runs      map[int64]*Run
	snapshots map[int64]map[int][]int32
}

// NewInMemoryRunStore creates a new in-memory store.
func NewInMemoryRunStore() *InMemoryRunStore {
	return &InMemoryRunStore{
		runs:      make(map[int64]*Run),
		snapshots: make(map[int64]map[int][]int32),
	}
}

// CreateRun registers a new run.
func (s *InMemoryRunStore) CreateRun(ctx context.Context, params RunParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.runs[id] = &Run{
		ID:        id,
		RunParams: params,
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
	}
	s.snapshots[id] = make(map[int][]int32)
	return id, nil
}

// RecordSnapshot stores a copy of counts.
func (s *InMemoryRunStore) RecordSnapshot(ctx context.Context, runID int64, step int, counts []int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snaps, ok := s.snapshots[runID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}
	snaps[step] = slices.Clone(counts)
	return nil
}

// FinishRun records the outcome of a run.
func (s *InMemoryRunStore) FinishRun(ctx context.Context, runID int64, summary RunSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}
	r.Status = summary.Status
	if r.Status == "" {
		r.Status = StatusFinished
	}
	now := time.Now().UTC()
	r.FinishedAt = &now
	r.Elapsed = summary.Elapsed
	r.Fallbacks = summary.Fallbacks
	r.Error = summary.Error
	if summary.FinalCounts != nil {
		r.FinalCounts = slices.Clone(summary.FinalCounts)
		r.CountsHash = CountsHash(summary.FinalCounts)
	}
	return nil
}

// GetRun returns a copy of a run.
func (s *InMemoryRunStore) GetRun(ctx context.Context, id int64) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	out := *r
	out.FinalCounts = slices.Clone(r.FinalCounts)
	return &out, nil
}

// ListRuns returns up to limit runs, newest first.
func (s *InMemoryRunStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, len(s.runs))
	for id := range s.runs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	slices.Reverse(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	runs := make([]Run, 0, len(ids))
	for _, id := range ids {
		runs = append(runs, *s.runs[id])
	}
	return runs, nil
}

// Snapshots returns a run's snapshots in step order.
func (s *InMemoryRunStore) Snapshots(ctx context.Context, runID int64) ([]Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snaps, ok := s.snapshots[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}
	steps := make([]int, 0, len(snaps))
	for step := range snaps {
		steps = append(steps, step)
	}
	slices.Sort(steps)
	out := make([]Snapshot, 0, len(steps))
	for _, step := range steps {
		out = append(out, Snapshot{Step: step, Counts: slices.Clone(snaps[step])})
	}
	return out, nil
}

// DeleteRun removes a run and its snapshots.
func (s *InMemoryRunStore) DeleteRun(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[id]; !ok {
		return fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	delete(s.runs, id)
	delete(s.snapshots, id)
	return nil
}

// Close is a no-op.
func (s *InMemoryRunStore) Close() error { return nil }
