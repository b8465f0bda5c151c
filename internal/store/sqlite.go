package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteRunStore implements RunStore using SQLite for persistence.
type SQLiteRunStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
}

// NewSQLiteRunStore creates a new SQLiteRunStore rooted at root.
// It creates the database at .graphrat/graphrat.db.
func NewSQLiteRunStore(root string) (*SQLiteRunStore, error) {
	dir := LocalPath(root)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create .graphrat directory: %w", err)
	}
	dbPath := filepath.Join(dir, "graphrat.db")

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteRunStore{db: db, dbPath: dbPath}, nil
}

// Path returns the database file path.
func (s *SQLiteRunStore) Path() string { return s.dbPath }

// CreateRun registers a new run.
func (s *SQLiteRunStore) CreateRun(ctx context.Context, p RunParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (
			graph_path, rats_path, nodes, edges, rats, steps, seed, mode,
			batch_size, threads, display_interval, status, started_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.GraphPath, p.RatsPath, p.Nodes, p.Edges, p.Rats, p.Steps, int64(p.Seed), p.Mode,
		p.BatchSize, p.Threads, p.DisplayInterval, StatusRunning, formatTime(time.Now()))
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}
	return id, nil
}

// RecordSnapshot stores the counts of one step.
func (s *SQLiteRunStore) RecordSnapshot(ctx context.Context, runID int64, step int, counts []int32) error {
	data, err := json.Marshal(counts)
	if err != nil {
		return fmt.Errorf("failed to marshal counts: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO snapshots (run_id, step, counts) VALUES (?, ?, ?)`,
		runID, step, string(data))
	if err != nil {
		return fmt.Errorf("failed to record snapshot for run %d step %d: %w", runID, step, err)
	}
	return nil
}

// FinishRun records the outcome of a run.
func (s *SQLiteRunStore) FinishRun(ctx context.Context, runID int64, summary RunSummary) error {
	status := summary.Status
	if status == "" {
		status = StatusFinished
	}
	var counts sql.NullString
	var hash sql.NullString
	if summary.FinalCounts != nil {
		data, err := json.Marshal(summary.FinalCounts)
		if err != nil {
			return fmt.Errorf("failed to marshal final counts: %w", err)
		}
		counts = sql.NullString{String: string(data), Valid: true}
		hash = sql.NullString{String: CountsHash(summary.FinalCounts), Valid: true}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, finished_at = ?, elapsed_ns = ?, fallbacks = ?,
			final_counts = ?, counts_hash = ?, error = ?
		WHERE id = ?`,
		status, formatTime(time.Now()), int64(summary.Elapsed), summary.Fallbacks,
		counts, hash, nullString(summary.Error), runID)
	if err != nil {
		return fmt.Errorf("failed to finish run %d: %w", runID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}
	return nil
}

const runColumns = `id, graph_path, rats_path, nodes, edges, rats, steps, seed, mode,
	batch_size, threads, display_interval, status, started_at, finished_at,
	elapsed_ns, fallbacks, final_counts, counts_hash, error`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		r                      Run
		seed, elapsed          int64
		startedAt              string
		finishedAt, finalJSON  sql.NullString
		countsHash, errMessage sql.NullString
	)
	if err := row.Scan(&r.ID, &r.GraphPath, &r.RatsPath, &r.Nodes, &r.Edges, &r.Rats, &r.Steps,
		&seed, &r.Mode, &r.BatchSize, &r.Threads, &r.DisplayInterval, &r.Status, &startedAt,
		&finishedAt, &elapsed, &r.Fallbacks, &finalJSON, &countsHash, &errMessage); err != nil {
		return nil, err
	}
	r.Seed = uint32(seed)
	r.Elapsed = time.Duration(elapsed)
	r.StartedAt = parseTime(startedAt)
	if finishedAt.Valid {
		t := parseTime(finishedAt.String)
		r.FinishedAt = &t
	}
	if finalJSON.Valid {
		if err := json.Unmarshal([]byte(finalJSON.String), &r.FinalCounts); err != nil {
			return nil, fmt.Errorf("failed to decode final counts of run %d: %w", r.ID, err)
		}
	}
	r.CountsHash = countsHash.String
	r.Error = errMessage.String
	return &r, nil
}

// GetRun returns a run by ID.
func (s *SQLiteRunStore) GetRun(ctx context.Context, id int64) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %d: %w", id, err)
	}
	return r, nil
}

// ListRuns returns up to limit runs, newest first.
func (s *SQLiteRunStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// Snapshots returns a run's snapshots in step order.
func (s *SQLiteRunStore) Snapshots(ctx context.Context, runID int64) ([]Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, runID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to look up run %d: %w", runID, err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT step, counts FROM snapshots WHERE run_id = ? ORDER BY step`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		var snap Snapshot
		var data string
		if err := rows.Scan(&snap.Step, &data); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &snap.Counts); err != nil {
			return nil, fmt.Errorf("failed to decode snapshot %d of run %d: %w", snap.Step, runID, err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// DeleteRun removes a run; its snapshots go with it through the cascade.
func (s *SQLiteRunStore) DeleteRun(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	return nil
}

// FindByCountsHash returns the IDs of finished runs whose final counts hash
// to hash, oldest first.
func (s *SQLiteRunStore) FindByCountsHash(ctx context.Context, hash string) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM runs WHERE counts_hash = ? ORDER BY id`, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs by hash: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the database.
func (s *SQLiteRunStore) Close() error {
	return s.db.Close()
}

// Helper functions

// CountsHash fingerprints a count vector.
func CountsHash(counts []int32) string {
	h := sha256.New()
	var buf [4]byte
	for _, c := range counts {
		binary.LittleEndian.PutUint32(buf[:], uint32(c))
		h.Write(buf[:])
	}
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:8]) // First 8 bytes for shorter hash
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
