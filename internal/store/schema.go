package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// SchemaVersion is the version InitSchema migrates to.
const SchemaVersion = 2

// schemaV1 holds runs and their per-step occupancy snapshots.
const schemaV1 = `
-- One row per simulation run
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    graph_path TEXT NOT NULL,
    rats_path TEXT NOT NULL,
    nodes INTEGER NOT NULL,
    edges INTEGER NOT NULL,
    rats INTEGER NOT NULL,
    steps INTEGER NOT NULL,
    seed INTEGER NOT NULL,
    mode TEXT NOT NULL,        -- 'synchronous', 'rat-order', 'batched'
    batch_size INTEGER NOT NULL,
    threads INTEGER NOT NULL,
    display_interval INTEGER NOT NULL,

    status TEXT NOT NULL,      -- 'running', 'finished', 'failed'
    started_at TEXT NOT NULL,
    finished_at TEXT,
    elapsed_ns INTEGER DEFAULT 0,
    fallbacks INTEGER DEFAULT 0,
    final_counts TEXT,         -- JSON array
    error TEXT
);

-- Occupancy counts per recorded step
CREATE TABLE IF NOT EXISTS snapshots (
    run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    step INTEGER NOT NULL,
    counts TEXT NOT NULL,      -- JSON array
    PRIMARY KEY (run_id, step)
);

-- Schema version
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);
`

// schemaV2 adds a fingerprint of the final counts so runs with identical
// outcomes can be found without loading their snapshots.
const schemaV2 = `
ALTER TABLE runs ADD COLUMN counts_hash TEXT;
CREATE INDEX IF NOT EXISTS idx_runs_counts_hash ON runs(counts_hash);
`

// migrations[i] brings a database from version i to version i+1.
var migrations = []string{schemaV1, schemaV2}

// InitSchema brings db up to SchemaVersion. Existing databases are
// integrity-checked before any migration runs.
func InitSchema(ctx context.Context, db *sql.DB) error {
	version, err := getSchemaVersion(ctx, db)
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	if version > 0 {
		if err := ValidateIntegrity(ctx, db); err != nil {
			return fmt.Errorf("database integrity check failed: %w", err)
		}
	}
	if version >= SchemaVersion {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for v := version; v < SchemaVersion; v++ {
		if _, err := tx.ExecContext(ctx, migrations[v]); err != nil {
			return fmt.Errorf("applying schema v%d: %w", v+1, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_version (version, applied_at) VALUES (?, datetime('now'))`,
		SchemaVersion); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return tx.Commit()
}

// getSchemaVersion returns the highest applied version, or 0 for a database
// that has never been initialized.
func getSchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var tables int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'schema_version'`,
	).Scan(&tables); err != nil {
		return 0, err
	}
	if tables == 0 {
		return 0, nil
	}

	var version sql.NullInt64
	if err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&version); err != nil {
		return 0, err
	}
	return int(version.Int64), nil
}

// ValidateIntegrity fails when PRAGMA integrity_check reports anything but
// "ok" or PRAGMA foreign_key_check reports any row.
func ValidateIntegrity(ctx context.Context, db *sql.DB) error {
	var result string
	if err := db.QueryRowContext(ctx, `PRAGMA integrity_check`).Scan(&result); err != nil {
		return fmt.Errorf("running integrity_check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity_check: %s", result)
	}

	rows, err := db.QueryContext(ctx, `PRAGMA foreign_key_check`)
	if err != nil {
		return fmt.Errorf("running foreign_key_check: %w", err)
	}
	defer rows.Close()

	var orphans []string
	for rows.Next() {
		var table, parent string
		var rowid, fkid sql.NullInt64
		if err := rows.Scan(&table, &rowid, &parent, &fkid); err != nil {
			return fmt.Errorf("scanning foreign_key_check: %w", err)
		}
		orphans = append(orphans, fmt.Sprintf("%s row %d references missing %s", table, rowid.Int64, parent))
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(orphans) > 0 {
		return fmt.Errorf("foreign_key_check: %s", strings.Join(orphans, "; "))
	}
	return nil
}
