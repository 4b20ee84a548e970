// Package history persists pipeline run records in a local SQLite
// database, so past deploys can be listed and inspected offline.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/AaronHausheer/liftoff/internal/model"
)

// ErrNoRuns is returned by lookups when no matching run exists.
var ErrNoRuns = errors.New("no runs recorded")

// Store is a SQLite-backed run history.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the history database at path.
// Use ":memory:" for an in-memory database, or a file path for
// persistent storage; parent directories are created as needed.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	// In-memory databases are per-connection with this driver: a second
	// pooled connection would see an empty schema. One connection also
	// sidesteps SQLITE_BUSY on concurrent writes.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, fmt.Errorf("initialize history schema: %w", err)
	}

	return store, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		commit_sha TEXT NOT NULL DEFAULT '',
		branch TEXT NOT NULL DEFAULT '',
		dirty INTEGER NOT NULL DEFAULT 0,
		deploy_url TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS phases (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		phase TEXT NOT NULL,
		status TEXT NOT NULL,
		exit_code INTEGER NOT NULL,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL,
		PRIMARY KEY (run_id, seq)
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save persists a run record and its phase results atomically.
func (s *Store) Save(ctx context.Context, rec *model.RunRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, outcome, commit_sha, branch, dirty, deploy_url)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, encodeTime(rec.StartedAt), encodeTime(rec.FinishedAt),
		rec.Outcome.String(), rec.Commit, rec.Branch, boolToInt(rec.Dirty), rec.DeployURL,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for seq, ph := range rec.Phases {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO phases (run_id, seq, phase, status, exit_code, started_at, finished_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, seq, ph.Phase.String(), ph.Status.String(), ph.ExitCode,
			encodeTime(ph.StartedAt), encodeTime(ph.FinishedAt),
		)
		if err != nil {
			return fmt.Errorf("insert phase %s: %w", ph.Phase, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// Recent returns up to limit runs, newest first. With failedOnly set,
// only failed runs are returned.
func (s *Store) Recent(ctx context.Context, limit int, failedOnly bool) ([]model.RunRecord, error) {
	query := `SELECT id, started_at, finished_at, outcome, commit_sha, branch, dirty, deploy_url
		 FROM runs`
	args := []any{}
	if failedOnly {
		query += ` WHERE outcome = ?`
		args = append(args, model.OutcomeFailed.String())
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	records, err := s.scanRuns(rows)
	if err != nil {
		return nil, err
	}

	for i := range records {
		if err := s.loadPhases(ctx, &records[i]); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// Latest returns the most recent run, or ErrNoRuns when the history is
// empty.
func (s *Store) Latest(ctx context.Context) (*model.RunRecord, error) {
	records, err := s.Recent(ctx, 1, false)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoRuns
	}
	return &records[0], nil
}

// LatestDeployURL returns the deployment URL of the most recent run
// that produced one, or ErrNoRuns when none exists.
func (s *Store) LatestDeployURL(ctx context.Context) (string, error) {
	var url string
	err := s.db.QueryRowContext(ctx,
		`SELECT deploy_url FROM runs WHERE deploy_url != '' ORDER BY started_at DESC LIMIT 1`,
	).Scan(&url)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoRuns
	}
	if err != nil {
		return "", fmt.Errorf("query latest deploy url: %w", err)
	}
	return url, nil
}

func (s *Store) scanRuns(rows *sql.Rows) ([]model.RunRecord, error) {
	var records []model.RunRecord
	for rows.Next() {
		var rec model.RunRecord
		var startedAt, finishedAt int64
		var outcome string
		var dirty int

		err := rows.Scan(&rec.ID, &startedAt, &finishedAt, &outcome,
			&rec.Commit, &rec.Branch, &dirty, &rec.DeployURL)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}

		rec.StartedAt = decodeTime(startedAt)
		rec.FinishedAt = decodeTime(finishedAt)
		rec.Outcome = model.RunOutcome(outcome)
		rec.Dirty = dirty != 0

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return records, nil
}

func (s *Store) loadPhases(ctx context.Context, rec *model.RunRecord) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT phase, status, exit_code, started_at, finished_at
		 FROM phases WHERE run_id = ? ORDER BY seq`,
		rec.ID,
	)
	if err != nil {
		return fmt.Errorf("query phases: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ph model.PhaseResult
		var phase, status string
		var startedAt, finishedAt int64

		err := rows.Scan(&phase, &status, &ph.ExitCode, &startedAt, &finishedAt)
		if err != nil {
			return fmt.Errorf("scan phase: %w", err)
		}

		ph.Phase = model.Phase(phase)
		ph.Status = model.PhaseStatus(status)
		ph.StartedAt = decodeTime(startedAt)
		ph.FinishedAt = decodeTime(finishedAt)

		rec.Phases = append(rec.Phases, ph)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate phases: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// encodeTime stores timestamps as unix nanoseconds; the zero time
// becomes 0 so it round-trips.
func encodeTime(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func decodeTime(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
