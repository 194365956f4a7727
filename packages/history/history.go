// Package history persists run results in a SQLite database so that state
// changes between runs can be reported.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/partest/packages/core/runner"
	"github.com/abdul-hamid-achik/partest/packages/core/status"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

// ErrNoRuns is returned when the store holds no run to compare against.
var ErrNoRuns = errors.New("history: no recorded runs")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	started_ns  INTEGER NOT NULL,
	duration_ns INTEGER NOT NULL,
	min_level   INTEGER NOT NULL,
	pattern     TEXT NOT NULL,
	passed      INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	skipped     INTEGER NOT NULL,
	panicked    INTEGER NOT NULL,
	invalid     INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS tests (
	run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	seq         INTEGER NOT NULL,
	name        TEXT NOT NULL,
	level       INTEGER NOT NULL,
	state       INTEGER NOT NULL,
	skip_reason TEXT NOT NULL,
	duration_ns INTEGER NOT NULL,
	messages    TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
);
CREATE INDEX IF NOT EXISTS runs_started ON runs(started_ns);
`

// Run is one row of the runs table
type Run struct {
	ID       string
	Started  time.Time
	Duration time.Duration
	MinLevel int
	Pattern  string
	Passed   int
	Failed   int
	Skipped  int
	Panicked int
	Invalid  int
}

// Total returns the number of registered tests in the run
func (r Run) Total() int {
	return r.Passed + r.Failed + r.Skipped + r.Panicked + r.Invalid
}

// TestRecord is one row of the tests table
type TestRecord struct {
	Name       string
	Level      int
	State      status.State
	SkipReason string
	Duration   time.Duration
	Messages   []string
}

// Change describes a test whose state differs between two runs.
// From is Unset for tests that did not exist in the older run.
type Change struct {
	Name string
	From status.State
	To   status.State
}

// Store represents a history database
type Store struct {
	db           *sql.DB
	queryTimeout time.Duration
}

// Open opens or creates the database. Accepted forms are a plain path,
// sqlite://path and sqlite:path.
func Open(connectionString string) (*Store, error) {
	dsn, err := parseConnectionString(connectionString)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection serialises writers; sqlite allows only one anyway
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db, queryTimeout: 30 * time.Second}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record stores a finished run and all of its tests in one transaction.
func (s *Store) Record(ctx context.Context, result *runner.RunResult) error {
	if result.ID == "" {
		return errors.New("history: run has no id")
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_ns, duration_ns, min_level, pattern, passed, failed, skipped, panicked, invalid)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.ID, result.Started.UnixNano(), int64(result.Duration), result.MinLevel, result.Pattern,
		result.Passed, result.Failed, result.Skipped, result.Panicked, result.Invalid)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO tests (run_id, seq, name, level, state, skip_reason, duration_ns, messages)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare test insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range result.Results {
		msgs, err := json.Marshal(r.Messages)
		if err != nil {
			return fmt.Errorf("failed to encode messages of %s: %w", r.Name, err)
		}
		if _, err := stmt.ExecContext(ctx, result.ID, i, r.Name, r.Level, int(r.State),
			r.SkipReason, int64(r.Duration), string(msgs)); err != nil {
			return fmt.Errorf("failed to insert test %s: %w", r.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_ns, duration_ns, min_level, pattern, passed, failed, skipped, panicked, invalid
		 FROM runs ORDER BY started_ns DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		var r Run
		var started, duration int64
		if err := rows.Scan(&r.ID, &started, &duration, &r.MinLevel, &r.Pattern,
			&r.Passed, &r.Failed, &r.Skipped, &r.Panicked, &r.Invalid); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		r.Started = time.Unix(0, started)
		r.Duration = time.Duration(duration)
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return runs, nil
}

// Tests returns the tests of a run in registry order.
func (s *Store) Tests(ctx context.Context, runID string) ([]TestRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT name, level, state, skip_reason, duration_ns, messages
		 FROM tests WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	tests := make([]TestRecord, 0)
	for rows.Next() {
		var t TestRecord
		var state int
		var duration int64
		var msgs string
		if err := rows.Scan(&t.Name, &t.Level, &state, &t.SkipReason, &duration, &msgs); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		t.State = status.State(state)
		t.Duration = time.Duration(duration)
		if err := json.Unmarshal([]byte(msgs), &t.Messages); err != nil {
			return nil, fmt.Errorf("failed to decode messages of %s: %w", t.Name, err)
		}
		tests = append(tests, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return tests, nil
}

// Changes compares the newest run with the one before it. With a single
// recorded run every test is reported as new.
func (s *Store) Changes(ctx context.Context) ([]Change, error) {
	runs, err := s.Recent(ctx, 2)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrNoRuns
	}

	latest, err := s.Tests(ctx, runs[0].ID)
	if err != nil {
		return nil, err
	}

	previous := map[string]status.State{}
	if len(runs) > 1 {
		older, err := s.Tests(ctx, runs[1].ID)
		if err != nil {
			return nil, err
		}
		for _, t := range older {
			previous[t.Name] = t.State
		}
	}

	changes := make([]Change, 0)
	for _, t := range latest {
		if from := previous[t.Name]; from != t.State {
			changes = append(changes, Change{Name: t.Name, From: from, To: t.State})
		}
	}
	return changes, nil
}

// Prune deletes all but the newest keep runs and returns how many were removed.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	const victims = `SELECT id FROM runs ORDER BY started_ns DESC, rowid DESC LIMIT -1 OFFSET ?`
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tests WHERE run_id IN (`+victims+`)`, keep); err != nil {
		return 0, fmt.Errorf("failed to prune tests: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id IN (`+victims+`)`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	return res.RowsAffected()
}

// parseConnectionString turns the accepted forms into a go-sqlite3 DSN
func parseConnectionString(connStr string) (string, error) {
	connStr = strings.TrimSpace(connStr)

	switch {
	case strings.HasPrefix(connStr, "sqlite://"):
		connStr = strings.TrimPrefix(connStr, "sqlite://")
	case strings.HasPrefix(connStr, "sqlite:"):
		connStr = strings.TrimPrefix(connStr, "sqlite:")
	case strings.Contains(connStr, "://"):
		scheme, _, _ := strings.Cut(connStr, "://")
		return "", fmt.Errorf("unsupported database scheme: %s", scheme)
	}

	if connStr == "" {
		return "", errors.New("history: empty database path")
	}
	return connStr, nil
}
