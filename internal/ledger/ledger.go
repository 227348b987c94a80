// Package ledger keeps a SQLite history of build runs and per-page outcomes.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite" // SQLite driver
)

// FileName is the ledger database file name.
const FileName = "ledger.db"

// ErrRunNotFound is returned for unknown run IDs.
var ErrRunNotFound = errors.New("run not found")

// Run is one build invocation.
type Run struct {
	ID         int64      `json:"id"`
	DatabaseID string     `json:"database_id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Pages      int        `json:"pages"`
}

// Entry is the recorded outcome of one page in a run.
type Entry struct {
	RunID   int64  `json:"run_id"`
	PageID  string `json:"page_id"`
	Outcome string `json:"outcome"`
	Reason  string `json:"reason,omitempty"`
	Title   string `json:"title,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Ledger is a build history store.
type Ledger struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// DefaultPath returns $XDG_DATA_HOME/notion/ledger.db.
func DefaultPath() string {
	return filepath.Join(xdg.DataHome, "notion", FileName)
}

// Open opens or creates the ledger at path, creating parent directories.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	l := &Ledger{db: db, path: path, now: time.Now}
	if err := l.createTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create ledger tables: %w", err)
	}
	return l, nil
}

// Path returns the database file path.
func (l *Ledger) Path() string { return l.path }

// Close closes the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) createTables(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		database_id TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT
	);

	CREATE TABLE IF NOT EXISTS outcomes (
		run_id INTEGER NOT NULL REFERENCES runs(id),
		page_id TEXT NOT NULL,
		outcome TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (run_id, page_id)
	);

	CREATE INDEX IF NOT EXISTS idx_outcomes_page ON outcomes(page_id);
	`
	_, err := l.db.ExecContext(ctx, schema)
	return err
}

// StartRun records the start of a build and returns its ID.
func (l *Ledger) StartRun(ctx context.Context, databaseID string) (int64, error) {
	res, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (database_id, started_at) VALUES (?, ?)`,
		databaseID, formatTime(l.now()),
	)
	if err != nil {
		return 0, fmt.Errorf("start run: %w", err)
	}
	return res.LastInsertId()
}

// RecordOutcome stores one page outcome. Recording the same page twice in
// a run replaces the earlier entry.
func (l *Ledger) RecordOutcome(ctx context.Context, e Entry) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO outcomes (run_id, page_id, outcome, reason, title, error)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.RunID, e.PageID, e.Outcome, e.Reason, e.Title, e.Error,
	)
	if err != nil {
		return fmt.Errorf("record outcome for %s: %w", e.PageID, err)
	}
	return nil
}

// FinishRun marks a run as finished.
func (l *Ledger) FinishRun(ctx context.Context, runID int64) error {
	res, err := l.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ? WHERE id = ?`,
		formatTime(l.now()), runID,
	)
	if err != nil {
		return fmt.Errorf("finish run %d: %w", runID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("finish run %d: %w", runID, ErrRunNotFound)
	}
	return nil
}

// Runs returns the most recent runs first. A limit of zero or less returns
// every run.
func (l *Ledger) Runs(ctx context.Context, limit int) ([]Run, error) {
	query := `
	SELECT r.id, r.database_id, r.started_at, r.finished_at, COUNT(o.page_id)
	FROM runs r
	LEFT JOIN outcomes o ON o.run_id = r.id
	GROUP BY r.id
	ORDER BY r.id DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		var (
			run      Run
			started  string
			finished sql.NullString
		)
		if err := rows.Scan(&run.ID, &run.DatabaseID, &started, &finished, &run.Pages); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if run.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if finished.Valid {
			t, err := parseTime(finished.String)
			if err != nil {
				return nil, err
			}
			run.FinishedAt = &t
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Outcomes returns the entries of a run ordered by page ID.
func (l *Ledger) Outcomes(ctx context.Context, runID int64) ([]Entry, error) {
	var exists int
	err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, runID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("look up run %d: %w", runID, err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("run %d: %w", runID, ErrRunNotFound)
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT run_id, page_id, outcome, reason, title, error
		 FROM outcomes WHERE run_id = ? ORDER BY page_id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.RunID, &e.PageID, &e.Outcome, &e.Reason, &e.Title, &e.Error); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse ledger time %q: %w", s, err)
	}
	return t, nil
}
