// Package runregistry is the durable run-number counter and run audit
// trail the NeXus writer consults across restarts.
package runregistry

import (
	"database/sql"
	"embed"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Registry wraps a sqlite database tracking the run-number sequence and a
// row per run for auditing which files were written and when.
type Registry struct {
	db *sql.DB
}

// Open creates or reuses the sqlite database at dsn and applies any
// outstanding migrations.
func Open(dsn string) (*Registry, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("runregistry: open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("runregistry: set WAL mode: %w", err)
	}
	r := &Registry{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("runregistry: migrate: %w", err)
	}
	return r, nil
}

func (r *Registry) Close() error { return r.db.Close() }

func (r *Registry) migrate() error {
	if _, err := r.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, f := range files {
		var applied int
		if err := r.db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", f).Scan(&applied); err != nil {
			return fmt.Errorf("check migration %s: %w", f, err)
		}
		if applied > 0 {
			continue
		}
		content, err := migrationsFS.ReadFile("migrations/" + f)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", f, err)
		}
		tx, err := r.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx for %s: %w", f, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", f, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", f); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %s: %w", f, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", f, err)
		}
	}
	return nil
}

// NextRunNumber atomically reserves and returns the next run number.
func (r *Registry) NextRunNumber() (uint64, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var next uint64
	if err := tx.QueryRow("SELECT next_run_number FROM run_counter WHERE id = 1").Scan(&next); err != nil {
		return 0, fmt.Errorf("runregistry: read counter: %w", err)
	}
	if _, err := tx.Exec("UPDATE run_counter SET next_run_number = ? WHERE id = 1", next+1); err != nil {
		return 0, fmt.Errorf("runregistry: advance counter: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return next, nil
}

// RecordOpened inserts an audit row when a run file is created.
func (r *Registry) RecordOpened(runNumber uint64, runName, instrumentName, filePath string, startedAt time.Time) error {
	_, err := r.db.Exec(
		`INSERT INTO runs (run_number, run_name, instrument_name, file_path, started_at) VALUES (?, ?, ?, ?, ?)`,
		runNumber, runName, instrumentName, filePath, startedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("runregistry: record opened: %w", err)
	}
	return nil
}

// RecordStopped stamps the stop time once a run_stop message has been seen.
func (r *Registry) RecordStopped(runNumber uint64, stoppedAt time.Time) error {
	_, err := r.db.Exec(`UPDATE runs SET stopped_at = ? WHERE run_number = ?`, stoppedAt.UTC(), runNumber)
	if err != nil {
		return fmt.Errorf("runregistry: record stopped: %w", err)
	}
	return nil
}

// RecordClosed stamps the close time once the file has been flushed and
// closed, optionally flagging it as aborted.
func (r *Registry) RecordClosed(runNumber uint64, closedAt time.Time, aborted bool) error {
	_, err := r.db.Exec(`UPDATE runs SET closed_at = ?, aborted = ? WHERE run_number = ?`, closedAt.UTC(), aborted, runNumber)
	if err != nil {
		return fmt.Errorf("runregistry: record closed: %w", err)
	}
	return nil
}

// OpenRun is a row for a run that was opened but never closed, used on
// startup to detect a crash mid-run.
type OpenRun struct {
	RunNumber      uint64
	RunName        string
	InstrumentName string
	FilePath       string
	StartedAt      time.Time
}

// FindOpenRuns returns runs with no closed_at timestamp, in run-number
// order, so a restart can report runs a previous process left unclosed.
func (r *Registry) FindOpenRuns() ([]OpenRun, error) {
	rows, err := r.db.Query(`SELECT run_number, run_name, instrument_name, file_path, started_at
		FROM runs WHERE closed_at IS NULL ORDER BY run_number ASC`)
	if err != nil {
		return nil, fmt.Errorf("runregistry: find open runs: %w", err)
	}
	defer rows.Close()

	var out []OpenRun
	for rows.Next() {
		var o OpenRun
		if err := rows.Scan(&o.RunNumber, &o.RunName, &o.InstrumentName, &o.FilePath, &o.StartedAt); err != nil {
			return nil, fmt.Errorf("runregistry: scan open run: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
