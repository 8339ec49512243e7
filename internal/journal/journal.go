// Package journal records load runs and per-table outcomes in a SQLite
// file, so a later `pgfastload history` can show what happened.
//
// Timestamps are stored as RFC3339Nano text.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/vvka-141/pgfastload/internal/scheduler"
	"github.com/vvka-141/pgfastload/pkg/fastload"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	mode        TEXT NOT NULL,
	input       TEXT NOT NULL,
	workers     INTEGER NOT NULL,
	started_at  TEXT NOT NULL,
	finished_at TEXT,
	status      TEXT NOT NULL,
	loaded      INTEGER NOT NULL DEFAULT 0,
	no_data     INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0,
	row_count   INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS table_loads (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	table_name  TEXT NOT NULL,
	worker      TEXT NOT NULL,
	path        TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	row_count   INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	error       TEXT,
	settled_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS table_loads_run ON table_loads(run_id);
`

// Journal is an open journal file.
type Journal struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the journal at path.
func Open(ctx context.Context, path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	// Workers write concurrently; one connection serializes them.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create journal tables: %w", err)
	}
	return &Journal{db: db, now: time.Now}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// RunInfo describes a run at start.
type RunInfo struct {
	Mode    string
	Input   string
	Workers int
}

// Run records events for one run. It is a scheduler.Observer.
type Run struct {
	ID      string
	journal *Journal
	logger  fastload.Logger
}

// StartRun inserts a running run and returns its recorder. Failures to
// record individual tables later are logged through logger, not returned.
func (j *Journal) StartRun(ctx context.Context, info RunInfo, logger fastload.Logger) (*Run, error) {
	id := uuid.NewString()
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO runs (id, mode, input, workers, started_at, status) VALUES (?, ?, ?, ?, ?, ?)`,
		id, info.Mode, info.Input, info.Workers, j.timestamp(), StatusRunning)
	if err != nil {
		return nil, fmt.Errorf("record run: %w", err)
	}
	return &Run{ID: id, journal: j, logger: logger}, nil
}

func (r *Run) TableSettled(ev scheduler.Event) {
	var errText sql.NullString
	if ev.Err != nil {
		errText = sql.NullString{String: ev.Err.Error(), Valid: true}
	}
	_, err := r.journal.db.ExecContext(context.Background(),
		`INSERT INTO table_loads (run_id, table_name, worker, path, outcome, row_count, duration_ms, error, settled_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, ev.Table.String(), ev.Worker.String(), ev.Path, ev.Outcome.String(),
		ev.Rows, ev.Duration.Milliseconds(), errText, r.journal.timestamp())
	if err != nil {
		r.logger.Warn("journal: cannot record %s: %v", ev.Table, err)
	}
}

// Finish stores the final status and counts.
func (r *Run) Finish(ctx context.Context, status string, s scheduler.Summary) error {
	_, err := r.journal.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, status = ?, loaded = ?, no_data = ?, failed = ?, row_count = ? WHERE id = ?`,
		r.journal.timestamp(), status, s.Loaded, s.NoData, s.Failed, s.Rows, r.ID)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", r.ID, err)
	}
	return nil
}

func (j *Journal) timestamp() string {
	return j.now().UTC().Format(time.RFC3339Nano)
}

var _ scheduler.Observer = (*Run)(nil)
