package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RunRecord is one row of the runs table.
type RunRecord struct {
	ID         string
	Mode       string
	Input      string
	Workers    int
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     string
	Loaded     int
	NoData     int
	Failed     int
	Rows       int64
}

// TableRecord is one row of the table_loads table.
type TableRecord struct {
	Table    string
	Worker   string
	Path     string
	Outcome  string
	Rows     int64
	Duration time.Duration
	Error    string
}

// Runs returns the most recent runs, newest first.
func (j *Journal) Runs(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, mode, input, workers, started_at, finished_at, status, loaded, no_data, failed, row_count
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var (
			r        RunRecord
			started  string
			finished sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Mode, &r.Input, &r.Workers, &started, &finished,
			&r.Status, &r.Loaded, &r.NoData, &r.Failed, &r.Rows); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("run %s: bad started_at: %w", r.ID, err)
		}
		if finished.Valid {
			ft, err := time.Parse(time.RFC3339Nano, finished.String)
			if err != nil {
				return nil, fmt.Errorf("run %s: bad finished_at: %w", r.ID, err)
			}
			r.FinishedAt = &ft
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Tables returns the per-table records of a run in settle order.
func (j *Journal) Tables(ctx context.Context, runID string) ([]TableRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT table_name, worker, path, outcome, row_count, duration_ms, error
		FROM table_loads WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("query table loads: %w", err)
	}
	defer rows.Close()

	var out []TableRecord
	for rows.Next() {
		var (
			t      TableRecord
			ms     int64
			errMsg sql.NullString
		)
		if err := rows.Scan(&t.Table, &t.Worker, &t.Path, &t.Outcome, &t.Rows, &ms, &errMsg); err != nil {
			return nil, fmt.Errorf("scan table load: %w", err)
		}
		t.Duration = time.Duration(ms) * time.Millisecond
		t.Error = errMsg.String
		out = append(out, t)
	}
	return out, rows.Err()
}
