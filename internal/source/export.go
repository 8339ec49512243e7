package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vvka-141/pgfastload/internal/files/datafile"
	"github.com/vvka-141/pgfastload/internal/files/filesystem"
	"github.com/vvka-141/pgfastload/internal/retry"
	"github.com/vvka-141/pgfastload/pkg/fastload"
)

// Options selects what to export and where.
type Options struct {
	OutputDir string
	Schema    string
	// Tables filters by "schema.table" or bare table name, case-insensitively.
	Tables  []string
	Gzip    bool
	Workers int
}

// TableResult reports one exported table.
type TableResult struct {
	Table    Table
	Path     string
	Rows     int64
	Duration time.Duration
	Err      error
}

// Report is the outcome of an export.
type Report struct {
	Tables []TableResult
}

// Failed returns the results that carry an error.
func (r *Report) Failed() []TableResult {
	var out []TableResult
	for _, t := range r.Tables {
		if t.Err != nil {
			out = append(out, t)
		}
	}
	return out
}

// Exporter writes source tables to data files.
type Exporter struct {
	src        Source
	fsProvider filesystem.FileSystemProvider
	executor   *retry.Executor
	logger     fastload.Logger
}

// NewExporter creates an exporter. Reading a table is retried on transient
// SQL Server errors.
func NewExporter(src Source, fsProvider filesystem.FileSystemProvider, logger fastload.Logger) *Exporter {
	return &Exporter{
		src:        src,
		fsProvider: fsProvider,
		executor:   retry.NewDefaultExecutor(retry.NewSQLServerErrorClassifier()),
		logger:     logger,
	}
}

// WithExecutor replaces the retry executor.
func (e *Exporter) WithExecutor(executor *retry.Executor) *Exporter {
	clone := *e
	clone.executor = executor
	return &clone
}

// Export writes every selected table, opts.Workers at a time. A failing
// table does not stop the others; the returned error wraps ErrExportFailed
// and joins every table error.
func (e *Exporter) Export(ctx context.Context, opts Options) (*Report, error) {
	all, err := e.src.ListTables(ctx, opts.Schema)
	if err != nil {
		return nil, err
	}
	tables, err := selectTables(all, opts.Tables)
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("no source tables selected: %w", fastload.ErrInvalidConfig)
	}
	e.logger.Info("Exporting %d tables to %s", len(tables), opts.OutputDir)

	report := &Report{Tables: make([]TableResult, len(tables))}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Workers, 1))
	for i, t := range tables {
		g.Go(func() error {
			report.Tables[i] = e.exportWithRetry(gctx, t, opts)
			// Only cancellation stops the group; table errors are collected.
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	var errs []error
	for _, f := range report.Failed() {
		errs = append(errs, fmt.Errorf("%s: %w", f.Table, f.Err))
	}
	if len(errs) > 0 {
		return report, fmt.Errorf("%w: %d of %d tables: %w", fastload.ErrExportFailed, len(errs), len(tables), errors.Join(errs...))
	}
	return report, nil
}

func (e *Exporter) exportWithRetry(ctx context.Context, t Table, opts Options) TableResult {
	res := TableResult{
		Table: t,
		Path:  filepath.Join(opts.OutputDir, datafile.FileName(t.Schema, t.Name, opts.Gzip)),
	}
	executor := e.executor.WithOnRetry(func(attempt int, err error, delay time.Duration) {
		e.logger.Warn("%s: export failed (attempt %d), retrying in %s: %v", t, attempt+1, delay, err)
	})

	start := time.Now()
	res.Err = executor.Execute(ctx, func(ctx context.Context) error {
		rows, err := e.ExportTable(ctx, t, res.Path, opts.Gzip)
		res.Rows = rows
		return err
	})
	res.Duration = time.Since(start)

	if res.Err != nil {
		e.logger.Error("%s: %v", t, res.Err)
	} else {
		e.logger.Verbose("%s: %d rows to %s in %s", t, res.Rows, res.Path, res.Duration.Round(time.Millisecond))
	}
	return res
}

// ExportTable writes one table to path and returns the row count.
func (e *Exporter) ExportTable(ctx context.Context, t Table, path string, compress bool) (rows int64, err error) {
	src, err := e.src.OpenTable(ctx, t)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	out, err := datafile.Create(e.fsProvider, path, compress)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	w := bufio.NewWriterSize(out, 64*1024)
	cols := src.Columns()
	if err := writeRecord(w, headerFields(cols)); err != nil {
		return 0, err
	}

	values := make([]any, len(cols))
	dest := make([]any, len(cols))
	for i := range values {
		dest[i] = &values[i]
	}
	fields := make([]Field, len(cols))

	for src.Next() {
		if err := src.Scan(dest...); err != nil {
			return rows, fmt.Errorf("scan %s: %w", t, err)
		}
		for i, c := range cols {
			f, err := FormatValue(c.Type, values[i])
			if err != nil {
				return rows, fmt.Errorf("%s.%s: %w", t, c.Name, err)
			}
			fields[i] = f
		}
		if err := writeRecord(w, fields); err != nil {
			return rows, err
		}
		rows++
	}
	if err := src.Err(); err != nil {
		return rows, fmt.Errorf("read %s: %w", t, err)
	}
	return rows, w.Flush()
}

// selectTables filters tables by name. Every filter must match a table.
func selectTables(all []Table, filters []string) ([]Table, error) {
	if len(filters) == 0 {
		return all, nil
	}
	var (
		out     []Table
		missing []string
	)
	picked := make(map[Table]bool)
	for _, f := range filters {
		found := false
		for _, t := range all {
			if strings.EqualFold(f, t.String()) || strings.EqualFold(f, t.Name) {
				found = true
				if !picked[t] {
					picked[t] = true
					out = append(out, t)
				}
			}
		}
		if !found {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("source tables not found: %s: %w", strings.Join(missing, ", "), fastload.ErrInvalidConfig)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}
