package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"golang.org/x/text/encoding"

	"github.com/vvka-141/pgfastload/internal/bulk"
	"github.com/vvka-141/pgfastload/internal/db"
	"github.com/vvka-141/pgfastload/internal/files/datafile"
	"github.com/vvka-141/pgfastload/internal/files/filesystem"
	"github.com/vvka-141/pgfastload/internal/files/scanner"
	"github.com/vvka-141/pgfastload/internal/retry"
	"github.com/vvka-141/pgfastload/internal/scheduler"
	"github.com/vvka-141/pgfastload/internal/schema"
	"github.com/vvka-141/pgfastload/pkg/fastload"
)

// ScriptCaller is the caller id used for script emission.
const ScriptCaller scheduler.CallerID = "script"

type introspectorFunc func(conn fastload.DBConnection, exclude []string) (schema.Introspector, error)

// LoadService runs load and script jobs.
// Thread-Safety: safe for sequential Run calls; create separate instances
// for concurrent runs.
type LoadService struct {
	connectorFactory func(*fastload.ConnectionConfig) (fastload.Connector, error)
	logger           fastload.Logger
	fsProvider       filesystem.FileSystemProvider
	newIntrospector  introspectorFunc
	executor         *retry.Executor
	now              func() time.Time
}

// NewLoadService creates a LoadService. Panics on nil dependencies, which
// are programmer errors.
func NewLoadService(
	connectorFactory func(*fastload.ConnectionConfig) (fastload.Connector, error),
	logger fastload.Logger,
	fsProvider filesystem.FileSystemProvider,
) *LoadService {
	if connectorFactory == nil {
		panic("connectorFactory cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	if fsProvider == nil {
		panic("fsProvider cannot be nil")
	}
	return &LoadService{
		connectorFactory: connectorFactory,
		logger:           logger,
		fsProvider:       fsProvider,
		newIntrospector: func(conn fastload.DBConnection, exclude []string) (schema.Introspector, error) {
			return schema.NewPgIntrospector(conn, exclude)
		},
		executor: retry.NewDefaultExecutor(retry.NewPostgreSQLErrorClassifier()),
		now:      time.Now,
	}
}

// Plan is everything a run needs before workers start. It is built
// single-threaded and read-only afterwards.
type Plan struct {
	Catalog *schema.Catalog
	Files   scheduler.FileMap
	Jobs    []scheduler.Job
	// Encoding of the data files; nil means UTF-8.
	Encoding encoding.Encoding
	Format   bulk.Format
}

// Report describes a finished run.
type Report struct {
	Summary      scheduler.Summary
	Remaining    int
	WorkerErrors map[scheduler.CallerID]error
	Elapsed      time.Duration
	Script       bool
}

// Err classifies the outcome: ErrLoadFailed when a table failed,
// ErrIncompleteRun when jobs were left in the queue.
func (r *Report) Err() error {
	var errs []error
	if r.Summary.Failed > 0 {
		errs = append(errs, fmt.Errorf("%d of %d tables failed: %w", r.Summary.Failed, r.Summary.Settled(), fastload.ErrLoadFailed))
	}
	if r.Remaining > 0 {
		errs = append(errs, fmt.Errorf("%d files were not processed: %w", r.Remaining, fastload.ErrIncompleteRun))
	}
	return errors.Join(errs...)
}

// Run executes a load, or emits a script to out when cfg.Script is set.
// The report is returned whenever the run started, also alongside an error.
func (s *LoadService) Run(ctx context.Context, connConfig *fastload.ConnectionConfig, cfg fastload.LoadConfig, out io.Writer, observers ...scheduler.Observer) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	enc, err := datafile.LookupEncoding(cfg.Encoding)
	if err != nil {
		return nil, err
	}

	files, jobs, err := s.discover(cfg.InputPath)
	if err != nil {
		return nil, err
	}

	target := *connConfig
	if target.AppName == "" {
		target.AppName = db.DefaultAppName
	}
	target.MaxConns = cfg.Workers + 1
	if cfg.Timeout > 0 {
		target.ConnectTimeout = cfg.Timeout
	}
	if cfg.Script {
		target.MaxConns = 1
	}

	conn, cleanup, err := s.connect(ctx, &target)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	catalog, err := s.introspect(ctx, conn, cfg.ExcludeSchemas)
	if err != nil {
		return nil, err
	}
	plan := &Plan{
		Catalog:  catalog,
		Files:    files,
		Jobs:     jobs,
		Encoding: enc,
		Format:   bulk.Format{Null: cfg.NullMarker, Escape: cfg.Escape},
	}
	s.logger.Verbose("%d of %d data files match a target table", plan.Matched(), len(jobs))

	if cfg.Script {
		return s.Script(ctx, plan, out, cfg.ScriptDir, observers...)
	}
	return s.Load(ctx, conn, plan, cfg.Workers, observers...)
}

// Matched counts the jobs whose table exists in the target. The rest are
// skipped by the coordinator.
func (p *Plan) Matched() int {
	n := 0
	for _, job := range p.Jobs {
		if p.Catalog.Contains(job.Table) {
			n++
		}
	}
	return n
}

// discover scans the input and builds the file map and job list.
func (s *LoadService) discover(input string) (scheduler.FileMap, []scheduler.Job, error) {
	paths, err := scanner.NewScannerWithFS(s.fsProvider).Scan(input)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to scan %s: %w", input, err)
	}
	files, jobs := scheduler.BuildFileMap(paths, s.logger)
	if len(jobs) == 0 {
		return nil, nil, fmt.Errorf("%s: %w", input, fastload.ErrNoDataFiles)
	}
	s.logger.Verbose("Found %d data files for %d tables", len(jobs), len(files))
	return files, jobs, nil
}

func (s *LoadService) connect(ctx context.Context, connConfig *fastload.ConnectionConfig) (fastload.DBConnection, func(), error) {
	connector, err := s.connectorFactory(connConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create connector: %w", err)
	}
	s.logger.Verbose("Connecting to %s:%d/%s", connConfig.Host, connConfig.Port, connConfig.Database)
	pool, err := connector.Connect(ctx)
	if err != nil {
		return nil, nil, err
	}
	return db.NewPoolAdapter(pool), pool.Close, nil
}

func (s *LoadService) introspect(ctx context.Context, conn fastload.DBConnection, exclude []string) (*schema.Catalog, error) {
	exclude = append(slices.Clone(fastload.DefaultExcludeSchemas), exclude...)
	in, err := s.newIntrospector(conn, exclude)
	if err != nil {
		return nil, err
	}
	catalog, err := schema.Load(ctx, in)
	if err != nil {
		return nil, err
	}
	s.logger.Verbose("Target has %d tables with %d foreign-key dependencies", catalog.Len(), catalog.Graph().Len())
	return catalog, nil
}

// Load runs workers over the plan, each holding one connection from conn.
// Header names are resolved against the catalog's columns.
func (s *LoadService) Load(ctx context.Context, conn fastload.DBConnection, plan *Plan, workers int, observers ...scheduler.Observer) (*Report, error) {
	start := s.now()
	coord := s.coordinator(plan, observers)
	sessions := bulk.NewSessions(conn, s.fsProvider, plan.Encoding, s.logger).
		WithExecutor(s.executor).
		WithColumns(plan.Catalog).
		WithFormat(plan.Format)
	pool := &scheduler.Pool{
		Workers:     workers,
		Queue:       scheduler.NewJobQueue(plan.Jobs),
		Coordinator: coord,
		Sessions:    sessions,
		Logger:      s.logger,
	}

	s.logger.Verbose("Loading %d files with %d workers", len(plan.Jobs), workers)
	res, err := pool.Run(ctx)
	report := &Report{
		Summary:      res.Summary,
		Remaining:    res.Remaining,
		WorkerErrors: res.WorkerErrors,
		Elapsed:      s.now().Sub(start),
	}
	if err != nil {
		return report, fmt.Errorf("load interrupted: %w", err)
	}
	return report, report.Err()
}

// Script emits TRUNCATE and COPY statements for the plan to w in dependency
// order, using a single caller and no database writes. Each COPY carries
// the column list the live load would use, read from the file's header.
func (s *LoadService) Script(ctx context.Context, plan *Plan, w io.Writer, dir string, observers ...scheduler.Observer) (*Report, error) {
	start := s.now()
	queue := scheduler.NewJobQueue(plan.Jobs)
	coord := s.coordinator(plan, observers, scheduler.WithoutWaiting())
	emitter := bulk.NewScriptEmitter(w, dir, s.fsProvider, plan.Encoding).
		WithColumns(plan.Catalog).
		WithFormat(plan.Format)
	caller := &scheduler.Caller{ID: ScriptCaller, Action: emitter, Logger: s.logger}

	err := scheduler.Drain(ctx, queue, coord, caller)
	report := &Report{
		Summary:   coord.Summary(),
		Remaining: queue.Len(),
		Elapsed:   s.now().Sub(start),
		Script:    true,
	}
	if err != nil {
		return report, fmt.Errorf("script interrupted: %w", err)
	}
	return report, report.Err()
}

func (s *LoadService) coordinator(plan *Plan, observers []scheduler.Observer, opts ...scheduler.Option) *scheduler.Coordinator {
	opts = append(opts, scheduler.WithLogger(s.logger))
	for _, o := range observers {
		if o != nil {
			opts = append(opts, scheduler.WithObserver(o))
		}
	}
	return scheduler.NewCoordinator(plan.Catalog, plan.Files, opts...)
}
