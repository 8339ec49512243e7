package bulk

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/text/encoding"

	"github.com/vvka-141/pgfastload/internal/files/filesystem"
	"github.com/vvka-141/pgfastload/internal/retry"
	"github.com/vvka-141/pgfastload/internal/scheduler"
	"github.com/vvka-141/pgfastload/pkg/fastload"
)

// Sessions hands each worker a Loader bound to its own pooled connection.
type Sessions struct {
	db         fastload.DBConnection
	fsProvider filesystem.FileSystemProvider
	enc        encoding.Encoding
	executor   *retry.Executor
	logger     fastload.Logger
	columns    ColumnResolver
	format     Format
}

// NewSessions creates a session factory. Acquiring a connection is retried
// on transient PostgreSQL errors.
func NewSessions(db fastload.DBConnection, fsProvider filesystem.FileSystemProvider, enc encoding.Encoding, logger fastload.Logger) *Sessions {
	return &Sessions{
		db:         db,
		fsProvider: fsProvider,
		enc:        enc,
		executor:   retry.NewDefaultExecutor(retry.NewPostgreSQLErrorClassifier()),
		logger:     logger,
	}
}

// WithColumns makes every Loader resolve header names through r.
func (s *Sessions) WithColumns(r ColumnResolver) *Sessions {
	clone := *s
	clone.columns = r
	return &clone
}

// WithFormat sets the CSV options of every Loader.
func (s *Sessions) WithFormat(f Format) *Sessions {
	clone := *s
	clone.format = f
	return &clone
}

// WithExecutor replaces the retry executor.
func (s *Sessions) WithExecutor(executor *retry.Executor) *Sessions {
	clone := *s
	clone.executor = executor
	return &clone
}

func (s *Sessions) NewSession(ctx context.Context, id scheduler.CallerID) (scheduler.Session, error) {
	executor := s.executor.WithOnRetry(func(attempt int, err error, delay time.Duration) {
		s.logger.Warn("%s: acquiring connection failed (attempt %d), retrying in %s: %v", id, attempt+1, delay, err)
	})

	var conn fastload.PooledConnection
	err := executor.Execute(ctx, func(ctx context.Context) error {
		c, err := s.db.Acquire(ctx)
		if err != nil {
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	loader := NewLoader(conn, s.fsProvider, s.enc).WithColumns(s.columns).WithFormat(s.format)
	return &session{loader}, nil
}

type session struct {
	*Loader
}

func (s *session) Close() error {
	s.Release()
	return nil
}

var _ scheduler.SessionFactory = (*Sessions)(nil)
