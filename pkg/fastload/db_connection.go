package fastload

import (
	"context"
	"io"

	"github.com/jackc/pgx/v5/pgconn"
)

// DBConnection abstracts the pool operations the loader needs.
//
// Thread-Safety: connection pool implementations are safe for concurrent use.
type DBConnection interface {
	// Query executes a query that returns rows. Callers must close the returned Rows.
	Query(ctx context.Context, sql string, args ...any) (Rows, error)

	// Acquire obtains a dedicated connection from the pool. Each load worker
	// holds one for its whole lifetime.
	// Caller must call Release() on the returned PooledConnection when done.
	Acquire(ctx context.Context) (PooledConnection, error)
}

// Rows is the subset of pgx.Rows used by introspection.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// PooledConnection represents a connection acquired from a pool.
// The caller must call Release() when done to return it to the pool.
type PooledConnection interface {
	// Exec executes a statement on this specific connection.
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)

	// CopyFrom streams CSV data into the database using COPY ... FROM STDIN.
	CopyFrom(ctx context.Context, r io.Reader, sql string) (pgconn.CommandTag, error)

	// Release returns the connection to the pool.
	// After calling Release, the connection should not be used.
	Release()
}
