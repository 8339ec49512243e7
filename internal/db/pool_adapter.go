package db

import (
	"context"
	"io"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vvka-141/pgfastload/pkg/fastload"
)

// PoolAdapter adapts *pgxpool.Pool to implement the fastload.DBConnection interface.
//
// Thread-Safety: Safe for concurrent use (pgxpool.Pool is thread-safe).
type PoolAdapter struct {
	pool *pgxpool.Pool
}

// NewPoolAdapter creates a new PoolAdapter wrapping the given pool.
func NewPoolAdapter(pool *pgxpool.Pool) *PoolAdapter {
	return &PoolAdapter{pool: pool}
}

// Query executes a query that returns rows.
func (p *PoolAdapter) Query(ctx context.Context, sql string, args ...any) (fastload.Rows, error) {
	return p.pool.Query(ctx, sql, args...)
}

// Acquire obtains a dedicated connection from the pool.
func (p *PoolAdapter) Acquire(ctx context.Context) (fastload.PooledConnection, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &pooledConnAdapter{conn: conn}, nil
}

// pooledConnAdapter adapts *pgxpool.Conn to implement fastload.PooledConnection.
type pooledConnAdapter struct {
	conn *pgxpool.Conn
}

func (p *pooledConnAdapter) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return p.conn.Exec(ctx, sql, args...)
}

// CopyFrom runs a COPY ... FROM STDIN statement on the underlying PgConn,
// streaming r as the COPY data.
func (p *pooledConnAdapter) CopyFrom(ctx context.Context, r io.Reader, sql string) (pgconn.CommandTag, error) {
	return p.conn.Conn().PgConn().CopyFrom(ctx, r, sql)
}

func (p *pooledConnAdapter) Release() {
	p.conn.Release()
}

var _ fastload.DBConnection = (*PoolAdapter)(nil)
