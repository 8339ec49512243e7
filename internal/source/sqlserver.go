package source

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	mssql "github.com/microsoft/go-mssqldb"
)

// Table is a source table.
type Table struct {
	Schema string
	Name   string
}

func (t Table) String() string {
	return t.Schema + "." + t.Name
}

// Quoted returns the bracket-quoted identifier.
func (t Table) Quoted() string {
	return quoteIdent(t.Schema) + "." + quoteIdent(t.Name)
}

func quoteIdent(s string) string {
	return "[" + strings.ReplaceAll(s, "]", "]]") + "]"
}

// Rows is a result set being exported.
type Rows interface {
	Columns() []Column
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// Source lists and reads tables.
type Source interface {
	ListTables(ctx context.Context, schemaName string) ([]Table, error)
	OpenTable(ctx context.Context, t Table) (Rows, error)
}

const listTablesSQL = `
SELECT TABLE_SCHEMA, TABLE_NAME
FROM INFORMATION_SCHEMA.TABLES
WHERE TABLE_TYPE = 'BASE TABLE'
  AND TABLE_SCHEMA NOT IN ('sys', 'INFORMATION_SCHEMA')
  AND (@p1 = '' OR TABLE_SCHEMA = @p1)
ORDER BY TABLE_SCHEMA, TABLE_NAME`

// SQLServer reads from a SQL Server database.
type SQLServer struct {
	db *sql.DB
}

// OpenSQLServer opens a pool for dsn, sized for workers concurrent reads.
// The connection is not verified; see Ping.
func OpenSQLServer(dsn string, workers int) (*SQLServer, error) {
	connector, err := mssql.NewConnector(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid source connection string: %w", err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(workers)
	db.SetMaxIdleConns(workers)
	return &SQLServer{db: db}, nil
}

func (s *SQLServer) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLServer) Close() error {
	return s.db.Close()
}

func (s *SQLServer) ListTables(ctx context.Context, schemaName string) ([]Table, error) {
	rows, err := s.db.QueryContext(ctx, listTablesSQL, schemaName)
	if err != nil {
		return nil, fmt.Errorf("list source tables: %w", err)
	}
	defer rows.Close()

	var tables []Table
	for rows.Next() {
		var t Table
		if err := rows.Scan(&t.Schema, &t.Name); err != nil {
			return nil, fmt.Errorf("scan source table: %w", err)
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

func (s *SQLServer) OpenTable(ctx context.Context, t Table) (Rows, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT * FROM "+t.Quoted())
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", t, err)
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("read %s columns: %w", t, err)
	}
	cols := make([]Column, len(types))
	for i, ct := range types {
		cols[i] = Column{Name: ct.Name(), Type: strings.ToUpper(ct.DatabaseTypeName())}
	}
	return &sqlRows{Rows: rows, cols: cols}, nil
}

type sqlRows struct {
	*sql.Rows
	cols []Column
}

func (r *sqlRows) Columns() []Column { return r.cols }

var _ Source = (*SQLServer)(nil)
