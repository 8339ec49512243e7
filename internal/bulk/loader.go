package bulk

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/text/encoding"

	"github.com/vvka-141/pgfastload/internal/files/datafile"
	"github.com/vvka-141/pgfastload/internal/files/filesystem"
	"github.com/vvka-141/pgfastload/internal/schema"
	"github.com/vvka-141/pgfastload/pkg/fastload"
)

// invalidSchemaName is SQLSTATE 3F000.
const invalidSchemaName = "3F000"

const copyBufferSize = 64 * 1024

// Loader populates tables over one dedicated connection.
type Loader struct {
	conn       fastload.PooledConnection
	fsProvider filesystem.FileSystemProvider
	enc        encoding.Encoding
	columns    ColumnResolver
	format     Format
}

// NewLoader creates a Loader. A nil enc means UTF-8.
func NewLoader(conn fastload.PooledConnection, fsProvider filesystem.FileSystemProvider, enc encoding.Encoding) *Loader {
	return &Loader{conn: conn, fsProvider: fsProvider, enc: enc}
}

// WithColumns resolves header names through r before each COPY. Without a
// resolver the header is used verbatim.
func (l *Loader) WithColumns(r ColumnResolver) *Loader {
	l.columns = r
	return l
}

// WithFormat sets the CSV options of each COPY.
func (l *Loader) WithFormat(f Format) *Loader {
	l.format = f
	return l
}

// Apply truncates table and copies path into it.
func (l *Loader) Apply(ctx context.Context, table schema.Table, path string) (int64, error) {
	if err := l.Truncate(ctx, table); err != nil {
		return 0, err
	}
	return l.Insert(ctx, table, path)
}

// Truncate empties table, cascading to tables that reference it.
func (l *Loader) Truncate(ctx context.Context, table schema.Table) error {
	_, err := l.conn.Exec(ctx, TruncateStatement(table))
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == invalidSchemaName {
		return nil
	}
	if err != nil {
		return fmt.Errorf("truncate %s: %w", table, err)
	}
	return nil
}

// Insert streams the CSV file at path into table and returns the number of
// rows copied. The file's header row names the target columns, matched
// case-insensitively when a resolver is set. An empty file copies nothing.
func (l *Loader) Insert(ctx context.Context, table schema.Table, path string) (int64, error) {
	rc, err := datafile.Open(l.fsProvider, path, l.enc)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer rc.Close()

	br := bufio.NewReaderSize(rc, copyBufferSize)
	cols, header, err := datafile.ReadHeader(br)
	if errors.Is(err, datafile.ErrNoHeader) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	cols, err = resolveColumns(l.columns, table, cols)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}

	tag, err := l.conn.CopyFrom(ctx, io.MultiReader(strings.NewReader(header), br), CopyStatement(table, cols, l.format))
	if err != nil {
		return 0, fmt.Errorf("copy into %s: %w", table, err)
	}
	return tag.RowsAffected(), nil
}

// Release returns the connection to its pool.
func (l *Loader) Release() {
	l.conn.Release()
}

// TruncateStatement returns the statement that empties table.
func TruncateStatement(table schema.Table) string {
	return fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table.Quoted())
}

// CopyStatement returns the COPY FROM STDIN statement for table with an
// explicit column list.
func CopyStatement(table schema.Table, columns []string, f Format) string {
	return fmt.Sprintf("COPY %s (%s) FROM STDIN %s", table.Quoted(), columnList(columns), f.Options())
}

func quoteIdent(s string) string {
	return pgx.Identifier{s}.Sanitize()
}
