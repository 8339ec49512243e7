package bulk

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"

	"github.com/vvka-141/pgfastload/internal/files/datafile"
	"github.com/vvka-141/pgfastload/internal/files/filesystem"
	"github.com/vvka-141/pgfastload/internal/files/scanner"
	"github.com/vvka-141/pgfastload/internal/schema"
)

// ScriptEmitter writes a truncate and load block per table instead of
// running it. It is used by a single caller.
type ScriptEmitter struct {
	w          io.Writer
	dir        string
	fsProvider filesystem.FileSystemProvider
	enc        encoding.Encoding
	columns    ColumnResolver
	format     Format
}

// NewScriptEmitter writes to w. When dir is set, each COPY reads
// "<dir>/<schema>.<table>.csv"; otherwise it reads the discovered file,
// decompressing .csv.gz files through gzip. The column list always comes
// from the header of the discovered file, read through fsProvider.
func NewScriptEmitter(w io.Writer, dir string, fsProvider filesystem.FileSystemProvider, enc encoding.Encoding) *ScriptEmitter {
	return &ScriptEmitter{w: w, dir: strings.TrimRight(dir, `/\`), fsProvider: fsProvider, enc: enc}
}

// WithColumns resolves header names through r, as Loader does.
func (e *ScriptEmitter) WithColumns(r ColumnResolver) *ScriptEmitter {
	e.columns = r
	return e
}

// WithFormat sets the CSV options of each COPY.
func (e *ScriptEmitter) WithFormat(f Format) *ScriptEmitter {
	e.format = f
	return e
}

// Apply writes the block for table. A file without a header line only gets
// its TRUNCATE, matching what a live load does.
func (e *ScriptEmitter) Apply(ctx context.Context, table schema.Table, path string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	cols, err := e.header(table, path)
	if errors.Is(err, datafile.ErrNoHeader) {
		_, err = fmt.Fprintf(e.w, "%s;\n\n", TruncateStatement(table))
		return 0, err
	}
	if err != nil {
		return 0, err
	}
	_, err = fmt.Fprintf(e.w, "%s;\n%s;\n\n", TruncateStatement(table), e.copyStatement(table, cols, path))
	return 0, err
}

func (e *ScriptEmitter) header(table schema.Table, path string) ([]string, error) {
	rc, err := datafile.Open(e.fsProvider, path, e.enc)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer rc.Close()

	cols, _, err := datafile.ReadHeader(bufio.NewReader(rc))
	if errors.Is(err, datafile.ErrNoHeader) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cols, err = resolveColumns(e.columns, table, cols)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cols, nil
}

func (e *ScriptEmitter) copyStatement(table schema.Table, cols []string, path string) string {
	target := fmt.Sprintf("%s (%s)", table.Quoted(), columnList(cols))
	opts := e.format.Options()
	if e.dir != "" {
		file := e.dir + "/" + table.String() + ".csv"
		return fmt.Sprintf("COPY %s FROM %s %s", target, quoteLiteral(file), opts)
	}
	if scanner.IsCompressed(path) {
		return fmt.Sprintf("COPY %s FROM PROGRAM %s %s", target, quoteLiteral("gzip -dc "+shellQuote(path)), opts)
	}
	return fmt.Sprintf("COPY %s FROM %s %s", target, quoteLiteral(path), opts)
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
