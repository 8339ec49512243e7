// Package datafile opens data files for loading and creates them on export.
//
// Files ending in .csv.gz are gzip streams. Content in a legacy character set
// is transcoded to UTF-8 on the fly; a leading byte-order mark is dropped.
package datafile

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/vvka-141/pgfastload/internal/files/filesystem"
	"github.com/vvka-141/pgfastload/internal/files/scanner"
	"github.com/vvka-141/pgfastload/pkg/fastload"
)

// ErrNoHeader is returned by ReadHeader for an empty file.
var ErrNoHeader = errors.New("data file has no header line")

// LookupEncoding resolves an IANA encoding name such as "windows-1252" or "latin1".
func LookupEncoding(name string) (encoding.Encoding, error) {
	if name == "" {
		name = fastload.DefaultEncoding
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %v: %w", name, err, fastload.ErrInvalidConfig)
	}
	if enc == nil {
		return nil, fmt.Errorf("encoding %q is not supported: %w", name, fastload.ErrInvalidConfig)
	}
	return enc, nil
}

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (r *readCloser) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i].Close())
	}
	return errors.Join(errs...)
}

// Open returns a UTF-8 stream of the file at path.
func Open(fsys filesystem.FileSystemProvider, path string, enc encoding.Encoding) (io.ReadCloser, error) {
	f, err := fsys.OpenFile(path)
	if err != nil {
		return nil, err
	}
	rc := &readCloser{Reader: f, closers: []io.Closer{f}}

	if scanner.IsCompressed(path) {
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		rc.Reader = zr
		rc.closers = append(rc.closers, zr)
	}

	if enc == nil {
		enc = unicode.UTF8
	}
	rc.Reader = transform.NewReader(rc.Reader, unicode.BOMOverride(enc.NewDecoder()))
	return rc, nil
}

// ReadHeader consumes the first line of r and returns the column names it
// holds together with the raw line, so the caller can replay it.
func ReadHeader(r *bufio.Reader) ([]string, string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, "", err
	}
	if strings.TrimSpace(line) == "" {
		return nil, "", ErrNoHeader
	}

	cols, err := csv.NewReader(strings.NewReader(line)).Read()
	if err != nil {
		return nil, "", fmt.Errorf("malformed header: %w", err)
	}
	return cols, line, nil
}

type writeCloser struct {
	io.Writer
	closers []io.Closer
}

func (w *writeCloser) Close() error {
	var errs []error
	for _, c := range w.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Create opens path for writing, gzip-compressing when compress is set.
// Closing the returned writer flushes the compressor before closing the file.
func Create(fsys filesystem.FileSystemProvider, path string, compress bool) (io.WriteCloser, error) {
	f, err := fsys.Create(path)
	if err != nil {
		return nil, err
	}
	if !compress {
		return f, nil
	}
	zw := gzip.NewWriter(f)
	return &writeCloser{Writer: zw, closers: []io.Closer{zw, f}}, nil
}

// FileName returns the data file name for a table.
func FileName(schemaName, tableName string, compress bool) string {
	if compress {
		return schemaName + "." + tableName + fastload.GzipCSVExtension
	}
	return schemaName + "." + tableName + fastload.CSVExtension
}
