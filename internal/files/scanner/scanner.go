package scanner

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vvka-141/pgfastload/internal/files/filesystem"
	"github.com/vvka-141/pgfastload/internal/schema"
	"github.com/vvka-141/pgfastload/pkg/fastload"
)

// TableKeyOf maps a data file path to the table it loads. The second result is
// false when the name carries neither recognized suffix.
func TableKeyOf(path string) (schema.TableKey, bool) {
	base := filepath.Base(filepath.FromSlash(path))
	lower := strings.ToLower(base)

	var stem string
	switch {
	case strings.HasSuffix(lower, fastload.GzipCSVExtension):
		stem = base[:len(base)-len(fastload.GzipCSVExtension)]
	case strings.HasSuffix(lower, fastload.CSVExtension):
		stem = base[:len(base)-len(fastload.CSVExtension)]
	default:
		return "", false
	}
	if stem == "" {
		return "", false
	}
	return schema.TableKey(strings.ToLower(stem)), true
}

// IsCompressed reports whether path names a gzip data file.
func IsCompressed(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), fastload.GzipCSVExtension)
}

// Scanner discovers data files. It is safe for concurrent use as long as
// the filesystem provider is.
type Scanner struct {
	fsProvider filesystem.FileSystemProvider
}

// NewScanner creates a scanner over the OS filesystem.
func NewScanner() *Scanner {
	return &Scanner{fsProvider: filesystem.NewOSFileSystem()}
}

// NewScannerWithFS creates a scanner over a custom filesystem provider.
// Panics if fsProvider is nil.
func NewScannerWithFS(fsProvider filesystem.FileSystemProvider) *Scanner {
	if fsProvider == nil {
		panic("fsProvider cannot be nil")
	}
	return &Scanner{fsProvider: fsProvider}
}

// Scan resolves each input to data file paths. A file input is taken as is,
// whatever its name; a directory input is walked recursively for .csv and
// .csv.gz files. Paths are absolute, deduplicated and sorted.
func (s *Scanner) Scan(inputs ...string) ([]string, error) {
	seen := make(map[string]struct{})

	for _, input := range inputs {
		info, err := s.fsProvider.Stat(input)
		if err != nil {
			return nil, fmt.Errorf("cannot read input %s: %w", input, err)
		}

		if !info.IsDir() {
			abs, err := s.fsProvider.Abs(input)
			if err != nil {
				return nil, err
			}
			seen[abs] = struct{}{}
			continue
		}

		dir, err := s.fsProvider.Open(input)
		if err != nil {
			return nil, fmt.Errorf("failed to open directory: %w", err)
		}

		err = dir.Walk(func(file filesystem.File, err error) error {
			if err != nil {
				return fmt.Errorf("error walking %s: %w", input, err)
			}
			if file.Info().IsDir() {
				return nil
			}
			if _, ok := TableKeyOf(file.Path()); ok {
				seen[file.Path()] = struct{}{}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}
