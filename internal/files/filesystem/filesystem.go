package filesystem

import (
	"io"
	"io/fs"
)

// FileInfo is an alias for fs.FileInfo from the standard library.
type FileInfo = fs.FileInfo

// File represents an individual file discovered by a directory walk.
type File interface {
	// Path returns the absolute path to the file
	Path() string

	// RelativePath returns the path relative to the walked directory
	RelativePath() string

	// Info returns file metadata
	Info() FileInfo
}

// Directory represents a directory that can be traversed to discover files
type Directory interface {
	// Path returns the absolute path to the directory
	Path() string

	// Walk traverses the directory tree in lexical order, calling fn for each
	// file and directory. If fn returns an error, walking stops.
	Walk(fn func(File, error) error) error
}

// FileSystemProvider gives access to directories and file streams.
// Data files can be many gigabytes, so content is always streamed.
type FileSystemProvider interface {
	// Open opens a directory at the specified path
	Open(path string) (Directory, error)

	// OpenFile opens a file for streaming reads.
	OpenFile(path string) (io.ReadCloser, error)

	// Create creates or truncates a file for writing.
	Create(path string) (io.WriteCloser, error)

	// Stat returns file information for the given path
	Stat(path string) (FileInfo, error)

	// Abs returns the absolute form of path.
	Abs(path string) (string, error)
}
