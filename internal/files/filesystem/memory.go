package filesystem

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

type memoryFileInfo struct {
	name  string
	size  int64
	isDir bool
}

func (f *memoryFileInfo) Name() string { return f.name }
func (f *memoryFileInfo) Size() int64  { return f.size }
func (f *memoryFileInfo) Mode() fs.FileMode {
	if f.isDir {
		return 0o755 | fs.ModeDir
	}
	return 0o644
}
func (f *memoryFileInfo) ModTime() time.Time { return time.Time{} }
func (f *memoryFileInfo) IsDir() bool        { return f.isDir }
func (f *memoryFileInfo) Sys() interface{}   { return nil }

type memoryFile struct {
	absPath string
	relPath string
	content []byte
	info    *memoryFileInfo
}

func (f *memoryFile) Path() string         { return f.absPath }
func (f *memoryFile) RelativePath() string { return f.relPath }
func (f *memoryFile) Info() FileInfo       { return f.info }

type memoryDirectory struct {
	absPath string
	fs      *MemoryFileSystem
}

func (d *memoryDirectory) Path() string { return d.absPath }

func (d *memoryDirectory) Walk(fn func(File, error) error) error {
	for _, entry := range d.fs.entriesUnder(d.absPath) {
		rel := strings.TrimPrefix(strings.TrimPrefix(entry.absPath, d.absPath), "/")
		if rel == "" {
			rel = "."
		}
		walked := &memoryFile{absPath: entry.absPath, relPath: rel, info: entry.info}
		if err := fn(walked, nil); err != nil {
			return err
		}
	}
	return nil
}

// MemoryFileSystem implements FileSystemProvider for in-memory testing.
// Paths use forward slashes; relative paths resolve against the root.
// Safe for concurrent use.
type MemoryFileSystem struct {
	mu    sync.RWMutex
	files map[string]*memoryFile
	root  string
}

// NewMemoryFileSystem creates a new in-memory filesystem rooted at root.
func NewMemoryFileSystem(root string) *MemoryFileSystem {
	root = path.Clean(filepath.ToSlash(root))
	mfs := &MemoryFileSystem{files: make(map[string]*memoryFile), root: root}
	mfs.files[root] = &memoryFile{absPath: root, info: &memoryFileInfo{name: path.Base(root), isDir: true}}
	return mfs
}

func (mfs *MemoryFileSystem) resolve(p string) string {
	p = filepath.ToSlash(p)
	if p == "" || p == "." {
		return mfs.root
	}
	if !path.IsAbs(p) {
		p = path.Join(mfs.root, p)
	}
	return path.Clean(p)
}

// AddFile adds a file to the in-memory filesystem, creating parent directories.
func (mfs *MemoryFileSystem) AddFile(filePath string, content string) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()
	mfs.put(mfs.resolve(filePath), []byte(content))
}

func (mfs *MemoryFileSystem) put(absPath string, content []byte) {
	mfs.files[absPath] = &memoryFile{
		absPath: absPath,
		content: content,
		info:    &memoryFileInfo{name: path.Base(absPath), size: int64(len(content))},
	}
	for dir := path.Dir(absPath); dir != "/" && dir != "."; dir = path.Dir(dir) {
		if _, ok := mfs.files[dir]; ok {
			break
		}
		mfs.files[dir] = &memoryFile{absPath: dir, info: &memoryFileInfo{name: path.Base(dir), isDir: true}}
	}
}

// Content returns the bytes of a file, for assertions in tests.
func (mfs *MemoryFileSystem) Content(filePath string) ([]byte, bool) {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()
	f, ok := mfs.files[mfs.resolve(filePath)]
	if !ok || f.info.isDir {
		return nil, false
	}
	return f.content, true
}

func (mfs *MemoryFileSystem) entriesUnder(base string) []*memoryFile {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()
	var entries []*memoryFile
	for p, f := range mfs.files {
		if p == base || strings.HasPrefix(p, strings.TrimSuffix(base, "/")+"/") {
			entries = append(entries, f)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].absPath < entries[j].absPath })
	return entries
}

func (mfs *MemoryFileSystem) Open(dirPath string) (Directory, error) {
	abs := mfs.resolve(dirPath)
	mfs.mu.RLock()
	f, ok := mfs.files[abs]
	mfs.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("directory not found: %s", dirPath)
	}
	if !f.info.isDir {
		return nil, fmt.Errorf("path is not a directory: %s", dirPath)
	}
	return &memoryDirectory{absPath: abs, fs: mfs}, nil
}

func (mfs *MemoryFileSystem) OpenFile(filePath string) (io.ReadCloser, error) {
	content, ok := mfs.Content(filePath)
	if !ok {
		return nil, fmt.Errorf("file not found: %s: %w", filePath, fs.ErrNotExist)
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

// Create returns a writer whose content becomes visible when it is closed.
func (mfs *MemoryFileSystem) Create(filePath string) (io.WriteCloser, error) {
	return &memoryWriter{fs: mfs, absPath: mfs.resolve(filePath)}, nil
}

func (mfs *MemoryFileSystem) Stat(statPath string) (FileInfo, error) {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()
	f, ok := mfs.files[mfs.resolve(statPath)]
	if !ok {
		return nil, fmt.Errorf("path not found: %s: %w", statPath, fs.ErrNotExist)
	}
	return f.info, nil
}

func (mfs *MemoryFileSystem) Abs(p string) (string, error) {
	return mfs.resolve(p), nil
}

type memoryWriter struct {
	bytes.Buffer
	fs      *MemoryFileSystem
	absPath string
}

func (w *memoryWriter) Close() error {
	w.fs.mu.Lock()
	defer w.fs.mu.Unlock()
	w.fs.put(w.absPath, append([]byte(nil), w.Bytes()...))
	return nil
}

var (
	_ FileSystemProvider = (*OSFileSystem)(nil)
	_ FileSystemProvider = (*MemoryFileSystem)(nil)
)
