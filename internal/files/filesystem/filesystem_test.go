package filesystem

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, dir Directory) []string {
	t.Helper()
	var rel []string
	err := dir.Walk(func(f File, err error) error {
		require.NoError(t, err)
		if !f.Info().IsDir() {
			rel = append(rel, filepath.ToSlash(f.RelativePath()))
		}
		return nil
	})
	require.NoError(t, err)
	return rel
}

func TestMemoryFileSystem_WalkAndRead(t *testing.T) {
	mfs := NewMemoryFileSystem("/data")
	mfs.AddFile("public.orders.csv", "id\n1\n")
	mfs.AddFile("nested/deeper/sales.items.csv.gz", "gz")
	mfs.AddFile("/elsewhere/x.csv", "x")

	dir, err := mfs.Open(".")
	require.NoError(t, err)
	assert.Equal(t, "/data", dir.Path())
	assert.Equal(t, []string{"nested/deeper/sales.items.csv.gz", "public.orders.csv"}, collect(t, dir))

	r, err := mfs.OpenFile("public.orders.csv")
	require.NoError(t, err)
	content, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "id\n1\n", string(content))

	info, err := mfs.Stat("nested")
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	_, err = mfs.Open("public.orders.csv")
	assert.Error(t, err)
	_, err = mfs.OpenFile("missing.csv")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMemoryFileSystem_Create(t *testing.T) {
	mfs := NewMemoryFileSystem("/out")

	w, err := mfs.Create("dbo.customers.csv")
	require.NoError(t, err)
	_, err = io.WriteString(w, "id\n")
	require.NoError(t, err)

	_, ok := mfs.Content("dbo.customers.csv")
	assert.False(t, ok, "content visible only after Close")

	require.NoError(t, w.Close())
	content, ok := mfs.Content("/out/dbo.customers.csv")
	require.True(t, ok)
	assert.Equal(t, "id\n", string(content))
}

func TestOSFileSystem(t *testing.T) {
	root := t.TempDir()
	p := NewOSFileSystem()

	w, err := p.Create(filepath.Join(root, "sub", "public.a.csv"))
	require.NoError(t, err)
	_, err = io.WriteString(w, "a\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, os.WriteFile(filepath.Join(root, "public.b.csv"), []byte("b\n"), 0o644))

	dir, err := p.Open(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"public.b.csv", "sub/public.a.csv"}, collect(t, dir))

	r, err := p.OpenFile(filepath.Join(root, "sub", "public.a.csv"))
	require.NoError(t, err)
	defer r.Close()
	content, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "a\n", string(content))

	_, err = p.Open(filepath.Join(root, "public.b.csv"))
	assert.Error(t, err)
}
