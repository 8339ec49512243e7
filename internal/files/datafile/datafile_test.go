package datafile

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/vvka-141/pgfastload/internal/files/filesystem"
	"github.com/vvka-141/pgfastload/pkg/fastload"
)

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(b)
}

func TestCreateThenOpen_Gzip(t *testing.T) {
	mfs := filesystem.NewMemoryFileSystem("/data")

	w, err := Create(mfs, "public.orders.csv.gz", true)
	require.NoError(t, err)
	_, err = io.WriteString(w, "id,total\n1,9.99\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	raw, ok := mfs.Content("public.orders.csv.gz")
	require.True(t, ok)
	assert.NotContains(t, string(raw), "total", "content is compressed")

	rc, err := Open(mfs, "public.orders.csv.gz", nil)
	require.NoError(t, err)
	assert.Equal(t, "id,total\n1,9.99\n", readAll(t, rc))
}

func TestOpen_TranscodesLegacyEncoding(t *testing.T) {
	mfs := filesystem.NewMemoryFileSystem("/data")
	encoded, err := charmap.Windows1252.NewEncoder().String("name\nCafé Müller\n")
	require.NoError(t, err)
	mfs.AddFile("public.shops.csv", encoded)

	enc, err := LookupEncoding("windows-1252")
	require.NoError(t, err)

	rc, err := Open(mfs, "public.shops.csv", enc)
	require.NoError(t, err)
	assert.Equal(t, "name\nCafé Müller\n", readAll(t, rc))
}

func TestOpen_StripsBOM(t *testing.T) {
	mfs := filesystem.NewMemoryFileSystem("/data")
	mfs.AddFile("public.t.csv", "\xef\xbb\xbfid\n1\n")

	rc, err := Open(mfs, "public.t.csv", nil)
	require.NoError(t, err)
	assert.Equal(t, "id\n1\n", readAll(t, rc))
}

func TestOpen_CorruptGzip(t *testing.T) {
	mfs := filesystem.NewMemoryFileSystem("/data")
	mfs.AddFile("public.t.csv.gz", "not gzip at all")

	_, err := Open(mfs, "public.t.csv.gz", nil)
	assert.Error(t, err)
}

func TestLookupEncoding(t *testing.T) {
	_, err := LookupEncoding("")
	require.NoError(t, err)

	_, err = LookupEncoding("ISO-8859-1")
	require.NoError(t, err)

	_, err = LookupEncoding("klingon")
	require.Error(t, err)
	assert.True(t, errors.Is(err, fastload.ErrInvalidConfig))
}

func TestReadHeader(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("id,\"Display Name\",\"a,b\"\n1,x,y\n"))

	cols, raw, err := ReadHeader(r)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "Display Name", "a,b"}, cols)
	assert.Equal(t, "id,\"Display Name\",\"a,b\"\n", raw)

	rest, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "1,x,y\n", string(rest))
}

func TestReadHeader_Empty(t *testing.T) {
	_, _, err := ReadHeader(bufio.NewReader(strings.NewReader("")))
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "dbo.Customers.csv", FileName("dbo", "Customers", false))
	assert.Equal(t, "dbo.Customers.csv.gz", FileName("dbo", "Customers", true))
}
