package bulk

import (
	"bytes"
	"context"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/pgfastload/internal/files/filesystem"
	"github.com/vvka-141/pgfastload/internal/scheduler"
	"github.com/vvka-141/pgfastload/internal/schema"
	"github.com/vvka-141/pgfastload/pkg/fastload"
)

func salesCatalog(t *testing.T) *schema.Catalog {
	t.Helper()
	catalog, err := schema.NewCatalog(
		[]schema.Table{
			{Schema: "sales", Name: "orders"},
			{Schema: "sales", Name: "customers"},
			{Schema: "sales", Name: "order_lines"},
			{Schema: "audit", Name: "Log"},
		},
		[]schema.ForeignKey{
			{Source: "sales.orders", Referenced: "sales.customers"},
			{Source: "sales.order_lines", Referenced: "sales.orders"},
			{Source: "sales.order_lines", Referenced: "sales.order_lines"},
		},
		schema.Column{Table: "sales.customers", Name: "id"},
		schema.Column{Table: "sales.customers", Name: "name"},
		schema.Column{Table: "sales.orders", Name: "id"},
		schema.Column{Table: "sales.orders", Name: "customer_id"},
		schema.Column{Table: "sales.orders", Name: "total"},
		schema.Column{Table: "sales.order_lines", Name: "order_id"},
		schema.Column{Table: "sales.order_lines", Name: "line_no"},
		schema.Column{Table: "sales.order_lines", Name: "sku"},
		schema.Column{Table: "audit.log", Name: "Entry"},
	)
	require.NoError(t, err)
	return catalog
}

func gzipped(t *testing.T, s string) string {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.String()
}

// emitScript plans the files of mfs against salesCatalog and returns the
// script a single caller writes for them.
func emitScript(t *testing.T, dir string, mfs *filesystem.MemoryFileSystem, paths []string, format Format) ([]byte, error) {
	t.Helper()
	catalog := salesCatalog(t)
	files, jobs := scheduler.BuildFileMap(paths, &warnLogger{})
	coord := scheduler.NewCoordinator(catalog, files, scheduler.WithoutWaiting())

	var buf bytes.Buffer
	emitter := NewScriptEmitter(&buf, dir, mfs, nil).WithColumns(catalog).WithFormat(format)
	caller := &scheduler.Caller{ID: "script", Action: emitter}
	err := scheduler.Drain(context.Background(), scheduler.NewJobQueue(jobs), coord, caller)
	return buf.Bytes(), err
}

func TestScriptEmitter_Golden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	t.Run("script_dir", func(t *testing.T) {
		mfs := filesystem.NewMemoryFileSystem("/data")
		mfs.AddFile("sales.order_lines.csv", "order_id,line_no,sku\n1,1,A\n")
		mfs.AddFile("audit.log.csv", "entry\nhello\n")
		mfs.AddFile("sales.customers.csv", "id,name\n1,Ann\n")
		mfs.AddFile("sales.orders.csv", "id,customer_id,total\n1,1,9.5\n")

		out, err := emitScript(t, "/staging/", mfs, []string{
			"/data/sales.order_lines.csv",
			"/data/audit.log.csv",
			"/data/sales.customers.csv",
			"/data/sales.orders.csv",
		}, Format{})
		require.NoError(t, err)
		g.Assert(t, "script_dir", out)
	})

	t.Run("source_paths", func(t *testing.T) {
		mfs := filesystem.NewMemoryFileSystem("/data")
		mfs.AddFile("sales.orders.csv", "id,customer_id,total\n")
		mfs.AddFile("sales.customers.csv.gz", gzipped(t, "id,name\n1,Ann\n"))
		mfs.AddFile("o'brien/sales.order_lines.csv", "order_id,line_no,sku\n")

		out, err := emitScript(t, "", mfs, []string{
			"/data/sales.orders.csv",
			"/data/sales.customers.csv.gz",
			"/data/o'brien/sales.order_lines.csv",
		}, Format{})
		require.NoError(t, err)
		g.Assert(t, "source_paths", out)
	})

	t.Run("reordered_header", func(t *testing.T) {
		mfs := filesystem.NewMemoryFileSystem("/data")
		mfs.AddFile("sales.customers.csv", "Name,ID\nAnn,1\n")
		mfs.AddFile("sales.orders.csv", "Total,Customer_Id,Id\n9.5,1,1\n")
		mfs.AddFile("sales.order_lines.csv", "")

		out, err := emitScript(t, "", mfs, []string{
			"/data/sales.orders.csv",
			"/data/sales.customers.csv",
			"/data/sales.order_lines.csv",
		}, Format{Null: "@null@", Escape: `\`})
		require.NoError(t, err)
		g.Assert(t, "reordered_header", out)
	})
}

func TestScriptEmitter_UnknownHeaderColumn(t *testing.T) {
	mfs := filesystem.NewMemoryFileSystem("/data")
	mfs.AddFile("sales.customers.csv", "id,email\n")

	var buf bytes.Buffer
	emitter := NewScriptEmitter(&buf, "", mfs, nil).WithColumns(salesCatalog(t))
	_, err := emitter.Apply(context.Background(), schema.Table{Schema: "sales", Name: "customers"}, "/data/sales.customers.csv")
	require.Error(t, err)
	assert.Empty(t, buf.String())
	assert.ErrorIs(t, err, fastload.ErrInvalidSchema)
	assert.Contains(t, err.Error(), "sales.customers.csv")
}
