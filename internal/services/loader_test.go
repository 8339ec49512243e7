package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/pgfastload/internal/bulk"
	"github.com/vvka-141/pgfastload/internal/files/filesystem"
	"github.com/vvka-141/pgfastload/internal/logging"
	"github.com/vvka-141/pgfastload/internal/retry"
	"github.com/vvka-141/pgfastload/internal/scheduler"
	"github.com/vvka-141/pgfastload/internal/schema"
	"github.com/vvka-141/pgfastload/pkg/fastload"
)

// target records every COPY issued through connections it hands out.
type target struct {
	mu         sync.Mutex
	copies     []string
	copyErr    map[string]error
	onCopy     func(sql string)
	acquireErr error
	acquired   int
}

func newTarget() *target {
	return &target{copyErr: make(map[string]error)}
}

func (t *target) Query(ctx context.Context, sql string, args ...any) (fastload.Rows, error) {
	return nil, errors.New("not used")
}

func (t *target) Acquire(ctx context.Context) (fastload.PooledConnection, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.acquired++
	if t.acquireErr != nil {
		return nil, t.acquireErr
	}
	return &targetConn{t: t}, nil
}

func (t *target) copied() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.copies...)
}

type targetConn struct{ t *target }

func (c *targetConn) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag("TRUNCATE TABLE"), nil
}

func (c *targetConn) CopyFrom(ctx context.Context, r io.Reader, sql string) (pgconn.CommandTag, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	table, _, _ := strings.Cut(strings.TrimPrefix(sql, "COPY "), " (")

	c.t.mu.Lock()
	defer c.t.mu.Unlock()
	if c.t.onCopy != nil {
		c.t.onCopy(sql)
	}
	if err := c.t.copyErr[table]; err != nil {
		return pgconn.CommandTag{}, err
	}
	c.t.copies = append(c.t.copies, table)
	rows := bytes.Count(b, []byte("\n")) - 1
	return pgconn.NewCommandTag("COPY " + strconv.Itoa(rows)), nil
}

func (c *targetConn) Release() {}

func catalogOf(t *testing.T, tables []string, edges ...string) *schema.Catalog {
	t.Helper()
	var ts []schema.Table
	for _, name := range tables {
		s, n, _ := strings.Cut(name, ".")
		ts = append(ts, schema.Table{Schema: s, Name: n})
	}
	var fks []schema.ForeignKey
	for _, e := range edges {
		src, ref, _ := strings.Cut(e, "->")
		fks = append(fks, schema.ForeignKey{Source: schema.TableKey(src), Referenced: schema.TableKey(ref)})
	}
	c, err := schema.NewCatalog(ts, fks)
	require.NoError(t, err)
	return c
}

type staticIntrospector struct {
	tables  []schema.Table
	columns []schema.Column
	fks     []schema.ForeignKey
}

func (s staticIntrospector) ListTargetTables(ctx context.Context) ([]schema.Table, error) {
	return s.tables, nil
}

func (s staticIntrospector) ListColumns(ctx context.Context) ([]schema.Column, error) {
	return s.columns, nil
}

func (s staticIntrospector) ListForeignKeys(ctx context.Context) ([]schema.ForeignKey, error) {
	return s.fks, nil
}

func newService(mfs filesystem.FileSystemProvider) *LoadService {
	svc := NewLoadService(func(*fastload.ConnectionConfig) (fastload.Connector, error) {
		return nil, errors.New("no database in unit tests")
	}, logging.NewNullLogger(), mfs)
	svc.executor = retry.NewExecutor(retry.NewPostgreSQLErrorClassifier(),
		retry.NewExponentialBackoff(1, retry.WithInitialDelay(time.Millisecond), retry.WithJitter(0)))
	return svc
}

func planFor(t *testing.T, svc *LoadService, catalog *schema.Catalog) *Plan {
	t.Helper()
	files, jobs, err := svc.discover("/data")
	require.NoError(t, err)
	return &Plan{Catalog: catalog, Files: files, Jobs: jobs}
}

func salesData() *filesystem.MemoryFileSystem {
	mfs := filesystem.NewMemoryFileSystem("/data")
	mfs.AddFile("sales.orders.csv", "id,customer_id\n1,1\n2,1\n3,2\n")
	mfs.AddFile("sales.customers.csv", "id,name\n1,ann\n2,bob\n")
	return mfs
}

func TestLoadService_LoadOrdersDependencies(t *testing.T) {
	catalog := catalogOf(t, []string{"sales.orders", "sales.customers"}, "sales.orders->sales.customers")
	for i := 0; i < 20; i++ {
		svc := newService(salesData())
		db := newTarget()

		report, err := svc.Load(context.Background(), db, planFor(t, svc, catalog), 4)
		require.NoError(t, err)

		assert.Equal(t, []string{`"sales"."customers"`, `"sales"."orders"`}, db.copied())
		assert.Equal(t, 2, report.Summary.Loaded)
		assert.Equal(t, int64(5), report.Summary.Rows)
		assert.Zero(t, report.Remaining)
	}
}

func TestLoadService_MissingDependencyData(t *testing.T) {
	mfs := filesystem.NewMemoryFileSystem("/data")
	mfs.AddFile("public.child.csv", "id,parent_id\n1,1\n")
	svc := newService(mfs)
	db := newTarget()
	catalog := catalogOf(t, []string{"public.child", "public.parent"}, "public.child->public.parent")

	report, err := svc.Load(context.Background(), db, planFor(t, svc, catalog), 2)
	require.NoError(t, err)

	assert.Equal(t, []string{`"public"."child"`}, db.copied())
	assert.Equal(t, 1, report.Summary.Loaded)
	assert.Equal(t, 1, report.Summary.NoData)
}

func TestLoadService_FailedTableReleasesDependents(t *testing.T) {
	svc := newService(salesData())
	db := newTarget()
	db.copyErr[`"sales"."customers"`] = &pgconn.PgError{Code: "22P02", Message: "invalid input syntax for type integer"}
	catalog := catalogOf(t, []string{"sales.orders", "sales.customers"}, "sales.orders->sales.customers")

	report, err := svc.Load(context.Background(), db, planFor(t, svc, catalog), 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, fastload.ErrLoadFailed)
	assert.Equal(t, fastload.ExitExecutionFailed, fastload.ExitCodeForError(err))

	assert.Equal(t, []string{`"sales"."orders"`}, db.copied())
	require.Len(t, report.Summary.Failures, 1)
	assert.Equal(t, "sales.customers", report.Summary.Failures[0].Table)
	assert.Contains(t, report.Summary.Failures[0].Message, "invalid input syntax")
}

func TestLoadService_NoConnectionsLeavesQueue(t *testing.T) {
	svc := newService(salesData())
	db := newTarget()
	db.acquireErr = errors.New("password authentication failed")
	catalog := catalogOf(t, []string{"sales.orders", "sales.customers"})

	report, err := svc.Load(context.Background(), db, planFor(t, svc, catalog), 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, fastload.ErrIncompleteRun)
	assert.Equal(t, 2, report.Remaining)
	assert.Len(t, report.WorkerErrors, 3)
}

func TestLoadService_ObserversSeeEveryTable(t *testing.T) {
	svc := newService(salesData())
	catalog := catalogOf(t, []string{"sales.orders", "sales.customers"}, "sales.orders->sales.customers")

	var mu sync.Mutex
	seen := map[string]scheduler.Outcome{}
	obs := scheduler.ObserverFunc(func(ev scheduler.Event) {
		mu.Lock()
		defer mu.Unlock()
		seen[ev.Table.String()] = ev.Outcome
	})

	_, err := svc.Load(context.Background(), newTarget(), planFor(t, svc, catalog), 2, obs, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]scheduler.Outcome{
		"sales.orders":    scheduler.OutcomeLoaded,
		"sales.customers": scheduler.OutcomeLoaded,
	}, seen)
}

func TestLoadService_Script(t *testing.T) {
	svc := newService(salesData())
	catalog := catalogOf(t, []string{"sales.orders", "sales.customers"}, "sales.orders->sales.customers")
	var out bytes.Buffer

	report, err := svc.Script(context.Background(), planFor(t, svc, catalog), &out, "/srv/load")
	require.NoError(t, err)
	assert.True(t, report.Script)
	assert.Equal(t, 2, report.Summary.Loaded)

	script := out.String()
	customers := strings.Index(script, `TRUNCATE TABLE "sales"."customers" CASCADE;`)
	orders := strings.Index(script, `TRUNCATE TABLE "sales"."orders" CASCADE;`)
	require.GreaterOrEqual(t, customers, 0)
	require.GreaterOrEqual(t, orders, 0)
	assert.Less(t, customers, orders)
	assert.Contains(t, script, `COPY "sales"."orders" ("id", "customer_id") FROM '/srv/load/sales.orders.csv'`)
}

func TestLoadService_ResolvesHeaderCase(t *testing.T) {
	mfs := filesystem.NewMemoryFileSystem("/data")
	mfs.AddFile("dbo.customers.csv", "CustomerId,FirstName\n1,@null@\n")
	svc := newService(mfs)
	catalog, err := schema.NewCatalog(
		[]schema.Table{{Schema: "dbo", Name: "customers"}},
		nil,
		schema.Column{Table: "dbo.customers", Name: "customerid"},
		schema.Column{Table: "dbo.customers", Name: "firstname"},
	)
	require.NoError(t, err)
	plan := planFor(t, svc, catalog)
	plan.Format = bulk.Format{Null: "@null@", Escape: `\`}

	var sql []string
	db := newTarget()
	db.onCopy = func(stmt string) { sql = append(sql, stmt) }
	report, err := svc.Load(context.Background(), db, plan, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Summary.Loaded)
	assert.Equal(t, []string{
		`COPY "dbo"."customers" ("customerid", "firstname") FROM STDIN WITH (FORMAT csv, HEADER true, NULL '@null@', ESCAPE '\')`,
	}, sql)

	var out bytes.Buffer
	_, err = svc.Script(context.Background(), plan, &out, "")
	require.NoError(t, err)
	assert.Contains(t, out.String(),
		`COPY "dbo"."customers" ("customerid", "firstname") FROM '/data/dbo.customers.csv' WITH (FORMAT csv, HEADER true, NULL '@null@', ESCAPE '\')`)
}

func TestPlan_Matched(t *testing.T) {
	mfs := salesData()
	mfs.AddFile("sales.returns.csv", "id\n1\n")
	svc := newService(mfs)
	plan := planFor(t, svc, catalogOf(t, []string{"sales.orders", "sales.customers"}))
	assert.Len(t, plan.Jobs, 3)
	assert.Equal(t, 2, plan.Matched())
}

func TestLoadService_Introspect(t *testing.T) {
	svc := newService(salesData())
	var excluded []string
	svc.newIntrospector = func(conn fastload.DBConnection, exclude []string) (schema.Introspector, error) {
		excluded = exclude
		return staticIntrospector{
			tables:  []schema.Table{{Schema: "sales", Name: "orders"}, {Schema: "sales", Name: "customers"}},
			columns: []schema.Column{{Table: "sales.orders", Name: "id"}, {Table: "sales.orders", Name: "customer_id"}},
			fks:     []schema.ForeignKey{{Source: "sales.orders", Referenced: "sales.customers"}},
		}, nil
	}

	catalog, err := svc.introspect(context.Background(), newTarget(), []string{"^staging$"})
	require.NoError(t, err)
	assert.Equal(t, 2, catalog.Len())
	cols, err := catalog.ResolveColumns("sales.orders", []string{"Customer_ID", "Id"})
	require.NoError(t, err)
	assert.Equal(t, []string{"customer_id", "id"}, cols)
	assert.Equal(t, append(append([]string{}, fastload.DefaultExcludeSchemas...), "^staging$"), excluded)
}

func TestLoadService_RunErrors(t *testing.T) {
	valid := fastload.LoadConfig{InputPath: "/data", Workers: 2}

	tests := []struct {
		name    string
		mfs     *filesystem.MemoryFileSystem
		mutate  func(*fastload.LoadConfig)
		wantErr error
		wantMsg string
	}{
		{
			name:    "invalid config",
			mfs:     salesData(),
			mutate:  func(c *fastload.LoadConfig) { c.Workers = 0 },
			wantErr: fastload.ErrInvalidConfig,
		},
		{
			name:    "unknown encoding",
			mfs:     salesData(),
			mutate:  func(c *fastload.LoadConfig) { c.Encoding = "klingon" },
			wantErr: fastload.ErrInvalidConfig,
		},
		{
			name:    "escape longer than one character",
			mfs:     salesData(),
			mutate:  func(c *fastload.LoadConfig) { c.Escape = `\\` },
			wantErr: fastload.ErrInvalidConfig,
		},
		{
			name:    "no data files",
			mfs:     filesystem.NewMemoryFileSystem("/data"),
			wantErr: fastload.ErrNoDataFiles,
		},
		{
			name:    "connector failure",
			mfs:     salesData(),
			wantMsg: "failed to create connector",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}
			report, err := newService(tt.mfs).Run(context.Background(), &fastload.ConnectionConfig{}, cfg, io.Discard)
			require.Error(t, err)
			assert.Nil(t, report)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestReport_Err(t *testing.T) {
	assert.NoError(t, (&Report{}).Err())

	err := (&Report{Summary: scheduler.Summary{Loaded: 3, Failed: 1}, Remaining: 2}).Err()
	assert.ErrorIs(t, err, fastload.ErrLoadFailed)
	assert.ErrorIs(t, err, fastload.ErrIncompleteRun)
	assert.Contains(t, err.Error(), "1 of 4 tables failed")
}

func TestNewLoadService_PanicsOnNil(t *testing.T) {
	assert.Panics(t, func() { NewLoadService(nil, logging.NewNullLogger(), filesystem.NewMemoryFileSystem("/")) })
	assert.Panics(t, func() {
		NewLoadService(func(*fastload.ConnectionConfig) (fastload.Connector, error) { return nil, nil }, nil, filesystem.NewMemoryFileSystem("/"))
	})
}
