package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vvka-141/pgfastload/internal/schema"
)

// newCatalog builds a catalog from "schema.table" names and
// "source->referenced" edges.
func newCatalog(t *testing.T, tables []string, edges ...string) *schema.Catalog {
	t.Helper()
	var ts []schema.Table
	for _, name := range tables {
		s, n, ok := strings.Cut(name, ".")
		require.True(t, ok, "table name %q", name)
		ts = append(ts, schema.Table{Schema: s, Name: n})
	}
	var fks []schema.ForeignKey
	for _, e := range edges {
		src, ref, ok := strings.Cut(e, "->")
		require.True(t, ok, "edge %q", e)
		fks = append(fks, schema.ForeignKey{Source: schema.TableKey(src), Referenced: schema.TableKey(ref)})
	}
	c, err := schema.NewCatalog(ts, fks)
	require.NoError(t, err)
	return c
}

func filesFor(keys ...string) FileMap {
	m := make(FileMap, len(keys))
	for _, k := range keys {
		m[schema.TableKey(k)] = "/data/" + k + ".csv"
	}
	return m
}

// recorder is an Action that records calls and checks that every
// referenced table is already Loaded when a table is applied.
type recorder struct {
	coord   *Coordinator
	catalog *schema.Catalog
	fail    map[schema.TableKey]error
	block   map[schema.TableKey]chan struct{}

	mu         sync.Mutex
	order      []schema.TableKey
	calls      map[schema.TableKey]int
	violations []string
}

func newRecorder(catalog *schema.Catalog) *recorder {
	return &recorder{
		catalog: catalog,
		fail:    make(map[schema.TableKey]error),
		block:   make(map[schema.TableKey]chan struct{}),
		calls:   make(map[schema.TableKey]int),
	}
}

func (r *recorder) Apply(ctx context.Context, table schema.Table, path string) (int64, error) {
	key := table.Key()
	if ch, ok := r.block[key]; ok {
		<-ch
	}

	r.mu.Lock()
	r.order = append(r.order, key)
	r.calls[key]++
	for _, dep := range r.catalog.Graph().DependenciesOf(key) {
		if dep == key || !r.catalog.Contains(dep) {
			continue
		}
		if phase := r.coord.Phase(dep); phase != Loaded {
			r.violations = append(r.violations, fmt.Sprintf("%s applied while %s was %s", key, dep, phase))
		}
	}
	r.mu.Unlock()

	if err := r.fail[key]; err != nil {
		return 0, err
	}
	return 10, nil
}

func (r *recorder) Close() error { return nil }

func (r *recorder) callsOf(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[schema.TableKey(key)]
}

func (r *recorder) position(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, k := range r.order {
		if k == schema.TableKey(key) {
			return i
		}
	}
	return -1
}

// captureLogger keeps every message by level.
type captureLogger struct {
	mu       sync.Mutex
	warnings []string
	errors   []string
}

func (l *captureLogger) Verbose(format string, args ...interface{}) {}
func (l *captureLogger) Info(format string, args ...interface{})    {}

func (l *captureLogger) Warn(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnings = append(l.warnings, fmt.Sprintf(format, args...))
}

func (l *captureLogger) Error(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, fmt.Sprintf(format, args...))
}

func (l *captureLogger) Warnings() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.warnings...)
}

func (l *captureLogger) Errors() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.errors...)
}

// sessions hands every worker the same recorder, optionally failing some.
type sessions struct {
	rec  *recorder
	fail map[CallerID]error
}

func (s *sessions) NewSession(ctx context.Context, id CallerID) (Session, error) {
	if err := s.fail[id]; err != nil {
		return nil, err
	}
	return s.rec, nil
}

// waitUntil polls cond until it holds or the test times out.
func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 5*time.Second, time.Millisecond)
}

func (c *Coordinator) isWaiting(id CallerID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.waitingOn[id]
	return ok
}
