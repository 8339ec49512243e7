package schema

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/vvka-141/pgfastload/pkg/fastload"
)

// Catalog is the set of loadable target tables, their columns and their
// dependency graph.
type Catalog struct {
	tables  map[TableKey]Table
	columns map[TableKey][]string
	graph   *DependencyGraph
}

// NewCatalog indexes tables by key. Two physical tables that differ only in
// case would share a key, which would make file-to-table mapping ambiguous;
// such a schema is rejected with ErrInvalidSchema. Columns of tables outside
// the catalog are dropped.
func NewCatalog(tables []Table, fks []ForeignKey, columns ...Column) (*Catalog, error) {
	c := &Catalog{
		tables:  make(map[TableKey]Table, len(tables)),
		columns: make(map[TableKey][]string),
		graph:   NewDependencyGraph(fks),
	}
	for _, t := range tables {
		key := t.Key()
		if prev, ok := c.tables[key]; ok && prev != t {
			return nil, fmt.Errorf("tables %q and %q both normalize to %q: %w", prev, t, key, fastload.ErrInvalidSchema)
		}
		c.tables[key] = t
	}
	for _, col := range columns {
		if _, ok := c.tables[col.Table]; ok {
			c.columns[col.Table] = append(c.columns[col.Table], col.Name)
		}
	}
	return c, nil
}

// Lookup returns the physical table for key.
func (c *Catalog) Lookup(key TableKey) (Table, bool) {
	t, ok := c.tables[key]
	return t, ok
}

// Contains reports whether key is a known target table.
func (c *Catalog) Contains(key TableKey) bool {
	_, ok := c.tables[key]
	return ok
}

// Graph returns the foreign-key dependency graph.
func (c *Catalog) Graph() *DependencyGraph {
	return c.graph
}

// Len returns the number of tables.
func (c *Catalog) Len() int {
	return len(c.tables)
}

// ResolveColumns maps the header names of a data file to the columns of
// table key. A name resolves to the column spelled exactly like it, else to
// the single column equal to it ignoring case. Unknown and ambiguous names
// fail with ErrInvalidSchema. When no columns are known for key the header
// is returned as is.
func (c *Catalog) ResolveColumns(key TableKey, header []string) ([]string, error) {
	cols := c.columns[key]
	if len(cols) == 0 {
		return slices.Clone(header), nil
	}

	resolved := make([]string, len(header))
	for i, name := range header {
		col, err := matchColumn(cols, name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		resolved[i] = col
	}
	return resolved, nil
}

func matchColumn(cols []string, name string) (string, error) {
	var folded []string
	for _, col := range cols {
		if col == name {
			return col, nil
		}
		if strings.EqualFold(col, name) {
			folded = append(folded, col)
		}
	}
	switch len(folded) {
	case 0:
		return "", fmt.Errorf("column %q does not exist: %w", name, fastload.ErrInvalidSchema)
	case 1:
		return folded[0], nil
	default:
		return "", fmt.Errorf("column %q is ambiguous between %q: %w", name, folded, fastload.ErrInvalidSchema)
	}
}

// Introspector reads table, column and foreign-key metadata from the target
// database.
type Introspector interface {
	ListTargetTables(ctx context.Context) ([]Table, error)
	ListColumns(ctx context.Context) ([]Column, error)
	ListForeignKeys(ctx context.Context) ([]ForeignKey, error)
}

// Load builds a Catalog from an Introspector.
func Load(ctx context.Context, in Introspector) (*Catalog, error) {
	tables, err := in.ListTargetTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list target tables: %w", err)
	}
	columns, err := in.ListColumns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns: %w", err)
	}
	fks, err := in.ListForeignKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list foreign keys: %w", err)
	}
	return NewCatalog(tables, fks, columns...)
}
