package schema

import (
	"context"
	"fmt"
	"regexp"

	"github.com/vvka-141/pgfastload/pkg/fastload"
)

const listTablesSQL = `
SELECT table_schema, table_name
FROM information_schema.tables
WHERE table_type = 'BASE TABLE'
ORDER BY table_schema, table_name`

const listColumnsSQL = `
SELECT table_schema, table_name, column_name
FROM information_schema.columns
ORDER BY table_schema, table_name, ordinal_position`

// Both ends of every constraint are resolved through pg_class so that the
// referenced table is schema-qualified even when it lives in another schema.
const listForeignKeysSQL = `
SELECT src_ns.nspname, src.relname, ref_ns.nspname, ref.relname
FROM pg_catalog.pg_constraint c
JOIN pg_catalog.pg_class src ON src.oid = c.conrelid
JOIN pg_catalog.pg_namespace src_ns ON src_ns.oid = src.relnamespace
JOIN pg_catalog.pg_class ref ON ref.oid = c.confrelid
JOIN pg_catalog.pg_namespace ref_ns ON ref_ns.oid = ref.relnamespace
WHERE c.contype = 'f'
ORDER BY 1, 2, 3, 4`

// Querier is the subset of fastload.DBConnection the introspector needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (fastload.Rows, error)
}

// PgIntrospector reads the catalog of a PostgreSQL target.
type PgIntrospector struct {
	db      Querier
	exclude []*regexp.Regexp
}

// NewPgIntrospector creates an introspector that ignores schemas matching any
// of the exclude patterns.
func NewPgIntrospector(db Querier, exclude []string) (*PgIntrospector, error) {
	p := &PgIntrospector{db: db}
	for _, pattern := range exclude {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude-schema pattern %q: %v: %w", pattern, err, fastload.ErrInvalidConfig)
		}
		p.exclude = append(p.exclude, re)
	}
	return p, nil
}

func (p *PgIntrospector) excluded(schemaName string) bool {
	for _, re := range p.exclude {
		if re.MatchString(schemaName) {
			return true
		}
	}
	return false
}

// ListTargetTables returns the base tables outside excluded schemas.
func (p *PgIntrospector) ListTargetTables(ctx context.Context) ([]Table, error) {
	rows, err := p.db.Query(ctx, listTablesSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []Table
	for rows.Next() {
		var t Table
		if err := rows.Scan(&t.Schema, &t.Name); err != nil {
			return nil, err
		}
		if p.excluded(t.Schema) {
			continue
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

// ListColumns returns the columns of every base table outside excluded
// schemas, in ordinal order per table. Columns of views are dropped by the
// catalog.
func (p *PgIntrospector) ListColumns(ctx context.Context) ([]Column, error) {
	rows, err := p.db.Query(ctx, listColumnsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var schemaName, tableName, name string
		if err := rows.Scan(&schemaName, &tableName, &name); err != nil {
			return nil, err
		}
		if p.excluded(schemaName) {
			continue
		}
		cols = append(cols, Column{Table: KeyOf(schemaName, tableName), Name: name})
	}
	return cols, rows.Err()
}

// ListForeignKeys returns every foreign key of the database. Edges touching
// excluded tables are kept; the loader skips tables it does not know.
func (p *PgIntrospector) ListForeignKeys(ctx context.Context) ([]ForeignKey, error) {
	rows, err := p.db.Query(ctx, listForeignKeysSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []ForeignKey
	for rows.Next() {
		var srcSchema, srcTable, refSchema, refTable string
		if err := rows.Scan(&srcSchema, &srcTable, &refSchema, &refTable); err != nil {
			return nil, err
		}
		fks = append(fks, ForeignKey{
			Source:     KeyOf(srcSchema, srcTable),
			Referenced: KeyOf(refSchema, refTable),
		})
	}
	return fks, rows.Err()
}

var _ Introspector = (*PgIntrospector)(nil)
