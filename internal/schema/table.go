package schema

import (
	"strings"

	"github.com/jackc/pgx/v5"
)

// TableKey is the normalized, lower-case "schema.table" name used for scheduling.
type TableKey string

// KeyOf returns the TableKey for a schema and table name.
func KeyOf(schemaName, tableName string) TableKey {
	return TableKey(strings.ToLower(schemaName + "." + tableName))
}

func (k TableKey) String() string { return string(k) }

// Table is the physical identity of a target table with its exact case.
type Table struct {
	Schema string
	Name   string
}

// Key returns the scheduling key of t.
func (t Table) Key() TableKey {
	return KeyOf(t.Schema, t.Name)
}

// Quoted returns the schema-qualified, quoted identifier for use in SQL.
func (t Table) Quoted() string {
	return pgx.Identifier{t.Schema, t.Name}.Sanitize()
}

func (t Table) String() string {
	return t.Schema + "." + t.Name
}

// ForeignKey records that Source references Referenced.
type ForeignKey struct {
	Source     TableKey
	Referenced TableKey
}

// Column is one column of a target table, in physical case.
type Column struct {
	Table TableKey
	Name  string
}
