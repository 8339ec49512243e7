// Package schema models the target database as the loader sees it: the set of
// base tables keyed by a case-insensitive schema-qualified name, and the
// foreign-key dependency graph between them.
//
// A Catalog is built once before any worker starts and is read-only afterwards,
// so it is safe for concurrent use without locking.
package schema
