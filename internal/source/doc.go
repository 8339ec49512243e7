// Package source exports SQL Server tables to the CSV files that load
// consumes: one <schema>.<table>.csv[.gz] per table, with a header row.
//
// NULL is written as an empty unquoted field and the empty string as "",
// which is how PostgreSQL's COPY ... (FORMAT csv) tells them apart.
package source
