// Package scanner discovers data files and derives the table each one loads.
//
// A data file is named after its target table: "<schema>.<table>.csv" or
// "<schema>.<table>.csv.gz". TableKeyOf strips the suffix and lower-cases the
// rest, so "Sales.Orders.CSV.GZ" loads into sales.orders.
package scanner
