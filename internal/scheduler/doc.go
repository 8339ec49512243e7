// Package scheduler loads tables in foreign-key order with a pool of workers.
//
// There is no precomputed global order. Each worker pops a data file from a
// shared queue and asks the Coordinator to load its table; the coordinator
// first loads, recursively and on the same worker, every table the target
// references, then invokes the worker's leaf Action. A shared state table
// guarded by one mutex and condition variable guarantees every table is
// handed to an Action at most once.
//
// A worker that reaches a table another worker is loading waits for it.
// Before waiting it follows the chain of who-waits-on-whom; if the chain
// leads back to itself the wait could never end, so the table is treated as
// in progress instead. The same rule covers a table that references itself.
//
// Script mode uses the same Coordinator with a single caller and no waiting.
package scheduler
