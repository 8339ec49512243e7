// Package logging provides concrete implementations of the fastload.Logger interface.
//
// Available implementations:
//   - ConsoleLogger: Writes formatted messages to stderr with thread-safe output
//   - NullLogger: Discards all messages (useful for testing)
//   - WorkerLogger: Prefixes messages with the worker that produced them
//
// All logger implementations are safe for concurrent use by multiple goroutines.
package logging
