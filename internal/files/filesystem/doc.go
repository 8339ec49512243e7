// Package filesystem provides filesystem abstraction interfaces and implementations.
//
// Key interfaces:
//   - FileSystemProvider: Opens directories for walking and files for streaming
//   - Directory: Represents a directory that can be traversed
//   - File: Represents an individual file discovered by a walk
//
// Implementations:
//   - OSFileSystem: Production implementation using the OS filesystem
//   - MemoryFileSystem: In-memory implementation for testing
package filesystem
