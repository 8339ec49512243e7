package fastload

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess         = 0  // Every queued table was processed without error
	ExitGeneralError    = 1  // Unknown or unclassified error
	ExitUsageError      = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic           = 3  // Internal panic (unexpected crash)
	ExitConfigError     = 10 // Invalid configuration or parameters
	ExitConnectionError = 11 // Failed to connect to database
	ExitSchemaError     = 12 // Target schema cannot be scheduled
	ExitExecutionFailed = 13 // One or more tables failed, or the queue was not drained
	ExitNoDataFiles     = 14 // Input contained no data files
)

const (
	// DefaultRetryInitialDelay is the default initial delay before the first retry attempt.
	DefaultRetryInitialDelay = 100 * time.Millisecond

	// DefaultRetryMaxDelay is the default maximum delay between retry attempts.
	DefaultRetryMaxDelay = 1 * time.Minute

	// DefaultRetryMaxAttempts is the default maximum number of retry attempts.
	DefaultRetryMaxAttempts = 3

	// DefaultConnectTimeout bounds establishing a single database connection.
	DefaultConnectTimeout = 300 * time.Second

	// DefaultUpdateInterval is how often non-interactive runs print progress.
	DefaultUpdateInterval = 10 * time.Second

	// DefaultWorkersPerCPU multiplies runtime.NumCPU() to get the default worker count.
	// Loads are I/O bound, so the pool is deliberately wider than the CPU count.
	DefaultWorkersPerCPU = 4

	// DefaultEncoding is the character encoding assumed for data files.
	DefaultEncoding = "utf-8"

	// CSVExtension and GzipCSVExtension are the recognized data file suffixes.
	CSVExtension     = ".csv"
	GzipCSVExtension = ".csv.gz"

	// MaxErrorPreviewLength is the maximum number of characters of a database
	// error message shown per failed table in the run summary.
	MaxErrorPreviewLength = 200
)

// DefaultExcludeSchemas lists target schemas that never hold loadable tables.
var DefaultExcludeSchemas = []string{`^pg_`, `^information_schema$`}
