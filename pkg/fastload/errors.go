package fastload

import (
	"errors"
	"strings"
)

// Sentinel errors for common failure scenarios.
// These enable callers to distinguish error types using errors.Is().
//
// Example usage:
//
//	err := runner.Run(ctx, config)
//	if errors.Is(err, fastload.ErrLoadFailed) {
//	    // some tables failed to load
//	}
var (
	// ErrInvalidConfig indicates the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidSchema indicates the target schema cannot be scheduled,
	// e.g. two physical tables normalize to the same table key.
	ErrInvalidSchema = errors.New("invalid target schema")

	// ErrNoDataFiles indicates the input contained no .csv or .csv.gz files.
	ErrNoDataFiles = errors.New("no data files found")

	// ErrLoadFailed indicates at least one table failed to load.
	ErrLoadFailed = errors.New("load failed")

	// ErrIncompleteRun indicates the job queue was not drained, typically
	// because every worker failed to open its connection.
	ErrIncompleteRun = errors.New("incomplete run")

	// ErrExportFailed indicates exporting from the source database failed.
	ErrExportFailed = errors.New("export failed")

	// ErrUnsupportedAuthMethod indicates the requested authentication method is not supported.
	ErrUnsupportedAuthMethod = errors.New("unsupported authentication method")

	// ErrConnectionFailed indicates database connection failed.
	ErrConnectionFailed = errors.New("connection failed")
)

// usagePatterns are the error prefixes cobra produces for command line misuse.
var usagePatterns = []string{
	"unknown flag",
	"unknown shorthand flag",
	"unknown command",
	"accepts ",
	"requires at least",
	"required flag",
	"invalid argument",
	"flag needs an argument",
}

// ExitCodeForError returns the appropriate exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known errors,
// and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, ErrInvalidConfig), errors.Is(err, ErrUnsupportedAuthMethod):
		return ExitConfigError
	case errors.Is(err, ErrConnectionFailed):
		return ExitConnectionError
	case errors.Is(err, ErrInvalidSchema):
		return ExitSchemaError
	case errors.Is(err, ErrNoDataFiles):
		return ExitNoDataFiles
	case errors.Is(err, ErrLoadFailed), errors.Is(err, ErrIncompleteRun), errors.Is(err, ErrExportFailed):
		return ExitExecutionFailed
	}

	errStr := err.Error()
	for _, p := range usagePatterns {
		if strings.HasPrefix(errStr, p) {
			return ExitUsageError
		}
	}

	if strings.Contains(errStr, "failed to connect") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") {
		return ExitConnectionError
	}

	return ExitGeneralError
}
