// Package retry provides automatic retry logic with exponential backoff
// for transient database failures.
//
// # Example Usage
//
//	executor := retry.NewDefaultExecutor(retry.NewPostgreSQLErrorClassifier())
//
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    return connectToDatabase(ctx)
//	})
//
// # Error Classification
//
// The ErrorClassifier interface determines which errors are transient (retryable)
// versus fatal. PostgreSQLErrorClassifier covers the load target and
// SQLServerErrorClassifier covers the export source; both fall back to
// network-level inspection for errors without a server code.
//
// # Backoff Strategies
//
// ExponentialBackoff grows the delay geometrically from an initial delay up to
// a cap, with optional jitter so that many workers reconnecting at once do not
// retry in lockstep.
package retry
