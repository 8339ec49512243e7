package retry

import (
	"context"
	"time"

	"github.com/vvka-141/pgfastload/pkg/fastload"
)

// Executor orchestrates retry attempts with backoff and error classification.
//
// The Executor is safe for concurrent use when calling Execute(). WithOnRetry()
// returns a new instance, so load workers can each attach their own callback.
type Executor struct {
	classifier fastload.ErrorClassifier
	strategy   fastload.BackoffStrategy
	onRetry    func(attempt int, err error, delay time.Duration)
}

// NewExecutor creates a new retry executor with the given configuration.
// Panics if classifier or strategy is nil.
func NewExecutor(classifier fastload.ErrorClassifier, strategy fastload.BackoffStrategy) *Executor {
	if classifier == nil {
		panic("classifier cannot be nil")
	}
	if strategy == nil {
		panic("strategy cannot be nil")
	}
	return &Executor{
		classifier: classifier,
		strategy:   strategy,
	}
}

// NewDefaultExecutor builds an executor with the package-wide retry defaults:
// DefaultRetryMaxAttempts retries, exponential backoff from DefaultRetryInitialDelay
// capped at DefaultRetryMaxDelay.
func NewDefaultExecutor(classifier fastload.ErrorClassifier) *Executor {
	return NewExecutor(classifier, NewExponentialBackoff(fastload.DefaultRetryMaxAttempts,
		WithInitialDelay(fastload.DefaultRetryInitialDelay),
		WithMaxDelay(fastload.DefaultRetryMaxDelay),
	))
}

// WithOnRetry returns a new Executor with the specified retry callback.
// The receiver is not modified.
func (e *Executor) WithOnRetry(callback func(attempt int, err error, delay time.Duration)) *Executor {
	clone := *e
	clone.onRetry = callback
	return &clone
}

// Execute runs the operation with retry logic.
// Returns the result of the last attempt (success or fatal error).
func (e *Executor) Execute(ctx context.Context, operation func(ctx context.Context) error) error {
	maxAttempts := e.strategy.MaxAttempts()

	lastErr := operation(ctx)
	if lastErr == nil || !e.classifier.IsTransient(lastErr) {
		return lastErr
	}

	// A negative maxAttempts retries until the context ends.
	for attempt := 0; maxAttempts < 0 || attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		delay := e.strategy.NextDelay(attempt)
		if e.onRetry != nil {
			e.onRetry(attempt, lastErr, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		lastErr = operation(ctx)
		if lastErr == nil || !e.classifier.IsTransient(lastErr) {
			return lastErr
		}
	}

	return lastErr
}
