package execution

import (
	"context"
	"errors"
	"fmt"

	"github.com/SwiftFiat/SwiftFiat-Cards/services/monitoring/logging"
	"github.com/sirupsen/logrus"
)

type RetryPolicy struct {
	// MaxAttempts counts the first call. Values below 1 mean one attempt.
	MaxAttempts int
	// Retryable decides whether a failed attempt may be repeated. Nil means
	// DefaultRetryable.
	Retryable func(err error) bool
}

// DefaultRetryable refuses validation failures and caller cancellation.
func DefaultRetryable(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrValidation) && !errors.Is(err, context.Canceled)
}

// RetryUnless extends DefaultRetryable with caller supplied fatal checks.
func RetryUnless(fatal ...func(error) bool) func(error) bool {
	return func(err error) bool {
		if !DefaultRetryable(err) {
			return false
		}
		for _, isFatal := range fatal {
			if isFatal(err) {
				return false
			}
		}
		return true
	}
}

// Retry calls next until it succeeds, returns a non-retryable error or runs
// out of attempts. The last error is returned as is.
func Retry[In, Out any](policy RetryPolicy, log *logging.Logger) Decorator[In, Out] {
	if log == nil {
		log = logging.NewDiscardLogger()
	}
	maxAttempts := policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	retryable := policy.Retryable
	if retryable == nil {
		retryable = DefaultRetryable
	}

	return func(name string, next Handler[In, Out]) Handler[In, Out] {
		return func(ctx context.Context, in In) (Out, error) {
			var (
				out Out
				err error
			)
			for attempt := 1; attempt <= maxAttempts; attempt++ {
				out, err = next(ctx, in)
				if err == nil {
					return out, nil
				}

				canRetry := retryable(err)
				log.WithFields(logrus.Fields{
					"operation":  name,
					"attempt":    attempt,
					"error_type": fmt.Sprintf("%T", err),
					"error":      err.Error(),
					"retryable":  canRetry,
				}).Info(fmt.Sprintf("Execution of %s failed (attempt: %d)", name, attempt))

				if !canRetry || ctx.Err() != nil {
					return out, err
				}
			}
			return out, err
		}
	}
}
