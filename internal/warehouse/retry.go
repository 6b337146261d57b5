package warehouse

import (
	"context"
	"errors"
	"fmt"
	"time"

	rgerrors "github.com/rowguard-labs/rowguard/internal/errors"
)

// RetryConfig configures retry behavior for connection-level probes.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts, including the first.
	MaxAttempts int

	// InitialDelay is the delay before the second attempt.
	InitialDelay time.Duration

	// MaxDelay caps the backoff.
	MaxDelay time.Duration

	// BackoffMultiplier grows the delay between attempts.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialDelay:      100 * time.Millisecond,
		MaxDelay:          5 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// RetryResult reports what happened across attempts. Retries are never
// hidden from the caller.
type RetryResult struct {
	Attempts  int
	LastError error
	Errors    []error
	Success   bool
}

func (r RetryResult) String() string {
	if r.Success {
		if r.Attempts == 1 {
			return "succeeded on first attempt"
		}
		return fmt.Sprintf("succeeded after %d attempts", r.Attempts)
	}
	return fmt.Sprintf("failed after %d attempts: %v", r.Attempts, r.LastError)
}

// IsRetryable reports whether an error is a connection-level failure worth
// another attempt. Statement failures, validation errors and cancelled
// contexts are never retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var connErr *rgerrors.ErrConnectionFailed
	return errors.As(err, &connErr)
}

// ExecuteWithRetry runs fn until it succeeds, the error is not retryable,
// or attempts are exhausted. The result carries every error seen.
func ExecuteWithRetry(ctx context.Context, config RetryConfig, fn func() error) RetryResult {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 100 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 5 * time.Second
	}
	if config.BackoffMultiplier <= 0 {
		config.BackoffMultiplier = 2.0
	}

	result := RetryResult{
		Errors: make([]error, 0, config.MaxAttempts),
	}

	delay := config.InitialDelay

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		result.Attempts = attempt

		if ctx.Err() != nil {
			result.LastError = ctx.Err()
			result.Errors = append(result.Errors, ctx.Err())
			return result
		}

		err := fn()
		if err == nil {
			result.Success = true
			return result
		}

		result.LastError = err
		result.Errors = append(result.Errors, err)

		if !IsRetryable(err) {
			return result
		}

		if attempt < config.MaxAttempts {
			select {
			case <-ctx.Done():
				result.LastError = ctx.Err()
				result.Errors = append(result.Errors, ctx.Err())
				return result
			case <-time.After(delay):
				delay = time.Duration(float64(delay) * config.BackoffMultiplier)
				if delay > config.MaxDelay {
					delay = config.MaxDelay
				}
			}
		}
	}

	return result
}
