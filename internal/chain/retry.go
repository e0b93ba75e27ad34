package chain

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/mrz1836/hdwscan/internal/discovery"
	"github.com/mrz1836/hdwscan/internal/dpath"
	"github.com/mrz1836/hdwscan/internal/ledger"
	hdwerr "github.com/mrz1836/hdwscan/pkg/errors"
)

// Sentinel errors for retry logic.
var (
	ErrRetryable = &hdwerr.Error{
		Code:     "RETRYABLE_ERROR",
		Message:  "retryable error",
		ExitCode: hdwerr.ExitGeneral,
	}

	ErrTimeout = &hdwerr.Error{
		Code:     "TIMEOUT",
		Message:  "operation timed out",
		ExitCode: hdwerr.ExitGeneral,
	}

	ErrRateLimited = &hdwerr.Error{
		Code:     "RATE_LIMITED",
		Message:  "rate limited",
		ExitCode: hdwerr.ExitGeneral,
	}
)

// RetryConfig configures retry behavior.
type RetryConfig struct {
	MaxAttempts int           // Maximum number of attempts (including initial)
	BaseDelay   time.Duration // Initial delay between retries
	MaxDelay    time.Duration // Maximum delay between retries
}

// DefaultRetryConfig returns the default retry configuration.
// 4 attempts total (1 initial + 3 retries) with delays: 1s, 2s, 4s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 4,
		BaseDelay:   time.Second,
		MaxDelay:    4 * time.Second,
	}
}

// Retry executes the operation with exponential backoff retry.
// Uses default configuration: 4 attempts with delays 1s, 2s, 4s.
func Retry[T any](ctx context.Context, operation func() (T, error)) (T, error) {
	return RetryWithConfig(ctx, DefaultRetryConfig(), operation)
}

// RetryWithConfig executes the operation with the specified retry configuration.
// Only errors accepted by IsRetryable are retried; anything else is returned
// immediately. A MaxAttempts below one still runs the operation once.
func RetryWithConfig[T any](ctx context.Context, cfg RetryConfig, operation func() (T, error)) (T, error) {
	attempts := max(cfg.MaxAttempts, 1)

	var result T
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		result, err = operation()
		if err == nil {
			return result, nil
		}
		if !IsRetryable(err) {
			return result, err
		}

		// No delay after the last attempt
		if attempt < attempts-1 {
			timer := time.NewTimer(calculateDelay(attempt, cfg.BaseDelay, cfg.MaxDelay))
			select {
			case <-ctx.Done():
				timer.Stop()
				return result, ctx.Err()
			case <-timer.C:
			}
		}
	}

	return result, fmt.Errorf("operation failed after %d attempts: %w", attempts, err)
}

// calculateDelay returns the exponential backoff for attempt with jitter in
// [delay/2, delay).
func calculateDelay(attempt int, baseDelay, maxDelay time.Duration) time.Duration {
	delay := baseDelay * (1 << attempt)
	if delay > maxDelay {
		delay = maxDelay
	}
	half := delay / 2
	if half <= 0 {
		return delay
	}
	return half + rand.N(half) //nolint:gosec // G404: Jitter does not require cryptographic randomness
}

// IsRetryable returns true if the error should trigger a retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	return errors.Is(err, ErrRetryable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, context.DeadlineExceeded)
}

// WrapRetryable wraps an error to mark it as retryable.
func WrapRetryable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrRetryable, err)
}

// Retrying returns a fetcher that retries failed batches of next according
// to cfg. Batches are idempotent per path and start index, so a repeated
// request is safe.
func Retrying(next discovery.BalanceFetcher, cfg RetryConfig) discovery.BalanceFetcher {
	return FetcherFunc(func(ctx context.Context, path dpath.DPath, start, count int) ([]ledger.Account, error) {
		return RetryWithConfig(ctx, cfg, func() ([]ledger.Account, error) {
			return next.FetchBalances(ctx, path, start, count)
		})
	})
}
