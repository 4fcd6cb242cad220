package apierr

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// Backoff selects how the delay grows between attempts.
type Backoff int

const (
	// BackoffExponential doubles the delay after each retry, capped at MaxDelay.
	BackoffExponential Backoff = iota

	// BackoffLinearJitter waits uniform(BaseDelay, MaxDelay) × n before retry n.
	BackoffLinearJitter
)

// RetryConfig holds retry parameters.
//
// All fields must be non-negative. Invalid values are normalized:
//   - MaxRetries < 0 becomes 0 (single attempt)
//   - BaseDelay <= 0 becomes 1ms
//   - MaxDelay < BaseDelay becomes BaseDelay
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Backoff    Backoff

	// Jitter returns a value in [0, 1). Nil uses math/rand/v2.
	Jitter func() float64
}

// normalize ensures all RetryConfig fields have valid values.
func (c *RetryConfig) normalize() {
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Millisecond
	}
	if c.MaxDelay < c.BaseDelay {
		c.MaxDelay = c.BaseDelay
	}
	if c.Jitter == nil {
		c.Jitter = rand.Float64
	}
}

// Delay returns the wait before retry n (n >= 1). Retry 0 waits nothing.
func (c RetryConfig) Delay(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	c.normalize()

	switch c.Backoff {
	case BackoffLinearJitter:
		span := float64(c.MaxDelay - c.BaseDelay)
		base := float64(c.BaseDelay) + span*c.Jitter()
		return time.Duration(base * float64(n))
	default:
		d := c.BaseDelay
		for i := 1; i < n; i++ {
			d *= 2
			if d >= c.MaxDelay {
				return c.MaxDelay
			}
		}
		return min(d, c.MaxDelay)
	}
}

// RetryWithBackoff executes fn, retrying with the configured backoff.
// It retries only if shouldRetry returns true for the error.
// Returns the result of the last attempt.
//
// Invalid RetryConfig values are normalized (see RetryConfig documentation).
func RetryWithBackoff[T any](
	ctx context.Context,
	cfg RetryConfig,
	fn func() (T, error),
	shouldRetry func(error) bool,
) (T, error) {
	cfg.normalize()

	var zero T
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := Sleep(ctx, cfg.Delay(attempt)); err != nil {
				return zero, err
			}
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}

		lastErr = err
		if !shouldRetry(lastErr) {
			return zero, lastErr
		}
	}

	return zero, fmt.Errorf("max retries (%d) exceeded: %w", cfg.MaxRetries, lastErr)
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		if !timer.Stop() {
			<-timer.C
		}
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
