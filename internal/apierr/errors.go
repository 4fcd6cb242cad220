// Package apierr provides shared error sentinels and retry infrastructure
// for the remote services the generator talks to (speech synthesis, media
// APIs). Provider-specific failures are classified into these sentinels at
// the adapter boundary.
//
// Adapters map HTTP status codes with ClassifyStatus; callers check with
// errors.Is(err, apierr.ErrRateLimit) etc.
package apierr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for API interaction failures.
var (
	// ErrRateLimit indicates the API rate limit was exceeded (temporary, retryable).
	ErrRateLimit = errors.New("rate limit exceeded")

	// ErrQuotaExceeded indicates the API quota was exceeded (billing issue, not retryable).
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrTimeout indicates a request timed out.
	ErrTimeout = errors.New("request timeout")

	// ErrAuthFailed indicates API authentication failed (invalid key).
	ErrAuthFailed = errors.New("authentication failed")

	// ErrBadRequest indicates a client error (4xx) that is not otherwise classified.
	ErrBadRequest = errors.New("bad request")

	// ErrServer indicates a 5xx response (retryable).
	ErrServer = errors.New("server error")
)

// ClassifyStatus wraps msg in the sentinel matching an HTTP status code.
// Returns nil for 2xx codes.
func ClassifyStatus(statusCode int, msg string) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	if msg == "" {
		msg = http.StatusText(statusCode)
	}

	switch statusCode {
	case http.StatusTooManyRequests:
		// Quota exhaustion needs user action; a plain 429 clears on its own.
		lower := strings.ToLower(msg)
		if strings.Contains(lower, "quota") || strings.Contains(lower, "billing") {
			return fmt.Errorf("%s: %w", msg, ErrQuotaExceeded)
		}
		return fmt.Errorf("%s: %w", msg, ErrRateLimit)
	case http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", msg, ErrAuthFailed)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return fmt.Errorf("%s: %w", msg, ErrTimeout)
	}

	switch {
	case statusCode >= 500:
		return fmt.Errorf("HTTP %d: %s: %w", statusCode, msg, ErrServer)
	case statusCode >= 400:
		return fmt.Errorf("%s: %w", msg, ErrBadRequest)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, msg)
	}
}

// IsRetryable reports whether err is transient: rate limits, timeouts,
// server errors. Cancellation is never retryable.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrServer) ||
		errors.Is(err, context.DeadlineExceeded)
}
