package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// TransientError wraps failures that may succeed on retry: timeouts, rate
// limits, transient network faults, 5xx responses. The retry wrapper consumes
// these before they ever reach the orchestration loop.
type TransientError struct {
	Err        error
	StatusCode int // 0 when no HTTP status applies
}

func (e *TransientError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transient provider error (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("transient provider error: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// NonTransientError wraps failures that retrying cannot fix: invalid model,
// authentication failure, malformed request. Propagated immediately.
type NonTransientError struct {
	Err        error
	StatusCode int
}

func (e *NonTransientError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider error (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("provider error: %v", e.Err)
}

func (e *NonTransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is retryable. Context cancellation is never
// transient; a cancelled session must not attempt further calls.
func IsTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var te *TransientError
	return errors.As(err, &te)
}

// ClassifyStatus maps an HTTP status code onto the error taxonomy. Adapters
// use it to translate SDK errors; status 0 (no HTTP layer involved, e.g. a
// connection reset) is treated as transient.
func ClassifyStatus(statusCode int, err error) error {
	switch {
	case statusCode == 0:
		return &TransientError{Err: err}
	case statusCode == http.StatusRequestTimeout,
		statusCode == http.StatusTooManyRequests,
		statusCode >= http.StatusInternalServerError:
		return &TransientError{Err: err, StatusCode: statusCode}
	default:
		return &NonTransientError{Err: err, StatusCode: statusCode}
	}
}
