package ml

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

// The inference client classifies failures at the throw site so the
// retry loop can dispatch on type instead of matching message text.

// TimeoutError marks an attempt that ran out of its per-attempt budget.
type TimeoutError struct {
	Op  string
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out: %v", e.Op, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// ConnectivityError marks a transport-level failure reaching the backend.
type ConnectivityError struct {
	Op  string
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("%s failed to reach inference service: %v", e.Op, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// ServerError marks a non-2xx response from the backend.
type ServerError struct {
	Status int
	Body   string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("inference service returned status %d: %s", e.Status, e.Body)
}

// ParseError marks a 2xx response whose body could not be decoded.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to decode inference response: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// classifyTransportError converts an http.Client error into the typed
// hierarchy. Deadline expiry becomes a TimeoutError; everything else is
// a ConnectivityError.
func classifyTransportError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Op: op, Err: err}
	}
	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		return &TimeoutError{Op: op, Err: err}
	}
	return &ConnectivityError{Op: op, Err: err}
}

// retryable reports whether the upload loop may try again after err.
// Transient server errors (the model is still loading behind a 500/502)
// and timeout/transport failures qualify; any other backend status and
// parse failures are fatal.
func retryable(err error) bool {
	var se *ServerError
	if errors.As(err, &se) {
		return se.Status == 500 || se.Status == 502
	}
	var te *TimeoutError
	if errors.As(err, &te) {
		return true
	}
	var ce *ConnectivityError
	if errors.As(err, &ce) {
		return true
	}
	return false
}
