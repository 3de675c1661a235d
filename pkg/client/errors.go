package client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Sternrassler/dex-client/pkg/dex"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is matched by every RetryExhaustedError.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrNotFound is matched by errors whose final cause is a 404 response.
	ErrNotFound = dex.ErrNotFound
)

// NetworkError is a transport-level failure: no response was received.
type NetworkError struct {
	Endpoint string
	Err      error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error on %s: %v", e.Endpoint, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// HTTPError is a non-2xx response.
type HTTPError struct {
	Endpoint   string
	StatusCode int
	Status     string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("catalog returned %s for %s", e.Status, e.Endpoint)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *HTTPError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// RetryExhaustedError wraps the last NetworkError or HTTPError once every
// attempt has failed.
type RetryExhaustedError struct {
	Endpoint string
	Attempts int
	Err      error
}

// Error implements the error interface.
func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("%s on %s after %d attempts: %v", ErrRetryExhausted, e.Endpoint, e.Attempts, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *RetryExhaustedError) Unwrap() error {
	return e.Err
}

// Is matches ErrRetryExhausted.
func (e *RetryExhaustedError) Is(target error) bool {
	return target == ErrRetryExhausted
}

// IsNotFound reports whether err was ultimately caused by a 404 response.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// StatusCode returns the HTTP status of the last response behind err, or 0.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}
