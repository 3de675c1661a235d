package client

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/Sternrassler/dex-client/pkg/dex"
)

func TestHTTPError_NotFound(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "404 matches",
			err:      &HTTPError{Endpoint: "/pokemon/x", StatusCode: http.StatusNotFound, Status: "404 Not Found"},
			expected: true,
		},
		{
			name:     "500 does not match",
			err:      &HTTPError{Endpoint: "/pokemon/x", StatusCode: http.StatusInternalServerError, Status: "500 Internal Server Error"},
			expected: false,
		},
		{
			name: "404 behind retry exhaustion matches",
			err: &RetryExhaustedError{
				Endpoint: "/pokemon/x",
				Attempts: 4,
				Err:      &HTTPError{Endpoint: "/pokemon/x", StatusCode: http.StatusNotFound, Status: "404 Not Found"},
			},
			expected: true,
		},
		{
			name:     "network error does not match",
			err:      &NetworkError{Endpoint: "/pokemon/x", Err: errors.New("connection refused")},
			expected: false,
		},
		{
			name:     "nil does not match",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotFound(tt.err); got != tt.expected {
				t.Errorf("IsNotFound(%v) = %v, want %v", tt.err, got, tt.expected)
			}
			if got := errors.Is(tt.err, dex.ErrNotFound); got != tt.expected {
				t.Errorf("errors.Is(%v, dex.ErrNotFound) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestRetryExhaustedError(t *testing.T) {
	cause := &NetworkError{Endpoint: "/type/fire", Err: errors.New("dial tcp: timeout")}
	err := error(&RetryExhaustedError{Endpoint: "/type/fire", Attempts: 4, Err: cause})

	if !errors.Is(err, ErrRetryExhausted) {
		t.Error("errors.Is(err, ErrRetryExhausted) = false, want true")
	}

	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatal("errors.As(err, *NetworkError) = false, want true")
	}
	if netErr != cause {
		t.Errorf("unwrapped cause = %v, want %v", netErr, cause)
	}

	msg := err.Error()
	for _, want := range []string{"/type/fire", "4 attempts", "dial tcp: timeout"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"http error", &HTTPError{StatusCode: 503}, 503},
		{"wrapped", fmt.Errorf("load: %w", &RetryExhaustedError{Err: &HTTPError{StatusCode: 502}}), 502},
		{"network", &NetworkError{Err: errors.New("reset")}, 0},
		{"plain", errors.New("boom"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusCode(tt.err); got != tt.expected {
				t.Errorf("StatusCode() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestNetworkError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset by peer")
	err := &NetworkError{Endpoint: "/ability/blaze", Err: cause}

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
	if !strings.Contains(err.Error(), "/ability/blaze") {
		t.Errorf("Error() = %q, want endpoint", err.Error())
	}
}
