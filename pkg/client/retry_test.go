package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// recordingSleep records requested waits without sleeping.
type recordingSleep struct {
	waits []time.Duration
}

func (r *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return ctx.Err()
}

func (r *recordingSleep) total() time.Duration {
	var sum time.Duration
	for _, w := range r.waits {
		sum += w
	}
	return sum
}

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", config.MaxRetries)
	}
	if config.InitialBackoff != 1*time.Second {
		t.Errorf("InitialBackoff = %v, want 1s", config.InitialBackoff)
	}
}

func TestRetryConfig_Backoff(t *testing.T) {
	config := DefaultRetryConfig()

	expected := []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}
	for attempt, want := range expected {
		if got := config.Backoff(attempt); got != want {
			t.Errorf("Backoff(%d) = %v, want %v", attempt, got, want)
		}
	}
}

func TestRetryWithBackoff_Success(t *testing.T) {
	rec := &recordingSleep{}
	callCount := 0

	err := retryWithBackoff(context.Background(), DefaultRetryConfig(), rec.sleep, zerolog.Nop(), "/pokemon/1", func(attempt int) error {
		callCount++
		return nil
	})

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call, got %d", callCount)
	}
	if len(rec.waits) != 0 {
		t.Errorf("Expected no waits, got %v", rec.waits)
	}
}

func TestRetryWithBackoff_SuccessOnThirdAttempt(t *testing.T) {
	rec := &recordingSleep{}
	callCount := 0

	err := retryWithBackoff(context.Background(), DefaultRetryConfig(), rec.sleep, zerolog.Nop(), "/pokemon/1", func(attempt int) error {
		callCount++
		if callCount < 3 {
			return &HTTPError{Endpoint: "/pokemon/1", StatusCode: 503, Status: "503 Service Unavailable"}
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("Expected 3 calls, got %d", callCount)
	}
	// baseDelay * (2^0 + 2^1)
	if rec.total() != 3*time.Second {
		t.Errorf("Total wait = %v, want 3s (waits %v)", rec.total(), rec.waits)
	}
}

func TestRetryWithBackoff_Exhausted(t *testing.T) {
	rec := &recordingSleep{}
	config := DefaultRetryConfig()
	callCount := 0
	var last error

	err := retryWithBackoff(context.Background(), config, rec.sleep, zerolog.Nop(), "/pokemon/1", func(attempt int) error {
		callCount++
		last = &NetworkError{Endpoint: "/pokemon/1", Err: errors.New("connection refused")}
		return last
	})

	if callCount != config.MaxRetries+1 {
		t.Errorf("Expected %d calls, got %d", config.MaxRetries+1, callCount)
	}

	var exhausted *RetryExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("Expected RetryExhaustedError, got %T: %v", err, err)
	}
	if exhausted.Err != last {
		t.Errorf("Wrapped cause = %v, want final failure %v", exhausted.Err, last)
	}
	if exhausted.Attempts != 4 {
		t.Errorf("Attempts = %d, want 4", exhausted.Attempts)
	}
	if exhausted.Endpoint != "/pokemon/1" {
		t.Errorf("Endpoint = %q, want /pokemon/1", exhausted.Endpoint)
	}

	want := []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}
	if len(rec.waits) != len(want) {
		t.Fatalf("Waits = %v, want %v", rec.waits, want)
	}
	for i := range want {
		if rec.waits[i] != want[i] {
			t.Errorf("Wait %d = %v, want %v", i, rec.waits[i], want[i])
		}
	}
}

func TestRetryWithBackoff_RetriesEveryStatus(t *testing.T) {
	for _, status := range []int{400, 404, 429, 500} {
		callCount := 0
		err := retryWithBackoff(context.Background(), RetryConfig{MaxRetries: 2, InitialBackoff: time.Millisecond}, (&recordingSleep{}).sleep, zerolog.Nop(), "/x", func(attempt int) error {
			callCount++
			return &HTTPError{StatusCode: status}
		})
		if !errors.Is(err, ErrRetryExhausted) {
			t.Errorf("status %d: error = %v, want ErrRetryExhausted", status, err)
		}
		if callCount != 3 {
			t.Errorf("status %d: calls = %d, want 3", status, callCount)
		}
	}
}

func TestRetryWithBackoff_NoRetries(t *testing.T) {
	callCount := 0
	err := retryWithBackoff(context.Background(), RetryConfig{MaxRetries: 0, InitialBackoff: time.Second}, (&recordingSleep{}).sleep, zerolog.Nop(), "/x", func(attempt int) error {
		callCount++
		return errors.New("fail")
	})

	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("Expected ErrRetryExhausted, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call, got %d", callCount)
	}
}

func TestRetryWithBackoff_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	callCount := 0

	err := retryWithBackoff(ctx, DefaultRetryConfig(), sleepContext, zerolog.Nop(), "/x", func(attempt int) error {
		callCount++
		cancel()
		return errors.New("fail")
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if errors.Is(err, ErrRetryExhausted) {
		t.Error("Cancellation must not report exhaustion")
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call, got %d", callCount)
	}
}

func TestSleepContext(t *testing.T) {
	start := time.Now()
	if err := sleepContext(context.Background(), 10*time.Millisecond); err != nil {
		t.Fatalf("sleepContext() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
		t.Errorf("sleepContext() returned after %v, want >= 10ms", elapsed)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("sleepContext() error = %v, want context.Canceled", err)
	}
}

func TestErrorClass(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&HTTPError{StatusCode: 502}, "server"},
		{&HTTPError{StatusCode: 404}, "client"},
		{&NetworkError{Err: errors.New("eof")}, "network"},
	}
	for _, tt := range tests {
		if got := errorClass(tt.err); got != tt.want {
			t.Errorf("errorClass(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
