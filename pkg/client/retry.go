package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for retry operations.
var (
	dexRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dex_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	dexRetryBackoffSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dex_retry_backoff_seconds",
		Help:    "Backoff duration before retries",
		Buckets: []float64{0.5, 1, 2, 4, 8, 16, 32},
	})

	dexRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dex_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// InitialBackoff is the wait before the first retry. The wait before
	// retry k (counting from 0) is InitialBackoff * 2^k.
	InitialBackoff time.Duration
}

// DefaultRetryConfig returns the default retry configuration: four attempts
// in total with waits of 1s, 2s and 4s between them.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 1 * time.Second,
	}
}

// Backoff returns the wait before retry index attempt (0-based).
func (c RetryConfig) Backoff(attempt int) time.Duration {
	return c.InitialBackoff << uint(attempt)
}

// sleepFunc waits for d or until ctx ends.
type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// retryWithBackoff runs fn until it succeeds or MaxRetries retries have
// failed. Every failure is retried the same way regardless of its kind.
func retryWithBackoff(ctx context.Context, cfg RetryConfig, sleep sleepFunc, logger zerolog.Logger, endpoint string, fn func(attempt int) error) error {
	var lastErr error
	attempts := 0

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		attempts++
		err := fn(attempt)
		if err == nil {
			if attempt > 0 {
				logger.Info().
					Str("endpoint", endpoint).
					Int("attempt", attempt+1).
					Msg("Request succeeded after retry")
			}
			return nil
		}
		lastErr = err

		if attempt == cfg.MaxRetries {
			break
		}

		backoff := cfg.Backoff(attempt)
		dexRetriesTotal.WithLabelValues(errorClass(err)).Inc()
		dexRetryBackoffSeconds.Observe(backoff.Seconds())

		logger.Warn().
			Err(err).
			Str("endpoint", endpoint).
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Msg("Retrying request after backoff")

		if err := sleep(ctx, backoff); err != nil {
			logger.Warn().
				Str("endpoint", endpoint).
				Int("attempt", attempt+1).
				Msg("Context cancelled during retry backoff")
			return fmt.Errorf("retry %s: %w", endpoint, err)
		}
	}

	dexRetryExhaustedTotal.WithLabelValues(errorClass(lastErr)).Inc()
	logger.Error().
		Err(lastErr).
		Str("endpoint", endpoint).
		Int("attempts", attempts).
		Msg("Retry attempts exhausted")

	return &RetryExhaustedError{Endpoint: endpoint, Attempts: attempts, Err: lastErr}
}

// errorClass labels an error for metrics.
func errorClass(err error) string {
	var httpErr *HTTPError
	switch {
	case errors.As(err, &httpErr) && httpErr.StatusCode >= 500:
		return "server"
	case errors.As(err, &httpErr):
		return "client"
	default:
		return "network"
	}
}
