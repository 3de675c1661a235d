package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for catalog requests.
var (
	dexRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dex_requests_total",
		Help: "Total catalog requests by route and status",
	}, []string{"route", "status"})

	dexRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dex_request_duration_seconds",
		Help:    "Catalog request duration in seconds by route",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"route"})
)

// maxBodyBytes bounds a single catalog response.
const maxBodyBytes = 16 << 20

// Request describes one catalog GET.
type Request struct {
	Path  string
	Query url.Values
}

// String renders the request path and query, used as the endpoint in errors and logs.
func (r Request) String() string {
	if len(r.Query) == 0 {
		return r.Path
	}
	return r.Path + "?" + r.Query.Encode()
}

// Transport performs catalog GETs and retries failures with exponential backoff.
type Transport struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	retry     RetryConfig
	sleep     sleepFunc
	logger    zerolog.Logger
}

// NewTransport creates a transport rooted at baseURL.
func NewTransport(baseURL *url.URL, httpClient *http.Client, userAgent string, retry RetryConfig, logger zerolog.Logger) *Transport {
	return &Transport{
		baseURL:   baseURL,
		http:      httpClient,
		userAgent: userAgent,
		retry:     retry,
		sleep:     sleepContext,
		logger:    logger,
	}
}

// Send performs req, retrying any transport failure or non-2xx status. It
// returns the response body, or a RetryExhaustedError carrying the last cause.
func (t *Transport) Send(ctx context.Context, req Request) ([]byte, error) {
	endpoint := req.String()
	var body []byte

	err := retryWithBackoff(ctx, t.retry, t.sleep, t.logger, endpoint, func(attempt int) error {
		var err error
		body, err = t.once(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (t *Transport) once(ctx context.Context, req Request) ([]byte, error) {
	endpoint := req.String()
	route := routeLabel(req.Path)

	startTime := time.Now()
	defer func() {
		dexRequestDuration.WithLabelValues(route).Observe(time.Since(startTime).Seconds())
	}()

	target := t.resolve(req)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, &NetworkError{Endpoint: endpoint, Err: fmt.Errorf("create request: %w", err)}
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", t.userAgent)

	t.logger.Debug().
		Str("endpoint", endpoint).
		Msg("Executing catalog request")

	resp, err := t.http.Do(httpReq)
	if err != nil {
		dexRequestsTotal.WithLabelValues(route, "network_error").Inc()
		return nil, &NetworkError{Endpoint: endpoint, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	dexRequestsTotal.WithLabelValues(route, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &HTTPError{Endpoint: endpoint, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &NetworkError{Endpoint: endpoint, Err: fmt.Errorf("read response body: %w", err)}
	}
	return body, nil
}

func (t *Transport) resolve(req Request) *url.URL {
	u := *t.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(req.Path, "/")
	u.RawQuery = req.Query.Encode()
	return &u
}

// routeLabel keeps metric cardinality bounded: "/pokemon/25" -> "pokemon".
func routeLabel(path string) string {
	trimmed := strings.Trim(path, "/")
	if i := strings.Index(trimmed, "/"); i >= 0 {
		return trimmed[:i]
	}
	if trimmed == "" {
		return "root"
	}
	return trimmed
}
