// Package metrics provides the Prometheus registry and HTTP handler for the
// catalog client. All metrics are defined in their respective packages
// (cache, ratelimit, client, batch) to maintain modularity and avoid
// circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the catalog client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler serves every registered metric in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - dex_cache_hits_total{layer} (Counter): Cache hits by layer (memory, redis)
//   - dex_cache_misses_total{layer} (Counter): Cache misses by layer
//   - dex_cache_expirations_total (Counter): Entries dropped lazily after their TTL
//   - dex_cache_entries (Gauge): Entries held in memory
//   - dex_cache_errors_total{operation} (Counter): Redis tier errors by operation
//
// Queue Metrics (pkg/ratelimit):
//   - dex_queue_depth (Gauge): Tasks waiting for dispatch
//   - dex_queue_wait_seconds (Histogram): Time from enqueue to dispatch
//   - dex_queue_tasks_total{outcome} (Counter): Dispatched tasks by outcome (success, failure, panic)
//
// Request Metrics (pkg/client):
//   - dex_requests_total{route, status} (Counter): Attempts by route and HTTP status
//   - dex_request_duration_seconds{route} (Histogram): Attempt duration by route
//
// Retry Metrics (pkg/client):
//   - dex_retries_total{error_class} (Counter): Retries by error class (client, server, network)
//   - dex_retry_backoff_seconds (Histogram): Backoff before each retry
//   - dex_retry_exhausted_total{error_class} (Counter): Requests that exhausted their retries
//
// Batch Metrics (pkg/batch):
//   - dex_batch_members_total{outcome} (Counter): Member fetches by outcome (success, dropped)
//   - dex_batch_size (Histogram): Identifiers per batch
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(dex_cache_hits_total[5m])) /
//   (sum(rate(dex_cache_hits_total[5m])) + sum(rate(dex_cache_misses_total{layer="memory"}[5m])))
//
//   # Queue Backlog
//   dex_queue_depth > 50
//
//   # Dropped Batch Members
//   rate(dex_batch_members_total{outcome="dropped"}[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(dex_request_duration_seconds_bucket[5m]))
