// Package testutil provides testing utilities for the catalog client.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock catalog endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Delay      time.Duration
}

// MockCatalog is a configurable mock catalog server for testing. Unless a
// path has a custom handler it serves the fixture catalog.
type MockCatalog struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)
	failures map[string][]int

	// Tracking
	requestCount      int
	pathCounts        map[string]int
	lastRequestHeader http.Header
}

// NewMockCatalog creates a new mock catalog server.
func NewMockCatalog() *MockCatalog {
	mock := &MockCatalog{
		handlers:   make(map[string]func(w http.ResponseWriter, r *http.Request)),
		failures:   make(map[string][]int),
		pathCounts: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimRight(r.URL.Path, "/")

		mock.mu.Lock()
		mock.requestCount++
		mock.pathCounts[path]++
		mock.lastRequestHeader = r.Header.Clone()

		// Injected failures are consumed first
		var failStatus int
		if queued := mock.failures[path]; len(queued) > 0 {
			failStatus = queued[0]
			mock.failures[path] = queued[1:]
		}
		handler, exists := mock.handlers[path]
		mock.mu.Unlock()

		if failStatus != 0 {
			w.WriteHeader(failStatus)
			_, _ = w.Write([]byte(`{"detail":"injected failure"}`))
			return
		}
		if exists {
			handler(w, r)
			return
		}
		mock.defaultHandler(w, r, path)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockCatalog) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockCatalog) Close() {
	m.server.Close()
}

// Reset clears all tracking counters and injected failures.
func (m *MockCatalog) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.pathCounts = make(map[string]int)
	m.failures = make(map[string][]int)
	m.lastRequestHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockCatalog) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[strings.TrimRight(path, "/")] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockCatalog) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			_, _ = w.Write([]byte(resp.Body))
		}
	})
}

// FailNext makes the next len(statuses) requests to path answer with the
// given status codes, in order, before normal handling resumes.
func (m *MockCatalog) FailNext(path string, statuses ...int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.TrimRight(path, "/")
	m.failures[key] = append(m.failures[key], statuses...)
}

// RequestCount returns the number of requests made to the server.
func (m *MockCatalog) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// PathCount returns the number of requests made to path.
func (m *MockCatalog) PathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pathCounts[strings.TrimRight(path, "/")]
}

// LastRequestHeader returns the headers of the most recent request.
func (m *MockCatalog) LastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRequestHeader
}

// defaultHandler serves the fixture catalog.
func (m *MockCatalog) defaultHandler(w http.ResponseWriter, r *http.Request, path string) {
	base := m.server.URL
	segments := strings.Split(strings.Trim(path, "/"), "/")

	var (
		body  string
		found bool
	)
	switch {
	case len(segments) == 1 && segments[0] == "pokemon":
		limit := queryInt(r, "limit", 20)
		offset := queryInt(r, "offset", 0)
		body, found = ListJSON(base, limit, offset), true
	case len(segments) == 2 && segments[0] == "pokemon":
		var c Creature
		if c, found = FindCreature(segments[1]); found {
			body = CreatureJSON(base, c)
		}
	case len(segments) == 1 && segments[0] == "type":
		body, found = CategoryListJSON(base), true
	case len(segments) == 2 && segments[0] == "type":
		body, found = CategoryJSON(base, segments[1])
	case len(segments) == 2 && segments[0] == "ability":
		body, found = AbilityJSON(segments[1])
	case len(segments) == 2 && segments[0] == "evolution-chain":
		id, err := strconv.Atoi(segments[1])
		if err == nil {
			body, found = EvolutionChainJSON(id)
		}
	}

	if !found {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("Not Found"))
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func queryInt(r *http.Request, name string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return fallback
	}
	return v
}
