package cache

import (
	"sync"
	"time"
)

// DefaultTTL is how long a value stays visible after it was stored.
const DefaultTTL = 5 * time.Minute

// MemoryStore is an in-process key/value store with a fixed per-entry TTL.
// Expired entries are removed lazily by the read that finds them; there is no
// background sweeper. Reads and writes never fail.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*Entry
	ttl     time.Duration
	now     func() time.Time
}

// MemoryOption customizes a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock replaces the time source, mainly for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// NewMemoryStore creates a store whose entries expire ttl after insertion.
// A non-positive ttl selects DefaultTTL.
func NewMemoryStore(ttl time.Duration, opts ...MemoryOption) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &MemoryStore{
		entries: make(map[string]*Entry),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the configured time-to-live.
func (s *MemoryStore) TTL() time.Duration {
	return s.ttl
}

// Get returns the value stored under key while it is younger than the TTL.
// An expired entry is deleted and reported as absent.
func (s *MemoryStore) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		CacheMisses.WithLabelValues("memory").Inc()
		return nil, false
	}

	if entry.IsExpired(s.now(), s.ttl) {
		delete(s.entries, key)
		CacheEntries.Dec()
		CacheExpirations.Inc()
		CacheMisses.WithLabelValues("memory").Inc()
		return nil, false
	}

	CacheHits.WithLabelValues("memory").Inc()
	return entry.Value, true
}

// Set stores value under key, replacing any previous entry and restarting its TTL.
func (s *MemoryStore) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; !exists {
		CacheEntries.Inc()
	}
	s.entries[key] = &Entry{Key: key, Value: value, InsertedAt: s.now()}
}

// Delete removes key if present.
func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; exists {
		delete(s.entries, key)
		CacheEntries.Dec()
	}
}

// Clear removes every entry.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	CacheEntries.Sub(float64(len(s.entries)))
	s.entries = make(map[string]*Entry)
}

// Len returns the number of stored entries, expired ones included until read.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
