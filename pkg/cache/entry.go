package cache

import (
	"time"
)

// Entry is one value held by a MemoryStore.
type Entry struct {
	// Key is the rendered cache key
	Key string

	// Value is the cached value, usually a decoded catalog record
	Value any

	// InsertedAt is when the value was stored
	InsertedAt time.Time
}

// Age returns how long ago the entry was stored.
func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.InsertedAt)
}

// IsExpired reports whether the entry has outlived ttl at now.
// An entry is visible only while its age is strictly below ttl.
func (e *Entry) IsExpired(now time.Time, ttl time.Duration) bool {
	return e.Age(now) >= ttl
}

// RawEntry is the JSON document stored in the Redis tier.
type RawEntry struct {
	// Data is the upstream response body
	Data []byte `json:"data"`

	// Endpoint is the request path the body came from
	Endpoint string `json:"endpoint"`

	// CachedAt is when we cached this body
	CachedAt time.Time `json:"cached_at"`
}
