package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix namespaces every rendered key, which matters once keys share a Redis database.
const KeyPrefix = "dex"

// Key identifies one cacheable catalog request.
type Key struct {
	// Endpoint is the catalog path (e.g., "/pokemon/25")
	Endpoint string

	// QueryParams are the query parameters (e.g., {"limit": "20", "offset": "40"})
	QueryParams url.Values
}

// String generates a deterministic cache key string.
// Format: dex:endpoint:query1=val1:query2=val2
//
// Example:
//
//	dex:pokemon:limit=20:offset=40
func (k Key) String() string {
	parts := []string{KeyPrefix}

	endpoint := strings.ToLower(strings.Trim(k.Endpoint, "/"))
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	// Sorted for determinism; every value of a repeated parameter is kept.
	// Names and values are query-escaped so separators inside a value
	// cannot collide with the ones joining them.
	if len(k.QueryParams) > 0 {
		queryKeys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			values := make([]string, len(k.QueryParams[key]))
			for i, v := range k.QueryParams[key] {
				values[i] = url.QueryEscape(v)
			}
			sort.Strings(values)
			parts = append(parts, fmt.Sprintf("%s=%s", url.QueryEscape(key), strings.Join(values, ",")))
		}
	}

	return strings.Join(parts, ":")
}

// EndpointKey is a shorthand for a Key without query parameters.
func EndpointKey(endpoint string) Key {
	return Key{Endpoint: endpoint}
}
