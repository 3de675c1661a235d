// Package cache provides the two cache tiers used by the catalog client.
//
// MemoryStore is the in-process tier. It holds decoded values keyed by the
// rendered Key string and hides every entry whose age reached the TTL
// (default 5 minutes). Expired entries are deleted by the read that finds
// them; nothing sweeps in the background.
//
// RedisStore is the optional shared tier. It holds raw upstream bodies as
// JSON documents with a native Redis TTL, so several processes talking to the
// same catalog reuse each other's fetches.
//
// # Basic Usage
//
//	store := cache.NewMemoryStore(5 * time.Minute)
//
//	key := cache.Key{
//		Endpoint:    "/pokemon",
//		QueryParams: url.Values{"limit": []string{"20"}, "offset": []string{"0"}},
//	}
//
//	if v, ok := store.Get(key.String()); ok {
//		page := v.(*dex.ListPage)
//		...
//	}
//
// # Shared Tier
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	shared := cache.NewRedisStore(redisClient, 5*time.Minute)
//
//	entry, err := shared.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from the catalog
//	}
//
// # Metrics
//
//   - dex_cache_hits_total{layer="memory|redis"} - Cache hits
//   - dex_cache_misses_total{layer="memory|redis"} - Cache misses
//   - dex_cache_expirations_total - Entries dropped on read after their TTL
//   - dex_cache_entries - Entries currently held in memory
//   - dex_cache_errors_total{operation} - Redis tier errors
package cache
