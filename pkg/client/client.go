// Package client provides the catalog client facade with caching, rate
// limiting, retries and validated domain decoding.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/dex-client/pkg/batch"
	"github.com/Sternrassler/dex-client/pkg/cache"
	"github.com/Sternrassler/dex-client/pkg/dex"
	"github.com/Sternrassler/dex-client/pkg/logging"
	"github.com/Sternrassler/dex-client/pkg/pagination"
	"github.com/Sternrassler/dex-client/pkg/query"
	"github.com/Sternrassler/dex-client/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Catalog paths.
const (
	creaturePath  = "/pokemon"
	categoryPath  = "/type"
	evolutionPath = "/evolution-chain"
	abilityPath   = "/ability"
)

// categoryListLimit is large enough to return every category in one page.
const categoryListLimit = 100

// Client is the catalog client. It owns its cache and request queue; two
// clients never share state unless they share a Redis tier.
type Client struct {
	httpClient *http.Client
	memory     *cache.MemoryStore
	redis      *cache.RedisStore
	queue      *ratelimit.Queue
	transport  *Transport
	group      singleflight.Group
	pages      *pagination.BatchFetcher
	batch      *batch.Coordinator
	query      *query.Pipeline
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the catalog root, e.g. "https://pokeapi.co/api/v2"
	BaseURL string

	// User-Agent header sent with every request (REQUIRED)
	UserAgent string

	// HTTP
	HTTPClient *http.Client  // optional; built from Timeout when nil
	Timeout    time.Duration // per-attempt HTTP timeout

	// Caching
	CacheTTL time.Duration // in-memory entry lifetime
	Redis    *redis.Client // optional shared raw payload tier
	RedisTTL time.Duration // lifetime of Redis entries (default: CacheTTL)

	// Rate limiting
	MinInterval time.Duration // pause after each queued request

	// Retry
	MaxRetries     int
	InitialBackoff time.Duration

	// Fan-out
	MaxConcurrency int // batch members and listing pages in flight
	CorpusPageSize int // listing page size used to build the search corpus

	// Search and sampling
	SearchLimit int          // maximum substring matches per search
	DomainSize  int          // number of creature ids sampled from
	Rand        batch.Source // optional random source for sampling

	// Logger overrides the default component logger.
	Logger *zerolog.Logger
}

// DefaultConfig returns the default configuration for the public catalog.
func DefaultConfig(userAgent string) Config {
	return Config{
		BaseURL:        "https://pokeapi.co/api/v2",
		UserAgent:      userAgent,
		Timeout:        30 * time.Second,
		CacheTTL:       cache.DefaultTTL,
		MinInterval:    ratelimit.DefaultMinInterval,
		MaxRetries:     3,
		InitialBackoff: 1 * time.Second,
		MaxConcurrency: 5,
		CorpusPageSize: pagination.MaxPageSize,
		SearchLimit:    query.DefaultLimit,
		DomainSize:     1010,
	}
}

// Option customizes a Client beyond Config, mainly for tests.
type Option func(*options)

type options struct {
	now   func() time.Time
	sleep sleepFunc
	pause func(time.Duration)
}

// WithClock replaces the cache time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithBackoffSleep replaces the retry backoff wait.
func WithBackoffSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(o *options) { o.sleep = sleep }
}

// WithQueuePause replaces the pause the queue takes after each request.
func WithQueuePause(pause func(time.Duration)) Option {
	return func(o *options) { o.pause = pause }
}

// Validate checks cfg for missing or out-of-range settings.
func (cfg Config) Validate() error {
	if cfg.BaseURL == "" {
		return fmt.Errorf("base url is required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("base url must be absolute (got %q)", cfg.BaseURL)
	}
	if cfg.UserAgent == "" {
		return fmt.Errorf("user-agent is required")
	}
	if cfg.CacheTTL <= 0 {
		return fmt.Errorf("cache_ttl must be > 0 (got %s)", cfg.CacheTTL)
	}
	if cfg.MinInterval < 0 {
		return fmt.Errorf("min_interval must be >= 0 (got %s)", cfg.MinInterval)
	}
	if cfg.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be >= 0 (got %d)", cfg.MaxRetries)
	}
	if cfg.InitialBackoff <= 0 {
		return fmt.Errorf("initial_backoff must be > 0 (got %s)", cfg.InitialBackoff)
	}
	if cfg.MaxConcurrency < 1 {
		return fmt.Errorf("max_concurrency must be >= 1 (got %d)", cfg.MaxConcurrency)
	}
	if cfg.SearchLimit < 1 {
		return fmt.Errorf("search_limit must be >= 1 (got %d)", cfg.SearchLimit)
	}
	if cfg.CorpusPageSize < 1 || cfg.CorpusPageSize > pagination.MaxPageSize {
		return fmt.Errorf("corpus_page_size must be in [1,%d] (got %d)", pagination.MaxPageSize, cfg.CorpusPageSize)
	}
	if cfg.DomainSize < 1 {
		return fmt.Errorf("domain_size must be >= 1 (got %d)", cfg.DomainSize)
	}
	return nil
}

// New creates a new catalog client.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{now: time.Now, sleep: sleepContext, pause: time.Sleep}
	for _, opt := range opts {
		opt(&o)
	}

	logger := logging.NewLogger("dex-client")
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	baseURL, _ := url.Parse(cfg.BaseURL)

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	transport := NewTransport(baseURL, httpClient, cfg.UserAgent, RetryConfig{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
	}, logger)
	transport.sleep = o.sleep

	c := &Client{
		httpClient: httpClient,
		memory:     cache.NewMemoryStore(cfg.CacheTTL, cache.WithClock(o.now)),
		queue:      ratelimit.NewQueue(cfg.MinInterval, logger, ratelimit.WithSleep(o.pause)),
		transport:  transport,
		config:     cfg,
		logger:     logger,
	}

	if cfg.Redis != nil {
		redisTTL := cfg.RedisTTL
		if redisTTL <= 0 {
			redisTTL = cfg.CacheTTL
		}
		c.redis = cache.NewRedisStore(cfg.Redis, redisTTL)
	}

	c.pages = pagination.NewBatchFetcher(pageSource{c}, pagination.Config{
		PageSize:       cfg.CorpusPageSize,
		MaxConcurrency: cfg.MaxConcurrency,
	}, logger)
	c.batch = batch.NewCoordinator(c, logger,
		batch.WithMaxConcurrency(cfg.MaxConcurrency),
		batch.WithSource(cfg.Rand),
	)
	c.query = query.NewPipeline(c, cfg.SearchLimit, logger)

	logger.Info().
		Str("base_url", cfg.BaseURL).
		Dur("cache_ttl", cfg.CacheTTL).
		Bool("redis", c.redis != nil).
		Msg("Catalog client initialized")

	return c, nil
}

// fetch resolves req through the memory cache, the optional Redis tier and
// finally the request queue. Concurrent misses on the same key share one load.
// Only payloads that decode successfully are cached.
func fetch[T any](ctx context.Context, c *Client, req Request, decode func([]byte) (T, error)) (T, error) {
	var zero T
	key := cache.Key{Endpoint: req.Path, QueryParams: req.Query}
	k := key.String()

	if v, ok := c.memory.Get(k); ok {
		if typed, ok := v.(T); ok {
			c.logger.Debug().Str("key", k).Msg("Cache hit")
			return typed, nil
		}
	}

	// The shared load outlives any single caller; each caller stops waiting
	// when its own context ends.
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(k, func() (any, error) {
		if v, ok := c.memory.Get(k); ok {
			if typed, ok := v.(T); ok {
				return typed, nil
			}
		}

		body, fromRedis, err := c.load(shared, key, req)
		if err != nil {
			return nil, err
		}
		value, err := decode(body)
		if err != nil {
			c.logger.Warn().Err(err).Str("endpoint", req.String()).Msg("Rejected catalog payload")
			return nil, err
		}

		c.memory.Set(k, value)
		if c.redis != nil && !fromRedis {
			entry := &cache.RawEntry{Data: body, Endpoint: req.String(), CachedAt: time.Now()}
			if err := c.redis.Set(shared, key, entry); err != nil {
				c.logger.Warn().Err(err).Str("key", k).Msg("Failed to write Redis cache")
			}
		}
		return value, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// load returns the raw body for req and whether it came from Redis.
func (c *Client) load(ctx context.Context, key cache.Key, req Request) ([]byte, bool, error) {
	if c.redis != nil {
		entry, err := c.redis.Get(ctx, key)
		switch {
		case err == nil:
			c.logger.Debug().Str("key", key.String()).Str("layer", "redis").Msg("Cache hit")
			return entry.Data, true, nil
		case errors.Is(err, cache.ErrCacheMiss):
		default:
			c.logger.Warn().Err(err).Str("key", key.String()).Msg("Redis cache read failed")
		}
	}

	body, err := ratelimit.Do(ctx, c.queue, func(ctx context.Context) ([]byte, error) {
		return c.transport.Send(ctx, req)
	})
	return body, false, err
}

func creatureKey(idOrName string) string {
	return cache.EndpointKey(creaturePath + "/" + idOrName).String()
}

// GetCreature fetches a creature by numeric id or name. Names are matched
// case-insensitively. The result is cached under both its id and its name.
func (c *Client) GetCreature(ctx context.Context, idOrName string) (*dex.Creature, error) {
	ident := strings.ToLower(strings.TrimSpace(idOrName))
	if ident == "" {
		return nil, dex.NewValidationError("idOrName", "must not be blank")
	}

	creature, err := fetch(ctx, c, Request{Path: creaturePath + "/" + url.PathEscape(ident)}, dex.Build)
	if err != nil {
		return nil, err
	}

	for _, alias := range []string{strconv.Itoa(creature.ID), creature.Name} {
		if alias != ident {
			c.memory.Set(creatureKey(alias), creature)
		}
	}
	return creature, nil
}

// ListCreatures fetches one listing page. limit must be in [1,1000] and
// offset must not be negative.
func (c *Client) ListCreatures(ctx context.Context, limit, offset int) (*dex.ListPage, error) {
	if limit < 1 || limit > pagination.MaxPageSize {
		return nil, dex.NewValidationError("limit", "must be in [1,%d], got %d", pagination.MaxPageSize, limit)
	}
	if offset < 0 {
		return nil, dex.NewValidationError("offset", "must not be negative, got %d", offset)
	}

	return fetch(ctx, c, Request{
		Path: creaturePath,
		Query: url.Values{
			"limit":  {strconv.Itoa(limit)},
			"offset": {strconv.Itoa(offset)},
		},
	}, dex.ParseListPage)
}

// pageSource adapts the client to pagination.PageFetcher.
type pageSource struct{ c *Client }

func (p pageSource) FetchPage(ctx context.Context, limit, offset int) (*dex.ListPage, error) {
	return p.c.ListCreatures(ctx, limit, offset)
}

// ListAll returns the complete creature listing. Every page is cached, so
// repeated calls within the TTL issue no requests.
func (c *Client) ListAll(ctx context.Context) ([]dex.NamedResource, error) {
	return c.pages.FetchAll(ctx)
}

// GetCategory fetches a category and its member creatures.
func (c *Client) GetCategory(ctx context.Context, name string) (*dex.Category, error) {
	ident := strings.ToLower(strings.TrimSpace(name))
	if ident == "" {
		return nil, dex.NewValidationError("name", "must not be blank")
	}
	return fetch(ctx, c, Request{Path: categoryPath + "/" + url.PathEscape(ident)}, dex.ParseCategory)
}

// ListCategories returns every category.
func (c *Client) ListCategories(ctx context.Context) ([]dex.NamedResource, error) {
	page, err := fetch(ctx, c, Request{
		Path:  categoryPath,
		Query: url.Values{"limit": {strconv.Itoa(categoryListLimit)}},
	}, dex.ParseListPage)
	if err != nil {
		return nil, err
	}
	return page.Results, nil
}

// GetEvolutionChain fetches an evolution tree by id.
func (c *Client) GetEvolutionChain(ctx context.Context, id int) (*dex.EvolutionChain, error) {
	if id < 1 {
		return nil, dex.NewValidationError("id", "must be positive, got %d", id)
	}
	return fetch(ctx, c, Request{Path: evolutionPath + "/" + strconv.Itoa(id)}, dex.ParseEvolutionChain)
}

// GetAbility fetches an ability by name, id or full resource URL.
func (c *Client) GetAbility(ctx context.Context, nameOrURL string) (*dex.Ability, error) {
	ident := strings.ToLower(dex.LastSegment(nameOrURL))
	if ident == "" {
		return nil, dex.NewValidationError("nameOrUrl", "must not be blank")
	}
	return fetch(ctx, c, Request{Path: abilityPath + "/" + url.PathEscape(ident)}, dex.ParseAbility)
}

// AbilityLabel returns the ability's localized name in lang (falling back to
// English). Any failure degrades to the raw identifier.
func (c *Client) AbilityLabel(ctx context.Context, nameOrURL, lang string) string {
	ability, err := c.GetAbility(ctx, nameOrURL)
	if err != nil {
		fallback := dex.LastSegment(nameOrURL)
		c.logger.Warn().
			Err(err).
			Str("ability", fallback).
			Msg("Ability label unavailable, using identifier")
		return fallback
	}
	return ability.Label(lang)
}

// AbilityLabels resolves a label for each of the creature's abilities in slot order.
func (c *Client) AbilityLabels(ctx context.Context, creature *dex.Creature, lang string) []string {
	abilities := slices.Clone(creature.Abilities)
	slices.SortStableFunc(abilities, func(a, b dex.AbilitySlot) int { return a.Slot - b.Slot })

	labels := make([]string, len(abilities))
	for i, ability := range abilities {
		ref := ability.URL
		if ref == "" {
			ref = ability.Name
		}
		labels[i] = c.AbilityLabel(ctx, ref, lang)
	}
	return labels
}

// FetchMany fetches creatures concurrently and returns the successes in input order.
func (c *Client) FetchMany(ctx context.Context, identifiers []string) []*dex.Creature {
	return c.batch.FetchMany(ctx, identifiers)
}

// SampleRandom fetches count distinct random creatures from the configured domain.
func (c *Client) SampleRandom(ctx context.Context, count int) ([]*dex.Creature, error) {
	return c.batch.SampleRandom(ctx, count, c.config.DomainSize)
}

// Search resolves q as an exact id or name, falling back to a substring scan
// of the full listing.
func (c *Client) Search(ctx context.Context, q string) ([]*dex.Creature, error) {
	return c.query.Search(ctx, q)
}

// FilterByCategory keeps the entries belonging to category. An unknown
// category yields an empty result.
func (c *Client) FilterByCategory(ctx context.Context, category string, entries []*dex.Creature) ([]*dex.Creature, error) {
	filtered, err := c.query.FilterByCategory(ctx, category, entries)
	if IsNotFound(err) {
		return []*dex.Creature{}, nil
	}
	return filtered, err
}

// ClearCache drops every cached value, including the Redis tier when configured.
func (c *Client) ClearCache(ctx context.Context) error {
	c.memory.Clear()
	if c.redis != nil {
		if err := c.redis.Clear(ctx); err != nil {
			return fmt.Errorf("clear redis cache: %w", err)
		}
	}
	return nil
}

// QueueLen returns the number of requests waiting for dispatch.
func (c *Client) QueueLen() int {
	return c.queue.Len()
}

// Close releases idle HTTP connections. The Redis client belongs to the caller.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
