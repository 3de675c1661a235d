// Package batch fans out creature fetches and aggregates partial success.
package batch

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync"

	"github.com/Sternrassler/dex-client/pkg/dex"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ErrSampleTooLarge is returned when more distinct identifiers are requested
// than the domain holds.
var ErrSampleTooLarge = errors.New("sample count exceeds domain size")

var (
	batchMembersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dex_batch_members_total",
		Help: "Batch member fetches by outcome",
	}, []string{"outcome"})

	batchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dex_batch_size",
		Help:    "Number of identifiers per batch",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 250},
	})
)

// Fetcher resolves a single creature by id or name.
type Fetcher interface {
	GetCreature(ctx context.Context, idOrName string) (*dex.Creature, error)
}

// Source draws uniform integers in [0, n).
type Source interface {
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// Coordinator issues member fetches concurrently and keeps the successes.
type Coordinator struct {
	fetcher        Fetcher
	maxConcurrency int
	logger         zerolog.Logger

	mu  sync.Mutex
	rng Source
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithSource injects the random source used by SampleRandom.
func WithSource(src Source) Option {
	return func(c *Coordinator) {
		if src != nil {
			c.rng = src
		}
	}
}

// WithMaxConcurrency bounds the number of member fetches in flight.
// Zero or negative means unbounded.
func WithMaxConcurrency(n int) Option {
	return func(c *Coordinator) {
		c.maxConcurrency = n
	}
}

// NewCoordinator creates a coordinator over fetcher.
func NewCoordinator(fetcher Fetcher, logger zerolog.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		fetcher: fetcher,
		logger:  logger,
		rng:     globalSource{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchMany fetches every identifier concurrently, waits for all of them and
// returns the successes in input order. Failed members are logged and dropped.
func (c *Coordinator) FetchMany(ctx context.Context, identifiers []string) []*dex.Creature {
	batchSize.Observe(float64(len(identifiers)))
	if len(identifiers) == 0 {
		return []*dex.Creature{}
	}

	slots := make([]*dex.Creature, len(identifiers))

	var g errgroup.Group
	if c.maxConcurrency > 0 {
		g.SetLimit(c.maxConcurrency)
	}
	for i, id := range identifiers {
		g.Go(func() error {
			creature, err := c.fetcher.GetCreature(ctx, id)
			if err != nil {
				batchMembersTotal.WithLabelValues("dropped").Inc()
				c.logger.Warn().
					Err(err).
					Str("identifier", id).
					Msg("Dropping failed batch member")
				return nil
			}
			batchMembersTotal.WithLabelValues("success").Inc()
			slots[i] = creature
			return nil
		})
	}
	_ = g.Wait()

	results := make([]*dex.Creature, 0, len(identifiers))
	for _, creature := range slots {
		if creature != nil {
			results = append(results, creature)
		}
	}

	c.logger.Debug().
		Int("requested", len(identifiers)).
		Int("count", len(results)).
		Msg("Batch complete")

	return results
}

// SampleIDs draws count distinct ids from 1..domainSize by uniform sampling
// with rejection of duplicates, in draw order.
func (c *Coordinator) SampleIDs(count, domainSize int) ([]int, error) {
	if domainSize < 1 {
		return nil, dex.NewValidationError("domainSize", "must be at least 1, got %d", domainSize)
	}
	if count < 0 {
		return nil, dex.NewValidationError("count", "must not be negative, got %d", count)
	}
	if count > domainSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrSampleTooLarge, count, domainSize)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[int]struct{}, count)
	ids := make([]int, 0, count)
	for len(ids) < count {
		id := c.rng.IntN(domainSize) + 1
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

// SampleRandom draws count distinct ids from 1..domainSize and fetches them.
// Failed members are dropped as in FetchMany, so fewer than count creatures
// may be returned.
func (c *Coordinator) SampleRandom(ctx context.Context, count, domainSize int) ([]*dex.Creature, error) {
	ids, err := c.SampleIDs(count, domainSize)
	if err != nil {
		return nil, err
	}

	identifiers := make([]string, len(ids))
	for i, id := range ids {
		identifiers[i] = strconv.Itoa(id)
	}
	return c.FetchMany(ctx, identifiers), nil
}
