package pagination

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/dex-client/pkg/dex"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// MaxPageSize is the largest limit the catalog accepts on a listing request.
const MaxPageSize = 1000

// MaxListingEntries bounds the total count FetchAll will plan pages for.
const MaxListingEntries = 100_000

// Config holds batch fetcher configuration
type Config struct {
	// PageSize is the limit sent with every page request (1..MaxPageSize)
	PageSize int
	// MaxConcurrency is the maximum number of pages in flight after the first
	MaxConcurrency int
}

// DefaultConfig returns the default configuration: full-size pages, five workers
func DefaultConfig() Config {
	return Config{
		PageSize:       MaxPageSize,
		MaxConcurrency: 5,
	}
}

// PageFetcher is the interface the catalog client implements for single-page fetching
type PageFetcher interface {
	// FetchPage fetches one listing page starting at offset
	FetchPage(ctx context.Context, limit, offset int) (*dex.ListPage, error)
}

// BatchFetcher assembles a complete listing from concurrently fetched pages
type BatchFetcher struct {
	fetcher PageFetcher
	config  Config
	logger  zerolog.Logger
}

// NewBatchFetcher creates a new batch fetcher. Out-of-range settings fall back
// to DefaultConfig values.
func NewBatchFetcher(fetcher PageFetcher, config Config, logger zerolog.Logger) *BatchFetcher {
	if config.PageSize <= 0 || config.PageSize > MaxPageSize {
		config.PageSize = MaxPageSize
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 5
	}

	return &BatchFetcher{
		fetcher: fetcher,
		config:  config,
		logger:  logger,
	}
}

// Offsets returns the offsets still to fetch after the first page, given the
// total count reported by the catalog.
func Offsets(total, pageSize int) []int {
	var offsets []int
	for offset := pageSize; offset < total; offset += pageSize {
		offsets = append(offsets, offset)
	}
	return offsets
}

// FetchAll returns every listing entry in catalog order. It fetches the first
// page to learn the total count, then the remaining pages in parallel. Any
// failed page fails the whole load.
func (bf *BatchFetcher) FetchAll(ctx context.Context) ([]dex.NamedResource, error) {
	start := time.Now()

	first, err := bf.fetcher.FetchPage(ctx, bf.config.PageSize, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch first page: %w", err)
	}

	if first.Count < 0 || first.Count > MaxListingEntries {
		return nil, fmt.Errorf("listing count %d outside [0,%d]", first.Count, MaxListingEntries)
	}

	offsets := Offsets(first.Count, bf.config.PageSize)
	if len(offsets) == 0 {
		bf.logger.Debug().
			Int("count", len(first.Results)).
			Dur("duration", time.Since(start)).
			Msg("Listing complete (single page)")
		return append([]dex.NamedResource(nil), first.Results...), nil
	}

	bf.logger.Info().
		Int("total", first.Count).
		Int("pages", len(offsets)+1).
		Msg("Starting parallel page fetch")

	pages := make([][]dex.NamedResource, len(offsets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bf.config.MaxConcurrency)
	for i, offset := range offsets {
		g.Go(func() error {
			page, err := bf.fetcher.FetchPage(gctx, bf.config.PageSize, offset)
			if err != nil {
				bf.logger.Warn().
					Err(err).
					Int("offset", offset).
					Msg("Page fetch failed")
				return fmt.Errorf("page at offset %d: %w", offset, err)
			}
			pages[i] = page.Results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	size := len(first.Results)
	for _, page := range pages {
		size += len(page)
	}
	results := make([]dex.NamedResource, 0, size)
	results = append(results, first.Results...)
	for _, page := range pages {
		results = append(results, page...)
	}

	bf.logger.Info().
		Int("count", len(results)).
		Int("pages", len(offsets)+1).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return results, nil
}
