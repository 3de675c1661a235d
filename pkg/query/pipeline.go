// Package query implements search, category filtering and sorting over
// creature result sets.
package query

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Sternrassler/dex-client/pkg/dex"
	"github.com/rs/zerolog"
)

// DefaultLimit caps the number of substring matches a search returns.
const DefaultLimit = 20

// AllCategories is the filter value that keeps every entry.
const AllCategories = "all"

// Source is the cache-aware catalog access the pipeline runs on.
type Source interface {
	GetCreature(ctx context.Context, idOrName string) (*dex.Creature, error)
	ListAll(ctx context.Context) ([]dex.NamedResource, error)
	FetchMany(ctx context.Context, identifiers []string) []*dex.Creature
	GetCategory(ctx context.Context, name string) (*dex.Category, error)
}

// Pipeline runs searches and filters against a Source.
type Pipeline struct {
	source Source
	limit  int
	logger zerolog.Logger
}

// NewPipeline creates a pipeline. A non-positive limit selects DefaultLimit.
func NewPipeline(source Source, limit int, logger zerolog.Logger) *Pipeline {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Pipeline{source: source, limit: limit, logger: logger}
}

// Search looks query up as an exact id or name first. If the record does not
// exist (dex.ErrNotFound) it scans the full listing for names containing query (case-insensitive), keeps
// the first matches up to the pipeline limit, and fetches them. A blank query
// yields an empty result.
func (p *Pipeline) Search(ctx context.Context, query string) ([]*dex.Creature, error) {
	q := Normalize(query)
	if q == "" {
		return []*dex.Creature{}, nil
	}

	creature, err := p.source.GetCreature(ctx, q)
	if err == nil {
		p.logger.Debug().Str("query", q).Msg("Search resolved by exact match")
		return []*dex.Creature{creature}, nil
	}
	if !errors.Is(err, dex.ErrNotFound) {
		return nil, fmt.Errorf("lookup %s: %w", q, err)
	}
	p.logger.Debug().Str("query", q).Msg("No exact match, scanning listing")

	corpus, err := p.source.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load listing: %w", err)
	}

	names := Match(corpus, q, p.limit)
	if len(names) == 0 {
		return []*dex.Creature{}, nil
	}

	p.logger.Debug().
		Str("query", q).
		Int("count", len(names)).
		Msg("Search matched listing entries")

	return p.source.FetchMany(ctx, names), nil
}

// FilterByCategory keeps the entries that belong to category, in their
// original order. An empty category or AllCategories returns entries unchanged.
func (p *Pipeline) FilterByCategory(ctx context.Context, category string, entries []*dex.Creature) ([]*dex.Creature, error) {
	name := Normalize(category)
	if name == "" || name == AllCategories {
		return entries, nil
	}

	members, err := p.source.GetCategory(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("load category %s: %w", name, err)
	}

	filtered := make([]*dex.Creature, 0, len(entries))
	for _, entry := range entries {
		if members.Contains(entry.Name) {
			filtered = append(filtered, entry)
		}
	}
	return filtered, nil
}

// Match returns up to limit names from corpus containing q, in corpus order.
// q must already be normalized.
func Match(corpus []dex.NamedResource, q string, limit int) []string {
	var names []string
	for _, entry := range corpus {
		if len(names) >= limit {
			break
		}
		if strings.Contains(strings.ToLower(entry.Name), q) {
			names = append(names, entry.Name)
		}
	}
	return names
}

// Normalize trims and lowercases a user-supplied query or category.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
