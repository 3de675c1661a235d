package query

import (
	"cmp"
	"slices"
	"strings"

	"github.com/Sternrassler/dex-client/pkg/dex"
)

// SortKey selects the attribute entries are ordered by.
type SortKey string

const (
	SortByID          SortKey = "id"
	SortByName        SortKey = "name"
	SortByStatTotal   SortKey = "stat_total"
	SortByPrimaryType SortKey = "primary_type"
)

// Order is the sort direction.
type Order string

const (
	Ascending  Order = "asc"
	Descending Order = "desc"
)

// ParseSortKey accepts the snake_case and camelCase spellings of a key.
// An empty string selects SortByID.
func ParseSortKey(s string) (SortKey, error) {
	switch strings.TrimSpace(s) {
	case "", "id":
		return SortByID, nil
	case "name":
		return SortByName, nil
	case "stat_total", "statTotal":
		return SortByStatTotal, nil
	case "primary_type", "primaryType":
		return SortByPrimaryType, nil
	default:
		return "", dex.NewValidationError("sort", "unknown sort key %q", s)
	}
}

// ParseOrder accepts asc or desc, case-insensitively. An empty string selects Ascending.
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc":
		return Ascending, nil
	case "desc":
		return Descending, nil
	default:
		return "", dex.NewValidationError("order", "unknown sort order %q", s)
	}
}

// Sort returns a sorted copy of entries. The sort is stable: entries that
// compare equal keep their original relative order in either direction.
func Sort(entries []*dex.Creature, key SortKey, order Order) ([]*dex.Creature, error) {
	compare, err := comparator(key)
	if err != nil {
		return nil, err
	}
	if order == Descending {
		asc := compare
		compare = func(a, b *dex.Creature) int { return asc(b, a) }
	} else if order != Ascending {
		return nil, dex.NewValidationError("order", "unknown sort order %q", order)
	}

	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, compare)
	return sorted, nil
}

func comparator(key SortKey) (func(a, b *dex.Creature) int, error) {
	switch key {
	case SortByID:
		return func(a, b *dex.Creature) int { return cmp.Compare(a.ID, b.ID) }, nil
	case SortByName:
		return func(a, b *dex.Creature) int { return strings.Compare(a.Name, b.Name) }, nil
	case SortByStatTotal:
		return func(a, b *dex.Creature) int { return cmp.Compare(a.StatTotal, b.StatTotal) }, nil
	case SortByPrimaryType:
		return func(a, b *dex.Creature) int { return strings.Compare(a.PrimaryType, b.PrimaryType) }, nil
	default:
		return nil, dex.NewValidationError("sort", "unknown sort key %q", key)
	}
}
