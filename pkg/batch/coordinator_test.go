package batch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Sternrassler/dex-client/pkg/dex"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	mu      sync.Mutex
	calls   []string
	missing map[string]bool
	delay   func(id string) time.Duration

	inFlight, maxInFlight int32
}

func (f *fakeFetcher) GetCreature(ctx context.Context, idOrName string) (*dex.Creature, error) {
	f.mu.Lock()
	f.calls = append(f.calls, idOrName)
	f.mu.Unlock()

	cur := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		prev := atomic.LoadInt32(&f.maxInFlight)
		if cur <= prev || atomic.CompareAndSwapInt32(&f.maxInFlight, prev, cur) {
			break
		}
	}

	if f.delay != nil {
		time.Sleep(f.delay(idOrName))
	}
	if f.missing[idOrName] {
		return nil, fmt.Errorf("creature %s: not found", idOrName)
	}
	id, err := strconv.Atoi(idOrName)
	if err != nil {
		return nil, errors.New("unknown name")
	}
	return &dex.Creature{ID: id, Name: "creature-" + idOrName}, nil
}

// sequenceSource replays fixed draws, cycling when exhausted.
type sequenceSource struct {
	draws []int
	next  int
}

func (s *sequenceSource) IntN(n int) int {
	v := s.draws[s.next%len(s.draws)] % n
	s.next++
	return v
}

func ids(creatures []*dex.Creature) []int {
	out := make([]int, len(creatures))
	for i, c := range creatures {
		out[i] = c.ID
	}
	return out
}

func TestFetchMany_PartialFailure(t *testing.T) {
	fetcher := &fakeFetcher{missing: map[string]bool{"99999": true}}
	c := NewCoordinator(fetcher, zerolog.Nop())

	got := c.FetchMany(context.Background(), []string{"1", "99999", "4"})

	require.Len(t, got, 2)
	assert.Equal(t, []int{1, 4}, ids(got))
	assert.Len(t, fetcher.calls, 3, "every member is attempted")
}

func TestFetchMany_PreservesInputOrder(t *testing.T) {
	// Earlier identifiers finish last.
	fetcher := &fakeFetcher{delay: func(id string) time.Duration {
		n, _ := strconv.Atoi(id)
		return time.Duration(10-n) * 2 * time.Millisecond
	}}
	c := NewCoordinator(fetcher, zerolog.Nop())

	got := c.FetchMany(context.Background(), []string{"1", "2", "3", "4", "5"})

	assert.Equal(t, []int{1, 2, 3, 4, 5}, ids(got))
}

func TestFetchMany_Empty(t *testing.T) {
	c := NewCoordinator(&fakeFetcher{}, zerolog.Nop())

	got := c.FetchMany(context.Background(), nil)

	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFetchMany_AllFail(t *testing.T) {
	fetcher := &fakeFetcher{missing: map[string]bool{"1": true, "2": true}}
	c := NewCoordinator(fetcher, zerolog.Nop())

	assert.Empty(t, c.FetchMany(context.Background(), []string{"1", "2"}))
}

func TestFetchMany_MaxConcurrency(t *testing.T) {
	fetcher := &fakeFetcher{delay: func(string) time.Duration { return 5 * time.Millisecond }}
	c := NewCoordinator(fetcher, zerolog.Nop(), WithMaxConcurrency(2))

	identifiers := make([]string, 10)
	for i := range identifiers {
		identifiers[i] = strconv.Itoa(i + 1)
	}
	got := c.FetchMany(context.Background(), identifiers)

	assert.Len(t, got, 10)
	assert.LessOrEqual(t, atomic.LoadInt32(&fetcher.maxInFlight), int32(2))
}

func TestSampleRandom_DistinctIDs(t *testing.T) {
	fetcher := &fakeFetcher{}
	c := NewCoordinator(fetcher, zerolog.Nop())

	got, err := c.SampleRandom(context.Background(), 5, 1010)
	require.NoError(t, err)
	require.Len(t, got, 5)

	seen := map[int]bool{}
	for _, creature := range got {
		assert.False(t, seen[creature.ID], "duplicate id %d", creature.ID)
		assert.GreaterOrEqual(t, creature.ID, 1)
		assert.LessOrEqual(t, creature.ID, 1010)
		seen[creature.ID] = true
	}
}

func TestSampleIDs_RejectsDuplicates(t *testing.T) {
	src := &sequenceSource{draws: []int{3, 3, 0, 3, 0, 7}}
	c := NewCoordinator(&fakeFetcher{}, zerolog.Nop(), WithSource(src))

	got, err := c.SampleIDs(3, 10)

	require.NoError(t, err)
	assert.Equal(t, []int{4, 1, 8}, got)
	assert.Equal(t, 6, src.next)
}

func TestSampleIDs_WholeDomain(t *testing.T) {
	c := NewCoordinator(&fakeFetcher{}, zerolog.Nop())

	got, err := c.SampleIDs(10, 10)

	require.NoError(t, err)
	assert.ElementsMatch(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, got)
}

func TestSampleIDs_Preconditions(t *testing.T) {
	c := NewCoordinator(&fakeFetcher{}, zerolog.Nop())

	tests := []struct {
		name       string
		count      int
		domainSize int
		check      func(t *testing.T, err error)
	}{
		{"too large", 11, 10, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrSampleTooLarge)
		}},
		{"negative count", -1, 10, func(t *testing.T, err error) {
			assert.True(t, dex.IsValidationError(err))
		}},
		{"empty domain", 0, 0, func(t *testing.T, err error) {
			assert.True(t, dex.IsValidationError(err))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.SampleIDs(tt.count, tt.domainSize)
			require.Error(t, err)
			assert.Nil(t, got)
			tt.check(t, err)
		})
	}
}

func TestSampleRandom_ZeroCount(t *testing.T) {
	fetcher := &fakeFetcher{}
	c := NewCoordinator(fetcher, zerolog.Nop())

	got, err := c.SampleRandom(context.Background(), 0, 1010)

	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, fetcher.calls)
}
