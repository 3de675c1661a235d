package query

import (
	"testing"

	"github.com/Sternrassler/dex-client/pkg/dex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() []*dex.Creature {
	return []*dex.Creature{
		{ID: 4, Name: "charmander", StatTotal: 309, PrimaryType: "fire"},
		{ID: 1, Name: "bulbasaur", StatTotal: 318, PrimaryType: "grass"},
		{ID: 7, Name: "squirtle", StatTotal: 314, PrimaryType: "water"},
		{ID: 37, Name: "vulpix", StatTotal: 299, PrimaryType: "fire"},
		{ID: 25, Name: "pikachu", StatTotal: 320, PrimaryType: "electric"},
		{ID: 133, Name: "eevee", StatTotal: 325, PrimaryType: "normal"},
		{ID: 58, Name: "growlithe", StatTotal: 350, PrimaryType: "fire"},
	}
}

func TestSort(t *testing.T) {
	tests := []struct {
		name  string
		key   SortKey
		order Order
		want  []int
	}{
		{"id asc", SortByID, Ascending, []int{1, 4, 7, 25, 37, 58, 133}},
		{"id desc", SortByID, Descending, []int{133, 58, 37, 25, 7, 4, 1}},
		{"name asc", SortByName, Ascending, []int{1, 4, 133, 58, 25, 7, 37}},
		{"stat total desc", SortByStatTotal, Descending, []int{58, 133, 25, 1, 7, 4, 37}},
		// Fire ties keep input order: 4, 37, 58.
		{"primary type asc", SortByPrimaryType, Ascending, []int{25, 4, 37, 58, 1, 133, 7}},
		{"primary type desc", SortByPrimaryType, Descending, []int{7, 133, 1, 4, 37, 58, 25}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Sort(sample(), tt.key, tt.order)
			require.NoError(t, err)

			ids := make([]int, len(got))
			for i, c := range got {
				ids[i] = c.ID
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestSort_DoesNotMutateInput(t *testing.T) {
	in := sample()
	before := append([]*dex.Creature(nil), in...)

	_, err := Sort(in, SortByName, Ascending)

	require.NoError(t, err)
	assert.Equal(t, before, in)
}

func TestSort_InvalidArguments(t *testing.T) {
	_, err := Sort(sample(), SortKey("weight"), Ascending)
	assert.True(t, dex.IsValidationError(err))

	_, err = Sort(sample(), SortByID, Order("sideways"))
	assert.True(t, dex.IsValidationError(err))
}

func TestParseSortKey(t *testing.T) {
	tests := []struct {
		in      string
		want    SortKey
		wantErr bool
	}{
		{"", SortByID, false},
		{"id", SortByID, false},
		{"name", SortByName, false},
		{"stat_total", SortByStatTotal, false},
		{"statTotal", SortByStatTotal, false},
		{"primary_type", SortByPrimaryType, false},
		{"primaryType", SortByPrimaryType, false},
		{"height", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSortKey(tt.in)
			if tt.wantErr {
				assert.True(t, dex.IsValidationError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseOrder(t *testing.T) {
	for in, want := range map[string]Order{"": Ascending, "asc": Ascending, "DESC": Descending} {
		got, err := ParseOrder(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, "ParseOrder(%q)", in)
	}

	_, err := ParseOrder("random")
	assert.True(t, dex.IsValidationError(err))
}
