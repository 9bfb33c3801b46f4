package search

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hanviet/hvsearch/internal/vector"
)

func TestMergeHits_SortsAcrossProviders(t *testing.T) {
	// Given: two provider lists with interleaved scores
	a := tag([]vector.Hit{{Index: 0, Score: 0.9}, {Index: 1, Score: 0.4}}, "phobert")
	b := tag([]vector.Hit{{Index: 2, Score: 0.7}, {Index: 3, Score: 0.1}}, "labse")

	// When: merging with k=3
	got := mergeHits([][]taggedHit{a, b}, 3)

	// Then: the pool is ordered by score and truncated
	assert.Equal(t, []taggedHit{
		{Hit: vector.Hit{Index: 0, Score: 0.9}, Model: "phobert"},
		{Hit: vector.Hit{Index: 2, Score: 0.7}, Model: "labse"},
		{Hit: vector.Hit{Index: 1, Score: 0.4}, Model: "phobert"},
	}, got)
}

func TestMergeHits_TiesFavourEarlierProvider(t *testing.T) {
	a := tag([]vector.Hit{{Index: 5, Score: 0.5}}, "phobert")
	b := tag([]vector.Hit{{Index: 5, Score: 0.5}}, "labse")

	got := mergeHits([][]taggedHit{a, b}, 2)

	// Same record twice, first provider first
	assert.Len(t, got, 2)
	assert.Equal(t, "phobert", got[0].Model)
	assert.Equal(t, "labse", got[1].Model)
	assert.Equal(t, got[0].Index, got[1].Index)

	got = mergeHits([][]taggedHit{b, a}, 1)
	assert.Equal(t, "labse", got[0].Model)
}

func TestMergeHits_Empty(t *testing.T) {
	assert.Empty(t, mergeHits(nil, 3))
	assert.Empty(t, mergeHits([][]taggedHit{{}, {}}, 3))
}

func TestResult_RoundedKeepsFourDecimals(t *testing.T) {
	// Given: a result with a long score
	r := Result{Score: 0.123456, Model: "labse"}

	// When: rounding
	got := r.Rounded()

	// Then: only the score changes
	assert.InDelta(t, 0.1235, got.Score, 1e-6)
	assert.Equal(t, "labse", got.Model)
	assert.InDelta(t, 0.123456, r.Score, 1e-6)
}
