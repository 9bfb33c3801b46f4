package search

import (
	"cmp"
	"slices"

	"github.com/hanviet/hvsearch/internal/vector"
)

// taggedHit is a hit labelled with the provider that produced it.
type taggedHit struct {
	vector.Hit
	Model string
}

func tag(hits []vector.Hit, model string) []taggedHit {
	out := make([]taggedHit, len(hits))
	for i, h := range hits {
		out[i] = taggedHit{Hit: h, Model: model}
	}
	return out
}

// mergeHits pools the per-provider lists in the order given, sorts the pool
// by descending score and keeps the first k. The sort is stable, so equal
// scores keep pool order and the earlier provider wins. Records are not
// de-duplicated: a record found by two providers can appear twice.
func mergeHits(lists [][]taggedHit, k int) []taggedHit {
	var pool []taggedHit
	for _, l := range lists {
		pool = append(pool, l...)
	}
	slices.SortStableFunc(pool, func(a, b taggedHit) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(pool) > k {
		pool = pool[:k]
	}
	return pool
}
