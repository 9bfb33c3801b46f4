// Package vector implements nearest-neighbour search over an embedding
// matrix. Scores are cosine similarities in [-1, 1]; higher is closer.
package vector

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	hverrors "github.com/hanviet/hvsearch/internal/errors"
)

// Strategy selects a Searcher implementation.
type Strategy string

const (
	// StrategyExact scans every row. Results are exact and deterministic.
	StrategyExact Strategy = "exact"

	// StrategyHNSW uses an approximate HNSW graph.
	StrategyHNSW Strategy = "hnsw"
)

// Hit is one matching row.
type Hit struct {
	// Index is the row position, which is also the corpus record position.
	Index int
	Score float32
}

// Searcher finds the rows most similar to a query vector.
type Searcher interface {
	// Search returns at most k hits sorted by descending score, ties by
	// ascending row index.
	Search(query []float32, k int) ([]Hit, error)

	// Len returns the number of searchable rows.
	Len() int

	// Dimensions returns the row width.
	Dimensions() int
}

// Config configures NewSearcher.
type Config struct {
	Strategy Strategy
	HNSW     HNSWConfig
}

// NewSearcher builds a Searcher over rows.
func NewSearcher(rows [][]float32, cfg Config) (Searcher, error) {
	switch cfg.Strategy {
	case "", StrategyExact:
		return NewExact(rows), nil
	case StrategyHNSW:
		return NewHNSW(rows, cfg.HNSW)
	default:
		return nil, fmt.Errorf("unknown search strategy %q", cfg.Strategy)
	}
}

// Cosine returns the cosine similarity of a and b, or 0 when either is a
// zero vector or the widths differ.
func Cosine(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(magA) * math.Sqrt(magB)))
}

// SortHits orders hits by descending score, then ascending index.
func SortHits(hits []Hit) {
	slices.SortStableFunc(hits, func(a, b Hit) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Index, b.Index)
	})
}

func dimensionError(got, want int) error {
	return hverrors.New(hverrors.ErrCodeDimensionMismatch,
		fmt.Sprintf("query has %d dimensions, matrix has %d", got, want), nil)
}
