package vector

import (
	"fmt"
	"math"

	"github.com/coder/hnsw"
)

// HNSWConfig tunes the approximate graph.
type HNSWConfig struct {
	// M is the maximum neighbours per node (default 16).
	M int

	// EfSearch is the candidate list size during search (default 100).
	EfSearch int
}

// DefaultHNSWConfig returns the default graph parameters.
func DefaultHNSWConfig() HNSWConfig {
	return HNSWConfig{M: 16, EfSearch: 100}
}

// HNSW is an approximate Searcher backed by coder/hnsw. Rows are stored
// unit-normalized; zero rows are left out of the graph since cosine
// distance is undefined for them.
type HNSW struct {
	graph *hnsw.Graph[uint64]
	rows  [][]float32
	dims  int
}

var _ Searcher = (*HNSW)(nil)

// NewHNSW builds the graph from rows.
func NewHNSW(rows [][]float32, cfg HNSWConfig) (*HNSW, error) {
	def := DefaultHNSWConfig()
	if cfg.M <= 0 {
		cfg.M = def.M
	}
	if cfg.EfSearch <= 0 {
		cfg.EfSearch = def.EfSearch
	}

	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = cfg.M
	graph.EfSearch = cfg.EfSearch
	graph.Ml = 1 / math.Log(float64(cfg.M))

	h := &HNSW{graph: graph, rows: make([][]float32, len(rows))}
	if len(rows) > 0 {
		h.dims = len(rows[0])
	}
	for i, row := range rows {
		if len(row) != h.dims {
			return nil, fmt.Errorf("row %d has width %d, want %d", i, len(row), h.dims)
		}
		vec := unit(row)
		h.rows[i] = vec
		if vec == nil {
			continue
		}
		graph.Add(hnsw.MakeNode(uint64(i), vec))
	}
	return h, nil
}

func (h *HNSW) Search(query []float32, k int) ([]Hit, error) {
	if k <= 0 || h.graph.Len() == 0 {
		return []Hit{}, nil
	}
	if len(query) != h.dims {
		return nil, dimensionError(len(query), h.dims)
	}
	q := unit(query)
	if q == nil {
		return []Hit{}, nil
	}

	nodes := h.graph.Search(q, k)
	hits := make([]Hit, 0, len(nodes))
	for _, node := range nodes {
		idx := int(node.Key)
		hits = append(hits, Hit{Index: idx, Score: Cosine(q, h.rows[idx])})
	}
	SortHits(hits)
	return hits, nil
}

func (h *HNSW) Len() int { return len(h.rows) }

func (h *HNSW) Dimensions() int { return h.dims }

// unit returns a unit-length copy of v, or nil for a zero vector.
func unit(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return nil
	}
	inv := 1 / math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}
