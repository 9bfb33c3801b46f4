package vector

import "math"

// Exact is a brute-force cosine Searcher.
type Exact struct {
	rows  [][]float32
	norms []float64
	dims  int
}

var _ Searcher = (*Exact)(nil)

// NewExact precomputes row norms. rows is retained, not copied.
func NewExact(rows [][]float32) *Exact {
	e := &Exact{rows: rows, norms: make([]float64, len(rows))}
	if len(rows) > 0 {
		e.dims = len(rows[0])
	}
	for i, row := range rows {
		var sum float64
		for _, v := range row {
			sum += float64(v) * float64(v)
		}
		e.norms[i] = math.Sqrt(sum)
	}
	return e
}

// Search returns the k rows most similar to query. A zero query matches nothing.
func (e *Exact) Search(query []float32, k int) ([]Hit, error) {
	if k <= 0 || len(e.rows) == 0 {
		return []Hit{}, nil
	}
	if len(query) != e.dims {
		return nil, dimensionError(len(query), e.dims)
	}

	var qnorm float64
	for _, v := range query {
		qnorm += float64(v) * float64(v)
	}
	qnorm = math.Sqrt(qnorm)
	// A zero query has no direction; report no hits rather than k ties at 0.
	if qnorm == 0 {
		return []Hit{}, nil
	}

	hits := make([]Hit, len(e.rows))
	for i, row := range e.rows {
		var score float32
		if e.norms[i] > 0 {
			var dot float64
			for j, v := range row {
				dot += float64(v) * float64(query[j])
			}
			score = float32(dot / (qnorm * e.norms[i]))
		}
		hits[i] = Hit{Index: i, Score: score}
	}

	SortHits(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (e *Exact) Len() int { return len(e.rows) }

func (e *Exact) Dimensions() int { return e.dims }
