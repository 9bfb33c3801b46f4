// Package lexical scores corpus records against a query by substring and
// character overlap. It is a fixed, deliberately crude quality floor used
// when no semantic provider can answer; it is not meant to be improved into
// a ranking model.
package lexical

import (
	"strings"

	"github.com/hanviet/hvsearch/internal/vector"
)

// Fixed scores. A record matching neither rule is excluded.
const (
	// SubstringScore applies when either text contains the other.
	SubstringScore float32 = 0.8

	// OverlapScore applies when any query character occurs in the source.
	OverlapScore float32 = 0.3
)

// ModelID tags results produced by the matcher.
const ModelID = "simple"

// Matcher holds lower-cased record sources.
type Matcher struct {
	sources []string
}

// New creates a Matcher over record sources, in corpus order.
func New(sources []string) *Matcher {
	lowered := make([]string, len(sources))
	for i, s := range sources {
		lowered[i] = strings.ToLower(s)
	}
	return &Matcher{sources: lowered}
}

// Match scores every record against query and returns at most topK hits,
// highest score first, ties in corpus order. The query is only lower-cased.
func (m *Matcher) Match(query string, topK int) []vector.Hit {
	if topK <= 0 {
		return []vector.Hit{}
	}

	q := strings.ToLower(query)
	hits := make([]vector.Hit, 0)
	for i, src := range m.sources {
		switch {
		case strings.Contains(src, q) || strings.Contains(q, src):
			hits = append(hits, vector.Hit{Index: i, Score: SubstringScore})
		case strings.ContainsAny(src, q):
			hits = append(hits, vector.Hit{Index: i, Score: OverlapScore})
		}
	}

	vector.SortHits(hits)
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}

// Len returns the number of records.
func (m *Matcher) Len() int {
	return len(m.sources)
}
