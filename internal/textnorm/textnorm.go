// Package textnorm canonicalizes Han and Vietnamese text before it is encoded
// or compared. Queries and corpus records must go through the same Normalizer.
package textnorm

import (
	"regexp"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var (
	// punctRun matches two or more consecutive marks from the fixed set.
	punctRun = regexp.MustCompile(`[.,!?;:]{2,}`)

	// spaceBeforePunct matches whitespace directly in front of a mark.
	spaceBeforePunct = regexp.MustCompile(`\s+([.,!?;:])`)
)

// Options controls the optional normalization steps.
type Options struct {
	// CaseFold applies Unicode case folding after whitespace cleanup.
	CaseFold bool

	// Stopwords are whole words dropped after punctuation cleanup.
	// Entries are normalized with the same options before comparison.
	Stopwords []string
}

// Normalizer applies a fixed normalization pipeline. It is safe for concurrent use.
type Normalizer struct {
	caseFold  bool
	stopwords map[string]struct{}
}

// New creates a Normalizer.
func New(opts Options) *Normalizer {
	n := &Normalizer{caseFold: opts.CaseFold}
	if len(opts.Stopwords) > 0 {
		n.stopwords = make(map[string]struct{}, len(opts.Stopwords))
		for _, w := range opts.Stopwords {
			if w = n.clean(w); w != "" {
				n.stopwords[w] = struct{}{}
			}
		}
	}
	return n
}

// Default returns a Normalizer with case folding enabled and no stopwords.
func Default() *Normalizer {
	return New(Options{CaseFold: true})
}

// Options returns the settings n applies. Stopwords come back cleaned and
// sorted, so two normalizers behave alike exactly when their Options are Equal.
func (n *Normalizer) Options() Options {
	opts := Options{CaseFold: n.caseFold}
	for w := range n.stopwords {
		opts.Stopwords = append(opts.Stopwords, w)
	}
	slices.Sort(opts.Stopwords)
	return opts
}

// Equal reports whether o and other normalize text the same way.
func (o Options) Equal(other Options) bool {
	return New(o).Options().equal(New(other).Options())
}

func (o Options) equal(other Options) bool {
	return o.CaseFold == other.CaseFold && slices.Equal(o.Stopwords, other.Stopwords)
}

// Normalize canonicalizes text. Empty input yields "".
// Normalize(Normalize(t)) == Normalize(t) for every t.
func (n *Normalizer) Normalize(text string) string {
	s := n.clean(text)
	if s == "" || len(n.stopwords) == 0 {
		return s
	}

	words := strings.Fields(s)
	kept := words[:0]
	for _, w := range words {
		if _, drop := n.stopwords[w]; !drop {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

// NormalizeAll normalizes a batch in place order.
func (n *Normalizer) NormalizeAll(texts []string) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = n.Normalize(t)
	}
	return out
}

func (n *Normalizer) clean(text string) string {
	if text == "" {
		return ""
	}

	s := norm.NFC.String(text)
	s = strings.Join(strings.Fields(s), " ")
	if n.caseFold {
		// Casers keep internal state, so one per call.
		s = norm.NFC.String(cases.Fold().String(s))
	}

	s = collapsePunct(s)
	s = spaceBeforePunct.ReplaceAllString(s, "$1")
	// Dropping spaces can join two runs ("a . ." -> "a..").
	return collapsePunct(s)
}

// collapsePunct keeps the last mark of every run, matching a regex
// back-reference to a repeated group.
func collapsePunct(s string) string {
	return punctRun.ReplaceAllStringFunc(s, func(run string) string {
		return run[len(run)-1:]
	})
}
