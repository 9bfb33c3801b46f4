// Package corpus holds the bilingual corpus and its per-provider embedding
// matrices. An Index is built offline, persisted once and then shared
// read-only by every query; nothing mutates it at serve time.
package corpus

import (
	"fmt"
	"time"

	"github.com/hanviet/hvsearch/internal/textnorm"
)

// Record is one bilingual entry. Its position in the Index is the join key
// to every embedding matrix.
type Record struct {
	// Source is the Han text as written in the corpus.
	Source string `json:"han_original"`

	// Translation is the Vietnamese translation.
	Translation string `json:"translation"`

	// Reference is the best-match reference translation.
	Reference string `json:"best_match"`
}

// Matrix holds one vector per record, in record order.
type Matrix [][]float32

// Dimensions returns the row width, or 0 for an empty matrix.
func (m Matrix) Dimensions() int {
	if len(m) == 0 {
		return 0
	}
	return len(m[0])
}

// Meta describes how an Index was built.
type Meta struct {
	// Device is the compute device the matrices were encoded on.
	Device string

	// Models maps provider id to the model name that produced its matrix.
	Models map[string]string

	// Normalization is the normalizer the sources went through. Queries
	// must use the same settings. Nil means the index did not record it.
	Normalization *textnorm.Options

	CreatedAt time.Time
}

// Index owns the records and a possibly partial map of provider matrices.
type Index struct {
	records  []Record
	matrices map[string]Matrix
	order    []string
	meta     Meta
}

// New creates an Index over records with no matrices.
func New(records []Record) *Index {
	return &Index{
		records:  records,
		matrices: make(map[string]Matrix),
		meta:     Meta{Models: make(map[string]string)},
	}
}

// SetMatrix attaches a provider matrix. The matrix must have one row per
// record and rows of equal width.
func (ix *Index) SetMatrix(provider string, m Matrix) error {
	if provider == "" {
		return fmt.Errorf("provider id is required")
	}
	if len(m) != len(ix.records) {
		return fmt.Errorf("matrix %s has %d rows for %d records", provider, len(m), len(ix.records))
	}
	dims := m.Dimensions()
	for i, row := range m {
		if len(row) != dims {
			return fmt.Errorf("matrix %s row %d has width %d, want %d", provider, i, len(row), dims)
		}
	}
	if _, exists := ix.matrices[provider]; !exists {
		ix.order = append(ix.order, provider)
	}
	ix.matrices[provider] = m
	return nil
}

// RecordCount returns the number of records.
func (ix *Index) RecordCount() int {
	return len(ix.records)
}

// Record returns the record at position i.
func (ix *Index) Record(i int) Record {
	return ix.records[i]
}

// Records returns the records. The slice must not be modified.
func (ix *Index) Records() []Record {
	return ix.records
}

// HasEmbeddings reports whether a matrix is present for provider.
func (ix *Index) HasEmbeddings(provider string) bool {
	_, ok := ix.matrices[provider]
	return ok
}

// HasAnyEmbeddings reports whether at least one matrix is present.
func (ix *Index) HasAnyEmbeddings() bool {
	return len(ix.matrices) > 0
}

// Matrix returns the matrix for provider.
func (ix *Index) Matrix(provider string) (Matrix, bool) {
	m, ok := ix.matrices[provider]
	return m, ok
}

// Providers returns the providers with matrices, in the order they were added.
func (ix *Index) Providers() []string {
	return append([]string(nil), ix.order...)
}

// Meta returns the build metadata.
func (ix *Index) Meta() Meta {
	return ix.meta
}

// SetMeta replaces the build metadata.
func (ix *Index) SetMeta(meta Meta) {
	if meta.Models == nil {
		meta.Models = make(map[string]string)
	}
	ix.meta = meta
}
