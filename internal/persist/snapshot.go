// Package persist reads and writes corpus indexes as single gob blobs, from
// local files, HTTP(S) URLs or S3 objects. Only data is persisted: records,
// matrices and build metadata. Models are always reloaded from their servers.
package persist

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/hanviet/hvsearch/internal/corpus"
	hverrors "github.com/hanviet/hvsearch/internal/errors"
	"github.com/hanviet/hvsearch/internal/textnorm"
)

// FormatVersion is the snapshot layout version written by Encode.
const FormatVersion = 1

// corpusSchema marks a corpus table. gob omits zero-valued structs, so an
// empty table still needs one non-zero field to be distinguishable from a
// missing one.
const corpusSchema = "han-vi/records/v1"

type snapshot struct {
	Version   int
	Corpus    *corpusTable
	Matrices  map[string][][]float32
	Order     []string
	Device    string
	Models    map[string]string
	CreatedAt time.Time

	// Normalized is set when CaseFold and Stopwords were recorded. Older
	// snapshots leave it false.
	Normalized bool
	CaseFold   bool
	Stopwords  []string
}

// corpusTable stores records column-wise.
type corpusTable struct {
	Schema      string
	Source      []string
	Translation []string
	Reference   []string
}

// Encode writes ix as a snapshot.
func Encode(w io.Writer, ix *corpus.Index) error {
	n := ix.RecordCount()
	table := &corpusTable{
		Schema:      corpusSchema,
		Source:      make([]string, n),
		Translation: make([]string, n),
		Reference:   make([]string, n),
	}
	for i, r := range ix.Records() {
		table.Source[i] = r.Source
		table.Translation[i] = r.Translation
		table.Reference[i] = r.Reference
	}

	meta := ix.Meta()
	snap := snapshot{
		Version:   FormatVersion,
		Corpus:    table,
		Matrices:  make(map[string][][]float32),
		Order:     ix.Providers(),
		Device:    meta.Device,
		Models:    meta.Models,
		CreatedAt: meta.CreatedAt,
	}
	if n := meta.Normalization; n != nil {
		snap.Normalized = true
		snap.CaseFold = n.CaseFold
		snap.Stopwords = n.Stopwords
	}
	for _, id := range snap.Order {
		m, _ := ix.Matrix(id)
		snap.Matrices[id] = m
	}

	if err := gob.NewEncoder(w).Encode(&snap); err != nil {
		return hverrors.New(hverrors.ErrCodeIndexWrite, "encode index", err)
	}
	return nil
}

// Decode reads a snapshot. A missing or malformed corpus table fails with
// ERR_205_INVALID_INDEX. Each matrix is checked on its own; one that does
// not line up with the records is dropped with a warning.
func Decode(r io.Reader, logger *slog.Logger) (*corpus.Index, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var snap snapshot
	if err := gob.NewDecoder(r).Decode(&snap); err != nil {
		return nil, hverrors.InvalidIndexError("decode index blob", err)
	}
	if snap.Version > FormatVersion {
		return nil, hverrors.InvalidIndexError(
			fmt.Sprintf("index format version %d is newer than supported version %d", snap.Version, FormatVersion), nil)
	}

	t := snap.Corpus
	if t == nil || t.Schema != corpusSchema {
		return nil, hverrors.InvalidIndexError("index has no corpus table", nil)
	}
	if len(t.Translation) != len(t.Source) || len(t.Reference) != len(t.Source) {
		return nil, hverrors.InvalidIndexError(fmt.Sprintf(
			"corpus table columns differ in length (source %d, translation %d, reference %d)",
			len(t.Source), len(t.Translation), len(t.Reference)), nil)
	}

	records := make([]corpus.Record, len(t.Source))
	for i := range t.Source {
		records[i] = corpus.Record{Source: t.Source[i], Translation: t.Translation[i], Reference: t.Reference[i]}
	}
	ix := corpus.New(records)

	for _, id := range matrixOrder(snap) {
		if err := ix.SetMatrix(id, snap.Matrices[id]); err != nil {
			logger.Warn("provider_matrix_dropped",
				slog.String("provider", id),
				slog.String("reason", err.Error()))
		}
	}

	meta := corpus.Meta{
		Device:    snap.Device,
		Models:    snap.Models,
		CreatedAt: snap.CreatedAt,
	}
	if snap.Normalized {
		meta.Normalization = &textnorm.Options{CaseFold: snap.CaseFold, Stopwords: snap.Stopwords}
	}
	ix.SetMeta(meta)
	return ix, nil
}

// matrixOrder returns the recorded provider order, followed by any matrix
// the order list does not mention.
func matrixOrder(snap snapshot) []string {
	seen := make(map[string]bool, len(snap.Matrices))
	var order []string
	for _, id := range snap.Order {
		if _, ok := snap.Matrices[id]; ok && !seen[id] {
			order = append(order, id)
			seen[id] = true
		}
	}
	var rest []string
	for id := range snap.Matrices {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	slices.Sort(rest)
	return append(order, rest...)
}

// Marshal encodes ix into memory.
func Marshal(ix *corpus.Index) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, ix); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes an in-memory snapshot.
func Unmarshal(data []byte, logger *slog.Logger) (*corpus.Index, error) {
	return Decode(bytes.NewReader(data), logger)
}
