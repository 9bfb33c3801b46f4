package persist

import (
	"bytes"
	"encoding/gob"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanviet/hvsearch/internal/corpus"
	hverrors "github.com/hanviet/hvsearch/internal/errors"
	"github.com/hanviet/hvsearch/internal/textnorm"
)

func sampleIndex(t *testing.T) *corpus.Index {
	t.Helper()
	ix := corpus.New([]corpus.Record{
		{Source: "你好", Translation: "Xin chào", Reference: "Xin chào"},
		{Source: "谢谢", Translation: "Cảm ơn", Reference: "Cảm ơn"},
	})
	require.NoError(t, ix.SetMatrix("phobert", corpus.Matrix{{1, 0, 0}, {0, 1, 0}}))
	require.NoError(t, ix.SetMatrix("labse", corpus.Matrix{{0.6, 0.8}, {0.8, 0.6}}))
	ix.SetMeta(corpus.Meta{
		Device:        "cpu",
		Models:        map[string]string{"phobert": "vinai/phobert-base", "labse": "labse:latest"},
		Normalization: &textnorm.Options{CaseFold: true, Stopwords: []string{"chi"}},
		CreatedAt:     time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	return ix
}

func encodeRaw(t *testing.T, snap snapshot) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(&snap))
	return buf.Bytes()
}

func TestRoundTrip_PreservesRecordsAndProviders(t *testing.T) {
	// Given: an index with two provider matrices
	ix := sampleIndex(t)

	// When: persisting and loading it
	data, err := Marshal(ix)
	require.NoError(t, err)
	got, err := Unmarshal(data, nil)
	require.NoError(t, err)

	// Then: counts, providers, records and metadata survive
	assert.Equal(t, ix.RecordCount(), got.RecordCount())
	assert.Equal(t, ix.Providers(), got.Providers())
	assert.Equal(t, ix.Records(), got.Records())
	m, ok := got.Matrix("labse")
	require.True(t, ok)
	assert.Equal(t, corpus.Matrix{{0.6, 0.8}, {0.8, 0.6}}, m)
	assert.Equal(t, ix.Meta(), got.Meta())
}

func TestRoundTrip_NoMatrices(t *testing.T) {
	ix := corpus.New(corpus.DemoRecords())

	data, err := Marshal(ix)
	require.NoError(t, err)
	got, err := Unmarshal(data, nil)

	require.NoError(t, err)
	assert.Equal(t, 3, got.RecordCount())
	assert.False(t, got.HasAnyEmbeddings())
}

func TestRoundTrip_EmptyCorpus(t *testing.T) {
	data, err := Marshal(corpus.New(nil))
	require.NoError(t, err)

	got, err := Unmarshal(data, nil)

	require.NoError(t, err)
	assert.Equal(t, 0, got.RecordCount())
}

func TestDecode_RejectsInvalidBlobs(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"garbage", []byte("<html>not an index</html>")},
		{"empty", nil},
		{"missing corpus table", encodeRaw(t, snapshot{Version: 1, Device: "cpu"})},
		{"unmarked corpus table", encodeRaw(t, snapshot{Version: 1, Corpus: &corpusTable{Source: []string{"a"}, Translation: []string{"b"}, Reference: []string{"c"}}})},
		{"ragged columns", encodeRaw(t, snapshot{Version: 1, Corpus: &corpusTable{
			Schema: corpusSchema, Source: []string{"a", "b"}, Translation: []string{"x"}, Reference: []string{"y", "z"},
		}})},
		{"newer version", encodeRaw(t, snapshot{Version: FormatVersion + 1, Corpus: &corpusTable{Schema: corpusSchema}})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal(tt.data, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, hverrors.ErrInvalidIndex)
		})
	}
}

func TestDecode_DropsMisalignedMatrix(t *testing.T) {
	data := encodeRaw(t, snapshot{
		Version: 1,
		Corpus: &corpusTable{
			Schema: corpusSchema, Source: []string{"a", "b"}, Translation: []string{"1", "2"}, Reference: []string{"1", "2"},
		},
		Matrices: map[string][][]float32{
			"phobert": {{1}, {2}},
			"labse":   {{1}},
		},
		Order: []string{"phobert", "labse"},
	})

	ix, err := Unmarshal(data, nil)

	require.NoError(t, err)
	assert.True(t, ix.HasEmbeddings("phobert"))
	assert.False(t, ix.HasEmbeddings("labse"))
}

func TestMatrixOrder_AppendsUnlistedSorted(t *testing.T) {
	snap := snapshot{
		Matrices: map[string][][]float32{"c": nil, "a": nil, "b": nil},
		Order:    []string{"b", "missing"},
	}

	assert.Equal(t, []string{"b", "a", "c"}, matrixOrder(snap))
}

func TestDecode_Normalization(t *testing.T) {
	table := &corpusTable{Schema: corpusSchema, Source: []string{"a"}, Translation: []string{"b"}, Reference: []string{"c"}}

	t.Run("not recorded", func(t *testing.T) {
		// Given: a snapshot written before normalization was recorded
		data := encodeRaw(t, snapshot{Version: 1, Corpus: table})

		// When: decoding it
		ix, err := Unmarshal(data, nil)

		// Then: the index carries no normalization settings
		require.NoError(t, err)
		assert.Nil(t, ix.Meta().Normalization)
	})

	t.Run("recorded without case folding", func(t *testing.T) {
		// Given: an index built with every normalization option off
		ix := corpus.New([]corpus.Record{{Source: "a", Translation: "b", Reference: "c"}})
		ix.SetMeta(corpus.Meta{Normalization: &textnorm.Options{}})

		// When: round-tripping it
		data, err := Marshal(ix)
		require.NoError(t, err)
		got, err := Unmarshal(data, nil)

		// Then: the settings are still present, not mistaken for missing
		require.NoError(t, err)
		require.NotNil(t, got.Meta().Normalization)
		assert.False(t, got.Meta().Normalization.CaseFold)
		assert.Empty(t, got.Meta().Normalization.Stopwords)
	})
}
