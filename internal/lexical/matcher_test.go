package lexical

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hanviet/hvsearch/internal/vector"
)

func TestMatcher_Match(t *testing.T) {
	m := New([]string{"你好", "谢谢", "你们好吗", "Xin Chào"})

	tests := []struct {
		name  string
		query string
		topK  int
		want  []vector.Hit
	}{
		{
			name:  "exact source match",
			query: "你好",
			topK:  1,
			want:  []vector.Hit{{Index: 0, Score: 0.8}},
		},
		{
			name:  "overlap ranks below substring",
			query: "你好",
			topK:  3,
			want:  []vector.Hit{{Index: 0, Score: 0.8}, {Index: 2, Score: 0.3}},
		},
		{
			name:  "query contains source",
			query: "谢谢你",
			topK:  3,
			want:  []vector.Hit{{Index: 1, Score: 0.8}, {Index: 0, Score: 0.3}, {Index: 2, Score: 0.3}},
		},
		{
			name:  "no overlap",
			query: "再见",
			topK:  3,
			want:  []vector.Hit{},
		},
		{
			name:  "case insensitive",
			query: "xin CHÀO",
			topK:  1,
			want:  []vector.Hit{{Index: 3, Score: 0.8}},
		},
		{
			name:  "zero top k",
			query: "你好",
			topK:  0,
			want:  []vector.Hit{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Match(tt.query, tt.topK))
		})
	}
}

func TestMatcher_TiesKeepCorpusOrder(t *testing.T) {
	m := New([]string{"天地", "地天", "天"})

	hits := m.Match("天地人", 3)

	// "天地" and "天" are substrings of the query; "地天" only overlaps.
	assert.Equal(t, []vector.Hit{{Index: 0, Score: 0.8}, {Index: 2, Score: 0.8}, {Index: 1, Score: 0.3}}, hits)
}
