package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCmd_Demo_WithoutModels(t *testing.T) {
	// Given: no reachable model server
	dir := isolate(t)

	// When: building the demo index
	out, err := run(t, "", "build", "--demo", "--out", filepath.Join(dir, "demo.gob"))

	// Then: the corpus is written without matrices
	require.NoError(t, err)
	assert.Contains(t, out, "Read 3 records")
	assert.Contains(t, out, "substring matching")
	assert.FileExists(t, filepath.Join(dir, "demo.gob"))
}

func TestBuildCmd_CSV(t *testing.T) {
	// Given: an aligned CSV corpus
	dir := isolate(t)
	csvPath := filepath.Join(dir, "corpus.csv")
	writeFile(t, csvPath, "Câu tiếng Hán,translation,best_match\n"+
		"學而時習之,Học mà thường ôn tập,Học mà thường ôn tập\n"+
		"有朋自遠方來,Có bạn từ phương xa đến,Có bạn từ phương xa đến\n")

	// When: building to the default locator
	out, err := run(t, "", "build", "--csv", csvPath)

	// Then: both records are indexed at index.source
	require.NoError(t, err)
	assert.Contains(t, out, "Read 2 records")
	assert.FileExists(t, filepath.Join(dir, "han_viet_index.gob"))

	info, err := run(t, "", "info")
	require.NoError(t, err)
	assert.Contains(t, info, "Records:   2")
}

func TestBuildCmd_MissingColumn(t *testing.T) {
	// Given: a CSV without the translation column
	dir := isolate(t)
	csvPath := filepath.Join(dir, "corpus.csv")
	writeFile(t, csvPath, "Câu tiếng Hán,best_match\n你好,Xin chào\n")

	// When: building
	_, err := run(t, "", "build", "--csv", csvPath)

	// Then: the build fails naming the column
	require.Error(t, err)
	assert.Contains(t, err.Error(), "translation")
}

func TestBuildCmd_SourceFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"neither", []string{"build"}, "either --csv or --demo"},
		{"both", []string{"build", "--demo", "--csv", "x.csv"}, "mutually exclusive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: an isolated environment
			isolate(t)

			// When: building with bad source flags
			_, err := run(t, "", tt.args...)

			// Then: the flags are rejected
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
