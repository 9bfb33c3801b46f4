package cmd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInfoCmd_Text(t *testing.T) {
	// Given: the demo index
	dir := isolate(t)
	index := buildDemo(t, dir)

	// When: printing its info
	out, err := run(t, "", "info", "--index", index)

	// Then: the record count and missing matrices are reported
	require.NoError(t, err)
	assert.Contains(t, out, "Records:   3")
	assert.Contains(t, out, "No embedding matrices")
}

func TestInfoCmd_JSON(t *testing.T) {
	// Given: the demo index
	dir := isolate(t)
	index := buildDemo(t, dir)

	// When: printing its info as JSON
	out, err := run(t, "", "info", "--index", index, "--json")
	require.NoError(t, err)

	// Then: the fields decode
	var got indexInfo
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 3, got.Records)
	assert.Equal(t, index, got.Locator)
	assert.Empty(t, got.Matrices)
	assert.True(t, got.CaseFold)
	assert.NotEmpty(t, got.Device)
}

func TestInfoCmd_MissingIndex(t *testing.T) {
	// Given: no index
	isolate(t)

	// When: printing info
	_, err := run(t, "", "info", "--index", "missing.gob")

	// Then: it fails
	require.Error(t, err)
}
