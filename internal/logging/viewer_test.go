package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLog = `{"time":"2026-03-01T10:00:00.5Z","level":"INFO","msg":"index_ready","records":3,"searchers":2}
{"time":"2026-03-01T10:00:01Z","level":"WARN","msg":"provider_skipped","provider":"phobert","stage":"encode"}
not json at all
{"time":"2026-03-01T10:00:02Z","level":"ERROR","msg":"index_load_failed","locator":"x.gob"}
{"time":"2026-03-01T10:00:03Z","level":"DEBUG","msg":"search_completed","results":1}
`

func writeLog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hvsearch.log")
	require.NoError(t, os.WriteFile(path, []byte(sampleLog), 0o644))
	return path
}

func TestViewer_TailLastN(t *testing.T) {
	// Given: a log with five lines
	path := writeLog(t)
	v := NewViewer(ViewerConfig{}, &bytes.Buffer{})

	// When: tailing two
	entries, err := v.Tail(path, 2)

	// Then: the last two are returned in file order
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "index_load_failed", entries[0].Msg)
	assert.Equal(t, "search_completed", entries[1].Msg)
}

func TestViewer_LevelFilterKeepsRawLines(t *testing.T) {
	// Given: a warn-level filter
	path := writeLog(t)
	v := NewViewer(ViewerConfig{Level: "warn"}, &bytes.Buffer{})

	// When: tailing everything
	entries, err := v.Tail(path, 0)

	// Then: warn, the unparsed line and error remain
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "provider_skipped", entries[0].Msg)
	assert.False(t, entries[1].IsValid)
	assert.Equal(t, "index_load_failed", entries[2].Msg)
}

func TestViewer_PatternFilter(t *testing.T) {
	// Given: a pattern matching one provider
	path := writeLog(t)
	v := NewViewer(ViewerConfig{Pattern: regexp.MustCompile(`phobert`)}, &bytes.Buffer{})

	// When: tailing
	entries, err := v.Tail(path, 50)

	// Then: only that line remains
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "phobert", entries[0].Attrs["provider"])
}

func TestFormatEntry_SortsAttrs(t *testing.T) {
	// Given: a parsed entry
	e := parseLine(`{"time":"2026-03-01T10:00:00.5Z","level":"INFO","msg":"index_ready","searchers":2,"records":3}`)

	// When: formatting
	got := FormatEntry(e)

	// Then: time, level, message and sorted attributes appear
	assert.Equal(t, "10:00:00.500 INFO  index_ready records=3 searchers=2", got)
}

func TestViewer_Print(t *testing.T) {
	// Given: a viewer writing to a buffer
	path := writeLog(t)
	buf := &bytes.Buffer{}
	v := NewViewer(ViewerConfig{Level: "error"}, buf)

	// When: printing the error entries
	entries, err := v.Tail(path, 10)
	require.NoError(t, err)
	v.Print(entries)

	// Then: the unparsed line and the error line are printed
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "not json at all", lines[0])
	assert.Contains(t, lines[1], "index_load_failed locator=x.gob")
}

func TestViewer_MissingFile(t *testing.T) {
	v := NewViewer(ViewerConfig{}, &bytes.Buffer{})
	_, err := v.Tail(filepath.Join(t.TempDir(), "none.log"), 10)
	require.Error(t, err)
}
