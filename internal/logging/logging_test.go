package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelFromString(tt.in), tt.in)
	}
}

func TestSetup_WritesJSONToFile(t *testing.T) {
	// Given: a file-only JSON config at warn level
	path := filepath.Join(t.TempDir(), "logs", "hvsearch.log")
	logger, cleanup, err := Setup(Config{Level: "warn", Format: "json", FilePath: path})
	require.NoError(t, err)

	// When: logging below and at the level
	logger.Info("index_loaded", slog.Int("records", 3))
	logger.Warn("provider_skipped", slog.String("provider", "labse"))
	cleanup()

	// Then: only the warning is written, as JSON
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "provider_skipped", entry["msg"])
	assert.Equal(t, "labse", entry["provider"])
}

func TestNewHandler_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newHandler(&buf, Config{Level: "info", Format: "text"}))

	logger.Info("model_loaded", slog.String("provider", "phobert"))

	assert.Contains(t, buf.String(), "msg=model_loaded")
	assert.Contains(t, buf.String(), "provider=phobert")
}

func TestRotatingWriter_RotatesAndKeepsMaxFiles(t *testing.T) {
	// Given: a writer with a 1MB limit keeping two generations
	path := filepath.Join(t.TempDir(), "app.log")
	w, err := NewRotatingWriter(path, 1, 2)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	// When: writing four chunks of just over half the limit
	chunk := bytes.Repeat([]byte("x"), (1<<20)/2+1)
	for i := range 4 {
		chunk[0] = byte('0' + i)
		_, err := w.Write(chunk)
		require.NoError(t, err)
	}

	// Then: the live file plus two generations exist, newest first
	assert.FileExists(t, path)
	assert.FileExists(t, path+".1")
	assert.FileExists(t, path+".2")
	assert.NoFileExists(t, path+".3")

	for gen, want := range map[string]byte{path: '3', path + ".1": '2', path + ".2": '1'} {
		data, err := os.ReadFile(gen)
		require.NoError(t, err)
		assert.Equal(t, want, data[0], fmt.Sprintf("first byte of %s", filepath.Base(gen)))
	}
}

func TestRotatingWriter_AppendsToExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0o644))

	w, err := NewRotatingWriter(path, 1, 1)
	require.NoError(t, err)
	_, err = w.Write([]byte("new\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "old\nnew\n", string(data))
}
