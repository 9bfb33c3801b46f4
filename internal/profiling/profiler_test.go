package profiling

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_WritesRequestedProfiles(t *testing.T) {
	// Given: CPU, heap and trace paths
	dir := t.TempDir()
	opts := Options{
		CPU:   filepath.Join(dir, "cpu.prof"),
		Heap:  filepath.Join(dir, "heap.prof"),
		Trace: filepath.Join(dir, "trace.out"),
	}
	require.True(t, opts.Enabled())

	// When: starting and stopping a session
	s, err := Start(opts)
	require.NoError(t, err)
	require.NoError(t, s.Stop())

	// Then: every file exists and the heap profile is not empty
	assert.FileExists(t, opts.CPU)
	assert.FileExists(t, opts.Trace)
	info, err := os.Stat(opts.Heap)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestSession_StopTwice(t *testing.T) {
	// Given: a heap-only session
	dir := t.TempDir()
	s, err := Start(Options{Heap: filepath.Join(dir, "heap.prof")})
	require.NoError(t, err)

	// When: stopping twice
	require.NoError(t, s.Stop())

	// Then: the second stop is a no-op
	assert.NoError(t, s.Stop())
}

func TestStart_BadPath(t *testing.T) {
	// Given: a CPU profile path in a missing directory
	opts := Options{CPU: filepath.Join(t.TempDir(), "missing", "cpu.prof")}

	// When: starting
	_, err := Start(opts)

	// Then: it fails
	require.Error(t, err)
}

func TestOptions_Enabled(t *testing.T) {
	assert.False(t, Options{}.Enabled())
	assert.True(t, Options{Trace: "t.out"}.Enabled())
}
