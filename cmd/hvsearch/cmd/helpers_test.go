package cmd

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// isolate gives the test its own home, config dir and working directory,
// and points both default providers at a server that has no models.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("HVSEARCH_CACHE_DIR", filepath.Join(dir, "cache"))
	t.Setenv("HVSEARCH_INDEX", "")
	t.Setenv("HVSEARCH_LOG_LEVEL", "error")
	t.Chdir(dir)

	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)
	t.Setenv("HVSEARCH_PHOBERT_ENDPOINT", srv.URL)
	t.Setenv("HVSEARCH_LABSE_ENDPOINT", srv.URL)
	return dir
}

// run executes the root command with args and returns everything written
// to stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

// buildDemo writes the demo index into dir and returns its path.
func buildDemo(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "demo.gob")
	_, err := run(t, "", "build", "--demo", "--out", path)
	require.NoError(t, err)
	require.FileExists(t, path)
	return path
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
