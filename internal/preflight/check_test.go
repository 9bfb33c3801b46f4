package preflight

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanviet/hvsearch/internal/corpus"
	"github.com/hanviet/hvsearch/internal/embed"
	"github.com/hanviet/hvsearch/internal/embed/embedtest"
	hverrors "github.com/hanviet/hvsearch/internal/errors"
	"github.com/hanviet/hvsearch/internal/logging"
	"github.com/hanviet/hvsearch/internal/models"
)

type loaderFunc func(ctx context.Context, locator string) (*corpus.Index, error)

func (f loaderFunc) Load(ctx context.Context, locator string) (*corpus.Index, error) {
	return f(ctx, locator)
}

func indexWith(t *testing.T, matrices bool) *corpus.Index {
	t.Helper()
	ix := corpus.New(corpus.DemoRecords())
	if matrices {
		require.NoError(t, ix.SetMatrix("labse", corpus.Matrix{{1, 0}, {0, 1}, {1, 1}}))
	}
	return ix
}

func staticLoader(ix *corpus.Index, err error) IndexLoader {
	return loaderFunc(func(context.Context, string) (*corpus.Index, error) { return ix, err })
}

func newManager(t *testing.T, providers ...embed.Provider) *models.Manager {
	t.Helper()
	opts := models.DefaultOptions()
	opts.Logger = logging.Discard()
	m, err := models.NewManager(providers, opts)
	require.NoError(t, err)
	return m
}

func TestCheckIndex(t *testing.T) {
	tests := []struct {
		name   string
		loader IndexLoader
		want   CheckStatus
	}{
		{"with matrices", staticLoader(indexWith(t, true), nil), StatusPass},
		{"corpus only", staticLoader(indexWith(t, false), nil), StatusWarn},
		{"missing", staticLoader(nil, hverrors.IndexNotFoundError("x.gob", nil)), StatusFail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: a loader
			c := New(WithOutput(&bytes.Buffer{}))

			// When: checking the index
			r := c.CheckIndex(context.Background(), tt.loader, "x.gob")

			// Then: the status reflects what loaded
			assert.Equal(t, tt.want, r.Status)
			assert.True(t, r.Required)
		})
	}
}

func TestCheckProviders_FailureIsWarning(t *testing.T) {
	// Given: one loadable provider and one that fails
	good := embedtest.New("labse", 2, nil)
	bad := embedtest.New("phobert", 2, nil)
	bad.LoadErr = errors.New("connection refused")
	c := New(WithOutput(&bytes.Buffer{}))

	// When: checking providers
	results := c.CheckProviders(context.Background(), newManager(t, bad, good))

	// Then: one result per provider, in order, and no critical failure
	require.Len(t, results, 2)
	assert.Equal(t, "provider_phobert", results[0].Name)
	assert.Equal(t, StatusWarn, results[0].Status)
	assert.Contains(t, results[0].Details, "connection refused")
	assert.Equal(t, StatusPass, results[1].Status)
	assert.Contains(t, results[1].Message, "fake-labse")
	assert.False(t, c.HasCriticalFailures(results))
}

func TestCheckCacheDir_Writable(t *testing.T) {
	// Given: a fresh directory
	dir := t.TempDir() + "/cache"
	c := New()

	// When: checking it
	r := c.CheckCacheDir(dir)

	// Then: it is created and reported with free space
	assert.NotEqual(t, StatusFail, r.Status)
	assert.DirExists(t, dir)
	assert.Contains(t, r.Message, "free")
}

func TestRunAll_SummaryAndPrint(t *testing.T) {
	// Given: a missing index and a working provider
	buf := &bytes.Buffer{}
	c := New(WithOutput(buf), WithVerbose(true))
	target := Target{
		Loader:  staticLoader(nil, hverrors.IndexNotFoundError("x.gob", nil)),
		Locator: "x.gob",
		Models:  newManager(t, embedtest.New("labse", 2, nil)),
	}

	// When: running every check
	results := c.RunAll(context.Background(), target)
	c.PrintResults(results)

	// Then: the index failure is critical
	require.Len(t, results, 2)
	assert.True(t, c.HasCriticalFailures(results))
	assert.Equal(t, "failed", c.SummaryStatus(results))
	assert.Contains(t, buf.String(), "[FAIL] index")
	assert.Contains(t, buf.String(), "Status: FAILED")
}

func TestSummaryStatus(t *testing.T) {
	c := New()
	assert.Equal(t, "ready", c.SummaryStatus([]CheckResult{{Status: StatusPass}}))
	assert.Equal(t, "ready_with_warnings", c.SummaryStatus([]CheckResult{{Status: StatusPass}, {Status: StatusWarn}}))
	assert.Equal(t, "ready_with_warnings", c.SummaryStatus([]CheckResult{{Status: StatusFail}}))
	assert.Equal(t, "failed", c.SummaryStatus([]CheckResult{{Status: StatusFail, Required: true}}))
}

func TestCheckResult_JSONStatusByName(t *testing.T) {
	data, err := json.Marshal(CheckResult{Name: "index", Status: StatusWarn})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"status":"WARN"`)
}

func TestCheckStatus_UnmarshalText(t *testing.T) {
	var s CheckStatus
	require.NoError(t, s.UnmarshalText([]byte("FAIL")))
	assert.Equal(t, StatusFail, s)
	assert.Error(t, s.UnmarshalText([]byte("MAYBE")))
}
