package models

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanviet/hvsearch/internal/embed"
	"github.com/hanviet/hvsearch/internal/embed/embedtest"
	hverrors "github.com/hanviet/hvsearch/internal/errors"
)

func newManager(t *testing.T, opts Options, providers ...embed.Provider) *Manager {
	t.Helper()
	m, err := NewManager(providers, opts)
	require.NoError(t, err)
	return m
}

// ============================================================================
// Loading
// ============================================================================

func TestManager_EnsureLoaded_LoadsOnceUnderConcurrency(t *testing.T) {
	// Given: a slow provider
	fake := embedtest.New("phobert", 2, nil)
	fake.LoadDelay = 50 * time.Millisecond
	m := newManager(t, DefaultOptions(), fake)

	// When: many callers ask for it at once
	var wg sync.WaitGroup
	errs := make([]error, 16)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = m.EnsureLoaded(context.Background(), "phobert")
		}(i)
	}
	wg.Wait()

	// Then: all succeed and the model was loaded exactly once
	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1), fake.LoadCalls.Load())
	assert.Equal(t, StateLoaded, m.State("phobert"))
}

func TestManager_EnsureLoaded_NoopAfterLoad(t *testing.T) {
	fake := embedtest.New("labse", 2, nil)
	m := newManager(t, DefaultOptions(), fake)

	require.NoError(t, m.EnsureLoaded(context.Background(), "labse"))
	require.NoError(t, m.EnsureLoaded(context.Background(), "labse"))

	assert.Equal(t, int64(1), fake.LoadCalls.Load())
}

func TestManager_EnsureLoaded_FailureIsStickyAndNotRetried(t *testing.T) {
	fake := embedtest.New("phobert", 2, nil)
	fake.LoadErr = errors.New("weights missing")
	m := newManager(t, DefaultOptions(), fake)

	err1 := m.EnsureLoaded(context.Background(), "phobert")
	err2 := m.EnsureLoaded(context.Background(), "phobert")

	assert.ErrorIs(t, err1, hverrors.ErrModelLoad)
	assert.ErrorIs(t, err2, hverrors.ErrModelLoad)
	assert.Equal(t, int64(1), fake.LoadCalls.Load())
	assert.Equal(t, StateFailed, m.State("phobert"))
	assert.False(t, fake.Loaded())
}

func TestManager_EnsureLoaded_WaiterTimesOut(t *testing.T) {
	// Given: a load slower than the wait budget
	fake := embedtest.New("labse", 2, nil)
	fake.LoadDelay = 200 * time.Millisecond
	opts := DefaultOptions()
	opts.LoadTimeout = 20 * time.Millisecond
	m := newManager(t, opts, fake)

	// When: a caller waits
	err := m.EnsureLoaded(context.Background(), "labse")

	// Then: it gets a timeout, and the load still completes in the background
	assert.ErrorIs(t, err, hverrors.ErrModelLoadTimeout)
	assert.Eventually(t, fake.Loaded, 2*time.Second, 10*time.Millisecond)
	assert.NoError(t, m.EnsureLoaded(context.Background(), "labse"))
	assert.Equal(t, int64(1), fake.LoadCalls.Load())
}

func TestManager_EnsureLoaded_CallerDeadline(t *testing.T) {
	fake := embedtest.New("labse", 2, nil)
	fake.LoadDelay = 200 * time.Millisecond
	opts := DefaultOptions()
	opts.LoadTimeout = 0
	m := newManager(t, opts, fake)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := m.EnsureLoaded(ctx, "labse")

	assert.ErrorIs(t, err, hverrors.ErrModelLoadTimeout)
}

func TestManager_EnsureLoaded_UnknownProvider(t *testing.T) {
	m := newManager(t, DefaultOptions())

	err := m.EnsureLoaded(context.Background(), "nope")

	require.Error(t, err)
	assert.Equal(t, StateUnloaded, m.State("nope"))
}

func TestNewManager_RejectsDuplicateIDs(t *testing.T) {
	_, err := NewManager([]embed.Provider{
		embedtest.New("x", 1, nil),
		embedtest.New("x", 1, nil),
	}, DefaultOptions())

	require.Error(t, err)
}

// ============================================================================
// Encoding cache
// ============================================================================

func TestManager_Encode_CachesSingleEncodes(t *testing.T) {
	fake := embedtest.New("phobert", 2, map[string][]float32{"你好": {1, 0}})
	m := newManager(t, DefaultOptions(), fake)

	v1, err := m.Encode(context.Background(), "phobert", "你好")
	require.NoError(t, err)
	v2, err := m.Encode(context.Background(), "phobert", "你好")
	require.NoError(t, err)

	assert.Equal(t, []float32{1, 0}, v1)
	assert.Equal(t, v1, v2)
	assert.Equal(t, int64(1), fake.EncodeCalls.Load())
	assert.Equal(t, 1, m.CacheLen())
}

func TestManager_Encode_KeyIncludesProvider(t *testing.T) {
	a := embedtest.New("phobert", 2, map[string][]float32{"q": {1, 0}})
	b := embedtest.New("labse", 2, map[string][]float32{"q": {0, 1}})
	m := newManager(t, DefaultOptions(), a, b)

	va, err := m.Encode(context.Background(), "phobert", "q")
	require.NoError(t, err)
	vb, err := m.Encode(context.Background(), "labse", "q")
	require.NoError(t, err)

	assert.Equal(t, []float32{1, 0}, va)
	assert.Equal(t, []float32{0, 1}, vb)
	assert.Equal(t, 2, m.CacheLen())
}

func TestManager_EncodeBatch_NotCached(t *testing.T) {
	fake := embedtest.New("labse", 2, nil)
	m := newManager(t, DefaultOptions(), fake)

	_, err := m.EncodeBatch(context.Background(), "labse", []string{"a", "b"})
	require.NoError(t, err)
	_, err = m.Encode(context.Background(), "labse", "a")
	require.NoError(t, err)

	assert.Equal(t, int64(1), fake.EncodeCalls.Load())
	assert.Equal(t, 1, m.CacheLen())
}

func TestManager_Encode_CacheDisabled(t *testing.T) {
	fake := embedtest.New("labse", 2, nil)
	opts := DefaultOptions()
	opts.CacheEnabled = false
	m := newManager(t, opts, fake)

	for range 3 {
		_, err := m.Encode(context.Background(), "labse", "a")
		require.NoError(t, err)
	}

	assert.Equal(t, int64(3), fake.EncodeCalls.Load())
	assert.Equal(t, 0, m.CacheLen())
}

func TestManager_Encode_EvictsLeastRecentlyUsed(t *testing.T) {
	fake := embedtest.New("labse", 2, nil)
	opts := DefaultOptions()
	opts.CacheSize = 2
	m := newManager(t, opts, fake)
	ctx := context.Background()

	for _, q := range []string{"a", "b", "a", "c"} {
		_, err := m.Encode(ctx, "labse", q)
		require.NoError(t, err)
	}
	// "b" was least recently used when "c" arrived.
	_, err := m.Encode(ctx, "labse", "b")
	require.NoError(t, err)

	assert.Equal(t, int64(4), fake.EncodeCalls.Load())
	assert.Equal(t, 2, m.CacheLen())
}

func TestManager_Encode_ErrorsAreNotCached(t *testing.T) {
	fake := embedtest.New("labse", 2, nil)
	fake.EncodeErr = embedtest.ErrInjected
	m := newManager(t, DefaultOptions(), fake)

	_, err := m.Encode(context.Background(), "labse", "a")

	assert.ErrorIs(t, err, embedtest.ErrInjected)
	assert.Equal(t, 0, m.CacheLen())
}

// ============================================================================
// Device and status
// ============================================================================

func TestManager_PinDevice_OnlyBeforeLoad(t *testing.T) {
	loaded := embedtest.New("phobert", 2, nil)
	pending := embedtest.New("labse", 2, nil)
	m := newManager(t, DefaultOptions(), loaded, pending)
	require.NoError(t, m.EnsureLoaded(context.Background(), "phobert"))

	m.PinDevice(embed.DeviceCPU)

	assert.Equal(t, embed.Device(""), loaded.Device())
	assert.Equal(t, embed.DeviceCPU, pending.Device())
}

func TestManager_Status_ReportsInOrder(t *testing.T) {
	ok := embedtest.New("phobert", 3, nil)
	bad := embedtest.New("labse", 2, nil)
	bad.LoadErr = errors.New("no server")
	m := newManager(t, DefaultOptions(), ok, bad)
	require.NoError(t, m.EnsureLoaded(context.Background(), "phobert"))
	require.Error(t, m.EnsureLoaded(context.Background(), "labse"))

	status := m.Status()

	require.Len(t, status, 2)
	assert.Equal(t, "phobert", status[0].ID)
	assert.Equal(t, StateLoaded, status[0].State)
	assert.Equal(t, 3, status[0].Dimensions)
	assert.Equal(t, StateFailed, status[1].State)
	assert.Contains(t, status[1].Error, "ERR_302_MODEL_LOAD")
	assert.Equal(t, []string{"phobert", "labse"}, m.IDs())
}
