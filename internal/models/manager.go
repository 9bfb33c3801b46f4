package models

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/hanviet/hvsearch/internal/embed"
	hverrors "github.com/hanviet/hvsearch/internal/errors"
)

// DefaultCacheSize is the default number of cached query encodings.
// 768 dims * 4 bytes * 1000 entries is about 3MB per provider.
const DefaultCacheSize = 1000

// State is a provider's lifecycle state.
type State string

const (
	StateUnloaded State = "unloaded"
	StateLoaded   State = "loaded"
	StateFailed   State = "failed"
)

// Options configures a Manager.
type Options struct {
	// CacheEnabled turns on the query encoding cache.
	CacheEnabled bool

	// CacheSize is the LRU capacity shared by all providers.
	CacheSize int

	// LoadTimeout bounds how long a caller waits for a pending load.
	// Zero waits for as long as the caller's context allows.
	LoadTimeout time.Duration

	Logger *slog.Logger
}

// DefaultOptions returns caching on with the default size and a two minute
// load timeout.
func DefaultOptions() Options {
	return Options{
		CacheEnabled: true,
		CacheSize:    DefaultCacheSize,
		LoadTimeout:  2 * time.Minute,
	}
}

type cacheKey struct {
	provider string
	text     string
}

// Manager loads providers lazily and caches query encodings.
type Manager struct {
	providers map[string]embed.Provider
	order     []string

	group       singleflight.Group
	loadTimeout time.Duration
	cache       *lru.Cache[cacheKey, []float32]
	logger      *slog.Logger

	mu     sync.Mutex
	failed map[string]error
}

// NewManager creates a Manager over providers, kept in the given order.
func NewManager(providers []embed.Provider, opts Options) (*Manager, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		providers:   make(map[string]embed.Provider, len(providers)),
		loadTimeout: opts.LoadTimeout,
		logger:      logger,
		failed:      make(map[string]error),
	}
	for _, p := range providers {
		if _, dup := m.providers[p.ID()]; dup {
			return nil, fmt.Errorf("duplicate provider id %q", p.ID())
		}
		m.providers[p.ID()] = p
		m.order = append(m.order, p.ID())
	}

	if opts.CacheEnabled {
		size := opts.CacheSize
		if size <= 0 {
			size = DefaultCacheSize
		}
		cache, err := lru.New[cacheKey, []float32](size)
		if err != nil {
			return nil, fmt.Errorf("create encoding cache: %w", err)
		}
		m.cache = cache
	}
	return m, nil
}

// IDs returns provider identifiers in configuration order.
func (m *Manager) IDs() []string {
	return append([]string(nil), m.order...)
}

// Provider returns the provider registered under id.
func (m *Manager) Provider(id string) (embed.Provider, bool) {
	p, ok := m.providers[id]
	return p, ok
}

// PinDevice sets the device on every provider that is not loaded yet.
func (m *Manager) PinDevice(d embed.Device) {
	for _, id := range m.order {
		if ds, ok := m.providers[id].(embed.DeviceSetter); ok && !m.providers[id].Loaded() {
			ds.SetDevice(d)
		}
	}
}

// EnsureLoaded loads the provider on first call and is a no-op afterwards.
// Concurrent callers wait for the same load. A caller that waits longer than
// the load timeout gets ERR_303_MODEL_LOAD_TIMEOUT while the load carries on.
func (m *Manager) EnsureLoaded(ctx context.Context, id string) error {
	p, ok := m.providers[id]
	if !ok {
		return hverrors.InternalError("unknown provider "+id, nil)
	}
	if p.Loaded() {
		return nil
	}
	if err := m.failure(id); err != nil {
		return err
	}

	ch := m.group.DoChan(id, func() (any, error) {
		if p.Loaded() {
			return nil, nil
		}
		if err := m.failure(id); err != nil {
			return nil, err
		}
		return nil, m.load(context.WithoutCancel(ctx), p)
	})

	var timeout <-chan time.Time
	if m.loadTimeout > 0 {
		timer := time.NewTimer(m.loadTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case res := <-ch:
		return res.Err
	case <-timeout:
		m.logger.Warn("model_load_wait_timeout",
			slog.String("provider", id),
			slog.Duration("timeout", m.loadTimeout))
		return hverrors.ModelLoadTimeout(id, nil)
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return hverrors.ModelLoadTimeout(id, ctx.Err())
		}
		return ctx.Err()
	}
}

func (m *Manager) load(ctx context.Context, p embed.Provider) error {
	start := time.Now()
	m.logger.Info("model_load_started", slog.String("provider", p.ID()))

	if err := p.Load(ctx); err != nil {
		loadErr := hverrors.ModelLoadError(p.ID(), err)
		m.mu.Lock()
		m.failed[p.ID()] = loadErr
		m.mu.Unlock()
		// Only the singleflight leader gets here, so this is logged once.
		m.logger.Error("model_load_failed",
			slog.String("provider", p.ID()),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("error", err.Error()))
		return loadErr
	}

	m.logger.Info("model_loaded",
		slog.String("provider", p.ID()),
		slog.String("model", p.ModelName()),
		slog.Int("dimensions", p.Dimensions()),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

func (m *Manager) failure(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failed[id]
}

// Encode returns the vector for one normalized text, loading the provider
// first. Results are cached; callers must not modify the returned slice.
func (m *Manager) Encode(ctx context.Context, id, text string) ([]float32, error) {
	if err := m.EnsureLoaded(ctx, id); err != nil {
		return nil, err
	}

	key := cacheKey{provider: id, text: text}
	if m.cache != nil {
		if vec, ok := m.cache.Get(key); ok {
			return vec, nil
		}
	}

	vec, err := m.providers[id].Encode(ctx, text)
	if err != nil {
		return nil, err
	}
	if m.cache != nil {
		m.cache.Add(key, vec)
	}
	return vec, nil
}

// EncodeBatch returns vectors for several texts, loading the provider first.
// Batch results are not cached.
func (m *Manager) EncodeBatch(ctx context.Context, id string, texts []string) ([][]float32, error) {
	if err := m.EnsureLoaded(ctx, id); err != nil {
		return nil, err
	}
	return m.providers[id].EncodeBatch(ctx, texts)
}

// State reports a provider's lifecycle state.
func (m *Manager) State(id string) State {
	p, ok := m.providers[id]
	switch {
	case !ok:
		return StateUnloaded
	case p.Loaded():
		return StateLoaded
	case m.failure(id) != nil:
		return StateFailed
	default:
		return StateUnloaded
	}
}

// ProviderStatus is a point-in-time view of one provider.
type ProviderStatus struct {
	ID         string `json:"id"`
	State      State  `json:"state"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
	Error      string `json:"error,omitempty"`
}

// Status returns every provider's status in configuration order.
func (m *Manager) Status() []ProviderStatus {
	out := make([]ProviderStatus, 0, len(m.order))
	for _, id := range m.order {
		p := m.providers[id]
		st := ProviderStatus{
			ID:         id,
			State:      m.State(id),
			Model:      p.ModelName(),
			Dimensions: p.Dimensions(),
		}
		if err := m.failure(id); err != nil {
			st.Error = err.Error()
		}
		out = append(out, st)
	}
	return out
}

// CacheLen returns the number of cached encodings.
func (m *Manager) CacheLen() int {
	if m.cache == nil {
		return 0
	}
	return m.cache.Len()
}

// Close closes every provider.
func (m *Manager) Close() error {
	var errs []error
	for _, id := range m.order {
		if err := m.providers[id].Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}
