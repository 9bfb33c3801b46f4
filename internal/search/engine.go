package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hanviet/hvsearch/internal/corpus"
	"github.com/hanviet/hvsearch/internal/embed"
	hverrors "github.com/hanviet/hvsearch/internal/errors"
	"github.com/hanviet/hvsearch/internal/lexical"
	"github.com/hanviet/hvsearch/internal/models"
	"github.com/hanviet/hvsearch/internal/textnorm"
	"github.com/hanviet/hvsearch/internal/vector"
)

// Engine answers queries with every provider that has a matrix in the index
// and a loadable model, and falls back to lexical matching when none of them
// produces a hit.
type Engine struct {
	models     *models.Manager
	normalizer *textnorm.Normalizer
	config     EngineConfig
	logger     *slog.Logger

	loader  IndexLoader
	locator string

	state atomic.Pointer[indexState]

	// loadMu serializes lazy index loads.
	loadMu  sync.Mutex
	loadErr error
}

// indexState is everything derived from one loaded index. It is read-only
// once published.
type indexState struct {
	index      *corpus.Index
	normalizer *textnorm.Normalizer
	lexical    *lexical.Matcher
	searchers  []providerSearcher
}

type providerSearcher struct {
	id       string
	searcher vector.Searcher
}

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// EngineOption configures the search engine.
type EngineOption func(*Engine)

// WithIndex serves an already loaded index.
func WithIndex(ix *corpus.Index) EngineOption {
	return func(e *Engine) {
		if ix != nil {
			e.loader = staticLoader{ix: ix}
		}
	}
}

// WithLoader loads the index at locator on first use. A failed load is
// retried on the next query unless the blob itself was invalid.
func WithLoader(loader IndexLoader, locator string) EngineOption {
	return func(e *Engine) {
		e.loader = loader
		e.locator = locator
	}
}

// WithNormalizer replaces the default query normalizer. It should match
// the one used when the index was built.
func WithNormalizer(n *textnorm.Normalizer) EngineOption {
	return func(e *Engine) {
		if n != nil {
			e.normalizer = n
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

type staticLoader struct{ ix *corpus.Index }

func (s staticLoader) Load(context.Context, string) (*corpus.Index, error) { return s.ix, nil }

// NewEngine creates a search engine over the providers in mgr.
func NewEngine(mgr *models.Manager, config EngineConfig, opts ...EngineOption) (*Engine, error) {
	if mgr == nil {
		return nil, fmt.Errorf("%w: model manager is required", ErrNilDependency)
	}
	def := DefaultConfig()
	if config.DefaultTopK <= 0 {
		config.DefaultTopK = def.DefaultTopK
	}
	if config.MaxTopK <= 0 {
		config.MaxTopK = def.MaxTopK
	}
	if config.MaxTopK < config.DefaultTopK {
		config.MaxTopK = config.DefaultTopK
	}

	e := &Engine{
		models:     mgr,
		normalizer: textnorm.Default(),
		config:     config,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	// A static index is published right away so IsReady holds from the start.
	if s, ok := e.loader.(staticLoader); ok {
		st, err := e.prepare(s.ix)
		if err != nil {
			return nil, err
		}
		e.state.Store(st)
	}
	return e, nil
}

// IsReady reports whether the corpus index is loaded. Missing matrices or
// unloaded models do not affect readiness; the lexical matcher alone can
// answer.
func (e *Engine) IsReady() bool {
	return e.state.Load() != nil
}

// Index returns the loaded index, or nil before the first successful load.
func (e *Engine) Index() *corpus.Index {
	if st := e.state.Load(); st != nil {
		return st.index
	}
	return nil
}

// Search returns at most topK results ordered by descending score. An empty
// result means no match. topK <= 0 uses the configured default; values above
// the configured maximum are capped.
func (e *Engine) Search(ctx context.Context, query string, topK int) ([]Result, error) {
	start := time.Now()
	topK = e.clampTopK(topK)

	if e.normalizer.Normalize(query) == "" {
		return nil, hverrors.InvalidInputError("query must not be blank")
	}

	st, err := e.ensureIndex(ctx)
	if err != nil {
		return nil, err
	}
	normalized := st.normalizer.Normalize(query)
	if normalized == "" {
		return nil, hverrors.InvalidInputError("query must not be blank")
	}

	var hits []taggedHit
	if len(st.searchers) > 0 && st.index.RecordCount() > 0 {
		hits, err = e.semantic(ctx, st, normalized, topK)
		if err != nil {
			return nil, err
		}
	}

	model := "ensemble"
	if len(hits) == 0 {
		if e.config.DisableFallback {
			model = "none"
		} else {
			model = lexical.ModelID
			hits = tag(st.lexical.Match(query, topK), lexical.ModelID)
		}
	}

	results := make([]Result, len(hits))
	for i, h := range hits {
		rec := st.index.Record(h.Index)
		results[i] = Result{
			Score:       h.Score,
			Model:       h.Model,
			HanOriginal: rec.Source,
			Translation: rec.Translation,
			BestMatch:   rec.Reference,
		}
	}

	e.logger.Debug("search_completed",
		slog.String("query", normalized),
		slog.Int("top_k", topK),
		slog.String("path", model),
		slog.Int("results", len(results)),
		slog.Duration("elapsed", time.Since(start)))
	return results, nil
}

// semantic runs every provider in configuration order and merges their
// hits. A provider that fails to load or encode is skipped. A load that is
// still pending past the timeout fails the whole query.
func (e *Engine) semantic(ctx context.Context, st *indexState, text string, topK int) ([]taggedHit, error) {
	lists := make([][]taggedHit, 0, len(st.searchers))
	for _, ps := range st.searchers {
		vec, err := e.models.Encode(ctx, ps.id, text)
		if err != nil {
			if errors.Is(err, hverrors.ErrModelLoadTimeout) || ctx.Err() != nil {
				return nil, err
			}
			// Load failures are logged once by the manager.
			if !errors.Is(err, hverrors.ErrModelLoad) {
				e.logger.Warn("provider_skipped",
					slog.String("provider", ps.id),
					slog.String("stage", "encode"),
					slog.String("error", err.Error()))
			}
			continue
		}

		found, err := ps.searcher.Search(vec, topK)
		if err != nil {
			e.logger.Warn("provider_skipped",
				slog.String("provider", ps.id),
				slog.String("stage", "search"),
				slog.String("error", err.Error()))
			continue
		}
		lists = append(lists, tag(found, ps.id))
	}
	return mergeHits(lists, topK), nil
}

func (e *Engine) clampTopK(k int) int {
	if k <= 0 {
		return e.config.DefaultTopK
	}
	return min(k, e.config.MaxTopK)
}

// ensureIndex returns the loaded index state, loading it on first use.
func (e *Engine) ensureIndex(ctx context.Context) (*indexState, error) {
	if st := e.state.Load(); st != nil {
		return st, nil
	}
	if e.loader == nil {
		return nil, hverrors.NotReadyError(errors.New("no index configured"))
	}

	e.loadMu.Lock()
	defer e.loadMu.Unlock()
	if st := e.state.Load(); st != nil {
		return st, nil
	}
	if errors.Is(e.loadErr, hverrors.ErrInvalidIndex) {
		return nil, hverrors.NotReadyError(e.loadErr)
	}

	ix, err := e.loader.Load(ctx, e.locator)
	if err != nil {
		e.loadErr = err
		e.logger.Error("index_load_failed",
			slog.String("locator", e.locator),
			slog.Bool("retryable", !errors.Is(err, hverrors.ErrInvalidIndex)),
			slog.String("error", err.Error()))
		return nil, hverrors.NotReadyError(err)
	}

	st, err := e.prepare(ix)
	if err != nil {
		e.loadErr = err
		return nil, hverrors.NotReadyError(err)
	}
	e.loadErr = nil
	e.state.Store(st)
	return st, nil
}

// prepare builds the lexical matcher and one searcher per configured
// provider with a matrix, and pins the index's build device and
// normalization.
func (e *Engine) prepare(ix *corpus.Index) (*indexState, error) {
	records := ix.Records()
	sources := make([]string, len(records))
	for i, r := range records {
		sources[i] = r.Source
	}
	st := &indexState{
		index:      ix,
		normalizer: e.indexNormalizer(ix.Meta().Normalization),
		lexical:    lexical.New(sources),
	}

	configured := make(map[string]bool)
	for _, id := range e.models.IDs() {
		configured[id] = true
		m, ok := ix.Matrix(id)
		if !ok || len(m) == 0 {
			e.logger.Info("provider_without_matrix", slog.String("provider", id))
			continue
		}
		s, err := vector.NewSearcher(m, e.config.Vector)
		if err != nil {
			return nil, hverrors.InvalidIndexError("build searcher for "+id, err)
		}
		st.searchers = append(st.searchers, providerSearcher{id: id, searcher: s})
	}
	for _, id := range ix.Providers() {
		if !configured[id] {
			e.logger.Warn("matrix_without_provider", slog.String("provider", id))
		}
	}

	e.pinDevice(ix.Meta().Device)

	e.logger.Info("index_ready",
		slog.Int("records", ix.RecordCount()),
		slog.Int("searchers", len(st.searchers)),
		slog.String("strategy", string(e.config.Vector.Strategy)))
	return st, nil
}

// indexNormalizer returns the normalizer queries must go through to match
// sources normalized with recorded. Recorded settings win over the
// configured ones.
func (e *Engine) indexNormalizer(recorded *textnorm.Options) *textnorm.Normalizer {
	if recorded == nil {
		return e.normalizer
	}
	configured := e.normalizer.Options()
	if recorded.Equal(configured) {
		return e.normalizer
	}
	n := textnorm.New(*recorded)
	e.logger.Warn("normalizer_overridden_by_index",
		slog.Bool("configured_case_fold", configured.CaseFold),
		slog.Bool("index_case_fold", recorded.CaseFold),
		slog.Any("configured_stopwords", configured.Stopwords),
		slog.Any("index_stopwords", n.Options().Stopwords))
	return n
}

func (e *Engine) pinDevice(raw string) {
	if raw == "" {
		return
	}
	d, err := embed.ParseDevice(raw)
	if err != nil || d == embed.DeviceAuto {
		return
	}
	if want := e.config.Device; want != "" && want != embed.DeviceAuto && want != d {
		e.logger.Warn("device_overridden_by_index",
			slog.String("configured", string(want)),
			slog.String("index", string(d)))
	}
	e.models.PinDevice(d)
}

// Warmup loads the index and every provider that has a matrix. Provider
// failures are logged and do not fail the warmup.
func (e *Engine) Warmup(ctx context.Context) error {
	st, err := e.ensureIndex(ctx)
	if err != nil {
		return err
	}
	for _, ps := range st.searchers {
		if err := e.models.EnsureLoaded(ctx, ps.id); err != nil && !errors.Is(err, hverrors.ErrModelLoad) {
			e.logger.Warn("provider_warmup_failed",
				slog.String("provider", ps.id),
				slog.String("error", err.Error()))
		}
	}
	return nil
}

// Status returns a snapshot of the engine.
func (e *Engine) Status() Status {
	s := Status{
		Locator:   e.locator,
		Fallback:  !e.config.DisableFallback,
		Providers: e.models.Status(),
		Matrices:  []string{},
	}
	if st := e.state.Load(); st != nil {
		s.Ready = true
		s.Records = st.index.RecordCount()
		s.Device = st.index.Meta().Device
		for _, ps := range st.searchers {
			s.Matrices = append(s.Matrices, ps.id)
		}
		return s
	}
	// A load in progress holds the lock; report it without waiting.
	if e.loadMu.TryLock() {
		if e.loadErr != nil {
			s.LoadError = e.loadErr.Error()
		}
		e.loadMu.Unlock()
	}
	return s
}
