package corpus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hanviet/hvsearch/internal/embed"
	hverrors "github.com/hanviet/hvsearch/internal/errors"
	"github.com/hanviet/hvsearch/internal/models"
	"github.com/hanviet/hvsearch/internal/textnorm"
)

// BuildOptions configures Build.
type BuildOptions struct {
	// BatchSize is the number of records encoded per manager call.
	BatchSize int

	// Normalizer canonicalizes sources. Its settings are recorded in the
	// index so queries are normalized the same way.
	Normalizer *textnorm.Normalizer

	// Device is the resolved device recorded in the index.
	Device embed.Device

	// Progress is called after each batch with (provider, done, total).
	Progress func(provider string, done, total int)

	Logger *slog.Logger
}

// Build normalizes record sources and encodes them with every provider the
// manager knows. Providers are encoded concurrently. A provider that cannot
// load is left without a matrix; any other encode failure aborts the build.
func Build(ctx context.Context, records []Record, mgr *models.Manager, opts BuildOptions) (*Index, error) {
	if len(records) == 0 {
		return nil, hverrors.New(hverrors.ErrCodeCorpusInvalid, "corpus has no records", nil)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = embed.DefaultBatchSize
	}
	if opts.Normalizer == nil {
		opts.Normalizer = textnorm.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sources := make([]string, len(records))
	for i, r := range records {
		sources[i] = opts.Normalizer.Normalize(r.Source)
	}

	ix := New(records)
	var mu sync.Mutex
	modelNames := make(map[string]string)

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range mgr.IDs() {
		g.Go(func() error {
			start := time.Now()
			matrix, err := encodeAll(gctx, mgr, id, sources, opts)
			if errors.Is(err, hverrors.ErrModelLoad) {
				logger.Warn("provider_skipped_at_build",
					slog.String("provider", id),
					slog.String("error", err.Error()))
				return nil
			}
			if err != nil {
				return fmt.Errorf("encode corpus with %s: %w", id, err)
			}

			p, _ := mgr.Provider(id)
			mu.Lock()
			defer mu.Unlock()
			if err := ix.SetMatrix(id, matrix); err != nil {
				return hverrors.New(hverrors.ErrCodeDimensionMismatch, err.Error(), nil)
			}
			modelNames[id] = p.ModelName()
			logger.Info("provider_matrix_built",
				slog.String("provider", id),
				slog.Int("rows", len(matrix)),
				slog.Int("dimensions", matrix.Dimensions()),
				slog.Duration("elapsed", time.Since(start)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Matrices were added in completion order; restore configuration order.
	ordered := New(records)
	for _, id := range mgr.IDs() {
		if m, ok := ix.Matrix(id); ok {
			if err := ordered.SetMatrix(id, m); err != nil {
				return nil, hverrors.New(hverrors.ErrCodeDimensionMismatch, err.Error(), err)
			}
		}
	}
	normalization := opts.Normalizer.Options()
	ordered.SetMeta(Meta{
		Device:        string(opts.Device),
		Models:        modelNames,
		Normalization: &normalization,
		CreatedAt:     time.Now().UTC(),
	})
	return ordered, nil
}

func encodeAll(ctx context.Context, mgr *models.Manager, id string, sources []string, opts BuildOptions) (Matrix, error) {
	matrix := make(Matrix, 0, len(sources))
	for start := 0; start < len(sources); start += opts.BatchSize {
		end := min(start+opts.BatchSize, len(sources))
		vecs, err := mgr.EncodeBatch(ctx, id, sources[start:end])
		if err != nil {
			return nil, err
		}
		if len(vecs) != end-start {
			return nil, hverrors.EncodingError(id,
				fmt.Sprintf("got %d vectors for %d texts", len(vecs), end-start), nil)
		}
		matrix = append(matrix, vecs...)
		if opts.Progress != nil {
			opts.Progress(id, end, len(sources))
		}
	}
	return matrix, nil
}
