package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/hanviet/hvsearch/internal/config"
	"github.com/hanviet/hvsearch/internal/corpus"
	"github.com/hanviet/hvsearch/internal/embed"
	"github.com/hanviet/hvsearch/internal/models"
	"github.com/hanviet/hvsearch/internal/persist"
	"github.com/hanviet/hvsearch/internal/search"
	"github.com/hanviet/hvsearch/internal/textnorm"
	"github.com/hanviet/hvsearch/internal/vector"
)

// configuredDevice parses models.device. Validate has already rejected
// unknown names.
func configuredDevice(cfg *config.Config) embed.Device {
	d, err := embed.ParseDevice(cfg.Models.Device)
	if err != nil {
		return embed.DeviceAuto
	}
	return d
}

func newNormalizer(cfg *config.Config) *textnorm.Normalizer {
	return textnorm.New(textnorm.Options{
		CaseFold:  cfg.Normalize.CaseFoldOn(),
		Stopwords: cfg.Normalize.Stopwords,
	})
}

// newManager creates one provider per configured entry, in order.
func newManager(cfg *config.Config, logger *slog.Logger) (*models.Manager, error) {
	device := configuredDevice(cfg)
	providers := make([]embed.Provider, 0, len(cfg.Models.Providers))
	for _, pc := range cfg.Models.Providers {
		p, err := embed.New(embed.Kind(pc.Kind), embed.Config{
			ID:        pc.ID,
			Endpoint:  pc.Endpoint,
			Model:     pc.Model,
			MaxLength: pc.MaxLength,
			BatchSize: cfg.Models.BatchSize,
			Timeout:   cfg.Models.RequestTimeout,
			Device:    device,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("create provider %s: %w", pc.ID, err)
		}
		providers = append(providers, p)
	}
	return models.NewManager(providers, models.Options{
		CacheEnabled: cfg.Models.CacheOn(),
		CacheSize:    cfg.Models.CacheSize,
		LoadTimeout:  cfg.Models.LoadTimeout,
		Logger:       logger,
	})
}

func newStore(cfg *config.Config, logger *slog.Logger) *persist.Store {
	return persist.NewStore(persist.Options{
		CacheDir:     cfg.Index.CacheDir,
		FetchTimeout: cfg.Index.FetchTimeout,
		S3: persist.S3Config{
			Endpoint:  cfg.Index.S3.Endpoint,
			Region:    cfg.Index.S3.Region,
			AccessKey: cfg.Index.S3.AccessKey,
			SecretKey: cfg.Index.S3.SecretKey,
		},
		Logger: logger,
	})
}

func engineConfig(cfg *config.Config) search.EngineConfig {
	return search.EngineConfig{
		DefaultTopK: cfg.Search.TopK,
		MaxTopK:     cfg.Search.MaxTopK,
		Vector: vector.Config{
			Strategy: vector.Strategy(strings.ToLower(cfg.Search.Strategy)),
			HNSW: vector.HNSWConfig{
				M:        cfg.Search.HNSWM,
				EfSearch: cfg.Search.HNSWEfSearch,
			},
		},
		DisableFallback: !cfg.Search.FallbackEnabled(),
		Device:          configuredDevice(cfg),
	}
}

// newEngine wires an engine that loads cfg.Index.Source on first use.
func newEngine(cfg *config.Config, logger *slog.Logger) (*search.Engine, error) {
	mgr, err := newManager(cfg, logger)
	if err != nil {
		return nil, err
	}
	return search.NewEngine(mgr, engineConfig(cfg),
		search.WithLoader(newStore(cfg, logger), cfg.Index.Source),
		search.WithNormalizer(newNormalizer(cfg)),
		search.WithLogger(logger))
}

func buildColumns(cfg *config.Config) corpus.Columns {
	return corpus.Columns{
		Source:      cfg.Build.SourceColumn,
		Translation: cfg.Build.TranslationColumn,
		Reference:   cfg.Build.ReferenceColumn,
	}
}
