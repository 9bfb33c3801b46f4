// Package search answers free-text queries against a bilingual corpus by
// combining several embedding providers with a lexical fallback.
package search

import (
	"context"
	"math"

	"github.com/hanviet/hvsearch/internal/corpus"
	"github.com/hanviet/hvsearch/internal/embed"
	"github.com/hanviet/hvsearch/internal/models"
	"github.com/hanviet/hvsearch/internal/vector"
)

// Result is one answer record.
type Result struct {
	Score       float32 `json:"score"`
	Model       string  `json:"model"`
	HanOriginal string  `json:"han_original"`
	Translation string  `json:"translation"`
	BestMatch   string  `json:"best_match"`
}

// IndexLoader loads an index from a locator. persist.Store implements it.
type IndexLoader interface {
	Load(ctx context.Context, locator string) (*corpus.Index, error)
}

// EngineConfig configures the search engine.
type EngineConfig struct {
	// DefaultTopK is used when a caller passes top_k <= 0 (default: 1).
	DefaultTopK int

	// MaxTopK caps top_k (default: 50).
	MaxTopK int

	// Vector selects the per-provider nearest-neighbour search.
	Vector vector.Config

	// DisableFallback turns off the lexical matcher. Searches without a
	// semantic hit then return no results.
	DisableFallback bool

	// Device is the configured compute device. An index built on another
	// device overrides it.
	Device embed.Device
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() EngineConfig {
	return EngineConfig{
		DefaultTopK: 1,
		MaxTopK:     50,
		Vector:      vector.Config{Strategy: vector.StrategyExact, HNSW: vector.DefaultHNSWConfig()},
		Device:      embed.DeviceAuto,
	}
}

// Status describes the engine for health checks and tooling.
type Status struct {
	Ready     bool                    `json:"ready"`
	Locator   string                  `json:"locator,omitempty"`
	Records   int                     `json:"records"`
	Matrices  []string                `json:"matrices"`
	Device    string                  `json:"device,omitempty"`
	Fallback  bool                    `json:"lexical_fallback"`
	Providers []models.ProviderStatus `json:"providers"`
	LoadError string                  `json:"load_error,omitempty"`
}

// Rounded returns r with its score rounded to four decimals for display.
func (r Result) Rounded() Result {
	r.Score = float32(math.Round(float64(r.Score)*1e4) / 1e4)
	return r
}
