package embed

import (
	"fmt"
	"log/slog"
)

// Well-known provider identifiers. Engines iterate providers in
// configuration order, which defaults to ProviderPhoBERT then ProviderLaBSE.
const (
	ProviderPhoBERT = "phobert"
	ProviderLaBSE   = "labse"
)

// New creates a provider of the given kind.
func New(kind Kind, cfg Config, logger *slog.Logger) (Provider, error) {
	if cfg.ID == "" {
		return nil, fmt.Errorf("provider id is required")
	}
	switch kind {
	case KindSubword:
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("provider %s: endpoint is required", cfg.ID)
		}
		return NewSubwordProvider(cfg, logger), nil
	case KindSentence:
		return NewSentenceProvider(cfg, logger), nil
	default:
		return nil, fmt.Errorf("provider %s: unknown kind %q", cfg.ID, kind)
	}
}
