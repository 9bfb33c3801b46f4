package embed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	hverrors "github.com/hanviet/hvsearch/internal/errors"
)

// SubwordProvider encodes text with a sub-word contextual encoder served by a
// text-embeddings-inference compatible server. The server returns per-token
// hidden states; the provider pads them into a batch tensor and applies
// attention-masked mean pooling.
type SubwordProvider struct {
	cfg    Config
	http   *httpClient
	logger *slog.Logger

	mu     sync.RWMutex
	loaded bool
	model  string
	dims   int
	device Device
}

var (
	_ Provider     = (*SubwordProvider)(nil)
	_ DeviceSetter = (*SubwordProvider)(nil)
)

// NewSubwordProvider creates an unloaded sub-word provider.
func NewSubwordProvider(cfg Config, logger *slog.Logger) *SubwordProvider {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &SubwordProvider{
		cfg:    cfg,
		http:   newHTTPClient(cfg.Endpoint, cfg.Timeout),
		logger: logger,
		device: cfg.Device,
	}
}

func (p *SubwordProvider) ID() string { return p.cfg.ID }

func (p *SubwordProvider) Kind() Kind { return KindSubword }

// SetDevice pins the device. It has no effect after Load.
func (p *SubwordProvider) SetDevice(d Device) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loaded {
		p.device = d
	}
}

// Load checks the server's model and probes the hidden size.
func (p *SubwordProvider) Load(ctx context.Context) error {
	var info teiInfoResponse
	if err := p.http.getJSON(ctx, "/info", &info); err != nil {
		return fmt.Errorf("query model server info: %w", err)
	}
	if p.cfg.Model != "" && !strings.EqualFold(info.ModelID, p.cfg.Model) {
		return fmt.Errorf("model server serves %q, want %q", info.ModelID, p.cfg.Model)
	}

	states, err := p.embedAll(ctx, []string{"dimension probe"})
	if err != nil {
		return fmt.Errorf("probe hidden size: %w", err)
	}
	if len(states) == 0 || len(states[0]) == 0 || len(states[0][0]) == 0 {
		return fmt.Errorf("model server returned empty token states")
	}

	p.mu.Lock()
	p.loaded = true
	p.model = info.ModelID
	p.dims = len(states[0][0])
	p.device = ResolveDevice(p.device)
	p.mu.Unlock()

	p.logger.Info("subword_model_loaded",
		slog.String("provider", p.cfg.ID),
		slog.String("model", info.ModelID),
		slog.Int("dimensions", len(states[0][0])),
		slog.String("device", string(p.Device())))
	return nil
}

func (p *SubwordProvider) Loaded() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loaded
}

// Encode generates the pooled vector for one text.
func (p *SubwordProvider) Encode(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.EncodeBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EncodeBatch generates pooled vectors in batches of Config.BatchSize.
func (p *SubwordProvider) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if !p.Loaded() {
		return nil, hverrors.EncodingError(p.cfg.ID, "encode called on unloaded provider "+p.cfg.ID, nil)
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	dims := p.Dimensions()
	out := make([][]float32, 0, len(texts))
	for _, b := range batches(len(texts), p.cfg.BatchSize) {
		var ragged [][][]float32
		err := withRetry(ctx, p.cfg.Retry, func(ctx context.Context) error {
			var err error
			ragged, err = p.embedAll(ctx, texts[b[0]:b[1]])
			return err
		})
		if err != nil {
			return nil, hverrors.EncodingError(p.cfg.ID, "subword encode failed", err)
		}
		if len(ragged) != b[1]-b[0] {
			return nil, hverrors.EncodingError(p.cfg.ID,
				fmt.Sprintf("model server returned %d results for %d inputs", len(ragged), b[1]-b[0]), nil)
		}
		for _, row := range ragged {
			for _, tok := range row {
				if len(tok) != dims {
					return nil, hverrors.New(hverrors.ErrCodeDimensionMismatch,
						fmt.Sprintf("token state width %d, want %d", len(tok), dims), nil)
				}
			}
		}

		states, mask := PadBatch(ragged, p.cfg.MaxLength)
		out = append(out, MeanPool(states, mask)...)
	}
	return out, nil
}

func (p *SubwordProvider) embedAll(ctx context.Context, texts []string) (teiEmbedAllResponse, error) {
	var resp teiEmbedAllResponse
	err := p.http.postJSON(ctx, "/embed_all", teiEmbedAllRequest{Inputs: texts, Truncate: true}, &resp)
	return resp, err
}

func (p *SubwordProvider) Dimensions() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.dims
}

func (p *SubwordProvider) ModelName() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.model == "" {
		return p.cfg.Model
	}
	return p.model
}

// Device returns the device in effect.
func (p *SubwordProvider) Device() Device {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.device
}

func (p *SubwordProvider) Close() error {
	p.http.close()
	return nil
}
