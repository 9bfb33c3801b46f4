package embed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	hverrors "github.com/hanviet/hvsearch/internal/errors"
)

// SentenceProvider encodes text with a multilingual sentence encoder served
// by Ollama. Vectors come from the model's own pooling and are scaled to
// unit length.
type SentenceProvider struct {
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
	_ Provider     = (*SentenceProvider)(nil)
	_ DeviceSetter = (*SentenceProvider)(nil)
)

// NewSentenceProvider creates an unloaded sentence provider.
func NewSentenceProvider(cfg Config, logger *slog.Logger) *SentenceProvider {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultOllamaHost
	}
	if cfg.Model == "" {
		cfg.Model = DefaultSentenceModel
	}
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &SentenceProvider{
		cfg:    cfg,
		http:   newHTTPClient(cfg.Endpoint, cfg.Timeout),
		logger: logger,
		device: cfg.Device,
	}
}

func (p *SentenceProvider) ID() string { return p.cfg.ID }

func (p *SentenceProvider) Kind() Kind { return KindSentence }

// SetDevice pins the device. It has no effect after Load.
func (p *SentenceProvider) SetDevice(d Device) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loaded {
		p.device = d
	}
}

// Load finds the configured model on the server and detects its dimensions.
func (p *SentenceProvider) Load(ctx context.Context) error {
	model, err := p.findModel(ctx)
	if err != nil {
		return err
	}

	device := ResolveDevice(p.Device())
	vecs, err := p.embed(ctx, model, device, []string{"dimension probe"})
	if err != nil {
		return fmt.Errorf("detect embedding dimensions: %w", err)
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return fmt.Errorf("empty embedding returned")
	}

	p.mu.Lock()
	p.loaded = true
	p.model = model
	p.dims = len(vecs[0])
	p.device = device
	p.mu.Unlock()

	p.logger.Info("sentence_model_loaded",
		slog.String("provider", p.cfg.ID),
		slog.String("model", model),
		slog.Int("dimensions", len(vecs[0])),
		slog.String("device", string(device)))
	return nil
}

// findModel matches the configured name against installed models, with or
// without a tag.
func (p *SentenceProvider) findModel(ctx context.Context) (string, error) {
	var list OllamaModelListResponse
	if err := p.http.getJSON(ctx, "/api/tags", &list); err != nil {
		return "", fmt.Errorf("list models: %w", err)
	}

	want := strings.ToLower(p.cfg.Model)
	wantBase := strings.Split(want, ":")[0]
	for _, m := range list.Models {
		name := strings.ToLower(m.Name)
		if name == want || strings.Split(name, ":")[0] == wantBase {
			return m.Name, nil
		}
	}
	return "", fmt.Errorf("model %q not installed on %s", p.cfg.Model, p.cfg.Endpoint)
}

func (p *SentenceProvider) Loaded() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loaded
}

// Encode generates the vector for one text.
func (p *SentenceProvider) Encode(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.EncodeBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EncodeBatch generates vectors in batches of Config.BatchSize.
func (p *SentenceProvider) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	p.mu.RLock()
	loaded, model, device := p.loaded, p.model, p.device
	p.mu.RUnlock()
	if !loaded {
		return nil, hverrors.EncodingError(p.cfg.ID, "encode called on unloaded provider "+p.cfg.ID, nil)
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	out := make([][]float32, 0, len(texts))
	for _, b := range batches(len(texts), p.cfg.BatchSize) {
		var vecs [][]float32
		err := withRetry(ctx, p.cfg.Retry, func(ctx context.Context) error {
			var err error
			vecs, err = p.embed(ctx, model, device, texts[b[0]:b[1]])
			return err
		})
		if err != nil {
			return nil, hverrors.EncodingError(p.cfg.ID, "sentence encode failed", err)
		}
		if len(vecs) != b[1]-b[0] {
			return nil, hverrors.EncodingError(p.cfg.ID,
				fmt.Sprintf("model server returned %d embeddings for %d inputs", len(vecs), b[1]-b[0]), nil)
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (p *SentenceProvider) embed(ctx context.Context, model string, device Device, texts []string) ([][]float32, error) {
	req := OllamaEmbedRequest{Model: model, Input: texts, Truncate: true}
	if device == DeviceCPU {
		req.Options = map[string]any{"num_gpu": 0}
	}

	var resp OllamaEmbedResponse
	if err := p.http.postJSON(ctx, "/api/embed", req, &resp); err != nil {
		return nil, err
	}

	vecs := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		v := make([]float32, len(emb))
		for j, x := range emb {
			v[j] = float32(x)
		}
		vecs[i] = normalizeVector(v)
	}
	return vecs, nil
}

func (p *SentenceProvider) Dimensions() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.dims
}

func (p *SentenceProvider) ModelName() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.model == "" {
		return p.cfg.Model
	}
	return p.model
}

// Device returns the device in effect.
func (p *SentenceProvider) Device() Device {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.device
}

func (p *SentenceProvider) Close() error {
	p.http.close()
	return nil
}
