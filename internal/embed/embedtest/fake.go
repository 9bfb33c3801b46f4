// Package embedtest provides an in-memory embed.Provider for tests.
package embedtest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hanviet/hvsearch/internal/embed"
	hverrors "github.com/hanviet/hvsearch/internal/errors"
)

// ErrInjected is returned by a Fake configured to fail.
var ErrInjected = errors.New("injected failure")

// Fake maps known texts to fixed vectors. Unknown texts encode to Default,
// or to a zero vector when Default is nil.
type Fake struct {
	id      string
	dims    int
	vectors map[string][]float32

	// Default is returned for texts missing from the vector table.
	Default []float32

	// LoadDelay makes Load block, for concurrency tests.
	LoadDelay time.Duration

	LoadErr   error
	EncodeErr error

	LoadCalls   atomic.Int64
	EncodeCalls atomic.Int64
	BatchCalls  atomic.Int64

	mu     sync.Mutex
	loaded bool
	device embed.Device
}

var _ embed.Provider = (*Fake)(nil)

// New creates a Fake with the given vector table. All vectors must share a width.
func New(id string, dims int, vectors map[string][]float32) *Fake {
	if vectors == nil {
		vectors = map[string][]float32{}
	}
	return &Fake{id: id, dims: dims, vectors: vectors}
}

func (f *Fake) ID() string { return f.id }

func (f *Fake) Kind() embed.Kind { return embed.KindSentence }

func (f *Fake) Load(ctx context.Context) error {
	f.LoadCalls.Add(1)
	if f.LoadDelay > 0 {
		select {
		case <-time.After(f.LoadDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.LoadErr != nil {
		return f.LoadErr
	}
	f.mu.Lock()
	f.loaded = true
	f.mu.Unlock()
	return nil
}

func (f *Fake) Loaded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loaded
}

func (f *Fake) Encode(ctx context.Context, text string) ([]float32, error) {
	f.EncodeCalls.Add(1)
	if !f.Loaded() {
		return nil, hverrors.EncodingError(f.id, "encode called on unloaded provider", nil)
	}
	if f.EncodeErr != nil {
		return nil, f.EncodeErr
	}
	return f.lookup(text), nil
}

func (f *Fake) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.BatchCalls.Add(1)
	if !f.Loaded() {
		return nil, hverrors.EncodingError(f.id, "encode called on unloaded provider", nil)
	}
	if f.EncodeErr != nil {
		return nil, f.EncodeErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.lookup(t)
	}
	return out, nil
}

func (f *Fake) lookup(text string) []float32 {
	if v, ok := f.vectors[text]; ok {
		return v
	}
	if f.Default != nil {
		return f.Default
	}
	return make([]float32, f.dims)
}

func (f *Fake) Dimensions() int { return f.dims }

func (f *Fake) ModelName() string { return "fake-" + f.id }

func (f *Fake) SetDevice(d embed.Device) {
	f.mu.Lock()
	f.device = d
	f.mu.Unlock()
}

// Device returns the last device pinned with SetDevice.
func (f *Fake) Device() embed.Device {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.device
}

func (f *Fake) Close() error { return nil }
