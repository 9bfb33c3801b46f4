package embed

import (
	"context"
	"math"
	"time"
)

// Kind identifies an encoder family.
type Kind string

const (
	// KindSubword is a sub-word contextual encoder (PhoBERT style). Sentence
	// vectors are produced client-side by attention-masked mean pooling.
	KindSubword Kind = "subword"

	// KindSentence is a multilingual sentence encoder (LaBSE style) whose
	// server returns one pooled vector per text.
	KindSentence Kind = "sentence"
)

// Common embedding constants
const (
	// DefaultBatchSize is the number of texts sent per model server request.
	DefaultBatchSize = 32

	// MaxBatchSize caps the batch size.
	MaxBatchSize = 256

	// DefaultMaxLength is the token limit per text for sub-word encoders.
	DefaultMaxLength = 256

	// DefaultRequestTimeout bounds a single model server request.
	DefaultRequestTimeout = 60 * time.Second

	// DefaultMaxRetries is the number of retries for a failed encode request.
	DefaultMaxRetries = 2

	// PoolingEpsilon floors the mask sum so a fully masked row pools to zero.
	PoolingEpsilon = 1e-9
)

// Provider turns normalized text into fixed-length vectors. Encode and
// EncodeBatch return vectors from the same space, so a text encoded alone
// matches the same text encoded in a batch.
//
// Encode and EncodeBatch fail with an ERR_502_ENCODING error until Load has
// succeeded. Callers go through the model manager, which loads first.
type Provider interface {
	// ID is the stable provider identifier used as the index matrix key.
	ID() string

	// Kind reports the encoder family.
	Kind() Kind

	// Load connects to the model server and verifies the model. It is not
	// safe to call concurrently; the model manager serializes it.
	Load(ctx context.Context) error

	// Loaded reports whether Load has succeeded.
	Loaded() bool

	// Encode generates the vector for a single text.
	Encode(ctx context.Context, text string) ([]float32, error)

	// EncodeBatch generates vectors for several texts, preserving order.
	EncodeBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the vector width, or 0 before Load.
	Dimensions() int

	// ModelName returns the model identifier reported by the server.
	ModelName() string

	// Close releases idle connections.
	Close() error
}

// DeviceSetter is implemented by providers whose compute device can be
// pinned before Load, so query vectors come from the device the index was
// built on.
type DeviceSetter interface {
	SetDevice(d Device)
}

// normalizeVector scales v to unit length. Zero vectors are returned as-is.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
