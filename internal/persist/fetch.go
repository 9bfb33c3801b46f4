package persist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"time"

	hverrors "github.com/hanviet/hvsearch/internal/errors"
)

// DefaultFetchTimeout bounds a remote index download.
const DefaultFetchTimeout = 5 * time.Minute

// DefaultMaxIndexBytes caps a remote index download.
const DefaultMaxIndexBytes int64 = 2 << 30

// Fetcher returns the raw bytes of an index blob.
type Fetcher interface {
	Fetch(ctx context.Context, loc Locator) ([]byte, error)
}

// FileFetcher reads local index files.
type FileFetcher struct{}

func (FileFetcher) Fetch(_ context.Context, loc Locator) ([]byte, error) {
	data, err := os.ReadFile(loc.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, hverrors.IndexNotFoundError(loc.Path, err)
	}
	if err != nil {
		return nil, hverrors.InternalError("read index file "+loc.Path, err)
	}
	return data, nil
}

// HTTPFetcher downloads index blobs over HTTP(S). Responses that are not
// 200 OK, or whose content type is HTML, are rejected: a file host that
// answers with a login or error page must not be mistaken for an index.
type HTTPFetcher struct {
	Client  *http.Client
	Timeout time.Duration

	// MaxBytes rejects larger bodies. Zero uses DefaultMaxIndexBytes.
	MaxBytes int64
}

// NewHTTPFetcher creates an HTTPFetcher with its own client.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &HTTPFetcher{Client: &http.Client{}, Timeout: timeout}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, loc Locator) ([]byte, error) {
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, loc.Raw, nil)
	if err != nil {
		return nil, hverrors.RemoteFetchError(loc.Raw, "create request", err)
	}
	req.Header.Set("Accept", "application/octet-stream")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, hverrors.RemoteFetchError(loc.Raw, "download index", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, hverrors.RemoteFetchError(loc.Raw,
			fmt.Sprintf("download index: unexpected status %d", resp.StatusCode), nil).
			WithDetail("status", fmt.Sprint(resp.StatusCode))
	}
	if isHTML(resp.Header.Get("Content-Type")) {
		return nil, hverrors.RemoteFetchError(loc.Raw,
			"download index: server returned an HTML page instead of the index blob", nil).
			WithSuggestion("check that the URL points at the raw file, not a download page")
	}

	limit := f.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxIndexBytes
	}
	if resp.ContentLength > limit {
		return nil, tooLarge(loc, limit)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, hverrors.RemoteFetchError(loc.Raw, "read index body", err)
	}
	if int64(len(data)) > limit {
		return nil, tooLarge(loc, limit)
	}
	return data, nil
}

func tooLarge(loc Locator, limit int64) error {
	return hverrors.RemoteFetchError(loc.Raw,
		fmt.Sprintf("download index: body exceeds %d bytes", limit), nil).
		WithDetail("max_bytes", fmt.Sprint(limit))
}

func isHTML(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
