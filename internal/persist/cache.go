package persist

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/renameio"
)

// lockRetryDelay is how often a blocked process re-checks the download lock.
const lockRetryDelay = 200 * time.Millisecond

// CachingFetcher keeps a local copy of remote index blobs in a directory.
// A cross-process file lock ensures only one process downloads a given
// locator at a time; the others wait and then read the cached copy.
type CachingFetcher struct {
	inner  Fetcher
	dir    string
	logger *slog.Logger
}

// NewCachingFetcher wraps inner with an on-disk cache under dir.
func NewCachingFetcher(inner Fetcher, dir string, logger *slog.Logger) *CachingFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachingFetcher{inner: inner, dir: dir, logger: logger}
}

// Path returns the cache file used for loc.
func (c *CachingFetcher) Path(loc Locator) string {
	sum := sha256.Sum256([]byte(loc.Raw))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:8])+".gob")
}

func (c *CachingFetcher) Fetch(ctx context.Context, loc Locator) ([]byte, error) {
	path := c.Path(loc)
	if data, err := os.ReadFile(path); err == nil {
		c.logger.Debug("index_cache_hit", slog.String("locator", loc.Raw), slog.String("path", path))
		return data, nil
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create index cache dir: %w", err)
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("acquire index cache lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("acquire index cache lock: %s is held", lock.Path())
	}
	defer func() { _ = lock.Unlock() }()

	// Another process may have finished the download while we waited.
	if data, err := os.ReadFile(path); err == nil {
		return data, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read cached index: %w", err)
	}

	data, err := c.inner.Fetch(ctx, loc)
	if err != nil {
		return nil, err
	}
	if err := writeFileAtomic(path, data); err != nil {
		c.logger.Warn("index_cache_write_failed", slog.String("path", path), slog.String("error", err.Error()))
	} else {
		c.logger.Info("index_cached", slog.String("locator", loc.Raw), slog.String("path", path), slog.Int("bytes", len(data)))
	}
	return data, nil
}

// Evict removes the cached copy of loc, if any.
func (c *CachingFetcher) Evict(loc Locator) error {
	path := c.Path(loc)
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("evict cached index: %w", err)
	}
	c.logger.Warn("index_cache_evicted", slog.String("locator", loc.Raw), slog.String("path", path))
	return nil
}

// writeFileAtomic replaces path with data so readers never observe a
// partially written index.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return renameio.WriteFile(path, data, 0o644)
}
