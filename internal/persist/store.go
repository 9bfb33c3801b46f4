package persist

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hanviet/hvsearch/internal/corpus"
	hverrors "github.com/hanviet/hvsearch/internal/errors"
)

// Options configures a Store.
type Options struct {
	// CacheDir keeps local copies of remote blobs. Empty disables caching.
	CacheDir string

	// FetchTimeout bounds an HTTP download.
	FetchTimeout time.Duration

	S3 S3Config

	Logger *slog.Logger
}

// Store loads and saves indexes by locator. It routes each locator to the
// fetcher for its scheme.
type Store struct {
	file   Fetcher
	http   Fetcher
	s3     *S3Store
	remote func(Fetcher) Fetcher
	logger *slog.Logger
}

// NewStore creates a Store.
func NewStore(opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		file:   FileFetcher{},
		http:   NewHTTPFetcher(opts.FetchTimeout),
		s3:     NewS3Store(opts.S3),
		remote: func(f Fetcher) Fetcher { return f },
		logger: logger,
	}
	if opts.CacheDir != "" {
		s.remote = func(f Fetcher) Fetcher { return NewCachingFetcher(f, opts.CacheDir, logger) }
	}
	return s
}

func (s *Store) fetcher(loc Locator) Fetcher {
	switch loc.Scheme {
	case SchemeHTTP, SchemeHTTPS:
		return s.remote(s.http)
	case SchemeS3:
		return s.remote(s.s3)
	default:
		return s.file
	}
}

// Load fetches and decodes the index at locator. Fetch failures are
// returned as-is; the caller never gets an empty index in their place.
func (s *Store) Load(ctx context.Context, locator string) (*corpus.Index, error) {
	loc, err := ParseLocator(locator)
	if err != nil {
		return nil, hverrors.ConfigError("invalid index locator", err)
	}

	start := time.Now()
	f := s.fetcher(loc)
	data, err := f.Fetch(ctx, loc)
	if err != nil {
		return nil, err
	}

	ix, err := Unmarshal(data, s.logger)
	if err != nil {
		// A cached blob that does not decode would fail every later load.
		if c, ok := f.(*CachingFetcher); ok {
			if evictErr := c.Evict(loc); evictErr != nil {
				s.logger.Warn("index_cache_evict_failed", slog.String("error", evictErr.Error()))
			}
		}
		return nil, err
	}

	s.logger.Info("index_loaded",
		slog.String("locator", loc.Raw),
		slog.Bool("remote", loc.Remote()),
		slog.Int("records", ix.RecordCount()),
		slog.Any("providers", ix.Providers()),
		slog.Int("bytes", len(data)),
		slog.Duration("elapsed", time.Since(start)))
	return ix, nil
}

// Save writes ix to a local path or an S3 object.
func (s *Store) Save(ctx context.Context, ix *corpus.Index, locator string) error {
	loc, err := ParseLocator(locator)
	if err != nil {
		return hverrors.ConfigError("invalid index locator", err)
	}

	data, err := Marshal(ix)
	if err != nil {
		return err
	}

	switch loc.Scheme {
	case SchemeFile:
		if err := writeFileAtomic(loc.Path, data); err != nil {
			return hverrors.New(hverrors.ErrCodeIndexWrite, "write index "+loc.Path, err)
		}
	case SchemeS3:
		if err := s.s3.Put(ctx, loc, data); err != nil {
			return err
		}
	default:
		return hverrors.ConfigError(fmt.Sprintf("cannot save an index to %s locators", loc.Scheme), nil)
	}

	s.logger.Info("index_saved",
		slog.String("locator", loc.Raw),
		slog.Int("records", ix.RecordCount()),
		slog.Int("bytes", len(data)))
	return nil
}
