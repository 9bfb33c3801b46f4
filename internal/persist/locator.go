package persist

import (
	"fmt"
	"net/url"
	"strings"
)

// Scheme is the kind of index source.
type Scheme string

const (
	SchemeFile  Scheme = "file"
	SchemeHTTP  Scheme = "http"
	SchemeHTTPS Scheme = "https"
	SchemeS3    Scheme = "s3"
)

// Locator is a parsed index source.
type Locator struct {
	Raw    string
	Scheme Scheme

	// Path is set for file locators.
	Path string

	// Bucket and Key are set for s3 locators.
	Bucket string
	Key    string
}

// Remote reports whether fetching the locator needs the network.
func (l Locator) Remote() bool {
	return l.Scheme != SchemeFile
}

func (l Locator) String() string {
	return l.Raw
}

// ParseLocator classifies s as a local path, an http(s) URL or an
// s3://bucket/key object. Anything without a known scheme is a local path.
func ParseLocator(s string) (Locator, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Locator{}, fmt.Errorf("empty index locator")
	}

	scheme, rest, found := strings.Cut(s, "://")
	if !found {
		return Locator{Raw: s, Scheme: SchemeFile, Path: s}, nil
	}

	switch Scheme(strings.ToLower(scheme)) {
	case SchemeFile:
		return Locator{Raw: s, Scheme: SchemeFile, Path: rest}, nil
	case SchemeHTTP, SchemeHTTPS:
		u, err := url.Parse(s)
		if err != nil || u.Host == "" {
			return Locator{}, fmt.Errorf("invalid index URL %q", s)
		}
		return Locator{Raw: s, Scheme: Scheme(strings.ToLower(scheme))}, nil
	case SchemeS3:
		bucket, key, ok := strings.Cut(rest, "/")
		if !ok || bucket == "" || key == "" {
			return Locator{}, fmt.Errorf("invalid s3 locator %q, want s3://bucket/key", s)
		}
		return Locator{Raw: s, Scheme: SchemeS3, Bucket: bucket, Key: key}, nil
	default:
		return Locator{}, fmt.Errorf("unsupported index locator scheme %q", scheme)
	}
}
