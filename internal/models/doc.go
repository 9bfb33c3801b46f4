// Package models owns embedding provider lifecycles for a serving process.
//
// Each provider moves one way, Unloaded to Loaded, on first use. Concurrent
// callers share a single load through a singleflight group. A failed load is
// remembered for the life of the Manager: the provider stays excluded and is
// never retried. Callers wait at most the configured load timeout.
//
// Single-text encodings are kept in a bounded LRU cache keyed by provider
// and normalized text. Batch encodings bypass the cache.
package models
