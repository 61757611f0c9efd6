// Package cache stores upstream responses between runs. Backends: a
// directory on disk, Redis, or nothing.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Cache is a byte-oriented key/value store with expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Hash returns the 16-character hex xxhash of data.
func Hash(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

// HTTPKey namespaces a cached HTTP response by URL.
func HTTPKey(url string) string {
	return "http:" + Hash([]byte(url))
}

// Responses adapts a Cache to the fetch layer with a fixed TTL.
type Responses struct {
	inner Cache
	ttl   time.Duration
}

// NewResponses wraps c so entries expire after ttl. A zero ttl never expires.
func NewResponses(c Cache, ttl time.Duration) *Responses {
	return &Responses{inner: c, ttl: ttl}
}

func (r *Responses) Get(ctx context.Context, url string) ([]byte, bool, error) {
	return r.inner.Get(ctx, HTTPKey(url))
}

func (r *Responses) Set(ctx context.Context, url string, data []byte) error {
	return r.inner.Set(ctx, HTTPKey(url), data, r.ttl)
}

// Close closes the underlying cache.
func (r *Responses) Close() error {
	return r.inner.Close()
}
