package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer func() { _ = c.Close() }()

	require.NoError(t, c.Set(ctx, "key", []byte("value"), time.Hour))
	data, hit, err := c.Get(ctx, "key")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Nil(t, data)
	assert.NoError(t, c.Delete(ctx, "key"))
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c, err := NewFileCache(filepath.Join(dir, "nested"))
	require.NoError(t, err)

	_, hit, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.Set(ctx, "key", []byte("value"), time.Hour))
	data, hit, err := c.Get(ctx, "key")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []byte("value"), data)

	require.NoError(t, c.Delete(ctx, "key"))
	_, hit, _ = c.Get(ctx, "key")
	assert.False(t, hit)
	assert.NoError(t, c.Delete(ctx, "key"))
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, c.Set(ctx, "short", []byte("v"), time.Nanosecond))
	time.Sleep(5 * time.Millisecond)
	_, hit, err := c.Get(ctx, "short")
	require.NoError(t, err)
	assert.False(t, hit)
	_, statErr := os.Stat(c.path("short"))
	assert.True(t, os.IsNotExist(statErr), "expired entries are removed")

	require.NoError(t, c.Set(ctx, "forever", []byte("v"), 0))
	_, hit, _ = c.Get(ctx, "forever")
	assert.True(t, hit)
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	require.NoError(t, err)

	path := c.path("bad")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, hit, err := c.Get(ctx, "bad")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestHash(t *testing.T) {
	assert.Equal(t, Hash([]byte("hello")), Hash([]byte("hello")))
	assert.NotEqual(t, Hash([]byte("hello")), Hash([]byte("world")))
	assert.Len(t, Hash([]byte("hello")), 16)
	assert.Equal(t, "http:"+Hash([]byte("https://example.org")), HTTPKey("https://example.org"))
}

func TestResponses(t *testing.T) {
	ctx := context.Background()
	fc, err := NewFileCache(t.TempDir())
	require.NoError(t, err)
	r := NewResponses(fc, time.Hour)

	require.NoError(t, r.Set(ctx, "https://example.org/api", []byte("body")))
	data, hit, err := r.Get(ctx, "https://example.org/api")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []byte("body"), data)

	_, hit, _ = fc.Get(ctx, HTTPKey("https://example.org/api"))
	assert.True(t, hit, "entries are stored under HTTPKey")
	assert.NoError(t, r.Close())
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()

	_, err := NewRedisCache(ctx, "not-a-url://")
	assert.Error(t, err)

	url := os.Getenv("UPSTREAM_TEST_REDIS")
	if url == "" {
		t.Skip("UPSTREAM_TEST_REDIS not set")
	}
	c, err := NewRedisCache(ctx, url)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	require.NoError(t, c.Set(ctx, "test-key", []byte("value"), time.Minute))
	data, hit, err := c.Get(ctx, "test-key")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []byte("value"), data)
	require.NoError(t, c.Delete(ctx, "test-key"))
	_, hit, err = c.Get(ctx, "test-key")
	require.NoError(t, err)
	assert.False(t, hit)
}
