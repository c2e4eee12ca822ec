// Package cache keeps recently used blobs in memory in front of a slower
// content store.
//
// The cache is write-through: every mutation reaches the backing store
// first and only then updates the cache, so the backend is always the
// source of truth. It pays off for remote backends such as S3, where a
// READ of a hot file would otherwise be a network round trip.
package cache

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/marmos91/clusterfs/pkg/store/content"
)

// DefaultMaxBytes bounds the cached payload when Config.MaxBytes is zero.
const DefaultMaxBytes = 64 << 20

// Config configures the read cache.
type Config struct {
	// MaxBytes is the total payload the cache may hold.
	MaxBytes int64

	// Metrics is an optional metrics collector
	Metrics CacheMetrics
}

// CachedStore wraps a content.ContentStore with a byte-bounded cache.
type CachedStore struct {
	backend content.ContentStore
	cache   *ristretto.Cache[string, []byte]
	metrics CacheMetrics
}

var _ content.ContentStore = (*CachedStore)(nil)

// New wraps backend.
func New(backend content.ContentStore, cfg Config) (*CachedStore, error) {
	if backend == nil {
		return nil, fmt.Errorf("cache: backend is required")
	}

	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		// ten counters per expected entry, assuming 4KiB blobs
		NumCounters:        max(maxBytes/4096*10, 1000),
		MaxCost:            maxBytes,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}

	m := cfg.Metrics
	if m == nil {
		m = noopCacheMetrics{}
	}

	return &CachedStore{backend: backend, cache: c, metrics: m}, nil
}

// put caches a private copy of data. Wait makes the entry visible to the
// next Get, which the disk relies on when a READ follows a STORE.
func (s *CachedStore) put(id content.ContentID, data []byte) {
	buf := make([]byte, len(data))
	copy(buf, data)
	if s.cache.Set(string(id), buf, max(int64(len(buf)), 1)) {
		s.cache.Wait()
	}
}

func (s *CachedStore) WriteContent(ctx context.Context, id content.ContentID, data []byte) error {
	if err := s.backend.WriteContent(ctx, id, data); err != nil {
		// The backend may hold a partial blob now
		s.invalidate(id)
		return err
	}
	s.put(id, data)
	return nil
}

func (s *CachedStore) ReadContent(ctx context.Context, id content.ContentID) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if data, ok := s.cache.Get(string(id)); ok {
		s.metrics.RecordLookup(true)
		buf := make([]byte, len(data))
		copy(buf, data)
		return buf, nil
	}
	s.metrics.RecordLookup(false)

	data, err := s.backend.ReadContent(ctx, id)
	if err != nil {
		return nil, err
	}
	s.put(id, data)
	return data, nil
}

func (s *CachedStore) DeleteContent(ctx context.Context, id content.ContentID) error {
	s.invalidate(id)
	return s.backend.DeleteContent(ctx, id)
}

func (s *CachedStore) ListContent(ctx context.Context) ([]content.ContentID, error) {
	return s.backend.ListContent(ctx)
}

func (s *CachedStore) Reset(ctx context.Context) error {
	s.cache.Clear()
	s.metrics.RecordInvalidation(1)
	return s.backend.Reset(ctx)
}

// Close releases the cache and closes the backend.
func (s *CachedStore) Close() error {
	s.cache.Close()
	return s.backend.Close()
}

func (s *CachedStore) invalidate(id content.ContentID) {
	s.cache.Del(string(id))
	s.metrics.RecordInvalidation(1)
}
