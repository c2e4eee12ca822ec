package cache

// CacheMetrics observes the read cache.
//
// This interface is optional - if not provided, a no-op implementation is
// used.
type CacheMetrics interface {
	// RecordLookup counts a ReadContent served from the cache (hit) or
	// from the backing store (miss).
	RecordLookup(hit bool)

	// RecordInvalidation counts blobs dropped because they were
	// overwritten, deleted or wiped.
	RecordInvalidation(count int)
}

type noopCacheMetrics struct{}

func (noopCacheMetrics) RecordLookup(bool)      {}
func (noopCacheMetrics) RecordInvalidation(int) {}
