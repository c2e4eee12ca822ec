package prometheus

import (
	"github.com/marmos91/clusterfs/pkg/metrics"
	"github.com/marmos91/clusterfs/pkg/store/content/cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type cacheMetrics struct {
	lookups       *prometheus.CounterVec
	invalidations prometheus.Counter
}

// NewCacheMetrics creates the read cache collectors.
func NewCacheMetrics() cache.CacheMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	factory := promauto.With(metrics.GetRegistry())

	return &cacheMetrics{
		lookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clusterfs_cache_lookups_total",
				Help: "Content reads by cache result",
			},
			[]string{"result"},
		),
		invalidations: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "clusterfs_cache_invalidations_total",
				Help: "Cached blobs dropped by overwrite, delete or reset",
			},
		),
	}
}

func (m *cacheMetrics) RecordLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.lookups.WithLabelValues(result).Inc()
}

func (m *cacheMetrics) RecordInvalidation(count int) {
	m.invalidations.Add(float64(count))
}
