// Package prometheus provides Prometheus-backed implementations of the
// metrics hooks. Every constructor returns nil when the global registry has
// not been initialized; callers treat nil as "use the no-op implementation".
package prometheus

import (
	"github.com/marmos91/clusterfs/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type diskMetrics struct {
	freeBlocks      prometheus.Gauge
	files           prometheus.Gauge
	blocksPerFile   prometheus.Histogram
	clustersPerFile prometheus.Histogram
	bytesTotal      *prometheus.CounterVec
}

// NewDiskMetrics creates the simulated disk collectors.
func NewDiskMetrics() metrics.DiskMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	factory := promauto.With(metrics.GetRegistry())

	return &diskMetrics{
		freeBlocks: factory.NewGauge(prometheus.GaugeOpts{
			Name: "clusterfs_disk_free_blocks",
			Help: "Number of unallocated blocks",
		}),
		files: factory.NewGauge(prometheus.GaugeOpts{
			Name: "clusterfs_disk_files",
			Help: "Number of files currently stored",
		}),
		blocksPerFile: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "clusterfs_disk_file_blocks",
			Help:    "Blocks allocated per stored file",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		clustersPerFile: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "clusterfs_disk_file_clusters",
			Help:    "Clusters (contiguous runs) per stored file",
			Buckets: []float64{1, 2, 3, 4, 6, 8, 12, 16, 32},
		}),
		bytesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clusterfs_disk_bytes_total",
				Help: "Payload bytes written to or read from the disk",
			},
			[]string{"direction"},
		),
	}
}

func (m *diskMetrics) SetFreeBlocks(free int) {
	m.freeBlocks.Set(float64(free))
}

func (m *diskMetrics) SetFiles(count int) {
	m.files.Set(float64(count))
}

func (m *diskMetrics) ObserveAllocation(blocks, clusters int) {
	m.blocksPerFile.Observe(float64(blocks))
	m.clustersPerFile.Observe(float64(clusters))
}

func (m *diskMetrics) RecordBytes(direction string, bytes int64) {
	m.bytesTotal.WithLabelValues(direction).Add(float64(bytes))
}
