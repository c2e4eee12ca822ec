package config

import (
	"github.com/marmos91/clusterfs/pkg/metrics"
	promMetrics "github.com/marmos91/clusterfs/pkg/metrics/prometheus"
	"github.com/marmos91/clusterfs/pkg/store/content/cache"
	"github.com/marmos91/clusterfs/pkg/store/content/s3"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	// DiskMetrics observes the block pool (never nil, uses noop if disabled)
	DiskMetrics metrics.DiskMetrics

	// TCPMetrics observes the protocol listener (never nil, uses noop if disabled)
	TCPMetrics metrics.TCPMetrics

	// S3Metrics observes the S3 content store (nil if disabled)
	S3Metrics s3.S3Metrics

	// CacheMetrics observes the read cache (nil if disabled)
	CacheMetrics cache.CacheMetrics
}

// InitializeMetrics creates and initializes all metrics components based on configuration.
//
// If metrics are enabled in the configuration:
//   - Initializes the global Prometheus registry
//   - Creates the metrics HTTP server
//   - Creates Prometheus-backed metrics instances for all components
//
// If metrics are disabled:
//   - Returns nil server
//   - Returns no-op metrics implementations (zero overhead)
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Server.Metrics.Enabled {
		return &MetricsResult{
			DiskMetrics: metrics.NewNoopDiskMetrics(),
			TCPMetrics:  metrics.NewNoopTCPMetrics(),
		}
	}

	metrics.InitRegistry()

	server := metrics.NewServer(metrics.ServerConfig{
		Port: cfg.Server.Metrics.Port,
	})

	return &MetricsResult{
		Server:       server,
		DiskMetrics:  promMetrics.NewDiskMetrics(),
		TCPMetrics:   promMetrics.NewTCPMetrics(),
		S3Metrics:    promMetrics.NewS3Metrics(),
		CacheMetrics: promMetrics.NewCacheMetrics(),
	}
}
