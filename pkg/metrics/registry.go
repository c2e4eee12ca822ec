// Package metrics defines the observability hooks used by the simulated disk,
// the TCP adapter and the S3 content store.
//
// Every hook is optional. Components fall back to no-op implementations when
// handed nil, so a server runs the same with or without a registry.
//
// Usage:
//
//	// Initialize global registry (typically in main.go)
//	metrics.InitRegistry()
//
//	// Create Prometheus-backed instances
//	diskMetrics := prometheus.NewDiskMetrics()
//	tcpMetrics := prometheus.NewTCPMetrics()
//
//	// Or use nil for no-op behavior
//	adapter := tcp.New(config, nil)
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// written once by InitRegistry
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry creates the global registry with the Go runtime and process
// collectors already registered. Later calls are no-ops.
//
// Until it is called GetRegistry returns nil and every constructor in
// pkg/metrics/prometheus returns nil, which components treat as "no metrics".
func InitRegistry() {
	registryOnce.Do(func() {
		r := prometheus.NewRegistry()
		r.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		registry = r
	})
}

// GetRegistry returns the global registry, or nil when metrics are disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return GetRegistry() != nil
}
