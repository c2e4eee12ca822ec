package prometheus

import (
	"time"

	"github.com/marmos91/clusterfs/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// tcpMetrics is the Prometheus implementation of metrics.TCPMetrics.
type tcpMetrics struct {
	commandsTotal          *prometheus.CounterVec
	commandDuration        *prometheus.HistogramVec
	bytesTransferred       *prometheus.CounterVec
	activeConnections      prometheus.Gauge
	connectionsAccepted    prometheus.Counter
	connectionsClosed      prometheus.Counter
	connectionsForceClosed prometheus.Counter
	rateLimited            prometheus.Counter
}

// NewTCPMetrics creates the TCP adapter collectors.
func NewTCPMetrics() metrics.TCPMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	factory := promauto.With(metrics.GetRegistry())

	return &tcpMetrics{
		commandsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clusterfs_tcp_commands_total",
				Help: "Total instructions handled by instruction and status",
			},
			[]string{"instruction", "status"},
		),
		commandDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "clusterfs_tcp_command_duration_seconds",
				Help:    "Instruction handling latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"instruction"},
		),
		bytesTransferred: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clusterfs_tcp_bytes_total",
				Help: "Payload bytes received (write) or sent (read)",
			},
			[]string{"direction"},
		),
		activeConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "clusterfs_tcp_active_connections",
			Help: "Current number of open client connections",
		}),
		connectionsAccepted: factory.NewCounter(prometheus.CounterOpts{
			Name: "clusterfs_tcp_connections_accepted_total",
			Help: "Total accepted client connections",
		}),
		connectionsClosed: factory.NewCounter(prometheus.CounterOpts{
			Name: "clusterfs_tcp_connections_closed_total",
			Help: "Total closed client connections",
		}),
		connectionsForceClosed: factory.NewCounter(prometheus.CounterOpts{
			Name: "clusterfs_tcp_connections_force_closed_total",
			Help: "Connections closed because the shutdown timeout expired",
		}),
		rateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name: "clusterfs_tcp_rate_limited_total",
			Help: "Instructions delayed by the per-connection rate limiter",
		}),
	}
}

func (m *tcpMetrics) RecordCommand(instruction string, duration time.Duration, status string) {
	m.commandsTotal.WithLabelValues(instruction, status).Inc()
	m.commandDuration.WithLabelValues(instruction).Observe(duration.Seconds())
}

func (m *tcpMetrics) RecordBytesTransferred(direction string, bytes int64) {
	m.bytesTransferred.WithLabelValues(direction).Add(float64(bytes))
}

func (m *tcpMetrics) SetActiveConnections(count int32) {
	m.activeConnections.Set(float64(count))
}

func (m *tcpMetrics) RecordConnectionAccepted() { m.connectionsAccepted.Inc() }

func (m *tcpMetrics) RecordConnectionClosed() { m.connectionsClosed.Inc() }

func (m *tcpMetrics) RecordConnectionForceClosed() { m.connectionsForceClosed.Inc() }

func (m *tcpMetrics) RecordRateLimited() { m.rateLimited.Inc() }
