// Package tcp serves the clustered disk protocol over plain TCP.
package tcp

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/clusterfs/internal/logger"
	"github.com/marmos91/clusterfs/internal/protocol/cdp"
	"github.com/marmos91/clusterfs/pkg/disk"
	"github.com/marmos91/clusterfs/pkg/metrics"
)

// DefaultPort is the port the server listens on when none is configured.
const DefaultPort = 8765

// DefaultMaxLineLength bounds an instruction line, terminator included.
const DefaultMaxLineLength = 4096

// TCPAdapter implements adapter.Adapter for the clustered disk protocol.
//
// Each accepted connection gets its own goroutine running a Connection.
// Connections share one cdp.Handler, and through it one *disk.Disk; the
// disk lock is the only point where connections serialize.
//
// Shutdown flow:
//  1. Context cancelled or Stop() called
//  2. Listener closed (no new connections)
//  3. shutdownCtx cancelled (connections stop after the current instruction)
//  4. Wait for active connections to finish (up to Timeouts.Shutdown)
//  5. Force-close any remaining connections after timeout
//
// Thread safety:
// All methods are safe for concurrent use.
type TCPAdapter struct {
	config Config

	// mu guards listener, which Stop() may read while Serve() sets it
	mu       sync.Mutex
	listener net.Listener

	// boundPort is the port actually bound (differs from config.Port when
	// the configured port is 0)
	boundPort atomic.Int32

	handler *cdp.Handler

	metrics metrics.TCPMetrics

	// activeConns tracks connection goroutines for graceful shutdown
	activeConns sync.WaitGroup

	shutdownOnce sync.Once

	// shutdown is closed by initiateShutdown(), monitored by Serve()
	shutdown chan struct{}

	connCount atomic.Int32

	// connSemaphore limits concurrent connections; nil when unlimited
	connSemaphore chan struct{}

	// shutdownCtx is cancelled during shutdown and handed to every
	// connection
	shutdownCtx    context.Context
	cancelRequests context.CancelFunc

	// activeConnections maps session id to net.Conn for forced closure
	activeConnections sync.Map

	// ready is closed once the listener is bound
	ready chan struct{}
}

// Config holds configuration parameters for the TCP adapter.
//
// Default values (applied by New if zero):
//   - Port: left at 0, which binds an ephemeral port (pkg/config
//     defaults it to DefaultPort)
//   - MaxConnections: 0 (unlimited)
//   - Timeouts.Read/Write/Idle: 0 (none)
//   - Timeouts.Shutdown: 30s
//   - MetricsLogInterval: 0 (disabled)
//   - MaxLineLength: 4096
//   - RateLimit: 0 (unlimited)
type Config struct {
	// Enabled controls whether the TCP adapter is started.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the TCP port to listen on. 0 in a test config lets the OS
	// choose; use Port() to find out which.
	Port int `mapstructure:"port" validate:"min=0,max=65535" yaml:"port"`

	// MaxConnections limits concurrent client connections. When reached,
	// new connections wait in the kernel backlog until a slot frees up.
	// 0 means unlimited.
	MaxConnections int `mapstructure:"max_connections" validate:"min=0" yaml:"max_connections"`

	// Timeouts bounds network operations.
	Timeouts TimeoutsConfig `mapstructure:"timeouts" yaml:"timeouts"`

	// MetricsLogInterval is the interval at which connection statistics are
	// logged. 0 disables periodic logging.
	MetricsLogInterval time.Duration `mapstructure:"metrics_log_interval" validate:"min=0" yaml:"metrics_log_interval"`

	// MaxLineLength bounds an instruction line. Longer lines close the
	// connection, since the stream can no longer be framed.
	MaxLineLength int `mapstructure:"max_line_length" validate:"min=0" yaml:"max_line_length"`

	// RateLimit throttles instructions per connection.
	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// TimeoutsConfig groups the connection timeouts. Zero disables a timeout.
type TimeoutsConfig struct {
	// Read bounds reading one instruction line and its payload.
	Read time.Duration `mapstructure:"read" validate:"min=0" yaml:"read"`

	// Write bounds writing one response.
	Write time.Duration `mapstructure:"write" validate:"min=0" yaml:"write"`

	// Idle closes connections with no instruction for this long.
	Idle time.Duration `mapstructure:"idle" validate:"min=0" yaml:"idle"`

	// Shutdown is how long graceful shutdown waits before force-closing.
	Shutdown time.Duration `mapstructure:"shutdown" validate:"min=0" yaml:"shutdown"`
}

// RateLimitConfig configures the per-connection token bucket.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained instruction rate. 0 disables
	// limiting.
	RequestsPerSecond uint `mapstructure:"requests_per_second" yaml:"requests_per_second"`

	// Burst is the bucket size. 0 selects RequestsPerSecond.
	Burst uint `mapstructure:"burst" yaml:"burst"`
}

// ApplyDefaults fills in zero values with defaults. A zero Port is left
// alone so tests can bind an ephemeral port; pkg/config supplies 8765.
func (c *Config) ApplyDefaults() {
	if c.Timeouts.Shutdown == 0 {
		c.Timeouts.Shutdown = 30 * time.Second
	}
	if c.MaxLineLength == 0 {
		c.MaxLineLength = DefaultMaxLineLength
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be 0-65535", c.Port)
	}
	if c.MaxConnections < 0 {
		return fmt.Errorf("invalid MaxConnections %d: must be >= 0", c.MaxConnections)
	}
	if c.Timeouts.Read < 0 {
		return fmt.Errorf("invalid read timeout %v: must be >= 0", c.Timeouts.Read)
	}
	if c.Timeouts.Write < 0 {
		return fmt.Errorf("invalid write timeout %v: must be >= 0", c.Timeouts.Write)
	}
	if c.Timeouts.Idle < 0 {
		return fmt.Errorf("invalid idle timeout %v: must be >= 0", c.Timeouts.Idle)
	}
	if c.Timeouts.Shutdown <= 0 {
		return fmt.Errorf("invalid shutdown timeout %v: must be > 0", c.Timeouts.Shutdown)
	}
	if c.MaxLineLength < 16 {
		return fmt.Errorf("invalid MaxLineLength %d: must be >= 16", c.MaxLineLength)
	}
	return nil
}

// New creates a TCPAdapter. Call SetDisk() and then Serve().
//
// Panics if config validation fails.
func New(config Config, tcpMetrics metrics.TCPMetrics) *TCPAdapter {
	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		panic(fmt.Sprintf("invalid TCP config: %v", err))
	}

	var connSemaphore chan struct{}
	if config.MaxConnections > 0 {
		connSemaphore = make(chan struct{}, config.MaxConnections)
		logger.Debug("TCP connection limit: %d", config.MaxConnections)
	} else {
		logger.Debug("TCP connection limit: unlimited")
	}

	shutdownCtx, cancelRequests := context.WithCancel(context.Background())

	if tcpMetrics == nil {
		tcpMetrics = metrics.NewNoopTCPMetrics()
	}

	a := &TCPAdapter{
		config:         config,
		metrics:        tcpMetrics,
		shutdown:       make(chan struct{}),
		connSemaphore:  connSemaphore,
		shutdownCtx:    shutdownCtx,
		cancelRequests: cancelRequests,
		ready:          make(chan struct{}),
	}
	a.boundPort.Store(int32(config.Port))
	return a
}

// SetDisk injects the shared disk.
func (s *TCPAdapter) SetDisk(d *disk.Disk) {
	s.handler = cdp.NewHandler(d)
	logger.Debug("TCP adapter attached to disk")
}

// Serve listens on the configured port and handles connections until ctx
// is cancelled.
//
// Returns:
//   - nil on graceful shutdown
//   - error if the listener cannot be created, SetDisk was not called,
//     or connections had to be force-closed
func (s *TCPAdapter) Serve(ctx context.Context) error {
	if s.handler == nil {
		return fmt.Errorf("TCP adapter has no disk: call SetDisk before Serve")
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Port))
	if err != nil {
		return fmt.Errorf("failed to create TCP listener on port %d: %w", s.config.Port, err)
	}

	s.mu.Lock()
	select {
	case <-s.shutdown:
		s.mu.Unlock()
		_ = listener.Close()
		return nil
	default:
	}
	s.listener = listener
	s.mu.Unlock()

	if addr, ok := listener.Addr().(*net.TCPAddr); ok {
		s.boundPort.Store(int32(addr.Port))
	}
	close(s.ready)

	logger.Info("Listening on port %d", s.Port())
	logger.Debug("TCP config: max_connections=%d read_timeout=%v write_timeout=%v idle_timeout=%v max_line_length=%d",
		s.config.MaxConnections, s.config.Timeouts.Read, s.config.Timeouts.Write,
		s.config.Timeouts.Idle, s.config.MaxLineLength)

	go func() {
		select {
		case <-ctx.Done():
			logger.Info("TCP shutdown signal received: %v", ctx.Err())
			s.initiateShutdown()
		case <-s.shutdown:
		}
	}()

	if s.config.MetricsLogInterval > 0 {
		go s.logMetrics(ctx)
	}

	for {
		if s.connSemaphore != nil {
			select {
			case s.connSemaphore <- struct{}{}:
			case <-s.shutdown:
				return s.gracefulShutdown()
			}
		}

		tcpConn, err := listener.Accept()
		if err != nil {
			if s.connSemaphore != nil {
				<-s.connSemaphore
			}

			select {
			case <-s.shutdown:
				return s.gracefulShutdown()
			default:
				logger.Debug("Error accepting TCP connection: %v", err)
				continue
			}
		}

		conn := NewConnection(s, tcpConn)

		s.activeConns.Add(1)
		s.connCount.Add(1)
		s.activeConnections.Store(conn.sessionID, tcpConn)

		s.metrics.RecordConnectionAccepted()
		currentConns := s.connCount.Load()
		s.metrics.SetActiveConnections(currentConns)

		logger.Info("Received incoming connection from %s (session %s, active: %d)",
			tcpConn.RemoteAddr(), conn.sessionID, currentConns)

		go func() {
			defer func() {
				s.activeConnections.Delete(conn.sessionID)

				s.activeConns.Done()
				s.connCount.Add(-1)
				if s.connSemaphore != nil {
					<-s.connSemaphore
				}

				s.metrics.RecordConnectionClosed()
				currentConns := s.connCount.Load()
				s.metrics.SetActiveConnections(currentConns)

				logger.Debug("TCP connection closed from %s (active: %d)",
					tcpConn.RemoteAddr(), currentConns)
			}()

			conn.Serve(s.shutdownCtx)
		}()
	}
}

// initiateShutdown closes the listener and cancels shutdownCtx. Safe to call
// more than once.
func (s *TCPAdapter) initiateShutdown() {
	s.shutdownOnce.Do(func() {
		logger.Debug("TCP shutdown initiated")

		s.mu.Lock()
		close(s.shutdown)
		listener := s.listener
		s.mu.Unlock()

		if listener != nil {
			if err := listener.Close(); err != nil {
				logger.Debug("Error closing TCP listener: %v", err)
			}
		}

		s.cancelRequests()
	})
}

// gracefulShutdown waits for active connections, force-closing them once
// Timeouts.Shutdown expires.
func (s *TCPAdapter) gracefulShutdown() error {
	activeCount := s.connCount.Load()
	logger.Info("TCP graceful shutdown: waiting for %d active connection(s) (timeout: %v)",
		activeCount, s.config.Timeouts.Shutdown)

	select {
	case <-s.connectionsDone():
		logger.Info("TCP graceful shutdown complete: all connections closed")
		return nil

	case <-time.After(s.config.Timeouts.Shutdown):
		remaining := s.connCount.Load()
		logger.Warn("TCP shutdown timeout exceeded: %d connection(s) still active after %v - forcing closure",
			remaining, s.config.Timeouts.Shutdown)

		s.forceCloseConnections()

		return fmt.Errorf("TCP shutdown timeout: %d connections force-closed", remaining)
	}
}

func (s *TCPAdapter) connectionsDone() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		s.activeConns.Wait()
		close(done)
	}()
	return done
}

// forceCloseConnections closes every tracked socket so blocked reads and
// writes fail immediately.
func (s *TCPAdapter) forceCloseConnections() {
	closedCount := 0
	s.activeConnections.Range(func(key, value any) bool {
		session := key.(string)
		conn := value.(net.Conn)

		if err := conn.Close(); err != nil {
			logger.Debug("Error force-closing session %s: %v", session, err)
		} else {
			closedCount++
			s.metrics.RecordConnectionForceClosed()
			logger.Debug("Force-closed session %s", session)
		}
		return true
	})

	if closedCount > 0 {
		logger.Info("Force-closed %d connection(s)", closedCount)
	}
}

// Stop initiates shutdown and waits for connections to finish or for ctx
// to expire. A nil ctx waits up to Timeouts.Shutdown.
func (s *TCPAdapter) Stop(ctx context.Context) error {
	s.initiateShutdown()

	if ctx == nil {
		return s.gracefulShutdown()
	}

	select {
	case <-s.connectionsDone():
		return nil
	case <-ctx.Done():
		remaining := s.connCount.Load()
		logger.Warn("TCP shutdown context cancelled: %d connection(s) still active: %v",
			remaining, ctx.Err())
		return ctx.Err()
	}
}

// logMetrics periodically logs connection statistics until ctx is done.
func (s *TCPAdapter) logMetrics(ctx context.Context) {
	ticker := time.NewTicker(s.config.MetricsLogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.shutdown:
			return
		case <-ticker.C:
			logger.Info("TCP metrics: active_connections=%d", s.connCount.Load())
		}
	}
}

// Ready is closed once the listener is bound.
func (s *TCPAdapter) Ready() <-chan struct{} {
	return s.ready
}

// GetActiveConnections returns the current number of active connections.
func (s *TCPAdapter) GetActiveConnections() int32 {
	return s.connCount.Load()
}

// Port returns the bound port once Serve() is listening, the configured
// port before that.
func (s *TCPAdapter) Port() int {
	return int(s.boundPort.Load())
}

// Protocol returns "TCP".
func (s *TCPAdapter) Protocol() string {
	return "TCP"
}
