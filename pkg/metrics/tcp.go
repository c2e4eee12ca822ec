package metrics

import "time"

// TCPMetrics provides observability for the TCP adapter.
//
// This interface is optional - if not provided to the adapter, a no-op
// implementation is used.
//
// Example usage:
//
//	// With metrics enabled
//	adapter := tcp.New(config, prometheus.NewTCPMetrics())
//
//	// Without metrics (no-op)
//	adapter := tcp.New(config, nil)
type TCPMetrics interface {
	// RecordCommand records a completed instruction.
	//
	// Parameters:
	//   - instruction: STORE, READ, DELETE, DIR or "UNKNOWN"
	//   - duration: Time taken to handle the instruction
	//   - status: "ok" or the error reply sent to the client
	RecordCommand(instruction string, duration time.Duration, status string)

	// RecordBytesTransferred records payload bytes.
	//
	// Parameters:
	//   - direction: "read" or "write"
	//   - bytes: Number of bytes transferred
	RecordBytesTransferred(direction string, bytes int64)

	// SetActiveConnections updates the current connection count.
	SetActiveConnections(count int32)

	// RecordConnectionAccepted increments the accepted connections counter.
	RecordConnectionAccepted()

	// RecordConnectionClosed increments the closed connections counter.
	RecordConnectionClosed()

	// RecordConnectionForceClosed increments the counter of connections
	// closed because the shutdown timeout expired.
	RecordConnectionForceClosed()

	// RecordRateLimited counts instructions delayed by the rate limiter.
	RecordRateLimited()
}

type noopTCPMetrics struct{}

// NewNoopTCPMetrics returns a TCPMetrics that discards everything.
func NewNoopTCPMetrics() TCPMetrics { return noopTCPMetrics{} }

func (noopTCPMetrics) RecordCommand(string, time.Duration, string) {}
func (noopTCPMetrics) RecordBytesTransferred(string, int64)        {}
func (noopTCPMetrics) SetActiveConnections(int32)                  {}
func (noopTCPMetrics) RecordConnectionAccepted()                   {}
func (noopTCPMetrics) RecordConnectionClosed()                     {}
func (noopTCPMetrics) RecordConnectionForceClosed()                {}
func (noopTCPMetrics) RecordRateLimited()                          {}
