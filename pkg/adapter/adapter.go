// Package adapter defines the contract between the server orchestrator and
// the network front-ends that expose the simulated disk.
package adapter

import (
	"context"

	"github.com/marmos91/clusterfs/pkg/disk"
)

// Adapter represents a protocol front-end that can be managed by the server.
//
// Every adapter serves the same *disk.Disk, so all clients observe one
// allocator and one content store regardless of how they connect.
//
// Lifecycle:
//  1. Creation: Adapter is created with protocol-specific configuration
//  2. Disk injection: SetDisk() provides the shared disk
//  3. Startup: Serve() starts the protocol server and blocks until shutdown
//  4. Shutdown: Stop() initiates graceful shutdown with timeout
//
// Thread safety:
// Implementations must be safe for concurrent use. SetDisk() is called
// once before Serve(), but Stop() may be called concurrently with Serve().
type Adapter interface {
	// Serve starts the protocol server and blocks until the context is cancelled
	// or an unrecoverable error occurs.
	//
	// When the context is cancelled, Serve must initiate graceful shutdown:
	//   - Stop accepting new connections
	//   - Wait for in-flight instructions to complete (with timeout)
	//   - Return nil, or an error if connections had to be force-closed
	//
	// If Serve returns before context cancellation, the server treats it as
	// a fatal error and stops all other adapters.
	Serve(ctx context.Context) error

	// SetDisk injects the shared disk. Called exactly once before Serve().
	SetDisk(d *disk.Disk)

	// Stop initiates graceful shutdown of the protocol server.
	//
	// Implementations must be idempotent, safe to call concurrently with
	// Serve(), and must respect the context deadline.
	Stop(ctx context.Context) error

	// Protocol returns the human-readable protocol name for logging and metrics.
	Protocol() string

	// Port returns the TCP port the adapter is listening on. Before Serve()
	// binds, it returns the configured port.
	Port() int
}
