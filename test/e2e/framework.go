package e2e

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/clusterfs/internal/logger"
	"github.com/marmos91/clusterfs/pkg/adapter/tcp"
	"github.com/marmos91/clusterfs/pkg/config"
	"github.com/marmos91/clusterfs/pkg/disk"
	"github.com/marmos91/clusterfs/pkg/server"
)

// TestContext provides a complete testing environment with:
// - Running clusterfs server on an ephemeral port
// - Content store built from the test configuration
// - Cleanup mechanisms
type TestContext struct {
	T       *testing.T
	Config  *TestConfig
	Server  *server.ClusterServer
	Disk    *disk.Disk
	Adapter *tcp.TCPAdapter
	Port    int

	// DataDir holds persistent backend data and survives Restart
	DataDir string

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	tempDirs []string
	clients  []*Client
}

// NewTestContext creates a new test environment with the specified
// configuration and starts the server on a wiped disk.
func NewTestContext(t *testing.T, config *TestConfig) *TestContext {
	t.Helper()

	// Always use ERROR level to keep test output clean
	logger.SetLevel("ERROR")

	tc := &TestContext{
		T:      t,
		Config: config,
	}
	tc.DataDir = tc.CreateTempDir("clusterfs-e2e-*")

	tc.startServer(true)

	return tc
}

// serverConfig builds the configuration the server binary would load.
func (tc *TestContext) serverConfig(resetOnStart bool) *config.Config {
	tc.T.Helper()

	cfg := config.GetDefaultConfig()
	cfg.Disk.ResetOnStart = resetOnStart
	if tc.Config.BlockSize > 0 {
		cfg.Disk.BlockSize = tc.Config.BlockSize
	}
	if tc.Config.NumBlocks > 0 {
		cfg.Disk.NumBlocks = tc.Config.NumBlocks
	}
	if tc.Config.Alphabet != "" {
		cfg.Disk.Alphabet = tc.Config.Alphabet
	}

	contentCfg, err := tc.Config.ContentConfig(tc.DataDir)
	if err != nil {
		tc.T.Fatalf("Failed to build content config: %v", err)
	}
	cfg.Content = *contentCfg
	config.ApplyDefaults(cfg)

	cfg.Adapters.TCP.Port = 0
	cfg.Adapters.TCP.Timeouts.Shutdown = 500 * time.Millisecond

	if err := config.Validate(cfg); err != nil {
		tc.T.Fatalf("Invalid test configuration: %v", err)
	}
	return cfg
}

// startServer wires the stack the way the start command does and waits
// for the listener.
func (tc *TestContext) startServer(resetOnStart bool) {
	tc.T.Helper()

	cfg := tc.serverConfig(resetOnStart)
	tc.ctx, tc.cancel = context.WithCancel(context.Background())

	store, err := config.CreateContentStore(tc.ctx, &cfg.Content, nil, nil)
	if err != nil {
		tc.T.Fatalf("Failed to create content store: %v", err)
	}

	tc.Disk, err = config.CreateDisk(tc.ctx, cfg, store, nil)
	if err != nil {
		_ = store.Close()
		tc.T.Fatalf("Failed to open disk: %v", err)
	}

	tc.Server = server.New(tc.Disk, time.Second)

	adapters, err := config.CreateAdapters(cfg, nil)
	if err != nil {
		tc.T.Fatalf("Failed to create adapters: %v", err)
	}
	for _, a := range adapters {
		if err := tc.Server.AddAdapter(a); err != nil {
			tc.T.Fatalf("Failed to add adapter: %v", err)
		}
		if listener, ok := a.(*tcp.TCPAdapter); ok {
			tc.Adapter = listener
		}
	}
	if tc.Adapter == nil {
		tc.T.Fatal("No TCP adapter configured")
	}

	tc.wg.Add(1)
	go func() {
		defer tc.wg.Done()
		if err := tc.Server.Serve(tc.ctx); err != nil && !errors.Is(err, context.Canceled) {
			tc.T.Logf("Server error: %v", err)
		}
	}()

	tc.waitForServer()
}

// waitForServer waits for the listener to accept connections
func (tc *TestContext) waitForServer() {
	tc.T.Helper()

	select {
	case <-tc.Adapter.Ready():
		tc.Port = tc.Adapter.Port()
	case <-time.After(10 * time.Second):
		tc.T.Fatal("Timeout waiting for server to start")
	}
}

// stopServer closes open clients, stops the server and closes the disk.
func (tc *TestContext) stopServer() {
	for _, c := range tc.clients {
		_ = c.Close()
	}
	tc.clients = nil

	if tc.cancel != nil {
		tc.cancel()
	}
	tc.wg.Wait()

	if tc.Disk != nil {
		if err := tc.Disk.Close(); err != nil {
			tc.T.Logf("Failed to close disk: %v", err)
		}
		tc.Disk = nil
	}
}

// Restart stops the server and starts it again over the same data
// without wiping it.
func (tc *TestContext) Restart() {
	tc.T.Helper()

	tc.stopServer()
	tc.startServer(false)
}

// Dial opens a client connection that is closed on cleanup
func (tc *TestContext) Dial() *Client {
	tc.T.Helper()

	c, err := Dial(tc.Port)
	if err != nil {
		tc.T.Fatalf("Failed to connect: %v", err)
	}
	tc.clients = append(tc.clients, c)
	return c
}

// Cleanup stops the server and removes temporary files
func (tc *TestContext) Cleanup() {
	tc.T.Helper()

	tc.stopServer()

	for _, dir := range tc.tempDirs {
		_ = os.RemoveAll(dir)
	}
}

// CreateTempDir creates a temporary directory and registers it for cleanup
func (tc *TestContext) CreateTempDir(prefix string) string {
	tc.T.Helper()

	dir, err := os.MkdirTemp("", prefix)
	if err != nil {
		tc.T.Fatalf("Failed to create temp directory: %v", err)
	}
	tc.tempDirs = append(tc.tempDirs, dir)
	return dir
}
