package server

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/marmos91/clusterfs/pkg/adapter/tcp"
	"github.com/marmos91/clusterfs/pkg/alloc"
	"github.com/marmos91/clusterfs/pkg/disk"
	"github.com/marmos91/clusterfs/pkg/store/content/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAdapter blocks in Serve until ctx is done or Stop is called, or fails
// immediately when serveErr is set.
type fakeAdapter struct {
	protocol string
	port     int
	serveErr error

	disk    *disk.Disk
	stopped chan struct{}
	stops   atomic.Int32
}

func newFakeAdapter(protocol string, port int) *fakeAdapter {
	return &fakeAdapter{protocol: protocol, port: port, stopped: make(chan struct{})}
}

func (f *fakeAdapter) Serve(ctx context.Context) error {
	if f.serveErr != nil {
		return f.serveErr
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.stopped:
		return nil
	}
}

func (f *fakeAdapter) SetDisk(d *disk.Disk) { f.disk = d }

func (f *fakeAdapter) Stop(ctx context.Context) error {
	if f.stops.Add(1) == 1 {
		close(f.stopped)
	}
	return nil
}

func (f *fakeAdapter) Protocol() string { return f.protocol }
func (f *fakeAdapter) Port() int        { return f.port }

func newTestDisk(t *testing.T) *disk.Disk {
	t.Helper()

	ctx := context.Background()
	store, err := memory.NewMemoryContentStore(ctx)
	require.NoError(t, err)

	d, err := disk.Open(ctx, disk.Config{
		Pool:         alloc.PoolConfig{BlockSize: 16, NumBlocks: 32},
		ResetOnStart: true,
	}, store, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	return d
}

func TestNewPanicsWithoutDisk(t *testing.T) {
	assert.Panics(t, func() { New(nil, 0) })
}

func TestAddAdapter(t *testing.T) {
	d := newTestDisk(t)
	srv := New(d, time.Second)

	first := newFakeAdapter("TCP", 8765)
	require.NoError(t, srv.AddAdapter(first))
	assert.Same(t, d, first.disk, "disk must be injected")

	err := srv.AddAdapter(newFakeAdapter("TCP", 9000))
	assert.ErrorContains(t, err, "already registered")

	err = srv.AddAdapter(newFakeAdapter("OTHER", 8765))
	assert.ErrorContains(t, err, "port 8765 already in use")

	// Ephemeral ports never clash
	require.NoError(t, srv.AddAdapter(newFakeAdapter("EPHEMERAL-A", 0)))
	require.NoError(t, srv.AddAdapter(newFakeAdapter("EPHEMERAL-B", 0)))

	assert.Len(t, srv.Adapters(), 3)
	assert.Panics(t, func() { _ = srv.AddAdapter(nil) })
}

func TestServeWithoutAdapters(t *testing.T) {
	srv := New(newTestDisk(t), time.Second)
	assert.ErrorContains(t, srv.Serve(context.Background()), "no adapters registered")
}

func TestServeCancellation(t *testing.T) {
	srv := New(newTestDisk(t), time.Second)
	a := newFakeAdapter("TCP", 0)
	require.NoError(t, srv.AddAdapter(a))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
	assert.Equal(t, int32(1), a.stops.Load())

	assert.ErrorIs(t, srv.Serve(context.Background()), ErrAlreadyServed)
	assert.Panics(t, func() { _ = srv.AddAdapter(newFakeAdapter("LATE", 1)) })
}

func TestServeAdapterFailureStopsOthers(t *testing.T) {
	srv := New(newTestDisk(t), time.Second)

	healthy := newFakeAdapter("HEALTHY", 0)
	broken := newFakeAdapter("BROKEN", 0)
	broken.serveErr = errors.New("bind failed")

	require.NoError(t, srv.AddAdapter(healthy))
	require.NoError(t, srv.AddAdapter(broken))

	err := srv.Serve(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "BROKEN adapter error")
	assert.ErrorContains(t, err, "bind failed")
	assert.Equal(t, int32(1), healthy.stops.Load())
}

func TestServeWithTCPAdapter(t *testing.T) {
	srv := New(newTestDisk(t), time.Second)

	listener := tcp.New(tcp.Config{
		Enabled:  true,
		Timeouts: tcp.TimeoutsConfig{Shutdown: 500 * time.Millisecond},
	}, nil)
	require.NoError(t, srv.AddAdapter(listener))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	select {
	case <-listener.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("listener never became ready")
	}

	conn, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(listener.Port())))
	require.NoError(t, err)
	reader := bufio.NewReader(conn)

	_, err = conn.Write([]byte("STORE greeting 5\nhello"))
	require.NoError(t, err)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "ACK\n", line)

	assert.Equal(t, []string{"greeting"}, srv.Disk().List(context.Background()))

	require.NoError(t, conn.Close())
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
}
