// Package disk is the simulated clustered disk: a block allocator and a
// content store kept consistent behind one lock.
//
// Every operation performs its whole check-and-mutate sequence inside a
// single critical section, so two clients can never both pass the
// existence or free-space checks for the same blocks. Callers do their
// network I/O before or after calling in, never while the lock is held.
package disk

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/marmos91/clusterfs/internal/logger"
	"github.com/marmos91/clusterfs/pkg/alloc"
	"github.com/marmos91/clusterfs/pkg/metrics"
	"github.com/marmos91/clusterfs/pkg/store/content"
)

// Config describes the disk geometry and startup behavior.
type Config struct {
	Pool alloc.PoolConfig

	// ResetOnStart wipes the content store when the disk is opened.
	// When false, blobs already in the store are registered again in name
	// order, each placed first-fit as if it had just been stored.
	ResetOnStart bool
}

// Disk owns the allocator and the content store.
type Disk struct {
	mu      sync.Mutex
	pool    *alloc.Pool
	store   content.ContentStore
	metrics metrics.DiskMetrics
}

// StoreResult describes a successful Store.
type StoreResult struct {
	Identifier byte
	Bytes      int64
	Blocks     int
	Clusters   int
}

// ReadResult describes a successful Read.
type ReadResult struct {
	Identifier byte

	// Size is the full length of the stored blob.
	Size int64

	// Data is the requested range.
	Data []byte

	// Blocks is the number of blocks the range touches.
	Blocks int
}

// Open builds a Disk over store. A nil m selects no-op metrics.
func Open(ctx context.Context, cfg Config, store content.ContentStore, m metrics.DiskMetrics) (*Disk, error) {
	if store == nil {
		return nil, fmt.Errorf("disk: content store is required")
	}

	pool, err := alloc.NewPool(cfg.Pool)
	if err != nil {
		return nil, err
	}

	if m == nil {
		m = metrics.NewNoopDiskMetrics()
	}

	d := &Disk{
		pool:    pool,
		store:   store,
		metrics: m,
	}

	if cfg.ResetOnStart {
		if err := store.Reset(ctx); err != nil {
			return nil, fmt.Errorf("disk: failed to prepare storage: %w", err)
		}
	} else if err := d.restore(ctx); err != nil {
		return nil, err
	}

	logger.Info("Block size is %d", pool.BlockSize())
	logger.Info("Number of blocks is %d", pool.NumBlocks())

	d.publishGauges()
	return d, nil
}

// restore registers blobs that survived a restart.
func (d *Disk) restore(ctx context.Context) error {
	ids, err := d.store.ListContent(ctx)
	if err != nil {
		return fmt.Errorf("disk: failed to list existing content: %w", err)
	}

	for _, id := range content.SortIDs(ids) {
		data, err := d.store.ReadContent(ctx, id)
		if err != nil {
			return fmt.Errorf("disk: failed to restore %s: %w", id, err)
		}
		name := string(id)
		if _, err := d.pool.AddFile(name, d.pool.BlocksFor(int64(len(data)))); err != nil {
			return fmt.Errorf("disk: failed to restore %s: %w", id, err)
		}
		symbol, _ := d.pool.Identifier(name)
		logger.Info("Restored file '%c' (%s, %d bytes)", symbol, name, len(data))
	}
	return nil
}

// Store writes data under name and allocates its blocks.
//
// Allocator state changes only after the content store accepted the
// write; a failed write leaves both the pool and the store as they were.
func (d *Disk) Store(ctx context.Context, name string, data []byte) (StoreResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pool.ContainsFile(name) {
		return StoreResult{}, fmt.Errorf("store %q: %w", name, ErrFileExists)
	}

	size := int64(len(data))
	blocks := d.pool.BlocksFor(size)
	if !d.pool.HasSpace(blocks) {
		return StoreResult{}, fmt.Errorf("store %q: need %d blocks, %d free: %w",
			name, blocks, d.pool.FreeBlocks(), ErrNoSpace)
	}
	if d.pool.Stats().FreeIdentifiers == 0 {
		return StoreResult{}, fmt.Errorf("store %q: %w", name, ErrNoIdentifiers)
	}

	if err := d.store.WriteContent(ctx, content.ContentID(name), data); err != nil {
		// A partially written blob must not outlive the failed STORE
		_ = d.store.DeleteContent(ctx, content.ContentID(name))
		return StoreResult{}, fmt.Errorf("store %q: %w", name, err)
	}

	clusters, err := d.pool.AddFile(name, blocks)
	if err != nil {
		_ = d.store.DeleteContent(ctx, content.ContentID(name))
		return StoreResult{}, err
	}

	id, _ := d.pool.Identifier(name)
	result := StoreResult{
		Identifier: id,
		Bytes:      size,
		Blocks:     blocks,
		Clusters:   clusters,
	}

	logger.Info("Stored file '%c' (%d bytes; %s; %s)", id, size,
		plural(blocks, "block"), plural(clusters, "cluster"))
	d.logBlockMap()

	d.metrics.ObserveAllocation(blocks, clusters)
	d.metrics.RecordBytes("write", size)
	d.publishGauges()

	return result, nil
}

// Read returns length bytes of name starting at offset, along with the
// full blob length.
func (d *Disk) Read(ctx context.Context, name string, offset, length int64) (ReadResult, error) {
	if offset < 0 || length < 0 {
		return ReadResult{}, fmt.Errorf("read %q: negative offset or length: %w", name, ErrInvalidRange)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	id, ok := d.pool.Identifier(name)
	if !ok {
		return ReadResult{}, fmt.Errorf("read %q: %w", name, ErrNoSuchFile)
	}

	data, err := d.store.ReadContent(ctx, content.ContentID(name))
	if err != nil {
		if errors.Is(err, content.ErrContentNotFound) {
			return ReadResult{}, fmt.Errorf("read %q: %w: %w", name, ErrNoSuchFile, err)
		}
		return ReadResult{}, fmt.Errorf("read %q: %w", name, err)
	}

	size := int64(len(data))
	if offset > size || length > size-offset {
		return ReadResult{}, fmt.Errorf("read %q: range %d+%d exceeds %d bytes: %w",
			name, offset, length, size, ErrInvalidRange)
	}

	blocks := d.pool.ReadFile(int(offset), int(length))
	logger.Info("Sent %d bytes (from %d '%c' %s) from offset %d",
		length, blocks, id, pluralWord(blocks, "block"), offset)

	d.metrics.RecordBytes("read", length)

	return ReadResult{
		Identifier: id,
		Size:       size,
		Data:       data[offset : offset+length],
		Blocks:     blocks,
	}, nil
}

// Delete removes name from the store and frees its blocks.
//
// A blob already missing from the store still has its blocks freed. Any
// other store failure leaves the allocator untouched.
func (d *Disk) Delete(ctx context.Context, name string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id, ok := d.pool.Identifier(name)
	if !ok {
		return 0, fmt.Errorf("delete %q: %w", name, ErrNoSuchFile)
	}

	err := d.store.DeleteContent(ctx, content.ContentID(name))
	if err != nil && !errors.Is(err, content.ErrContentNotFound) {
		return 0, fmt.Errorf("delete %q: %w", name, err)
	}

	freed, err := d.pool.RemoveFile(name)
	if err != nil {
		return 0, err
	}

	logger.Info("Deleted %s file '%c' (deallocated %d blocks)", name, id, freed)
	d.logBlockMap()
	d.publishGauges()

	return freed, nil
}

// List returns the stored names in lexicographic order.
func (d *Disk) List(ctx context.Context) []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.pool.ListFiles()
}

// Stats returns a summary of the allocator.
func (d *Disk) Stats() alloc.Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.pool.Stats()
}

// Capacity returns the number of bytes the disk can hold when empty.
func (d *Disk) Capacity() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.pool.Capacity()
}

// BlockMap returns a copy of the block array.
func (d *Disk) BlockMap() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.pool.Snapshot()
}

// Render returns the operator view of the block array.
func (d *Disk) Render() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.pool.Render()
}

// Close closes the content store.
func (d *Disk) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.store.Close()
}

// logBlockMap must be called with mu held.
func (d *Disk) logBlockMap() {
	if logger.Enabled(logger.LevelDebug) {
		logger.Debug("%s", d.pool.Render())
	}
}

// publishGauges must be called with mu held.
func (d *Disk) publishGauges() {
	d.metrics.SetFreeBlocks(d.pool.FreeBlocks())
	d.metrics.SetFiles(d.pool.Stats().Files)
}

func plural(n int, word string) string {
	return fmt.Sprintf("%d %s", n, pluralWord(n, word))
}

func pluralWord(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
