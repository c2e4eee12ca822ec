package disk

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/marmos91/clusterfs/pkg/alloc"
	"github.com/marmos91/clusterfs/pkg/store/content"
	"github.com/marmos91/clusterfs/pkg/store/content/fs"
	"github.com/marmos91/clusterfs/pkg/store/content/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// faultyStore fails the selected operations and delegates the rest.
type faultyStore struct {
	content.ContentStore
	failWrite  error
	failRead   error
	failDelete error
}

func (s *faultyStore) WriteContent(ctx context.Context, id content.ContentID, data []byte) error {
	if s.failWrite != nil {
		return s.failWrite
	}
	return s.ContentStore.WriteContent(ctx, id, data)
}

func (s *faultyStore) ReadContent(ctx context.Context, id content.ContentID) ([]byte, error) {
	if s.failRead != nil {
		return nil, s.failRead
	}
	return s.ContentStore.ReadContent(ctx, id)
}

func (s *faultyStore) DeleteContent(ctx context.Context, id content.ContentID) error {
	if s.failDelete != nil {
		return s.failDelete
	}
	return s.ContentStore.DeleteContent(ctx, id)
}

func newMemoryStore(t *testing.T) content.ContentStore {
	t.Helper()
	store, err := memory.NewMemoryContentStore(context.Background())
	require.NoError(t, err)
	return store
}

func newDisk(t *testing.T, store content.ContentStore, blockSize, numBlocks int) *Disk {
	t.Helper()
	d, err := Open(context.Background(), Config{
		Pool:         alloc.PoolConfig{BlockSize: blockSize, NumBlocks: numBlocks},
		ResetOnStart: true,
	}, store, nil)
	require.NoError(t, err)
	return d
}

func TestOpenRequiresStore(t *testing.T) {
	_, err := Open(context.Background(), Config{}, nil, nil)
	assert.Error(t, err)
}

func TestOpenRejectsInvalidGeometry(t *testing.T) {
	_, err := Open(context.Background(), Config{
		Pool: alloc.PoolConfig{BlockSize: -1},
	}, newMemoryStore(t), nil)
	assert.ErrorIs(t, err, alloc.ErrInvalidConfig)
}

func TestStoreReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	d := newDisk(t, newMemoryStore(t), 4, 16)

	payload := []byte("hello, clustered world")
	res, err := d.Store(ctx, "greeting", payload)
	require.NoError(t, err)
	assert.Equal(t, byte('A'), res.Identifier)
	assert.Equal(t, int64(len(payload)), res.Bytes)
	assert.Equal(t, 6, res.Blocks)
	assert.Equal(t, 1, res.Clusters)

	read, err := d.Read(ctx, "greeting", 0, int64(len(payload)))
	require.NoError(t, err)
	assert.Equal(t, payload, read.Data)
	assert.Equal(t, int64(len(payload)), read.Size)
	assert.Equal(t, 6, read.Blocks)

	partial, err := d.Read(ctx, "greeting", 7, 9)
	require.NoError(t, err)
	assert.Equal(t, []byte("clustered"), partial.Data)
	assert.Equal(t, int64(len(payload)), partial.Size, "size reports the whole blob")
	assert.Equal(t, 3, partial.Blocks)
}

func TestStoreZeroBytes(t *testing.T) {
	ctx := context.Background()
	d := newDisk(t, newMemoryStore(t), 4, 8)

	res, err := d.Store(ctx, "empty", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Blocks)
	assert.Equal(t, 0, res.Clusters)

	read, err := d.Read(ctx, "empty", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, read.Data)
	assert.Equal(t, []string{"empty"}, d.List(ctx))
}

func TestStoreExistenceGuard(t *testing.T) {
	ctx := context.Background()
	d := newDisk(t, newMemoryStore(t), 4, 8)

	_, err := d.Store(ctx, "f", []byte("first"))
	require.NoError(t, err)
	before := d.BlockMap()

	_, err = d.Store(ctx, "f", []byte("second"))
	assert.ErrorIs(t, err, ErrFileExists)
	assert.Equal(t, before, d.BlockMap())

	read, err := d.Read(ctx, "f", 0, 5)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), read.Data)
}

func TestStoreNoSpace(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(t)
	d := newDisk(t, store, 4, 4)

	_, err := d.Store(ctx, "big", make([]byte, 17))
	assert.ErrorIs(t, err, ErrNoSpace)
	assert.Empty(t, d.List(ctx))

	ids, err := store.ListContent(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids, "nothing written on rejection")
}

func TestStoreNoIdentifiers(t *testing.T) {
	ctx := context.Background()
	d, err := Open(ctx, Config{
		Pool:         alloc.PoolConfig{BlockSize: 4, NumBlocks: 8, Alphabet: "XY"},
		ResetOnStart: true,
	}, newMemoryStore(t), nil)
	require.NoError(t, err)

	_, err = d.Store(ctx, "a", []byte("a"))
	require.NoError(t, err)
	_, err = d.Store(ctx, "b", []byte("b"))
	require.NoError(t, err)

	_, err = d.Store(ctx, "c", []byte("c"))
	assert.ErrorIs(t, err, ErrNoIdentifiers)
}

func TestStoreWriteFailureLeavesAllocatorUntouched(t *testing.T) {
	ctx := context.Background()
	store := &faultyStore{
		ContentStore: newMemoryStore(t),
		failWrite:    fmt.Errorf("disk full: %w", content.ErrCannotWrite),
	}
	d := newDisk(t, store, 4, 8)
	before := d.Stats()

	_, err := d.Store(ctx, "f", []byte("data"))
	assert.ErrorIs(t, err, content.ErrCannotWrite)

	assert.Equal(t, before, d.Stats())
	assert.Empty(t, d.List(ctx))
}

func TestStoreInvalidNameOnFilesystem(t *testing.T) {
	ctx := context.Background()
	store, err := fs.NewFSContentStore(ctx, t.TempDir())
	require.NoError(t, err)
	d := newDisk(t, store, 4, 8)

	_, err = d.Store(ctx, "../escape", []byte("x"))
	assert.ErrorIs(t, err, content.ErrCannotCreate)
	assert.Equal(t, 8, d.Stats().FreeBlocks)
}

func TestReadRangeRejection(t *testing.T) {
	ctx := context.Background()
	d := newDisk(t, newMemoryStore(t), 4, 8)

	_, err := d.Store(ctx, "f", []byte("0123456789"))
	require.NoError(t, err)
	before := d.BlockMap()

	tests := []struct {
		name           string
		offset, length int64
	}{
		{"past end", 5, 6},
		{"offset beyond size", 11, 0},
		{"negative offset", -1, 2},
		{"negative length", 0, -2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Read(ctx, "f", tt.offset, tt.length)
			assert.ErrorIs(t, err, ErrInvalidRange)
		})
	}

	// Exactly up to the end is fine
	res, err := d.Read(ctx, "f", 4, 6)
	require.NoError(t, err)
	assert.Equal(t, []byte("456789"), res.Data)

	assert.Equal(t, before, d.BlockMap())
}

func TestReadMissingFile(t *testing.T) {
	d := newDisk(t, newMemoryStore(t), 4, 8)

	_, err := d.Read(context.Background(), "ghost", 0, 0)
	assert.ErrorIs(t, err, ErrNoSuchFile)
}

func TestReadStoreFailure(t *testing.T) {
	ctx := context.Background()
	store := &faultyStore{ContentStore: newMemoryStore(t)}
	d := newDisk(t, store, 4, 8)

	_, err := d.Store(ctx, "f", []byte("abc"))
	require.NoError(t, err)

	store.failRead = fmt.Errorf("io: %w", content.ErrCannotRead)
	_, err = d.Read(ctx, "f", 0, 1)
	assert.ErrorIs(t, err, content.ErrCannotRead)

	store.failRead = content.ErrContentNotFound
	_, err = d.Read(ctx, "f", 0, 1)
	assert.ErrorIs(t, err, ErrNoSuchFile)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	d := newDisk(t, newMemoryStore(t), 4, 8)

	_, err := d.Store(ctx, "a", []byte("aaaaaaa"))
	require.NoError(t, err)
	_, err = d.Store(ctx, "b", []byte("bb"))
	require.NoError(t, err)
	assert.Equal(t, "AAB.....", string(d.BlockMap()))

	freed, err := d.Delete(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 2, freed)
	assert.Equal(t, "..B.....", string(d.BlockMap()))

	_, err = d.Read(ctx, "a", 0, 0)
	assert.ErrorIs(t, err, ErrNoSuchFile)

	_, err = d.Delete(ctx, "a")
	assert.ErrorIs(t, err, ErrNoSuchFile)
}

func TestDeleteWildcardRejected(t *testing.T) {
	ctx := context.Background()
	d := newDisk(t, newMemoryStore(t), 4, 8)

	_, err := d.Store(ctx, "keep", []byte("x"))
	require.NoError(t, err)

	_, err = d.Delete(ctx, "*")
	assert.ErrorIs(t, err, ErrNoSuchFile)
	assert.Equal(t, []string{"keep"}, d.List(ctx))
}

func TestDeleteStoreFailureKeepsBlocks(t *testing.T) {
	ctx := context.Background()
	store := &faultyStore{ContentStore: newMemoryStore(t)}
	d := newDisk(t, store, 4, 8)

	_, err := d.Store(ctx, "f", []byte("abcdef"))
	require.NoError(t, err)
	before := d.Stats()

	store.failDelete = fmt.Errorf("permission denied")
	_, err = d.Delete(ctx, "f")
	assert.Error(t, err)
	assert.Equal(t, before, d.Stats())

	// A blob that vanished behind our back still frees its blocks
	store.failDelete = content.ErrContentNotFound
	freed, err := d.Delete(ctx, "f")
	require.NoError(t, err)
	assert.Equal(t, 2, freed)
}

func TestListSorted(t *testing.T) {
	ctx := context.Background()
	d := newDisk(t, newMemoryStore(t), 4, 16)

	assert.Empty(t, d.List(ctx))

	for _, name := range []string{"zeta", "alpha", "Mid", "beta"} {
		_, err := d.Store(ctx, name, []byte(name))
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"Mid", "alpha", "beta", "zeta"}, d.List(ctx))
}

func TestOpenResetWipesStore(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(t)
	require.NoError(t, store.WriteContent(ctx, "stale", []byte("old")))

	d := newDisk(t, store, 4, 8)
	assert.Empty(t, d.List(ctx))

	ids, err := store.ListContent(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestOpenRestoresExistingContent(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(t)
	require.NoError(t, store.WriteContent(ctx, "b", []byte("bbbbb")))
	require.NoError(t, store.WriteContent(ctx, "a", []byte("aa")))

	d, err := Open(ctx, Config{
		Pool: alloc.PoolConfig{BlockSize: 4, NumBlocks: 8},
	}, store, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, d.List(ctx))
	assert.Equal(t, "ABB.....", string(d.BlockMap()))

	res, err := d.Read(ctx, "b", 1, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte("bbb"), res.Data)
}

func TestOpenRestoreFailsWhenContentDoesNotFit(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(t)
	require.NoError(t, store.WriteContent(ctx, "huge", make([]byte, 100)))

	_, err := Open(ctx, Config{
		Pool: alloc.PoolConfig{BlockSize: 4, NumBlocks: 8},
	}, store, nil)
	assert.ErrorIs(t, err, alloc.ErrNoSpace)
}

// Concurrent STOREs racing for the last free blocks: exactly the ones that
// fit must succeed and the block map must stay consistent.
func TestConcurrentStoresSerialize(t *testing.T) {
	ctx := context.Background()
	d := newDisk(t, newMemoryStore(t), 4, 16)

	const clients = 12
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		noSpace   int
	)

	for i := range clients {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// 8 bytes = 2 blocks each; only 8 clients fit
			_, err := d.Store(ctx, fmt.Sprintf("file-%02d", i), make([]byte, 8))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case assert.ErrorIs(t, err, ErrNoSpace):
				noSpace++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 8, succeeded)
	assert.Equal(t, 4, noSpace)

	stats := d.Stats()
	assert.Equal(t, 0, stats.FreeBlocks)
	assert.Equal(t, 8, stats.Files)

	counts := make(map[byte]int)
	for _, b := range d.BlockMap() {
		counts[b]++
	}
	assert.Len(t, counts, 8)
	for id, n := range counts {
		assert.Equal(t, 2, n, "identifier %c", id)
	}
}

// Two clients storing the same name at once: one wins.
func TestConcurrentSameName(t *testing.T) {
	ctx := context.Background()
	d := newDisk(t, newMemoryStore(t), 4, 64)

	const clients = 10
	errs := make(chan error, clients)
	var wg sync.WaitGroup
	for range clients {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.Store(ctx, "contested", []byte("payload"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, ErrFileExists)
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 62, d.Stats().FreeBlocks)
}

func TestPlural(t *testing.T) {
	assert.Equal(t, "1 block", plural(1, "block"))
	assert.Equal(t, "0 clusters", plural(0, "cluster"))
	assert.Equal(t, "3 clusters", plural(3, "cluster"))
}
