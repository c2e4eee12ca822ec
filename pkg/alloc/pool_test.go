package alloc

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T, blockSize, numBlocks int) *Pool {
	t.Helper()
	p, err := NewPool(PoolConfig{BlockSize: blockSize, NumBlocks: numBlocks})
	require.NoError(t, err)
	return p
}

// assertConservation checks that every owned block belongs to a registered
// file and that the free counter matches the array.
func assertConservation(t *testing.T, p *Pool) {
	t.Helper()

	owned := 0
	for _, name := range p.ListFiles() {
		owned += p.FileBlocks(name)
	}

	nonFree := 0
	for _, b := range p.Snapshot() {
		if b != FreeMarker {
			nonFree++
		}
	}

	assert.Equal(t, nonFree, owned, "owned blocks must match non-free blocks")
	assert.Equal(t, p.NumBlocks()-nonFree, p.FreeBlocks(), "free counter out of sync")
}

func TestNewPool_Defaults(t *testing.T) {
	p, err := NewPool(PoolConfig{})
	require.NoError(t, err)

	assert.Equal(t, DefaultBlockSize, p.BlockSize())
	assert.Equal(t, DefaultNumBlocks, p.NumBlocks())
	assert.Equal(t, DefaultNumBlocks, p.FreeBlocks())
	assert.Equal(t, int64(DefaultBlockSize*DefaultNumBlocks), p.Capacity())
	assert.Equal(t, 26, p.Stats().FreeIdentifiers)
	assert.Equal(t, strings.Repeat(".", DefaultNumBlocks), string(p.Snapshot()))
}

func TestNewPool_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  PoolConfig
	}{
		{"negative block size", PoolConfig{BlockSize: -1}},
		{"negative block count", PoolConfig{NumBlocks: -4}},
		{"free marker in alphabet", PoolConfig{Alphabet: "AB."}},
		{"duplicate identifier", PoolConfig{Alphabet: "ABA"}},
		{"whitespace identifier", PoolConfig{Alphabet: "A B"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPool(tt.cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
		})
	}
}

func TestBlocksFor(t *testing.T) {
	p := newTestPool(t, 4096, 128)

	tests := []struct {
		size int64
		want int
	}{
		{0, 0},
		{1, 1},
		{4095, 1},
		{4096, 1},
		{4097, 2},
		{8192, 2},
		{10000, 3},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("size=%d", tt.size), func(t *testing.T) {
			assert.Equal(t, tt.want, p.BlocksFor(tt.size))
		})
	}
}

func TestAddFile_FirstFitContiguous(t *testing.T) {
	p := newTestPool(t, 4, 16)

	clusters, err := p.AddFile("a.txt", 3)
	require.NoError(t, err)
	assert.Equal(t, 1, clusters)

	clusters, err = p.AddFile("b.txt", 2)
	require.NoError(t, err)
	assert.Equal(t, 1, clusters)

	assert.Equal(t, "AAABB...........", string(p.Snapshot()))
	assert.Equal(t, 11, p.FreeBlocks())
	assertConservation(t, p)
}

func TestAddFile_Fragmentation(t *testing.T) {
	p := newTestPool(t, 4, 8)

	for _, name := range []string{"a", "b", "c"} {
		clusters, err := p.AddFile(name, 2)
		require.NoError(t, err)
		require.Equal(t, 1, clusters)
	}
	require.Equal(t, "AABBCC..", string(p.Snapshot()))

	freed, err := p.RemoveFile("b")
	require.NoError(t, err)
	assert.Equal(t, 2, freed)
	assert.Equal(t, "AA..CC..", string(p.Snapshot()))

	// three blocks fill the hole left by b and continue after c
	clusters, err := p.AddFile("d", 3)
	require.NoError(t, err)
	assert.Equal(t, 2, clusters)
	assert.Equal(t, "AADDCCD.", string(p.Snapshot()))
	assertConservation(t, p)
}

func TestAddFile_ManyHoles(t *testing.T) {
	p := newTestPool(t, 1, 9)

	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i"} {
		_, err := p.AddFile(name, 1)
		require.NoError(t, err)
	}
	for _, name := range []string{"b", "d", "f", "h"} {
		_, err := p.RemoveFile(name)
		require.NoError(t, err)
	}
	require.Equal(t, "A.C.E.G.I", string(p.Snapshot()))

	clusters, err := p.AddFile("x", 4)
	require.NoError(t, err)
	assert.Equal(t, 4, clusters)
	assertConservation(t, p)
}

func TestAddFile_ZeroBlocks(t *testing.T) {
	p := newTestPool(t, 4, 4)

	clusters, err := p.AddFile("empty", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, clusters)
	assert.True(t, p.ContainsFile("empty"))
	assert.Equal(t, 0, p.FileBlocks("empty"))
	assert.Equal(t, 4, p.FreeBlocks())
}

func TestAddFile_Errors(t *testing.T) {
	t.Run("exists", func(t *testing.T) {
		p := newTestPool(t, 4, 4)
		_, err := p.AddFile("a", 1)
		require.NoError(t, err)

		_, err = p.AddFile("a", 1)
		assert.True(t, errors.Is(err, ErrFileExists))
		assert.Equal(t, "A...", string(p.Snapshot()))
	})

	t.Run("no space", func(t *testing.T) {
		p := newTestPool(t, 4, 4)
		_, err := p.AddFile("a", 3)
		require.NoError(t, err)

		_, err = p.AddFile("b", 2)
		assert.True(t, errors.Is(err, ErrNoSpace))
		assert.False(t, p.ContainsFile("b"))
		assert.Equal(t, "AAA.", string(p.Snapshot()))
		assert.Equal(t, 25, p.Stats().FreeIdentifiers)
	})

	t.Run("no identifiers", func(t *testing.T) {
		p, err := NewPool(PoolConfig{BlockSize: 4, NumBlocks: 8, Alphabet: "XY"})
		require.NoError(t, err)

		_, err = p.AddFile("a", 1)
		require.NoError(t, err)
		_, err = p.AddFile("b", 1)
		require.NoError(t, err)

		_, err = p.AddFile("c", 1)
		assert.True(t, errors.Is(err, ErrNoIdentifiers))
		assert.Equal(t, "XY......", string(p.Snapshot()))
	})

	t.Run("negative", func(t *testing.T) {
		p := newTestPool(t, 4, 4)
		_, err := p.AddFile("a", -1)
		assert.Error(t, err)
		assert.False(t, p.ContainsFile("a"))
	})
}

func TestRemoveFile_NotFound(t *testing.T) {
	p := newTestPool(t, 4, 4)
	_, err := p.RemoveFile("missing")
	assert.True(t, errors.Is(err, ErrFileNotFound))
}

func TestIdentifiers_RecycledAtTail(t *testing.T) {
	p, err := NewPool(PoolConfig{BlockSize: 1, NumBlocks: 8, Alphabet: "ABC"})
	require.NoError(t, err)

	_, err = p.AddFile("one", 1)
	require.NoError(t, err)
	_, err = p.AddFile("two", 1)
	require.NoError(t, err)

	_, err = p.RemoveFile("one")
	require.NoError(t, err)

	// C is still ahead of the released A
	_, err = p.AddFile("three", 1)
	require.NoError(t, err)
	id, ok := p.Identifier("three")
	require.True(t, ok)
	assert.Equal(t, byte('C'), id)

	_, err = p.AddFile("four", 1)
	require.NoError(t, err)
	id, _ = p.Identifier("four")
	assert.Equal(t, byte('A'), id)
}

func TestIdentifiers_Unique(t *testing.T) {
	p := newTestPool(t, 1, 64)

	names := make([]string, 0, 26)
	for i := 0; i < 26; i++ {
		name := fmt.Sprintf("file-%02d", i)
		_, err := p.AddFile(name, 1)
		require.NoError(t, err)
		names = append(names, name)
	}

	seen := make(map[byte]string)
	for _, name := range names {
		id, ok := p.Identifier(name)
		require.True(t, ok)
		if other, dup := seen[id]; dup {
			t.Fatalf("identifier %q shared by %s and %s", id, other, name)
		}
		seen[id] = name
	}
	assert.Equal(t, 0, p.Stats().FreeIdentifiers)
}

func TestReadFile(t *testing.T) {
	p := newTestPool(t, 4096, 128)

	tests := []struct {
		name          string
		offset, count int
		want          int
	}{
		{"empty range", 0, 0, 0},
		{"single byte", 0, 1, 1},
		{"exact block", 0, 4096, 1},
		{"one past block", 0, 4097, 2},
		{"straddles boundary", 4000, 200, 2},
		{"inside second block", 5000, 100, 1},
		{"three blocks", 100, 8192, 3},
		{"aligned two blocks", 4096, 8192, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.ReadFile(tt.offset, tt.count))
		})
	}
}

func TestListFiles_Sorted(t *testing.T) {
	p := newTestPool(t, 4, 16)
	for _, name := range []string{"zeta", "alpha", "mid"} {
		_, err := p.AddFile(name, 1)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, p.ListFiles())
}

func TestRender(t *testing.T) {
	p := newTestPool(t, 4, 8)
	_, err := p.AddFile("a", 3)
	require.NoError(t, err)

	want := "Simulated Clustered Disk Space Allocation:\n" +
		"==\n" +
		"AA\n" +
		"A.\n" +
		"..\n" +
		"..\n" +
		"==\n"
	assert.Equal(t, want, p.Render())
}

func TestConservation_RandomWorkload(t *testing.T) {
	p := newTestPool(t, 1, 32)

	ops := []struct {
		add    bool
		name   string
		blocks int
	}{
		{true, "a", 5}, {true, "b", 7}, {true, "c", 3},
		{false, "b", 0}, {true, "d", 9}, {true, "e", 2},
		{false, "a", 0}, {true, "f", 6}, {false, "d", 0},
		{true, "g", 12},
	}

	for _, op := range ops {
		if op.add {
			_, err := p.AddFile(op.name, op.blocks)
			require.NoError(t, err, "add %s", op.name)
			assert.Equal(t, op.blocks, p.FileBlocks(op.name))
		} else {
			_, err := p.RemoveFile(op.name)
			require.NoError(t, err, "remove %s", op.name)
		}
		assertConservation(t, p)
	}
}
