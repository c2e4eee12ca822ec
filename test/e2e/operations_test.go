package e2e

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreAndRead(t *testing.T) {
	runOnAllConfigs(t, func(t *testing.T, tc *TestContext) {
		c := tc.Dial()

		status, err := c.Store("greeting", []byte("hello world"))
		require.NoError(t, err)
		assert.Equal(t, "ACK", status)

		status, size, data, err := c.Read("greeting", 0, 11)
		require.NoError(t, err)
		assert.Equal(t, "ACK 11", status)
		assert.Equal(t, 11, size)
		assert.Equal(t, "hello world", string(data))

		// The header reports the whole blob, not the range
		status, size, data, err = c.Read("greeting", 6, 5)
		require.NoError(t, err)
		assert.Equal(t, "ACK 11", status)
		assert.Equal(t, 11, size)
		assert.Equal(t, "world", string(data))
	})
}

func TestStoreEmptyFile(t *testing.T) {
	runOnAllConfigs(t, func(t *testing.T, tc *TestContext) {
		c := tc.Dial()

		status, err := c.Store("empty", nil)
		require.NoError(t, err)
		assert.Equal(t, "ACK", status)

		status, _, data, err := c.Read("empty", 0, 0)
		require.NoError(t, err)
		assert.Equal(t, "ACK 0", status)
		assert.Empty(t, data)

		names, err := c.Dir()
		require.NoError(t, err)
		assert.Equal(t, []string{"empty"}, names)
	})
}

func TestStoreExisting(t *testing.T) {
	runOnAllConfigs(t, func(t *testing.T, tc *TestContext) {
		c := tc.Dial()

		status, err := c.Store("twice", []byte("one"))
		require.NoError(t, err)
		assert.Equal(t, "ACK", status)

		status, err = c.Store("twice", []byte("two"))
		require.NoError(t, err)
		assert.Equal(t, "ERROR: FILE EXISTS", status)

		_, _, data, err := c.Read("twice", 0, 3)
		require.NoError(t, err)
		assert.Equal(t, "one", string(data))
	})
}

func TestDirSorted(t *testing.T) {
	runOnAllConfigs(t, func(t *testing.T, tc *TestContext) {
		c := tc.Dial()

		names, err := c.Dir()
		require.NoError(t, err)
		assert.Empty(t, names)

		for _, name := range []string{"beta", "alpha", "gamma"} {
			status, err := c.Store(name, []byte(name))
			require.NoError(t, err)
			require.Equal(t, "ACK", status)
		}

		names, err = c.Dir()
		require.NoError(t, err)
		assert.Equal(t, []string{"alpha", "beta", "gamma"}, names)
	})
}

func TestDelete(t *testing.T) {
	runOnAllConfigs(t, func(t *testing.T, tc *TestContext) {
		c := tc.Dial()

		_, err := c.Store("doomed", []byte("bytes"))
		require.NoError(t, err)

		status, err := c.Delete("doomed")
		require.NoError(t, err)
		assert.Equal(t, "ACK", status)

		status, _, _, err = c.Read("doomed", 0, 1)
		require.NoError(t, err)
		assert.Equal(t, "ERROR: NO SUCH FILE", status)

		status, err = c.Delete("doomed")
		require.NoError(t, err)
		assert.Equal(t, "ERROR: NO SUCH FILE", status)

		status, err = c.Delete("*")
		require.NoError(t, err)
		assert.Equal(t, "ERROR: NO SUCH FILE", status)

		// The name is free again
		status, err = c.Store("doomed", []byte("again"))
		require.NoError(t, err)
		assert.Equal(t, "ACK", status)
	})
}

func TestReadInvalidRange(t *testing.T) {
	runOnAllConfigs(t, func(t *testing.T, tc *TestContext) {
		c := tc.Dial()

		_, err := c.Store("short", []byte("12345"))
		require.NoError(t, err)

		status, _, _, err := c.Read("short", 3, 3)
		require.NoError(t, err)
		assert.Equal(t, "ERROR: INVALID BYTE RANGE", status)

		status, _, _, err = c.Read("short", 6, 0)
		require.NoError(t, err)
		assert.Equal(t, "ERROR: INVALID BYTE RANGE", status)

		// The connection survives protocol errors
		status, _, data, err := c.Read("short", 5, 0)
		require.NoError(t, err)
		assert.Equal(t, "ACK 5", status)
		assert.Empty(t, data)
	})
}

func TestMalformedInstructions(t *testing.T) {
	runOnAllConfigs(t, func(t *testing.T, tc *TestContext) {
		c := tc.Dial()

		tests := []struct {
			raw  string
			want string
		}{
			{"FORMAT\n", "ERROR: First argument must be STORE, READ, DELETE, or DIR"},
			{"STORE onlyname\n", "ERROR: STORE command must be in the form 'STORE <filename> <bytes>'"},
			{"STORE f -3\n", "ERROR: The <bytes> argument must be a positive integer"},
			{"READ f 0\n", "ERROR: READ command must be in the form 'READ <filename> <byte_offset> <length>'"},
			{"READ f x 1\n", "ERROR: Byte-offset and length need to be positive integers"},
			{"DELETE\n", "ERROR: DELETE command must be in the form 'DELETE <filename>'"},
			{"DIR extra\n", "ERROR: DIR command must be in the form 'DIR'"},
		}

		for _, tt := range tests {
			status, err := c.Send(tt.raw)
			require.NoError(t, err, tt.raw)
			assert.Equal(t, tt.want, status, tt.raw)
		}

		names, err := c.Dir()
		require.NoError(t, err)
		assert.Empty(t, names)
	})
}

func TestNoSpace(t *testing.T) {
	// 4 blocks of 8 bytes
	configs := withGeometry(AllConfigurations(), 8, 4, "")

	runOnConfigs(t, configs, func(t *testing.T, tc *TestContext) {
		c := tc.Dial()

		// Larger than the whole disk: the payload is skipped
		status, err := c.Store("huge", pattern('h', 33))
		require.NoError(t, err)
		assert.Equal(t, "ERROR: NOT ENOUGH MEMORY AVAILABLE", status)

		status, err = c.Store("half", pattern('a', 16))
		require.NoError(t, err)
		assert.Equal(t, "ACK", status)

		// Fits the disk but not the free space
		status, err = c.Store("big", pattern('b', 17))
		require.NoError(t, err)
		assert.Equal(t, "ERROR: NOT ENOUGH MEMORY AVAILABLE", status)

		status, err = c.Store("rest", pattern('r', 16))
		require.NoError(t, err)
		assert.Equal(t, "ACK", status)

		names, err := c.Dir()
		require.NoError(t, err)
		assert.Equal(t, []string{"half", "rest"}, names)
	})
}

func TestIdentifierExhaustion(t *testing.T) {
	configs := withGeometry(AllConfigurations(), 4, 16, "XY")

	runOnConfigs(t, configs, func(t *testing.T, tc *TestContext) {
		c := tc.Dial()

		for _, name := range []string{"one", "two"} {
			status, err := c.Store(name, []byte("data"))
			require.NoError(t, err)
			require.Equal(t, "ACK", status)
		}

		status, err := c.Store("three", []byte("data"))
		require.NoError(t, err)
		assert.Equal(t, "ERROR: NO IDENTIFIERS AVAILABLE", status)

		status, err = c.Delete("one")
		require.NoError(t, err)
		require.Equal(t, "ACK", status)

		status, err = c.Store("three", []byte("data"))
		require.NoError(t, err)
		assert.Equal(t, "ACK", status)
	})
}

func TestFirstFitFragmentation(t *testing.T) {
	configs := withGeometry(AllConfigurations(), 4, 8, "")

	runOnConfigs(t, configs, func(t *testing.T, tc *TestContext) {
		ctx := context.Background()
		c := tc.Dial()

		for _, f := range []struct {
			name string
			size int
		}{{"a", 12}, {"b", 8}, {"c", 4}} {
			status, err := c.Store(f.name, pattern(f.name[0], f.size))
			require.NoError(t, err)
			require.Equal(t, "ACK", status)
		}

		id := func(name string) byte {
			res, err := tc.Disk.Read(ctx, name, 0, 0)
			require.NoError(t, err)
			return res.Identifier
		}
		a, b, cc := id("a"), id("b"), id("c")
		assert.Equal(t, string([]byte{a, a, a, b, b, cc, '.', '.'}), string(tc.Disk.BlockMap()))

		status, err := c.Delete("b")
		require.NoError(t, err)
		require.Equal(t, "ACK", status)

		// Three blocks: the two freed ones and the first tail block
		status, err = c.Store("d", pattern('d', 12))
		require.NoError(t, err)
		require.Equal(t, "ACK", status)

		d := id("d")
		assert.Equal(t, string([]byte{a, a, a, d, d, cc, d, '.'}), string(tc.Disk.BlockMap()))

		_, _, data, err := c.Read("d", 0, 12)
		require.NoError(t, err)
		assert.Equal(t, pattern('d', 12), data)
	})
}

func TestPipelinedInstructions(t *testing.T) {
	runOnAllConfigs(t, func(t *testing.T, tc *TestContext) {
		c := tc.Dial()

		// Several instructions in one write are answered in order
		status, err := c.Send("STORE p1 2\nhiSTORE p2 3\nyo!DIR\n")
		require.NoError(t, err)
		assert.Equal(t, "ACK", status)

		status, err = c.readLine()
		require.NoError(t, err)
		assert.Equal(t, "ACK", status)

		var lines []string
		for range 3 {
			line, err := c.readLine()
			require.NoError(t, err)
			lines = append(lines, line)
		}
		assert.Equal(t, []string{"2", "p1", "p2"}, lines)
	})
}

func TestConcurrentClients(t *testing.T) {
	runOnAllConfigs(t, func(t *testing.T, tc *TestContext) {
		const clients = 10

		conns := make([]*Client, clients)
		for i := range conns {
			conns[i] = tc.Dial()
		}

		var wg sync.WaitGroup
		errs := make(chan error, clients)
		for i, c := range conns {
			wg.Add(1)
			go func(i int, c *Client) {
				defer wg.Done()

				name := fmt.Sprintf("file%02d", i)
				body := strings.Repeat(name, 100)
				status, err := c.Store(name, []byte(body))
				if err != nil {
					errs <- err
					return
				}
				if status != "ACK" {
					errs <- fmt.Errorf("%s: %s", name, status)
					return
				}

				_, _, data, err := c.Read(name, 0, len(body))
				if err != nil {
					errs <- err
					return
				}
				if string(data) != body {
					errs <- fmt.Errorf("%s: read back %d unexpected bytes", name, len(data))
				}
			}(i, c)
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			t.Error(err)
		}

		names, err := conns[0].Dir()
		require.NoError(t, err)
		assert.Len(t, names, clients)
	})
}

// Two clients race for the last free blocks; exactly one wins.
func TestConcurrentStoreSameSpace(t *testing.T) {
	configs := withGeometry(AllConfigurations(), 8, 2, "")

	runOnConfigs(t, configs, func(t *testing.T, tc *TestContext) {
		first, second := tc.Dial(), tc.Dial()

		var wg sync.WaitGroup
		results := make([]string, 2)
		for i, c := range []*Client{first, second} {
			wg.Add(1)
			go func(i int, c *Client) {
				defer wg.Done()
				status, err := c.Store(fmt.Sprintf("racer%d", i), pattern('r', 16))
				if err != nil {
					status = err.Error()
				}
				results[i] = status
			}(i, c)
		}
		wg.Wait()

		assert.ElementsMatch(t, []string{"ACK", "ERROR: NOT ENOUGH MEMORY AVAILABLE"}, results)
		assert.Zero(t, tc.Disk.Stats().FreeBlocks)
	})
}
