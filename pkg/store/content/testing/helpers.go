package testing

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/marmos91/clusterfs/pkg/store/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var idCounter atomic.Uint64

// AssertErrorIs checks if the error matches the expected error using errors.Is.
func AssertErrorIs(t *testing.T, expected error, actual error) {
	t.Helper()
	if !errors.Is(actual, expected) {
		t.Errorf("Expected error %v, got %v", expected, actual)
	}
}

// generateTestID returns a unique, filesystem-safe content id.
func generateTestID(name string) content.ContentID {
	return content.ContentID(fmt.Sprintf("%s-%d", name, idCounter.Add(1)))
}

// generateTestData returns size bytes of a repeating pattern.
func generateTestData(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

// mustWriteContent writes content and fails the test if it errors.
func mustWriteContent(t *testing.T, store content.ContentStore, id content.ContentID, data []byte) {
	t.Helper()
	err := store.WriteContent(testContext(), id, data)
	require.NoError(t, err, "WriteContent should succeed")
}

// mustReadContent reads content and fails the test if it errors.
func mustReadContent(t *testing.T, store content.ContentStore, id content.ContentID) []byte {
	t.Helper()
	data, err := store.ReadContent(testContext(), id)
	require.NoError(t, err, "ReadContent should succeed")
	return data
}

// mustDelete deletes content and fails the test if it errors.
func mustDelete(t *testing.T, store content.ContentStore, id content.ContentID) {
	t.Helper()
	err := store.DeleteContent(testContext(), id)
	require.NoError(t, err, "DeleteContent should succeed")
}

// assertContentEquals reads id back and compares it with expected.
func assertContentEquals(t *testing.T, store content.ContentStore, id content.ContentID, expected []byte) {
	t.Helper()
	data := mustReadContent(t, store, id)
	assert.Equal(t, len(expected), len(data), "content length mismatch")
	assert.Equal(t, expected, data)
}

// assertNotFound checks that id is absent from the store.
func assertNotFound(t *testing.T, store content.ContentStore, id content.ContentID) {
	t.Helper()
	_, err := store.ReadContent(testContext(), id)
	AssertErrorIs(t, content.ErrContentNotFound, err)
}
