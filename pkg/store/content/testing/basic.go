package testing

import (
	"testing"

	"github.com/marmos91/clusterfs/pkg/store/content"
	"github.com/stretchr/testify/assert"
)

// RunBasicTests executes the read-side ContentStore tests.
func (suite *StoreTestSuite) RunBasicTests(t *testing.T) {
	t.Run("ReadContent_NotFound", suite.testReadContentNotFound)
	t.Run("ReadContent_Success", suite.testReadContentSuccess)
	t.Run("ReadContent_EmptyContent", suite.testReadContentEmpty)
	t.Run("ReadContent_LargeContent", suite.testReadContentLarge)
	t.Run("ReadContent_ReturnsCopy", suite.testReadContentReturnsCopy)
	t.Run("ReadContent_CancelledContext", suite.testReadContentCancelled)
}

// ============================================================================
// ReadContent Tests
// ============================================================================

func (suite *StoreTestSuite) testReadContentNotFound(t *testing.T) {
	store := suite.NewStore()

	id := generateTestID("nonexistent")
	_, err := store.ReadContent(testContext(), id)

	AssertErrorIs(t, content.ErrContentNotFound, err)
}

func (suite *StoreTestSuite) testReadContentSuccess(t *testing.T) {
	store := suite.NewStore()

	id := generateTestID("read-success")
	testData := []byte("Hello, World!")

	mustWriteContent(t, store, id, testData)

	assertContentEquals(t, store, id, testData)
}

func (suite *StoreTestSuite) testReadContentEmpty(t *testing.T) {
	store := suite.NewStore()

	id := generateTestID("empty")
	mustWriteContent(t, store, id, []byte{})

	data := mustReadContent(t, store, id)
	assert.Equal(t, 0, len(data))
}

func (suite *StoreTestSuite) testReadContentLarge(t *testing.T) {
	store := suite.NewStore()

	id := generateTestID("large")
	// a full default disk: 128 blocks of 4KiB
	testData := generateTestData(128 * 4096)

	mustWriteContent(t, store, id, testData)

	assertContentEquals(t, store, id, testData)
}

func (suite *StoreTestSuite) testReadContentReturnsCopy(t *testing.T) {
	store := suite.NewStore()

	id := generateTestID("copy")
	testData := []byte("immutable")
	mustWriteContent(t, store, id, testData)

	// Mutating the caller's buffers must not leak into the store
	testData[0] = 'X'
	first := mustReadContent(t, store, id)
	first[1] = 'Y'

	assertContentEquals(t, store, id, []byte("immutable"))
}

func (suite *StoreTestSuite) testReadContentCancelled(t *testing.T) {
	store := suite.NewStore()

	ctx, cancel := contextCancelled()
	defer cancel()

	_, err := store.ReadContent(ctx, generateTestID("cancelled"))
	assert.Error(t, err)
}
