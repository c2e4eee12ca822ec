package testing

import (
	"context"
	"testing"

	"github.com/marmos91/clusterfs/pkg/store/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunWriteTests executes WriteContent and DeleteContent tests.
func (suite *StoreTestSuite) RunWriteTests(t *testing.T) {
	t.Run("WriteContent_Basic", suite.testWriteContentBasic)
	t.Run("WriteContent_Overwrite", suite.testWriteContentOverwrite)
	t.Run("WriteContent_BinaryPayload", suite.testWriteContentBinary)
	t.Run("Delete_Success", suite.testDeleteSuccess)
	t.Run("Delete_NotFound", suite.testDeleteNotFound)
	t.Run("Delete_LeavesOthers", suite.testDeleteLeavesOthers)
}

// ============================================================================
// WriteContent Tests
// ============================================================================

func (suite *StoreTestSuite) testWriteContentBasic(t *testing.T) {
	store := suite.NewStore()

	id := generateTestID("write-basic")
	testData := []byte("Hello, World!")

	mustWriteContent(t, store, id, testData)

	assertContentEquals(t, store, id, testData)
}

func (suite *StoreTestSuite) testWriteContentOverwrite(t *testing.T) {
	store := suite.NewStore()

	id := generateTestID("write-overwrite")
	oldData := []byte("Old data that is longer than the new one")
	newData := []byte("New data")

	mustWriteContent(t, store, id, oldData)
	assertContentEquals(t, store, id, oldData)

	// Overwrite must truncate, not merge
	mustWriteContent(t, store, id, newData)
	assertContentEquals(t, store, id, newData)
}

func (suite *StoreTestSuite) testWriteContentBinary(t *testing.T) {
	store := suite.NewStore()

	id := generateTestID("binary")
	testData := []byte{0x00, '\n', '\r', 0xFF, ' ', 0x00, 'A', '\n'}

	mustWriteContent(t, store, id, testData)

	assertContentEquals(t, store, id, testData)
}

// ============================================================================
// DeleteContent Tests
// ============================================================================

func (suite *StoreTestSuite) testDeleteSuccess(t *testing.T) {
	store := suite.NewStore()

	id := generateTestID("delete")
	mustWriteContent(t, store, id, []byte("to be deleted"))

	mustDelete(t, store, id)

	assertNotFound(t, store, id)
}

func (suite *StoreTestSuite) testDeleteNotFound(t *testing.T) {
	store := suite.NewStore()

	err := store.DeleteContent(testContext(), generateTestID("missing"))
	AssertErrorIs(t, content.ErrContentNotFound, err)
}

func (suite *StoreTestSuite) testDeleteLeavesOthers(t *testing.T) {
	store := suite.NewStore()

	keep := generateTestID("keep")
	drop := generateTestID("drop")
	mustWriteContent(t, store, keep, []byte("keep"))
	mustWriteContent(t, store, drop, []byte("drop"))

	mustDelete(t, store, drop)

	assertContentEquals(t, store, keep, []byte("keep"))
	assertNotFound(t, store, drop)
}

// ============================================================================
// Lifecycle Tests
// ============================================================================

// RunLifecycleTests executes ListContent and Reset tests.
func (suite *StoreTestSuite) RunLifecycleTests(t *testing.T) {
	t.Run("ListContent_Sorted", suite.testListContentSorted)
	t.Run("Reset_WipesEverything", suite.testResetWipes)
	t.Run("Reset_StoreStillUsable", suite.testResetUsable)
}

func (suite *StoreTestSuite) testListContentSorted(t *testing.T) {
	store := suite.NewStore()

	ids, err := store.ListContent(testContext())
	require.NoError(t, err)
	assert.Empty(t, ids)

	for _, id := range []content.ContentID{"zeta", "alpha", "mid"} {
		mustWriteContent(t, store, id, []byte(id))
	}

	ids, err = store.ListContent(testContext())
	require.NoError(t, err)
	assert.Equal(t, []content.ContentID{"alpha", "mid", "zeta"}, ids)
}

func (suite *StoreTestSuite) testResetWipes(t *testing.T) {
	store := suite.NewStore()

	a := generateTestID("reset-a")
	b := generateTestID("reset-b")
	mustWriteContent(t, store, a, []byte("a"))
	mustWriteContent(t, store, b, []byte("b"))

	require.NoError(t, store.Reset(testContext()))

	assertNotFound(t, store, a)
	assertNotFound(t, store, b)

	ids, err := store.ListContent(testContext())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func (suite *StoreTestSuite) testResetUsable(t *testing.T) {
	store := suite.NewStore()

	require.NoError(t, store.Reset(testContext()))

	id := generateTestID("after-reset")
	mustWriteContent(t, store, id, []byte("still works"))
	assertContentEquals(t, store, id, []byte("still works"))
}

// contextCancelled returns an already cancelled context.
func contextCancelled() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx, cancel
}
