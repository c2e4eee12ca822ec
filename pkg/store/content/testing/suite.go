package testing

import (
	"context"
	"testing"

	"github.com/marmos91/clusterfs/pkg/store/content"
)

// StoreTestSuite is a contract test suite for ContentStore implementations.
// It tests the interface, not implementation details, so every backend
// (memory, filesystem, BadgerDB, S3) runs the same checks.
//
// Usage:
//
//	func TestMyContentStore(t *testing.T) {
//	    suite := &testing.StoreTestSuite{
//	        NewStore: func() content.ContentStore {
//	            return mystore.New()
//	        },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore is a factory function that creates a fresh, empty
	// ContentStore for each test. This ensures test isolation.
	NewStore func() content.ContentStore
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("BasicOperations", suite.RunBasicTests)
	t.Run("WriteOperations", suite.RunWriteTests)
	t.Run("Lifecycle", suite.RunLifecycleTests)
}

// testContext returns a standard test context.
func testContext() context.Context {
	return context.Background()
}
