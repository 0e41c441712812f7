package testing

import (
	"context"
	"testing"

	"github.com/picloudlabs/picloud/pkg/storage"
)

// StoreTestSuite is a reusable test suite for Store implementations.
// It tests the interface contract, not implementation details, so the
// same suite runs against filesystem, memory, Badger and S3 backends.
//
// Usage:
//
//	func TestMyStore(t *testing.T) {
//	    suite := &testing.StoreTestSuite{
//	        NewStore: func(t *testing.T) storage.Store {
//	            return mystore.New()
//	        },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore creates a fresh, empty Store instance for each test.
	// This ensures test isolation.
	NewStore func(t *testing.T) storage.Store
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("SaveAndOpen", suite.RunSaveOpenTests)
	t.Run("Delete", suite.RunDeleteTests)
	t.Run("List", suite.RunListTests)
	t.Run("Naming", suite.RunNamingTests)
	t.Run("Concurrency", suite.RunConcurrencyTests)
}

// testContext returns a standard test context.
func testContext() context.Context {
	return context.Background()
}
