// ABOUTME: Test utilities for creating isolated charm clients
// ABOUTME: Backs each client with a badger database in a per-test temp directory

package charm

import (
	"path/filepath"
	"testing"
)

// NewTestClient creates a client over a local badger store for testing.
// The returned cleanup function closes the database; the directory is
// removed by the testing package.
func NewTestClient(t *testing.T) (*Client, func()) {
	t.Helper()

	c, err := OpenLocal(filepath.Join(t.TempDir(), AppName))
	if err != nil {
		t.Fatalf("Failed to open test store: %v", err)
	}

	cleanup := func() {
		if err := c.Close(); err != nil {
			t.Logf("Warning: failed to close test database: %v", err)
		}
	}
	return c, cleanup
}
