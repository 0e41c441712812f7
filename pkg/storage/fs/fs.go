// Package fs implements the filesystem storage gateway for picloud.
//
// Files are stored directly under a configured root directory using the
// client-supplied name, validated and resolved by the storage resolver.
// Writes go through a temporary file plus atomic rename so a concurrent
// reader never observes a partially-written file under its final name.
package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/picloudlabs/picloud/pkg/metrics"
	"github.com/picloudlabs/picloud/pkg/storage"
)

// FSStore implements storage.Store using the local filesystem.
//
// Thread Safety:
// Safe for concurrent use. The atomic rename in Save is the serialization
// point for concurrent writers of the same name; no locks are held across
// I/O. Concurrent Save calls for the same name are last-write-wins.
type FSStore struct {
	root    string
	metrics *metrics.StorageMetrics
}

// New creates a filesystem store rooted at root.
//
// The root is made absolute, created with mode 0755 if missing, and probed
// for writability so misconfiguration fails at startup rather than on the
// first upload. m may be nil to disable metrics.
//
// Parameters:
//   - ctx: Context for cancellation
//   - root: Directory under which all managed files live
//   - m: Storage metrics sink (nil for none)
//
// Returns:
//   - *FSStore: Initialized store
//   - error: Returns error if the root cannot be created or written to
func New(ctx context.Context, root string, m *metrics.StorageMetrics) (*FSStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage root %q: %w", root, err)
	}

	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}

	// Fail fast on read-only roots.
	probe, err := os.CreateTemp(abs, storage.TempPrefix+"probe-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("storage root %q is not writable: %w", abs, err)
	}
	probeName := probe.Name()
	if err := probe.Close(); err != nil {
		return nil, fmt.Errorf("storage root probe: %w", err)
	}
	if err := os.Remove(probeName); err != nil {
		return nil, fmt.Errorf("storage root probe cleanup: %w", err)
	}

	return &FSStore{root: abs, metrics: m}, nil
}

// Root returns the absolute storage root directory.
func (s *FSStore) Root() string {
	return s.root
}

// resolve maps an untrusted name to an absolute path inside the root.
// Every operation goes through here; no other method joins paths.
func (s *FSStore) resolve(name string) (string, error) {
	return storage.Resolve(s.root, name)
}
