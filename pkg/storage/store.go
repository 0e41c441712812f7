// Package storage defines the file storage gateway contract shared by all
// picloud backends, together with the name resolver that guards it.
//
// A Store maps client-supplied file names to stored byte sequences. The
// filesystem backend (pkg/storage/fs) is the reference implementation; the
// memory, badger and s3 backends honor the same contract so the HTTP adapter
// never needs to know which one is configured.
package storage

import (
	"context"
	"io"
)

// FileInfo describes a stored file.
type FileInfo struct {
	// Name is the canonical file name (resolver output, slash-separated).
	Name string `json:"name"`

	// Size is the file size in bytes.
	Size int64 `json:"size"`
}

// Store performs the four file lifecycle operations.
//
// Implementations must validate every incoming name with CleanName (or
// Resolve, for path-based backends) before touching storage - no other
// component constructs storage locations.
//
// Thread Safety:
// All operations may be invoked concurrently, for different names or the
// same name. Save for a given name must be atomic with respect to readers:
// a concurrent Open never observes a partially-written file. Concurrent
// Save calls for the same name are last-write-wins. The only durable state
// is the backend itself; nothing is cached between calls.
type Store interface {
	// Save writes content under name, overwriting any previous file with
	// the same name. On failure no partial file is visible under name.
	Save(ctx context.Context, name string, r io.Reader) (FileInfo, error)

	// Open returns a reader for the stored file. The caller must close it.
	// Fails with ErrNotFound if no regular file is stored under name.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// Stat returns the file's metadata without reading its content.
	// Fails with ErrNotFound if no regular file is stored under name.
	Stat(ctx context.Context, name string) (FileInfo, error)

	// Delete removes the stored file. Fails with ErrNotFound when the file
	// is absent, including when a concurrent Delete removed it first.
	Delete(ctx context.Context, name string) error

	// List enumerates the names of stored files directly under the root.
	// The result is unordered and never contains temporary artifacts.
	List(ctx context.Context) ([]string, error)
}
