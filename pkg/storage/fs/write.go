// This file contains the mutating operations of the filesystem store:
// atomic saves and deletes.
package fs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/picloudlabs/picloud/pkg/storage"
)

// copyChunkSize bounds how much is written between context checks so an
// abandoned upload stops promptly instead of draining the whole body.
const copyChunkSize = 256 * 1024

// Save writes content under name using a temporary file plus atomic rename.
//
// The content is streamed into a uniquely-named temporary file inside the
// storage root, synced, and renamed onto the resolved path. The rename is
// the serialization point for concurrent writers: the visible result is
// always one complete writer's content, never an interleaving, and the
// winner is whichever rename lands last. An existing file with the same
// name is overwritten (last-write-wins, no versioning).
//
// On any failure - including context cancellation mid-transfer - the
// temporary file is removed and no partial file is left under the final
// name.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts, checked between chunks
//   - name: Untrusted file name, validated by the resolver
//   - r: Content to store
//
// Returns:
//   - storage.FileInfo: Canonical name and byte size of the stored file
//   - error: ErrInvalidName/ErrPathEscape from the resolver, or *IOError
//     on write or rename failure
func (s *FSStore) Save(ctx context.Context, name string, r io.Reader) (info storage.FileInfo, err error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveOperation("save", time.Since(start), err)
	}()

	if err = ctx.Err(); err != nil {
		return storage.FileInfo{}, err
	}

	cleaned, err := storage.CleanName(name)
	if err != nil {
		return storage.FileInfo{}, err
	}

	target, err := s.resolve(cleaned)
	if err != nil {
		return storage.FileInfo{}, err
	}

	// Contained multi-segment names store below the root; make sure the
	// parent directory exists before the rename.
	if parent := filepath.Dir(target); parent != s.root {
		if err = os.MkdirAll(parent, 0755); err != nil {
			return storage.FileInfo{}, storage.NewIOError("save", cleaned, err)
		}
	}

	tmp, err := os.CreateTemp(s.root, storage.TempPrefix+"*.tmp")
	if err != nil {
		return storage.FileInfo{}, storage.NewIOError("save", cleaned, err)
	}

	size, err := s.writeTemp(ctx, tmp, r)
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		if ctx.Err() != nil {
			return storage.FileInfo{}, ctx.Err()
		}
		return storage.FileInfo{}, storage.NewIOError("save", cleaned, err)
	}

	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return storage.FileInfo{}, storage.NewIOError("save", cleaned, err)
	}

	// Atomic visibility: the file appears under its final name in one
	// indivisible step.
	if err = os.Rename(tmp.Name(), target); err != nil {
		_ = os.Remove(tmp.Name())
		return storage.FileInfo{}, storage.NewIOError("save", cleaned, err)
	}

	s.metrics.AddBytesUploaded(size)

	return storage.FileInfo{Name: cleaned, Size: size}, nil
}

// writeTemp streams r into tmp in bounded chunks with periodic context
// checks, then syncs the file to stable storage.
func (s *FSStore) writeTemp(ctx context.Context, tmp *os.File, r io.Reader) (int64, error) {
	var size int64
	buf := make([]byte, copyChunkSize)

	for {
		if err := ctx.Err(); err != nil {
			return size, err
		}

		n, readErr := r.Read(buf)
		if n > 0 {
			if _, err := tmp.Write(buf[:n]); err != nil {
				return size, fmt.Errorf("failed to write content chunk: %w", err)
			}
			size += int64(n)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return size, fmt.Errorf("failed to read content: %w", readErr)
		}
	}

	if err := tmp.Sync(); err != nil {
		return size, fmt.Errorf("failed to sync content: %w", err)
	}

	return size, nil
}

// Delete removes the stored file.
//
// Existence is revalidated on every call (the filesystem is the sole source
// of truth). A file that disappears between the existence check and the
// unlink - a concurrent delete - is a benign race reported as ErrNotFound,
// not an I/O failure: at most one of two racing deletes observes success.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - name: Untrusted file name, validated by the resolver
//
// Returns:
//   - error: ErrNotFound if absent or not a regular file, resolver errors,
//     or *IOError if removal fails after existence was confirmed
func (s *FSStore) Delete(ctx context.Context, name string) (err error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveOperation("delete", time.Since(start), err)
	}()

	if err = ctx.Err(); err != nil {
		return err
	}

	cleaned, err := storage.CleanName(name)
	if err != nil {
		return err
	}

	target, err := s.resolve(cleaned)
	if err != nil {
		return err
	}

	fi, err := os.Lstat(target)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file %s: %w", cleaned, storage.ErrNotFound)
		}
		return storage.NewIOError("delete", cleaned, err)
	}
	if !fi.Mode().IsRegular() {
		return fmt.Errorf("file %s: %w", cleaned, storage.ErrNotFound)
	}

	if err = os.Remove(target); err != nil {
		if os.IsNotExist(err) {
			// Lost the race against a concurrent delete.
			return fmt.Errorf("file %s: %w", cleaned, storage.ErrNotFound)
		}
		return storage.NewIOError("delete", cleaned, err)
	}

	return nil
}
