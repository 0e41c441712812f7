// This file contains the read-only operations of the filesystem store:
// streamed opens, stats, and directory listings.
package fs

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/picloudlabs/picloud/pkg/storage"
)

// Open returns a reader for the stored file.
//
// The file is streamed, not buffered: the returned ReadCloser reads
// directly from the filesystem and must be closed by the caller. Opening a
// name whose resolved path is missing or not a regular file fails with
// ErrNotFound.
//
// A reader obtained concurrently with a Save of the same name observes
// either the old content or the new content in full, never a mix - the
// open file handle keeps reading the inode it opened even after a rename
// replaces the name.
func (s *FSStore) Open(ctx context.Context, name string) (rc io.ReadCloser, err error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveOperation("open", time.Since(start), err)
	}()

	if err = ctx.Err(); err != nil {
		return nil, err
	}

	cleaned, err := storage.CleanName(name)
	if err != nil {
		return nil, err
	}

	target, err := s.resolve(cleaned)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(target)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file %s: %w", cleaned, storage.ErrNotFound)
		}
		return nil, storage.NewIOError("open", cleaned, err)
	}

	fi, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, storage.NewIOError("open", cleaned, err)
	}
	if !fi.Mode().IsRegular() {
		_ = file.Close()
		return nil, fmt.Errorf("file %s: %w", cleaned, storage.ErrNotFound)
	}

	return &countingReadCloser{ReadCloser: file, store: s}, nil
}

// Stat returns the stored file's canonical name and size.
func (s *FSStore) Stat(ctx context.Context, name string) (info storage.FileInfo, err error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveOperation("stat", time.Since(start), err)
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

	fi, err := os.Stat(target)
	if err != nil {
		if os.IsNotExist(err) {
			return storage.FileInfo{}, fmt.Errorf("file %s: %w", cleaned, storage.ErrNotFound)
		}
		return storage.FileInfo{}, storage.NewIOError("stat", cleaned, err)
	}
	if !fi.Mode().IsRegular() {
		return storage.FileInfo{}, fmt.Errorf("file %s: %w", cleaned, storage.ErrNotFound)
	}

	return storage.FileInfo{Name: cleaned, Size: fi.Size()}, nil
}

// List enumerates regular files directly under the storage root.
//
// The listing is non-recursive, re-enumerated on every call, and treated as
// unordered by callers (directory order is whatever the filesystem
// returns). Directories and temporary artifacts created by Save's
// atomic-write mechanism are excluded, so in-flight uploads are never
// visible.
func (s *FSStore) List(ctx context.Context) (names []string, err error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveOperation("list", time.Since(start), err)
	}()

	if err = ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, storage.NewIOError("list", "", err)
	}

	names = make([]string, 0, len(entries))
	for i, entry := range entries {
		// Check context periodically (every 100 entries)
		if i%100 == 0 {
			if err = ctx.Err(); err != nil {
				return nil, err
			}
		}

		if !entry.Type().IsRegular() {
			continue
		}
		if storage.IsTempArtifact(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}

	return names, nil
}

// countingReadCloser feeds downloaded byte counts into the metrics sink.
type countingReadCloser struct {
	io.ReadCloser
	store *FSStore
}

func (c *countingReadCloser) Read(p []byte) (int, error) {
	n, err := c.ReadCloser.Read(p)
	if n > 0 {
		c.store.metrics.AddBytesDownloaded(int64(n))
	}
	return n, err
}
