// Package badger implements a BadgerDB-backed storage backend for picloud.
//
// Contents live in an embedded key-value database instead of a plain
// directory, which gives crash-safe persistence on hosts where the managed
// files should not be directly visible in the filesystem. Keys are the
// canonical file names produced by the storage resolver; values are the
// file contents.
package badger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/picloudlabs/picloud/pkg/metrics"
	"github.com/picloudlabs/picloud/pkg/storage"
)

// BadgerStore implements storage.Store on top of BadgerDB.
//
// Thread Safety:
// Safe for concurrent use. Badger transactions provide the write
// atomicity: each Save replaces the value in a single transaction, so a
// concurrent Open sees either the old or the new content in full.
type BadgerStore struct {
	db      *badger.DB
	metrics *metrics.StorageMetrics
}

// New opens (or creates) a Badger database at path.
// m may be nil to disable metrics.
func New(path string, m *metrics.StorageMetrics) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // picloud logs through its own facade

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %q: %w", path, err)
	}

	return &BadgerStore{db: db, metrics: m}, nil
}

// Close releases the underlying database. Must be called on shutdown.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// Save buffers the content and writes it in a single transaction,
// overwriting any previous value (last-write-wins).
func (s *BadgerStore) Save(ctx context.Context, name string, r io.Reader) (info storage.FileInfo, err error) {
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

	data, err := io.ReadAll(r)
	if err != nil {
		return storage.FileInfo{}, storage.NewIOError("save", cleaned, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(cleaned), data)
	})
	if err != nil {
		return storage.FileInfo{}, storage.NewIOError("save", cleaned, err)
	}

	s.metrics.AddBytesUploaded(int64(len(data)))

	return storage.FileInfo{Name: cleaned, Size: int64(len(data))}, nil
}

// Open returns a reader over a copy of the stored value.
func (s *BadgerStore) Open(ctx context.Context, name string) (rc io.ReadCloser, err error) {
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

	var data []byte
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(cleaned))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("file %s: %w", cleaned, storage.ErrNotFound)
		}
		return nil, storage.NewIOError("open", cleaned, err)
	}

	s.metrics.AddBytesDownloaded(int64(len(data)))

	return io.NopCloser(bytes.NewReader(data)), nil
}

// Stat returns the stored file's canonical name and size.
//
// The value is read to get its exact length: ValueSize() is approximate
// for entries that spilled into the value log, and the size feeds the
// Content-Length header.
func (s *BadgerStore) Stat(ctx context.Context, name string) (info storage.FileInfo, err error) {
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

	var size int64
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(cleaned))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			size = int64(len(val))
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return storage.FileInfo{}, fmt.Errorf("file %s: %w", cleaned, storage.ErrNotFound)
		}
		return storage.FileInfo{}, storage.NewIOError("stat", cleaned, err)
	}

	return storage.FileInfo{Name: cleaned, Size: size}, nil
}

// Delete removes the stored file in a single transaction. The existence
// check and the delete share the transaction, so of two racing deletes
// exactly one succeeds and the other gets ErrNotFound.
func (s *BadgerStore) Delete(ctx context.Context, name string) (err error) {
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

	err = s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(cleaned)); err != nil {
			return err
		}
		return txn.Delete([]byte(cleaned))
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("file %s: %w", cleaned, storage.ErrNotFound)
		}
		return storage.NewIOError("delete", cleaned, err)
	}

	return nil
}

// List enumerates top-level names by iterating keys without prefetching
// values. Names stored under subdirectories are skipped, matching the
// filesystem gateway's non-recursive listing.
func (s *BadgerStore) List(ctx context.Context) (names []string, err error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveOperation("list", time.Since(start), err)
	}()

	if err = ctx.Err(); err != nil {
		return nil, err
	}

	names = make([]string, 0)
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		count := 0
		for it.Rewind(); it.Valid(); it.Next() {
			// Check context periodically (every 100 entries)
			if count%100 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			count++

			name := string(it.Item().Key())
			if strings.Contains(name, "/") {
				continue
			}
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, storage.NewIOError("list", "", err)
	}

	return names, nil
}
