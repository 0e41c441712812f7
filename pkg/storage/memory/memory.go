// Package memory implements an in-memory storage backend for picloud.
//
// Intended for tests and ephemeral deployments: contents are lost on
// restart. The backend honors the same contract as the filesystem gateway,
// including the resolver's name validation and last-write-wins overwrite
// semantics.
package memory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/picloudlabs/picloud/pkg/metrics"
	"github.com/picloudlabs/picloud/pkg/storage"
)

// DefaultMaxBytes caps total stored bytes when no limit is configured.
const DefaultMaxBytes = 1 << 30 // 1GB

var errStoreFull = errors.New("memory store full")

// MemoryStore implements storage.Store backed by a map.
//
// Thread Safety:
// Safe for concurrent use. A single RWMutex guards the map; each Save
// replaces the value atomically, so readers holding a previously returned
// reader keep seeing the content they opened.
type MemoryStore struct {
	mu       sync.RWMutex
	files    map[string][]byte
	used     int64
	maxBytes int64
	metrics  *metrics.StorageMetrics
}

// New creates a memory store. maxBytes <= 0 selects DefaultMaxBytes.
// m may be nil to disable metrics.
func New(maxBytes int64, m *metrics.StorageMetrics) *MemoryStore {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &MemoryStore{
		files:    make(map[string][]byte),
		maxBytes: maxBytes,
		metrics:  m,
	}
}

// Save buffers the content and replaces any previous value atomically.
func (s *MemoryStore) Save(ctx context.Context, name string, r io.Reader) (info storage.FileInfo, err error) {
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

	s.mu.Lock()
	defer s.mu.Unlock()

	previous := int64(len(s.files[cleaned]))
	if s.used-previous+int64(len(data)) > s.maxBytes {
		err = storage.NewIOError("save", cleaned, errStoreFull)
		return storage.FileInfo{}, err
	}

	s.files[cleaned] = data
	s.used += int64(len(data)) - previous

	s.metrics.AddBytesUploaded(int64(len(data)))

	return storage.FileInfo{Name: cleaned, Size: int64(len(data))}, nil
}

// Open returns a reader over a snapshot of the stored content.
func (s *MemoryStore) Open(ctx context.Context, name string) (rc io.ReadCloser, err error) {
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

	s.mu.RLock()
	data, ok := s.files[cleaned]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("file %s: %w", cleaned, storage.ErrNotFound)
	}

	s.metrics.AddBytesDownloaded(int64(len(data)))

	return io.NopCloser(bytes.NewReader(data)), nil
}

// Stat returns the stored file's canonical name and size.
func (s *MemoryStore) Stat(ctx context.Context, name string) (info storage.FileInfo, err error) {
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

	s.mu.RLock()
	data, ok := s.files[cleaned]
	s.mu.RUnlock()

	if !ok {
		return storage.FileInfo{}, fmt.Errorf("file %s: %w", cleaned, storage.ErrNotFound)
	}

	return storage.FileInfo{Name: cleaned, Size: int64(len(data))}, nil
}

// Delete removes the stored file. At most one of two racing deletes for the
// same name observes success; the loser gets ErrNotFound.
func (s *MemoryStore) Delete(ctx context.Context, name string) (err error) {
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

	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.files[cleaned]
	if !ok {
		return fmt.Errorf("file %s: %w", cleaned, storage.ErrNotFound)
	}

	delete(s.files, cleaned)
	s.used -= int64(len(data))

	return nil
}

// List enumerates top-level names, matching the filesystem gateway's
// non-recursive listing: names stored under subdirectories are skipped.
func (s *MemoryStore) List(ctx context.Context) (names []string, err error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveOperation("list", time.Since(start), err)
	}()

	if err = ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	names = make([]string, 0, len(s.files))
	for name := range s.files {
		if strings.Contains(name, "/") {
			continue
		}
		names = append(names, name)
	}

	return names, nil
}
