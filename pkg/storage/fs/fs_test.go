package fs_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picloudlabs/picloud/pkg/storage"
	"github.com/picloudlabs/picloud/pkg/storage/fs"
	storagetesting "github.com/picloudlabs/picloud/pkg/storage/testing"
)

func newTestStore(t *testing.T) *fs.FSStore {
	t.Helper()
	store, err := fs.New(context.Background(), t.TempDir(), nil)
	require.NoError(t, err)
	return store
}

func TestFSStore_Contract(t *testing.T) {
	suite := &storagetesting.StoreTestSuite{
		NewStore: func(t *testing.T) storage.Store {
			return newTestStore(t)
		},
	}
	suite.Run(t)
}

func TestNew_CreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "files")

	store, err := fs.New(context.Background(), root, nil)
	require.NoError(t, err)

	fi, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, fi.IsDir())
	assert.Equal(t, root, store.Root())
}

func TestNew_RelativeRootResolved(t *testing.T) {
	// Relative roots are made absolute so containment checks hold even if
	// the process later changes directory.
	store, err := fs.New(context.Background(), t.TempDir(), nil)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(store.Root()))
}

func TestSave_NestedNameCreatesParents(t *testing.T) {
	store := newTestStore(t)

	info, err := store.Save(context.Background(), "photos/2024/cat.jpg", bytes.NewReader([]byte("img")))
	require.NoError(t, err)
	assert.Equal(t, "photos/2024/cat.jpg", info.Name)

	data, err := os.ReadFile(filepath.Join(store.Root(), "photos", "2024", "cat.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []byte("img"), data)
}

// failingReader errors after yielding its prefix, simulating a client that
// disconnects mid-upload.
type failingReader struct {
	prefix []byte
	served bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.served {
		r.served = true
		return copy(p, r.prefix), nil
	}
	return 0, errors.New("connection reset")
}

func TestSave_FailureLeavesNoPartialFile(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Save(context.Background(), "upload.bin", &failingReader{prefix: []byte("partial")})
	require.Error(t, err)

	var ioErr *storage.IOError
	assert.ErrorAs(t, err, &ioErr)

	// Neither the destination nor any temp artifact may survive.
	_, statErr := os.Stat(filepath.Join(store.Root(), "upload.bin"))
	assert.True(t, os.IsNotExist(statErr), "no partial file under the final name")
	assertNoTempFiles(t, store.Root())
}

func TestSave_FailedOverwritePreservesOldContent(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Save(context.Background(), "doc.txt", bytes.NewReader([]byte("stable version")))
	require.NoError(t, err)

	_, err = store.Save(context.Background(), "doc.txt", &failingReader{prefix: []byte("broken")})
	require.Error(t, err)

	data, err := os.ReadFile(filepath.Join(store.Root(), "doc.txt"))
	require.NoError(t, err)
	assert.Equal(t, []byte("stable version"), data, "failed overwrite must not touch the old file")
}

func TestSave_CancelledContext(t *testing.T) {
	store := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Save(ctx, "never.txt", bytes.NewReader([]byte("x")))
	assert.ErrorIs(t, err, context.Canceled)
	assertNoTempFiles(t, store.Root())
}

func TestList_ExcludesTempArtifacts(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Save(context.Background(), "visible.txt", bytes.NewReader([]byte("x")))
	require.NoError(t, err)

	// Simulate a leftover temp file from a crashed upload.
	orphan := filepath.Join(store.Root(), storage.TempPrefix+"777.tmp")
	require.NoError(t, os.WriteFile(orphan, []byte("junk"), 0644))

	names, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"visible.txt"}, names)
}

func TestList_ExcludesDirectories(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Save(context.Background(), "top.txt", bytes.NewReader([]byte("x")))
	require.NoError(t, err)
	_, err = store.Save(context.Background(), "sub/inner.txt", bytes.NewReader([]byte("y")))
	require.NoError(t, err)

	// Listing is non-recursive and never reports the directory itself.
	names, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"top.txt"}, names)
}

func TestOpen_DirectoryReportsNotFound(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, os.Mkdir(filepath.Join(store.Root(), "adir"), 0755))

	_, err := store.Open(context.Background(), "adir")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDelete_TempNameRejected(t *testing.T) {
	store := newTestStore(t)

	// Reserved names can never be addressed, so the sweeper's files are
	// unreachable through the API.
	err := store.Delete(context.Background(), storage.TempPrefix+"123.tmp")
	assert.ErrorIs(t, err, storage.ErrInvalidName)
}

func assertNoTempFiles(t *testing.T, root string) {
	t.Helper()
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, storage.IsTempArtifact(e.Name()), "leftover temp artifact %s", e.Name())
	}
}
