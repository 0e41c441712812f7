package testing

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picloudlabs/picloud/pkg/storage"
)

// mustSave stores a file and fails the test if it errors.
func mustSave(t *testing.T, store storage.Store, name string, data []byte) storage.FileInfo {
	t.Helper()
	info, err := store.Save(testContext(), name, bytes.NewReader(data))
	require.NoError(t, err, "Save should succeed")
	return info
}

// mustRead opens a file, reads it fully and fails the test if it errors.
func mustRead(t *testing.T, store storage.Store, name string) []byte {
	t.Helper()
	reader, err := store.Open(testContext(), name)
	require.NoError(t, err, "Open should succeed")
	defer reader.Close()

	data, err := io.ReadAll(reader)
	require.NoError(t, err, "reading file should succeed")
	return data
}

// mustDelete deletes a file and fails the test if it errors.
func mustDelete(t *testing.T, store storage.Store, name string) {
	t.Helper()
	err := store.Delete(testContext(), name)
	require.NoError(t, err, "Delete should succeed")
}

// mustList lists files and fails the test if it errors.
func mustList(t *testing.T, store storage.Store) []string {
	t.Helper()
	names, err := store.List(testContext())
	require.NoError(t, err, "List should succeed")
	return names
}

// assertFileEquals checks that a stored file round-trips to the expected bytes.
func assertFileEquals(t *testing.T, store storage.Store, name string, expected []byte) {
	t.Helper()
	data := mustRead(t, store, name)
	assert.Equal(t, expected, data, "file content mismatch")

	info, err := store.Stat(testContext(), name)
	require.NoError(t, err, "Stat should succeed")
	assert.Equal(t, int64(len(expected)), info.Size, "file size mismatch")
}

// assertNotFound checks that an operation reports storage.ErrNotFound.
func assertNotFound(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
