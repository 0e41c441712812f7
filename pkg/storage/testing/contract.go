package testing

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picloudlabs/picloud/pkg/storage"
)

// RunSaveOpenTests exercises the basic round-trip contract.
func (suite *StoreTestSuite) RunSaveOpenTests(t *testing.T) {
	t.Run("Save_RoundTrip", suite.testSaveRoundTrip)
	t.Run("Save_Empty", suite.testSaveEmpty)
	t.Run("Save_Binary", suite.testSaveBinary)
	t.Run("Save_Overwrite", suite.testSaveOverwrite)
	t.Run("Open_NotFound", suite.testOpenNotFound)
	t.Run("Stat_NotFound", suite.testStatNotFound)
}

// RunDeleteTests exercises the delete contract.
func (suite *StoreTestSuite) RunDeleteTests(t *testing.T) {
	t.Run("Delete_Success", suite.testDeleteSuccess)
	t.Run("Delete_NotFound", suite.testDeleteNotFound)
	t.Run("Delete_NotIdempotent", suite.testDeleteNotIdempotent)
}

// RunListTests exercises the listing contract.
func (suite *StoreTestSuite) RunListTests(t *testing.T) {
	t.Run("List_Empty", suite.testListEmpty)
	t.Run("List_ReflectsState", suite.testListReflectsState)
}

// RunNamingTests exercises name validation shared by all backends.
func (suite *StoreTestSuite) RunNamingTests(t *testing.T) {
	t.Run("Name_Traversal", suite.testNameTraversal)
	t.Run("Name_Invalid", suite.testNameInvalid)
	t.Run("Name_Whitespace", suite.testNameWhitespace)
}

// RunConcurrencyTests exercises concurrent access guarantees.
func (suite *StoreTestSuite) RunConcurrencyTests(t *testing.T) {
	t.Run("Concurrent_SameName", suite.testConcurrentSameName)
	t.Run("Concurrent_DistinctNames", suite.testConcurrentDistinctNames)
}

func (suite *StoreTestSuite) testSaveRoundTrip(t *testing.T) {
	store := suite.NewStore(t)

	data := []byte("Hello, World!")
	info := mustSave(t, store, "hello.txt", data)

	assert.Equal(t, "hello.txt", info.Name)
	assert.Equal(t, int64(len(data)), info.Size)
	assertFileEquals(t, store, "hello.txt", data)
}

func (suite *StoreTestSuite) testSaveEmpty(t *testing.T) {
	store := suite.NewStore(t)

	info := mustSave(t, store, "empty.bin", nil)
	assert.Equal(t, int64(0), info.Size)

	data := mustRead(t, store, "empty.bin")
	assert.Empty(t, data)
}

func (suite *StoreTestSuite) testSaveBinary(t *testing.T) {
	store := suite.NewStore(t)

	// Content with NUL bytes and every byte value must survive unchanged.
	data := make([]byte, 1024)
	for i := range data {
		data[i] = byte(i % 256)
	}

	mustSave(t, store, "blob.bin", data)
	assertFileEquals(t, store, "blob.bin", data)
}

func (suite *StoreTestSuite) testSaveOverwrite(t *testing.T) {
	store := suite.NewStore(t)

	mustSave(t, store, "doc.txt", []byte("first version"))
	mustSave(t, store, "doc.txt", []byte("second"))

	assertFileEquals(t, store, "doc.txt", []byte("second"))

	names := mustList(t, store)
	assert.Equal(t, []string{"doc.txt"}, names, "overwrite should not create a second entry")
}

func (suite *StoreTestSuite) testOpenNotFound(t *testing.T) {
	store := suite.NewStore(t)

	_, err := store.Open(testContext(), "missing.txt")
	assertNotFound(t, err)
}

func (suite *StoreTestSuite) testStatNotFound(t *testing.T) {
	store := suite.NewStore(t)

	_, err := store.Stat(testContext(), "missing.txt")
	assertNotFound(t, err)
}

func (suite *StoreTestSuite) testDeleteSuccess(t *testing.T) {
	store := suite.NewStore(t)

	mustSave(t, store, "victim.txt", []byte("bytes"))
	mustDelete(t, store, "victim.txt")

	_, err := store.Stat(testContext(), "victim.txt")
	assertNotFound(t, err)
}

func (suite *StoreTestSuite) testDeleteNotFound(t *testing.T) {
	store := suite.NewStore(t)

	err := store.Delete(testContext(), "never-existed.txt")
	assertNotFound(t, err)
}

func (suite *StoreTestSuite) testDeleteNotIdempotent(t *testing.T) {
	store := suite.NewStore(t)

	mustSave(t, store, "once.txt", []byte("bytes"))
	mustDelete(t, store, "once.txt")

	// A second delete reports the file as missing.
	err := store.Delete(testContext(), "once.txt")
	assertNotFound(t, err)
}

func (suite *StoreTestSuite) testListEmpty(t *testing.T) {
	store := suite.NewStore(t)

	names := mustList(t, store)
	assert.Empty(t, names)
}

func (suite *StoreTestSuite) testListReflectsState(t *testing.T) {
	store := suite.NewStore(t)

	mustSave(t, store, "a.txt", []byte("a"))
	mustSave(t, store, "b.txt", []byte("b"))
	mustSave(t, store, "c.txt", []byte("c"))
	mustDelete(t, store, "b.txt")

	names := mustList(t, store)
	assert.ElementsMatch(t, []string{"a.txt", "c.txt"}, names)
}

func (suite *StoreTestSuite) testNameTraversal(t *testing.T) {
	store := suite.NewStore(t)

	escaping := []string{
		"../escape.txt",
		"../../etc/passwd",
		"dir/../../escape.txt",
		"/etc/passwd",
	}

	for _, name := range escaping {
		_, err := store.Save(testContext(), name, bytes.NewReader([]byte("x")))
		require.Error(t, err, "Save(%q) should be rejected", name)
		rejected := errors.Is(err, storage.ErrPathEscape) || errors.Is(err, storage.ErrInvalidName)
		assert.True(t, rejected, "Save(%q) should fail with a name error, got %v", name, err)
	}
}

func (suite *StoreTestSuite) testNameInvalid(t *testing.T) {
	store := suite.NewStore(t)

	invalid := []string{"", ".", "..", "   "}

	for _, name := range invalid {
		_, err := store.Save(testContext(), name, bytes.NewReader([]byte("x")))
		assert.ErrorIs(t, err, storage.ErrInvalidName, "Save(%q)", name)

		_, err = store.Open(testContext(), name)
		assert.ErrorIs(t, err, storage.ErrInvalidName, "Open(%q)", name)

		err = store.Delete(testContext(), name)
		assert.ErrorIs(t, err, storage.ErrInvalidName, "Delete(%q)", name)
	}
}

func (suite *StoreTestSuite) testNameWhitespace(t *testing.T) {
	store := suite.NewStore(t)

	// Surrounding whitespace is trimmed before validation.
	mustSave(t, store, "  padded.txt  ", []byte("bytes"))
	assertFileEquals(t, store, "padded.txt", []byte("bytes"))
}

func (suite *StoreTestSuite) testConcurrentSameName(t *testing.T) {
	store := suite.NewStore(t)

	const writers = 8
	payloads := make([][]byte, writers)
	for i := range payloads {
		payloads[i] = bytes.Repeat([]byte(fmt.Sprintf("writer-%d;", i)), 100)
	}

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.Save(testContext(), "contested.txt", bytes.NewReader(payloads[i]))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	// The survivor must be exactly one writer's payload, never a blend.
	got := mustRead(t, store, "contested.txt")
	found := false
	for _, p := range payloads {
		if bytes.Equal(got, p) {
			found = true
			break
		}
	}
	assert.True(t, found, "surviving content must match one complete write")
}

func (suite *StoreTestSuite) testConcurrentDistinctNames(t *testing.T) {
	store := suite.NewStore(t)

	const files = 16
	var wg sync.WaitGroup
	for i := 0; i < files; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("file-%02d.txt", i)
			_, err := store.Save(testContext(), name, bytes.NewReader([]byte(name)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	names := mustList(t, store)
	assert.Len(t, names, files)

	for i := 0; i < files; i++ {
		name := fmt.Sprintf("file-%02d.txt", i)
		reader, err := store.Open(testContext(), name)
		require.NoError(t, err)
		data, err := io.ReadAll(reader)
		reader.Close()
		require.NoError(t, err)
		assert.Equal(t, []byte(name), data)
	}
}
