package memory_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picloudlabs/picloud/pkg/storage"
	"github.com/picloudlabs/picloud/pkg/storage/memory"
	storagetesting "github.com/picloudlabs/picloud/pkg/storage/testing"
)

func TestMemoryStore_Contract(t *testing.T) {
	suite := &storagetesting.StoreTestSuite{
		NewStore: func(t *testing.T) storage.Store {
			return memory.New(0, nil)
		},
	}
	suite.Run(t)
}

func TestMemoryStore_CapacityEnforced(t *testing.T) {
	store := memory.New(10, nil)

	_, err := store.Save(context.Background(), "small.txt", bytes.NewReader([]byte("12345")))
	require.NoError(t, err)

	_, err = store.Save(context.Background(), "big.txt", bytes.NewReader([]byte("this exceeds the limit")))
	require.Error(t, err)

	var ioErr *storage.IOError
	assert.ErrorAs(t, err, &ioErr)

	// The failed save must not appear in the listing.
	names, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"small.txt"}, names)
}

func TestMemoryStore_OverwriteReleasesCapacity(t *testing.T) {
	store := memory.New(10, nil)

	_, err := store.Save(context.Background(), "a.txt", bytes.NewReader([]byte("123456789")))
	require.NoError(t, err)

	// Replacing the file with a smaller one frees the difference.
	_, err = store.Save(context.Background(), "a.txt", bytes.NewReader([]byte("12")))
	require.NoError(t, err)

	_, err = store.Save(context.Background(), "b.txt", bytes.NewReader([]byte("1234567")))
	require.NoError(t, err)
}

func TestMemoryStore_DeleteReleasesCapacity(t *testing.T) {
	store := memory.New(5, nil)

	_, err := store.Save(context.Background(), "a.txt", bytes.NewReader([]byte("12345")))
	require.NoError(t, err)

	require.NoError(t, store.Delete(context.Background(), "a.txt"))

	_, err = store.Save(context.Background(), "b.txt", bytes.NewReader([]byte("54321")))
	require.NoError(t, err)
}

func TestMemoryStore_OpenSnapshotSurvivesDelete(t *testing.T) {
	store := memory.New(0, nil)

	_, err := store.Save(context.Background(), "gone.txt", bytes.NewReader([]byte("still readable")))
	require.NoError(t, err)

	reader, err := store.Open(context.Background(), "gone.txt")
	require.NoError(t, err)
	defer reader.Close()

	require.NoError(t, store.Delete(context.Background(), "gone.txt"))

	buf := new(bytes.Buffer)
	_, err = buf.ReadFrom(reader)
	require.NoError(t, err)
	assert.Equal(t, "still readable", buf.String())
}
