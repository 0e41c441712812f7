package badger_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picloudlabs/picloud/pkg/storage"
	"github.com/picloudlabs/picloud/pkg/storage/badger"
	storagetesting "github.com/picloudlabs/picloud/pkg/storage/testing"
)

func newTestStore(t *testing.T) *badger.BadgerStore {
	t.Helper()
	store, err := badger.New(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	return store
}

func TestBadgerStore_Contract(t *testing.T) {
	suite := &storagetesting.StoreTestSuite{
		NewStore: func(t *testing.T) storage.Store {
			return newTestStore(t)
		},
	}
	suite.Run(t)
}

func TestBadgerStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := badger.New(dir, nil)
	require.NoError(t, err)

	_, err = store.Save(context.Background(), "durable.txt", bytes.NewReader([]byte("persisted")))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := badger.New(dir, nil)
	require.NoError(t, err)
	defer reopened.Close()

	reader, err := reopened.Open(context.Background(), "durable.txt")
	require.NoError(t, err)
	defer reader.Close()

	buf := new(bytes.Buffer)
	_, err = buf.ReadFrom(reader)
	require.NoError(t, err)
	assert.Equal(t, "persisted", buf.String())
}
