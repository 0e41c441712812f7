package client_test

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picloudlabs/picloud/pkg/api"
	"github.com/picloudlabs/picloud/pkg/client"
	"github.com/picloudlabs/picloud/pkg/storage"
	"github.com/picloudlabs/picloud/pkg/storage/memory"
)

// newTestPair starts an in-process server and returns a client bound to it.
func newTestPair(t *testing.T) *client.Client {
	t.Helper()

	srv := api.New(api.Config{
		ListenAddr:      ":0",
		ShutdownTimeout: 5 * time.Second,
		ReadTimeout:     time.Minute,
		WriteTimeout:    time.Minute,
		IdleTimeout:     time.Minute,
		MaxUploadBytes:  1 << 20,
	}, memory.New(0, nil))

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return client.New(ts.URL)
}

func TestClient_UploadDownloadRoundTrip(t *testing.T) {
	c := newTestPair(t)
	ctx := context.Background()

	content := []byte("round trip payload")
	result, err := c.Upload(ctx, "payload.bin", bytes.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, "payload.bin", result.Name)
	assert.Equal(t, int64(len(content)), result.Size)

	body, err := c.Download(ctx, "payload.bin")
	require.NoError(t, err)
	defer body.Close()

	got, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestClient_DownloadNotFound(t *testing.T) {
	c := newTestPair(t)

	_, err := c.Download(context.Background(), "absent.txt")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestClient_DeleteFlow(t *testing.T) {
	c := newTestPair(t)
	ctx := context.Background()

	_, err := c.Upload(ctx, "temp.txt", bytes.NewReader([]byte("x")))
	require.NoError(t, err)

	require.NoError(t, c.Delete(ctx, "temp.txt"))

	err = c.Delete(ctx, "temp.txt")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestClient_List(t *testing.T) {
	c := newTestPair(t)
	ctx := context.Background()

	names, err := c.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	for _, name := range []string{"one.txt", "two.txt"} {
		_, err := c.Upload(ctx, name, bytes.NewReader([]byte(name)))
		require.NoError(t, err)
	}

	names, err = c.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"one.txt", "two.txt"}, names)
}

func TestClient_InvalidNameSurfacesSentinel(t *testing.T) {
	c := newTestPair(t)

	_, err := c.Upload(context.Background(), ".picloud-evil.tmp", bytes.NewReader([]byte("x")))
	assert.ErrorIs(t, err, storage.ErrInvalidName)
}

func TestClient_NameWithSpaces(t *testing.T) {
	c := newTestPair(t)
	ctx := context.Background()

	_, err := c.Upload(ctx, "my notes.txt", bytes.NewReader([]byte("hello")))
	require.NoError(t, err)

	body, err := c.Download(ctx, "my notes.txt")
	require.NoError(t, err)
	defer body.Close()

	got, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}
