package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picloudlabs/picloud/pkg/api"
	"github.com/picloudlabs/picloud/pkg/storage/memory"
)

func testConfig() api.Config {
	return api.Config{
		ListenAddr:      ":0",
		ShutdownTimeout: 5 * time.Second,
		ReadTimeout:     time.Minute,
		WriteTimeout:    time.Minute,
		IdleTimeout:     time.Minute,
		MaxUploadBytes:  1 << 20,
	}
}

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	return api.New(testConfig(), memory.New(0, nil)).Handler()
}

// multipartBody builds a multipart form with a single "file" field.
func multipartBody(t *testing.T, fieldName, fileName string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	body := new(bytes.Buffer)
	mw := multipart.NewWriter(body)

	part, err := mw.CreateFormFile(fieldName, fileName)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	return body, mw.FormDataContentType()
}

func uploadFile(t *testing.T, handler http.Handler, name string, content []byte) *httptest.ResponseRecorder {
	t.Helper()

	body, contentType := multipartBody(t, "file", name, content)
	req := httptest.NewRequest(http.MethodPost, "/file/upload", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestUpload_Success(t *testing.T) {
	handler := newTestServer(t)

	rec := uploadFile(t, handler, "report.pdf", []byte("pdf bytes"))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp struct {
		Message string `json:"message"`
		Name    string `json:"name"`
		Size    int64  `json:"size"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "report.pdf", resp.Name)
	assert.Equal(t, int64(9), resp.Size)
	assert.NotEmpty(t, resp.Message)
}

func TestUpload_MissingFileField(t *testing.T) {
	handler := newTestServer(t)

	body, contentType := multipartBody(t, "wrong-field", "report.pdf", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/file/upload", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpload_TraversalNameNeutralized(t *testing.T) {
	handler := newTestServer(t)

	// multipart.FileHeader.Filename is already reduced to its base name by
	// the standard library, so the stored name carries no path segments.
	rec := uploadFile(t, handler, "../../etc/passwd", []byte("pwned"))

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "passwd", resp.Name)
}

func TestUpload_ReservedNameRejected(t *testing.T) {
	handler := newTestServer(t)

	// Temp-artifact names survive base-name extraction and must be refused
	// by the resolver.
	rec := uploadFile(t, handler, ".picloud-123.tmp", []byte("x"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Error)
}

func TestUpload_TooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.MaxUploadBytes = 64
	handler := api.New(cfg, memory.New(0, nil)).Handler()

	rec := uploadFile(t, handler, "huge.bin", bytes.Repeat([]byte("a"), 1024))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestDownload_Success(t *testing.T) {
	handler := newTestServer(t)

	content := []byte("the quick brown fox")
	require.Equal(t, http.StatusCreated, uploadFile(t, handler, "fox.txt", content).Code)

	req := httptest.NewRequest(http.MethodGet, "/file/download/fox.txt", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "19", rec.Header().Get("Content-Length"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "fox.txt")

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, content, body)
}

func TestDownload_NotFound(t *testing.T) {
	handler := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/file/download/missing.txt", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "file not found", resp.Error)
}

func TestDownload_EscapedNestedName(t *testing.T) {
	handler := newTestServer(t)

	require.Equal(t, http.StatusCreated, uploadFile(t, handler, "photos/cat.jpg", []byte("img")).Code)

	req := httptest.NewRequest(http.MethodGet, "/file/download/photos/cat.jpg", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "img", rec.Body.String())
}

func TestDownload_TraversalRejected(t *testing.T) {
	handler := newTestServer(t)

	for _, target := range []string{
		"/file/download/../../etc/passwd",
		"/file/download/..%2F..%2Fetc%2Fpasswd",
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, "GET %s", target)
	}
}

func TestDelete_Success(t *testing.T) {
	handler := newTestServer(t)

	require.Equal(t, http.StatusCreated, uploadFile(t, handler, "victim.txt", []byte("x")).Code)

	req := httptest.NewRequest(http.MethodDelete, "/file/delete/victim.txt", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	// The file must be gone afterwards.
	req = httptest.NewRequest(http.MethodGet, "/file/download/victim.txt", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDelete_NotFound(t *testing.T) {
	handler := newTestServer(t)

	req := httptest.NewRequest(http.MethodDelete, "/file/delete/never.txt", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestList_Flow(t *testing.T) {
	handler := newTestServer(t)

	listNames := func() []string {
		req := httptest.NewRequest(http.MethodGet, "/files", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Files []string `json:"files"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp.Files
	}

	assert.Empty(t, listNames())

	require.Equal(t, http.StatusCreated, uploadFile(t, handler, "a.txt", []byte("a")).Code)
	require.Equal(t, http.StatusCreated, uploadFile(t, handler, "b.txt", []byte("b")).Code)

	assert.ElementsMatch(t, []string{"a.txt", "b.txt"}, listNames())
}

func TestHealthz(t *testing.T) {
	handler := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestServe_GracefulShutdown(t *testing.T) {
	srv := api.New(testConfig(), memory.New(0, nil))

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx)
	}()

	// Give the listener a moment to come up, then cancel.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
