// Package client provides a Go client for the picloud HTTP API.
//
// It wraps the four file operations (upload, download, delete, list)
// exposed by the server and translates API error responses back into
// Go errors, including the storage sentinel errors where the status
// code identifies them.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/picloudlabs/picloud/pkg/storage"
)

// DefaultTimeout bounds requests issued by clients created with New.
// Downloads stream the body after the timeout-free response headers
// arrive, so large transfers are not cut off by it.
const DefaultTimeout = 5 * time.Minute

// Client talks to a picloud server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the server at baseURL, for example
// "http://localhost:8080". A trailing slash is tolerated.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// NewWithHTTPClient creates a client using a caller-supplied
// http.Client, for custom transports or timeouts.
func NewWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// UploadResult describes a completed upload.
type UploadResult struct {
	Name string
	Size int64
}

// Upload stores the content read from r under the given file name.
func (c *Client) Upload(ctx context.Context, name string, r io.Reader) (UploadResult, error) {
	// The multipart body is streamed through a pipe so uploads do not
	// buffer the whole file in memory.
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile("file", name)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, r); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/file/upload", pr)
	if err != nil {
		return UploadResult{}, fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return UploadResult{}, fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return UploadResult{}, c.errorFromResponse(resp)
	}

	var body struct {
		Name string `json:"name"`
		Size int64  `json:"size"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return UploadResult{}, fmt.Errorf("failed to decode upload response: %w", err)
	}

	return UploadResult{Name: body.Name, Size: body.Size}, nil
}

// Download fetches the named file. The caller must close the returned
// reader.
func (c *Client) Download(ctx context.Context, name string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.fileURL("/file/download/", name), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, c.errorFromResponse(resp)
	}

	return resp.Body, nil
}

// Delete removes the named file from the server.
func (c *Client) Delete(ctx context.Context, name string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.fileURL("/file/delete/", name), nil)
	if err != nil {
		return fmt.Errorf("failed to build delete request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.errorFromResponse(resp)
	}

	return nil
}

// List returns the names of all stored files.
func (c *Client) List(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/files", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build list request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.errorFromResponse(resp)
	}

	var body struct {
		Files []string `json:"files"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode list response: %w", err)
	}

	return body.Files, nil
}

// fileURL builds a URL for a per-file route, escaping each path
// segment of the name individually so names with subdirectories keep
// their separators.
func (c *Client) fileURL(route, name string) string {
	segments := strings.Split(name, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return c.baseURL + route + strings.Join(segments, "/")
}

// errorFromResponse turns a non-success API response into an error,
// mapping known status codes onto the storage sentinels.
func (c *Client) errorFromResponse(resp *http.Response) error {
	message := resp.Status

	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err == nil && body.Error != "" {
		message = body.Error
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", message, storage.ErrNotFound)
	case http.StatusBadRequest:
		return fmt.Errorf("%s: %w", message, storage.ErrInvalidName)
	default:
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, message)
	}
}
