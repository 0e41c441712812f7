// This file contains the route handlers and the storage-error-to-status
// mapping.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/picloudlabs/picloud/internal/logger"
	"github.com/picloudlabs/picloud/pkg/storage"
)

type uploadResponse struct {
	Message string `json:"message"`
	Name    string `json:"name"`
	Size    int64  `json:"size"`
}

type deleteResponse struct {
	Message string `json:"message"`
}

type listResponse struct {
	Files []string `json:"files"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleUpload stores the uploaded multipart file under the name carried in
// its part metadata.
//
// POST /file/upload, form field "file". Responds 201 with the stored name
// and size.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{
				Error: fmt.Sprintf("upload exceeds limit of %d bytes", s.config.MaxUploadBytes),
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing multipart field \"file\""})
		return
	}
	defer func() { _ = file.Close() }()

	info, err := s.store.Save(r.Context(), header.Filename, file)
	if err != nil {
		s.writeStorageError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, uploadResponse{
		Message: fmt.Sprintf("Upload successful, %s stored (%d bytes)", info.Name, info.Size),
		Name:    info.Name,
		Size:    info.Size,
	})
}

// handleDownload streams the stored file to the client.
//
// GET /file/download/{filename}. Responds 404 when the file is absent.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := routeFileName(r)

	info, err := s.store.Stat(r.Context(), name)
	if err != nil {
		s.writeStorageError(w, err)
		return
	}

	rc, err := s.store.Open(r.Context(), name)
	if err != nil {
		s.writeStorageError(w, err)
		return
	}
	defer func() { _ = rc.Close() }()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", fmt.Sprintf("%d", info.Size))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", info.Name))

	if _, err := io.Copy(w, rc); err != nil {
		// Headers are already on the wire; the client sees a truncated
		// body. All we can do is log it.
		logger.Warn("Download of %s aborted: %v", info.Name, err)
	}
}

// handleDelete removes the stored file.
//
// DELETE /file/delete/{filename}. Responds 404 when the file is absent,
// including when a concurrent delete got there first.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	name := routeFileName(r)

	if err := s.store.Delete(r.Context(), name); err != nil {
		s.writeStorageError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, deleteResponse{
		Message: fmt.Sprintf("%s deleted", name),
	})
}

// handleList enumerates stored files.
//
// GET /files. The order of the returned names is unspecified.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	names, err := s.store.List(r.Context())
	if err != nil {
		s.writeStorageError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse{Files: names})
}

// routeFileName extracts the file name from the trailing wildcard path
// segment. The wildcard (rather than a single-segment parameter) lets
// names that contain encoded separators reach the resolver, which decides
// whether they are acceptable.
func routeFileName(r *http.Request) string {
	raw := chi.URLParam(r, "*")
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

// writeStorageError maps the storage error taxonomy onto status codes:
// invalid names and path escapes are client errors, missing files are 404,
// everything else is an internal error whose details stay in the log.
func (s *Server) writeStorageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrInvalidName), errors.Is(err, storage.ErrPathEscape):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, storage.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "file not found"})
	default:
		logger.Error("Storage operation failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal storage error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn("Failed to encode response: %v", err)
	}
}
