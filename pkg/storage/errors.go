package storage

import (
	"errors"
	"fmt"
)

// ============================================================================
// Standard Storage Errors
// ============================================================================

// These errors provide a consistent way to indicate common failure conditions
// across all store implementations. The HTTP adapter checks for these errors
// and maps them to status codes.
//
// Usage Pattern:
//
//	rc, err := store.Open(ctx, name)
//	if err != nil {
//	    if errors.Is(err, storage.ErrNotFound) {
//	        return http.StatusNotFound
//	    }
//	    return http.StatusInternalServerError
//	}
//
// Implementations wrap these errors with additional context:
//
//	if !exists {
//	    return fmt.Errorf("file %s: %w", name, storage.ErrNotFound)
//	}

var (
	// ErrInvalidName indicates the client-supplied file name is unusable.
	//
	// This error is returned when:
	//   - The name is empty after trimming whitespace
	//   - The name is "." or ".."
	//   - The name exceeds MaxNameLength
	//   - The name collides with internal temporary artifacts
	//
	// This is a permanent client error - retrying won't help.
	//
	// HTTP mapping: 400 Bad Request
	ErrInvalidName = errors.New("invalid file name")

	// ErrPathEscape indicates the name would resolve outside the storage root.
	//
	// This error is returned when:
	//   - The name is an absolute path
	//   - ".." segments would escape the root after normalization
	//
	// This is a permanent client error - retrying won't help.
	//
	// HTTP mapping: 400 Bad Request
	ErrPathEscape = errors.New("file name escapes storage root")

	// ErrNotFound indicates the requested file does not exist.
	//
	// This error is returned when:
	//   - Open() or Stat() called for a name with no stored file
	//   - Delete() called for an absent file (including the benign case
	//     where a concurrent delete removed it first)
	//   - The resolved path exists but is not a regular file
	//
	// HTTP mapping: 404 Not Found
	ErrNotFound = errors.New("file not found")
)

// IOError wraps an environment failure (disk full, permission denied,
// backend unavailable) encountered during a store operation. Unlike the
// sentinel errors above it may be transient.
//
// HTTP mapping: 500 Internal Server Error.
type IOError struct {
	Op   string // operation that failed: "save", "open", "delete", "list", "stat"
	Name string // file name involved, if any
	Err  error  // underlying error
}

func (e *IOError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("storage %s %s: %v", e.Op, e.Name, e.Err)
	}
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError wraps err as a storage I/O failure for the given operation.
func NewIOError(op, name string, err error) *IOError {
	return &IOError{Op: op, Name: name, Err: err}
}
