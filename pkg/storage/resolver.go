package storage

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// MaxNameLength bounds the length of a client-supplied file name after
// trimming. Longer names are rejected with ErrInvalidName.
const MaxNameLength = 512

// TempPrefix marks temporary artifacts created by the filesystem backend's
// atomic-write mechanism. Names using this prefix are reserved: clients can
// never store, read or list them.
const TempPrefix = ".picloud-"

// IsTempArtifact reports whether base names an internal temporary artifact.
func IsTempArtifact(base string) bool {
	return strings.HasPrefix(base, TempPrefix)
}

// CleanName validates an untrusted file name and returns its canonical form:
// a slash-separated relative path with all "." and ".." segments collapsed.
//
// Backslashes are treated as path separators before normalization so that
// names produced by Windows clients cannot smuggle separators past the
// containment check.
//
// Failure modes:
//   - ErrInvalidName: empty after trimming, "." or "..", too long, or a
//     component reserved for temporary artifacts
//   - ErrPathEscape: absolute, or ".." segments escape upward after
//     normalization
//
// Pure function of its input; performs no I/O.
func CleanName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)

	if trimmed == "" {
		return "", fmt.Errorf("empty name: %w", ErrInvalidName)
	}
	if len(trimmed) > MaxNameLength {
		return "", fmt.Errorf("name exceeds %d bytes: %w", MaxNameLength, ErrInvalidName)
	}

	normalized := strings.ReplaceAll(trimmed, `\`, "/")

	if strings.HasPrefix(normalized, "/") {
		return "", fmt.Errorf("absolute name %q: %w", name, ErrPathEscape)
	}
	// Windows drive-letter or UNC leftovers ("C:", "//host") are absolute too.
	if len(normalized) >= 2 && normalized[1] == ':' {
		return "", fmt.Errorf("absolute name %q: %w", name, ErrPathEscape)
	}

	cleaned := path.Clean(normalized)

	if cleaned == "." || cleaned == ".." {
		return "", fmt.Errorf("reserved name %q: %w", name, ErrInvalidName)
	}
	if strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("name %q escapes upward: %w", name, ErrPathEscape)
	}

	if IsTempArtifact(path.Base(cleaned)) {
		return "", fmt.Errorf("name %q reserved for temporary artifacts: %w", name, ErrInvalidName)
	}

	return cleaned, nil
}

// Resolve turns an untrusted file name into an absolute path strictly
// contained within root.
//
// root must be an absolute directory path. The name is canonicalized with
// CleanName, joined with root, and the result is verified to keep root as a
// strict ancestor. Containment is checked on path components via
// filepath.Rel, not raw string prefixes, so a sibling directory like
// "/data-evil" can never pass for root "/data".
//
// Pure function of its inputs; performs no I/O.
func Resolve(root, name string) (string, error) {
	if !filepath.IsAbs(root) {
		return "", fmt.Errorf("storage root %q must be absolute", root)
	}

	cleaned, err := CleanName(name)
	if err != nil {
		return "", err
	}

	resolved := filepath.Join(root, filepath.FromSlash(cleaned))

	// Defense in depth: CleanName already rejects escaping names, but the
	// final path must still prove containment component-wise.
	rel, err := filepath.Rel(root, resolved)
	if err != nil {
		return "", fmt.Errorf("name %q: %w", name, ErrPathEscape)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("name %q resolves outside storage root: %w", name, ErrPathEscape)
	}

	return resolved, nil
}
