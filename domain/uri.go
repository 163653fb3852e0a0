package domain

import (
	"fmt"
	"path/filepath"
	"strings"
)

// URI scheme constants. Proposed content lives under the remedy scheme so
// editors can diff it against the real file; originals are exposed read-only
// under remedy-ro.
const (
	FileURIPrefix   = "file://"
	ProposedScheme  = "remedy"
	OriginalScheme  = "remedy-ro"
	schemeSeparator = ":/"
)

// IsFileURI reports whether uri uses the file scheme
func IsFileURI(uri string) bool {
	return strings.HasPrefix(uri, FileURIPrefix)
}

// FileURI converts an absolute path into a file:// URI
func FileURI(path string) string {
	return FileURIPrefix + filepath.ToSlash(path)
}

// URIToPath converts a file:// URI back into a filesystem path
func URIToPath(uri string) (string, error) {
	if !IsFileURI(uri) {
		return "", NewInvalidPayloadError(fmt.Sprintf("not a file URI: %s", uri), nil)
	}
	path := strings.TrimPrefix(uri, FileURIPrefix)
	if path == "" {
		return "", NewInvalidPayloadError(fmt.Sprintf("empty path in URI: %s", uri), nil)
	}
	return filepath.FromSlash(path), nil
}

// ProposedURI builds the overlay URI for a workspace-relative path
func ProposedURI(rel string) string {
	return ProposedScheme + schemeSeparator + filepath.ToSlash(rel)
}

// OriginalURI builds the read-only overlay URI for a workspace-relative path
func OriginalURI(rel string) string {
	return OriginalScheme + schemeSeparator + filepath.ToSlash(rel)
}

// ParseOverlayURI splits an overlay URI into its scheme and relative path
func ParseOverlayURI(uri string) (scheme, rel string, err error) {
	for _, s := range []string{OriginalScheme, ProposedScheme} {
		prefix := s + schemeSeparator
		if strings.HasPrefix(uri, prefix) {
			rel = strings.TrimPrefix(uri, prefix)
			if rel == "" {
				return "", "", NewInvalidPayloadError(fmt.Sprintf("empty path in URI: %s", uri), nil)
			}
			return s, filepath.FromSlash(rel), nil
		}
	}
	return "", "", NewInvalidPayloadError(fmt.Sprintf("not an overlay URI: %s", uri), nil)
}
