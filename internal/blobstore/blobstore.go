// Package blobstore stores content-addressed artifacts: canonical version text
// and export bundles. Objects are write-once; a second Put to the same path is a no-op.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

var ErrNotFound = errors.New("blob not found")

type Store interface {
	Put(ctx context.Context, path string, data []byte) error
	Get(ctx context.Context, path string) ([]byte, error)
}

// cleanKey rejects absolute or escaping keys and returns the normalized slash path.
func cleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid blob path %q", key)
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("invalid blob path %q", key)
	}
	return cleaned, nil
}

func VersionPath(documentID, sha string) string {
	return fmt.Sprintf("versions/%s/%s.txt", documentID, sha)
}

func PackagePath(versionID, packageHash string) string {
	return fmt.Sprintf("packages/%s/%s.md", versionID, packageHash)
}
