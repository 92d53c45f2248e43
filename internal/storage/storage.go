// Package storage uploads enrollment documents to a blob bucket and derives the
// URL they can be fetched from.
package storage

import (
	"context"
	"path"
	"strings"

	"github.com/pkg/errors"
)

var ErrInvalidPath = errors.New("invalid object path")

type Bucket interface {
	Upload(ctx context.Context, objectPath, contentType string, data []byte) error
	URL(ctx context.Context, objectPath string) (string, error)
	Delete(ctx context.Context, objectPath string) error
}

// cleanPath rejects absolute paths and anything escaping the bucket root.
func cleanPath(p string) (string, error) {
	if p == "" || strings.HasPrefix(p, "/") {
		return "", errors.Wrap(ErrInvalidPath, p)
	}
	c := path.Clean(p)
	if c == "." || c == ".." || strings.HasPrefix(c, "../") {
		return "", errors.Wrap(ErrInvalidPath, p)
	}
	return c, nil
}
