// Package storage uploads images and returns a resolvable public URL.
package storage

import (
	"context"
	"io"
	"path"

	"github.com/google/uuid"
)

// ImagesPrefix is the folder every uploaded image is written to
const ImagesPrefix = "images"

// Uploader stores a blob and returns the URL it can be fetched from
type Uploader interface {
	Upload(ctx context.Context, r io.Reader, contentType string) (string, error)
}

// NewObjectName returns a fresh images/<uuid> object name
func NewObjectName() string {
	return path.Join(ImagesPrefix, uuid.NewString())
}
