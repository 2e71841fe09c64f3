package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Local stores uploads on disk under basePath and serves them from baseURL
type Local struct {
	basePath string
	baseURL  string
}

// NewLocal creates the storage directory and returns a Local uploader
func NewLocal(basePath, baseURL string) (*Local, error) {
	if err := os.MkdirAll(filepath.Join(basePath, ImagesPrefix), 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &Local{basePath: basePath, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Upload writes r to <basePath>/images/<uuid>
func (s *Local) Upload(ctx context.Context, r io.Reader, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	object := NewObjectName()
	fullPath := filepath.Join(s.basePath, filepath.FromSlash(object))

	dst, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	if _, err = io.Copy(dst, r); err != nil {
		dst.Close()
		os.Remove(fullPath)
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	logrus.WithField("path", fullPath).Debug("image stored")
	return s.baseURL + "/" + object, nil
}
