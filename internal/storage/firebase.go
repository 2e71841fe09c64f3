package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"

	gcs "cloud.google.com/go/storage"
	"github.com/google/uuid"
)

// Firebase uploads to the Firebase Storage bucket and returns a token-bearing
// download URL, the same form the Firebase client SDKs hand out.
type Firebase struct {
	bucket *gcs.BucketHandle
	name   string
}

// NewFirebase creates a Firebase uploader for the named bucket
func NewFirebase(bucket *gcs.BucketHandle, name string) *Firebase {
	return &Firebase{bucket: bucket, name: name}
}

// Upload writes r to images/<uuid>
func (f *Firebase) Upload(ctx context.Context, r io.Reader, contentType string) (string, error) {
	object := NewObjectName()
	token := uuid.NewString()

	w := f.bucket.Object(object).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = map[string]string{"firebaseStorageDownloadTokens": token}

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to upload %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize %s: %w", object, err)
	}

	return DownloadURL(f.name, object, token), nil
}

// DownloadURL builds the public download URL of a Firebase Storage object
func DownloadURL(bucket, object, token string) string {
	return fmt.Sprintf("https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s",
		bucket, url.PathEscape(object), token)
}
