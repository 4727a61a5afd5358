package attachments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"

	"github.com/dvloznov/vehicle-tracker/internal/domain"
)

const uploadTimeout = 2 * time.Minute

// ObjectStore reads and writes blobs in a bucket.
type ObjectStore interface {
	Put(ctx context.Context, bucket, object, contentType string, r io.Reader) error
	// Get returns the object bytes and content type, or domain.ErrNotFound.
	Get(ctx context.Context, bucket, object string) ([]byte, string, error)
}

// GCSObjectStore is an ObjectStore on Google Cloud Storage. It uses
// Application Default Credentials.
type GCSObjectStore struct {
	client *storage.Client
}

func NewGCSObjectStore(ctx context.Context) (*GCSObjectStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCSObjectStore: create storage client: %w", err)
	}
	return &GCSObjectStore{client: client}, nil
}

func (s *GCSObjectStore) Close() error {
	return s.client.Close()
}

func (s *GCSObjectStore) Put(ctx context.Context, bucket, object, contentType string, r io.Reader) error {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := s.client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("Put: copy to GCS writer: %w", err)
	}
	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return fmt.Errorf("Put: finalize upload: %w", err)
	}
	return nil
}

func (s *GCSObjectStore) Get(ctx context.Context, bucket, object string) ([]byte, string, error) {
	rc, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, "", fmt.Errorf("Get: %w: gs://%s/%s", domain.ErrNotFound, bucket, object)
	}
	if err != nil {
		return nil, "", fmt.Errorf("Get: reading object %s/%s: %w", bucket, object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, "", fmt.Errorf("Get: reading bytes: %w", err)
	}
	return data, rc.Attrs.ContentType, nil
}
