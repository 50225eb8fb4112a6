// Package storage manages resume objects in Google Cloud Storage.
package storage

import (
	"context"
	stderrors "errors"
	"fmt"

	"formpilot/internal/config"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// ObjectStore signs URLs for and deletes objects in one bucket.
type ObjectStore interface {
	Bucket() string
	SignedURL(object string, opts *gcs.SignedURLOptions) (string, error)
	Delete(ctx context.Context, object string) error
}

// GCSStore is an ObjectStore backed by a GCS bucket.
type GCSStore struct {
	client *gcs.Client
	bucket *gcs.BucketHandle
	name   string
}

// NewGCSStore opens a client for cfg.Bucket. Without a credentials file the
// application default credentials are used.
func NewGCSStore(ctx context.Context, cfg config.StorageConfig) (*GCSStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: client.Bucket(cfg.Bucket), name: cfg.Bucket}, nil
}

// Bucket returns the bucket name.
func (s *GCSStore) Bucket() string {
	return s.name
}

// SignedURL returns a signed URL for object.
func (s *GCSStore) SignedURL(object string, opts *gcs.SignedURLOptions) (string, error) {
	return s.bucket.SignedURL(object, opts)
}

// Delete removes object. A missing object is not an error.
func (s *GCSStore) Delete(ctx context.Context, object string) error {
	err := s.bucket.Object(object).Delete(ctx)
	if stderrors.Is(err, gcs.ErrObjectNotExist) {
		return nil
	}
	return err
}

// Close releases the client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}
