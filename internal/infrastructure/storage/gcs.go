package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const gcsPublicHost = "https://storage.googleapis.com"

// NewGCSClient creates a Cloud Storage client. With an empty credsPath the
// Application Default Credentials are used.
func NewGCSClient(ctx context.Context, credsPath string) (*gcs.Client, error) {
	if credsPath == "" {
		return gcs.NewClient(ctx)
	}
	return gcs.NewClient(ctx, option.WithCredentialsFile(credsPath))
}

// GCSStore keeps documents in a Google Cloud Storage bucket with public read.
type GCSStore struct {
	client *gcs.Client
	bucket string
	prefix string
}

func NewGCSStore(client *gcs.Client, bucket, prefix string) *GCSStore {
	return &GCSStore{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (s *GCSStore) BaseURL() string {
	return strings.TrimRight(fmt.Sprintf("%s/%s/%s", gcsPublicHost, s.bucket, s.prefix), "/")
}

func (s *GCSStore) Save(ctx context.Context, originalName string, r io.Reader, _ int64, contentType string) (string, error) {
	name := StoredName(originalName)
	w := s.client.Bucket(s.bucket).Object(objectKey(s.prefix, name)).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("storage: gcs upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("storage: gcs upload: %w", err)
	}
	return name, nil
}

func (s *GCSStore) Delete(ctx context.Context, storedName string) error {
	err := s.client.Bucket(s.bucket).Object(objectKey(s.prefix, storedName)).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("storage: gcs delete: %w", err)
	}
	return nil
}
