package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type ObjectStoreConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	Prefix    string
}

// ObjectStore keeps documents in an S3-compatible bucket through MinIO.
type ObjectStore struct {
	client  *minio.Client
	cfg     ObjectStoreConfig
	baseURL string
}

// NewObjectStore connects and makes sure the bucket exists.
func NewObjectStore(ctx context.Context, cfg ObjectStoreConfig) (*ObjectStore, error) {
	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL
	if strings.HasPrefix(endpoint, "http") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("parse endpoint: %w", err)
		}
		endpoint = u.Host
		useSSL = u.Scheme == "https"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("bucket exists %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}

	scheme := "http"
	if useSSL {
		scheme = "https"
	}
	cfg.Prefix = strings.Trim(cfg.Prefix, "/")
	base := scheme + "://" + endpoint + "/" + cfg.Bucket
	if cfg.Prefix != "" {
		base += "/" + cfg.Prefix
	}
	return &ObjectStore{client: client, cfg: cfg, baseURL: base}, nil
}

func (s *ObjectStore) BaseURL() string { return s.baseURL }

func (s *ObjectStore) Save(ctx context.Context, originalName string, r io.Reader, size int64, contentType string) (string, error) {
	name := StoredName(originalName)
	if size <= 0 {
		size = -1
	}
	_, err := s.client.PutObject(ctx, s.cfg.Bucket, objectKey(s.cfg.Prefix, name), r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("storage: put object: %w", err)
	}
	return name, nil
}

func (s *ObjectStore) Delete(ctx context.Context, storedName string) error {
	if err := s.client.RemoveObject(ctx, s.cfg.Bucket, objectKey(s.cfg.Prefix, storedName), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("storage: remove object: %w", err)
	}
	return nil
}
