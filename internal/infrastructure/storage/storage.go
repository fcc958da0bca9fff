package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/oksasatya/flowery-users/config"
)

// Store persists uploaded documents. Save returns the stored name, which is
// unique and safe to use as a URL path segment; BaseURL()+"/"+name is its
// public location.
type Store interface {
	Save(ctx context.Context, originalName string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, storedName string) error
	BaseURL() string
}

// New builds the store selected by cfg.StorageDriver.
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	switch strings.ToLower(cfg.StorageDriver) {
	case "", "local":
		return NewFileStore(cfg.UploadDir, cfg.DocumentsBaseURL())
	case "gcs":
		if cfg.GCSBucket == "" {
			return nil, errors.New("storage: GCS_BUCKET is required")
		}
		client, err := NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
		if err != nil {
			return nil, fmt.Errorf("storage: init gcs: %w", err)
		}
		return NewGCSStore(client, cfg.GCSBucket, cfg.DocumentsPrefix), nil
	case "minio", "s3":
		return NewObjectStore(ctx, ObjectStoreConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			Region:    cfg.MinioRegion,
			UseSSL:    cfg.MinioUseSSL,
			Prefix:    cfg.DocumentsPrefix,
		})
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", cfg.StorageDriver)
	}
}

// StoredName derives a unique object name from an uploaded filename, keeping
// the original base name for readability.
func StoredName(originalName string) string {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(originalName), "\\", "/"))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, base)
	base = strings.Trim(base, "-.")
	if base == "" {
		return uuid.NewString()
	}
	return uuid.NewString() + "-" + base
}

func objectKey(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}
