package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps documents on the local filesystem; the HTTP server serves
// the directory statically under baseURL.
type FileStore struct {
	basePath string
	baseURL  string
}

// NewFileStore initializes a FileStore rooted at basePath.
func NewFileStore(basePath, baseURL string) (*FileStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	return &FileStore{basePath: basePath, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// BasePath returns the configured root directory.
func (s *FileStore) BasePath() string { return s.basePath }

func (s *FileStore) BaseURL() string { return s.baseURL }

func (s *FileStore) Save(ctx context.Context, originalName string, r io.Reader, _ int64, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name, err := sanitizeKey(StoredName(originalName))
	if err != nil {
		return "", err
	}
	f, err := os.OpenFile(filepath.Join(s.basePath, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("storage: create file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("storage: write file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("storage: close file: %w", err)
	}
	return name, nil
}

func (s *FileStore) Delete(_ context.Context, storedName string) error {
	name, err := sanitizeKey(storedName)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.basePath, filepath.FromSlash(name))); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: remove file: %w", err)
	}
	return nil
}

// sanitizeKey normalizes a key and prevents escaping the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("storage: key is required")
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimLeft(strings.TrimPrefix(key, "./"), "/")
	cleaned := strings.ReplaceAll(filepath.Clean(key), "\\", "/")
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", errors.New("storage: invalid key")
	}
	return cleaned, nil
}
