package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStorage keeps files under a directory. The API serves receipts from
// it and the device agent persists its offline queue in it.
type LocalStorage struct {
	basePath string
	baseURL  string // e.g., "http://localhost:8080/uploads"
}

func NewLocalStorage(basePath, baseURL string) (*LocalStorage, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalStorage{
		basePath: abs,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}, nil
}

// resolve maps a key to a path inside basePath, refusing traversal.
func (s *LocalStorage) resolve(path string) (string, string, error) {
	cleanPath := filepath.Clean("/" + path)[1:]
	fullPath := filepath.Join(s.basePath, cleanPath)
	if cleanPath == "" || !strings.HasPrefix(fullPath, s.basePath+string(filepath.Separator)) {
		return "", "", fmt.Errorf("invalid file path: %s", path)
	}
	return cleanPath, fullPath, nil
}

// Upload writes to a temporary file and renames it into place so readers
// never observe a partial file.
func (s *LocalStorage) Upload(ctx context.Context, file io.Reader, path string, contentType string) (string, error) {
	cleanPath, fullPath, err := s.resolve(path)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return "", fmt.Errorf("failed to move file into place: %w", err)
	}

	return filepath.ToSlash(cleanPath), nil
}

func (s *LocalStorage) Download(ctx context.Context, path string) (io.ReadCloser, error) {
	_, fullPath, err := s.resolve(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return file, nil
}

func (s *LocalStorage) Delete(ctx context.Context, path string) error {
	_, fullPath, err := s.resolve(path)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

// GetURL returns the static URL; local files are not signed.
func (s *LocalStorage) GetURL(ctx context.Context, path string, expiry time.Duration) (string, error) {
	cleanPath, _, err := s.resolve(path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s", s.baseURL, filepath.ToSlash(cleanPath)), nil
}

func (s *LocalStorage) Exists(ctx context.Context, path string) (bool, error) {
	_, fullPath, err := s.resolve(path)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}
