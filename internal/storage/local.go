package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalStorage writes logos below a public directory on the local filesystem.
type LocalStorage struct {
	rootDir string
}

// NewLocalStorage creates the root directory if needed.
func NewLocalStorage(rootDir string) (*LocalStorage, error) {
	if err := os.MkdirAll(rootDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create root directory: %w", err)
	}
	return &LocalStorage{rootDir: rootDir}, nil
}

// Store writes content to rootDir/namespace/filename and returns "namespace/filename".
// An existing file is never replaced.
func (s *LocalStorage) Store(ctx context.Context, content []byte, namespace, filename, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key, err := objectKey(namespace, filename)
	if err != nil {
		return "", err
	}

	target := s.path(key)
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return "", fmt.Errorf("failed to create logo directory: %w", err)
	}

	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, fs.ErrExist) {
		return "", fmt.Errorf("%w: %s", ErrLogoExists, key)
	}
	if err != nil {
		return "", fmt.Errorf("failed to create logo: %w", err)
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		os.Remove(target)
		return "", fmt.Errorf("failed to write logo: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(target)
		return "", fmt.Errorf("failed to write logo: %w", err)
	}

	return key, nil
}

// Delete removes a stored logo. A missing file is not an error.
func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := splitKey(key)
	if err != nil {
		return err
	}
	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete logo: %w", err)
	}
	return nil
}

func (s *LocalStorage) path(key string) string {
	return filepath.Join(s.rootDir, filepath.FromSlash(key))
}
