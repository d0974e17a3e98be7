package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

var ErrInvalidPath = errors.New("invalid storage path")

// LocalStorage keeps objects under root/<bucket>/<path>. Public URLs point at
// publicBase, which the API serves from the same directory.
type LocalStorage struct {
	root       string
	publicBase string
}

func NewLocalStorage(root, publicBase string) *LocalStorage {
	return &LocalStorage{root: root, publicBase: strings.TrimRight(publicBase, "/")}
}

func (s *LocalStorage) Root() string { return s.root }

func (s *LocalStorage) resolve(bucket, path string) (string, error) {
	clean := filepath.Clean("/" + filepath.FromSlash(path))
	if bucket == "" || strings.ContainsAny(bucket, `/\`) || clean == string(filepath.Separator) {
		return "", fmt.Errorf("%w: %s/%s", ErrInvalidPath, bucket, path)
	}
	return filepath.Join(s.root, bucket, clean), nil
}

func (s *LocalStorage) Upload(ctx context.Context, bucket, path string, data io.Reader, _ string) error {
	full, err := s.resolve(bucket, path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create storage dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, data); err != nil {
		tmp.Close()
		return fmt.Errorf("write upload data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return fmt.Errorf("store %s: %w", path, err)
	}
	return nil
}

func (s *LocalStorage) Download(_ context.Context, bucket, path string) (io.ReadCloser, error) {
	full, err := s.resolve(bucket, path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

func (s *LocalStorage) Delete(_ context.Context, bucket, path string) error {
	full, err := s.resolve(bucket, path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

func (s *LocalStorage) GetPublicURL(bucket, path string) string {
	return s.publicBase + "/" + url.PathEscape(bucket) + "/" + strings.TrimLeft(path, "/")
}
