package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goliatone/go-press/pkg/interfaces"
)

// LocalStorage writes uploads below a base directory and serves them from a
// public URL prefix.
type LocalStorage struct {
	dir       string
	publicURL string
	keys      keyer
}

var _ interfaces.FileStorage = (*LocalStorage)(nil)

// NewLocalStorage creates the base directory when missing.
func NewLocalStorage(dir, publicURL string, opts ...Option) (*LocalStorage, error) {
	if dir == "" {
		return nil, fmt.Errorf("files: local directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("files: create %s: %w", dir, err)
	}
	if publicURL == "" {
		publicURL = "/" + DefaultPrefix
	}
	return &LocalStorage{dir: dir, publicURL: publicURL, keys: newKeyer(opts)}, nil
}

func (s *LocalStorage) Put(ctx context.Context, upload interfaces.FileUpload) (interfaces.FileRef, error) {
	if upload.Body == nil {
		return interfaces.FileRef{}, ErrBodyRequired
	}
	if err := ctx.Err(); err != nil {
		return interfaces.FileRef{}, err
	}

	key := s.keys.newKey(upload)
	target := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return interfaces.FileRef{}, fmt.Errorf("files: create directory: %w", err)
	}

	file, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return interfaces.FileRef{}, fmt.Errorf("files: create %s: %w", key, err)
	}
	size, copyErr := io.Copy(file, upload.Body)
	closeErr := file.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(target)
		return interfaces.FileRef{}, fmt.Errorf("files: write %s: %w", key, err)
	}

	s.keys.logger.Info("files.put.success", "backend", "local", "key", key, "size", size)
	return interfaces.FileRef{
		Key:         key,
		URL:         s.URL(key),
		ContentType: upload.ContentType,
		Size:        size,
	}, nil
}

func (s *LocalStorage) Delete(_ context.Context, key string) error {
	if !validKey(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(key)))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return fmt.Errorf("files: delete %s: %w", key, err)
	}
	s.keys.logger.Info("files.delete.success", "backend", "local", "key", key)
	return nil
}

func (s *LocalStorage) URL(key string) string {
	return joinURL(s.publicURL, key)
}

// Dir returns the base directory, used to mount a static file server.
func (s *LocalStorage) Dir() string {
	return s.dir
}
