package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"
)

// ErrNotFound is returned when a key has no stored object.
var ErrNotFound = errors.New("object not found")

// Store retrieves and saves raw CSV objects by key.
type Store interface {
	// Open returns the object body and its size in bytes.
	Open(ctx context.Context, key string) (io.ReadCloser, int64, error)
	// Put stores size bytes from r under key.
	Put(ctx context.Context, key string, r io.Reader, size int64) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// ValidateKey rejects keys that are empty, absolute or escape their root.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("invalid object key: empty")
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("invalid object key %q", key)
	}
	if clean := path.Clean(key); clean != key || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("invalid object key %q", key)
	}
	return nil
}

// FileStore keeps objects as files under one directory. Keys are resolved
// inside the directory with os.Root, so no key can reach outside it.
type FileStore struct {
	root *os.Root
}

// NewFileStore opens dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("open store directory: %w", err)
	}
	return &FileStore{root: root}, nil
}

// Open implements Store.
func (s *FileStore) Open(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	if err := ValidateKey(key); err != nil {
		return nil, 0, err
	}
	f, err := s.root.Open(key)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("open %s: %w", key, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("stat %s: %w", key, err)
	}
	return f, info.Size(), nil
}

// Put implements Store. Keys are flat file names within the directory.
func (s *FileStore) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateKey(key); err != nil {
		return err
	}
	f, err := s.root.Create(key)
	if err != nil {
		return fmt.Errorf("create %s: %w", key, err)
	}
	n, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	if size >= 0 && n != size {
		return fmt.Errorf("write %s: wrote %d of %d bytes", key, n, size)
	}
	return nil
}

// Delete implements Store.
func (s *FileStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := s.root.Remove(key); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Close releases the directory handle.
func (s *FileStore) Close() error {
	return s.root.Close()
}
