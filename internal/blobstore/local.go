package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/MarkoPoloResearchLab/collections/pkg/collection"
)

const (
	directoryMode = 0o750
	fileMode      = 0o640
)

var _ collection.BlobStore = (*LocalStore)(nil)

// LocalStore writes blobs below a root directory.
type LocalStore struct {
	root string
}

// NewLocalStore creates the root directory when needed.
func NewLocalStore(root string) (*LocalStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("%w: local root directory is required", ErrInvalidConfig)
	}
	absolute, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := os.MkdirAll(absolute, directoryMode); err != nil {
		return nil, err
	}
	return &LocalStore{root: absolute}, nil
}

// Put stores data under a new key and returns it. The content type is not kept on disk.
func (store *LocalStore) Put(ctx context.Context, filename string, contentType string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := objectKey(filename)
	target := filepath.Join(store.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), directoryMode); err != nil {
		return "", err
	}
	if err := os.WriteFile(target, data, fileMode); err != nil {
		return "", err
	}
	return key, nil
}

// Get reads the blob stored under key.
func (store *LocalStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	target, err := store.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(target)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", collection.ErrBlobNotFound, key)
	}
	return data, err
}

// Delete removes the blob and its key directory.
func (store *LocalStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target, err := store.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", collection.ErrBlobNotFound, key)
		}
		return err
	}
	if directory := filepath.Dir(target); directory != store.root {
		_ = os.Remove(directory)
	}
	return nil
}

// resolve maps a key to a path inside the root; keys escaping it are treated as unknown.
func (store *LocalStore) resolve(key string) (string, error) {
	relative := filepath.FromSlash(strings.TrimSpace(key))
	if relative == "" || !filepath.IsLocal(relative) {
		return "", fmt.Errorf("%w: %s", collection.ErrBlobNotFound, key)
	}
	return filepath.Join(store.root, relative), nil
}
