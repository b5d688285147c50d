package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/MarkoPoloResearchLab/collections/pkg/collection"
	"google.golang.org/api/option"
)

var _ collection.BlobStore = (*GCSStore)(nil)

// GCSConfig selects the bucket and, optionally, explicit service account credentials.
// Without credentials the client falls back to application default credentials.
type GCSConfig struct {
	Bucket          string
	Prefix          string
	CredentialsJSON string
}

// GCSStore keeps blobs as objects in a Google Cloud Storage bucket.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSStore opens a storage client for the configured bucket.
func NewGCSStore(ctx context.Context, cfg GCSConfig) (*GCSStore, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("%w: gcs bucket is required", ErrInvalidConfig)
	}
	var options []option.ClientOption
	if credentials := strings.TrimSpace(cfg.CredentialsJSON); credentials != "" {
		options = append(options, option.WithCredentialsJSON([]byte(credentials)))
	}
	client, err := storage.NewClient(ctx, options...)
	if err != nil {
		return nil, err
	}
	return &GCSStore{client: client, bucket: bucket, prefix: strings.Trim(cfg.Prefix, "/")}, nil
}

// Put uploads data as a new object and returns its key.
func (store *GCSStore) Put(ctx context.Context, filename string, contentType string, data []byte) (string, error) {
	key := objectKey(filename)
	writer := store.client.Bucket(store.bucket).Object(store.objectName(key)).NewWriter(ctx)
	writer.ContentType = contentTypeOrDefault(contentType)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}
	return key, nil
}

// Get downloads the object stored under key.
func (store *GCSStore) Get(ctx context.Context, key string) ([]byte, error) {
	reader, err := store.client.Bucket(store.bucket).Object(store.objectName(key)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: %s", collection.ErrBlobNotFound, key)
		}
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

// Delete removes the object stored under key.
func (store *GCSStore) Delete(ctx context.Context, key string) error {
	err := store.client.Bucket(store.bucket).Object(store.objectName(key)).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("%w: %s", collection.ErrBlobNotFound, key)
	}
	return err
}

// Close releases the storage client.
func (store *GCSStore) Close() error {
	return store.client.Close()
}

func (store *GCSStore) objectName(key string) string {
	if store.prefix == "" {
		return key
	}
	return store.prefix + "/" + key
}
