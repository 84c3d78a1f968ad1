package source

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStoreConfig describes an S3-compatible bucket (MinIO, R2, S3).
type ObjectStoreConfig struct {
	Endpoint  string // host[:port], no scheme
	Bucket    string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

// ObjectStore reads and writes CSV objects in an S3-compatible bucket.
type ObjectStore struct {
	client *minio.Client
	bucket string
}

// NewObjectStore creates a client for cfg. No request is made until first use.
func NewObjectStore(cfg ObjectStoreConfig) (*ObjectStore, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("object store: endpoint and bucket are required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("object store: create client: %w", err)
	}
	return &ObjectStore{client: client, bucket: cfg.Bucket}, nil
}

// Open implements Store. The size comes from StatObject so a missing key
// fails before any body is streamed.
func (s *ObjectStore) Open(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	if err := ValidateKey(key); err != nil {
		return nil, 0, err
	}
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, 0, classifyObjectError(key, err)
	}
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, classifyObjectError(key, err)
	}
	return obj, info.Size, nil
}

// Put implements Store.
func (s *ObjectStore) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: "text/csv",
	})
	if err != nil {
		return classifyObjectError(key, err)
	}
	return nil
}

// Delete implements Store. S3 treats removing a missing key as success.
func (s *ObjectStore) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return classifyObjectError(key, err)
	}
	return nil
}

// Ping checks that the bucket is reachable.
func (s *ObjectStore) Ping(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("object store: %w", err)
	}
	if !exists {
		return fmt.Errorf("object store: bucket %q does not exist", s.bucket)
	}
	return nil
}

func classifyObjectError(key string, err error) error {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		switch resp.Code {
		case "NoSuchKey", "NoSuchObject":
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
	}
	return fmt.Errorf("object store %s: %w", key, err)
}
