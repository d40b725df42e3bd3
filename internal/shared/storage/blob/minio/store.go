package minio

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"clipboard-backend/internal/shared/storage/blob"
)

// Store implements blob.Store against any S3-compatible endpoint via MinIO.
type Store struct {
	client *minio.Client
	bucket string
	useSSL bool
}

// Config holds MinIO connection settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// New creates a MinIO-backed blob store.
func New(cfg Config) (*Store, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("minio bucket is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	return &Store{client: client, bucket: cfg.Bucket, useSSL: cfg.UseSSL}, nil
}

// Put uploads the reader contents at the given path.
func (s *Store) Put(ctx context.Context, p string, contentType string, r io.Reader) (blob.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return blob.ObjectInfo{}, err
	}

	// Size -1 streams with multipart chunking when the length is unknown.
	info, err := s.client.PutObject(ctx, s.bucket, p, r, -1, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return blob.ObjectInfo{}, fmt.Errorf("minio put object bucket=%s key=%s: %w", s.bucket, p, err)
	}

	stat, err := s.client.StatObject(ctx, s.bucket, p, minio.StatObjectOptions{})
	if err != nil {
		return blob.ObjectInfo{}, fmt.Errorf("minio stat object bucket=%s key=%s: %w", s.bucket, p, err)
	}

	return blob.ObjectInfo{
		Path:       p,
		URL:        s.objectURL(p),
		Size:       info.Size,
		UploadedAt: stat.LastModified.UTC(),
	}, nil
}

// Get downloads a stored blob for reading.
func (s *Store) Get(ctx context.Context, p string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	obj, err := s.client.GetObject(ctx, s.bucket, p, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("minio get object bucket=%s key=%s: %w", s.bucket, p, err)
	}
	return obj, nil
}

// Delete removes a stored blob.
func (s *Store) Delete(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.client.RemoveObject(ctx, s.bucket, p, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("minio remove object bucket=%s key=%s: %w", s.bucket, p, err)
	}
	return nil
}

// List reports every object under prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]blob.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := []blob.ObjectInfo{}
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("minio list objects bucket=%s prefix=%s: %w", s.bucket, prefix, obj.Err)
		}
		out = append(out, blob.ObjectInfo{
			Path:       obj.Key,
			URL:        s.objectURL(obj.Key),
			Size:       obj.Size,
			UploadedAt: obj.LastModified.UTC(),
		})
	}
	return out, nil
}

func (s *Store) objectURL(key string) string {
	scheme := "http"
	if s.useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.client.EndpointURL().Host, s.bucket, key)
}

var _ blob.Store = (*Store)(nil)
