package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// MinioConfig holds connection settings for an S3-compatible MinIO endpoint.
type MinioConfig struct {
	Endpoint  string // "http://localhost:9000" or a bare "host:port"
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
}

// MinioStorage implements Backend using a MinIO (or any S3-compatible) backend.
type MinioStorage struct {
	client *minio.Client
	bucket string
}

var _ Backend = (*MinioStorage)(nil)

// NewMinioClient creates a MinIO client without touching the network.
func NewMinioClient(cfg MinioConfig) (*MinioStorage, error) {
	host, secure, err := parseEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &MinioStorage{client: client, bucket: cfg.Bucket}, nil
}

// NewMinioStorage creates a MinIO client, ensures the bucket exists, and
// returns a ready-to-use MinioStorage. The bucket stays private: objects are
// served through the retrieval proxy only.
func NewMinioStorage(ctx context.Context, cfg MinioConfig, log zerolog.Logger) (*MinioStorage, error) {
	s, err := NewMinioClient(cfg)
	if err != nil {
		return nil, err
	}

	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", s.bucket, err)
		}
		log.Info().Str("bucket", s.bucket).Msg("storage: created bucket")
	}

	return s, nil
}

// Put uploads data to MinIO under key.
func (s *MinioStorage) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object %q: %w", key, err)
	}
	return nil
}

// Get reads the full object at key into memory.
func (s *MinioStorage) Get(ctx context.Context, key string) (*Object, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.mapError(key, err)
	}
	defer obj.Close()

	// GetObject is lazy; Stat performs the request and surfaces NoSuchKey.
	info, err := obj.Stat()
	if err != nil {
		return nil, s.mapError(key, err)
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read object %q: %w", key, err)
	}

	return &Object{Data: data, ContentType: info.ContentType}, nil
}

// Delete removes the object at key from the bucket.
func (s *MinioStorage) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil
		}
		return fmt.Errorf("remove object %q: %w", key, err)
	}
	return nil
}

// PresignPost signs a POST policy pinned to this bucket and key.
func (s *MinioStorage) PresignPost(ctx context.Context, key string, cond PostConditions) (*PostForm, error) {
	policy := minio.NewPostPolicy()
	if err := policy.SetBucket(s.bucket); err != nil {
		return nil, fmt.Errorf("policy bucket: %w", err)
	}
	if err := policy.SetKey(key); err != nil {
		return nil, fmt.Errorf("policy key: %w", err)
	}
	if err := policy.SetExpires(time.Now().UTC().Add(cond.Expires)); err != nil {
		return nil, fmt.Errorf("policy expiry: %w", err)
	}
	if cond.ContentTypePrefix != "" {
		if err := policy.SetContentTypeStartsWith(cond.ContentTypePrefix); err != nil {
			return nil, fmt.Errorf("policy content type: %w", err)
		}
	}
	if cond.MaxSize > 0 {
		if err := policy.SetContentLengthRange(cond.MinSize, cond.MaxSize); err != nil {
			return nil, fmt.Errorf("policy content length: %w", err)
		}
	}

	u, fields, err := s.client.PresignedPostPolicy(ctx, policy)
	if err != nil {
		return nil, fmt.Errorf("presign post %q: %w", key, err)
	}

	return &PostForm{URL: u.String(), Fields: fields}, nil
}

func (s *MinioStorage) mapError(key string, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return fmt.Errorf("get object %q: %w", key, ErrNotFound)
	}
	return fmt.Errorf("get object %q: %w", key, err)
}

// parseEndpoint splits an endpoint URL into the host MinIO expects and the TLS flag.
func parseEndpoint(raw string) (string, bool, error) {
	if raw == "" {
		return "", false, fmt.Errorf("storage endpoint is empty")
	}
	if !strings.Contains(raw, "://") {
		return strings.TrimRight(raw, "/"), false, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("parse storage endpoint: %w", err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("storage endpoint %q has no host", raw)
	}
	return u.Host, u.Scheme == "https", nil
}
