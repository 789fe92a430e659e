// Package upload issues presigned upload grants, accepts direct uploads,
// proxies stored images back to browsers and deletes objects by key.
package upload

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/wardrobe/service/internal/metrics"
	"github.com/wardrobe/service/internal/storage"
)

const (
	// Namespace partitions wardrobe item photos inside the bucket.
	Namespace = "wardrobe"
	// ImagePathPrefix is the retrieval proxy route; keys are appended path-escaped.
	ImagePathPrefix = "/api/upload/image/"

	MinUploadSize int64 = 1000
	MaxUploadSize int64 = 10_000_000
	GrantTTL            = 3600 * time.Second

	DefaultContentType = "image/jpeg"
	imageTypePrefix    = "image/"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrValidation   = errors.New("invalid request")
	ErrNotFound     = errors.New("object not found")
	ErrStorage      = errors.New("storage failure")
)

// UploadGrant lets a client POST one image directly to the storage backend.
type UploadGrant struct {
	URL    string            `json:"url"`
	Fields map[string]string `json:"fields"`
	Key    string            `json:"key"`
}

// Uploaded is the result of a direct upload.
type Uploaded struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// File is an image received by the server.
type File struct {
	Data        []byte
	ContentType string
	FileName    string
}

// Service contains the upload, retrieval and deletion logic.
type Service struct {
	backend storage.Backend
	namer   *storage.Namer
	metrics *metrics.Recorder
	log     zerolog.Logger
}

// NewService creates a new upload Service. rec may be nil.
func NewService(backend storage.Backend, namer *storage.Namer, rec *metrics.Recorder, log zerolog.Logger) *Service {
	if namer == nil {
		namer = storage.NewNamer()
	}
	return &Service{
		backend: backend,
		namer:   namer,
		metrics: rec,
		log:     log.With().Str("component", "upload").Logger(),
	}
}

// ImageURL returns the retrieval proxy URL for key.
func ImageURL(key string) string {
	return ImagePathPrefix + url.PathEscape(key)
}

// IssueUploadGrant mints a key for ownerID and signs a POST policy restricted
// to that key, image content types, [MinUploadSize, MaxUploadSize] bytes and GrantTTL.
func (s *Service) IssueUploadGrant(ctx context.Context, fileName, contentType, ownerID string) (*UploadGrant, error) {
	if ownerID == "" {
		return nil, ErrUnauthorized
	}
	if fileName == "" {
		return nil, fmt.Errorf("%w: filename is required", ErrValidation)
	}
	if !isImageType(contentType) {
		return nil, fmt.Errorf("%w: content type must start with %s", ErrValidation, imageTypePrefix)
	}

	key, err := s.namer.MakeKey(ownerID, fileName, Namespace)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	start := time.Now()
	form, err := s.backend.PresignPost(ctx, key, storage.PostConditions{
		ContentTypePrefix: imageTypePrefix,
		MinSize:           MinUploadSize,
		MaxSize:           MaxUploadSize,
		Expires:           GrantTTL,
	})
	if err != nil {
		s.metrics.Observe(metrics.OpPresign, "error", time.Since(start))
		s.log.Error().Err(err).Str("key", key).Msg("presign upload failed")
		return nil, fmt.Errorf("%w: presign upload", ErrStorage)
	}
	s.metrics.Observe(metrics.OpPresign, "ok", time.Since(start))

	return &UploadGrant{URL: form.URL, Fields: form.Fields, Key: key}, nil
}

// UploadDirect validates f and writes it to storage under a fresh key owned by ownerID.
// Storage-side conditions do not apply on this path, so the same type and size
// limits are enforced here before any backend call.
func (s *Service) UploadDirect(ctx context.Context, ownerID string, f *File) (*Uploaded, error) {
	if ownerID == "" {
		return nil, ErrUnauthorized
	}
	if f == nil || len(f.Data) == 0 {
		return nil, fmt.Errorf("%w: no file uploaded", ErrValidation)
	}
	if f.FileName == "" {
		return nil, fmt.Errorf("%w: file name is required", ErrValidation)
	}
	if !isImageType(f.ContentType) {
		return nil, fmt.Errorf("%w: content type must start with %s", ErrValidation, imageTypePrefix)
	}
	size := int64(len(f.Data))
	if size < MinUploadSize || size > MaxUploadSize {
		return nil, fmt.Errorf("%w: file size must be between %d and %d bytes", ErrValidation, MinUploadSize, MaxUploadSize)
	}
	if detected := mimetype.Detect(f.Data); !isImageType(detected.String()) {
		return nil, fmt.Errorf("%w: file content is %s, not an image", ErrValidation, detected.String())
	}

	key, err := s.namer.MakeKey(ownerID, f.FileName, Namespace)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	start := time.Now()
	if err := s.backend.Put(ctx, key, f.Data, f.ContentType); err != nil {
		s.metrics.Observe(metrics.OpUpload, "error", time.Since(start))
		s.log.Error().Err(err).Str("key", key).Int64("size", size).Msg("direct upload failed")
		return nil, fmt.Errorf("%w: upload", ErrStorage)
	}
	s.metrics.Observe(metrics.OpUpload, "ok", time.Since(start))
	s.metrics.AddUploadedBytes(len(f.Data))

	s.log.Debug().Str("key", key).Int64("size", size).Msg("direct upload stored")
	return &Uploaded{URL: ImageURL(key), Key: key}, nil
}

// FetchObject reads the object at key. Missing objects and malformed keys
// report ErrNotFound; everything else reports ErrStorage.
func (s *Service) FetchObject(ctx context.Context, key string) (*storage.Object, error) {
	if !storage.ValidKey(key) {
		return nil, ErrNotFound
	}

	start := time.Now()
	obj, err := s.backend.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		s.metrics.Observe(metrics.OpFetch, "not_found", time.Since(start))
		return nil, ErrNotFound
	}
	if err != nil {
		s.metrics.Observe(metrics.OpFetch, "error", time.Since(start))
		s.log.Error().Err(err).Str("key", key).Msg("fetch object failed")
		return nil, fmt.Errorf("%w: fetch", ErrStorage)
	}
	s.metrics.Observe(metrics.OpFetch, "ok", time.Since(start))

	if obj.ContentType == "" {
		obj.ContentType = DefaultContentType
	}
	return obj, nil
}

// DeleteObject removes the object at key. Deleting a missing key succeeds.
func (s *Service) DeleteObject(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("%w: key is required", ErrValidation)
	}

	start := time.Now()
	if err := s.backend.Delete(ctx, key); err != nil {
		s.metrics.Observe(metrics.OpDelete, "error", time.Since(start))
		s.log.Error().Err(err).Str("key", key).Msg("delete object failed")
		return fmt.Errorf("%w: delete", ErrStorage)
	}
	s.metrics.Observe(metrics.OpDelete, "ok", time.Since(start))
	return nil
}

func isImageType(contentType string) bool {
	return strings.HasPrefix(contentType, imageTypePrefix)
}
