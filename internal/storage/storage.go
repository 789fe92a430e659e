// Package storage defines the interface for object storage operations.
// Swap implementations by changing the concrete type injected at startup:
// the MinIO implementation works with any S3-compatible provider, the S3
// implementation talks to AWS directly, and Memory keeps objects in-process.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when no object exists at the key.
var ErrNotFound = errors.New("object not found")

// Object is a stored payload together with the content type reported by the backend.
type Object struct {
	Data        []byte
	ContentType string
}

// PostConditions constrain what a presigned POST upload may write.
// Bucket and key are always pinned by the backend to its own bucket and the given key.
type PostConditions struct {
	ContentTypePrefix string
	MinSize           int64
	MaxSize           int64
	Expires           time.Duration
}

// PostForm is a signed multipart form descriptor: POST the fields plus a
// "file" part to URL.
type PostForm struct {
	URL    string
	Fields map[string]string
}

// Backend is the interface for writing, reading, deleting and presigning objects.
type Backend interface {
	// Put writes data under key with the given content type.
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// Get reads the whole object at key. Returns ErrNotFound when absent.
	Get(ctx context.Context, key string) (*Object, error)
	// Delete removes the object at key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// PresignPost issues a signed form allowing a client to upload directly to key.
	PresignPost(ctx context.Context, key string, cond PostConditions) (*PostForm, error)
}
