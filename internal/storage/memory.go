package storage

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// Memory is an in-process Backend for tests and local runs without an object store.
type Memory struct {
	mu      sync.RWMutex
	bucket  string
	objects map[string]Object
}

var _ Backend = (*Memory)(nil)

// NewMemory returns an empty in-memory backend for bucket.
func NewMemory(bucket string) *Memory {
	return &Memory{bucket: bucket, objects: make(map[string]Object)}
}

func (m *Memory) Put(_ context.Context, key string, data []byte, contentType string) error {
	buf := make([]byte, len(data))
	copy(buf, data)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = Object{Data: buf, ContentType: contentType}
	return nil
}

func (m *Memory) Get(_ context.Context, key string) (*Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("get object %q: %w", key, ErrNotFound)
	}
	data := make([]byte, len(obj.Data))
	copy(data, obj.Data)
	return &Object{Data: data, ContentType: obj.ContentType}, nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

// PresignPost returns an unsigned descriptor carrying the conditions as plain fields.
// Nothing enforces them; Memory has no upload endpoint.
func (m *Memory) PresignPost(_ context.Context, key string, cond PostConditions) (*PostForm, error) {
	return &PostForm{
		URL: "memory://" + m.bucket,
		Fields: map[string]string{
			"bucket":              m.bucket,
			"key":                 key,
			"content-type-prefix": cond.ContentTypePrefix,
			"content-length-min":  strconv.FormatInt(cond.MinSize, 10),
			"content-length-max":  strconv.FormatInt(cond.MaxSize, 10),
			"expires":             time.Now().UTC().Add(cond.Expires).Format(time.RFC3339),
		},
	}, nil
}

// Len reports how many objects are stored.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
