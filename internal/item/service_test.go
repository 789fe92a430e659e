package item

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardrobe/service/internal/storage"
	"github.com/wardrobe/service/internal/upload"
)

type fakeStore struct {
	mu    sync.Mutex
	items map[string]*Item
	clock time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{items: make(map[string]*Item), clock: time.Unix(1700000000, 0)}
}

func (f *fakeStore) Create(_ context.Context, it *Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clock = f.clock.Add(time.Second)
	it.CreatedAt, it.UpdatedAt = f.clock, f.clock
	cp := *it
	f.items[it.ID] = &cp
	return nil
}

func (f *fakeStore) Get(_ context.Context, ownerID, id string) (*Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.items[id]
	if !ok || it.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	cp := *it
	return &cp, nil
}

func (f *fakeStore) List(_ context.Context, ownerID string) ([]*Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*Item{}
	for _, it := range f.items {
		if it.OwnerID == ownerID {
			cp := *it
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) Delete(_ context.Context, ownerID, id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.items[id]
	if !ok || it.OwnerID != ownerID {
		return "", ErrNotFound
	}
	delete(f.items, id)
	return it.ImageKey, nil
}

type failingDeleter struct{ calls int }

func (d *failingDeleter) DeleteObject(context.Context, string) error {
	d.calls++
	return errors.New("storage down")
}

type fixture struct {
	store   *fakeStore
	backend *storage.Memory
	svc     *Service
}

func newFixture() *fixture {
	backend := storage.NewMemory("test")
	objects := upload.NewService(backend, storage.NewNamer(), nil, zerolog.Nop())
	store := newFakeStore()
	return &fixture{store: store, backend: backend, svc: NewService(store, objects, zerolog.Nop())}
}

func validInput(owner string) CreateInput {
	return CreateInput{
		Name:      "Blue oxford shirt",
		Category:  "Top",
		Color:     "blue",
		Material:  "cotton",
		Formality: "smart-casual",
		ImageKey:  "wardrobe/" + owner + "/1700000000000-shirt.png",
	}
}

func TestCreateAndGet(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	it, err := f.svc.Create(ctx, "user_42", validInput("user_42"))
	require.NoError(t, err)
	assert.NotEmpty(t, it.ID)
	assert.Equal(t, "top", it.Category)
	assert.Equal(t, "/api/upload/image/wardrobe%2Fuser_42%2F1700000000000-shirt.png", it.ImageURL)

	got, err := f.svc.Get(ctx, "user_42", it.ID)
	require.NoError(t, err)
	assert.Equal(t, it.ImageKey, got.ImageKey)
	assert.Equal(t, it.ImageURL, got.ImageURL)

	_, err = f.svc.Get(ctx, "someone_else", it.ID)
	assert.True(t, f.svc.IsNotFound(err))

	_, err = f.svc.Get(ctx, "user_42", "not-a-uuid")
	assert.True(t, f.svc.IsNotFound(err))
}

func TestCreateValidation(t *testing.T) {
	f := newFixture()

	mutate := map[string]func(*CreateInput){
		"empty name":       func(in *CreateInput) { in.Name = "  " },
		"bad category":     func(in *CreateInput) { in.Category = "hat-rack" },
		"bad formality":    func(in *CreateInput) { in.Formality = "pyjamas" },
		"foreign key":      func(in *CreateInput) { in.ImageKey = "wardrobe/user_9/1-a.png" },
		"bare prefix":      func(in *CreateInput) { in.ImageKey = "wardrobe/user_42/" },
		"other namespace":  func(in *CreateInput) { in.ImageKey = "avatars/user_42/1-a.png" },
		"missing imageKey": func(in *CreateInput) { in.ImageKey = "" },
		"escapes owner":    func(in *CreateInput) { in.ImageKey = "wardrobe/user_42/../user_9/1-a.png" },
		"dot segment":      func(in *CreateInput) { in.ImageKey = "wardrobe/user_42/./1-a.png" },
	}

	for name, fn := range mutate {
		t.Run(name, func(t *testing.T) {
			in := validInput("user_42")
			fn(&in)
			_, err := f.svc.Create(context.Background(), "user_42", in)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
	assert.Empty(t, f.store.items)
}

func TestListNewestFirst(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.svc.Create(ctx, "user_42", validInput("user_42"))
	require.NoError(t, err)
	second, err := f.svc.Create(ctx, "user_42", validInput("user_42"))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, "user_9", validInput("user_9"))
	require.NoError(t, err)

	items, err := f.svc.List(ctx, "user_42")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, second.ID, items[0].ID)
	assert.Equal(t, first.ID, items[1].ID)
	assert.True(t, strings.HasPrefix(items[0].ImageURL, upload.ImagePathPrefix))
}

func TestDeleteRemovesPhoto(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	in := validInput("user_42")
	require.NoError(t, f.backend.Put(ctx, in.ImageKey, []byte("png"), "image/png"))

	it, err := f.svc.Create(ctx, "user_42", in)
	require.NoError(t, err)

	assert.True(t, f.svc.IsNotFound(f.svc.Delete(ctx, "user_9", it.ID)))
	assert.Equal(t, 1, f.backend.Len())

	require.NoError(t, f.svc.Delete(ctx, "user_42", it.ID))
	assert.Equal(t, 0, f.backend.Len())

	assert.True(t, f.svc.IsNotFound(f.svc.Delete(ctx, "user_42", it.ID)))
}

func TestDeleteToleratesStorageFailure(t *testing.T) {
	store := newFakeStore()
	deleter := &failingDeleter{}
	svc := NewService(store, deleter, zerolog.Nop())
	ctx := context.Background()

	it, err := svc.Create(ctx, "user_42", validInput("user_42"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "user_42", it.ID))
	assert.Equal(t, 1, deleter.calls)
	assert.Empty(t, store.items)
}
