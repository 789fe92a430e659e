package item

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wardrobe/service/internal/storage"
	"github.com/wardrobe/service/internal/upload"
)

// ErrInvalid is returned when item fields fail validation.
var ErrInvalid = errors.New("invalid item")

var categories = map[string]bool{
	"top":       true,
	"bottom":    true,
	"dress":     true,
	"outerwear": true,
	"shoes":     true,
	"accessory": true,
}

var formalities = map[string]bool{
	"casual":       true,
	"smart-casual": true,
	"business":     true,
	"formal":       true,
}

type store interface {
	Create(ctx context.Context, it *Item) error
	Get(ctx context.Context, ownerID, id string) (*Item, error)
	List(ctx context.Context, ownerID string) ([]*Item, error)
	Delete(ctx context.Context, ownerID, id string) (string, error)
}

type objectDeleter interface {
	DeleteObject(ctx context.Context, key string) error
}

// CreateInput holds the attributes of a new item.
type CreateInput struct {
	Name      string `json:"name"      example:"Blue oxford shirt"`
	Category  string `json:"category"  example:"top"`
	Color     string `json:"color"     example:"blue"`
	Material  string `json:"material"  example:"cotton"`
	Formality string `json:"formality" example:"smart-casual"`
	ImageKey  string `json:"imageKey"  example:"wardrobe/user_42/1700000000000-shirt.png"`
}

// Service contains business logic for wardrobe items.
type Service struct {
	repo    store
	objects objectDeleter
	log     zerolog.Logger
}

// NewService creates a new item Service. objects removes photos of deleted items.
func NewService(repo store, objects objectDeleter, log zerolog.Logger) *Service {
	return &Service{repo: repo, objects: objects, log: log.With().Str("component", "item").Logger()}
}

// Create validates in and stores a new item for ownerID.
func (s *Service) Create(ctx context.Context, ownerID string, in CreateInput) (*Item, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.ToLower(strings.TrimSpace(in.Category))
	in.Formality = strings.ToLower(strings.TrimSpace(in.Formality))

	switch {
	case in.Name == "":
		return nil, fmt.Errorf("%w: name is required", ErrInvalid)
	case !categories[in.Category]:
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalid, in.Category)
	case !formalities[in.Formality]:
		return nil, fmt.Errorf("%w: unknown formality %q", ErrInvalid, in.Formality)
	case !strings.HasPrefix(in.ImageKey, ownerPrefix(ownerID)) || len(in.ImageKey) == len(ownerPrefix(ownerID)):
		return nil, fmt.Errorf("%w: image key must belong to the caller", ErrInvalid)
	case !storage.ValidKey(in.ImageKey):
		return nil, fmt.Errorf("%w: image key has a relative path segment", ErrInvalid)
	}

	it := &Item{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Name:      in.Name,
		Category:  in.Category,
		Color:     strings.TrimSpace(in.Color),
		Material:  strings.TrimSpace(in.Material),
		Formality: in.Formality,
		ImageKey:  in.ImageKey,
	}
	if err := s.repo.Create(ctx, it); err != nil {
		return nil, err
	}
	it.ImageURL = upload.ImageURL(it.ImageKey)
	return it, nil
}

// Get returns one of ownerID's items.
func (s *Service) Get(ctx context.Context, ownerID, id string) (*Item, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	it, err := s.repo.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	it.ImageURL = upload.ImageURL(it.ImageKey)
	return it, nil
}

// List returns ownerID's items, newest first.
func (s *Service) List(ctx context.Context, ownerID string) ([]*Item, error) {
	items, err := s.repo.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		it.ImageURL = upload.ImageURL(it.ImageKey)
	}
	return items, nil
}

// Delete removes the item and then its photo. A failed photo delete leaves an
// orphaned object; it is logged and not reported to the caller.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	key, err := s.repo.Delete(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := s.objects.DeleteObject(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("item_id", id).Str("key", key).Msg("item deleted but photo was not removed")
	}
	return nil
}

// IsNotFound returns true when the error indicates an item was not found.
func (s *Service) IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func ownerPrefix(ownerID string) string {
	return upload.Namespace + "/" + ownerID + "/"
}
