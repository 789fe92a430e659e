// Package item manages wardrobe items and their persistence.
package item

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Item is one clothing item owned by a user. ImageKey is the storage key of its photo.
type Item struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Color     string    `json:"color,omitempty"`
	Material  string    `json:"material,omitempty"`
	Formality string    `json:"formality"`
	ImageKey  string    `json:"imageKey"`
	ImageURL  string    `json:"imageUrl"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ErrNotFound is returned when an item does not exist for the owner.
var ErrNotFound = errors.New("item not found")

const itemColumns = `id, owner_id, name, category, color, material, formality, image_key, created_at, updated_at`

// Repository handles all item database operations.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts it and fills in the timestamps.
func (r *Repository) Create(ctx context.Context, it *Item) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO items (id, owner_id, name, category, color, material, formality, image_key)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at, updated_at`,
		it.ID, it.OwnerID, it.Name, it.Category, it.Color, it.Material, it.Formality, it.ImageKey,
	).Scan(&it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create item: %w", err)
	}
	return nil
}

// Get fetches one of owner's items by ID.
func (r *Repository) Get(ctx context.Context, ownerID, id string) (*Item, error) {
	it, err := scanItem(r.db.QueryRow(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return it, nil
}

// List returns owner's items, newest first.
func (r *Repository) List(ctx context.Context, ownerID string) ([]*Item, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+itemColumns+` FROM items WHERE owner_id = $1 ORDER BY created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	items := []*Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

// Delete removes one of owner's items and returns its image key.
func (r *Repository) Delete(ctx context.Context, ownerID, id string) (string, error) {
	var imageKey string
	err := r.db.QueryRow(ctx,
		`DELETE FROM items WHERE id = $1 AND owner_id = $2 RETURNING image_key`,
		id, ownerID,
	).Scan(&imageKey)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("delete item: %w", err)
	}
	return imageKey, nil
}

func scanItem(row pgx.Row) (*Item, error) {
	it := &Item{}
	err := row.Scan(&it.ID, &it.OwnerID, &it.Name, &it.Category, &it.Color, &it.Material,
		&it.Formality, &it.ImageKey, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return it, nil
}
