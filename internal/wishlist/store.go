package wishlist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rifqisaleh/shopsmart-rifqi/internal/domain"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/storage"
)

// Store reads and writes the wishlist kept under storage.KeyWishlist. Concurrent writers are not
// coordinated; the last write wins.
type Store struct {
	backend storage.Store
	logger  func(context.Context, string, map[string]any)
}

// NewStore binds a wishlist to backend. logger may be nil.
func NewStore(backend storage.Store, logger func(context.Context, string, map[string]any)) *Store {
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &Store{backend: backend, logger: logger}
}

// Get returns the stored wishlist. Missing, unreadable or corrupt data yields an empty list.
func (s *Store) Get(ctx context.Context) []domain.WishlistItem {
	items, err := s.load(ctx)
	if err != nil {
		s.logger(ctx, "wishlist.read_failed", map[string]any{"error": err.Error()})
		return []domain.WishlistItem{}
	}
	return items
}

// load treats a missing key or corrupt data as an empty list. Other backend errors are returned so
// writers never persist over a list they could not read.
func (s *Store) load(ctx context.Context) ([]domain.WishlistItem, error) {
	raw, err := s.backend.Get(ctx, storage.KeyWishlist)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return []domain.WishlistItem{}, nil
		}
		return nil, fmt.Errorf("wishlist: read: %w", err)
	}
	var items []domain.WishlistItem
	if err := json.Unmarshal(raw, &items); err != nil {
		s.logger(ctx, "wishlist.corrupt", map[string]any{"error": err.Error()})
		return []domain.WishlistItem{}, nil
	}
	if items == nil {
		items = []domain.WishlistItem{}
	}
	return items, nil
}

// Contains reports whether id is on the wishlist.
func (s *Store) Contains(ctx context.Context, id int) bool {
	for _, item := range s.Get(ctx) {
		if item.ID == id {
			return true
		}
	}
	return false
}

// Add appends item unless its id is already present.
func (s *Store) Add(ctx context.Context, item domain.WishlistItem) ([]domain.WishlistItem, error) {
	items, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	for _, existing := range items {
		if existing.ID == item.ID {
			return items, nil
		}
	}
	items = append(items, item)
	if err := s.save(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

// Remove drops every entry with id and returns the remaining list.
func (s *Store) Remove(ctx context.Context, id int) ([]domain.WishlistItem, error) {
	current, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]domain.WishlistItem, 0, len(current))
	for _, item := range current {
		if item.ID != id {
			items = append(items, item)
		}
	}
	if err := s.save(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) save(ctx context.Context, items []domain.WishlistItem) error {
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("wishlist: encode: %w", err)
	}
	if err := s.backend.Set(ctx, storage.KeyWishlist, payload); err != nil {
		return fmt.Errorf("wishlist: persist: %w", err)
	}
	return nil
}
