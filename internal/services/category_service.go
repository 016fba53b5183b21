package services

import (
	"context"
	"fmt"

	"github.com/kabirpofficial/trackify/internal/core"
	"github.com/kabirpofficial/trackify/internal/storage"
)

// CategoryService manages per-user expense categories.
type CategoryService struct {
	store *storage.SQLiteRepository
}

func NewCategoryService(store *storage.SQLiteRepository) *CategoryService {
	return &CategoryService{store: store}
}

// List returns the caller's categories ordered by name.
func (s *CategoryService) List(ctx context.Context, userID int64) ([]core.Category, error) {
	categories, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// Create persists a new category owned by userID. Duplicate names are
// permitted within a user.
func (s *CategoryService) Create(ctx context.Context, userID int64, name string) (core.Category, error) {
	category, err := s.store.CreateCategory(ctx, userID, name)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return category, nil
}

// GetOwned loads a category only when it belongs to userID; a category that
// does not exist and one owned by another user are indistinguishable
// (storage.ErrNotFound either way).
func (s *CategoryService) GetOwned(ctx context.Context, categoryID, userID int64) (core.Category, error) {
	return s.store.GetCategoryOwned(ctx, categoryID, userID)
}
