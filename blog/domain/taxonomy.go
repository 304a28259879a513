package domain

import (
	"context"
	"time"
)

// Category groups posts. Categories are created explicitly from the admin
// surface or implicitly the first time a post references a new name.
// Names match case-sensitively and are unique.
type Category struct {
	ID          string
	Name        string
	Slug        string
	Description string
	Color       string
	CreatedAt   time.Time
}

// Tag is a free-form label attached to posts, created on first use.
type Tag struct {
	ID   string
	Name string
	Slug string
}

// CategoryCount pairs a category with the number of posts referencing it.
type CategoryCount struct {
	Category
	Count int
}

type CategoryRepository interface {
	// EnsureCategory returns the category with c.Name, creating it from c
	// if absent. The find-or-create is atomic: concurrent calls with the
	// same new name yield a single row.
	EnsureCategory(ctx context.Context, c *Category) (*Category, error)

	// CreateCategory inserts a new category, returning ErrConflict if the
	// name is already taken.
	CreateCategory(ctx context.Context, c *Category) error

	GetCategoryByName(ctx context.Context, name string) (*Category, error)

	// ListCategories returns all categories with their post counts,
	// ordered by name.
	ListCategories(ctx context.Context) ([]*CategoryCount, error)

	// DeleteCategory removes a category by name. Returns ErrConflict
	// while any post still references it, ErrNotFound if it is unknown.
	DeleteCategory(ctx context.Context, name string) error
}

type TagRepository interface {
	// EnsureTags resolves each tag by name, creating missing ones, and
	// returns the stored rows in input order.
	EnsureTags(ctx context.Context, tags []*Tag) ([]*Tag, error)
}
