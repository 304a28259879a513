package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kmccann/secblog/blog/domain"
	"github.com/kmccann/secblog/shared/db"
)

var _ domain.CategoryRepository = (*SQLiteCategoryRepository)(nil)

// SQLiteCategoryRepository implements domain.CategoryRepository using SQLite.
type SQLiteCategoryRepository struct {
	db *sql.DB
}

// NewCategoryRepository creates a new SQLiteCategoryRepository.
func NewCategoryRepository(db *sql.DB) *SQLiteCategoryRepository {
	return &SQLiteCategoryRepository{
		db: db,
	}
}

// ensureCategoryQuery is an atomic find-or-create keyed by the unique name.
// The no-op DO UPDATE makes RETURNING yield the existing row on conflict,
// so concurrent inserts of a new name converge on a single row.
const ensureCategoryQuery = `
	INSERT INTO categories (id, name, slug, description, color, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(name) DO UPDATE SET name = excluded.name
	RETURNING id, name, slug, description, color, created_at
`

// EnsureCategory returns the category named c.Name, creating it from c when
// absent.
func (r *SQLiteCategoryRepository) EnsureCategory(ctx context.Context, c *domain.Category) (*domain.Category, error) {
	if c == nil || c.Name == "" {
		return nil, fmt.Errorf("category name cannot be empty")
	}

	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	executor := db.GetExecutor(ctx, r.db)

	var row categoryRow
	err := executor.QueryRowContext(ctx, ensureCategoryQuery,
		c.ID, c.Name, c.Slug, c.Description, c.Color, createdAt,
	).Scan(&row.ID, &row.Name, &row.Slug, &row.Description, &row.Color, &row.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure category: %w", err)
	}

	return row.toDomain(), nil
}

const insertCategoryQuery = `
	INSERT INTO categories (id, name, slug, description, color, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
`

// CreateCategory inserts a category, surfacing duplicate names as
// domain.ErrConflict.
func (r *SQLiteCategoryRepository) CreateCategory(ctx context.Context, c *domain.Category) error {
	if c == nil || c.Name == "" {
		return fmt.Errorf("category name cannot be empty")
	}

	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	executor := db.GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, insertCategoryQuery,
		c.ID, c.Name, c.Slug, c.Description, c.Color, createdAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("category %q already exists: %w", c.Name, domain.ErrConflict)
		}
		return fmt.Errorf("failed to insert category: %w", err)
	}

	return nil
}

const getCategoryByNameQuery = `
	SELECT id, name, slug, description, color, created_at
	FROM categories
	WHERE name = ?
`

// GetCategoryByName retrieves a category by its unique name.
func (r *SQLiteCategoryRepository) GetCategoryByName(ctx context.Context, name string) (*domain.Category, error) {
	if name == "" {
		return nil, fmt.Errorf("category name cannot be empty")
	}

	executor := db.GetExecutor(ctx, r.db)

	var row categoryRow
	err := executor.QueryRowContext(ctx, getCategoryByNameQuery, name).
		Scan(&row.ID, &row.Name, &row.Slug, &row.Description, &row.Color, &row.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %s: %w", name, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	return row.toDomain(), nil
}

const listCategoriesQuery = `
	SELECT c.id, c.name, c.slug, c.description, c.color, c.created_at, COUNT(p.id)
	FROM categories c
	LEFT JOIN posts p ON p.category_id = c.id
	GROUP BY c.id
	ORDER BY c.name
`

// ListCategories returns all categories with their post counts, ordered by name.
func (r *SQLiteCategoryRepository) ListCategories(ctx context.Context) ([]*domain.CategoryCount, error) {
	executor := db.GetExecutor(ctx, r.db)

	rows, err := executor.QueryContext(ctx, listCategoriesQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]*domain.CategoryCount, 0)
	for rows.Next() {
		var row categoryRow
		var count int
		err := rows.Scan(&row.ID, &row.Name, &row.Slug, &row.Description, &row.Color, &row.CreatedAt, &count)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category row: %w", err)
		}
		categories = append(categories, &domain.CategoryCount{
			Category: *row.toDomain(),
			Count:    count,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category rows: %w", err)
	}

	return categories, nil
}

// DeleteCategory removes a category by name. Deletion is refused with
// domain.ErrConflict while any post still references the category.
func (r *SQLiteCategoryRepository) DeleteCategory(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("category name cannot be empty")
	}

	return db.RunInTransaction(ctx, r.db, func(txCtx context.Context) error {
		executor := db.GetExecutor(txCtx, r.db)

		var id string
		err := executor.QueryRowContext(txCtx, "SELECT id FROM categories WHERE name = ?", name).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("category %s: %w", name, domain.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to look up category: %w", err)
		}

		var referenced int
		err = executor.QueryRowContext(txCtx, "SELECT COUNT(*) FROM posts WHERE category_id = ?", id).Scan(&referenced)
		if err != nil {
			return fmt.Errorf("failed to count category references: %w", err)
		}
		if referenced > 0 {
			return fmt.Errorf("category %s is referenced by %d posts: %w", name, referenced, domain.ErrConflict)
		}

		if _, err := executor.ExecContext(txCtx, "DELETE FROM categories WHERE id = ?", id); err != nil {
			return fmt.Errorf("failed to delete category: %w", err)
		}

		return nil
	})
}

// categoryRow is a private struct used to scan category rows.
type categoryRow struct {
	ID          string
	Name        string
	Slug        string
	Description string
	Color       string
	CreatedAt   sql.NullTime
}

func (cr *categoryRow) toDomain() *domain.Category {
	category := &domain.Category{
		ID:          cr.ID,
		Name:        cr.Name,
		Slug:        cr.Slug,
		Description: cr.Description,
		Color:       cr.Color,
	}
	if cr.CreatedAt.Valid {
		category.CreatedAt = cr.CreatedAt.Time
	}
	return category
}
