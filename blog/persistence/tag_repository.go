package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kmccann/secblog/blog/domain"
	"github.com/kmccann/secblog/shared/db"
)

var _ domain.TagRepository = (*SQLiteTagRepository)(nil)

// SQLiteTagRepository implements domain.TagRepository using SQLite.
type SQLiteTagRepository struct {
	db *sql.DB
}

// NewTagRepository creates a new SQLiteTagRepository.
func NewTagRepository(db *sql.DB) *SQLiteTagRepository {
	return &SQLiteTagRepository{
		db: db,
	}
}

// ensureTagQuery mirrors the category find-or-create: the no-op DO UPDATE
// makes RETURNING yield the existing row on name conflict.
const ensureTagQuery = `
	INSERT INTO tags (id, name, slug)
	VALUES (?, ?, ?)
	ON CONFLICT(name) DO UPDATE SET name = excluded.name
	RETURNING id, name, slug
`

// EnsureTags resolves each tag by name, creating missing ones. All tags are
// resolved in one transaction.
func (r *SQLiteTagRepository) EnsureTags(ctx context.Context, tags []*domain.Tag) ([]*domain.Tag, error) {
	if len(tags) == 0 {
		return nil, nil
	}

	stored := make([]*domain.Tag, 0, len(tags))

	err := db.RunInTransaction(ctx, r.db, func(txCtx context.Context) error {
		executor := db.GetExecutor(txCtx, r.db)

		for _, t := range tags {
			if t.Name == "" {
				return fmt.Errorf("tag name cannot be empty")
			}

			var out domain.Tag
			err := executor.QueryRowContext(txCtx, ensureTagQuery, t.ID, t.Name, t.Slug).
				Scan(&out.ID, &out.Name, &out.Slug)
			if err != nil {
				return fmt.Errorf("failed to ensure tag %q: %w", t.Name, err)
			}
			stored = append(stored, &out)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return stored, nil
}
