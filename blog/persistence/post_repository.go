package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/kmccann/secblog/blog/domain"
	"github.com/kmccann/secblog/shared/db"
)

var _ domain.PostRepository = (*SQLitePostRepository)(nil)

// SQLitePostRepository implements domain.PostRepository using SQL database (SQLite)
type SQLitePostRepository struct {
	db *sql.DB
}

// NewPostRepository creates a new SQLitePostRepository from a standard sql.DB
func NewPostRepository(db *sql.DB) *SQLitePostRepository {
	return &SQLitePostRepository{
		db: db,
	}
}

const postColumns = `
	p.id, p.title, p.slug, p.description, p.content, p.read_time, p.icon,
	p.color, p.status, p.author_id, p.published_at, p.created_at, p.updated_at,
	c.id, c.name, c.slug, c.description, c.color, c.created_at
`

const postFromClause = `
	FROM posts p
	JOIN categories c ON c.id = p.category_id
`

// buildPostFilter translates a domain filter into a WHERE clause and its
// arguments. The same clause drives both the count and the page query so
// the two cannot drift.
func buildPostFilter(f domain.PostFilter) (string, []any) {
	var clauses []string
	var args []any

	if f.Category != "" {
		clauses = append(clauses, "c.name = ?")
		args = append(args, f.Category)
	}
	if f.Status != "" {
		clauses = append(clauses, "p.status = ?")
		args = append(args, string(f.Status))
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		clauses = append(clauses, "(instr(lower(p.title), ?) > 0 OR instr(lower(p.description), ?) > 0 OR instr(lower(p.content), ?) > 0)")
		args = append(args, needle, needle, needle)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// FindPosts returns one page of posts matching the filter, newest first,
// plus the total count. Count and page run in one transaction so they see
// the same snapshot.
func (r *SQLitePostRepository) FindPosts(ctx context.Context, filter domain.PostFilter, page domain.Pagination) ([]*domain.Post, int, error) {
	where, args := buildPostFilter(filter)

	var posts []*domain.Post
	var total int

	err := db.RunInTransaction(ctx, r.db, func(txCtx context.Context) error {
		executor := db.GetExecutor(txCtx, r.db)

		countQuery := "SELECT COUNT(*)" + postFromClause + where
		if err := executor.QueryRowContext(txCtx, countQuery, args...).Scan(&total); err != nil {
			return fmt.Errorf("failed to count posts: %w", err)
		}

		pageQuery := "SELECT " + postColumns + postFromClause + where +
			" ORDER BY p.created_at DESC LIMIT ? OFFSET ?"
		pageArgs := append(append([]any{}, args...), page.Limit, page.Offset())

		rows, err := executor.QueryContext(txCtx, pageQuery, pageArgs...)
		if err != nil {
			return fmt.Errorf("failed to list posts: %w", err)
		}
		defer rows.Close()

		posts = make([]*domain.Post, 0)
		for rows.Next() {
			var row postRow
			if err := row.scan(rows); err != nil {
				return fmt.Errorf("failed to scan post row: %w", err)
			}
			posts = append(posts, row.toDomain())
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating post rows: %w", err)
		}

		for _, p := range posts {
			tags, err := loadPostTags(txCtx, executor, p.ID)
			if err != nil {
				return err
			}
			p.Tags = tags
		}

		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	return posts, total, nil
}

const getPostQuery = `SELECT ` + postColumns + postFromClause + ` WHERE p.id = ?`

// GetPost retrieves a single post by ID.
func (r *SQLitePostRepository) GetPost(ctx context.Context, id string) (*domain.Post, error) {
	if id == "" {
		return nil, fmt.Errorf("post ID cannot be empty")
	}

	executor := db.GetExecutor(ctx, r.db)

	var row postRow
	err := row.scan(executor.QueryRowContext(ctx, getPostQuery, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("post %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	post := row.toDomain()
	tags, err := loadPostTags(ctx, executor, post.ID)
	if err != nil {
		return nil, err
	}
	post.Tags = tags

	return post, nil
}

const insertPostQuery = `
	INSERT INTO posts (id, title, slug, description, content, read_time, icon,
		color, status, author_id, category_id, published_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// CreatePost stores a post and its tag links in one transaction.
func (r *SQLitePostRepository) CreatePost(ctx context.Context, p *domain.Post) error {
	if p == nil {
		return fmt.Errorf("post cannot be nil")
	}
	if p.ID == "" {
		return fmt.Errorf("post ID cannot be empty")
	}

	return db.RunInTransaction(ctx, r.db, func(txCtx context.Context) error {
		executor := db.GetExecutor(txCtx, r.db)

		var publishedAt any
		if !p.PublishedAt.IsZero() {
			publishedAt = p.PublishedAt
		}

		_, err := executor.ExecContext(txCtx, insertPostQuery,
			p.ID,
			p.Title,
			p.Slug,
			p.Description,
			p.Content,
			p.ReadTime,
			p.Icon,
			p.Color,
			string(p.Status),
			p.AuthorID,
			p.Category.ID,
			publishedAt,
			p.CreatedAt,
			p.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("post slug %q already exists: %w", p.Slug, domain.ErrConflict)
			}
			return fmt.Errorf("failed to insert post: %w", err)
		}

		return replacePostTags(txCtx, executor, p.ID, p.Tags)
	})
}

const updatePostQuery = `
	UPDATE posts
	SET title = ?, slug = ?, description = ?, content = ?, read_time = ?,
		icon = ?, color = ?, status = ?, category_id = ?, published_at = ?,
		updated_at = ?
	WHERE id = ?
`

// UpdatePost rewrites a post row and its tag links in one transaction.
func (r *SQLitePostRepository) UpdatePost(ctx context.Context, p *domain.Post) error {
	if p == nil {
		return fmt.Errorf("post cannot be nil")
	}
	if p.ID == "" {
		return fmt.Errorf("post ID cannot be empty")
	}

	return db.RunInTransaction(ctx, r.db, func(txCtx context.Context) error {
		executor := db.GetExecutor(txCtx, r.db)

		var publishedAt any
		if !p.PublishedAt.IsZero() {
			publishedAt = p.PublishedAt
		}

		result, err := executor.ExecContext(txCtx, updatePostQuery,
			p.Title,
			p.Slug,
			p.Description,
			p.Content,
			p.ReadTime,
			p.Icon,
			p.Color,
			string(p.Status),
			p.Category.ID,
			publishedAt,
			p.UpdatedAt,
			p.ID,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("post slug %q already exists: %w", p.Slug, domain.ErrConflict)
			}
			return fmt.Errorf("failed to update post: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read update result: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("post %s: %w", p.ID, domain.ErrNotFound)
		}

		if _, err := executor.ExecContext(txCtx, "DELETE FROM post_tags WHERE post_id = ?", p.ID); err != nil {
			return fmt.Errorf("failed to clear post tags: %w", err)
		}

		return replacePostTags(txCtx, executor, p.ID, p.Tags)
	})
}

// DeletePost removes a post; its tag links go with it via cascade.
func (r *SQLitePostRepository) DeletePost(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("post ID cannot be empty")
	}

	result, err := db.GetExecutor(ctx, r.db).ExecContext(ctx, "DELETE FROM posts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("post %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

const postTagsQuery = `
	SELECT t.id, t.name, t.slug
	FROM post_tags pt
	JOIN tags t ON t.id = pt.tag_id
	WHERE pt.post_id = ?
	ORDER BY t.name
`

func loadPostTags(ctx context.Context, executor db.Executor, postID string) ([]domain.Tag, error) {
	rows, err := executor.QueryContext(ctx, postTagsQuery, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to load post tags: %w", err)
	}
	defer rows.Close()

	var tags []domain.Tag
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug); err != nil {
			return nil, fmt.Errorf("failed to scan tag row: %w", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tag rows: %w", err)
	}

	return tags, nil
}

func replacePostTags(ctx context.Context, executor db.Executor, postID string, tags []domain.Tag) error {
	for _, t := range tags {
		_, err := executor.ExecContext(ctx,
			"INSERT INTO post_tags (post_id, tag_id) VALUES (?, ?)",
			postID, t.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to link tag %s: %w", t.Name, err)
		}
	}
	return nil
}

// isUniqueViolation reports whether err is a SQLite unique-constraint
// failure. The pure-Go driver surfaces these as plain errors, so the
// constraint message is the only signal available.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// scanner abstracts *sql.Row and *sql.Rows for postRow.scan.
type scanner interface {
	Scan(dest ...any) error
}

// postRow is a private struct used to scan joined post/category rows.
// It uses sql.NullTime for the nullable publish timestamp and converts
// to the domain model via toDomain.
type postRow struct {
	ID          string
	Title       string
	Slug        string
	Description string
	Content     string
	ReadTime    string
	Icon        string
	Color       string
	Status      string
	AuthorID    string
	PublishedAt sql.NullTime
	CreatedAt   sql.NullTime
	UpdatedAt   sql.NullTime

	CategoryID          string
	CategoryName        string
	CategorySlug        string
	CategoryDescription string
	CategoryColor       string
	CategoryCreatedAt   sql.NullTime
}

func (pr *postRow) scan(s scanner) error {
	return s.Scan(
		&pr.ID,
		&pr.Title,
		&pr.Slug,
		&pr.Description,
		&pr.Content,
		&pr.ReadTime,
		&pr.Icon,
		&pr.Color,
		&pr.Status,
		&pr.AuthorID,
		&pr.PublishedAt,
		&pr.CreatedAt,
		&pr.UpdatedAt,
		&pr.CategoryID,
		&pr.CategoryName,
		&pr.CategorySlug,
		&pr.CategoryDescription,
		&pr.CategoryColor,
		&pr.CategoryCreatedAt,
	)
}

// toDomain converts a postRow to a domain.Post, handling nullable times.
func (pr *postRow) toDomain() *domain.Post {
	post := &domain.Post{
		ID:          pr.ID,
		Title:       pr.Title,
		Slug:        pr.Slug,
		Description: pr.Description,
		Content:     pr.Content,
		ReadTime:    pr.ReadTime,
		Icon:        pr.Icon,
		Color:       pr.Color,
		Status:      domain.PostStatus(pr.Status),
		AuthorID:    pr.AuthorID,
		Category: domain.Category{
			ID:          pr.CategoryID,
			Name:        pr.CategoryName,
			Slug:        pr.CategorySlug,
			Description: pr.CategoryDescription,
			Color:       pr.CategoryColor,
		},
	}

	if pr.PublishedAt.Valid {
		post.PublishedAt = pr.PublishedAt.Time
	}
	if pr.CreatedAt.Valid {
		post.CreatedAt = pr.CreatedAt.Time
	}
	if pr.UpdatedAt.Valid {
		post.UpdatedAt = pr.UpdatedAt.Time
	}
	if pr.CategoryCreatedAt.Valid {
		post.Category.CreatedAt = pr.CategoryCreatedAt.Time
	}

	return post
}
