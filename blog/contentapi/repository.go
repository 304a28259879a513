package contentapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kmccann/secblog/blog/domain"
)

var (
	_ domain.PostRepository     = (*Repository)(nil)
	_ domain.CategoryRepository = (*Repository)(nil)
	_ domain.TagRepository      = (*Repository)(nil)
)

// Repository implements the blog repository interfaces against a headless
// content service. Filtering and pagination are delegated to the remote
// side via query parameters; the service guarantees count and page come
// from the same snapshot.
type Repository struct {
	client *Client
}

// NewRepository wraps a content-service client in the repository contracts.
func NewRepository(client *Client) *Repository {
	return &Repository{client: client}
}

// FindPosts lists posts matching the filter, newest first.
func (r *Repository) FindPosts(ctx context.Context, filter domain.PostFilter, page domain.Pagination) ([]*domain.Post, int, error) {
	query := url.Values{}
	if filter.Category != "" {
		query.Set("category", filter.Category)
	}
	if filter.Status != "" {
		query.Set("status", string(filter.Status))
	}
	if filter.Search != "" {
		query.Set("search", filter.Search)
	}
	query.Set("page", strconv.Itoa(page.Page))
	query.Set("limit", strconv.Itoa(page.Limit))

	var out struct {
		Posts []contentPost `json:"posts"`
		Total int           `json:"total"`
	}
	if err := r.client.do(ctx, http.MethodGet, "/posts", query, nil, &out); err != nil {
		return nil, 0, err
	}

	posts := make([]*domain.Post, 0, len(out.Posts))
	for i := range out.Posts {
		posts = append(posts, out.Posts[i].toDomain())
	}
	return posts, out.Total, nil
}

// GetPost retrieves a single post by ID.
func (r *Repository) GetPost(ctx context.Context, id string) (*domain.Post, error) {
	if id == "" {
		return nil, fmt.Errorf("post ID cannot be empty")
	}

	var out contentPost
	if err := r.client.do(ctx, http.MethodGet, "/posts/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return out.toDomain(), nil
}

// CreatePost stores a new post document.
func (r *Repository) CreatePost(ctx context.Context, p *domain.Post) error {
	if p == nil {
		return fmt.Errorf("post cannot be nil")
	}
	return r.client.do(ctx, http.MethodPost, "/posts", nil, fromDomainPost(p), nil)
}

// UpdatePost rewrites an existing post document.
func (r *Repository) UpdatePost(ctx context.Context, p *domain.Post) error {
	if p == nil {
		return fmt.Errorf("post cannot be nil")
	}
	return r.client.do(ctx, http.MethodPut, "/posts/"+url.PathEscape(p.ID), nil, fromDomainPost(p), nil)
}

// DeletePost removes a post document.
func (r *Repository) DeletePost(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("post ID cannot be empty")
	}
	return r.client.do(ctx, http.MethodDelete, "/posts/"+url.PathEscape(id), nil, nil, nil)
}

// EnsureCategory upserts a category by name. The remote service performs
// the find-or-create atomically against its own unique index.
func (r *Repository) EnsureCategory(ctx context.Context, c *domain.Category) (*domain.Category, error) {
	if c == nil || c.Name == "" {
		return nil, fmt.Errorf("category name cannot be empty")
	}

	var out contentCategory
	err := r.client.do(ctx, http.MethodPut, "/categories/"+url.PathEscape(c.Name), nil, fromDomainCategory(c), &out)
	if err != nil {
		return nil, err
	}
	return out.toDomain(), nil
}

// CreateCategory inserts a category; a duplicate name surfaces as
// domain.ErrConflict via the remote 409.
func (r *Repository) CreateCategory(ctx context.Context, c *domain.Category) error {
	if c == nil || c.Name == "" {
		return fmt.Errorf("category name cannot be empty")
	}
	return r.client.do(ctx, http.MethodPost, "/categories", nil, fromDomainCategory(c), nil)
}

// GetCategoryByName retrieves a category by its unique name.
func (r *Repository) GetCategoryByName(ctx context.Context, name string) (*domain.Category, error) {
	if name == "" {
		return nil, fmt.Errorf("category name cannot be empty")
	}

	var out contentCategory
	if err := r.client.do(ctx, http.MethodGet, "/categories/"+url.PathEscape(name), nil, nil, &out); err != nil {
		return nil, err
	}
	return out.toDomain(), nil
}

// ListCategories returns all categories with their post counts.
func (r *Repository) ListCategories(ctx context.Context) ([]*domain.CategoryCount, error) {
	var out struct {
		Categories []contentCategory `json:"categories"`
	}
	if err := r.client.do(ctx, http.MethodGet, "/categories", nil, nil, &out); err != nil {
		return nil, err
	}

	categories := make([]*domain.CategoryCount, 0, len(out.Categories))
	for i := range out.Categories {
		categories = append(categories, &domain.CategoryCount{
			Category: *out.Categories[i].toDomain(),
			Count:    out.Categories[i].PostCount,
		})
	}
	return categories, nil
}

// DeleteCategory removes a category; the remote answers 409 while posts
// still reference it.
func (r *Repository) DeleteCategory(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("category name cannot be empty")
	}
	return r.client.do(ctx, http.MethodDelete, "/categories/"+url.PathEscape(name), nil, nil, nil)
}

// EnsureTags upserts tags by name and returns the stored documents.
func (r *Repository) EnsureTags(ctx context.Context, tags []*domain.Tag) ([]*domain.Tag, error) {
	if len(tags) == 0 {
		return nil, nil
	}

	in := struct {
		Tags []contentTag `json:"tags"`
	}{Tags: make([]contentTag, 0, len(tags))}
	for _, t := range tags {
		in.Tags = append(in.Tags, contentTag{ID: t.ID, Name: t.Name, Slug: t.Slug})
	}

	var out struct {
		Tags []contentTag `json:"tags"`
	}
	if err := r.client.do(ctx, http.MethodPut, "/tags", nil, in, &out); err != nil {
		return nil, err
	}

	stored := make([]*domain.Tag, 0, len(out.Tags))
	for _, t := range out.Tags {
		stored = append(stored, &domain.Tag{ID: t.ID, Name: t.Name, Slug: t.Slug})
	}
	return stored, nil
}

// contentPost is the content service's post document.
type contentPost struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Slug        string          `json:"slug"`
	Description string          `json:"description"`
	Content     string          `json:"content"`
	ReadTime    string          `json:"readTime"`
	Icon        string          `json:"icon"`
	Color       string          `json:"color"`
	Status      string          `json:"status"`
	AuthorID    string          `json:"authorId"`
	Category    contentCategory `json:"category"`
	Tags        []contentTag    `json:"tags"`
	PublishedAt *time.Time      `json:"publishedAt,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

type contentCategory struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Color       string    `json:"color"`
	PostCount   int       `json:"postCount,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type contentTag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func (cp *contentPost) toDomain() *domain.Post {
	post := &domain.Post{
		ID:          cp.ID,
		Title:       cp.Title,
		Slug:        cp.Slug,
		Description: cp.Description,
		Content:     cp.Content,
		ReadTime:    cp.ReadTime,
		Icon:        cp.Icon,
		Color:       cp.Color,
		Status:      domain.PostStatus(cp.Status),
		AuthorID:    cp.AuthorID,
		Category:    *cp.Category.toDomain(),
		CreatedAt:   cp.CreatedAt,
		UpdatedAt:   cp.UpdatedAt,
	}
	if cp.PublishedAt != nil {
		post.PublishedAt = *cp.PublishedAt
	}
	for _, t := range cp.Tags {
		post.Tags = append(post.Tags, domain.Tag{ID: t.ID, Name: t.Name, Slug: t.Slug})
	}
	return post
}

func (cc *contentCategory) toDomain() *domain.Category {
	return &domain.Category{
		ID:          cc.ID,
		Name:        cc.Name,
		Slug:        cc.Slug,
		Description: cc.Description,
		Color:       cc.Color,
		CreatedAt:   cc.CreatedAt,
	}
}

func fromDomainPost(p *domain.Post) contentPost {
	out := contentPost{
		ID:          p.ID,
		Title:       p.Title,
		Slug:        p.Slug,
		Description: p.Description,
		Content:     p.Content,
		ReadTime:    p.ReadTime,
		Icon:        p.Icon,
		Color:       p.Color,
		Status:      string(p.Status),
		AuthorID:    p.AuthorID,
		Category:    fromDomainCategory(&p.Category),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if !p.PublishedAt.IsZero() {
		publishedAt := p.PublishedAt
		out.PublishedAt = &publishedAt
	}
	for _, t := range p.Tags {
		out.Tags = append(out.Tags, contentTag{ID: t.ID, Name: t.Name, Slug: t.Slug})
	}
	return out
}

func fromDomainCategory(c *domain.Category) contentCategory {
	return contentCategory{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		Color:       c.Color,
		CreatedAt:   c.CreatedAt,
	}
}
