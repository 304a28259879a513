package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kmccann/secblog/blog/domain"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// BlogService implements post, category, and tag operations on top of the
// repository interfaces. All storage-backend differences live below these
// interfaces; the service itself is backend-agnostic.
type BlogService struct {
	posts      domain.PostRepository
	categories domain.CategoryRepository
	tags       domain.TagRepository
}

func NewBlogService(posts domain.PostRepository, categories domain.CategoryRepository, tags domain.TagRepository) *BlogService {
	return &BlogService{
		posts:      posts,
		categories: categories,
		tags:       tags,
	}
}

// ListPostsInput carries the raw listing filters. Zero values fall back to
// defaults; out-of-range pagination values are rejected.
type ListPostsInput struct {
	Category string
	Status   string
	Search   string
	Page     int
	Limit    int
}

// PostPage is one page of posts plus the pagination bookkeeping computed
// from the same snapshot as the page itself.
type PostPage struct {
	Posts      []*domain.Post
	Total      int
	Page       int
	Limit      int
	TotalPages int
}

// ListPosts returns posts matching the filters, newest first.
func (s *BlogService) ListPosts(ctx context.Context, in ListPostsInput) (*PostPage, error) {
	page := in.Page
	if page < 0 {
		return nil, domain.NewValidationError("page", "must be at least 1")
	}
	if page == 0 {
		page = 1
	}

	limit := in.Limit
	if limit < 0 || limit > maxPageSize {
		return nil, domain.NewValidationError("limit", fmt.Sprintf("must be between 1 and %d", maxPageSize))
	}
	if limit == 0 {
		limit = defaultPageSize
	}

	var status domain.PostStatus
	if in.Status != "" {
		status = domain.PostStatus(in.Status)
		if !status.Valid() {
			return nil, domain.NewValidationError("status", "must be one of draft, published, archived")
		}
	}

	filter := domain.PostFilter{
		Category: in.Category,
		Status:   status,
		Search:   in.Search,
	}

	posts, total, err := s.posts.FindPosts(ctx, filter, domain.Pagination{Page: page, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	return &PostPage{
		Posts:      posts,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}, nil
}

// GetPost returns a single post by ID.
func (s *BlogService) GetPost(ctx context.Context, id string) (*domain.Post, error) {
	if id == "" {
		return nil, domain.NewValidationError("id", "must not be empty")
	}
	return s.posts.GetPost(ctx, id)
}

// PostInput carries the fields for creating a post.
type PostInput struct {
	Title       string
	Description string
	Content     string
	Category    string
	ReadTime    string
	Icon        string
	Color       string
	Tags        []string
}

// CreatePost validates the input, derives the slug, resolves the category
// and tags (creating missing ones), and stores the post as a draft owned
// by authorID.
func (s *BlogService) CreatePost(ctx context.Context, in PostInput, authorID string) (*domain.Post, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)

	if in.Title == "" {
		return nil, domain.NewValidationError("title", "must not be empty")
	}
	if in.Description == "" {
		return nil, domain.NewValidationError("description", "must not be empty")
	}
	if in.Category == "" {
		return nil, domain.NewValidationError("category", "must not be empty")
	}

	slug := Slugify(in.Title)
	if slug == "" {
		return nil, domain.NewValidationError("title", "must contain letters or digits")
	}

	readTime := strings.TrimSpace(in.ReadTime)
	if readTime == "" {
		readTime = EstimateReadTime(in.Content)
	}

	category, err := s.categories.EnsureCategory(ctx, &domain.Category{
		ID:    uuid.NewString(),
		Name:  in.Category,
		Slug:  Slugify(in.Category),
		Color: in.Color,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve category %q: %w", in.Category, err)
	}

	tags, err := s.ensureTags(ctx, in.Tags)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	post := &domain.Post{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Slug:        slug,
		Description: in.Description,
		Content:     in.Content,
		ReadTime:    readTime,
		Icon:        in.Icon,
		Color:       in.Color,
		Status:      domain.StatusDraft,
		AuthorID:    authorID,
		Category:    *category,
		Tags:        tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.posts.CreatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	return post, nil
}

// PostPatch carries a partial update. Nil fields are left unchanged; a nil
// Tags slice leaves the tag set alone.
type PostPatch struct {
	Title       *string
	Description *string
	Content     *string
	Category    *string
	ReadTime    *string
	Icon        *string
	Color       *string
	Tags        []string
}

// UpdatePost applies patch to the post with the given ID. Only the original
// author may update a post; the slug is re-derived only when the title
// changes, and category/tags are re-resolved only when supplied.
func (s *BlogService) UpdatePost(ctx context.Context, id string, patch PostPatch, authorID string) (*domain.Post, error) {
	post, err := s.posts.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != authorID {
		return nil, fmt.Errorf("post %s is not owned by %s: %w", id, authorID, domain.ErrForbidden)
	}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, domain.NewValidationError("title", "must not be empty")
		}
		if title != post.Title {
			slug := Slugify(title)
			if slug == "" {
				return nil, domain.NewValidationError("title", "must contain letters or digits")
			}
			post.Title = title
			post.Slug = slug
		}
	}

	if patch.Description != nil {
		description := strings.TrimSpace(*patch.Description)
		if description == "" {
			return nil, domain.NewValidationError("description", "must not be empty")
		}
		post.Description = description
	}

	if patch.Content != nil {
		post.Content = *patch.Content
	}
	if patch.ReadTime != nil {
		post.ReadTime = *patch.ReadTime
	}
	if patch.Icon != nil {
		post.Icon = *patch.Icon
	}
	if patch.Color != nil {
		post.Color = *patch.Color
	}

	if patch.Category != nil {
		name := strings.TrimSpace(*patch.Category)
		if name == "" {
			return nil, domain.NewValidationError("category", "must not be empty")
		}
		if name != post.Category.Name {
			category, err := s.categories.EnsureCategory(ctx, &domain.Category{
				ID:    uuid.NewString(),
				Name:  name,
				Slug:  Slugify(name),
				Color: post.Color,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to resolve category %q: %w", name, err)
			}
			post.Category = *category
		}
	}

	if patch.Tags != nil {
		tags, err := s.ensureTags(ctx, patch.Tags)
		if err != nil {
			return nil, err
		}
		post.Tags = tags
	}

	post.UpdatedAt = time.Now().UTC()

	if err := s.posts.UpdatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}

	return post, nil
}

// DeletePost removes a post. Only the original author may delete it.
func (s *BlogService) DeletePost(ctx context.Context, id string, authorID string) error {
	post, err := s.posts.GetPost(ctx, id)
	if err != nil {
		return err
	}
	if post.AuthorID != authorID {
		return fmt.Errorf("post %s is not owned by %s: %w", id, authorID, domain.ErrForbidden)
	}

	if err := s.posts.DeletePost(ctx, id); err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	return nil
}

// PublishPost transitions a post to published. The first publish stamps
// PublishedAt; republishing an archived post keeps the original timestamp.
func (s *BlogService) PublishPost(ctx context.Context, id string, authorID string) (*domain.Post, error) {
	post, err := s.posts.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != authorID {
		return nil, fmt.Errorf("post %s is not owned by %s: %w", id, authorID, domain.ErrForbidden)
	}

	if post.Status == domain.StatusPublished {
		return post, nil
	}

	now := time.Now().UTC()
	post.Status = domain.StatusPublished
	if post.PublishedAt.IsZero() {
		post.PublishedAt = now
	}
	post.UpdatedAt = now

	if err := s.posts.UpdatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to publish post: %w", err)
	}
	return post, nil
}

// ArchivePost transitions a post to archived, keeping PublishedAt so the
// post can be republished with its original date.
func (s *BlogService) ArchivePost(ctx context.Context, id string, authorID string) (*domain.Post, error) {
	post, err := s.posts.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != authorID {
		return nil, fmt.Errorf("post %s is not owned by %s: %w", id, authorID, domain.ErrForbidden)
	}

	if post.Status == domain.StatusArchived {
		return post, nil
	}

	post.Status = domain.StatusArchived
	post.UpdatedAt = time.Now().UTC()

	if err := s.posts.UpdatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to archive post: %w", err)
	}
	return post, nil
}

// ListCategories returns all categories with their post counts.
func (s *BlogService) ListCategories(ctx context.Context) ([]*domain.CategoryCount, error) {
	categories, err := s.categories.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// CreateCategory explicitly creates a category, failing with ErrConflict
// if the name is already taken.
func (s *BlogService) CreateCategory(ctx context.Context, name, description, color string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewValidationError("name", "must not be empty")
	}
	slug := Slugify(name)
	if slug == "" {
		return nil, domain.NewValidationError("name", "must contain letters or digits")
	}

	category := &domain.Category{
		ID:          uuid.NewString(),
		Name:        name,
		Slug:        slug,
		Description: description,
		Color:       color,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.categories.CreateCategory(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// DeleteCategory removes a category by name. Categories still referenced
// by posts cannot be deleted.
func (s *BlogService) DeleteCategory(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return domain.NewValidationError("name", "must not be empty")
	}
	return s.categories.DeleteCategory(ctx, name)
}

func (s *BlogService) ensureTags(ctx context.Context, names []string) ([]domain.Tag, error) {
	var input []*domain.Tag
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		input = append(input, &domain.Tag{
			ID:   uuid.NewString(),
			Name: name,
			Slug: Slugify(name),
		})
	}
	if len(input) == 0 {
		return nil, nil
	}

	stored, err := s.tags.EnsureTags(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tags: %w", err)
	}

	tags := make([]domain.Tag, 0, len(stored))
	for _, t := range stored {
		tags = append(tags, *t)
	}
	return tags, nil
}
