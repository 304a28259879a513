package domain

import (
	"context"
	"time"
)

// PostStatus is the lifecycle state of a post.
type PostStatus string

const (
	StatusDraft     PostStatus = "draft"
	StatusPublished PostStatus = "published"
	StatusArchived  PostStatus = "archived"
)

// Valid reports whether s is one of the known post statuses.
func (s PostStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// Post represents a blog post with its resolved category and tags.
// A post is created in draft status and becomes visible to readers once
// it is published, which sets PublishedAt.
type Post struct {
	ID          string
	Title       string
	Slug        string
	Description string
	Content     string
	ReadTime    string
	Icon        string
	Color       string
	Status      PostStatus
	AuthorID    string
	Category    Category
	Tags        []Tag
	PublishedAt time.Time // zero until first publish
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PostFilter narrows post listings. Zero values mean "no filter".
type PostFilter struct {
	Category string     // exact category name
	Status   PostStatus // exact status
	Search   string     // case-insensitive substring across title/description/content
}

// Pagination is offset-based: a page skips (Page-1)*Limit rows.
type Pagination struct {
	Page  int
	Limit int
}

// Offset returns the number of rows to skip for this page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

type PostRepository interface {
	// FindPosts returns one page of posts matching filter, newest first,
	// along with the total count of matching posts. Count and page are
	// computed against the same snapshot.
	FindPosts(ctx context.Context, filter PostFilter, page Pagination) ([]*Post, int, error)
	GetPost(ctx context.Context, id string) (*Post, error)
	CreatePost(ctx context.Context, p *Post) error
	UpdatePost(ctx context.Context, p *Post) error
	DeletePost(ctx context.Context, id string) error
}
