package api

import (
	"time"

	"github.com/kmccann/secblog/blog/domain"
)

// Post is the wire representation of a blog post. Date carries the publish
// time when set, otherwise the creation time.
type Post struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Slug        string   `json:"slug"`
	Description string   `json:"description"`
	Content     string   `json:"content,omitempty"`
	Category    string   `json:"category"`
	Date        string   `json:"date"`
	ReadTime    string   `json:"readTime"`
	Icon        string   `json:"icon"`
	Color       string   `json:"color"`
	Tags        []string `json:"tags"`
	Author      string   `json:"author"`
	Status      string   `json:"status"`
	PublishedAt string   `json:"publishedAt,omitempty"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt"`
}

// PostPage is one page of posts plus pagination bookkeeping.
type PostPage struct {
	Posts      []Post `json:"posts"`
	Total      int    `json:"total"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	TotalPages int    `json:"totalPages"`
}

// Category is the wire representation of a category with its post count.
type Category struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color"`
	Count       int    `json:"count"`
}

// FromDomainPost converts a domain post to its wire form.
func FromDomainPost(p *domain.Post) Post {
	date := p.CreatedAt
	if !p.PublishedAt.IsZero() {
		date = p.PublishedAt
	}

	tags := make([]string, 0, len(p.Tags))
	for _, t := range p.Tags {
		tags = append(tags, t.Name)
	}

	out := Post{
		ID:          p.ID,
		Title:       p.Title,
		Slug:        p.Slug,
		Description: p.Description,
		Content:     p.Content,
		Category:    p.Category.Name,
		Date:        date.Format(time.RFC3339),
		ReadTime:    p.ReadTime,
		Icon:        p.Icon,
		Color:       p.Category.Color,
		Tags:        tags,
		Author:      p.AuthorID,
		Status:      string(p.Status),
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   p.UpdatedAt.Format(time.RFC3339),
	}
	if !p.PublishedAt.IsZero() {
		out.PublishedAt = p.PublishedAt.Format(time.RFC3339)
	}
	return out
}

// FromDomainPosts converts a slice of domain posts.
func FromDomainPosts(posts []*domain.Post) []Post {
	out := make([]Post, 0, len(posts))
	for _, p := range posts {
		out = append(out, FromDomainPost(p))
	}
	return out
}

// FromDomainCategory converts a category count to its wire form.
func FromDomainCategory(c *domain.CategoryCount) Category {
	return Category{
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		Color:       c.Color,
		Count:       c.Count,
	}
}
