package persistence

import (
	"context"
	"testing"

	"github.com/kmccann/secblog/blog/domain"
)

func TestTagRepository_EnsureTags(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTagRepository(db)
	ctx := context.Background()

	first, err := repo.EnsureTags(ctx, []*domain.Tag{
		{ID: "tag-1", Name: "crypto", Slug: "crypto"},
		{ID: "tag-2", Name: "tls", Slug: "tls"},
	})
	if err != nil {
		t.Fatalf("EnsureTags failed: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("got %d tags, want 2", len(first))
	}

	// Re-ensuring a mix of known and new names reuses existing rows.
	second, err := repo.EnsureTags(ctx, []*domain.Tag{
		{ID: "tag-3", Name: "crypto", Slug: "crypto"},
		{ID: "tag-4", Name: "pki", Slug: "pki"},
	})
	if err != nil {
		t.Fatalf("second EnsureTags failed: %v", err)
	}
	if second[0].ID != "tag-1" {
		t.Errorf("existing tag resolved to ID %v, want tag-1", second[0].ID)
	}
	if second[1].ID != "tag-4" {
		t.Errorf("new tag resolved to ID %v, want tag-4", second[1].ID)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM tags").Scan(&count); err != nil {
		t.Fatalf("failed to count tags: %v", err)
	}
	if count != 3 {
		t.Errorf("tag rows = %d, want 3", count)
	}
}

func TestTagRepository_EnsureTags_Empty(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTagRepository(db)

	tags, err := repo.EnsureTags(context.Background(), nil)
	if err != nil {
		t.Fatalf("EnsureTags failed: %v", err)
	}
	if tags != nil {
		t.Errorf("expected nil for empty input, got %v", tags)
	}
}
