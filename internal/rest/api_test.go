package rest

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"github.com/kmccann/secblog/blog/application"
	"github.com/kmccann/secblog/blog/persistence"
	"github.com/kmccann/secblog/internal/auth"
	"github.com/kmccann/secblog/internal/config"
	"github.com/kmccann/secblog/newsletter"
)

const (
	adminToken  = "admin-token"
	authorToken = "author-token"
)

// newTestServer wires the full stack over an in-memory SQLite database:
// real repositories, real services, real middleware.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	gin.SetMode(gin.TestMode)

	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	schema := []string{
		`CREATE TABLE categories (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			slug TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			color TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE tags (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			slug TEXT NOT NULL
		)`,
		`CREATE TABLE posts (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			slug TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			read_time TEXT NOT NULL DEFAULT '',
			icon TEXT NOT NULL DEFAULT '',
			color TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'draft'
				CHECK (status IN ('draft', 'published', 'archived')),
			author_id TEXT NOT NULL,
			category_id TEXT NOT NULL REFERENCES categories(id),
			published_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE post_tags (
			post_id TEXT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
			tag_id TEXT NOT NULL REFERENCES tags(id),
			PRIMARY KEY (post_id, tag_id)
		)`,
	}
	for _, stmt := range schema {
		if _, err := conn.Exec(stmt); err != nil {
			t.Fatalf("failed to create schema: %v", err)
		}
	}

	blog := application.NewBlogService(
		persistence.NewPostRepository(conn),
		persistence.NewCategoryRepository(conn),
		persistence.NewTagRepository(conn),
	)

	news := newsletter.NewService(newsletter.NewMemoryStore(), newsletter.LogMailer{})
	t.Cleanup(func() { news.Close() })

	verifier, err := auth.NewStaticVerifier([]config.APIToken{
		{TokenHash: hashTestToken(t, adminToken), UserID: "admin-1", Name: "Admin", Role: "admin"},
		{TokenHash: hashTestToken(t, authorToken), UserID: "author-1", Name: "Author", Role: "author"},
	})
	if err != nil {
		t.Fatalf("failed to build verifier: %v", err)
	}

	router := gin.New()
	NewAPI(router, blog, news, verifier)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func hashTestToken(t *testing.T, token string) string {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash token: %v", err)
	}
	return string(hash)
}

// doRequest issues a request and decodes the response envelope.
func doRequest(t *testing.T, server *httptest.Server, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, server.URL+path, reqBody)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp.StatusCode, decoded
}

func dataOf(t *testing.T, body map[string]any) map[string]any {
	t.Helper()

	if body["success"] != true {
		t.Fatalf("expected success envelope, got %v", body)
	}
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected object data, got %v", body["data"])
	}
	return data
}

func createTestPost(t *testing.T, server *httptest.Server, title string) map[string]any {
	t.Helper()

	status, body := doRequest(t, server, http.MethodPost, "/api/posts", authorToken, map[string]any{
		"title":       title,
		"description": "A description for " + title,
		"content":     "Body of " + title,
		"category":    "Malware Analysis",
		"tags":        []string{"reversing", "windows"},
	})
	if status != http.StatusCreated {
		t.Fatalf("expected 201 creating post, got %d: %v", status, body)
	}
	return dataOf(t, body)
}

func TestHealthz(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestCreatePost(t *testing.T) {
	server := newTestServer(t)

	post := createTestPost(t, server, "Dissecting a Loader")

	if post["slug"] != "dissecting-a-loader" {
		t.Errorf("expected slug dissecting-a-loader, got %v", post["slug"])
	}
	if post["status"] != "draft" {
		t.Errorf("new post should be a draft, got %v", post["status"])
	}
	if post["author"] != "author-1" {
		t.Errorf("expected author author-1, got %v", post["author"])
	}
	if post["category"] != "Malware Analysis" {
		t.Errorf("expected category Malware Analysis, got %v", post["category"])
	}
	if post["readTime"] == "" {
		t.Error("expected a derived read time")
	}
}

func TestCreatePost_RequiresAuth(t *testing.T) {
	server := newTestServer(t)

	status, body := doRequest(t, server, http.MethodPost, "/api/posts", "", map[string]any{
		"title": "Nope",
	})
	if status != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", status)
	}
	if body["success"] != false {
		t.Errorf("expected failure envelope, got %v", body)
	}

	status, _ = doRequest(t, server, http.MethodPost, "/api/posts", "bogus-token", map[string]any{
		"title": "Nope",
	})
	if status != http.StatusUnauthorized {
		t.Errorf("expected 401 with invalid token, got %d", status)
	}
}

func TestCreatePost_Validation(t *testing.T) {
	server := newTestServer(t)

	status, body := doRequest(t, server, http.MethodPost, "/api/posts", authorToken, map[string]any{
		"title":       "",
		"description": "desc",
		"category":    "General",
	})
	if status != http.StatusBadRequest {
		t.Errorf("expected 400 for empty title, got %d: %v", status, body)
	}
	if body["success"] != false || body["error"] == "" {
		t.Errorf("expected failure envelope with error message, got %v", body)
	}
}

func TestGetPost(t *testing.T) {
	server := newTestServer(t)

	created := createTestPost(t, server, "Threat Hunting Notes")

	status, body := doRequest(t, server, http.MethodGet, "/api/posts/"+created["id"].(string), "", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", status, body)
	}

	post := dataOf(t, body)
	if post["title"] != "Threat Hunting Notes" {
		t.Errorf("expected title Threat Hunting Notes, got %v", post["title"])
	}
}

func TestGetPost_NotFound(t *testing.T) {
	server := newTestServer(t)

	status, body := doRequest(t, server, http.MethodGet, "/api/posts/missing", "", nil)
	if status != http.StatusNotFound {
		t.Errorf("expected 404, got %d", status)
	}
	if body["success"] != false {
		t.Errorf("expected failure envelope, got %v", body)
	}
}

func TestListPosts_Pagination(t *testing.T) {
	server := newTestServer(t)

	for i := 1; i <= 5; i++ {
		createTestPost(t, server, fmt.Sprintf("Post Number %d", i))
	}

	status, body := doRequest(t, server, http.MethodGet, "/api/posts?page=2&limit=2", "", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", status, body)
	}

	page := dataOf(t, body)
	if page["total"] != float64(5) {
		t.Errorf("expected total 5, got %v", page["total"])
	}
	if page["totalPages"] != float64(3) {
		t.Errorf("expected totalPages 3, got %v", page["totalPages"])
	}
	if page["page"] != float64(2) {
		t.Errorf("expected page 2, got %v", page["page"])
	}

	posts, ok := page["posts"].([]any)
	if !ok || len(posts) != 2 {
		t.Fatalf("expected 2 posts on page 2, got %v", page["posts"])
	}
}

func TestListPosts_InvalidPage(t *testing.T) {
	server := newTestServer(t)

	status, _ := doRequest(t, server, http.MethodGet, "/api/posts?page=abc", "", nil)
	if status != http.StatusBadRequest {
		t.Errorf("expected 400 for non-integer page, got %d", status)
	}

	status, _ = doRequest(t, server, http.MethodGet, "/api/posts?limit=101", "", nil)
	if status != http.StatusBadRequest {
		t.Errorf("expected 400 for limit over 100, got %d", status)
	}
}

func TestUpdatePost_OwnershipEnforced(t *testing.T) {
	server := newTestServer(t)

	created := createTestPost(t, server, "Original Title")
	id := created["id"].(string)

	// The admin token belongs to a different user; the service refuses.
	status, body := doRequest(t, server, http.MethodPut, "/api/posts/"+id, adminToken, map[string]any{
		"title": "Hijacked",
	})
	if status != http.StatusForbidden {
		t.Errorf("expected 403 for non-owner update, got %d: %v", status, body)
	}

	status, body = doRequest(t, server, http.MethodPut, "/api/posts/"+id, authorToken, map[string]any{
		"title": "Revised Title",
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200 for owner update, got %d: %v", status, body)
	}
	post := dataOf(t, body)
	if post["title"] != "Revised Title" {
		t.Errorf("expected updated title, got %v", post["title"])
	}
	if post["slug"] != "revised-title" {
		t.Errorf("title change should re-derive slug, got %v", post["slug"])
	}
}

func TestPublishAndArchivePost(t *testing.T) {
	server := newTestServer(t)

	created := createTestPost(t, server, "Going Live")
	id := created["id"].(string)

	status, body := doRequest(t, server, http.MethodPost, "/api/posts/"+id+"/publish", authorToken, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 publishing, got %d: %v", status, body)
	}
	post := dataOf(t, body)
	if post["status"] != "published" {
		t.Errorf("expected status published, got %v", post["status"])
	}
	if post["publishedAt"] == nil || post["publishedAt"] == "" {
		t.Error("expected publishedAt to be set")
	}

	status, body = doRequest(t, server, http.MethodPost, "/api/posts/"+id+"/archive", authorToken, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 archiving, got %d: %v", status, body)
	}
	post = dataOf(t, body)
	if post["status"] != "archived" {
		t.Errorf("expected status archived, got %v", post["status"])
	}
}

func TestDeletePost(t *testing.T) {
	server := newTestServer(t)

	created := createTestPost(t, server, "Short Lived")
	id := created["id"].(string)

	status, _ := doRequest(t, server, http.MethodDelete, "/api/posts/"+id, authorToken, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 deleting, got %d", status)
	}

	status, _ = doRequest(t, server, http.MethodGet, "/api/posts/"+id, "", nil)
	if status != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", status)
	}
}

func TestCategories(t *testing.T) {
	server := newTestServer(t)

	// Author role cannot create categories.
	status, _ := doRequest(t, server, http.MethodPost, "/api/categories", authorToken, map[string]any{
		"name": "Forensics",
	})
	if status != http.StatusForbidden {
		t.Errorf("expected 403 for author creating category, got %d", status)
	}

	status, body := doRequest(t, server, http.MethodPost, "/api/categories", adminToken, map[string]any{
		"name":  "Forensics",
		"color": "purple",
	})
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %v", status, body)
	}

	// Duplicate names conflict.
	status, _ = doRequest(t, server, http.MethodPost, "/api/categories", adminToken, map[string]any{
		"name": "Forensics",
	})
	if status != http.StatusConflict {
		t.Errorf("expected 409 for duplicate category, got %d", status)
	}

	status, body = doRequest(t, server, http.MethodGet, "/api/categories", "", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 listing categories, got %d", status)
	}
	if body["success"] != true {
		t.Errorf("expected success envelope, got %v", body)
	}
	list, ok := body["data"].([]any)
	if !ok || len(list) != 1 {
		t.Fatalf("expected one category, got %v", body["data"])
	}
}

func TestDeleteCategory_ReferencedConflicts(t *testing.T) {
	server := newTestServer(t)

	createTestPost(t, server, "Pinned Post")

	status, _ := doRequest(t, server, http.MethodDelete, "/api/categories/Malware Analysis", adminToken, nil)
	if status != http.StatusConflict {
		t.Errorf("expected 409 deleting a referenced category, got %d", status)
	}
}

func TestNewsletterEndpoints(t *testing.T) {
	server := newTestServer(t)

	status, body := doRequest(t, server, http.MethodPost, "/api/newsletter/subscribe", "", map[string]any{
		"email": "reader@example.com",
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200 subscribing, got %d: %v", status, body)
	}

	status, _ = doRequest(t, server, http.MethodPost, "/api/newsletter/subscribe", "", map[string]any{
		"email": "reader@example.com",
	})
	if status != http.StatusConflict {
		t.Errorf("expected 409 on duplicate subscribe, got %d", status)
	}

	status, _ = doRequest(t, server, http.MethodPost, "/api/newsletter/subscribe", "", map[string]any{
		"email": "not-an-email",
	})
	if status != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid email, got %d", status)
	}

	status, body = doRequest(t, server, http.MethodGet, "/api/newsletter/subscribe?email=reader@example.com", "", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 checking subscription, got %d", status)
	}
	if check := dataOf(t, body); check["isSubscribed"] != true {
		t.Errorf("expected isSubscribed true, got %v", check)
	}

	// Stats is admin-only.
	status, _ = doRequest(t, server, http.MethodGet, "/api/newsletter/stats", "", nil)
	if status != http.StatusUnauthorized {
		t.Errorf("expected 401 for stats without token, got %d", status)
	}
	status, _ = doRequest(t, server, http.MethodGet, "/api/newsletter/stats", authorToken, nil)
	if status != http.StatusForbidden {
		t.Errorf("expected 403 for stats as author, got %d", status)
	}

	status, body = doRequest(t, server, http.MethodGet, "/api/newsletter/stats", adminToken, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 for stats as admin, got %d", status)
	}
	stats := dataOf(t, body)
	if stats["count"] != float64(1) {
		t.Errorf("expected 1 subscriber, got %v", stats["count"])
	}

	status, _ = doRequest(t, server, http.MethodPost, "/api/newsletter/unsubscribe", "", map[string]any{
		"email": "reader@example.com",
	})
	if status != http.StatusOK {
		t.Errorf("expected 200 unsubscribing, got %d", status)
	}

	status, _ = doRequest(t, server, http.MethodPost, "/api/newsletter/unsubscribe", "", map[string]any{
		"email": "reader@example.com",
	})
	if status != http.StatusNotFound {
		t.Errorf("expected 404 unsubscribing twice, got %d", status)
	}
}
