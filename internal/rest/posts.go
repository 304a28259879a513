package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kmccann/secblog/api"
	"github.com/kmccann/secblog/blog/application"
	"github.com/kmccann/secblog/internal/middleware"
)

// PostsHandler adapts HTTP requests to BlogService post operations.
type PostsHandler struct {
	blog *application.BlogService
}

func NewPostsHandler(blog *application.BlogService) *PostsHandler {
	return &PostsHandler{blog: blog}
}

// ListPosts handles GET /api/posts with category/status/search filters and
// offset pagination.
func (h *PostsHandler) ListPosts(c *gin.Context) {
	in := application.ListPostsInput{
		Category: c.Query("category"),
		Status:   c.Query("status"),
		Search:   c.Query("search"),
	}

	var err error
	if in.Page, err = intQuery(c, "page"); err != nil {
		respondBadRequest(c, "page must be an integer")
		return
	}
	if in.Limit, err = intQuery(c, "limit"); err != nil {
		respondBadRequest(c, "limit must be an integer")
		return
	}

	page, err := h.blog.ListPosts(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, api.PostPage{
		Posts:      api.FromDomainPosts(page.Posts),
		Total:      page.Total,
		Page:       page.Page,
		Limit:      page.Limit,
		TotalPages: page.TotalPages,
	})
}

// GetPost handles GET /api/posts/:postId.
func (h *PostsHandler) GetPost(c *gin.Context) {
	post, err := h.blog.GetPost(c.Request.Context(), c.Param("postId"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, api.FromDomainPost(post))
}

type createPostRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Content     string   `json:"content"`
	Category    string   `json:"category"`
	ReadTime    string   `json:"readTime"`
	Icon        string   `json:"icon"`
	Color       string   `json:"color"`
	Tags        []string `json:"tags"`
}

// CreatePost handles POST /api/posts. The authenticated user becomes the
// post's author and the post starts as a draft.
func (h *PostsHandler) CreatePost(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	user, _ := middleware.UserFrom(c)

	post, err := h.blog.CreatePost(c.Request.Context(), application.PostInput{
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
		Category:    req.Category,
		ReadTime:    req.ReadTime,
		Icon:        req.Icon,
		Color:       req.Color,
		Tags:        req.Tags,
	}, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusCreated, api.FromDomainPost(post))
}

type updatePostRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Content     *string  `json:"content"`
	Category    *string  `json:"category"`
	ReadTime    *string  `json:"readTime"`
	Icon        *string  `json:"icon"`
	Color       *string  `json:"color"`
	Tags        []string `json:"tags"`
}

// UpdatePost handles PUT /api/posts/:postId. Absent fields stay unchanged.
func (h *PostsHandler) UpdatePost(c *gin.Context) {
	var req updatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	user, _ := middleware.UserFrom(c)

	post, err := h.blog.UpdatePost(c.Request.Context(), c.Param("postId"), application.PostPatch{
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
		Category:    req.Category,
		ReadTime:    req.ReadTime,
		Icon:        req.Icon,
		Color:       req.Color,
		Tags:        req.Tags,
	}, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, api.FromDomainPost(post))
}

// DeletePost handles DELETE /api/posts/:postId.
func (h *PostsHandler) DeletePost(c *gin.Context) {
	user, _ := middleware.UserFrom(c)

	if err := h.blog.DeletePost(c.Request.Context(), c.Param("postId"), user.ID); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"deleted": true})
}

// PublishPost handles POST /api/posts/:postId/publish.
func (h *PostsHandler) PublishPost(c *gin.Context) {
	user, _ := middleware.UserFrom(c)

	post, err := h.blog.PublishPost(c.Request.Context(), c.Param("postId"), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, api.FromDomainPost(post))
}

// ArchivePost handles POST /api/posts/:postId/archive.
func (h *PostsHandler) ArchivePost(c *gin.Context) {
	user, _ := middleware.UserFrom(c)

	post, err := h.blog.ArchivePost(c.Request.Context(), c.Param("postId"), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, api.FromDomainPost(post))
}

// intQuery parses an optional integer query parameter; absent means zero.
func intQuery(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
