package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kmccann/secblog/api"
	"github.com/kmccann/secblog/blog/application"
)

// CategoriesHandler adapts HTTP requests to BlogService category operations.
type CategoriesHandler struct {
	blog *application.BlogService
}

func NewCategoriesHandler(blog *application.BlogService) *CategoriesHandler {
	return &CategoriesHandler{blog: blog}
}

// ListCategories handles GET /api/categories.
func (h *CategoriesHandler) ListCategories(c *gin.Context) {
	categories, err := h.blog.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]api.Category, 0, len(categories))
	for _, category := range categories {
		out = append(out, api.FromDomainCategory(category))
	}
	respond(c, http.StatusOK, out)
}

type createCategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

// CreateCategory handles POST /api/categories.
func (h *CategoriesHandler) CreateCategory(c *gin.Context) {
	var req createCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	category, err := h.blog.CreateCategory(c.Request.Context(), req.Name, req.Description, req.Color)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusCreated, api.Category{
		Name:        category.Name,
		Slug:        category.Slug,
		Description: category.Description,
		Color:       category.Color,
	})
}

// DeleteCategory handles DELETE /api/categories/:name. Categories still
// referenced by posts answer 409.
func (h *CategoriesHandler) DeleteCategory(c *gin.Context) {
	if err := h.blog.DeleteCategory(c.Request.Context(), c.Param("name")); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"deleted": true})
}
