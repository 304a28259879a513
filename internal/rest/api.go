package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kmccann/secblog/blog/application"
	"github.com/kmccann/secblog/blog/domain"
	"github.com/kmccann/secblog/internal/auth"
	"github.com/kmccann/secblog/internal/middleware"
	"github.com/kmccann/secblog/newsletter"
)

// NewAPI registers all routes on the engine. Reads are public; mutations
// require a bearer token and the right role. Ownership checks live in the
// service layer, the route layer only gates roles.
func NewAPI(router *gin.Engine, blog *application.BlogService, news *newsletter.Service, verifier auth.Verifier) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api")

	postsHandler := NewPostsHandler(blog)
	posts := apiGroup.Group("/posts")
	{
		posts.GET("", postsHandler.ListPosts)
		posts.GET("/:postId", postsHandler.GetPost)

		authored := posts.Group("", middleware.RequireUser(verifier),
			middleware.RequireRole(domain.RoleAdmin, domain.RoleModerator, domain.RoleAuthor))
		{
			authored.POST("", postsHandler.CreatePost)
			authored.PUT("/:postId", postsHandler.UpdatePost)
			authored.DELETE("/:postId", postsHandler.DeletePost)
			authored.POST("/:postId/publish", postsHandler.PublishPost)
			authored.POST("/:postId/archive", postsHandler.ArchivePost)
		}
	}

	categoriesHandler := NewCategoriesHandler(blog)
	categories := apiGroup.Group("/categories")
	{
		categories.GET("", categoriesHandler.ListCategories)

		adminOnly := categories.Group("", middleware.RequireUser(verifier),
			middleware.RequireRole(domain.RoleAdmin))
		{
			adminOnly.POST("", categoriesHandler.CreateCategory)
			adminOnly.DELETE("/:name", categoriesHandler.DeleteCategory)
		}
	}

	newsletterHandler := NewNewsletterHandler(news)
	newsGroup := apiGroup.Group("/newsletter")
	{
		newsGroup.POST("/subscribe", newsletterHandler.Subscribe)
		newsGroup.POST("/unsubscribe", newsletterHandler.Unsubscribe)
		newsGroup.GET("/subscribe", newsletterHandler.CheckSubscription)
		newsGroup.GET("/stats", middleware.RequireUser(verifier),
			middleware.RequireRole(domain.RoleAdmin), newsletterHandler.Stats)
	}
}
