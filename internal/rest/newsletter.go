package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kmccann/secblog/newsletter"
)

// NewsletterHandler adapts HTTP requests to the newsletter service.
type NewsletterHandler struct {
	news *newsletter.Service
}

func NewNewsletterHandler(news *newsletter.Service) *NewsletterHandler {
	return &NewsletterHandler{news: news}
}

type emailRequest struct {
	Email string `json:"email"`
}

// Subscribe handles POST /api/newsletter/subscribe.
func (h *NewsletterHandler) Subscribe(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	switch err := h.news.Subscribe(req.Email); {
	case err == nil:
		respond(c, http.StatusOK, gin.H{"subscribed": true})
	case errors.Is(err, newsletter.ErrInvalidEmail):
		respondBadRequest(c, err.Error())
	case errors.Is(err, newsletter.ErrAlreadySubscribed):
		c.JSON(http.StatusConflict, envelope{Success: false, Error: err.Error()})
	default:
		respondError(c, err)
	}
}

// Unsubscribe handles POST /api/newsletter/unsubscribe.
func (h *NewsletterHandler) Unsubscribe(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	switch err := h.news.Unsubscribe(req.Email); {
	case err == nil:
		respond(c, http.StatusOK, gin.H{"unsubscribed": true})
	case errors.Is(err, newsletter.ErrInvalidEmail):
		respondBadRequest(c, err.Error())
	case errors.Is(err, newsletter.ErrNotSubscribed):
		c.JSON(http.StatusNotFound, envelope{Success: false, Error: err.Error()})
	default:
		respondError(c, err)
	}
}

// CheckSubscription handles GET /api/newsletter/subscribe?email=.
func (h *NewsletterHandler) CheckSubscription(c *gin.Context) {
	subscribed, err := h.news.IsSubscribed(c.Query("email"))
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	respond(c, http.StatusOK, gin.H{"isSubscribed": subscribed})
}

// Stats handles GET /api/newsletter/stats.
func (h *NewsletterHandler) Stats(c *gin.Context) {
	respond(c, http.StatusOK, h.news.Stats())
}
