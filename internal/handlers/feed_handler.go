package handlers

import (
	"net/http"

	"github.com/anonto42/picshare/backend/internal/session"
	"github.com/labstack/echo/v4"
)

// FeedHandler handles feed-related HTTP requests
type FeedHandler struct {
	sessions *session.Registry
}

// NewFeedHandler creates a new FeedHandler
func NewFeedHandler(sessions *session.Registry) *FeedHandler {
	return &FeedHandler{sessions: sessions}
}

// RegisterFeedRoutes registers feed-related routes
func (h *FeedHandler) RegisterFeedRoutes(g *echo.Group) {
	g.GET("/feed", h.GetFeed)
}

// GetFeed refreshes the posts of followed users, or the recent posts of
// everyone when that is empty.
func (h *FeedHandler) GetFeed(c echo.Context) error {
	vm := currentViewModel(c, h.sessions)
	vm.RefreshFeed(c.Request().Context())
	return respond(c, vm, http.StatusOK)
}
