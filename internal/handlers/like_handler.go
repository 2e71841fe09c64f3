package handlers

import (
	"net/http"

	"github.com/anonto42/picshare/backend/internal/session"
	"github.com/labstack/echo/v4"
)

// LikeHandler handles like toggling
type LikeHandler struct {
	sessions *session.Registry
}

// NewLikeHandler creates a new LikeHandler
func NewLikeHandler(sessions *session.Registry) *LikeHandler {
	return &LikeHandler{sessions: sessions}
}

// RegisterLikeRoutes registers like-related routes
func (h *LikeHandler) RegisterLikeRoutes(g *echo.Group) {
	g.POST("/posts/:id/like", h.ToggleLike)
}

// ToggleLike likes the post, or unlikes it when already liked
func (h *LikeHandler) ToggleLike(c echo.Context) error {
	vm := currentViewModel(c, h.sessions)
	vm.ToggleLike(c.Request().Context(), c.Param("id"))
	return respond(c, vm, http.StatusOK)
}
