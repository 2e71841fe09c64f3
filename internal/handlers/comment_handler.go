package handlers

import (
	"net/http"

	"github.com/anonto42/picshare/backend/internal/models"
	"github.com/anonto42/picshare/backend/internal/session"
	"github.com/labstack/echo/v4"
)

// CommentHandler handles HTTP requests related to comments
type CommentHandler struct {
	sessions *session.Registry
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(sessions *session.Registry) *CommentHandler {
	return &CommentHandler{sessions: sessions}
}

// RegisterCommentRoutes registers comment-related routes
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group) {
	g.POST("/posts/:id/comments", h.CreateComment)
	g.GET("/posts/:id/comments", h.GetCommentsByPostID)
}

// CreateComment comments on a post and returns its comments
func (h *CommentHandler) CreateComment(c echo.Context) error {
	var req models.CreateCommentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	vm := currentViewModel(c, h.sessions)
	vm.CreateComment(c.Request().Context(), c.Param("id"), req.Text)
	return respond(c, vm, http.StatusOK)
}

// GetCommentsByPostID loads the comments of a post, newest first
func (h *CommentHandler) GetCommentsByPostID(c echo.Context) error {
	vm := currentViewModel(c, h.sessions)
	vm.LoadComments(c.Request().Context(), c.Param("id"))
	return respond(c, vm, http.StatusOK)
}
