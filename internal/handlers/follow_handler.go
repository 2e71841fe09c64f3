package handlers

import (
	"net/http"

	"github.com/anonto42/picshare/backend/internal/session"
	"github.com/labstack/echo/v4"
)

// FollowHandler handles follow toggling and follower counts
type FollowHandler struct {
	sessions *session.Registry
	lookup   Lookup
}

// NewFollowHandler creates a new FollowHandler
func NewFollowHandler(sessions *session.Registry, lookup Lookup) *FollowHandler {
	return &FollowHandler{sessions: sessions, lookup: lookup}
}

// RegisterFollowRoutes registers follow-related routes
func (h *FollowHandler) RegisterFollowRoutes(g *echo.Group) {
	g.POST("/users/:id/follow", h.ToggleFollow)
	g.GET("/users/:id/followers", h.GetFollowers)
}

// ToggleFollow follows the user, or unfollows when already followed
func (h *FollowHandler) ToggleFollow(c echo.Context) error {
	targetID := c.Param("id")
	vm := currentViewModel(c, h.sessions)
	if targetID == vm.UserID() {
		return echo.NewHTTPError(http.StatusBadRequest, "Cannot follow yourself")
	}

	vm.ToggleFollow(c.Request().Context(), targetID)
	return respond(c, vm, http.StatusOK)
}

// GetFollowers counts the followers of a user. For the caller the count is
// also published to the session state.
func (h *FollowHandler) GetFollowers(c echo.Context) error {
	userID := c.Param("id")
	vm := currentViewModel(c, h.sessions)
	if userID == vm.UserID() {
		vm.RefreshFollowers(c.Request().Context())
		return respond(c, vm, http.StatusOK)
	}

	n, err := h.lookup.CountFollowers(c.Request().Context(), userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"userId": userID, "followers": n})
}
