package handlers

import (
	"net/http"

	"github.com/anonto42/picshare/backend/internal/models"
	"github.com/anonto42/picshare/backend/internal/session"
	"github.com/labstack/echo/v4"
)

// UserHandler handles HTTP requests related to the own profile
type UserHandler struct {
	sessions *session.Registry
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(sessions *session.Registry) *UserHandler {
	return &UserHandler{sessions: sessions}
}

// RegisterProfileRoutes registers user profile-related routes
func (h *UserHandler) RegisterProfileRoutes(g *echo.Group) {
	g.GET("/profile", h.GetProfile)
	g.PUT("/profile", h.UpdateProfile)
	g.POST("/profile/image", h.UploadProfileImage)
}

// GetProfile reloads the authenticated user's profile, own posts, feed and follower count
func (h *UserHandler) GetProfile(c echo.Context) error {
	vm := currentViewModel(c, h.sessions)
	vm.LoadProfile(c.Request().Context(), vm.UserID())
	return respond(c, vm, http.StatusOK)
}

// UpdateProfile updates name, username and bio of the authenticated user
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	var req models.UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	vm := currentViewModel(c, h.sessions)
	vm.UpdateProfile(c.Request().Context(), req.Name, req.Username, req.Bio)
	return respond(c, vm, http.StatusOK)
}

// UploadProfileImage replaces the profile image with the multipart "image" file
func (h *UserHandler) UploadProfileImage(c echo.Context) error {
	file, err := c.FormFile("image")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Image file is required")
	}
	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Cannot read image file")
	}
	defer src.Close()

	vm := currentViewModel(c, h.sessions)
	vm.UploadProfileImage(c.Request().Context(), src, file.Header.Get(echo.HeaderContentType))
	return respond(c, vm, http.StatusOK)
}
