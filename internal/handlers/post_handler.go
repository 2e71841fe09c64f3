package handlers

import (
	"net/http"

	"github.com/anonto42/picshare/backend/internal/models"
	"github.com/anonto42/picshare/backend/internal/session"
	"github.com/labstack/echo/v4"
)

// PostHandler handles HTTP requests related to posts
type PostHandler struct {
	sessions *session.Registry
	lookup   Lookup
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(sessions *session.Registry, lookup Lookup) *PostHandler {
	return &PostHandler{sessions: sessions, lookup: lookup}
}

// RegisterPostRoutes registers post-related routes
func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	g.POST("/posts", h.CreatePost)
	g.GET("/posts", h.GetPosts)
	g.GET("/posts/search", h.SearchPosts)
	g.GET("/posts/:id", h.GetPost)
}

// CreatePost uploads the multipart "image" file and publishes it with "description"
func (h *PostHandler) CreatePost(c echo.Context) error {
	var req models.CreatePostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

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
	created := false
	vm.NewPost(c.Request().Context(), src, file.Header.Get(echo.HeaderContentType), req.Description, func() {
		created = true
	})
	if !created {
		res := stateOf(c, vm)
		status := http.StatusBadGateway
		if !res.SignedIn {
			status = http.StatusUnauthorized
		}
		return echo.NewHTTPError(status, res.Message)
	}
	return respond(c, vm, http.StatusCreated)
}

// GetPosts refreshes the caller's own posts
func (h *PostHandler) GetPosts(c echo.Context) error {
	vm := currentViewModel(c, h.sessions)
	vm.RefreshPosts(c.Request().Context())
	return respond(c, vm, http.StatusOK)
}

// SearchPosts searches posts by the single term in "q"
func (h *PostHandler) SearchPosts(c echo.Context) error {
	vm := currentViewModel(c, h.sessions)
	vm.SearchPosts(c.Request().Context(), c.QueryParam("q"))
	return respond(c, vm, http.StatusOK)
}

// GetPost returns a single post
func (h *PostHandler) GetPost(c echo.Context) error {
	post, err := h.lookup.GetPost(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, post)
}
