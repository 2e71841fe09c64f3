package handlers

import (
	"net/http"

	"github.com/anonto42/picshare/backend/internal/middleware"
	"github.com/anonto42/picshare/backend/internal/models"
	"github.com/anonto42/picshare/backend/internal/session"
	"github.com/anonto42/picshare/backend/internal/viewmodel"
	"github.com/labstack/echo/v4"
)

// AuthHandler handles signup, login and logout
type AuthHandler struct {
	sessions *session.Registry
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(sessions *session.Registry) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

// RegisterAuthRoutes registers the public authentication routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/signup", h.SignUp)
	g.POST("/login", h.LogIn)
}

// RegisterSessionRoutes registers the authentication routes that need a session
func (h *AuthHandler) RegisterSessionRoutes(g *echo.Group) {
	g.POST("/auth/logout", h.LogOut)
}

// SignUp creates an account and returns its session token and state
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req models.SignUpRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	vm := h.sessions.New()
	vm.SignUp(c.Request().Context(), req.Username, req.Email, req.Password)
	return h.signedIn(c, vm, http.StatusCreated, http.StatusBadRequest)
}

// LogIn signs in with email and password
func (h *AuthHandler) LogIn(c echo.Context) error {
	var req models.LogInRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	vm := h.sessions.New()
	vm.LogIn(c.Request().Context(), req.Email, req.Password)
	return h.signedIn(c, vm, http.StatusOK, http.StatusUnauthorized)
}

// signedIn registers vm when the operation signed it in, otherwise reports
// the notification with failStatus.
func (h *AuthHandler) signedIn(c echo.Context, vm *viewmodel.ViewModel, status, failStatus int) error {
	res := stateOf(c, vm)
	if !res.SignedIn {
		vm.Close()
		return echo.NewHTTPError(failStatus, res.Message)
	}
	h.sessions.Put(vm)
	res.Token = vm.Identity().Token
	return c.JSON(status, res)
}

// LogOut ends the caller's session
func (h *AuthHandler) LogOut(c echo.Context) error {
	vm := currentViewModel(c, h.sessions)
	vm.LogOut(c.Request().Context())
	msg, _ := vm.TakeNotification()
	h.sessions.Remove(c.Get(middleware.UserIDKey).(string))
	return c.JSON(http.StatusOK, StateResponse{Snapshot: vm.Snapshot(), Message: msg})
}
