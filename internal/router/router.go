package router

import (
	"github.com/anonto42/picshare/backend/internal/handlers"
	"github.com/anonto42/picshare/backend/internal/middleware"
	"github.com/anonto42/picshare/backend/internal/session"
	"github.com/anonto42/picshare/backend/internal/viewmodel"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// Backend is everything the routes need from the core. *service.Service implements it.
type Backend interface {
	viewmodel.Backend
	handlers.Lookup
	middleware.TokenVerifier
}

// SetupRoutes configures all application routes and returns the session
// registry serving them. The caller closes the registry on shutdown.
func SetupRoutes(e *echo.Echo, backend Backend) *session.Registry {
	sessions := session.NewRegistry(backend)

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	// --- Unprotected routes for authentication ---
	authGroup := e.Group("/api/v1/auth")
	authHandler := handlers.NewAuthHandler(sessions)
	authHandler.RegisterAuthRoutes(authGroup)

	// --- Protected routes (require a session token) ---
	api := e.Group("/api/v1")
	api.Use(middleware.BearerAuth(backend), middleware.SerializeSessions(sessions.Locks()))
	authHandler.RegisterSessionRoutes(api)

	handlers.NewUserHandler(sessions).RegisterProfileRoutes(api)
	handlers.NewFollowHandler(sessions, backend).RegisterFollowRoutes(api)
	handlers.NewPostHandler(sessions, backend).RegisterPostRoutes(api)
	handlers.NewLikeHandler(sessions).RegisterLikeRoutes(api)
	handlers.NewCommentHandler(sessions).RegisterCommentRoutes(api)
	handlers.NewFeedHandler(sessions).RegisterFeedRoutes(api)

	logrus.WithField("routes", len(e.Routes())).Info("routes configured")
	return sessions
}
