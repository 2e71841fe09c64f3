package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// Context keys set by BearerAuth
const (
	UserIDKey = "userID"
	TokenKey  = "token"
)

// TokenVerifier resolves a session token to a user ID
type TokenVerifier interface {
	VerifySession(ctx context.Context, token string) (string, error)
}

// BearerAuth creates an Echo middleware that verifies "Authorization: Bearer <token>"
// and stores the user ID and the token in the context.
func BearerAuth(verifier TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authorization header is missing")
			}

			parts := strings.Fields(authHeader)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authorization header must be in Bearer format")
			}

			userID, err := verifier.VerifySession(c.Request().Context(), parts[1])
			if err != nil {
				logrus.WithError(err).Debug("rejected session token")
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
			}

			c.Set(UserIDKey, userID)
			c.Set(TokenKey, parts[1])
			return next(c)
		}
	}
}
