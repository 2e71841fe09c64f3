package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// KeyLocker hands out exclusive per-key locks. *keylock.Locker implements it.
type KeyLocker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// SerializeSessions runs the requests of one user one at a time. A user's
// requests share a view-model, so its state and notifications in a response
// belong to that request only. Must run after BearerAuth.
func SerializeSessions(locks KeyLocker) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, _ := c.Get(UserIDKey).(string)
			unlock, err := locks.Lock(c.Request().Context(), "sessions/"+userID)
			if err != nil {
				logrus.WithError(err).WithField("userId", userID).Debug("request abandoned while queued")
				return echo.NewHTTPError(http.StatusServiceUnavailable, "Request cancelled")
			}
			defer unlock()
			return next(c)
		}
	}
}
