package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/anonto42/picshare/backend/internal/apperr"
	"github.com/anonto42/picshare/backend/internal/auth"
	"github.com/anonto42/picshare/backend/internal/middleware"
	"github.com/anonto42/picshare/backend/internal/models"
	"github.com/anonto42/picshare/backend/internal/session"
	"github.com/anonto42/picshare/backend/internal/viewmodel"
	"github.com/labstack/echo/v4"
)

// Lookup holds the reads served outside of a view-model
type Lookup interface {
	GetPost(ctx context.Context, postID string) (*models.Post, error)
	CountFollowers(ctx context.Context, userID string) (int, error)
}

// StateResponse is the view-model state returned by every session route
type StateResponse struct {
	viewmodel.Snapshot
	UserID  string `json:"userId,omitempty"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message,omitempty"`
}

// currentViewModel returns the view-model of the authenticated caller
func currentViewModel(c echo.Context, sessions *session.Registry) *viewmodel.ViewModel {
	id := &auth.Identity{
		UserID: c.Get(middleware.UserIDKey).(string),
		Token:  c.Get(middleware.TokenKey).(string),
	}
	return sessions.Get(c.Request().Context(), id)
}

// stateOf waits for background work of vm and reads its state, consuming one notification
func stateOf(c echo.Context, vm *viewmodel.ViewModel) StateResponse {
	_ = vm.Settle(c.Request().Context())
	msg, _ := vm.TakeNotification()
	return StateResponse{Snapshot: vm.Snapshot(), UserID: vm.UserID(), Message: msg}
}

// respond writes the caller's state. A view-model signed out by the operation
// answers 401 with the notification as the error message.
func respond(c echo.Context, vm *viewmodel.ViewModel, status int) error {
	res := stateOf(c, vm)
	if !res.SignedIn {
		msg := res.Message
		if msg == "" {
			msg = "Session expired, please log in again"
		}
		return echo.NewHTTPError(http.StatusUnauthorized, msg)
	}
	return c.JSON(status, res)
}

// httpError translates an application error
func httpError(err error) error {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	switch ae.Code {
	case apperr.CodeValidation:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case apperr.CodeNotFound:
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case apperr.CodeUsernameTaken:
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case apperr.CodeAuth, apperr.CodeSessionExpired:
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case apperr.CodeBackendRequest:
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
