package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anonto42/picshare/backend/internal/apperr"
	"github.com/anonto42/picshare/backend/internal/auth"
	"github.com/anonto42/picshare/backend/internal/models"
	"github.com/anonto42/picshare/backend/internal/repositories"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

var (
	errFillAllFields = apperr.New(apperr.CodeValidation, "Please fill in all fields")
	errUsernameTaken = apperr.New(apperr.CodeUsernameTaken, "Username already exists")
	errNoSession     = apperr.New(apperr.CodeSessionExpired, "Session expired, please log in again")
)

// authFailure strips the backend wrapper so the auth backend's reason is reported as is
func authFailure(err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Code == apperr.CodeBackendRequest && ae.Err != nil {
		err = ae.Err
	}
	return apperr.Wrap(apperr.CodeAuth, "", err)
}

// invalidRequest reports a failed request validation. Missing fields share one
// message; a too long field names the field and its limit.
func invalidRequest(err error) error {
	var fields validator.ValidationErrors
	if errors.As(err, &fields) {
		for _, fe := range fields {
			if fe.Tag() == "max" {
				msg := fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
				return apperr.Wrap(apperr.CodeValidation, msg, err)
			}
		}
	}
	return apperr.Wrap(apperr.CodeValidation, errFillAllFields.Message, err)
}

// SignUp creates an account and its profile document seeded with username.
// The username pre-check and the profile write are not transactional; with
// UsernameGuard enabled a reservation closes that race.
func (s *Service) SignUp(ctx context.Context, username, email, password string) (*auth.Identity, error) {
	req := models.SignUpRequest{Username: username, Email: email, Password: password}
	if err := s.validate.Struct(req); err != nil {
		return nil, invalidRequest(err)
	}
	email = strings.TrimSpace(email)
	password = strings.TrimSpace(password)

	if err := s.checkUsernameFree(ctx, username, ""); err != nil {
		return nil, err
	}

	var id *auth.Identity
	err := s.write(ctx, func(ctx context.Context) error {
		var err error
		id, err = s.auth.CreateAccount(ctx, email, password)
		return err
	})
	if err != nil {
		return nil, authFailure(err)
	}

	if s.cfg.UsernameGuard {
		if err := s.reserveUsername(ctx, username, id.UserID); err != nil {
			s.rollbackAccount(id.UserID)
			return nil, err
		}
	}

	err = s.write(ctx, func(ctx context.Context) error {
		return s.users.UpsertUser(ctx, id.UserID, models.ProfileUpdate{Username: &username})
	})
	if err != nil {
		if s.cfg.UsernameGuard {
			s.releaseUsername(username, id.UserID)
		}
		s.rollbackAccount(id.UserID)
		return nil, err
	}

	logrus.WithField("userId", id.UserID).Info("account created")
	return id, nil
}

// LogIn signs in with email and password
func (s *Service) LogIn(ctx context.Context, email, password string) (*auth.Identity, error) {
	req := models.LogInRequest{Email: email, Password: password}
	if err := s.validate.Struct(req); err != nil {
		return nil, invalidRequest(err)
	}

	var id *auth.Identity
	err := s.write(ctx, func(ctx context.Context) error {
		var err error
		id, err = s.auth.SignIn(ctx, email, password)
		return err
	})
	if err != nil {
		return nil, authFailure(err)
	}
	return id, nil
}

// LogOut revokes the sessions of userID
func (s *Service) LogOut(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	return s.write(ctx, func(ctx context.Context) error {
		return s.auth.SignOut(ctx, userID)
	})
}

// VerifySession resolves a session token to its user ID
func (s *Service) VerifySession(ctx context.Context, token string) (string, error) {
	userID, err := s.auth.Verify(ctx, token)
	if err != nil {
		return "", apperr.Wrap(apperr.CodeSessionExpired, "Session expired", err)
	}
	return userID, nil
}

// GetProfile fetches users/{userID}
func (s *Service) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, errNoSession
	}
	var user *models.User
	err := s.read(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.users.GetUserByID(ctx, userID)
		return err
	})
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.Wrap(apperr.CodeNotFound, "", err)
		}
		return nil, err
	}
	if user.Following == nil {
		user.Following = []string{}
	}
	return user, nil
}

// UpdateProfile upserts the profile of userID, merging only the supplied
// fields, and returns the stored result. A changed username passes the same
// uniqueness checks as signup.
func (s *Service) UpdateProfile(ctx context.Context, userID string, update models.ProfileUpdate) (*models.User, error) {
	if userID == "" {
		return nil, errNoSession
	}

	current, err := s.GetProfile(ctx, userID)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	if update.Empty() {
		if current == nil {
			return nil, err
		}
		return current, nil
	}

	var reserved, released string
	if update.Username != nil && (current == nil || current.Username != *update.Username) {
		if *update.Username == "" {
			return nil, apperr.New(apperr.CodeValidation, "Username cannot be empty")
		}
		if err := s.checkUsernameFree(ctx, *update.Username, userID); err != nil {
			return nil, err
		}
		if s.cfg.UsernameGuard {
			if err := s.reserveUsername(ctx, *update.Username, userID); err != nil {
				return nil, err
			}
			reserved = *update.Username
			if current != nil {
				released = current.Username
			}
		}
	}

	err = s.write(ctx, func(ctx context.Context) error {
		return s.users.UpsertUser(ctx, userID, update)
	})
	if err != nil {
		if reserved != "" {
			s.releaseUsername(reserved, userID)
		}
		return nil, err
	}
	if released != "" {
		s.releaseUsername(released, userID)
	}

	return s.GetProfile(ctx, userID)
}

// CountFollowers counts the profiles whose following set contains userID.
// The value is recomputed by a full query on every call.
func (s *Service) CountFollowers(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.read(ctx, func(ctx context.Context) error {
		var err error
		n, err = s.users.CountFollowers(ctx, userID)
		return err
	})
	return n, err
}

// ToggleFollow removes target from following if present, otherwise adds it,
// and persists the full replacement set.
func (s *Service) ToggleFollow(ctx context.Context, userID string, following []string, target string) ([]string, error) {
	if userID == "" {
		return nil, errNoSession
	}
	if target == "" {
		return nil, apperr.New(apperr.CodeValidation, "User ID is required")
	}

	next := toggle(following, target)
	err := s.write(ctx, func(ctx context.Context) error {
		return s.users.UpdateFollowing(ctx, userID, next)
	})
	if err != nil {
		return nil, err
	}
	return next, nil
}

func (s *Service) checkUsernameFree(ctx context.Context, username, self string) error {
	var users []models.User
	err := s.read(ctx, func(ctx context.Context) error {
		var err error
		users, err = s.users.GetUsersByUsername(ctx, username)
		return err
	})
	if err != nil {
		return err
	}
	for _, u := range users {
		if u.UserID != self {
			return errUsernameTaken
		}
	}
	return nil
}

func (s *Service) reserveUsername(ctx context.Context, username, userID string) error {
	err := s.write(ctx, func(ctx context.Context) error {
		return s.users.ReserveUsername(ctx, username, userID)
	})
	if errors.Is(err, repositories.ErrUsernameReserved) {
		return errUsernameTaken
	}
	return err
}

func (s *Service) releaseUsername(username, userID string) {
	ctx, cancel := s.detached()
	defer cancel()
	if err := s.users.ReleaseUsername(ctx, username, userID); err != nil {
		logrus.WithError(err).WithField("username", username).Warn("failed to release username")
	}
}

// rollbackAccount deletes a credential whose profile could not be claimed
func (s *Service) rollbackAccount(userID string) {
	ctx, cancel := s.detached()
	defer cancel()
	if err := s.auth.DeleteAccount(ctx, userID); err != nil {
		logrus.WithError(err).WithField("userId", userID).Error("failed to roll back account")
	}
}

// detached returns a context for cleanup that must outlive the caller's context
func (s *Service) detached() (context.Context, context.CancelFunc) {
	if s.cfg.Retry.Timeout > 0 {
		return context.WithTimeout(context.Background(), s.cfg.Retry.Timeout)
	}
	return context.WithCancel(context.Background())
}
