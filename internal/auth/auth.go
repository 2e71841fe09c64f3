// Package auth contains the authentication collaborators: account creation,
// password sign-in, sign-out and session token verification.
package auth

import (
	"context"
	"errors"
)

var (
	// ErrInvalidCredentials is returned when email and password do not match an account
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailExists is returned when an account already uses the email
	ErrEmailExists = errors.New("email already in use")
	// ErrInvalidToken is returned for malformed, expired or revoked session tokens
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Identity is a signed-in account
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Token  string `json:"token"`
}

// Authenticator is implemented by every authentication backend
type Authenticator interface {
	// CreateAccount registers email/password and signs the new account in
	CreateAccount(ctx context.Context, email, password string) (*Identity, error)
	SignIn(ctx context.Context, email, password string) (*Identity, error)
	// SignOut invalidates every session token issued to userID
	SignOut(ctx context.Context, userID string) error
	DeleteAccount(ctx context.Context, userID string) error
	// Verify resolves a session token to its user ID
	Verify(ctx context.Context, token string) (string, error)
}
