package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	firebaseauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/identitytoolkit/v3"
)

// Firebase authenticates against Firebase Authentication. Account management
// goes through the Admin SDK; password sign-in goes through the Identity
// Toolkit API, which the Admin SDK does not expose.
type Firebase struct {
	client  *firebaseauth.Client
	toolkit *identitytoolkit.Service
}

// NewFirebase creates a Firebase authenticator
func NewFirebase(client *firebaseauth.Client, toolkit *identitytoolkit.Service) *Firebase {
	return &Firebase{client: client, toolkit: toolkit}
}

// CreateAccount creates the Firebase user and signs it in to obtain an ID token
func (f *Firebase) CreateAccount(ctx context.Context, email, password string) (*Identity, error) {
	params := (&firebaseauth.UserToCreate{}).Email(email).Password(password)
	if _, err := f.client.CreateUser(ctx, params); err != nil {
		if firebaseauth.IsEmailAlreadyExists(err) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("failed to create firebase user: %w", err)
	}
	return f.SignIn(ctx, email, password)
}

// SignIn verifies email/password and returns the ID token
func (f *Firebase) SignIn(ctx context.Context, email, password string) (*Identity, error) {
	resp, err := f.toolkit.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusBadRequest {
			return nil, fmt.Errorf("%w: %s", ErrInvalidCredentials, gerr.Message)
		}
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	return &Identity{UserID: resp.LocalId, Email: resp.Email, Token: resp.IdToken}, nil
}

// SignOut revokes the refresh tokens of userID
func (f *Firebase) SignOut(ctx context.Context, userID string) error {
	if err := f.client.RevokeRefreshTokens(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke tokens: %w", err)
	}
	return nil
}

// DeleteAccount removes the Firebase user
func (f *Firebase) DeleteAccount(ctx context.Context, userID string) error {
	if err := f.client.DeleteUser(ctx, userID); err != nil && !firebaseauth.IsUserNotFound(err) {
		return fmt.Errorf("failed to delete firebase user: %w", err)
	}
	return nil
}

// Verify checks a Firebase ID token, including revocation
func (f *Firebase) Verify(ctx context.Context, token string) (string, error) {
	t, err := f.client.VerifyIDTokenAndCheckRevoked(ctx, token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return t.UID, nil
}
