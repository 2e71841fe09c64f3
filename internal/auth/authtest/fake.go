// Package authtest provides an in-process Authenticator for tests.
package authtest

import (
	"context"
	"sync"

	"github.com/anonto42/picshare/backend/internal/auth"
	"github.com/google/uuid"
)

type account struct {
	userID   string
	password string
}

// Fake keeps accounts and session tokens in memory
type Fake struct {
	// BeforeCreate, when set, runs at the start of every CreateAccount call
	BeforeCreate func()

	mu       sync.Mutex
	accounts map[string]account // by email
	tokens   map[string]string  // token -> user ID
}

// NewFake creates an empty Fake
func NewFake() *Fake {
	return &Fake{
		accounts: make(map[string]account),
		tokens:   make(map[string]string),
	}
}

func (f *Fake) issue(userID, email string) *auth.Identity {
	token := uuid.NewString()
	f.tokens[token] = userID
	return &auth.Identity{UserID: userID, Email: email, Token: token}
}

// CreateAccount registers email/password and signs the account in
func (f *Fake) CreateAccount(_ context.Context, email, password string) (*auth.Identity, error) {
	if f.BeforeCreate != nil {
		f.BeforeCreate()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[email]; ok {
		return nil, auth.ErrEmailExists
	}
	acc := account{userID: uuid.NewString(), password: password}
	f.accounts[email] = acc
	return f.issue(acc.userID, email), nil
}

// SignIn checks the password and issues a new token
func (f *Fake) SignIn(_ context.Context, email, password string) (*auth.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	acc, ok := f.accounts[email]
	if !ok || acc.password != password {
		return nil, auth.ErrInvalidCredentials
	}
	return f.issue(acc.userID, email), nil
}

// SignOut drops every token of userID
func (f *Fake) SignOut(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for token, id := range f.tokens {
		if id == userID {
			delete(f.tokens, token)
		}
	}
	return nil
}

// DeleteAccount removes the account of userID and its tokens
func (f *Fake) DeleteAccount(ctx context.Context, userID string) error {
	f.mu.Lock()
	for email, acc := range f.accounts {
		if acc.userID == userID {
			delete(f.accounts, email)
		}
	}
	f.mu.Unlock()
	return f.SignOut(ctx, userID)
}

// Verify resolves a token issued by this Fake
func (f *Fake) Verify(_ context.Context, token string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	userID, ok := f.tokens[token]
	if !ok {
		return "", auth.ErrInvalidToken
	}
	return userID, nil
}

// Accounts returns the number of registered accounts
func (f *Fake) Accounts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.accounts)
}

var _ auth.Authenticator = (*Fake)(nil)
