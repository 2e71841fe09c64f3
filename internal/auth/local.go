package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anonto42/picshare/backend/internal/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Credential is an email/password account stored in PostgreSQL
type Credential struct {
	ID             uint      `gorm:"primaryKey"`
	UserID         string    `gorm:"uniqueIndex;size:64"`
	Email          string    `gorm:"uniqueIndex"`
	PasswordHash   string    `gorm:"not null"`
	SessionVersion int       `gorm:"not null;default:0"`
	CreatedAt      time.Time
}

// Local authenticates against credentials kept in PostgreSQL and issues HS256 tokens
type Local struct {
	db     *gorm.DB
	secret []byte
	ttl    time.Duration
}

// NewLocal creates a Local authenticator
func NewLocal(db *gorm.DB, secret string, ttl time.Duration) *Local {
	return &Local{db: db, secret: []byte(secret), ttl: ttl}
}

// Migrate creates the credentials table
func (l *Local) Migrate() error {
	return l.db.AutoMigrate(&Credential{})
}

// CreateAccount stores a bcrypt hash of password under a fresh user ID
func (l *Local) CreateAccount(ctx context.Context, email, password string) (*Identity, error) {
	var count int64
	if err := l.db.WithContext(ctx).Model(&Credential{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	cred := &Credential{UserID: uuid.NewString(), Email: email, PasswordHash: string(hash)}
	if err := l.db.WithContext(ctx).Create(cred).Error; err != nil {
		return nil, err
	}
	return l.issue(cred)
}

// SignIn checks password against the stored hash
func (l *Local) SignIn(ctx context.Context, email, password string) (*Identity, error) {
	var cred Credential
	if err := l.db.WithContext(ctx).Where("email = ?", email).First(&cred).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return l.issue(&cred)
}

// SignOut bumps the session version, invalidating every token issued so far
func (l *Local) SignOut(ctx context.Context, userID string) error {
	return l.db.WithContext(ctx).Model(&Credential{}).
		Where("user_id = ?", userID).
		UpdateColumn("session_version", gorm.Expr("session_version + 1")).Error
}

// DeleteAccount removes the credential of userID
func (l *Local) DeleteAccount(ctx context.Context, userID string) error {
	return l.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&Credential{}).Error
}

// Verify parses token and checks it against the current session version
func (l *Local) Verify(ctx context.Context, token string) (string, error) {
	claims, err := ParseToken(token, l.secret)
	if err != nil {
		return "", err
	}

	var cred Credential
	if err := l.db.WithContext(ctx).Where("user_id = ?", claims.UserID).First(&cred).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrInvalidToken
		}
		return "", err
	}
	if cred.SessionVersion != claims.SessionVersion {
		return "", ErrInvalidToken
	}
	return claims.UserID, nil
}

func (l *Local) issue(cred *Credential) (*Identity, error) {
	token, err := GenerateToken(cred.UserID, cred.Email, cred.SessionVersion, l.secret, l.ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &Identity{UserID: cred.UserID, Email: cred.Email, Token: token}, nil
}

// GenerateToken signs a session token for userID
func GenerateToken(userID, email string, version int, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &models.JwtCustomClaims{
		UserID:         userID,
		Email:          email,
		SessionVersion: version,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseToken validates signature and expiry of a session token
func ParseToken(token string, secret []byte) (*models.JwtCustomClaims, error) {
	claims := &models.JwtCustomClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
