package models

import "github.com/golang-jwt/jwt/v4"

// User is the profile document stored at users/{userId}
type User struct {
	UserID    string   `json:"userId" firestore:"userId" bson:"userId"`
	Name      string   `json:"name" firestore:"name" bson:"name"`
	Username  string   `json:"username" firestore:"username" bson:"username"`
	Bio       string   `json:"bio" firestore:"bio" bson:"bio"`
	ImageURL  *string  `json:"imageUrl" firestore:"imageUrl" bson:"imageUrl"`
	Following []string `json:"following" firestore:"following" bson:"following"`
}

// ProfileUpdate carries the profile fields to merge into users/{userId}.
// Nil fields are left untouched.
type ProfileUpdate struct {
	Name     *string
	Username *string
	Bio      *string
	ImageURL *string
}

// Empty reports whether the update would not change anything
func (u ProfileUpdate) Empty() bool {
	return u.Name == nil && u.Username == nil && u.Bio == nil && u.ImageURL == nil
}

// SignUpRequest defines the request body for creating an account
type SignUpRequest struct {
	Username string `json:"username" validate:"required,max=30"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LogInRequest defines the request body for signing in
type LogInRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileRequest defines the request body for editing the own profile
type UpdateProfileRequest struct {
	Name     string `json:"name" validate:"max=50"`
	Username string `json:"username" validate:"required,max=30"`
	Bio      string `json:"bio" validate:"max=500"`
}

// JwtCustomClaims are the claims of a locally issued session token
type JwtCustomClaims struct {
	UserID         string `json:"user_id"`
	Email          string `json:"email"`
	SessionVersion int    `json:"session_version"`
	jwt.RegisteredClaims
}
