// Package repositories contains the document-store gateways for users, posts and comments.
package repositories

import "errors"

// Collection names and field paths shared by every backend.
const (
	UsersCollection     = "users"
	PostsCollection     = "posts"
	CommentsCollection  = "comments"
	UsernamesCollection = "usernames"

	FieldUserID      = "userId"
	FieldName        = "name"
	FieldUsername    = "username"
	FieldBio         = "bio"
	FieldImageURL    = "imageUrl"
	FieldFollowing   = "following"
	FieldPostID      = "postId"
	FieldUserImage   = "userImage"
	FieldTime        = "time"
	FieldLikes       = "likes"
	FieldSearchTerms = "searchTerms"
	FieldTimestamp   = "timestamp"
)

var (
	// ErrNotFound is returned when a keyed document does not exist
	ErrNotFound = errors.New("not found")
	// ErrUsernameReserved is returned when another user holds the username
	ErrUsernameReserved = errors.New("username already reserved")
)
