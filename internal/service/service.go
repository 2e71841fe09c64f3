// Package service implements the social operations over the document store,
// authentication and blob storage collaborators. It keeps no session state.
package service

import (
	"context"
	"io"
	"sort"
	"time"

	"github.com/anonto42/picshare/backend/internal/apperr"
	"github.com/anonto42/picshare/backend/internal/auth"
	"github.com/anonto42/picshare/backend/internal/models"
	"github.com/anonto42/picshare/backend/internal/repositories"
	"github.com/anonto42/picshare/backend/internal/retry"
	"github.com/anonto42/picshare/backend/internal/storage"
	"github.com/go-playground/validator/v10"
)

// DefaultFeedWindow is how far back the general feed reaches
const DefaultFeedWindow = 24 * time.Hour

// Dependencies are the backend collaborators of the service
type Dependencies struct {
	Users    repositories.UserRepository
	Posts    repositories.PostRepository
	Comments repositories.CommentRepository
	Auth     auth.Authenticator
	Blobs    storage.Uploader
}

// Config tunes the service
type Config struct {
	// Retry applies to reads; writes get a single attempt bounded by Retry.Timeout
	Retry retry.Policy
	// FeedWindow defaults to DefaultFeedWindow
	FeedWindow time.Duration
	// UsernameGuard reserves usernames atomically on top of the pre-check query
	UsernameGuard bool
	// Now defaults to time.Now
	Now func() time.Time
}

// Service implements the account, post, feed and engagement operations
type Service struct {
	users    repositories.UserRepository
	posts    repositories.PostRepository
	comments repositories.CommentRepository
	auth     auth.Authenticator
	blobs    storage.Uploader

	validate *validator.Validate
	cfg      Config
}

// New creates a Service
func New(deps Dependencies, cfg Config) *Service {
	if cfg.FeedWindow <= 0 {
		cfg.FeedWindow = DefaultFeedWindow
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		users:    deps.Users,
		posts:    deps.Posts,
		comments: deps.Comments,
		auth:     deps.Auth,
		blobs:    deps.Blobs,
		validate: validator.New(),
		cfg:      cfg,
	}
}

func (s *Service) nowMillis() int64 {
	return s.cfg.Now().UnixMilli()
}

// read runs an idempotent backend request under the retry policy
func (s *Service) read(ctx context.Context, op func(ctx context.Context) error) error {
	return apperr.Backend(s.cfg.Retry.Do(ctx, op))
}

// write runs a backend mutation once, bounded by the policy timeout
func (s *Service) write(ctx context.Context, op func(ctx context.Context) error) error {
	return apperr.Backend(retry.Policy{Timeout: s.cfg.Retry.Timeout}.Do(ctx, op))
}

// UploadImage stores an image and returns its public URL
func (s *Service) UploadImage(ctx context.Context, r io.Reader, contentType string) (string, error) {
	var url string
	err := s.write(ctx, func(ctx context.Context) error {
		var err error
		url, err = s.blobs.Upload(ctx, r, contentType)
		return err
	})
	return url, err
}

// sortPosts orders posts newest first, keeping the backend order for equal times
func sortPosts(posts []models.Post) []models.Post {
	if posts == nil {
		posts = []models.Post{}
	}
	sort.SliceStable(posts, func(i, j int) bool { return posts[i].Time > posts[j].Time })
	return posts
}

func sortComments(comments []models.Comment) []models.Comment {
	if comments == nil {
		comments = []models.Comment{}
	}
	sort.SliceStable(comments, func(i, j int) bool { return comments[i].Timestamp > comments[j].Timestamp })
	return comments
}

// toggle removes v from set if present, otherwise appends it. set is not modified.
func toggle(set []string, v string) []string {
	out := make([]string, 0, len(set)+1)
	found := false
	for _, s := range set {
		if s == v {
			found = true
			continue
		}
		out = append(out, s)
	}
	if !found {
		out = append(out, v)
	}
	return out
}
