package service

import (
	"context"
	"errors"

	"github.com/anonto42/picshare/backend/internal/apperr"
	"github.com/anonto42/picshare/backend/internal/models"
	"github.com/anonto42/picshare/backend/internal/repositories"
	"github.com/anonto42/picshare/backend/internal/search"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CreatePost writes a new post owned by userID. The author's username and
// image are copied from profile, which may be nil.
func (s *Service) CreatePost(ctx context.Context, userID string, profile *models.User, imageURL, description string) (*models.Post, error) {
	if userID == "" {
		return nil, errNoSession
	}

	post := &models.Post{
		PostID:          uuid.NewString(),
		UserID:          userID,
		PostImage:       imageURL,
		PostDescription: description,
		Time:            s.nowMillis(),
		Likes:           []string{},
		SearchTerms:     search.Terms(description),
	}
	if profile != nil {
		post.Username = profile.Username
		if profile.ImageURL != nil {
			img := *profile.ImageURL
			post.UserImage = &img
		}
	}

	err := s.write(ctx, func(ctx context.Context) error {
		return s.posts.CreatePost(ctx, post)
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

// GetPost fetches a single post
func (s *Service) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	var post *models.Post
	err := s.read(ctx, func(ctx context.Context) error {
		var err error
		post, err = s.posts.GetPostByID(ctx, postID)
		return err
	})
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.Wrap(apperr.CodeNotFound, "", err)
		}
		return nil, err
	}
	return post, nil
}

// ListUserPosts returns the posts of userID, newest first
func (s *Service) ListUserPosts(ctx context.Context, userID string) ([]models.Post, error) {
	if userID == "" {
		return nil, errNoSession
	}
	return s.queryPosts(ctx, func(ctx context.Context) ([]models.Post, error) {
		return s.posts.GetPostsByUserID(ctx, userID)
	})
}

// SearchPosts returns the posts whose search terms contain the normalized
// term. A blank term is a no-op returning nil.
func (s *Service) SearchPosts(ctx context.Context, term string) ([]models.Post, error) {
	term = search.Normalize(term)
	if term == "" {
		return nil, nil
	}
	return s.queryPosts(ctx, func(ctx context.Context) ([]models.Post, error) {
		return s.posts.GetPostsBySearchTerm(ctx, term)
	})
}

// PersonalizedFeed returns the posts of the followed users, falling back to
// the general feed when nothing is followed or the followed users have no posts.
func (s *Service) PersonalizedFeed(ctx context.Context, following []string) ([]models.Post, error) {
	if len(following) > 0 {
		posts, err := s.queryPosts(ctx, func(ctx context.Context) ([]models.Post, error) {
			return s.posts.GetPostsByUserIDs(ctx, following)
		})
		if err != nil {
			return nil, err
		}
		if len(posts) > 0 {
			return posts, nil
		}
	}
	return s.GeneralFeed(ctx)
}

// GeneralFeed returns every post created within the feed window, newest first
func (s *Service) GeneralFeed(ctx context.Context) ([]models.Post, error) {
	since := s.cfg.Now().Add(-s.cfg.FeedWindow).UnixMilli()
	return s.queryPosts(ctx, func(ctx context.Context) ([]models.Post, error) {
		return s.posts.GetPostsSince(ctx, since)
	})
}

// PropagateUserImage rewrites the userImage snapshot on every post of userID
// in one batch and returns the number of posts updated. Zero posts issues no write.
func (s *Service) PropagateUserImage(ctx context.Context, userID string, imageURL *string) (int, error) {
	if userID == "" {
		return 0, errNoSession
	}

	posts, err := s.queryPosts(ctx, func(ctx context.Context) ([]models.Post, error) {
		return s.posts.GetPostsByUserID(ctx, userID)
	})
	if err != nil {
		return 0, err
	}
	if len(posts) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.PostID)
	}
	err = s.write(ctx, func(ctx context.Context) error {
		return s.posts.UpdateUserImage(ctx, ids, imageURL)
	})
	if err != nil {
		return 0, err
	}

	logrus.WithFields(logrus.Fields{"userId": userID, "posts": len(ids)}).Debug("user image propagated")
	return len(ids), nil
}

// ToggleLike removes userID from the like set of post if present, otherwise
// adds it, and persists the full replacement set. post is not modified.
func (s *Service) ToggleLike(ctx context.Context, userID string, post *models.Post) ([]string, error) {
	if userID == "" {
		return nil, errNoSession
	}
	if post == nil || post.PostID == "" {
		return nil, apperr.New(apperr.CodeValidation, "Post ID is required")
	}

	next := toggle(post.Likes, userID)
	err := s.write(ctx, func(ctx context.Context) error {
		return s.posts.UpdateLikes(ctx, post.PostID, next)
	})
	if err != nil {
		return nil, err
	}
	return next, nil
}

func (s *Service) queryPosts(ctx context.Context, query func(ctx context.Context) ([]models.Post, error)) ([]models.Post, error) {
	var posts []models.Post
	err := s.read(ctx, func(ctx context.Context) error {
		var err error
		posts, err = query(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return sortPosts(posts), nil
}
