package service

import (
	"context"
	"strings"

	"github.com/anonto42/picshare/backend/internal/apperr"
	"github.com/anonto42/picshare/backend/internal/models"
	"github.com/google/uuid"
)

var errNoUsername = apperr.New(apperr.CodeValidation, "Username unavailable")

// CreateComment writes a comment on postID signed with username
func (s *Service) CreateComment(ctx context.Context, username, postID, text string) (*models.Comment, error) {
	if username == "" {
		return nil, errNoUsername
	}
	if postID == "" || strings.TrimSpace(text) == "" {
		return nil, errFillAllFields
	}

	comment := &models.Comment{
		CommentID: uuid.NewString(),
		PostID:    postID,
		Username:  username,
		Text:      text,
		Timestamp: s.nowMillis(),
	}
	err := s.write(ctx, func(ctx context.Context) error {
		return s.comments.CreateComment(ctx, comment)
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// ListComments returns the comments of postID, newest first
func (s *Service) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.read(ctx, func(ctx context.Context) error {
		var err error
		comments, err = s.comments.GetCommentsByPostID(ctx, postID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return sortComments(comments), nil
}
