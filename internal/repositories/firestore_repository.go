package repositories

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/anonto42/picshare/backend/internal/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// firestore caps "in" filters at 30 values
const maxInValues = 30

// FirestoreUserRepository implements UserRepository for Cloud Firestore
type FirestoreUserRepository struct {
	client *firestore.Client
}

// NewFirestoreUserRepository creates a new FirestoreUserRepository
func NewFirestoreUserRepository(client *firestore.Client) *FirestoreUserRepository {
	return &FirestoreUserRepository{client: client}
}

func (r *FirestoreUserRepository) users() *firestore.CollectionRef {
	return r.client.Collection(UsersCollection)
}

// GetUserByID retrieves users/{userID}
func (r *FirestoreUserRepository) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	snap, err := r.users().Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var user models.User
	if err := snap.DataTo(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user %s: %w", userID, err)
	}
	return &user, nil
}

// GetUsersByUsername queries profiles by username equality
func (r *FirestoreUserRepository) GetUsersByUsername(ctx context.Context, username string) ([]models.User, error) {
	docs, err := r.users().Where(FieldUsername, "==", username).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	users := make([]models.User, 0, len(docs))
	for _, doc := range docs {
		var u models.User
		if err := doc.DataTo(&u); err != nil {
			return nil, fmt.Errorf("failed to decode user %s: %w", doc.Ref.ID, err)
		}
		users = append(users, u)
	}
	return users, nil
}

// UpsertUser merges the supplied fields into users/{userID}, creating it if needed
func (r *FirestoreUserRepository) UpsertUser(ctx context.Context, userID string, update models.ProfileUpdate) error {
	ref := r.users().Doc(userID)
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}

		if snap == nil || !snap.Exists() {
			user := models.User{UserID: userID, Following: []string{}, ImageURL: update.ImageURL}
			if update.Name != nil {
				user.Name = *update.Name
			}
			if update.Username != nil {
				user.Username = *update.Username
			}
			if update.Bio != nil {
				user.Bio = *update.Bio
			}
			return tx.Create(ref, user)
		}

		var updates []firestore.Update
		if update.Name != nil {
			updates = append(updates, firestore.Update{Path: FieldName, Value: *update.Name})
		}
		if update.Username != nil {
			updates = append(updates, firestore.Update{Path: FieldUsername, Value: *update.Username})
		}
		if update.Bio != nil {
			updates = append(updates, firestore.Update{Path: FieldBio, Value: *update.Bio})
		}
		if update.ImageURL != nil {
			updates = append(updates, firestore.Update{Path: FieldImageURL, Value: *update.ImageURL})
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Update(ref, updates)
	})
}

// UpdateFollowing replaces the following set of users/{userID}
func (r *FirestoreUserRepository) UpdateFollowing(ctx context.Context, userID string, following []string) error {
	if following == nil {
		following = []string{}
	}
	_, err := r.users().Doc(userID).Update(ctx, []firestore.Update{{Path: FieldFollowing, Value: following}})
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	return err
}

// CountFollowers counts profiles whose following array contains userID
func (r *FirestoreUserRepository) CountFollowers(ctx context.Context, userID string) (int, error) {
	docs, err := r.users().Where(FieldFollowing, "array-contains", userID).Documents(ctx).GetAll()
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

// ReserveUsername creates usernames/{username}; creation fails if the document exists
func (r *FirestoreUserRepository) ReserveUsername(ctx context.Context, username, userID string) error {
	ref := r.client.Collection(UsernamesCollection).Doc(username)
	_, err := ref.Create(ctx, map[string]interface{}{FieldUserID: userID})
	if err == nil {
		return nil
	}
	if status.Code(err) != codes.AlreadyExists {
		return err
	}

	snap, err := ref.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to read username reservation: %w", err)
	}
	holder, _ := snap.Data()[FieldUserID].(string)
	if holder != userID {
		return ErrUsernameReserved
	}
	return nil
}

// ReleaseUsername deletes usernames/{username} if userID holds it
func (r *FirestoreUserRepository) ReleaseUsername(ctx context.Context, username, userID string) error {
	ref := r.client.Collection(UsernamesCollection).Doc(username)
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return nil
			}
			return err
		}
		if holder, _ := snap.Data()[FieldUserID].(string); holder != userID {
			return nil
		}
		return tx.Delete(ref)
	})
}

// FirestorePostRepository implements PostRepository for Cloud Firestore
type FirestorePostRepository struct {
	client *firestore.Client
}

// NewFirestorePostRepository creates a new FirestorePostRepository
func NewFirestorePostRepository(client *firestore.Client) *FirestorePostRepository {
	return &FirestorePostRepository{client: client}
}

func (r *FirestorePostRepository) posts() *firestore.CollectionRef {
	return r.client.Collection(PostsCollection)
}

// CreatePost writes posts/{postId} in one request
func (r *FirestorePostRepository) CreatePost(ctx context.Context, post *models.Post) error {
	_, err := r.posts().Doc(post.PostID).Create(ctx, post)
	return err
}

// GetPostByID retrieves posts/{postID}
func (r *FirestorePostRepository) GetPostByID(ctx context.Context, postID string) (*models.Post, error) {
	snap, err := r.posts().Doc(postID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var post models.Post
	if err := snap.DataTo(&post); err != nil {
		return nil, fmt.Errorf("failed to decode post %s: %w", postID, err)
	}
	return &post, nil
}

// GetPostsByUserID queries posts by owner
func (r *FirestorePostRepository) GetPostsByUserID(ctx context.Context, userID string) ([]models.Post, error) {
	return decodePosts(r.posts().Where(FieldUserID, "==", userID).Documents(ctx).GetAll())
}

// GetPostsByUserIDs queries posts owned by any of userIDs, in chunks of the "in" limit
func (r *FirestorePostRepository) GetPostsByUserIDs(ctx context.Context, userIDs []string) ([]models.Post, error) {
	posts := []models.Post{}
	for start := 0; start < len(userIDs); start += maxInValues {
		end := start + maxInValues
		if end > len(userIDs) {
			end = len(userIDs)
		}
		chunk, err := decodePosts(r.posts().Where(FieldUserID, "in", userIDs[start:end]).Documents(ctx).GetAll())
		if err != nil {
			return nil, err
		}
		posts = append(posts, chunk...)
	}
	return posts, nil
}

// GetPostsBySearchTerm queries posts whose searchTerms array contains term
func (r *FirestorePostRepository) GetPostsBySearchTerm(ctx context.Context, term string) ([]models.Post, error) {
	return decodePosts(r.posts().Where(FieldSearchTerms, "array-contains", term).Documents(ctx).GetAll())
}

// GetPostsSince queries posts with time greater than since
func (r *FirestorePostRepository) GetPostsSince(ctx context.Context, since int64) ([]models.Post, error) {
	return decodePosts(r.posts().Where(FieldTime, ">", since).Documents(ctx).GetAll())
}

// UpdateLikes replaces the like set of posts/{postID}
func (r *FirestorePostRepository) UpdateLikes(ctx context.Context, postID string, likes []string) error {
	if likes == nil {
		likes = []string{}
	}
	_, err := r.posts().Doc(postID).Update(ctx, []firestore.Update{{Path: FieldLikes, Value: likes}})
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	return err
}

// UpdateUserImage sets userImage on every listed post in one transaction, so
// either all posts carry the new image or none does.
func (r *FirestorePostRepository) UpdateUserImage(ctx context.Context, postIDs []string, imageURL *string) error {
	if len(postIDs) == 0 {
		return nil
	}
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		for _, id := range postIDs {
			err := tx.Update(r.posts().Doc(id), []firestore.Update{{Path: FieldUserImage, Value: imageURL}})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func decodePosts(docs []*firestore.DocumentSnapshot, err error) ([]models.Post, error) {
	if err != nil {
		return nil, err
	}
	posts := make([]models.Post, 0, len(docs))
	for _, doc := range docs {
		var p models.Post
		if err := doc.DataTo(&p); err != nil {
			return nil, fmt.Errorf("failed to decode post %s: %w", doc.Ref.ID, err)
		}
		posts = append(posts, p)
	}
	return posts, nil
}

// FirestoreCommentRepository implements CommentRepository for Cloud Firestore
type FirestoreCommentRepository struct {
	client *firestore.Client
}

// NewFirestoreCommentRepository creates a new FirestoreCommentRepository
func NewFirestoreCommentRepository(client *firestore.Client) *FirestoreCommentRepository {
	return &FirestoreCommentRepository{client: client}
}

// CreateComment writes comments/{commentId}
func (r *FirestoreCommentRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	_, err := r.client.Collection(CommentsCollection).Doc(comment.CommentID).Set(ctx, comment)
	return err
}

// GetCommentsByPostID queries comments by post
func (r *FirestoreCommentRepository) GetCommentsByPostID(ctx context.Context, postID string) ([]models.Comment, error) {
	docs, err := r.client.Collection(CommentsCollection).Where(FieldPostID, "==", postID).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	comments := make([]models.Comment, 0, len(docs))
	for _, doc := range docs {
		var c models.Comment
		if err := doc.DataTo(&c); err != nil {
			return nil, fmt.Errorf("failed to decode comment %s: %w", doc.Ref.ID, err)
		}
		comments = append(comments, c)
	}
	return comments, nil
}

var (
	_ UserRepository    = (*FirestoreUserRepository)(nil)
	_ PostRepository    = (*FirestorePostRepository)(nil)
	_ CommentRepository = (*FirestoreCommentRepository)(nil)
	_ UserRepository    = (*MongoUserRepository)(nil)
	_ PostRepository    = (*MongoPostRepository)(nil)
	_ CommentRepository = (*MongoCommentRepository)(nil)
)
