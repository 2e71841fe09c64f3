package repositories

import (
	"context"
	"errors"

	"github.com/anonto42/picshare/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PostRepository defines the interface for post document operations.
// Query results carry no ordering guarantee.
type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPostByID(ctx context.Context, postID string) (*models.Post, error)
	GetPostsByUserID(ctx context.Context, userID string) ([]models.Post, error)
	GetPostsByUserIDs(ctx context.Context, userIDs []string) ([]models.Post, error)
	GetPostsBySearchTerm(ctx context.Context, term string) ([]models.Post, error)
	// GetPostsSince returns posts with time strictly greater than since (epoch millis)
	GetPostsSince(ctx context.Context, since int64) ([]models.Post, error)
	UpdateLikes(ctx context.Context, postID string, likes []string) error
	// UpdateUserImage sets userImage on every listed post, all or nothing
	UpdateUserImage(ctx context.Context, postIDs []string, imageURL *string) error
}

// MongoPostRepository implements PostRepository for MongoDB
type MongoPostRepository struct {
	collection *mongo.Collection
}

// NewMongoPostRepository creates a new MongoPostRepository
func NewMongoPostRepository(db *mongo.Database) *MongoPostRepository {
	return &MongoPostRepository{collection: db.Collection(PostsCollection)}
}

// EnsureIndexes creates the lookup indexes used by the queries below
func (r *MongoPostRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: FieldPostID, Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: FieldUserID, Value: 1}}},
		{Keys: bson.D{{Key: FieldSearchTerms, Value: 1}}},
		{Keys: bson.D{{Key: FieldTime, Value: -1}}},
	})
	return err
}

// CreatePost inserts a fully populated post
func (r *MongoPostRepository) CreatePost(ctx context.Context, post *models.Post) error {
	_, err := r.collection.InsertOne(ctx, post)
	return err
}

// GetPostByID retrieves a post by ID
func (r *MongoPostRepository) GetPostByID(ctx context.Context, postID string) (*models.Post, error) {
	var post models.Post
	err := r.collection.FindOne(ctx, bson.M{FieldPostID: postID}).Decode(&post)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &post, nil
}

// GetPostsByUserID retrieves posts owned by userID
func (r *MongoPostRepository) GetPostsByUserID(ctx context.Context, userID string) ([]models.Post, error) {
	return r.find(ctx, bson.M{FieldUserID: userID})
}

// GetPostsByUserIDs retrieves posts owned by any of userIDs
func (r *MongoPostRepository) GetPostsByUserIDs(ctx context.Context, userIDs []string) ([]models.Post, error) {
	if len(userIDs) == 0 {
		return []models.Post{}, nil
	}
	return r.find(ctx, bson.M{FieldUserID: bson.M{"$in": userIDs}})
}

// GetPostsBySearchTerm retrieves posts whose searchTerms contain term
func (r *MongoPostRepository) GetPostsBySearchTerm(ctx context.Context, term string) ([]models.Post, error) {
	return r.find(ctx, bson.M{FieldSearchTerms: term})
}

// GetPostsSince retrieves posts newer than since
func (r *MongoPostRepository) GetPostsSince(ctx context.Context, since int64) ([]models.Post, error) {
	return r.find(ctx, bson.M{FieldTime: bson.M{"$gt": since}})
}

func (r *MongoPostRepository) find(ctx context.Context, filter bson.M) ([]models.Post, error) {
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	posts := []models.Post{}
	if err = cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// UpdateLikes replaces the like set of a post
func (r *MongoPostRepository) UpdateLikes(ctx context.Context, postID string, likes []string) error {
	if likes == nil {
		likes = []string{}
	}
	res, err := r.collection.UpdateOne(ctx,
		bson.M{FieldPostID: postID},
		bson.M{"$set": bson.M{FieldLikes: likes}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateUserImage rewrites the denormalized owner image inside one transaction.
// Transactions need a replica set deployment.
func (r *MongoPostRepository) UpdateUserImage(ctx context.Context, postIDs []string, imageURL *string) error {
	if len(postIDs) == 0 {
		return nil
	}

	writes := make([]mongo.WriteModel, 0, len(postIDs))
	for _, id := range postIDs {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{FieldPostID: id}).
			SetUpdate(bson.M{"$set": bson.M{FieldUserImage: imageURL}}))
	}

	sess, err := r.collection.Database().Client().StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return r.collection.BulkWrite(sc, writes)
	})
	return err
}
