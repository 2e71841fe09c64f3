package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/anonto42/picshare/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserRepository defines the interface for profile document operations
type UserRepository interface {
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	GetUsersByUsername(ctx context.Context, username string) ([]models.User, error)
	// UpsertUser creates users/{userID} if absent, otherwise merges the non-nil fields of update
	UpsertUser(ctx context.Context, userID string, update models.ProfileUpdate) error
	UpdateFollowing(ctx context.Context, userID string, following []string) error
	// CountFollowers counts the profiles whose following set contains userID
	CountFollowers(ctx context.Context, userID string) (int, error)
	// ReserveUsername atomically claims username for userID
	ReserveUsername(ctx context.Context, username, userID string) error
	ReleaseUsername(ctx context.Context, username, userID string) error
}

// MongoUserRepository implements UserRepository for MongoDB
type MongoUserRepository struct {
	collection *mongo.Collection
	usernames  *mongo.Collection
}

// NewMongoUserRepository creates a new MongoUserRepository
func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{
		collection: db.Collection(UsersCollection),
		usernames:  db.Collection(UsernamesCollection),
	}
}

// EnsureIndexes creates the lookup indexes used by the queries below
func (r *MongoUserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: FieldUserID, Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: FieldUsername, Value: 1}}},
		{Keys: bson.D{{Key: FieldFollowing, Value: 1}}},
	})
	return err
}

// GetUserByID retrieves a profile by user ID
func (r *MongoUserRepository) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{FieldUserID: userID}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUsersByUsername retrieves every profile with the given username
func (r *MongoUserRepository) GetUsersByUsername(ctx context.Context, username string) ([]models.User, error) {
	cursor, err := r.collection.Find(ctx, bson.M{FieldUsername: username})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err = cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// UpsertUser creates or merges a profile
func (r *MongoUserRepository) UpsertUser(ctx context.Context, userID string, update models.ProfileUpdate) error {
	set := bson.M{FieldUserID: userID}
	if update.Name != nil {
		set[FieldName] = *update.Name
	}
	if update.Username != nil {
		set[FieldUsername] = *update.Username
	}
	if update.Bio != nil {
		set[FieldBio] = *update.Bio
	}
	if update.ImageURL != nil {
		set[FieldImageURL] = *update.ImageURL
	}

	_, err := r.collection.UpdateOne(ctx,
		bson.M{FieldUserID: userID},
		bson.M{
			"$set":         set,
			"$setOnInsert": bson.M{FieldFollowing: []string{}},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

// UpdateFollowing replaces the following set of a profile
func (r *MongoUserRepository) UpdateFollowing(ctx context.Context, userID string, following []string) error {
	if following == nil {
		following = []string{}
	}
	res, err := r.collection.UpdateOne(ctx,
		bson.M{FieldUserID: userID},
		bson.M{"$set": bson.M{FieldFollowing: following}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// CountFollowers counts profiles following userID
func (r *MongoUserRepository) CountFollowers(ctx context.Context, userID string) (int, error) {
	// equality on an array field matches documents whose array contains the value
	n, err := r.collection.CountDocuments(ctx, bson.M{FieldFollowing: userID})
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// ReserveUsername claims username in the usernames collection keyed by the username itself
func (r *MongoUserRepository) ReserveUsername(ctx context.Context, username, userID string) error {
	_, err := r.usernames.InsertOne(ctx, bson.M{"_id": username, FieldUserID: userID})
	if err == nil {
		return nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return err
	}

	var holder struct {
		UserID string `bson:"userId"`
	}
	if err := r.usernames.FindOne(ctx, bson.M{"_id": username}).Decode(&holder); err != nil {
		return fmt.Errorf("failed to read username reservation: %w", err)
	}
	if holder.UserID != userID {
		return ErrUsernameReserved
	}
	return nil
}

// ReleaseUsername drops the reservation if userID holds it
func (r *MongoUserRepository) ReleaseUsername(ctx context.Context, username, userID string) error {
	_, err := r.usernames.DeleteOne(ctx, bson.M{"_id": username, FieldUserID: userID})
	return err
}
