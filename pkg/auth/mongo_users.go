package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoUserStore implements UserStore on a MongoDB collection. Unique
// indexes on email and username turn races into ErrEmailTaken or
// ErrUsernameTaken instead of duplicate accounts.
type MongoUserStore struct {
	coll *mongo.Collection
}

// NewMongoUserStore creates a store backed by the named collection of db.
func NewMongoUserStore(db *mongo.Database, collection string) (*MongoUserStore, error) {
	if db == nil {
		return nil, ErrUsersRequired
	}
	if collection == "" {
		collection = "users"
	}
	return &MongoUserStore{coll: db.Collection(collection)}, nil
}

// EnsureIndexes creates the unique email and username indexes.
func (ms *MongoUserStore) EnsureIndexes(ctx context.Context) error {
	_, err := ms.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_email"),
		},
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_username"),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}
	return nil
}

func (ms *MongoUserStore) Create(ctx context.Context, user *User) error {
	if _, err := ms.coll.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return duplicateErr(err)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (ms *MongoUserStore) ByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return ms.findOne(ctx, bson.M{"_id": id})
}

func (ms *MongoUserStore) ByEmail(ctx context.Context, email string) (*User, error) {
	return ms.findOne(ctx, bson.M{"email": email})
}

func (ms *MongoUserStore) ByUsername(ctx context.Context, username string) (*User, error) {
	return ms.findOne(ctx, bson.M{"username": username})
}

func (ms *MongoUserStore) Update(ctx context.Context, user *User) error {
	res, err := ms.coll.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return duplicateErr(err)
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (ms *MongoUserStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := ms.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (ms *MongoUserStore) findOne(ctx context.Context, filter bson.M) (*User, error) {
	var user User
	if err := ms.coll.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

// duplicateErr maps a duplicate-key error onto the violated field by the
// index name embedded in the server message.
func duplicateErr(err error) error {
	if strings.Contains(err.Error(), "uniq_username") {
		return ErrUsernameTaken
	}
	return ErrEmailTaken
}
