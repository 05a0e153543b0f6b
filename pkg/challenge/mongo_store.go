package challenge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoStore implements Store on a MongoDB collection so challenges survive
// restarts and are shared across instances. Conditional updates keyed on the
// stored secret give the same winner-takes-all consume semantics as the
// in-memory store.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore creates a store backed by the named collection of db.
func NewMongoStore(db *mongo.Database, collection string) (*MongoStore, error) {
	if db == nil {
		return nil, ErrStoreRequired
	}
	if collection == "" {
		collection = "otp_challenges"
	}
	return &MongoStore{coll: db.Collection(collection)}, nil
}

// EnsureIndexes creates the unique (subject, purpose) index that enforces a
// single live challenge per flow, and a TTL index that garbage-collects
// abandoned challenges an hour after creation. The service enforces the real
// per-purpose expiry; the TTL index is only a backstop against growth.
func (ms *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := ms.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "subject", Value: 1}, {Key: "purpose", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(time.Hour / time.Second)),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create challenge indexes: %w", err)
	}
	return nil
}

func (ms *MongoStore) Put(ctx context.Context, ch Challenge) error {
	filter := bson.M{"subject": ch.Subject, "purpose": ch.Purpose}
	update := bson.M{"$set": ch}

	if _, err := ms.coll.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true)); err != nil {
		return fmt.Errorf("failed to store challenge: %w", err)
	}
	return nil
}

func (ms *MongoStore) Get(ctx context.Context, subject string, purpose Purpose) (*Challenge, error) {
	var ch Challenge
	err := ms.coll.FindOne(ctx, bson.M{"subject": subject, "purpose": purpose}).Decode(&ch)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrChallengeNotFound
		}
		return nil, fmt.Errorf("failed to load challenge: %w", err)
	}
	return &ch, nil
}

func (ms *MongoStore) MarkVerified(ctx context.Context, subject string, purpose Purpose, secret string, at time.Time) error {
	filter := bson.M{"subject": subject, "purpose": purpose, "secret": secret}
	update := bson.M{"$set": bson.M{"verified_at": at}}

	res, err := ms.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to mark challenge verified: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrChallengeNotFound
	}
	return nil
}

func (ms *MongoStore) DeleteIfSecret(ctx context.Context, subject string, purpose Purpose, secret string) error {
	res, err := ms.coll.DeleteOne(ctx, bson.M{"subject": subject, "purpose": purpose, "secret": secret})
	if err != nil {
		return fmt.Errorf("failed to consume challenge: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrChallengeNotFound
	}
	return nil
}

func (ms *MongoStore) Delete(ctx context.Context, subject string, purpose Purpose) error {
	res, err := ms.coll.DeleteOne(ctx, bson.M{"subject": subject, "purpose": purpose})
	if err != nil {
		return fmt.Errorf("failed to delete challenge: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrChallengeNotFound
	}
	return nil
}
