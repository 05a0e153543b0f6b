package chatlock

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// lockDoc is the persisted shape of a lock record, one document per
// conversation.
type lockDoc struct {
	Owner  string `bson:"owner"`
	Record `bson:",inline"`
}

// MongoLockStore implements LockStore on a MongoDB collection so lock state
// survives restarts and is shared across instances.
type MongoLockStore struct {
	coll *mongo.Collection
}

// NewMongoLockStore creates a store backed by the named collection of db.
func NewMongoLockStore(db *mongo.Database, collection string) (*MongoLockStore, error) {
	if db == nil {
		return nil, ErrStoreRequired
	}
	if collection == "" {
		collection = "chat_locks"
	}
	return &MongoLockStore{coll: db.Collection(collection)}, nil
}

// EnsureIndexes creates the unique (owner, peer) index backing lookups and
// the one-record-per-conversation invariant.
func (ms *MongoLockStore) EnsureIndexes(ctx context.Context) error {
	_, err := ms.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "owner", Value: 1}, {Key: "peer", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create chat lock indexes: %w", err)
	}
	return nil
}

func (ms *MongoLockStore) Get(ctx context.Context, owner, peer string) (*Record, error) {
	var doc lockDoc
	err := ms.coll.FindOne(ctx, bson.M{"owner": owner, "peer": peer}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to load lock record: %w", err)
	}
	return &doc.Record, nil
}

func (ms *MongoLockStore) Put(ctx context.Context, owner string, rec Record) error {
	filter := bson.M{"owner": owner, "peer": rec.Peer}
	update := bson.M{"$set": lockDoc{Owner: owner, Record: rec}}

	if _, err := ms.coll.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true)); err != nil {
		return fmt.Errorf("failed to store lock record: %w", err)
	}
	return nil
}

func (ms *MongoLockStore) Delete(ctx context.Context, owner, peer string) error {
	res, err := ms.coll.DeleteOne(ctx, bson.M{"owner": owner, "peer": peer})
	if err != nil {
		return fmt.Errorf("failed to delete lock record: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (ms *MongoLockStore) ListLocked(ctx context.Context, owner string) ([]string, error) {
	cursor, err := ms.coll.Find(ctx, bson.M{"owner": owner, "locked": true})
	if err != nil {
		return nil, fmt.Errorf("failed to list locked chats: %w", err)
	}
	defer cursor.Close(ctx) //nolint:errcheck

	var peers []string
	for cursor.Next(ctx) {
		var doc lockDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode lock record: %w", err)
		}
		peers = append(peers, doc.Peer)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to list locked chats: %w", err)
	}
	return peers, nil
}
