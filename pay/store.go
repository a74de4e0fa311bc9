package pay

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/db"
	"storefront/models"
)

// MongoStore keeps idempotency records in a collection with a unique index
// on key and a TTL index on expiresAt (see db.EnsureIndexes).
type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll}
}

func (s *MongoStore) Reserve(ctx context.Context, rec models.IdempotencyRecord) error {
	_, err := s.coll.InsertOne(ctx, rec)
	if db.IsDuplicateKey(err) {
		return ErrKeyExists
	}
	if err != nil {
		return fmt.Errorf("reserve idempotency key: %w", err)
	}
	return nil
}

func (s *MongoStore) Find(ctx context.Context, key string) (*models.IdempotencyRecord, error) {
	var rec models.IdempotencyRecord
	err := s.coll.FindOne(ctx, bson.M{"key": key}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("idempotency key %q vanished", key)
	}
	if err != nil {
		return nil, fmt.Errorf("find idempotency key: %w", err)
	}
	return &rec, nil
}

func (s *MongoStore) SaveResponse(ctx context.Context, key string, resp models.SavedResponse) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"key": key},
		bson.M{"$set": bson.M{"response": resp}},
	)
	if err != nil {
		return fmt.Errorf("save idempotent response: %w", err)
	}
	return nil
}

// Release drops an unanswered reservation so the key can be reserved again.
func (s *MongoStore) Release(ctx context.Context, key string) error {
	_, err := s.coll.DeleteOne(ctx, bson.M{"key": key, "response": bson.M{"$exists": false}})
	if err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}
