package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Store holds the client and the collections the service uses. It is built
// once in main and passed to each repository.
type Store struct {
	Client                *mongo.Client
	UserCollection        *mongo.Collection
	ProductCollection     *mongo.Collection
	ReviewsCollection     *mongo.Collection
	OrderCollection       *mongo.Collection
	IdempotencyCollection *mongo.Collection
}

func Connect(ctx context.Context, uri, database string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	d := client.Database(database)
	return &Store{
		Client:                client,
		UserCollection:        d.Collection("scs_users"),
		ProductCollection:     d.Collection("products"),
		ReviewsCollection:     d.Collection("scs_reviews"),
		OrderCollection:       d.Collection("orders"),
		IdempotencyCollection: d.Collection("idempotency"),
	}, nil
}

// EnsureIndexes creates the indexes the service relies on for correctness.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := map[*mongo.Collection][]mongo.IndexModel{
		s.UserCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("unique_email")},
		},
		s.ProductCollection: {
			{Keys: bson.D{{Key: "createdAt", Value: -1}}, Options: options.Index().SetName("created_desc")},
		},
		s.ReviewsCollection: {
			{Keys: bson.D{{Key: "product", Value: 1}}, Options: options.Index().SetName("by_product")},
		},
		s.OrderCollection: {
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("by_user")},
		},
		s.IdempotencyCollection: {
			{Keys: bson.D{{Key: "key", Value: 1}}, Options: options.Index().SetUnique(true).SetName("unique_key")},
			{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_expires_at")},
		},
	}
	for coll, models := range indexes {
		if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll.Name(), err)
		}
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.Client.Disconnect(ctx)
}

// IsDuplicateKey detects duplicate key errors from a Mongo write.
func IsDuplicateKey(err error) bool {
	return err != nil && mongo.IsDuplicateKeyError(err)
}
