package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/apperr"
	"storefront/models"
)

var errOrderNotFound = apperr.New(apperr.NotFound, "Order not found")

type MongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(coll *mongo.Collection) *MongoRepository {
	return &MongoRepository{coll: coll}
}

func (r *MongoRepository) Insert(ctx context.Context, order *models.Order) error {
	res, err := r.coll.InsertOne(ctx, order)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		order.ID = oid
	}
	return nil
}

func (r *MongoRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	var order models.Order
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find order %s: %w", id.Hex(), err)
	}
	return &order, nil
}

func (r *MongoRepository) List(ctx context.Context, q ListQuery) ([]models.Order, int64, error) {
	filter := bson.M{}
	if !q.UserID.IsZero() {
		filter["user"] = q.UserID
	}
	order := q.Page.Order
	if order == 0 {
		order = -1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: order}}).
		SetSkip(q.Page.Skip()).
		SetLimit(int64(q.Page.PerPage))

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find orders: %w", err)
	}
	defer cur.Close(ctx)

	var out []models.Order
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, fmt.Errorf("decode orders: %w", err)
	}
	count, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	return out, count, nil
}

func (r *MongoRepository) SetPaid(ctx context.Context, id primitive.ObjectID, at time.Time) (*models.Order, error) {
	return r.update(ctx, id, bson.M{"isPaid": true, "paidAt": at, "updatedAt": at})
}

func (r *MongoRepository) SetDelivered(ctx context.Context, id primitive.ObjectID, at time.Time) (*models.Order, error) {
	return r.update(ctx, id, bson.M{"isDelivered": true, "deliveredAt": at, "updatedAt": at})
}

func (r *MongoRepository) SetPaymentSession(ctx context.Context, id primitive.ObjectID, sessionID string) (*models.Order, error) {
	return r.update(ctx, id, bson.M{"payment.sessionId": sessionID, "updatedAt": time.Now()})
}

func (r *MongoRepository) Delete(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	var order models.Order
	err := r.coll.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("delete order %s: %w", id.Hex(), err)
	}
	return &order, nil
}

func (r *MongoRepository) update(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Order, error) {
	var order models.Order
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update order %s: %w", id.Hex(), err)
	}
	return &order, nil
}
