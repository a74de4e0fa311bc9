package summary

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/db"
)

type MongoSource struct {
	products *mongo.Collection
	orders   *mongo.Collection
	users    *mongo.Collection
}

func NewMongoSource(store *db.Store) *MongoSource {
	return &MongoSource{
		products: store.ProductCollection,
		orders:   store.OrderCollection,
		users:    store.UserCollection,
	}
}

func (m *MongoSource) CountProducts(ctx context.Context) (int64, error) {
	return countAll(ctx, m.products)
}

func (m *MongoSource) CountOrders(ctx context.Context) (int64, error) {
	return countAll(ctx, m.orders)
}

func (m *MongoSource) CountUsers(ctx context.Context) (int64, error) {
	return countAll(ctx, m.users)
}

func (m *MongoSource) OrdersTotal(ctx context.Context) (float64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$totalPrice"},
		}}},
	}
	cur, err := m.orders.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("aggregate orders total: %w", err)
	}
	defer cur.Close(ctx)

	var result []struct {
		Total float64 `bson:"total"`
	}
	if err := cur.All(ctx, &result); err != nil {
		return 0, fmt.Errorf("decode orders total: %w", err)
	}
	if len(result) == 0 {
		return 0, nil
	}
	return result[0].Total, nil
}

func (m *MongoSource) MonthlySales(ctx context.Context) ([]MonthlySales, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":        bson.M{"$dateToString": bson.M{"format": "%Y-%m", "date": "$createdAt"}},
			"totalSales": bson.M{"$sum": "$totalPrice"},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}
	cur, err := m.orders.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate monthly sales: %w", err)
	}
	defer cur.Close(ctx)

	var out []MonthlySales
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode monthly sales: %w", err)
	}
	return out, nil
}

func countAll(ctx context.Context, coll *mongo.Collection) (int64, error) {
	n, err := coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", coll.Name(), err)
	}
	return n, nil
}
