package products

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/models"
	"storefront/utils"
)

type MongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(coll *mongo.Collection) *MongoRepository {
	return &MongoRepository{coll: coll}
}

func searchFilter(search string) bson.M {
	if search == "" {
		return bson.M{}
	}
	return bson.M{"title": primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}}
}

func (r *MongoRepository) List(ctx context.Context, search string, page utils.Page) ([]models.Product, int64, error) {
	filter := searchFilter(search)
	order := page.Order
	if order == 0 {
		order = -1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: order}}).
		SetSkip(page.Skip()).
		SetLimit(int64(page.PerPage))

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find products: %w", err)
	}
	defer cur.Close(ctx)

	var out []models.Product
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, fmt.Errorf("decode products: %w", err)
	}
	count, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}
	return out, count, nil
}

func (r *MongoRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var p models.Product
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find product %s: %w", id.Hex(), err)
	}
	return &p, nil
}

func (r *MongoRepository) Insert(ctx context.Context, p *models.Product) error {
	res, err := r.coll.InsertOne(ctx, p)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		p.ID = oid
	}
	return nil
}

func (r *MongoRepository) InsertMany(ctx context.Context, ps []models.Product) (int, error) {
	if len(ps) == 0 {
		return 0, nil
	}
	docs := make([]any, len(ps))
	for i := range ps {
		docs[i] = ps[i]
	}
	res, err := r.coll.InsertMany(ctx, docs)
	if err != nil {
		return 0, fmt.Errorf("insert products: %w", err)
	}
	return len(res.InsertedIDs), nil
}

func (r *MongoRepository) Replace(ctx context.Context, id primitive.ObjectID, in Input, at time.Time) (*models.Product, error) {
	var p models.Product
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"title":       in.Title,
			"description": in.Description,
			"price":       in.Price,
			"image":       in.Image,
			"slug":        in.Slug,
			"updatedAt":   at,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update product %s: %w", id.Hex(), err)
	}
	return &p, nil
}

func (r *MongoRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete product %s: %w", id.Hex(), err)
	}
	if res.DeletedCount == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *MongoRepository) FavoritesOf(ctx context.Context, userID primitive.ObjectID) ([]models.Product, error) {
	cur, err := r.coll.Find(ctx, bson.M{"favoritedBy": userID}, options.Find().SetSort(bson.D{{Key: "title", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find favorites: %w", err)
	}
	defer cur.Close(ctx)

	var out []models.Product
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode favorites: %w", err)
	}
	return out, nil
}

func (r *MongoRepository) AddFavorite(ctx context.Context, productID, userID primitive.ObjectID) (bool, error) {
	return r.toggle(ctx, productID,
		bson.M{"_id": productID, "favoritedBy": bson.M{"$ne": userID}},
		bson.M{"$addToSet": bson.M{"favoritedBy": userID}},
	)
}

func (r *MongoRepository) RemoveFavorite(ctx context.Context, productID, userID primitive.ObjectID) (bool, error) {
	return r.toggle(ctx, productID,
		bson.M{"_id": productID, "favoritedBy": userID},
		bson.M{"$pull": bson.M{"favoritedBy": userID}},
	)
}

// toggle applies update when filter matches. When it does not, it tells a
// missing product apart from a no-op.
func (r *MongoRepository) toggle(ctx context.Context, productID primitive.ObjectID, filter, update bson.M) (bool, error) {
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("update favorites: %w", err)
	}
	if res.ModifiedCount > 0 {
		return true, nil
	}
	if _, err := r.FindByID(ctx, productID); err != nil {
		return false, err
	}
	return false, nil
}

func (r *MongoRepository) SetRating(ctx context.Context, id primitive.ObjectID, rating float64) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"rating": rating}})
	if err != nil {
		return fmt.Errorf("set rating on %s: %w", id.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return ErrProductNotFound
	}
	return nil
}
