package reviews

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/apperr"
	"storefront/auth"
	"storefront/models"
	"storefront/utils"
)

var ErrReviewNotFound = apperr.New(apperr.NotFound, "Review not found")

type Repository interface {
	Insert(ctx context.Context, rv *models.Review) error
	Delete(ctx context.Context, id primitive.ObjectID) (*models.Review, error)
	ListByProduct(ctx context.Context, productID primitive.ObjectID) ([]models.Review, error)
}

// Catalog is the part of the product service reviews depend on.
type Catalog interface {
	Exists(ctx context.Context, id primitive.ObjectID) (bool, error)
	SetRating(ctx context.Context, id primitive.ObjectID, rating float64) error
}

type CreateInput struct {
	Name      string `json:"name"`
	Comment   string `json:"comment"`
	Rating    int    `json:"rating"`
	ProductID string `json:"productId"`
}

type Summary struct {
	Reviews []models.Review
	Count   int
	Rating  string
}

type Service struct {
	repo    Repository
	catalog Catalog
	now     func() time.Time
}

func NewService(repo Repository, catalog Catalog) *Service {
	return &Service{repo: repo, catalog: catalog, now: time.Now}
}

// Create stores a review. The reviewer name defaults to the caller's name.
// A failed rating refresh is logged; the stored review is still returned.
func (s *Service) Create(ctx context.Context, actor *auth.Claims, in CreateInput) (*models.Review, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" && actor != nil {
		name = actor.Name
	}
	if name == "" || strings.TrimSpace(in.Comment) == "" || in.ProductID == "" || in.Rating == 0 {
		return nil, apperr.New(apperr.Validation, "All fields are required")
	}
	if in.Rating < 1 || in.Rating > 5 {
		return nil, apperr.New(apperr.Validation, "Rating must be between 1 and 5")
	}
	pid, err := utils.ParseObjectID(in.ProductID, "product")
	if err != nil {
		return nil, err
	}
	if err := s.requireProduct(ctx, pid); err != nil {
		return nil, err
	}

	now := s.now()
	rv := &models.Review{
		Name:      name,
		Rating:    in.Rating,
		Comment:   strings.TrimSpace(in.Comment),
		Product:   pid,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, rv); err != nil {
		return nil, apperr.OrPersistence(err, "Unable to create review")
	}
	if err := s.refreshRating(ctx, pid); err != nil {
		slog.Warn("product rating refresh failed", "product", pid.Hex(), "review", rv.ID.Hex(), "err", err)
	}
	return rv, nil
}

func (s *Service) Delete(ctx context.Context, id string) (*models.Review, error) {
	oid, err := utils.ParseObjectID(id, "review")
	if err != nil {
		return nil, err
	}
	rv, err := s.repo.Delete(ctx, oid)
	if err != nil {
		return nil, apperr.OrPersistence(err, "Unable to delete review")
	}
	if err := s.refreshRating(ctx, rv.Product); err != nil && !apperr.Is(err, apperr.NotFound) {
		return nil, err
	}
	return rv, nil
}

func (s *Service) ListForProduct(ctx context.Context, productID string) (*Summary, error) {
	pid, err := utils.ParseObjectID(productID, "product")
	if err != nil {
		return nil, err
	}
	if err := s.requireProduct(ctx, pid); err != nil {
		return nil, err
	}
	items, err := s.repo.ListByProduct(ctx, pid)
	if err != nil {
		return nil, apperr.OrPersistence(err, "Unable to get reviews for this product")
	}
	if items == nil {
		items = []models.Review{}
	}
	return &Summary{Reviews: items, Count: len(items), Rating: fmt.Sprintf("%.2f", Average(items))}, nil
}

// Average is the mean rating, or 0 with no reviews.
func Average(items []models.Review) float64 {
	if len(items) == 0 {
		return 0
	}
	sum := 0
	for _, rv := range items {
		sum += rv.Rating
	}
	return float64(sum) / float64(len(items))
}

func (s *Service) refreshRating(ctx context.Context, pid primitive.ObjectID) error {
	items, err := s.repo.ListByProduct(ctx, pid)
	if err != nil {
		return apperr.OrPersistence(err, "Unable to update product rating")
	}
	avg := math.Round(Average(items)*100) / 100
	return s.catalog.SetRating(ctx, pid, avg)
}

func (s *Service) requireProduct(ctx context.Context, pid primitive.ObjectID) error {
	ok, err := s.catalog.Exists(ctx, pid)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.New(apperr.NotFound, "Product not found")
	}
	return nil
}
