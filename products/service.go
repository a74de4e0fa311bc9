package products

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/apperr"
	"storefront/auth"
	"storefront/models"
	"storefront/utils"
)

var (
	ErrProductNotFound = apperr.New(apperr.NotFound, "Product not found")
	ErrAlreadyFavored  = apperr.New(apperr.Validation, "Product is already in favorites")
	ErrNotFavored      = apperr.New(apperr.Validation, "Product is not in favorites")
)

type Repository interface {
	List(ctx context.Context, search string, page utils.Page) ([]models.Product, int64, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	Insert(ctx context.Context, p *models.Product) error
	InsertMany(ctx context.Context, ps []models.Product) (int, error)
	Replace(ctx context.Context, id primitive.ObjectID, in Input, at time.Time) (*models.Product, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	FavoritesOf(ctx context.Context, userID primitive.ObjectID) ([]models.Product, error)
	// AddFavorite and RemoveFavorite report whether the set changed.
	AddFavorite(ctx context.Context, productID, userID primitive.ObjectID) (bool, error)
	RemoveFavorite(ctx context.Context, productID, userID primitive.ObjectID) (bool, error)
	SetRating(ctx context.Context, id primitive.ObjectID, rating float64) error
}

type Input struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Image       string  `json:"image"`
	Slug        string  `json:"slug"`
}

func (in Input) validate() error {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Description) == "" ||
		in.Price <= 0 || strings.TrimSpace(in.Image) == "" || strings.TrimSpace(in.Slug) == "" {
		return apperr.New(apperr.Validation, "All fields are required")
	}
	return nil
}

type ListResult struct {
	Products []models.Product
	Count    int64
	Pages    int
	Page     int
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) List(ctx context.Context, search string, page utils.Page) (*ListResult, error) {
	items, count, err := s.repo.List(ctx, strings.TrimSpace(search), page)
	if err != nil {
		return nil, apperr.OrPersistence(err, "Unable to list products")
	}
	if items == nil {
		items = []models.Product{}
	}
	return &ListResult{Products: items, Count: count, Pages: utils.Pages(count, page.PerPage), Page: page.Page}, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Product, error) {
	oid, err := utils.ParseObjectID(id, "product")
	if err != nil {
		return nil, err
	}
	p, err := s.repo.FindByID(ctx, oid)
	if err != nil {
		return nil, apperr.OrPersistence(err, "Unable to load product")
	}
	return p, nil
}

func (s *Service) Create(ctx context.Context, in Input) (*models.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := s.now()
	p := &models.Product{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
		Image:       strings.TrimSpace(in.Image),
		Slug:        strings.TrimSpace(in.Slug),
		FavoritedBy: []primitive.ObjectID{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, p); err != nil {
		return nil, apperr.OrPersistence(err, "Unable to create product")
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, id string, in Input) (*models.Product, error) {
	oid, err := utils.ParseObjectID(id, "product")
	if err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	p, err := s.repo.Replace(ctx, oid, in, s.now())
	if err != nil {
		return nil, apperr.OrPersistence(err, "Unable to update product")
	}
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	oid, err := utils.ParseObjectID(id, "product")
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, oid); err != nil {
		return apperr.OrPersistence(err, "Unable to delete product")
	}
	return nil
}

func (s *Service) Favorites(ctx context.Context, actor *auth.Claims, userID string) ([]models.Product, error) {
	uid, err := s.authorize(actor, userID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.FavoritesOf(ctx, uid)
	if err != nil {
		return nil, apperr.OrPersistence(err, "Unable to load favorites")
	}
	if items == nil {
		items = []models.Product{}
	}
	return items, nil
}

func (s *Service) AddFavorite(ctx context.Context, actor *auth.Claims, userID, productID string) error {
	uid, pid, err := s.favoriteIDs(actor, userID, productID)
	if err != nil {
		return err
	}
	added, err := s.repo.AddFavorite(ctx, pid, uid)
	if err != nil {
		return apperr.OrPersistence(err, "Unable to add favorite")
	}
	if !added {
		return ErrAlreadyFavored
	}
	return nil
}

func (s *Service) RemoveFavorite(ctx context.Context, actor *auth.Claims, userID, productID string) error {
	uid, pid, err := s.favoriteIDs(actor, userID, productID)
	if err != nil {
		return err
	}
	removed, err := s.repo.RemoveFavorite(ctx, pid, uid)
	if err != nil {
		return apperr.OrPersistence(err, "Unable to remove favorite")
	}
	if !removed {
		return ErrNotFavored
	}
	return nil
}

// SetRating stores the average review rating on the product.
func (s *Service) SetRating(ctx context.Context, id primitive.ObjectID, rating float64) error {
	if err := s.repo.SetRating(ctx, id, rating); err != nil {
		return apperr.OrPersistence(err, "Unable to update product rating")
	}
	return nil
}

// Exists reports whether a product with id is stored.
func (s *Service) Exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	_, err := s.repo.FindByID(ctx, id)
	if apperr.Is(err, apperr.NotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperr.OrPersistence(err, "Unable to load product")
	}
	return true, nil
}

// Seed inserts the starter catalogue and returns how many products were added.
func (s *Service) Seed(ctx context.Context) (int, error) {
	now := s.now()
	items := make([]models.Product, len(seedCatalogue))
	for i, in := range seedCatalogue {
		items[i] = models.Product{
			Title:       in.Title,
			Description: in.Description,
			Price:       in.Price,
			Image:       in.Image,
			Slug:        in.Slug,
			FavoritedBy: []primitive.ObjectID{},
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}
	n, err := s.repo.InsertMany(ctx, items)
	if err != nil {
		return 0, apperr.OrPersistence(err, "Unable to seed products")
	}
	return n, nil
}

func (s *Service) favoriteIDs(actor *auth.Claims, userID, productID string) (primitive.ObjectID, primitive.ObjectID, error) {
	uid, err := s.authorize(actor, userID)
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, err
	}
	pid, err := utils.ParseObjectID(productID, "product")
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, err
	}
	return uid, pid, nil
}

func (s *Service) authorize(actor *auth.Claims, userID string) (primitive.ObjectID, error) {
	uid, err := utils.ParseObjectID(userID, "user")
	if err != nil {
		return primitive.NilObjectID, err
	}
	if actor == nil || (!actor.Admin && actor.UserID != uid.Hex()) {
		return primitive.NilObjectID, apperr.New(apperr.Forbidden, "Unauthorized")
	}
	return uid, nil
}
