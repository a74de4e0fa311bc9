package reviews

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/apperr"
	"storefront/auth"
	"storefront/middleware"
	"storefront/models"
)

type stubRepo struct {
	mu    sync.Mutex
	items []models.Review
}

func (s *stubRepo) Insert(_ context.Context, rv *models.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rv.ID = primitive.NewObjectID()
	s.items = append(s.items, *rv)
	return nil
}

func (s *stubRepo) Delete(_ context.Context, id primitive.ObjectID) (*models.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, rv := range s.items {
		if rv.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return &rv, nil
		}
	}
	return nil, ErrReviewNotFound
}

func (s *stubRepo) ListByProduct(_ context.Context, pid primitive.ObjectID) ([]models.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Review
	for _, rv := range s.items {
		if rv.Product == pid {
			out = append(out, rv)
		}
	}
	return out, nil
}

type stubCatalog struct {
	known   map[primitive.ObjectID]bool
	ratings map[primitive.ObjectID]float64
	setErr  error
}

func newCatalog(ids ...primitive.ObjectID) *stubCatalog {
	c := &stubCatalog{known: map[primitive.ObjectID]bool{}, ratings: map[primitive.ObjectID]float64{}}
	for _, id := range ids {
		c.known[id] = true
	}
	return c
}

func (c *stubCatalog) Exists(_ context.Context, id primitive.ObjectID) (bool, error) {
	return c.known[id], nil
}

func (c *stubCatalog) SetRating(_ context.Context, id primitive.ObjectID, rating float64) error {
	if !c.known[id] {
		return apperr.New(apperr.NotFound, "Product not found")
	}
	if c.setErr != nil {
		return c.setErr
	}
	c.ratings[id] = rating
	return nil
}

func TestCreateUpdatesRating(t *testing.T) {
	pid := primitive.NewObjectID()
	cat := newCatalog(pid)
	svc := NewService(&stubRepo{}, cat)
	ctx := context.Background()

	for _, r := range []int{5, 4, 4} {
		if _, err := svc.Create(ctx, nil, CreateInput{Name: "Ann", Comment: "ok", Rating: r, ProductID: pid.Hex()}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if got := cat.ratings[pid]; got != 4.33 {
		t.Fatalf("expected rating 4.33, got %v", got)
	}

	sum, err := svc.ListForProduct(ctx, pid.Hex())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if sum.Count != 3 || sum.Rating != "4.33" {
		t.Fatalf("unexpected summary %+v", sum)
	}
}

func TestCreateKeepsReviewWhenRatingRefreshFails(t *testing.T) {
	pid := primitive.NewObjectID()
	cat := newCatalog(pid)
	cat.setErr = errors.New("write concern timeout")
	repo := &stubRepo{}
	svc := NewService(repo, cat)

	rv, err := svc.Create(context.Background(), nil, CreateInput{Name: "Ann", Comment: "ok", Rating: 5, ProductID: pid.Hex()})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rv == nil || rv.ID.IsZero() {
		t.Fatalf("expected stored review, got %+v", rv)
	}
	if len(repo.items) != 1 {
		t.Fatalf("expected 1 stored review, got %d", len(repo.items))
	}
	if _, ok := cat.ratings[pid]; ok {
		t.Fatal("rating should not have been written")
	}
}

func TestCreateDefaultsName(t *testing.T) {
	pid := primitive.NewObjectID()
	svc := NewService(&stubRepo{}, newCatalog(pid))

	rv, err := svc.Create(context.Background(), &auth.Claims{Name: "Bea"}, CreateInput{Comment: "fine", Rating: 2, ProductID: pid.Hex()})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rv.Name != "Bea" {
		t.Fatalf("expected defaults, got %+v", rv)
	}
}

func TestCreateValidation(t *testing.T) {
	pid := primitive.NewObjectID()
	svc := NewService(&stubRepo{}, newCatalog(pid))
	ctx := context.Background()

	cases := []struct {
		name string
		in   CreateInput
		kind apperr.Kind
	}{
		{"no rating", CreateInput{Name: "a", Comment: "c", ProductID: pid.Hex()}, apperr.Validation},
		{"no comment", CreateInput{Name: "a", Rating: 3, ProductID: pid.Hex()}, apperr.Validation},
		{"no product", CreateInput{Name: "a", Comment: "c", Rating: 3}, apperr.Validation},
		{"rating high", CreateInput{Name: "a", Comment: "c", Rating: 6, ProductID: pid.Hex()}, apperr.Validation},
		{"rating negative", CreateInput{Name: "a", Comment: "c", Rating: -1, ProductID: pid.Hex()}, apperr.Validation},
		{"bad id", CreateInput{Name: "a", Comment: "c", Rating: 3, ProductID: "zzz"}, apperr.Validation},
		{"unknown product", CreateInput{Name: "a", Comment: "c", Rating: 3, ProductID: primitive.NewObjectID().Hex()}, apperr.NotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, nil, tc.in); !apperr.Is(err, tc.kind) {
				t.Fatalf("expected %v, got %v", tc.kind, err)
			}
		})
	}
}

func TestDeleteRecomputesRating(t *testing.T) {
	pid := primitive.NewObjectID()
	cat := newCatalog(pid)
	svc := NewService(&stubRepo{}, cat)
	ctx := context.Background()

	low, _ := svc.Create(ctx, nil, CreateInput{Name: "a", Comment: "c", Rating: 1, ProductID: pid.Hex()})
	_, _ = svc.Create(ctx, nil, CreateInput{Name: "b", Comment: "c", Rating: 5, ProductID: pid.Hex()})

	if _, err := svc.Delete(ctx, low.ID.Hex()); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if cat.ratings[pid] != 5 {
		t.Fatalf("expected rating 5, got %v", cat.ratings[pid])
	}
	if _, err := svc.Delete(ctx, low.ID.Hex()); !apperr.Is(err, apperr.NotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestListEmptyProduct(t *testing.T) {
	pid := primitive.NewObjectID()
	svc := NewService(&stubRepo{}, newCatalog(pid))

	sum, err := svc.ListForProduct(context.Background(), pid.Hex())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if sum.Count != 0 || sum.Rating != "0.00" || sum.Reviews == nil {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if _, err := svc.ListForProduct(context.Background(), primitive.NewObjectID().Hex()); !apperr.Is(err, apperr.NotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestHandlers(t *testing.T) {
	pid := primitive.NewObjectID()
	h := NewHandler(NewService(&stubRepo{}, newCatalog(pid)))

	body := `{"comment":"great","rating":4,"productId":"` + pid.Hex() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/reviews", strings.NewReader(body))
	req = req.WithContext(middleware.WithClaims(req.Context(), &auth.Claims{Name: "Cy"}))
	rr := httptest.NewRecorder()
	h.CreateReview(rr, req, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	h.GetReviews(rr, httptest.NewRequest(http.MethodGet, "/", nil), httprouter.Params{{Key: "id", Value: pid.Hex()}})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp struct {
		Message string          `json:"message"`
		Count   int             `json:"count"`
		Rating  string          `json:"rating"`
		Data    []models.Review `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Message != "Get reviews" || resp.Count != 1 || resp.Rating != "4.00" || resp.Data[0].Name != "Cy" {
		t.Fatalf("unexpected response %+v", resp)
	}

	rr = httptest.NewRecorder()
	h.DeleteReview(rr, httptest.NewRequest(http.MethodDelete, "/", nil), httprouter.Params{{Key: "id", Value: primitive.NewObjectID().Hex()}})
	if rr.Code != http.StatusBadRequest || !strings.Contains(rr.Body.String(), "Review not found") {
		t.Fatalf("expected 400 Review not found, got %d %s", rr.Code, rr.Body.String())
	}
}
