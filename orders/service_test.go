package orders

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/apperr"
	"storefront/auth"
	"storefront/models"
	"storefront/utils"
)

// ===== in-memory Repository =====

type stubRepo struct {
	mu      sync.Mutex
	items   map[primitive.ObjectID]*models.Order
	failAll error
}

func newStubRepo() *stubRepo {
	return &stubRepo{items: make(map[primitive.ObjectID]*models.Order)}
}

func (s *stubRepo) Insert(_ context.Context, o *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll != nil {
		return s.failAll
	}
	o.ID = primitive.NewObjectID()
	cp := *o
	s.items[o.ID] = &cp
	return nil
}

func (s *stubRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.items[id]
	if !ok {
		return nil, errOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *stubRepo) List(_ context.Context, q ListQuery) ([]models.Order, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Order
	for _, o := range s.items {
		if !q.UserID.IsZero() && o.User != q.UserID {
			continue
		}
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	count := int64(len(out))
	start := int(q.Page.Skip())
	if start > len(out) {
		return []models.Order{}, count, nil
	}
	end := start + q.Page.PerPage
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], count, nil
}

func (s *stubRepo) mutate(id primitive.ObjectID, fn func(*models.Order)) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.items[id]
	if !ok {
		return nil, errOrderNotFound
	}
	fn(o)
	cp := *o
	return &cp, nil
}

func (s *stubRepo) SetPaid(_ context.Context, id primitive.ObjectID, at time.Time) (*models.Order, error) {
	return s.mutate(id, func(o *models.Order) { o.IsPaid = true; o.PaidAt = &at })
}

func (s *stubRepo) SetDelivered(_ context.Context, id primitive.ObjectID, at time.Time) (*models.Order, error) {
	return s.mutate(id, func(o *models.Order) { o.IsDelivered = true; o.DeliveredAt = &at })
}

func (s *stubRepo) SetPaymentSession(_ context.Context, id primitive.ObjectID, sessionID string) (*models.Order, error) {
	return s.mutate(id, func(o *models.Order) { o.Payment.SessionID = sessionID })
}

func (s *stubRepo) Delete(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.items[id]
	if !ok {
		return nil, errOrderNotFound
	}
	delete(s.items, id)
	return o, nil
}

type recordedEvents struct {
	mu     sync.Mutex
	events []models.OrderEvent
}

func (r *recordedEvents) Emit(_ context.Context, e models.OrderEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordedEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

// ===== helpers =====

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestService() (*Service, *stubRepo, *recordedEvents, *clock) {
	repo := newStubRepo()
	events := &recordedEvents{}
	clk := &clock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	svc := NewService(repo, events)
	svc.now = clk.now
	return svc, repo, events, clk
}

func customer(id primitive.ObjectID) *auth.Claims {
	return &auth.Claims{UserID: id.Hex(), Name: "Ada", Email: "ada@example.com"}
}

func admin() *auth.Claims {
	return &auth.Claims{UserID: primitive.NewObjectID().Hex(), Name: "Root", Admin: true}
}

func validInput(user primitive.ObjectID) CreateInput {
	return CreateInput{
		User: user.Hex(),
		ShippingInfo: &models.ShippingInfo{
			Name: "Ada", Email: "ada@example.com", Street: "1 Main St",
			City: "Springfield", State: "IL", PostalCode: "62701", Country: "US",
		},
		PaymentInfo: &models.PaymentInfo{PaymentMethod: "stripe"},
		OrderItems: []models.LineItem{
			{Title: "Mug", Qty: 2, Image: "/img/mug.png", Price: "10.00", Product: primitive.NewObjectID()},
			{Title: "Tea", Qty: 1, Image: "/img/tea.png", Price: "5.5", Product: primitive.NewObjectID()},
		},
	}
}

// ===== tests =====

func TestCreatePricesAndStores(t *testing.T) {
	svc, repo, events, _ := newTestService()
	uid := primitive.NewObjectID()

	order, err := svc.Create(context.Background(), customer(uid), validInput(uid))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if order.ItemsPrice != 25.5 || order.TaxPrice != 10 || order.ShippingPrice != 0 || order.TotalPrice != 35.5 {
		t.Fatalf("unexpected totals %+v", order)
	}
	if order.IsPaid || order.IsDelivered || order.PaidAt != nil || order.DeliveredAt != nil {
		t.Fatal("new orders must be unpaid and undelivered")
	}
	if order.OrderItems[1].Price != "5.50" {
		t.Fatalf("expected canonical price 5.50, got %q", order.OrderItems[1].Price)
	}
	if len(repo.items) != 1 {
		t.Fatalf("expected one stored order, got %d", len(repo.items))
	}
	if got := events.types(); len(got) != 1 || got[0] != EventCreated {
		t.Fatalf("expected created event, got %v", got)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, repo, _, _ := newTestService()
	uid := primitive.NewObjectID()

	mutations := map[string]func(*CreateInput){
		"missing user":     func(in *CreateInput) { in.User = "" },
		"bad user id":      func(in *CreateInput) { in.User = "nope" },
		"missing shipping": func(in *CreateInput) { in.ShippingInfo = nil },
		"missing payment":  func(in *CreateInput) { in.PaymentInfo = nil },
		"no items":         func(in *CreateInput) { in.OrderItems = nil },
		"no city":          func(in *CreateInput) { in.ShippingInfo.City = "" },
		"no method":        func(in *CreateInput) { in.PaymentInfo.PaymentMethod = " " },
		"zero qty":         func(in *CreateInput) { in.OrderItems[0].Qty = 0 },
		"no title":         func(in *CreateInput) { in.OrderItems[0].Title = "" },
		"no product":       func(in *CreateInput) { in.OrderItems[0].Product = primitive.NilObjectID },
		"bad price":        func(in *CreateInput) { in.OrderItems[1].Price = "five" },
	}
	for name, mutate := range mutations {
		in := validInput(uid)
		mutate(&in)
		_, err := svc.Create(context.Background(), customer(uid), in)
		if !apperr.Is(err, apperr.Validation) {
			t.Errorf("%s: expected Validation, got %v", name, err)
		}
	}
	if len(repo.items) != 0 {
		t.Fatalf("invalid input must not be stored, have %d", len(repo.items))
	}
}

func TestCreateForAnotherUser(t *testing.T) {
	svc, _, _, _ := newTestService()
	other := primitive.NewObjectID()

	_, err := svc.Create(context.Background(), customer(primitive.NewObjectID()), validInput(other))
	if !apperr.Is(err, apperr.Forbidden) {
		t.Fatalf("expected Forbidden, got %v", err)
	}
	if _, err := svc.Create(context.Background(), admin(), validInput(other)); err != nil {
		t.Fatalf("admins may create orders for anyone: %v", err)
	}
}

func TestCreatePersistenceFailure(t *testing.T) {
	svc, repo, events, _ := newTestService()
	repo.failAll = errors.New("connection refused")
	uid := primitive.NewObjectID()

	_, err := svc.Create(context.Background(), customer(uid), validInput(uid))
	if !apperr.Is(err, apperr.Persistence) {
		t.Fatalf("expected Persistence, got %v", err)
	}
	if len(events.types()) != 0 {
		t.Fatal("no event should be published for a failed write")
	}
}

func TestMarkPaidIsRepeatable(t *testing.T) {
	svc, _, events, clk := newTestService()
	uid := primitive.NewObjectID()
	order, _ := svc.Create(context.Background(), customer(uid), validInput(uid))

	first, err := svc.MarkPaid(context.Background(), customer(uid), order.ID.Hex())
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if !first.IsPaid || first.PaidAt == nil || !first.PaidAt.Equal(clk.t) {
		t.Fatalf("unexpected paid state %+v", first)
	}

	clk.t = clk.t.Add(time.Hour)
	second, err := svc.MarkPaid(context.Background(), customer(uid), order.ID.Hex())
	if err != nil {
		t.Fatalf("mark paid again: %v", err)
	}
	if !second.PaidAt.Equal(clk.t) {
		t.Fatalf("expected paidAt to be refreshed, got %v", second.PaidAt)
	}
	if second.IsDelivered {
		t.Fatal("paying must not deliver")
	}
	if got := events.types(); len(got) != 3 || got[1] != EventPaid || got[2] != EventPaid {
		t.Fatalf("unexpected events %v", got)
	}
}

func TestMarkPaidAccess(t *testing.T) {
	svc, _, _, _ := newTestService()
	uid := primitive.NewObjectID()
	order, _ := svc.Create(context.Background(), customer(uid), validInput(uid))

	_, err := svc.MarkPaid(context.Background(), customer(primitive.NewObjectID()), order.ID.Hex())
	if !apperr.Is(err, apperr.Forbidden) {
		t.Fatalf("expected Forbidden for a stranger, got %v", err)
	}
	if _, err := svc.MarkPaid(context.Background(), admin(), order.ID.Hex()); err != nil {
		t.Fatalf("admin mark paid: %v", err)
	}
}

func TestLifecycleNotFound(t *testing.T) {
	svc, _, _, _ := newTestService()
	missing := primitive.NewObjectID().Hex()

	if _, err := svc.MarkPaid(context.Background(), admin(), missing); !apperr.Is(err, apperr.NotFound) {
		t.Errorf("mark paid: expected NotFound, got %v", err)
	}
	if _, err := svc.MarkDelivered(context.Background(), missing); !apperr.Is(err, apperr.NotFound) {
		t.Errorf("mark delivered: expected NotFound, got %v", err)
	}
	if err := svc.Delete(context.Background(), missing); !apperr.Is(err, apperr.NotFound) {
		t.Errorf("delete: expected NotFound, got %v", err)
	}
	if _, err := svc.Get(context.Background(), admin(), "zzz"); !apperr.Is(err, apperr.Validation) {
		t.Errorf("malformed id: expected Validation, got %v", err)
	}
}

func TestDeliverAndDelete(t *testing.T) {
	svc, repo, events, clk := newTestService()
	uid := primitive.NewObjectID()
	order, _ := svc.Create(context.Background(), customer(uid), validInput(uid))

	delivered, err := svc.MarkDelivered(context.Background(), order.ID.Hex())
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if !delivered.IsDelivered || !delivered.DeliveredAt.Equal(clk.t) || delivered.IsPaid {
		t.Fatalf("unexpected delivered state %+v", delivered)
	}

	if err := svc.Delete(context.Background(), order.ID.Hex()); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(repo.items) != 0 {
		t.Fatal("order should be gone")
	}
	if err := svc.Delete(context.Background(), order.ID.Hex()); !apperr.Is(err, apperr.NotFound) {
		t.Fatalf("second delete: expected NotFound, got %v", err)
	}
	want := []string{EventCreated, EventDelivered, EventDeleted}
	got := events.types()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestListPaginates(t *testing.T) {
	svc, _, _, clk := newTestService()
	uid := primitive.NewObjectID()
	other := primitive.NewObjectID()
	for i := 0; i < 5; i++ {
		clk.t = clk.t.Add(time.Minute)
		if _, err := svc.Create(context.Background(), customer(uid), validInput(uid)); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	_, _ = svc.Create(context.Background(), customer(other), validInput(other))

	res, err := svc.List(context.Background(), ListQuery{UserID: uid, Page: utils.Page{Page: 2, PerPage: 2, Order: -1}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if res.Count != 5 || res.Pages != 3 || res.Page != 2 || len(res.Orders) != 2 {
		t.Fatalf("unexpected page %+v", res)
	}

	all, _ := svc.List(context.Background(), ListQuery{Page: utils.Page{Page: 1, PerPage: 10}})
	if all.Count != 6 {
		t.Fatalf("expected 6 orders overall, got %d", all.Count)
	}
}

func TestAttachPaymentSession(t *testing.T) {
	svc, repo, _, _ := newTestService()
	uid := primitive.NewObjectID()
	order, _ := svc.Create(context.Background(), customer(uid), validInput(uid))

	if err := svc.AttachPaymentSession(context.Background(), order.ID, "cs_test_123"); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if repo.items[order.ID].Payment.SessionID != "cs_test_123" {
		t.Fatal("session id not stored")
	}
}

func TestInvoiceRendersPDF(t *testing.T) {
	svc, _, _, _ := newTestService()
	uid := primitive.NewObjectID()
	order, _ := svc.Create(context.Background(), customer(uid), validInput(uid))

	pdf, got, err := svc.Invoice(context.Background(), customer(uid), order.ID.Hex())
	if err != nil {
		t.Fatalf("invoice: %v", err)
	}
	if got.ID != order.ID {
		t.Fatal("invoice returned the wrong order")
	}
	if len(pdf) < 4 || string(pdf[:4]) != "%PDF" {
		t.Fatalf("expected a PDF document, got %q", pdf[:min(len(pdf), 8)])
	}

	if _, _, err := svc.Invoice(context.Background(), customer(primitive.NewObjectID()), order.ID.Hex()); !apperr.Is(err, apperr.Forbidden) {
		t.Fatalf("strangers must not download invoices, got %v", err)
	}
}

func TestPublishersFanOut(t *testing.T) {
	a, b := &recordedEvents{}, &recordedEvents{}
	svc := NewService(newStubRepo(), Publishers{a, b})
	user := primitive.NewObjectID()

	if _, err := svc.Create(context.Background(), customer(user), validInput(user)); err != nil {
		t.Fatalf("create: %v", err)
	}
	for name, r := range map[string]*recordedEvents{"first": a, "second": b} {
		if got := r.types(); len(got) != 1 || got[0] != EventCreated {
			t.Fatalf("%s publisher got %v", name, got)
		}
	}
}
