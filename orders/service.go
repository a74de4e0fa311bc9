package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/apperr"
	"storefront/auth"
	"storefront/models"
	"storefront/utils"
)

const (
	EventCreated   = "order.created"
	EventPaid      = "order.paid"
	EventDelivered = "order.delivered"
	EventDeleted   = "order.deleted"
)

type Repository interface {
	Insert(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	List(ctx context.Context, q ListQuery) ([]models.Order, int64, error)
	SetPaid(ctx context.Context, id primitive.ObjectID, at time.Time) (*models.Order, error)
	SetDelivered(ctx context.Context, id primitive.ObjectID, at time.Time) (*models.Order, error)
	SetPaymentSession(ctx context.Context, id primitive.ObjectID, sessionID string) (*models.Order, error)
	Delete(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
}

type Publisher interface {
	Emit(ctx context.Context, event models.OrderEvent)
}

// Publishers fans one event out to several publishers in order.
type Publishers []Publisher

func (ps Publishers) Emit(ctx context.Context, event models.OrderEvent) {
	for _, p := range ps {
		p.Emit(ctx, event)
	}
}

type CreateInput struct {
	User         string               `json:"user"`
	ShippingInfo *models.ShippingInfo `json:"shippingInfo"`
	PaymentInfo  *models.PaymentInfo  `json:"paymentInfo"`
	OrderItems   []models.LineItem    `json:"orderItems"`
}

type ListQuery struct {
	UserID primitive.ObjectID
	Page   utils.Page
}

type ListResult struct {
	Orders []models.Order
	Count  int64
	Pages  int
	Page   int
}

type Service struct {
	repo   Repository
	events Publisher
	now    func() time.Time
}

func NewService(repo Repository, events Publisher) *Service {
	return &Service{repo: repo, events: events, now: time.Now}
}

// Create validates the input, prices the items and stores a new unpaid,
// undelivered order. Customers may only order for themselves.
func (s *Service) Create(ctx context.Context, actor *auth.Claims, in CreateInput) (*models.Order, error) {
	if actor == nil {
		return nil, apperr.New(apperr.Unauthorized, "Authentication required")
	}
	if strings.TrimSpace(in.User) == "" || in.ShippingInfo == nil || in.PaymentInfo == nil || len(in.OrderItems) == 0 {
		return nil, apperr.New(apperr.Validation, "All fields are required")
	}
	userID, err := utils.ParseObjectID(in.User, "user")
	if err != nil {
		return nil, err
	}
	if !actor.Admin && actor.UserID != userID.Hex() {
		return nil, apperr.New(apperr.Forbidden, "Orders can only be placed for your own account")
	}
	if err := validateShipping(in.ShippingInfo); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.PaymentInfo.PaymentMethod) == "" {
		return nil, apperr.New(apperr.Validation, "paymentInfo.paymentMethod is required")
	}

	items := make([]models.LineItem, len(in.OrderItems))
	for i, it := range in.OrderItems {
		if err := validateItem(i, it); err != nil {
			return nil, err
		}
		price, err := ParsePrice(it.Price)
		if err != nil {
			return nil, apperr.Wrap(apperr.Validation, fmt.Sprintf("orderItems[%d]: %s", i, apperr.Message(err)), err)
		}
		it.Price = CanonicalPrice(price)
		items[i] = it
	}

	pricing, err := Price(items)
	if err != nil {
		return nil, err
	}

	now := s.now()
	order := &models.Order{
		User:          userID,
		OrderItems:    items,
		Shipping:      *in.ShippingInfo,
		Payment:       models.PaymentInfo{PaymentMethod: in.PaymentInfo.PaymentMethod},
		ItemsPrice:    pricing.Items.InexactFloat64(),
		TaxPrice:      pricing.Tax.InexactFloat64(),
		ShippingPrice: pricing.Shipping.InexactFloat64(),
		TotalPrice:    pricing.Total.InexactFloat64(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Insert(ctx, order); err != nil {
		return nil, apperr.OrPersistence(err, "Unable to create order")
	}
	s.emit(ctx, EventCreated, order)
	return order, nil
}

// Get returns the order if the actor owns it or is an admin.
func (s *Service) Get(ctx context.Context, actor *auth.Claims, id string) (*models.Order, error) {
	oid, err := utils.ParseObjectID(id, "order")
	if err != nil {
		return nil, err
	}
	order, err := s.repo.FindByID(ctx, oid)
	if err != nil {
		return nil, apperr.OrPersistence(err, "Unable to load order")
	}
	if !canAccess(actor, order) {
		return nil, apperr.New(apperr.Forbidden, "You do not have access to this order")
	}
	return order, nil
}

func (s *Service) List(ctx context.Context, q ListQuery) (*ListResult, error) {
	orders, count, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, apperr.OrPersistence(err, "Unable to list orders")
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return &ListResult{
		Orders: orders,
		Count:  count,
		Pages:  utils.Pages(count, q.Page.PerPage),
		Page:   q.Page.Page,
	}, nil
}

// MarkPaid sets isPaid and stamps paidAt. Repeating it refreshes the stamp.
func (s *Service) MarkPaid(ctx context.Context, actor *auth.Claims, id string) (*models.Order, error) {
	order, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	order, err = s.repo.SetPaid(ctx, order.ID, s.now())
	if err != nil {
		return nil, apperr.OrPersistence(err, "Unable to update order")
	}
	s.emit(ctx, EventPaid, order)
	return order, nil
}

// MarkDelivered sets isDelivered and stamps deliveredAt. Repeating it
// refreshes the stamp.
func (s *Service) MarkDelivered(ctx context.Context, id string) (*models.Order, error) {
	oid, err := utils.ParseObjectID(id, "order")
	if err != nil {
		return nil, err
	}
	order, err := s.repo.SetDelivered(ctx, oid, s.now())
	if err != nil {
		return nil, apperr.OrPersistence(err, "Unable to update order")
	}
	s.emit(ctx, EventDelivered, order)
	return order, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	oid, err := utils.ParseObjectID(id, "order")
	if err != nil {
		return err
	}
	order, err := s.repo.Delete(ctx, oid)
	if err != nil {
		return apperr.OrPersistence(err, "Unable to delete order")
	}
	s.emit(ctx, EventDeleted, order)
	return nil
}

// AttachPaymentSession records the checkout session created for the order.
func (s *Service) AttachPaymentSession(ctx context.Context, id primitive.ObjectID, sessionID string) error {
	if _, err := s.repo.SetPaymentSession(ctx, id, sessionID); err != nil {
		return apperr.OrPersistence(err, "Unable to update order")
	}
	return nil
}

// Invoice renders the order as a PDF document.
func (s *Service) Invoice(ctx context.Context, actor *auth.Claims, id string) ([]byte, *models.Order, error) {
	order, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, nil, err
	}
	pdf, err := RenderInvoice(order, s.now())
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.Internal, "Unable to render invoice", err)
	}
	return pdf, order, nil
}

func (s *Service) emit(ctx context.Context, kind string, order *models.Order) {
	if s.events == nil || order == nil {
		return
	}
	s.events.Emit(ctx, models.OrderEvent{
		Type:       kind,
		OrderID:    order.ID.Hex(),
		UserID:     order.User.Hex(),
		TotalPrice: order.TotalPrice,
		At:         s.now(),
	})
}

func canAccess(actor *auth.Claims, order *models.Order) bool {
	if actor == nil {
		return false
	}
	return actor.Admin || actor.UserID == order.User.Hex()
}

func validateShipping(s *models.ShippingInfo) error {
	fields := []struct{ name, value string }{
		{"name", s.Name},
		{"email", s.Email},
		{"street", s.Street},
		{"city", s.City},
		{"state", s.State},
		{"postalCode", s.PostalCode},
		{"country", s.Country},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return apperr.Newf(apperr.Validation, "shippingInfo.%s is required", f.name)
		}
	}
	return nil
}

func validateItem(i int, it models.LineItem) error {
	switch {
	case strings.TrimSpace(it.Title) == "":
		return apperr.Newf(apperr.Validation, "orderItems[%d].title is required", i)
	case it.Qty < 1:
		return apperr.Newf(apperr.Validation, "orderItems[%d].qty must be at least 1", i)
	case strings.TrimSpace(it.Image) == "":
		return apperr.Newf(apperr.Validation, "orderItems[%d].image is required", i)
	case it.Product.IsZero():
		return apperr.Newf(apperr.Validation, "orderItems[%d].product is required", i)
	}
	return nil
}
