package pay

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/auth"
	"storefront/middleware"
	"storefront/models"
	"storefront/stripe"
	"storefront/utils"
)

const (
	checkoutTimeout = 15 * time.Second
	// lockTTL outlives checkoutTimeout so a lock never lapses mid-request.
	lockTTL = 30 * time.Second
)

type Orders interface {
	Get(ctx context.Context, actor *auth.Claims, id string) (*models.Order, error)
	AttachPaymentSession(ctx context.Context, id primitive.ObjectID, sessionID string) error
}

type SessionCreator interface {
	CreateCheckoutSession(ctx context.Context, order *models.Order, redirect string) (*stripe.Session, error)
}

type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Unlock(ctx context.Context, key, token string)
}

type Handler struct {
	orders   Orders
	sessions SessionCreator
	locks    Locker
}

func NewHandler(orders Orders, sessions SessionCreator, locks Locker) *Handler {
	return &Handler{orders: orders, sessions: sessions, locks: locks}
}

type checkoutRequest struct {
	OrderID     string `json:"orderId"`
	RedirectURL string `json:"redirectUrl"`
}

// POST /api/payments/stripe
func (h *Handler) PayWithStripe(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), checkoutTimeout)
	defer cancel()

	var body checkoutRequest
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	body.RedirectURL = strings.TrimSpace(body.RedirectURL)
	if body.OrderID == "" || body.RedirectURL == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "orderId and redirectUrl are required")
		return
	}

	claims, _ := middleware.ClaimsFromContext(ctx)
	order, err := h.orders.Get(ctx, claims, body.OrderID)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if order.IsPaid {
		utils.RespondWithError(w, http.StatusBadRequest, "Order is already paid")
		return
	}

	lockKey := "checkout_lock:" + order.ID.Hex()
	token, acquired, err := h.locks.Lock(ctx, lockKey, lockTTL)
	if err != nil || !acquired {
		utils.RespondWithError(w, http.StatusTooManyRequests, "Checkout already in progress, please retry")
		return
	}
	defer h.locks.Unlock(context.WithoutCancel(ctx), lockKey, token)

	session, err := h.sessions.CreateCheckoutSession(ctx, order, body.RedirectURL)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if err := h.orders.AttachPaymentSession(ctx, order.ID, session.ID); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"url": session.URL, "sessionId": session.ID})
}
