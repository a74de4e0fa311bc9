package orders

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"

	"storefront/middleware"
	"storefront/utils"
)

const requestTimeout = 5 * time.Second

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// POST /api/orders
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	claims, _ := middleware.ClaimsFromContext(ctx)

	var in CreateInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	order, err := h.svc.Create(ctx, claims, in)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithMessage(w, http.StatusCreated, "Order created successfully", order)
}

// GET /api/orders
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.list(w, r, ListQuery{Page: utils.ParsePage(r, 10, 100)})
}

// GET /api/users/:id/orders
func (h *Handler) GetUserOrders(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	claims, _ := middleware.ClaimsFromContext(r.Context())
	userID, err := utils.ParseObjectID(ps.ByName("id"), "user")
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if !middleware.CanAccessUser(claims, userID.Hex()) {
		utils.RespondWithError(w, http.StatusForbidden, "Unauthorized")
		return
	}
	h.list(w, r, ListQuery{UserID: userID, Page: utils.ParsePage(r, 10, 100)})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, q ListQuery) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	res, err := h.svc.List(ctx, q)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"message": "Get orders",
		"pages":   res.Pages,
		"page":    res.Page,
		"count":   res.Count,
		"data":    res.Orders,
	})
}

// GET /api/orders/:id
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	claims, _ := middleware.ClaimsFromContext(ctx)
	order, err := h.svc.Get(ctx, claims, ps.ByName("id"))
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithMessage(w, http.StatusOK, "Get order", order)
}

// DELETE /api/orders/:id
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.svc.Delete(ctx, ps.ByName("id")); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithMessage(w, http.StatusOK, "Order deleted successfully", nil)
}

// PATCH /api/orders/:id/pay
func (h *Handler) MarkPaid(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	claims, _ := middleware.ClaimsFromContext(ctx)
	order, err := h.svc.MarkPaid(ctx, claims, ps.ByName("id"))
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithMessage(w, http.StatusOK, "Order marked as paid", order)
}

// PATCH /api/orders/:id/deliver
func (h *Handler) MarkDelivered(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	order, err := h.svc.MarkDelivered(ctx, ps.ByName("id"))
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithMessage(w, http.StatusOK, "Order marked as delivered", order)
}

// GET /api/orders/:id/invoice
func (h *Handler) Invoice(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	claims, _ := middleware.ClaimsFromContext(ctx)
	pdf, order, err := h.svc.Invoice(ctx, claims, ps.ByName("id"))
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=invoice-"+order.ID.Hex()+".pdf")
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
