package reviews

import (
	"context"
	"net/http"
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

// GET /api/products/:id/reviews
func (h *Handler) GetReviews(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	sum, err := h.svc.ListForProduct(ctx, ps.ByName("id"))
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"message": "Get reviews",
		"data":    sum.Reviews,
		"count":   sum.Count,
		"rating":  sum.Rating,
	})
}

// POST /api/reviews
func (h *Handler) CreateReview(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var in CreateInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	claims, _ := middleware.ClaimsFromContext(ctx)
	rv, err := h.svc.Create(ctx, claims, in)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithMessage(w, http.StatusCreated, "Review created successfully", rv)
}

// DELETE /api/reviews/:id
func (h *Handler) DeleteReview(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	rv, err := h.svc.Delete(ctx, ps.ByName("id"))
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithMessage(w, http.StatusOK, "Review deleted successfully", rv)
}
