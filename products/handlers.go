package products

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

// GET /api/products?q=&page=&perpage=
func (h *Handler) GetProducts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	res, err := h.svc.List(ctx, r.URL.Query().Get("q"), utils.ParsePage(r, 8, 100))
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"message": "Get products",
		"pages":   res.Pages,
		"page":    res.Page,
		"count":   res.Count,
		"data":    res.Products,
	})
}

// GET /api/products/:id
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	p, err := h.svc.Get(ctx, ps.ByName("id"))
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithMessage(w, http.StatusOK, "Get product", p)
}

// POST /api/products
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var in Input
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	p, err := h.svc.Create(ctx, in)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithMessage(w, http.StatusCreated, "Product created successfully", p)
}

// PUT /api/products/:id
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var in Input
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	p, err := h.svc.Update(ctx, ps.ByName("id"), in)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithMessage(w, http.StatusOK, "Product updated successfully", p)
}

// DELETE /api/products/:id
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.svc.Delete(ctx, ps.ByName("id")); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithMessage(w, http.StatusOK, "Product deleted successfully", nil)
}

// POST /api/products/seed
func (h *Handler) SeedProducts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	n, err := h.svc.Seed(ctx)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithMessage(w, http.StatusCreated, "Products seeded successfully", utils.M{"inserted": n})
}

// GET /api/users/:id/products
func (h *Handler) GetFavorites(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	claims, _ := middleware.ClaimsFromContext(ctx)
	items, err := h.svc.Favorites(ctx, claims, ps.ByName("id"))
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithMessage(w, http.StatusOK, "Get favorite products", items)
}

// PATCH /api/users/:id/products/:productId
func (h *Handler) AddFavorite(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	claims, _ := middleware.ClaimsFromContext(ctx)
	if err := h.svc.AddFavorite(ctx, claims, ps.ByName("id"), ps.ByName("productId")); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithMessage(w, http.StatusOK, "Product added to favorites", nil)
}

// DELETE /api/users/:id/products/:productId
func (h *Handler) RemoveFavorite(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	claims, _ := middleware.ClaimsFromContext(ctx)
	if err := h.svc.RemoveFavorite(ctx, claims, ps.ByName("id"), ps.ByName("productId")); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithMessage(w, http.StatusOK, "Product removed from favorites", nil)
}
