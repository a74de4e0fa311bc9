package users

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

// POST /api/users/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var in RegisterInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	user, err := h.svc.Register(ctx, in)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithMessage(w, http.StatusCreated, "User created successfully", user)
}

// POST /api/users/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	user, err := h.svc.Login(ctx, in.Email, in.Password)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithMessage(w, http.StatusOK, "Login user successfully", user)
}

// GET /api/users
func (h *Handler) GetUsers(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	res, err := h.svc.List(ctx, utils.ParsePage(r, 8, 100))
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"message": "Get users",
		"pages":   res.Pages,
		"page":    res.Page,
		"count":   res.Count,
		"data":    res.Users,
	})
}

// PATCH /api/users/:id/name
func (h *Handler) UpdateName(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var in struct {
		Name string `json:"name"`
	}
	h.updateProfile(w, r, &in, "User name updated successfully", func(ctx context.Context) (any, error) {
		claims, _ := middleware.ClaimsFromContext(ctx)
		return h.svc.UpdateName(ctx, claims, ps.ByName("id"), in.Name)
	})
}

// PATCH /api/users/:id/email
func (h *Handler) UpdateEmail(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var in struct {
		Email string `json:"email"`
	}
	h.updateProfile(w, r, &in, "User email updated successfully", func(ctx context.Context) (any, error) {
		claims, _ := middleware.ClaimsFromContext(ctx)
		return h.svc.UpdateEmail(ctx, claims, ps.ByName("id"), in.Email)
	})
}

// PATCH /api/users/:id/password
func (h *Handler) UpdatePassword(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var in struct {
		OldPassword string `json:"oldPassword"`
		NewPassword string `json:"newPassword"`
	}
	h.updateProfile(w, r, &in, "User password updated successfully", func(ctx context.Context) (any, error) {
		claims, _ := middleware.ClaimsFromContext(ctx)
		return h.svc.UpdatePassword(ctx, claims, ps.ByName("id"), in.OldPassword, in.NewPassword)
	})
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request, in any, msg string, apply func(context.Context) (any, error)) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := utils.DecodeJSON(r, in); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	user, err := apply(ctx)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithMessage(w, http.StatusOK, msg, user)
}
