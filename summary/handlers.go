package summary

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"storefront/utils"
)

type Handler struct {
	agg *Aggregator
}

func NewHandler(agg *Aggregator) *Handler {
	return &Handler{agg: agg}
}

// GET /api/summary
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	rep, err := h.agg.Report(r.Context())
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithMessage(w, http.StatusOK, "Get summary", rep)
}
