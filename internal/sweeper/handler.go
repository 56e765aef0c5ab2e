package sweeper

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/rentguard/pkg/response"
)

// Handler exposes manual sweeps
type Handler struct {
	sweeper *Sweeper
}

// NewHandler creates a new sweep handler
func NewHandler(sweeper *Sweeper) *Handler {
	return &Handler{sweeper: sweeper}
}

// Routes returns the router for sweep endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Run)

	return r
}

// Run handles POST /sweeps
// @Summary      Run a sweep now
// @Description  Revoke every overdue entitlement immediately; waits for a scheduled sweep in progress
// @Tags         sweeps
// @Produce      json
// @Success      200 {object} response.APIResponse{data=Result}
// @Router       /sweeps [post]
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	result := h.sweeper.Sweep(r.Context())
	response.JSON(w, http.StatusOK, result)
}
