package admin

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/rentguard/internal/domain"
	"github.com/fkhayef/rentguard/pkg/middleware"
	"github.com/fkhayef/rentguard/pkg/response"
)

// AddRequest represents the request to enroll an admin
type AddRequest struct {
	SubjectID int64 `json:"subject_id" validate:"required"`
}

// ChangeResponse reports whether an add or remove changed the registry
type ChangeResponse struct {
	SubjectID int64 `json:"subject_id"`
	Changed   bool  `json:"changed"`
}

// Handler handles HTTP requests for admin operations
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler creates a new admin handler
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Routes returns the router for admin endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/", h.Add)
	r.Delete("/{id}", h.Remove)

	return r
}

// List handles GET /admins
// @Summary      List admins
// @Tags         admins
// @Produce      json
// @Success      200 {object} response.APIResponse{data=[]int64}
// @Router       /admins [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	admins := h.service.List(r.Context())
	if admins == nil {
		admins = []int64{}
	}
	response.JSONList(w, http.StatusOK, admins, len(admins))
}

// Add handles POST /admins
// @Summary      Enroll an admin
// @Tags         admins
// @Accept       json
// @Produce      json
// @Param        request body AddRequest true "Admin to enroll"
// @Success      200 {object} response.APIResponse{data=ChangeResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /admins [post]
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	var req AddRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	added, err := h.service.Add(r.Context(), req.SubjectID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSubject) {
			response.BadRequest(w, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to add admin", "error", err)
		response.InternalError(w, "Failed to add admin")
		return
	}
	if callerID, ok := middleware.GetAdminID(r.Context()); ok && added {
		h.logger.InfoContext(r.Context(), "admin enrolled by", "subject", req.SubjectID, "admin", callerID)
	}

	response.JSON(w, http.StatusOK, &ChangeResponse{SubjectID: req.SubjectID, Changed: added})
}

// Remove handles DELETE /admins/{id}
// @Summary      Remove an admin
// @Tags         admins
// @Produce      json
// @Param        id path int true "Subject ID"
// @Success      200 {object} response.APIResponse{data=ChangeResponse}
// @Router       /admins/{id} [delete]
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	subjectID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid subject ID")
		return
	}

	removed, err := h.service.Remove(r.Context(), subjectID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to remove admin", "error", err)
		response.InternalError(w, "Failed to remove admin")
		return
	}

	response.JSON(w, http.StatusOK, &ChangeResponse{SubjectID: subjectID, Changed: removed})
}
