package group

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/rentguard/internal/domain"
	"github.com/fkhayef/rentguard/pkg/response"
)

// Handler handles HTTP requests for group operations
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler creates a new group handler
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Routes returns the router for group endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Get("/{id}", h.GetByID)
	r.Get("/{id}/members", h.GetMembers)

	return r
}

// List handles GET /groups
// @Summary      List managed groups
// @Description  Every managed group with its entitlement and roster counts
// @Tags         groups
// @Produce      json
// @Success      200 {object} response.APIResponse{data=[]GroupResponse}
// @Router       /groups [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	summaries := h.service.Overview(r.Context())

	groupResponses := make([]*GroupResponse, len(summaries))
	for i := range summaries {
		groupResponses[i] = summaries[i].ToResponse()
	}

	response.JSONList(w, http.StatusOK, groupResponses, len(groupResponses))
}

// GetByID handles GET /groups/{id}
// @Summary      Get group roster view
// @Description  Members and entitlements of a group with the time each entitlement has left
// @Tags         groups
// @Produce      json
// @Param        id path int true "Group ID"
// @Success      200 {object} response.APIResponse{data=DetailResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /groups/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	detail, err := h.service.Detail(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrGroupNotFound) {
			response.NotFound(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to get group")
		return
	}

	response.JSON(w, http.StatusOK, detail.ToResponse(h.service.Now()))
}

// GetMembers handles GET /groups/{id}/members
// @Summary      List group members
// @Tags         groups
// @Produce      json
// @Param        id path int true "Group ID"
// @Success      200 {object} response.APIResponse{data=[]MemberResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /groups/{id}/members [get]
func (h *Handler) GetMembers(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	members, err := h.service.Members(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrGroupNotFound) {
			response.NotFound(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to get members")
		return
	}

	memberResponses := make([]*MemberResponse, len(members))
	for i, m := range members {
		memberResponses[i] = MemberToResponse(m)
	}

	response.JSONList(w, http.StatusOK, memberResponses, len(memberResponses))
}

// HandleEvent handles POST /events/group
// @Summary      Group lifecycle event
// @Description  The platform reports that the bot was added to or removed from a group
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        request body LifecycleRequest true "Lifecycle event"
// @Success      202 {object} response.APIResponse
// @Failure      400 {object} response.APIResponse
// @Router       /events/group [post]
func (h *Handler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	var req LifecycleRequest
	if err := response.DecodeEvent(r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	if err := h.service.HandleLifecycle(r.Context(), req.ToEvent()); err != nil {
		if errors.Is(err, domain.ErrInvalidGroupID) || errors.Is(err, domain.ErrInvalidGroupStatus) {
			response.BadRequest(w, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to apply group event", "group", req.GroupID, "error", err)
		response.InternalError(w, "Failed to apply group event")
		return
	}

	response.JSON(w, http.StatusAccepted, map[string]string{"message": "Event applied"})
}
