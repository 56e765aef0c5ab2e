package entitlement

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/rentguard/internal/domain"
	"github.com/fkhayef/rentguard/internal/store"
	"github.com/fkhayef/rentguard/pkg/middleware"
	"github.com/fkhayef/rentguard/pkg/response"
)

// Handler handles HTTP requests for entitlement operations
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler creates a new entitlement handler
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Routes returns the router for fleet-wide entitlement endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.GrantEverywhere)
	r.Delete("/{subject}", h.RevokeEverywhere)

	return r
}

// GroupRoutes returns the router for one group's entitlements. It expects
// the group id in the "id" URL parameter of the parent router.
func (h *Handler) GroupRoutes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/", h.Grant)
	r.Get("/{subjectId}", h.Get)
	r.Delete("/{subjectId}", h.Revoke)
	r.Post("/{subjectId}/extend", h.Extend)

	return r
}

func parseID(r *http.Request, param string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid " + param)
	}
	return id, nil
}

// writeError maps service errors onto response codes
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrInvalidDuration),
		errors.Is(err, domain.ErrInvalidSubject),
		errors.Is(err, domain.ErrInvalidGroupID):
		response.BadRequest(w, err.Error())
	case errors.Is(err, store.ErrGroupNotManaged),
		errors.Is(err, ErrSubjectNotTracked):
		response.NotFound(w, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), fallback, "error", err)
		response.InternalError(w, fallback)
	}
}

func (h *Handler) audit(r *http.Request, msg string, args ...any) {
	if adminID, ok := middleware.GetAdminID(r.Context()); ok {
		args = append(args, "admin", adminID)
	}
	h.logger.InfoContext(r.Context(), msg, args...)
}

// List handles GET /groups/{id}/entitlements
// @Summary      List a group's entitlements
// @Description  Entitlements in the order they were first granted, including overdue ones not yet swept
// @Tags         entitlements
// @Produce      json
// @Param        id path int true "Group ID"
// @Success      200 {object} response.APIResponse{data=[]EntitlementResponse}
// @Router       /groups/{id}/entitlements [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	groupID, err := parseID(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	now := h.service.Now()
	entitlements := h.service.ListByGroup(r.Context(), groupID)
	items := make([]*EntitlementResponse, len(entitlements))
	for i, e := range entitlements {
		items[i] = ToResponse(e, now)
	}

	response.JSONList(w, http.StatusOK, items, len(items))
}

// Grant handles POST /groups/{id}/entitlements
// @Summary      Grant an entitlement
// @Description  Set expires_at to now plus the duration, replacing any existing entitlement
// @Tags         entitlements
// @Accept       json
// @Produce      json
// @Param        id path int true "Group ID"
// @Param        request body GrantRequest true "Grant request"
// @Success      201 {object} response.APIResponse{data=EntitlementResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /groups/{id}/entitlements [post]
func (h *Handler) Grant(w http.ResponseWriter, r *http.Request) {
	groupID, err := parseID(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	var req GrantRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	d, err := ParseDuration(req.Duration)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	expiresAt, err := h.service.Grant(r.Context(), groupID, req.SubjectID, d)
	if err != nil {
		h.writeError(w, r, err, "Failed to grant entitlement")
		return
	}
	h.audit(r, "grant requested", "group", groupID, "subject", req.SubjectID, "duration", req.Duration)

	e := domain.Entitlement{GroupID: groupID, SubjectID: req.SubjectID, ExpiresAt: expiresAt}
	response.JSON(w, http.StatusCreated, ToResponse(e, h.service.Now()))
}

// Get handles GET /groups/{id}/entitlements/{subjectId}
// @Summary      Get an entitlement
// @Tags         entitlements
// @Produce      json
// @Param        id path int true "Group ID"
// @Param        subjectId path int true "Subject ID"
// @Success      200 {object} response.APIResponse{data=EntitlementResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /groups/{id}/entitlements/{subjectId} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	groupID, err := parseID(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}
	subjectID, err := parseID(r, "subjectId")
	if err != nil {
		response.BadRequest(w, "Invalid subject ID")
		return
	}

	expiresAt, ok := h.service.Get(r.Context(), groupID, subjectID)
	if !ok {
		response.NotFound(w, "No entitlement for this subject")
		return
	}

	e := domain.Entitlement{GroupID: groupID, SubjectID: subjectID, ExpiresAt: expiresAt}
	response.JSON(w, http.StatusOK, ToResponse(e, h.service.Now()))
}

// Extend handles POST /groups/{id}/entitlements/{subjectId}/extend
// @Summary      Extend an entitlement
// @Description  Stack the duration onto an active entitlement, or grant from now when missing or overdue
// @Tags         entitlements
// @Accept       json
// @Produce      json
// @Param        id path int true "Group ID"
// @Param        subjectId path int true "Subject ID"
// @Param        request body ExtendRequest true "Extension"
// @Success      200 {object} response.APIResponse{data=EntitlementResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /groups/{id}/entitlements/{subjectId}/extend [post]
func (h *Handler) Extend(w http.ResponseWriter, r *http.Request) {
	groupID, err := parseID(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}
	subjectID, err := parseID(r, "subjectId")
	if err != nil {
		response.BadRequest(w, "Invalid subject ID")
		return
	}

	var req ExtendRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	d, err := ParseDuration(req.Duration)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	expiresAt, err := h.service.Extend(r.Context(), groupID, subjectID, d)
	if err != nil {
		h.writeError(w, r, err, "Failed to extend entitlement")
		return
	}
	h.audit(r, "extension requested", "group", groupID, "subject", subjectID, "duration", req.Duration)

	e := domain.Entitlement{GroupID: groupID, SubjectID: subjectID, ExpiresAt: expiresAt}
	response.JSON(w, http.StatusOK, ToResponse(e, h.service.Now()))
}

// Revoke handles DELETE /groups/{id}/entitlements/{subjectId}
// @Summary      Revoke an entitlement
// @Description  Delete the record without removing the subject from the group; idempotent
// @Tags         entitlements
// @Produce      json
// @Param        id path int true "Group ID"
// @Param        subjectId path int true "Subject ID"
// @Success      200 {object} response.APIResponse
// @Router       /groups/{id}/entitlements/{subjectId} [delete]
func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	groupID, err := parseID(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}
	subjectID, err := parseID(r, "subjectId")
	if err != nil {
		response.BadRequest(w, "Invalid subject ID")
		return
	}

	removed, err := h.service.Revoke(r.Context(), groupID, subjectID)
	if err != nil {
		h.writeError(w, r, err, "Failed to revoke entitlement")
		return
	}
	h.audit(r, "revoke requested", "group", groupID, "subject", subjectID, "removed", removed)

	response.JSON(w, http.StatusOK, map[string]bool{"removed": removed})
}

// GrantEverywhere handles POST /entitlements
// @Summary      Grant in every joined group
// @Description  Give the subject the same expiry in every managed group whose roster lists them
// @Tags         entitlements
// @Accept       json
// @Produce      json
// @Param        request body GrantEverywhereRequest true "Grant request"
// @Success      201 {object} response.APIResponse{data=FleetResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /entitlements [post]
func (h *Handler) GrantEverywhere(w http.ResponseWriter, r *http.Request) {
	var req GrantEverywhereRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	d, err := ParseDuration(req.Duration)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	subjectID, err := h.service.ResolveSubject(r.Context(), req.Subject)
	if err != nil {
		h.writeError(w, r, err, "Failed to resolve subject")
		return
	}

	expiresAt, groups, err := h.service.GrantEverywhere(r.Context(), subjectID, d)
	if err != nil {
		h.writeError(w, r, err, "Failed to grant entitlement")
		return
	}
	h.audit(r, "fleet grant requested", "subject", subjectID, "duration", req.Duration)

	response.JSON(w, http.StatusCreated, &FleetResponse{
		SubjectID: subjectID,
		ExpiresAt: store.FormatInstant(expiresAt),
		Groups:    groups,
	})
}

// RevokeEverywhere handles DELETE /entitlements/{subject}
// @Summary      Revoke in every group
// @Tags         entitlements
// @Produce      json
// @Param        subject path string true "Subject ID or @handle"
// @Success      200 {object} response.APIResponse{data=FleetResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /entitlements/{subject} [delete]
func (h *Handler) RevokeEverywhere(w http.ResponseWriter, r *http.Request) {
	subjectID, err := h.service.ResolveSubject(r.Context(), chi.URLParam(r, "subject"))
	if err != nil {
		h.writeError(w, r, err, "Failed to resolve subject")
		return
	}

	groups, err := h.service.RevokeEverywhere(r.Context(), subjectID)
	if err != nil {
		h.writeError(w, r, err, "Failed to revoke entitlements")
		return
	}
	h.audit(r, "fleet revoke requested", "subject", subjectID, "groups", groups)

	if groups == nil {
		groups = []int64{}
	}
	response.JSON(w, http.StatusOK, &FleetResponse{SubjectID: subjectID, Groups: groups})
}
