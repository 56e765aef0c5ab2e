package member

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/fkhayef/rentguard/internal/domain"
	"github.com/fkhayef/rentguard/pkg/response"
)

// EventRequest represents a membership change reported by the platform
type EventRequest struct {
	GroupID     int64               `json:"group_id" validate:"required"`
	SubjectID   int64               `json:"subject_id" validate:"required"`
	DisplayName string              `json:"display_name"`
	Handle      string              `json:"handle"`
	OldStatus   domain.MemberStatus `json:"old_status"`
	NewStatus   domain.MemberStatus `json:"new_status"`
	Timestamp   *time.Time          `json:"timestamp,omitempty"`
}

// ToEvent converts the request into a domain event
func (r *EventRequest) ToEvent() domain.MembershipEvent {
	event := domain.MembershipEvent{
		GroupID:     r.GroupID,
		SubjectID:   r.SubjectID,
		DisplayName: r.DisplayName,
		Handle:      r.Handle,
		OldStatus:   r.OldStatus,
		NewStatus:   r.NewStatus,
	}
	if r.Timestamp != nil {
		event.Timestamp = *r.Timestamp
	}
	return event
}

// EventResponse reports what an event did
type EventResponse struct {
	Outcome Outcome `json:"outcome"`
}

// Handler handles inbound membership events
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler creates a new membership handler
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// HandleEvent handles POST /events/membership
// @Summary      Membership event
// @Description  Reconcile the roster from a platform membership change
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        request body EventRequest true "Membership event"
// @Success      202 {object} response.APIResponse{data=EventResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /events/membership [post]
func (h *Handler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if err := response.DecodeEvent(r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	outcome, err := h.service.HandleEvent(r.Context(), req.ToEvent())
	if err != nil {
		if errors.Is(err, domain.ErrInvalidGroupID) || errors.Is(err, domain.ErrInvalidSubject) {
			response.BadRequest(w, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to apply membership event", "group", req.GroupID, "subject", req.SubjectID, "error", err)
		response.InternalError(w, "Failed to apply membership event")
		return
	}

	response.JSON(w, http.StatusAccepted, &EventResponse{Outcome: outcome})
}
