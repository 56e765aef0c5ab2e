package notification

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fkhayef/rentguard/internal/store"
	"github.com/fkhayef/rentguard/pkg/middleware"
	"github.com/fkhayef/rentguard/pkg/response"
)

// Handler handles HTTP requests for the calling admin's inbox
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler creates a new notification handler
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Routes returns the router for notification endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Get("/unread-count", h.GetUnreadCount)
	r.Post("/read-all", h.MarkAllAsRead)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/read", h.MarkAsRead)

	return r
}

// NotificationResponse represents a notification in API responses
type NotificationResponse struct {
	ID            string  `json:"id"`
	Kind          Kind    `json:"kind"`
	Message       string  `json:"message"`
	Delivered     bool    `json:"delivered"`
	DeliveryError *string `json:"delivery_error,omitempty"`
	IsRead        bool    `json:"is_read"`
	CreatedAt     string  `json:"created_at"`
}

func toResponse(n *Notification) *NotificationResponse {
	return &NotificationResponse{
		ID:            n.ID.String(),
		Kind:          n.Kind,
		Message:       n.Message,
		Delivered:     n.Delivered,
		DeliveryError: n.DeliveryError,
		IsRead:        n.IsRead,
		CreatedAt:     store.FormatInstant(n.CreatedAt),
	}
}

func (h *Handler) recipient(w http.ResponseWriter, r *http.Request) (int64, bool) {
	adminID, ok := middleware.GetAdminID(r.Context())
	if !ok {
		response.Unauthorized(w, "Admin identity required")
	}
	return adminID, ok
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotificationNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrNotRecipient):
		response.Forbidden(w, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), fallback, "error", err)
		response.InternalError(w, fallback)
	}
}

// List handles GET /notifications
// @Summary      List the caller's notifications
// @Description  Newest first; pass unread_only=true to hide read ones
// @Tags         notifications
// @Produce      json
// @Param        page query int false "Page number"
// @Param        per_page query int false "Items per page (max 100)"
// @Param        unread_only query bool false "Only unread notifications"
// @Success      200 {object} response.APIResponse{data=[]NotificationResponse}
// @Router       /notifications [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	adminID, ok := h.recipient(w, r)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	unreadOnly := r.URL.Query().Get("unread_only") == "true"
	page, perPage = Page(page, perPage)

	notifications, total, err := h.service.ListByRecipientID(r.Context(), adminID, page, perPage, unreadOnly)
	if err != nil {
		h.writeError(w, r, err, "Failed to list notifications")
		return
	}

	items := make([]*NotificationResponse, len(notifications))
	for i, n := range notifications {
		items[i] = toResponse(n)
	}

	response.JSONWithMeta(w, http.StatusOK, items, &response.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: (total + perPage - 1) / perPage,
	})
}

// Get handles GET /notifications/{id}
// @Summary      Get a notification
// @Tags         notifications
// @Produce      json
// @Param        id path string true "Notification ID"
// @Success      200 {object} response.APIResponse{data=NotificationResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /notifications/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	adminID, ok := h.recipient(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid notification ID")
		return
	}

	n, err := h.service.GetByID(r.Context(), id, adminID)
	if err != nil {
		h.writeError(w, r, err, "Failed to get notification")
		return
	}
	response.JSON(w, http.StatusOK, toResponse(n))
}

// GetUnreadCount handles GET /notifications/unread-count
// @Summary      Count unread notifications
// @Tags         notifications
// @Produce      json
// @Success      200 {object} response.APIResponse
// @Router       /notifications/unread-count [get]
func (h *Handler) GetUnreadCount(w http.ResponseWriter, r *http.Request) {
	adminID, ok := h.recipient(w, r)
	if !ok {
		return
	}

	count, err := h.service.GetUnreadCount(r.Context(), adminID)
	if err != nil {
		h.writeError(w, r, err, "Failed to get unread count")
		return
	}
	response.JSON(w, http.StatusOK, map[string]int{"unread_count": count})
}

// MarkAsRead handles POST /notifications/{id}/read
// @Summary      Mark a notification as read
// @Tags         notifications
// @Produce      json
// @Param        id path string true "Notification ID"
// @Success      200 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /notifications/{id}/read [post]
func (h *Handler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	adminID, ok := h.recipient(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid notification ID")
		return
	}

	if err := h.service.MarkAsRead(r.Context(), id, adminID); err != nil {
		h.writeError(w, r, err, "Failed to mark notification as read")
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"message": "Notification marked as read"})
}

// MarkAllAsRead handles POST /notifications/read-all
// @Summary      Mark every notification as read
// @Tags         notifications
// @Produce      json
// @Success      200 {object} response.APIResponse
// @Router       /notifications/read-all [post]
func (h *Handler) MarkAllAsRead(w http.ResponseWriter, r *http.Request) {
	adminID, ok := h.recipient(w, r)
	if !ok {
		return
	}

	changed, err := h.service.MarkAllAsRead(r.Context(), adminID)
	if err != nil {
		h.writeError(w, r, err, "Failed to mark all notifications as read")
		return
	}
	response.JSON(w, http.StatusOK, map[string]int64{"marked": changed})
}
