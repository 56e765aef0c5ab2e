package entitlement

import (
	"fmt"
	"time"

	"github.com/fkhayef/rentguard/internal/domain"
	"github.com/fkhayef/rentguard/internal/store"
)

// GrantRequest represents the request to grant an entitlement in one group
type GrantRequest struct {
	SubjectID int64  `json:"subject_id" validate:"required"`
	Duration  string `json:"duration" validate:"required" example:"1m"`
}

// ExtendRequest represents the request to extend an entitlement
type ExtendRequest struct {
	Duration string `json:"duration" validate:"required" example:"2w"`
}

// GrantEverywhereRequest grants the same span in every group the subject
// is on. Subject is a numeric id or an "@handle".
type GrantEverywhereRequest struct {
	Subject  string `json:"subject" validate:"required" example:"@alice"`
	Duration string `json:"duration" validate:"required" example:"1w"`
}

// EntitlementResponse represents an entitlement in API responses
type EntitlementResponse struct {
	GroupID          int64  `json:"group_id"`
	SubjectID        int64  `json:"subject_id"`
	ExpiresAt        string `json:"expires_at"`
	Remaining        string `json:"remaining"`
	RemainingSeconds int64  `json:"remaining_seconds"`
	Overdue          bool   `json:"overdue"`
}

// FleetResponse reports a grant or revoke applied across groups
type FleetResponse struct {
	SubjectID int64   `json:"subject_id"`
	ExpiresAt string  `json:"expires_at,omitempty"`
	Groups    []int64 `json:"groups"`
}

// ToResponse converts an entitlement to its response DTO as seen at now
func ToResponse(e domain.Entitlement, now time.Time) *EntitlementResponse {
	remaining := e.Remaining(now)
	return &EntitlementResponse{
		GroupID:          e.GroupID,
		SubjectID:        e.SubjectID,
		ExpiresAt:        store.FormatInstant(e.ExpiresAt),
		Remaining:        FormatRemaining(remaining),
		RemainingSeconds: int64(remaining / time.Second),
		Overdue:          e.Overdue(now),
	}
}

// FormatRemaining renders a span as days, hours and minutes, e.g. "3d 4h 12m"
func FormatRemaining(d time.Duration) string {
	if d <= 0 {
		return "expired"
	}
	days := d / day
	d -= days * day
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
