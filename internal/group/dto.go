package group

import (
	"time"

	"github.com/fkhayef/rentguard/internal/domain"
	"github.com/fkhayef/rentguard/internal/entitlement"
	"github.com/fkhayef/rentguard/internal/store"
)

// LifecycleRequest represents a group lifecycle event from the platform
type LifecycleRequest struct {
	GroupID   int64              `json:"group_id" validate:"required"`
	Title     string             `json:"title"`
	NewStatus domain.GroupStatus `json:"new_status" validate:"required" enums:"added,removed"`
}

// ToEvent converts the request into a domain event
func (r *LifecycleRequest) ToEvent() domain.GroupEvent {
	return domain.GroupEvent{GroupID: r.GroupID, Title: r.Title, NewStatus: r.NewStatus}
}

// GroupResponse represents a managed group in the overview
type GroupResponse struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Entitlements int    `json:"entitlements"`
	Members      int    `json:"members"`
}

// MemberResponse represents a roster record
type MemberResponse struct {
	SubjectID   int64               `json:"subject_id"`
	DisplayName string              `json:"display_name"`
	Handle      string              `json:"handle"`
	RoleStatus  domain.MemberStatus `json:"role_status"`
	JoinedAt    string              `json:"joined_at"`
	UpdatedAt   string              `json:"updated_at"`
}

// RosterEntryResponse represents one subject in a group's roster view
type RosterEntryResponse struct {
	SubjectID   int64               `json:"subject_id"`
	OnRoster    bool                `json:"on_roster"`
	DisplayName string              `json:"display_name,omitempty"`
	Handle      string              `json:"handle,omitempty"`
	RoleStatus  domain.MemberStatus `json:"role_status,omitempty"`
	JoinedAt    string              `json:"joined_at,omitempty"`
	ExpiresAt   string              `json:"expires_at,omitempty"`
	Remaining   string              `json:"remaining,omitempty"`
	Overdue     bool                `json:"overdue"`
}

// DetailResponse represents a group with its roster view
type DetailResponse struct {
	ID     int64                  `json:"id"`
	Title  string                 `json:"title"`
	Roster []*RosterEntryResponse `json:"roster"`
}

// ToResponse converts a Summary to a GroupResponse DTO
func (s *Summary) ToResponse() *GroupResponse {
	return &GroupResponse{
		ID:           s.ID,
		Title:        s.Title,
		Entitlements: s.Entitlements,
		Members:      s.Members,
	}
}

// MemberToResponse converts a roster record to a MemberResponse DTO
func MemberToResponse(m domain.MemberRecord) *MemberResponse {
	return &MemberResponse{
		SubjectID:   m.SubjectID,
		DisplayName: m.DisplayName,
		Handle:      m.Handle,
		RoleStatus:  m.RoleStatus,
		JoinedAt:    store.FormatInstant(m.JoinedAt),
		UpdatedAt:   store.FormatInstant(m.UpdatedAt),
	}
}

// ToResponse converts a Detail to a DetailResponse DTO as seen at now
func (d *Detail) ToResponse(now time.Time) *DetailResponse {
	resp := &DetailResponse{
		ID:     d.ID,
		Title:  d.Title,
		Roster: make([]*RosterEntryResponse, len(d.Entries)),
	}
	for i, entry := range d.Entries {
		item := &RosterEntryResponse{SubjectID: entry.SubjectID}
		if m := entry.Member; m != nil {
			item.OnRoster = true
			item.DisplayName = m.DisplayName
			item.Handle = m.Handle
			item.RoleStatus = m.RoleStatus
			item.JoinedAt = store.FormatInstant(m.JoinedAt)
		}
		if entry.ExpiresAt != nil {
			e := domain.Entitlement{GroupID: d.ID, SubjectID: entry.SubjectID, ExpiresAt: *entry.ExpiresAt}
			item.ExpiresAt = store.FormatInstant(e.ExpiresAt)
			item.Remaining = entitlement.FormatRemaining(e.Remaining(now))
			item.Overdue = e.Overdue(now)
		}
		resp.Roster[i] = item
	}
	return resp
}
