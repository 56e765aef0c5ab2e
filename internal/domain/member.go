package domain

import (
	"errors"
	"time"
)

// ErrMissingJoinTime is returned when a roster record has no join instant
var ErrMissingJoinTime = errors.New("join time is required")

// MemberStatus is the platform's view of a subject inside a group
type MemberStatus string

const (
	StatusAbsent        MemberStatus = ""
	StatusCreator       MemberStatus = "creator"
	StatusAdministrator MemberStatus = "administrator"
	StatusMember        MemberStatus = "member"
	StatusLeft          MemberStatus = "left"
	StatusKicked        MemberStatus = "kicked"
)

// Present reports whether the status puts the subject on the roster.
func (s MemberStatus) Present() bool {
	switch s {
	case StatusCreator, StatusAdministrator, StatusMember:
		return true
	}
	return false
}

// Gone reports whether the status means the subject is off the roster.
func (s MemberStatus) Gone() bool {
	switch s {
	case StatusAbsent, StatusLeft, StatusKicked:
		return true
	}
	return false
}

// MemberRecord is the last-known roster state of a subject in a group
type MemberRecord struct {
	GroupID     int64        `json:"group_id"`
	SubjectID   int64        `json:"subject_id"`
	DisplayName string       `json:"display_name"`
	Handle      string       `json:"handle"`
	RoleStatus  MemberStatus `json:"role_status"`
	JoinedAt    time.Time    `json:"joined_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// NewMemberRecord validates and builds a roster record joined at joinedAt
func NewMemberRecord(groupID, subjectID int64, displayName, handle string, status MemberStatus, joinedAt time.Time) (MemberRecord, error) {
	if groupID == 0 {
		return MemberRecord{}, ErrInvalidGroupID
	}
	if subjectID == 0 {
		return MemberRecord{}, ErrInvalidSubject
	}
	if joinedAt.IsZero() {
		return MemberRecord{}, ErrMissingJoinTime
	}
	return MemberRecord{
		GroupID:     groupID,
		SubjectID:   subjectID,
		DisplayName: displayName,
		Handle:      handle,
		RoleStatus:  status,
		JoinedAt:    joinedAt,
		UpdatedAt:   joinedAt,
	}, nil
}

// MembershipEvent is a roster change reported by the chat platform
type MembershipEvent struct {
	GroupID     int64        `json:"group_id"`
	SubjectID   int64        `json:"subject_id"`
	DisplayName string       `json:"display_name"`
	Handle      string       `json:"handle"`
	OldStatus   MemberStatus `json:"old_status"`
	NewStatus   MemberStatus `json:"new_status"`
	Timestamp   time.Time    `json:"timestamp"`
}

// Transition classifies a membership event
type Transition int

const (
	TransitionNone Transition = iota
	TransitionJoin
	TransitionRoleChange
	TransitionLeave
)

// Transition returns what kind of roster change the event describes.
func (e MembershipEvent) Transition() Transition {
	switch {
	case e.OldStatus.Gone() && e.NewStatus.Present():
		return TransitionJoin
	case e.OldStatus.Present() && e.NewStatus.Present():
		return TransitionRoleChange
	case e.OldStatus.Present() && (e.NewStatus == StatusLeft || e.NewStatus == StatusKicked):
		return TransitionLeave
	}
	return TransitionNone
}
