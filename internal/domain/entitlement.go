package domain

import (
	"errors"
	"fmt"
	"time"
)

// Common errors
var (
	ErrInvalidDuration = errors.New("duration must be a positive span")
	ErrInvalidGroupID  = errors.New("group id is required")
	ErrInvalidSubject  = errors.New("subject id is required")
	ErrMissingExpiry   = errors.New("expiry instant is required")
)

// Entitlement grants a subject time-bounded membership in a group.
// Absence of a record means there is no rental; overdue records stay
// in storage until the sweeper removes them.
type Entitlement struct {
	GroupID   int64     `json:"group_id"`
	SubjectID int64     `json:"subject_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewEntitlement validates and builds an entitlement record
func NewEntitlement(groupID, subjectID int64, expiresAt time.Time) (Entitlement, error) {
	if groupID == 0 {
		return Entitlement{}, ErrInvalidGroupID
	}
	if subjectID == 0 {
		return Entitlement{}, ErrInvalidSubject
	}
	if expiresAt.IsZero() {
		return Entitlement{}, ErrMissingExpiry
	}
	return Entitlement{GroupID: groupID, SubjectID: subjectID, ExpiresAt: expiresAt}, nil
}

// Overdue reports whether the entitlement has lapsed at now.
// An entitlement expiring exactly at now is overdue.
func (e Entitlement) Overdue(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Remaining returns the time left before expiry, or zero once overdue.
func (e Entitlement) Remaining(now time.Time) time.Duration {
	if e.Overdue(now) {
		return 0
	}
	return e.ExpiresAt.Sub(now)
}

// ValidateDuration rejects zero and negative spans.
func ValidateDuration(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%w: got %s", ErrInvalidDuration, d)
	}
	return nil
}
