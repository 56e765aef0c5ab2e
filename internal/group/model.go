package group

import (
	"time"

	"github.com/fkhayef/rentguard/internal/domain"
)

// Summary is a managed group with the sizes of its entitlement map and roster
type Summary struct {
	domain.Group
	Entitlements int
	Members      int
}

// RosterEntry joins what is known about one subject in a group. Member is
// nil for subjects that left but still hold an entitlement; ExpiresAt is
// nil for members without one.
type RosterEntry struct {
	SubjectID int64
	Member    *domain.MemberRecord
	ExpiresAt *time.Time
}

// Detail is a group together with its roster view
type Detail struct {
	domain.Group
	Entries []RosterEntry
}
