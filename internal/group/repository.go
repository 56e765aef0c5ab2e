package group

import (
	"github.com/fkhayef/rentguard/internal/domain"
	"github.com/fkhayef/rentguard/internal/entitlement"
	"github.com/fkhayef/rentguard/internal/store"
)

// Repository handles group data persistence
type Repository struct {
	store *store.Store
}

// NewRepository creates a new group repository
func NewRepository(s *store.Store) *Repository {
	return &Repository{store: s}
}

// Put registers a group, or renames it when already managed. It reports
// whether the group is new.
func (r *Repository) Put(group domain.Group) (bool, error) {
	var created bool
	err := r.store.Mutate(func(tx *store.Tx) (bool, error) {
		title, managed := tx.GroupTitle(group.ID)
		if managed && title == group.Title {
			return false, nil
		}
		created = !managed
		tx.PutGroup(group)
		return true, nil
	})
	return created, err
}

// Remove drops a group with its entitlements and roster in one write.
// It returns how many entitlements and roster records went with it.
func (r *Repository) Remove(groupID int64) (removed bool, entitlements, members int, err error) {
	err = r.store.Mutate(func(tx *store.Tx) (bool, error) {
		entitlements = entitlement.PurgeGroup(tx, groupID)
		members = len(tx.GroupMembers(groupID))
		removed = tx.DropGroup(groupID) || entitlements > 0
		return removed, nil
	})
	return removed, entitlements, members, err
}

// Get returns a managed group
func (r *Repository) Get(groupID int64) (domain.Group, bool) {
	title, ok := r.store.View().GroupTitle(groupID)
	if !ok {
		return domain.Group{}, false
	}
	return domain.Group{ID: groupID, Title: title}, true
}

// List returns every managed group ordered by id
func (r *Repository) List() []domain.Group {
	return r.store.View().Groups()
}

// Summaries returns every managed group with its counts, read from one
// consistent snapshot
func (r *Repository) Summaries() []Summary {
	view := r.store.View()
	groups := view.Groups()
	summaries := make([]Summary, len(groups))
	for i, g := range groups {
		summaries[i] = Summary{
			Group:        g,
			Entitlements: view.EntitlementCount(g.ID),
			Members:      len(view.GroupMembers(g.ID)),
		}
	}
	return summaries
}

// Members returns a group's roster ordered by join time
func (r *Repository) Members(groupID int64) []domain.MemberRecord {
	return r.store.View().GroupMembers(groupID)
}

// Detail builds the roster view of a group: tracked members first in join
// order, then subjects that only hold an entitlement, in grant order.
func (r *Repository) Detail(groupID int64) (*Detail, bool) {
	view := r.store.View()
	title, ok := view.GroupTitle(groupID)
	if !ok {
		return nil, false
	}

	detail := &Detail{Group: domain.Group{ID: groupID, Title: title}}
	seen := make(map[int64]bool)
	for _, m := range view.GroupMembers(groupID) {
		entry := RosterEntry{SubjectID: m.SubjectID, Member: &m}
		if expiresAt, ok := view.Entitlement(groupID, m.SubjectID); ok {
			entry.ExpiresAt = &expiresAt
		}
		detail.Entries = append(detail.Entries, entry)
		seen[m.SubjectID] = true
	}
	for _, e := range view.GroupEntitlements(groupID) {
		if seen[e.SubjectID] {
			continue
		}
		expiresAt := e.ExpiresAt
		detail.Entries = append(detail.Entries, RosterEntry{SubjectID: e.SubjectID, ExpiresAt: &expiresAt})
	}
	return detail, true
}
