package member

import (
	"time"

	"github.com/fkhayef/rentguard/internal/domain"
	"github.com/fkhayef/rentguard/internal/store"
)

// Repository handles roster persistence
type Repository struct {
	store *store.Store
}

// NewRepository creates a new roster repository
func NewRepository(s *store.Store) *Repository {
	return &Repository{store: s}
}

// GroupTitle returns the title of a managed group
func (r *Repository) GroupTitle(groupID int64) (string, bool) {
	return r.store.View().GroupTitle(groupID)
}

// Put creates or overwrites a roster record
func (r *Repository) Put(record domain.MemberRecord) error {
	return r.store.Mutate(func(tx *store.Tx) (bool, error) {
		if err := tx.PutMember(record); err != nil {
			return false, err
		}
		return true, nil
	})
}

// UpdateRole changes a record's role in place, creating the record when
// none exists. It reports whether a record was created.
func (r *Repository) UpdateRole(event domain.MembershipEvent, at time.Time) (bool, error) {
	var created bool
	err := r.store.Mutate(func(tx *store.Tx) (bool, error) {
		record, ok := tx.Member(event.GroupID, event.SubjectID)
		if !ok {
			fresh, err := domain.NewMemberRecord(event.GroupID, event.SubjectID, event.DisplayName, event.Handle, event.NewStatus, at)
			if err != nil {
				return false, err
			}
			record = fresh
			created = true
		}
		record.RoleStatus = event.NewStatus
		record.UpdatedAt = at
		if event.DisplayName != "" {
			record.DisplayName = event.DisplayName
		}
		if event.Handle != "" {
			record.Handle = event.Handle
		}
		if err := tx.PutMember(record); err != nil {
			return false, err
		}
		return true, nil
	})
	return created, err
}

// Delete removes a roster record; the subject's entitlement is untouched
func (r *Repository) Delete(groupID, subjectID int64) (bool, error) {
	var removed bool
	err := r.store.Mutate(func(tx *store.Tx) (bool, error) {
		removed = tx.DeleteMember(groupID, subjectID)
		return removed, nil
	})
	return removed, err
}
