package entitlement

import (
	"strings"
	"time"

	"github.com/fkhayef/rentguard/internal/domain"
	"github.com/fkhayef/rentguard/internal/store"
)

// Repository handles entitlement persistence
type Repository struct {
	store *store.Store
}

// NewRepository creates a new entitlement repository
func NewRepository(s *store.Store) *Repository {
	return &Repository{store: s}
}

// Get returns the expiry of a (group, subject) pair
func (r *Repository) Get(groupID, subjectID int64) (time.Time, bool) {
	return r.store.View().Entitlement(groupID, subjectID)
}

// ListByGroup returns a group's entitlements in insertion order
func (r *Repository) ListByGroup(groupID int64) []domain.Entitlement {
	return r.store.View().GroupEntitlements(groupID)
}

// ListAll returns every entitlement across groups
func (r *Repository) ListAll() []domain.Entitlement {
	return r.store.View().Entitlements()
}

// Upsert sets a new expiry computed from the current one under the writer
// lock, so concurrent extensions never lose an update.
func (r *Repository) Upsert(groupID, subjectID int64, next func(current time.Time, exists bool) time.Time) (time.Time, error) {
	var expiresAt time.Time
	err := r.store.Mutate(func(tx *store.Tx) (bool, error) {
		current, exists := tx.Entitlement(groupID, subjectID)
		e, err := domain.NewEntitlement(groupID, subjectID, next(current, exists))
		if err != nil {
			return false, err
		}
		if err := tx.SetEntitlement(e); err != nil {
			return false, err
		}
		expiresAt = e.ExpiresAt
		return true, nil
	})
	if err != nil {
		return time.Time{}, err
	}
	return expiresAt, nil
}

// SplitByRoster partitions the managed groups into those whose roster lists
// the subject and those with no record of it
func (r *Repository) SplitByRoster(subjectID int64) (rostered, unknown []int64) {
	view := r.store.View()
	for _, group := range view.Groups() {
		if _, ok := view.Member(group.ID, subjectID); ok {
			rostered = append(rostered, group.ID)
		} else {
			unknown = append(unknown, group.ID)
		}
	}
	return rostered, unknown
}

// UpsertIn sets the expiry in every managed group present in groups and
// returns the groups it touched, in group order
func (r *Repository) UpsertIn(groups map[int64]bool, subjectID int64, expiresAt time.Time) ([]int64, error) {
	var touched []int64
	err := r.store.Mutate(func(tx *store.Tx) (bool, error) {
		for _, group := range tx.Groups() {
			if !groups[group.ID] {
				continue
			}
			e, err := domain.NewEntitlement(group.ID, subjectID, expiresAt)
			if err != nil {
				return false, err
			}
			if err := tx.SetEntitlement(e); err != nil {
				return false, err
			}
			touched = append(touched, group.ID)
		}
		return len(touched) > 0, nil
	})
	if err != nil {
		return nil, err
	}
	return touched, nil
}

// Delete removes an entitlement; deleting an absent one is not an error
func (r *Repository) Delete(groupID, subjectID int64) (bool, error) {
	var removed bool
	err := r.store.Mutate(func(tx *store.Tx) (bool, error) {
		removed = tx.DeleteEntitlement(groupID, subjectID)
		return removed, nil
	})
	return removed, err
}

// DeleteIfUnchanged removes an entitlement only while its expiry still
// equals expiresAt
func (r *Repository) DeleteIfUnchanged(groupID, subjectID int64, expiresAt time.Time) (bool, error) {
	var removed bool
	err := r.store.Mutate(func(tx *store.Tx) (bool, error) {
		current, ok := tx.Entitlement(groupID, subjectID)
		if !ok || !current.Equal(expiresAt) {
			return false, nil
		}
		removed = tx.DeleteEntitlement(groupID, subjectID)
		return removed, nil
	})
	return removed, err
}

// DeleteEverywhere removes the subject's entitlements from every group and
// returns the groups that held one
func (r *Repository) DeleteEverywhere(subjectID int64) ([]int64, error) {
	var removed []int64
	err := r.store.Mutate(func(tx *store.Tx) (bool, error) {
		for _, group := range tx.Groups() {
			if tx.DeleteEntitlement(group.ID, subjectID) {
				removed = append(removed, group.ID)
			}
		}
		return len(removed) > 0, nil
	})
	return removed, err
}

// PurgeGroup removes every entitlement of a group inside tx and returns how
// many there were. Group removal calls it so the purge commits together with
// the group itself.
func PurgeGroup(tx *store.Tx, groupID int64) int {
	return tx.PurgeEntitlements(groupID)
}

// FindSubjectByHandle looks a handle up across every tracked roster.
// Matching ignores case and a leading "@".
func (r *Repository) FindSubjectByHandle(handle string) (int64, bool) {
	want := normalizeHandle(handle)
	if want == "" {
		return 0, false
	}
	view := r.store.View()
	for _, group := range view.Groups() {
		for _, m := range view.GroupMembers(group.ID) {
			if normalizeHandle(m.Handle) == want {
				return m.SubjectID, true
			}
		}
	}
	return 0, false
}

func normalizeHandle(handle string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(handle), "@"))
}
