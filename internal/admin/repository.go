package admin

import (
	"github.com/fkhayef/rentguard/internal/store"
)

// Repository handles admin principal persistence
type Repository struct {
	store *store.Store
}

// NewRepository creates a new admin repository
func NewRepository(s *store.Store) *Repository {
	return &Repository{store: s}
}

// Add enrolls a subject; it reports false when already enrolled
func (r *Repository) Add(subjectID int64) (bool, error) {
	var added bool
	err := r.store.Mutate(func(tx *store.Tx) (bool, error) {
		added = tx.AddAdmin(subjectID)
		return added, nil
	})
	return added, err
}

// AddIfEmpty enrolls a subject only while no admin exists
func (r *Repository) AddIfEmpty(subjectID int64) (bool, error) {
	var added bool
	err := r.store.Mutate(func(tx *store.Tx) (bool, error) {
		if len(tx.Admins()) > 0 {
			return false, nil
		}
		added = tx.AddAdmin(subjectID)
		return added, nil
	})
	return added, err
}

// Remove drops a subject; it reports false when not enrolled
func (r *Repository) Remove(subjectID int64) (bool, error) {
	var removed bool
	err := r.store.Mutate(func(tx *store.Tx) (bool, error) {
		removed = tx.RemoveAdmin(subjectID)
		return removed, nil
	})
	return removed, err
}

// Contains reports whether the subject is an admin
func (r *Repository) Contains(subjectID int64) bool {
	return r.store.View().IsAdmin(subjectID)
}

// List returns every admin in enrollment order
func (r *Repository) List() []int64 {
	return r.store.View().Admins()
}
