package admin

import (
	"context"
	"log/slog"

	"github.com/fkhayef/rentguard/internal/domain"
)

// Service manages the set of principals allowed to mutate entitlements
type Service struct {
	repo   *Repository
	logger *slog.Logger
}

// NewService creates a new admin service
func NewService(repo *Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Add enrolls an admin; adding an existing admin is a no-op
func (s *Service) Add(ctx context.Context, subjectID int64) (bool, error) {
	if subjectID == 0 {
		return false, domain.ErrInvalidSubject
	}
	added, err := s.repo.Add(subjectID)
	if err != nil {
		return false, err
	}
	if added {
		s.logger.InfoContext(ctx, "admin added", "subject", subjectID)
	}
	return added, nil
}

// Remove drops an admin; removing a non-admin is a no-op
func (s *Service) Remove(ctx context.Context, subjectID int64) (bool, error) {
	removed, err := s.repo.Remove(subjectID)
	if err != nil {
		return false, err
	}
	if removed {
		s.logger.InfoContext(ctx, "admin removed", "subject", subjectID)
	}
	return removed, nil
}

// IsAdmin reports whether the subject may mutate entitlements
func (s *Service) IsAdmin(_ context.Context, subjectID int64) bool {
	return s.repo.Contains(subjectID)
}

// List returns every admin
func (s *Service) List(_ context.Context) []int64 {
	return s.repo.List()
}

// EnrollIfEmpty makes the subject an admin when the registry is empty
func (s *Service) EnrollIfEmpty(ctx context.Context, subjectID int64) (bool, error) {
	if subjectID == 0 {
		return false, domain.ErrInvalidSubject
	}
	added, err := s.repo.AddIfEmpty(subjectID)
	if err != nil {
		return false, err
	}
	if added {
		s.logger.InfoContext(ctx, "admin bootstrapped", "subject", subjectID)
	}
	return added, nil
}

// EnsureSeed enrolls the configured seed admin if the registry is empty.
// A zero seed disables seeding.
func (s *Service) EnsureSeed(ctx context.Context, seedID int64) (bool, error) {
	if seedID == 0 {
		return false, nil
	}
	return s.EnrollIfEmpty(ctx, seedID)
}
