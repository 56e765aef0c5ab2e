package group

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fkhayef/rentguard/internal/domain"
)

// Common errors
var (
	ErrGroupNotFound = errors.New("group not found")
)

// Service handles group business logic
type Service struct {
	repo   *Repository
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithClock replaces the wall clock used for roster views
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new group service
func NewService(repo *Repository, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{repo: repo, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the service clock's current instant
func (s *Service) Now() time.Time {
	return s.now()
}

// AddGroup starts managing a group, or updates its title
func (s *Service) AddGroup(ctx context.Context, id int64, title string) (domain.Group, error) {
	group, err := domain.NewGroup(id, title)
	if err != nil {
		return domain.Group{}, err
	}
	created, err := s.repo.Put(group)
	if err != nil {
		return domain.Group{}, err
	}
	if created {
		s.logger.InfoContext(ctx, "group added", "group", id, "title", title)
	}
	return group, nil
}

// RemoveGroup stops managing a group. Its entitlements and roster records
// are purged with it; removing an unknown group is a no-op.
func (s *Service) RemoveGroup(ctx context.Context, id int64) (bool, error) {
	removed, entitlements, members, err := s.repo.Remove(id)
	if err != nil {
		return false, err
	}
	if removed {
		s.logger.InfoContext(ctx, "group removed",
			"group", id,
			"entitlements_purged", entitlements,
			"members_purged", members,
		)
	}
	return removed, nil
}

// HandleLifecycle applies a group lifecycle event from the platform
func (s *Service) HandleLifecycle(ctx context.Context, event domain.GroupEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}
	switch event.NewStatus {
	case domain.GroupAdded:
		_, err := s.AddGroup(ctx, event.GroupID, event.Title)
		return err
	default:
		_, err := s.RemoveGroup(ctx, event.GroupID)
		return err
	}
}

// ListGroups returns the managed groups as id → title
func (s *Service) ListGroups(_ context.Context) map[int64]string {
	groups := s.repo.List()
	titles := make(map[int64]string, len(groups))
	for _, g := range groups {
		titles[g.ID] = g.Title
	}
	return titles
}

// Overview returns every managed group with entitlement and member counts
func (s *Service) Overview(_ context.Context) []Summary {
	return s.repo.Summaries()
}

// Get returns a managed group
func (s *Service) Get(_ context.Context, id int64) (domain.Group, error) {
	group, ok := s.repo.Get(id)
	if !ok {
		return domain.Group{}, ErrGroupNotFound
	}
	return group, nil
}

// Detail returns the roster view of a managed group
func (s *Service) Detail(_ context.Context, id int64) (*Detail, error) {
	detail, ok := s.repo.Detail(id)
	if !ok {
		return nil, ErrGroupNotFound
	}
	return detail, nil
}

// Members returns a managed group's roster
func (s *Service) Members(ctx context.Context, id int64) ([]domain.MemberRecord, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.Members(id), nil
}
