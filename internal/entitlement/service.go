package entitlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fkhayef/rentguard/internal/domain"
	"github.com/fkhayef/rentguard/internal/gateway"
)

const (
	defaultLookupTimeout = 10 * time.Second
	maxConcurrentLookups = 8
)

// Common errors
var (
	ErrSubjectNotTracked = errors.New("subject is not on the roster of any managed group")
)

// Service handles entitlement business logic
type Service struct {
	repo          *Repository
	logger        *slog.Logger
	now           func() time.Time
	lookup        gateway.MemberLookup
	lookupTimeout time.Duration
}

// Option configures a Service
type Option func(*Service)

// WithClock replaces the wall clock, for tests
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMemberLookup lets GrantEverywhere ask the platform about groups whose
// roster has no record of the subject. timeout bounds each lookup; zero
// keeps the default.
func WithMemberLookup(lookup gateway.MemberLookup, timeout time.Duration) Option {
	return func(s *Service) {
		s.lookup = lookup
		if timeout > 0 {
			s.lookupTimeout = timeout
		}
	}
}

// NewService creates a new entitlement service
func NewService(repo *Repository, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{repo: repo, logger: logger, now: time.Now, lookupTimeout: defaultLookupTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func validateIDs(groupID, subjectID int64) error {
	if groupID == 0 {
		return domain.ErrInvalidGroupID
	}
	if subjectID == 0 {
		return domain.ErrInvalidSubject
	}
	return nil
}

// Grant sets expires_at = now + d, overwriting any existing entitlement
func (s *Service) Grant(ctx context.Context, groupID, subjectID int64, d time.Duration) (time.Time, error) {
	if err := domain.ValidateDuration(d); err != nil {
		return time.Time{}, err
	}
	if err := validateIDs(groupID, subjectID); err != nil {
		return time.Time{}, err
	}

	now := s.now()
	expiresAt, err := s.repo.Upsert(groupID, subjectID, func(time.Time, bool) time.Time {
		return now.Add(d)
	})
	if err != nil {
		return time.Time{}, err
	}

	s.logger.InfoContext(ctx, "entitlement granted", "group", groupID, "subject", subjectID, "expires_at", expiresAt)
	return expiresAt, nil
}

// Extend stacks d onto a still-active entitlement, or grants from now when
// the entitlement is missing or already overdue
func (s *Service) Extend(ctx context.Context, groupID, subjectID int64, d time.Duration) (time.Time, error) {
	if err := domain.ValidateDuration(d); err != nil {
		return time.Time{}, err
	}
	if err := validateIDs(groupID, subjectID); err != nil {
		return time.Time{}, err
	}

	now := s.now()
	renewed := false
	expiresAt, err := s.repo.Upsert(groupID, subjectID, func(current time.Time, exists bool) time.Time {
		if exists && current.After(now) {
			renewed = true
			return current.Add(d)
		}
		return now.Add(d)
	})
	if err != nil {
		return time.Time{}, err
	}

	s.logger.InfoContext(ctx, "entitlement extended",
		"group", groupID,
		"subject", subjectID,
		"expires_at", expiresAt,
		"stacked", renewed,
	)
	return expiresAt, nil
}

// Revoke deletes an entitlement. Revoking an absent entitlement is a no-op
// so that retries are safe.
func (s *Service) Revoke(ctx context.Context, groupID, subjectID int64) (bool, error) {
	removed, err := s.repo.Delete(groupID, subjectID)
	if err != nil {
		return false, err
	}
	if removed {
		s.logger.InfoContext(ctx, "entitlement revoked", "group", groupID, "subject", subjectID)
	}
	return removed, nil
}

// RevokeIfUnchanged deletes an entitlement only if nobody changed its
// expiry since it was read
func (s *Service) RevokeIfUnchanged(ctx context.Context, e domain.Entitlement) (bool, error) {
	removed, err := s.repo.DeleteIfUnchanged(e.GroupID, e.SubjectID, e.ExpiresAt)
	if err != nil {
		return false, err
	}
	if removed {
		s.logger.InfoContext(ctx, "entitlement revoked", "group", e.GroupID, "subject", e.SubjectID)
	}
	return removed, nil
}

// Get returns the expiry of a (group, subject) pair; absence is reported
// through the boolean, not an error
func (s *Service) Get(_ context.Context, groupID, subjectID int64) (time.Time, bool) {
	return s.repo.Get(groupID, subjectID)
}

// ListByGroup returns a group's entitlements in insertion order
func (s *Service) ListByGroup(_ context.Context, groupID int64) []domain.Entitlement {
	return s.repo.ListByGroup(groupID)
}

// Overdue returns every entitlement with expires_at <= at
func (s *Service) Overdue(_ context.Context, at time.Time) []domain.Entitlement {
	var overdue []domain.Entitlement
	for _, e := range s.repo.ListAll() {
		if e.Overdue(at) {
			overdue = append(overdue, e)
		}
	}
	return overdue
}

// GrantEverywhere grants the same expiry in every managed group the subject
// belongs to. A group whose roster lists the subject qualifies directly;
// otherwise the platform is asked, and the group qualifies unless the
// subject is absent, has left or was kicked.
func (s *Service) GrantEverywhere(ctx context.Context, subjectID int64, d time.Duration) (time.Time, []int64, error) {
	if err := domain.ValidateDuration(d); err != nil {
		return time.Time{}, nil, err
	}
	if subjectID == 0 {
		return time.Time{}, nil, domain.ErrInvalidSubject
	}

	rostered, unknown := s.repo.SplitByRoster(subjectID)
	targets := make(map[int64]bool, len(rostered)+len(unknown))
	for _, groupID := range rostered {
		targets[groupID] = true
	}
	for _, groupID := range s.presentOnPlatform(ctx, unknown, subjectID) {
		targets[groupID] = true
	}

	expiresAt := s.now().Add(d)
	groups, err := s.repo.UpsertIn(targets, subjectID, expiresAt)
	if err != nil {
		return time.Time{}, nil, err
	}
	if len(groups) == 0 {
		return time.Time{}, nil, ErrSubjectNotTracked
	}

	s.logger.InfoContext(ctx, "entitlement granted in every joined group",
		"subject", subjectID,
		"groups", groups,
		"expires_at", expiresAt,
	)
	return expiresAt, groups, nil
}

// presentOnPlatform returns the groups in which the platform reports the
// subject as present. Failed lookups count as absent.
func (s *Service) presentOnPlatform(ctx context.Context, groupIDs []int64, subjectID int64) []int64 {
	if s.lookup == nil || len(groupIDs) == 0 {
		return nil
	}

	present := make([]bool, len(groupIDs))
	g := new(errgroup.Group)
	g.SetLimit(maxConcurrentLookups)
	for i, groupID := range groupIDs {
		g.Go(func() error {
			lookupCtx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
			defer cancel()

			status, err := s.lookup.Member(lookupCtx, groupID, subjectID)
			switch {
			case gateway.IsNotFound(err):
				return nil
			case err != nil:
				s.logger.WarnContext(ctx, "member lookup failed", "group", groupID, "subject", subjectID, "error", err)
				return nil
			}
			present[i] = status.Present()
			return nil
		})
	}
	_ = g.Wait()

	var groups []int64
	for i, groupID := range groupIDs {
		if present[i] {
			groups = append(groups, groupID)
		}
	}
	return groups
}

// RevokeEverywhere removes the subject's entitlements from every group
func (s *Service) RevokeEverywhere(ctx context.Context, subjectID int64) ([]int64, error) {
	groups, err := s.repo.DeleteEverywhere(subjectID)
	if err != nil {
		return nil, err
	}
	if len(groups) > 0 {
		s.logger.InfoContext(ctx, "entitlement revoked in every group", "subject", subjectID, "groups", groups)
	}
	return groups, nil
}

// ResolveSubject turns a numeric id or an "@handle" into a subject id
func (s *Service) ResolveSubject(_ context.Context, ref string) (int64, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return 0, domain.ErrInvalidSubject
	}
	if strings.HasPrefix(ref, "@") {
		subjectID, ok := s.repo.FindSubjectByHandle(ref)
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrSubjectNotTracked, ref)
		}
		return subjectID, nil
	}
	subjectID, err := strconv.ParseInt(ref, 10, 64)
	if err != nil || subjectID == 0 {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidSubject, ref)
	}
	return subjectID, nil
}

// Now returns the service clock's current instant
func (s *Service) Now() time.Time {
	return s.now()
}
