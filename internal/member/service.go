package member

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fkhayef/rentguard/internal/domain"
	"github.com/fkhayef/rentguard/internal/gateway"
	"github.com/fkhayef/rentguard/internal/store"
)

// Outcome reports what a membership event did to the roster
type Outcome string

const (
	OutcomeIgnored Outcome = "ignored"
	OutcomeJoined  Outcome = "joined"
	OutcomeUpdated Outcome = "updated"
	OutcomeLeft    Outcome = "left"
)

// Recipients lists the principals told about new members
type Recipients interface {
	List(ctx context.Context) []int64
}

// Service reconciles the roster from platform membership events
type Service struct {
	repo          *Repository
	notifier      gateway.Notifier
	recipients    Recipients
	notifyTimeout time.Duration
	logger        *slog.Logger
	now           func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithClock replaces the wall clock used for events without a timestamp
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithNotifyTimeout bounds each admin notification call
func WithNotifyTimeout(d time.Duration) Option {
	return func(s *Service) { s.notifyTimeout = d }
}

// NewService creates a new membership service
func NewService(repo *Repository, notifier gateway.Notifier, recipients Recipients, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:          repo,
		notifier:      notifier,
		recipients:    recipients,
		notifyTimeout: 10 * time.Second,
		logger:        logger,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleEvent applies a membership change. Events for unmanaged groups
// and transitions that do not move a subject on or off the roster are
// ignored.
func (s *Service) HandleEvent(ctx context.Context, event domain.MembershipEvent) (Outcome, error) {
	if event.GroupID == 0 {
		return OutcomeIgnored, domain.ErrInvalidGroupID
	}
	if event.SubjectID == 0 {
		return OutcomeIgnored, domain.ErrInvalidSubject
	}

	title, managed := s.repo.GroupTitle(event.GroupID)
	if !managed {
		s.logger.DebugContext(ctx, "membership event for unmanaged group ignored", "group", event.GroupID)
		return OutcomeIgnored, nil
	}

	at := event.Timestamp
	if at.IsZero() {
		at = s.now()
	}

	outcome, err := s.apply(ctx, event, at)
	if errors.Is(err, store.ErrGroupNotManaged) {
		// the group was dropped between the check and the write
		return OutcomeIgnored, nil
	}
	if err != nil {
		return OutcomeIgnored, err
	}

	if outcome == OutcomeJoined {
		s.announce(ctx, title, event, at)
	}
	return outcome, nil
}

func (s *Service) apply(ctx context.Context, event domain.MembershipEvent, at time.Time) (Outcome, error) {
	switch event.Transition() {
	case domain.TransitionJoin:
		record, err := domain.NewMemberRecord(event.GroupID, event.SubjectID, event.DisplayName, event.Handle, event.NewStatus, at)
		if err != nil {
			return OutcomeIgnored, err
		}
		if err := s.repo.Put(record); err != nil {
			return OutcomeIgnored, err
		}
		s.logger.InfoContext(ctx, "member joined", "group", event.GroupID, "subject", event.SubjectID, "status", event.NewStatus)
		return OutcomeJoined, nil

	case domain.TransitionRoleChange:
		created, err := s.repo.UpdateRole(event, at)
		if err != nil {
			return OutcomeIgnored, err
		}
		s.logger.InfoContext(ctx, "member role changed",
			"group", event.GroupID,
			"subject", event.SubjectID,
			"status", event.NewStatus,
			"created", created,
		)
		return OutcomeUpdated, nil

	case domain.TransitionLeave:
		removed, err := s.repo.Delete(event.GroupID, event.SubjectID)
		if err != nil {
			return OutcomeIgnored, err
		}
		s.logger.InfoContext(ctx, "member left", "group", event.GroupID, "subject", event.SubjectID, "had_record", removed)
		return OutcomeLeft, nil
	}
	return OutcomeIgnored, nil
}

// announce tells every admin about a new member. Failures are per admin.
func (s *Service) announce(ctx context.Context, title string, event domain.MembershipEvent, at time.Time) {
	admins := s.recipients.List(ctx)
	if len(admins) == 0 {
		return
	}
	failures := gateway.Broadcast(ctx, s.notifier, admins, NewMemberText(title, event, at), s.notifyTimeout, s.logger)
	if len(failures) > 0 {
		s.logger.WarnContext(ctx, "new member notification incomplete",
			"group", event.GroupID,
			"subject", event.SubjectID,
			"failed", len(failures),
			"admins", len(admins),
		)
	}
}

// NewMemberText renders the admin notice for a join
func NewMemberText(title string, event domain.MembershipEvent, at time.Time) string {
	name := event.DisplayName
	if name == "" {
		name = "(no name)"
	}
	handle := event.Handle
	if handle == "" {
		handle = "(no username)"
	} else if !strings.HasPrefix(handle, "@") {
		handle = "@" + handle
	}

	var b strings.Builder
	b.WriteString("New member\n\n")
	fmt.Fprintf(&b, "Group: %s\n", title)
	fmt.Fprintf(&b, "Name: %s\n", name)
	fmt.Fprintf(&b, "ID: %d\n", event.SubjectID)
	fmt.Fprintf(&b, "Username: %s\n", handle)
	fmt.Fprintf(&b, "Joined: %s\n", at.Format(time.DateTime))
	return b.String()
}
