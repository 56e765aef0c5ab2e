// Package sweeper revokes overdue entitlements: it removes the subject from
// the group through the platform gateway, deletes the entitlement and tells
// the admins.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fkhayef/rentguard/internal/domain"
	"github.com/fkhayef/rentguard/internal/gateway"
	"github.com/fkhayef/rentguard/internal/store"
)

// Entitlements is the part of the entitlement service the sweeper needs
type Entitlements interface {
	Overdue(ctx context.Context, at time.Time) []domain.Entitlement
	Get(ctx context.Context, groupID, subjectID int64) (time.Time, bool)
	RevokeIfUnchanged(ctx context.Context, e domain.Entitlement) (bool, error)
}

// Directory resolves names for notifications and lists the admins
type Directory interface {
	GroupTitle(groupID int64) (string, bool)
	Member(groupID, subjectID int64) (domain.MemberRecord, bool)
	Admins() []int64
}

// StoreDirectory reads the directory from the latest store snapshot
type StoreDirectory struct {
	Store *store.Store
}

func (d StoreDirectory) GroupTitle(groupID int64) (string, bool) {
	return d.Store.View().GroupTitle(groupID)
}

func (d StoreDirectory) Member(groupID, subjectID int64) (domain.MemberRecord, bool) {
	return d.Store.View().Member(groupID, subjectID)
}

func (d StoreDirectory) Admins() []int64 {
	return d.Store.View().Admins()
}

// Failure is an overdue entitlement the sweep could not revoke
type Failure struct {
	Entitlement domain.Entitlement `json:"entitlement"`
	Kind        string             `json:"kind"`
	Error       string             `json:"error"`
}

// Result summarizes one sweep
type Result struct {
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at"`
	Overdue    int                  `json:"overdue"`
	Revoked    []domain.Entitlement `json:"revoked"`
	Skipped    int                  `json:"skipped"`
	Failed     []Failure            `json:"failed"`
	Canceled   bool                 `json:"canceled"`
}

// Sweeper runs sweeps. Concurrent Sweep calls are serialized.
type Sweeper struct {
	entitlements Entitlements
	directory    Directory
	gateway      gateway.Gateway
	timeout      time.Duration
	logger       *slog.Logger
	now          func() time.Time

	mu sync.Mutex
}

// Option configures a Sweeper
type Option func(*Sweeper)

// WithClock replaces the wall clock, for tests
func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) { s.now = now }
}

// WithTimeout bounds each gateway call
func WithTimeout(d time.Duration) Option {
	return func(s *Sweeper) { s.timeout = d }
}

// New creates a Sweeper
func New(entitlements Entitlements, directory Directory, gw gateway.Gateway, logger *slog.Logger, opts ...Option) *Sweeper {
	s := &Sweeper{
		entitlements: entitlements,
		directory:    directory,
		gateway:      gw,
		timeout:      10 * time.Second,
		logger:       logger,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sweep revokes every entitlement overdue at the start of the sweep.
// Cancelling ctx stops the sweep between entitlements; the one being
// revoked when ctx is cancelled is finished first. Failures are isolated
// per entitlement and retried on the next sweep.
func (s *Sweeper) Sweep(ctx context.Context) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	result := Result{StartedAt: now, Revoked: []domain.Entitlement{}, Failed: []Failure{}}
	candidates := s.entitlements.Overdue(ctx, now)
	result.Overdue = len(candidates)

	for _, e := range candidates {
		if ctx.Err() != nil {
			result.Canceled = true
			break
		}
		s.sweepOne(context.WithoutCancel(ctx), now, e, &result)
	}

	result.FinishedAt = s.now()
	if result.Overdue > 0 || result.Canceled {
		s.logger.InfoContext(ctx, "sweep finished",
			"overdue", result.Overdue,
			"revoked", len(result.Revoked),
			"skipped", result.Skipped,
			"failed", len(result.Failed),
			"canceled", result.Canceled,
		)
	}
	return result
}

func (s *Sweeper) sweepOne(ctx context.Context, now time.Time, e domain.Entitlement, result *Result) {
	// An extension may have landed since the snapshot was taken.
	current, ok := s.entitlements.Get(ctx, e.GroupID, e.SubjectID)
	if !ok {
		result.Skipped++
		return
	}
	e.ExpiresAt = current
	if !e.Overdue(now) {
		s.logger.DebugContext(ctx, "entitlement extended before revocation", "group", e.GroupID, "subject", e.SubjectID)
		result.Skipped++
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	err := s.gateway.Revoke(callCtx, e.GroupID, e.SubjectID)
	cancel()

	absent := false
	if err != nil {
		if !gateway.IsNotFound(err) {
			s.logger.ErrorContext(ctx, "revocation failed; will retry",
				"group", e.GroupID,
				"subject", e.SubjectID,
				"kind", gateway.KindOf(err).String(),
				"error", err,
			)
			result.Failed = append(result.Failed, Failure{Entitlement: e, Kind: gateway.KindOf(err).String(), Error: err.Error()})
			return
		}
		absent = true
		s.logger.InfoContext(ctx, "subject or group unknown to the platform; dropping entitlement",
			"group", e.GroupID,
			"subject", e.SubjectID,
			"error", err,
		)
	}

	removed, err := s.entitlements.RevokeIfUnchanged(ctx, e)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to delete revoked entitlement", "group", e.GroupID, "subject", e.SubjectID, "error", err)
		result.Failed = append(result.Failed, Failure{Entitlement: e, Kind: "store", Error: err.Error()})
		return
	}
	if !removed {
		s.logger.WarnContext(ctx, "entitlement changed while the subject was being removed; keeping it",
			"group", e.GroupID,
			"subject", e.SubjectID,
		)
		result.Skipped++
		return
	}

	s.logger.InfoContext(ctx, "subject removed for overdue entitlement", "group", e.GroupID, "subject", e.SubjectID)
	result.Revoked = append(result.Revoked, e)
	s.notify(ctx, e, absent)
}

func (s *Sweeper) notify(ctx context.Context, e domain.Entitlement, absent bool) {
	admins := s.directory.Admins()
	if len(admins) == 0 {
		return
	}
	gateway.Broadcast(ctx, s.gateway, admins, s.revokedText(e, absent), s.timeout, s.logger)
}

func (s *Sweeper) revokedText(e domain.Entitlement, absent bool) string {
	title, ok := s.directory.GroupTitle(e.GroupID)
	if !ok || title == "" {
		title = fmt.Sprintf("%d", e.GroupID)
	}
	subject := fmt.Sprintf("%d", e.SubjectID)
	if m, ok := s.directory.Member(e.GroupID, e.SubjectID); ok {
		var names []string
		if m.DisplayName != "" {
			names = append(names, m.DisplayName)
		}
		if m.Handle != "" {
			names = append(names, m.Handle)
		}
		if len(names) > 0 {
			subject = fmt.Sprintf("%s (%d)", strings.Join(names, " "), e.SubjectID)
		}
	}
	reason := "rental expired at " + e.ExpiresAt.Local().Format(time.DateTime)
	if absent {
		reason += "; subject was already gone from the group"
	}

	var b strings.Builder
	b.WriteString("Rental ended\n\n")
	fmt.Fprintf(&b, "Group: %s\n", title)
	fmt.Fprintf(&b, "Subject: %s\n", subject)
	fmt.Fprintf(&b, "Reason: %s\n", reason)
	return b.String()
}
