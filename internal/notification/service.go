// Package notification keeps an inbox of every message sent to admins, so a
// notice the platform failed to deliver can still be read over the API.
package notification

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fkhayef/rentguard/internal/domain"
	"github.com/fkhayef/rentguard/internal/gateway"
)

// Common errors
var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrNotRecipient         = errors.New("not the recipient of this notification")
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// Service handles notification business logic
type Service struct {
	repo Store
}

// NewService creates a new notification service
func NewService(repo Store) *Service {
	return &Service{repo: repo}
}

// Record stores a notification together with the outcome of its delivery
func (s *Service) Record(ctx context.Context, recipientID int64, message string, deliveryErr error) (*Notification, error) {
	n := &Notification{
		ID:          uuid.New(),
		RecipientID: recipientID,
		Kind:        KindOf(message),
		Message:     message,
		Delivered:   deliveryErr == nil,
	}
	if deliveryErr != nil {
		reason := deliveryErr.Error()
		n.DeliveryError = &reason
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// GetByID retrieves a notification addressed to recipientID
func (s *Service) GetByID(ctx context.Context, id uuid.UUID, recipientID int64) (*Notification, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, ErrNotificationNotFound
	}
	if n.RecipientID != recipientID {
		return nil, ErrNotRecipient
	}
	return n, nil
}

// Page normalizes pagination parameters
func Page(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > maxPerPage {
		perPage = defaultPerPage
	}
	return page, perPage
}

// ListByRecipientID retrieves one page of an admin's notifications
func (s *Service) ListByRecipientID(ctx context.Context, recipientID int64, page, perPage int, unreadOnly bool) ([]*Notification, int, error) {
	page, perPage = Page(page, perPage)
	offset := (page - 1) * perPage
	return s.repo.ListByRecipientID(ctx, recipientID, perPage, offset, unreadOnly)
}

// MarkAsRead marks a notification as read
func (s *Service) MarkAsRead(ctx context.Context, id uuid.UUID, recipientID int64) error {
	if _, err := s.GetByID(ctx, id, recipientID); err != nil {
		return err
	}
	return s.repo.MarkAsRead(ctx, id)
}

// MarkAllAsRead marks all of an admin's notifications as read
func (s *Service) MarkAllAsRead(ctx context.Context, recipientID int64) (int64, error) {
	return s.repo.MarkAllAsRead(ctx, recipientID)
}

// GetUnreadCount returns the count of unread notifications
func (s *Service) GetUnreadCount(ctx context.Context, recipientID int64) (int, error) {
	return s.repo.GetUnreadCount(ctx, recipientID)
}

var _ gateway.Gateway = (*Inbox)(nil)

// Inbox wraps a gateway and records every admin notification it sends.
// Revocations and member lookups pass straight through.
type Inbox struct {
	next    gateway.Gateway
	service *Service
	timeout time.Duration
	logger  *slog.Logger
}

// NewInbox creates an Inbox in front of next
func NewInbox(next gateway.Gateway, service *Service, logger *slog.Logger) *Inbox {
	return &Inbox{next: next, service: service, timeout: 5 * time.Second, logger: logger}
}

// Revoke forwards to the wrapped gateway
func (i *Inbox) Revoke(ctx context.Context, groupID, subjectID int64) error {
	return i.next.Revoke(ctx, groupID, subjectID)
}

// Member forwards to the wrapped gateway
func (i *Inbox) Member(ctx context.Context, groupID, subjectID int64) (domain.MemberStatus, error) {
	return i.next.Member(ctx, groupID, subjectID)
}

// Notify sends through the wrapped gateway and then records the message.
// A recording failure is logged and never changes the delivery result.
func (i *Inbox) Notify(ctx context.Context, principalID int64, text string) error {
	sendErr := i.next.Notify(ctx, principalID, text)

	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), i.timeout)
	defer cancel()
	if _, err := i.service.Record(recordCtx, principalID, text, sendErr); err != nil {
		i.logger.ErrorContext(ctx, "failed to record admin notification", "admin", principalID, "error", err)
	}
	return sendErr
}
