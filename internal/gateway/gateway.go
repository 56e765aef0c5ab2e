// Package gateway abstracts the chat platform actions the service depends
// on: removing a subject from a group and messaging a principal.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/fkhayef/rentguard/internal/domain"
)

// Revoker removes a subject's access to a group. Implementations must
// leave the subject able to rejoin later.
type Revoker interface {
	Revoke(ctx context.Context, groupID, subjectID int64) error
}

// Notifier sends a text message to a principal
type Notifier interface {
	Notify(ctx context.Context, principalID int64, text string) error
}

// MemberLookup asks the platform for a subject's status in a group. It is
// consulted when the local roster has no record of the subject.
type MemberLookup interface {
	Member(ctx context.Context, groupID, subjectID int64) (domain.MemberStatus, error)
}

// Gateway is the full platform surface
type Gateway interface {
	Revoker
	Notifier
	MemberLookup
}

// Kind classifies a gateway failure so callers can pick a retry policy
type Kind int

const (
	// KindTransient failures may succeed on retry (timeouts, rate limits, 5xx)
	KindTransient Kind = iota
	// KindPermanent failures will not succeed without operator action
	KindPermanent
	// KindNotFound means the platform does not know the chat or subject
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	case KindNotFound:
		return "not_found"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is returned by gateway implementations
type Error struct {
	Op          string
	Kind        Kind
	Code        int
	Description string
	Err         error
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.String()
	if e.Code != 0 {
		msg += fmt.Sprintf(" (%d)", e.Code)
	}
	if e.Description != "" {
		msg += ": " + e.Description
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the failure kind of err. Errors that did not come from a
// gateway are treated as transient.
func KindOf(err error) Kind {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Kind
	}
	return KindTransient
}

// IsNotFound reports whether err says the chat or subject is unknown
func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == KindNotFound
}

// ErrDisabled is returned by Disabled for every call
var ErrDisabled = errors.New("platform gateway is not configured")

// Disabled is used when no platform credentials are configured. Every call
// fails permanently, so overdue entitlements are kept until a real gateway
// is wired.
type Disabled struct{}

func (Disabled) Revoke(context.Context, int64, int64) error {
	return &Error{Op: "revoke", Kind: KindPermanent, Err: ErrDisabled}
}

func (Disabled) Notify(context.Context, int64, string) error {
	return &Error{Op: "notify", Kind: KindPermanent, Err: ErrDisabled}
}

func (Disabled) Member(context.Context, int64, int64) (domain.MemberStatus, error) {
	return domain.StatusAbsent, &Error{Op: "member", Kind: KindPermanent, Err: ErrDisabled}
}
