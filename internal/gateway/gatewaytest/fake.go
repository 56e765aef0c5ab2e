// Package gatewaytest provides an in-memory gateway for tests.
package gatewaytest

import (
	"context"
	"sync"

	"github.com/fkhayef/rentguard/internal/domain"
	"github.com/fkhayef/rentguard/internal/gateway"
)

var _ gateway.Gateway = (*Fake)(nil)

// Call records one Revoke or Member invocation
type Call struct {
	GroupID   int64
	SubjectID int64
}

// Message records one Notify invocation
type Message struct {
	PrincipalID int64
	Text        string
}

// Fake records calls and returns configured failures
type Fake struct {
	mu       sync.Mutex
	revokes  []Call
	messages []Message
	lookups  []Call

	// RevokeErr, when set, decides the result of each Revoke call.
	RevokeErr func(groupID, subjectID int64) error
	// NotifyErr, when set, decides the result of each Notify call.
	NotifyErr func(principalID int64) error
	// Block, when set, makes Revoke wait for the channel or the context.
	Block chan struct{}
	// Status, when set, answers Member lookups. Unset means the platform
	// does not know the subject.
	Status func(groupID, subjectID int64) (domain.MemberStatus, error)
}

func (f *Fake) Revoke(ctx context.Context, groupID, subjectID int64) error {
	if f.Block != nil {
		select {
		case <-f.Block:
		case <-ctx.Done():
			return &gateway.Error{Op: "revoke", Kind: gateway.KindTransient, Err: ctx.Err()}
		}
	}

	f.mu.Lock()
	f.revokes = append(f.revokes, Call{GroupID: groupID, SubjectID: subjectID})
	errFn := f.RevokeErr
	f.mu.Unlock()

	if errFn != nil {
		return errFn(groupID, subjectID)
	}
	return nil
}

func (f *Fake) Notify(_ context.Context, principalID int64, text string) error {
	f.mu.Lock()
	f.messages = append(f.messages, Message{PrincipalID: principalID, Text: text})
	errFn := f.NotifyErr
	f.mu.Unlock()

	if errFn != nil {
		return errFn(principalID)
	}
	return nil
}

func (f *Fake) Member(_ context.Context, groupID, subjectID int64) (domain.MemberStatus, error) {
	f.mu.Lock()
	f.lookups = append(f.lookups, Call{GroupID: groupID, SubjectID: subjectID})
	statusFn := f.Status
	f.mu.Unlock()

	if statusFn == nil {
		return domain.StatusAbsent, &gateway.Error{Op: "member", Kind: gateway.KindNotFound}
	}
	return statusFn(groupID, subjectID)
}

// Lookups returns the recorded Member calls
func (f *Fake) Lookups() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.lookups...)
}

// Revokes returns the recorded Revoke calls
func (f *Fake) Revokes() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.revokes...)
}

// Messages returns the recorded Notify calls
func (f *Fake) Messages() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.messages...)
}

// SetRevokeErr replaces RevokeErr while calls may be in flight
func (f *Fake) SetRevokeErr(fn func(groupID, subjectID int64) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.RevokeErr = fn
}
