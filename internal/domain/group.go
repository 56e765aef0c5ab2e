package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidGroupStatus is returned for lifecycle events with an unknown status
var ErrInvalidGroupStatus = errors.New("unknown group status")

// Group is a chat the system manages.
type Group struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// NewGroup validates and builds a group record
func NewGroup(id int64, title string) (Group, error) {
	if id == 0 {
		return Group{}, ErrInvalidGroupID
	}
	return Group{ID: id, Title: title}, nil
}

// GroupStatus is the lifecycle state carried by a GroupEvent
type GroupStatus string

const (
	GroupAdded   GroupStatus = "added"
	GroupRemoved GroupStatus = "removed"
)

// GroupEvent reports that the system was added to or removed from a group.
type GroupEvent struct {
	GroupID   int64       `json:"group_id"`
	Title     string      `json:"title"`
	NewStatus GroupStatus `json:"new_status"`
}

// Validate checks the event carries a group and a known status
func (e GroupEvent) Validate() error {
	if e.GroupID == 0 {
		return ErrInvalidGroupID
	}
	switch e.NewStatus {
	case GroupAdded, GroupRemoved:
		return nil
	default:
		return fmt.Errorf("%w %q", ErrInvalidGroupStatus, e.NewStatus)
	}
}
