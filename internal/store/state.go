package store

import (
	"errors"
	"slices"
	"sort"
	"time"

	orderedmap "github.com/pb33f/ordered-map/v2"

	"github.com/fkhayef/rentguard/internal/domain"
)

// ErrGroupNotManaged is returned when a write targets a group that is not in the registry
var ErrGroupNotManaged = errors.New("group is not managed")

type expiryMap = orderedmap.OrderedMap[int64, time.Time]

// State is one immutable generation of everything the process persists.
// Readers obtain it from Store.View and must not modify it; writers get a
// private copy through Tx.
type State struct {
	groups       map[int64]string
	entitlements map[int64]*expiryMap
	members      map[int64]map[int64]domain.MemberRecord
	admins       []int64
}

func newState() *State {
	return &State{
		groups:       make(map[int64]string),
		entitlements: make(map[int64]*expiryMap),
		members:      make(map[int64]map[int64]domain.MemberRecord),
	}
}

// HasGroup reports whether the group is managed
func (s *State) HasGroup(id int64) bool {
	_, ok := s.groups[id]
	return ok
}

// GroupTitle returns the display title of a managed group
func (s *State) GroupTitle(id int64) (string, bool) {
	title, ok := s.groups[id]
	return title, ok
}

// Groups returns every managed group ordered by id
func (s *State) Groups() []domain.Group {
	groups := make([]domain.Group, 0, len(s.groups))
	for id, title := range s.groups {
		groups = append(groups, domain.Group{ID: id, Title: title})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].ID < groups[j].ID })
	return groups
}

// Entitlement returns the expiry of a (group, subject) pair
func (s *State) Entitlement(groupID, subjectID int64) (time.Time, bool) {
	entries, ok := s.entitlements[groupID]
	if !ok {
		return time.Time{}, false
	}
	return entries.Get(subjectID)
}

// GroupEntitlements lists a group's entitlements in insertion order
func (s *State) GroupEntitlements(groupID int64) []domain.Entitlement {
	entries, ok := s.entitlements[groupID]
	if !ok {
		return nil
	}
	out := make([]domain.Entitlement, 0, entries.Len())
	for pair := entries.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, domain.Entitlement{GroupID: groupID, SubjectID: pair.Key, ExpiresAt: pair.Value})
	}
	return out
}

// EntitlementCount returns how many entitlements a group holds
func (s *State) EntitlementCount(groupID int64) int {
	entries, ok := s.entitlements[groupID]
	if !ok {
		return 0
	}
	return entries.Len()
}

// Entitlements lists every entitlement, groups ordered by id
func (s *State) Entitlements() []domain.Entitlement {
	ids := make([]int64, 0, len(s.entitlements))
	for id := range s.entitlements {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var out []domain.Entitlement
	for _, id := range ids {
		out = append(out, s.GroupEntitlements(id)...)
	}
	return out
}

// Member returns the roster record of a subject in a group
func (s *State) Member(groupID, subjectID int64) (domain.MemberRecord, bool) {
	record, ok := s.members[groupID][subjectID]
	return record, ok
}

// GroupMembers lists a group's roster ordered by join time
func (s *State) GroupMembers(groupID int64) []domain.MemberRecord {
	roster := s.members[groupID]
	out := make([]domain.MemberRecord, 0, len(roster))
	for _, record := range roster {
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].SubjectID < out[j].SubjectID
	})
	return out
}

// IsAdmin reports whether the subject is an admin principal
func (s *State) IsAdmin(subjectID int64) bool {
	return slices.Contains(s.admins, subjectID)
}

// Admins returns the admin principals in enrollment order
func (s *State) Admins() []int64 {
	return slices.Clone(s.admins)
}

// Tx is a private copy of the state handed to a Store.Mutate callback.
// Per-group maps are copied the first time they are written.
type Tx struct {
	*State
	ownedEntitlements map[int64]bool
	ownedMembers      map[int64]bool
}

func begin(base *State) *Tx {
	next := &State{
		groups:       make(map[int64]string, len(base.groups)),
		entitlements: make(map[int64]*expiryMap, len(base.entitlements)),
		members:      make(map[int64]map[int64]domain.MemberRecord, len(base.members)),
		admins:       slices.Clone(base.admins),
	}
	for id, title := range base.groups {
		next.groups[id] = title
	}
	for id, entries := range base.entitlements {
		next.entitlements[id] = entries
	}
	for id, roster := range base.members {
		next.members[id] = roster
	}
	return &Tx{
		State:             next,
		ownedEntitlements: make(map[int64]bool),
		ownedMembers:      make(map[int64]bool),
	}
}

func (tx *Tx) writableEntitlements(groupID int64) *expiryMap {
	if tx.ownedEntitlements[groupID] {
		return tx.entitlements[groupID]
	}
	copied := orderedmap.New[int64, time.Time]()
	if existing, ok := tx.entitlements[groupID]; ok {
		for pair := existing.Oldest(); pair != nil; pair = pair.Next() {
			copied.Set(pair.Key, pair.Value)
		}
	}
	tx.entitlements[groupID] = copied
	tx.ownedEntitlements[groupID] = true
	return copied
}

func (tx *Tx) writableMembers(groupID int64) map[int64]domain.MemberRecord {
	if tx.ownedMembers[groupID] {
		return tx.members[groupID]
	}
	existing := tx.members[groupID]
	copied := make(map[int64]domain.MemberRecord, len(existing))
	for id, record := range existing {
		copied[id] = record
	}
	tx.members[groupID] = copied
	tx.ownedMembers[groupID] = true
	return copied
}

// PutGroup registers a group or renames an existing one
func (tx *Tx) PutGroup(group domain.Group) {
	tx.groups[group.ID] = group.Title
}

// DropGroup removes a group with all its entitlements and roster records.
// Admin principals are untouched.
func (tx *Tx) DropGroup(groupID int64) bool {
	_, managed := tx.groups[groupID]
	_, hasEntitlements := tx.entitlements[groupID]
	_, hasMembers := tx.members[groupID]

	delete(tx.groups, groupID)
	delete(tx.entitlements, groupID)
	delete(tx.members, groupID)
	delete(tx.ownedEntitlements, groupID)
	delete(tx.ownedMembers, groupID)
	return managed || hasEntitlements || hasMembers
}

// SetEntitlement stores an entitlement, overwriting any prior expiry
func (tx *Tx) SetEntitlement(e domain.Entitlement) error {
	if !tx.HasGroup(e.GroupID) {
		return ErrGroupNotManaged
	}
	tx.writableEntitlements(e.GroupID).Set(e.SubjectID, e.ExpiresAt)
	return nil
}

// DeleteEntitlement removes an entitlement; absent entries are a no-op
func (tx *Tx) DeleteEntitlement(groupID, subjectID int64) bool {
	if _, ok := tx.Entitlement(groupID, subjectID); !ok {
		return false
	}
	entries := tx.writableEntitlements(groupID)
	entries.Delete(subjectID)
	if entries.Len() == 0 {
		delete(tx.entitlements, groupID)
		delete(tx.ownedEntitlements, groupID)
	}
	return true
}

// PurgeEntitlements removes every entitlement of a group
func (tx *Tx) PurgeEntitlements(groupID int64) int {
	n := tx.EntitlementCount(groupID)
	delete(tx.entitlements, groupID)
	delete(tx.ownedEntitlements, groupID)
	return n
}

// PutMember creates or overwrites a roster record
func (tx *Tx) PutMember(record domain.MemberRecord) error {
	if !tx.HasGroup(record.GroupID) {
		return ErrGroupNotManaged
	}
	tx.writableMembers(record.GroupID)[record.SubjectID] = record
	return nil
}

// DeleteMember removes a roster record
func (tx *Tx) DeleteMember(groupID, subjectID int64) bool {
	if _, ok := tx.Member(groupID, subjectID); !ok {
		return false
	}
	delete(tx.writableMembers(groupID), subjectID)
	return true
}

// AddAdmin enrolls an admin principal
func (tx *Tx) AddAdmin(subjectID int64) bool {
	if tx.IsAdmin(subjectID) {
		return false
	}
	tx.admins = append(tx.admins, subjectID)
	return true
}

// RemoveAdmin drops an admin principal
func (tx *Tx) RemoveAdmin(subjectID int64) bool {
	i := slices.Index(tx.admins, subjectID)
	if i < 0 {
		return false
	}
	tx.admins = slices.Delete(tx.admins, i, i+1)
	return true
}
