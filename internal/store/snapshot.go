package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"time"

	orderedmap "github.com/pb33f/ordered-map/v2"

	"github.com/fkhayef/rentguard/internal/domain"
)

type snapshotMember struct {
	DisplayName string `json:"display_name"`
	Handle      string `json:"handle"`
	RoleStatus  string `json:"role_status"`
	JoinedAt    string `json:"joined_at"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

// snapshot is the on-disk layout
type snapshot struct {
	Entitlements map[string]*orderedmap.OrderedMap[string, string] `json:"entitlements"`
	Admins       []int64                                           `json:"admins"`
	Groups       map[string]string                                 `json:"groups"`
	Members      map[string]map[string]snapshotMember              `json:"members"`
}

// incomingMember also accepts the field names written by the first release
type incomingMember struct {
	snapshotMember
	FullName string `json:"full_name"`
	Username string `json:"username"`
	Status   string `json:"status"`
	JoinTime string `json:"join_time"`
}

type rawExpiries = orderedmap.OrderedMap[string, json.RawMessage]

type incomingSnapshot struct {
	Entitlements map[string]*rawExpiries              `json:"entitlements"`
	Admins       []json.RawMessage                    `json:"admins"`
	Groups       map[string]string                    `json:"groups"`
	Members      map[string]map[string]incomingMember `json:"members"`

	Rentals        map[string]*rawExpiries              `json:"rentals"`
	BotChannels    map[string]string                    `json:"bot_channels"`
	ChannelMembers map[string]map[string]incomingMember `json:"channel_members"`
}

// Naive layouts come from files written without a zone offset; they are
// read in the local zone.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseInstant reads an ISO-8601 instant, with or without zone offset
func ParseInstant(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized instant %q", value)
}

// FormatInstant writes an instant the way snapshots store it
func FormatInstant(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func encodeSnapshot(state *State) ([]byte, error) {
	snap := snapshot{
		Entitlements: make(map[string]*orderedmap.OrderedMap[string, string], len(state.entitlements)),
		Admins:       state.Admins(),
		Groups:       make(map[string]string, len(state.groups)),
		Members:      make(map[string]map[string]snapshotMember, len(state.members)),
	}
	if snap.Admins == nil {
		snap.Admins = []int64{}
	}

	for id, title := range state.groups {
		snap.Groups[formatID(id)] = title
	}
	for groupID, entries := range state.entitlements {
		out := orderedmap.New[string, string]()
		for pair := entries.Oldest(); pair != nil; pair = pair.Next() {
			out.Set(formatID(pair.Key), FormatInstant(pair.Value))
		}
		snap.Entitlements[formatID(groupID)] = out
	}
	for groupID, roster := range state.members {
		if len(roster) == 0 {
			continue
		}
		out := make(map[string]snapshotMember, len(roster))
		for subjectID, record := range roster {
			out[formatID(subjectID)] = snapshotMember{
				DisplayName: record.DisplayName,
				Handle:      record.Handle,
				RoleStatus:  string(record.RoleStatus),
				JoinedAt:    FormatInstant(record.JoinedAt),
				UpdatedAt:   FormatInstant(record.UpdatedAt),
			}
		}
		snap.Members[formatID(groupID)] = out
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return append(data, '\n'), nil
}

// decodeSnapshot rebuilds state from a snapshot. Only a structurally broken
// document is an error; bad ids, timestamps and orphaned records are logged
// and skipped.
func decodeSnapshot(data []byte, logger *slog.Logger) (*State, error) {
	var in incomingSnapshot
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}

	state := newState()
	tx := begin(state)

	for _, groups := range []map[string]string{in.BotChannels, in.Groups} {
		for key, title := range groups {
			id, err := strconv.ParseInt(key, 10, 64)
			if err != nil || id == 0 {
				logger.Warn("skipping group with malformed id", "group", key)
				continue
			}
			tx.PutGroup(domain.Group{ID: id, Title: title})
		}
	}

	for _, raw := range in.Admins {
		id, err := parseAdmin(raw)
		if err != nil {
			logger.Warn("skipping malformed admin id", "value", string(raw), "error", err)
			continue
		}
		tx.AddAdmin(id)
	}

	for _, section := range []map[string]*rawExpiries{in.Rentals, in.Entitlements} {
		for groupKey, entries := range section {
			decodeEntitlements(tx, groupKey, entries, logger)
		}
	}

	for _, section := range []map[string]map[string]incomingMember{in.ChannelMembers, in.Members} {
		for groupKey, roster := range section {
			decodeRoster(tx, groupKey, roster, logger)
		}
	}

	return tx.State, nil
}

func parseAdmin(raw json.RawMessage) (int64, error) {
	var id int64
	if err := json.Unmarshal(raw, &id); err == nil {
		return id, nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return 0, err
	}
	return strconv.ParseInt(text, 10, 64)
}

func decodeEntitlements(tx *Tx, groupKey string, entries *rawExpiries, logger *slog.Logger) {
	groupID, err := strconv.ParseInt(groupKey, 10, 64)
	if err != nil {
		logger.Warn("skipping entitlements with malformed group id", "group", groupKey)
		return
	}
	if entries == nil {
		return
	}
	if !tx.HasGroup(groupID) {
		logger.Warn("skipping entitlements of unmanaged group", "group", groupID, "count", entries.Len())
		return
	}

	for pair := entries.Oldest(); pair != nil; pair = pair.Next() {
		subjectID, err := strconv.ParseInt(pair.Key, 10, 64)
		if err != nil || subjectID == 0 {
			logger.Warn("skipping entitlement with malformed subject id", "group", groupID, "subject", pair.Key)
			continue
		}
		var value string
		if err := json.Unmarshal(pair.Value, &value); err != nil {
			logger.Warn("skipping entitlement with non-string expiry", "group", groupID, "subject", subjectID)
			continue
		}
		expiresAt, err := ParseInstant(value)
		if err != nil {
			logger.Warn("skipping entitlement with malformed expiry", "group", groupID, "subject", subjectID, "error", err)
			continue
		}
		e, err := domain.NewEntitlement(groupID, subjectID, expiresAt)
		if err != nil {
			logger.Warn("skipping invalid entitlement", "group", groupID, "subject", subjectID, "error", err)
			continue
		}
		if err := tx.SetEntitlement(e); err != nil {
			logger.Warn("skipping entitlement", "group", groupID, "subject", subjectID, "error", err)
		}
	}
}

func decodeRoster(tx *Tx, groupKey string, roster map[string]incomingMember, logger *slog.Logger) {
	groupID, err := strconv.ParseInt(groupKey, 10, 64)
	if err != nil {
		logger.Warn("skipping roster with malformed group id", "group", groupKey)
		return
	}
	if !tx.HasGroup(groupID) {
		if len(roster) > 0 {
			logger.Warn("skipping roster of unmanaged group", "group", groupID, "count", len(roster))
		}
		return
	}

	// Sorted so the load is deterministic when both layouts name a subject.
	keys := make([]string, 0, len(roster))
	for key := range roster {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	for _, key := range keys {
		in := roster[key]
		subjectID, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			logger.Warn("skipping member with malformed subject id", "group", groupID, "subject", key)
			continue
		}

		displayName := firstNonEmpty(in.DisplayName, in.FullName)
		handle := firstNonEmpty(in.Handle, in.Username)
		status := domain.MemberStatus(firstNonEmpty(in.RoleStatus, in.Status, string(domain.StatusMember)))

		joinedAt, err := ParseInstant(firstNonEmpty(in.JoinedAt, in.JoinTime))
		if err != nil {
			logger.Warn("skipping member with malformed join time", "group", groupID, "subject", subjectID, "error", err)
			continue
		}
		record, err := domain.NewMemberRecord(groupID, subjectID, displayName, handle, status, joinedAt)
		if err != nil {
			logger.Warn("skipping invalid member", "group", groupID, "subject", subjectID, "error", err)
			continue
		}
		if in.UpdatedAt != "" {
			if updatedAt, err := ParseInstant(in.UpdatedAt); err == nil {
				record.UpdatedAt = updatedAt
			}
		}
		if err := tx.PutMember(record); err != nil {
			logger.Warn("skipping member", "group", groupID, "subject", subjectID, "error", err)
		}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// ReadSnapshot decodes a snapshot file without opening a store. Unlike
// Open it reports unreadable or structurally broken files.
func ReadSnapshot(path string, logger *slog.Logger) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	return decodeSnapshot(data, logger)
}
