package store

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkhayef/rentguard/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func seed(t *testing.T, s *Store, base time.Time) {
	t.Helper()
	err := s.Mutate(func(tx *Tx) (bool, error) {
		tx.PutGroup(domain.Group{ID: 100, Title: "Premium"})
		tx.PutGroup(domain.Group{ID: 200, Title: "VIP"})
		for i, subject := range []int64{9, 7, 8} {
			if err := tx.SetEntitlement(domain.Entitlement{GroupID: 100, SubjectID: subject, ExpiresAt: base.Add(time.Duration(i+1) * time.Hour)}); err != nil {
				return false, err
			}
		}
		if err := tx.SetEntitlement(domain.Entitlement{GroupID: 200, SubjectID: 7, ExpiresAt: base.Add(48 * time.Hour)}); err != nil {
			return false, err
		}
		member, err := domain.NewMemberRecord(100, 7, "Seven", "@seven", domain.StatusMember, base)
		if err != nil {
			return false, err
		}
		if err := tx.PutMember(member); err != nil {
			return false, err
		}
		tx.AddAdmin(1)
		tx.AddAdmin(2)
		return true, nil
	})
	require.NoError(t, err)
}

func TestStore_RoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.json")
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s := Open(path, discardLogger())
	seed(t, s, base)

	reloaded := Open(path, discardLogger()).View()
	original := s.View()

	assert.Equal(t, original.Groups(), reloaded.Groups())
	assert.Equal(t, original.Admins(), reloaded.Admins())

	want := original.Entitlements()
	got := reloaded.Entitlements()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].GroupID, got[i].GroupID)
		assert.Equal(t, want[i].SubjectID, got[i].SubjectID)
		assert.True(t, want[i].ExpiresAt.Equal(got[i].ExpiresAt), "expiry of %d/%d", want[i].GroupID, want[i].SubjectID)
	}

	member, ok := reloaded.Member(100, 7)
	require.True(t, ok)
	assert.Equal(t, "Seven", member.DisplayName)
	assert.Equal(t, "@seven", member.Handle)
	assert.Equal(t, domain.StatusMember, member.RoleStatus)
	assert.True(t, base.Equal(member.JoinedAt))
}

func TestStore_PreservesInsertionOrder(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.json")
	s := Open(path, discardLogger())
	seed(t, s, time.Now())

	subjects := func(entries []domain.Entitlement) []int64 {
		out := make([]int64, len(entries))
		for i, e := range entries {
			out[i] = e.SubjectID
		}
		return out
	}

	assert.Equal(t, []int64{9, 7, 8}, subjects(s.View().GroupEntitlements(100)))
	assert.Equal(t, []int64{9, 7, 8}, subjects(Open(path, discardLogger()).View().GroupEntitlements(100)))
}

func TestStore_SnapshotLayout(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.json")
	s := Open(path, discardLogger())
	seed(t, s, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Contains(t, doc, "entitlements")
	assert.Contains(t, doc, "admins")
	assert.Contains(t, doc, "groups")
	assert.Contains(t, doc, "members")

	var entitlements map[string]map[string]string
	require.NoError(t, json.Unmarshal(doc["entitlements"], &entitlements))
	assert.Equal(t, "2026-03-01T14:00:00Z", entitlements["100"]["7"])
}

func TestStore_ReadersSeeImmutableSnapshots(t *testing.T) {
	t.Parallel()

	s := NewMemory(discardLogger())
	seed(t, s, time.Now())

	before := s.View()
	require.NoError(t, s.Mutate(func(tx *Tx) (bool, error) {
		return tx.DeleteEntitlement(100, 7), nil
	}))

	_, stillThere := before.Entitlement(100, 7)
	assert.True(t, stillThere, "earlier snapshot must not observe later writes")

	_, ok := s.View().Entitlement(100, 7)
	assert.False(t, ok)
}

func TestStore_DropGroupCascades(t *testing.T) {
	t.Parallel()

	s := NewMemory(discardLogger())
	seed(t, s, time.Now())

	require.NoError(t, s.Mutate(func(tx *Tx) (bool, error) {
		return tx.DropGroup(100), nil
	}))

	view := s.View()
	assert.False(t, view.HasGroup(100))
	assert.Empty(t, view.GroupEntitlements(100))
	assert.Empty(t, view.GroupMembers(100))
	assert.Equal(t, []int64{1, 2}, view.Admins())
	assert.True(t, view.HasGroup(200))
	assert.Len(t, view.GroupEntitlements(200), 1)
}

func TestStore_SetEntitlementRequiresManagedGroup(t *testing.T) {
	t.Parallel()

	s := NewMemory(discardLogger())
	err := s.Mutate(func(tx *Tx) (bool, error) {
		return true, tx.SetEntitlement(domain.Entitlement{GroupID: 5, SubjectID: 1, ExpiresAt: time.Now()})
	})
	assert.ErrorIs(t, err, ErrGroupNotManaged)
	assert.Empty(t, s.View().Entitlements())
}

func TestStore_MutateErrorDiscardsChanges(t *testing.T) {
	t.Parallel()

	s := NewMemory(discardLogger())
	err := s.Mutate(func(tx *Tx) (bool, error) {
		tx.PutGroup(domain.Group{ID: 1, Title: "one"})
		return true, assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)
	assert.False(t, s.View().HasGroup(1))
}

func TestStore_ConcurrentMutations(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.json")
	s := Open(path, discardLogger())
	require.NoError(t, s.Mutate(func(tx *Tx) (bool, error) {
		tx.PutGroup(domain.Group{ID: 1, Title: "one"})
		return true, nil
	}))

	expiry := time.Now().Add(time.Hour)
	var wg sync.WaitGroup
	for subject := int64(1); subject <= 50; subject++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.View().Entitlements()
			assert.NoError(t, s.Mutate(func(tx *Tx) (bool, error) {
				return true, tx.SetEntitlement(domain.Entitlement{GroupID: 1, SubjectID: subject, ExpiresAt: expiry})
			}))
		}()
	}
	wg.Wait()

	assert.Len(t, s.View().GroupEntitlements(1), 50)
	assert.Len(t, Open(path, discardLogger()).View().GroupEntitlements(1), 50)
}

func TestStore_LoadSkipsMalformedRecords(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.json")
	doc := `{
  "entitlements": {
    "100": {"7": "2026-03-02T12:00:00Z", "8": "not-a-time", "x": "2026-03-02T12:00:00Z", "9": 42},
    "300": {"1": "2026-03-02T12:00:00Z"}
  },
  "admins": [1, "2", "three"],
  "groups": {"100": "Premium", "abc": "Broken"},
  "members": {"100": {"7": {"display_name": "Seven", "handle": "@seven", "role_status": "member", "joined_at": "garbage"}}}
}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	view := Open(path, discardLogger()).View()

	assert.Equal(t, []domain.Group{{ID: 100, Title: "Premium"}}, view.Groups())
	assert.Equal(t, []int64{1, 2}, view.Admins())
	require.Len(t, view.Entitlements(), 1)
	expiresAt, ok := view.Entitlement(100, 7)
	require.True(t, ok)
	assert.True(t, time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC).Equal(expiresAt))
	assert.Empty(t, view.GroupMembers(100))
}

func TestStore_LoadCorruptFileStartsEmpty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s := Open(path, discardLogger())
	assert.Empty(t, s.View().Groups())

	_, err := ReadSnapshot(path, discardLogger())
	assert.Error(t, err)
}

func TestStore_LoadLegacyLayout(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rental_data.json")
	doc := `{
  "rentals": {"-1001": {"42": "2026-05-01T10:30:00.123456"}},
  "admins": [5],
  "bot_channels": {"-1001": "Old Channel"},
  "channel_members": {"-1001": {"42": {"username": "@old", "full_name": "Old Timer", "status": "member", "join_time": "2026-04-01 08:00:00"}}}
}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	view := Open(path, discardLogger()).View()

	title, ok := view.GroupTitle(-1001)
	require.True(t, ok)
	assert.Equal(t, "Old Channel", title)
	assert.Equal(t, []int64{5}, view.Admins())

	expiresAt, ok := view.Entitlement(-1001, 42)
	require.True(t, ok)
	assert.True(t, time.Date(2026, 5, 1, 10, 30, 0, 123456000, time.Local).Equal(expiresAt))

	member, ok := view.Member(-1001, 42)
	require.True(t, ok)
	assert.Equal(t, "Old Timer", member.DisplayName)
	assert.Equal(t, "@old", member.Handle)
	assert.True(t, time.Date(2026, 4, 1, 8, 0, 0, 0, time.Local).Equal(member.JoinedAt))
}

func TestStore_WriteFailureKeepsMemoryAndRetries(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	// The parent of the snapshot is a regular file, so every write fails.
	s := Open(filepath.Join(blocker, "state.json"), discardLogger())
	require.NoError(t, s.Mutate(func(tx *Tx) (bool, error) {
		tx.PutGroup(domain.Group{ID: 1, Title: "one"})
		return true, nil
	}))
	assert.True(t, s.View().HasGroup(1))

	var persistErr *PersistError
	require.ErrorAs(t, s.Flush(), &persistErr)

	// Once the path becomes writable the pending state lands on disk.
	require.NoError(t, os.Remove(blocker))
	require.NoError(t, s.Flush())
	assert.True(t, Open(filepath.Join(blocker, "state.json"), discardLogger()).View().HasGroup(1))
}

func TestWriteFileAtomic_LeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	require.NoError(t, writeFileAtomic(path, []byte(`{"a":1}`), 0o600))
	require.NoError(t, writeFileAtomic(path, []byte(`{"a":2}`), 0o600))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":2}`, string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestWriteFileAtomic_CreatesMissingDirectory(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "data", "state.json")
	require.NoError(t, writeFileAtomic(path, []byte(`{}`), 0o600))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))
}

func TestParseInstant(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{name: "rfc3339", input: "2026-01-02T03:04:05Z", want: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
		{name: "offset", input: "2026-01-02T03:04:05+02:00", want: time.Date(2026, 1, 2, 1, 4, 5, 0, time.UTC)},
		{name: "naive micro", input: "2026-01-02T03:04:05.5", want: time.Date(2026, 1, 2, 3, 4, 5, 500000000, time.Local)},
		{name: "naive space", input: "2026-01-02 03:04:05", want: time.Date(2026, 1, 2, 3, 4, 5, 0, time.Local)},
		{name: "garbage", input: "yesterday", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseInstant(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}
