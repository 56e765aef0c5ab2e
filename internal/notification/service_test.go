package notification

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkhayef/rentguard/internal/domain"
	"github.com/fkhayef/rentguard/internal/gateway/gatewaytest"
	"github.com/fkhayef/rentguard/pkg/middleware"
)

// memoryStore keeps notifications in a slice
type memoryStore struct {
	mu        sync.Mutex
	items     []*Notification
	createErr error
	now       time.Time
}

func (m *memoryStore) Create(_ context.Context, n *Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.now = m.now.Add(time.Second)
	n.CreatedAt = m.now
	stored := *n
	m.items = append(m.items, &stored)
	return nil
}

func (m *memoryStore) GetByID(_ context.Context, id uuid.UUID) (*Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.items {
		if n.ID == id {
			found := *n
			return &found, nil
		}
	}
	return nil, nil
}

func (m *memoryStore) ListByRecipientID(_ context.Context, recipientID int64, limit, offset int, unreadOnly bool) ([]*Notification, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []*Notification
	for _, n := range m.items {
		if n.RecipientID == recipientID && (!unreadOnly || !n.IsRead) {
			found := *n
			matched = append(matched, &found)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	total := len(matched)
	if offset > total {
		offset = total
	}
	end := min(offset+limit, total)
	return matched[offset:end], total, nil
}

func (m *memoryStore) MarkAsRead(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.items {
		if n.ID == id {
			n.IsRead = true
		}
	}
	return nil
}

func (m *memoryStore) MarkAllAsRead(_ context.Context, recipientID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var changed int64
	for _, n := range m.items {
		if n.RecipientID == recipientID && !n.IsRead {
			n.IsRead = true
			changed++
		}
	}
	return changed, nil
}

func (m *memoryStore) GetUnreadCount(_ context.Context, recipientID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, n := range m.items {
		if n.RecipientID == recipientID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func newInbox(t *testing.T) (*Inbox, *Service, *memoryStore, *gatewaytest.Fake) {
	t.Helper()
	repo := &memoryStore{now: time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)}
	service := NewService(repo)
	fake := &gatewaytest.Fake{}
	return NewInbox(fake, service, slog.New(slog.DiscardHandler)), service, repo, fake
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindMemberJoined, KindOf("New member\n\nGroup: Premium"))
	assert.Equal(t, KindRentalEnded, KindOf("Rental ended\n\nGroup: Premium"))
	assert.Equal(t, KindOther, KindOf("hello"))
	assert.Equal(t, KindOther, KindOf(""))
}

func TestInbox_RecordsDeliveredAndFailedMessages(t *testing.T) {
	inbox, service, _, fake := newInbox(t)
	ctx := context.Background()

	fake.NotifyErr = func(principalID int64) error {
		if principalID == 2 {
			return errors.New("bot was blocked by the user")
		}
		return nil
	}

	require.NoError(t, inbox.Notify(ctx, 1, "Rental ended\n\nGroup: Premium"))
	require.Error(t, inbox.Notify(ctx, 2, "Rental ended\n\nGroup: Premium"))
	assert.Len(t, fake.Messages(), 2)

	delivered, total, err := service.ListByRecipientID(ctx, 1, 1, 20, false)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.True(t, delivered[0].Delivered)
	assert.Nil(t, delivered[0].DeliveryError)
	assert.Equal(t, KindRentalEnded, delivered[0].Kind)

	failed, total, err := service.ListByRecipientID(ctx, 2, 1, 20, false)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.False(t, failed[0].Delivered)
	require.NotNil(t, failed[0].DeliveryError)
	assert.Contains(t, *failed[0].DeliveryError, "blocked")
}

func TestInbox_RecordFailureKeepsDeliveryResult(t *testing.T) {
	inbox, _, repo, fake := newInbox(t)
	repo.createErr = errors.New("connection refused")

	assert.NoError(t, inbox.Notify(context.Background(), 1, "New member"))
	assert.Len(t, fake.Messages(), 1)
}

func TestInbox_RevokeAndLookupPassThrough(t *testing.T) {
	inbox, _, repo, fake := newInbox(t)

	require.NoError(t, inbox.Revoke(context.Background(), 100, 7))
	assert.Equal(t, []gatewaytest.Call{{GroupID: 100, SubjectID: 7}}, fake.Revokes())
	assert.Empty(t, repo.items)

	fake.Status = func(int64, int64) (domain.MemberStatus, error) { return domain.StatusMember, nil }
	status, err := inbox.Member(context.Background(), 100, 7)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusMember, status)
	assert.Len(t, fake.Lookups(), 1)
	assert.Empty(t, repo.items)
}

func TestService_MarkAsRead(t *testing.T) {
	_, service, _, _ := newInbox(t)
	ctx := context.Background()

	n, err := service.Record(ctx, 1, "hello", nil)
	require.NoError(t, err)

	assert.ErrorIs(t, service.MarkAsRead(ctx, n.ID, 2), ErrNotRecipient)
	assert.ErrorIs(t, service.MarkAsRead(ctx, uuid.New(), 1), ErrNotificationNotFound)

	require.NoError(t, service.MarkAsRead(ctx, n.ID, 1))
	count, err := service.GetUnreadCount(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestService_PaginationNewestFirst(t *testing.T) {
	_, service, _, _ := newInbox(t)
	ctx := context.Background()
	for _, text := range []string{"first", "second", "third"} {
		_, err := service.Record(ctx, 1, text, nil)
		require.NoError(t, err)
	}

	page, total, err := service.ListByRecipientID(ctx, 1, 1, 2, false)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 2)
	assert.Equal(t, "third", page[0].Message)
	assert.Equal(t, "second", page[1].Message)

	page, _, err = service.ListByRecipientID(ctx, 1, 2, 2, false)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "first", page[0].Message)

	changed, err := service.MarkAllAsRead(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), changed)

	unread, total, err := service.ListByRecipientID(ctx, 1, 1, 20, true)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, unread)
}

func TestPage(t *testing.T) {
	tests := []struct {
		page, perPage         int
		wantPage, wantPerPage int
	}{
		{0, 0, 1, 20},
		{3, 50, 3, 50},
		{-1, 101, 1, 20},
		{2, 100, 2, 100},
	}
	for _, tt := range tests {
		page, perPage := Page(tt.page, tt.perPage)
		assert.Equal(t, tt.wantPage, page)
		assert.Equal(t, tt.wantPerPage, perPage)
	}
}

func TestHandler_ScopesInboxToCaller(t *testing.T) {
	_, service, _, _ := newInbox(t)
	ctx := context.Background()
	mine, err := service.Record(ctx, 1, "Rental ended\n\nGroup: Premium", nil)
	require.NoError(t, err)
	theirs, err := service.Record(ctx, 2, "New member", nil)
	require.NoError(t, err)

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r = r.WithContext(context.WithValue(r.Context(), middleware.AdminIDKey, int64(1)))
			next.ServeHTTP(w, r)
		})
	})
	router.Mount("/notifications", NewHandler(service, slog.New(slog.DiscardHandler)).Routes())

	do := func(method, path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
		return rec
	}

	rec := do(http.MethodGet, "/notifications")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data []NotificationResponse `json:"data"`
		Meta struct {
			Page       int `json:"page"`
			Total      int `json:"total"`
			TotalPages int `json:"total_pages"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, mine.ID.String(), body.Data[0].ID)
	assert.Equal(t, KindRentalEnded, body.Data[0].Kind)
	assert.Equal(t, 1, body.Meta.Page)
	assert.Equal(t, 1, body.Meta.Total)
	assert.Equal(t, 1, body.Meta.TotalPages)

	assert.Equal(t, http.StatusForbidden, do(http.MethodPost, "/notifications/"+theirs.ID.String()+"/read").Code)
	assert.Equal(t, http.StatusBadRequest, do(http.MethodGet, "/notifications/not-a-uuid").Code)
	assert.Equal(t, http.StatusNotFound, do(http.MethodGet, "/notifications/"+uuid.NewString()).Code)
	assert.Equal(t, http.StatusOK, do(http.MethodPost, "/notifications/"+mine.ID.String()+"/read").Code)

	rec = do(http.MethodGet, "/notifications/unread-count")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":{"unread_count":0}}`, rec.Body.String())
}
