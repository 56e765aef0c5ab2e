package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuthority struct {
	mu     sync.Mutex
	admins map[int64]bool
}

func (f *fakeAuthority) IsAdmin(_ context.Context, subjectID int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.admins[subjectID]
}

func (f *fakeAuthority) EnrollIfEmpty(_ context.Context, subjectID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.admins) > 0 {
		return false, nil
	}
	f.admins[subjectID] = true
	return true, nil
}

func echoAdmin() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetAdminID(r.Context()); !ok {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRequireAdmin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		header    string
		admins    map[int64]bool
		bootstrap bool
		want      int
	}{
		{"missing header", "", map[int64]bool{1: true}, false, http.StatusUnauthorized},
		{"not a number", "abc", map[int64]bool{1: true}, false, http.StatusUnauthorized},
		{"admin", "1", map[int64]bool{1: true}, false, http.StatusNoContent},
		{"non-admin", "2", map[int64]bool{1: true}, false, http.StatusForbidden},
		{"empty registry without bootstrap", "2", map[int64]bool{}, false, http.StatusForbidden},
		{"empty registry with bootstrap", "2", map[int64]bool{}, true, http.StatusNoContent},
		{"bootstrap only while empty", "2", map[int64]bool{1: true}, true, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			authority := &fakeAuthority{admins: tt.admins}
			h := RequireAdmin(authority, tt.bootstrap, slog.New(slog.DiscardHandler))(echoAdmin())

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(AdminHeader, tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			require.Equal(t, tt.want, rr.Code)
		})
	}
}

func TestWebhookAuth(t *testing.T) {
	t.Parallel()

	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	call := func(secret, header string) int {
		req := httptest.NewRequest(http.MethodPost, "/events/group", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rr := httptest.NewRecorder()
		WebhookAuth(secret)(ok).ServeHTTP(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusNoContent, call("", ""))
	assert.Equal(t, http.StatusUnauthorized, call("s3cret", ""))
	assert.Equal(t, http.StatusUnauthorized, call("s3cret", "Basic s3cret"))
	assert.Equal(t, http.StatusUnauthorized, call("s3cret", "Bearer wrong"))
	assert.Equal(t, http.StatusNoContent, call("s3cret", "Bearer s3cret"))
}
