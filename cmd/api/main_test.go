package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkhayef/rentguard/internal/admin"
	"github.com/fkhayef/rentguard/internal/config"
	"github.com/fkhayef/rentguard/internal/domain"
	"github.com/fkhayef/rentguard/internal/entitlement"
	"github.com/fkhayef/rentguard/internal/gateway/gatewaytest"
	"github.com/fkhayef/rentguard/internal/group"
	"github.com/fkhayef/rentguard/internal/member"
	"github.com/fkhayef/rentguard/internal/store"
	"github.com/fkhayef/rentguard/internal/sweeper"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	st := store.NewMemory(logger)
	fake := &gatewaytest.Fake{}

	adminService := admin.NewService(admin.NewRepository(st), logger)
	_, err := adminService.EnsureSeed(context.Background(), 1)
	require.NoError(t, err)

	groupService := group.NewService(group.NewRepository(st), logger)
	entitlementService := entitlement.NewService(entitlement.NewRepository(st), logger)
	memberService := member.NewService(member.NewRepository(st), fake, adminService, logger)
	sw := sweeper.New(entitlementService, sweeper.StoreDirectory{Store: st}, fake, logger)

	cfg := config.Default()
	cfg.WebhookSecret = "s3cret"

	return newRouter(cfg, handlers{
		admins:      adminService,
		group:       group.NewHandler(groupService, logger),
		entitlement: entitlement.NewHandler(entitlementService, logger),
		member:      member.NewHandler(memberService, logger),
		admin:       admin.NewHandler(adminService, logger),
		sweep:       sweeper.NewHandler(sw),
	}, logger)
}

func request(t *testing.T, router http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRouter(t *testing.T) {
	router := newTestRouter(t)
	webhook := map[string]string{"Authorization": "Bearer s3cret"}
	asAdmin := map[string]string{"X-Admin-ID": "1"}

	rec := request(t, router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	event := `{"group_id":-100,"title":"Premium","new_status":"added"}`
	assert.Equal(t, http.StatusUnauthorized, request(t, router, http.MethodPost, "/api/v1/events/group", event, nil).Code)
	assert.Equal(t, http.StatusAccepted, request(t, router, http.MethodPost, "/api/v1/events/group", event, webhook).Code)

	assert.Equal(t, http.StatusUnauthorized, request(t, router, http.MethodGet, "/api/v1/groups", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, request(t, router, http.MethodGet, "/api/v1/groups", "", map[string]string{"X-Admin-ID": "2"}).Code)

	rec = request(t, router, http.MethodGet, "/api/v1/groups", "", asAdmin)
	require.Equal(t, http.StatusOK, rec.Code)
	var groups struct {
		Data []group.GroupResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &groups))
	require.Len(t, groups.Data, 1)
	assert.Equal(t, "Premium", groups.Data[0].Title)

	rec = request(t, router, http.MethodPost, "/api/v1/groups/-100/entitlements", `{"subject_id":7,"duration":"1d"}`, asAdmin)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = request(t, router, http.MethodGet, "/api/v1/groups/-100/entitlements/7", "", asAdmin)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = request(t, router, http.MethodPost, "/api/v1/sweeps", "", asAdmin)
	require.Equal(t, http.StatusOK, rec.Code)
	var sweep struct {
		Data sweeper.Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sweep))
	assert.Zero(t, sweep.Data.Overdue)

	// the inbox is only mounted when a database is configured
	assert.Equal(t, http.StatusNotFound, request(t, router, http.MethodGet, "/api/v1/notifications", "", asAdmin).Code)
}

func TestInspect(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	path := filepath.Join(t.TempDir(), "rental_data.json")
	st := store.Open(path, logger)

	now := time.Now()
	err := st.Mutate(func(tx *store.Tx) (bool, error) {
		tx.PutGroup(domain.Group{ID: -100, Title: "Premium"})
		tx.PutGroup(domain.Group{ID: -200, Title: "VIP"})
		tx.AddAdmin(1)
		if err := tx.SetEntitlement(domain.Entitlement{GroupID: -100, SubjectID: 7, ExpiresAt: now.Add(time.Hour)}); err != nil {
			return false, err
		}
		if err := tx.SetEntitlement(domain.Entitlement{GroupID: -100, SubjectID: 8, ExpiresAt: now.Add(-time.Hour)}); err != nil {
			return false, err
		}
		return true, nil
	})
	require.NoError(t, err)
	require.NoError(t, st.Flush())

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"inspect", "--file", path, "--output", "json"})
	require.NoError(t, cmd.Execute())

	var report snapshotReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, []int64{1}, report.Admins)
	require.Len(t, report.Groups, 2)
	assert.Equal(t, groupReport{ID: -200, Title: "VIP"}, report.Groups[0])
	assert.Equal(t, groupReport{ID: -100, Title: "Premium", Entitlements: 2, Overdue: 1}, report.Groups[1])

	out.Reset()
	cmd = newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"inspect", "--file", path})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Premium")
	assert.Contains(t, out.String(), "ENTITLEMENTS")
}

func TestInspect_MissingFile(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"inspect", "--file", filepath.Join(t.TempDir(), "absent.json")})
	assert.Error(t, cmd.Execute())
}
