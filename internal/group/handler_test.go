package group

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_LifecycleAndViews(t *testing.T) {
	t.Parallel()
	svc, st := newTestService(t)
	h := NewHandler(svc, slog.New(slog.DiscardHandler))

	r := chi.NewRouter()
	r.Mount("/groups", h.Routes())
	r.Post("/events/group", h.HandleEvent)

	post := func(body string) int {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/events/group", strings.NewReader(body)))
		return rr.Code
	}
	get := func(path string) (int, json.RawMessage) {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		var env struct {
			Data json.RawMessage `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
		return rr.Code, env.Data
	}

	require.Equal(t, http.StatusAccepted, post(`{"group_id":100,"title":"Premium","new_status":"added","chat_type":"supergroup","update_id":17}`))
	assert.Equal(t, http.StatusBadRequest, post(`{"group_id":100,"title":"Premium","new_status":"added"} {}`))
	assert.Equal(t, http.StatusBadRequest, post(`{"group_id":100,"new_status":"archived"}`))
	assert.Equal(t, http.StatusBadRequest, post(`{"title":"x","new_status":"added"}`))
	populate(t, st, 100)

	code, data := get("/groups")
	require.Equal(t, http.StatusOK, code)
	var groups []GroupResponse
	require.NoError(t, json.Unmarshal(data, &groups))
	assert.Equal(t, []GroupResponse{{ID: 100, Title: "Premium", Entitlements: 2, Members: 2}}, groups)

	code, data = get("/groups/100")
	require.Equal(t, http.StatusOK, code)
	var detail DetailResponse
	require.NoError(t, json.Unmarshal(data, &detail))
	assert.Len(t, detail.Roster, 3)

	code, data = get("/groups/100/members")
	require.Equal(t, http.StatusOK, code)
	var members []MemberResponse
	require.NoError(t, json.Unmarshal(data, &members))
	assert.Len(t, members, 2)

	code, _ = get("/groups/555")
	assert.Equal(t, http.StatusNotFound, code)

	require.Equal(t, http.StatusAccepted, post(`{"group_id":100,"new_status":"removed"}`))
	code, _ = get("/groups/100/members")
	assert.Equal(t, http.StatusNotFound, code)
}
