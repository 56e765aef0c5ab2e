package member

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_HandleEvent(t *testing.T) {
	t.Parallel()
	svc, st, _ := newTestService(t)
	h := NewHandler(svc, slog.New(slog.DiscardHandler))

	tests := []struct {
		name    string
		body    string
		status  int
		outcome Outcome
	}{
		{"join", `{"group_id":100,"subject_id":7,"handle":"@alice","old_status":"left","new_status":"member","timestamp":"2026-05-04T09:00:00Z"}`, http.StatusAccepted, OutcomeJoined},
		{"promote", `{"group_id":100,"subject_id":7,"old_status":"member","new_status":"administrator"}`, http.StatusAccepted, OutcomeUpdated},
		{"unmanaged", `{"group_id":5,"subject_id":7,"old_status":"left","new_status":"member"}`, http.StatusAccepted, OutcomeIgnored},
		{"extra platform fields", `{"update_id":991,"group_id":100,"subject_id":7,"old_status":"administrator","new_status":"member","via_join_request":false,"invite_link":{"name":"promo"}}`, http.StatusAccepted, OutcomeUpdated},
		{"missing subject", `{"group_id":100,"old_status":"left","new_status":"member"}`, http.StatusBadRequest, ""},
		{"malformed", `{"group_id":`, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		rr := httptest.NewRecorder()
		h.HandleEvent(rr, httptest.NewRequest(http.MethodPost, "/events/membership", strings.NewReader(tt.body)))
		require.Equal(t, tt.status, rr.Code, tt.name)
		if tt.outcome == "" {
			continue
		}
		var env struct {
			Data EventResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
		assert.Equal(t, tt.outcome, env.Data.Outcome, tt.name)
	}

	record, ok := st.View().Member(100, 7)
	require.True(t, ok)
	assert.Equal(t, "@alice", record.Handle)
}
