package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second, nil), srv
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func TestProcessQueryEmptyQueryNoNetwork(t *testing.T) {
	called := false
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		writeJSON(w, map[string]string{"status": "success"})
	})

	// 空与纯空白都在本地拒绝
	for _, q := range []string{"", "   ", "\t\n"} {
		_, err := client.ProcessQuery(context.Background(), q)
		if err != ErrEmptyQuery {
			t.Errorf("query %q: expected ErrEmptyQuery, got %v", q, err)
		}
	}
	if called {
		t.Error("empty query should not reach the backend")
	}
}

func TestProcessQueryStatusHandling(t *testing.T) {
	tests := []struct {
		name    string
		status  string
		wantErr bool
	}{
		{"success accepted", StatusSuccess, false},
		{"info accepted", StatusInfo, false},
		{"confirmation accepted", StatusConfirmation, false},
		{"conflict accepted", StatusConflict, false},
		{"error rejected", "error", true},
		{"unknown rejected", "weird", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, map[string]string{"status": tt.status, "message": "msg"})
			})
			resp, err := client.ProcessQuery(context.Background(), "schedule with sam")
			if tt.wantErr {
				var apiErr *APIError
				require.Error(t, err)
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, tt.status, apiErr.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.Status)
		})
	}
}

func TestProcessQueryNonJSONResponse(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("<html>Internal Server Error</html>"))
	})

	_, err := client.ProcessQuery(context.Background(), "anything")
	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, PathProcessQuery, backendErr.Endpoint)
	assert.Contains(t, backendErr.Body, "Internal Server Error")
}

func TestProcessQueryDecodesNestedSlots(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": "conflict",
			"message": "That time is busy.",
			"intent": "schedule",
			"suggested_slots": [
				{"start": {"dateTime": "2024-06-01T10:00:00Z"}, "end": {"dateTime": "2024-06-01T10:30:00Z"}},
				{"start": {"dateTime": "2024-06-01T11:00:00Z"}, "end": {"dateTime": "2024-06-01T11:30:00Z"}}
			]
		}`))
	})

	resp, err := client.ProcessQuery(context.Background(), "meet tomorrow at 10")
	require.NoError(t, err)
	require.Len(t, resp.SuggestedSlots, 2)
	assert.Equal(t, "2024-06-01T10:00:00Z", resp.SuggestedSlots[0].Start.DateTime)
	assert.Equal(t, "2024-06-01T11:30:00Z", resp.SuggestedSlots[1].End.DateTime)
}

func TestUpdateWithDryRunConflict(t *testing.T) {
	var requests []MeetingRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req MeetingRequest
		json.NewDecoder(r.Body).Decode(&req)
		requests = append(requests, req)
		writeJSON(w, MeetingResponse{
			Status:  StatusConflict,
			Message: "The selected time is busy.",
			SuggestedSlots: []Slot{
				{Start: SlotTime{DateTime: "2024-06-01T14:00:00Z"}, End: SlotTime{DateTime: "2024-06-01T15:00:00Z"}},
			},
		})
	})

	outcome, err := client.UpdateWithDryRun(context.Background(), MeetingRequest{
		EventID:   "evt-1",
		StartTime: "2024-06-01T10:00:00Z",
		EndTime:   "2024-06-01T11:00:00Z",
	})
	require.NoError(t, err)
	assert.False(t, outcome.Committed)
	assert.True(t, outcome.Conflict)
	require.Len(t, outcome.Slots, 1)

	// 冲突时只发一次探测请求，绝不提交
	require.Len(t, requests, 1)
	require.NotNil(t, requests[0].DryRun)
	assert.True(t, *requests[0].DryRun)
	assert.Equal(t, ActionUpdate, requests[0].Action)
}

func TestUpdateWithDryRunCommitsOnSuccess(t *testing.T) {
	var requests []MeetingRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req MeetingRequest
		json.NewDecoder(r.Body).Decode(&req)
		requests = append(requests, req)
		writeJSON(w, MeetingResponse{Status: StatusSuccess, Message: "Meeting updated."})
	})

	outcome, err := client.UpdateWithDryRun(context.Background(), MeetingRequest{
		EventID:   "evt-1",
		StartTime: "2024-06-01T10:00:00Z",
		EndTime:   "2024-06-01T11:00:00Z",
	})
	require.NoError(t, err)
	assert.True(t, outcome.Committed)
	assert.False(t, outcome.Conflict)

	// 探测成功后立即提交：第二个请求 dry_run 必须显式为 false
	require.Len(t, requests, 2)
	require.NotNil(t, requests[0].DryRun)
	assert.True(t, *requests[0].DryRun)
	require.NotNil(t, requests[1].DryRun)
	assert.False(t, *requests[1].DryRun)
}

func TestUpdateWithDryRunRequiresEventID(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not reach the backend")
	})
	_, err := client.UpdateWithDryRun(context.Background(), MeetingRequest{})
	assert.Equal(t, ErrMissingEventID, err)
}

func TestManageMeetingConflictIsNotError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, MeetingResponse{Status: StatusConflict, Message: "busy"})
	})
	resp, err := client.ManageMeeting(context.Background(), MeetingRequest{Action: ActionSchedule})
	require.NoError(t, err)
	assert.Equal(t, StatusConflict, resp.Status)
}

func TestListUpcomingEvents(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, PathUpcomingEvents, r.URL.Path)
		writeJSON(w, EventsResponse{
			Status: StatusSuccess,
			Events: []Meeting{
				{ID: "a", Summary: "Standup", Start: "2024-06-01T10:00:00Z", End: "2024-06-01T10:15:00Z"},
				{ID: "b", Summary: "Review", Start: "2024-06-02T14:00:00Z", End: "2024-06-02T15:00:00Z"},
			},
		})
	})

	events, err := client.ListUpcomingEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Standup", events[0].Summary)
}

func TestAddContactValidation(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("invalid contact must not reach the backend")
	})
	_, err := client.AddContact(context.Background(), "", "sam@example.com")
	assert.Equal(t, ErrMissingContact, err)
	_, err = client.AddContact(context.Background(), "Sam", "  ")
	assert.Equal(t, ErrMissingContact, err)
}

func TestDeleteContactSendsEmail(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "sam@example.com", body["email"])
		writeJSON(w, StatusMessage{Status: StatusSuccess, Message: "deleted"})
	})
	resp, err := client.DeleteContact(context.Background(), "sam@example.com")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, resp.Status)
}

func TestEndTimeISO(t *testing.T) {
	tests := []struct {
		name    string
		start   string
		minutes int
		want    string
		wantErr bool
	}{
		{"utc half hour", "2024-06-01T10:00:00Z", 30, "2024-06-01T10:30:00Z", false},
		{"offset preserved", "2024-06-01T10:00:00+08:00", 60, "2024-06-01T11:00:00+08:00", false},
		{"crosses midnight", "2024-06-01T23:45:00Z", 30, "2024-06-02T00:15:00Z", false},
		{"bad input", "not-a-time", 30, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EndTimeISO(tt.start, tt.minutes)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMeetingDuration(t *testing.T) {
	m := Meeting{Start: "2024-06-01T10:00:00Z", End: "2024-06-01T10:45:00Z"}
	if got := m.Duration(); got != 45 {
		t.Errorf("Duration() = %d, want 45", got)
	}
	// 不可解析的时间返回 0
	bad := Meeting{Start: "x", End: "y"}
	if got := bad.Duration(); got != 0 {
		t.Errorf("Duration() on bad input = %d, want 0", got)
	}
}
