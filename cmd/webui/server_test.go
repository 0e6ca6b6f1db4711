package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linwq87/meetassist/pkg/assistant"
)

func newTestServer(t *testing.T, backend http.HandlerFunc) (*Server, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	upstream := httptest.NewServer(backend)
	t.Cleanup(upstream.Close)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := assistant.NewClient(upstream.URL, 5*time.Second, log)
	srv, err := NewServer(client, log)
	require.NoError(t, err)

	r := gin.New()
	srv.RegisterRoutes(r)
	return srv, r
}

func postForm(r *gin.Engine, path string, form url.Values) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.ServeHTTP(w, req)
	return w
}

func getPage(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestIndexRendersInitialState(t *testing.T) {
	_, r := newTestServer(t, func(w http.ResponseWriter, req *http.Request) {})

	w := getPage(r, "/")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Enter a meeting request above to begin.")
	assert.Contains(t, body, "New Meeting")
	assert.Contains(t, body, "Manage Meetings")
	assert.Contains(t, body, "Upcoming Meetings")
}

func TestQueryEmptyRejectedLocally(t *testing.T) {
	called := false
	_, r := newTestServer(t, func(w http.ResponseWriter, req *http.Request) {
		called = true
	})

	w := postForm(r, "/query", url.Values{"query": {"   "}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.False(t, called, "empty query must not hit the backend")

	body := getPage(r, "/").Body.String()
	assert.Contains(t, body, "Please enter a meeting query.")
}

func TestQueryRendersSuggestedSlots(t *testing.T) {
	_, r := newTestServer(t, func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(assistant.QueryResponse{
			Status:  assistant.StatusConflict,
			Message: "That time is busy. Here are some alternatives:",
			Intent:  assistant.IntentSchedule,
			SuggestedSlots: []assistant.Slot{
				{
					Start: assistant.SlotTime{DateTime: "2024-06-01T10:00:00Z"},
					End:   assistant.SlotTime{DateTime: "2024-06-01T10:30:00Z"},
				},
			},
		})
	})

	w := postForm(r, "/query", url.Values{"query": {"meet sam at 10"}})
	require.Equal(t, http.StatusSeeOther, w.Code)

	body := getPage(r, "/").Body.String()
	assert.Contains(t, body, "That time is busy. Here are some alternatives:")
	assert.Contains(t, body, `action="/slots/select"`)
	assert.Contains(t, body, "2024-06-01T10:00:00Z")
}

func TestQueryBackendHTMLErrorIsFriendly(t *testing.T) {
	_, r := newTestServer(t, func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("<html>boom</html>"))
	})

	postForm(r, "/query", url.Values{"query": {"anything"}})
	body := getPage(r, "/").Body.String()
	assert.Contains(t, body, "Server returned an invalid response. Please check the backend logs.")
	assert.NotContains(t, body, "boom")
}

func TestQueryEscapesBackendText(t *testing.T) {
	_, r := newTestServer(t, func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(assistant.QueryResponse{
			Status:  assistant.StatusInfo,
			Message: `<script>alert("x")</script>`,
		})
	})

	postForm(r, "/query", url.Values{"query": {"hello"}})
	body := getPage(r, "/").Body.String()
	assert.NotContains(t, body, `<script>alert`)
	assert.Contains(t, body, "&lt;script&gt;")
}

func TestCancelConfirmFlow(t *testing.T) {
	var mutations []assistant.MeetingRequest
	_, r := newTestServer(t, func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch req.URL.Path {
		case assistant.PathMeetings:
			var m assistant.MeetingRequest
			json.NewDecoder(req.Body).Decode(&m)
			mutations = append(mutations, m)
			json.NewEncoder(w).Encode(assistant.MeetingResponse{
				Status:  assistant.StatusSuccess,
				Message: "Meeting cancelled successfully",
			})
		case assistant.PathUpcomingEvents:
			json.NewEncoder(w).Encode(assistant.EventsResponse{Status: assistant.StatusSuccess})
		}
	})

	// Opening the dialog must not mutate anything.
	postForm(r, "/cancel/request", url.Values{"event_id": {"evt-1"}})
	body := getPage(r, "/").Body.String()
	assert.Contains(t, body, "Cancel this meeting?")
	assert.Empty(t, mutations)

	// Deny closes the dialog without a mutation.
	postForm(r, "/cancel/deny", nil)
	assert.Empty(t, mutations)

	// Re-open and confirm: exactly one cancel mutation.
	postForm(r, "/cancel/request", url.Values{"event_id": {"evt-1"}})
	postForm(r, "/cancel/confirm", nil)
	require.Len(t, mutations, 1)
	assert.Equal(t, assistant.ActionCancel, mutations[0].Action)
	assert.Equal(t, "evt-1", mutations[0].EventID)

	body = getPage(r, "/").Body.String()
	assert.Contains(t, body, "Meeting Cancelled!")
}

func TestSlotSelectUsesFormDefaults(t *testing.T) {
	var mutations []assistant.MeetingRequest
	_, r := newTestServer(t, func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if req.URL.Path == assistant.PathMeetings {
			var m assistant.MeetingRequest
			json.NewDecoder(req.Body).Decode(&m)
			mutations = append(mutations, m)
		}
		json.NewEncoder(w).Encode(assistant.MeetingResponse{Status: assistant.StatusSuccess, Message: "ok"})
	})

	postForm(r, "/slots/select", url.Values{
		"start": {"2024-06-01T10:00:00Z"},
		"end":   {"2024-06-01T10:30:00Z"},
	})

	require.Len(t, mutations, 1)
	assert.Equal(t, assistant.ActionSchedule, mutations[0].Action)
	assert.Equal(t, "New Meeting", mutations[0].Summary)
	assert.Equal(t, "Meeting scheduled via Meeting Scheduler.", mutations[0].Description)
	assert.Equal(t, "2024-06-01T10:00:00Z", mutations[0].StartTime)
}

func TestSlotRescheduleCommitsDirectly(t *testing.T) {
	var mutations []assistant.MeetingRequest
	srv, r := newTestServer(t, func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if req.URL.Path == assistant.PathMeetings {
			var m assistant.MeetingRequest
			json.NewDecoder(req.Body).Decode(&m)
			mutations = append(mutations, m)
		}
		json.NewEncoder(w).Encode(assistant.MeetingResponse{Status: assistant.StatusSuccess, Message: "ok"})
	})

	srv.mu.Lock()
	srv.model.UpcomingMeetings = []assistant.Meeting{{
		ID:        "evt-1",
		Summary:   "Standup",
		Attendees: []string{"a@example.com"},
	}}
	srv.mu.Unlock()

	postForm(r, "/slots/reschedule", url.Values{
		"event_id": {"evt-1"},
		"start":    {"2024-06-01T14:00:00Z"},
		"end":      {"2024-06-01T15:00:00Z"},
	})

	// Picking an already-free alternative skips the probe phase.
	require.Len(t, mutations, 1)
	assert.Equal(t, assistant.ActionUpdate, mutations[0].Action)
	require.NotNil(t, mutations[0].DryRun)
	assert.False(t, *mutations[0].DryRun)
	assert.Equal(t, "Standup", mutations[0].Summary)
}

func TestUpdateConflictShowsAlternatives(t *testing.T) {
	srv, r := newTestServer(t, func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(assistant.MeetingResponse{
			Status:  assistant.StatusConflict,
			Message: "busy",
			SuggestedSlots: []assistant.Slot{
				{
					Start: assistant.SlotTime{DateTime: "2024-06-01T16:00:00Z"},
					End:   assistant.SlotTime{DateTime: "2024-06-01T17:00:00Z"},
				},
			},
		})
	})

	srv.mu.Lock()
	srv.model.CurrentEventID = "evt-1"
	srv.mu.Unlock()

	postForm(r, "/meetings/update", url.Values{
		"summary":    {"Standup"},
		"start_time": {"2024-06-01T16:00"},
		"duration":   {"60"},
	})

	body := getPage(r, "/").Body.String()
	assert.Contains(t, body, "The selected time is busy. Here are some alternatives:")
	assert.Contains(t, body, `action="/slots/reschedule"`)
	assert.Contains(t, body, "2024-06-01T16:00:00Z")
}

func TestConfirmDenyResets(t *testing.T) {
	srv, r := newTestServer(t, func(w http.ResponseWriter, req *http.Request) {
		t.Error("deny must not call the backend")
	})

	srv.mu.Lock()
	srv.model.Confirmation = &assistant.ConfirmationDetails{
		Intent:   assistant.IntentCancel,
		Original: assistant.ConfirmationMeeting{ID: "evt-1", Summary: "Standup"},
	}
	srv.mu.Unlock()

	postForm(r, "/confirm/deny", nil)
	body := getPage(r, "/").Body.String()
	assert.Contains(t, body, "Enter a meeting request above to begin.")
	assert.NotContains(t, body, "Confirm Meeting Cancellation")
}

func TestCalendarDayParamValidation(t *testing.T) {
	srv, r := newTestServer(t, func(w http.ResponseWriter, req *http.Request) {})

	for _, bad := range []string{"0", "32", "abc", "-1"} {
		w := getPage(r, "/calendar/day/"+bad)
		assert.Equal(t, http.StatusSeeOther, w.Code)
		srv.mu.Lock()
		assert.Equal(t, 0, srv.model.SelectedDay, "day %q must be rejected", bad)
		srv.mu.Unlock()
	}

	getPage(r, "/calendar/day/15")
	srv.mu.Lock()
	assert.Equal(t, 15, srv.model.SelectedDay)
	srv.mu.Unlock()
}

func TestHealthz(t *testing.T) {
	_, r := newTestServer(t, func(w http.ResponseWriter, req *http.Request) {})
	w := getPage(r, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestParseFormTimes(t *testing.T) {
	mk := func(form url.Values) *gin.Context {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = req
		return c
	}

	t.Run("datetime-local input", func(t *testing.T) {
		start, end, minutes, err := parseFormTimes(mk(url.Values{
			"start_time": {"2024-06-01T10:00"},
			"duration":   {"45"},
		}))
		require.NoError(t, err)
		assert.Equal(t, 45, minutes)
		assert.Equal(t, 45*time.Minute, end.Sub(start))
	})

	t.Run("rfc3339 fallback", func(t *testing.T) {
		start, _, _, err := parseFormTimes(mk(url.Values{
			"start_time": {"2024-06-01T10:00:00Z"},
			"duration":   {"30"},
		}))
		require.NoError(t, err)
		assert.Equal(t, 10, start.UTC().Hour())
	})

	t.Run("missing fields", func(t *testing.T) {
		_, _, _, err := parseFormTimes(mk(url.Values{"duration": {"30"}}))
		assert.ErrorIs(t, err, assistant.ErrMissingTime)
	})

	t.Run("non-positive duration", func(t *testing.T) {
		_, _, _, err := parseFormTimes(mk(url.Values{
			"start_time": {"2024-06-01T10:00"},
			"duration":   {"0"},
		}))
		assert.ErrorIs(t, err, assistant.ErrMissingTime)
	})
}
