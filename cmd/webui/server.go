package main

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/linwq87/meetassist/pkg/assistant"
	"github.com/linwq87/meetassist/pkg/calendarview"
	"github.com/linwq87/meetassist/pkg/viewmodel"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Server renders the three-tab page from a single view-model. The model is
// single-writer by policy; the mutex only serializes gin's handler goroutines.
type Server struct {
	client *assistant.Client
	log    *slog.Logger

	mu    sync.Mutex
	model *viewmodel.Model

	tmpl *template.Template
	now  func() time.Time
}

// NewServer creates the webui server with a fresh view-model.
func NewServer(client *assistant.Client, log *slog.Logger) (*Server, error) {
	tmpl, err := template.New("webui").Funcs(template.FuncMap{
		"displayTime":  displayTime,
		"displayClock": displayClock,
		"inputTime":    inputTime,
	}).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Server{
		client: client,
		log:    log,
		model:  viewmodel.New(time.Now()),
		tmpl:   tmpl,
		now:    time.Now,
	}, nil
}

// RegisterRoutes wires all page routes plus health and metrics endpoints.
func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/", s.handleIndex)
	r.GET("/tab/:name", s.handleTab)
	r.GET("/reset", s.handleReset)

	r.POST("/query", s.handleQuery)
	r.POST("/meetings/schedule", s.handleSchedule)
	r.POST("/meetings/update", s.handleUpdate)
	r.POST("/reschedule", s.handleRescheduleFlow)

	r.POST("/cancel/request", s.handleCancelRequest)
	r.POST("/cancel/confirm", s.handleCancelConfirm)
	r.POST("/cancel/deny", s.handleCancelDeny)

	r.POST("/slots/select", s.handleSlotSelect)
	r.POST("/slots/reschedule", s.handleSlotReschedule)

	r.POST("/confirm/accept", s.handleConfirmAccept)
	r.POST("/confirm/deny", s.handleConfirmDeny)

	r.GET("/calendar/prev", s.handleCalendarPrev)
	r.GET("/calendar/next", s.handleCalendarNext)
	r.GET("/calendar/day/:day", s.handleCalendarDay)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// pageData is the template input: a snapshot of the model plus derived data.
type pageData struct {
	Model       *viewmodel.Model
	Calendar    calendarview.Month
	ListedDays  []assistant.Meeting
	ShowNewTime bool
	DayLabel    string
}

func (s *Server) renderPage(c *gin.Context) {
	m := s.model

	listed := m.UpcomingMeetings
	dayLabel := ""
	if m.SelectedDay > 0 {
		cur := m.CalendarCursor
		listed = calendarview.MeetingsOn(m.UpcomingMeetings, cur.Year(), cur.Month(), m.SelectedDay)
		dayLabel = time.Date(cur.Year(), cur.Month(), m.SelectedDay, 0, 0, 0, 0, time.Local).Format("Mon Jan 2 2006")
	}

	data := pageData{
		Model:       m,
		Calendar:    calendarview.BuildMonth(m.CalendarCursor, s.now(), m.UpcomingMeetings),
		ListedDays:  listed,
		ShowNewTime: m.ShowNewTime(),
		DayLabel:    dayLabel,
	}

	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(c.Writer, "index.html.tmpl", data); err != nil {
		s.log.Error("template render failed", "error", err)
	}
}

func (s *Server) handleIndex(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renderPage(c)
}

func redirectHome(c *gin.Context) {
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) handleReset(c *gin.Context) {
	s.mu.Lock()
	s.model.Reset()
	s.mu.Unlock()
	redirectHome(c)
}

func (s *Server) handleTab(c *gin.Context) {
	var tab viewmodel.Tab
	switch c.Param("name") {
	case "newMeeting":
		tab = viewmodel.TabNewMeeting
	case "manageMeetings":
		tab = viewmodel.TabManageMeetings
	case "upcomingMeetings":
		tab = viewmodel.TabUpcomingMeetings
	default:
		redirectHome(c)
		return
	}

	s.mu.Lock()
	fetch := s.model.SwitchTab(tab)
	s.mu.Unlock()

	// Switching to a meetings tab always refetches, discarding the cache.
	if fetch == viewmodel.FetchEvents {
		s.fetchEvents(c)
	}
	redirectHome(c)
}

// fetchEvents performs the upcoming-events fetch with sequence tracking.
func (s *Server) fetchEvents(c *gin.Context) {
	s.mu.Lock()
	seq := s.model.BeginRequest()
	s.model.SetStatus("Fetching your upcoming meetings...", "info")
	s.mu.Unlock()

	events, err := s.client.ListUpcomingEvents(c.Request.Context())

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.model.ApplyError(seq, fetchErrorMessage("Error fetching meetings", err))
		return
	}
	s.model.ApplyUpcomingEvents(seq, events)
}

func (s *Server) handleQuery(c *gin.Context) {
	query := strings.TrimSpace(c.PostForm("query"))
	if query == "" {
		s.mu.Lock()
		s.model.SetStatus("Please enter a meeting query.", "error")
		s.mu.Unlock()
		redirectHome(c)
		return
	}

	s.mu.Lock()
	s.model.Reset()
	seq := s.model.BeginRequest()
	s.model.SetStatus("Processing your request...", "info")
	s.mu.Unlock()

	resp, err := s.client.ProcessQuery(c.Request.Context(), query)

	s.mu.Lock()
	if err != nil {
		s.model.ApplyError(seq, queryErrorMessage(err))
	} else {
		s.model.ApplyQueryResponse(seq, resp)
	}
	s.mu.Unlock()
	redirectHome(c)
}

// parseFormTimes reads the datetime-local start plus duration fields.
func parseFormTimes(c *gin.Context) (time.Time, time.Time, int, error) {
	startValue := c.PostForm("start_time")
	durationValue := c.PostForm("duration")
	if startValue == "" || durationValue == "" {
		return time.Time{}, time.Time{}, 0, assistant.ErrMissingTime
	}
	start, err := time.ParseInLocation("2006-01-02T15:04", startValue, time.Local)
	if err != nil {
		// Pre-filled forms may carry a full RFC3339 stamp instead.
		start, err = time.Parse(time.RFC3339, startValue)
		if err != nil {
			return time.Time{}, time.Time{}, 0, assistant.ErrMissingTime
		}
	}
	minutes, err := strconv.Atoi(durationValue)
	if err != nil || minutes <= 0 {
		return time.Time{}, time.Time{}, 0, assistant.ErrMissingTime
	}
	return start, start.Add(time.Duration(minutes) * time.Minute), minutes, nil
}

func (s *Server) handleSchedule(c *gin.Context) {
	start, end, _, err := parseFormTimes(c)
	if err != nil {
		s.mu.Lock()
		s.model.SetStatus("Please provide a start time and duration.", "error")
		s.mu.Unlock()
		redirectHome(c)
		return
	}

	req := assistant.MeetingRequest{
		Action:      assistant.ActionSchedule,
		Summary:     strings.TrimSpace(c.PostForm("summary")),
		Attendees:   strings.TrimSpace(c.PostForm("attendees")),
		StartTime:   start.UTC().Format(time.RFC3339),
		EndTime:     end.UTC().Format(time.RFC3339),
		Description: strings.TrimSpace(c.PostForm("description")),
	}
	s.submitMutation(c, req, "Meeting Scheduled!")
}

func (s *Server) handleUpdate(c *gin.Context) {
	s.mu.Lock()
	eventID := s.model.CurrentEventID
	s.mu.Unlock()
	if eventID == "" {
		s.mu.Lock()
		s.model.SetStatus("No event ID found for update.", "error")
		s.mu.Unlock()
		redirectHome(c)
		return
	}

	start, end, _, err := parseFormTimes(c)
	if err != nil {
		s.mu.Lock()
		s.model.SetStatus("Please provide a start time and duration.", "error")
		s.mu.Unlock()
		redirectHome(c)
		return
	}

	s.mu.Lock()
	seq := s.model.BeginRequest()
	s.mu.Unlock()

	// Update payloads carry an explicit UTC offset.
	outcome, err := s.client.UpdateWithDryRun(c.Request.Context(), assistant.MeetingRequest{
		EventID:     eventID,
		Summary:     strings.TrimSpace(c.PostForm("summary")),
		Attendees:   strings.TrimSpace(c.PostForm("attendees")),
		StartTime:   assistant.LocalOffsetISO(start),
		EndTime:     assistant.LocalOffsetISO(end),
		Description: strings.TrimSpace(c.PostForm("description")),
	})

	s.mu.Lock()
	defer func() { s.mu.Unlock(); redirectHome(c) }()
	if err != nil {
		s.model.ApplyError(seq, fetchErrorMessage("Error updating meeting", err))
		return
	}
	if !s.model.AcceptResponse(seq) {
		return
	}
	if outcome.Conflict {
		s.model.Tab = viewmodel.TabManageMeetings
		s.model.ShowConflictSlots(outcome.Slots, eventID)
		return
	}
	s.model.Reset()
	s.model.SetStatus(fmt.Sprintf("Meeting Updated! %s.", outcome.Message), "success")
}

// submitMutation sends a single-phase mutation and resets on success.
func (s *Server) submitMutation(c *gin.Context, req assistant.MeetingRequest, successPrefix string) {
	s.mu.Lock()
	seq := s.model.BeginRequest()
	s.mu.Unlock()

	resp, err := s.client.ManageMeeting(c.Request.Context(), req)

	s.mu.Lock()
	if err != nil {
		s.model.ApplyError(seq, fetchErrorMessage("Error", err))
	} else if s.model.AcceptResponse(seq) {
		s.model.Reset()
		s.model.SetStatus(fmt.Sprintf("%s %s.", successPrefix, resp.Message), "success")
	}
	s.mu.Unlock()
	redirectHome(c)
}

func (s *Server) handleRescheduleFlow(c *gin.Context) {
	eventID := c.PostForm("event_id")

	s.mu.Lock()
	meeting, ok := s.model.FindMeetingByID(eventID)
	if !ok {
		s.model.SetStatus("Meeting details not found for reschedule.", "error")
	} else {
		s.model.PrefillReschedule(meeting)
	}
	s.mu.Unlock()
	redirectHome(c)
}

func (s *Server) handleCancelRequest(c *gin.Context) {
	s.mu.Lock()
	s.model.RequestCancel(c.PostForm("event_id"))
	s.mu.Unlock()
	redirectHome(c)
}

func (s *Server) handleCancelDeny(c *gin.Context) {
	s.mu.Lock()
	s.model.DismissCancel()
	s.mu.Unlock()
	redirectHome(c)
}

func (s *Server) handleCancelConfirm(c *gin.Context) {
	s.mu.Lock()
	eventID := s.model.PendingCancelID
	s.model.DismissCancel()
	if eventID == "" {
		s.mu.Unlock()
		redirectHome(c)
		return
	}
	seq := s.model.BeginRequest()
	s.model.SetStatus("Cancelling meeting...", "info")
	s.mu.Unlock()

	resp, err := s.client.ManageMeeting(c.Request.Context(), assistant.MeetingRequest{
		Action:  assistant.ActionCancel,
		EventID: eventID,
	})

	s.mu.Lock()
	if err != nil {
		s.model.ApplyError(seq, fetchErrorMessage("Error cancelling meeting", err))
		s.mu.Unlock()
		redirectHome(c)
		return
	}
	ok := s.model.AcceptResponse(seq)
	s.mu.Unlock()

	// Refresh the list the cancelled meeting came from, then restore the
	// cancellation message over the fetch status.
	s.fetchEvents(c)
	if ok {
		s.mu.Lock()
		s.model.SetStatus(fmt.Sprintf("Meeting Cancelled! %s.", resp.Message), "success")
		s.mu.Unlock()
	}
	redirectHome(c)
}

func (s *Server) handleSlotSelect(c *gin.Context) {
	s.mu.Lock()
	form := s.model.Form
	s.mu.Unlock()

	summary := form.Summary
	if summary == "" {
		summary = "New Meeting"
	}
	description := form.Description
	if description == "" {
		description = "Meeting scheduled via Meeting Scheduler."
	}
	req := assistant.MeetingRequest{
		Action:      assistant.ActionSchedule,
		Summary:     summary,
		Attendees:   form.Attendees,
		StartTime:   c.PostForm("start"),
		EndTime:     c.PostForm("end"),
		Description: description,
	}
	s.submitMutation(c, req, "Meeting Scheduled!")
}

func (s *Server) handleSlotReschedule(c *gin.Context) {
	eventID := c.PostForm("event_id")

	s.mu.Lock()
	meeting, ok := s.model.FindMeetingByID(eventID)
	s.mu.Unlock()
	if !ok {
		s.mu.Lock()
		s.model.SetStatus("Meeting details not found for reschedule.", "error")
		s.mu.Unlock()
		redirectHome(c)
		return
	}

	commit := false
	req := assistant.MeetingRequest{
		Action:      assistant.ActionUpdate,
		EventID:     eventID,
		Summary:     meeting.Summary,
		Attendees:   strings.Join(meeting.Attendees, ","),
		StartTime:   c.PostForm("start"),
		EndTime:     c.PostForm("end"),
		Description: meeting.Description,
		DryRun:      &commit,
	}
	s.submitMutation(c, req, "Meeting Updated!")
}

func (s *Server) handleConfirmAccept(c *gin.Context) {
	s.mu.Lock()
	d := s.model.Confirmation
	s.mu.Unlock()
	if d == nil {
		redirectHome(c)
		return
	}

	prefix := "Meeting Cancelled!"
	if d.Intent == assistant.IntentReschedule {
		prefix = "Meeting Updated!"
	}
	s.submitMutation(c, d.MutationRequest(), prefix)
}

func (s *Server) handleConfirmDeny(c *gin.Context) {
	s.mu.Lock()
	s.model.Reset()
	s.mu.Unlock()
	redirectHome(c)
}

func (s *Server) handleCalendarPrev(c *gin.Context) {
	s.mu.Lock()
	s.model.MonthPrev()
	s.mu.Unlock()
	s.fetchEvents(c)
	redirectHome(c)
}

func (s *Server) handleCalendarNext(c *gin.Context) {
	s.mu.Lock()
	s.model.MonthNext()
	s.mu.Unlock()
	s.fetchEvents(c)
	redirectHome(c)
}

func (s *Server) handleCalendarDay(c *gin.Context) {
	day, err := strconv.Atoi(c.Param("day"))
	if err != nil || day < 1 || day > 31 {
		redirectHome(c)
		return
	}
	s.mu.Lock()
	s.model.SelectDay(day)
	s.mu.Unlock()
	redirectHome(c)
}

// queryErrorMessage maps query failures onto the user-visible messages.
func queryErrorMessage(err error) string {
	var backendErr *assistant.BackendError
	var apiErr *assistant.APIError
	switch {
	case errors.As(err, &backendErr):
		return "Server returned an invalid response. Please check the backend logs."
	case errors.As(err, &apiErr):
		return fmt.Sprintf("Error: %s", apiErr.Error())
	default:
		return fmt.Sprintf("An unexpected error occurred: %v", err)
	}
}

func fetchErrorMessage(prefix string, err error) string {
	var backendErr *assistant.BackendError
	if errors.As(err, &backendErr) {
		return "Server returned an invalid response. Please check the backend logs."
	}
	return fmt.Sprintf("%s: %v", prefix, err)
}

// Template helpers, shared with the page templates.

func displayTime(iso string) string {
	if iso == "" {
		return "N/A"
	}
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return iso
	}
	return t.Local().Format("Jan 2, 2006 03:04 PM MST")
}

func displayClock(iso string) string {
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return iso
	}
	return t.Local().Format("03:04 PM")
}

// inputTime renders an ISO stamp as a datetime-local input value.
func inputTime(iso string) string {
	if iso == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return ""
	}
	return t.Local().Format("2006-01-02T15:04")
}
