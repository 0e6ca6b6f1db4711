package assistant

import (
	"strings"
	"time"
)

// 响应状态常量，与后端约定一致
const (
	StatusSuccess      = "success"
	StatusInfo         = "info"
	StatusConfirmation = "confirmation"
	StatusConflict     = "conflict"
	StatusError        = "error"
)

// 查询意图常量（由后端 NLU 分类）
const (
	IntentSchedule   = "schedule"
	IntentReschedule = "reschedule"
	IntentCancel     = "cancel"
)

// /meetings 端点的动作常量
const (
	ActionSchedule = "schedule"
	ActionUpdate   = "update"
	ActionCancel   = "cancel"
)

// Meeting 表示一条日历会议，字段完全镜像后端响应
type Meeting struct {
	ID          string   `json:"id"`
	Summary     string   `json:"summary"`
	Description string   `json:"description,omitempty"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
	Attendees   []string `json:"attendees"`
	HTMLLink    string   `json:"htmlLink,omitempty"`
}

// StartTime 解析会议开始时间，解析失败返回零值
func (m Meeting) StartTime() time.Time {
	t, _ := time.Parse(time.RFC3339, m.Start)
	return t
}

// EndTime 解析会议结束时间，解析失败返回零值
func (m Meeting) EndTime() time.Time {
	t, _ := time.Parse(time.RFC3339, m.End)
	return t
}

// Duration 返回会议时长（分钟），时间无法解析时为 0
func (m Meeting) Duration() int {
	s, e := m.StartTime(), m.EndTime()
	if s.IsZero() || e.IsZero() {
		return 0
	}
	return int(e.Sub(s) / time.Minute)
}

// AttendeeList 返回逗号连接的参会人字符串
func (m Meeting) AttendeeList() string {
	return strings.Join(m.Attendees, ", ")
}

// SlotTime 是建议时段的嵌套时间结构 {dateTime: ...}
type SlotTime struct {
	DateTime string `json:"dateTime"`
}

// Slot 是后端返回的一个候选空闲时段
type Slot struct {
	Start SlotTime `json:"start"`
	End   SlotTime `json:"end"`
}

// MeetingDetails 是查询解析出的初始会议信息，用于预填表单
// Attendees 在此处是逗号分隔的字符串（与 Meeting.Attendees 不同）
type MeetingDetails struct {
	Summary         string `json:"summary"`
	Attendees       string `json:"attendees"`
	StartTime       string `json:"startTime"`
	DurationMinutes int    `json:"duration_minutes"`
	Description     string `json:"description"`
}

// ConfirmationMeeting 确认对话框中的会议摘要信息
type ConfirmationMeeting struct {
	ID        string   `json:"id,omitempty"`
	Summary   string   `json:"summary"`
	Start     string   `json:"start"`
	End       string   `json:"end"`
	Attendees []string `json:"attendees,omitempty"`
}

// ConfirmationDetails 驱动确认对话框：intent 为 reschedule 时 New 有效
type ConfirmationDetails struct {
	Intent   string               `json:"intent"`
	Original ConfirmationMeeting  `json:"original"`
	New      *ConfirmationMeeting `json:"new,omitempty"`
}

// MutationRequest 把确认详情转换为对应的 /meetings 变更请求：
// reschedule 映射为 update 并携带新时间，cancel 只带事件 ID
func (d *ConfirmationDetails) MutationRequest() MeetingRequest {
	req := MeetingRequest{Action: d.Intent, EventID: d.Original.ID}
	if d.Intent == IntentReschedule && d.New != nil {
		req.Action = ActionUpdate
		req.Summary = d.New.Summary
		req.Attendees = strings.Join(d.New.Attendees, ",")
		req.StartTime = d.New.Start
		req.EndTime = d.New.End
	}
	return req
}

// ParsedData 携带后端从自然语言中解析出的补充字段
type ParsedData struct {
	NewStartTime string `json:"new_start_time,omitempty"`
}

// QueryResponse 是 /process_query 的完整响应
type QueryResponse struct {
	Status                string               `json:"status"`
	Message               string               `json:"message"`
	Intent                string               `json:"intent,omitempty"`
	SuggestedSlots        []Slot               `json:"suggested_slots,omitempty"`
	ExistingMeetings      []Meeting            `json:"existing_meetings,omitempty"`
	InitialMeetingDetails *MeetingDetails      `json:"initial_meeting_details,omitempty"`
	ConfirmationDetails   *ConfirmationDetails `json:"confirmation_details,omitempty"`
	ParsedData            *ParsedData          `json:"parsed_data,omitempty"`
}

// MeetingRequest 是 /meetings 端点的变更请求体
// DryRun 用指针以便 commit 阶段显式携带 dry_run=false
type MeetingRequest struct {
	Action      string `json:"action"`
	EventID     string `json:"eventId,omitempty"`
	Summary     string `json:"summary,omitempty"`
	Attendees   string `json:"attendees,omitempty"`
	StartTime   string `json:"startTime,omitempty"`
	EndTime     string `json:"endTime,omitempty"`
	Description string `json:"description,omitempty"`
	DryRun      *bool  `json:"dry_run,omitempty"`
}

// MeetingResponse 是 /meetings 的响应；conflict 时携带备选时段
type MeetingResponse struct {
	Status         string `json:"status"`
	Message        string `json:"message"`
	SuggestedSlots []Slot `json:"suggested_slots,omitempty"`
}

// EventsResponse 是 /list_upcoming_events 的响应
type EventsResponse struct {
	Status  string    `json:"status"`
	Message string    `json:"message,omitempty"`
	Events  []Meeting `json:"events"`
}

// Contact 表示一条联系人记录（服务端持有，客户端只读缓存）
type Contact struct {
	DisplayName  string `json:"displayName"`
	PrimaryEmail string `json:"primaryEmail"`
}

// ContactsResponse 是 GET /contacts 的响应
type ContactsResponse struct {
	Status   string    `json:"status"`
	Message  string    `json:"message,omitempty"`
	Contacts []Contact `json:"contacts"`
}

// ContactRequest 是 POST /contacts 的请求体
type ContactRequest struct {
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// StatusMessage 是 POST/DELETE /contacts 的通用响应
type StatusMessage struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
