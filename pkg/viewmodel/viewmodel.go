// Package viewmodel 持有前端的全部可变状态：
// 视图状态机由 API 响应驱动，所有变更都经过带序号的 Apply 方法，
// 过期响应（序号小于最新请求）被显式丢弃，"最后响应生效" 是受测策略而非隐患。
package viewmodel

import (
	"fmt"
	"strings"
	"time"

	"github.com/linwq87/meetassist/pkg/assistant"
)

// View 表示结果区域当前展示的视图
type View string

const (
	ViewIdle             View = "idle"
	ViewLoading          View = "loading"
	ViewSuggestions      View = "suggestions"
	ViewExistingMeetings View = "existing_meetings"
	ViewConfirmation     View = "confirmation"
	ViewForm             View = "form"
	ViewMessageOnly      View = "message"
)

// Tab 是与视图正交的页签状态
type Tab string

const (
	TabNewMeeting       Tab = "newMeeting"
	TabManageMeetings   Tab = "manageMeetings"
	TabUpcomingMeetings Tab = "upcomingMeetings"
	TabContacts         Tab = "contacts"
)

// Fetch 表示切换页签后需要触发的拉取动作
type Fetch string

const (
	FetchNone     Fetch = ""
	FetchEvents   Fetch = "events"
	FetchContacts Fetch = "contacts"
)

// SlotMode 区分选槽视图绑定的动作
type SlotMode string

const (
	SlotModeSchedule   SlotMode = "schedule"
	SlotModeReschedule SlotMode = "reschedule"
)

// Form 是新建/改期表单的可编辑字段
type Form struct {
	Summary         string
	Attendees       string
	StartTime       string
	DurationMinutes int
	Description     string
}

// Status 是用户可见的状态栏消息
type Status struct {
	Text string
	Kind string // info / success / error
}

// Model 是单一属主的视图模型，只能通过方法变更
// 没有内部锁：调用方保证单写（webui 在 handler 外层加锁）
type Model struct {
	Tab    Tab
	View   View
	Status Status

	Form           Form
	CurrentEventID string

	Slots             []assistant.Slot
	SlotMode          SlotMode
	SlotMessage       string
	RescheduleEventID string

	Confirmation *assistant.ConfirmationDetails

	// PendingCancelID 非空时展示取消确认对话框
	PendingCancelID string

	ExistingMeetings []assistant.Meeting
	UpcomingMeetings []assistant.Meeting
	Contacts         []assistant.Contact

	LastQuery *assistant.QueryResponse

	CalendarCursor time.Time
	SelectedDay    int // 0 表示未选中某天

	issued  uint64
	applied uint64
}

// New 创建处于初始状态的视图模型
func New(now time.Time) *Model {
	m := &Model{CalendarCursor: now}
	m.Reset()
	return m
}

// Reset 回到干净的查询状态（新建页签、无事件、无残留视图）
func (m *Model) Reset() {
	m.Tab = TabNewMeeting
	m.View = ViewIdle
	m.Status = Status{Text: "Enter a meeting request above to begin.", Kind: "info"}
	m.Form = Form{}
	m.CurrentEventID = ""
	m.clearTransient()
	m.LastQuery = nil
}

// clearTransient 清掉一次性视图数据（槽位、确认、匹配列表）
func (m *Model) clearTransient() {
	m.Slots = nil
	m.SlotMode = ""
	m.SlotMessage = ""
	m.RescheduleEventID = ""
	m.Confirmation = nil
	m.PendingCancelID = ""
	m.ExistingMeetings = nil
	m.SelectedDay = 0
}

// RequestCancel 打开取消确认对话框
func (m *Model) RequestCancel(eventID string) {
	m.PendingCancelID = eventID
}

// DismissCancel 关闭取消确认对话框（不执行取消）
func (m *Model) DismissCancel() {
	m.PendingCancelID = ""
}

// BeginRequest 登记一次新的网络请求并进入加载态，返回单调递增的序号
func (m *Model) BeginRequest() uint64 {
	m.issued++
	m.View = ViewLoading
	return m.issued
}

// accept 判定某序号的响应是否仍是最新的；过期响应被丢弃
func (m *Model) accept(seq uint64) bool {
	if seq < m.issued {
		return false
	}
	m.applied = seq
	return true
}

// AcceptResponse 仅做序号判定：外部流程（如两阶段更新）在自行
// 变更状态前先确认响应未过期
func (m *Model) AcceptResponse(seq uint64) bool {
	return m.accept(seq)
}

// SetStatus 设置状态栏消息
func (m *Model) SetStatus(text, kind string) {
	m.Status = Status{Text: text, Kind: kind}
}

// ApplyQueryResponse 按优先级路由一次 /process_query 响应：
// confirmation > 已有会议列表 > 建议槽位 > 初始详情预填 > 纯消息
// 返回 false 表示响应已过期，状态未被改动
func (m *Model) ApplyQueryResponse(seq uint64, resp *assistant.QueryResponse) bool {
	if !m.accept(seq) {
		return false
	}

	kind := "info"
	if resp.Status == assistant.StatusSuccess {
		kind = "success"
	}
	m.SetStatus(resp.Message, kind)
	m.clearTransient()
	m.LastQuery = resp

	switch {
	case resp.Status == assistant.StatusConfirmation && resp.ConfirmationDetails != nil:
		m.View = ViewConfirmation
		m.Confirmation = resp.ConfirmationDetails
		m.CurrentEventID = resp.ConfirmationDetails.Original.ID

	case len(resp.ExistingMeetings) > 0:
		m.Tab = TabManageMeetings
		m.View = ViewExistingMeetings
		m.ExistingMeetings = resp.ExistingMeetings

	case len(resp.SuggestedSlots) > 0:
		m.Slots = resp.SuggestedSlots
		m.SlotMessage = resp.Message
		if resp.Intent == assistant.IntentReschedule {
			m.Tab = TabManageMeetings
			m.View = ViewSuggestions
			m.SlotMode = SlotModeReschedule
			if len(resp.ExistingMeetings) > 0 {
				m.RescheduleEventID = resp.ExistingMeetings[0].ID
			}
		} else {
			// schedule 及其余意图共用新建选槽视图
			m.Tab = TabNewMeeting
			m.View = ViewSuggestions
			m.SlotMode = SlotModeSchedule
			m.fillForm(resp.InitialMeetingDetails, "")
		}

	case resp.InitialMeetingDetails != nil:
		// 无槽位无匹配：认为请求时间空闲，直接预填表单
		m.Tab = TabNewMeeting
		m.View = ViewForm
		m.fillForm(resp.InitialMeetingDetails, "")

	default:
		m.Tab = TabNewMeeting
		m.View = ViewMessageOnly
	}
	return true
}

// ApplyError 记录一次失败的请求：视图回到空闲，缓存不变
func (m *Model) ApplyError(seq uint64, message string) bool {
	if !m.accept(seq) {
		return false
	}
	m.View = ViewIdle
	m.SetStatus(message, "error")
	return true
}

// ApplyUpcomingEvents 用最新响应整体覆盖未来会议缓存
func (m *Model) ApplyUpcomingEvents(seq uint64, events []assistant.Meeting) bool {
	if !m.accept(seq) {
		return false
	}
	m.UpcomingMeetings = events
	m.SelectedDay = 0
	m.View = ViewExistingMeetings
	if len(events) == 0 {
		m.SetStatus("You have no upcoming meetings in the next 30 days.", "info")
	} else {
		m.SetStatus(fmt.Sprintf("Found %d upcoming meetings.", len(events)), "success")
	}
	return true
}

// ApplyContacts 覆盖联系人缓存
func (m *Model) ApplyContacts(seq uint64, contacts []assistant.Contact) bool {
	if !m.accept(seq) {
		return false
	}
	m.Contacts = contacts
	m.View = ViewExistingMeetings
	return true
}

// SwitchTab 切换页签：丢弃未保存的建议/确认视图，返回需要触发的拉取动作
func (m *Model) SwitchTab(tab Tab) Fetch {
	m.Tab = tab
	m.View = ViewIdle
	m.clearTransient()
	m.Status = Status{}
	switch tab {
	case TabManageMeetings, TabUpcomingMeetings:
		return FetchEvents
	case TabContacts:
		return FetchContacts
	default:
		return FetchNone
	}
}

// fillForm 用初始会议详情预填表单，eventID 非空表示改期
func (m *Model) fillForm(details *assistant.MeetingDetails, eventID string) {
	if details == nil {
		m.Form = Form{}
	} else {
		m.Form = Form{
			Summary:         details.Summary,
			Attendees:       details.Attendees,
			StartTime:       details.StartTime,
			DurationMinutes: details.DurationMinutes,
			Description:     details.Description,
		}
	}
	m.CurrentEventID = eventID
}

// PrefillReschedule 进入改期流程：表单预填原会议，
// 查询中解析出的 new_start_time 优先于原开始时间
func (m *Model) PrefillReschedule(meeting assistant.Meeting) {
	start := meeting.Start
	if m.LastQuery != nil && m.LastQuery.ParsedData != nil && m.LastQuery.ParsedData.NewStartTime != "" {
		start = m.LastQuery.ParsedData.NewStartTime
	}
	m.Tab = TabNewMeeting
	m.View = ViewForm
	m.fillForm(&assistant.MeetingDetails{
		Summary:         meeting.Summary,
		Attendees:       strings.Join(meeting.Attendees, ", "),
		StartTime:       start,
		DurationMinutes: meeting.Duration(),
		Description:     meeting.Description,
	}, meeting.ID)
	m.SetStatus("Meeting details have been pre-filled for rescheduling. Adjust the time and click 'Update Meeting'.", "info")
}

// ShowConflictSlots 展示 dry-run 冲突返回的备选时段
func (m *Model) ShowConflictSlots(slots []assistant.Slot, eventID string) {
	m.Slots = slots
	m.SlotMode = SlotModeReschedule
	m.RescheduleEventID = eventID
	m.SlotMessage = "The selected time is busy. Here are some alternatives:"
	m.View = ViewSuggestions
	m.SetStatus("Proposed time is busy. Here are some alternatives.", "error")
}

// FindMeetingByID 在查询匹配与未来会议缓存中查找会议
func (m *Model) FindMeetingByID(id string) (assistant.Meeting, bool) {
	for _, mt := range m.ExistingMeetings {
		if mt.ID == id {
			return mt, true
		}
	}
	for _, mt := range m.UpcomingMeetings {
		if mt.ID == id {
			return mt, true
		}
	}
	return assistant.Meeting{}, false
}

// ShowNewTime 确认视图是否展示“新时间”区块（cancel 时隐藏）
func (m *Model) ShowNewTime() bool {
	return m.Confirmation != nil && m.Confirmation.Intent == assistant.IntentReschedule
}

// SelectDay 选中日历上的某一天（0 取消选中），列表只展示当天会议
func (m *Model) SelectDay(day int) {
	m.SelectedDay = day
}

// MonthPrev 日历游标向前一个月
func (m *Model) MonthPrev() {
	m.CalendarCursor = m.CalendarCursor.AddDate(0, -1, 0)
}

// MonthNext 日历游标向后一个月
func (m *Model) MonthNext() {
	m.CalendarCursor = m.CalendarCursor.AddDate(0, 1, 0)
}

