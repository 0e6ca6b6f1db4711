package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/linwq87/meetassist/pkg/metrics"
)

// 端点路径常量
const (
	PathProcessQuery   = "/process_query"
	PathMeetings       = "/meetings"
	PathUpcomingEvents = "/list_upcoming_events"
	PathContacts       = "/contacts"
)

// 本地校验错误：不触发任何网络请求
var (
	ErrEmptyQuery     = errors.New("query must not be empty")
	ErrMissingEventID = errors.New("no event id for update")
	ErrMissingTime    = errors.New("start time and duration are required")
	ErrMissingContact = errors.New("contact name and email are required")
)

// BackendError 表示后端返回了非 JSON 响应（对本次请求致命）
type BackendError struct {
	Endpoint    string
	ContentType string
	Body        string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend returned non-JSON response from %s (content-type %q)", e.Endpoint, e.ContentType)
}

// APIError 表示应用层错误：status 非预期且带有服务端消息
type APIError struct {
	Endpoint string
	Status   string
	Message  string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s returned status %q", e.Endpoint, e.Status)
}

// Client 封装调度助手后端的 HTTP 客户端
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// NewClient 创建新的 API 客户端
func NewClient(baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
		Logger:     log,
	}
}

// doJSON 执行请求并将 JSON 响应解码到 out
// 响应 Content-Type 不是 JSON 时返回 *BackendError，原始正文写入日志
func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		metrics.ObserveUpstream(path, "transport_error", time.Since(start).Seconds())
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ObserveUpstream(path, "transport_error", time.Since(start).Seconds())
		return fmt.Errorf("read response from %s: %w", path, err)
	}

	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "application/json") {
		metrics.ObserveUpstream(path, "non_json", time.Since(start).Seconds())
		c.Logger.Error("upstream returned non-JSON response",
			"endpoint", path,
			"http_status", resp.StatusCode,
			"content_type", ct,
			"body", truncate(string(data), 512),
		)
		return &BackendError{Endpoint: path, ContentType: ct, Body: string(data)}
	}

	metrics.ObserveUpstream(path, "ok", time.Since(start).Seconds())

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response from %s: %w", path, err)
		}
	}
	return nil
}

// ProcessQuery 将自由文本查询提交到理解端点
// 空查询在本地拒绝；status 不在 success/info/confirmation/conflict 内视为服务端错误
func (c *Client) ProcessQuery(ctx context.Context, query string) (*QueryResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	var resp QueryResponse
	if err := c.doJSON(ctx, http.MethodPost, PathProcessQuery, map[string]string{"query": query}, &resp); err != nil {
		return nil, err
	}
	metrics.RecordUpstreamStatus(PathProcessQuery, resp.Status)

	switch resp.Status {
	case StatusSuccess, StatusInfo, StatusConfirmation, StatusConflict:
		return &resp, nil
	default:
		return nil, &APIError{Endpoint: PathProcessQuery, Status: resp.Status, Message: resp.Message}
	}
}

// ManageMeeting 提交 schedule/update/cancel 变更
// success 与 conflict 都返回响应本身（conflict 进入选槽流程，不作为错误）
func (c *Client) ManageMeeting(ctx context.Context, req MeetingRequest) (*MeetingResponse, error) {
	var resp MeetingResponse
	if err := c.doJSON(ctx, http.MethodPost, PathMeetings, req, &resp); err != nil {
		return nil, err
	}
	metrics.RecordUpstreamStatus(PathMeetings, resp.Status)

	switch resp.Status {
	case StatusSuccess, StatusConflict:
		return &resp, nil
	default:
		return nil, &APIError{Endpoint: PathMeetings, Status: resp.Status, Message: resp.Message}
	}
}

// UpdateOutcome 是两阶段更新的结果
type UpdateOutcome struct {
	// Committed 为 true 表示 dry-run 通过且 commit 已成功
	Committed bool
	// Conflict 为 true 表示所选时间冲突，Slots 提供备选时段
	Conflict bool
	Slots    []Slot
	Message  string
}

// UpdateWithDryRun 执行两阶段更新：先 dry_run=true 校验可用性，
// 通过后立即以 dry_run=false 提交；冲突时返回备选时段而不落盘
func (c *Client) UpdateWithDryRun(ctx context.Context, req MeetingRequest) (*UpdateOutcome, error) {
	if req.EventID == "" {
		return nil, ErrMissingEventID
	}
	req.Action = ActionUpdate

	dry := true
	req.DryRun = &dry
	probe, err := c.ManageMeeting(ctx, req)
	if err != nil {
		return nil, err
	}

	if probe.Status == StatusConflict {
		return &UpdateOutcome{Conflict: true, Slots: probe.SuggestedSlots, Message: probe.Message}, nil
	}

	commit := false
	req.DryRun = &commit
	final, err := c.ManageMeeting(ctx, req)
	if err != nil {
		return nil, err
	}
	if final.Status == StatusConflict {
		// dry-run 与 commit 之间出现了新冲突，同样交还给用户
		return &UpdateOutcome{Conflict: true, Slots: final.SuggestedSlots, Message: final.Message}, nil
	}
	return &UpdateOutcome{Committed: true, Message: final.Message}, nil
}

// ListUpcomingEvents 拉取未来会议列表
func (c *Client) ListUpcomingEvents(ctx context.Context) ([]Meeting, error) {
	var resp EventsResponse
	if err := c.doJSON(ctx, http.MethodGet, PathUpcomingEvents, nil, &resp); err != nil {
		return nil, err
	}
	metrics.RecordUpstreamStatus(PathUpcomingEvents, resp.Status)
	if resp.Status != StatusSuccess {
		return nil, &APIError{Endpoint: PathUpcomingEvents, Status: resp.Status, Message: resp.Message}
	}
	return resp.Events, nil
}

// ListContacts 拉取联系人列表
func (c *Client) ListContacts(ctx context.Context) ([]Contact, error) {
	var resp ContactsResponse
	if err := c.doJSON(ctx, http.MethodGet, PathContacts, nil, &resp); err != nil {
		return nil, err
	}
	metrics.RecordUpstreamStatus(PathContacts, resp.Status)
	if resp.Status != StatusSuccess {
		return nil, &APIError{Endpoint: PathContacts, Status: resp.Status, Message: resp.Message}
	}
	return resp.Contacts, nil
}

// AddContact 新增联系人，两个字段都必填（本地校验）
func (c *Client) AddContact(ctx context.Context, displayName, email string) (*StatusMessage, error) {
	if strings.TrimSpace(displayName) == "" || strings.TrimSpace(email) == "" {
		return nil, ErrMissingContact
	}
	var resp StatusMessage
	if err := c.doJSON(ctx, http.MethodPost, PathContacts, ContactRequest{DisplayName: displayName, Email: email}, &resp); err != nil {
		return nil, err
	}
	metrics.RecordUpstreamStatus(PathContacts, resp.Status)
	return &resp, nil
}

// DeleteContact 按邮箱删除联系人
func (c *Client) DeleteContact(ctx context.Context, email string) (*StatusMessage, error) {
	var resp StatusMessage
	if err := c.doJSON(ctx, http.MethodDelete, PathContacts, map[string]string{"email": email}, &resp); err != nil {
		return nil, err
	}
	metrics.RecordUpstreamStatus(PathContacts, resp.Status)
	return &resp, nil
}

// EndTimeISO 根据开始时间和时长（分钟）计算结束时间，保留原时区表示
func EndTimeISO(startISO string, durationMinutes int) (string, error) {
	start, err := time.Parse(time.RFC3339, startISO)
	if err != nil {
		return "", fmt.Errorf("parse start time: %w", err)
	}
	return start.Add(time.Duration(durationMinutes) * time.Minute).Format(time.RFC3339), nil
}

// LocalOffsetISO 以显式 UTC 偏移格式化时间（update 请求体要求）
func LocalOffsetISO(t time.Time) string {
	return t.Format("2006-01-02T15:04:05-07:00")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
