package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/linwq87/meetassist/pkg/assistant"
	"github.com/linwq87/meetassist/pkg/viewmodel"
	"github.com/linwq87/meetassist/pkg/voice"
)

func newQueryCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "query [text...]",
		Short: "提交自然语言查询（新建会议页签）",
		Long:  "把自由文本（或语音转写）提交给理解端点，并按响应类型进入确认、选槽或预填流程。",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := LoadConfig(cmd)
			client := newClient(cfg)

			text := strings.TrimSpace(strings.Join(args, " "))
			useVoice, _ := cmd.Flags().GetBool("voice")
			if useVoice {
				spoken, err := captureVoice(cmd.Context(), cfg)
				if err != nil {
					// 语音不可用只降级，不阻断文本查询
					fmt.Fprintf(os.Stderr, "%v\n", err)
					if text == "" {
						return errors.New("no query text given and voice input unavailable")
					}
				} else {
					fmt.Printf("Speech recognized: %q\n", spoken)
					text = spoken
				}
			}

			if text == "" {
				fmt.Println("Please enter a query.")
				return nil
			}

			m := viewmodel.New(time.Now())
			seq := m.BeginRequest()
			resp, err := client.ProcessQuery(cmd.Context(), text)
			if err != nil {
				return renderQueryError(m, seq, err)
			}
			m.ApplyQueryResponse(seq, resp)

			if cfg.Output == "json" {
				return printJSON(resp)
			}
			return runQueryFollowUp(cmd, cfg, client, m)
		},
	}
	c.Flags().Bool("voice", false, "通过语音转写命令获取查询文本")
	c.Flags().Bool("yes", false, "自动接受确认请求（非交互模式）")
	c.Flags().Int("slot", 0, "直接选择第 N 个建议时段（非交互模式）")
	return c
}

// captureVoice 执行一次语音转写并做词-数字合并规范化
func captureVoice(ctx context.Context, cfg *Config) (string, error) {
	rec := voice.NewCommandRecognizer(cfg.VoiceCommand)
	if !rec.Available() {
		return "", errors.New("speech recognition is not available; configure voice_command")
	}
	fmt.Println("Listening...")
	text, err := rec.Recognize(ctx)
	if err != nil {
		return "", fmt.Errorf("speech recognition error: %w", err)
	}
	norm, err := voice.NewNormalizer(cfg.VoiceJoinPattern)
	if err != nil {
		return "", err
	}
	return norm.Normalize(text), nil
}

// renderQueryError 把查询错误翻译成用户可见消息
func renderQueryError(m *viewmodel.Model, seq uint64, err error) error {
	var backendErr *assistant.BackendError
	switch {
	case errors.Is(err, assistant.ErrEmptyQuery):
		m.ApplyError(seq, "Please enter a query.")
	case errors.As(err, &backendErr):
		m.ApplyError(seq, "Server returned an invalid response. Please check the backend logs.")
	default:
		m.ApplyError(seq, err.Error())
	}
	fmt.Println(m.Status.Text)
	return nil
}

// runQueryFollowUp 按路由结果进入后续交互流程
func runQueryFollowUp(cmd *cobra.Command, cfg *Config, client *assistant.Client, m *viewmodel.Model) error {
	fmt.Println(m.Status.Text)

	switch m.View {
	case viewmodel.ViewConfirmation:
		return confirmAndSubmit(cmd, client, m)
	case viewmodel.ViewSuggestions:
		return pickSlotAndSubmit(cmd, client, m)
	case viewmodel.ViewExistingMeetings:
		fmt.Println("Click 'Reschedule' or 'Cancel' to manage a meeting.")
		renderMeetings(m.ExistingMeetings)
		fmt.Println("Use 'assist meeting reschedule --event-id ...' or 'assist meeting cancel --event-id ...'.")
		return nil
	case viewmodel.ViewForm:
		return scheduleFromForm(cmd, client, m)
	default:
		return nil
	}
}

// confirmAndSubmit 处理确认视图：展示详情后提交对应的变更
func confirmAndSubmit(cmd *cobra.Command, client *assistant.Client, m *viewmodel.Model) error {
	d := m.Confirmation
	renderConfirmation(d)

	label := "Yes, Cancel"
	if d.Intent == assistant.IntentReschedule {
		label = "Yes, Reschedule"
	}
	if !autoYes(cmd) && !promptYes(label+"?") {
		fmt.Println("Aborted.")
		return nil
	}

	resp, err := client.ManageMeeting(cmd.Context(), d.MutationRequest())
	if err != nil {
		return err
	}
	fmt.Printf("Success: %s\n", resp.Message)
	return nil
}

// pickSlotAndSubmit 处理选槽视图：选中的时段转为 schedule 或 update 请求
func pickSlotAndSubmit(cmd *cobra.Command, client *assistant.Client, m *viewmodel.Model) error {
	renderSlots(m.Slots)

	idx, _ := cmd.Flags().GetInt("slot")
	if idx == 0 {
		idx = promptIndex(len(m.Slots))
	}
	if idx < 1 || idx > len(m.Slots) {
		fmt.Println("No slot selected.")
		return nil
	}
	slot := m.Slots[idx-1]

	if m.SlotMode == viewmodel.SlotModeReschedule && m.RescheduleEventID != "" {
		meeting, ok := m.FindMeetingByID(m.RescheduleEventID)
		if !ok {
			fmt.Println("Meeting details not found for reschedule.")
			return nil
		}
		commit := false
		resp, err := client.ManageMeeting(cmd.Context(), assistant.MeetingRequest{
			Action:      assistant.ActionUpdate,
			EventID:     m.RescheduleEventID,
			Summary:     meeting.Summary,
			Attendees:   strings.Join(meeting.Attendees, ","),
			StartTime:   slot.Start.DateTime,
			EndTime:     slot.End.DateTime,
			Description: meeting.Description,
			DryRun:      &commit,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Meeting Updated! %s.\n", resp.Message)
		return nil
	}

	details := m.Form
	summary := details.Summary
	if summary == "" {
		summary = "New Meeting"
	}
	description := details.Description
	if description == "" {
		description = "Meeting scheduled via Meeting Scheduler."
	}
	resp, err := client.ManageMeeting(cmd.Context(), assistant.MeetingRequest{
		Action:      assistant.ActionSchedule,
		Summary:     summary,
		Attendees:   details.Attendees,
		StartTime:   slot.Start.DateTime,
		EndTime:     slot.End.DateTime,
		Description: description,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Meeting Scheduled! %s.\n", resp.Message)
	return nil
}

// scheduleFromForm 处理预填表单视图：请求时间被认为空闲，直接询问是否预定
func scheduleFromForm(cmd *cobra.Command, client *assistant.Client, m *viewmodel.Model) error {
	f := m.Form
	fmt.Printf("Title: %s\nAttendees: %s\nStart: %s\nDuration: %d minutes\n",
		f.Summary, f.Attendees, displayTime(f.StartTime), f.DurationMinutes)

	if f.StartTime == "" || f.DurationMinutes == 0 {
		fmt.Println("Please provide a start time and duration.")
		return nil
	}
	if !autoYes(cmd) && !promptYes("Schedule this meeting?") {
		fmt.Println("Aborted.")
		return nil
	}

	endTime, err := assistant.EndTimeISO(f.StartTime, f.DurationMinutes)
	if err != nil {
		return err
	}
	resp, err := client.ManageMeeting(cmd.Context(), assistant.MeetingRequest{
		Action:      assistant.ActionSchedule,
		Summary:     f.Summary,
		Attendees:   f.Attendees,
		StartTime:   f.StartTime,
		EndTime:     endTime,
		Description: f.Description,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Meeting Scheduled! %s.\n", resp.Message)
	return nil
}

func autoYes(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("yes")
	return v
}

// promptYes 读取一行 y/n 输入
func promptYes(question string) bool {
	fmt.Printf("%s [y/N]: ", question)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	line = strings.ToLower(strings.TrimSpace(line))
	return line == "y" || line == "yes"
}

// promptIndex 读取一个 1..max 的序号，空输入返回 0
func promptIndex(max int) int {
	fmt.Printf("Select a slot [1-%d, empty to skip]: ", max)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return 0
	}
	n, err := strconv.Atoi(line)
	if err != nil {
		return 0
	}
	return n
}
