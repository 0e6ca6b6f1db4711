package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/linwq87/meetassist/pkg/assistant"
)

func newMeetingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "meeting",
		Aliases: []string{"mtg"},
		Short:   "会议变更 (schedule / reschedule / cancel)",
	}
	cmd.AddCommand(newMeetingScheduleCmd())
	cmd.AddCommand(newMeetingRescheduleCmd())
	cmd.AddCommand(newMeetingCancelCmd())
	return cmd
}

func newMeetingScheduleCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "schedule",
		Short: "直接预定一个会议",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := LoadConfig(cmd)
			client := newClient(cfg)

			start := mustGetString(cmd, "start")
			duration, _ := cmd.Flags().GetInt("duration")
			if start == "" || duration <= 0 {
				return assistant.ErrMissingTime
			}
			endTime, err := assistant.EndTimeISO(start, duration)
			if err != nil {
				return err
			}

			resp, err := client.ManageMeeting(cmd.Context(), assistant.MeetingRequest{
				Action:      assistant.ActionSchedule,
				Summary:     mustGetString(cmd, "summary"),
				Attendees:   mustGetString(cmd, "attendees"),
				StartTime:   start,
				EndTime:     endTime,
				Description: mustGetString(cmd, "description"),
			})
			if err != nil {
				return err
			}
			if cfg.Output == "json" {
				return printJSON(resp)
			}
			fmt.Printf("Meeting Scheduled! %s.\n", resp.Message)
			return nil
		},
	}
	c.Flags().String("summary", "", "会议标题")
	c.Flags().String("attendees", "", "参会人邮箱，逗号分隔")
	c.Flags().String("start", "", "开始时间 (RFC3339，必选)")
	c.Flags().Int("duration", 0, "时长（分钟，必选）")
	c.Flags().String("description", "", "会议描述")
	_ = c.MarkFlagRequired("start")
	_ = c.MarkFlagRequired("duration")
	return c
}

func newMeetingRescheduleCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "reschedule",
		Short: "改期一个会议（两阶段 dry-run/commit，默认顺延一小时）",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := LoadConfig(cmd)
			client := newClient(cfg)

			eventID := mustGetString(cmd, "event-id")
			events, err := client.ListUpcomingEvents(cmd.Context())
			if err != nil {
				return err
			}
			var meeting *assistant.Meeting
			for i := range events {
				if events[i].ID == eventID {
					meeting = &events[i]
					break
				}
			}
			if meeting == nil {
				return fmt.Errorf("meeting %s not found among upcoming events", eventID)
			}

			shift, _ := cmd.Flags().GetInt("shift-minutes")
			newStart := mustGetString(cmd, "start")
			var startTime, endTime string
			if newStart != "" {
				duration, _ := cmd.Flags().GetInt("duration")
				if duration <= 0 {
					duration = meeting.Duration()
				}
				startTime = newStart
				endTime, err = assistant.EndTimeISO(newStart, duration)
				if err != nil {
					return err
				}
			} else {
				d := time.Duration(shift) * time.Minute
				startTime = meeting.StartTime().Add(d).Format(time.RFC3339)
				endTime = meeting.EndTime().Add(d).Format(time.RFC3339)
			}

			outcome, err := client.UpdateWithDryRun(cmd.Context(), assistant.MeetingRequest{
				EventID:     eventID,
				Summary:     meeting.Summary,
				Attendees:   strings.Join(meeting.Attendees, ","),
				StartTime:   startTime,
				EndTime:     endTime,
				Description: meeting.Description,
			})
			if err != nil {
				return err
			}
			if outcome.Conflict {
				fmt.Println("The selected time is busy. Here are some alternatives:")
				renderSlots(outcome.Slots)
				fmt.Println("Re-run with --start set to one of the slots above.")
				return nil
			}
			fmt.Printf("Meeting Updated! %s.\n", outcome.Message)
			return nil
		},
	}
	c.Flags().String("event-id", "", "会议ID（必选）")
	c.Flags().String("start", "", "新的开始时间 (RFC3339)；缺省时按 --shift-minutes 顺延")
	c.Flags().Int("duration", 0, "新时长（分钟），缺省沿用原时长")
	c.Flags().Int("shift-minutes", 60, "未给出 --start 时的顺延分钟数")
	_ = c.MarkFlagRequired("event-id")
	return c
}

func newMeetingCancelCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "cancel",
		Short: "取消一个会议",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := LoadConfig(cmd)
			client := newClient(cfg)

			resp, err := client.ManageMeeting(cmd.Context(), assistant.MeetingRequest{
				Action:  assistant.ActionCancel,
				EventID: mustGetString(cmd, "event-id"),
			})
			if err != nil {
				return err
			}
			if cfg.Output == "json" {
				return printJSON(resp)
			}
			fmt.Printf("Meeting Cancelled! %s.\n", resp.Message)
			return nil
		},
	}
	c.Flags().String("event-id", "", "会议ID（必选）")
	_ = c.MarkFlagRequired("event-id")
	return c
}
