package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/linwq87/meetassist/pkg/assistant"
)

// printJSON 以缩进 JSON 输出任意响应数据
func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// displayTime 把 ISO 时间渲染成人类可读格式，解析失败原样输出
func displayTime(iso string) string {
	if iso == "" {
		return "N/A"
	}
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return iso
	}
	return t.Local().Format("Jan 2, 2006 03:04 PM")
}

// displayTimeShort 只渲染时刻部分（区间的结束端）
func displayTimeShort(iso string) string {
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return iso
	}
	return t.Local().Format("03:04 PM")
}

// renderMeetings 按文本格式输出会议列表
func renderMeetings(meetings []assistant.Meeting) {
	if len(meetings) == 0 {
		fmt.Println("No upcoming meetings found.")
		return
	}
	for i, m := range meetings {
		fmt.Printf("%d. %s\n", i+1, m.Summary)
		fmt.Printf("   %s - %s\n", displayTime(m.Start), displayTimeShort(m.End))
		if len(m.Attendees) > 0 {
			fmt.Printf("   Attendees: %s\n", m.AttendeeList())
		}
		if m.HTMLLink != "" {
			fmt.Printf("   %s\n", m.HTMLLink)
		}
		fmt.Printf("   id: %s\n", m.ID)
	}
}

// renderSlots 按文本格式输出候选时段（编号供选择）
func renderSlots(slots []assistant.Slot) {
	for i, s := range slots {
		fmt.Printf("%d. %s - %s\n", i+1, displayTime(s.Start.DateTime), displayTimeShort(s.End.DateTime))
	}
}

// renderContacts 按文本格式输出联系人列表
func renderContacts(contacts []assistant.Contact) {
	if len(contacts) == 0 {
		fmt.Println("No contacts found. Add one with 'assist contacts add'.")
		return
	}
	for _, c := range contacts {
		fmt.Printf("%s <%s>\n", c.DisplayName, c.PrimaryEmail)
	}
}

// renderConfirmation 输出确认详情（cancel 时不展示新时间）
func renderConfirmation(d *assistant.ConfirmationDetails) {
	fmt.Println("Confirm Action")
	fmt.Printf("Original Meeting: %s\n", d.Original.Summary)
	fmt.Printf("Time: %s - %s\n", displayTime(d.Original.Start), displayTimeShort(d.Original.End))
	if d.Intent == assistant.IntentReschedule && d.New != nil {
		fmt.Printf("New Time: %s to %s\n", displayTime(d.New.Start), displayTimeShort(d.New.End))
	} else if d.Intent == assistant.IntentCancel {
		fmt.Println("This meeting will be cancelled.")
	}
}

// exitError 输出错误到 stderr 并退出
func exitError(msg string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+msg+"\n", args...)
	os.Exit(1)
}

// mustGetString 获取必选的字符串标志
func mustGetString(cmd *cobra.Command, flag string) string {
	v, _ := cmd.Flags().GetString(flag)
	return v
}
