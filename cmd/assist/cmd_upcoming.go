package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/linwq87/meetassist/pkg/assistant"
)

func newUpcomingCmd() *cobra.Command {
	c := &cobra.Command{
		Use:     "upcoming",
		Aliases: []string{"up"},
		Short:   "列出未来会议（未来会议页签）",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := LoadConfig(cmd)
			client := newClient(cfg)

			events, err := client.ListUpcomingEvents(cmd.Context())
			if err != nil {
				return err
			}

			if term := mustGetString(cmd, "search"); term != "" {
				events = filterMeetings(events, term)
			}

			if cfg.Output == "json" {
				return printJSON(events)
			}
			renderMeetings(events)
			return nil
		},
	}
	c.Flags().StringP("search", "s", "", "按标题、参会人或开始时间过滤（客户端本地匹配）")
	return c
}

// filterMeetings 做大小写不敏感的子串匹配：标题、参会人串、原始开始时间
func filterMeetings(meetings []assistant.Meeting, term string) []assistant.Meeting {
	term = strings.ToLower(term)
	var out []assistant.Meeting
	for _, m := range meetings {
		title := strings.ToLower(m.Summary)
		attendees := strings.ToLower(m.AttendeeList())
		if strings.Contains(title, term) || strings.Contains(attendees, term) || strings.Contains(m.Start, term) {
			out = append(out, m)
		}
	}
	return out
}
