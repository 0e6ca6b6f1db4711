package main

import (
	"github.com/spf13/cobra"

	"github.com/linwq87/meetassist/pkg/logger"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "assist",
		Short:   "meetassist CLI - 会议调度助手的轻量前端",
		Long:    "通过命令行直接调用调度助手后端 HTTP API：自然语言查询、未来会议、联系人管理。",
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := LoadConfig(cmd)
			_, err := logger.Init(logger.Config{Level: cfg.LogLevel})
			return err
		},
	}

	// 添加全局标志
	addGlobalFlags(rootCmd)

	// 注册分组子命令（对应弹窗前端的三个页签）
	rootCmd.AddCommand(newQueryCmd())
	rootCmd.AddCommand(newUpcomingCmd())
	rootCmd.AddCommand(newContactsCmd())
	rootCmd.AddCommand(newMeetingCmd())

	if err := rootCmd.Execute(); err != nil {
		exitError("%v", err)
	}
}
