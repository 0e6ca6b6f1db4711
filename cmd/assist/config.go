package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/linwq87/meetassist/pkg/assistant"
	"github.com/linwq87/meetassist/pkg/logger"
	"github.com/linwq87/meetassist/pkg/voice"
)

// Config 保存 CLI 全局配置
type Config struct {
	ServerURL        string `yaml:"server_url" json:"server_url"`
	TimeoutSeconds   int    `yaml:"timeout_seconds" json:"timeout_seconds"`
	VoiceCommand     string `yaml:"voice_command" json:"voice_command"`
	VoiceJoinPattern string `yaml:"voice_join_pattern" json:"voice_join_pattern"`
	LogLevel         string `yaml:"log_level" json:"log_level"`
	Output           string `yaml:"-" json:"-"`
}

// LoadConfig 从命令行标志、环境变量、配置文件加载配置（优先级从高到低）
func LoadConfig(cmd *cobra.Command) *Config {
	cfg := &Config{}

	// 尝试从配置文件读取基础值
	loadConfigFile(cfg)

	// 环境变量覆盖配置文件
	if v := os.Getenv("MEETASSIST_SERVER_URL"); v != "" {
		cfg.ServerURL = v
	}
	if v := os.Getenv("MEETASSIST_VOICE_COMMAND"); v != "" {
		cfg.VoiceCommand = v
	}

	// 命令行标志覆盖环境变量
	if v, _ := cmd.Flags().GetString("server-url"); v != "" {
		cfg.ServerURL = v
	}
	if v, _ := cmd.Flags().GetString("voice-command"); v != "" {
		cfg.VoiceCommand = v
	}
	if v, _ := cmd.Flags().GetString("output"); v != "" {
		cfg.Output = v
	}

	// 默认值
	if cfg.ServerURL == "" {
		cfg.ServerURL = "http://127.0.0.1:5000"
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 30
	}
	if cfg.VoiceJoinPattern == "" {
		cfg.VoiceJoinPattern = voice.DefaultJoinPattern
	}
	if cfg.Output == "" {
		cfg.Output = "text"
	}

	return cfg
}

// loadConfigFile 从 ~/.meetassist/config.yaml 读取配置
func loadConfigFile(cfg *Config) {
	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	path := filepath.Join(home, ".meetassist", "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	_ = yaml.Unmarshal(data, cfg)
}

// newClient 根据配置创建 API 客户端
func newClient(cfg *Config) *assistant.Client {
	return assistant.NewClient(cfg.ServerURL, time.Duration(cfg.TimeoutSeconds)*time.Second, logger.L())
}

// addGlobalFlags 为 root 命令添加全局标志
func addGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("server-url", "", "服务器地址 (env: MEETASSIST_SERVER_URL, 默认: http://127.0.0.1:5000)")
	cmd.PersistentFlags().String("voice-command", "", "语音转写命令 (env: MEETASSIST_VOICE_COMMAND)")
	cmd.PersistentFlags().StringP("output", "o", "", "输出格式: json / text (默认: text)")
}
