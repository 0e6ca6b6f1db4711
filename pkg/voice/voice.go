// Package voice 将平台语音识别桥接到查询分发器。
// 识别本身委托给外部命令；识别不可用时仅隐藏语音入口，
// 从不影响文本查询路径。
package voice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// DefaultJoinPattern 是默认的词-数字合并规则：
// 单词字符后跟一个空格和一个数字时去掉空格（"nitish 3" -> "nitish3"）。
// 该规则对普通数字短语（"room 3"）同样生效，因此做成可配置项。
const DefaultJoinPattern = `(\w)\s(\d)`

// ErrUnavailable 表示语音识别在当前环境不可用
var ErrUnavailable = errors.New("speech recognition is not available")

// Recognizer 捕获一段语音并返回识别出的文本
type Recognizer interface {
	// Recognize 阻塞到一段话被识别或出错
	Recognize(ctx context.Context) (string, error)
	// Available 报告识别能力是否可用；不可用时调用方隐藏语音入口
	Available() bool
}

// Normalizer 对识别文本做一次规范化后交给查询分发器
type Normalizer struct {
	joinRe *regexp.Regexp
}

// NewNormalizer 用给定模式创建规范化器；pattern 为空表示禁用合并规则
func NewNormalizer(pattern string) (*Normalizer, error) {
	if pattern == "" {
		return &Normalizer{}, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile join pattern: %w", err)
	}
	return &Normalizer{joinRe: re}, nil
}

// DefaultNormalizer 返回使用默认合并规则的规范化器
func DefaultNormalizer() *Normalizer {
	n, _ := NewNormalizer(DefaultJoinPattern)
	return n
}

// Normalize 应用词-数字合并规则并裁剪首尾空白
func (n *Normalizer) Normalize(text string) string {
	text = strings.TrimSpace(text)
	if n.joinRe == nil {
		return text
	}
	return n.joinRe.ReplaceAllString(text, "$1$2")
}

// CommandRecognizer 通过外部命令做单次语音转写，
// 转写文本从命令的标准输出读取
type CommandRecognizer struct {
	Name string
	Args []string
}

// NewCommandRecognizer 解析配置的识别命令行；为空返回不可用的识别器
func NewCommandRecognizer(command string) *CommandRecognizer {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return &CommandRecognizer{}
	}
	return &CommandRecognizer{Name: fields[0], Args: fields[1:]}
}

// Available 报告识别命令是否存在于 PATH
func (r *CommandRecognizer) Available() bool {
	if r.Name == "" {
		return false
	}
	_, err := exec.LookPath(r.Name)
	return err == nil
}

// Recognize 运行识别命令并返回其输出文本
func (r *CommandRecognizer) Recognize(ctx context.Context) (string, error) {
	if !r.Available() {
		return "", ErrUnavailable
	}
	cmd := exec.CommandContext(ctx, r.Name, r.Args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("speech recognition command failed: %w", err)
	}
	text := strings.TrimSpace(out.String())
	if text == "" {
		return "", errors.New("speech recognition produced no text")
	}
	return text, nil
}
