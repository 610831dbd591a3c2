package ioc

import (
	"fmt"
	"strings"
)

// Stage 注入器运行阶段
type Stage int

const (
	// StageDevelopment 默认阶段：单例按需创建
	StageDevelopment Stage = iota
	// StageProduction 创建注入器时立即实例化所有单例，尽早暴露错误
	StageProduction
	// StageTool 工具阶段：只分析绑定，不主动创建任何实例
	StageTool
)

var stageNames = map[Stage]string{
	StageDevelopment: "DEVELOPMENT",
	StageProduction:  "PRODUCTION",
	StageTool:        "TOOL",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// ParseStage 解析阶段名，忽略首尾空白与大小写
func ParseStage(s string) (Stage, error) {
	want := strings.ToUpper(strings.TrimSpace(s))
	for stage, name := range stageNames {
		if name == want {
			return stage, nil
		}
	}
	return StageDevelopment, fmt.Errorf("%w: %q", ErrInvalidStage, s)
}
