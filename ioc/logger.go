package ioc

import (
	"fmt"
	"log/slog"
	"sync"

	"go.uber.org/zap"
)

// Logger 日志接口，允许用户自定义日志实现
// 如果未设置，默认使用 slog.Default()；导入方可以通过 SetLogger 接入 zap 等实现
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// slogLogger 基于 slog 的默认实现
type slogLogger struct {
	l *slog.Logger
}

// NewSlogLogger 把 *slog.Logger 包装为 Logger，传入 nil 时使用 slog.Default()
func NewSlogLogger(l *slog.Logger) Logger {
	if l == nil {
		l = slog.Default()
	}
	return &slogLogger{l: l}
}

func (s *slogLogger) Debug(format string, args ...any) { s.l.Debug(sprintf(format, args...)) }
func (s *slogLogger) Info(format string, args ...any)  { s.l.Info(sprintf(format, args...)) }
func (s *slogLogger) Warn(format string, args ...any)  { s.l.Warn(sprintf(format, args...)) }
func (s *slogLogger) Error(format string, args ...any) { s.l.Error(sprintf(format, args...)) }

// zapLogger 基于 zap.SugaredLogger 的实现
type zapLogger struct {
	s *zap.SugaredLogger
}

// NewZapLogger 把 *zap.Logger 包装为 Logger
//
//	logger, _ := zap.NewProduction()
//	ioc.SetLogger(ioc.NewZapLogger(logger))
func NewZapLogger(l *zap.Logger) Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return &zapLogger{s: l.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (z *zapLogger) Debug(format string, args ...any) { z.s.Debugf(format, args...) }
func (z *zapLogger) Info(format string, args ...any)  { z.s.Infof(format, args...) }
func (z *zapLogger) Warn(format string, args ...any)  { z.s.Warnf(format, args...) }
func (z *zapLogger) Error(format string, args ...any) { z.s.Errorf(format, args...) }

// NopLogger 静默日志，测试中常用
type NopLogger struct{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}

var (
	globalLogger     = NewSlogLogger(nil)
	globalLoggerLock sync.RWMutex
)

// SetLogger 设置全局日志实例
// 如果传入 nil，将恢复为 slog.Default()
func SetLogger(logger Logger) {
	globalLoggerLock.Lock()
	defer globalLoggerLock.Unlock()
	if logger == nil {
		globalLogger = NewSlogLogger(nil)
	} else {
		globalLogger = logger
	}
}

// GetLogger 获取当前全局日志实例
func GetLogger() Logger {
	globalLoggerLock.RLock()
	defer globalLoggerLock.RUnlock()
	return globalLogger
}

func logDebug(format string, args ...any) { GetLogger().Debug(format, args...) }
func logInfo(format string, args ...any)  { GetLogger().Info(format, args...) }
func logWarn(format string, args ...any)  { GetLogger().Warn(format, args...) }
func logError(format string, args ...any) { GetLogger().Error(format, args...) }

func sprintf(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
