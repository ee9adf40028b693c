package logger

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var defaultLogger atomic.Pointer[Logger]

func init() {
	defaultLogger.Store(zap.NewNop())
}

// Default returns the process logger. It is a no-op logger until SetDefault.
func Default() *Logger {
	return defaultLogger.Load()
}

func SetDefault(l *Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	defaultLogger.Store(l)
}

func Debug(msg string, fields ...Field) {
	Default().Debug(msg, fields...)
}

func Info(msg string, fields ...Field) {
	Default().Info(msg, fields...)
}

func Warn(msg string, fields ...Field) {
	Default().Warn(msg, fields...)
}

func Error(msg string, fields ...Field) {
	Default().Error(msg, fields...)
}

// Named returns a child of the default logger.
func Named(s string) *Logger {
	return Default().Named(s)
}

func With(fields ...Field) *Logger {
	return Default().With(fields...)
}

func Close() {
	_ = Default().Sync()
	flushSentry()
}
