package logger

import (
	"io"

	"gopkg.in/natefinch/lumberjack.v2"
)

func newRotate(c *Config) io.Writer {
	return &lumberjack.Logger{
		Filename:   c.Filename(),
		MaxSize:    c.MaxSize,
		MaxAge:     c.MaxAge,
		MaxBackups: c.MaxBackup,
		LocalTime:  true,
		Compress:   c.Compress,
	}
}
