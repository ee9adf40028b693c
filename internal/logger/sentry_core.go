package logger

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap/zapcore"
)

var sentryEnabled atomic.Bool

func initSentry(dsn string) error {
	if err := sentry.Init(sentry.ClientOptions{Dsn: dsn}); err != nil {
		return fmt.Errorf("sentry init: %w", err)
	}
	sentryEnabled.Store(true)
	return nil
}

func flushSentry() {
	if sentryEnabled.Load() {
		sentry.Flush(2 * time.Second)
	}
}

// SentryCore forwards entries at or above its level to Sentry as messages.
type SentryCore struct {
	level        zapcore.Level
	fields       []zapcore.Field
	flushTimeout time.Duration
	hub          *sentry.Hub
}

func NewSentryCore(level zapcore.Level) *SentryCore {
	return &SentryCore{
		level:        level,
		flushTimeout: 5 * time.Second,
	}
}

func (c *SentryCore) currentHub() *sentry.Hub {
	if c.hub != nil {
		return c.hub
	}
	return sentry.CurrentHub()
}

func (c *SentryCore) Enabled(l zapcore.Level) bool {
	return c.level.Enabled(l)
}

func (c *SentryCore) With(f []zapcore.Field) zapcore.Core {
	clone := *c
	clone.fields = append(append(make([]zapcore.Field, 0, len(c.fields)+len(f)), c.fields...), f...)
	return &clone
}

func (c *SentryCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(e.Level) {
		return ce.AddCore(e, c)
	}
	return ce
}

func (c *SentryCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	extras := fieldsToExtras(append(append([]zapcore.Field(nil), c.fields...), fields...))

	hub := c.currentHub()
	hub.WithScope(func(scope *sentry.Scope) {
		if len(extras) > 0 {
			scope.SetExtras(extras)
		}
		if ent.LoggerName != "" {
			scope.SetTag("logger", ent.LoggerName)
		}
		scope.SetLevel(sentryLevel(ent.Level))
		hub.CaptureMessage(ent.Message)
	})

	if ent.Level > zapcore.ErrorLevel {
		return c.Sync()
	}
	return nil
}

func (c *SentryCore) Sync() error {
	c.currentHub().Flush(c.flushTimeout)
	return nil
}

func fieldsToExtras(fields []zapcore.Field) map[string]interface{} {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		f.AddTo(enc)
	}
	return enc.Fields
}

func sentryLevel(lvl zapcore.Level) sentry.Level {
	switch lvl {
	case zapcore.DebugLevel:
		return sentry.LevelDebug
	case zapcore.InfoLevel:
		return sentry.LevelInfo
	case zapcore.WarnLevel:
		return sentry.LevelWarning
	case zapcore.ErrorLevel:
		return sentry.LevelError
	default:
		return sentry.LevelFatal
	}
}
