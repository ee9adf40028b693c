// Package logger wraps zap with the process defaults used by pump-tracker.
package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type (
	Field  = zap.Field
	Logger = zap.Logger
	Option = zap.Option
)

var (
	String   = zap.String
	Strings  = zap.Strings
	Any      = zap.Any
	Int64    = zap.Int64
	Int      = zap.Int
	Uint64   = zap.Uint64
	Bool     = zap.Bool
	Time     = zap.Time
	Duration = zap.Duration
	Float64  = zap.Float64
	Stringer = zap.Stringer
)

func newLogger(c *Config, extra io.Writer) (*zap.Logger, error) {
	lv := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if err := lv.UnmarshalText([]byte(c.Level)); err != nil {
		return nil, fmt.Errorf("logger level %q: %w", c.Level, err)
	}

	opts := []zap.Option{zap.AddStacktrace(zap.DPanicLevel)}
	if c.AddCaller {
		opts = append(opts, zap.AddCaller(), zap.AddCallerSkip(c.CallerSkip))
	}

	if c.SentryDSN != "" {
		sentryLv := zapcore.ErrorLevel
		if err := sentryLv.UnmarshalText([]byte(c.SentryLevel)); err != nil {
			return nil, fmt.Errorf("sentry level %q: %w", c.SentryLevel, err)
		}
		if err := initSentry(c.SentryDSN); err != nil {
			return nil, err
		}
		sentryCore := NewSentryCore(sentryLv)
		opts = append(opts, zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, sentryCore)
		}))
	}

	var ws zapcore.WriteSyncer
	switch {
	case extra != nil:
		ws = zapcore.AddSync(extra)
	case c.Output == OutputDiscard:
		ws = zapcore.AddSync(io.Discard)
	case c.Output == OutputFile:
		ws = zapcore.AddSync(newRotate(c))
	case c.Output == OutputStderr:
		ws = zapcore.Lock(os.Stderr)
	default:
		ws = zapcore.Lock(os.Stdout)
	}

	encCfg := encoderConfig()
	var enc zapcore.Encoder
	if c.Debug {
		encCfg.EncodeLevel = debugEncodeLevel
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	l := zap.New(zapcore.NewCore(enc, ws, lv), opts...)
	if c.Name != "" {
		l = l.Named(c.Name)
	}
	return l, nil
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stack",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     timeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

func debugEncodeLevel(lv zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	colorize := color.RedString
	switch lv {
	case zapcore.DebugLevel:
		colorize = color.BlueString
	case zapcore.InfoLevel:
		colorize = color.GreenString
	case zapcore.WarnLevel:
		colorize = color.YellowString
	}
	enc.AppendString(colorize("[%s]", lv.CapitalString()))
}

func timeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Local().Format("2006-01-02 15:04:05.000"))
}
