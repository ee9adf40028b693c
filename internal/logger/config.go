package logger

import (
	"io"
	"path/filepath"
)

// Output targets.
const (
	OutputStdout  = "stdout"
	OutputStderr  = "stderr"
	OutputFile    = "file"
	OutputDiscard = "discard"
)

type Config struct {
	// Output is one of stdout, stderr, file, discard.
	Output string `koanf:"output" json:"output"`
	// Dir and Name locate the log file when Output is file.
	Dir  string `koanf:"dir" json:"dir"`
	Name string `koanf:"name" json:"name"`

	Level      string `koanf:"level" json:"level"`
	AddCaller  bool   `koanf:"add_caller" json:"add_caller"`
	CallerSkip int    `koanf:"caller_skip" json:"caller_skip"`

	// MaxSize is in megabytes, MaxAge in days.
	MaxSize   int  `koanf:"max_size" json:"max_size"`
	MaxAge    int  `koanf:"max_age" json:"max_age"`
	MaxBackup int  `koanf:"max_backup" json:"max_backup"`
	Compress  bool `koanf:"compress" json:"compress"`

	// Debug switches to the coloured console encoder.
	Debug bool `koanf:"debug" json:"debug"`

	// SentryDSN enables error reporting when set.
	SentryDSN   string `koanf:"sentry_dsn" json:"sentry_dsn"`
	SentryLevel string `koanf:"sentry_level" json:"sentry_level"`
}

func DefaultConfig() Config {
	return Config{
		Output:      OutputStderr,
		Dir:         "./logs",
		Name:        "pump-tracker",
		Level:       "info",
		AddCaller:   true,
		MaxSize:     100,
		MaxAge:      7,
		MaxBackup:   5,
		SentryLevel: "error",
	}
}

func (c *Config) Filename() string {
	return filepath.Join(c.Dir, c.Name+".log")
}

// Build constructs a logger from c.
func (c *Config) Build() (*Logger, error) {
	return newLogger(c, nil)
}

// BuildTo is Build with every entry written to w instead of the configured output.
func (c *Config) BuildTo(w io.Writer) (*Logger, error) {
	return newLogger(c, w)
}
