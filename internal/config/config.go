// Package config loads the tracker configuration.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/stepamak/pump-tracker/internal/domain"
	"github.com/stepamak/pump-tracker/internal/feed"
	"github.com/stepamak/pump-tracker/internal/health"
	"github.com/stepamak/pump-tracker/internal/logger"
)

// Config is the complete application configuration.
type Config struct {
	Feed     FeedConfig      `koanf:"feed"`
	Filter   domain.Criteria `koanf:"filter"`
	DevLists DevListsConfig  `koanf:"devlists"`
	Health   health.Config   `koanf:"health"`
	HTTP     HTTPConfig      `koanf:"http"`
	Storage  StorageConfig   `koanf:"storage"`
	Logger   logger.Config   `koanf:"logger"`
}

// FeedConfig is the websocket endpoint plus the connection manager settings.
type FeedConfig struct {
	Endpoint    string `koanf:"endpoint"`
	APIKey      string `koanf:"api_key"`
	feed.Config `koanf:",squash"`
}

// DevListsConfig locates the dev list files. An empty Dirs uses
// devlist.DefaultDirs.
type DevListsConfig struct {
	Dirs []string `koanf:"dirs"`
}

type HTTPConfig struct {
	// Addr is the status API listen address. Empty disables the API.
	Addr string `koanf:"addr"`
}

// StorageConfig enables the optional database backends.
type StorageConfig struct {
	PostgresDSN   string        `koanf:"postgres_dsn"`
	ClickhouseDSN string        `koanf:"clickhouse_dsn"`
	AuditBuffer   int           `koanf:"audit_buffer"`
	AuditBatch    int           `koanf:"audit_batch"`
	AuditFlush    time.Duration `koanf:"audit_flush"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Feed:    FeedConfig{Config: feed.DefaultConfig()},
		Filter:  domain.DefaultCriteria(),
		Health:  health.DefaultConfig(),
		HTTP:    HTTPConfig{Addr: "127.0.0.1:8089"},
		Storage: StorageConfig{AuditBuffer: 4096, AuditBatch: 256, AuditFlush: time.Second},
		Logger:  logger.DefaultConfig(),
	}
}

// Validate checks value ranges. The feed endpoint and key are not required
// here; starting the feed reports them.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.Feed.ReconnectDelay < 0 {
		result = multierror.Append(result, errors.New("feed.reconnect_delay must not be negative"))
	}
	if c.Feed.PingInterval < 0 || c.Feed.ReadTimeout < 0 {
		result = multierror.Append(result, errors.New("feed.ping_interval and feed.read_timeout must not be negative"))
	}
	if c.Feed.PingInterval > 0 && c.Feed.ReadTimeout > 0 && c.Feed.ReadTimeout <= c.Feed.PingInterval {
		result = multierror.Append(result, fmt.Errorf("feed.read_timeout %s must exceed feed.ping_interval %s",
			c.Feed.ReadTimeout, c.Feed.PingInterval))
	}

	f := c.Filter
	for name, pct := range map[string]float64{
		"min_dev_migration_pct": f.MinDevMigrationPct,
		"max_top10_holders_pct": f.MaxTop10HoldersPct,
		"max_dev_holds_pct":     f.MaxDevHoldsPct,
		"max_snipers_hold_pct":  f.MaxSnipersHoldPct,
	} {
		if pct < 0 || pct > 100 {
			result = multierror.Append(result, fmt.Errorf("filter.%s must be within [0, 100], got %v", name, pct))
		}
	}
	if f.MinMigratedTokens < 0 || f.MinNumHolders < 0 || f.MinAuthorFollowers < 0 {
		result = multierror.Append(result, errors.New("filter minimum counts must not be negative"))
	}
	if f.MaxPostAgeMinutes < 0 {
		result = multierror.Append(result, errors.New("filter.max_post_age_minutes must not be negative"))
	}
	if f.MaxItems < 1 {
		result = multierror.Append(result, fmt.Errorf("filter.max_items must be at least 1, got %d", f.MaxItems))
	}

	if c.Health.Enabled && (c.Health.Interval <= 0 || c.Health.Timeout <= 0) {
		result = multierror.Append(result, errors.New("health.interval and health.timeout must be positive"))
	}
	if c.Storage.AuditBuffer < 0 || c.Storage.AuditBatch < 0 {
		result = multierror.Append(result, errors.New("storage audit sizes must not be negative"))
	}

	switch strings.ToLower(c.Logger.Output) {
	case logger.OutputStdout, logger.OutputStderr, logger.OutputFile, logger.OutputDiscard:
	default:
		result = multierror.Append(result, fmt.Errorf("logger.output %q is not one of stdout, stderr, file, discard", c.Logger.Output))
	}

	return result.ErrorOrNil()
}
