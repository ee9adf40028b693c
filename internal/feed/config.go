package feed

import "time"

// Config configures the connection manager.
type Config struct {
	// AutoReconnect schedules a new attempt after an unexpected disconnect.
	AutoReconnect bool `koanf:"auto_reconnect"`
	// ReconnectDelay is the fixed wait before each reconnect attempt.
	ReconnectDelay time.Duration `koanf:"reconnect_delay"`
	// HandshakeTimeout bounds the websocket upgrade.
	HandshakeTimeout time.Duration `koanf:"handshake_timeout"`
	// CloseTimeout bounds the close frame written by Stop.
	CloseTimeout time.Duration `koanf:"close_timeout"`
	// PingInterval is the keepalive period. Zero disables pings.
	PingInterval time.Duration `koanf:"ping_interval"`
	// ReadTimeout is extended on every message and pong. Zero disables it.
	ReadTimeout time.Duration `koanf:"read_timeout"`
	// WriteTimeout bounds control frame writes.
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

// DefaultConfig returns the default manager configuration.
func DefaultConfig() Config {
	return Config{
		AutoReconnect:    true,
		ReconnectDelay:   2 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		CloseTimeout:     2 * time.Second,
		PingInterval:     30 * time.Second,
		ReadTimeout:      90 * time.Second,
		WriteTimeout:     10 * time.Second,
	}
}
