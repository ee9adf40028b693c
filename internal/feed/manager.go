// Package feed maintains the websocket connection to the token feed.
//
// A Manager owns at most one session at a time. A session dials, reads
// until the socket fails, reports the disconnect and, when auto-reconnect
// is enabled, waits a fixed delay before dialing again. Stop cancels the
// session, including a pending reconnect.
package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/stepamak/pump-tracker/internal/logger"
	"github.com/stepamak/pump-tracker/internal/observability"
)

// ErrConfiguration is returned by Start when the endpoint or key is unusable.
var ErrConfiguration = errors.New("feed configuration")

// Disconnect reasons that are not transport error text.
const (
	ReasonConnected    = "connected"
	ReasonServerClosed = "server closed"
	ReasonStopped      = "stopped"
)

// APIKeyHeader carries the feed credential on the upgrade request.
const APIKeyHeader = "X-API-Key"

// State is the connection state reported by Manager.State.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Listener receives connection signals. Calls for one session are made
// from a single goroutine, in order.
type Listener interface {
	ConnectionStateChanged(connected bool, reason string)
	MessageReceived(text string)
}

// Option customizes a Manager.
type Option func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(mt *observability.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// Manager implements the connection lifecycle using gorilla/websocket.
type Manager struct {
	cfg      Config
	listener Listener
	log      *zap.Logger
	metrics  *observability.Metrics
	dialer   websocket.Dialer

	// mu serializes Start and Stop.
	mu      sync.Mutex
	session *session

	state atomic.Int32
}

type session struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}

	connMu sync.Mutex
	conn   *websocket.Conn
}

func (s *session) setConn(c *websocket.Conn) {
	s.connMu.Lock()
	s.conn = c
	s.connMu.Unlock()
}

func (s *session) currentConn() *websocket.Conn {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return s.conn
}

// NewManager creates a manager that reports to l.
func NewManager(l Listener, cfg *Config, opts ...Option) *Manager {
	c := DefaultConfig()
	if cfg != nil {
		c = *cfg
	}

	m := &Manager{
		cfg:      c,
		listener: l,
		log:      logger.Named("feed"),
		metrics:  observability.DefaultMetrics,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = zap.NewNop()
	}
	if m.metrics == nil {
		m.metrics = observability.DefaultMetrics
	}
	m.dialer = websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: c.HandshakeTimeout,
	}
	return m
}

// State returns the current connection state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

func (m *Manager) setState(s State) {
	m.state.Store(int32(s))
	m.metrics.SetConnected(s == StateConnected)
}

// Start stops any running session and starts a new one. Configuration
// problems are reported synchronously; transport failures are reported
// through the listener.
func (m *Manager) Start(endpoint, apiKey string) error {
	u, err := ValidateEndpoint(endpoint, apiKey)
	if err != nil {
		return err
	}
	apiKey = strings.TrimSpace(apiKey)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		id:     uuid.NewString(),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	m.session = s

	header := http.Header{}
	header.Set(APIKeyHeader, apiKey)

	go m.run(ctx, s, u.String(), header)
	return nil
}

// ValidateEndpoint checks the values Start needs without dialing.
// Every failure wraps ErrConfiguration.
func ValidateEndpoint(endpoint, apiKey string) (*url.URL, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("%w: endpoint is empty", ErrConfiguration)
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: api key is empty", ErrConfiguration)
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: endpoint: %v", ErrConfiguration, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("%w: endpoint scheme %q, want ws or wss", ErrConfiguration, u.Scheme)
	}
	return u, nil
}

// Stop closes the current session and waits for it to exit.
// It is a no-op when nothing is running.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

func (m *Manager) stopLocked() {
	s := m.session
	if s == nil {
		return
	}
	m.session = nil

	s.cancel()
	if conn := s.currentConn(); conn != nil {
		deadline := time.Now().Add(m.cfg.CloseTimeout)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
		if err := conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
			m.log.Debug("close frame", logger.FieldSession(s.id), logger.FieldErr(err))
		}
		_ = conn.Close()
	}
	<-s.done
	m.setState(StateDisconnected)
}

// SessionID returns the id of the running session, or "".
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return ""
	}
	return m.session.id
}

// run owns one session: every retry is scheduled here, so each
// disconnect produces at most one new attempt.
func (m *Manager) run(ctx context.Context, s *session, endpoint string, header http.Header) {
	defer close(s.done)
	log := m.log.With(logger.FieldSession(s.id))

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			m.metrics.Reconnects.Inc()
			log.Info("reconnecting", zap.Int("attempt", attempt))
		}

		reason := m.connectAndRead(ctx, s, endpoint, header, log)
		m.setState(StateDisconnected)
		m.listener.ConnectionStateChanged(false, reason)

		if ctx.Err() != nil || !m.cfg.AutoReconnect {
			return
		}

		timer := time.NewTimer(m.cfg.ReconnectDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (m *Manager) connectAndRead(ctx context.Context, s *session, endpoint string, header http.Header, log *zap.Logger) string {
	m.setState(StateConnecting)

	conn, resp, err := m.dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if ctx.Err() != nil {
			return ReasonStopped
		}
		if resp != nil {
			err = fmt.Errorf("%w (status %d)", err, resp.StatusCode)
		}
		m.metrics.RecordDisconnect("dial")
		log.Warn("dial failed", logger.FieldErr(err))
		return err.Error()
	}

	s.setConn(conn)
	defer func() {
		s.setConn(nil)
		_ = conn.Close()
	}()

	// Stop may have run between the dial and setConn.
	if ctx.Err() != nil {
		return ReasonStopped
	}

	m.setState(StateConnected)
	log.Info("connected", zap.String("endpoint", endpoint))
	m.listener.ConnectionStateChanged(true, ReasonConnected)

	conn.SetCloseHandler(func(code int, text string) error {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "closed")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(m.cfg.WriteTimeout))
		return nil
	})
	m.extendDeadline(conn)
	conn.SetPongHandler(func(string) error {
		m.extendDeadline(conn)
		return nil
	})

	pingDone := make(chan struct{})
	defer close(pingDone)
	go m.keepalive(conn, pingDone, log)

	return m.readLoop(ctx, conn, log)
}

func (m *Manager) readLoop(ctx context.Context, conn *websocket.Conn, log *zap.Logger) string {
	for {
		typ, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ReasonStopped
			}
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				m.metrics.RecordDisconnect("server_close")
				log.Info("server closed connection", zap.Int("code", ce.Code), zap.String("text", ce.Text))
				return ReasonServerClosed
			}
			m.metrics.RecordDisconnect("read")
			log.Warn("read failed", logger.FieldErr(err))
			return err.Error()
		}

		m.extendDeadline(conn)
		if typ != websocket.TextMessage {
			log.Debug("ignoring non-text message", zap.Int("type", typ), zap.Int("bytes", len(data)))
			continue
		}
		m.metrics.MessagesReceived.Inc()
		m.listener.MessageReceived(string(data))
	}
}

func (m *Manager) extendDeadline(conn *websocket.Conn) {
	if m.cfg.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(m.cfg.ReadTimeout))
	}
}

// keepalive sends ping frames until done is closed or a write fails.
func (m *Manager) keepalive(conn *websocket.Conn, done <-chan struct{}, log *zap.Logger) {
	if m.cfg.PingInterval <= 0 {
		return
	}
	ticker := time.NewTicker(m.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(m.cfg.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				// the read loop observes the broken socket
				log.Debug("ping failed", logger.FieldErr(err))
				return
			}
		}
	}
}
