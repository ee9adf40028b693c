package feed

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/stepamak/pump-tracker/internal/observability"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type stateEvent struct {
	connected bool
	reason    string
}

type recorder struct {
	mu     sync.Mutex
	states []stateEvent
	msgs   []string
}

func (r *recorder) ConnectionStateChanged(connected bool, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, stateEvent{connected, reason})
}

func (r *recorder) MessageReceived(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, text)
}

func (r *recorder) snapshot() ([]stateEvent, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]stateEvent(nil), r.states...), append([]string(nil), r.msgs...)
}

func (r *recorder) disconnects() []stateEvent {
	states, _ := r.snapshot()
	var out []stateEvent
	for _, s := range states {
		if !s.connected {
			out = append(out, s)
		}
	}
	return out
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.ReconnectDelay = 50 * time.Millisecond
	cfg.CloseTimeout = time.Second
	return &cfg
}

func newTestManager(t *testing.T, l Listener, cfg *Config) *Manager {
	m := NewManager(l, cfg,
		WithLogger(zaptest.NewLogger(t)),
		WithMetrics(observability.NewMetrics(nil, "test")),
	)
	t.Cleanup(m.Stop)
	return m
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

// holdOpen reads until the client goes away.
func holdOpen(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func TestManager_StartRejectsBlankConfiguration(t *testing.T) {
	var dials atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dials.Add(1)
	}))
	t.Cleanup(server.Close)

	m := newTestManager(t, &recorder{}, testConfig())

	for _, tc := range []struct{ endpoint, key string }{
		{"", "key"},
		{wsURL(server), "  "},
		{"http://example.com", "key"},
	} {
		err := m.Start(tc.endpoint, tc.key)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrConfiguration), err.Error())
	}

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, dials.Load())
	assert.Equal(t, StateDisconnected, m.State())
	assert.Empty(t, m.SessionID())
}

func TestManager_ConnectAndReceive(t *testing.T) {
	gotKey := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey <- r.Header.Get(APIKeyHeader)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_ = conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3})
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"mint":"A"}`))

		// fragmented text message
		w2, err := conn.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}
		_, _ = w2.Write([]byte(`{"mint":`))
		_, _ = w2.Write([]byte(`"B"}`))
		_ = w2.Close()

		holdOpen(conn)
	}))
	t.Cleanup(server.Close)

	rec := &recorder{}
	m := newTestManager(t, rec, testConfig())
	require.NoError(t, m.Start(wsURL(server), "secret"))
	assert.NotEmpty(t, m.SessionID())

	assert.Equal(t, "secret", <-gotKey)
	require.Eventually(t, func() bool {
		_, msgs := rec.snapshot()
		return len(msgs) == 2
	}, 2*time.Second, 10*time.Millisecond)

	states, msgs := rec.snapshot()
	assert.Equal(t, []string{`{"mint":"A"}`, `{"mint":"B"}`}, msgs)
	assert.Equal(t, []stateEvent{{true, ReasonConnected}}, states)
	assert.Equal(t, StateConnected, m.State())
}

func TestManager_ServerCloseReason(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "maintenance")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		holdOpen(conn)
	}))
	t.Cleanup(server.Close)

	cfg := testConfig()
	cfg.AutoReconnect = false

	rec := &recorder{}
	m := newTestManager(t, rec, cfg)
	require.NoError(t, m.Start(wsURL(server), "k"))

	require.Eventually(t, func() bool { return len(rec.disconnects()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, ReasonServerClosed, rec.disconnects()[0].reason)
	assert.Equal(t, StateDisconnected, m.State())
}

func TestManager_SingleReconnectPerDisconnect(t *testing.T) {
	var dials atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := dials.Add(1)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		if n == 1 {
			// drop the first connection without a close frame
			return
		}
		holdOpen(conn)
	}))
	t.Cleanup(server.Close)

	rec := &recorder{}
	m := newTestManager(t, rec, testConfig())
	require.NoError(t, m.Start(wsURL(server), "k"))

	require.Eventually(t, func() bool { return dials.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return m.State() == StateConnected }, 2*time.Second, 10*time.Millisecond)

	// several reconnect delays pass without further attempts
	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, int32(2), dials.Load())
	assert.Len(t, rec.disconnects(), 1)
}

func TestManager_StopDuringDelayCancelsReconnect(t *testing.T) {
	var dials atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dials.Add(1)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close()
	}))
	t.Cleanup(server.Close)

	cfg := testConfig()
	cfg.ReconnectDelay = 300 * time.Millisecond

	rec := &recorder{}
	m := newTestManager(t, rec, cfg)
	require.NoError(t, m.Start(wsURL(server), "k"))

	require.Eventually(t, func() bool { return len(rec.disconnects()) == 1 }, 2*time.Second, 5*time.Millisecond)
	m.Stop()

	time.Sleep(500 * time.Millisecond)
	assert.Equal(t, int32(1), dials.Load())
	assert.Len(t, rec.disconnects(), 1)
	assert.Equal(t, StateDisconnected, m.State())
}

func TestManager_StopSendsCloseFrame(t *testing.T) {
	closed := make(chan *websocket.CloseError, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				var ce *websocket.CloseError
				if errors.As(err, &ce) {
					closed <- ce
				}
				return
			}
		}
	}))
	t.Cleanup(server.Close)

	rec := &recorder{}
	m := newTestManager(t, rec, testConfig())
	require.NoError(t, m.Start(wsURL(server), "k"))
	require.Eventually(t, func() bool { return m.State() == StateConnected }, 2*time.Second, 10*time.Millisecond)

	m.Stop()

	select {
	case ce := <-closed:
		assert.Equal(t, websocket.CloseNormalClosure, ce.Code)
		assert.Equal(t, "bye", ce.Text)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not receive close frame")
	}

	d := rec.disconnects()
	require.Len(t, d, 1)
	assert.Equal(t, ReasonStopped, d[0].reason)
	assert.Empty(t, m.SessionID())
}

func TestManager_RestartReplacesSession(t *testing.T) {
	var open atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		open.Add(1)
		defer open.Add(-1)
		holdOpen(conn)
	}))
	t.Cleanup(server.Close)

	m := newTestManager(t, &recorder{}, testConfig())
	require.NoError(t, m.Start(wsURL(server), "k"))
	require.Eventually(t, func() bool { return open.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	first := m.SessionID()

	require.NoError(t, m.Start(wsURL(server), "k"))
	assert.NotEqual(t, first, m.SessionID())

	require.Eventually(t, func() bool { return m.State() == StateConnected }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), open.Load(), "only one live socket")
}

func TestManager_DialFailureReportsReason(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	t.Cleanup(server.Close)

	cfg := testConfig()
	cfg.AutoReconnect = false

	rec := &recorder{}
	m := newTestManager(t, rec, cfg)
	require.NoError(t, m.Start(wsURL(server), "bad"))

	require.Eventually(t, func() bool { return len(rec.disconnects()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, rec.disconnects()[0].reason, "401")
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "disconnected", StateDisconnected.String())
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "connected", StateConnected.String())
}
