// Package conn maintains the single live WebSocket session to the dispatch
// backend: dial, heartbeat, teardown, and reconnection with exponential
// backoff. A Manager is an injected dependency of the composition root, never
// a package-level singleton, so tests can run several side by side.
package conn

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ridewire/dispatchsync/internal/event"
)

// State is the connection lifecycle phase.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
)

// CloseCodeAuthRejected is the application close code the backend sends when
// a session's credential stops being valid.
const CloseCodeAuthRejected = 4401

var (
	// ErrAuthRejected marks a credential the backend refused. Auth failures
	// never trigger the reconnect schedule; the caller must re-authenticate
	// and call Connect again.
	ErrAuthRejected = errors.New("authentication rejected")

	// ErrReconnectExhausted marks the terminal state after the reconnect
	// attempt cap is reached. Only a manual Connect resumes.
	ErrReconnectExhausted = errors.New("reconnect attempts exhausted")
)

// Session identifies one authenticated tenant-scoped link.
type Session struct {
	TenantID string
	UserID   string
	Token    string
}

// Config tunes the transport. Zero values fall back to the defaults below.
type Config struct {
	URL                  string
	HeartbeatInterval    time.Duration
	BackoffBase          time.Duration
	MaxReconnectAttempts int
	HandshakeTimeout     time.Duration
	WriteTimeout         time.Duration
}

const (
	defaultHeartbeatInterval = 30 * time.Second
	defaultBackoffBase       = 500 * time.Millisecond
	defaultMaxReconnects     = 5
	defaultHandshakeTimeout  = 10 * time.Second
	defaultWriteTimeout      = 10 * time.Second
)

func (c Config) withDefaults() Config {
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = defaultBackoffBase
	}
	if c.MaxReconnectAttempts <= 0 {
		c.MaxReconnectAttempts = defaultMaxReconnects
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = defaultHandshakeTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = defaultWriteTimeout
	}
	return c
}

// Handler receives each raw inbound frame, in delivery order.
type Handler func(raw []byte)

// StateListener observes connection health transitions. err is non-nil for
// auth rejection, backoff exhaustion, and transport failures.
type StateListener func(state State, err error)

// Manager owns at most one live transport. Starting a new session tears down
// any prior one first.
type Manager struct {
	cfg     Config
	handler Handler
	logger  *slog.Logger
	dialer  *websocket.Dialer
	after   func(time.Duration, func()) *time.Timer

	mu        sync.Mutex
	state     State
	session   Session
	conn      *websocket.Conn
	gen       int
	attempts  int
	lastErr   error
	retry     *time.Timer
	stopBeat  chan struct{}
	listeners []StateListener
	pending   []stateChange
	notifying bool

	writeMu sync.Mutex
}

type stateChange struct {
	state State
	err   error
}

// New creates a manager. handler must not be nil; a nil logger falls back to
// slog.Default().
func New(cfg Config, handler Handler, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cfg:     cfg.withDefaults(),
		handler: handler,
		logger:  logger,
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.withDefaults().HandshakeTimeout,
		},
		after: time.AfterFunc,
		state: StateDisconnected,
	}
}

// OnStateChange registers a health listener. Transitions are delivered in
// order on a single notifier goroutine, never under the manager's lock.
func (m *Manager) OnStateChange(fn StateListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Connect starts a session. A manager that is already connecting or
// connected ignores the call; otherwise any prior transport is torn down
// first. The dial itself is asynchronous: health is reported through the
// state listeners, never by blocking the caller.
func (m *Manager) Connect(sess Session) {
	m.mu.Lock()
	if m.state == StateConnecting || m.state == StateConnected {
		m.mu.Unlock()
		m.logger.Debug("connect ignored, session already live", "state", m.state)
		return
	}
	m.teardownLocked()
	m.session = sess
	m.attempts = 0
	m.lastErr = nil
	gen := m.nextGenLocked()
	m.setStateLocked(StateConnecting, nil)
	m.mu.Unlock()

	go m.dial(gen)
}

// Disconnect tears the session down on purpose: heartbeat and retry timers
// are cancelled, the socket closed, and the attempt counter reset. Idempotent.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.teardownLocked()
	m.nextGenLocked()
	m.attempts = 0
	if m.state != StateDisconnected {
		m.setStateLocked(StateDisconnected, nil)
	}
	m.mu.Unlock()
}

// UpdateToken refreshes the session credential in place. The next dial (or
// reconnect) uses it; the live transport is not torn down.
func (m *Manager) UpdateToken(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session.Token = token
}

// Send writes a fire-and-forget message. When not connected the message is
// dropped with a warning, never queued.
func (m *Manager) Send(msgType string, payload any) {
	m.mu.Lock()
	c := m.conn
	connected := m.state == StateConnected
	m.mu.Unlock()

	if !connected || c == nil {
		m.logger.Warn("dropping outbound message, not connected", "type", msgType)
		return
	}

	frame, err := event.Encode(msgType, payload)
	if err != nil {
		m.logger.Warn("dropping outbound message", "type", msgType, "error", err)
		return
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	_ = c.SetWriteDeadline(time.Now().Add(m.cfg.WriteTimeout))
	if err := c.WriteMessage(websocket.TextMessage, frame); err != nil {
		m.logger.Warn("outbound write failed", "type", msgType, "error", err)
	}
}

// State returns the current lifecycle phase.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connected reports whether the transport is live.
func (m *Manager) Connected() bool {
	return m.State() == StateConnected
}

// LastError returns the most recent connection error, nil when healthy.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Attempts returns the current reconnect attempt count.
func (m *Manager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// --- internals ---

// nextGenLocked invalidates callbacks from any prior transport.
func (m *Manager) nextGenLocked() int {
	m.gen++
	return m.gen
}

func (m *Manager) teardownLocked() {
	if m.retry != nil {
		m.retry.Stop()
		m.retry = nil
	}
	if m.stopBeat != nil {
		close(m.stopBeat)
		m.stopBeat = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
}

// setStateLocked records the transition and queues the listener notification.
// A single notifier goroutine drains the queue so listeners observe
// transitions in the order they happened; spawning one goroutine per
// transition would let a later state overtake an earlier one.
func (m *Manager) setStateLocked(s State, err error) {
	m.state = s
	if err != nil {
		m.lastErr = err
	} else if s == StateConnected {
		m.lastErr = nil
	}
	m.pending = append(m.pending, stateChange{state: s, err: err})
	if !m.notifying {
		m.notifying = true
		go m.notifyLoop()
	}
}

func (m *Manager) notifyLoop() {
	for {
		m.mu.Lock()
		if len(m.pending) == 0 {
			m.notifying = false
			m.mu.Unlock()
			return
		}
		change := m.pending[0]
		m.pending = m.pending[1:]
		listeners := append([]StateListener(nil), m.listeners...)
		m.mu.Unlock()

		for _, fn := range listeners {
			fn(change.state, change.err)
		}
	}
}

func (m *Manager) dial(gen int) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	sess := m.session
	m.mu.Unlock()

	wsURL, err := sessionURL(m.cfg.URL, sess)
	if err != nil {
		m.fail(gen, err)
		return
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+sess.Token)

	c, resp, err := m.dialer.Dial(wsURL, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			m.authReject(gen, fmt.Errorf("%w: handshake returned %d", ErrAuthRejected, resp.StatusCode))
			return
		}
		m.fail(gen, fmt.Errorf("dialing %s: %w", m.cfg.URL, err))
		return
	}

	m.mu.Lock()
	if gen != m.gen {
		// A Disconnect or newer Connect raced the dial.
		m.mu.Unlock()
		_ = c.Close()
		return
	}
	m.conn = c
	m.attempts = 0
	m.stopBeat = make(chan struct{})
	stop := m.stopBeat
	m.setStateLocked(StateConnected, nil)
	m.mu.Unlock()

	m.logger.Info("connected", "tenant", sess.TenantID, "user", sess.UserID)

	go m.heartbeat(c, stop)
	go m.readLoop(c, gen)
}

// sessionURL attaches the tenant and user handshake parameters.
func sessionURL(raw string, sess Session) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parsing url %q: %w", raw, err)
	}
	q := u.Query()
	q.Set("tenant_id", sess.TenantID)
	q.Set("user_id", sess.UserID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// heartbeat sends a ping control frame on a fixed interval while the
// transport is live. A missed pong is not itself fatal: the read deadline
// governs failure detection.
func (m *Manager) heartbeat(c *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(m.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			deadline := time.Now().Add(m.cfg.WriteTimeout)
			if err := c.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				m.logger.Debug("heartbeat write failed", "error", err)
				return
			}
		}
	}
}

// readLoop delivers inbound frames to the handler in arrival order. One
// frame's handling completes before the next read.
func (m *Manager) readLoop(c *websocket.Conn, gen int) {
	readWait := m.cfg.HeartbeatInterval*2 + m.cfg.WriteTimeout
	_ = c.SetReadDeadline(time.Now().Add(readWait))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(readWait))
	})

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, CloseCodeAuthRejected) {
				m.authReject(gen, fmt.Errorf("%w: %v", ErrAuthRejected, err))
				return
			}
			m.fail(gen, err)
			return
		}
		// Frames also refresh liveness; pongs alone are not required on a
		// busy stream.
		_ = c.SetReadDeadline(time.Now().Add(readWait))
		m.handler(data)
	}
}

// authReject disconnects without scheduling a retry.
func (m *Manager) authReject(gen int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return
	}
	m.logger.Error("authentication rejected, not retrying", "error", err)
	m.teardownLocked()
	m.setStateLocked(StateDisconnected, err)
}

// fail handles an unexpected transport failure: schedule a reconnect with
// exponential backoff, or surface the terminal error once the cap is hit.
func (m *Manager) fail(gen int, cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		// Intentional teardown; the close error is expected noise.
		return
	}
	m.teardownLocked()

	if m.attempts >= m.cfg.MaxReconnectAttempts {
		m.logger.Error("giving up after max reconnect attempts",
			"attempts", m.attempts, "error", cause)
		m.setStateLocked(StateDisconnected, fmt.Errorf("%w after %d attempts: %v",
			ErrReconnectExhausted, m.attempts, cause))
		return
	}

	delay := m.cfg.BackoffBase * (1 << m.attempts)
	m.attempts++
	m.logger.Warn("connection lost, scheduling reconnect",
		"attempt", m.attempts, "delay", delay, "error", cause)
	m.setStateLocked(StateReconnecting, cause)

	nextGen := m.nextGenLocked()
	m.retry = m.after(delay, func() {
		m.mu.Lock()
		if nextGen != m.gen {
			m.mu.Unlock()
			return
		}
		m.retry = nil
		m.mu.Unlock()
		m.dial(nextGen)
	})
}
