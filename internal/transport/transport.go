package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Lifecycle channels emitted alongside the server's own frame types.
const (
	EventOpen  = "open"
	EventClose = "close"
	EventError = "error"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	defaultReconnectDelay       = 2 * time.Second
	defaultMaxReconnectAttempts = 5
	defaultHandshakeTimeout     = 10 * time.Second
)

// ErrNotConnected is returned by Send when no socket is open. Sends are best
// effort: the frame is dropped, never queued.
var ErrNotConnected = errors.New("transport is not connected")

// Config controls the websocket endpoint and reconnection behavior.
type Config struct {
	URL                  string
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
	HandshakeTimeout     time.Duration
}

// Transport maintains one logical websocket connection to a room endpoint.
// Inbound JSON frames carry a "type" tag and are re-emitted verbatim on the
// channel of that name; malformed frames are dropped with a diagnostic. An
// unexpected close triggers bounded automatic reconnection with a fixed delay,
// suppressed once Disconnect has been called. The transport holds at most one
// socket at a time; a previous socket is fully torn down before a new dial.
type Transport struct {
	cfg    Config
	events *Dispatcher
	logger *zap.Logger

	mu          sync.Mutex
	conn        *websocket.Conn
	intentional bool
	attempts    int
	retryTimer  *time.Timer
}

// NewTransport creates a transport for the given endpoint. Zero config fields
// fall back to defaults (2s delay, 5 attempts).
func NewTransport(cfg Config, logger *zap.Logger) *Transport {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = defaultReconnectDelay
	}
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = defaultMaxReconnectAttempts
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = defaultHandshakeTimeout
	}
	return &Transport{
		cfg:    cfg,
		events: NewDispatcher(),
		logger: logger,
	}
}

// On registers a handler for a frame type or lifecycle channel.
func (t *Transport) On(event string, fn Handler) Subscription {
	return t.events.On(event, fn)
}

// Off removes a handler registered with On.
func (t *Transport) Off(sub Subscription) {
	t.events.Off(sub)
}

// Connect dials the endpoint and starts the read loop. It returns once the
// handshake succeeds or the initial attempt fails; it is safe to call again
// after a clean Disconnect. Calling Connect while already connected is a no-op.
func (t *Transport) Connect(ctx context.Context) error {
	t.mu.Lock()
	if t.conn != nil {
		t.mu.Unlock()
		return nil
	}
	t.intentional = false
	t.stopRetryLocked()
	t.mu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: t.cfg.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, t.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to room endpoint: %w", err)
	}

	t.mu.Lock()
	if t.intentional {
		t.mu.Unlock()
		conn.Close()
		return errors.New("transport closed during connect")
	}
	t.conn = conn
	t.attempts = 0
	t.mu.Unlock()

	t.logger.Info("Room connection established", zap.String("url", t.cfg.URL))
	t.events.Emit(EventOpen, map[string]interface{}{"url": t.cfg.URL})

	go t.readLoop(conn)
	return nil
}

// Disconnect marks the session as intentionally closed, suppressing any
// reconnection, and closes the socket if one is open. Safe to call repeatedly.
func (t *Transport) Disconnect() {
	t.mu.Lock()
	t.intentional = true
	t.stopRetryLocked()
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()

	if conn != nil {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}
}

// IsConnected reports whether a socket is currently open.
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn != nil
}

// Send serializes v to JSON and writes it to the socket. When the socket is
// not open the frame is dropped and ErrNotConnected returned; callers must
// treat delivery as fire-and-forget either way.
func (t *Transport) Send(v interface{}) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		t.logger.Warn("Dropping outbound frame, transport not connected")
		return ErrNotConnected
	}

	t.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := t.conn.WriteJSON(v); err != nil {
		t.logger.Error("Failed to send frame", zap.Error(err))
		return fmt.Errorf("failed to send frame: %w", err)
	}
	return nil
}

func (t *Transport) readLoop(conn *websocket.Conn) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if !isExpectedClose(err) {
				t.logger.Error("Room connection error", zap.Error(err))
				t.events.Emit(EventError, map[string]interface{}{"message": err.Error()})
			}
			break
		}
		t.dispatch(payload)
	}
	t.handleClose(conn)
}

func (t *Transport) dispatch(payload []byte) {
	var frame map[string]interface{}
	if err := json.Unmarshal(payload, &frame); err != nil {
		t.logger.Warn("Dropping malformed frame", zap.Error(err))
		return
	}

	frameType, ok := frame["type"].(string)
	if !ok || frameType == "" {
		t.logger.Warn("Dropping frame without type tag")
		return
	}
	t.events.Emit(frameType, frame)
}

func (t *Transport) handleClose(conn *websocket.Conn) {
	conn.Close()

	t.mu.Lock()
	if t.conn == conn {
		t.conn = nil
	}
	intentional := t.intentional
	retry := !intentional && t.attempts < t.cfg.MaxReconnectAttempts
	if retry {
		t.attempts++
	}
	attempt := t.attempts
	t.mu.Unlock()

	t.events.Emit(EventClose, map[string]interface{}{"intentional": intentional})

	if !retry {
		if !intentional {
			t.logger.Warn("Reconnect attempts exhausted",
				zap.Int("attempts", attempt),
				zap.String("url", t.cfg.URL))
		}
		return
	}

	t.logger.Info("Reconnecting",
		zap.Int("attempt", attempt),
		zap.Int("maxAttempts", t.cfg.MaxReconnectAttempts))

	t.mu.Lock()
	if !t.intentional {
		t.retryTimer = time.AfterFunc(t.cfg.ReconnectDelay, t.reconnect)
	}
	t.mu.Unlock()
}

func (t *Transport) reconnect() {
	t.mu.Lock()
	if t.intentional || t.conn != nil {
		t.mu.Unlock()
		return
	}
	t.retryTimer = nil
	t.mu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: t.cfg.HandshakeTimeout}
	conn, _, err := dialer.Dial(t.cfg.URL, nil)
	if err != nil {
		t.mu.Lock()
		retry := !t.intentional && t.attempts < t.cfg.MaxReconnectAttempts
		if retry {
			t.attempts++
			t.retryTimer = time.AfterFunc(t.cfg.ReconnectDelay, t.reconnect)
		}
		attempt := t.attempts
		t.mu.Unlock()

		if retry {
			t.logger.Info("Reconnect failed, retrying",
				zap.Int("attempt", attempt),
				zap.Error(err))
		} else {
			t.logger.Warn("Reconnect attempts exhausted",
				zap.Int("attempts", attempt),
				zap.String("url", t.cfg.URL))
		}
		return
	}

	t.mu.Lock()
	if t.intentional {
		t.mu.Unlock()
		conn.Close()
		return
	}
	t.conn = conn
	t.attempts = 0
	t.mu.Unlock()

	t.logger.Info("Room connection re-established", zap.String("url", t.cfg.URL))
	t.events.Emit(EventOpen, map[string]interface{}{"url": t.cfg.URL})

	go t.readLoop(conn)
}

func (t *Transport) stopRetryLocked() {
	if t.retryTimer != nil {
		t.retryTimer.Stop()
		t.retryTimer = nil
	}
}

func isExpectedClose(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	)
}
