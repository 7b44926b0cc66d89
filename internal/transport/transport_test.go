package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// newRoomServer runs handle on every accepted websocket connection and
// returns a ws:// URL for the server.
func newRoomServer(t *testing.T, handle func(conn *websocket.Conn)) (string, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		handle(conn)
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http"), srv
}

func waitSignal(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("Timed out waiting for %s", what)
	}
}

func TestTransportConnectAndDispatch(t *testing.T) {
	t.Parallel()

	received := make(chan map[string]interface{}, 1)
	serverGot := make(chan map[string]interface{}, 1)

	url, _ := newRoomServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		conn.WriteJSON(map[string]interface{}{"type": "chat_message", "text": "hello"})

		var outbound map[string]interface{}
		if err := conn.ReadJSON(&outbound); err == nil {
			serverGot <- outbound
		}
	})

	tr := NewTransport(Config{URL: url}, zap.NewNop())
	tr.On("chat_message", func(frame map[string]interface{}) {
		received <- frame
	})

	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer tr.Disconnect()

	select {
	case frame := <-received:
		if frame["text"] != "hello" {
			t.Errorf("Unexpected frame payload: %v", frame)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for inbound frame")
	}

	if err := tr.Send(map[string]interface{}{"type": "ping"}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	select {
	case outbound := <-serverGot:
		if outbound["type"] != "ping" {
			t.Errorf("Unexpected outbound frame: %v", outbound)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for outbound frame")
	}
}

func TestTransportConnectIdempotentWhileConnected(t *testing.T) {
	t.Parallel()

	var accepts int32
	hold := make(chan struct{})
	url, _ := newRoomServer(t, func(conn *websocket.Conn) {
		atomic.AddInt32(&accepts, 1)
		<-hold
		conn.Close()
	})
	defer close(hold)

	tr := NewTransport(Config{URL: url}, zap.NewNop())
	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer tr.Disconnect()

	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Second Connect failed: %v", err)
	}
	if got := atomic.LoadInt32(&accepts); got != 1 {
		t.Errorf("Expected a single dial while connected, server accepted %d", got)
	}
}

func TestTransportSendWhileDisconnected(t *testing.T) {
	t.Parallel()

	tr := NewTransport(Config{URL: "ws://127.0.0.1:0/"}, zap.NewNop())
	if err := tr.Send(map[string]interface{}{"type": "ping"}); err != ErrNotConnected {
		t.Fatalf("Expected ErrNotConnected, got %v", err)
	}
}

func TestTransportDisconnectSuppressesReconnect(t *testing.T) {
	t.Parallel()

	var accepts int32
	closed := make(chan struct{}, 4)

	url, _ := newRoomServer(t, func(conn *websocket.Conn) {
		atomic.AddInt32(&accepts, 1)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		conn.Close()
	})

	tr := NewTransport(Config{
		URL:                  url,
		ReconnectDelay:       20 * time.Millisecond,
		MaxReconnectAttempts: 3,
	}, zap.NewNop())
	tr.On(EventClose, func(frame map[string]interface{}) {
		if frame["intentional"] != true {
			t.Error("Expected intentional close")
		}
		closed <- struct{}{}
	})

	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	tr.Disconnect()
	tr.Disconnect() // repeat is safe

	waitSignal(t, closed, "close event")
	time.Sleep(120 * time.Millisecond)

	if got := atomic.LoadInt32(&accepts); got != 1 {
		t.Errorf("Expected no reconnection after Disconnect, server accepted %d connections", got)
	}
	if tr.IsConnected() {
		t.Error("Transport still reports connected after Disconnect")
	}
}

func TestTransportReconnectsAfterUnexpectedClose(t *testing.T) {
	t.Parallel()

	var accepts int32
	url, _ := newRoomServer(t, func(conn *websocket.Conn) {
		n := atomic.AddInt32(&accepts, 1)
		if n == 1 {
			// Drop the first connection without a close handshake.
			conn.Close()
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	})

	opens := make(chan struct{}, 4)
	tr := NewTransport(Config{
		URL:                  url,
		ReconnectDelay:       20 * time.Millisecond,
		MaxReconnectAttempts: 5,
	}, zap.NewNop())
	tr.On(EventOpen, func(map[string]interface{}) { opens <- struct{}{} })

	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer tr.Disconnect()

	waitSignal(t, opens, "initial open")
	waitSignal(t, opens, "reconnected open")

	if got := atomic.LoadInt32(&accepts); got < 2 {
		t.Errorf("Expected a reconnection, server accepted %d connections", got)
	}
}

func TestTransportReconnectAttemptsAreBounded(t *testing.T) {
	t.Parallel()

	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&requests, 1)
		if n > 1 {
			// Refuse the handshake for every reconnect attempt.
			http.Error(w, "gone", http.StatusServiceUnavailable)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close()
	}))
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	tr := NewTransport(Config{
		URL:                  url,
		ReconnectDelay:       10 * time.Millisecond,
		MaxReconnectAttempts: 3,
	}, zap.NewNop())

	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer tr.Disconnect()

	// 1 initial dial + at most 3 reconnect attempts, then silence.
	time.Sleep(300 * time.Millisecond)
	if got := atomic.LoadInt32(&requests); got != 4 {
		t.Errorf("Expected 4 dials (1 initial + 3 bounded retries), got %d", got)
	}
}

func TestTransportDropsMalformedFrames(t *testing.T) {
	t.Parallel()

	received := make(chan map[string]interface{}, 2)
	url, _ := newRoomServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte("{not json"))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"untyped":true}`))
		conn.WriteJSON(map[string]interface{}{"type": "pong"})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	})

	tr := NewTransport(Config{URL: url}, zap.NewNop())
	tr.On("pong", func(frame map[string]interface{}) { received <- frame })

	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer tr.Disconnect()

	select {
	case frame := <-received:
		if frame["type"] != "pong" {
			t.Errorf("Unexpected frame: %v", frame)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for the surviving frame")
	}

	if len(received) != 0 {
		t.Error("Malformed frames must not reach subscribers")
	}
}
