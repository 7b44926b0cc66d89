package repositories

import (
	"context"

	"github.com/20407002036/LughaBridge/domain/entities"
)

// JoinedRoom is the result of joining a room through the directory.
type JoinedRoom struct {
	Room     entities.Room
	Messages []entities.ChatMessage
}

// RoomDirectory abstracts the REST surface of the room service.
type RoomDirectory interface {
	// JoinRoom resolves a room code to its languages and message history.
	JoinRoom(ctx context.Context, code string) (JoinedRoom, error)
}

// EventHandler receives one inbound frame, decoded as a generic JSON object.
type EventHandler func(frame map[string]interface{})

// RoomStream abstracts the live websocket session with a room. Sends are best
// effort; a send while disconnected is dropped with an error, never queued.
type RoomStream interface {
	// Connect establishes the session; resolves once the handshake succeeds.
	Connect(ctx context.Context) error
	// Disconnect intentionally closes the session, suppressing reconnection.
	Disconnect()
	// Connected reports transport liveness.
	Connected() bool
	// On subscribes to a frame type or lifecycle channel ("open", "close",
	// "error") and returns an unsubscribe function.
	On(event string, fn EventHandler) func()

	// SendVoiceMessage transmits base64 audio and returns the client-generated
	// message id used to track the in-flight exchange.
	SendVoiceMessage(audioData string, language entities.Language) (string, error)
	// SendTextMessage transmits a typed utterance and returns its message id.
	SendTextMessage(text string, language entities.Language) (string, error)
	// SendPing sends an application-level keepalive frame.
	SendPing() error
	// SendTyping reports the local typing indicator.
	SendTyping(isTyping bool) error
}

// StreamFactory builds a RoomStream for a room code once the room is known.
type StreamFactory func(roomCode string) RoomStream
