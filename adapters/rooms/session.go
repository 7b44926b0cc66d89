package rooms

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/20407002036/LughaBridge/domain/entities"
	"github.com/20407002036/LughaBridge/domain/repositories"
	"github.com/20407002036/LughaBridge/internal/transport"
)

// SessionConfig controls the websocket session with one room.
type SessionConfig struct {
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
}

// Session is the live bidirectional client for one room. It wraps the
// reconnecting transport with room-specific frame shapes and client-side
// message id generation, and implements repositories.RoomStream.
type Session struct {
	roomCode  string
	transport *transport.Transport
	logger    *zap.Logger
}

var _ repositories.RoomStream = (*Session)(nil)

// NewSession creates a session for the given room websocket URL.
func NewSession(roomCode, url string, cfg SessionConfig, logger *zap.Logger) *Session {
	return &Session{
		roomCode: roomCode,
		transport: transport.NewTransport(transport.Config{
			URL:                  url,
			ReconnectDelay:       cfg.ReconnectDelay,
			MaxReconnectAttempts: cfg.MaxReconnectAttempts,
		}, logger),
		logger: logger,
	}
}

// RoomCode returns the code of the room this session addresses.
func (s *Session) RoomCode() string { return s.roomCode }

// Connect establishes the websocket session.
func (s *Session) Connect(ctx context.Context) error {
	if err := s.transport.Connect(ctx); err != nil {
		return fmt.Errorf("failed to join room %s: %w", s.roomCode, err)
	}
	return nil
}

// Disconnect intentionally closes the session.
func (s *Session) Disconnect() { s.transport.Disconnect() }

// Connected reports transport liveness.
func (s *Session) Connected() bool { return s.transport.IsConnected() }

// On subscribes to a frame type or lifecycle channel and returns the
// matching unsubscribe function.
func (s *Session) On(event string, fn repositories.EventHandler) func() {
	sub := s.transport.On(event, transport.Handler(fn))
	return func() { s.transport.Off(sub) }
}

type voiceMessagePayload struct {
	Type      string `json:"type"`
	MessageID string `json:"message_id"`
	AudioData string `json:"audio_data"`
	Language  string `json:"language"`
}

type textMessagePayload struct {
	Type      string `json:"type"`
	MessageID string `json:"message_id"`
	Text      string `json:"text"`
	Language  string `json:"language"`
}

type pingPayload struct {
	Type string `json:"type"`
}

type typingPayload struct {
	Type     string `json:"type"`
	IsTyping bool   `json:"is_typing"`
}

// SendVoiceMessage transmits a base64 audio blob tagged with a fresh message
// id, which is returned so the caller can track the in-flight exchange.
func (s *Session) SendVoiceMessage(audioData string, language entities.Language) (string, error) {
	messageID := newMessageID()
	err := s.transport.Send(voiceMessagePayload{
		Type:      "voice_message",
		MessageID: messageID,
		AudioData: audioData,
		Language:  string(language),
	})
	if err != nil {
		return "", err
	}
	s.logger.Debug("Voice message sent",
		zap.String("roomCode", s.roomCode),
		zap.String("messageID", messageID),
		zap.Int("audioBytes", len(audioData)))
	return messageID, nil
}

// SendTextMessage transmits a typed utterance tagged with a fresh message id.
func (s *Session) SendTextMessage(text string, language entities.Language) (string, error) {
	messageID := newMessageID()
	err := s.transport.Send(textMessagePayload{
		Type:      "text_message",
		MessageID: messageID,
		Text:      text,
		Language:  string(language),
	})
	if err != nil {
		return "", err
	}
	return messageID, nil
}

// SendPing sends an application-level keepalive frame.
func (s *Session) SendPing() error {
	return s.transport.Send(pingPayload{Type: "ping"})
}

// SendTyping reports the local typing indicator to the peer.
func (s *Session) SendTyping(isTyping bool) error {
	return s.transport.Send(typingPayload{Type: "typing", IsTyping: isTyping})
}

// newMessageID combines the current time with a random suffix. Uniqueness is
// probabilistic, not guaranteed; the server may replace the id on echo.
func newMessageID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("msg-%d-%s", time.Now().UnixMilli(), suffix)
}
