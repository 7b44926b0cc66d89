package entities

import (
	"errors"
	"strings"
	"time"
)

// Language identifies one of the two languages a room pairs.
type Language string

const (
	LanguageKikuyu  Language = "Kikuyu"
	LanguageEnglish Language = "English"
)

// ParseLanguage maps a language string from a server payload to a known
// Language. Matching is case-insensitive and tolerates the short-code forms
// some endpoints return ("kikuyu", "english").
func ParseLanguage(s string) (Language, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "kikuyu", "ki":
		return LanguageKikuyu, true
	case "english", "en":
		return LanguageEnglish, true
	default:
		return "", false
	}
}

// MessageSender identifies one of the two participant slots in a room.
type MessageSender string

const (
	SenderA MessageSender = "A"
	SenderB MessageSender = "B"
)

// ParseSender maps a sender string from a server payload to a participant slot.
func ParseSender(s string) (MessageSender, bool) {
	switch strings.TrimSpace(s) {
	case "A", "a":
		return SenderA, true
	case "B", "b":
		return SenderB, true
	default:
		return "", false
	}
}

// ConnectionStatus tracks transport liveness, independent of what the
// conversation is currently doing.
type ConnectionStatus string

const (
	ConnectionDisconnected ConnectionStatus = "disconnected"
	ConnectionConnecting   ConnectionStatus = "connecting"
	ConnectionConnected    ConnectionStatus = "connected"
	ConnectionError        ConnectionStatus = "error"
)

// ChatMessage represents one finalized utterance exchange, either received
// from the room service or synthesized by the demo player. Messages are
// append-only; ordering is insertion order.
type ChatMessage struct {
	ID               string        `json:"id"`
	Sender           MessageSender `json:"sender"`
	OriginalText     string        `json:"originalText"`
	TranslatedText   string        `json:"translatedText"`
	OriginalLanguage Language      `json:"originalLanguage"`
	Timestamp        time.Time     `json:"timestamp"`
	Confidence       float64       `json:"confidence"`
	AudioData        string        `json:"audioData,omitempty"` // base64, echoed by the server when present
}

// Validate checks the invariants a finalized message must hold.
func (m *ChatMessage) Validate() error {
	if m.ID == "" {
		return errors.New("message id is required")
	}
	if m.Sender != SenderA && m.Sender != SenderB {
		return errors.New("sender must be one of the two participant slots")
	}
	if m.Confidence < 0 || m.Confidence > 1 {
		return errors.New("confidence must be within [0,1]")
	}
	return nil
}

// Room describes a server-side session keyed by a short code, pairing two
// participants and two languages. The code is opaque and immutable once issued.
type Room struct {
	Code             string    `json:"code"`
	SourceLanguage   Language  `json:"sourceLanguage"`
	TargetLanguage   Language  `json:"targetLanguage"`
	CreatedAt        time.Time `json:"createdAt"`
	ParticipantCount int       `json:"participantCount"`
}
