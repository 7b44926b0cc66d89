package rooms

import (
	"fmt"
	"time"

	"github.com/20407002036/LughaBridge/domain/entities"
)

// Inbound frame types pushed by the room service.
const (
	FrameConnectionEstablished = "connection_established"
	FrameMessageHistory        = "message_history"
	FrameChatMessage           = "chat_message"
	FrameTranslationComplete   = "translation_complete"
	FrameProcessing            = "processing"
	FrameTranslationProgress   = "translation_progress"
	FrameParticipantJoined     = "participant_joined"
	FrameParticipantLeft       = "participant_left"
	FrameTyping                = "typing"
	FrameError                 = "error"
	FramePong                  = "pong"
)

const defaultConfidence = 0.9

// NormalizeMessage converts a heterogeneous server payload into the canonical
// ChatMessage shape. The service emits both snake_case and camelCase field
// names depending on the endpoint, so each field is resolved through a fixed
// key precedence (snake_case first, matching what the service sends on the
// socket). The conversion is pure and total: a payload of {} still yields a
// message with every field defaulted (sender A, Kikuyu, confidence 0.9,
// timestamp now). Confidence is clamped to [0,1]; unrecognized sender or
// language values fall back to the defaults rather than failing.
func NormalizeMessage(raw map[string]interface{}) entities.ChatMessage {
	msg := entities.ChatMessage{
		ID:               firstString(raw, "id", "message_id"),
		OriginalText:     firstString(raw, "original_text", "originalText"),
		TranslatedText:   firstString(raw, "translated_text", "translatedText"),
		AudioData:        firstString(raw, "audio_data", "audioData"),
		Sender:           entities.SenderA,
		OriginalLanguage: entities.LanguageKikuyu,
		Confidence:       defaultConfidence,
		Timestamp:        time.Now(),
	}

	if msg.ID == "" {
		msg.ID = fmt.Sprintf("msg-%d", time.Now().UnixMilli())
	}
	if sender, ok := entities.ParseSender(firstString(raw, "sender")); ok {
		msg.Sender = sender
	}
	if lang, ok := entities.ParseLanguage(firstString(raw, "original_language", "originalLanguage")); ok {
		msg.OriginalLanguage = lang
	}
	if c, ok := floatValue(raw, "confidence"); ok {
		msg.Confidence = clamp01(c)
	}
	if ts, ok := timeValue(raw, "timestamp"); ok {
		msg.Timestamp = ts
	}
	return msg
}

// NormalizeMessages converts a message_history payload or REST history list.
// Non-object entries are skipped.
func NormalizeMessages(raw []interface{}) []entities.ChatMessage {
	messages := make([]entities.ChatMessage, 0, len(raw))
	for _, entry := range raw {
		m, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		messages = append(messages, NormalizeMessage(m))
	}
	return messages
}

func firstString(raw map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if s, ok := raw[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func floatValue(raw map[string]interface{}, key string) (float64, bool) {
	switch v := raw[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

func timeValue(raw map[string]interface{}, key string) (time.Time, bool) {
	switch v := raw[key].(type) {
	case string:
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			return ts, true
		}
	case float64:
		// Unix seconds, the shape some history endpoints use.
		if v > 0 {
			return time.Unix(int64(v), 0), true
		}
	}
	return time.Time{}, false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
