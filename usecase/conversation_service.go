package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/20407002036/LughaBridge/adapters/rooms"
	"github.com/20407002036/LughaBridge/domain/entities"
	"github.com/20407002036/LughaBridge/domain/repositories"
	"github.com/20407002036/LughaBridge/internal/transport"
)

const defaultSettleDelay = 800 * time.Millisecond

// ErrNotJoined is returned by send operations before a room is joined.
var ErrNotJoined = errors.New("not joined to a room")

// ConversationConfig controls conversation timing.
type ConversationConfig struct {
	// SettleDelay is how long a completed cycle rests before returning to
	// idle. Defaults to 800ms.
	SettleDelay time.Duration
}

// ConversationService orchestrates one room conversation: it joins a room,
// wires stream events to the conversation state machine, keeps the
// append-only message log, tracks in-flight voice messages, and drives
// microphone capture. All failures are converted to local state (the error
// conversation state plus a room error string), never propagated as panics.
type ConversationService struct {
	directory repositories.RoomDirectory
	streams   repositories.StreamFactory
	recorder  repositories.Recorder
	logger    *zap.Logger

	settleDelay  time.Duration
	conversation *entities.Conversation

	mu           sync.Mutex
	stream       repositories.RoomStream
	room         entities.Room
	langKnown    bool
	status       entities.ConnectionStatus
	roomErr      string
	messages     []entities.ChatMessage
	pending      map[string]struct{}
	participants int
	peerTyping   bool
	settleEpoch  int
	settleTimer  *time.Timer
	unsubs       []func()
	onMessage    func(entities.ChatMessage)
	onStatus     func(entities.ConnectionStatus)
}

// NewConversationService creates a service around the given collaborators.
func NewConversationService(
	directory repositories.RoomDirectory,
	streams repositories.StreamFactory,
	recorder repositories.Recorder,
	cfg ConversationConfig,
	logger *zap.Logger,
) *ConversationService {
	settleDelay := cfg.SettleDelay
	if settleDelay <= 0 {
		settleDelay = defaultSettleDelay
	}
	return &ConversationService{
		directory:    directory,
		streams:      streams,
		recorder:     recorder,
		logger:       logger,
		settleDelay:  settleDelay,
		conversation: entities.NewConversation(),
		status:       entities.ConnectionDisconnected,
		pending:      make(map[string]struct{}),
	}
}

// Conversation exposes the state machine for reads and change callbacks.
func (s *ConversationService) Conversation() *entities.Conversation {
	return s.conversation
}

// State returns the current conversation state.
func (s *ConversationService) State() entities.ConversationState {
	return s.conversation.State()
}

// OnMessage registers a callback invoked for every appended message.
func (s *ConversationService) OnMessage(fn func(entities.ChatMessage)) {
	s.mu.Lock()
	s.onMessage = fn
	s.mu.Unlock()
}

// OnStatusChange registers a callback invoked on connection status changes.
func (s *ConversationService) OnStatusChange(fn func(entities.ConnectionStatus)) {
	s.mu.Lock()
	s.onStatus = fn
	s.mu.Unlock()
}

// Join resolves the room code through the directory, then opens the live
// stream and subscribes to its events. A directory failure surfaces the
// "room unavailable" condition: the conversation moves to error and the
// message log falls back to the static demo transcript.
func (s *ConversationService) Join(ctx context.Context, code string) error {
	s.setStatus(entities.ConnectionConnecting)
	s.mu.Lock()
	s.roomErr = ""
	s.mu.Unlock()

	joined, err := s.directory.JoinRoom(ctx, code)
	if err != nil {
		s.logger.Error("Failed to join room", zap.String("roomCode", code), zap.Error(err))
		s.mu.Lock()
		s.roomErr = "room unavailable"
		s.messages = DemoTranscript()
		s.mu.Unlock()
		s.setStatus(entities.ConnectionError)
		s.conversation.Fail()
		return fmt.Errorf("failed to join room %s: %w", code, err)
	}

	stream := s.streams(joined.Room.Code)

	s.mu.Lock()
	s.room = joined.Room
	s.langKnown = true
	s.messages = append([]entities.ChatMessage(nil), joined.Messages...)
	s.pending = make(map[string]struct{})
	s.stream = stream
	s.mu.Unlock()

	s.subscribe(stream)

	if err := stream.Connect(ctx); err != nil {
		s.logger.Error("Failed to open room stream", zap.String("roomCode", code), zap.Error(err))
		s.mu.Lock()
		s.roomErr = "failed to connect to room"
		s.mu.Unlock()
		s.setStatus(entities.ConnectionError)
		s.conversation.Fail()
		return err
	}
	return nil
}

// Leave tears the session down: unsubscribes, disconnects the stream, stops
// any in-flight recording so the microphone is released, and cancels the
// pending settle timer. Safe to call without a prior Join.
func (s *ConversationService) Leave() {
	s.mu.Lock()
	unsubs := s.unsubs
	s.unsubs = nil
	stream := s.stream
	s.stream = nil
	s.langKnown = false
	s.settleEpoch++
	if s.settleTimer != nil {
		s.settleTimer.Stop()
		s.settleTimer = nil
	}
	s.mu.Unlock()

	for _, off := range unsubs {
		off()
	}
	if s.recorder.Recording() {
		s.recorder.Stop()
	}
	if stream != nil {
		stream.Disconnect()
	}
	s.setStatus(entities.ConnectionDisconnected)
}

// PressMic implements the push-to-talk affordance. The first press begins a
// listening cycle, refused unless the conversation is resting; the second
// press stops capture, hands the audio to the stream, and tracks the message
// id as pending. Capture is never handed off while the room languages are
// unknown.
func (s *ConversationService) PressMic(ctx context.Context) {
	if s.recorder.Recording() {
		s.finishRecording()
		return
	}

	if !s.conversation.StartListening() {
		return
	}

	if err := s.recorder.Start(ctx); err != nil {
		s.logger.Error("Recording failed to start", zap.Error(err))
		s.mu.Lock()
		s.roomErr = err.Error()
		s.mu.Unlock()
		s.conversation.Fail()
	}
}

func (s *ConversationService) finishRecording() {
	audio, err := s.recorder.Stop()
	if err != nil {
		s.logger.Error("Recording failed", zap.Error(err))
		s.mu.Lock()
		s.roomErr = err.Error()
		s.mu.Unlock()
		s.conversation.Fail()
		return
	}

	s.conversation.BeginTranscribing()

	s.mu.Lock()
	stream := s.stream
	langKnown := s.langKnown
	language := s.room.SourceLanguage
	s.mu.Unlock()

	if stream == nil || !langKnown {
		s.logger.Warn("Room languages unknown, voice message not sent")
		return
	}

	messageID, err := stream.SendVoiceMessage(audio, language)
	if err != nil {
		// Best effort: the frame is dropped, the server will never confirm it.
		s.logger.Error("Failed to send voice message", zap.Error(err))
		return
	}

	s.mu.Lock()
	s.pending[messageID] = struct{}{}
	s.mu.Unlock()
}

// SendText transmits a typed utterance in the room's source language.
func (s *ConversationService) SendText(text string) error {
	s.mu.Lock()
	stream := s.stream
	langKnown := s.langKnown
	language := s.room.SourceLanguage
	s.mu.Unlock()

	if stream == nil || !langKnown {
		return ErrNotJoined
	}
	if _, err := stream.SendTextMessage(text, language); err != nil {
		return err
	}
	s.conversation.BeginTranslating()
	return nil
}

// SetTyping reports the local typing indicator; dropped when not joined.
func (s *ConversationService) SetTyping(isTyping bool) {
	s.mu.Lock()
	stream := s.stream
	s.mu.Unlock()
	if stream != nil {
		stream.SendTyping(isTyping)
	}
}

// Ping sends an application-level keepalive; dropped when not joined.
func (s *ConversationService) Ping() {
	s.mu.Lock()
	stream := s.stream
	s.mu.Unlock()
	if stream != nil {
		stream.SendPing()
	}
}

// Messages returns a copy of the message log in insertion order.
func (s *ConversationService) Messages() []entities.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entities.ChatMessage(nil), s.messages...)
}

// ConnectionStatus returns transport liveness.
func (s *ConversationService) ConnectionStatus() entities.ConnectionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// RoomError returns the user-facing error string, empty when healthy.
func (s *ConversationService) RoomError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomErr
}

// Room returns the joined room; ok is false before a successful join.
func (s *ConversationService) Room() (entities.Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room, s.langKnown
}

// Participants returns the last known participant count.
func (s *ConversationService) Participants() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.participants
}

// PeerTyping reports whether the other participant is typing.
func (s *ConversationService) PeerTyping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peerTyping
}

// PendingCount returns how many sent voice messages await confirmation.
func (s *ConversationService) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *ConversationService) subscribe(stream repositories.RoomStream) {
	on := func(event string, fn repositories.EventHandler) {
		off := stream.On(event, fn)
		s.mu.Lock()
		s.unsubs = append(s.unsubs, off)
		s.mu.Unlock()
	}

	on(transport.EventOpen, func(map[string]interface{}) {
		s.setStatus(entities.ConnectionConnected)
	})
	on(transport.EventClose, func(map[string]interface{}) {
		s.setStatus(entities.ConnectionDisconnected)
	})
	on(transport.EventError, func(frame map[string]interface{}) {
		s.handleErrorFrame(frame)
	})
	on(rooms.FrameError, func(frame map[string]interface{}) {
		s.handleErrorFrame(frame)
	})

	on(rooms.FrameConnectionEstablished, func(frame map[string]interface{}) {
		s.mu.Lock()
		if lang, ok := entities.ParseLanguage(stringField(frame, "source_lang", "source_language")); ok {
			s.room.SourceLanguage = lang
		}
		if lang, ok := entities.ParseLanguage(stringField(frame, "target_lang", "target_language")); ok {
			s.room.TargetLanguage = lang
		}
		s.langKnown = true
		s.mu.Unlock()
	})

	on(rooms.FrameMessageHistory, func(frame map[string]interface{}) {
		raw, ok := frame["messages"].([]interface{})
		if !ok {
			return
		}
		normalized := rooms.NormalizeMessages(raw)
		s.mu.Lock()
		s.messages = normalized
		s.mu.Unlock()
	})

	on(rooms.FrameChatMessage, func(frame map[string]interface{}) {
		payload := frame
		if nested, ok := frame["message"].(map[string]interface{}); ok {
			payload = nested
		}
		s.appendMessage(rooms.NormalizeMessage(payload))
	})

	on(rooms.FrameTranslationComplete, func(frame map[string]interface{}) {
		s.appendMessage(rooms.NormalizeMessage(frame))

		if id := stringField(frame, "id", "message_id"); id != "" {
			s.mu.Lock()
			delete(s.pending, id)
			s.mu.Unlock()
		}

		s.conversation.Complete()
		s.scheduleSettle()
	})

	on(rooms.FrameProcessing, func(map[string]interface{}) {
		s.conversation.BeginTranscribing()
	})

	on(rooms.FrameTranslationProgress, func(frame map[string]interface{}) {
		switch stringField(frame, "status") {
		case "transcribing":
			s.conversation.BeginTranscribing()
		case "translating", "synthesizing":
			s.conversation.BeginTranslating()
		}
	})

	on(rooms.FrameParticipantJoined, func(frame map[string]interface{}) {
		s.mu.Lock()
		if count, ok := frame["participant_count"].(float64); ok {
			s.participants = int(count)
		} else {
			s.participants++
		}
		s.mu.Unlock()
	})

	on(rooms.FrameParticipantLeft, func(frame map[string]interface{}) {
		s.mu.Lock()
		if count, ok := frame["participant_count"].(float64); ok {
			s.participants = int(count)
		} else if s.participants > 0 {
			s.participants--
		}
		s.mu.Unlock()
	})

	on(rooms.FrameTyping, func(frame map[string]interface{}) {
		s.mu.Lock()
		s.peerTyping = frame["is_typing"] == true
		s.mu.Unlock()
	})
}

func (s *ConversationService) handleErrorFrame(frame map[string]interface{}) {
	message := stringField(frame, "message")
	if message == "" {
		message = "room connection error"
	}
	s.logger.Error("Room error", zap.String("message", message))
	s.mu.Lock()
	s.roomErr = message
	s.mu.Unlock()
	s.conversation.Fail()
}

func (s *ConversationService) appendMessage(msg entities.ChatMessage) {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	fn := s.onMessage
	s.mu.Unlock()
	if fn != nil {
		fn(msg)
	}
}

// scheduleSettle returns the conversation to idle once the completed state
// has rested for the settle delay. The epoch counter invalidates stale timers
// when a newer cycle or a teardown supersedes them.
func (s *ConversationService) scheduleSettle() {
	s.mu.Lock()
	s.settleEpoch++
	epoch := s.settleEpoch
	if s.settleTimer != nil {
		s.settleTimer.Stop()
	}
	s.settleTimer = time.AfterFunc(s.settleDelay, func() {
		s.mu.Lock()
		stale := epoch != s.settleEpoch
		s.mu.Unlock()
		if !stale {
			s.conversation.Settle()
		}
	})
	s.mu.Unlock()
}

func (s *ConversationService) setStatus(status entities.ConnectionStatus) {
	s.mu.Lock()
	if s.status == status {
		s.mu.Unlock()
		return
	}
	s.status = status
	fn := s.onStatus
	s.mu.Unlock()
	if fn != nil {
		fn(status)
	}
}

func stringField(frame map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if s, ok := frame[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
