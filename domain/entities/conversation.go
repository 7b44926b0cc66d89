package entities

import "sync"

// ConversationState is the single shared value describing what the client is
// currently doing for the open room. It is not per-message: one value exists
// per active conversation, starting at idle and returning to idle after each
// completed or failed utterance cycle.
type ConversationState string

const (
	StateIdle         ConversationState = "idle"
	StateListening    ConversationState = "listening"
	StateTranscribing ConversationState = "transcribing"
	StateTranslating  ConversationState = "translating"
	StateCompleted    ConversationState = "completed"
	StateError        ConversationState = "error"
)

// Conversation is an explicit state-machine object for one utterance exchange
// lifecycle. It is passed by reference to whoever needs to read or transition
// it; transitions are serialized by an internal mutex and reported through an
// optional change callback.
//
// Only one listening cycle may be in flight at a time: StartListening refuses
// unless the conversation is resting (idle or completed). The remaining
// transitions mirror server status pushes and are applied unconditionally,
// matching the way the room service drives a client.
type Conversation struct {
	mu       sync.Mutex
	state    ConversationState
	onChange func(ConversationState)
}

// NewConversation creates a conversation resting at idle.
func NewConversation() *Conversation {
	return &Conversation{state: StateIdle}
}

// OnChange registers a callback invoked after every state change. The callback
// runs outside the conversation lock; it must not be nil-checked by callers.
func (c *Conversation) OnChange(fn func(ConversationState)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// State returns the current state.
func (c *Conversation) State() ConversationState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// StartListening begins a new utterance cycle. It reports false, leaving the
// state untouched, unless the conversation is idle or completed; this guard is
// what prevents overlapping real or simulated cycles.
func (c *Conversation) StartListening() bool {
	c.mu.Lock()
	if c.state != StateIdle && c.state != StateCompleted {
		c.mu.Unlock()
		return false
	}
	c.state = StateListening
	fn := c.onChange
	c.mu.Unlock()

	if fn != nil {
		fn(StateListening)
	}
	return true
}

// BeginTranscribing marks that captured audio is being transcribed.
func (c *Conversation) BeginTranscribing() { c.set(StateTranscribing) }

// BeginTranslating marks that a transcription is being translated.
func (c *Conversation) BeginTranslating() { c.set(StateTranslating) }

// Complete marks the cycle finished; the owner schedules the settle back to
// idle.
func (c *Conversation) Complete() { c.set(StateCompleted) }

// Fail moves the conversation to error from any state. There is no automatic
// recovery; a new user-initiated action is required to leave error.
func (c *Conversation) Fail() { c.set(StateError) }

// Settle returns a completed conversation to idle. It is a no-op from any
// other state so a stale settle timer cannot clobber a newer cycle.
func (c *Conversation) Settle() bool {
	c.mu.Lock()
	if c.state != StateCompleted {
		c.mu.Unlock()
		return false
	}
	c.state = StateIdle
	fn := c.onChange
	c.mu.Unlock()

	if fn != nil {
		fn(StateIdle)
	}
	return true
}

// Reset forces the conversation back to idle immediately, regardless of state.
// Used when demo playback is cancelled mid-cycle.
func (c *Conversation) Reset() { c.set(StateIdle) }

func (c *Conversation) set(next ConversationState) {
	c.mu.Lock()
	if c.state == next {
		c.mu.Unlock()
		return
	}
	c.state = next
	fn := c.onChange
	c.mu.Unlock()

	if fn != nil {
		fn(next)
	}
}
