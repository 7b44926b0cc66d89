package transport

import "sync"

// Handler receives the decoded payload of one event occurrence.
type Handler func(payload map[string]interface{})

// Subscription identifies a registered handler so it can be removed later.
type Subscription struct {
	event string
	id    uint64
}

// Dispatcher is a named-channel publish/subscribe registry. Any number of
// handlers may be registered per channel; an emission invokes every handler
// registered at that moment exactly once. Invocation order among handlers is
// unspecified. Safe for concurrent use.
type Dispatcher struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[string]map[uint64]Handler
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]map[uint64]Handler)}
}

// On registers a handler for the named event channel.
func (d *Dispatcher) On(event string, fn Handler) Subscription {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	if d.handlers[event] == nil {
		d.handlers[event] = make(map[uint64]Handler)
	}
	d.handlers[event][d.nextID] = fn
	return Subscription{event: event, id: d.nextID}
}

// Off removes a previously registered handler. Removing a subscription twice
// is harmless.
func (d *Dispatcher) Off(sub Subscription) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if hs, ok := d.handlers[sub.event]; ok {
		delete(hs, sub.id)
		if len(hs) == 0 {
			delete(d.handlers, sub.event)
		}
	}
}

// Emit delivers payload to every handler registered on the channel. Handlers
// run synchronously on the caller's goroutine, outside the registry lock, so
// a handler may register or remove subscriptions without deadlocking.
func (d *Dispatcher) Emit(event string, payload map[string]interface{}) {
	d.mu.RLock()
	snapshot := make([]Handler, 0, len(d.handlers[event]))
	for _, fn := range d.handlers[event] {
		snapshot = append(snapshot, fn)
	}
	d.mu.RUnlock()

	for _, fn := range snapshot {
		fn(payload)
	}
}
