package usecase

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/20407002036/LughaBridge/domain/entities"
)

// Timings holds the fixed delays a demo cycle walks through. Each value is
// how long the conversation rests in the corresponding state before advancing.
type Timings struct {
	LeadIn       time.Duration // pause before a cycle starts in auto mode
	Listening    time.Duration
	Transcribing time.Duration
	Translating  time.Duration
	Settle       time.Duration // completed before returning to idle
	AutoSettle   time.Duration // idle hold between auto-played cycles
}

// DefaultTimings returns the production demo cadence.
func DefaultTimings() Timings {
	return Timings{
		LeadIn:       500 * time.Millisecond,
		Listening:    1200 * time.Millisecond,
		Transcribing: 700 * time.Millisecond,
		Translating:  900 * time.Millisecond,
		Settle:       800 * time.Millisecond,
		AutoSettle:   1000 * time.Millisecond,
	}
}

// DemoPlayer replays the scripted conversation against a real state machine,
// without any room service. Each triggered cycle walks the full state cycle
// on a fixed cadence and appends the next scripted exchange to the sink.
// Stop cancels the in-flight cycle immediately and forces the conversation
// back to idle; stale timers from a cancelled run are fenced by a generation
// counter and never touch the state machine again.
type DemoPlayer struct {
	script  []DemoExchange
	timings Timings
	conv    *entities.Conversation
	sink    func(entities.ChatMessage)
	logger  *zap.Logger

	mu      sync.Mutex
	index   int
	gen     int
	running bool
}

// NewDemoPlayer creates a player over the standard script.
func NewDemoPlayer(conv *entities.Conversation, timings Timings, sink func(entities.ChatMessage), logger *zap.Logger) *DemoPlayer {
	return &DemoPlayer{
		script:  DemoScript(),
		timings: timings,
		conv:    conv,
		sink:    sink,
		logger:  logger,
	}
}

// PlayOnce runs a single scripted cycle. It is refused, returning false,
// while a cycle is already in flight or the conversation is not resting.
func (p *DemoPlayer) PlayOnce() bool {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return false
	}
	if !p.conv.StartListening() {
		p.mu.Unlock()
		return false
	}
	p.running = true
	gen := p.gen
	p.mu.Unlock()

	go func() {
		p.runCycle(gen)
		p.mu.Lock()
		if gen == p.gen {
			p.running = false
		}
		p.mu.Unlock()
	}()
	return true
}

// AutoPlay replays the whole script once, one cycle per exchange, with the
// lead-in pause before each cycle and the auto-settle hold after. It blocks
// until the run finishes or Stop cancels it.
func (p *DemoPlayer) AutoPlay() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	gen := p.gen
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		if gen == p.gen {
			p.running = false
		}
		p.mu.Unlock()
	}()

	for range p.script {
		if !p.sleep(gen, p.timings.LeadIn) {
			return
		}
		if !p.conv.StartListening() {
			p.logger.Warn("Demo cycle refused, conversation not resting")
			return
		}
		if !p.runCycle(gen) {
			return
		}
		if !p.sleep(gen, p.timings.AutoSettle) {
			return
		}
	}
}

// Stop cancels the in-flight cycle and forces the conversation back to idle.
// The next scripted exchange is preserved; a later trigger resumes from it.
func (p *DemoPlayer) Stop() {
	p.mu.Lock()
	p.gen++
	p.running = false
	p.mu.Unlock()
	p.conv.Reset()
}

// Running reports whether a cycle or auto-play run is in flight.
func (p *DemoPlayer) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// runCycle assumes the conversation is already listening. It reports false
// when the run was cancelled partway.
func (p *DemoPlayer) runCycle(gen int) bool {
	if !p.sleep(gen, p.timings.Listening) {
		return false
	}
	p.conv.BeginTranscribing()

	if !p.sleep(gen, p.timings.Transcribing) {
		return false
	}
	p.conv.BeginTranslating()

	if !p.sleep(gen, p.timings.Translating) {
		return false
	}

	p.mu.Lock()
	exchange := p.script[p.index]
	p.index = (p.index + 1) % len(p.script)
	p.mu.Unlock()

	p.sink(exchange.Message())
	p.conv.Complete()

	if !p.sleep(gen, p.timings.Settle) {
		return false
	}
	p.conv.Settle()
	return true
}

// sleep waits for d, then reports whether this run is still current.
func (p *DemoPlayer) sleep(gen int, d time.Duration) bool {
	if d > 0 {
		time.Sleep(d)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return gen == p.gen
}
