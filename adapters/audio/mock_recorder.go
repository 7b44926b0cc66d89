package audio

import (
	"context"
	"sync"

	"github.com/20407002036/LughaBridge/domain/repositories"
)

// MockRecorder is an in-memory Recorder for tests and demo mode. Stop returns
// the canned Audio payload; StartErr and StopErr inject failures.
type MockRecorder struct {
	Audio    string
	StartErr error
	StopErr  error

	mu        sync.Mutex
	recording bool
	starts    int
	stops     int
}

var _ repositories.Recorder = (*MockRecorder)(nil)

// NewMockRecorder creates a mock recorder that captures a short canned blob.
func NewMockRecorder() *MockRecorder {
	return &MockRecorder{Audio: "UklGRiQAAABXQVZF"}
}

func (m *MockRecorder) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.StartErr != nil {
		return m.StartErr
	}
	if m.recording {
		return ErrAlreadyRecording
	}
	m.recording = true
	m.starts++
	return nil
}

func (m *MockRecorder) Stop() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.recording {
		return "", ErrNotRecording
	}
	m.recording = false
	m.stops++
	if m.StopErr != nil {
		return "", m.StopErr
	}
	return m.Audio, nil
}

func (m *MockRecorder) Recording() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recording
}

// Starts reports how many captures were begun.
func (m *MockRecorder) Starts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts
}

// Stops reports how many captures were ended.
func (m *MockRecorder) Stops() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stops
}
