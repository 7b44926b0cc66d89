package audio

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestNewFFmpegRecorderDefaults(t *testing.T) {
	r := NewFFmpegRecorder(Config{}, zap.NewNop())
	if r.cfg.Command != "ffmpeg" {
		t.Errorf("Unexpected command: %q", r.cfg.Command)
	}
	if r.cfg.InputFormat != "pulse" || r.cfg.InputDevice != "default" {
		t.Errorf("Unexpected input defaults: %q %q", r.cfg.InputFormat, r.cfg.InputDevice)
	}
	if r.cfg.SampleRate != 16000 || r.cfg.Channels != 1 {
		t.Errorf("Unexpected audio defaults: %d %d", r.cfg.SampleRate, r.cfg.Channels)
	}
}

func TestStopWithoutStart(t *testing.T) {
	r := NewFFmpegRecorder(Config{}, zap.NewNop())
	if _, err := r.Stop(); !errors.Is(err, ErrNotRecording) {
		t.Fatalf("Expected ErrNotRecording, got %v", err)
	}
}

func TestStartWithMissingRecorderTool(t *testing.T) {
	r := NewFFmpegRecorder(Config{Command: "definitely-not-a-recorder-binary"}, zap.NewNop())
	err := r.Start(context.Background())
	if err == nil {
		r.Stop()
		t.Fatal("Expected start failure for a missing capture binary")
	}
	if !strings.Contains(err.Error(), "no recording tool found") {
		t.Errorf("Expected a human-readable message, got: %v", err)
	}
	if r.Recording() {
		t.Error("Recorder must not report recording after a failed start")
	}
}

func TestHumanizeStartError(t *testing.T) {
	r := NewFFmpegRecorder(Config{}, zap.NewNop())

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"missing binary", exec.ErrNotFound, "no recording tool found"},
		{"denied", errors.New("device open: Permission denied"), "microphone access denied"},
		{"no device", errors.New("default: No such audio source"), "no microphone found"},
		{"other", errors.New("boom"), "failed to access microphone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.humanizeStartError(tt.err)
			if !strings.Contains(got.Error(), tt.want) {
				t.Errorf("humanizeStartError(%v) = %q, want substring %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestMockRecorderLifecycle(t *testing.T) {
	m := NewMockRecorder()

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !m.Recording() {
		t.Error("Expected recording in progress")
	}
	if err := m.Start(context.Background()); !errors.Is(err, ErrAlreadyRecording) {
		t.Errorf("Expected ErrAlreadyRecording for overlapping start, got %v", err)
	}

	audio, err := m.Stop()
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if audio == "" {
		t.Error("Expected canned audio from Stop")
	}
	if m.Recording() {
		t.Error("Device must be released after Stop")
	}
	if m.Starts() != 1 || m.Stops() != 1 {
		t.Errorf("Unexpected counters: starts=%d stops=%d", m.Starts(), m.Stops())
	}
}
