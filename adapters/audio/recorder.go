package audio

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/20407002036/LughaBridge/domain/repositories"
)

// ErrNotRecording is returned by Stop when no capture is in progress.
var ErrNotRecording = errors.New("no recording in progress")

// ErrAlreadyRecording is returned by Start while a capture is in progress; the
// microphone is held exclusively for one utterance at a time.
var ErrAlreadyRecording = errors.New("recording already in progress")

// Config describes how the microphone should be captured.
type Config struct {
	Command     string // capture binary, default "ffmpeg"
	InputFormat string // default "pulse"
	InputDevice string // default "default"
	SampleRate  int    // default 16000
	Channels    int    // default 1
}

// FFmpegRecorder captures one utterance from the microphone by running an
// ffmpeg subprocess writing WAV to stdout. The device is acquired on Start
// and released on every exit path: Stop, start failure, or context cancel.
// It implements repositories.Recorder.
type FFmpegRecorder struct {
	cfg    Config
	logger *zap.Logger

	mu        sync.Mutex
	process   *os.Process
	waitErr   <-chan error
	copyDone  chan struct{}
	buf       bytes.Buffer
	stderr    bytes.Buffer
	recording bool
}

var _ repositories.Recorder = (*FFmpegRecorder)(nil)

// NewFFmpegRecorder creates a recorder, applying defaults for empty fields.
func NewFFmpegRecorder(cfg Config, logger *zap.Logger) *FFmpegRecorder {
	if cfg.Command == "" {
		cfg.Command = "ffmpeg"
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = "pulse"
	}
	if cfg.InputDevice == "" {
		cfg.InputDevice = "default"
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	return &FFmpegRecorder{cfg: cfg, logger: logger}
}

// Start acquires the microphone and begins capturing.
func (r *FFmpegRecorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording {
		return ErrAlreadyRecording
	}

	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", r.cfg.InputFormat,
		"-i", r.cfg.InputDevice,
		"-ac", strconv.Itoa(r.cfg.Channels),
		"-ar", strconv.Itoa(r.cfg.SampleRate),
		"-f", "wav",
		"-",
	}

	cmd := exec.CommandContext(ctx, r.cfg.Command, args...)
	r.stderr.Reset()
	cmd.Stderr = &r.stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create capture pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return r.humanizeStartError(err)
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	// A capture tool that dies immediately usually means no device or no
	// permission; surface that as a start failure instead of an empty Stop.
	select {
	case <-waitErr:
		return r.humanizeStartError(errors.New(strings.TrimSpace(r.stderr.String())))
	case <-time.After(250 * time.Millisecond):
	}

	r.buf.Reset()
	copyDone := make(chan struct{})
	go func() {
		io.Copy(&captureBuffer{r: r}, stdout)
		close(copyDone)
	}()

	r.process = cmd.Process
	r.waitErr = waitErr
	r.copyDone = copyDone
	r.recording = true

	r.logger.Info("Recording started",
		zap.String("inputDevice", r.cfg.InputDevice),
		zap.Int("sampleRate", r.cfg.SampleRate))
	return nil
}

// Stop ends the capture, releases the microphone, and returns the recorded
// audio base64-encoded.
func (r *FFmpegRecorder) Stop() (string, error) {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return "", ErrNotRecording
	}
	r.recording = false
	process := r.process
	waitErr := r.waitErr
	copyDone := r.copyDone
	r.process = nil
	r.mu.Unlock()

	if process != nil {
		process.Signal(os.Interrupt)
	}
	select {
	case <-waitErr:
	case <-time.After(1200 * time.Millisecond):
		if process != nil {
			process.Kill()
		}
		<-waitErr
	}
	<-copyDone

	r.mu.Lock()
	data := make([]byte, r.buf.Len())
	copy(data, r.buf.Bytes())
	r.mu.Unlock()

	if len(data) == 0 {
		return "", errors.New("no audio captured")
	}

	r.logger.Info("Recording stopped", zap.Int("capturedBytes", len(data)))
	return base64.StdEncoding.EncodeToString(data), nil
}

// Recording reports whether a capture is in progress.
func (r *FFmpegRecorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// humanizeStartError maps capture failures to the user-facing messages the
// conversation surface shows.
func (r *FFmpegRecorder) humanizeStartError(err error) error {
	detail := strings.ToLower(err.Error() + " " + r.stderr.String())
	switch {
	case errors.Is(err, exec.ErrNotFound):
		return fmt.Errorf("no recording tool found; install %s and try again", r.cfg.Command)
	case strings.Contains(detail, "permission denied"), strings.Contains(detail, "access denied"):
		return errors.New("microphone access denied; allow microphone access and try again")
	case strings.Contains(detail, "no such"), strings.Contains(detail, "not found"),
		strings.Contains(detail, "cannot open"):
		return errors.New("no microphone found; connect a microphone and try again")
	default:
		return fmt.Errorf("failed to access microphone: %w", err)
	}
}

// captureBuffer funnels subprocess output into the recorder buffer under the
// recorder lock so Stop never races the copy goroutine.
type captureBuffer struct {
	r *FFmpegRecorder
}

func (b *captureBuffer) Write(p []byte) (int, error) {
	b.r.mu.Lock()
	defer b.r.mu.Unlock()
	return b.r.buf.Write(p)
}
