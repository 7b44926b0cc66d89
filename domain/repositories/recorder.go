package repositories

import "context"

// Recorder abstracts exclusive microphone capture for one utterance. The
// device is held from Start until Stop and must be released on every exit
// path, including failures and teardown.
type Recorder interface {
	// Start acquires the capture device and begins recording.
	Start(ctx context.Context) error
	// Stop ends the recording, releases the device, and returns the captured
	// audio base64-encoded.
	Stop() (string, error)
	// Recording reports whether a capture is in progress.
	Recording() bool
}
