// Package audio is the capture worker: it opens a microphone via malgo,
// streams PCM16 frames to the caller while a clip is being recorded, tracks
// a lock-free audio level meter for UI visualization, and finally encodes
// the accumulated samples as a WAV clip. Adapted from the teacher's
// internal/audio package, which used the same malgo device lifecycle for a
// always-on capture loop; here the worker is started and stopped once per
// recording rather than once per process.
package audio

import (
	"context"
	"time"
)

// Config holds the capture device parameters. SampleRate/Channels describe
// what the device is opened with; the realtime transcription client does
// its own resampling to the wire format it needs.
type Config struct {
	SampleRate   uint32
	Channels     uint32
	BufferFrames uint32
	DeviceID     string
}

// DefaultConfig opens the default device at a rate malgo can reliably
// negotiate on most hardware; 16kHz mono matches what most STT providers
// want directly, avoiding a resample step for batch transcription.
func DefaultConfig() Config {
	return Config{
		SampleRate:   16000,
		Channels:     1,
		BufferFrames: 480,
		DeviceID:     "",
	}
}

// Frame is one chunk of captured PCM16 audio delivered on the worker's
// Frames channel while a clip is being recorded.
type Frame struct {
	PCM16     []int16
	Timestamp time.Time
}

// StartReadyTimeout bounds how long Start waits for the device to report
// its first frame before giving up; a device that never starts producing
// frames should fail fast rather than hang the pipeline's RecordingStart
// stage indefinitely.
const StartReadyTimeout = 5 * time.Second

// LevelEventInterval is the minimum spacing between level samples the
// caller should poll at; the meter itself updates on every frame, but UI
// consumers do not need updates faster than this.
const LevelEventInterval = 50 * time.Millisecond

// Worker is the audio capture device contract.
type Worker interface {
	// Start opens the device and begins delivering frames. It blocks until
	// either the device reports readiness or StartReadyTimeout elapses.
	Start(ctx context.Context) error
	// Stop closes the device and returns the accumulated clip as a WAV
	// container. Calling Stop without ever having received a frame returns
	// a valid, silent zero-length clip.
	Stop() ([]byte, error)
	// Abort closes the device without encoding a clip, for use when a
	// recording is being discarded rather than finalized.
	Abort()
	Frames() <-chan Frame
	Errors() <-chan error
	// Level returns the current lock-free RMS level estimate in [0, 1].
	Level() float64
	IsRunning() bool
}

// NewWorker creates a new audio capture Worker with the given configuration.
func NewWorker(config Config) (Worker, error) {
	return newMalgoWorker(config)
}
