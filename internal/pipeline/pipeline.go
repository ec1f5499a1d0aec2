// Package pipeline is the voice pipeline state machine: it sequences
// recording start/stop, transcription, history persistence, and text
// insertion behind a single Delegate capability set, so the orchestration
// logic has no concrete dependency on the GUI, OS, or network collaborators
// that actually do the work.
package pipeline

import (
	"context"
	"time"

	"github.com/emmett/dictate/internal/applog"
)

// DefaultErrorResetDelay is how long the pipeline holds Status Error before
// returning to Idle, giving any delegate-owned UI time to display it.
const DefaultErrorResetDelay = 1500 * time.Millisecond

// ErrorStage identifies which pipeline phase produced a PipelineError.
type ErrorStage int

const (
	RecordingStart ErrorStage = iota
	RecordingStop
	RecordingRuntime
	Transcription
	TextInsertion
)

func (s ErrorStage) String() string {
	switch s {
	case RecordingStart:
		return "recording_start"
	case RecordingStop:
		return "recording_stop"
	case RecordingRuntime:
		return "recording_runtime"
	case Transcription:
		return "transcription"
	case TextInsertion:
		return "text_insertion"
	default:
		return "unknown"
	}
}

// Error is a pipeline failure tagged with the stage that produced it.
type Error struct {
	Stage   ErrorStage
	Message string
}

func (e *Error) Error() string { return e.Stage.String() + ": " + e.Message }

// Transcript is a completed transcription result ready for history and
// insertion.
type Transcript struct {
	Text       string
	DurationS  *float64
	Language   *string
	Provider   string
}

// Delegate is the capability set the pipeline orchestrates against. Each
// method is a single external collaborator's job (OS recording, a
// transcription provider, text insertion, history); on_recording_started
// and on_recording_stopped are optional hooks callers can use to update a
// hotkeyengine.Engine's acknowledgement state, matching the original's
// default-no-op trait methods.
type Delegate interface {
	SetStatus(status Status)
	EmitTranscript(text string)
	EmitError(err *Error)
	// EmitLevel reports the current audio level (0..1) while a recording is
	// live, sampled roughly every audio.LevelEventInterval.
	EmitLevel(level float64)
	OnRecordingStarted(success bool)
	OnRecordingStopped(success bool)
	StartRecording() error
	StopRecording() ([]byte, error)
	Transcribe(ctx context.Context, wavBytes []byte) (Transcript, error)
	InsertText(text string) error
	SaveHistoryEntry(transcript Transcript) error
}

// NoopDelegateHooks can be embedded by a Delegate implementation that has no
// use for the optional acknowledgement callbacks or level metering.
type NoopDelegateHooks struct{}

func (NoopDelegateHooks) OnRecordingStarted(bool) {}
func (NoopDelegateHooks) OnRecordingStopped(bool) {}
func (NoopDelegateHooks) EmitLevel(float64)       {}

// Pipeline sequences one hotkey-triggered recording cycle at a time. It
// holds no session-lifetime state of its own; see Runtime for session
// invalidation and the execution lock that serializes concurrent cycles.
type Pipeline struct {
	errorResetDelay time.Duration
	log             *applog.Logger
}

// New returns a Pipeline with the default error reset delay.
func New(log *applog.Logger) *Pipeline {
	return &Pipeline{errorResetDelay: DefaultErrorResetDelay, log: log}
}

// WithErrorResetDelay overrides the default error reset delay, for tests
// that do not want to wait out the real interval.
func (p *Pipeline) WithErrorResetDelay(d time.Duration) *Pipeline {
	p.errorResetDelay = d
	return p
}

// HandleHotkeyStarted begins recording. On success the delegate is moved to
// Listening; on failure it is sent through the RecordingStart error path and
// OnRecordingStarted(false) still fires so the caller's hotkeyengine
// acknowledges the failed Started transition.
func (p *Pipeline) HandleHotkeyStarted(ctx context.Context, d Delegate) {
	p.log.Info("pipeline handling hotkey start")

	if err := d.StartRecording(); err != nil {
		p.log.Error("recording start failed from hotkey", "error", err)
		d.OnRecordingStarted(false)
		p.handleError(ctx, d, RecordingStart, err.Error())
		return
	}

	p.log.Info("recording started successfully from hotkey")
	d.OnRecordingStarted(true)
	d.SetStatus(Listening)
}

// HandleHotkeyStopped stops recording, transcribes the captured audio,
// emits the transcript, persists it to history (a failure there is logged
// but does not fail the pipeline), then inserts the text. Each stage's
// failure is routed through the stage-tagged error path and aborts the rest
// of the cycle, except history persistence, which is best-effort.
func (p *Pipeline) HandleHotkeyStopped(ctx context.Context, d Delegate) {
	p.log.Info("pipeline handling hotkey stop")
	d.SetStatus(Transcribing)

	wavBytes, err := d.StopRecording()
	if err != nil {
		p.log.Error("recording stop failed", "error", err)
		d.OnRecordingStopped(false)
		p.handleError(ctx, d, RecordingStop, err.Error())
		return
	}
	p.log.Info("recording stopped successfully", "audio_bytes", len(wavBytes))
	d.OnRecordingStopped(true)

	transcript, err := d.Transcribe(ctx, wavBytes)
	if err != nil {
		p.log.Error("pipeline transcription failed", "error", err)
		p.handleError(ctx, d, Transcription, err.Error())
		return
	}
	p.log.Info("transcription completed in pipeline", "transcript_chars", len(transcript.Text), "provider", transcript.Provider)

	d.EmitTranscript(transcript.Text)

	if err := d.SaveHistoryEntry(transcript); err != nil {
		p.log.Warn("failed to persist transcript history entry", "error", err)
	}

	if err := d.InsertText(transcript.Text); err != nil {
		p.log.Error("pipeline text insertion failed", "error", err)
		p.handleError(ctx, d, TextInsertion, err.Error())
		return
	}
	p.log.Info("pipeline text insertion succeeded")

	p.log.Debug("pipeline returning to idle status")
	d.SetStatus(Idle)
}

// HandleStageError lets a collaborator report a failure that happened
// outside the hotkey start/stop call (e.g. a mid-recording stream error)
// through the same stage-tagged error path.
func (p *Pipeline) HandleStageError(ctx context.Context, d Delegate, stage ErrorStage, message string) {
	p.log.Debug("handling pipeline stage error", "stage", stage.String())
	p.handleError(ctx, d, stage, message)
}

func (p *Pipeline) handleError(ctx context.Context, d Delegate, stage ErrorStage, message string) {
	err := &Error{Stage: stage, Message: message}
	p.log.Error("pipeline entering error state", "stage", err.Stage.String(), "message", err.Message)
	d.EmitError(err)
	d.SetStatus(Error)

	p.log.Debug("waiting before idle reset", "delay_ms", p.errorResetDelay.Milliseconds())
	select {
	case <-time.After(p.errorResetDelay):
	case <-ctx.Done():
		return
	}
	p.log.Info("pipeline resetting status to idle after error")
	d.SetStatus(Idle)
}
