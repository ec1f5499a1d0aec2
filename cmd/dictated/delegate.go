package main

import (
	"context"
	"fmt"
	"time"

	"github.com/emmett/dictate/internal/applog"
	"github.com/emmett/dictate/internal/audio"
	"github.com/emmett/dictate/internal/consoleui"
	"github.com/emmett/dictate/internal/hotkeyengine"
	"github.com/emmett/dictate/internal/insertion"
	"github.com/emmett/dictate/internal/pipeline"
	"github.com/emmett/dictate/internal/store"
	"github.com/emmett/dictate/internal/transcribe"
	"github.com/emmett/dictate/internal/transcribe/batch"
	"github.com/emmett/dictate/internal/transcribe/realtime"
)

// appDelegate is the production pipeline.Delegate: it wires a live audio
// worker, the configured transcription provider, the text insertion
// engine, and the on-disk stores together, and mirrors every status/
// transcript/error transition to a Console. One appDelegate is shared
// across hotkey cycles; pipeline.NewSessionDelegate wraps it per-cycle so
// a stale cycle cannot act once a newer one has begun.
type appDelegate struct {
	pipeline.NoopDelegateHooks

	log      *applog.Logger
	console  *consoleui.Console
	settings *store.SettingsStore
	apiKeys  *store.APIKeyStore
	authz    *store.AuthStore
	history  *store.HistoryStore
	insert   *insertion.Engine
	hotkeys  *hotkeyengine.Engine
	runtime  *pipeline.Runtime
	pipe     *pipeline.Pipeline

	worker     audio.Worker
	workerDone chan struct{}
}

func newAppDelegate(
	log *applog.Logger,
	console *consoleui.Console,
	settings *store.SettingsStore,
	apiKeys *store.APIKeyStore,
	authz *store.AuthStore,
	history *store.HistoryStore,
	insert *insertion.Engine,
	hotkeys *hotkeyengine.Engine,
	runtime *pipeline.Runtime,
	pipe *pipeline.Pipeline,
) *appDelegate {
	return &appDelegate{
		log:      log,
		console:  console,
		settings: settings,
		apiKeys:  apiKeys,
		authz:    authz,
		history:  history,
		insert:   insert,
		hotkeys:  hotkeys,
		runtime:  runtime,
		pipe:     pipe,
	}
}

func (d *appDelegate) SetStatus(status pipeline.Status) {
	d.console.Status(status)
}

func (d *appDelegate) EmitTranscript(text string) {
	d.console.Transcript(pipeline.Transcript{Text: text})
}

func (d *appDelegate) EmitError(err *pipeline.Error) {
	d.console.Error(err)
}

func (d *appDelegate) OnRecordingStarted(success bool) {
	d.hotkeys.Acknowledge(hotkeyengine.Started, success)
}

func (d *appDelegate) OnRecordingStopped(success bool) {
	d.hotkeys.Acknowledge(hotkeyengine.Stopped, success)
}

// EmitLevel forwards the worker's lock-free level estimate to the console
// meter; watchWorker polls this roughly every audio.LevelEventInterval
// while a recording is live.
func (d *appDelegate) EmitLevel(level float64) {
	d.console.Level(level)
}

func (d *appDelegate) StartRecording() error {
	settings := d.settings.Current()

	cfg := audio.DefaultConfig()
	if settings.MicrophoneID != nil {
		cfg.DeviceID = *settings.MicrophoneID
	}

	worker, err := audio.NewWorker(cfg)
	if err != nil {
		return fmt.Errorf("create audio worker: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), audio.StartReadyTimeout)
	defer cancel()
	if err := worker.Start(ctx); err != nil {
		return fmt.Errorf("start audio capture: %w", err)
	}

	d.worker = worker
	done := make(chan struct{})
	d.workerDone = done
	go d.watchWorker(worker, done)
	return nil
}

func (d *appDelegate) StopRecording() ([]byte, error) {
	if d.worker == nil {
		return nil, fmt.Errorf("no active recording")
	}
	worker := d.worker
	d.worker = nil
	if d.workerDone != nil {
		close(d.workerDone)
		d.workerDone = nil
	}
	return worker.Stop()
}

// watchWorker runs for the lifetime of one recording: it samples the
// worker's audio level on audio.LevelEventInterval for the console meter,
// and drains the worker's error channel for a runtime stream error (a
// malgo device disconnect, an overrun, anything the capture backend reports
// after Start succeeded). It exits when StopRecording closes done.
func (d *appDelegate) watchWorker(worker audio.Worker, done chan struct{}) {
	ticker := time.NewTicker(audio.LevelEventInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			d.EmitLevel(worker.Level())
		case err, ok := <-worker.Errors():
			if !ok {
				return
			}
			d.handleRuntimeError(err)
			return
		}
	}
}

// handleRuntimeError implements the runtime stream-error path: a capture
// error arriving mid-recording invalidates whatever pipeline session is in
// flight, force-stops the hotkey engine so a held key doesn't try to stop a
// recording that is already gone, and abandons the worker without encoding
// a clip before routing the failure through the pipeline's normal
// stage-tagged error path.
//
// BeginSession is called without ExecutionLock: a slow in-flight session
// may be holding that lock while awaiting network, and a runtime error must
// be able to preempt it immediately rather than wait behind it.
func (d *appDelegate) handleRuntimeError(err error) {
	d.log.Error("audio capture runtime error", "error", err)

	sessionID := d.runtime.BeginSession()
	scoped := pipeline.NewSessionDelegate(d, d.runtime, sessionID, d.log)

	d.hotkeys.ForceStop()

	if d.worker != nil {
		d.worker.Abort()
		d.worker = nil
	}

	d.pipe.HandleStageError(context.Background(), scoped, pipeline.RecordingRuntime, err.Error())
}

// Transcribe builds the provider configured in settings.json for this one
// call rather than caching a client, so a provider/credential change takes
// effect on the very next recording without restarting the daemon.
func (d *appDelegate) Transcribe(ctx context.Context, wavBytes []byte) (pipeline.Transcript, error) {
	settings := d.settings.Current()

	provider, err := d.buildProvider(ctx, settings)
	if err != nil {
		return pipeline.Transcript{}, err
	}

	opts := transcribe.Options{}
	if settings.Language != nil {
		opts.Language = *settings.Language
	}

	orchestrator := transcribe.NewOrchestrator(provider)
	result, err := orchestrator.Transcribe(ctx, wavBytes, opts)
	if err != nil {
		return pipeline.Transcript{}, err
	}

	return pipeline.Transcript{
		Text:      result.Text,
		DurationS: result.DurationS,
		Language:  &result.Language,
		Provider:  provider.Name(),
	}, nil
}

func (d *appDelegate) buildProvider(ctx context.Context, settings store.VoiceSettings) (transcribe.Provider, error) {
	authMethod, err := d.authz.EffectiveAuthMethod(d.apiKeys)
	if err != nil {
		return nil, fmt.Errorf("resolve auth method: %w", err)
	}

	var bearerOverride string
	if authMethod == store.AuthMethodChatGPTOAuth {
		token, err := d.authz.RefreshIfExpired(ctx)
		if err != nil {
			return nil, transcribe.NewError(transcribe.KindAuthentication, err.Error())
		}
		bearerOverride = token
	}

	switch settings.TranscriptionProvider {
	case "openai-realtime", "realtime":
		cfg := realtime.ConfigFromEnv()
		cfg.APIKey = bearerOverride
		cfg.APIKeyProvider = d.apiKeys
		return realtime.NewClient(cfg, d.log), nil
	default:
		cfg := batch.DefaultConfig()
		cfg.APIKey = bearerOverride
		cfg.APIKeyProvider = d.apiKeys
		return batch.NewClient(cfg, d.log), nil
	}
}

func (d *appDelegate) InsertText(text string) error {
	settings := d.settings.Current()
	if !settings.AutoInsert {
		return d.insert.CopyToClipboard(text)
	}
	return d.insert.InsertText(text)
}

func (d *appDelegate) SaveHistoryEntry(transcript pipeline.Transcript) error {
	entry := store.NewHistoryEntry(transcript.Text, transcript.DurationS, transcript.Language, transcript.Provider)
	return d.history.AddEntry(entry)
}
