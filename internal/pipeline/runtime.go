package pipeline

import (
	"sync"
	"sync/atomic"

	"github.com/emmett/dictate/internal/applog"
)

// Runtime tracks pipeline session lifetime across hotkey-triggered cycles,
// grounded on lib.rs's PipelineRuntimeState. Each hotkey start/stop event
// runs under ExecutionLock and opens a new session id; a SessionDelegate
// wrapping an older session id silently drops any call it makes once a
// newer session has begun, so a stale recording cycle (e.g. one still
// waiting on a slow transcription call) cannot clobber UI state or insert
// text for a cycle the user has already moved past.
type Runtime struct {
	// ExecutionLock serializes the hotkey start/stop handlers so a start
	// and a stop event can never run their session bookkeeping
	// concurrently; callers should hold it for the duration of a single
	// HandleHotkeyStarted/HandleHotkeyStopped call.
	ExecutionLock sync.Mutex

	nextSessionID   atomic.Uint64
	activeSessionID atomic.Uint64

	log *applog.Logger
}

func NewRuntime(log *applog.Logger) *Runtime {
	return &Runtime{log: log}
}

// BeginSession allocates a new session id and makes it the active one,
// invalidating whatever session id was active before.
func (r *Runtime) BeginSession() uint64 {
	sessionID := r.nextSessionID.Add(1)
	r.activeSessionID.Store(sessionID)
	if r.log != nil {
		r.log.Debug("pipeline session started", "session_id", sessionID)
	}
	return sessionID
}

// IsSessionActive reports whether sessionID is still the most recently
// begun session.
func (r *Runtime) IsSessionActive(sessionID uint64) bool {
	return r.activeSessionID.Load() == sessionID
}

// SessionDelegate wraps a Delegate with a session id from Runtime.BeginSession
// and, once that session is no longer active, drops its status updates,
// transcript and error emissions, text insertion, and history writes,
// matching AppPipelineDelegate::is_session_active's guard on each handler
// method. Recording start/stop, transcription, level metering and the
// acknowledgement hooks pass through to the inner Delegate unguarded.
type SessionDelegate struct {
	Delegate
	runtime   *Runtime
	sessionID uint64
	log       *applog.Logger
}

// NewSessionDelegate scopes inner to sessionID; once runtime begins a newer
// session, the guarded methods listed on SessionDelegate become no-ops
// instead of acting on stale state.
func NewSessionDelegate(inner Delegate, runtime *Runtime, sessionID uint64, log *applog.Logger) Delegate {
	return &SessionDelegate{Delegate: inner, runtime: runtime, sessionID: sessionID, log: log}
}

func (d *SessionDelegate) active() bool {
	return d.runtime.IsSessionActive(d.sessionID)
}

func (d *SessionDelegate) SetStatus(status Status) {
	if !d.active() {
		d.logSkip("status update")
		return
	}
	d.Delegate.SetStatus(status)
}

func (d *SessionDelegate) EmitTranscript(text string) {
	if !d.active() {
		d.logSkip("transcript")
		return
	}
	d.Delegate.EmitTranscript(text)
}

func (d *SessionDelegate) EmitError(err *Error) {
	if !d.active() {
		d.logSkip("pipeline error")
		return
	}
	d.Delegate.EmitError(err)
}

func (d *SessionDelegate) InsertText(text string) error {
	if !d.active() {
		d.logSkip("text insertion")
		return nil
	}
	return d.Delegate.InsertText(text)
}

func (d *SessionDelegate) SaveHistoryEntry(transcript Transcript) error {
	if !d.active() {
		d.logSkip("history persistence")
		return nil
	}
	return d.Delegate.SaveHistoryEntry(transcript)
}

func (d *SessionDelegate) logSkip(what string) {
	if d.log != nil {
		d.log.Debug("ignoring "+what+" for inactive session", "session_id", d.sessionID)
	}
}
