// Package hotkeyengine turns raw shortcut presses/releases into recording
// start/stop transitions, reconciling the hold-to-talk and toggle recording
// modes against a queue of transitions still awaiting acknowledgement.
package hotkeyengine

import "sync"

// RecordingMode selects how a shortcut press maps to a recording
// start/stop transition.
type RecordingMode int

const (
	// HoldToTalk starts recording on press and stops on release.
	HoldToTalk RecordingMode = iota
	// Toggle starts recording on the first press and stops on the next.
	Toggle
)

// Trigger is the raw shortcut observation fed into Engine.
type Trigger int

const (
	Pressed Trigger = iota
	Released
)

// Transition is a recording state change the engine has decided on.
type Transition int

const (
	Started Transition = iota
	Stopped
)

// StopDecision is stop_processing_decision()'s four-way outcome: what the
// caller should actually do about a Stopped transition Apply has just
// emitted, given whatever other transitions are still awaiting
// acknowledgement.
type StopDecision int

const (
	// Process: recording is genuinely active; the caller should run the
	// real stop side effect (capture.stop(), transcription, ...).
	Process StopDecision = iota
	// AcknowledgeOnly: the stop arrived without an active recording
	// (spurious, e.g. a start that never succeeded); acknowledge Stopped
	// without performing the stop side effect.
	AcknowledgeOnly
	// DeferUntilStarted: a Started transition is still pending
	// acknowledgement; the caller must let startup finish before it can
	// stop.
	DeferUntilStarted
	// Ignore: a stop is already in flight for this shortcut.
	Ignore
)

// Config is the hotkey shortcut's current mode; the shortcut string itself
// lives in the caller's settings store and is matched upstream by the
// shortcut/keysource packages before a Trigger reaches the engine.
type Config struct {
	Mode RecordingMode
}

// Engine tracks desired-vs-actual recording state across a shortcut whose
// start/stop side effects complete asynchronously: a transition is appended
// to a pending queue when decided, and only removed when the caller reports
// back via Acknowledge.
type Engine struct {
	mu                sync.Mutex
	config            Config
	isRecording       bool
	desiredRecording  bool
	pendingTransitions []Transition
}

// New creates an Engine in the given mode, with recording initially stopped.
func New(config Config) *Engine {
	return &Engine{config: config}
}

// Config returns the engine's current configuration.
func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.config
}

// SetConfig updates the recording mode. Changing mode never by itself
// produces a transition; it only changes how the next Trigger is resolved.
func (e *Engine) SetConfig(config Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.config = config
}

// IsRecording reports the last acknowledged recording state.
func (e *Engine) IsRecording() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isRecording
}

// Apply feeds a raw trigger into the engine. It returns the decided
// Transition and ok=true if the trigger produces one, or ok=false if the
// trigger is a no-op in the current mode/state (e.g. a Released trigger in
// Toggle mode, or a Pressed trigger while hold-to-talk is already
// recording). The transition is queued as pending until Acknowledge is
// called with the same value.
//
// Resolution is against desiredRecording, not isRecording: a second press
// that arrives before a pending Started is acknowledged still toggles
// correctly, because desiredRecording was already flipped when the first
// transition was queued.
func (e *Engine) Apply(trigger Trigger) (Transition, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	next, transition, ok := resolveTransition(e.config.Mode, e.desiredRecording, trigger)
	if !ok {
		return 0, false
	}

	e.desiredRecording = next
	e.pendingTransitions = append(e.pendingTransitions, transition)
	return transition, true
}

func resolveTransition(mode RecordingMode, desiredRecording bool, trigger Trigger) (next bool, transition Transition, ok bool) {
	switch mode {
	case HoldToTalk:
		switch trigger {
		case Pressed:
			if !desiredRecording {
				return true, Started, true
			}
		case Released:
			if desiredRecording {
				return false, Stopped, true
			}
		}
		return false, 0, false
	case Toggle:
		switch trigger {
		case Pressed:
			if desiredRecording {
				return false, Stopped, true
			}
			return true, Started, true
		case Released:
			return false, 0, false
		}
	}
	return false, 0, false
}

// StopDecision reports stop_processing_decision()'s outcome for the Stopped
// transition Apply has just emitted (or for a caller re-checking after a
// prior DeferUntilStarted result, once the pending Started acknowledges).
func (e *Engine) StopDecision() StopDecision {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopDecisionLocked()
}

// PendingStop reports whether a Stopped transition is still sitting in the
// pending queue awaiting processing — true right after a DeferUntilStarted
// decision, until the caller acts on it.
func (e *Engine) PendingStop() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, t := range e.pendingTransitions {
		if t == Stopped {
			return true
		}
	}
	return false
}

func (e *Engine) stopDecisionLocked() StopDecision {
	var startedPending, stoppedPending int
	for _, t := range e.pendingTransitions {
		switch t {
		case Started:
			startedPending++
		case Stopped:
			stoppedPending++
		}
	}

	switch {
	case stoppedPending > 1:
		return Ignore
	case startedPending > 0:
		return DeferUntilStarted
	case e.isRecording:
		return Process
	default:
		return AcknowledgeOnly
	}
}

// Acknowledge reports that a previously decided Transition has completed,
// with success indicating whether its side effect (start_recording /
// stop_recording) actually succeeded. A failed Started acknowledgement
// leaves isRecording false, matching the delegate contract where a failed
// start never reaches the Listening state.
func (e *Engine) Acknowledge(transition Transition, success bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.removePending(transition)

	switch transition {
	case Started:
		e.isRecording = success
	case Stopped:
		e.isRecording = false
	}

	e.recomputeDesiredRecording()
}

func (e *Engine) removePending(transition Transition) {
	if len(e.pendingTransitions) == 0 {
		return
	}
	if e.pendingTransitions[0] == transition {
		e.pendingTransitions = e.pendingTransitions[1:]
		return
	}
	for i, pending := range e.pendingTransitions {
		if pending == transition {
			e.pendingTransitions = append(e.pendingTransitions[:i], e.pendingTransitions[i+1:]...)
			return
		}
	}
}

// recomputeDesiredRecording folds isRecording forward through whatever
// transitions are still pending, so desiredRecording reflects the last
// transition still in flight rather than snapping back to isRecording.
func (e *Engine) recomputeDesiredRecording() {
	desired := e.isRecording
	for _, pending := range e.pendingTransitions {
		desired = pending == Started
	}
	e.desiredRecording = desired
}

// ForceStop immediately clears recording state and any pending transitions,
// for use when the shortcut is unregistered or the session is invalidated
// out from under an in-flight recording. It reports whether recording (or a
// pending transition toward it) was actually active, so the caller knows
// whether to emit a Stopped transition of its own.
func (e *Engine) ForceStop() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	wasActive := e.isRecording || e.desiredRecording || len(e.pendingTransitions) > 0
	if !wasActive {
		return false
	}

	e.isRecording = false
	e.desiredRecording = false
	e.pendingTransitions = nil
	return true
}
