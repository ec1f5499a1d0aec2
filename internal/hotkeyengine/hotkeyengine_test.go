package hotkeyengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHoldToTalkStartsOnPressAndStopsOnRelease(t *testing.T) {
	e := New(Config{Mode: HoldToTalk})

	transition, ok := e.Apply(Pressed)
	require.True(t, ok)
	assert.Equal(t, Started, transition)

	_, ok = e.Apply(Pressed)
	assert.False(t, ok, "a second press while already desiring to record is a no-op")

	transition, ok = e.Apply(Released)
	require.True(t, ok)
	assert.Equal(t, Stopped, transition)
}

func TestToggleStartsOnFirstPressAndStopsOnSecond(t *testing.T) {
	e := New(Config{Mode: Toggle})

	_, ok := e.Apply(Released)
	assert.False(t, ok, "release is never meaningful in toggle mode")

	transition, ok := e.Apply(Pressed)
	require.True(t, ok)
	assert.Equal(t, Started, transition)

	transition, ok = e.Apply(Pressed)
	require.True(t, ok)
	assert.Equal(t, Stopped, transition)
}

func TestAcknowledgeAppliesSuccessOnlyToStarted(t *testing.T) {
	e := New(Config{Mode: HoldToTalk})

	_, _ = e.Apply(Pressed)
	e.Acknowledge(Started, false)
	assert.False(t, e.IsRecording(), "a failed start must not mark recording active")

	_, _ = e.Apply(Pressed)
	e.Acknowledge(Started, true)
	assert.True(t, e.IsRecording())

	_, _ = e.Apply(Released)
	e.Acknowledge(Stopped, false)
	assert.False(t, e.IsRecording(), "stop always clears isRecording regardless of its success flag")
}

func TestDesiredRecordingReflectsLatestPendingTransitionWhileAcknowledgementsAreInFlight(t *testing.T) {
	e := New(Config{Mode: Toggle})

	transition, ok := e.Apply(Pressed)
	require.True(t, ok)
	assert.Equal(t, Started, transition)
	assert.True(t, e.desiredRecordingForTest())

	transition, ok = e.Apply(Pressed)
	require.True(t, ok)
	assert.Equal(t, Stopped, transition)
	assert.False(t, e.desiredRecordingForTest())

	e.Acknowledge(Started, true)
	assert.False(t, e.desiredRecordingForTest(), "the most recent pending transition (Stopped) wins recomputation")
}

func TestForceStopClearsActiveOrPendingRecordingOnlyOnce(t *testing.T) {
	e := New(Config{Mode: HoldToTalk})

	assert.False(t, e.ForceStop(), "nothing to force-stop when idle")

	_, _ = e.Apply(Pressed)
	assert.True(t, e.ForceStop())
	assert.False(t, e.IsRecording())
	assert.False(t, e.desiredRecordingForTest())
	assert.False(t, e.ForceStop(), "a second force-stop finds nothing left to clear")
}

func TestStopDecisionProcessWhenRecordingIsActive(t *testing.T) {
	e := New(Config{Mode: HoldToTalk})

	_, _ = e.Apply(Pressed)
	e.Acknowledge(Started, true)
	_, ok := e.Apply(Released)
	require.True(t, ok)

	assert.Equal(t, Process, e.StopDecision())
}

func TestStopDecisionAcknowledgeOnlyWhenNeverStarted(t *testing.T) {
	e := New(Config{Mode: HoldToTalk})

	_, _ = e.Apply(Pressed)
	_, ok := e.Apply(Released)
	require.True(t, ok)
	e.Acknowledge(Started, false)

	assert.Equal(t, AcknowledgeOnly, e.StopDecision())
}

func TestStopDecisionDefersUntilStartAcknowledged(t *testing.T) {
	e := New(Config{Mode: HoldToTalk})

	_, ok := e.Apply(Pressed)
	require.True(t, ok)
	// Released arrives before Started is acknowledged.
	_, ok = e.Apply(Released)
	require.True(t, ok)

	assert.True(t, e.PendingStop())
	assert.Equal(t, DeferUntilStarted, e.StopDecision())

	e.Acknowledge(Started, true)
	assert.Equal(t, Process, e.StopDecision(), "once Started acknowledges, the deferred stop is ready to process")
}

func TestStopDecisionIgnoresASecondStopAlreadyInFlight(t *testing.T) {
	e := New(Config{Mode: Toggle})

	_, _ = e.Apply(Pressed)
	e.Acknowledge(Started, true)
	_, ok := e.Apply(Pressed)
	require.True(t, ok, "toggle press while recording emits Stopped")

	assert.Equal(t, Ignore, e.stopDecisionLockedForTest())
}

func (e *Engine) stopDecisionLockedForTest() StopDecision {
	e.mu.Lock()
	e.pendingTransitions = append(e.pendingTransitions, Stopped)
	e.mu.Unlock()
	return e.StopDecision()
}

func (e *Engine) desiredRecordingForTest() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.desiredRecording
}
