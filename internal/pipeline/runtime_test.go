package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDelegate struct {
	NoopDelegateHooks
	statuses    []Status
	transcripts []string
	errors      []*Error
	inserted    []string
	saved       []Transcript
}

func (r *recordingDelegate) SetStatus(status Status)        { r.statuses = append(r.statuses, status) }
func (r *recordingDelegate) EmitTranscript(text string)     { r.transcripts = append(r.transcripts, text) }
func (r *recordingDelegate) EmitError(err *Error)           { r.errors = append(r.errors, err) }
func (r *recordingDelegate) StartRecording() error          { return nil }
func (r *recordingDelegate) StopRecording() ([]byte, error) { return nil, nil }
func (r *recordingDelegate) Transcribe(_ context.Context, _ []byte) (Transcript, error) {
	return Transcript{}, nil
}
func (r *recordingDelegate) InsertText(text string) error {
	r.inserted = append(r.inserted, text)
	return nil
}
func (r *recordingDelegate) SaveHistoryEntry(t Transcript) error {
	r.saved = append(r.saved, t)
	return nil
}

func TestRuntimeBeginSessionAssignsIncreasingIDs(t *testing.T) {
	rt := NewRuntime(nil)
	first := rt.BeginSession()
	second := rt.BeginSession()
	assert.Equal(t, uint64(1), first)
	assert.Equal(t, uint64(2), second)
	assert.False(t, rt.IsSessionActive(first))
	assert.True(t, rt.IsSessionActive(second))
}

func TestSessionDelegateDropsCallsOnceSessionIsStale(t *testing.T) {
	rt := NewRuntime(nil)
	inner := &recordingDelegate{}
	staleID := rt.BeginSession()
	delegate := NewSessionDelegate(inner, rt, staleID, nil)

	rt.BeginSession()

	delegate.SetStatus(Listening)
	delegate.EmitTranscript("hello")
	delegate.EmitError(&Error{Stage: Transcription, Message: "boom"})
	require.NoError(t, delegate.InsertText("hello"))
	require.NoError(t, delegate.SaveHistoryEntry(Transcript{Text: "hello"}))

	assert.Empty(t, inner.statuses)
	assert.Empty(t, inner.transcripts)
	assert.Empty(t, inner.errors)
	assert.Empty(t, inner.inserted)
	assert.Empty(t, inner.saved)
}

func TestSessionDelegatePassesThroughWhileActive(t *testing.T) {
	rt := NewRuntime(nil)
	inner := &recordingDelegate{}
	id := rt.BeginSession()
	delegate := NewSessionDelegate(inner, rt, id, nil)

	delegate.SetStatus(Listening)
	delegate.EmitTranscript("hello")
	require.NoError(t, delegate.InsertText("hello"))
	require.NoError(t, delegate.SaveHistoryEntry(Transcript{Text: "hello"}))

	assert.Equal(t, []Status{Listening}, inner.statuses)
	assert.Equal(t, []string{"hello"}, inner.transcripts)
	assert.Equal(t, []string{"hello"}, inner.inserted)
	assert.Len(t, inner.saved, 1)
}
