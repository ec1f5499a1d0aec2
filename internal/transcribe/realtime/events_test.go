package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseServerEventRecognizesDeltaAndCompleted(t *testing.T) {
	delta := parseServerEvent([]byte(`{"type":"conversation.item.input_audio_transcription.delta","delta":"hel"}`))
	assert.Equal(t, eventKindDelta, delta.kind)
	assert.Equal(t, "hel", delta.text)

	completed := parseServerEvent([]byte(`{"type":"conversation.item.input_audio_transcription.completed","transcript":"hello there"}`))
	assert.Equal(t, eventKindCompleted, completed.kind)
	assert.Equal(t, "hello there", completed.text)
}

func TestParseServerEventAcceptsFallbackEventNames(t *testing.T) {
	delta := parseServerEvent([]byte(`{"type":"transcript.text.delta","delta":"hi"}`))
	assert.Equal(t, eventKindDelta, delta.kind)

	done := parseServerEvent([]byte(`{"type":"transcript.text.done","text":"done text"}`))
	assert.Equal(t, eventKindCompleted, done.kind)
	assert.Equal(t, "done text", done.text)
}

func TestParseServerEventAcceptsLegacySessionLifecycle(t *testing.T) {
	created := parseServerEvent([]byte(`{"type":"transcription_session.created"}`))
	assert.Equal(t, eventKindSessionCreated, created.kind)

	updated := parseServerEvent([]byte(`{"type":"session.updated"}`))
	assert.Equal(t, eventKindSessionUpdated, updated.kind)
}

func TestParseServerEventExtractsErrorMessageFromPointerPath(t *testing.T) {
	event := parseServerEvent([]byte(`{"type":"error","error":{"message":"bad audio format"}}`))
	assert.Equal(t, eventKindError, event.kind)
	assert.Equal(t, "bad audio format", event.text)
}

func TestParseServerEventErrorFallsBackToDefaultMessage(t *testing.T) {
	event := parseServerEvent([]byte(`{"type":"error"}`))
	assert.Equal(t, eventKindError, event.kind)
	assert.Equal(t, "realtime API returned an error event", event.text)
}

func TestParseServerEventIgnoresUnrecognizedType(t *testing.T) {
	event := parseServerEvent([]byte(`{"type":"some.unknown.event"}`))
	assert.Equal(t, eventIgnore, event.kind)
}

func TestParseServerEventIgnoresMalformedJSON(t *testing.T) {
	event := parseServerEvent([]byte(`not json`))
	assert.Equal(t, eventIgnore, event.kind)
}

func TestModelSupportsRealtimeChecksSubstring(t *testing.T) {
	assert.True(t, modelSupportsRealtime("gpt-realtime"))
	assert.True(t, modelSupportsRealtime("GPT-REALTIME-preview"))
	assert.False(t, modelSupportsRealtime("gpt-4o-mini-transcribe"))
	assert.False(t, modelSupportsRealtime(""))
}

func TestResolveEndpointReplacesModelAndIntentQueryParams(t *testing.T) {
	resolved, err := resolveEndpoint("wss://api.openai.com/v1/realtime?model=gpt-4o&intent=chat")
	assert.NoError(t, err)
	assert.Contains(t, resolved, "intent=transcription")
	assert.NotContains(t, resolved, "model=")
}
