package realtime

import "encoding/json"

const (
	eventSessionCreated       = "session.created"
	eventSessionUpdated       = "session.updated"
	eventSessionCreatedLegacy = "transcription_session.created"
	eventSessionUpdatedLegacy = "transcription_session.updated"
	eventSpeechStarted        = "input_audio_buffer.speech_started"
	eventSpeechStopped        = "input_audio_buffer.speech_stopped"
	eventDelta                = "conversation.item.input_audio_transcription.delta"
	eventCompleted            = "conversation.item.input_audio_transcription.completed"
	eventFallbackDelta        = "transcript.text.delta"
	eventFallbackCompleted    = "transcript.text.done"
	eventError                = "error"
)

type serverEventKind int

const (
	eventIgnore serverEventKind = iota
	eventKindSessionCreated
	eventKindSessionUpdated
	eventKindSpeechStarted
	eventKindSpeechStopped
	eventKindDelta
	eventKindCompleted
	eventKindError
)

type serverEvent struct {
	kind serverEventKind
	text string
}

// parseServerEvent classifies one raw JSON payload received from the
// realtime websocket, grounded on realtime.rs::parse_server_event.
func parseServerEvent(raw []byte) serverEvent {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return serverEvent{kind: eventIgnore}
	}

	eventType, _ := payload["type"].(string)
	if eventType == "" {
		return serverEvent{kind: eventIgnore}
	}

	switch eventType {
	case eventSessionCreated, eventSessionCreatedLegacy:
		return serverEvent{kind: eventKindSessionCreated}
	case eventSessionUpdated, eventSessionUpdatedLegacy:
		return serverEvent{kind: eventKindSessionUpdated}
	case eventSpeechStarted:
		return serverEvent{kind: eventKindSpeechStarted}
	case eventSpeechStopped:
		return serverEvent{kind: eventKindSpeechStopped}
	case eventDelta, eventFallbackDelta:
		if text, ok := extractFirstText(payload, "delta", "/delta", "/item/delta", "/item/text"); ok {
			return serverEvent{kind: eventKindDelta, text: text}
		}
		return serverEvent{kind: eventIgnore}
	case eventCompleted, eventFallbackCompleted:
		if text, ok := extractFirstString(payload, "transcript", "text", "/item/transcript", "/item/text"); ok {
			return serverEvent{kind: eventKindCompleted, text: text}
		}
		return serverEvent{kind: eventIgnore}
	case eventError:
		text, ok := extractFirstText(payload, "/error/message", "/error/type", "message", "error", "/details/message")
		if !ok {
			text = "realtime API returned an error event"
		}
		return serverEvent{kind: eventKindError, text: text}
	default:
		return serverEvent{kind: eventIgnore}
	}
}

// extractFirstText returns the first non-blank string found by walking
// keysOrPointers in order. A plain key looks up a top-level field; a key
// starting with "/" is a JSON-pointer-like slash path into nested objects.
func extractFirstText(payload map[string]any, keysOrPointers ...string) (string, bool) {
	for _, key := range keysOrPointers {
		if value, ok := lookup(payload, key); ok {
			if trimmedNonEmpty(value) {
				return value, true
			}
		}
	}
	return "", false
}

// extractFirstString is like extractFirstText but accepts an empty string
// as a match (used for transcript/text fields, where an empty transcript
// is still a valid "completed with nothing said" signal upstream filters
// on separately).
func extractFirstString(payload map[string]any, keysOrPointers ...string) (string, bool) {
	for _, key := range keysOrPointers {
		if value, ok := lookup(payload, key); ok {
			return value, true
		}
	}
	return "", false
}

func lookup(payload map[string]any, keyOrPointer string) (string, bool) {
	if len(keyOrPointer) == 0 {
		return "", false
	}
	if keyOrPointer[0] == '/' {
		return lookupPointer(payload, keyOrPointer)
	}
	value, ok := payload[keyOrPointer]
	if !ok {
		return "", false
	}
	s, ok := value.(string)
	return s, ok
}

func lookupPointer(payload map[string]any, pointer string) (string, bool) {
	segments := splitPointer(pointer)
	var current any = payload
	for _, segment := range segments {
		m, ok := current.(map[string]any)
		if !ok {
			return "", false
		}
		current, ok = m[segment]
		if !ok {
			return "", false
		}
	}
	s, ok := current.(string)
	return s, ok
}

func splitPointer(pointer string) []string {
	var segments []string
	start := 1
	for i := 1; i <= len(pointer); i++ {
		if i == len(pointer) || pointer[i] == '/' {
			if i > start {
				segments = append(segments, pointer[start:i])
			}
			start = i + 1
		}
	}
	return segments
}

func trimmedNonEmpty(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return true
		}
	}
	return false
}
