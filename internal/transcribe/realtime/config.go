// Package realtime implements the OpenAI realtime-API transcription
// provider: a websocket session that streams PCM16 audio and receives
// incremental transcript deltas, grounded on
// original_source/src-tauri/src/transcription/realtime.rs.
package realtime

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultEndpoint           = "wss://api.openai.com/v1/realtime"
	DefaultRealtimeModel      = "gpt-realtime"
	DefaultTranscriptionModel = "gpt-4o-mini-transcribe"
	betaHeaderValue           = "realtime=v1"
	DefaultCommitTimeout      = 20 * time.Second
	outputSampleRateHz        = 24_000
)

// Config configures one OpenAI realtime transcription client.
type Config struct {
	APIKey              string
	APIKeyProvider       APIKeyProvider
	Endpoint             string
	RealtimeModel        string
	TranscriptionModel   string
	CommitTimeout        time.Duration
}

// APIKeyProvider resolves a stored API key for a provider name, the second
// return value reporting whether a key was found at all.
type APIKeyProvider interface {
	GetAPIKey(provider string) (string, bool, error)
}

func DefaultConfig() Config {
	return Config{
		Endpoint:           DefaultEndpoint,
		RealtimeModel:      DefaultRealtimeModel,
		TranscriptionModel: DefaultTranscriptionModel,
		CommitTimeout:      DefaultCommitTimeout,
	}
}

// ConfigFromEnv overlays OPENAI_REALTIME_* environment variables onto
// DefaultConfig, mirroring OpenAiRealtimeTranscriptionConfig::from_env.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if v := readNonEmptyEnv("OPENAI_REALTIME_TRANSCRIPTION_ENDPOINT", "OPENAI_REALTIME_ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}
	if v := readNonEmptyEnv("OPENAI_REALTIME_MODEL"); v != "" {
		cfg.RealtimeModel = v
	}
	if v := readNonEmptyEnv("OPENAI_REALTIME_TRANSCRIPTION_MODEL", "OPENAI_TRANSCRIPTION_MODEL"); v != "" {
		cfg.TranscriptionModel = v
	}
	if v := readNonEmptyEnv("OPENAI_REALTIME_COMMIT_TIMEOUT_SECS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.CommitTimeout = time.Duration(secs) * time.Second
		}
	}

	return cfg
}

func readNonEmptyEnv(names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return ""
}

func modelSupportsRealtime(model string) bool {
	normalized := strings.ToLower(strings.TrimSpace(model))
	return strings.Contains(normalized, "realtime")
}
