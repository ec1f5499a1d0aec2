// Package transcribe defines the provider-agnostic transcription contract
// consumed by internal/pipeline, and an orchestrator that forwards audio to
// whichever provider is currently active.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies why a transcription attempt failed, mirroring the
// original implementation's TranscriptionError enum so the pipeline can
// react the same way to every provider (realtime, batch, future ones)
// without a type switch per backend.
type ErrorKind int

const (
	KindMissingAPIKey ErrorKind = iota
	KindAuthentication
	KindRateLimited
	KindNetwork
	KindInvalidResponse
	KindProvider
)

func (k ErrorKind) String() string {
	switch k {
	case KindMissingAPIKey:
		return "missing_api_key"
	case KindAuthentication:
		return "authentication"
	case KindRateLimited:
		return "rate_limited"
	case KindNetwork:
		return "network"
	case KindInvalidResponse:
		return "invalid_response"
	case KindProvider:
		return "provider"
	default:
		return "unknown"
	}
}

// Error is the error type every provider returns. Callers that only care
// about retry/backoff policy should switch on Kind rather than parsing
// Message.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind.String(), e.Message)
}

func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

var ErrMissingAPIKey = NewError(KindMissingAPIKey, "missing transcription provider API key")

// Options carries per-request hints forwarded to whichever provider handles
// the request. All fields are optional.
type Options struct {
	Language    string
	Prompt      string
	ContextHint string
	// OnDelta, when set, is invoked with incremental transcript text as it
	// becomes available. The realtime provider calls it for each delta
	// event; the batch provider calls it once with the whole transcript.
	OnDelta func(delta string)
}

// Result is the normalized transcription outcome returned by every
// provider.
type Result struct {
	Text       string
	Language   string
	DurationS  *float64
	Confidence *float32
}

// Provider transcribes a single finished audio clip. Implementations live
// in internal/transcribe/realtime and internal/transcribe/batch.
type Provider interface {
	Name() string
	Transcribe(ctx context.Context, audio []byte, opts Options) (Result, error)
}

// Orchestrator forwards requests to the active provider and normalizes the
// resulting transcript text.
type Orchestrator struct {
	provider Provider
}

func NewOrchestrator(provider Provider) *Orchestrator {
	return &Orchestrator{provider: provider}
}

func (o *Orchestrator) Transcribe(ctx context.Context, audio []byte, opts Options) (Result, error) {
	if len(audio) == 0 {
		return Result{}, NewError(KindProvider, "Audio payload is empty")
	}

	result, err := o.provider.Transcribe(ctx, audio, opts)
	if err != nil {
		return Result{}, err
	}
	result.Text = NormalizeText(result.Text)
	return result, nil
}

// NormalizeText collapses all whitespace runs (including newlines) down to
// single spaces and trims the ends, matching every provider's output so
// downstream insertion never has to special-case formatting per backend.
func NormalizeText(raw string) string {
	fields := strings.Fields(raw)
	return strings.Join(fields, " ")
}

// AsError unwraps err into a *Error if possible, for callers that need the
// Kind but received a generic error from a lower layer.
func AsError(err error) (*Error, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}
