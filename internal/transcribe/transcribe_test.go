package transcribe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	capturedLen int
	responseText string
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Transcribe(ctx context.Context, audio []byte, opts Options) (Result, error) {
	s.capturedLen = len(audio)
	return Result{Text: s.responseText, Language: "en"}, nil
}

func TestOrchestratorNormalizesWhitespaceAndForwardsAudio(t *testing.T) {
	provider := &stubProvider{responseText: "  hello    world\n\nfrom   provider "}
	orchestrator := NewOrchestrator(provider)

	result, err := orchestrator.Transcribe(context.Background(), []byte{1, 2, 3, 4}, Options{
		Language:    "en",
		Prompt:      "dictation",
		ContextHint: "short reply",
	})

	require.NoError(t, err)
	assert.Equal(t, "hello world from provider", result.Text)
	assert.Equal(t, "en", result.Language)
	assert.Equal(t, 4, provider.capturedLen)
}

func TestOrchestratorRejectsEmptyAudioPayload(t *testing.T) {
	orchestrator := NewOrchestrator(&stubProvider{})

	_, err := orchestrator.Transcribe(context.Background(), nil, Options{})
	require.Error(t, err)

	te, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindProvider, te.Kind)
}

func TestNormalizeTextCollapsesWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", NormalizeText("  a\n\tb   c  "))
	assert.Equal(t, "", NormalizeText("   "))
}
