package batch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emmett/dictate/internal/transcribe"
)

func TestTranscribeUploadsAudioAndParsesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		err := r.ParseMultipartForm(1 << 20)
		require.NoError(t, err)
		assert.Equal(t, DefaultModel, r.FormValue("model"))
		assert.Equal(t, "en", r.FormValue("language"))

		file, _, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"text": "  hello   world  "})
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.Endpoint = server.URL
	cfg.APIKey = "test-key"
	client := NewClient(cfg, nil)

	result, err := client.Transcribe(context.Background(), []byte{1, 2, 3}, transcribe.Options{Language: "en"})
	require.NoError(t, err)
	assert.Equal(t, "hello world", result.Text)
}

func TestTranscribeMapsAuthenticationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{"error": map[string]string{"message": "invalid api key"}})
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.Endpoint = server.URL
	cfg.APIKey = "bad-key"
	client := NewClient(cfg, nil)

	_, err := client.Transcribe(context.Background(), []byte{1, 2, 3}, transcribe.Options{})
	require.Error(t, err)

	te, ok := transcribe.AsError(err)
	require.True(t, ok)
	assert.Equal(t, transcribe.KindAuthentication, te.Kind)
	assert.Contains(t, te.Message, "invalid api key")
}

func TestTranscribeRejectsMissingAPIKey(t *testing.T) {
	cfg := DefaultConfig()
	client := NewClient(cfg, nil)

	_, err := client.Transcribe(context.Background(), []byte{1, 2, 3}, transcribe.Options{})
	require.Error(t, err)
	assert.Same(t, transcribe.ErrMissingAPIKey, err)
}
