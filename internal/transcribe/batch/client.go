// Package batch implements a one-shot multipart-upload transcription
// provider against OpenAI's /v1/audio/transcriptions endpoint, grounded on
// original_source/src-tauri/src/transcription/chatgpt.rs's request/response
// handling (the wire shape differs — plain API-key bearer auth against the
// public Whisper-style endpoint rather than ChatGPT's backend-api — but the
// multipart-upload-then-map-errors structure is the same).
package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/emmett/dictate/internal/applog"
	"github.com/emmett/dictate/internal/transcribe"
)

const (
	DefaultEndpoint       = "https://api.openai.com/v1/audio/transcriptions"
	DefaultModel          = "gpt-4o-mini-transcribe"
	DefaultRequestTimeout = 180 * time.Second
	providerName          = "openai-batch"
)

// APIKeyProvider resolves a stored API key for a provider name.
type APIKeyProvider interface {
	GetAPIKey(provider string) (string, bool, error)
}

type Config struct {
	APIKey         string
	APIKeyProvider APIKeyProvider
	Endpoint       string
	Model          string
	RequestTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Endpoint:       DefaultEndpoint,
		Model:          DefaultModel,
		RequestTimeout: DefaultRequestTimeout,
	}
}

type Client struct {
	config     Config
	httpClient *http.Client
	log        *applog.Logger
}

func NewClient(config Config, log *applog.Logger) *Client {
	timeout := config.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

func (c *Client) Name() string { return providerName }

func (c *Client) apiKey() (string, error) {
	if key := strings.TrimSpace(c.config.APIKey); key != "" {
		return key, nil
	}
	if c.config.APIKeyProvider != nil {
		key, ok, err := c.config.APIKeyProvider.GetAPIKey("openai")
		if err != nil {
			if c.log != nil {
				c.log.Warn("api key store read failed, falling back to environment", "error", err)
			}
		} else if ok {
			if trimmed := strings.TrimSpace(key); trimmed != "" {
				return trimmed, nil
			}
		}
	}
	if key := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); key != "" {
		return key, nil
	}
	return "", transcribe.ErrMissingAPIKey
}

func (c *Client) Transcribe(ctx context.Context, audio []byte, opts transcribe.Options) (transcribe.Result, error) {
	apiKey, err := c.apiKey()
	if err != nil {
		return transcribe.Result{}, err
	}

	body, contentType, err := buildMultipartBody(audio, c.config.Model, opts)
	if err != nil {
		return transcribe.Result{}, transcribe.NewError(transcribe.KindProvider, err.Error())
	}

	endpoint := c.config.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return transcribe.Result{}, transcribe.NewError(transcribe.KindProvider, err.Error())
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+apiKey)

	if c.log != nil {
		c.log.Info("starting batch transcription request", "endpoint", endpoint, "model", c.config.Model)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transcribe.Result{}, mapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return transcribe.Result{}, mapHTTPError(resp)
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return transcribe.Result{}, transcribe.NewError(transcribe.KindInvalidResponse,
			fmt.Sprintf("unable to parse batch transcription response: %v", err))
	}

	result := transcribe.Result{Text: transcribe.NormalizeText(parsed.Text)}
	if opts.OnDelta != nil {
		opts.OnDelta(result.Text)
	}
	return result, nil
}

func buildMultipartBody(audio []byte, model string, opts transcribe.Options) (io.Reader, string, error) {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, "", fmt.Errorf("create multipart file part: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", fmt.Errorf("write multipart audio body: %w", err)
	}

	if model == "" {
		model = DefaultModel
	}
	if err := writer.WriteField("model", model); err != nil {
		return nil, "", fmt.Errorf("write model field: %w", err)
	}
	if lang := strings.TrimSpace(opts.Language); lang != "" {
		if err := writer.WriteField("language", lang); err != nil {
			return nil, "", fmt.Errorf("write language field: %w", err)
		}
	}
	if prompt := strings.TrimSpace(opts.Prompt); prompt != "" {
		if err := writer.WriteField("prompt", prompt); err != nil {
			return nil, "", fmt.Errorf("write prompt field: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("finalize multipart body: %w", err)
	}
	return buf, writer.FormDataContentType(), nil
}

func mapTransportError(err error) error {
	return transcribe.NewError(transcribe.KindNetwork, err.Error())
}

func mapHTTPError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
	message := parseErrorMessage(body)
	if message == "" {
		message = fmt.Sprintf("batch transcription request failed with status %d", resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return transcribe.NewError(transcribe.KindAuthentication, message)
	case http.StatusTooManyRequests:
		return transcribe.NewError(transcribe.KindRateLimited, message)
	case http.StatusRequestTimeout:
		return transcribe.NewError(transcribe.KindNetwork, message)
	default:
		if resp.StatusCode >= 500 {
			return transcribe.NewError(transcribe.KindNetwork, message)
		}
		return transcribe.NewError(transcribe.KindProvider, message)
	}
}

func parseErrorMessage(body []byte) string {
	var parsed struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if len(parsed.Error) > 0 {
			var asString string
			if err := json.Unmarshal(parsed.Error, &asString); err == nil && asString != "" {
				return truncate(asString)
			}
			var asObject struct {
				Message string `json:"message"`
			}
			if err := json.Unmarshal(parsed.Error, &asObject); err == nil && asObject.Message != "" {
				return truncate(asObject.Message)
			}
		}
		if parsed.Message != "" {
			return truncate(parsed.Message)
		}
	}
	return truncate(string(body))
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	const max = 300
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
