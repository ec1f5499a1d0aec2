package realtime

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/emmett/dictate/internal/applog"
	"github.com/emmett/dictate/internal/audio"
	"github.com/emmett/dictate/internal/transcribe"
)

const providerName = "openai-realtime"

// Client drives one-shot realtime transcription sessions against the
// OpenAI realtime API, grounded on OpenAiRealtimeTranscriptionClient.
type Client struct {
	config Config
	log    *applog.Logger
}

func NewClient(config Config, log *applog.Logger) *Client {
	return &Client{config: config, log: log}
}

func (c *Client) Name() string { return providerName }

func (c *Client) modelSupportsRealtime() bool {
	return modelSupportsRealtime(c.config.RealtimeModel)
}

// apiKey resolves the API key to use, in priority order: an explicit
// config value, the configured APIKeyProvider (e.g. internal/store's
// APIKeyStore), then the OPENAI_API_KEY environment variable. Grounded on
// OpenAiRealtimeTranscriptionClient::api_key.
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

// Transcribe runs one full realtime session over the whole clip: append,
// commit, wait for completion. Streaming callers that want incremental
// deltas while recording is still in progress should use BeginSession
// directly instead.
func (c *Client) Transcribe(ctx context.Context, audioBytes []byte, opts transcribe.Options) (transcribe.Result, error) {
	pcm, sampleRate, err := decodeWAV(audioBytes)
	if err != nil {
		return transcribe.Result{}, transcribe.NewError(transcribe.KindInvalidResponse, err.Error())
	}

	session, err := c.BeginSession(ctx, opts)
	if err != nil {
		return transcribe.Result{}, err
	}

	if err := session.AppendPCM16Mono(pcm, sampleRate); err != nil {
		session.Close()
		return transcribe.Result{}, err
	}

	return session.CommitAndWait(ctx)
}

// BeginSession opens a realtime websocket session and returns a handle the
// caller can feed audio into incrementally (e.g. as malgo callback frames
// arrive) before committing.
func (c *Client) BeginSession(ctx context.Context, opts transcribe.Options) (*Session, error) {
	if !c.modelSupportsRealtime() {
		return nil, transcribe.NewError(transcribe.KindProvider,
			fmt.Sprintf("configured model %q does not support realtime transcription", c.config.RealtimeModel))
	}

	apiKey, err := c.apiKey()
	if err != nil {
		return nil, err
	}

	endpoint, err := resolveEndpoint(c.config.Endpoint)
	if err != nil {
		return nil, transcribe.NewError(transcribe.KindProvider, err.Error())
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+apiKey)
	header.Set("OpenAI-Beta", betaHeaderValue)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, endpoint, header)
	if err != nil {
		return nil, mapConnectError(err, resp)
	}

	commitTimeout := c.config.CommitTimeout
	if commitTimeout <= 0 {
		commitTimeout = DefaultCommitTimeout
	}

	session := &Session{
		conn:          conn,
		log:           c.log,
		commitTimeout: commitTimeout,
		resultCh:      make(chan sessionResult, 1),
	}

	sessionUpdate := buildSessionUpdatePayload(c.config.TranscriptionModel, opts)
	if err := conn.WriteJSON(sessionUpdate); err != nil {
		conn.Close()
		return nil, mapWriteError(err)
	}

	go session.readLoop(opts.OnDelta)

	return session, nil
}

// Session is one open realtime transcription websocket connection.
type Session struct {
	conn          *websocket.Conn
	log           *applog.Logger
	commitTimeout time.Duration

	writeMu    sync.Mutex
	commitOnce sync.Once
	commitSent bool

	resultCh  chan sessionResult
	closeOnce sync.Once
}

type sessionResult struct {
	result transcribe.Result
	err    error
}

// AppendPCM16Mono resamples pcm (captured at sampleRate) to the realtime
// API's required 24kHz and streams it as an input_audio_buffer.append
// event. A no-op once Commit has been called.
func (s *Session) AppendPCM16Mono(pcm []int16, sampleRate uint32) error {
	if s.commitSent {
		return nil
	}

	resampled := audio.Resample(pcm, sampleRate, outputSampleRateHz)
	if len(resampled) == 0 {
		return nil
	}

	payload := map[string]any{
		"type":  "input_audio_buffer.append",
		"audio": encodePCM16Base64(resampled),
	}
	return s.writeJSON(payload)
}

// Commit tells the server no more audio is coming for this turn.
func (s *Session) Commit() error {
	var writeErr error
	s.commitOnce.Do(func() {
		s.commitSent = true
		writeErr = s.writeJSON(map[string]any{"type": "input_audio_buffer.commit"})
	})
	return writeErr
}

// Close tears down the websocket without waiting for a result.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.writeMu.Lock()
		s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.writeMu.Unlock()
		s.conn.Close()
	})
}

// CommitAndWait commits any pending audio and blocks until the server
// reports a finished transcript, ctx is cancelled, or commitTimeout
// elapses — whichever comes first. On timeout the session is closed and an
// error is returned, grounded on RealtimeTranscriptionSession::commit_and_wait.
func (s *Session) CommitAndWait(ctx context.Context) (transcribe.Result, error) {
	if err := s.Commit(); err != nil {
		return transcribe.Result{}, err
	}

	timer := time.NewTimer(s.commitTimeout)
	defer timer.Stop()

	select {
	case res := <-s.resultCh:
		return res.result, res.err
	case <-timer.C:
		s.Close()
		return transcribe.Result{}, transcribe.NewError(transcribe.KindNetwork,
			fmt.Sprintf("realtime transcription timed out after %s waiting for commit", s.commitTimeout))
	case <-ctx.Done():
		s.Close()
		return transcribe.Result{}, ctx.Err()
	}
}

func (s *Session) writeJSON(v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteJSON(v); err != nil {
		return mapWriteError(err)
	}
	return nil
}

// readLoop consumes server events until the session completes (a completed
// transcript arrives after commit, or the connection closes), publishing
// exactly one sessionResult.
func (s *Session) readLoop(onDelta func(string)) {
	var transcriptFromDeltas strings.Builder
	var transcriptDone *string

	publish := func(res transcribe.Result, err error) {
		select {
		case s.resultCh <- sessionResult{result: res, err: err}:
		default:
		}
	}

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if transcriptDone != nil {
				publish(transcribe.Result{Text: *transcriptDone}, nil)
				return
			}
			if strings.TrimSpace(transcriptFromDeltas.String()) != "" {
				publish(transcribe.Result{Text: transcriptFromDeltas.String()}, nil)
				return
			}
			publish(transcribe.Result{}, transcribe.NewError(transcribe.KindInvalidResponse,
				"realtime API did not return a transcript"))
			return
		}

		event := parseServerEvent(raw)
		switch event.kind {
		case eventKindDelta:
			if onDelta != nil {
				onDelta(event.text)
			}
			transcriptFromDeltas.WriteString(event.text)
		case eventKindCompleted:
			done := event.text
			transcriptDone = &done
			if s.commitSent {
				publish(transcribe.Result{Text: done}, nil)
				return
			}
		case eventKindError:
			publish(transcribe.Result{}, transcribe.NewError(transcribe.KindProvider, event.text))
			return
		default:
			// session.created / session.updated / speech_started /
			// speech_stopped / unrecognized events carry no transcript
			// state and are otherwise ignored.
		}
	}
}

func buildSessionUpdatePayload(transcriptionModel string, opts transcribe.Options) map[string]any {
	transcriptionConfig := map[string]any{"model": transcriptionModel}

	if language := strings.TrimSpace(opts.Language); language != "" {
		transcriptionConfig["language"] = language
	}
	if prompt := buildPrompt(opts.Prompt, opts.ContextHint); prompt != "" {
		transcriptionConfig["prompt"] = prompt
	}

	return map[string]any{
		"type": "transcription_session.update",
		"session": map[string]any{
			"input_audio_format":        "pcm16",
			"turn_detection":            nil,
			"input_audio_transcription": transcriptionConfig,
		},
	}
}

func buildPrompt(prompt, contextHint string) string {
	prompt = strings.TrimSpace(prompt)
	contextHint = strings.TrimSpace(contextHint)
	switch {
	case prompt != "" && contextHint != "":
		return prompt + "\n" + contextHint
	case prompt != "":
		return prompt
	case contextHint != "":
		return contextHint
	default:
		return ""
	}
}

func encodePCM16Base64(samples []int16) string {
	bytes := make([]byte, len(samples)*2)
	for i, s := range samples {
		bytes[2*i] = byte(uint16(s))
		bytes[2*i+1] = byte(uint16(s) >> 8)
	}
	return base64.StdEncoding.EncodeToString(bytes)
}

// resolveEndpoint strips any existing model/intent query parameters from
// endpoint and appends intent=transcription, matching
// resolve_realtime_endpoint.
func resolveEndpoint(endpoint string) (string, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid realtime websocket endpoint %q: %w", endpoint, err)
	}

	query := parsed.Query()
	query.Del("model")
	query.Del("intent")
	query.Set("intent", "transcription")
	parsed.RawQuery = query.Encode()

	return parsed.String(), nil
}

func mapConnectError(err error, resp *http.Response) error {
	if resp != nil {
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return transcribe.NewError(transcribe.KindAuthentication,
				fmt.Sprintf("realtime websocket authentication failed (HTTP %d)", resp.StatusCode))
		case http.StatusTooManyRequests:
			return transcribe.NewError(transcribe.KindRateLimited,
				fmt.Sprintf("realtime websocket was rate limited (HTTP %d)", resp.StatusCode))
		}
		if resp.StatusCode >= 500 {
			return transcribe.NewError(transcribe.KindNetwork,
				fmt.Sprintf("realtime websocket server error (HTTP %d)", resp.StatusCode))
		}
		return transcribe.NewError(transcribe.KindProvider,
			fmt.Sprintf("realtime websocket connection failed (HTTP %d)", resp.StatusCode))
	}
	return transcribe.NewError(transcribe.KindNetwork, err.Error())
}

func mapWriteError(err error) error {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return transcribe.NewError(transcribe.KindNetwork, "realtime websocket connection closed")
	}
	return transcribe.NewError(transcribe.KindNetwork, err.Error())
}

// decodeWAV extracts PCM16 samples and the sample rate from a RIFF/WAVE
// clip produced by internal/audio, so Transcribe can accept the same
// []byte the pipeline already has in hand.
func decodeWAV(data []byte) ([]int16, uint32, error) {
	if len(data) < 44 {
		return nil, 0, fmt.Errorf("audio clip is too short to be a valid WAV file")
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, fmt.Errorf("audio clip is not a RIFF/WAVE file")
	}

	sampleRate := uint32(data[24]) | uint32(data[25])<<8 | uint32(data[26])<<16 | uint32(data[27])<<24

	dataOffset, dataSize, err := findDataChunk(data)
	if err != nil {
		return nil, 0, err
	}

	pcm := make([]int16, dataSize/2)
	for i := range pcm {
		lo := data[dataOffset+2*i]
		hi := data[dataOffset+2*i+1]
		pcm[i] = int16(uint16(lo) | uint16(hi)<<8)
	}
	return pcm, sampleRate, nil
}

func findDataChunk(data []byte) (offset int, size int, err error) {
	pos := 12
	for pos+8 <= len(data) {
		chunkID := string(data[pos : pos+4])
		chunkSize := int(uint32(data[pos+4]) | uint32(data[pos+5])<<8 | uint32(data[pos+6])<<16 | uint32(data[pos+7])<<24)
		bodyStart := pos + 8
		if chunkID == "data" {
			if bodyStart+chunkSize > len(data) {
				chunkSize = len(data) - bodyStart
			}
			return bodyStart, chunkSize, nil
		}
		pos = bodyStart + chunkSize
		if chunkSize%2 == 1 {
			pos++
		}
	}
	return 0, 0, fmt.Errorf("WAV file has no data chunk")
}
