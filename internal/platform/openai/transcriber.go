// Package openai provides speech-to-text over the OpenAI audio
// transcription API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/phrazzld/lectern-api/internal/config"
)

const (
	defaultTranscriptionEndpoint = "https://api.openai.com/v1/audio/transcriptions"
	transcriptionTimeout         = 10 * time.Minute
)

var (
	// ErrMissingAPIKey indicates the transcription API key is not configured.
	ErrMissingAPIKey = errors.New("openai api key is not configured")

	// ErrTranscriptionFailed indicates the API rejected or failed the request.
	ErrTranscriptionFailed = errors.New("transcription request failed")

	// ErrEmptyTranscript indicates the API returned no text for the audio.
	ErrEmptyTranscript = errors.New("transcription produced no text")
)

// Transcriber converts audio files to text via the OpenAI transcriptions
// endpoint.
type Transcriber struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// NewTranscriber creates a Transcriber from the transcription config.
func NewTranscriber(logger *slog.Logger, cfg config.TranscriptionConfig) *Transcriber {
	return &Transcriber{
		apiKey:   cfg.OpenAIAPIKey,
		model:    cfg.Model,
		endpoint: defaultTranscriptionEndpoint,
		client:   &http.Client{Timeout: transcriptionTimeout},
		logger:   logger.With(slog.String("component", "transcriber")),
	}
}

// Transcribe uploads the audio file at path and returns its transcript.
func (t *Transcriber) Transcribe(ctx context.Context, path string) (string, error) {
	if strings.TrimSpace(t.apiKey) == "" {
		return "", ErrMissingAPIKey
	}

	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open audio file: %w", err)
	}
	defer func() { _ = file.Close() }()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("failed to create multipart file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("failed to copy audio data: %w", err)
	}
	if err := writer.WriteField("model", t.model); err != nil {
		return "", fmt.Errorf("failed to write model field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, body)
	if err != nil {
		return "", fmt.Errorf("failed to create transcription request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranscriptionFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", t.apiError(resp)
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %v", ErrTranscriptionFailed, err)
	}

	transcript := strings.TrimSpace(payload.Text)
	if transcript == "" {
		return "", ErrEmptyTranscript
	}

	t.logger.InfoContext(ctx, "transcription completed",
		slog.String("file", filepath.Base(path)),
		slog.Int("transcript_chars", len(transcript)),
		slog.Duration("elapsed", time.Since(start)))

	return transcript, nil
}

// apiError extracts the structured error message the API returns on
// failure, falling back to the raw body.
func (t *Transcriber) apiError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var apiErr struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return fmt.Errorf("%w: status %d type %s: %s",
			ErrTranscriptionFailed, resp.StatusCode, apiErr.Error.Type, apiErr.Error.Message)
	}

	return fmt.Errorf("%w: status %d: %s", ErrTranscriptionFailed, resp.StatusCode, string(body))
}
