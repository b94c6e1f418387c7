// Package tts provides the synthesis capability: a client for a standalone voice cloning
// server that renders text in the voice of a reference audio sample.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/book-expert/voice-clone-service/internal/core"
)

// API endpoints and paths.
const (
	apiGenerateSpeech = "/v1/generate/speech"
	apiHealth         = "/health"
)

// HTTP headers.
const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	contentTypeJSON   = "application/json"
	contentTypeAudio  = "audio/"
	acceptAudio       = "audio/*"
)

// Default values.
const (
	defaultTemperature = 0.75
	defaultLanguage    = "en"
	filePermissions    = 0o600
)

// Error messages.
const (
	errFmtServiceErrorWithCode = "TTS service error (%s): %s (code: %s)"
	errFmtServiceNonOKStatus   = "TTS service returned non-OK status: %s, body: %s"
)

// Static errors.
var (
	ErrTextEmpty          = errors.New("text cannot be empty")
	ErrReferenceEmpty     = errors.New("reference audio path cannot be empty")
	ErrOutputPathEmpty    = errors.New("output path cannot be empty")
	ErrUnexpectedType     = errors.New("unexpected content type")
	ErrReceivedEmptyAudio = errors.New("received empty audio data")
)

// Client talks to the voice cloning server. It is safe for concurrent use.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	temperature float64
}

// Request defines the JSON payload of a generation request.
type Request struct {
	// Text contains the input text to convert to speech.
	Text string `json:"text"`

	// SpeakerRefPath is the server-side path to the reference audio used for cloning.
	SpeakerRefPath string `json:"speaker_ref_path"`

	// Language specifies the target language code (e.g., "en", "es").
	Language string `json:"language"`

	// Temperature controls randomness in speech generation.
	Temperature float64 `json:"temperature"`
}

// ErrorResponse represents a structured error response from the TTS server.
type ErrorResponse struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code,omitempty"`
}

// NewClient creates a client for the server at baseURL (e.g. "http://localhost:8000").
// A zero temperature selects the default.
func NewClient(baseURL string, timeout time.Duration, temperature float64) *Client {
	if temperature == 0 {
		temperature = defaultTemperature
	}

	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		temperature: temperature,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Synthesize renders req.Text in the voice of req.ReferencePath and writes the audio to req.OutputPath.
func (c *Client) Synthesize(ctx context.Context, req core.SynthesisRequest) error {
	validateErr := validateRequest(req)
	if validateErr != nil {
		return validateErr
	}

	language := req.Language
	if language == "" {
		language = defaultLanguage
	}

	audioData, err := c.GenerateSpeech(ctx, Request{
		Text:           req.Text,
		SpeakerRefPath: req.ReferencePath,
		Language:       language,
		Temperature:    c.temperature,
	})
	if err != nil {
		return err
	}

	writeErr := os.WriteFile(req.OutputPath, audioData, filePermissions)
	if writeErr != nil {
		return fmt.Errorf("failed to write audio file: %w", writeErr)
	}

	return nil
}

// GenerateSpeech sends a generation request and returns the raw audio data.
func (c *Client) GenerateSpeech(ctx context.Context, req Request) ([]byte, error) {
	requestBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+apiGenerateSpeech,
		bytes.NewReader(requestBody),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)
	httpReq.Header.Set(headerAccept, acceptAudio)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to TTS service at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	contentType := resp.Header.Get(headerContentType)
	if !strings.HasPrefix(contentType, contentTypeAudio) {
		return nil, fmt.Errorf("%w: expected audio, got %s", ErrUnexpectedType, contentType)
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", err)
	}

	if len(audioData) == 0 {
		return nil, ErrReceivedEmptyAudio
	}

	return audioData, nil
}

// HealthCheck verifies that the TTS server is running and has its model loaded.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+apiHealth, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed for service at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status: %s", resp.Status)
	}

	return nil
}

func validateRequest(req core.SynthesisRequest) error {
	if req.Text == "" {
		return ErrTextEmpty
	}

	if req.ReferencePath == "" {
		return ErrReferenceEmpty
	}

	if req.OutputPath == "" {
		return ErrOutputPathEmpty
	}

	return nil
}

// parseErrorResponse decodes a structured JSON error, falling back to the raw body.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errorResp ErrorResponse

	err := json.Unmarshal(body, &errorResp)
	if err == nil && errorResp.Detail != "" {
		return fmt.Errorf(errFmtServiceErrorWithCode, resp.Status, errorResp.Detail, errorResp.ErrorCode)
	}

	return fmt.Errorf(errFmtServiceNonOKStatus, resp.Status, string(body))
}
