// Package synth provides the speech synthesis capability for the pipeline: an
// HTTP client for the standalone speech-engine service and a tiered fallback
// that tries engine quality levels in descending order.
package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/book-expert/doc-speech-service/internal/core"
)

// API endpoints and paths.
const (
	apiSynthesize = "/v1/synthesize"
)

// HTTP headers.
const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	contentTypeJSON   = "application/json"
	contentTypeMPEG   = "audio/mpeg"
)

// Static errors.
var (
	ErrTextEmpty          = errors.New("text cannot be empty")
	ErrReceivedEmptyAudio = errors.New("received empty audio data")
)

// Error messages.
const (
	errFmtUnexpectedContentType = "unexpected content type: expected audio/mpeg, got %s"
	errFmtServiceErrorWithCode  = "speech engine error (%s): %s (code: %s)"
	errFmtServiceNonOKStatus    = "speech engine returned non-OK status: %s, body: %s"
)

// EngineRequest defines the JSON payload structure for synthesis requests sent
// to the speech-engine service.
type EngineRequest struct {
	// Text contains the payload to synthesize, either plain text or SSML.
	Text string `json:"text"`

	// TextType identifies the payload format ("text" or "ssml").
	TextType string `json:"text_type"`

	// VoiceID selects the voice used for synthesis.
	VoiceID string `json:"voice_id"`

	// OutputFormat selects the audio container, e.g. "mp3".
	OutputFormat string `json:"output_format"`

	// Engine selects the engine quality tier for this attempt.
	Engine string `json:"engine"`
}

// engineErrorResponse represents a structured error response from the speech
// engine service.
type engineErrorResponse struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code,omitempty"`
}

// HTTPEngine is a client for the speech-engine HTTP service. It implements the
// raw synthesis capability for a single engine tier per call.
type HTTPEngine struct {
	httpClient *http.Client
	baseURL    string
}

// NewHTTPEngine creates and configures an HTTP client for the speech engine.
// The baseURL should include the protocol and port. The timeout applies to all
// requests made by this client.
func NewHTTPEngine(baseURL string, timeout time.Duration) *HTTPEngine {
	return &HTTPEngine{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Synthesize sends one synthesis request at the given engine tier and returns
// the raw audio bytes. Any non-OK response, including "engine unsupported for
// this voice", is returned as an error so the caller can fall back to the next
// tier.
func (c *HTTPEngine) Synthesize(
	ctx context.Context,
	input core.SynthesisInput,
	engine string,
) ([]byte, error) {
	if input.Text == "" {
		return nil, ErrTextEmpty
	}

	requestBody, err := json.Marshal(EngineRequest{
		Text:         input.Text,
		TextType:     input.TextType,
		VoiceID:      input.VoiceID,
		OutputFormat: input.OutputFormat,
		Engine:       engine,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + apiSynthesize

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		url,
		bytes.NewBuffer(requestBody),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)
	httpReq.Header.Set(headerAccept, contentTypeMPEG)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to send request to speech engine at %s: %w",
			c.baseURL,
			err,
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	contentType := resp.Header.Get(headerContentType)
	if contentType != contentTypeMPEG {
		return nil, fmt.Errorf(errFmtUnexpectedContentType, contentType)
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

// parseErrorResponse attempts to decode a structured JSON error from the
// service. If structured parsing fails, it falls back to returning the raw
// response body so diagnostic information is preserved.
func (c *HTTPEngine) parseErrorResponse(resp *http.Response) error {
	var errorResp engineErrorResponse

	err := json.NewDecoder(resp.Body).Decode(&errorResp)
	if err == nil {
		return fmt.Errorf(errFmtServiceErrorWithCode,
			resp.Status, errorResp.Detail, errorResp.ErrorCode)
	}

	body, _ := io.ReadAll(resp.Body)

	return fmt.Errorf(
		errFmtServiceNonOKStatus,
		resp.Status,
		string(body),
	)
}
