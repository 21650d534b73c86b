// Package openai is a small client for the chat completion and audio
// transcription endpoints of an OpenAI-compatible API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	DefaultBaseURL            = "https://api.openai.com/v1"
	DefaultModel              = "gpt-4o"
	DefaultTranscriptionModel = "whisper-1"
	DefaultTimeout            = 60 * time.Second
)

var (
	// ErrNoCredential is returned before any request is built when the token
	// source yields no key.
	ErrNoCredential = errors.New("no API key available")
	// ErrInvalidResponse covers network failures, non-2xx statuses and
	// envelopes that cannot be decoded.
	ErrInvalidResponse = errors.New("invalid response from completion API")
	// ErrTranscription wraps every transcription failure.
	ErrTranscription = errors.New("transcription failed")
)

// APIError is a non-2xx reply. It matches ErrInvalidResponse with errors.Is.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

func (e *APIError) Is(target error) bool { return target == ErrInvalidResponse }

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the input of Complete. An empty Model uses the
// client's default model.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Options configures a Client. Zero values select the defaults.
type Options struct {
	BaseURL            string
	Model              string
	TranscriptionModel string
	Timeout            time.Duration
	// Transport is the base round tripper under the auth transport.
	Transport http.RoundTripper
}

// Client talks to the completion and transcription endpoints.
type Client struct {
	baseURL            string
	model              string
	transcriptionModel string
	tokens             oauth2.TokenSource
	httpClient         *http.Client
}

// NewClient returns a client that authenticates every request with a bearer
// token from ts.
func NewClient(ts oauth2.TokenSource, opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.TranscriptionModel == "" {
		opts.TranscriptionModel = DefaultTranscriptionModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Client{
		baseURL:            strings.TrimRight(opts.BaseURL, "/"),
		model:              opts.Model,
		transcriptionModel: opts.TranscriptionModel,
		tokens:             ts,
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: &oauth2.Transport{Source: ts, Base: opts.Transport},
		},
	}
}

// Model returns the default chat model.
func (c *Client) Model() string { return c.model }

// checkCredential fails fast when no key is available so that no request
// leaves the process without one.
func (c *Client) checkCredential() error {
	if c.tokens == nil {
		return ErrNoCredential
	}
	tok, err := c.tokens.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoCredential, err)
	}
	if tok == nil || tok.AccessToken == "" {
		return ErrNoCredential
	}
	return nil
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends req to /chat/completions and returns the first choice's
// message content.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if err := c.checkCredential(); err != nil {
		return "", err
	}
	model := req.Model
	if model == "" {
		model = c.model
	}
	payload, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshalling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	body, err := c.do(httpReq)
	if err != nil {
		return "", err
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: decoding response: %w", ErrInvalidResponse, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == nil {
		return "", fmt.Errorf("%w: no message content", ErrInvalidResponse)
	}
	return *resp.Choices[0].Message.Content, nil
}

type transcriptionResponse struct {
	Text *string `json:"text"`
}

// Transcribe uploads the audio file at audioPath to /audio/transcriptions
// and returns the recognised text. Every failure wraps ErrTranscription,
// except a missing key which is ErrNoCredential.
func (c *Client) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if err := c.checkCredential(); err != nil {
		return "", err
	}
	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("%w: opening audio: %w", ErrTranscription, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("model", c.transcriptionModel); err != nil {
		return "", fmt.Errorf("%w: %w", ErrTranscription, err)
	}
	part, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTranscription, err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("%w: reading audio: %w", ErrTranscription, err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrTranscription, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", &buf)
	if err != nil {
		return "", fmt.Errorf("%w: creating request: %w", ErrTranscription, err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	httpReq.Header.Set("Accept", "application/json")

	body, err := c.do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTranscription, err)
	}
	var resp transcriptionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: decoding response: %w", ErrTranscription, err)
	}
	if resp.Text == nil {
		return "", fmt.Errorf("%w: response has no text", ErrTranscription)
	}
	return strings.TrimSpace(*resp.Text), nil
}

// do sends req and returns the body of a 2xx reply.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %w", ErrInvalidResponse, err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("%w: reading response body: %w", ErrInvalidResponse, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	return body, nil
}
