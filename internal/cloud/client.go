// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Configuration constants for the cloud API.
const (
	// DefaultBaseURL is the OpenAI API base URL. Proxies and compatible
	// servers are reached by overriding it.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-4o"

	// DefaultTemperature is the sampling temperature for generation.
	DefaultTemperature = 0.7

	// DefaultMaxOutputTokens caps the length of one generation.
	DefaultMaxOutputTokens = 4000

	// DefaultMaxRetries is the number of attempts made before the first
	// byte of a stream arrives.
	DefaultMaxRetries = 3

	// DefaultConnectTimeout bounds the wait for response headers.
	DefaultConnectTimeout = 60 * time.Second

	retryBaseDelay = 500 * time.Millisecond
	retryMaxDelay  = 10 * time.Second

	// maxErrorBody limits how much of an error response is read.
	maxErrorBody = 64 * 1024
)

// API selects the streaming endpoint.
type API string

const (
	// APIChat streams /chat/completions deltas.
	APIChat API = "chat"
	// APIResponses streams /responses output_text events.
	APIResponses API = "responses"
)

// ParseAPI parses an API name. The empty string selects APIResponses.
func ParseAPI(s string) (API, error) {
	switch API(strings.ToLower(strings.TrimSpace(s))) {
	case "", APIResponses:
		return APIResponses, nil
	case APIChat:
		return APIChat, nil
	}
	return "", fmt.Errorf("unknown cloud api %q (want chat or responses)", s)
}

// =============================================================================
// ERRORS
// =============================================================================

// Error variables for common API failures.
var (
	// ErrNotConfigured indicates the API key is not set.
	ErrNotConfigured = errors.New("cloud API key not configured")

	// ErrAuthFailed indicates the API key was rejected.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")

	// ErrModelNotFound indicates the requested model does not exist.
	ErrModelNotFound = errors.New("model not found")
)

// APIError is an error response from the API, either an HTTP failure or
// an error event inside the stream.
type APIError struct {
	Status     int // 0 for in-stream errors
	Code       string
	Message    string
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString("cloud API error")
	if e.Code != "" {
		fmt.Fprintf(&b, " [%s]", e.Code)
	}
	if e.Status != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// Unwrap maps well-known statuses to the sentinel errors.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrAuthFailed
	case http.StatusNotFound:
		return ErrModelNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	}
	return nil
}

// Retryable reports whether the request may be attempted again.
func (e *APIError) Retryable() bool {
	return e.Status == http.StatusTooManyRequests || (e.Status >= 500 && e.Status < 600)
}

// apiErrorResponse is the error body shape shared by both APIs.
type apiErrorResponse struct {
	Error *struct {
		Code    json.RawMessage `json:"code"`
		Type    string          `json:"type"`
		Message string          `json:"message"`
	} `json:"error"`
}

func parseErrorResponse(status int, header http.Header, body []byte) *APIError {
	apiErr := &APIError{Status: status, RetryAfter: parseRetryAfter(header.Get("Retry-After"))}

	var parsed apiErrorResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil {
		apiErr.Code = errorCode(parsed.Error.Code, parsed.Error.Type)
		apiErr.Message = parsed.Error.Message
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(body))
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

// errorCode accepts both string and numeric codes.
func errorCode(raw json.RawMessage, fallback string) string {
	if len(raw) == 0 || string(raw) == "null" {
		return fallback
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(v); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		return time.Until(t)
	}
	return 0
}

// =============================================================================
// CLIENT
// =============================================================================

// Config configures a Client.
type Config struct {
	APIKey          string
	BaseURL         string
	Model           string
	API             API
	Temperature     float64
	MaxOutputTokens int
	MaxRetries      int

	// ConnectTimeout bounds the wait for response headers. The stream
	// body itself is bounded only by the request context.
	ConnectTimeout time.Duration

	// Logger receives request logs. Nil discards them.
	Logger *log.Logger
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:         DefaultBaseURL,
		Model:           DefaultModel,
		API:             APIResponses,
		Temperature:     DefaultTemperature,
		MaxOutputTokens: DefaultMaxOutputTokens,
		MaxRetries:      DefaultMaxRetries,
		ConnectTimeout:  DefaultConnectTimeout,
	}
}

// Client streams completions from an OpenAI-compatible API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *log.Logger
}

// NewClient creates a client. Zero fields of cfg take their defaults.
func NewClient(cfg Config) *Client {
	def := DefaultConfig()
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.API == "" {
		cfg.API = def.API
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = def.Temperature
	}
	if cfg.MaxOutputTokens == 0 {
		cfg.MaxOutputTokens = def.MaxOutputTokens
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = def.ConnectTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				MaxIdleConnsPerHost:   4,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: cfg.ConnectTimeout,
			},
		},
		logger: logger,
	}
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// Model returns the configured model.
func (c *Client) Model() string {
	return c.cfg.Model
}

// IsConfigured reports whether an API key is set.
func (c *Client) IsConfigured() bool {
	return c.cfg.APIKey != ""
}

// =============================================================================
// REQUESTS
// =============================================================================

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) Message {
	return Message{Role: "system", Content: content}
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Stream      bool      `json:"stream"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type responsesRequest struct {
	Model           string    `json:"model"`
	Instructions    string    `json:"instructions,omitempty"`
	Input           []Message `json:"input"`
	Stream          bool      `json:"stream"`
	Temperature     float64   `json:"temperature"`
	MaxOutputTokens int       `json:"max_output_tokens,omitempty"`
}

func (c *Client) endpoint(messages []Message) (string, any) {
	if c.cfg.API == APIChat {
		return "/chat/completions", chatRequest{
			Model:       c.cfg.Model,
			Messages:    messages,
			Stream:      true,
			Temperature: c.cfg.Temperature,
			MaxTokens:   c.cfg.MaxOutputTokens,
		}
	}
	// System turns become instructions on the responses API.
	var instructions []string
	input := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == "system" {
			instructions = append(instructions, m.Content)
			continue
		}
		input = append(input, m)
	}
	return "/responses", responsesRequest{
		Model:           c.cfg.Model,
		Instructions:    strings.Join(instructions, "\n\n"),
		Input:           input,
		Stream:          true,
		Temperature:     c.cfg.Temperature,
		MaxOutputTokens: c.cfg.MaxOutputTokens,
	}
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("User-Agent", "inkwell")
}

// open posts body to path and returns a 200 response. Transport failures,
// 429 and 5xx responses are retried with exponential backoff. Once a
// response is returned nothing is retried.
func (c *Client) open(ctx context.Context, path string, body []byte) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, c.backoff(attempt, lastErr)); err != nil {
				return nil, err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		c.setHeaders(req)

		start := time.Now()
		c.logger.Printf("API Request | method=POST path=%s attempt=%d", path, attempt+1)
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			c.logger.Printf("API Error | path=%s error=%v", path, err)
			lastErr = err
			continue
		}
		c.logger.Printf("API Response | status=%d duration=%v", resp.StatusCode, time.Since(start))

		if resp.StatusCode == http.StatusOK {
			return resp, nil
		}

		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		apiErr := parseErrorResponse(resp.StatusCode, resp.Header, data)
		if !apiErr.Retryable() {
			return nil, apiErr
		}
		lastErr = apiErr
	}
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// backoff returns the delay before the given attempt, honoring a
// Retry-After hint from the previous failure.
func (c *Client) backoff(attempt int, lastErr error) time.Duration {
	var apiErr *APIError
	if errors.As(lastErr, &apiErr) && apiErr.RetryAfter > 0 {
		return min(apiErr.RetryAfter, retryMaxDelay)
	}
	delay := retryBaseDelay * time.Duration(1<<uint(attempt-1))
	return min(delay, retryMaxDelay)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
