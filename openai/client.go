package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dubkit/dubkit/provider"
)

const (
	// DefaultBaseURL is the OpenAI API endpoint.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel serves calls when the config names none.
	DefaultModel = "gpt-4.1-mini"

	// DefaultAPIKeyEnv is the environment variable consulted for the key.
	DefaultAPIKeyEnv = "OPENAI_API_KEY"

	// DefaultTimeout bounds a single call when the config sets none.
	DefaultTimeout = 2 * time.Minute

	endpointPath = "/chat/completions"
)

// Client talks to an OpenAI-compatible chat-completions endpoint.
// It implements provider.Client.
type Client struct {
	url         string
	apiKey      string
	model       string
	system      string
	temperature float64
	maxTokens   int
	schema      json.RawMessage

	// do allows tests to intercept requests.
	do func(*http.Request) (*http.Response, error)
}

// New creates a Client from the given configuration.
// The API key is resolved from Config.APIKey, then Config.APIKeyEnv, then
// OPENAI_API_KEY; a missing key is an error.
func New(cfg provider.Config) (*Client, error) {
	key := cfg.ResolveAPIKey(DefaultAPIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("openai: %w: missing api key", provider.ErrInvalidRequest)
	}

	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	schema, err := json.Marshal(provider.ResponseSchema())
	if err != nil {
		return nil, fmt.Errorf("openai: marshal response schema: %w", err)
	}

	hc := &http.Client{Timeout: timeout}
	return &Client{
		url:         strings.TrimRight(base, "/") + endpointPath,
		apiKey:      key,
		model:       model,
		system:      cfg.System(),
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		schema:      schema,
		do:          hc.Do,
	}, nil
}

// Provider returns the provider name.
func (c *Client) Provider() string { return "openai" }

// Close releases client resources. The HTTP client holds none that need
// explicit teardown.
func (c *Client) Close() error { return nil }

// Wire types for the chat-completions dialect.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    *float64        `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *jsonSchema `json:"json_schema,omitempty"`
}

type jsonSchema struct {
	Name   string          `json:"name"`
	Schema json.RawMessage `json:"schema"`
	Strict bool            `json:"strict,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Translate sends one batch and returns the raw reply.
// Failures are classified into provider errors; throttling hints from the
// response headers ride along on the error.
func (c *Client) Translate(ctx context.Context, req provider.Request) (*provider.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = c.model
	}
	system := req.System
	if system == "" {
		system = c.system
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	payload, err := json.Marshal(req.Items)
	if err != nil {
		return nil, fmt.Errorf("openai: encode items: %w", err)
	}

	body := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: string(payload)},
		},
		MaxTokens: maxTokens,
		ResponseFormat: &responseFormat{
			Type: "json_schema",
			JSONSchema: &jsonSchema{
				Name:   "translations",
				Schema: c.schema,
				Strict: true,
			},
		},
	}
	if c.temperature > 0 {
		body.Temperature = &c.temperature
	}

	raw, err := json.Marshal(&body)
	if err != nil {
		return nil, fmt.Errorf("openai: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("openai: new request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, provider.NewError("openai", "translate", provider.ErrTimeout, true)
		}
		pe := provider.NewError("openai", "translate",
			fmt.Errorf("%w: %v", provider.ErrUnavailable, err), true)
		return nil, pe
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, c.classifyStatus(resp)
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, provider.NewError("openai", "translate",
			fmt.Errorf("%w: decode: %v", provider.ErrMalformedResponse, err), true)
	}
	if len(cr.Choices) == 0 || cr.Choices[0].Message.Content == "" {
		return nil, provider.NewError("openai", "translate",
			fmt.Errorf("%w: empty choices", provider.ErrMalformedResponse), true)
	}

	respModel := cr.Model
	if respModel == "" {
		respModel = model
	}
	return &provider.Response{
		Content: cr.Choices[0].Message.Content,
		Model:   respModel,
		Usage: provider.Usage{
			InputTokens:  cr.Usage.PromptTokens,
			OutputTokens: cr.Usage.CompletionTokens,
		},
		Duration: time.Since(start),
	}, nil
}

// classifyStatus maps a non-2xx response to a provider error, harvesting
// throttling hints from the headers on 429.
func (c *Client) classifyStatus(resp *http.Response) error {
	slurp, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	msg := strings.TrimSpace(string(slurp))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		pe := &provider.Error{
			Provider:  "openai",
			Op:        "translate",
			Err:       fmt.Errorf("%w: %s", provider.ErrRateLimited, msg),
			Retryable: true,
			Status:    resp.StatusCode,
		}
		pe.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
		pe.ResetRequests = parseReset(resp.Header.Get("x-ratelimit-reset-requests"))
		pe.ResetTokens = parseReset(resp.Header.Get("x-ratelimit-reset-tokens"))
		return pe

	case resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode/100 == 5:
		return &provider.Error{
			Provider:  "openai",
			Op:        "translate",
			Err:       fmt.Errorf("%w: %s", provider.ErrUnavailable, msg),
			Retryable: true,
			Status:    resp.StatusCode,
		}

	default:
		return &provider.Error{
			Provider: "openai",
			Op:       "translate",
			Err:      fmt.Errorf("%w: %s", provider.ErrInvalidRequest, msg),
			Status:   resp.StatusCode,
		}
	}
}

// parseRetryAfter handles the integer-seconds form of Retry-After.
// The HTTP-date form is rare on these endpoints and is ignored.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if d, err := time.ParseDuration(v); err == nil && d >= 0 {
		return d
	}
	return 0
}

// parseReset handles the duration strings OpenAI puts in its
// x-ratelimit-reset-* headers ("1s", "6m12s", "120ms").
func parseReset(v string) time.Duration {
	if v == "" {
		return 0
	}
	if d, err := time.ParseDuration(v); err == nil && d >= 0 {
		return d
	}
	return 0
}
