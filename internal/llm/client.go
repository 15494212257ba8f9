// Package llm provides the resilient completion client used for field
// extraction. The external service is treated as fully unreliable: every
// call carries a per-attempt timeout, bounded retries with exponential
// backoff, and a fail-fast health probe for pre-flight gating.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/credable-eng/fieldsift/internal/tokens"
)

const (
	TogetherName    = "together"
	TogetherBaseURL = "https://api.together.xyz"

	togetherDefaultModel = "deepseek-ai/DeepSeek-R1-Distill-Llama-70B-free"

	// ContextWindow is the model's combined input+output token budget.
	ContextWindow = 8192
	// MinCompletionTokens is the floor for the completion's max_tokens,
	// kept even when the prompt nearly fills the context window.
	MinCompletionTokens = 256
)

// ErrUnavailable marks the completion service as unreachable after the
// retry budget is spent (or the health probe failed). Callers reject the
// whole request on this error.
var ErrUnavailable = errors.New("completion service unavailable")

// Client is the completion service as seen by the extraction pipeline.
type Client interface {
	// Complete sends prompt and returns the raw completion text with
	// any surrounding code fence already stripped.
	Complete(ctx context.Context, prompt string) (string, error)

	// HealthCheck issues a minimal one-token completion with no retry.
	// Used as a pre-flight gate before any uploaded document is read.
	HealthCheck(ctx context.Context) error

	// Name returns the client identifier (e.g. "together").
	Name() string
}

// TogetherConfig holds configuration for the Together completion client.
type TogetherConfig struct {
	APIKey        string
	BaseURL       string
	Model         string
	Temperature   float64       // default 0.2
	Stop          []string      // default ["###"]
	ContextWindow int           // combined input+output token budget (default 8192)
	MaxAttempts   uint          // retry budget per call (default 3)
	RetryDelay    time.Duration // base backoff delay, doubles per attempt (default 2s)
	Timeout       time.Duration // per-attempt timeout (default 60s)
	HTTPClient    *http.Client  // optional (tests)
}

// TogetherClient implements Client against the Together completions API.
// TLS verification stays on the default transport; it is not configurable.
type TogetherClient struct {
	apiKey        string
	baseURL       string
	model         string
	temperature   float64
	stop          []string
	contextWindow int
	maxAttempts   uint
	retryDelay    time.Duration
	client        *http.Client
	codec         tokens.Codec
}

// NewTogetherClient creates a completion client. codec must be the same
// shared vocabulary used by the text trimmer so input counts agree.
func NewTogetherClient(cfg TogetherConfig, codec tokens.Codec) *TogetherClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = TogetherBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = togetherDefaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.2
	}
	if len(cfg.Stop) == 0 {
		cfg.Stop = []string{"###"}
	}
	if cfg.ContextWindow == 0 {
		cfg.ContextWindow = ContextWindow
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &TogetherClient{
		apiKey:        cfg.APIKey,
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		model:         cfg.Model,
		temperature:   cfg.Temperature,
		stop:          cfg.Stop,
		contextWindow: cfg.ContextWindow,
		maxAttempts:   cfg.MaxAttempts,
		retryDelay:    cfg.RetryDelay,
		client:        httpClient,
		codec:         codec,
	}
}

// Name returns the client identifier.
func (c *TogetherClient) Name() string { return TogetherName }

// Complete sends the prompt with bounded retries and exponential backoff.
// The completion's max_tokens is sized so input plus output never exceeds
// the context window. The final attempt's failure propagates wrapped in
// ErrUnavailable.
func (c *TogetherClient) Complete(ctx context.Context, prompt string) (string, error) {
	maxTokens := c.contextWindow - tokens.Count(c.codec, prompt)
	if maxTokens < MinCompletionTokens {
		maxTokens = MinCompletionTokens
	}

	raw, err := retry.DoWithData(
		func() (string, error) {
			return c.doCompletion(ctx, prompt, maxTokens)
		},
		retry.Context(ctx),
		retry.Attempts(c.maxAttempts),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return stripCodeFence(raw), nil
}

// HealthCheck issues a one-token completion. Fails fast: no retry, so a
// dead backend rejects the request before any document work is done.
func (c *TogetherClient) HealthCheck(ctx context.Context) error {
	if _, err := c.doCompletion(ctx, "ping", 1); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

type completionRequest struct {
	Model       string   `json:"model"`
	Prompt      string   `json:"prompt"`
	MaxTokens   int      `json:"max_tokens"`
	Temperature float64  `json:"temperature"`
	Stop        []string `json:"stop,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Text string `json:"text"`
	} `json:"choices"`
}

// doCompletion performs a single attempt against the completions endpoint.
func (c *TogetherClient) doCompletion(ctx context.Context, prompt string, maxTokens int) (string, error) {
	body, err := json.Marshal(completionRequest{
		Model:       c.model,
		Prompt:      prompt,
		MaxTokens:   maxTokens,
		Temperature: c.temperature,
		Stop:        c.stop,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("completion error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var cr completionResponse
	if err := json.Unmarshal(respBody, &cr); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return cr.Choices[0].Text, nil
}

// stripCodeFence removes a leading "```json"/"```" and trailing "```"
// from a raw completion, if present.
func stripCodeFence(s string) string {
	out := strings.TrimSpace(s)
	if strings.HasPrefix(out, "```json") {
		out = strings.TrimSpace(out[len("```json"):])
	} else if strings.HasPrefix(out, "```") {
		out = strings.TrimSpace(out[len("```"):])
	}
	if strings.HasSuffix(out, "```") {
		out = strings.TrimSpace(out[:len(out)-len("```")])
	}
	return out
}

var _ Client = (*TogetherClient)(nil)
