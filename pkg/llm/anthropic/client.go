// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/teradata-labs/spindle/pkg/llm"
)

const (
	// DefaultAnthropicModel is the default Claude model
	DefaultAnthropicModel = "claude-sonnet-4-5-20250929"
	// DefaultAnthropicAPIBase is the default Anthropic API base URL
	DefaultAnthropicAPIBase = "https://api.anthropic.com/v1"
	// DefaultMaxTokens is the default maximum tokens per request
	DefaultMaxTokens = 4096
	// DefaultTimeout is the default HTTP timeout
	DefaultTimeout = 60 * time.Second
	// apiVersion is the Messages API version header value
	apiVersion = "2023-06-01"
)

// Global singleton rate limiter shared across all Anthropic clients
var (
	globalRateLimiter     *llm.RateLimiter
	globalRateLimiterOnce sync.Once
)

// DefaultAnthropicRateLimiterConfig returns safe defaults for Anthropic's API.
//
// Anthropic rate limits by tier:
//   - Free / Tier 1: 50 RPM, 30K–100K ITPM
//   - Tier 2:        1000 RPM, 2M ITPM
//   - Tier 3+:       5000+ RPM
//
// These defaults target Tier 1 (the most common). Users on higher tiers
// should raise requests_per_second and tokens_per_minute.
func DefaultAnthropicRateLimiterConfig() llm.RateLimiterConfig {
	return llm.RateLimiterConfig{
		Enabled:           true,
		RequestsPerSecond: 0.7,                    // ~42 RPM, safely under the Tier 1 50 RPM limit
		TokensPerMinute:   80000,                  // 80% of Tier 1 100K ITPM (30K on free)
		BurstCapacity:     3,                      // Conservative burst for parallel evaluation
		MinDelay:          800 * time.Millisecond, // ~1.25 RPS ceiling; prevents burst overshoots
		QueueTimeout:      5 * time.Minute,
	}
}

// Client implements the llm.Provider interface for Anthropic's Claude API.
type Client struct {
	apiKey      string
	model       string
	endpoint    string
	httpClient  *http.Client
	maxTokens   int
	rateLimiter *llm.RateLimiter
}

// Config holds configuration for the Anthropic client.
//
// Sampling temperature is intentionally absent: it arrives per request so
// handle-level overrides reach the wire without mutating client state.
type Config struct {
	APIKey            string
	Model             string        // Default: claude-sonnet-4-5-20250929
	APIBase           string        // Default: https://api.anthropic.com/v1
	Timeout           time.Duration // Default: 60s
	MaxTokens         int           // Default: 4096
	RateLimiterConfig llm.RateLimiterConfig
}

// NewClient creates a new Anthropic client.
func NewClient(config Config) *Client {
	if config.Model == "" {
		// Check environment variable first, then use default
		if envModel := os.Getenv("ANTHROPIC_DEFAULT_MODEL"); envModel != "" {
			config.Model = envModel
		} else {
			config.Model = DefaultAnthropicModel
		}
	}
	if config.APIBase == "" {
		// Check environment variable first, then use default
		if envBase := os.Getenv("ANTHROPIC_API_BASE"); envBase != "" {
			config.APIBase = envBase
		} else {
			config.APIBase = DefaultAnthropicAPIBase
		}
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = DefaultMaxTokens
	}

	// Initialize rate limiter if enabled
	var rateLimiter *llm.RateLimiter
	if config.RateLimiterConfig.Enabled {
		rateLimiter = getOrCreateGlobalRateLimiter(config.RateLimiterConfig)
	}

	return &Client{
		apiKey:      config.APIKey,
		model:       config.Model,
		endpoint:    strings.TrimRight(config.APIBase, "/") + "/messages",
		maxTokens:   config.MaxTokens,
		rateLimiter: rateLimiter,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// getOrCreateGlobalRateLimiter returns the global rate limiter, creating it if necessary.
// Caller-supplied non-zero fields override DefaultAnthropicRateLimiterConfig values.
func getOrCreateGlobalRateLimiter(config llm.RateLimiterConfig) *llm.RateLimiter {
	globalRateLimiterOnce.Do(func() {
		// Start from Anthropic-specific defaults, then apply caller overrides.
		// The generic DefaultRateLimiterConfig allows 2 RPS, which exceeds
		// Anthropic's Tier 1 limit.
		merged := DefaultAnthropicRateLimiterConfig()
		merged.Enabled = config.Enabled
		if config.Logger != nil {
			merged.Logger = config.Logger
		}
		if config.RequestsPerSecond > 0 {
			merged.RequestsPerSecond = config.RequestsPerSecond
		}
		if config.TokensPerMinute > 0 {
			merged.TokensPerMinute = config.TokensPerMinute
		}
		if config.BurstCapacity > 0 {
			merged.BurstCapacity = config.BurstCapacity
		}
		if config.MinDelay > 0 {
			merged.MinDelay = config.MinDelay
		}
		if config.QueueTimeout > 0 {
			merged.QueueTimeout = config.QueueTimeout
		}
		globalRateLimiter = llm.NewRateLimiter(merged)
	})
	return globalRateLimiter
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "anthropic"
}

// Model returns the model identifier.
func (c *Client) Model() string {
	return c.model
}

// Chat sends a conversation to Claude and returns the response.
func (c *Client) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.Response, error) {
	// Extract system messages and convert to Anthropic format
	systemPrompt, apiMessages := convertMessages(req.Messages)

	apiReq := &MessagesRequest{
		Model:       c.model,
		Messages:    apiMessages,
		MaxTokens:   c.maxTokens,
		Temperature: req.Temperature,
	}
	if req.MaxTokens > 0 {
		apiReq.MaxTokens = req.MaxTokens
	}

	// The Messages API requires system turns in a separate "system" field
	if systemPrompt != "" {
		apiReq.System = systemPrompt
	}

	resp, err := c.callAPI(ctx, apiReq)
	if err != nil {
		return nil, fmt.Errorf("API call failed: %w", err)
	}

	out := c.convertResponse(resp)

	// Record token usage for rate limiter metrics
	if c.rateLimiter != nil {
		c.rateLimiter.RecordTokenUsage(int64(out.Usage.InputTokens + out.Usage.OutputTokens))
	}

	return out, nil
}

// convertMessages converts chat turns to Anthropic format. System messages
// are extracted and combined, as the Messages API requires them to be sent
// as a separate "system" field, not in the messages array.
func convertMessages(messages []llm.Message) (string, []Message) {
	var systemPrompts []string
	var apiMessages []Message

	for _, msg := range messages {
		switch msg.Role {
		case "system":
			if msg.Content != "" {
				systemPrompts = append(systemPrompts, msg.Content)
			}

		case "user", "assistant":
			apiMessages = append(apiMessages, Message{
				Role: msg.Role,
				Content: []ContentBlock{
					{Type: "text", Text: msg.Content},
				},
			})
		}
	}

	return strings.Join(systemPrompts, "\n\n"), apiMessages
}

// convertResponse converts an Anthropic response to the provider-neutral format.
func (c *Client) convertResponse(resp *MessagesResponse) *llm.Response {
	out := &llm.Response{
		StopReason: resp.StopReason,
		Usage: llm.Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
			TotalTokens:  resp.Usage.InputTokens + resp.Usage.OutputTokens,
			CostUSD:      c.calculateCost(resp.Usage.InputTokens, resp.Usage.OutputTokens),
		},
	}

	// Concatenate text blocks
	for _, block := range resp.Content {
		if block.Type == "text" {
			out.Content += block.Text
		}
	}

	return out
}

// calculateCost estimates the cost in USD based on token usage.
// Pricing per million tokens by model family:
// Sonnet $3/$15, Opus $15/$75, Haiku $0.80/$4.
func (c *Client) calculateCost(inputTokens, outputTokens int) float64 {
	inputCostPerM := 3.0
	outputCostPerM := 15.0

	switch {
	case strings.Contains(c.model, "opus"):
		inputCostPerM = 15.0
		outputCostPerM = 75.0
	case strings.Contains(c.model, "haiku"):
		inputCostPerM = 0.80
		outputCostPerM = 4.0
	}

	inputCost := float64(inputTokens) * inputCostPerM / 1_000_000
	outputCost := float64(outputTokens) * outputCostPerM / 1_000_000
	return inputCost + outputCost
}

// callAPI makes the HTTP request to Anthropic's API.
func (c *Client) callAPI(ctx context.Context, req *MessagesRequest) (*MessagesResponse, error) {
	// Marshal request
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	// Create HTTP request
	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	// Send request with rate limiting if enabled
	var httpResp *http.Response
	if c.rateLimiter != nil {
		result, err := c.rateLimiter.Do(ctx, func(ctx context.Context) (interface{}, error) {
			return c.httpClient.Do(httpReq)
		})
		if err != nil {
			return nil, fmt.Errorf("HTTP request failed: %w", err)
		}
		httpResp = result.(*http.Response)
	} else {
		var err error
		httpResp, err = c.httpClient.Do(httpReq)
		if err != nil {
			return nil, fmt.Errorf("HTTP request failed: %w", err)
		}
	}
	defer func() { _ = httpResp.Body.Close() }()

	// Read response
	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	// Check status code; decode the structured error body when present
	if httpResp.StatusCode != http.StatusOK {
		var apiErr APIError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("API error (status %d): %s (type: %s)",
				httpResp.StatusCode, apiErr.Error.Message, apiErr.Error.Type)
		}
		return nil, fmt.Errorf("API error (status %d): %s", httpResp.StatusCode, string(respBody))
	}

	// Parse response
	var resp MessagesResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &resp, nil
}

// Ensure Client implements the Provider interface.
var _ llm.Provider = (*Client)(nil)
