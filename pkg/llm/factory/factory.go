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

// Package factory constructs llm.Provider clients from model configuration.
// It maps provider names (including OpenAI-compatible gateway aliases) to
// concrete clients and resolves API keys from the environment.
package factory

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/spindle/pkg/llm"
	"github.com/teradata-labs/spindle/pkg/llm/anthropic"
	"github.com/teradata-labs/spindle/pkg/llm/openai"
)

// Default environment variables consulted when api_key_env is not set.
const (
	DefaultOpenAIKeyEnv    = "OPENAI_API_KEY"
	DefaultAnthropicKeyEnv = "ANTHROPIC_API_KEY"
)

// DefaultOllamaAPIBase is the OpenAI-compatible endpoint of a local Ollama.
const DefaultOllamaAPIBase = "http://localhost:11434/v1"

// ModelConfig describes one model endpoint (teacher or student role).
type ModelConfig struct {
	// Provider selects the client: "openai", "anthropic", "ollama", or an
	// OpenAI-compatible gateway alias ("litellm", "vllm", "openai-compatible").
	Provider string

	// Model is the model identifier sent on the wire. Empty selects the
	// client's default.
	Model string

	// APIBase overrides the provider's API base URL (gateways, proxies,
	// local servers).
	APIBase string

	// APIKey is an already resolved key (CLI flag or OS keyring). Takes
	// precedence over APIKeyEnv.
	APIKey string

	// APIKeyEnv names the environment variable holding the API key. Empty
	// selects the provider's conventional variable (OPENAI_API_KEY,
	// ANTHROPIC_API_KEY).
	APIKeyEnv string

	// MaxTokens caps the response length. Zero selects the client default.
	MaxTokens int

	// Timeout bounds each HTTP request. Zero selects the client default.
	Timeout time.Duration

	// Logger receives rate limiter diagnostics. Optional.
	Logger *zap.Logger
}

// New creates an llm.Provider for the configured provider and model.
// Hosted providers get a rate limiter with provider-appropriate defaults;
// local Ollama does not.
func New(config ModelConfig) (llm.Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "anthropic":
		return newAnthropicClient(config)
	case "openai":
		return newOpenAIClient(config, true)
	case "litellm", "vllm", "openai-compatible":
		// Gateways speak the OpenAI wire format; many run without keys.
		return newOpenAIClient(config, false)
	case "ollama":
		return newOllamaClient(config)
	default:
		return nil, fmt.Errorf("unsupported provider: %q (supported: openai, anthropic, ollama, litellm, vllm)", config.Provider)
	}
}

func newAnthropicClient(config ModelConfig) (llm.Provider, error) {
	apiKey, keyEnv, err := resolveAPIKey(config, DefaultAnthropicKeyEnv)
	if err != nil {
		return nil, err
	}
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key not configured (set %s or api_key_env)", keyEnv)
	}

	return anthropic.NewClient(anthropic.Config{
		APIKey:            apiKey,
		Model:             config.Model,
		APIBase:           config.APIBase,
		MaxTokens:         config.MaxTokens,
		Timeout:           config.Timeout,
		RateLimiterConfig: anthropicRateLimiterConfig(config.Logger),
	}), nil
}

func newOpenAIClient(config ModelConfig, keyRequired bool) (llm.Provider, error) {
	apiKey, keyEnv, err := resolveAPIKey(config, DefaultOpenAIKeyEnv)
	if err != nil {
		return nil, err
	}
	if apiKey == "" && keyRequired {
		return nil, fmt.Errorf("openai API key not configured (set %s or api_key_env)", keyEnv)
	}

	return openai.NewClient(openai.Config{
		APIKey:            apiKey,
		Model:             config.Model,
		APIBase:           config.APIBase,
		MaxTokens:         config.MaxTokens,
		Timeout:           config.Timeout,
		RateLimiterConfig: openaiRateLimiterConfig(config.Logger),
	}), nil
}

func newOllamaClient(config ModelConfig) (llm.Provider, error) {
	model := config.Model
	if model == "" {
		model = "llama3.2"
	}
	apiBase := config.APIBase
	if apiBase == "" {
		apiBase = DefaultOllamaAPIBase
	}

	// Local server: no key, no rate limiting.
	return openai.NewClient(openai.Config{
		Model:     model,
		APIBase:   apiBase,
		MaxTokens: config.MaxTokens,
		Timeout:   config.Timeout,
	}), nil
}

// resolveAPIKey returns the configured key, then the key from api_key_env,
// then the provider's conventional variable. An explicitly named variable
// that is unset is a configuration mistake and reported as such.
func resolveAPIKey(config ModelConfig, defaultEnv string) (key, keyEnv string, err error) {
	if config.APIKey != "" {
		return config.APIKey, "", nil
	}
	if config.APIKeyEnv != "" {
		key = os.Getenv(config.APIKeyEnv)
		if key == "" {
			return "", config.APIKeyEnv, fmt.Errorf("api_key_env %s is set in config but the variable is empty", config.APIKeyEnv)
		}
		return key, config.APIKeyEnv, nil
	}
	return os.Getenv(defaultEnv), defaultEnv, nil
}

func openaiRateLimiterConfig(logger *zap.Logger) llm.RateLimiterConfig {
	cfg := llm.DefaultRateLimiterConfig()
	if logger != nil {
		cfg.Logger = logger
	}
	return cfg
}

func anthropicRateLimiterConfig(logger *zap.Logger) llm.RateLimiterConfig {
	cfg := anthropic.DefaultAnthropicRateLimiterConfig()
	if logger != nil {
		cfg.Logger = logger
	}
	return cfg
}
