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
package factory

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ModelInfo describes a known model: identity, context budget, and pricing
// per million tokens. Pricing drives the cost estimates reported after
// optimization runs.
type ModelInfo struct {
	ID                 string
	Name               string
	Provider           string
	ContextWindow      int
	CostPer1MInputUSD  float64
	CostPer1MOutputUSD float64

	// Available is set for models confirmed present on a live server.
	Available bool
}

// ModelRegistry holds information about known models across providers.
// Gateways can serve models outside this catalog; lookups on those miss,
// which callers treat as a warning, not an error.
type ModelRegistry struct {
	models map[string][]ModelInfo
}

// NewModelRegistry creates a model registry with the known models.
func NewModelRegistry() *ModelRegistry {
	return &ModelRegistry{
		models: map[string][]ModelInfo{
			"anthropic": {
				{
					ID:                 "claude-sonnet-4-5-20250929",
					Name:               "Claude Sonnet 4.5",
					Provider:           "anthropic",
					ContextWindow:      200000,
					CostPer1MInputUSD:  3.0,
					CostPer1MOutputUSD: 15.0,
				},
				{
					ID:                 "claude-opus-4-1",
					Name:               "Claude Opus 4.1",
					Provider:           "anthropic",
					ContextWindow:      200000,
					CostPer1MInputUSD:  15.0,
					CostPer1MOutputUSD: 75.0,
				},
				{
					ID:                 "claude-3-5-haiku-20241022",
					Name:               "Claude 3.5 Haiku",
					Provider:           "anthropic",
					ContextWindow:      200000,
					CostPer1MInputUSD:  0.8,
					CostPer1MOutputUSD: 4.0,
				},
			},
			"openai": {
				{
					ID:                 "gpt-4.1",
					Name:               "GPT-4.1",
					Provider:           "openai",
					ContextWindow:      1047576,
					CostPer1MInputUSD:  2.0,
					CostPer1MOutputUSD: 8.0,
				},
				{
					ID:                 "gpt-4.1-mini",
					Name:               "GPT-4.1 Mini",
					Provider:           "openai",
					ContextWindow:      1047576,
					CostPer1MInputUSD:  0.4,
					CostPer1MOutputUSD: 1.6,
				},
				{
					ID:                 "gpt-4o",
					Name:               "GPT-4o",
					Provider:           "openai",
					ContextWindow:      128000,
					CostPer1MInputUSD:  2.5,
					CostPer1MOutputUSD: 10.0,
				},
				{
					ID:                 "gpt-4o-mini",
					Name:               "GPT-4o Mini",
					Provider:           "openai",
					ContextWindow:      128000,
					CostPer1MInputUSD:  0.15,
					CostPer1MOutputUSD: 0.6,
				},
			},
			"ollama": {
				{
					ID:            "llama3.1",
					Name:          "Llama 3.1 (Ollama)",
					Provider:      "ollama",
					ContextWindow: 128000,
				},
				{
					ID:            "llama3.2",
					Name:          "Llama 3.2 (Ollama)",
					Provider:      "ollama",
					ContextWindow: 128000,
				},
				{
					ID:            "qwen2.5",
					Name:          "Qwen 2.5 (Ollama)",
					Provider:      "ollama",
					ContextWindow: 128000,
				},
			},
		},
	}
}

// normalizeProvider folds OpenAI-compatible gateway aliases onto the openai
// catalog.
func normalizeProvider(provider string) string {
	switch provider {
	case "litellm", "vllm", "openai-compatible":
		return "openai"
	}
	return provider
}

// ModelsForProvider returns all known models for a provider. Gateway aliases
// share the openai catalog.
func (r *ModelRegistry) ModelsForProvider(provider string) []ModelInfo {
	models := r.models[normalizeProvider(provider)]
	if models == nil {
		return nil
	}

	result := make([]ModelInfo, len(models))
	copy(result, models)
	return result
}

// AllModels returns every model in the catalog.
func (r *ModelRegistry) AllModels() []ModelInfo {
	var all []ModelInfo
	for _, models := range r.models {
		all = append(all, models...)
	}
	return all
}

// Lookup finds a model by provider and ID.
func (r *ModelRegistry) Lookup(provider, id string) (ModelInfo, bool) {
	for _, m := range r.models[normalizeProvider(provider)] {
		if m.ID == id {
			return m, true
		}
	}
	return ModelInfo{}, false
}

// ollamaTagsResponse mirrors GET /api/tags on an Ollama server.
type ollamaTagsResponse struct {
	Models []ollamaModelEntry `json:"models"`
}

type ollamaModelEntry struct {
	Name  string `json:"name"`
	Model string `json:"model"`
	Size  int64  `json:"size"`
}

// DiscoverOllamaModels replaces the static Ollama catalog with the models a
// running server actually has. endpoint is the server root, not the /v1
// OpenAI-compatible path. The static catalog is kept when the server lists
// nothing.
func (r *ModelRegistry) DiscoverOllamaModels(endpoint string) error {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(strings.TrimRight(endpoint, "/") + "/api/tags")
	if err != nil {
		return fmt.Errorf("failed to reach ollama at %s: %w", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return fmt.Errorf("failed to decode ollama tags: %w", err)
	}

	if len(tags.Models) == 0 {
		return nil
	}

	discovered := make([]ModelInfo, 0, len(tags.Models))
	for _, m := range tags.Models {
		discovered = append(discovered, ModelInfo{
			ID:            m.Name,
			Name:          formatOllamaDisplayName(m.Name),
			Provider:      "ollama",
			ContextWindow: 128000,
			Available:     true,
		})
	}
	r.models["ollama"] = discovered
	return nil
}

// formatOllamaDisplayName turns an Ollama model ID like "qwen3-coder:30b"
// into a display name like "Qwen3 coder 30B (Ollama)". The "latest" tag is
// dropped; other tags are uppercased.
func formatOllamaDisplayName(id string) string {
	base := id
	tag := ""
	if i := strings.IndexByte(id, ':'); i >= 0 {
		base = id[:i]
		tag = id[i+1:]
	}

	display := strings.ReplaceAll(base, "-", " ")
	if display != "" {
		display = strings.ToUpper(display[:1]) + display[1:]
	}
	if tag != "" && tag != "latest" {
		display += " " + strings.ToUpper(tag)
	}
	return display + " (Ollama)"
}
