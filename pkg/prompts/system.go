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

package prompts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/spindle/pkg/session"
)

// maxEnvironmentFiles caps the file list in the environment block.
const maxEnvironmentFiles = 50

// SystemBuilder reconstructs the layered system prompt a coding agent ran
// with. The layers, joined by blank lines:
//
//  1. Provider header (when the provider has one)
//  2. Agent or model base prompt, the layer optimization rewrites
//  3. Environment block with working directory, git state, platform, date
//  4. Git status block
//  5. Custom instructions
//
// Evaluating a candidate prompt means building the same prompt with layer 2
// swapped for the candidate while everything else stays fixed.
type SystemBuilder struct {
	registry PromptRegistry
	logger   *zap.Logger
	now      func() time.Time // overridden in tests
}

// NewSystemBuilder creates a builder over the given template registry.
func NewSystemBuilder(registry PromptRegistry, logger *zap.Logger) *SystemBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SystemBuilder{
		registry: registry,
		logger:   logger,
		now:      time.Now,
	}
}

// SystemPromptRequest describes the prompt to reconstruct.
type SystemPromptRequest struct {
	ModelID string

	// ProviderID is inferred from ModelID when empty.
	ProviderID string

	// AgentName selects an agent layer such as "plan" or "build". When no
	// template exists for the agent, the model base prompt is used.
	AgentName string

	// PromptOverride replaces layer 2 entirely when set.
	PromptOverride string

	Context session.ContextInfo

	// CustomInstructions are appended after all other layers.
	CustomInstructions []string
}

// Build assembles the full system prompt.
func (b *SystemBuilder) Build(ctx context.Context, req *SystemPromptRequest) (string, error) {
	if req == nil {
		return "", fmt.Errorf("request cannot be nil")
	}
	if b.registry == nil {
		return "", fmt.Errorf("no template registry configured")
	}

	provider := req.ProviderID
	if provider == "" {
		provider = InferProvider(req.ModelID)
	}

	var parts []string

	if header := b.providerHeader(ctx, provider); header != "" {
		parts = append(parts, header)
	}

	layer, err := b.agentLayer(ctx, req, provider)
	if err != nil {
		return "", err
	}
	parts = append(parts, layer)

	parts = append(parts, b.environmentBlock(req.Context))

	if git := gitStatusBlock(req.Context); git != "" {
		parts = append(parts, git)
	}

	parts = append(parts, req.CustomInstructions...)

	return strings.Join(parts, "\n\n"), nil
}

// BuildForExample reconstructs the system prompt for a mined session
// example. A non-empty override replaces the agent or model layer, which is
// how candidate prompts are evaluated against real session context.
func (b *SystemBuilder) BuildForExample(ctx context.Context, ex *session.Example, override string) (string, error) {
	if ex == nil {
		return "", fmt.Errorf("example cannot be nil")
	}
	return b.Build(ctx, &SystemPromptRequest{
		ModelID:        ex.AgentConfig.Model,
		AgentName:      ex.AgentConfig.Name,
		PromptOverride: override,
		Context:        ex.Context,
	})
}

// providerHeader returns the header layer for a provider, empty when the
// provider has no header template. Most providers do not.
func (b *SystemBuilder) providerHeader(ctx context.Context, provider string) string {
	provider = strings.ToLower(provider)
	if provider == "" || provider == "unknown" {
		return ""
	}

	header, err := b.registry.Get(ctx, "header."+provider, nil)
	if err != nil {
		return ""
	}
	return header
}

// agentLayer resolves layer 2: the override, else the agent template, else
// the model base prompt, else the qwen fallback.
func (b *SystemBuilder) agentLayer(ctx context.Context, req *SystemPromptRequest, provider string) (string, error) {
	if req.PromptOverride != "" {
		return req.PromptOverride, nil
	}

	if req.AgentName != "" {
		layer, err := b.registry.Get(ctx, "agent."+req.AgentName, nil)
		if err == nil {
			return layer, nil
		}
		b.logger.Debug("no template for agent, using model base prompt",
			zap.String("agent", req.AgentName))
	}

	key := ModelTemplateKey(req.ModelID, provider)
	layer, err := b.registry.Get(ctx, key, nil)
	if err == nil {
		return layer, nil
	}

	if key != "model.qwen" {
		b.logger.Warn("no template for model, using model.qwen",
			zap.String("model", req.ModelID),
			zap.String("key", key))
		if layer, err = b.registry.Get(ctx, "model.qwen", nil); err == nil {
			return layer, nil
		}
	}

	return "", fmt.Errorf("no base template for model %s: %w", req.ModelID, err)
}

// environmentBlock formats the environment section of the prompt.
func (b *SystemBuilder) environmentBlock(info session.ContextInfo) string {
	lines := []string{
		"Here is useful information about the environment you are running in:",
		"<env>",
		"Working directory: " + info.WorkingDirectory,
	}

	// Python's session miner printed capitalized booleans here, so rebuilt
	// prompts keep that casing to match the prompts agents actually saw.
	repo := "False"
	if branch, ok := info.GitStatus["branch"].(string); ok && branch != "" {
		repo = "True"
	}
	lines = append(lines, "Is directory a git repo: "+repo)

	// Session logs do not record the platform.
	lines = append(lines, "Platform: linux")
	lines = append(lines, "Today's date: "+b.now().Format("2006-01-02"))
	lines = append(lines, "</env>")

	if len(info.RelevantFiles) > 0 {
		lines = append(lines, "", "Relevant files in the workspace:", "<files>")

		show := info.RelevantFiles
		if len(show) > maxEnvironmentFiles {
			show = show[:maxEnvironmentFiles]
		}
		for _, path := range show {
			lines = append(lines, "  "+path)
		}
		if remaining := len(info.RelevantFiles) - maxEnvironmentFiles; remaining > 0 {
			lines = append(lines, fmt.Sprintf("  ... and %d more files", remaining))
		}

		lines = append(lines, "</files>")
	}

	return strings.Join(lines, "\n")
}

// gitStatusBlock formats the git status section, empty when the session
// carried no git state.
func gitStatusBlock(info session.ContextInfo) string {
	if len(info.GitStatus) == 0 {
		return ""
	}

	branch := "unknown"
	if v, ok := info.GitStatus["branch"]; ok {
		branch = fmt.Sprintf("%v", v)
	}

	parts := []string{
		"gitStatus: This is the git status at the start of the conversation.",
		"Current branch: " + branch,
		"",
		"Main branch (you will usually use this for PRs): ",
		"",
	}

	if status, _ := info.GitStatus["status"].(string); status != "" {
		parts = append(parts, "Status:", status)
	}

	return strings.Join(parts, "\n")
}

// ModelTemplateKey maps a model to its base template key. Unrecognized
// models fall back to the qwen template.
func ModelTemplateKey(modelID, providerID string) string {
	model := strings.ToLower(modelID)
	provider := strings.ToLower(providerID)

	switch {
	case strings.Contains(model, "claude") || strings.Contains(provider, "anthropic"):
		return "model.anthropic"
	case strings.Contains(model, "qwen"):
		return "model.qwen"
	case strings.Contains(model, "gemini"):
		return "model.gemini"
	case strings.Contains(model, "gpt-4"), strings.Contains(model, "gpt-o"),
		strings.Contains(model, "o1"), strings.Contains(model, "o3"):
		return "model.beast"
	case strings.Contains(model, "gpt-5"), strings.Contains(model, "codex"):
		return "model.codex"
	case strings.Contains(model, "polaris"):
		return "model.polaris"
	default:
		return "model.qwen"
	}
}

// InferProvider guesses the provider from a model ID.
func InferProvider(modelID string) string {
	model := strings.ToLower(modelID)

	switch {
	case strings.Contains(model, "claude"):
		return "anthropic"
	case strings.Contains(model, "gpt"), strings.Contains(model, "openai"):
		return "openai"
	case strings.Contains(model, "gemini"):
		return "google"
	case strings.Contains(model, "ollama"):
		return "ollama"
	default:
		return "unknown"
	}
}
