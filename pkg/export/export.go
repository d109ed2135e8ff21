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

// Package export writes compiled optimization results as integration
// artifacts: an agent-config JSONC snippet, a custom-instructions markdown
// file, a standalone prompt template, and a usage guide that explains how to
// wire each artifact into an OpenCode setup.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/spindle/pkg/agent"
	"github.com/teradata-labs/spindle/pkg/teleprompter"
)

// Request carries everything one export run needs.
type Request struct {
	// Optimized is the compiled layer to export. A nil or empty result
	// degrades to a structural description instead of failing.
	Optimized *teleprompter.OptimizedAgent

	// AgentName is the agent the prompt was optimized for, e.g. "build".
	AgentName string

	// ModelName is the student model the scores were measured on.
	ModelName string

	BaselineScore  float64
	OptimizedScore float64

	// BaseTemplate, when set, is prepended to the prompt in the template
	// export.
	BaseTemplate string

	// BaseInstructions is the instruction text the program started from,
	// diffed against the optimized instructions in the usage guide.
	BaseInstructions string
}

// ArtifactPaths lists the files one export run produced.
type ArtifactPaths struct {
	AgentConfig  string
	Instructions string
	Template     string
	UsageGuide   string
}

// Exporter writes artifacts into a single output directory.
type Exporter struct {
	outputDir string
	logger    *zap.Logger
}

// NewExporter creates an exporter rooted at outputDir, creating the
// directory when missing. The logger may be nil.
func NewExporter(outputDir string, logger *zap.Logger) (*Exporter, error) {
	if outputDir == "" {
		return nil, fmt.Errorf("output directory cannot be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(outputDir, 0750); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	return &Exporter{
		outputDir: outputDir,
		logger:    logger,
	}, nil
}

// OutputDir returns the directory artifacts are written into.
func (e *Exporter) OutputDir() string {
	return e.outputDir
}

type agentConfigFile struct {
	Comment        string                 `json:"_comment"`
	Generated      string                 `json:"_generated"`
	BaselineScore  float64                `json:"_baseline_score"`
	OptimizedScore float64                `json:"_optimized_score"`
	Improvement    float64                `json:"_improvement"`
	Agent          map[string]agentPrompt `json:"agent"`
}

type agentPrompt struct {
	Prompt string `json:"prompt"`
}

// ExportAgentConfig writes an opencode.jsonc agent snippet: a comment header
// with the scores, then the "agent" section holding the optimized prompt.
// This is the primary integration path.
func (e *Exporter) ExportAgentConfig(req *Request) (string, error) {
	if err := validateRequest(req); err != nil {
		return "", err
	}

	prompt := instructionPrompt(req.Optimized)
	generated := time.Now().UTC().Format(time.RFC3339)
	improvement := req.OptimizedScore - req.BaselineScore

	cfg := agentConfigFile{
		Comment:        fmt.Sprintf("Optimized %s agent prompt for %s", req.AgentName, req.ModelName),
		Generated:      generated,
		BaselineScore:  req.BaselineScore,
		OptimizedScore: req.OptimizedScore,
		Improvement:    improvement,
		Agent: map[string]agentPrompt{
			req.AgentName: {Prompt: prompt},
		},
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "// Optimized %s agent prompt\n", req.AgentName)
	fmt.Fprintf(&buf, "// Generated: %s\n", generated)
	fmt.Fprintf(&buf, "// Target model: %s\n", req.ModelName)
	fmt.Fprintf(&buf, "// Baseline score: %.3f\n", req.BaselineScore)
	fmt.Fprintf(&buf, "// Optimized score: %.3f\n", req.OptimizedScore)
	fmt.Fprintf(&buf, "// Improvement: %+.3f\n", improvement)
	buf.WriteString("//\n")
	buf.WriteString("// To use: copy the \"agent\" section into your opencode.jsonc\n")
	buf.WriteString("\n")

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cfg); err != nil {
		return "", fmt.Errorf("encoding agent config: %w", err)
	}

	filename := fmt.Sprintf("opencode-%s-%s.jsonc", req.AgentName, modelSlug(req.ModelName))
	path, err := e.writeFile(filename, buf.String())
	if err != nil {
		return "", err
	}
	e.logger.Info("exported agent config", zap.String("path", path))
	return path, nil
}

// ExportInstructions writes the prompt as a custom-instructions markdown
// file that an agent config can reference, appending to the system prompt
// instead of replacing it.
func (e *Exporter) ExportInstructions(req *Request) (string, error) {
	if err := validateRequest(req); err != nil {
		return "", err
	}

	prompt := instructionPrompt(req.Optimized)
	filename := fmt.Sprintf("OPTIMIZED_%s.md", strings.ToUpper(req.AgentName))

	var b strings.Builder
	b.WriteString("# Optimized Agent Instructions\n\n")
	b.WriteString(prompt)
	b.WriteString("\n\n---\n\n")
	fmt.Fprintf(&b, "*Generated by spindle optimization on %s*\n\n", time.Now().UTC().Format(time.RFC3339))
	b.WriteString("## Usage\n\n")
	b.WriteString("1. Copy this file into your project directory\n")
	b.WriteString("2. Reference it in opencode.jsonc:\n\n")
	b.WriteString("   ```jsonc\n")
	fmt.Fprintf(&b, "   {\n     \"instructions\": [%q]\n   }\n", filename)
	b.WriteString("   ```\n")

	path, err := e.writeFile(filename, b.String())
	if err != nil {
		return "", err
	}
	e.logger.Info("exported custom instructions", zap.String("path", path))
	return path, nil
}

// ExportPromptTemplate writes the prompt as a standalone template file,
// optionally merged after the base template it replaces.
func (e *Exporter) ExportPromptTemplate(req *Request) (string, error) {
	if err := validateRequest(req); err != nil {
		return "", err
	}

	template := instructionPrompt(req.Optimized)
	if req.BaseTemplate != "" {
		template = req.BaseTemplate + "\n\n" + template
	}

	filename := fmt.Sprintf("%s-optimized.txt", modelSlug(req.ModelName))
	path, err := e.writeFile(filename, template)
	if err != nil {
		return "", err
	}
	e.logger.Info("exported prompt template", zap.String("path", path))
	return path, nil
}

// ExportAll writes every artifact format and returns their paths.
func (e *Exporter) ExportAll(req *Request) (*ArtifactPaths, error) {
	paths := &ArtifactPaths{}

	var err error
	if paths.AgentConfig, err = e.ExportAgentConfig(req); err != nil {
		return nil, err
	}
	if paths.Instructions, err = e.ExportInstructions(req); err != nil {
		return nil, err
	}
	if paths.Template, err = e.ExportPromptTemplate(req); err != nil {
		return nil, err
	}

	e.logger.Info("exported optimization artifacts",
		zap.String("agent", req.AgentName),
		zap.String("model", req.ModelName),
		zap.String("dir", e.outputDir))
	return paths, nil
}

// WriteUsageGuide writes a markdown guide covering the integration options,
// a diff of what changed in the instruction text, and the measured scores.
// The guide path is also recorded on paths when given.
func (e *Exporter) WriteUsageGuide(req *Request, paths *ArtifactPaths) (string, error) {
	if err := validateRequest(req); err != nil {
		return "", err
	}
	if paths == nil {
		paths = &ArtifactPaths{}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Using the Optimized %s Agent for %s\n\n", agent.FieldLabel(req.AgentName), req.ModelName)

	b.WriteString("## Quick Start\n\n")
	b.WriteString("### Option 1: Agent Configuration (Recommended)\n\n")
	fmt.Fprintf(&b, "1. Review the generated snippet:\n\n   ```bash\n   cat %s\n   ```\n\n", artifactRef(paths.AgentConfig))
	fmt.Fprintf(&b, "2. Copy its `agent` section into your `opencode.jsonc`:\n\n")
	b.WriteString("   ```jsonc\n")
	fmt.Fprintf(&b, "   {\n     \"agent\": {\n       %q: {\n         \"prompt\": \"...\"\n       }\n     }\n   }\n", req.AgentName)
	b.WriteString("   ```\n\n")

	b.WriteString("### Option 2: Custom Instructions\n\n")
	fmt.Fprintf(&b, "1. Copy the instruction file into your project:\n\n   ```bash\n   cp %s ./\n   ```\n\n", artifactRef(paths.Instructions))
	fmt.Fprintf(&b, "2. Reference it in `opencode.jsonc`:\n\n")
	b.WriteString("   ```jsonc\n")
	fmt.Fprintf(&b, "   {\n     \"instructions\": [%q]\n   }\n", filepath.Base(artifactRef(paths.Instructions)))
	b.WriteString("   ```\n\n")

	b.WriteString("### Option 3: Replace Template\n\n")
	fmt.Fprintf(&b, "Copy the template into your prompt templates directory:\n\n   ```bash\n   cp %s ~/.config/opencode/prompts/\n   ```\n\n", artifactRef(paths.Template))

	b.WriteString("## What Changed\n\n")
	b.WriteString(changeSection(req.BaseInstructions, req.Optimized))
	b.WriteString("\n")

	b.WriteString("## Performance\n\n")
	fmt.Fprintf(&b, "- **Baseline score**: %.3f\n", req.BaselineScore)
	fmt.Fprintf(&b, "- **Optimized score**: %.3f\n", req.OptimizedScore)
	fmt.Fprintf(&b, "- **Improvement**: %+.3f\n\n", req.OptimizedScore-req.BaselineScore)

	b.WriteString("## Re-optimization\n\n")
	b.WriteString("To re-optimize with new training data:\n\n")
	b.WriteString("```bash\n")
	fmt.Fprintf(&b, "spindle train --experiment-name %s-%s\n", req.AgentName, modelSlug(req.ModelName))
	b.WriteString("```\n")

	filename := fmt.Sprintf("USAGE_GUIDE_%s.md", req.AgentName)
	path, err := e.writeFile(filename, b.String())
	if err != nil {
		return "", err
	}
	paths.UsageGuide = path
	e.logger.Info("created usage guide", zap.String("path", path))
	return path, nil
}

// changeSection summarizes how the instruction text moved from the base, as
// a fenced diff when it actually changed.
func changeSection(base string, optimized *teleprompter.OptimizedAgent) string {
	instructions := ""
	demos := 0
	if optimized != nil {
		instructions = optimized.Instructions
		demos = len(optimized.Demonstrations)
	}

	switch {
	case instructions == "" && demos == 0:
		return "The run produced no instruction changes.\n"
	case instructions == "":
		return fmt.Sprintf("The instruction text is unchanged; the improvement comes from the %d attached demonstrations.\n", demos)
	case instructions == base:
		return "The instruction text matches the base prompt.\n"
	default:
		return "```diff\n" + strings.Join(diffLines(base, instructions), "\n") + "\n```\n"
	}
}

func validateRequest(req *Request) error {
	if req == nil {
		return fmt.Errorf("export request cannot be nil")
	}
	if req.AgentName == "" {
		return fmt.Errorf("agent name cannot be empty")
	}
	if req.ModelName == "" {
		return fmt.Errorf("model name cannot be empty")
	}
	return nil
}

func (e *Exporter) writeFile(filename, content string) (string, error) {
	path := filepath.Join(e.outputDir, filename)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return "", fmt.Errorf("writing %s: %w", filename, err)
	}
	return path, nil
}

// artifactRef falls back to a placeholder when an artifact was not exported.
func artifactRef(path string) string {
	if path == "" {
		return "N/A"
	}
	return path
}

// modelSlug makes a model name safe for filenames.
func modelSlug(model string) string {
	slug := strings.ReplaceAll(model, "/", "-")
	return strings.ReplaceAll(slug, ":", "-")
}
