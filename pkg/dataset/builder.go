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
package dataset

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/teradata-labs/spindle/pkg/session"
)

// maxContextFiles caps how many relevant files are rendered into the
// environment context.
const maxContextFiles = 20

// availableTools is the fixed tool catalogue shown to candidate programs.
// Static reference list, not derived from transcript data.
var availableTools = []string{
	"read - Read file contents",
	"write - Write/create a file",
	"edit - Edit existing file with find/replace",
	"bash - Execute bash commands",
	"glob - Find files by pattern",
	"grep - Search file contents",
	"task - Launch sub-agent for complex tasks",
	"todowrite - Manage task list",
	"askuserquestion - Ask user for clarification",
}

// Builder converts session examples into training examples.
type Builder struct {
	logger *zap.Logger
}

// NewBuilder creates an example builder.
func NewBuilder(logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{logger: logger}
}

// Build projects one session example into a training example.
// Rendering is deterministic: the same session example always yields the
// same text.
func (b *Builder) Build(ex *session.Example, includeLabels bool) *Example {
	out := &Example{
		TaskDescription:     ex.Task,
		EnvironmentContext:  FormatContext(ex),
		ConversationHistory: FormatConversationHistory(ex),
		AvailableTools:      FormatAvailableTools(),
		SessionID:           ex.SessionID,
		AgentName:           ex.AgentConfig.Name,
		Model:               ex.AgentConfig.Model,
	}

	if includeLabels {
		out.HasLabels = true
		out.ExpectedTools = ExtractToolSequence(ex)
		out.ExpectedFirstAction = ExtractFirstAction(ex)
		out.ExpectedResponse = ex.FinalResponse
		out.Correctness = ex.Outcome.Correctness
		out.Efficiency = ex.Outcome.Efficiency
		out.MinimalEdits = ex.Outcome.MinimalEdits
	}
	return out
}

// BuildBatch projects many session examples.
func (b *Builder) BuildBatch(examples []*session.Example, includeLabels bool) []*Example {
	out := make([]*Example, 0, len(examples))
	for _, ex := range examples {
		out = append(out, b.Build(ex, includeLabels))
	}
	b.logger.Info("built training examples",
		zap.Int("examples", len(out)),
		zap.Bool("labeled", includeLabels))
	return out
}

// FormatContext renders the workspace context block.
func FormatContext(ex *session.Example) string {
	parts := []string{
		fmt.Sprintf("Working Directory: %s", ex.Context.WorkingDirectory),
		fmt.Sprintf("Total Files: %d", ex.Context.FileCount),
	}

	if len(ex.Context.GitStatus) > 0 {
		branch := stringOr(ex.Context.GitStatus["branch"], "unknown")
		parts = append(parts,
			fmt.Sprintf("Git Branch: %s", branch),
			fmt.Sprintf("Uncommitted Changes: %d", intOr(ex.Context.GitStatus["uncommittedChanges"], 0)))
	}

	if len(ex.Context.LSPDiagnostics) > 0 {
		errors := countOf(ex.Context.LSPDiagnostics["errors"])
		warnings := countOf(ex.Context.LSPDiagnostics["warnings"])
		parts = append(parts, fmt.Sprintf("LSP Errors: %d, Warnings: %d", errors, warnings))
	}

	if n := len(ex.Context.RelevantFiles); n > 0 {
		parts = append(parts, fmt.Sprintf("Relevant Files (%d):", n))
		for _, file := range ex.Context.RelevantFiles[:min(n, maxContextFiles)] {
			parts = append(parts, fmt.Sprintf("  - %s", file))
		}
		if n > maxContextFiles {
			parts = append(parts, fmt.Sprintf("  ... and %d more files", n-maxContextFiles))
		}
	}

	return strings.Join(parts, "\n")
}

// FormatConversationHistory renders prior turns as "[role]: content" lines.
func FormatConversationHistory(ex *session.Example) string {
	if len(ex.ConversationHistory) == 0 {
		return "No prior conversation"
	}
	parts := make([]string, 0, len(ex.ConversationHistory))
	for _, msg := range ex.ConversationHistory {
		parts = append(parts, fmt.Sprintf("[%s]: %s", msg.Role, msg.Content))
	}
	return strings.Join(parts, "\n")
}

// FormatAvailableTools renders the fixed tool catalogue.
func FormatAvailableTools() string {
	return strings.Join(availableTools, "\n")
}

// ExtractToolSequence returns the tool names in invocation order.
func ExtractToolSequence(ex *session.Example) []string {
	tools := make([]string, 0, len(ex.Actions))
	for _, action := range ex.Actions {
		tools = append(tools, action.Tool)
	}
	return tools
}

// ExtractFirstAction returns the first tool call, or nil when the
// session recorded no actions.
func ExtractFirstAction(ex *session.Example) *FirstAction {
	if len(ex.Actions) == 0 {
		return nil
	}
	first := ex.Actions[0]
	return &FirstAction{Tool: first.Tool, Args: first.Args}
}

// countOf reports the element count of a decoded JSON value: length for
// arrays, the value itself for numbers, zero otherwise. Transcript
// generators disagree on whether diagnostics hold lists or counts.
func countOf(v interface{}) int {
	switch t := v.(type) {
	case []interface{}:
		return len(t)
	case float64:
		return int(t)
	case int:
		return t
	default:
		return 0
	}
}

func stringOr(v interface{}, fallback string) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fallback
}

func intOr(v interface{}, fallback int) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case int:
		return t
	default:
		return fallback
	}
}
