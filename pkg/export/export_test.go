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

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/spindle/pkg/agent"
	"github.com/teradata-labs/spindle/pkg/dataset"
	"github.com/teradata-labs/spindle/pkg/teleprompter"
)

func newTestExporter(t *testing.T) *Exporter {
	t.Helper()

	e, err := NewExporter(t.TempDir(), nil)
	require.NoError(t, err)
	return e
}

func testRequest() *Request {
	return &Request{
		Optimized: &teleprompter.OptimizedAgent{
			Instructions: "Plan before you edit.",
			Demonstrations: []agent.Demo{
				{
					Inputs:  map[string]string{dataset.FieldTaskDescription: "fix the login bug"},
					Outputs: map[string]string{agent.FieldReasoning: "inspect the auth flow first"},
					Score:   0.9,
				},
			},
		},
		AgentName:      "build",
		ModelName:      "qwen2.5-coder:7b",
		BaselineScore:  0.61,
		OptimizedScore: 0.74,
	}
}

func TestNewExporter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "artifacts", "nested")
	e, err := NewExporter(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, dir, e.OutputDir())
	assert.DirExists(t, dir)

	_, err = NewExporter("", nil)
	require.Error(t, err)
}

func TestExportAgentConfig(t *testing.T) {
	e := newTestExporter(t)

	path, err := e.ExportAgentConfig(testRequest())
	require.NoError(t, err)
	assert.Equal(t, "opencode-build-qwen2.5-coder-7b.jsonc", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)

	assert.True(t, strings.HasPrefix(content, "// Optimized build agent prompt\n"))
	assert.Contains(t, content, "// Target model: qwen2.5-coder:7b")
	assert.Contains(t, content, "// Improvement: +0.130")

	// Everything after the comment header is plain JSON.
	parts := strings.SplitN(content, "\n\n", 2)
	require.Len(t, parts, 2)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(parts[1]), &decoded))
	assert.InDelta(t, 0.61, decoded["_baseline_score"], 1e-9)
	assert.InDelta(t, 0.13, decoded["_improvement"], 1e-9)

	agentSection, ok := decoded["agent"].(map[string]interface{})
	require.True(t, ok)
	buildAgent, ok := agentSection["build"].(map[string]interface{})
	require.True(t, ok)
	prompt, ok := buildAgent["prompt"].(string)
	require.True(t, ok)
	assert.Contains(t, prompt, "Plan before you edit.")
	assert.Contains(t, prompt, "## Example 1")
}

func TestExportInstructions(t *testing.T) {
	e := newTestExporter(t)

	path, err := e.ExportInstructions(testRequest())
	require.NoError(t, err)
	assert.Equal(t, "OPTIMIZED_BUILD.md", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)

	assert.True(t, strings.HasPrefix(content, "# Optimized Agent Instructions\n"))
	assert.Contains(t, content, "Plan before you edit.")
	assert.Contains(t, content, `"instructions": ["OPTIMIZED_BUILD.md"]`)
}

func TestExportPromptTemplate_MergesBase(t *testing.T) {
	e := newTestExporter(t)

	req := testRequest()
	req.BaseTemplate = "You are a coding agent."

	path, err := e.ExportPromptTemplate(req)
	require.NoError(t, err)
	assert.Equal(t, "qwen2.5-coder-7b-optimized.txt", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "You are a coding agent.\n\nPlan before you edit."))
}

func TestExportAll(t *testing.T) {
	e := newTestExporter(t)

	paths, err := e.ExportAll(testRequest())
	require.NoError(t, err)

	assert.FileExists(t, paths.AgentConfig)
	assert.FileExists(t, paths.Instructions)
	assert.FileExists(t, paths.Template)
	assert.Empty(t, paths.UsageGuide, "guide is written separately")
}

func TestExport_Validation(t *testing.T) {
	e := newTestExporter(t)

	_, err := e.ExportAll(nil)
	require.Error(t, err)

	req := testRequest()
	req.AgentName = ""
	_, err = e.ExportAgentConfig(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agent name")

	req = testRequest()
	req.ModelName = ""
	_, err = e.ExportPromptTemplate(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model name")
}

func TestWriteUsageGuide(t *testing.T) {
	e := newTestExporter(t)

	req := testRequest()
	req.BaseInstructions = "Follow the plan."
	req.Optimized.Instructions = "Plan carefully before editing."

	paths, err := e.ExportAll(req)
	require.NoError(t, err)

	guidePath, err := e.WriteUsageGuide(req, paths)
	require.NoError(t, err)
	assert.Equal(t, "USAGE_GUIDE_build.md", filepath.Base(guidePath))
	assert.Equal(t, guidePath, paths.UsageGuide)

	data, err := os.ReadFile(guidePath)
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "# Using the Optimized Build Agent for qwen2.5-coder:7b")
	assert.Contains(t, content, paths.AgentConfig)
	assert.Contains(t, content, `"instructions": ["OPTIMIZED_BUILD.md"]`)

	assert.Contains(t, content, "## What Changed")
	assert.Contains(t, content, "```diff")
	assert.Contains(t, content, "- Follow the plan.")
	assert.Contains(t, content, "+ Plan carefully before editing.")

	assert.Contains(t, content, "- **Baseline score**: 0.610")
	assert.Contains(t, content, "- **Improvement**: +0.130")
	assert.Contains(t, content, "spindle train --experiment-name build-qwen2.5-coder-7b")
}

func TestWriteUsageGuide_DemosOnly(t *testing.T) {
	e := newTestExporter(t)

	req := testRequest()
	req.Optimized.Instructions = ""
	req.BaseInstructions = "Follow the plan."

	guidePath, err := e.WriteUsageGuide(req, nil)
	require.NoError(t, err)

	data, err := os.ReadFile(guidePath)
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "the improvement comes from the 1 attached demonstrations")
	assert.NotContains(t, content, "```diff")
}

func TestWriteUsageGuide_NoChanges(t *testing.T) {
	e := newTestExporter(t)

	req := testRequest()
	req.Optimized = &teleprompter.OptimizedAgent{}

	guidePath, err := e.WriteUsageGuide(req, nil)
	require.NoError(t, err)

	data, err := os.ReadFile(guidePath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "The run produced no instruction changes.")
}
