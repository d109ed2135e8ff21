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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/spindle/pkg/session"
)

func sampleSessionExample() *session.Example {
	ok := true
	return &session.Example{
		SessionID: "ses_42",
		Task:      "Fix the failing parser test",
		Context: session.ContextInfo{
			WorkingDirectory: "/home/dev/project",
			RelevantFiles:    []string{"parser.go", "parser_test.go", "config.yaml"},
			LSPDiagnostics: map[string]interface{}{
				"errors":   []interface{}{"parser.go:10 undefined symbol"},
				"warnings": []interface{}{},
			},
			GitStatus: map[string]interface{}{
				"branch":             "main",
				"uncommittedChanges": float64(2),
			},
			FileCount: 42,
		},
		ConversationHistory: []session.Message{
			{Role: "user", Content: "the tests are red"},
			{Role: "assistant", Content: "Looking into it now."},
		},
		Actions: []session.ToolAction{
			{Step: 1, Tool: "read", CallID: "call_1", Args: map[string]interface{}{"filePath": "parser_test.go"}, Success: &ok},
			{Step: 2, Tool: "edit", CallID: "call_2", Args: map[string]interface{}{"filePath": "parser.go"}, Success: &ok},
		},
		FinalResponse: "Fixed the expected value in the test.",
		Outcome: session.Outcome{
			Success:      true,
			Correctness:  0.9,
			Efficiency:   0.8,
			MinimalEdits: 1.0,
		},
		AgentConfig: session.AgentConfig{Name: "build", Model: "gpt-4o"},
	}
}

func TestFormatContext(t *testing.T) {
	t.Run("renders all context blocks", func(t *testing.T) {
		got := FormatContext(sampleSessionExample())

		want := strings.Join([]string{
			"Working Directory: /home/dev/project",
			"Total Files: 42",
			"Git Branch: main",
			"Uncommitted Changes: 2",
			"LSP Errors: 1, Warnings: 0",
			"Relevant Files (3):",
			"  - parser.go",
			"  - parser_test.go",
			"  - config.yaml",
		}, "\n")
		assert.Equal(t, want, got)
	})

	t.Run("omits git and LSP blocks when absent", func(t *testing.T) {
		ex := sampleSessionExample()
		ex.Context.GitStatus = nil
		ex.Context.LSPDiagnostics = nil

		got := FormatContext(ex)
		assert.NotContains(t, got, "Git Branch")
		assert.NotContains(t, got, "LSP Errors")
		assert.Contains(t, got, "Working Directory: /home/dev/project")
	})

	t.Run("truncates long file lists at twenty", func(t *testing.T) {
		ex := sampleSessionExample()
		ex.Context.RelevantFiles = nil
		for i := 0; i < 55; i++ {
			ex.Context.RelevantFiles = append(ex.Context.RelevantFiles, fmt.Sprintf("file%02d.go", i))
		}

		got := FormatContext(ex)
		assert.Contains(t, got, "Relevant Files (55):")
		assert.Contains(t, got, "  - file19.go")
		assert.NotContains(t, got, "  - file20.go")
		assert.Contains(t, got, "  ... and 35 more files")
	})

	t.Run("unknown git branch falls back", func(t *testing.T) {
		ex := sampleSessionExample()
		ex.Context.GitStatus = map[string]interface{}{"dirty": true}

		got := FormatContext(ex)
		assert.Contains(t, got, "Git Branch: unknown")
		assert.Contains(t, got, "Uncommitted Changes: 0")
	})
}

func TestFormatConversationHistory(t *testing.T) {
	t.Run("renders role-tagged lines", func(t *testing.T) {
		got := FormatConversationHistory(sampleSessionExample())
		assert.Equal(t, "[user]: the tests are red\n[assistant]: Looking into it now.", got)
	})

	t.Run("empty history has a placeholder", func(t *testing.T) {
		ex := sampleSessionExample()
		ex.ConversationHistory = nil
		assert.Equal(t, "No prior conversation", FormatConversationHistory(ex))
	})
}

func TestFormatAvailableTools(t *testing.T) {
	got := FormatAvailableTools()

	lines := strings.Split(got, "\n")
	require.Len(t, lines, 9)
	assert.Equal(t, "read - Read file contents", lines[0])
	assert.Equal(t, "askuserquestion - Ask user for clarification", lines[8])
}

func TestBuild(t *testing.T) {
	builder := NewBuilder(nil)

	t.Run("with labels", func(t *testing.T) {
		ex := builder.Build(sampleSessionExample(), true)

		assert.Equal(t, "Fix the failing parser test", ex.TaskDescription)
		assert.True(t, ex.HasLabels)
		assert.Equal(t, []string{"read", "edit"}, ex.ExpectedTools)
		require.NotNil(t, ex.ExpectedFirstAction)
		assert.Equal(t, "read", ex.ExpectedFirstAction.Tool)
		assert.Equal(t, "parser_test.go", ex.ExpectedFirstAction.Args["filePath"])
		assert.Equal(t, "Fixed the expected value in the test.", ex.ExpectedResponse)
		assert.InDelta(t, 0.9, ex.Correctness, 1e-9)
		assert.Equal(t, "ses_42", ex.SessionID)
		assert.Equal(t, "build", ex.AgentName)
	})

	t.Run("without labels", func(t *testing.T) {
		ex := builder.Build(sampleSessionExample(), false)

		assert.False(t, ex.HasLabels)
		assert.Empty(t, ex.ExpectedTools)
		assert.Nil(t, ex.ExpectedFirstAction)
		assert.Empty(t, ex.ExpectedResponse)
	})

	t.Run("no actions means no first action", func(t *testing.T) {
		src := sampleSessionExample()
		src.Actions = nil

		ex := builder.Build(src, true)
		assert.Nil(t, ex.ExpectedFirstAction)
		assert.Empty(t, ex.ExpectedTools)
	})

	t.Run("inputs view exposes exactly four fields", func(t *testing.T) {
		ex := builder.Build(sampleSessionExample(), true)

		inputs := ex.Inputs()
		require.Len(t, inputs, 4)
		assert.Equal(t, ex.TaskDescription, inputs[FieldTaskDescription])
		assert.Equal(t, ex.EnvironmentContext, inputs[FieldEnvironmentContext])
		assert.Equal(t, ex.ConversationHistory, inputs[FieldConversationHistory])
		assert.Equal(t, ex.AvailableTools, inputs[FieldAvailableTools])
		assert.NotContains(t, inputs, "expected_response")
	})
}

func TestBuildBatch(t *testing.T) {
	builder := NewBuilder(nil)
	src := []*session.Example{sampleSessionExample(), sampleSessionExample()}

	out := builder.BuildBatch(src, true)
	require.Len(t, out, 2)
	assert.True(t, out[0].HasLabels)
}

func TestComputeStats(t *testing.T) {
	builder := NewBuilder(nil)
	examples := builder.BuildBatch([]*session.Example{sampleSessionExample()}, true)
	examples = append(examples, builder.Build(sampleSessionExample(), false))

	stats := ComputeStats(examples)
	assert.Equal(t, 2, stats.Examples)
	assert.Equal(t, 1, stats.Labeled)
	assert.Greater(t, stats.MeanInputToken, 0)
	assert.GreaterOrEqual(t, stats.MaxInputToken, stats.MeanInputToken)
}
