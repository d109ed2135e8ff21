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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/spindle/pkg/agent"
	"github.com/teradata-labs/spindle/pkg/dataset"
	"github.com/teradata-labs/spindle/pkg/teleprompter"
)

func TestFormatDemos(t *testing.T) {
	demos := []agent.Demo{
		{
			Inputs: map[string]string{
				dataset.FieldTaskDescription:     "fix the login bug",
				dataset.FieldAvailableTools:      "read, edit, bash",
				dataset.FieldConversationHistory: "",
			},
			Outputs: map[string]string{
				agent.FieldReasoning:   "inspect the auth flow first",
				agent.FieldFirstAction: `{"tool":"read","args":{"filePath":"auth.go"}}`,
			},
			Score: 0.9,
		},
		{
			Inputs:  map[string]string{dataset.FieldTaskDescription: "add retry to the fetcher"},
			Outputs: map[string]string{agent.FieldResponse: "Added exponential backoff."},
		},
	}

	got := FormatDemos(demos)

	assert.Contains(t, got, "# Few-Shot Demonstrations")
	assert.Contains(t, got, "## Example 1")
	assert.Contains(t, got, "## Example 2")
	assert.Contains(t, got, "**Task Description:** fix the login bug")
	assert.Contains(t, got, "**Reasoning:** inspect the auth flow first")
	assert.Contains(t, got, "**Response:** Added exponential backoff.")

	// Inputs render before outputs.
	assert.Less(t, strings.Index(got, "**Task Description:**"), strings.Index(got, "**Reasoning:**"))

	// Empty fields are dropped.
	assert.NotContains(t, got, "**Conversation History:**")
}

func TestFormatDemos_UnknownFieldsSortLast(t *testing.T) {
	demos := []agent.Demo{
		{
			Outputs: map[string]string{
				agent.FieldReasoning: "read before writing",
				"notes":              "double-check the tests",
			},
		},
	}

	got := FormatDemos(demos)

	assert.Contains(t, got, "**Notes:** double-check the tests")
	assert.Less(t, strings.Index(got, "**Reasoning:**"), strings.Index(got, "**Notes:**"))
}

func TestInstructionPrompt(t *testing.T) {
	demos := []agent.Demo{
		{Outputs: map[string]string{agent.FieldReasoning: "read before writing"}},
	}

	t.Run("instructions and demos", func(t *testing.T) {
		got := instructionPrompt(&teleprompter.OptimizedAgent{
			Instructions:   "Plan before you edit.",
			Demonstrations: demos,
		})
		require.True(t, strings.HasPrefix(got, "Plan before you edit.\n\n"))
		assert.Contains(t, got, "# Few-Shot Demonstrations")
	})

	t.Run("instructions only", func(t *testing.T) {
		got := instructionPrompt(&teleprompter.OptimizedAgent{Instructions: "Plan before you edit."})
		assert.Equal(t, "Plan before you edit.", got)
	})

	t.Run("demos only", func(t *testing.T) {
		got := instructionPrompt(&teleprompter.OptimizedAgent{Demonstrations: demos})
		assert.True(t, strings.HasPrefix(got, "# Few-Shot Demonstrations"))
	})

	t.Run("empty result degrades to structure", func(t *testing.T) {
		got := instructionPrompt(&teleprompter.OptimizedAgent{})
		assert.Contains(t, got, "# Module Configuration")
		assert.Contains(t, got, "## Input Fields")
		assert.Contains(t, got, "**task_description**")
		assert.Contains(t, got, "## Usage Note")
	})

	t.Run("nil result degrades to structure", func(t *testing.T) {
		got := instructionPrompt(nil)
		assert.Contains(t, got, "# Module Configuration")
	})
}

func TestDiffLines(t *testing.T) {
	got := diffLines("keep\nold line\n", "keep\nnew line\n")
	assert.Equal(t, []string{"  keep", "- old line", "+ new line"}, got)
}

func TestDiffLines_AllNew(t *testing.T) {
	got := diffLines("", "first\nsecond")
	assert.Equal(t, []string{"+ first", "+ second"}, got)
}
