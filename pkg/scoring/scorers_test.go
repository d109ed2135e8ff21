// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package scoring

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/teradata-labs/spindle/pkg/dataset"
)

func TestToolValidity(t *testing.T) {
	tests := []struct {
		name   string
		action string
		want   float64
	}{
		{
			name:   "valid read action",
			action: `{"tool":"read","args":{"filePath":"config.py"}}`,
			want:   1.0,
		},
		{
			name:   "unknown tool",
			action: `{"tool":"invalid_tool","args":{}}`,
			want:   0.0,
		},
		{
			name:   "mixed case tool name",
			action: `{"tool":"Bash","args":{"command":"ls"}}`,
			want:   1.0,
		},
		{
			name:   "fenced action",
			action: "```json\n{\"tool\":\"grep\",\"args\":{\"pattern\":\"x\"}}\n```",
			want:   1.0,
		},
		{
			name:   "prose instead of JSON",
			action: "read the file",
			want:   0.0,
		},
		{
			name:   "missing tool field",
			action: `{"args":{"filePath":"a.py"}}`,
			want:   0.0,
		},
		{
			name:   "empty first action",
			action: "",
			want:   0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pred := &Prediction{FirstAction: tt.action}
			assert.Equal(t, tt.want, ToolValidity(pred))
		})
	}

	t.Run("nil prediction", func(t *testing.T) {
		assert.Equal(t, 0.0, ToolValidity(nil))
	})
}

func TestExtractRelevantTerms(t *testing.T) {
	env := "Working Directory: /home/user/project\n" +
		"Relevant Files (3):\n" +
		"  - src/auth/login.py\n" +
		"  - (src/auth/session.py),\n" +
		"  - README\n" +
		"The task mentions \"token refresh\" explicitly."

	terms := ExtractRelevantTerms(env)

	assert.Contains(t, terms, "/home/user/project")
	assert.Contains(t, terms, "src/auth/login.py")
	assert.Contains(t, terms, "src/auth/session.py")
	assert.Contains(t, terms, "token refresh")
	assert.NotContains(t, terms, "README")
	assert.True(t, sortedStrings(terms), "terms should come back sorted")
}

func TestExtractRelevantTermsLineGate(t *testing.T) {
	// A dotted file name on a line with no slash and no .py/.js/.ts
	// extension never passes the line filter.
	terms := ExtractRelevantTerms("  - main.go")
	assert.Empty(t, terms)

	terms = ExtractRelevantTerms("")
	assert.Empty(t, terms)
}

func TestExtractPlanTools(t *testing.T) {
	t.Run("text order", func(t *testing.T) {
		plan := "First grep for usages, then read each file, finally edit the handler."
		assert.Equal(t, []string{"grep", "read", "edit"}, ExtractPlanTools(plan))
	})

	t.Run("deduplicates repeated mentions", func(t *testing.T) {
		assert.Equal(t, []string{"read"}, ExtractPlanTools("read, read again, then read once more"))
	})

	t.Run("overlapping names at same position", func(t *testing.T) {
		// "bashoutput" contains "bash"; both match at the same offset.
		assert.Equal(t, []string{"bash", "bashoutput"}, ExtractPlanTools("bashoutput from the running shell"))
	})

	t.Run("no tools", func(t *testing.T) {
		assert.Empty(t, ExtractPlanTools("think carefully about the problem"))
	})
}

func TestReasoningQuality(t *testing.T) {
	env := "Working Directory: /repo\n  - src/app.py\n  - src/util.py"
	example := &dataset.Example{EnvironmentContext: env}

	t.Run("empty reasoning", func(t *testing.T) {
		score := ReasoningQuality(example, &Prediction{})
		assert.Equal(t, 0.0, score)
	})

	t.Run("no terms to check", func(t *testing.T) {
		bare := &dataset.Example{EnvironmentContext: "No files listed here"}
		score := ReasoningQuality(bare, &Prediction{Reasoning: "some thought"})
		assert.Equal(t, 0.5, score)
	})

	t.Run("partial coverage", func(t *testing.T) {
		// Terms: /repo, src/app.py, src/util.py. One of three mentioned.
		pred := &Prediction{Reasoning: "I will open src/app.py and trace the handler."}
		assert.InDelta(t, 1.0/3.0, ReasoningQuality(example, pred), 1e-9)
	})

	t.Run("full coverage case insensitive", func(t *testing.T) {
		pred := &Prediction{Reasoning: "Inside /REPO, compare SRC/APP.PY with src/util.py."}
		assert.Equal(t, 1.0, ReasoningQuality(example, pred))
	})

	t.Run("nil example", func(t *testing.T) {
		assert.Equal(t, 0.5, ReasoningQuality(nil, &Prediction{Reasoning: "thinking"}))
	})
}

func TestPlanCoherence(t *testing.T) {
	t.Run("no ground truth", func(t *testing.T) {
		pred := &Prediction{ToolPlan: "read then edit"}
		assert.Equal(t, 0.5, PlanCoherence(&dataset.Example{}, pred))
		assert.Equal(t, 0.5, PlanCoherence(nil, pred))
	})

	t.Run("empty plan", func(t *testing.T) {
		example := &dataset.Example{ExpectedTools: []string{"read"}}
		assert.Equal(t, 0.0, PlanCoherence(example, &Prediction{}))
	})

	t.Run("full overlap", func(t *testing.T) {
		example := &dataset.Example{ExpectedTools: []string{"read", "edit"}}
		pred := &Prediction{ToolPlan: "read the file, then edit it"}
		assert.Equal(t, 1.0, PlanCoherence(example, pred))
	})

	t.Run("partial overlap", func(t *testing.T) {
		example := &dataset.Example{ExpectedTools: []string{"read", "edit"}}
		pred := &Prediction{ToolPlan: "grep for the symbol, then read the match"}
		assert.Equal(t, 0.5, PlanCoherence(example, pred))
	})

	t.Run("duplicate expected tools collapse", func(t *testing.T) {
		example := &dataset.Example{ExpectedTools: []string{"read", "read", "edit"}}
		pred := &Prediction{ToolPlan: "read and edit"}
		assert.Equal(t, 1.0, PlanCoherence(example, pred))
	})

	t.Run("only first five planned tools count", func(t *testing.T) {
		example := &dataset.Example{ExpectedTools: []string{"task"}}
		pred := &Prediction{ToolPlan: "read write edit bash glob then task"}
		assert.Equal(t, 0.0, PlanCoherence(example, pred))
	})
}

func TestFirstActionMatch(t *testing.T) {
	t.Run("no ground truth", func(t *testing.T) {
		pred := &Prediction{FirstAction: `{"tool":"read","args":{}}`}
		assert.Equal(t, 0.5, FirstActionMatch(&dataset.Example{}, pred))
		assert.Equal(t, 0.5, FirstActionMatch(nil, pred))
	})

	t.Run("tool match no critical args", func(t *testing.T) {
		example := &dataset.Example{ExpectedFirstAction: &dataset.FirstAction{
			Tool: "read",
			Args: map[string]interface{}{"filePath": "config.py"},
		}}
		pred := &Prediction{FirstAction: `{"tool":"read","args":{"filePath":"other.py"}}`}
		assert.Equal(t, 1.0, FirstActionMatch(example, pred))
	})

	t.Run("tool mismatch regardless of args", func(t *testing.T) {
		example := &dataset.Example{ExpectedFirstAction: &dataset.FirstAction{
			Tool: "read",
			Args: map[string]interface{}{"filePath": "config.py"},
		}}
		pred := &Prediction{FirstAction: `{"tool":"write","args":{"filePath":"config.py"}}`}
		assert.Equal(t, 0.0, FirstActionMatch(example, pred))
	})

	t.Run("unparsable prediction", func(t *testing.T) {
		example := &dataset.Example{ExpectedFirstAction: &dataset.FirstAction{Tool: "read"}}
		assert.Equal(t, 0.0, FirstActionMatch(example, &Prediction{FirstAction: "open it"}))
		assert.Equal(t, 0.0, FirstActionMatch(example, &Prediction{}))
		assert.Equal(t, 0.0, FirstActionMatch(example, nil))
	})

	t.Run("critical args all match", func(t *testing.T) {
		example := &dataset.Example{ExpectedFirstAction: &dataset.FirstAction{
			Tool:         "read",
			Args:         map[string]interface{}{"filePath": "config.py"},
			CriticalArgs: []string{"filePath"},
		}}
		pred := &Prediction{FirstAction: `{"tool":"read","args":{"filePath":"config.py"}}`}
		assert.Equal(t, 1.0, FirstActionMatch(example, pred))
	})

	t.Run("critical arg differs", func(t *testing.T) {
		example := &dataset.Example{ExpectedFirstAction: &dataset.FirstAction{
			Tool:         "read",
			Args:         map[string]interface{}{"filePath": "config.py"},
			CriticalArgs: []string{"filePath"},
		}}
		pred := &Prediction{FirstAction: `{"tool":"read","args":{"filePath":"main.py"}}`}
		assert.Equal(t, 0.5, FirstActionMatch(example, pred))
	})

	t.Run("half of critical args match", func(t *testing.T) {
		example := &dataset.Example{ExpectedFirstAction: &dataset.FirstAction{
			Tool:         "edit",
			Args:         map[string]interface{}{"filePath": "a.go", "replaceAll": true},
			CriticalArgs: []string{"filePath", "replaceAll"},
		}}
		pred := &Prediction{FirstAction: `{"tool":"edit","args":{"filePath":"a.go","replaceAll":false}}`}
		assert.Equal(t, 0.75, FirstActionMatch(example, pred))
	})

	t.Run("critical arg absent on both sides counts as match", func(t *testing.T) {
		example := &dataset.Example{ExpectedFirstAction: &dataset.FirstAction{
			Tool:         "bash",
			CriticalArgs: []string{"timeout"},
		}}
		pred := &Prediction{FirstAction: `{"tool":"bash","args":{"command":"ls"}}`}
		assert.Equal(t, 1.0, FirstActionMatch(example, pred))
	})
}

func TestArgsEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b interface{}
		want bool
	}{
		{"both nil", nil, nil, true},
		{"nil vs value", nil, "x", false},
		{"equal strings", "a.py", "a.py", true},
		{"different strings", "a.py", "b.py", false},
		{"equal numbers", float64(3), float64(3), true},
		{"string vs number", "3", float64(3), false},
		{"equal bools", true, true, true},
		{
			"nested maps",
			map[string]interface{}{"a": []interface{}{float64(1), "x"}},
			map[string]interface{}{"a": []interface{}{float64(1), "x"}},
			true,
		},
		{
			"array order matters",
			[]interface{}{"a", "b"},
			[]interface{}{"b", "a"},
			false,
		},
		{"empty map vs nil", map[string]interface{}{}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, argsEqual(tt.a, tt.b))
		})
	}
}

func TestEfficiency(t *testing.T) {
	tests := []struct {
		length int
		want   float64
	}{
		{0, 0.5},
		{50, 0.5},
		{99, 0.5},
		{100, 0.8},
		{199, 0.8},
		{200, 1.0},
		{300, 1.0},
		{500, 1.0},
		{501, 0.8},
		{1000, 0.8},
		{1200, 0.9},
		{1500, 0.75},
		{2000, 0.5},
		{2400, 0.3},
		{3000, 0.3},
		{10000, 0.3},
	}

	for _, tt := range tests {
		pred := &Prediction{Reasoning: strings.Repeat("a", tt.length)}
		assert.InDelta(t, tt.want, Efficiency(pred), 1e-9, "length %d", tt.length)
	}

	// The decay at 1500 has already dropped below the plateau value.
	long := Efficiency(&Prediction{Reasoning: strings.Repeat("a", 1500)})
	plateau := Efficiency(&Prediction{Reasoning: strings.Repeat("a", 1000)})
	assert.Less(t, long, plateau)
}

func TestEfficiencyMonotonicBeyondOptimal(t *testing.T) {
	prev := Efficiency(&Prediction{Reasoning: strings.Repeat("a", 1001)})
	for _, length := range []int{1100, 1500, 2000, 2500, 3000, 5000} {
		cur := Efficiency(&Prediction{Reasoning: strings.Repeat("a", length)})
		assert.LessOrEqual(t, cur, prev, "length %d", length)
		assert.GreaterOrEqual(t, cur, 0.3, "length %d", length)
		prev = cur
	}
}

func TestEfficiencyCountsRunesNotBytes(t *testing.T) {
	// 300 two-byte runes: optimal by character count.
	pred := &Prediction{Reasoning: strings.Repeat("é", 300)}
	assert.Equal(t, 1.0, Efficiency(pred))
}

func sortedStrings(s []string) bool {
	for i := 1; i < len(s); i++ {
		if s[i-1] > s[i] {
			return false
		}
	}
	return true
}
