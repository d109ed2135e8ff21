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
	"fmt"
	"sort"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/teradata-labs/spindle/pkg/agent"
	"github.com/teradata-labs/spindle/pkg/dataset"
	"github.com/teradata-labs/spindle/pkg/teleprompter"
)

// demoFieldOrder fixes the rendering order of demonstration fields: the
// program's inputs first, then its outputs. Fields outside this list render
// after it in name order.
var demoFieldOrder = []string{
	dataset.FieldTaskDescription,
	dataset.FieldEnvironmentContext,
	dataset.FieldConversationHistory,
	dataset.FieldAvailableTools,
	agent.FieldReasoning,
	agent.FieldToolPlan,
	agent.FieldFirstAction,
	agent.FieldResponse,
}

// FormatDemos renders demonstrations as a markdown few-shot block, one
// "## Example N" section per demo with "**Field:** value" lines. Empty
// fields are skipped.
func FormatDemos(demos []agent.Demo) string {
	var b strings.Builder
	b.WriteString("# Few-Shot Demonstrations\n\n")
	b.WriteString("These examples show how to approach coding tasks effectively.\n")

	for i, demo := range demos {
		fmt.Fprintf(&b, "\n## Example %d\n\n", i+1)
		for _, line := range demoFieldLines(demo) {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func demoFieldLines(demo agent.Demo) []string {
	var lines []string
	seen := make(map[string]bool)

	emit := func(name, value string) {
		if value == "" {
			return
		}
		lines = append(lines, fmt.Sprintf("**%s:** %s", agent.FieldLabel(name), value))
	}

	for _, name := range demoFieldOrder {
		seen[name] = true
		if v, ok := demo.Inputs[name]; ok {
			emit(name, v)
		} else if v, ok := demo.Outputs[name]; ok {
			emit(name, v)
		}
	}

	var rest []string
	for name := range demo.Inputs {
		if !seen[name] {
			rest = append(rest, name)
			seen[name] = true
		}
	}
	for name := range demo.Outputs {
		if !seen[name] {
			rest = append(rest, name)
			seen[name] = true
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		if v, ok := demo.Inputs[name]; ok {
			emit(name, v)
		} else {
			emit(name, demo.Outputs[name])
		}
	}

	return lines
}

// instructionPrompt turns a compiled result into the text that ships in the
// exported artifacts. Instructions come first, then the demonstration block.
// A result with neither degrades to a structural description of the program
// contract instead of failing the export.
func instructionPrompt(optimized *teleprompter.OptimizedAgent) string {
	var parts []string
	if optimized != nil {
		if optimized.Instructions != "" {
			parts = append(parts, optimized.Instructions)
		}
		if len(optimized.Demonstrations) > 0 {
			parts = append(parts, FormatDemos(optimized.Demonstrations))
		}
	}
	if len(parts) == 0 {
		return fallbackDescription()
	}
	return strings.Join(parts, "\n\n")
}

// fallbackDescription documents the program contract for runs that produced
// neither instructions nor demonstrations.
func fallbackDescription() string {
	sig := agent.TaskSignature()

	var b strings.Builder
	b.WriteString("# Module Configuration\n\n")
	b.WriteString("This optimization did not produce instructions or few-shot demonstrations.\n")
	b.WriteString("Below is the program contract for reference.\n\n")

	b.WriteString("## Input Fields\n\n")
	for _, f := range sig.Inputs {
		fmt.Fprintf(&b, "- **%s**: %s\n", f.Name, f.Description)
	}
	b.WriteString("\n## Output Fields\n\n")
	for _, f := range sig.Outputs {
		fmt.Fprintf(&b, "- **%s**: %s\n", f.Name, f.Description)
	}

	b.WriteString("\n## Usage Note\n\n")
	b.WriteString("The optimization completed without artifacts that beat the baseline. This can happen when:\n\n")
	b.WriteString("- The baseline is already performing well\n")
	b.WriteString("- The training set is too small\n")
	b.WriteString("- The metric does not capture meaningful improvements\n\n")
	b.WriteString("Consider running with more training examples, a different optimizer, or adjusted metric weights.\n")
	return b.String()
}

// diffLines produces a line-oriented diff between the base and optimized
// instruction text, prefixed diff-style for a fenced markdown block.
func diffLines(base, optimized string) []string {
	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(base, optimized)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lineArray)

	var out []string
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		}
		for _, line := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			out = append(out, prefix+line)
		}
	}
	return out
}
