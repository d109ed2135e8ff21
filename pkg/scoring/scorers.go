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

package scoring

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/teradata-labs/spindle/pkg/dataset"
)

// validTools is the tool vocabulary the coding agent may invoke. A
// predicted action naming anything else is scored as invalid.
var validTools = map[string]struct{}{
	"read":            {},
	"write":           {},
	"edit":            {},
	"bash":            {},
	"glob":            {},
	"grep":            {},
	"task":            {},
	"todowrite":       {},
	"askuserquestion": {},
	"notebookedit":    {},
	"webfetch":        {},
	"websearch":       {},
	"bashoutput":      {},
	"killshell":       {},
	"skill":           {},
	"slashcommand":    {},
	"enterplanmode":   {},
	"exitplanmode":    {},
}

// IsValidTool reports whether name (case-insensitive) is in the agent's
// tool vocabulary.
func IsValidTool(name string) bool {
	_, ok := validTools[strings.ToLower(name)]
	return ok
}

var quotedTermPattern = regexp.MustCompile(`"([^"]+)"`)

// ExtractRelevantTerms pulls the entities an agent should be reasoning
// about out of a formatted environment context: path-like tokens (anything
// containing a slash or a dot, with surrounding punctuation stripped) plus
// double-quoted substrings. Returned sorted and deduplicated.
func ExtractRelevantTerms(environment string) []string {
	seen := make(map[string]struct{})

	for _, line := range strings.Split(environment, "\n") {
		if !strings.Contains(line, "/") && !strings.Contains(line, ".py") &&
			!strings.Contains(line, ".js") && !strings.Contains(line, ".ts") {
			continue
		}
		for _, part := range strings.Fields(line) {
			if strings.Contains(part, "/") || strings.Contains(part, ".") {
				term := strings.Trim(part, ".,;:()[]{}")
				if term != "" {
					seen[term] = struct{}{}
				}
			}
		}
	}

	for _, match := range quotedTermPattern.FindAllStringSubmatch(environment, -1) {
		seen[match[1]] = struct{}{}
	}

	terms := make([]string, 0, len(seen))
	for term := range seen {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}

// ExtractPlanTools returns the valid tool names mentioned in a plan text,
// ordered by where each first appears. Substring matching is intentional:
// plans mention tools inline ("then grep for the symbol") rather than in
// any structured form.
func ExtractPlanTools(plan string) []string {
	planLower := strings.ToLower(plan)

	type mention struct {
		tool string
		pos  int
	}
	mentions := make([]mention, 0, 8)
	for tool := range validTools {
		if pos := strings.Index(planLower, tool); pos >= 0 {
			mentions = append(mentions, mention{tool: tool, pos: pos})
		}
	}
	sort.Slice(mentions, func(i, j int) bool {
		if mentions[i].pos != mentions[j].pos {
			return mentions[i].pos < mentions[j].pos
		}
		return mentions[i].tool < mentions[j].tool
	})

	tools := make([]string, 0, len(mentions))
	for _, m := range mentions {
		tools = append(tools, m.tool)
	}
	return tools
}

// ToolValidity scores whether the predicted first action decodes to a
// call on a known tool. Binary: 1.0 or 0.0.
func ToolValidity(pred *Prediction) float64 {
	if pred == nil || pred.FirstAction == "" {
		return 0.0
	}
	action, err := ParseAction(pred.FirstAction)
	if err != nil {
		return 0.0
	}
	if IsValidTool(action.Tool) {
		return 1.0
	}
	return 0.0
}

// ReasoningQuality scores how much of the environment the reasoning text
// engages with: the fraction of relevant terms mentioned
// case-insensitively. 0.5 when the context yields no terms to check,
// 0.0 when the prediction carries no reasoning at all.
func ReasoningQuality(example *dataset.Example, pred *Prediction) float64 {
	if pred == nil || pred.Reasoning == "" {
		return 0.0
	}

	var environment string
	if example != nil {
		environment = example.EnvironmentContext
	}
	terms := ExtractRelevantTerms(environment)
	if len(terms) == 0 {
		return 0.5
	}

	reasoningLower := strings.ToLower(pred.Reasoning)
	mentioned := 0
	for _, term := range terms {
		if strings.Contains(reasoningLower, strings.ToLower(term)) {
			mentioned++
		}
	}
	return math.Min(float64(mentioned)/float64(len(terms)), 1.0)
}

// PlanCoherence scores the overlap between the first five tools the plan
// mentions and the first five tools the transcript actually used, over
// the size of the expected set. 0.5 when the example carries no tool
// sequence label, 0.0 when the prediction has no plan.
func PlanCoherence(example *dataset.Example, pred *Prediction) float64 {
	if example == nil || len(example.ExpectedTools) == 0 {
		return 0.5
	}
	if pred == nil || pred.ToolPlan == "" {
		return 0.0
	}

	expected := example.ExpectedTools
	if len(expected) > 5 {
		expected = expected[:5]
	}
	expectedSet := make(map[string]struct{}, len(expected))
	for _, tool := range expected {
		expectedSet[tool] = struct{}{}
	}

	planned := ExtractPlanTools(pred.ToolPlan)
	if len(planned) > 5 {
		planned = planned[:5]
	}

	overlap := 0
	for _, tool := range planned {
		if _, ok := expectedSet[tool]; ok {
			overlap++
		}
	}
	return float64(overlap) / float64(len(expectedSet))
}

// FirstActionMatch scores the predicted first action against the labeled
// one. Tool mismatch or an undecodable prediction is 0.0. A tool match is
// full credit unless the label declares critical args, in which case the
// remaining half is prorated over how many of them match by value.
// 0.5 when the example carries no first-action label.
func FirstActionMatch(example *dataset.Example, pred *Prediction) float64 {
	if example == nil || example.ExpectedFirstAction == nil {
		return 0.5
	}
	expected := example.ExpectedFirstAction

	var predicted *Action
	if pred != nil && pred.FirstAction != "" {
		predicted, _ = ParseAction(pred.FirstAction)
	}
	if predicted == nil {
		return 0.0
	}

	if predicted.Tool != expected.Tool {
		return 0.0
	}
	if len(expected.CriticalArgs) == 0 {
		return 1.0
	}

	matched := 0
	for _, name := range expected.CriticalArgs {
		if argsEqual(predicted.Args[name], expected.Args[name]) {
			matched++
		}
	}
	return 0.5 + 0.5*float64(matched)/float64(len(expected.CriticalArgs))
}

// argsEqual compares two decoded JSON values structurally.
func argsEqual(a, b interface{}) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case []interface{}:
		bv, ok := b.([]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !argsEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]interface{}:
		bv, ok := b.(map[string]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			bval, present := bv[k]
			if !present || !argsEqual(v, bval) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Efficiency penalizes reasoning verbosity. The sweet spot is 200-500
// characters; under 100 reads as no real thought, over 1000 decays
// linearly to a 0.3 floor.
func Efficiency(pred *Prediction) float64 {
	var reasoning string
	if pred != nil {
		reasoning = pred.Reasoning
	}
	length := utf8.RuneCountInString(reasoning)

	switch {
	case length < 100:
		return 0.5
	case length >= 200 && length <= 500:
		return 1.0
	case length <= 1000:
		return 0.8
	default:
		return math.Max(0.3, 1.0-float64(length-1000)/2000.0)
	}
}
