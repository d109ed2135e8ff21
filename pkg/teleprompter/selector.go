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

package teleprompter

import (
	"sort"
	"strings"
	"unicode"

	"github.com/teradata-labs/spindle/pkg/agent"
)

// TopKSelector keeps the highest-scoring traces.
type TopKSelector struct{}

// NewTopKSelector creates the default selector.
func NewTopKSelector() *TopKSelector { return &TopKSelector{} }

func (s *TopKSelector) Select(traces []*Trace, max int) []agent.Demo {
	if len(traces) == 0 || max <= 0 {
		return nil
	}
	ranked := rankByScore(traces)
	if max > len(ranked) {
		max = len(ranked)
	}
	demos := make([]agent.Demo, 0, max)
	for _, t := range ranked[:max] {
		demos = append(demos, demoFromTrace(t))
	}
	return demos
}

func (s *TopKSelector) Strategy() string { return SelectTopK }

// DiverseSelector keeps high-scoring traces while skipping near-duplicates,
// so the demonstration set covers distinct task shapes.
type DiverseSelector struct {
	// threshold is the minimum dissimilarity required between any two
	// selected traces; a candidate whose similarity to an already
	// selected trace exceeds 1-threshold is skipped.
	threshold float64
}

// NewDiverseSelector creates a diversity-aware selector. A non-positive
// threshold uses 0.3.
func NewDiverseSelector(threshold float64) *DiverseSelector {
	if threshold <= 0 {
		threshold = 0.3
	}
	return &DiverseSelector{threshold: threshold}
}

func (s *DiverseSelector) Select(traces []*Trace, max int) []agent.Demo {
	if len(traces) == 0 || max <= 0 {
		return nil
	}
	ranked := rankByScore(traces)

	// Greedy: start from the best trace, then admit each next-best trace
	// only if it is dissimilar enough to everything already selected.
	selected := []*Trace{ranked[0]}
	for _, candidate := range ranked[1:] {
		if len(selected) >= max {
			break
		}
		tooSimilar := false
		for _, kept := range selected {
			if traceSimilarity(candidate, kept) > 1.0-s.threshold {
				tooSimilar = true
				break
			}
		}
		if !tooSimilar {
			selected = append(selected, candidate)
		}
	}

	demos := make([]agent.Demo, 0, len(selected))
	for _, t := range selected {
		demos = append(demos, demoFromTrace(t))
	}
	return demos
}

func (s *DiverseSelector) Strategy() string { return SelectDiverse }

// RecentSelector keeps the most recently captured traces.
type RecentSelector struct{}

// NewRecentSelector creates a recency-ordered selector.
func NewRecentSelector() *RecentSelector { return &RecentSelector{} }

func (s *RecentSelector) Select(traces []*Trace, max int) []agent.Demo {
	if len(traces) == 0 || max <= 0 {
		return nil
	}
	ranked := make([]*Trace, len(traces))
	copy(ranked, traces)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].CapturedAt.After(ranked[j].CapturedAt)
	})
	if max > len(ranked) {
		max = len(ranked)
	}
	demos := make([]agent.Demo, 0, max)
	for _, t := range ranked[:max] {
		demos = append(demos, demoFromTrace(t))
	}
	return demos
}

func (s *RecentSelector) Strategy() string { return SelectRecent }

// rankByScore returns a copy of traces sorted by score descending.
func rankByScore(traces []*Trace) []*Trace {
	ranked := make([]*Trace, len(traces))
	copy(ranked, traces)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// traceSimilarity averages the input-side and output-side word overlap of
// two traces.
func traceSimilarity(a, b *Trace) float64 {
	inputSim := wordOverlap(formatFields(a.Example.Inputs()), formatFields(b.Example.Inputs()))
	outputSim := wordOverlap(formatFields(a.Outputs), formatFields(b.Outputs))
	return (inputSim + outputSim) / 2.0
}

// formatFields flattens a field map into comparable text. A single value is
// used directly; multiple values become sorted "key: value" lines.
func formatFields(fields map[string]string) string {
	if len(fields) == 1 {
		for _, v := range fields {
			return v
		}
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(fields[k])
		b.WriteString("\n")
	}
	return b.String()
}

// wordOverlap computes word-level Jaccard similarity between two strings.
func wordOverlap(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0.0
	}
	intersection := 0
	for w := range setA {
		if setB[w] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

// wordSet splits a string on non-alphanumeric runs.
func wordSet(s string) map[string]bool {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
