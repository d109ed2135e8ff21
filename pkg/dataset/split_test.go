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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/spindle/pkg/session"
)

func makeExamples(n int, agent string) []*Example {
	out := make([]*Example, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, &Example{
			TaskDescription: fmt.Sprintf("task %s %d", agent, i),
			SessionID:       fmt.Sprintf("ses_%s_%d", agent, i),
			AgentName:       agent,
		})
	}
	return out
}

func ids(examples []*Example) []string {
	out := make([]string, 0, len(examples))
	for _, ex := range examples {
		out = append(out, ex.SessionID)
	}
	return out
}

func TestSplitFractionValidation(t *testing.T) {
	examples := makeExamples(10, "build")

	t.Run("rejects fractions summing to 0.9", func(t *testing.T) {
		_, _, _, err := Split(examples, Fractions{Train: 0.7, Val: 0.1, Test: 0.1}, 42)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must sum to 1.0")
	})

	t.Run("accepts sums within the 0.01 tolerance", func(t *testing.T) {
		_, _, _, err := Split(examples, Fractions{Train: 0.7, Val: 0.15, Test: 0.145}, 42)
		require.NoError(t, err)
	})

	t.Run("rejects sums just outside the tolerance", func(t *testing.T) {
		_, _, _, err := Split(examples, Fractions{Train: 0.7, Val: 0.15, Test: 0.17}, 42)
		require.Error(t, err)
	})
}

func TestSplitDeterminism(t *testing.T) {
	examples := makeExamples(100, "build")
	fractions := Fractions{Train: 0.7, Val: 0.15, Test: 0.15}

	train1, val1, test1, err := Split(examples, fractions, 42)
	require.NoError(t, err)
	train2, val2, test2, err := Split(examples, fractions, 42)
	require.NoError(t, err)

	// Identical partitions, element by element, not just sizes.
	assert.Equal(t, ids(train1), ids(train2))
	assert.Equal(t, ids(val1), ids(val2))
	assert.Equal(t, ids(test1), ids(test2))

	t.Run("different seed shuffles differently", func(t *testing.T) {
		train3, _, _, err := Split(examples, fractions, 43)
		require.NoError(t, err)
		assert.NotEqual(t, ids(train1), ids(train3))
	})
}

func TestSplitBoundaries(t *testing.T) {
	examples := makeExamples(10, "build")

	train, val, test, err := Split(examples, Fractions{Train: 0.7, Val: 0.15, Test: 0.15}, 42)
	require.NoError(t, err)

	// floor(10*0.7)=7, floor(10*0.85)=8
	assert.Len(t, train, 7)
	assert.Len(t, val, 1)
	assert.Len(t, test, 2)

	// Partition covers every example exactly once.
	seen := make(map[string]int)
	for _, ex := range append(append(append([]*Example{}, train...), val...), test...) {
		seen[ex.SessionID]++
	}
	require.Len(t, seen, 10)
	for id, count := range seen {
		assert.Equal(t, 1, count, "example %s appears %d times", id, count)
	}
}

func TestSplitStratified(t *testing.T) {
	examples := append(makeExamples(40, "build"), makeExamples(20, "plan")...)
	fractions := Fractions{Train: 0.7, Val: 0.15, Test: 0.15}

	train, val, test, err := SplitStratified(examples, fractions, 42, StratifyByAgent)
	require.NoError(t, err)

	countByAgent := func(list []*Example) map[string]int {
		counts := make(map[string]int)
		for _, ex := range list {
			counts[ex.AgentName]++
		}
		return counts
	}

	// Per-group proportions: floor(40*0.7)=28, floor(20*0.7)=14.
	trainCounts := countByAgent(train)
	assert.Equal(t, 28, trainCounts["build"])
	assert.Equal(t, 14, trainCounts["plan"])

	// floor(40*0.85)-28=6, floor(20*0.85)-14=3
	valCounts := countByAgent(val)
	assert.Equal(t, 6, valCounts["build"])
	assert.Equal(t, 3, valCounts["plan"])

	assert.Len(t, test, 60-len(train)-len(val))

	t.Run("deterministic for a fixed seed", func(t *testing.T) {
		train2, val2, test2, err := SplitStratified(examples, fractions, 42, StratifyByAgent)
		require.NoError(t, err)
		assert.Equal(t, ids(train), ids(train2))
		assert.Equal(t, ids(val), ids(val2))
		assert.Equal(t, ids(test), ids(test2))
	})

	t.Run("small groups may drift from global fractions", func(t *testing.T) {
		// Three groups of 3: floor(3*0.7)=2 each, so train gets 6 of 9
		// examples (67%) instead of the requested 70%. Concatenation keeps
		// per-group proportions; it does not re-balance globally.
		small := append(append(makeExamples(3, "a"), makeExamples(3, "b")...), makeExamples(3, "c")...)
		sTrain, _, _, err := SplitStratified(small, fractions, 42, StratifyByAgent)
		require.NoError(t, err)
		assert.Len(t, sTrain, 6)
	})
}

func TestEndToEndFilterBuildSplit(t *testing.T) {
	// Ten sessions with one example each: eight successful with
	// correctness 0.9, two failed with correctness 0.4.
	var sessionExamples []*session.Example
	for i := 0; i < 10; i++ {
		ex := &session.Example{
			SessionID: fmt.Sprintf("ses_%02d", i),
			Task:      fmt.Sprintf("task %d", i),
			Outcome: session.Outcome{
				Success:     i < 8,
				Correctness: 0.9,
				Efficiency:  0.8,
			},
			AgentConfig: session.AgentConfig{Name: "build", Model: "gpt-4o"},
		}
		if i >= 8 {
			ex.Outcome.Correctness = 0.4
		}
		sessionExamples = append(sessionExamples, ex)
	}

	filtered := session.FilterByQuality(session.FilterSuccessful(sessionExamples), 0.5, 0.0)
	require.Len(t, filtered, 8)

	builder := NewBuilder(nil)
	examples := builder.BuildBatch(filtered, true)
	require.Len(t, examples, 8)

	train, val, test, err := Split(examples, Fractions{Train: 0.75, Val: 0.25, Test: 0.0}, 1)
	require.NoError(t, err)
	assert.Len(t, train, 6)
	assert.Len(t, val, 2)
	assert.Empty(t, test)
}
