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
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/teradata-labs/spindle/pkg/dataset"
)

// Component names accepted in a Weights map.
const (
	ComponentToolValidity     = "toolValidity"
	ComponentReasoningQuality = "reasoningQuality"
	ComponentPlanCoherence    = "planCoherence"
	ComponentFirstActionMatch = "firstActionMatch"
	ComponentEfficiency       = "efficiency"

	ComponentSuccess     = "success"
	ComponentCorrectness = "correctness"
)

// Metric names accepted by ForName and the evaluation.primary_metric
// config key.
const (
	MetricComposite   = "composite"
	MetricCorrectness = "correctness"
	MetricSimple      = "simple"
	MetricCompletion  = "completion"
)

// Metric scores one prediction against one example. Scores are in [0, 1]
// with 1.0 perfect. Implementations must tolerate unlabeled examples and
// partially-filled predictions; an error means the metric itself could
// not run, not that the prediction was bad.
type Metric interface {
	Score(ctx context.Context, example *dataset.Example, pred *Prediction) (float64, error)
	Name() string
}

// Weights maps component names to their share of an aggregate score.
// Weights are combined by weighted average and need not sum to 1.
type Weights map[string]float64

// DefaultWeights is the composite weighting: tool validity dominates
// because an invalid action makes the rest moot, plan coherence and
// first-action match carry the sequencing signal.
func DefaultWeights() Weights {
	return Weights{
		ComponentToolValidity:     3.0,
		ComponentReasoningQuality: 1.0,
		ComponentPlanCoherence:    2.0,
		ComponentFirstActionMatch: 2.0,
		ComponentEfficiency:       1.0,
	}
}

// DefaultCompletionWeights is the outcome-style weighting used by the
// Completion metric.
func DefaultCompletionWeights() Weights {
	return Weights{
		ComponentSuccess:     0.5,
		ComponentEfficiency:  0.3,
		ComponentCorrectness: 0.2,
	}
}

// Composite is the primary optimization objective: the weighted average
// of all five component scorers.
type Composite struct {
	weights Weights
	logger  *zap.Logger
}

var _ Metric = (*Composite)(nil)

// NewComposite builds the composite metric. A nil or empty weights map
// selects DefaultWeights. Unknown component names and negative weights
// are configuration errors.
func NewComposite(weights Weights, logger *zap.Logger) (*Composite, error) {
	if len(weights) == 0 {
		weights = DefaultWeights()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	total := 0.0
	for name, weight := range weights {
		switch name {
		case ComponentToolValidity, ComponentReasoningQuality, ComponentPlanCoherence,
			ComponentFirstActionMatch, ComponentEfficiency:
		default:
			return nil, fmt.Errorf("unknown metric component %q", name)
		}
		if weight < 0 {
			return nil, fmt.Errorf("component %q has negative weight %g", name, weight)
		}
		total += weight
	}
	if total == 0 {
		return nil, fmt.Errorf("metric weights sum to zero")
	}

	return &Composite{weights: weights, logger: logger}, nil
}

// Score implements Metric.
func (c *Composite) Score(ctx context.Context, example *dataset.Example, pred *Prediction) (float64, error) {
	components := map[string]float64{
		ComponentToolValidity:     ToolValidity(pred),
		ComponentReasoningQuality: ReasoningQuality(example, pred),
		ComponentPlanCoherence:    PlanCoherence(example, pred),
		ComponentFirstActionMatch: FirstActionMatch(example, pred),
		ComponentEfficiency:       Efficiency(pred),
	}

	weightedSum := 0.0
	totalWeight := 0.0
	for name, weight := range c.weights {
		weightedSum += components[name] * weight
		totalWeight += weight
	}
	score := weightedSum / totalWeight

	c.logger.Debug("scored prediction",
		zap.Float64("score", score),
		zap.Float64("tool_validity", components[ComponentToolValidity]),
		zap.Float64("reasoning_quality", components[ComponentReasoningQuality]),
		zap.Float64("plan_coherence", components[ComponentPlanCoherence]),
		zap.Float64("first_action_match", components[ComponentFirstActionMatch]),
		zap.Float64("efficiency", components[ComponentEfficiency]),
	)
	return score, nil
}

// Name implements Metric.
func (c *Composite) Name() string { return MetricComposite }

// Correctness is the strict gate used to pick demonstrations: zero
// unless the predicted action decodes to a valid tool, otherwise the
// first-action match score.
type Correctness struct{}

var _ Metric = (*Correctness)(nil)

// NewCorrectness builds the correctness metric.
func NewCorrectness() *Correctness { return &Correctness{} }

// Score implements Metric.
func (c *Correctness) Score(ctx context.Context, example *dataset.Example, pred *Prediction) (float64, error) {
	if ToolValidity(pred) < 1.0 {
		return 0.0, nil
	}
	return FirstActionMatch(example, pred), nil
}

// Name implements Metric.
func (c *Correctness) Name() string { return MetricCorrectness }

// Simple is the binary smoke check: did the agent propose any valid
// tool call at all.
type Simple struct{}

var _ Metric = (*Simple)(nil)

// NewSimple builds the simple metric.
func NewSimple() *Simple { return &Simple{} }

// Score implements Metric.
func (s *Simple) Score(ctx context.Context, example *dataset.Example, pred *Prediction) (float64, error) {
	if ToolValidity(pred) >= 1.0 {
		return 1.0, nil
	}
	return 0.0, nil
}

// Name implements Metric.
func (s *Simple) Name() string { return MetricSimple }

// completionIndicators are the phrases that signal a task was wrapped up.
var completionIndicators = []string{
	"done", "completed", "successfully", "finished", "added", "fixed",
}

// Completion is the coarse outcome-style metric: credit for proposing a
// valid action, for planning a tool count close to the labeled sequence
// (no credit past 1.5x), and for a response that reads as finished.
type Completion struct {
	weights Weights
}

var _ Metric = (*Completion)(nil)

// NewCompletion builds the completion metric. Nil weights selects
// DefaultCompletionWeights.
func NewCompletion(weights Weights) *Completion {
	if len(weights) == 0 {
		weights = DefaultCompletionWeights()
	}
	return &Completion{weights: weights}
}

// Score implements Metric.
func (m *Completion) Score(ctx context.Context, example *dataset.Example, pred *Prediction) (float64, error) {
	score := 0.0

	if ToolValidity(pred) >= 1.0 {
		score += m.weights[ComponentSuccess]
	}

	if example != nil && len(example.ExpectedTools) > 0 && pred != nil {
		expected := len(example.ExpectedTools)
		actual := len(ExtractPlanTools(pred.ToolPlan))
		if actual > 0 && float64(actual) <= float64(expected)*1.5 {
			ratio := math.Min(1.0, float64(expected)/float64(actual))
			score += m.weights[ComponentEfficiency] * ratio
		}
	}

	if pred != nil && pred.Response != "" {
		responseLower := strings.ToLower(pred.Response)
		for _, indicator := range completionIndicators {
			if strings.Contains(responseLower, indicator) {
				score += m.weights[ComponentCorrectness]
				break
			}
		}
	}

	return score, nil
}

// Name implements Metric.
func (m *Completion) Name() string { return MetricCompletion }

// ForName resolves a metric by its config name. An empty name selects
// the composite metric.
func ForName(name string, logger *zap.Logger) (Metric, error) {
	switch name {
	case "", MetricComposite:
		return NewComposite(nil, logger)
	case MetricCorrectness:
		return NewCorrectness(), nil
	case MetricSimple:
		return NewSimple(), nil
	case MetricCompletion:
		return NewCompletion(nil), nil
	default:
		return nil, fmt.Errorf("unknown metric %q (want %s, %s, %s, or %s)",
			name, MetricComposite, MetricCorrectness, MetricSimple, MetricCompletion)
	}
}
