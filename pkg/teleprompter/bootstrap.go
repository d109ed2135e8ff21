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
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/spindle/pkg/dataset"
	"github.com/teradata-labs/spindle/pkg/llm"
	"github.com/teradata-labs/spindle/pkg/observability"
)

// BootstrapFewShot compiles a demonstration set by running the program on
// the trainset under the teacher and keeping the executions the metric
// scores above the confidence threshold. Instructions are left unchanged.
type BootstrapFewShot struct {
	*BaseTeleprompter
}

// NewBootstrapFewShot creates the bootstrap strategy.
func NewBootstrapFewShot(tracer observability.Tracer, registry *Registry, logger *zap.Logger) *BootstrapFewShot {
	return &BootstrapFewShot{BaseTeleprompter: NewBaseTeleprompter(tracer, registry, logger)}
}

func (b *BootstrapFewShot) Strategy() string { return StrategyBootstrap }

func (b *BootstrapFewShot) Compile(ctx context.Context, req *CompileRequest) (*CompilationResult, error) {
	start := time.Now()
	ctx, span := b.Tracer().StartSpan(ctx, observability.SpanCompileBootstrap,
		observability.WithAttribute(observability.AttrStrategy, StrategyBootstrap))
	defer b.Tracer().EndSpan(span)

	if err := req.Config.Validate(); err != nil {
		span.RecordError(err)
		return nil, err
	}
	req.Config.SetDefaults()
	cfg := req.Config
	phase := req.Phase
	if phase == "" {
		phase = llm.PhaseOptimize
	}
	span.SetAttribute(observability.AttrTrainsetSize, len(req.Trainset))
	span.SetAttribute(observability.AttrMetricName, req.Metric.Name())

	// Each round retries only the examples no earlier round solved.
	pending := req.Trainset
	var traces []*Trace
	rounds := 0
	for round := 1; round <= cfg.MaxRounds && len(pending) > 0; round++ {
		rounds = round
		roundPhase := phase.Sub("bootstrap").Sub(fmt.Sprintf("round-%d", round))
		span.SetAttribute(observability.AttrRound, round)

		roundTraces := b.RunOnTrainset(ctx, req.Program, req.Model, roundPhase, pending, req.Metric, cfg.MinConfidence)
		traces = append(traces, roundTraces...)

		solved := make(map[*dataset.Example]bool, len(roundTraces))
		for _, t := range roundTraces {
			solved[t.Example] = true
		}
		var next []*dataset.Example
		for _, ex := range pending {
			if !solved[ex] {
				next = append(next, ex)
			}
		}
		b.Logger().Info("bootstrap round complete",
			zap.Int("round", round),
			zap.Int("passing", len(roundTraces)),
			zap.Int("remaining", len(next)))
		pending = next
	}

	if len(traces) == 0 {
		err := fmt.Errorf("no successful traces collected (min_confidence=%.2f)", cfg.MinConfidence)
		span.RecordError(err)
		return nil, err
	}

	demos := b.SelectDemos(traces, cfg.DemoSelection, cfg.MaxBootstrappedDemos)
	bootstrapped := len(demos)

	// Labeled examples the teacher never solved still carry signal; add
	// their raw labels as demonstrations after the bootstrapped ones.
	covered := make(map[*dataset.Example]bool, len(traces))
	for _, t := range traces {
		covered[t.Example] = true
	}
	labeled := 0
	for _, ex := range req.Trainset {
		if labeled >= cfg.MaxLabeledDemos {
			break
		}
		if covered[ex] || !ex.HasLabels {
			continue
		}
		if demo, ok := labeledDemo(ex); ok {
			demos = append(demos, demo)
			labeled++
		}
	}

	trainScore := meanTraceScore(traces)
	optimized := OptimizedAgent{Demonstrations: demos}

	valScore := 0.0
	if len(req.Valset) > 0 {
		compiled := req.Program.Clone()
		compiled.ApplyLearned("", demos)
		score, err := b.EvaluateScores(ctx, compiled, req.Model, phase.Sub("bootstrap").Sub("valset"), req.Valset, req.Metric)
		if err != nil {
			span.RecordError(err)
			b.Logger().Warn("valset scoring failed", zap.Error(err))
		} else {
			valScore = score
		}
	}

	result := b.BuildResult(StrategyBootstrap, optimized, trainScore, valScore,
		len(req.Trainset), len(traces), rounds, 0.0, time.Since(start))
	result.Metadata["bootstrapped_demos"] = strconv.Itoa(bootstrapped)
	result.Metadata["labeled_demos"] = strconv.Itoa(labeled)

	span.SetAttribute(observability.AttrCompilationID, result.CompilationID)
	span.SetAttribute(observability.AttrDemoCount, len(demos))
	b.Tracer().RecordMetric(observability.MetricCompileDemos, float64(len(demos)), nil)
	b.Tracer().RecordMetric(observability.MetricCompileScore, trainScore, map[string]string{"strategy": StrategyBootstrap})
	span.Status = observability.Status{Code: observability.StatusOK}

	b.Logger().Info("bootstrap compilation complete",
		zap.String("compilation_id", result.CompilationID),
		zap.Int("demos", len(demos)),
		zap.Float64("trainset_score", trainScore),
		zap.Float64("valset_score", valScore))
	return result, nil
}
