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
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teradata-labs/spindle/pkg/agent"
	"github.com/teradata-labs/spindle/pkg/dataset"
	"github.com/teradata-labs/spindle/pkg/llm"
	"github.com/teradata-labs/spindle/pkg/observability"
	"github.com/teradata-labs/spindle/pkg/scoring"
)

// Trace records one passing execution: the example, the outputs the program
// produced for it, and the metric score they earned.
type Trace struct {
	Example    *dataset.Example
	Outputs    map[string]string
	Score      float64
	CapturedAt time.Time
}

// BaseTeleprompter carries the shared machinery strategies embed: tracing,
// logging, trace collection, scoring, and demonstration selection.
type BaseTeleprompter struct {
	tracer   observability.Tracer
	registry *Registry
	logger   *zap.Logger
}

// NewBaseTeleprompter creates the shared base. Nil tracer and logger fall
// back to no-ops; a nil registry disables named selector lookup and every
// selection runs top-k.
func NewBaseTeleprompter(tracer observability.Tracer, registry *Registry, logger *zap.Logger) *BaseTeleprompter {
	if tracer == nil {
		tracer = observability.NewNoOpTracer()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BaseTeleprompter{tracer: tracer, registry: registry, logger: logger}
}

// Tracer returns the tracer strategies record spans on.
func (b *BaseTeleprompter) Tracer() observability.Tracer { return b.tracer }

// Logger returns the structured logger.
func (b *BaseTeleprompter) Logger() *zap.Logger { return b.logger }

// Registry returns the registry used for selector lookup.
func (b *BaseTeleprompter) Registry() *Registry { return b.registry }

// RunOnTrainset executes the program on each example under the given handle
// and keeps the traces whose score clears minConfidence. A failing example
// is logged and skipped; the rest of the set still runs.
func (b *BaseTeleprompter) RunOnTrainset(ctx context.Context, program agent.Program, handle *llm.Handle, phase llm.Phase, examples []*dataset.Example, metric scoring.Metric, minConfidence float64) []*Trace {
	ctx, span := b.tracer.StartSpan(ctx, "teleprompter.run_trainset")
	defer b.tracer.EndSpan(span)
	span.SetAttribute("examples", len(examples))

	var traces []*Trace
	for i, ex := range examples {
		outputs, err := program.Run(ctx, handle, phase, ex.Inputs())
		if err != nil {
			span.RecordError(err)
			b.logger.Warn("trainset example run failed",
				zap.Int("example", i),
				zap.Error(err))
			continue
		}
		score, err := metric.Score(ctx, ex, predictionFromOutputs(outputs))
		if err != nil {
			span.RecordError(err)
			b.logger.Warn("trainset example scoring failed",
				zap.Int("example", i),
				zap.Error(err))
			continue
		}
		if score < minConfidence {
			continue
		}
		traces = append(traces, &Trace{
			Example:    ex,
			Outputs:    outputs,
			Score:      score,
			CapturedAt: time.Now().UTC(),
		})
	}

	span.SetAttribute("passing_traces", len(traces))
	b.tracer.RecordMetric(observability.MetricCompileTraces, float64(len(traces)), nil)
	return traces
}

// EvaluateScores runs the program on every example and returns the mean
// metric score. Failing examples are excluded from the mean; when all fail
// the error says so. An empty set scores zero.
func (b *BaseTeleprompter) EvaluateScores(ctx context.Context, program agent.Program, handle *llm.Handle, phase llm.Phase, examples []*dataset.Example, metric scoring.Metric) (float64, error) {
	if len(examples) == 0 {
		return 0, nil
	}
	total := 0.0
	evaluated := 0
	for i, ex := range examples {
		outputs, err := program.Run(ctx, handle, phase, ex.Inputs())
		if err != nil {
			b.logger.Warn("example evaluation failed",
				zap.Int("example", i),
				zap.Error(err))
			continue
		}
		score, err := metric.Score(ctx, ex, predictionFromOutputs(outputs))
		if err != nil {
			b.logger.Warn("example scoring failed",
				zap.Int("example", i),
				zap.Error(err))
			continue
		}
		total += score
		evaluated++
	}
	if evaluated == 0 {
		return 0, fmt.Errorf("no valid examples evaluated (%d attempted)", len(examples))
	}
	return total / float64(evaluated), nil
}

// SelectDemos ranks traces through the named selector and returns at most
// max demonstrations. Unknown names are rejected at Validate time; a nil
// registry falls back to top-k.
func (b *BaseTeleprompter) SelectDemos(traces []*Trace, selection string, max int) []agent.Demo {
	if len(traces) == 0 || max <= 0 {
		return nil
	}
	var sel Selector
	if b.registry != nil {
		if s, ok := b.registry.Selector(selection); ok {
			sel = s
		}
	}
	if sel == nil {
		sel = NewTopKSelector()
	}
	return sel.Select(traces, max)
}

// BuildResult assembles a CompilationResult with a fresh compilation ID,
// the derived compiled version, and an empty metadata map ready for
// strategy-specific entries.
func (b *BaseTeleprompter) BuildResult(strategy string, optimized OptimizedAgent, trainScore, valScore float64, examplesUsed, successfulTraces, rounds int, improvement float64, elapsed time.Duration) *CompilationResult {
	return &CompilationResult{
		CompilationID:      NewCompilationID(),
		Strategy:           strategy,
		Optimized:          optimized,
		TrainsetScore:      trainScore,
		ValsetScore:        valScore,
		ExamplesUsed:       examplesUsed,
		SuccessfulTraces:   successfulTraces,
		OptimizationRounds: rounds,
		ImprovementDelta:   improvement,
		CompilationTimeMs:  elapsed.Milliseconds(),
		CompiledVersion:    CompiledVersion(optimized),
		CompiledAt:         time.Now().UTC(),
		Metadata:           make(map[string]string),
	}
}

// NewCompilationID returns a fresh compilation identifier.
func NewCompilationID() string {
	return uuid.New().String()
}

// CompiledVersion derives a short content hash of the optimized layer so
// identical compilations map to the same version string.
func CompiledVersion(optimized OptimizedAgent) string {
	var b strings.Builder
	b.WriteString(optimized.Instructions)
	for _, demo := range optimized.Demonstrations {
		writeSortedMap(&b, demo.Inputs)
		writeSortedMap(&b, demo.Outputs)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:8])
}

func writeSortedMap(b *strings.Builder, m map[string]string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte(0)
		b.WriteString(m[k])
		b.WriteByte(0)
	}
}

// predictionFromOutputs maps a program's output fields onto the prediction
// shape the metrics score. Missing fields stay empty and score neutrally.
func predictionFromOutputs(outputs map[string]string) *scoring.Prediction {
	return &scoring.Prediction{
		Reasoning:   outputs[agent.FieldReasoning],
		ToolPlan:    outputs[agent.FieldToolPlan],
		FirstAction: outputs[agent.FieldFirstAction],
		Response:    outputs[agent.FieldResponse],
	}
}

// demoFromTrace turns a passing trace into a demonstration.
func demoFromTrace(t *Trace) agent.Demo {
	return agent.Demo{
		Inputs:  t.Example.Inputs(),
		Outputs: t.Outputs,
		Score:   t.Score,
	}
}

// labeledDemo builds a demonstration from an example's labels alone, with
// no model call. Only the fields the labels can populate are present; an
// example whose labels populate nothing yields ok=false.
func labeledDemo(ex *dataset.Example) (agent.Demo, bool) {
	outputs := make(map[string]string)
	if ex.ExpectedFirstAction != nil {
		if raw, err := json.Marshal(ex.ExpectedFirstAction); err == nil {
			outputs[agent.FieldFirstAction] = string(raw)
		}
	}
	if len(ex.ExpectedTools) > 0 {
		outputs[agent.FieldToolPlan] = strings.Join(ex.ExpectedTools, ", ")
	}
	if ex.ExpectedResponse != "" {
		outputs[agent.FieldResponse] = ex.ExpectedResponse
	}
	if len(outputs) == 0 {
		return agent.Demo{}, false
	}
	return agent.Demo{Inputs: ex.Inputs(), Outputs: outputs}, true
}

// meanTraceScore averages trace scores; no traces means zero.
func meanTraceScore(traces []*Trace) float64 {
	if len(traces) == 0 {
		return 0
	}
	total := 0.0
	for _, t := range traces {
		total += t.Score
	}
	return total / float64(len(traces))
}
