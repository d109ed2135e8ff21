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
	"strings"

	"go.uber.org/zap"

	"github.com/teradata-labs/spindle/pkg/agent"
	"github.com/teradata-labs/spindle/pkg/dataset"
	"github.com/teradata-labs/spindle/pkg/llm"
	"github.com/teradata-labs/spindle/pkg/observability"
	"github.com/teradata-labs/spindle/pkg/scoring"
)

// Orchestrator runs compilations under the teacher handle and evaluations
// under the student handle. The two never share a phase: compilation calls
// run under optimize sub-phases, student runs under evaluate or baseline.
type Orchestrator struct {
	teacher   *llm.Handle
	student   *llm.Handle
	registry  *Registry
	evaluator *Evaluator
	tracer    observability.Tracer
	logger    *zap.Logger
}

// OrchestratorConfig configures an orchestrator.
type OrchestratorConfig struct {
	// Teacher is the handle compilation-time model calls go through.
	Teacher *llm.Handle

	// Student is the handle evaluations go through. This is the
	// deployment target.
	Student *llm.Handle

	// Registry supplies strategies and selectors. Nil installs the
	// built-in set.
	Registry *Registry

	// NumThreads bounds evaluation concurrency. Zero means one.
	NumThreads int

	Tracer observability.Tracer
	Logger *zap.Logger
}

// NewOrchestrator creates an orchestrator. Teacher and student handles are
// required; everything else has defaults.
func NewOrchestrator(config OrchestratorConfig) (*Orchestrator, error) {
	if config.Teacher == nil {
		return nil, fmt.Errorf("teacher handle is required")
	}
	if config.Student == nil {
		return nil, fmt.Errorf("student handle is required")
	}
	if config.Tracer == nil {
		config.Tracer = observability.NewNoOpTracer()
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	registry := config.Registry
	if registry == nil {
		registry = NewRegistry()
		RegisterDefaults(registry, config.Tracer, config.Logger)
	}
	return &Orchestrator{
		teacher:   config.Teacher,
		student:   config.Student,
		registry:  registry,
		evaluator: NewEvaluator(config.NumThreads, config.Logger),
		tracer:    config.Tracer,
		logger:    config.Logger,
	}, nil
}

// RegisterDefaults installs the built-in strategies and selectors on a
// registry.
func RegisterDefaults(r *Registry, tracer observability.Tracer, logger *zap.Logger) {
	generator := NewModelInstructionGenerator(logger)
	r.RegisterTeleprompter(NewBootstrapFewShot(tracer, r, logger))
	r.RegisterTeleprompter(NewMIPRO(tracer, r, logger, generator))
	r.RegisterTeleprompter(NewCOPRO(tracer, r, logger, generator))
	r.RegisterSelector(NewTopKSelector())
	r.RegisterSelector(NewDiverseSelector(0))
	r.RegisterSelector(NewRecentSelector())
}

// Teacher returns the teacher handle, for call accounting and summaries.
func (o *Orchestrator) Teacher() *llm.Handle { return o.teacher }

// Student returns the student handle.
func (o *Orchestrator) Student() *llm.Handle { return o.student }

// Registry returns the strategy registry.
func (o *Orchestrator) Registry() *Registry { return o.registry }

// Optimize compiles the program with the named strategy under the teacher,
// then scores the compiled layer on the valset under the student. The
// teacher-side numbers in the result are advisory; the student report is
// the number that matters.
func (o *Orchestrator) Optimize(ctx context.Context, strategy string, program agent.Program, trainset, valset []*dataset.Example, metric scoring.Metric, config *Config) (*CompilationResult, *Report, error) {
	ctx, span := o.tracer.StartSpan(ctx, observability.SpanCompile,
		observability.WithAttribute(observability.AttrStrategy, strategy))
	defer o.tracer.EndSpan(span)

	tp, ok := o.registry.Teleprompter(strategy)
	if !ok {
		err := &ConfigError{
			Field:  "strategy",
			Reason: fmt.Sprintf("unknown strategy %q (known: %s)", strategy, strings.Join(o.registry.Strategies(), ", ")),
		}
		span.RecordError(err)
		return nil, nil, err
	}
	if err := config.Validate(); err != nil {
		span.RecordError(err)
		return nil, nil, err
	}
	config.SetDefaults()

	o.logger.Info("starting optimization",
		zap.String("strategy", strategy),
		zap.String("teacher", o.teacher.Model()),
		zap.String("student", o.student.Model()),
		zap.Int("trainset", len(trainset)),
		zap.Int("valset", len(valset)))

	result, err := tp.Compile(ctx, &CompileRequest{
		Program:  program,
		Model:    o.teacher,
		Trainset: trainset,
		Valset:   valset,
		Metric:   metric,
		Config:   config,
		Phase:    llm.PhaseOptimize,
	})
	if err != nil {
		span.RecordError(err)
		return nil, nil, fmt.Errorf("compilation failed: %w", err)
	}

	report, err := o.evaluateCompiled(ctx, program, result, valset, metric)
	if err != nil {
		span.RecordError(err)
		return nil, nil, err
	}

	span.SetAttribute(observability.AttrCompilationID, result.CompilationID)
	span.Status = observability.Status{Code: observability.StatusOK}
	o.logger.Info("optimization complete",
		zap.String("strategy", strategy),
		zap.String("compilation_id", result.CompilationID),
		zap.Float64("trainset_score", result.TrainsetScore),
		zap.Float64("student_score", report.Mean),
		zap.Int("student_failures", report.Failures))
	return result, report, nil
}

// evaluateCompiled applies the compiled layer to a fresh clone and scores
// it on the valset under the student. The clone keeps the teacher-side
// result isolated from student-side state.
func (o *Orchestrator) evaluateCompiled(ctx context.Context, program agent.Program, result *CompilationResult, valset []*dataset.Example, metric scoring.Metric) (*Report, error) {
	ctx, span := o.tracer.StartSpan(ctx, observability.SpanEvaluateStudent)
	defer o.tracer.EndSpan(span)

	compiled := program.Clone()
	compiled.ApplyLearned(result.Optimized.Instructions, result.Optimized.Demonstrations)

	report, err := o.evaluator.Evaluate(ctx, compiled, o.student, llm.PhaseEvaluate, valset, metric)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("student evaluation failed: %w", err)
	}
	span.SetAttribute(observability.MetricEvalScore, report.Mean)
	o.tracer.RecordMetric(observability.MetricEvalScore, report.Mean, map[string]string{"phase": string(llm.PhaseEvaluate)})
	o.tracer.RecordMetric(observability.MetricEvalFailures, float64(report.Failures), nil)
	span.Status = observability.Status{Code: observability.StatusOK}
	return report, nil
}

// EvaluateBaseline scores the unmodified program on the valset under the
// student, for comparison against the optimized run.
func (o *Orchestrator) EvaluateBaseline(ctx context.Context, program agent.Program, valset []*dataset.Example, metric scoring.Metric) (*Report, error) {
	ctx, span := o.tracer.StartSpan(ctx, observability.SpanEvaluateBaseline)
	defer o.tracer.EndSpan(span)

	baseline := program.Clone()
	report, err := o.evaluator.Evaluate(ctx, baseline, o.student, llm.PhaseBaseline, valset, metric)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("baseline evaluation failed: %w", err)
	}
	span.SetAttribute(observability.MetricEvalScore, report.Mean)
	o.tracer.RecordMetric(observability.MetricEvalScore, report.Mean, map[string]string{"phase": string(llm.PhaseBaseline)})
	span.Status = observability.Status{Code: observability.StatusOK}
	return report, nil
}
