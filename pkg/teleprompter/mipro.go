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
	"math/rand"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/spindle/pkg/agent"
	"github.com/teradata-labs/spindle/pkg/dataset"
	"github.com/teradata-labs/spindle/pkg/llm"
	"github.com/teradata-labs/spindle/pkg/observability"
)

// minibatchSeed fixes the minibatch sample so every candidate is scored on
// the same subset and repeated runs hit the completion cache.
const minibatchSeed = 42

// MIPRO searches over generated instruction candidates, scores each on a
// valset minibatch, and bootstraps demonstrations for the winner.
type MIPRO struct {
	*BaseTeleprompter
	generator InstructionGenerator
}

// NewMIPRO creates the MIPRO strategy. The generator proposes instruction
// candidates when the config does not supply them; nil is allowed if every
// compile request carries explicit candidates.
func NewMIPRO(tracer observability.Tracer, registry *Registry, logger *zap.Logger, generator InstructionGenerator) *MIPRO {
	return &MIPRO{
		BaseTeleprompter: NewBaseTeleprompter(tracer, registry, logger),
		generator:        generator,
	}
}

func (m *MIPRO) Strategy() string { return StrategyMIPRO }

func (m *MIPRO) Compile(ctx context.Context, req *CompileRequest) (*CompilationResult, error) {
	start := time.Now()
	ctx, span := m.Tracer().StartSpan(ctx, observability.SpanCompileMIPRO,
		observability.WithAttribute(observability.AttrStrategy, StrategyMIPRO))
	defer m.Tracer().EndSpan(span)

	if err := req.Config.Validate(); err != nil {
		span.RecordError(err)
		return nil, err
	}
	req.Config.SetDefaults()
	cfg := req.Config
	mcfg := cfg.MIPRO
	phase := req.Phase
	if phase == "" {
		phase = llm.PhaseOptimize
	}
	span.SetAttribute(observability.AttrTrainsetSize, len(req.Trainset))
	span.SetAttribute(observability.AttrValsetSize, len(req.Valset))

	if len(req.Valset) == 0 {
		err := fmt.Errorf("mipro requires a non-empty valset for minibatch scoring")
		span.RecordError(err)
		return nil, err
	}

	size := mcfg.MinibatchSize
	switch {
	case size == 0:
		size = len(req.Valset)
		if size > DefaultMIPROMinibatchLimit {
			size = DefaultMIPROMinibatchLimit
		}
		m.Logger().Info("auto-set minibatch size",
			zap.Int("size", size),
			zap.Int("valset_size", len(req.Valset)))
	case size > len(req.Valset):
		m.Logger().Warn("minibatch size exceeds valset size, clamping",
			zap.Int("requested", size),
			zap.Int("valset_size", len(req.Valset)))
		size = len(req.Valset)
	}

	base, _ := req.Program.Learned()
	candidates, err := m.instructionCandidates(ctx, req, phase, base)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	minibatch := seededMinibatch(req.Valset, size)

	bestIdx := -1
	bestScore := -1.0
	var bestProgram agent.Program
	for i, instruction := range candidates {
		candidate := req.Program.Clone()
		candidate.ApplyLearned(instruction, nil)
		candidatePhase := phase.Sub("mipro").Sub(fmt.Sprintf("candidate-%d", i))
		score, err := m.EvaluateScores(ctx, candidate, req.Model, candidatePhase, minibatch, req.Metric)
		if err != nil {
			span.RecordError(err)
			m.Logger().Warn("candidate evaluation failed",
				zap.Int("candidate", i),
				zap.Error(err))
			continue
		}
		span.SetAttribute(fmt.Sprintf("candidate_%d_score", i), score)
		m.Logger().Debug("candidate scored",
			zap.Int("candidate", i),
			zap.Float64("score", score))
		if score > bestScore {
			bestScore = score
			bestIdx = i
			bestProgram = candidate
		}
	}
	if bestIdx < 0 {
		err := fmt.Errorf("no instruction candidates could be evaluated")
		span.RecordError(err)
		return nil, err
	}
	span.SetAttribute(observability.AttrCandidate, bestIdx)

	// Bootstrap demonstrations for the winning instructions.
	traces := m.RunOnTrainset(ctx, bestProgram, req.Model, phase.Sub("mipro").Sub("demos"), req.Trainset, req.Metric, cfg.MinConfidence)
	demos := m.SelectDemos(traces, cfg.DemoSelection, cfg.MaxBootstrappedDemos)
	trainScore := meanTraceScore(traces)

	optimized := OptimizedAgent{Instructions: candidates[bestIdx], Demonstrations: demos}

	// ValsetScore is the winner's minibatch mean, not a full valset pass.
	result := m.BuildResult(StrategyMIPRO, optimized, trainScore, bestScore,
		len(req.Trainset), len(traces), 1, 0.0, time.Since(start))
	result.Metadata["num_candidates"] = strconv.Itoa(len(candidates))
	result.Metadata["minibatch_size"] = strconv.Itoa(len(minibatch))
	result.Metadata["best_candidate"] = strconv.Itoa(bestIdx)

	span.SetAttribute(observability.AttrCompilationID, result.CompilationID)
	span.SetAttribute(observability.AttrDemoCount, len(demos))
	m.Tracer().RecordMetric(observability.MetricCompileDemos, float64(len(demos)), nil)
	m.Tracer().RecordMetric(observability.MetricCompileScore, bestScore, map[string]string{"strategy": StrategyMIPRO})
	span.Status = observability.Status{Code: observability.StatusOK}

	m.Logger().Info("mipro compilation complete",
		zap.String("compilation_id", result.CompilationID),
		zap.Int("candidates", len(candidates)),
		zap.Int("best_candidate", bestIdx),
		zap.Float64("best_score", bestScore),
		zap.Int("demos", len(demos)))
	return result, nil
}

// instructionCandidates resolves the candidate list: config-supplied
// instructions win, otherwise the generator proposes them under the
// teacher. The current instructions are always the first candidate.
func (m *MIPRO) instructionCandidates(ctx context.Context, req *CompileRequest, phase llm.Phase, base string) ([]string, error) {
	mcfg := req.Config.MIPRO
	if len(mcfg.InstructionCandidates) > 0 {
		return prependBase(base, mcfg.InstructionCandidates), nil
	}
	if m.generator == nil {
		return nil, &ConfigError{
			Field:  "mipro.instruction_candidates",
			Reason: "no candidates supplied and no instruction generator configured",
		}
	}

	// Propose at InitTemperature; the handle is restored before any
	// candidate is scored.
	restore := req.Model.OverrideTemperature(mcfg.InitTemperature)
	defer restore()
	generated, err := m.generator.Generate(ctx, req.Model, phase.Sub("mipro").Sub("propose"), base, mcfg.NumCandidates)
	if err != nil {
		return nil, fmt.Errorf("instruction generation failed: %w", err)
	}
	return prependBase(base, generated), nil
}

// prependBase puts the current instructions first so they always compete
// with the proposals.
func prependBase(base string, candidates []string) []string {
	out := make([]string, 0, len(candidates)+1)
	out = append(out, base)
	for _, c := range candidates {
		if c != base {
			out = append(out, c)
		}
	}
	return out
}

// seededMinibatch draws a deterministic sample of size examples, keeping
// the valset's original order.
func seededMinibatch(valset []*dataset.Example, size int) []*dataset.Example {
	if size >= len(valset) {
		return valset
	}
	rng := rand.New(rand.NewSource(minibatchSeed)) // #nosec G404 -- reproducible sampling, not cryptography
	picked := rng.Perm(len(valset))[:size]
	sort.Ints(picked)
	batch := make([]*dataset.Example, 0, size)
	for _, i := range picked {
		batch = append(batch, valset[i])
	}
	return batch
}
