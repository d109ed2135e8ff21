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

	"github.com/teradata-labs/spindle/pkg/llm"
	"github.com/teradata-labs/spindle/pkg/observability"
)

// COPRO refines instructions by coordinate ascent: each round proposes
// variants of the incumbent, scores every variant on the full trainset,
// and adopts a variant only on strict improvement. Demonstrations are left
// unchanged.
type COPRO struct {
	*BaseTeleprompter
	generator InstructionGenerator
}

// NewCOPRO creates the COPRO strategy. The generator is required; COPRO
// has no config-supplied candidate path.
func NewCOPRO(tracer observability.Tracer, registry *Registry, logger *zap.Logger, generator InstructionGenerator) *COPRO {
	return &COPRO{
		BaseTeleprompter: NewBaseTeleprompter(tracer, registry, logger),
		generator:        generator,
	}
}

func (c *COPRO) Strategy() string { return StrategyCOPRO }

func (c *COPRO) Compile(ctx context.Context, req *CompileRequest) (*CompilationResult, error) {
	start := time.Now()
	ctx, span := c.Tracer().StartSpan(ctx, observability.SpanCompileCOPRO,
		observability.WithAttribute(observability.AttrStrategy, StrategyCOPRO))
	defer c.Tracer().EndSpan(span)

	if err := req.Config.Validate(); err != nil {
		span.RecordError(err)
		return nil, err
	}
	req.Config.SetDefaults()
	ccfg := req.Config.COPRO
	phase := req.Phase
	if phase == "" {
		phase = llm.PhaseOptimize
	}
	span.SetAttribute(observability.AttrTrainsetSize, len(req.Trainset))

	if c.generator == nil {
		err := &ConfigError{Field: "copro", Reason: "requires an instruction generator"}
		span.RecordError(err)
		return nil, err
	}
	if len(req.Trainset) == 0 {
		err := fmt.Errorf("copro requires a non-empty trainset")
		span.RecordError(err)
		return nil, err
	}

	base, _ := req.Program.Learned()

	// Score the incumbent before any refinement; every later candidate
	// must beat this number.
	bestProgram := req.Program.Clone()
	baseScore, err := c.EvaluateScores(ctx, bestProgram, req.Model, phase.Sub("copro").Sub("base"), req.Trainset, req.Metric)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("scoring current instructions: %w", err)
	}

	incumbent := base
	bestScore := baseScore
	rounds := 0
	for depth := 1; depth <= ccfg.Depth; depth++ {
		rounds = depth
		roundPhase := phase.Sub("copro").Sub(fmt.Sprintf("round-%d", depth))
		span.SetAttribute(observability.AttrRound, depth)

		// The incumbent counts toward round one's breadth and is
		// already scored.
		n := ccfg.Breadth
		if depth == 1 {
			n--
		}
		if n <= 0 {
			continue
		}

		variants, err := c.generator.Generate(ctx, req.Model, roundPhase.Sub("propose"), incumbent, n)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("proposing instruction variants: %w", err)
		}

		improved := false
		for i, instruction := range variants {
			if instruction == incumbent {
				continue
			}
			candidate := req.Program.Clone()
			candidate.ApplyLearned(instruction, nil)
			candidatePhase := roundPhase.Sub(fmt.Sprintf("candidate-%d", i))
			score, err := c.EvaluateScores(ctx, candidate, req.Model, candidatePhase, req.Trainset, req.Metric)
			if err != nil {
				span.RecordError(err)
				c.Logger().Warn("candidate evaluation failed",
					zap.Int("round", depth),
					zap.Int("candidate", i),
					zap.Error(err))
				continue
			}
			span.SetAttribute(fmt.Sprintf("round_%d_candidate_%d_score", depth, i), score)
			// Strict improvement only; a tie keeps the incumbent.
			if score > bestScore {
				bestScore = score
				incumbent = instruction
				bestProgram = candidate
				improved = true
			}
		}
		c.Logger().Info("copro round complete",
			zap.Int("round", depth),
			zap.Bool("improved", improved),
			zap.Float64("best_score", bestScore))
	}

	optimized := OptimizedAgent{Instructions: incumbent}

	valScore := 0.0
	if len(req.Valset) > 0 {
		score, err := c.EvaluateScores(ctx, bestProgram, req.Model, phase.Sub("copro").Sub("valset"), req.Valset, req.Metric)
		if err != nil {
			span.RecordError(err)
			c.Logger().Warn("valset scoring failed", zap.Error(err))
		} else {
			valScore = score
		}
	}

	result := c.BuildResult(StrategyCOPRO, optimized, bestScore, valScore,
		len(req.Trainset), 0, rounds, bestScore-baseScore, time.Since(start))
	result.Metadata["base_score"] = fmt.Sprintf("%.4f", baseScore)
	result.Metadata["breadth"] = strconv.Itoa(ccfg.Breadth)

	span.SetAttribute(observability.AttrCompilationID, result.CompilationID)
	c.Tracer().RecordMetric(observability.MetricCompileScore, bestScore, map[string]string{"strategy": StrategyCOPRO})
	span.Status = observability.Status{Code: observability.StatusOK}

	c.Logger().Info("copro compilation complete",
		zap.String("compilation_id", result.CompilationID),
		zap.Int("rounds", rounds),
		zap.Float64("base_score", baseScore),
		zap.Float64("best_score", bestScore),
		zap.Float64("improvement", bestScore-baseScore))
	return result, nil
}
