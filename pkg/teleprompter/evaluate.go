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
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/spindle/pkg/agent"
	"github.com/teradata-labs/spindle/pkg/dataset"
	"github.com/teradata-labs/spindle/pkg/llm"
	"github.com/teradata-labs/spindle/pkg/scoring"
)

// ExampleResult is the outcome of evaluating one example.
type ExampleResult struct {
	ID       string
	Score    float64
	Duration time.Duration
	Err      error
}

// Report aggregates an evaluation run. Results keeps the input order; Mean
// averages the successful examples only.
type Report struct {
	Mean      float64
	Evaluated int
	Failures  int
	Results   []ExampleResult
}

// Evaluator scores a program over an example set with bounded concurrency.
type Evaluator struct {
	numThreads int
	logger     *zap.Logger
}

// NewEvaluator creates an evaluator. numThreads below one is treated as
// one.
func NewEvaluator(numThreads int, logger *zap.Logger) *Evaluator {
	if numThreads < 1 {
		numThreads = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{numThreads: numThreads, logger: logger}
}

// Evaluate runs the program on every example under the given handle and
// aggregates the scores. The program is shared read-only across workers;
// Run must not mutate it. A failing example is counted, not fatal, unless
// every example fails.
func (e *Evaluator) Evaluate(ctx context.Context, program agent.Program, handle *llm.Handle, phase llm.Phase, examples []*dataset.Example, metric scoring.Metric) (*Report, error) {
	if len(examples) == 0 {
		return &Report{}, nil
	}

	// Each worker writes its own slots, so the results slice needs no
	// locking and keeps the input order.
	results := make([]ExampleResult, len(examples))
	jobs := make(chan int)
	workers := e.numThreads
	if workers > len(examples) {
		workers = len(examples)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = e.evaluateOne(ctx, program, handle, phase, examples[i], metric, i)
			}
		}()
	}
	for i := range examples {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	report := &Report{Results: results}
	total := 0.0
	for _, r := range results {
		if r.Err != nil {
			report.Failures++
			e.logger.Warn("example evaluation failed",
				zap.String("example", r.ID),
				zap.Error(r.Err))
			continue
		}
		total += r.Score
		report.Evaluated++
	}
	if report.Evaluated == 0 {
		return nil, fmt.Errorf("all %d examples failed evaluation", len(examples))
	}
	report.Mean = total / float64(report.Evaluated)
	return report, nil
}

func (e *Evaluator) evaluateOne(ctx context.Context, program agent.Program, handle *llm.Handle, phase llm.Phase, ex *dataset.Example, metric scoring.Metric, index int) ExampleResult {
	start := time.Now()
	result := ExampleResult{ID: fmt.Sprintf("example-%d", index)}

	outputs, err := program.Run(ctx, handle, phase, ex.Inputs())
	if err != nil {
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}
	score, err := metric.Score(ctx, ex, predictionFromOutputs(outputs))
	if err != nil {
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}
	result.Score = score
	result.Duration = time.Since(start)
	return result
}
