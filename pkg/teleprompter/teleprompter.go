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

// Package teleprompter compiles prompt programs against a teacher model and
// re-evaluates the compiled layer under the student model. Three strategies
// are built in: bootstrap few-shot demonstration selection, MIPRO
// multi-candidate instruction search, and COPRO coordinate ascent. The
// orchestrator owns the teacher and student handles and keeps the two
// phases strictly apart.
package teleprompter

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/teradata-labs/spindle/pkg/agent"
	"github.com/teradata-labs/spindle/pkg/dataset"
	"github.com/teradata-labs/spindle/pkg/llm"
	"github.com/teradata-labs/spindle/pkg/scoring"
)

// Strategy names accepted by the registry and the CLI.
const (
	StrategyBootstrap = "bootstrap"
	StrategyMIPRO     = "mipro"
	StrategyCOPRO     = "copro"
)

// Demonstration selector names.
const (
	SelectTopK    = "topk"
	SelectDiverse = "diverse"
	SelectRecent  = "recent"
)

// Teleprompter is one optimization strategy.
type Teleprompter interface {
	// Compile optimizes the program's learned layer under the request's
	// teacher handle and returns the compilation result.
	Compile(ctx context.Context, req *CompileRequest) (*CompilationResult, error)

	// Strategy returns the strategy name used for registry lookup.
	Strategy() string
}

// Selector ranks execution traces and turns the best into demonstrations.
type Selector interface {
	// Select returns at most max demonstrations drawn from traces.
	// An empty trace list yields nil.
	Select(traces []*Trace, max int) []agent.Demo

	// Strategy returns the selector name used for registry lookup.
	Strategy() string
}

// CompileRequest carries everything a strategy needs for one compilation.
type CompileRequest struct {
	// Program is the program under optimization. Strategies never mutate
	// it; candidates are built on clones.
	Program agent.Program

	// Model is the teacher handle. All compilation-time model calls go
	// through it.
	Model *llm.Handle

	// Trainset provides the examples demonstrations are bootstrapped from.
	Trainset []*dataset.Example

	// Valset provides held-out examples for candidate and final scoring.
	Valset []*dataset.Example

	// Metric scores a program's outputs against an example's labels.
	Metric scoring.Metric

	// Config holds the strategy parameters. Validated before any model
	// call is made.
	Config *Config

	// Phase is the base phase for model calls; strategies derive
	// sub-phases from it. Empty means llm.PhaseOptimize.
	Phase llm.Phase
}

// OptimizedAgent is the compiled learned layer: optional instruction text
// plus an ordered demonstration list. It is fully typed; consumers read
// fields instead of probing the program.
type OptimizedAgent struct {
	Instructions   string       `json:"instructions,omitempty"`
	Demonstrations []agent.Demo `json:"demonstrations"`
}

// CompilationResult reports one finished compilation.
type CompilationResult struct {
	CompilationID      string            `json:"compilation_id"`
	Strategy           string            `json:"strategy"`
	Optimized          OptimizedAgent    `json:"optimized"`
	TrainsetScore      float64           `json:"trainset_score"`
	ValsetScore        float64           `json:"valset_score"`
	ExamplesUsed       int               `json:"examples_used"`
	SuccessfulTraces   int               `json:"successful_traces"`
	OptimizationRounds int               `json:"optimization_rounds"`
	ImprovementDelta   float64           `json:"improvement_delta"`
	CompilationTimeMs  int64             `json:"compilation_time_ms"`
	CompiledVersion    string            `json:"compiled_version"`
	CompiledAt         time.Time         `json:"compiled_at"`
	Metadata           map[string]string `json:"metadata,omitempty"`
}

// Registry maps strategy names to teleprompters and selector names to
// selectors. Thread-safe.
type Registry struct {
	mu            sync.RWMutex
	teleprompters map[string]Teleprompter
	selectors     map[string]Selector
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		teleprompters: make(map[string]Teleprompter),
		selectors:     make(map[string]Selector),
	}
}

// RegisterTeleprompter registers a strategy under its name.
func (r *Registry) RegisterTeleprompter(t Teleprompter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.teleprompters[t.Strategy()] = t
}

// RegisterSelector registers a selector under its name.
func (r *Registry) RegisterSelector(s Selector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selectors[s.Strategy()] = s
}

// Teleprompter looks up a strategy by name.
func (r *Registry) Teleprompter(strategy string) (Teleprompter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.teleprompters[strategy]
	return t, ok
}

// Selector looks up a selector by name.
func (r *Registry) Selector(name string) (Selector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.selectors[name]
	return s, ok
}

// Strategies returns the registered strategy names, sorted.
func (r *Registry) Strategies() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.teleprompters))
	for name := range r.teleprompters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Selectors returns the registered selector names, sorted.
func (r *Registry) Selectors() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.selectors))
	for name := range r.selectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
