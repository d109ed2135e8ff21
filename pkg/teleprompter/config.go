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

import "fmt"

// Defaults applied by SetDefaults.
const (
	DefaultMaxBootstrappedDemos = 5
	DefaultMaxLabeledDemos      = 8
	DefaultMaxRounds            = 1
	DefaultMinConfidence        = 0.7
	DefaultNumThreads           = 1

	DefaultMIPROCandidates     = 10
	DefaultMIPROTemperature    = 1.0
	DefaultMIPROMinibatchLimit = 25

	DefaultCOPRODepth   = 3
	DefaultCOPROBreadth = 10
)

// Config holds the parameters shared by all strategies plus the
// strategy-specific blocks.
type Config struct {
	// MaxBootstrappedDemos caps demonstrations built from passing traces.
	MaxBootstrappedDemos int `json:"max_bootstrapped_demos" yaml:"max_bootstrapped_demos"`

	// MaxLabeledDemos caps demonstrations built directly from labels,
	// added after the bootstrapped set.
	MaxLabeledDemos int `json:"max_labeled_demos" yaml:"max_labeled_demos"`

	// MaxRounds is how many passes bootstrap makes over the trainset.
	// Later rounds retry only the examples no earlier round solved.
	MaxRounds int `json:"max_rounds" yaml:"max_rounds"`

	// MinConfidence is the metric score a trace must reach to count as
	// passing. Range [0, 1].
	MinConfidence float64 `json:"min_confidence" yaml:"min_confidence"`

	// NumThreads bounds evaluation concurrency.
	NumThreads int `json:"num_threads" yaml:"num_threads"`

	// DemoSelection names the selector that ranks traces into
	// demonstrations: topk, diverse, or recent.
	DemoSelection string `json:"demo_selection" yaml:"demo_selection"`

	// MIPRO holds the MIPRO strategy parameters.
	MIPRO *MIPROConfig `json:"mipro,omitempty" yaml:"mipro,omitempty"`

	// COPRO holds the COPRO strategy parameters.
	COPRO *COPROConfig `json:"copro,omitempty" yaml:"copro,omitempty"`
}

// MIPROConfig parameterizes multi-candidate instruction search.
type MIPROConfig struct {
	// NumCandidates is how many instruction variants to propose.
	NumCandidates int `json:"num_candidates" yaml:"num_candidates"`

	// InitTemperature is applied to the teacher handle while candidate
	// instructions are generated, then restored.
	InitTemperature float64 `json:"init_temperature" yaml:"init_temperature"`

	// MinibatchSize is how many valset examples each candidate is scored
	// on. Zero picks min(25, len(valset)). Larger than the valset is
	// clamped with a warning.
	MinibatchSize int `json:"minibatch_size" yaml:"minibatch_size"`

	// InstructionCandidates, when non-empty, skips generation and
	// evaluates exactly these instructions.
	InstructionCandidates []string `json:"instruction_candidates,omitempty" yaml:"instruction_candidates,omitempty"`
}

// COPROConfig parameterizes coordinate-ascent instruction refinement.
type COPROConfig struct {
	// Depth is the number of refinement rounds.
	Depth int `json:"depth" yaml:"depth"`

	// Breadth is the number of candidates per round, counting the
	// incumbent in round one.
	Breadth int `json:"breadth" yaml:"breadth"`
}

// ConfigError reports an invalid or missing configuration value. It is
// always raised before any model call is made.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s %s", e.Field, e.Reason)
}

// Validate rejects out-of-range values. Zero values are legal; SetDefaults
// resolves them afterwards.
func (c *Config) Validate() error {
	if c == nil {
		return &ConfigError{Field: "config", Reason: "is required"}
	}
	if c.MaxBootstrappedDemos < 0 {
		return &ConfigError{Field: "max_bootstrapped_demos", Reason: "must not be negative"}
	}
	if c.MaxLabeledDemos < 0 {
		return &ConfigError{Field: "max_labeled_demos", Reason: "must not be negative"}
	}
	if c.MaxRounds < 0 {
		return &ConfigError{Field: "max_rounds", Reason: "must not be negative"}
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return &ConfigError{Field: "min_confidence", Reason: "must be between 0 and 1"}
	}
	if c.NumThreads < 0 {
		return &ConfigError{Field: "num_threads", Reason: "must not be negative"}
	}
	switch c.DemoSelection {
	case "", SelectTopK, SelectDiverse, SelectRecent:
	default:
		return &ConfigError{
			Field:  "demo_selection",
			Reason: fmt.Sprintf("unknown selector %q (known: %s, %s, %s)", c.DemoSelection, SelectTopK, SelectDiverse, SelectRecent),
		}
	}
	if c.MIPRO != nil {
		if c.MIPRO.NumCandidates < 0 {
			return &ConfigError{Field: "mipro.num_candidates", Reason: "must not be negative"}
		}
		if c.MIPRO.InitTemperature < 0 {
			return &ConfigError{Field: "mipro.init_temperature", Reason: "must not be negative"}
		}
		if c.MIPRO.MinibatchSize < 0 {
			return &ConfigError{Field: "mipro.minibatch_size", Reason: "must not be negative"}
		}
	}
	if c.COPRO != nil {
		if c.COPRO.Depth < 0 {
			return &ConfigError{Field: "copro.depth", Reason: "must not be negative"}
		}
		if c.COPRO.Breadth < 0 {
			return &ConfigError{Field: "copro.breadth", Reason: "must not be negative"}
		}
	}
	return nil
}

// SetDefaults fills zero values with defaults, including the nested
// strategy blocks. MinibatchSize stays zero; it is resolved against the
// valset at compile time.
func (c *Config) SetDefaults() {
	if c.MaxBootstrappedDemos == 0 {
		c.MaxBootstrappedDemos = DefaultMaxBootstrappedDemos
	}
	if c.MaxLabeledDemos == 0 {
		c.MaxLabeledDemos = DefaultMaxLabeledDemos
	}
	if c.MaxRounds == 0 {
		c.MaxRounds = DefaultMaxRounds
	}
	if c.MinConfidence == 0 {
		c.MinConfidence = DefaultMinConfidence
	}
	if c.NumThreads == 0 {
		c.NumThreads = DefaultNumThreads
	}
	if c.DemoSelection == "" {
		c.DemoSelection = SelectTopK
	}
	if c.MIPRO == nil {
		c.MIPRO = &MIPROConfig{}
	}
	if c.MIPRO.NumCandidates == 0 {
		c.MIPRO.NumCandidates = DefaultMIPROCandidates
	}
	if c.MIPRO.InitTemperature == 0 {
		c.MIPRO.InitTemperature = DefaultMIPROTemperature
	}
	if c.COPRO == nil {
		c.COPRO = &COPROConfig{}
	}
	if c.COPRO.Depth == 0 {
		c.COPRO.Depth = DefaultCOPRODepth
	}
	if c.COPRO.Breadth == 0 {
		c.COPRO.Breadth = DefaultCOPROBreadth
	}
}
