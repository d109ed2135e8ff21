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
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teradata-labs/spindle/pkg/dataset"
	"github.com/teradata-labs/spindle/pkg/scoring"
	"github.com/teradata-labs/spindle/pkg/teleprompter"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check configuration and data without running optimization",
	Long: `Validate checks that a training run could start: the session logs
directory exists and holds transcripts, the split fractions and optimizer
settings are usable, and each hosted model has an API key available.

No model is called and nothing is written.`,
	Run: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) {
	fmt.Println("Validating Configuration")
	fmt.Println("========================")
	fmt.Println()

	ok := true

	logsDir := config.Data.SessionLogsDir
	if info, err := os.Stat(logsDir); err == nil && info.IsDir() {
		fmt.Printf("✓ Session logs directory: %s\n", logsDir)
		count := countTranscripts(logsDir)
		fmt.Printf("  Found %d transcript files\n", count)
		if count == 0 {
			fmt.Println("  ⚠ No *.json or *.json.gz files to mine")
		}
	} else {
		fmt.Printf("✗ Session logs directory not found: %s\n", logsDir)
		ok = false
	}

	if config.Prompts.TemplatesDir == "" {
		fmt.Println("✓ Prompt templates: embedded defaults")
	} else if info, err := os.Stat(config.Prompts.TemplatesDir); err == nil && info.IsDir() {
		fmt.Printf("✓ Prompt templates: %s\n", config.Prompts.TemplatesDir)
	} else {
		fmt.Printf("⚠ Prompt templates directory not found: %s\n", config.Prompts.TemplatesDir)
		fmt.Println("  Exports will use the embedded defaults")
	}

	fractions := dataset.Fractions{
		Train: config.Data.TrainSplit,
		Val:   config.Data.ValSplit,
		Test:  config.Data.TestSplit,
	}
	if err := fractions.Validate(); err != nil {
		fmt.Printf("✗ Split fractions: %v\n", err)
		ok = false
	} else {
		fmt.Printf("✓ Split fractions: %.2f/%.2f/%.2f (seed %d)\n",
			fractions.Train, fractions.Val, fractions.Test, config.Data.RandomSeed)
	}

	switch config.Optimization.DefaultOptimizer {
	case teleprompter.StrategyBootstrap, teleprompter.StrategyMIPRO, teleprompter.StrategyCOPRO:
		fmt.Printf("✓ Optimizer: %s\n", config.Optimization.DefaultOptimizer)
	default:
		fmt.Printf("✗ Unknown optimizer: %s (expected bootstrap, mipro, or copro)\n",
			config.Optimization.DefaultOptimizer)
		ok = false
	}

	switch config.Evaluation.PrimaryMetric {
	case scoring.MetricComposite, scoring.MetricCorrectness, scoring.MetricSimple, scoring.MetricCompletion:
		fmt.Printf("✓ Metric: %s\n", config.Evaluation.PrimaryMetric)
	default:
		fmt.Printf("✗ Unknown metric: %s (expected composite, correctness, simple, or completion)\n",
			config.Evaluation.PrimaryMetric)
		ok = false
	}

	printModelCheck("Teacher", config.Models.Teacher)
	printModelCheck("Student", config.Models.Student)

	fmt.Println()
	if !ok {
		fmt.Println("Validation found problems.")
		os.Exit(1)
	}
	fmt.Println("Validation complete!")
}

func printModelCheck(role string, m ModelRoleConfig) {
	fmt.Printf("\n%s Model:\n", role)
	fmt.Printf("  Provider: %s\n", m.Provider)
	fmt.Printf("  Model: %s\n", m.Model)
	if m.APIBase != "" {
		fmt.Printf("  API Base: %s\n", m.APIBase)
	}

	switch strings.ToLower(m.Provider) {
	case "openai", "anthropic":
		if m.APIKey != "" {
			fmt.Println("  API Key: ✓ Set (keyring)")
			return
		}
		keyEnv := m.APIKeyEnv
		if keyEnv == "" {
			keyEnv = conventionalKeyEnv(m.Provider)
		}
		if os.Getenv(keyEnv) != "" {
			fmt.Printf("  API Key: ✓ Set (%s)\n", keyEnv)
		} else {
			fmt.Printf("  API Key: ⚠ Not set (%s)\n", keyEnv)
		}
	default:
		fmt.Println("  API Key: not required")
	}
}

// countTranscripts counts the files a training run would consider, using
// the same patterns the session loader globs for.
func countTranscripts(dir string) int {
	count := 0
	for _, pattern := range []string{"*.json", "*.json.gz"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			continue
		}
		count += len(matches)
	}
	return count
}
