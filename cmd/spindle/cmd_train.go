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
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/teradata-labs/spindle/internal/log"
	"github.com/teradata-labs/spindle/pkg/agent"
	"github.com/teradata-labs/spindle/pkg/dataset"
	"github.com/teradata-labs/spindle/pkg/experiment"
	"github.com/teradata-labs/spindle/pkg/export"
	"github.com/teradata-labs/spindle/pkg/llm"
	"github.com/teradata-labs/spindle/pkg/llm/factory"
	"github.com/teradata-labs/spindle/pkg/observability"
	"github.com/teradata-labs/spindle/pkg/prompts"
	"github.com/teradata-labs/spindle/pkg/scoring"
	"github.com/teradata-labs/spindle/pkg/session"
	"github.com/teradata-labs/spindle/pkg/teleprompter"
)

var (
	trainExperimentName string
	trainOptimizer      string
	trainOutputDir      string
	trainTrace          bool
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Mine session logs and run prompt optimization",
	Long: `Train runs the full optimization pipeline: mine session transcripts into
training examples, split them, evaluate the student baseline, compile an
optimized prompt with the selected strategy, export the prompt artifacts,
and record the experiment.

All model calls happen after the data checks, so configuration mistakes
fail before any tokens are spent.`,
	Run: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)

	trainCmd.Flags().StringVar(&trainExperimentName, "experiment-name", "",
		"name for this run (default: exp_<timestamp>)")
	trainCmd.Flags().StringVar(&trainOptimizer, "optimizer", "",
		"optimizer: bootstrap, mipro, copro (default: optimization.default_optimizer)")
	trainCmd.Flags().StringVar(&trainOutputDir, "output-dir", "",
		"write prompts and experiment records under this directory")
	trainCmd.Flags().BoolVar(&trainTrace, "trace", false,
		"log optimization spans")
}

func runTrain(cmd *cobra.Command, args []string) {
	experimentName := trainExperimentName
	if experimentName == "" {
		experimentName = "exp_" + time.Now().Format("20060102_150405")
	}
	optimizer := trainOptimizer
	if optimizer == "" {
		optimizer = config.Optimization.DefaultOptimizer
	}
	promptsDir := config.Output.PromptsDir
	experimentsDir := config.Output.ExperimentsDir
	if trainOutputDir != "" {
		promptsDir = filepath.Join(trainOutputDir, "prompts")
		experimentsDir = filepath.Join(trainOutputDir, "experiments")
	}

	fmt.Println("🚀 Spindle Prompt Optimizer")
	fmt.Println()
	fmt.Printf("Experiment: %s\n", experimentName)
	fmt.Printf("Optimizer:  %s\n", optimizer)
	fmt.Println()

	// Everything that can fail without a model call is checked up front.
	switch optimizer {
	case teleprompter.StrategyBootstrap, teleprompter.StrategyMIPRO, teleprompter.StrategyCOPRO:
	default:
		fmt.Fprintf(os.Stderr, "❌ Unknown optimizer: %s (expected bootstrap, mipro, or copro)\n", optimizer)
		os.Exit(1)
	}
	if err := config.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	metric, err := scoring.ForName(config.Evaluation.PrimaryMetric, log.Logger())
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)
		os.Exit(1)
	}

	// Step 1: mine transcripts
	fmt.Println("Step 1: Loading session logs...")
	logsDir := config.Data.SessionLogsDir
	if info, statErr := os.Stat(logsDir); statErr != nil || !info.IsDir() {
		fmt.Fprintf(os.Stderr, "❌ Session logs directory not found: %s\n", logsDir)
		os.Exit(1)
	}
	parser := session.NewParser(session.WithLogger(log.Logger()))
	mined, err := parser.LoadAndFilter(logsDir, session.FilterCriteria{
		RequireSuccess: config.Data.RequireSuccess,
		MinCorrectness: config.Data.MinCorrectness,
		MinEfficiency:  config.Data.MinEfficiency,
		AgentName:      config.Data.AgentFilter,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error loading session logs: %v\n", err)
		os.Exit(1)
	}
	if len(mined) == 0 {
		fmt.Fprintln(os.Stderr, "❌ No training examples found!")
		fmt.Fprintf(os.Stderr, "   Check the quality gates and that %s holds transcript files.\n", logsDir)
		os.Exit(1)
	}
	fmt.Printf("✓ Loaded %d examples\n", len(mined))
	if len(mined) < config.Data.MinExamples {
		fmt.Fprintf(os.Stderr, "❌ Only %d examples passed the filters, need at least %d\n",
			len(mined), config.Data.MinExamples)
		os.Exit(1)
	}

	// Step 2: convert to dataset examples
	fmt.Println("\nStep 2: Building training examples...")
	builder := dataset.NewBuilder(log.Logger())
	examples := builder.BuildBatch(mined, true)
	stats := dataset.ComputeStats(examples)
	fmt.Printf("✓ Built %d examples (%d labeled, mean %d input tokens, max %d)\n",
		stats.Examples, stats.Labeled, stats.MeanInputToken, stats.MaxInputToken)

	// Step 3: split
	fmt.Println("\nStep 3: Splitting data...")
	fractions := dataset.Fractions{
		Train: config.Data.TrainSplit,
		Val:   config.Data.ValSplit,
		Test:  config.Data.TestSplit,
	}
	trainSet, valSet, testSet, err := dataset.Split(examples, fractions, config.Data.RandomSeed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error splitting data: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Train: %d, Val: %d, Test: %d\n", len(trainSet), len(valSet), len(testSet))

	// Step 4: model handles and orchestrator
	fmt.Println("\nStep 4: Setting up models...")
	teacher, student, err := buildHandles(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error setting up models: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Teacher: %s (%s)\n", config.Models.Teacher.Model, config.Models.Teacher.Provider)
	fmt.Printf("✓ Student: %s (%s)\n", config.Models.Student.Model, config.Models.Student.Provider)

	var tracer observability.Tracer
	if trainTrace || strings.EqualFold(config.Logging.Level, "debug") {
		tracer = observability.NewZapTracer(log.Logger())
	} else {
		tracer = observability.NewNoOpTracer()
	}
	orchestrator, err := teleprompter.NewOrchestrator(teleprompter.OrchestratorConfig{
		Teacher:    teacher,
		Student:    student,
		NumThreads: config.Optimization.NumThreads,
		Tracer:     tracer,
		Logger:     log.Logger(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)
		os.Exit(1)
	}

	program := agent.NewCoder()
	ctx := context.Background()

	// Step 5: baseline
	fmt.Println("\nStep 5: Evaluating baseline...")
	baseline, err := orchestrator.EvaluateBaseline(ctx, program, valSet, metric)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error evaluating baseline: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Baseline score: %.3f\n", baseline.Mean)

	// Step 6: optimize
	fmt.Printf("\nStep 6: Running %s optimization...\n", optimizer)
	fmt.Println("⚙️  This may take a while...")
	tpConfig := optimizationConfig(config)
	result, report, err := orchestrator.Optimize(ctx, optimizer, program, trainSet, valSet, metric, tpConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error during optimization: %v\n", err)
		os.Exit(1)
	}
	improvement := report.Mean - baseline.Mean
	fmt.Printf("✓ Optimized score: %.3f\n", report.Mean)
	fmt.Printf("✓ Improvement: %+.3f\n", improvement)

	if err := os.MkdirAll(experimentsDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error creating %s: %v\n", experimentsDir, err)
		os.Exit(1)
	}
	modulePath := filepath.Join(experimentsDir, experimentName+"_module.json")
	if data, marshalErr := json.MarshalIndent(result, "", "  "); marshalErr == nil {
		if writeErr := os.WriteFile(modulePath, data, 0644); writeErr != nil {
			log.Warn("could not save compiled module", zap.Error(writeErr))
		} else {
			fmt.Printf("✓ Compiled module: %s\n", modulePath)
		}
	}

	// Step 7: export prompt artifacts
	fmt.Println("\nStep 7: Exporting optimized prompts...")
	agentName := config.Data.AgentFilter
	if agentName == "" {
		agentName = "build"
	}
	exporter, err := export.NewExporter(promptsDir, log.Logger())
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)
		os.Exit(1)
	}
	request := &export.Request{
		Optimized:        &result.Optimized,
		AgentName:        agentName,
		ModelName:        config.Models.Student.Model,
		BaselineScore:    baseline.Mean,
		OptimizedScore:   report.Mean,
		BaseTemplate:     baseTemplate(config),
		BaseInstructions: agent.TaskSignature().Instructions,
	}
	paths, err := exporter.ExportAll(request)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error exporting prompts: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Agent config: %s\n", paths.AgentConfig)
	fmt.Printf("✓ Instructions: %s\n", paths.Instructions)
	fmt.Printf("✓ Template: %s\n", paths.Template)
	if config.Output.CreateUsageGuide {
		guidePath, guideErr := exporter.WriteUsageGuide(request, paths)
		if guideErr != nil {
			fmt.Fprintf(os.Stderr, "❌ Error writing usage guide: %v\n", guideErr)
			os.Exit(1)
		}
		fmt.Printf("✓ Usage guide: %s\n", guidePath)
	}

	// Step 8: record the experiment
	fmt.Println("\nStep 8: Saving experiment results...")
	tracker := openTracker(experimentsDir)
	record := &experiment.Record{
		Name:           experimentName,
		Strategy:       result.Strategy,
		Model:          config.Models.Student.Model,
		Metric:         metric.Name(),
		BaselineScore:  baseline.Mean,
		OptimizedScore: report.Mean,
		Improvement:    improvement,
		Config:         optimizerParams(optimizer, tpConfig),
	}
	if err := tracker.Log(ctx, record); err != nil {
		log.Warn("could not persist experiment record", zap.Error(err))
	}
	resultsPath := filepath.Join(experimentsDir, "experiment_results.json")
	if err := tracker.SaveResults(resultsPath); err != nil {
		log.Warn("could not write results file", zap.Error(err))
	} else {
		fmt.Printf("✓ Results: %s\n", resultsPath)
	}

	fmt.Println("\n✅ Optimization complete!")
	fmt.Println()
	fmt.Println("Results Summary")
	fmt.Println(strings.Repeat("─", 44))
	fmt.Printf("  Baseline Score:      %.3f\n", baseline.Mean)
	fmt.Printf("  Optimized Score:     %.3f\n", report.Mean)
	fmt.Printf("  Improvement:         %+.3f\n", improvement)
	fmt.Printf("  Training Examples:   %d\n", len(trainSet))
	fmt.Printf("  Validation Examples: %d\n", len(valSet))
	fmt.Printf("  LLM Calls:           teacher=%d, student=%d\n", teacher.Calls(), student.Calls())
	fmt.Printf("  Compilation ID:      %s\n", result.CompilationID)
	fmt.Println(strings.Repeat("─", 44))
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Printf("1. Review the exported prompts in %s\n", promptsDir)
	fmt.Println("2. Follow the usage guide to wire them into your agent")
	fmt.Println("3. Compare runs with 'spindle history'")
}

// buildHandles constructs the teacher and student model handles. With
// caching enabled both share one response cache; entries are keyed by
// handle and model, so the roles never read each other's completions.
func buildHandles(cfg *Config) (teacher, student *llm.Handle, err error) {
	var cache *llm.ResponseCache
	if cfg.Cache.Enabled {
		cache = llm.NewResponseCache()
	}

	teacher, err = buildHandle("teacher", cfg.Models.Teacher, cache)
	if err != nil {
		return nil, nil, err
	}
	student, err = buildHandle("student", cfg.Models.Student, cache)
	if err != nil {
		return nil, nil, err
	}
	return teacher, student, nil
}

func buildHandle(role string, mc ModelRoleConfig, cache *llm.ResponseCache) (*llm.Handle, error) {
	provider, err := factory.New(factory.ModelConfig{
		Provider:  mc.Provider,
		Model:     mc.Model,
		APIBase:   mc.APIBase,
		APIKey:    mc.APIKey,
		APIKeyEnv: mc.APIKeyEnv,
		MaxTokens: mc.MaxTokens,
		Timeout:   time.Duration(mc.TimeoutSeconds) * time.Second,
		Logger:    log.Logger(),
	})
	if err != nil {
		return nil, fmt.Errorf("%s model: %w", role, err)
	}
	return llm.NewHandle(llm.HandleConfig{
		ID:          role,
		Provider:    provider,
		Temperature: mc.Temperature,
		Cache:       cache,
		Logger:      log.Logger(),
	})
}

// optimizationConfig maps the file configuration onto optimizer settings.
func optimizationConfig(cfg *Config) *teleprompter.Config {
	return &teleprompter.Config{
		MaxBootstrappedDemos: cfg.Optimization.Bootstrap.MaxBootstrappedDemos,
		MaxLabeledDemos:      cfg.Optimization.Bootstrap.MaxLabeledDemos,
		MaxRounds:            cfg.Optimization.Bootstrap.MaxRounds,
		MinConfidence:        cfg.Evaluation.MinConfidence,
		NumThreads:           cfg.Optimization.NumThreads,
		MIPRO: &teleprompter.MIPROConfig{
			NumCandidates:   cfg.Optimization.MIPRO.NumCandidates,
			InitTemperature: cfg.Optimization.MIPRO.InitTemperature,
			MinibatchSize:   cfg.Optimization.MIPRO.MinibatchSize,
		},
		COPRO: &teleprompter.COPROConfig{
			Depth:   cfg.Optimization.COPRO.Depth,
			Breadth: cfg.Optimization.COPRO.Breadth,
		},
	}
}

// optimizerParams flattens the settings that shaped a run for the
// experiment record.
func optimizerParams(optimizer string, cfg *teleprompter.Config) map[string]string {
	params := map[string]string{
		"min_confidence": strconv.FormatFloat(cfg.MinConfidence, 'g', -1, 64),
		"num_threads":    strconv.Itoa(cfg.NumThreads),
	}
	switch optimizer {
	case teleprompter.StrategyBootstrap:
		params["max_bootstrapped_demos"] = strconv.Itoa(cfg.MaxBootstrappedDemos)
		params["max_labeled_demos"] = strconv.Itoa(cfg.MaxLabeledDemos)
		params["max_rounds"] = strconv.Itoa(cfg.MaxRounds)
	case teleprompter.StrategyMIPRO:
		params["num_candidates"] = strconv.Itoa(cfg.MIPRO.NumCandidates)
		params["init_temperature"] = strconv.FormatFloat(cfg.MIPRO.InitTemperature, 'g', -1, 64)
		params["minibatch_size"] = strconv.Itoa(cfg.MIPRO.MinibatchSize)
	case teleprompter.StrategyCOPRO:
		params["depth"] = strconv.Itoa(cfg.COPRO.Depth)
		params["breadth"] = strconv.Itoa(cfg.COPRO.Breadth)
	}
	return params
}

// openTracker opens the experiment store under dir. Training results must
// survive a broken store, so failures degrade to an in-memory tracker.
func openTracker(dir string) *experiment.Tracker {
	store, err := experiment.NewSQLiteStore(filepath.Join(dir, "experiments.db"))
	if err != nil {
		log.Warn("experiment store unavailable", zap.Error(err))
		return experiment.NewTracker(nil, log.Logger())
	}
	return experiment.NewTracker(store, log.Logger())
}

// baseTemplate loads the student model's base prompt so exported artifacts
// show the optimized instructions in context. A missing template is not
// fatal; the export degrades to instructions only.
func baseTemplate(cfg *Config) string {
	registry, err := prompts.OpenRegistry(cfg.Prompts.TemplatesDir)
	if err != nil {
		log.Warn("prompt templates unavailable", zap.Error(err))
		return ""
	}
	key := prompts.ModelTemplateKey(cfg.Models.Student.Model, cfg.Models.Student.Provider)
	tmpl, err := registry.Get(context.Background(), key, nil)
	if err != nil {
		log.Debug("no base template for student model", zap.String("key", key))
		return ""
	}
	return tmpl
}
