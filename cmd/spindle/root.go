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

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/teradata-labs/spindle/internal/log"
	"github.com/teradata-labs/spindle/internal/version"
)

var (
	cfgFile string
	config  *Config
)

var rootCmd = &cobra.Command{
	Use:   "spindle",
	Short: "Spindle - prompt optimization from coding-agent session logs",
	Long: `Spindle mines coding-agent session transcripts into labeled training
examples and compiles optimized prompts for a student model, guided by a
stronger teacher model.

Transcripts are filtered by quality gates, split into train/validation/test
sets, and fed to an optimizer (bootstrap few-shot, MIPRO instruction search,
or COPRO refinement). The compiled instructions and demonstrations are
exported as ready-to-use prompt artifacts, and every run is recorded for
comparison.`,
	Version: version.Get(),
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.SetHelpTemplate(`{{with (or .Long .Short)}}{{. | trimTrailingWhitespaces}}

{{end}}{{if or .Runnable .HasSubCommands}}{{.UsageString}}{{end}}
Workflow:
  1. Initialize config:  spindle config init
  2. Check data & keys:  spindle validate
  3. Run optimization:   spindle train --experiment-name my-exp
  4. Compare past runs:  spindle history

Support:
  GitHub: https://github.com/teradata-labs/spindle/issues
  Docs:   https://github.com/teradata-labs/spindle#readme
`)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ~/.spindle/spindle.yaml)")

	// Data flags
	rootCmd.PersistentFlags().String("logs-dir", "", "session transcript directory")
	rootCmd.PersistentFlags().String("agent", "", "mine only sessions from this agent")

	// Model flags
	rootCmd.PersistentFlags().String("teacher-model", "", "teacher model identifier")
	rootCmd.PersistentFlags().String("student-model", "", "student model identifier")

	// Evaluation flags
	rootCmd.PersistentFlags().String("metric", "", "metric (composite, correctness, simple, completion)")
	rootCmd.PersistentFlags().Int("threads", 0, "evaluation and bootstrap concurrency")

	// Logging flags
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (text, json)")

	_ = viper.BindPFlag("data.session_logs_dir", rootCmd.PersistentFlags().Lookup("logs-dir"))
	_ = viper.BindPFlag("data.agent_filter", rootCmd.PersistentFlags().Lookup("agent"))
	_ = viper.BindPFlag("models.teacher.model", rootCmd.PersistentFlags().Lookup("teacher-model"))
	_ = viper.BindPFlag("models.student.model", rootCmd.PersistentFlags().Lookup("student-model"))
	_ = viper.BindPFlag("evaluation.primary_metric", rootCmd.PersistentFlags().Lookup("metric"))
	_ = viper.BindPFlag("optimization.num_threads", rootCmd.PersistentFlags().Lookup("threads"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	var err error
	config, err = LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := log.Init(config.Logging.Level, config.Logging.Format, config.Logging.File); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
		os.Exit(1)
	}
}
