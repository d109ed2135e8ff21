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
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	spindleconfig "github.com/teradata-labs/spindle/pkg/config"
	"github.com/teradata-labs/spindle/pkg/llm/factory"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage spindle configuration",
	Long: `Config manages the spindle configuration file and the API keys stored
in the OS keyring. Keys never go into the config file; use set-key for
those.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file interactively",
	Run:   runConfigInit,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value",
	Args:  cobra.ExactArgs(2),
	Run:   runConfigSet,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a config value",
	Args:  cobra.ExactArgs(1),
	Run:   runConfigGet,
}

var configSetKeyCmd = &cobra.Command{
	Use:   "set-key <name>",
	Short: "Store an API key in the OS keyring",
	Args:  cobra.ExactArgs(1),
	Run:   runConfigSetKey,
}

var configGetKeyCmd = &cobra.Command{
	Use:   "get-key <name>",
	Short: "Show a stored API key (masked)",
	Args:  cobra.ExactArgs(1),
	Run:   runConfigGetKey,
}

var configDeleteKeyCmd = &cobra.Command{
	Use:   "delete-key <name>",
	Short: "Remove an API key from the OS keyring",
	Args:  cobra.ExactArgs(1),
	Run:   runConfigDeleteKey,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Run:   runConfigShow,
}

var configListKeysCmd = &cobra.Command{
	Use:   "list-keys",
	Short: "List the keyring entries spindle uses",
	Run:   runConfigListKeys,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetKeyCmd)
	configCmd.AddCommand(configGetKeyCmd)
	configCmd.AddCommand(configDeleteKeyCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configListKeysCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	configPath := filepath.Join(spindleconfig.GetSpindleDataDir(), DefaultConfigFileName+".yaml")
	reader := bufio.NewReader(os.Stdin)

	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("Config file already exists: %s\n", configPath)
		fmt.Print("Overwrite? (y/N): ")
		answer, _ := reader.ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "y" && answer != "yes" {
			fmt.Println("Keeping the existing config.")
			return
		}
		fmt.Println()
	}

	fmt.Println("Spindle Configuration Setup")
	fmt.Println("===========================")
	fmt.Println()
	fmt.Println("Select the teacher model provider:")
	fmt.Println("  1. OpenAI (gpt-4.1)")
	fmt.Println("  2. Anthropic (claude-sonnet-4-5)")
	fmt.Print("Choice [1]: ")
	choice, _ := reader.ReadString('\n')
	choice = strings.TrimSpace(choice)

	var content string
	switch choice {
	case "", "1":
		content = GenerateExampleConfig()
	case "2":
		content = generateConfigYAML("claude-sonnet-4-5", "anthropic", factory.DefaultAnthropicKeyEnv)
	default:
		fmt.Fprintf(os.Stderr, "❌ Invalid choice: %s\n", choice)
		os.Exit(1)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error creating config directory: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error writing config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n✓ Config written to %s\n", configPath)
	fmt.Println()
	fmt.Println("The student defaults to a local Ollama model; edit models.student")
	fmt.Println("to target something else.")
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("1. Store the teacher API key: spindle config set-key teacher_api_key")
	fmt.Println("2. Point data.session_logs_dir at your transcripts:")
	fmt.Println("   spindle config set data.session_logs_dir ./logs/sessions")
	fmt.Println("3. Check readiness: spindle validate")
}

func runConfigSet(cmd *cobra.Command, args []string) {
	key, value := args[0], args[1]

	if isSecretKey(key) {
		fmt.Fprintln(os.Stderr, "❌ API keys do not belong in the config file.")
		fmt.Fprintln(os.Stderr, "   Use 'spindle config set-key' to store them in the OS keyring.")
		os.Exit(1)
	}

	configPath := configFilePath()
	v := viper.New()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "❌ Error reading config: %v\n", err)
			os.Exit(1)
		}
	}

	typed := inferType(key, value)
	v.Set(key, typed)

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error creating config directory: %v\n", err)
		os.Exit(1)
	}
	if err := v.WriteConfigAs(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error writing config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ %s = %v\n", key, typed)
}

func runConfigGet(cmd *cobra.Command, args []string) {
	key := args[0]
	if !viper.IsSet(key) {
		fmt.Fprintf(os.Stderr, "Key not found: %s\n", key)
		os.Exit(1)
	}
	if isSecretKey(key) {
		value := viper.GetString(key)
		if value == "" {
			fmt.Println("(not set)")
			return
		}
		fmt.Println(maskSecret(value))
		return
	}
	fmt.Printf("%v\n", viper.Get(key))
}

func runConfigSetKey(cmd *cobra.Command, args []string) {
	key := args[0]
	valid := ListAvailableSecretKeys()
	if !slices.Contains(valid, key) {
		fmt.Fprintf(os.Stderr, "❌ Unknown key name: %s\n", key)
		fmt.Fprintln(os.Stderr, "\nAvailable keys:")
		for _, k := range valid {
			fmt.Fprintf(os.Stderr, "  %s\n", k)
		}
		os.Exit(1)
	}

	fmt.Printf("Enter value for %s (input hidden): ", key)
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error reading input: %v\n", err)
		os.Exit(1)
	}
	if len(secret) == 0 {
		fmt.Fprintln(os.Stderr, "❌ Empty value, nothing saved")
		os.Exit(1)
	}

	if err := SaveSecretToKeyring(key, string(secret)); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error saving to keyring: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ %s saved to the OS keyring (service %q)\n", key, ServiceName)
}

func runConfigGetKey(cmd *cobra.Command, args []string) {
	key := args[0]
	value, err := GetSecretFromKeyring(key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ No value stored for %s\n", key)
		os.Exit(1)
	}
	fmt.Println(maskSecret(value))
}

func runConfigDeleteKey(cmd *cobra.Command, args []string) {
	key := args[0]
	if err := DeleteSecretFromKeyring(key); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error deleting %s: %v\n", key, err)
		os.Exit(1)
	}
	fmt.Printf("✓ %s removed from the keyring\n", key)
}

func runConfigShow(cmd *cobra.Command, args []string) {
	fmt.Println("Current Configuration")
	fmt.Println("=====================")
	fmt.Println()
	if path := viper.ConfigFileUsed(); path != "" {
		fmt.Printf("Config file: %s\n", path)
	} else {
		fmt.Println("Config file: (none found, using defaults)")
	}
	fmt.Printf("Data dir:    %s\n", config.DataDir)

	fmt.Println()
	fmt.Println("Data:")
	fmt.Printf("  session_logs_dir: %s\n", config.Data.SessionLogsDir)
	fmt.Printf("  quality gates:    min_correctness=%.2f, min_efficiency=%.2f, require_success=%t\n",
		config.Data.MinCorrectness, config.Data.MinEfficiency, config.Data.RequireSuccess)
	if config.Data.AgentFilter != "" {
		fmt.Printf("  agent_filter:     %s\n", config.Data.AgentFilter)
	}
	fmt.Printf("  splits:           %.2f/%.2f/%.2f (seed %d)\n",
		config.Data.TrainSplit, config.Data.ValSplit, config.Data.TestSplit, config.Data.RandomSeed)
	fmt.Printf("  min_examples:     %d\n", config.Data.MinExamples)

	fmt.Println()
	fmt.Println("Models:")
	fmt.Printf("  teacher: %s (%s)\n", config.Models.Teacher.Model, config.Models.Teacher.Provider)
	fmt.Printf("  student: %s (%s)\n", config.Models.Student.Model, config.Models.Student.Provider)

	fmt.Println()
	fmt.Println("Optimization:")
	fmt.Printf("  default_optimizer: %s\n", config.Optimization.DefaultOptimizer)
	fmt.Printf("  num_threads:       %d\n", config.Optimization.NumThreads)

	fmt.Println()
	fmt.Println("Evaluation:")
	fmt.Printf("  primary_metric: %s\n", config.Evaluation.PrimaryMetric)
	fmt.Printf("  min_confidence: %.2f\n", config.Evaluation.MinConfidence)

	fmt.Println()
	fmt.Println("Output:")
	fmt.Printf("  prompts_dir:     %s\n", config.Output.PromptsDir)
	fmt.Printf("  experiments_dir: %s\n", config.Output.ExperimentsDir)

	fmt.Println()
	fmt.Println("Secrets (OS keyring):")
	for _, name := range ListAvailableSecretKeys() {
		if value, err := GetSecretFromKeyring(name); err == nil && value != "" {
			fmt.Printf("  %s: %s\n", name, maskSecret(value))
		} else {
			fmt.Printf("  %s: (not set)\n", name)
		}
	}
}

func runConfigListKeys(cmd *cobra.Command, args []string) {
	fmt.Printf("Keyring entries (service %q):\n", ServiceName)
	for _, name := range ListAvailableSecretKeys() {
		status := "not set"
		if value, err := GetSecretFromKeyring(name); err == nil && value != "" {
			status = "set"
		}
		fmt.Printf("  %-18s %s\n", name, status)
	}
	fmt.Println()
	fmt.Println("Store one with: spindle config set-key <name>")
}

// configFilePath returns the file config set writes to: the file in use,
// or the default location when none was found.
func configFilePath() string {
	if path := viper.ConfigFileUsed(); path != "" {
		return path
	}
	return filepath.Join(spindleconfig.GetSpindleDataDir(), DefaultConfigFileName+".yaml")
}

// isSecretKey reports whether a config key would hold an API key rather
// than the name of an environment variable.
func isSecretKey(key string) bool {
	lower := strings.ToLower(key)
	return strings.Contains(lower, "api_key") && !strings.Contains(lower, "api_key_env")
}

// inferType converts a CLI string to the type the key expects so the
// value round-trips through YAML unquoted.
func inferType(key, value string) interface{} {
	lower := strings.ToLower(key)

	floatKey := strings.Contains(lower, "temperature") ||
		strings.Contains(lower, "split") ||
		strings.Contains(lower, "min_correctness") ||
		strings.Contains(lower, "min_efficiency") ||
		strings.Contains(lower, "min_confidence")
	intKey := strings.Contains(lower, "seed") ||
		strings.Contains(lower, "demos") ||
		strings.Contains(lower, "rounds") ||
		strings.Contains(lower, "threads") ||
		strings.Contains(lower, "candidates") ||
		strings.Contains(lower, "depth") ||
		strings.Contains(lower, "breadth") ||
		strings.Contains(lower, "minibatch") ||
		strings.Contains(lower, "min_examples") ||
		strings.Contains(lower, "max_tokens") ||
		strings.Contains(lower, "timeout")
	boolKey := strings.Contains(lower, "enabled") ||
		strings.Contains(lower, "require_") ||
		strings.Contains(lower, "create_")

	switch {
	case floatKey:
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	case intKey:
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	case boolKey:
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}

	// Fall back to the type of the current value when the key exists.
	switch viper.Get(key).(type) {
	case bool:
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	case int, int64:
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	case float64:
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return value
}

// maskSecret hides the middle of a secret, keeping enough of the edges
// to recognize which key is stored.
func maskSecret(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
