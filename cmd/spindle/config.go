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
	"strings"

	"github.com/spf13/viper"
	"github.com/zalando/go-keyring"

	spindleconfig "github.com/teradata-labs/spindle/pkg/config"
	"github.com/teradata-labs/spindle/pkg/dataset"
	"github.com/teradata-labs/spindle/pkg/llm/factory"
	"github.com/teradata-labs/spindle/pkg/scoring"
	"github.com/teradata-labs/spindle/pkg/teleprompter"
)

const (
	// ServiceName is the identifier used for OS keyring entries.
	ServiceName = "spindle"

	// DefaultConfigFileName is the config file name without extension.
	DefaultConfigFileName = "spindle"
)

// Config holds the complete spindle configuration.
type Config struct {
	Data         DataConfig         `mapstructure:"data"`
	Models       ModelsConfig       `mapstructure:"models"`
	Optimization OptimizationConfig `mapstructure:"optimization"`
	Evaluation   EvaluationConfig   `mapstructure:"evaluation"`
	Output       OutputConfig       `mapstructure:"output"`
	Prompts      PromptsConfig      `mapstructure:"prompts"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Cache        CacheConfig        `mapstructure:"cache"`

	// DataDir is resolved at load time and never read from the file.
	DataDir string `mapstructure:"-"`
}

// DataConfig controls session mining and dataset splitting.
type DataConfig struct {
	SessionLogsDir string  `mapstructure:"session_logs_dir"`
	MinCorrectness float64 `mapstructure:"min_correctness"`
	MinEfficiency  float64 `mapstructure:"min_efficiency"`
	RequireSuccess bool    `mapstructure:"require_success"`
	AgentFilter    string  `mapstructure:"agent_filter"`
	MinExamples    int     `mapstructure:"min_examples"`
	TrainSplit     float64 `mapstructure:"train_split"`
	ValSplit       float64 `mapstructure:"val_split"`
	TestSplit      float64 `mapstructure:"test_split"`
	RandomSeed     int64   `mapstructure:"random_seed"`
}

// ModelsConfig names the two model roles of an optimization run.
type ModelsConfig struct {
	Teacher ModelRoleConfig `mapstructure:"teacher"`
	Student ModelRoleConfig `mapstructure:"student"`
}

// ModelRoleConfig configures one model role.
type ModelRoleConfig struct {
	Model          string  `mapstructure:"model"`
	Provider       string  `mapstructure:"provider"`
	APIBase        string  `mapstructure:"api_base"`
	APIKeyEnv      string  `mapstructure:"api_key_env"`
	APIKey         string  `mapstructure:"api_key"` // From CLI/env/keyring only
	MaxTokens      int     `mapstructure:"max_tokens"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	Temperature    float64 `mapstructure:"temperature"`
}

// OptimizationConfig selects and tunes the optimizer strategies.
type OptimizationConfig struct {
	DefaultOptimizer string          `mapstructure:"default_optimizer"`
	NumThreads       int             `mapstructure:"num_threads"`
	Bootstrap        BootstrapConfig `mapstructure:"bootstrap"`
	MIPRO            MIPROConfig     `mapstructure:"mipro"`
	COPRO            COPROConfig     `mapstructure:"copro"`
}

// BootstrapConfig tunes bootstrap few-shot compilation.
type BootstrapConfig struct {
	MaxBootstrappedDemos int `mapstructure:"max_bootstrapped_demos"`
	MaxLabeledDemos      int `mapstructure:"max_labeled_demos"`
	MaxRounds            int `mapstructure:"max_rounds"`
}

// MIPROConfig tunes instruction candidate search.
type MIPROConfig struct {
	NumCandidates   int     `mapstructure:"num_candidates"`
	InitTemperature float64 `mapstructure:"init_temperature"`
	MinibatchSize   int     `mapstructure:"minibatch_size"`
}

// COPROConfig tunes coordinate-ascent instruction refinement.
type COPROConfig struct {
	Depth   int `mapstructure:"depth"`
	Breadth int `mapstructure:"breadth"`
}

// EvaluationConfig selects the metric used for scoring predictions.
type EvaluationConfig struct {
	PrimaryMetric string  `mapstructure:"primary_metric"`
	MinConfidence float64 `mapstructure:"min_confidence"`
}

// OutputConfig places run artifacts on disk.
type OutputConfig struct {
	BaseDir          string `mapstructure:"base_dir"`
	ExperimentsDir   string `mapstructure:"experiments_dir"`
	PromptsDir       string `mapstructure:"prompts_dir"`
	CreateUsageGuide bool   `mapstructure:"create_usage_guide"`
}

// PromptsConfig locates base prompt templates. An empty templates_dir
// selects the embedded defaults.
type PromptsConfig struct {
	TemplatesDir string `mapstructure:"templates_dir"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// CacheConfig controls completion reuse within a run.
type CacheConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoadConfig loads configuration from file, environment, and keyring.
//
// Precedence, highest first: flags bound by the commands, SPINDLE_*
// environment variables, the config file, built-in defaults. API keys
// left empty by all of those are filled from the OS keyring.
func LoadConfig(cfgFile string) (*Config, error) {
	setDefaults()

	dataDir := spindleconfig.GetSpindleDataDir()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(dataDir)
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/spindle/")
		viper.SetConfigName(DefaultConfigFileName)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	viper.SetEnvPrefix("SPINDLE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.DataDir = dataDir

	// Keyring lookups fill only the keys file and environment left empty.
	_ = loadSecretsFromKeyring(&config)

	return &config, nil
}

func setDefaults() {
	// Session mining
	viper.SetDefault("data.session_logs_dir", "./logs/sessions")
	viper.SetDefault("data.min_correctness", 0.8)
	viper.SetDefault("data.min_efficiency", 0.0)
	viper.SetDefault("data.require_success", true)
	viper.SetDefault("data.agent_filter", "")
	viper.SetDefault("data.min_examples", 10)
	viper.SetDefault("data.train_split", 0.7)
	viper.SetDefault("data.val_split", 0.15)
	viper.SetDefault("data.test_split", 0.15)
	viper.SetDefault("data.random_seed", 42)

	// Models: hosted teacher, local student. The api_key defaults make
	// SPINDLE_MODELS_TEACHER_API_KEY and the student equivalent bindable.
	viper.SetDefault("models.teacher.model", "gpt-4.1")
	viper.SetDefault("models.teacher.provider", "openai")
	viper.SetDefault("models.teacher.temperature", 0.0)
	viper.SetDefault("models.teacher.api_key", "")
	viper.SetDefault("models.student.model", "qwen2.5-coder:7b")
	viper.SetDefault("models.student.provider", "ollama")
	viper.SetDefault("models.student.api_base", "http://localhost:11434/v1")
	viper.SetDefault("models.student.temperature", 0.0)
	viper.SetDefault("models.student.api_key", "")

	// Optimizers
	viper.SetDefault("optimization.default_optimizer", teleprompter.StrategyBootstrap)
	viper.SetDefault("optimization.num_threads", 4)
	viper.SetDefault("optimization.bootstrap.max_bootstrapped_demos", teleprompter.DefaultMaxBootstrappedDemos)
	viper.SetDefault("optimization.bootstrap.max_labeled_demos", teleprompter.DefaultMaxLabeledDemos)
	viper.SetDefault("optimization.bootstrap.max_rounds", teleprompter.DefaultMaxRounds)
	viper.SetDefault("optimization.mipro.num_candidates", teleprompter.DefaultMIPROCandidates)
	viper.SetDefault("optimization.mipro.init_temperature", teleprompter.DefaultMIPROTemperature)
	viper.SetDefault("optimization.mipro.minibatch_size", 0)
	viper.SetDefault("optimization.copro.depth", teleprompter.DefaultCOPRODepth)
	viper.SetDefault("optimization.copro.breadth", teleprompter.DefaultCOPROBreadth)

	// Evaluation
	viper.SetDefault("evaluation.primary_metric", scoring.MetricComposite)
	viper.SetDefault("evaluation.min_confidence", teleprompter.DefaultMinConfidence)

	// Artifacts
	viper.SetDefault("output.base_dir", spindleconfig.GetSpindleSubDir("runs"))
	viper.SetDefault("output.experiments_dir", spindleconfig.GetSpindleSubDir("experiments"))
	viper.SetDefault("output.prompts_dir", spindleconfig.GetSpindleSubDir("prompts"))
	viper.SetDefault("output.create_usage_guide", true)

	// Prompt templates
	viper.SetDefault("prompts.templates_dir", "")

	// Logging
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.file", "")

	// Completion cache
	viper.SetDefault("cache.enabled", true)
}

// SecretMapping defines how one keyring entry maps into the configuration.
type SecretMapping struct {
	KeyringKey string
	Setter     func(*Config, string)
	IsSet      func(*Config) bool
}

// GetSecretMappings returns the supported keyring entries. Role-specific
// entries come first so they win over provider-wide ones.
func GetSecretMappings() []SecretMapping {
	return []SecretMapping{
		{
			KeyringKey: "teacher_api_key",
			Setter:     func(c *Config, v string) { c.Models.Teacher.APIKey = v },
			IsSet:      func(c *Config) bool { return c.Models.Teacher.APIKey != "" },
		},
		{
			KeyringKey: "student_api_key",
			Setter:     func(c *Config, v string) { c.Models.Student.APIKey = v },
			IsSet:      func(c *Config) bool { return c.Models.Student.APIKey != "" },
		},
		{
			KeyringKey: "openai_api_key",
			Setter:     func(c *Config, v string) { injectProviderKey(c, "openai", v) },
			IsSet:      func(c *Config) bool { return !providerKeyMissing(c, "openai") },
		},
		{
			KeyringKey: "anthropic_api_key",
			Setter:     func(c *Config, v string) { injectProviderKey(c, "anthropic", v) },
			IsSet:      func(c *Config) bool { return !providerKeyMissing(c, "anthropic") },
		},
	}
}

// injectProviderKey fills the key for every role on the given provider
// that does not already have one.
func injectProviderKey(c *Config, provider, value string) {
	for _, role := range []*ModelRoleConfig{&c.Models.Teacher, &c.Models.Student} {
		if strings.EqualFold(role.Provider, provider) && role.APIKey == "" {
			role.APIKey = value
		}
	}
}

// providerKeyMissing reports whether any role on the given provider still
// lacks a key.
func providerKeyMissing(c *Config, provider string) bool {
	for _, role := range []*ModelRoleConfig{&c.Models.Teacher, &c.Models.Student} {
		if strings.EqualFold(role.Provider, provider) && role.APIKey == "" {
			return true
		}
	}
	return false
}

// loadSecretsFromKeyring fills empty API keys from the OS keyring.
// Keyring failures are not errors: headless machines routinely have no
// keyring service, and environment variables still work there.
func loadSecretsFromKeyring(config *Config) error {
	for _, mapping := range GetSecretMappings() {
		if mapping.IsSet(config) {
			continue
		}
		value, err := keyring.Get(ServiceName, mapping.KeyringKey)
		if err != nil {
			continue
		}
		if value != "" {
			mapping.Setter(config, value)
		}
	}
	return nil
}

// GetSecretFromKeyring retrieves a named secret from the OS keyring.
func GetSecretFromKeyring(key string) (string, error) {
	return keyring.Get(ServiceName, key)
}

// SaveSecretToKeyring stores a named secret in the OS keyring.
func SaveSecretToKeyring(key, value string) error {
	return keyring.Set(ServiceName, key, value)
}

// DeleteSecretFromKeyring removes a named secret from the OS keyring.
func DeleteSecretFromKeyring(key string) error {
	return keyring.Delete(ServiceName, key)
}

// ListAvailableSecretKeys returns the keyring entry names spindle knows
// how to use.
func ListAvailableSecretKeys() []string {
	mappings := GetSecretMappings()
	keys := make([]string, 0, len(mappings))
	for _, m := range mappings {
		keys = append(keys, m.KeyringKey)
	}
	return keys
}

// Validate checks that the configuration can drive a training run. Every
// error names the setting and a way to fix it.
func (c *Config) Validate() error {
	if c.Data.SessionLogsDir == "" {
		return fmt.Errorf("data.session_logs_dir is required")
	}
	if c.Data.MinExamples < 1 {
		return fmt.Errorf("data.min_examples must be at least 1, got %d", c.Data.MinExamples)
	}
	fractions := dataset.Fractions{
		Train: c.Data.TrainSplit,
		Val:   c.Data.ValSplit,
		Test:  c.Data.TestSplit,
	}
	if err := fractions.Validate(); err != nil {
		return err
	}

	if err := c.Models.Teacher.validate("teacher"); err != nil {
		return err
	}
	if err := c.Models.Student.validate("student"); err != nil {
		return err
	}

	switch c.Optimization.DefaultOptimizer {
	case teleprompter.StrategyBootstrap, teleprompter.StrategyMIPRO, teleprompter.StrategyCOPRO:
	default:
		return fmt.Errorf("optimization.default_optimizer %q is not supported (bootstrap, mipro, copro)",
			c.Optimization.DefaultOptimizer)
	}
	if c.Optimization.NumThreads < 1 {
		return fmt.Errorf("optimization.num_threads must be at least 1, got %d", c.Optimization.NumThreads)
	}

	switch c.Evaluation.PrimaryMetric {
	case scoring.MetricComposite, scoring.MetricCorrectness, scoring.MetricSimple, scoring.MetricCompletion:
	default:
		return fmt.Errorf("evaluation.primary_metric %q is not supported (composite, correctness, simple, completion)",
			c.Evaluation.PrimaryMetric)
	}
	if c.Evaluation.MinConfidence < 0 || c.Evaluation.MinConfidence > 1 {
		return fmt.Errorf("evaluation.min_confidence must be between 0 and 1, got %g",
			c.Evaluation.MinConfidence)
	}

	return nil
}

func (m *ModelRoleConfig) validate(role string) error {
	if m.Provider == "" {
		return fmt.Errorf("models.%s.provider is required", role)
	}
	if m.Model == "" {
		return fmt.Errorf("models.%s.model is required", role)
	}

	switch strings.ToLower(m.Provider) {
	case "openai", "anthropic":
		if m.APIKey != "" {
			return nil
		}
		keyEnv := m.APIKeyEnv
		if keyEnv == "" {
			keyEnv = conventionalKeyEnv(m.Provider)
		}
		if os.Getenv(keyEnv) == "" {
			return fmt.Errorf("models.%s: %s API key is required (set %s or run 'spindle config set-key %s_api_key')",
				role, m.Provider, keyEnv, role)
		}
	case "ollama", "litellm", "vllm", "openai-compatible":
		// Local and gateway endpoints accept keyless requests.
	default:
		return fmt.Errorf("models.%s.provider %q is not supported (openai, anthropic, ollama, litellm, vllm, openai-compatible)",
			role, m.Provider)
	}

	return nil
}

// conventionalKeyEnv returns the provider's conventional API key variable.
func conventionalKeyEnv(provider string) string {
	switch strings.ToLower(provider) {
	case "openai":
		return factory.DefaultOpenAIKeyEnv
	case "anthropic":
		return factory.DefaultAnthropicKeyEnv
	}
	return ""
}

const exampleConfigTemplate = `# Spindle Configuration File
# Location: ~/.spindle/spindle.yaml (or pass --config)
# Environment overrides use the SPINDLE_ prefix, for example
# SPINDLE_DATA_SESSION_LOGS_DIR=/var/log/sessions

# Session mining
data:
  # Directory of coding-agent session transcripts (*.json, *.json.gz)
  session_logs_dir: ./logs/sessions
  # Quality gates applied while mining
  min_correctness: 0.8
  min_efficiency: 0.0
  require_success: true
  # Mine only sessions from one agent (empty mines all)
  agent_filter: ""
  # Abort training below this many mined examples
  min_examples: 10
  # Train/validation/test fractions must sum to 1.0
  train_split: 0.7
  val_split: 0.15
  test_split: 0.15
  random_seed: 42

# Model roles. Providers: openai, anthropic, ollama, litellm, vllm,
# openai-compatible. Keys come from the named environment variable or the
# OS keyring (spindle config set-key), never from this file.
models:
  teacher:
    model: %s
    provider: %s
    api_key_env: %s
    temperature: 0.0
  student:
    model: qwen2.5-coder:7b
    provider: ollama
    api_base: http://localhost:11434/v1
    temperature: 0.0

# Optimizers
optimization:
  default_optimizer: bootstrap  # bootstrap, mipro, copro
  num_threads: 4
  bootstrap:
    max_bootstrapped_demos: 5
    max_labeled_demos: 8
    max_rounds: 1
  mipro:
    num_candidates: 10
    init_temperature: 1.0
    minibatch_size: 0  # 0 selects min(25, validation set size)
  copro:
    depth: 3
    breadth: 10

# Evaluation
evaluation:
  primary_metric: composite  # composite, correctness, simple, completion
  min_confidence: 0.7

# Artifacts
output:
  # base_dir: ~/.spindle/runs
  # experiments_dir: ~/.spindle/experiments
  # prompts_dir: ~/.spindle/prompts
  create_usage_guide: true

# Prompt templates (empty uses the embedded defaults)
prompts:
  templates_dir: ""

# Logging
logging:
  level: info   # debug, info, warn, error
  format: text  # text, json
  # file: /var/log/spindle/spindle.log

# Completion cache (reuses identical deterministic requests within a run)
cache:
  enabled: true
`

// GenerateExampleConfig returns a commented example configuration.
func GenerateExampleConfig() string {
	return generateConfigYAML("gpt-4.1", "openai", factory.DefaultOpenAIKeyEnv)
}

func generateConfigYAML(teacherModel, teacherProvider, teacherKeyEnv string) string {
	return fmt.Sprintf(exampleConfigTemplate, teacherModel, teacherProvider, teacherKeyEnv)
}
