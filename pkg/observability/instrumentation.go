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
package observability

// Standard span names for consistency across Spindle.
// Use these constants instead of hardcoding strings.
const (
	// Session mining spans
	SpanSessionLoad  = "session.load"
	SpanSessionParse = "session.parse"

	// Dataset spans
	SpanDatasetBuild = "dataset.build"
	SpanDatasetSplit = "dataset.split"

	// LLM spans
	SpanLLMCompletion = "llm.completion"

	// Compilation spans
	SpanCompile          = "teleprompter.compile"
	SpanCompileBootstrap = "teleprompter.bootstrap"
	SpanCompileMIPRO     = "teleprompter.mipro"
	SpanCompileCOPRO     = "teleprompter.copro"
	SpanMetricScore      = "teleprompter.metric"

	// Evaluation spans
	SpanEvaluateBaseline = "evaluate.baseline"
	SpanEvaluateStudent  = "evaluate.student"

	// Export spans
	SpanExportArtifacts = "export.artifacts"
)

// Standard metric names for consistency.
const (
	// LLM metrics
	MetricLLMCalls        = "llm.calls.total"
	MetricLLMLatency      = "llm.latency"
	MetricLLMTokensInput  = "llm.tokens.input"  // #nosec G101 -- not a credential, just metric name
	MetricLLMTokensOutput = "llm.tokens.output" // #nosec G101 -- not a credential, just metric name
	MetricLLMErrors       = "llm.errors.total"
	MetricLLMCacheHits    = "llm.cache.hits"
	MetricLLMCacheMisses  = "llm.cache.misses"

	// Pipeline metrics
	MetricExamplesLoaded   = "examples.loaded.total"
	MetricExamplesFiltered = "examples.filtered.total"
	MetricExamplesDropped  = "examples.dropped.total"

	// Compilation metrics
	MetricCompileTraces = "compile.traces.total"
	MetricCompileDemos  = "compile.demos.selected"
	MetricCompileScore  = "compile.score"

	// Evaluation metrics
	MetricEvalScore    = "evaluate.score.mean"
	MetricEvalFailures = "evaluate.failures.total"
)

// Standard attribute names for consistency.
// Use these constants for span and event attributes.
const (
	// Session context
	AttrSessionID = "session.id"
	AttrTraceID   = "trace.id"
	AttrSpanID    = "span.id"

	// LLM attributes
	AttrLLMProvider    = "llm.provider"
	AttrLLMModel       = "llm.model"
	AttrLLMTemperature = "llm.temperature"
	AttrLLMPhase       = "llm.phase"
	AttrLLMHandle      = "llm.handle"

	// Error attributes
	AttrErrorType    = "error.type"
	AttrErrorMessage = "error.message"

	// Prompt attributes
	AttrPromptKey     = "prompt.key"
	AttrPromptVariant = "prompt.variant"
	AttrPromptVersion = "prompt.version"

	// Compilation attributes
	AttrStrategy      = "compile.strategy"
	AttrMetricName    = "compile.metric"
	AttrDemoCount     = "compile.demo_count"
	AttrRound         = "compile.round"
	AttrCandidate     = "compile.candidate"
	AttrTrainsetSize  = "compile.trainset_size"
	AttrValsetSize    = "compile.valset_size"
	AttrCompilationID = "compile.id"
)
