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

// Package llm is the model plumbing for prompt optimization: a text-only
// chat Provider interface, role-scoped Handles with temperature control
// and call accounting, and a response cache whose keys include the phase
// and handle so entries can never leak between optimization stages.
package llm

import "context"

// Message is a single chat turn.
type Message struct {
	Role    string `json:"role"` // "system", "user", or "assistant"
	Content string `json:"content"`
}

// Usage reports token consumption and estimated cost for one completion.
type Usage struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalTokens  int     `json:"total_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}

// Response is a completed chat exchange.
type Response struct {
	Content    string `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      Usage  `json:"usage"`
}

// ChatRequest carries one completion request to a provider.
//
// Temperature is set on every request rather than on the client: handles
// override temperature mid-run, and the current value has to reach the
// wire without mutating shared client state. Zero is a meaningful value
// (deterministic sampling), so providers must serialize it explicitly.
type ChatRequest struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int // 0 means use the client's configured default
}

// Provider is a text-only chat model client.
type Provider interface {
	// Chat sends the conversation and returns the model's completion.
	Chat(ctx context.Context, req *ChatRequest) (*Response, error)

	// Name returns the provider name (e.g. "openai", "anthropic").
	Name() string

	// Model returns the model identifier requests are sent to.
	Model() string
}

// Phase labels the optimization stage a model call belongs to. The phase
// is part of the response-cache key, so identical prompts issued from
// different stages never share cached completions. Strategies append
// sub-stage suffixes (e.g. "optimize/round-1") with Sub.
type Phase string

const (
	// PhaseOptimize covers teacher-model calls made while compiling a program.
	PhaseOptimize Phase = "optimize"
	// PhaseEvaluate covers student-model calls made while scoring a program.
	PhaseEvaluate Phase = "evaluate"
	// PhaseBaseline covers student-model calls made before any optimization.
	PhaseBaseline Phase = "baseline"
)

// Sub derives a nested phase, e.g. PhaseOptimize.Sub("round-2").
func (p Phase) Sub(name string) Phase {
	return p + "/" + Phase(name)
}
