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
// Package session parses coding-agent transcript logs into structured
// examples and filters them by outcome quality.
//
// A transcript file is a JSON document holding one or more example records:
// the task the agent was given, the workspace context it saw, the tool calls
// it made, its final response, and a scored outcome. Examples are immutable
// once parsed; a malformed example is dropped and logged, never fatal.
package session

import "encoding/json"

// ToolAction is a single tool invocation made by the agent,
// ordered by Step within an example.
type ToolAction struct {
	Step      int                    `json:"step"`
	Tool      string                 `json:"tool"`
	CallID    string                 `json:"callID"`
	Args      map[string]interface{} `json:"args"`
	Timestamp string                 `json:"timestamp"`
	Result    string                 `json:"result,omitempty"`
	Success   *bool                  `json:"success,omitempty"` // nil when the log did not record it
}

// ContextInfo captures the workspace state the agent observed at task start.
type ContextInfo struct {
	WorkingDirectory string                 `json:"workingDirectory"`
	RelevantFiles    []string               `json:"relevantFiles"`
	LSPDiagnostics   map[string]interface{} `json:"lspDiagnostics"`
	GitStatus        map[string]interface{} `json:"gitStatus,omitempty"`
	FileCount        int                    `json:"fileCount"`
}

// Message is one turn of conversation prior to the task.
type Message struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Outcome records how the session ended and its quality scores.
// Correctness, Efficiency and MinimalEdits are in [0,1].
type Outcome struct {
	Success          bool    `json:"success"`
	TaskCompleted    bool    `json:"taskCompleted"`
	Correctness      float64 `json:"correctness"`
	Efficiency       float64 `json:"efficiency"`
	MinimalEdits     float64 `json:"minimalEdits"`
	TimeToCompletion float64 `json:"timeToCompletion"`
	ToolCallCount    int     `json:"toolCallCount"`
	LSPErrorsCleared bool    `json:"lspErrorsCleared"`
	FilesModified    int     `json:"filesModified"`
}

// AgentConfig identifies which agent produced the session.
type AgentConfig struct {
	Name             string  `json:"name"`
	Model            string  `json:"model"`
	Temperature      float64 `json:"temperature"`
	PromptTokens     int     `json:"promptTokens"`
	CompletionTokens int     `json:"completionTokens"`
}

// Example is one fully parsed session example. Never mutated after
// construction; the parser discards it if any sub-structure fails to decode.
type Example struct {
	SessionID           string
	Task                string
	Context             ContextInfo
	ConversationHistory []Message
	Actions             []ToolAction
	FinalResponse       string
	Outcome             Outcome
	AgentConfig         AgentConfig
	Metadata            map[string]interface{}
}

// RawRecord is one decoded transcript file whose examples have not yet
// been interpreted. Examples are kept raw so each can be parsed
// independently.
type RawRecord struct {
	Session       string            `json:"session"`
	Generated     string            `json:"generated"`
	TotalExamples int               `json:"totalExamples"`
	Examples      []json.RawMessage `json:"examples"`

	// SourcePath is the file this record came from, for log context.
	SourcePath string `json:"-"`
}

// exampleRecord is the wire shape of a single example inside a transcript.
type exampleRecord struct {
	Input struct {
		Task                string      `json:"task"`
		Context             ContextInfo `json:"context"`
		ConversationHistory []Message   `json:"conversationHistory"`
	} `json:"input"`
	Actions []ToolAction `json:"actions"`
	Output  struct {
		Response string `json:"response"`
	} `json:"output"`
	Outcome struct {
		Success       bool `json:"success"`
		TaskCompleted bool `json:"taskCompleted"`
		Metrics       struct {
			TimeToCompletion float64 `json:"timeToCompletion"`
			ToolCallCount    int     `json:"toolCallCount"`
			LSPErrorsCleared bool    `json:"lspErrorsCleared"`
			FilesModified    int     `json:"filesModified"`
		} `json:"metrics"`
		Evaluation struct {
			Correctness  float64 `json:"correctness"`
			Efficiency   float64 `json:"efficiency"`
			MinimalEdits float64 `json:"minimalEdits"`
		} `json:"evaluation"`
	} `json:"outcome"`
	Agent    AgentConfig            `json:"agent"`
	Metadata map[string]interface{} `json:"metadata"`
}
