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
// Package dataset projects parsed session examples into training examples
// with an explicit input/label split, and partitions them into train, val
// and test sets.
//
// The input/label boundary is load-bearing: candidate programs only ever
// see the four input fields. Labels exist solely for scoring.
package dataset

// Input field names. Programs receive inputs keyed by these names.
const (
	FieldTaskDescription     = "task_description"
	FieldEnvironmentContext  = "environment_context"
	FieldConversationHistory = "conversation_history"
	FieldAvailableTools      = "available_tools"
)

// FirstAction is the first tool call the agent made, used as the
// ground-truth action label.
type FirstAction struct {
	Tool string                 `json:"tool"`
	Args map[string]interface{} `json:"args"`

	// CriticalArgs names the args that must match for full credit when
	// scoring a predicted action against this one. Transcript-derived
	// labels leave it empty; curated eval sets may declare it.
	CriticalArgs []string `json:"critical_args,omitempty"`
}

// Example is one training example: rendered input text plus, when labels
// were requested, the expected behavior and quality scores. Immutable
// after construction.
type Example struct {
	// Input fields, rendered as model-ready text.
	TaskDescription     string `json:"task_description"`
	EnvironmentContext  string `json:"environment_context"`
	ConversationHistory string `json:"conversation_history"`
	AvailableTools      string `json:"available_tools"`

	// HasLabels reports whether the label fields below are populated.
	HasLabels bool `json:"has_labels"`

	// Label fields.
	ExpectedTools       []string     `json:"expected_tools,omitempty"`
	ExpectedFirstAction *FirstAction `json:"expected_first_action,omitempty"`
	ExpectedResponse    string       `json:"expected_response,omitempty"`
	Correctness         float64      `json:"correctness,omitempty"`
	Efficiency          float64      `json:"efficiency,omitempty"`
	MinimalEdits        float64      `json:"minimal_edits,omitempty"`

	// Provenance.
	SessionID string `json:"session_id"`
	AgentName string `json:"agent_name"`
	Model     string `json:"model"`
}

// Inputs returns exactly the four input fields, keyed by field name.
// This is the only view of an example a candidate program receives.
func (e *Example) Inputs() map[string]string {
	return map[string]string{
		FieldTaskDescription:     e.TaskDescription,
		FieldEnvironmentContext:  e.EnvironmentContext,
		FieldConversationHistory: e.ConversationHistory,
		FieldAvailableTools:      e.AvailableTools,
	}
}
