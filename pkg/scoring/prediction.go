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

// Package scoring turns predicted agent behavior into scores against the
// labels mined from session transcripts. Five component scorers measure a
// prediction from different angles; the Metric implementations combine
// them into the objectives the optimizer and evaluator consume.
package scoring

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Prediction holds the fields a candidate agent produced for one example.
// An empty string means the agent did not emit that field; scorers treat
// absence as the documented neutral or zero value and never fail on it.
type Prediction struct {
	// Reasoning is the chain-of-thought text preceding the action choice.
	Reasoning string `json:"reasoning,omitempty"`

	// ToolPlan is free text describing the intended tool sequence.
	ToolPlan string `json:"tool_plan,omitempty"`

	// FirstAction is the first proposed tool call, nominally a JSON
	// object but accepted in the wrapped forms ParseAction understands.
	FirstAction string `json:"first_action,omitempty"`

	// Response is the final user-facing answer.
	Response string `json:"response,omitempty"`
}

// Action is a decoded tool invocation.
type Action struct {
	Tool string                 `json:"tool"`
	Args map[string]interface{} `json:"args"`
}

// ParseAction decodes a predicted action. Model output arrives in three
// shapes: bare JSON, a fenced ```json block, or JSON wrapped in
// <action>...</action> tags. The formats are tried in that order and the
// first one that yields a decodable object wins.
func ParseAction(raw string) (*Action, error) {
	var action Action
	if err := json.Unmarshal([]byte(raw), &action); err == nil {
		return &action, nil
	}

	if idx := strings.Index(raw, "```json"); idx >= 0 {
		body := raw[idx+len("```json"):]
		if end := strings.Index(body, "```"); end > 0 {
			if err := json.Unmarshal([]byte(strings.TrimSpace(body[:end])), &action); err == nil {
				return &action, nil
			}
		}
	}

	if start := strings.Index(raw, "<action>"); start >= 0 {
		if end := strings.Index(raw, "</action>"); end > start {
			inner := strings.TrimSpace(raw[start+len("<action>") : end])
			if err := json.Unmarshal([]byte(inner), &action); err == nil {
				return &action, nil
			}
		}
	}

	return nil, fmt.Errorf("no decodable action in %q", snippet(raw, 80))
}

func snippet(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
