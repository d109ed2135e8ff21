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

// Package agent defines the prompt programs the optimizer compiles: typed
// input/output signatures, predictors that render field-labeled prompts and
// parse completions back into fields, and the two-stage Coder program whose
// instructions and demonstrations form the learned layer.
package agent

import "strings"

// Output field names. Predictors return outputs keyed by these names; the
// planner produces the first three, the responder produces the last.
const (
	FieldReasoning   = "reasoning"
	FieldToolPlan    = "tool_plan"
	FieldFirstAction = "first_action"
	FieldResponse    = "response"

	// FieldToolResults is the responder's second input: the collected
	// results of the executed tool calls.
	FieldToolResults = "tool_results"
)

// Field is one named slot in a signature. The description doubles as the
// field's one-line guide in the rendered prompt.
type Field struct {
	Name        string
	Description string
}

// Signature declares what a predictor consumes and produces. Instructions
// are the base task framing; an optimizer may override them through the
// predictor without touching the signature. Signatures must declare at
// least one output field.
type Signature struct {
	Name         string
	Instructions string
	Inputs       []Field
	Outputs      []Field
}

// TaskSignature is the planner's contract: given the task and its context,
// produce reasoning, a tool plan, and the first tool call.
func TaskSignature() Signature {
	return Signature{
		Name:         "code_agent_task",
		Instructions: "OpenCode agent that performs coding tasks via tool use.",
		Inputs: []Field{
			{Name: "task_description", Description: "The user's coding request or task to accomplish"},
			{Name: "environment_context", Description: "Working directory, file tree, git status, and other environment info"},
			{Name: "conversation_history", Description: "Prior messages in the conversation session"},
			{Name: "available_tools", Description: "List of tools the agent can use (read, write, edit, bash, etc.)"},
		},
		Outputs: []Field{
			{Name: FieldReasoning, Description: "Step-by-step reasoning about how to approach the task. Think through what you need to know, what files to examine, and what changes to make."},
			{Name: FieldToolPlan, Description: "Planned sequence of tool calls to accomplish the task. List the tools you'll use and why."},
			{Name: FieldFirstAction, Description: "The first tool call to make, formatted as JSON with 'tool' and 'args' keys"},
		},
	}
}

// ResponseSignature is the responder's contract: summarize executed tool
// results into the final user-facing answer.
func ResponseSignature() Signature {
	return Signature{
		Name:         "code_agent_response",
		Instructions: "Generate final response after tool execution.",
		Inputs: []Field{
			{Name: "task_description", Description: "The original user request"},
			{Name: FieldToolResults, Description: "Results from executed tool calls"},
		},
		Outputs: []Field{
			{Name: FieldResponse, Description: "Final response to the user explaining what was done"},
		},
	}
}

// FieldLabel converts a snake_case field name into the label used in
// rendered prompts, e.g. "task_description" becomes "Task Description".
func FieldLabel(name string) string {
	parts := strings.Split(name, "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}
