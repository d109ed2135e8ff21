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

// Package prompts manages the base prompt templates that optimization starts
// from: per-model base prompts, per-agent overrides, and provider headers.
// Templates live in YAML files with frontmatter metadata and support named
// variants plus {{.variable}} interpolation; a built-in set ships embedded
// for when no template directory is configured.
//
// The SystemBuilder reassembles the layered system prompt a coding agent ran
// with (header, agent layer, environment block, git status, custom
// instructions) so evaluation sees prompts shaped like the original
// sessions.
package prompts

import "time"

// PromptMetadata describes a template without its content.
type PromptMetadata struct {
	// Key is the template identifier, e.g. "model.qwen" or "agent.plan".
	Key string

	// Version using semantic versioning.
	Version string

	Author      string
	Description string

	// Tags for filtering in List.
	Tags []string

	// Variants actually loaded for this key, "default" first when present.
	Variants []string

	// Variables the content interpolates.
	Variables []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PromptUpdate is a change notification delivered through Watch.
type PromptUpdate struct {
	Key       string
	Action    string // "created", "modified", "deleted", "error"
	Timestamp time.Time
	Error     error // set when Action is "error"
}
