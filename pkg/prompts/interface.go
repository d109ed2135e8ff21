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

package prompts

import "context"

// PromptRegistry resolves template keys to rendered content.
//
// Keys are dotted paths mirroring the template tree, e.g. "model.qwen",
// "agent.plan", "header.anthropic". Every key has a default variant and may
// carry alternates (a "concise" variant loads from model/qwen.concise.yaml
// next to model/qwen.yaml).
type PromptRegistry interface {
	// Get returns the default variant with variables interpolated.
	Get(ctx context.Context, key string, vars map[string]interface{}) (string, error)

	// GetWithVariant returns a specific variant of the template.
	GetWithVariant(ctx context.Context, key, variant string, vars map[string]interface{}) (string, error)

	// GetMetadata returns the template's metadata without rendering it.
	GetMetadata(ctx context.Context, key string) (*PromptMetadata, error)

	// List returns metadata for every template carrying all given tags.
	// An empty tag list matches everything.
	List(ctx context.Context, tags []string) ([]*PromptMetadata, error)

	// Reload re-reads all templates from the backing store.
	Reload(ctx context.Context) error

	// Watch streams template changes until ctx is cancelled. Registries
	// without a change source return an error.
	Watch(ctx context.Context) (<-chan PromptUpdate, error)
}
