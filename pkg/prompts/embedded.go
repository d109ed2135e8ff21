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

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
)

//go:embed templates
var embeddedTemplates embed.FS

// NewEmbeddedRegistry returns a registry preloaded with the built-in default
// templates: base prompts for common model families plus the plan and build
// agent layers.
func NewEmbeddedRegistry() (*FileRegistry, error) {
	sub, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded templates: %w", err)
	}

	registry := NewFSRegistry(sub)
	if err := registry.Reload(context.Background()); err != nil {
		return nil, err
	}
	return registry, nil
}

// OpenRegistry returns a directory-backed registry when templatesDir is set,
// and the embedded defaults otherwise.
func OpenRegistry(templatesDir string) (*FileRegistry, error) {
	if templatesDir == "" {
		return NewEmbeddedRegistry()
	}

	registry := NewFileRegistry(templatesDir)
	if err := registry.Reload(context.Background()); err != nil {
		return nil, err
	}
	return registry, nil
}
