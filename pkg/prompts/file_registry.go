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
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// FileRegistry loads templates from YAML files under a filesystem tree.
//
// Directory structure:
//
//	templates/
//	  model/
//	    qwen.yaml          # Key: "model.qwen"
//	    qwen.concise.yaml  # Key: "model.qwen", variant: "concise"
//	    anthropic.yaml     # Key: "model.anthropic"
//	  agent/
//	    plan.yaml          # Key: "agent.plan"
//
// YAML format:
//
//	---
//	key: model.qwen
//	version: 1.0.0
//	description: Base prompt for Qwen coder models
//	tags: [model, base]
//	variables: [date]
//	---
//	You are a coding agent... Today is {{.date}}.
type FileRegistry struct {
	fsys    fs.FS
	rootDir string // set when backed by a real directory; enables Watch
	mu      sync.RWMutex
	prompts map[string]*filePrompt // key -> prompt
}

// filePrompt represents a loaded template with all its variants.
type filePrompt struct {
	metadata PromptMetadata
	variants map[string]string // variant name -> content
}

// promptFrontmatter is the YAML header of a template file.
type promptFrontmatter struct {
	Key         string    `yaml:"key"`
	Version     string    `yaml:"version"`
	Author      string    `yaml:"author"`
	Description string    `yaml:"description"`
	Tags        []string  `yaml:"tags"`
	Variables   []string  `yaml:"variables"`
	CreatedAt   time.Time `yaml:"created_at"`
	UpdatedAt   time.Time `yaml:"updated_at"`
}

// NewFileRegistry creates a registry backed by a directory on disk.
//
// Example:
//
//	registry := prompts.NewFileRegistry("./templates")
//	if err := registry.Reload(ctx); err != nil {
//	    log.Fatal(err)
//	}
func NewFileRegistry(rootDir string) *FileRegistry {
	return &FileRegistry{
		fsys:    os.DirFS(rootDir),
		rootDir: rootDir,
		prompts: make(map[string]*filePrompt),
	}
}

// NewFSRegistry creates a registry over an arbitrary filesystem, such as the
// embedded default templates. Watch is unavailable on these registries.
func NewFSRegistry(fsys fs.FS) *FileRegistry {
	return &FileRegistry{
		fsys:    fsys,
		prompts: make(map[string]*filePrompt),
	}
}

// Get retrieves the default variant of a template with variables interpolated.
func (r *FileRegistry) Get(ctx context.Context, key string, vars map[string]interface{}) (string, error) {
	return r.GetWithVariant(ctx, key, "default", vars)
}

// GetWithVariant retrieves a specific variant of a template.
func (r *FileRegistry) GetWithVariant(ctx context.Context, key string, variant string, vars map[string]interface{}) (string, error) {
	r.mu.RLock()
	prompt, ok := r.prompts[key]
	r.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("template not found: %s", key)
	}

	content, ok := prompt.variants[variant]
	if !ok {
		return "", fmt.Errorf("variant not found: %s (key: %s)", variant, key)
	}

	return Interpolate(content, vars), nil
}

// GetMetadata retrieves template metadata without the content.
func (r *FileRegistry) GetMetadata(ctx context.Context, key string) (*PromptMetadata, error) {
	r.mu.RLock()
	prompt, ok := r.prompts[key]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("template not found: %s", key)
	}

	// Return a copy
	metadata := prompt.metadata
	return &metadata, nil
}

// List returns metadata for every template carrying all given tags, sorted
// by key. An empty tag list matches everything.
func (r *FileRegistry) List(ctx context.Context, tags []string) ([]*PromptMetadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []*PromptMetadata
	for _, prompt := range r.prompts {
		if !hasAllTags(prompt.metadata.Tags, tags) {
			continue
		}
		metadata := prompt.metadata
		all = append(all, &metadata)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].Key < all[j].Key })
	return all, nil
}

// Reload re-reads all templates from the backing filesystem.
func (r *FileRegistry) Reload(ctx context.Context) error {
	newPrompts := make(map[string]*filePrompt)

	err := fs.WalkDir(r.fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		prompt, variant, err := r.loadFile(path)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}

		key := prompt.metadata.Key
		entry, ok := newPrompts[key]
		if !ok {
			entry = &filePrompt{
				metadata: prompt.metadata,
				variants: make(map[string]string),
			}
			newPrompts[key] = entry
		} else if variant == "default" {
			// The unsuffixed file owns the metadata.
			entry.metadata = prompt.metadata
		}

		entry.variants[variant] = prompt.variants[variant]
		return nil
	})

	if err != nil {
		return fmt.Errorf("failed to reload templates: %w", err)
	}

	// Record which variants actually loaded, default first.
	for _, entry := range newPrompts {
		entry.metadata.Variants = variantNames(entry.variants)
	}

	// Atomically replace the template map
	r.mu.Lock()
	r.prompts = newPrompts
	r.mu.Unlock()

	return nil
}

// Watch returns a channel that receives updates when template files change.
// Only directory-backed registries support watching.
func (r *FileRegistry) Watch(ctx context.Context) (<-chan PromptUpdate, error) {
	if r.rootDir == "" {
		return nil, fmt.Errorf("watch requires a directory-backed registry")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	if err := r.watchDirectory(watcher, r.rootDir); err != nil {
		watcher.Close()
		return nil, err
	}

	ch := make(chan PromptUpdate, 10)

	go func() {
		defer watcher.Close()
		defer close(ch)

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}

				if !strings.HasSuffix(event.Name, ".yaml") && !strings.HasSuffix(event.Name, ".yml") {
					continue
				}

				if event.Op&fsnotify.Write == fsnotify.Write {
					r.handleFileChange(ch, event.Name, "modified")
				} else if event.Op&fsnotify.Create == fsnotify.Create {
					r.handleFileChange(ch, event.Name, "created")
				} else if event.Op&fsnotify.Remove == fsnotify.Remove {
					r.handleFileChange(ch, event.Name, "deleted")
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				ch <- PromptUpdate{
					Action: "error",
					Error:  err,
				}
			}
		}
	}()

	return ch, nil
}

// watchDirectory recursively adds directories to the watcher.
func (r *FileRegistry) watchDirectory(watcher *fsnotify.Watcher, dir string) error {
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() && path != dir {
			if err := watcher.Add(path); err != nil {
				return fmt.Errorf("failed to watch directory %s: %w", path, err)
			}
		}
		return nil
	})
}

// handleFileChange reloads the registry and sends an update for the event.
func (r *FileRegistry) handleFileChange(ch chan<- PromptUpdate, path string, action string) {
	// A deleted file's key is only resolvable against the pre-reload state.
	key := r.extractKeyFromPath(path)

	if err := r.Reload(context.Background()); err != nil {
		ch <- PromptUpdate{
			Key:    key,
			Action: "error",
			Error:  fmt.Errorf("failed to reload templates: %w", err),
		}
		return
	}

	if action != "deleted" {
		key = r.extractKeyFromPath(path)
	}

	ch <- PromptUpdate{
		Key:       key,
		Action:    action,
		Timestamp: time.Now(),
	}
}

// extractKeyFromPath converts a file path to a template key by checking the
// loaded keys. A trailing segment that is not part of a loaded key is a
// variant suffix: "model/qwen.concise.yaml" belongs to "model.qwen".
func (r *FileRegistry) extractKeyFromPath(path string) string {
	relPath, err := filepath.Rel(r.rootDir, path)
	if err != nil {
		relPath = filepath.Base(path)
	}

	relPath = strings.TrimSuffix(relPath, ".yaml")
	relPath = strings.TrimSuffix(relPath, ".yml")
	key := strings.ReplaceAll(relPath, string(filepath.Separator), ".")

	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.prompts[key]; ok {
		return key
	}
	if i := strings.LastIndex(key, "."); i > 0 {
		if _, ok := r.prompts[key[:i]]; ok {
			return key[:i]
		}
	}
	return key
}

// loadFile loads a single YAML file and extracts the variant name.
//
// Variant detection:
//   - "qwen.yaml" -> default variant
//   - "qwen.concise.yaml" -> "concise" variant
func (r *FileRegistry) loadFile(path string) (*filePrompt, string, error) {
	data, err := fs.ReadFile(r.fsys, path)
	if err != nil {
		return nil, "", err
	}

	// Split frontmatter from content on the --- separators
	parts := strings.SplitN(string(data), "---", 3)
	if len(parts) < 3 {
		return nil, "", fmt.Errorf("invalid format: expected YAML frontmatter with --- separator")
	}

	var fm promptFrontmatter
	if err := yaml.Unmarshal([]byte(parts[1]), &fm); err != nil {
		return nil, "", fmt.Errorf("failed to parse metadata: %w", err)
	}
	if fm.Key == "" {
		return nil, "", fmt.Errorf("missing key in frontmatter")
	}

	content := strings.TrimSpace(parts[2])
	variant := extractVariant(path)

	prompt := &filePrompt{
		metadata: PromptMetadata{
			Key:         fm.Key,
			Version:     fm.Version,
			Author:      fm.Author,
			Description: fm.Description,
			Tags:        fm.Tags,
			Variables:   fm.Variables,
			CreatedAt:   fm.CreatedAt,
			UpdatedAt:   fm.UpdatedAt,
		},
		variants: map[string]string{
			variant: content,
		},
	}

	return prompt, variant, nil
}

// extractVariant extracts the variant name from a filename.
//
// Examples:
//   - "qwen.yaml" -> "default"
//   - "qwen.concise.yaml" -> "concise"
func extractVariant(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	nameWithoutExt := strings.TrimSuffix(base, ext)

	parts := strings.Split(nameWithoutExt, ".")
	if len(parts) == 1 {
		return "default"
	}
	return parts[len(parts)-1]
}

// variantNames lists loaded variant names with "default" first.
func variantNames(variants map[string]string) []string {
	names := make([]string, 0, len(variants))
	for name := range variants {
		if name == "default" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	if _, ok := variants["default"]; ok {
		names = append([]string{"default"}, names...)
	}
	return names
}

// hasAllTags reports whether tags contains every entry of want.
func hasAllTags(tags []string, want []string) bool {
	for _, w := range want {
		found := false
		for _, t := range tags {
			if t == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Compile-time interface check
var _ PromptRegistry = (*FileRegistry)(nil)
