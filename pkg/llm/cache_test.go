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
package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseCachePutGet(t *testing.T) {
	cache := NewResponseCache()

	_, found := cache.Get("missing")
	assert.False(t, found)

	cache.Put("k1", &Response{Content: "hello", StopReason: "end_turn"})

	got, found := cache.Get("k1")
	require.True(t, found)
	assert.Equal(t, "hello", got.Content)
	assert.Equal(t, 1, cache.Len())

	hits, misses := cache.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
}

func TestResponseCacheReturnsCopies(t *testing.T) {
	cache := NewResponseCache()

	original := &Response{Content: "hello"}
	cache.Put("k1", original)

	// Mutating the value we put in must not reach the cache.
	original.Content = "mutated after put"

	got, found := cache.Get("k1")
	require.True(t, found)
	assert.Equal(t, "hello", got.Content)

	// Mutating the value we got back must not reach the cache either.
	got.Content = "mutated after get"

	again, found := cache.Get("k1")
	require.True(t, found)
	assert.Equal(t, "hello", again.Content)
}

func TestResponseCacheInvalidate(t *testing.T) {
	cache := NewResponseCache()
	cache.Put("k1", &Response{Content: "a"})
	cache.Put("k2", &Response{Content: "b"})
	require.Equal(t, 2, cache.Len())

	cache.Invalidate()
	assert.Equal(t, 0, cache.Len())

	_, found := cache.Get("k1")
	assert.False(t, found)
}

func TestCacheKeyDiscriminates(t *testing.T) {
	messages := []Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hello"},
	}
	base := cacheKey("student", "gpt-4.1", PhaseEvaluate, 0.0, messages)

	// Identical inputs always derive the identical key.
	assert.Equal(t, base, cacheKey("student", "gpt-4.1", PhaseEvaluate, 0.0, messages))

	tests := []struct {
		name string
		key  string
	}{
		{
			name: "different handle",
			key:  cacheKey("teacher", "gpt-4.1", PhaseEvaluate, 0.0, messages),
		},
		{
			name: "different model",
			key:  cacheKey("student", "gpt-4.1-mini", PhaseEvaluate, 0.0, messages),
		},
		{
			name: "different phase",
			key:  cacheKey("student", "gpt-4.1", PhaseOptimize, 0.0, messages),
		},
		{
			name: "different temperature",
			key:  cacheKey("student", "gpt-4.1", PhaseEvaluate, 0.7, messages),
		},
		{
			name: "different message content",
			key: cacheKey("student", "gpt-4.1", PhaseEvaluate, 0.0, []Message{
				{Role: "system", Content: "be brief"},
				{Role: "user", Content: "goodbye"},
			}),
		},
		{
			name: "different role on same content",
			key: cacheKey("student", "gpt-4.1", PhaseEvaluate, 0.0, []Message{
				{Role: "user", Content: "be brief"},
				{Role: "user", Content: "hello"},
			}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, base, tt.key)
		})
	}
}
