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
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockProvider records every request it receives.
type mockProvider struct {
	chatFunc func(ctx context.Context, req *ChatRequest) (*Response, error)
	model    string

	mu       sync.Mutex
	requests []*ChatRequest
}

func (m *mockProvider) Chat(ctx context.Context, req *ChatRequest) (*Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.chatFunc != nil {
		return m.chatFunc(ctx, req)
	}
	return &Response{
		Content:    "ok",
		StopReason: "end_turn",
		Usage:      Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15},
	}, nil
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Model() string {
	if m.model == "" {
		return "mock-model"
	}
	return m.model
}

func (m *mockProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *mockProvider) lastRequest() *ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}

func newTestHandle(t *testing.T, id string, provider Provider, temperature float64, cache *ResponseCache) *Handle {
	t.Helper()
	handle, err := NewHandle(HandleConfig{
		ID:          id,
		Provider:    provider,
		Temperature: temperature,
		Cache:       cache,
	})
	require.NoError(t, err)
	return handle
}

func TestNewHandleValidation(t *testing.T) {
	tests := []struct {
		name    string
		config  HandleConfig
		wantErr string
	}{
		{
			name:    "missing ID",
			config:  HandleConfig{Provider: &mockProvider{}},
			wantErr: "handle ID is required",
		},
		{
			name:    "missing provider",
			config:  HandleConfig{ID: "teacher"},
			wantErr: "provider is required",
		},
		{
			name:   "valid",
			config: HandleConfig{ID: "teacher", Provider: &mockProvider{}, Temperature: 0.7},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handle, err := NewHandle(tt.config)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "teacher", handle.ID())
			assert.Equal(t, "mock-model", handle.Model())
			assert.Equal(t, "mock", handle.ProviderName())
			assert.Equal(t, 0.7, handle.Temperature())
			assert.Equal(t, int64(0), handle.Calls())
		})
	}
}

func TestHandleCompleteCountsProviderCalls(t *testing.T) {
	provider := &mockProvider{}
	handle := newTestHandle(t, "student", provider, 0.7, nil)

	messages := []Message{{Role: "user", Content: "hello"}}
	for i := 0; i < 3; i++ {
		_, err := handle.Complete(context.Background(), PhaseEvaluate, messages)
		require.NoError(t, err)
	}

	assert.Equal(t, int64(3), handle.Calls())
	assert.Equal(t, 3, provider.callCount())
}

func TestHandleCompleteAppliesCurrentTemperature(t *testing.T) {
	provider := &mockProvider{}
	handle := newTestHandle(t, "student", provider, 0.7, nil)

	_, err := handle.Complete(context.Background(), PhaseEvaluate, []Message{{Role: "user", Content: "a"}})
	require.NoError(t, err)
	assert.Equal(t, 0.7, provider.lastRequest().Temperature)

	restore := handle.OverrideTemperature(0.0)
	defer restore()

	// Zero must reach the wire; it selects deterministic sampling.
	_, err = handle.Complete(context.Background(), PhaseEvaluate, []Message{{Role: "user", Content: "b"}})
	require.NoError(t, err)
	assert.Equal(t, 0.0, provider.lastRequest().Temperature)
}

func TestOverrideTemperatureRestores(t *testing.T) {
	handle := newTestHandle(t, "teacher", &mockProvider{}, 0.7, nil)

	restore := handle.OverrideTemperature(1.2)
	assert.Equal(t, 1.2, handle.Temperature())

	restore()
	assert.Equal(t, 0.7, handle.Temperature())
}

func TestOverrideTemperatureRestoresOnErrorPath(t *testing.T) {
	provider := &mockProvider{
		chatFunc: func(ctx context.Context, req *ChatRequest) (*Response, error) {
			return nil, errors.New("boom")
		},
	}
	handle := newTestHandle(t, "teacher", provider, 0.7, nil)

	run := func() error {
		restore := handle.OverrideTemperature(1.0)
		defer restore()

		_, err := handle.Complete(context.Background(), PhaseOptimize, []Message{{Role: "user", Content: "x"}})
		if err != nil {
			return fmt.Errorf("compile step: %w", err)
		}
		return nil
	}

	require.Error(t, run())
	assert.Equal(t, 0.7, handle.Temperature())
}

func TestOverrideTemperatureNests(t *testing.T) {
	handle := newTestHandle(t, "teacher", &mockProvider{}, 0.7, nil)

	restoreOuter := handle.OverrideTemperature(0.9)
	restoreInner := handle.OverrideTemperature(0.2)
	assert.Equal(t, 0.2, handle.Temperature())

	restoreInner()
	assert.Equal(t, 0.9, handle.Temperature())

	restoreOuter()
	assert.Equal(t, 0.7, handle.Temperature())
}

func TestHandleCachesDeterministicCompletions(t *testing.T) {
	provider := &mockProvider{}
	cache := NewResponseCache()
	handle := newTestHandle(t, "student", provider, 0.0, cache)

	messages := []Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hello"},
	}

	first, err := handle.Complete(context.Background(), PhaseEvaluate, messages)
	require.NoError(t, err)

	second, err := handle.Complete(context.Background(), PhaseEvaluate, messages)
	require.NoError(t, err)

	assert.Equal(t, first.Content, second.Content)
	assert.Equal(t, 1, provider.callCount(), "second call should be a cache hit")
	assert.Equal(t, int64(1), handle.Calls(), "cache hits are not provider invocations")

	hits, misses := cache.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
}

func TestHandleCacheSkipsNonZeroTemperature(t *testing.T) {
	provider := &mockProvider{}
	cache := NewResponseCache()
	handle := newTestHandle(t, "student", provider, 0.5, cache)

	messages := []Message{{Role: "user", Content: "hello"}}
	for i := 0; i < 2; i++ {
		_, err := handle.Complete(context.Background(), PhaseEvaluate, messages)
		require.NoError(t, err)
	}

	// Sampling is stochastic at temperature 0.5; both calls reach the provider.
	assert.Equal(t, 2, provider.callCount())
	assert.Equal(t, 0, cache.Len())
}

func TestHandleCacheKeyedByPhase(t *testing.T) {
	provider := &mockProvider{}
	cache := NewResponseCache()
	handle := newTestHandle(t, "student", provider, 0.0, cache)

	messages := []Message{{Role: "user", Content: "same prompt"}}

	_, err := handle.Complete(context.Background(), PhaseOptimize, messages)
	require.NoError(t, err)

	// Same prompt from a different phase must miss.
	_, err = handle.Complete(context.Background(), PhaseEvaluate, messages)
	require.NoError(t, err)
	assert.Equal(t, 2, provider.callCount())

	// Repeating the original phase hits.
	_, err = handle.Complete(context.Background(), PhaseOptimize, messages)
	require.NoError(t, err)
	assert.Equal(t, 2, provider.callCount())
}

func TestHandleCacheKeyedByHandle(t *testing.T) {
	provider := &mockProvider{}
	cache := NewResponseCache()
	teacher := newTestHandle(t, "teacher", provider, 0.0, cache)
	student := newTestHandle(t, "student", provider, 0.0, cache)

	messages := []Message{{Role: "user", Content: "same prompt"}}

	_, err := teacher.Complete(context.Background(), PhaseOptimize, messages)
	require.NoError(t, err)

	// Same prompt, same phase, different handle: separate entry.
	_, err = student.Complete(context.Background(), PhaseOptimize, messages)
	require.NoError(t, err)

	assert.Equal(t, 2, provider.callCount())
	assert.Equal(t, 2, cache.Len())
}

func TestHandleInvocationErrorContext(t *testing.T) {
	cause := errors.New("API error (status 500): upstream unavailable")
	provider := &mockProvider{
		model: "gpt-4.1",
		chatFunc: func(ctx context.Context, req *ChatRequest) (*Response, error) {
			return nil, cause
		},
	}
	handle := newTestHandle(t, "student", provider, 0.7, nil)

	_, err := handle.Complete(context.Background(), PhaseBaseline, []Message{{Role: "user", Content: "x"}})
	require.Error(t, err)

	var invErr *InvocationError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, "student", invErr.HandleID)
	assert.Equal(t, "gpt-4.1", invErr.Model)
	assert.Equal(t, PhaseBaseline, invErr.Phase)
	assert.ErrorIs(t, err, cause)

	assert.Contains(t, err.Error(), "handle=student")
	assert.Contains(t, err.Error(), "model=gpt-4.1")
	assert.Contains(t, err.Error(), "phase=baseline")
}

func TestHandleIsolation(t *testing.T) {
	provider := &mockProvider{}
	teacher := newTestHandle(t, "teacher", provider, 0.7, nil)
	student := newTestHandle(t, "student", provider, 0.2, nil)

	restore := teacher.OverrideTemperature(1.0)
	defer restore()

	for i := 0; i < 4; i++ {
		_, err := teacher.Complete(context.Background(), PhaseOptimize, []Message{{Role: "user", Content: "t"}})
		require.NoError(t, err)
	}

	// Teacher activity leaves the student untouched.
	assert.Equal(t, 0.2, student.Temperature())
	assert.Equal(t, int64(0), student.Calls())
	assert.Equal(t, int64(4), teacher.Calls())
}

func TestPhaseSub(t *testing.T) {
	assert.Equal(t, Phase("optimize/round-1"), PhaseOptimize.Sub("round-1"))
	assert.Equal(t, Phase("evaluate/candidate-3"), PhaseEvaluate.Sub("candidate-3"))
}
