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
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Handle binds a provider to one role in an optimization run, typically
// "teacher" or "student". It owns the sampling temperature for that role,
// counts provider invocations, and routes deterministic requests through
// the response cache. Handles are constructed by the orchestrator and
// passed explicitly to whatever needs model access; nothing reads them
// out of a context.
type Handle struct {
	id       string
	provider Provider
	cache    *ResponseCache
	logger   *zap.Logger

	mu          sync.Mutex
	temperature float64

	calls atomic.Int64
}

// HandleConfig configures a Handle.
type HandleConfig struct {
	// ID names the role this handle plays, e.g. "teacher" or "student".
	// It is part of the cache key.
	ID string

	// Provider executes the actual model calls.
	Provider Provider

	// Temperature is the initial sampling temperature.
	Temperature float64

	// Cache, when non-nil, memoizes temperature-zero completions. Handles
	// may share one cache; keys include the handle ID.
	Cache *ResponseCache

	// Logger for per-call debug records. Defaults to a no-op logger.
	Logger *zap.Logger
}

// NewHandle creates a model handle.
func NewHandle(config HandleConfig) (*Handle, error) {
	if config.ID == "" {
		return nil, fmt.Errorf("handle ID is required")
	}
	if config.Provider == nil {
		return nil, fmt.Errorf("handle %q: provider is required", config.ID)
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	return &Handle{
		id:          config.ID,
		provider:    config.Provider,
		cache:       config.Cache,
		logger:      config.Logger,
		temperature: config.Temperature,
	}, nil
}

// ID returns the handle's role name.
func (h *Handle) ID() string {
	return h.id
}

// Model returns the underlying provider's model identifier.
func (h *Handle) Model() string {
	return h.provider.Model()
}

// ProviderName returns the underlying provider's name.
func (h *Handle) ProviderName() string {
	return h.provider.Name()
}

// Temperature returns the current sampling temperature.
func (h *Handle) Temperature() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.temperature
}

// Calls returns how many times the provider has been invoked through this
// handle. Cache hits are not counted; the cache keeps its own counters.
func (h *Handle) Calls() int64 {
	return h.calls.Load()
}

// OverrideTemperature sets the sampling temperature and returns a closure
// that restores the previous value. Callers must defer the closure
// immediately so the override is undone on every exit path, including
// errors. Overrides nest: restoring in LIFO order recovers the original.
func (h *Handle) OverrideTemperature(t float64) func() {
	h.mu.Lock()
	previous := h.temperature
	h.temperature = t
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		h.temperature = previous
		h.mu.Unlock()
	}
}

// Complete sends messages to the model and returns its completion. This is
// the single entry point for model calls: it applies the handle's current
// temperature, consults the cache when sampling is deterministic
// (temperature zero), counts real provider invocations, and wraps
// failures in an InvocationError carrying the handle, model, and phase.
func (h *Handle) Complete(ctx context.Context, phase Phase, messages []Message) (*Response, error) {
	temperature := h.Temperature()

	var key string
	if h.cache != nil && temperature == 0 {
		key = cacheKey(h.id, h.provider.Model(), phase, temperature, messages)
		if resp, ok := h.cache.Get(key); ok {
			h.logger.Debug("completion served from cache",
				zap.String("handle", h.id),
				zap.String("model", h.provider.Model()),
				zap.String("phase", string(phase)),
			)
			return resp, nil
		}
	}

	start := time.Now()
	h.calls.Add(1)
	resp, err := h.provider.Chat(ctx, &ChatRequest{
		Messages:    messages,
		Temperature: temperature,
	})
	if err != nil {
		return nil, &InvocationError{
			HandleID: h.id,
			Model:    h.provider.Model(),
			Phase:    phase,
			Err:      err,
		}
	}

	if key != "" {
		h.cache.Put(key, resp)
	}

	h.logger.Debug("model call completed",
		zap.String("handle", h.id),
		zap.String("model", h.provider.Model()),
		zap.String("phase", string(phase)),
		zap.Float64("temperature", temperature),
		zap.Int("input_tokens", resp.Usage.InputTokens),
		zap.Int("output_tokens", resp.Usage.OutputTokens),
		zap.Float64("cost_usd", resp.Usage.CostUSD),
		zap.Duration("elapsed", time.Since(start)),
	)
	return resp, nil
}
