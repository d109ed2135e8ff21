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
package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapTracer(t *testing.T) {
	t.Run("EndSpan logs at debug with duration", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		tracer := NewZapTracer(zap.New(core))

		ctx := context.Background()
		_, span := tracer.StartSpan(ctx, "llm.completion", WithAttribute("llm.model", "gpt-4o"))
		tracer.EndSpan(span)

		entries := logs.FilterMessage("span llm.completion").All()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.DebugLevel, entries[0].Level)

		fields := entries[0].ContextMap()
		assert.Equal(t, "gpt-4o", fields["llm.model"])
		assert.NotEmpty(t, fields["trace_id"])
	})

	t.Run("error spans log at warn", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		tracer := NewZapTracer(zap.New(core))

		_, span := tracer.StartSpan(context.Background(), "teleprompter.compile")
		span.RecordError(errors.New("no traces collected"))
		tracer.EndSpan(span)

		entries := logs.FilterMessage("span teleprompter.compile").All()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
		assert.Equal(t, "no traces collected", entries[0].ContextMap()["status"])
	})

	t.Run("child spans inherit trace ID", func(t *testing.T) {
		tracer := NewZapTracer(zap.NewNop())

		ctx, parent := tracer.StartSpan(context.Background(), "parent")
		_, child := tracer.StartSpan(ctx, "child")

		assert.Equal(t, parent.TraceID, child.TraceID)
		assert.Equal(t, parent.SpanID, child.ParentID)
	})

	t.Run("nil logger falls back to nop", func(t *testing.T) {
		tracer := NewZapTracer(nil)
		_, span := tracer.StartSpan(context.Background(), "quiet")
		tracer.EndSpan(span)
		tracer.RecordMetric("llm.calls.total", 1, nil)
		assert.NoError(t, tracer.Flush(context.Background()))
	})
}
