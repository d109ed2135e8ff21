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

package experiment

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu        sync.Mutex
	inserted  []*Record
	insertErr error
}

func (f *fakeStore) Insert(_ context.Context, rec *Record) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, rec)
	return nil
}

func (f *fakeStore) List(context.Context, int, int) ([]*Record, error) { return nil, nil }
func (f *fakeStore) Best(context.Context) (*Record, error)             { return nil, nil }
func (f *fakeStore) Close() error                                      { return nil }

func TestTrackerLog(t *testing.T) {
	tracker := NewTracker(nil, nil)

	rec := &Record{
		Name:           "bootstrap-sonnet",
		Strategy:       "bootstrap",
		Model:          "test-model",
		BaselineScore:  0.61,
		OptimizedScore: 0.74,
		Improvement:    0.13,
	}
	require.NoError(t, tracker.Log(context.Background(), rec))

	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())

	records := tracker.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "bootstrap-sonnet", records[0].Name)
}

func TestTrackerLog_Validation(t *testing.T) {
	tracker := NewTracker(nil, nil)
	ctx := context.Background()

	err := tracker.Log(ctx, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be nil")

	err = tracker.Log(ctx, &Record{Strategy: "bootstrap"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name cannot be empty")

	assert.Empty(t, tracker.Records())
}

func TestTrackerLog_PersistsThroughStore(t *testing.T) {
	store := &fakeStore{}
	tracker := NewTracker(store, nil)

	rec := &Record{Name: "bootstrap-sonnet", Strategy: "bootstrap"}
	require.NoError(t, tracker.Log(context.Background(), rec))

	require.Len(t, store.inserted, 1)
	assert.Equal(t, rec.ID, store.inserted[0].ID)
}

func TestTrackerLog_StoreFailureKeepsRecord(t *testing.T) {
	store := &fakeStore{insertErr: assert.AnError}
	tracker := NewTracker(store, nil)

	err := tracker.Log(context.Background(), &Record{Name: "bootstrap-sonnet"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persisting experiment record")

	// The record survives in memory so SaveResults still works.
	require.Len(t, tracker.Records(), 1)
}

func TestTrackerBest(t *testing.T) {
	tracker := NewTracker(nil, nil)
	assert.Nil(t, tracker.Best())

	ctx := context.Background()
	runs := []struct {
		name        string
		improvement float64
	}{
		{"first", 0.05},
		{"second", 0.12},
		{"third", -0.02},
	}
	for _, run := range runs {
		require.NoError(t, tracker.Log(ctx, &Record{Name: run.name, Improvement: run.improvement}))
	}

	best := tracker.Best()
	require.NotNil(t, best)
	assert.Equal(t, "second", best.Name)
}

func TestTrackerBest_TieKeepsEarliest(t *testing.T) {
	tracker := NewTracker(nil, nil)
	ctx := context.Background()

	require.NoError(t, tracker.Log(ctx, &Record{Name: "first", Improvement: 0.1}))
	require.NoError(t, tracker.Log(ctx, &Record{Name: "second", Improvement: 0.1}))

	best := tracker.Best()
	require.NotNil(t, best)
	assert.Equal(t, "first", best.Name)
}

func TestTrackerSaveResults(t *testing.T) {
	tracker := NewTracker(nil, nil)
	ctx := context.Background()

	require.NoError(t, tracker.Log(ctx, &Record{
		Name:           "mipro-haiku",
		Strategy:       "mipro",
		Model:          "test-model",
		Metric:         "composite",
		BaselineScore:  0.58,
		OptimizedScore: 0.71,
		Improvement:    0.13,
		Config:         map[string]string{"num_candidates": "10"},
	}))

	path := filepath.Join(t.TempDir(), "results", "experiment_results.json")
	require.NoError(t, tracker.SaveResults(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "[\n  {"), "results should be an indented list")

	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "mipro-haiku", decoded[0]["name"])
	assert.Equal(t, "mipro", decoded[0]["optimizer"])
	assert.NotContains(t, decoded[0], "strategy")
	assert.InDelta(t, 0.13, decoded[0]["improvement"], 1e-9)
}

func TestTrackerSaveResults_EmptyWritesEmptyList(t *testing.T) {
	tracker := NewTracker(nil, nil)

	path := filepath.Join(t.TempDir(), "experiment_results.json")
	require.NoError(t, tracker.SaveResults(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestTrackerSaveResults_EmptyPath(t *testing.T) {
	tracker := NewTracker(nil, nil)
	require.Error(t, tracker.SaveResults(""))
}
