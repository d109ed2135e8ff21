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
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "experiments.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNewSQLiteStore_EmptyPath(t *testing.T) {
	store, err := NewSQLiteStore("")
	require.Error(t, err)
	assert.Nil(t, store)
}

func TestSQLiteStoreInsertAndList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	runs := []*Record{
		{ID: "run-1", Name: "bootstrap-a", Strategy: "bootstrap", Model: "m", Improvement: 0.05, CreatedAt: base},
		{ID: "run-2", Name: "mipro-a", Strategy: "mipro", Model: "m", Metric: "composite", Improvement: 0.12,
			Config: map[string]string{"num_candidates": "10"}, CreatedAt: base.Add(time.Minute)},
		{ID: "run-3", Name: "copro-a", Strategy: "copro", Model: "m", Improvement: 0.02, CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, rec := range runs {
		require.NoError(t, store.Insert(ctx, rec))
	}

	all, err := store.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "run-3", all[0].ID, "newest first")
	assert.Equal(t, "run-2", all[1].ID)
	assert.Equal(t, "run-1", all[2].ID)

	assert.Equal(t, "composite", all[1].Metric)
	assert.Equal(t, map[string]string{"num_candidates": "10"}, all[1].Config)
	assert.True(t, all[1].CreatedAt.Equal(base.Add(time.Minute)))
	assert.Nil(t, all[2].Config)

	page, err := store.List(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "run-2", page[0].ID)
}

func TestSQLiteStoreInsert_Validation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.Error(t, store.Insert(ctx, nil))
	require.Error(t, store.Insert(ctx, &Record{Name: "missing-id"}))

	rec := &Record{ID: "run-1", Name: "bootstrap-a", Strategy: "bootstrap", Model: "m"}
	require.NoError(t, store.Insert(ctx, rec))
	require.Error(t, store.Insert(ctx, rec), "duplicate ID should fail")
}

func TestSQLiteStoreBest(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	best, err := store.Best(ctx)
	require.NoError(t, err)
	assert.Nil(t, best, "empty store has no best run")

	base := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.Insert(ctx, &Record{
		ID: "run-1", Name: "bootstrap-a", Strategy: "bootstrap", Model: "m", Improvement: 0.05, CreatedAt: base,
	}))
	require.NoError(t, store.Insert(ctx, &Record{
		ID: "run-2", Name: "mipro-a", Strategy: "mipro", Model: "m", Improvement: 0.12, CreatedAt: base.Add(time.Minute),
	}))

	best, err = store.Best(ctx)
	require.NoError(t, err)
	require.NotNil(t, best)
	assert.Equal(t, "run-2", best.ID)
	assert.InDelta(t, 0.12, best.Improvement, 1e-9)
}

func TestSQLiteStoreBest_TieGoesToEarliest(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.Insert(ctx, &Record{
		ID: "run-1", Name: "first", Strategy: "bootstrap", Model: "m", Improvement: 0.1, CreatedAt: base,
	}))
	require.NoError(t, store.Insert(ctx, &Record{
		ID: "run-2", Name: "second", Strategy: "bootstrap", Model: "m", Improvement: 0.1, CreatedAt: base.Add(time.Minute),
	}))

	best, err := store.Best(ctx)
	require.NoError(t, err)
	require.NotNil(t, best)
	assert.Equal(t, "run-1", best.ID)
}

func TestSQLiteStore_Persistence(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "experiments.db")
	ctx := context.Background()

	store1, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, store1.Insert(ctx, &Record{ID: "run-1", Name: "bootstrap-a", Strategy: "bootstrap", Model: "m"}))
	require.NoError(t, store1.Close())

	store2, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store2.Close()

	all, err := store2.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "run-1", all[0].ID)
	assert.False(t, all[0].CreatedAt.IsZero(), "insert fills a missing timestamp")
}

func TestTrackerWithSQLiteStore(t *testing.T) {
	store := newTestStore(t)
	tracker := NewTracker(store, nil)
	ctx := context.Background()

	require.NoError(t, tracker.Log(ctx, &Record{
		Name:           "bootstrap-sonnet",
		Strategy:       "bootstrap",
		Model:          "test-model",
		BaselineScore:  0.61,
		OptimizedScore: 0.74,
		Improvement:    0.13,
	}))

	all, err := store.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "bootstrap-sonnet", all[0].Name)

	best, err := store.Best(ctx)
	require.NoError(t, err)
	require.NotNil(t, best)
	assert.Equal(t, tracker.Best().ID, best.ID)
}
