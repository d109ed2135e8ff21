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

// Package experiment tracks optimization runs. A Tracker collects one Record
// per run, mirrors each record into an optional persistent Store, and writes
// the accumulated results to a JSON file so runs can be compared after the
// process exits.
package experiment

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Record captures the outcome of one optimization run.
type Record struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// Strategy identifies the teleprompter that produced the run. It
	// serializes as "optimizer" in results files.
	Strategy string `json:"optimizer"`

	// Model is the student model the scores were measured on.
	Model  string `json:"model"`
	Metric string `json:"metric,omitempty"`

	BaselineScore  float64 `json:"baseline_score"`
	OptimizedScore float64 `json:"optimized_score"`
	Improvement    float64 `json:"improvement"`

	// Config holds the flattened optimization parameters the run used.
	Config map[string]string `json:"config,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Store persists records across runs. Implementations must be safe for
// concurrent use.
type Store interface {
	Insert(ctx context.Context, rec *Record) error
	List(ctx context.Context, limit, offset int) ([]*Record, error)
	Best(ctx context.Context) (*Record, error)
	Close() error
}

// Tracker accumulates experiment records for the current process. Safe for
// concurrent use.
type Tracker struct {
	mu      sync.Mutex
	records []*Record

	store  Store
	logger *zap.Logger
}

// NewTracker creates a tracker. Both the store and the logger may be nil.
func NewTracker(store Store, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		store:  store,
		logger: logger,
	}
}

// Log records one run. A missing ID and CreatedAt are filled in. The record
// is kept in memory even when the store insert fails, so a results file can
// still be written when persistence is broken.
func (t *Tracker) Log(ctx context.Context, rec *Record) error {
	if rec == nil {
		return fmt.Errorf("record cannot be nil")
	}
	if rec.Name == "" {
		return fmt.Errorf("record name cannot be empty")
	}

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	t.mu.Lock()
	t.records = append(t.records, rec)
	t.mu.Unlock()

	t.logger.Info("experiment recorded",
		zap.String("name", rec.Name),
		zap.String("strategy", rec.Strategy),
		zap.String("model", rec.Model),
		zap.Float64("baseline_score", rec.BaselineScore),
		zap.Float64("optimized_score", rec.OptimizedScore),
		zap.Float64("improvement", rec.Improvement))

	if t.store != nil {
		if err := t.store.Insert(ctx, rec); err != nil {
			return fmt.Errorf("persisting experiment record: %w", err)
		}
	}
	return nil
}

// Records returns the logged records in insertion order.
func (t *Tracker) Records() []*Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]*Record, len(t.records))
	copy(out, t.records)
	return out
}

// Best returns the logged record with the highest improvement, or nil when
// nothing has been logged. Ties keep the earliest record.
func (t *Tracker) Best() *Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	var best *Record
	for _, rec := range t.records {
		if best == nil || rec.Improvement > best.Improvement {
			best = rec
		}
	}
	return best
}

// SaveResults writes every logged record to path as indented JSON, creating
// parent directories as needed. An empty tracker writes an empty list.
func (t *Tracker) SaveResults(path string) error {
	if path == "" {
		return fmt.Errorf("results path cannot be empty")
	}

	records := t.Records()
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding experiment results: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("creating results directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing experiment results: %w", err)
	}

	t.logger.Info("experiment results saved",
		zap.String("path", path),
		zap.Int("records", len(records)))
	return nil
}
