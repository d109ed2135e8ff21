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
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite, registers the "sqlite" driver
)

// SQLiteStore persists experiment records in a SQLite database so runs
// accumulate across processes. Thread-safe for concurrent access.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore opens the experiment database at dbPath, creating the file
// and schema on first use.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}

	// busy_timeout makes concurrent writers wait instead of failing with
	// SQLITE_BUSY; WAL lets readers proceed during a write.
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates database tables if they don't exist
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS experiments (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		strategy TEXT NOT NULL,
		model TEXT NOT NULL,
		metric TEXT,
		baseline_score REAL NOT NULL,
		optimized_score REAL NOT NULL,
		improvement REAL NOT NULL,
		config_json TEXT,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_experiments_name ON experiments(name);
	CREATE INDEX IF NOT EXISTS idx_experiments_created_at ON experiments(created_at);
	CREATE INDEX IF NOT EXISTS idx_experiments_improvement ON experiments(improvement);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Insert stores a record. Record IDs must be unique; timestamps are stored
// with millisecond precision.
func (s *SQLiteStore) Insert(ctx context.Context, rec *Record) error {
	if rec == nil {
		return fmt.Errorf("record cannot be nil")
	}
	if rec.ID == "" {
		return fmt.Errorf("record ID cannot be empty")
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var configJSON string
	if len(rec.Config) > 0 {
		data, err := json.Marshal(rec.Config)
		if err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		configJSON = string(data)
	}

	query := `
		INSERT INTO experiments (
			id, name, strategy, model, metric, baseline_score,
			optimized_score, improvement, config_json, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.Name, rec.Strategy, rec.Model, rec.Metric,
		rec.BaselineScore, rec.OptimizedScore, rec.Improvement,
		configJSON, createdAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert experiment: %w", err)
	}

	return nil
}

// List returns records ordered newest first. A limit of zero or less returns
// every record; offset skips that many of the newest records.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*Record, error) {
	if limit <= 0 {
		limit = -1 // SQLite treats a negative LIMIT as unbounded
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT id, name, strategy, model, metric, baseline_score,
			optimized_score, improvement, config_json, created_at
		FROM experiments
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list experiments: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read experiments: %w", err)
	}

	return records, nil
}

// Best returns the record with the highest improvement, or nil when the
// table is empty. Ties go to the earliest run.
func (s *SQLiteStore) Best(ctx context.Context) (*Record, error) {
	query := `
		SELECT id, name, strategy, model, metric, baseline_score,
			optimized_score, improvement, config_json, created_at
		FROM experiments
		ORDER BY improvement DESC, created_at ASC
		LIMIT 1
	`

	rec, err := scanRecord(s.db.QueryRowContext(ctx, query))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Close closes the SQLite database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec        Record
		metric     sql.NullString
		configJSON sql.NullString
		createdMs  int64
	)

	err := row.Scan(&rec.ID, &rec.Name, &rec.Strategy, &rec.Model, &metric,
		&rec.BaselineScore, &rec.OptimizedScore, &rec.Improvement,
		&configJSON, &createdMs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan experiment: %w", err)
	}

	rec.Metric = metric.String
	if configJSON.Valid && configJSON.String != "" {
		if err := json.Unmarshal([]byte(configJSON.String), &rec.Config); err != nil {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
	}
	rec.CreatedAt = time.UnixMilli(createdMs).UTC()

	return &rec, nil
}

// Compile-time interface check
var _ Store = (*SQLiteStore)(nil)
