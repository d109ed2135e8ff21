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
package session

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"
)

// Parser loads transcript files and converts their records into Examples.
// Files ending in .json.gz are decompressed transparently.
//
// Parse failures never abort a batch: a bad file is skipped, a bad example
// within a file is dropped, and both are logged with their source path.
type Parser struct {
	logger *zap.Logger

	// schema, when non-nil, gates records on the transcript JSON Schema
	// before decoding. Invalid records take the same skip path as
	// malformed JSON.
	schema *RecordSchema
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithLogger sets the parser's logger.
func WithLogger(logger *zap.Logger) ParserOption {
	return func(p *Parser) {
		p.logger = logger
	}
}

// WithSchemaValidation enables JSON Schema validation of transcript records.
func WithSchemaValidation(schema *RecordSchema) ParserOption {
	return func(p *Parser) {
		p.schema = schema
	}
}

// NewParser creates a transcript parser.
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// LoadFile reads and decodes one transcript file.
// Returns an error when the file cannot be read, is not a JSON object,
// or lacks an examples key.
func (p *Parser) LoadFile(path string) (*RawRecord, error) {
	data, err := readMaybeGzip(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	// Top level must be an object carrying an examples key. Decoding into a
	// raw map first distinguishes "not an object" and "no examples key"
	// from field-level type errors.
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("%s: not a JSON object: %w", path, err)
	}
	if _, ok := top["examples"]; !ok {
		return nil, fmt.Errorf("%s: missing examples key", path)
	}

	if p.schema != nil {
		if err := p.schema.Validate(data); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	var record RawRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%s: invalid record: %w", path, err)
	}
	record.SourcePath = path
	return &record, nil
}

// LoadDirectory loads every *.json and *.json.gz transcript under dir,
// in lexical order. Unreadable or malformed files are logged and skipped;
// the count of skipped files is returned alongside the records.
//
// Zero records is not an error here. Callers that need a minimum example
// count enforce it before any model calls.
func (p *Parser) LoadDirectory(dir string) ([]*RawRecord, int, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, 0, fmt.Errorf("session logs directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, 0, fmt.Errorf("session logs path %s is not a directory", dir)
	}

	var paths []string
	for _, pattern := range []string{"*.json", "*.json.gz"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, 0, fmt.Errorf("glob %s: %w", pattern, err)
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	records := make([]*RawRecord, 0, len(paths))
	skipped := 0
	for _, path := range paths {
		record, err := p.LoadFile(path)
		if err != nil {
			p.logger.Warn("skipping transcript file",
				zap.String("path", path),
				zap.Error(err))
			skipped++
			continue
		}
		records = append(records, record)
	}

	p.logger.Info("loaded transcript files",
		zap.String("dir", dir),
		zap.Int("files", len(records)),
		zap.Int("skipped", skipped))
	return records, skipped, nil
}

// Parse converts one record's raw examples into Examples.
// Each example is decoded independently; a failure drops that example only.
// The number of dropped examples is returned with the batch.
func (p *Parser) Parse(record *RawRecord) ([]*Example, int) {
	if record == nil {
		return nil, 0
	}

	examples := make([]*Example, 0, len(record.Examples))
	dropped := 0
	for i, raw := range record.Examples {
		example, err := parseExample(record.Session, raw)
		if err != nil {
			p.logger.Warn("dropping malformed example",
				zap.String("session", record.Session),
				zap.String("path", record.SourcePath),
				zap.Int("index", i),
				zap.Error(err))
			dropped++
			continue
		}
		examples = append(examples, example)
	}
	return examples, dropped
}

// ParseAll flattens the examples of many records, accumulating drop counts.
func (p *Parser) ParseAll(records []*RawRecord) ([]*Example, int) {
	var examples []*Example
	dropped := 0
	for _, record := range records {
		parsed, n := p.Parse(record)
		examples = append(examples, parsed...)
		dropped += n
	}
	return examples, dropped
}

// parseExample decodes a single raw example record.
func parseExample(sessionID string, raw json.RawMessage) (*Example, error) {
	var rec exampleRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode example: %w", err)
	}

	return &Example{
		SessionID:           sessionID,
		Task:                rec.Input.Task,
		Context:             rec.Input.Context,
		ConversationHistory: rec.Input.ConversationHistory,
		Actions:             rec.Actions,
		FinalResponse:       rec.Output.Response,
		Outcome: Outcome{
			Success:          rec.Outcome.Success,
			TaskCompleted:    rec.Outcome.TaskCompleted,
			Correctness:      rec.Outcome.Evaluation.Correctness,
			Efficiency:       rec.Outcome.Evaluation.Efficiency,
			MinimalEdits:     rec.Outcome.Evaluation.MinimalEdits,
			TimeToCompletion: rec.Outcome.Metrics.TimeToCompletion,
			ToolCallCount:    rec.Outcome.Metrics.ToolCallCount,
			LSPErrorsCleared: rec.Outcome.Metrics.LSPErrorsCleared,
			FilesModified:    rec.Outcome.Metrics.FilesModified,
		},
		AgentConfig: rec.Agent,
		Metadata:    rec.Metadata,
	}, nil
}

// readMaybeGzip reads a file, decompressing when it carries a .gz suffix.
func readMaybeGzip(path string) ([]byte, error) {
	f, err := os.Open(path) // #nosec G304 -- transcript paths come from operator config
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer func() { _ = gz.Close() }()
		return io.ReadAll(gz)
	}
	return io.ReadAll(f)
}
