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
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// recordSchemaJSON describes the transcript file shape. It checks structure
// and types, not values: field-level semantics stay in the parser.
const recordSchemaJSON = `{
  "type": "object",
  "required": ["session", "examples"],
  "properties": {
    "session": {"type": "string"},
    "generated": {"type": "string"},
    "totalExamples": {"type": "integer"},
    "examples": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "input": {
            "type": "object",
            "properties": {
              "task": {"type": "string"},
              "context": {"type": "object"},
              "conversationHistory": {"type": "array"}
            }
          },
          "actions": {
            "type": "array",
            "items": {
              "type": "object",
              "properties": {
                "step": {"type": "integer"},
                "tool": {"type": "string"},
                "callID": {"type": "string"},
                "args": {"type": "object"}
              }
            }
          },
          "output": {"type": "object"},
          "outcome": {"type": "object"},
          "agent": {"type": "object"},
          "metadata": {"type": "object"}
        }
      }
    }
  }
}`

// RecordSchema validates transcript records against the expected shape.
type RecordSchema struct {
	schema *gojsonschema.Schema
}

// NewRecordSchema compiles the transcript record schema.
func NewRecordSchema() (*RecordSchema, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(recordSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile record schema: %w", err)
	}
	return &RecordSchema{schema: schema}, nil
}

// Validate checks one raw transcript document.
func (s *RecordSchema) Validate(data []byte) error {
	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if !result.Valid() {
		errors := make([]string, len(result.Errors()))
		for i, err := range result.Errors() {
			errors[i] = err.String()
		}
		return fmt.Errorf("record does not match transcript schema: %v", errors)
	}
	return nil
}
