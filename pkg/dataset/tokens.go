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
package dataset

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter counts prompt tokens for dataset statistics.
// Uses tiktoken with cl100k_base encoding.
type TokenCounter struct {
	encoder *tiktoken.Tiktoken
	mu      sync.Mutex
}

var (
	globalTokenCounter *TokenCounter
	counterInitOnce    sync.Once
)

// GetTokenCounter returns a singleton token counter instance.
func GetTokenCounter() *TokenCounter {
	counterInitOnce.Do(func() {
		tkm, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			// Fallback: approximate counting when the encoding is unavailable
			globalTokenCounter = &TokenCounter{encoder: nil}
			return
		}
		globalTokenCounter = &TokenCounter{encoder: tkm}
	})
	return globalTokenCounter
}

// CountTokens returns the token count for a given text.
func (tc *TokenCounter) CountTokens(text string) int {
	if tc.encoder == nil {
		// Char-based estimation if encoder not available
		return len(text) / 4
	}

	tc.mu.Lock()
	defer tc.mu.Unlock()

	tokens := tc.encoder.Encode(text, nil, nil)
	return len(tokens)
}

// Stats summarizes a built dataset for CLI reporting.
type Stats struct {
	Examples       int
	Labeled        int
	MeanInputToken int
	MaxInputToken  int
}

// ComputeStats counts examples, label coverage, and input-prompt token
// sizes across a dataset.
func ComputeStats(examples []*Example) Stats {
	tc := GetTokenCounter()
	stats := Stats{Examples: len(examples)}

	total := 0
	for _, ex := range examples {
		if ex.HasLabels {
			stats.Labeled++
		}
		tokens := tc.CountTokens(ex.TaskDescription) +
			tc.CountTokens(ex.EnvironmentContext) +
			tc.CountTokens(ex.ConversationHistory) +
			tc.CountTokens(ex.AvailableTools)
		total += tokens
		if tokens > stats.MaxInputToken {
			stats.MaxInputToken = tokens
		}
	}
	if len(examples) > 0 {
		stats.MeanInputToken = total / len(examples)
	}
	return stats
}
