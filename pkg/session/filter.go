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

import "go.uber.org/zap"

// FilterSuccessful retains examples whose outcome succeeded.
func FilterSuccessful(examples []*Example) []*Example {
	kept := make([]*Example, 0, len(examples))
	for _, ex := range examples {
		if ex.Outcome.Success {
			kept = append(kept, ex)
		}
	}
	return kept
}

// FilterByQuality retains examples meeting both score thresholds.
func FilterByQuality(examples []*Example, minCorrectness, minEfficiency float64) []*Example {
	kept := make([]*Example, 0, len(examples))
	for _, ex := range examples {
		if ex.Outcome.Correctness >= minCorrectness && ex.Outcome.Efficiency >= minEfficiency {
			kept = append(kept, ex)
		}
	}
	return kept
}

// FilterByAgent retains examples produced by the named agent.
// An empty name keeps everything.
func FilterByAgent(examples []*Example, name string) []*Example {
	if name == "" {
		return examples
	}
	kept := make([]*Example, 0, len(examples))
	for _, ex := range examples {
		if ex.AgentConfig.Name == name {
			kept = append(kept, ex)
		}
	}
	return kept
}

// FilterCriteria bundles the configured example filters.
type FilterCriteria struct {
	RequireSuccess bool
	MinCorrectness float64
	MinEfficiency  float64
	AgentName      string
}

// LoadAndFilter loads a transcript directory, parses every record, and
// applies the filters in order: success, quality, agent.
func (p *Parser) LoadAndFilter(dir string, criteria FilterCriteria) ([]*Example, error) {
	records, _, err := p.LoadDirectory(dir)
	if err != nil {
		return nil, err
	}

	examples, dropped := p.ParseAll(records)
	loaded := len(examples)

	if criteria.RequireSuccess {
		examples = FilterSuccessful(examples)
	}
	examples = FilterByQuality(examples, criteria.MinCorrectness, criteria.MinEfficiency)
	examples = FilterByAgent(examples, criteria.AgentName)

	p.logger.Info("filtered session examples",
		zap.Int("parsed", loaded),
		zap.Int("dropped", dropped),
		zap.Int("kept", len(examples)),
		zap.Float64("min_correctness", criteria.MinCorrectness),
		zap.Float64("min_efficiency", criteria.MinEfficiency))
	return examples, nil
}
