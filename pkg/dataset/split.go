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
	"fmt"
	"math"
	"math/rand"
)

// Fractions holds the train/val/test proportions for a split.
type Fractions struct {
	Train float64
	Val   float64
	Test  float64
}

// Validate checks the fractions sum to 1.0 within 0.01.
func (f Fractions) Validate() error {
	total := f.Train + f.Val + f.Test
	if math.Abs(total-1.0) > 0.01 {
		return fmt.Errorf("split fractions must sum to 1.0, got %g", total)
	}
	return nil
}

// Split partitions examples into train/val/test sets.
//
// The list is shuffled with a seeded generator, then cut at
// floor(n*train) and floor(n*(train+val)). Same seed and same input
// order always produce identical partitions.
func Split(examples []*Example, fractions Fractions, seed int64) (train, val, test []*Example, err error) {
	if err := fractions.Validate(); err != nil {
		return nil, nil, nil, err
	}

	rng := rand.New(rand.NewSource(seed)) // #nosec G404 -- reproducible partitioning, not cryptography
	train, val, test = partition(examples, fractions, rng)
	return train, val, test, nil
}

// SplitStratified partitions examples per group, preserving each group's
// proportions. Groups are keyed by keyFn and processed in first-appearance
// order with a single seeded generator, so the overall result is as
// deterministic as Split. Group-level partitions are concatenated; global
// fractions can drift when groups are small.
func SplitStratified(examples []*Example, fractions Fractions, seed int64, keyFn func(*Example) string) (train, val, test []*Example, err error) {
	if err := fractions.Validate(); err != nil {
		return nil, nil, nil, err
	}

	var order []string
	groups := make(map[string][]*Example)
	for _, ex := range examples {
		key := keyFn(ex)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], ex)
	}

	rng := rand.New(rand.NewSource(seed)) // #nosec G404 -- reproducible partitioning, not cryptography
	for _, key := range order {
		gTrain, gVal, gTest := partition(groups[key], fractions, rng)
		train = append(train, gTrain...)
		val = append(val, gVal...)
		test = append(test, gTest...)
	}
	return train, val, test, nil
}

// StratifyByAgent keys stratified splits by the producing agent's name.
func StratifyByAgent(ex *Example) string {
	if ex.AgentName == "" {
		return "unknown"
	}
	return ex.AgentName
}

// partition shuffles one example list and cuts it at the fraction
// boundaries. The caller owns rng seeding; drawing groups from one
// generator in sequence keeps multi-group splits deterministic.
func partition(examples []*Example, fractions Fractions, rng *rand.Rand) (train, val, test []*Example) {
	shuffled := make([]*Example, len(examples))
	copy(shuffled, examples)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	n := len(shuffled)
	trainIdx := int(float64(n) * fractions.Train)
	valIdx := int(float64(n) * (fractions.Train + fractions.Val))

	return shuffled[:trainIdx], shuffled[trainIdx:valIdx], shuffled[valIdx:]
}
