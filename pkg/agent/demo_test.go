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
package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneDemos(t *testing.T) {
	t.Run("deep copies map storage", func(t *testing.T) {
		original := []Demo{{
			Inputs:  map[string]string{"task_description": "a"},
			Outputs: map[string]string{FieldReasoning: "b"},
			Score:   0.9,
		}}

		cloned := CloneDemos(original)
		require.Len(t, cloned, 1)
		assert.Equal(t, 0.9, cloned[0].Score)

		original[0].Inputs["task_description"] = "mutated"
		original[0].Outputs[FieldReasoning] = "mutated"

		assert.Equal(t, "a", cloned[0].Inputs["task_description"])
		assert.Equal(t, "b", cloned[0].Outputs[FieldReasoning])
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, CloneDemos(nil))
	})

	t.Run("empty stays empty", func(t *testing.T) {
		cloned := CloneDemos([]Demo{})
		require.NotNil(t, cloned)
		assert.Len(t, cloned, 0)
	})
}
