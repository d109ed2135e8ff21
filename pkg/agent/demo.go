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

// Demo is one worked example attached to a predictor: the inputs a program
// saw and the outputs that passed the metric. Demos are rendered verbatim
// into the prompt ahead of the live example.
type Demo struct {
	Inputs  map[string]string `json:"inputs"`
	Outputs map[string]string `json:"outputs"`

	// Score is the metric score the demo's trace earned, when known.
	Score float64 `json:"score,omitempty"`
}

// CloneDemos deep-copies a demo slice. The optimizer hands demos from the
// teacher-side compilation result to student-side programs; copying at the
// boundary keeps the two from sharing map storage. A nil slice stays nil.
func CloneDemos(demos []Demo) []Demo {
	if demos == nil {
		return nil
	}
	out := make([]Demo, len(demos))
	for i, d := range demos {
		out[i] = Demo{
			Inputs:  cloneStringMap(d.Inputs),
			Outputs: cloneStringMap(d.Outputs),
			Score:   d.Score,
		}
	}
	return out
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
