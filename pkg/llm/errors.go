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
package llm

import "fmt"

// InvocationError wraps a provider failure with the handle, model, and
// phase that issued the call. Callers propagate it unchanged; there is no
// automatic retry at this layer.
type InvocationError struct {
	HandleID string
	Model    string
	Phase    Phase
	Err      error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("model invocation failed (handle=%s, model=%s, phase=%s): %v",
		e.HandleID, e.Model, e.Phase, e.Err)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}
