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
	"context"

	"github.com/teradata-labs/spindle/pkg/llm"
)

// Program is a prompt program the optimizer can compile. It runs against a
// model handle, clones itself for candidate evaluation, and carries a
// learned layer of optimized instructions and demonstrations.
//
// The interface lives here rather than in the teleprompter package because
// implementations return Demo values; declaring it next to Demo keeps the
// import direction one-way.
type Program interface {
	// Run executes the program's decision stage for one example and
	// returns its outputs keyed by field name.
	Run(ctx context.Context, handle *llm.Handle, phase llm.Phase, inputs map[string]string) (map[string]string, error)

	// Clone returns a deep copy. Mutating the clone's learned layer must
	// never reach the original.
	Clone() Program

	// ApplyLearned installs a learned layer. An empty instructions string
	// leaves instructions unchanged; a nil demo slice leaves
	// demonstrations unchanged. Demos are deep-copied in.
	ApplyLearned(instructions string, demos []Demo)

	// Learned reports the learned layer: the effective instructions and
	// the attached demonstrations.
	Learned() (instructions string, demos []Demo)
}

// Coder is the program under optimization: a planner predictor that turns a
// task into reasoning, a tool plan, and a first action, and a responder
// predictor that turns tool results into the final answer. The learned
// layer applies to the planner, whose outputs are what the metric scores.
type Coder struct {
	planner   *Predictor
	responder *Predictor
}

var _ Program = (*Coder)(nil)

// NewCoder creates a Coder with the fixed task and response signatures.
func NewCoder() *Coder {
	return &Coder{
		planner:   NewPredictor(TaskSignature()),
		responder: NewPredictor(ResponseSignature()),
	}
}

// Planner returns the planning predictor.
func (c *Coder) Planner() *Predictor {
	return c.planner
}

// Responder returns the response predictor.
func (c *Coder) Responder() *Predictor {
	return c.responder
}

// Run executes the planner on one example's inputs.
func (c *Coder) Run(ctx context.Context, handle *llm.Handle, phase llm.Phase, inputs map[string]string) (map[string]string, error) {
	return c.planner.Run(ctx, handle, phase, inputs)
}

// Respond executes the responder: it summarizes executed tool results into
// the final user-facing response.
func (c *Coder) Respond(ctx context.Context, handle *llm.Handle, phase llm.Phase, taskDescription, toolResults string) (map[string]string, error) {
	return c.responder.Run(ctx, handle, phase, map[string]string{
		"task_description": taskDescription,
		FieldToolResults:   toolResults,
	})
}

// Clone implements Program.
func (c *Coder) Clone() Program {
	return &Coder{
		planner:   c.planner.clone(),
		responder: c.responder.clone(),
	}
}

// ApplyLearned implements Program.
func (c *Coder) ApplyLearned(instructions string, demos []Demo) {
	if instructions != "" {
		c.planner.SetInstructions(instructions)
	}
	if demos != nil {
		c.planner.SetDemos(demos)
	}
}

// Learned implements Program.
func (c *Coder) Learned() (string, []Demo) {
	return c.planner.Instructions(), c.planner.Demos()
}
