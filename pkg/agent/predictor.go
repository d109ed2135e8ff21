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
	"strings"

	"github.com/teradata-labs/spindle/pkg/llm"
)

// Predictor executes one signature against a model handle. It renders the
// field-labeled prompt (instructions, field guide, demonstrations, then the
// live inputs with a trailing cue for the first output field), sends it as
// a single user turn, and parses the completion back into output fields.
type Predictor struct {
	signature    Signature
	instructions string // override; empty means use the signature's
	demos        []Demo
}

// NewPredictor creates a predictor for a signature.
func NewPredictor(sig Signature) *Predictor {
	return &Predictor{signature: sig}
}

// Signature returns the predictor's signature.
func (p *Predictor) Signature() Signature {
	return p.signature
}

// Instructions returns the effective instructions: the override when set,
// otherwise the signature's base instructions.
func (p *Predictor) Instructions() string {
	if p.instructions != "" {
		return p.instructions
	}
	return p.signature.Instructions
}

// SetInstructions installs an instructions override. Empty restores the
// signature's base instructions.
func (p *Predictor) SetInstructions(instructions string) {
	p.instructions = instructions
}

// Demos returns the attached demonstrations.
func (p *Predictor) Demos() []Demo {
	return p.demos
}

// SetDemos replaces the attached demonstrations with a deep copy of demos.
func (p *Predictor) SetDemos(demos []Demo) {
	p.demos = CloneDemos(demos)
}

// clone deep-copies the predictor. The signature's field slices are shared;
// they are fixed declarations and never mutated.
func (p *Predictor) clone() *Predictor {
	return &Predictor{
		signature:    p.signature,
		instructions: p.instructions,
		demos:        CloneDemos(p.demos),
	}
}

// Run renders the prompt for inputs, completes it through the handle under
// the given phase, and returns the parsed output fields.
func (p *Predictor) Run(ctx context.Context, handle *llm.Handle, phase llm.Phase, inputs map[string]string) (map[string]string, error) {
	prompt := p.Render(inputs)
	resp, err := handle.Complete(ctx, phase, []llm.Message{{Role: "user", Content: prompt}})
	if err != nil {
		return nil, err
	}
	return p.Parse(resp.Content), nil
}

// Render builds the full prompt text for one set of inputs.
func (p *Predictor) Render(inputs map[string]string) string {
	var b strings.Builder
	b.WriteString(p.Instructions())
	b.WriteString("\n\nFollow the following format.\n\n")

	for _, f := range p.signature.Inputs {
		b.WriteString(FieldLabel(f.Name))
		b.WriteString(": ")
		b.WriteString(f.Description)
		b.WriteString("\n")
	}
	for _, f := range p.signature.Outputs {
		b.WriteString(FieldLabel(f.Name))
		b.WriteString(": ")
		b.WriteString(f.Description)
		b.WriteString("\n")
	}

	for _, d := range p.demos {
		b.WriteString("\n---\n\n")
		for _, f := range p.signature.Inputs {
			if v, ok := d.Inputs[f.Name]; ok {
				writeField(&b, f.Name, v)
			}
		}
		for _, f := range p.signature.Outputs {
			if v, ok := d.Outputs[f.Name]; ok {
				writeField(&b, f.Name, v)
			}
		}
	}

	b.WriteString("\n---\n\n")
	for _, f := range p.signature.Inputs {
		writeField(&b, f.Name, inputs[f.Name])
	}
	b.WriteString(FieldLabel(p.signature.Outputs[0].Name))
	b.WriteString(":")
	return b.String()
}

func writeField(b *strings.Builder, name, value string) {
	b.WriteString(FieldLabel(name))
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\n")
}

// Parse splits a completion into the signature's output fields. The prompt
// ends with the first output field's label, so the completion normally
// begins with that field's value; models that repeat the label parse the
// same way. Labels are matched case-insensitively at line starts, in
// signature order. When no later labels appear, the whole completion lands
// in the first output field, so a well-formed completion never fails to
// produce a prediction.
func (p *Predictor) Parse(completion string) map[string]string {
	outputs := p.signature.Outputs
	text := strings.TrimSpace(completion)

	first := FieldLabel(outputs[0].Name) + ":"
	if !strings.HasPrefix(strings.ToLower(text), strings.ToLower(first)) {
		text = first + " " + text
	}
	lower := strings.ToLower(text)

	type mark struct {
		field    string
		start    int
		valStart int
	}
	var marks []mark
	from := 0
	for _, f := range outputs {
		label := strings.ToLower(FieldLabel(f.Name)) + ":"
		idx := indexAtLineStart(lower, label, from)
		if idx < 0 {
			continue
		}
		marks = append(marks, mark{field: f.Name, start: idx, valStart: idx + len(label)})
		from = idx + len(label)
	}

	parsed := make(map[string]string, len(marks))
	for i, m := range marks {
		end := len(text)
		if i+1 < len(marks) {
			end = marks[i+1].start
		}
		parsed[m.field] = strings.TrimSpace(text[m.valStart:end])
	}
	return parsed
}

// indexAtLineStart finds the first occurrence of sub at or after from that
// sits at the beginning of a line. Returns -1 when absent. Mid-line label
// mentions (e.g. inside reasoning prose) are not section boundaries.
func indexAtLineStart(s, sub string, from int) int {
	for i := from; i <= len(s)-len(sub); {
		idx := strings.Index(s[i:], sub)
		if idx < 0 {
			return -1
		}
		idx += i
		if idx == 0 || s[idx-1] == '\n' {
			return idx
		}
		i = idx + 1
	}
	return -1
}
