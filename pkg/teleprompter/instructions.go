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

package teleprompter

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/teradata-labs/spindle/pkg/llm"
)

// InstructionGenerator proposes alternative instruction texts for the
// program under optimization.
type InstructionGenerator interface {
	// Generate returns up to n instruction variants derived from the
	// current instruction text.
	Generate(ctx context.Context, handle *llm.Handle, phase llm.Phase, current string, n int) ([]string, error)
}

const instructionProposalPrompt = `You are improving the instruction text of a coding agent prompt. The agent reads a task, inspects its environment, and plans tool calls.

Current instruction:
%s

Write %d alternative instructions that could work better. Vary the emphasis across them: tool discipline, stepwise planning, minimal edits, precise argument construction. Keep each instruction on a single line, under 60 words.

Return a numbered list with one instruction per line and nothing else.`

// ModelInstructionGenerator asks the teacher model for instruction rewrites
// and parses them out of a numbered list.
type ModelInstructionGenerator struct {
	logger *zap.Logger
}

// NewModelInstructionGenerator creates the default generator.
func NewModelInstructionGenerator(logger *zap.Logger) *ModelInstructionGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModelInstructionGenerator{logger: logger}
}

func (g *ModelInstructionGenerator) Generate(ctx context.Context, handle *llm.Handle, phase llm.Phase, current string, n int) ([]string, error) {
	if n <= 0 {
		n = DefaultMIPROCandidates
	}
	prompt := fmt.Sprintf(instructionProposalPrompt, current, n)
	resp, err := handle.Complete(ctx, phase, []llm.Message{{Role: "user", Content: prompt}})
	if err != nil {
		return nil, err
	}
	candidates := parseInstructionList(resp.Content, n)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no instruction candidates parsed from model response")
	}
	if len(candidates) < n {
		g.logger.Debug("model returned fewer instruction candidates than requested",
			zap.Int("requested", n),
			zap.Int("returned", len(candidates)))
	}
	return candidates, nil
}

// parseInstructionList extracts up to n non-empty lines, stripping list
// markers. Surplus lines beyond n are dropped.
func parseInstructionList(content string, n int) []string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		line = stripListMarker(strings.TrimSpace(line))
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) == n {
			break
		}
	}
	return out
}

// stripListMarker removes a leading "3.", "3)", "- ", or "* " marker.
func stripListMarker(line string) string {
	rest := strings.TrimLeft(line, "0123456789")
	if rest != line && (strings.HasPrefix(rest, ".") || strings.HasPrefix(rest, ")")) {
		return strings.TrimSpace(rest[1:])
	}
	if strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") {
		return strings.TrimSpace(line[2:])
	}
	return line
}
