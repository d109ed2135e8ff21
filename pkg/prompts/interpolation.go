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

package prompts

import (
	"fmt"
	"regexp"
	"strings"
)

// variablePattern matches {{.name}} placeholders. Only word characters are
// accepted as names, so literal braces in template prose pass through.
var variablePattern = regexp.MustCompile(`\{\{\.(\w+)\}\}`)

// Interpolate substitutes {{.name}} placeholders with values from vars.
//
// Values are rendered verbatim, including newlines; template content here is
// local configuration, not untrusted input. Placeholders without a matching
// variable are left in place so a half-rendered template is visible rather
// than silently truncated.
func Interpolate(template string, vars map[string]interface{}) string {
	if len(vars) == 0 {
		return template
	}
	return variablePattern.ReplaceAllStringFunc(template, func(match string) string {
		name := variablePattern.FindStringSubmatch(match)[1]
		value, ok := vars[name]
		if !ok {
			return match
		}
		return renderValue(value)
	})
}

// renderValue converts a variable value to its text form.
func renderValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		return strings.Join(v, ", ")
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// TemplateVariables returns the placeholder names used in a template, in
// order of first appearance.
func TemplateVariables(template string) []string {
	matches := variablePattern.FindAllStringSubmatch(template, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		names = append(names, m[1])
	}
	return names
}
