// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pass

import (
	"strings"

	"github.com/pkg/errors"
)

// Stage is one pass invocation in a pipeline.
type Stage struct {
	Name string
	Args []string
}

// ParsePipeline parses a comma-separated pipeline such as
//
//	genericOp-transpose-vectorization{vector-size=8 defer-non-transpose},convert-linalg-to-affine-loops
//
// Options inside braces are whitespace separated; a leading "--" is optional.
func ParsePipeline(text string) ([]Stage, error) {
	var stages []Stage
	rest := strings.TrimSpace(text)
	for rest != "" {
		end := strings.IndexAny(rest, ",{")
		if end < 0 {
			end = len(rest)
		}
		stage := Stage{Name: strings.TrimSpace(rest[:end])}
		if stage.Name == "" {
			return nil, errors.Errorf("pipeline %q: empty pass name", text)
		}
		rest = rest[end:]
		if strings.HasPrefix(rest, "{") {
			closing := strings.IndexByte(rest, '}')
			if closing < 0 {
				return nil, errors.Errorf("pipeline %q: unterminated options of %s", text, stage.Name)
			}
			for _, f := range strings.Fields(rest[1:closing]) {
				if !strings.HasPrefix(f, "-") {
					f = "--" + f
				}
				stage.Args = append(stage.Args, f)
			}
			rest = strings.TrimSpace(rest[closing+1:])
		}
		stages = append(stages, stage)
		if rest == "" {
			break
		}
		if !strings.HasPrefix(rest, ",") {
			return nil, errors.Errorf("pipeline %q: expected ',' after %s", text, stage.Name)
		}
		rest = strings.TrimSpace(rest[1:])
		if rest == "" {
			return nil, errors.Errorf("pipeline %q: trailing ','", text)
		}
	}
	return stages, nil
}
