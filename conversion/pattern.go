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

package conversion

import (
	"github.com/ajroetker/hwyopt/ir"
)

// Pattern rewrites operations of one kind.
//
// Match must not mutate the IR and may be called concurrently for different
// operations. Rewrite is always called serially, with the rewriter's insertion
// point placed before op; it must erase op (directly or by replacement) when it
// succeeds.
type Pattern interface {
	// RootName is the operation name the pattern applies to.
	RootName() string

	// Match inspects op and returns pattern-specific state for Rewrite.
	Match(op *ir.Operation) (state any, ok bool)

	// Rewrite replaces op using the state returned by Match.
	Rewrite(op *ir.Operation, state any, rw *ir.Rewriter) error
}

// PatternFunc adapts a pair of functions to the Pattern interface.
type PatternFunc struct {
	Root      string
	MatchFn   func(op *ir.Operation) (any, bool)
	RewriteFn func(op *ir.Operation, state any, rw *ir.Rewriter) error
}

// RootName implements Pattern.
func (p PatternFunc) RootName() string { return p.Root }

// Match implements Pattern.
func (p PatternFunc) Match(op *ir.Operation) (any, bool) { return p.MatchFn(op) }

// Rewrite implements Pattern.
func (p PatternFunc) Rewrite(op *ir.Operation, state any, rw *ir.Rewriter) error {
	return p.RewriteFn(op, state, rw)
}
