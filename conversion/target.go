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

// Package conversion implements dialect conversion: a target describing which
// operations are legal, rewrite patterns that replace illegal operations, and
// a partial-conversion driver that applies them.
package conversion

import (
	"github.com/ajroetker/hwyopt/ir"
)

// Legality classifies an operation against a Target.
type Legality int

const (
	// Unknown operations are left untouched by partial conversion.
	Unknown Legality = iota
	// Legal operations may remain in the output.
	Legal
	// Illegal operations must be rewritten, or conversion fails.
	Illegal
)

func (l Legality) String() string {
	switch l {
	case Legal:
		return "legal"
	case Illegal:
		return "illegal"
	default:
		return "unknown"
	}
}

// Target declares the legal vocabulary of a conversion.
//
// Operation-level declarations take precedence over dialect-level ones, and a
// dynamic legality callback takes precedence over both.
type Target struct {
	dialects map[string]Legality
	ops      map[string]Legality
	dynamic  map[string]func(*ir.Operation) bool
}

// NewTarget returns an empty target: every operation is Unknown.
func NewTarget() *Target {
	return &Target{
		dialects: make(map[string]Legality),
		ops:      make(map[string]Legality),
		dynamic:  make(map[string]func(*ir.Operation) bool),
	}
}

// AddLegalDialect marks every operation of the dialects legal.
func (t *Target) AddLegalDialect(names ...string) {
	for _, n := range names {
		t.dialects[n] = Legal
	}
}

// AddIllegalDialect marks every operation of the dialects illegal.
func (t *Target) AddIllegalDialect(names ...string) {
	for _, n := range names {
		t.dialects[n] = Illegal
	}
}

// AddLegalOp marks the named operations legal.
func (t *Target) AddLegalOp(names ...string) {
	for _, n := range names {
		t.ops[n] = Legal
	}
}

// AddIllegalOp marks the named operations illegal.
func (t *Target) AddIllegalOp(names ...string) {
	for _, n := range names {
		t.ops[n] = Illegal
	}
}

// AddDynamicallyLegalOp makes the legality of name depend on each operation:
// legal when fn returns true, illegal otherwise.
func (t *Target) AddDynamicallyLegalOp(name string, fn func(*ir.Operation) bool) {
	t.dynamic[name] = fn
}

// Legality returns how op is classified by the target.
func (t *Target) Legality(op *ir.Operation) Legality {
	if fn, ok := t.dynamic[op.Name]; ok {
		if fn(op) {
			return Legal
		}
		return Illegal
	}
	if l, ok := t.ops[op.Name]; ok {
		return l
	}
	if l, ok := t.dialects[op.Dialect()]; ok {
		return l
	}
	return Unknown
}

// IsIllegal reports whether op must be converted.
func (t *Target) IsIllegal(op *ir.Operation) bool {
	return t.Legality(op) == Illegal
}
