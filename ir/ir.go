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

// Package ir provides the host intermediate representation rewritten by the
// passes in this module: a small, MLIR-flavoured graph of operations grouped
// into dialects, with regions, blocks and SSA values.
//
// Operations are only created and erased through a Builder or Rewriter, which
// keeps every structural mutation behind one boundary.
package ir

import (
	"slices"
	"sort"
	"strings"
)

// Value is an SSA value: either an operation result or a block argument.
type Value struct {
	typ   Type
	owner *Operation
	block *Block
	index int
}

// Type returns the value's type.
func (v *Value) Type() Type { return v.typ }

// DefiningOp returns the operation producing v, or nil for block arguments.
func (v *Value) DefiningOp() *Operation { return v.owner }

// ArgOwner returns the block v is an argument of, or nil for results.
func (v *Value) ArgOwner() *Block { return v.block }

// Index returns the result number or argument number of v.
func (v *Value) Index() int { return v.index }

// Operation is a generic IR node.
type Operation struct {
	// Name is the fully qualified operation name, e.g. "linalg.generic".
	Name string

	Operands []*Value
	Results  []*Value
	Attrs    map[string]Attribute
	Regions  []*Region

	// Loc is a free-form source location used in diagnostics.
	Loc string

	parent *Block
}

// Dialect returns the dialect prefix of the operation name.
func (op *Operation) Dialect() string {
	d, _, _ := strings.Cut(op.Name, ".")
	return d
}

// Block returns the block containing op, or nil for a detached op.
func (op *Operation) Block() *Block { return op.parent }

// ParentOp returns the operation whose region contains op.
func (op *Operation) ParentOp() *Operation {
	if op.parent == nil || op.parent.parent == nil {
		return nil
	}
	return op.parent.parent.parent
}

// Result returns result i.
func (op *Operation) Result(i int) *Value { return op.Results[i] }

// Operand returns operand i.
func (op *Operation) Operand(i int) *Value { return op.Operands[i] }

// Attr returns the named attribute or nil.
func (op *Operation) Attr(name string) Attribute {
	if op.Attrs == nil {
		return nil
	}
	return op.Attrs[name]
}

// AttrNames returns attribute names in sorted order.
func (op *Operation) AttrNames() []string {
	names := make([]string, 0, len(op.Attrs))
	for k := range op.Attrs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Region is a list of blocks owned by an operation.
type Region struct {
	Blocks []*Block
	parent *Operation
}

// ParentOp returns the operation owning the region.
func (r *Region) ParentOp() *Operation { return r.parent }

// HasOneBlock reports whether the region holds exactly one block.
func (r *Region) HasOneBlock() bool { return len(r.Blocks) == 1 }

// Front returns the first block or nil.
func (r *Region) Front() *Block {
	if len(r.Blocks) == 0 {
		return nil
	}
	return r.Blocks[0]
}

// Block is a sequence of operations with typed arguments.
type Block struct {
	Args   []*Value
	Ops    []*Operation
	parent *Region
}

// Region returns the region owning the block.
func (b *Block) Region() *Region { return b.parent }

// AddArgument appends a block argument of type t.
func (b *Block) AddArgument(t Type) *Value {
	v := &Value{typ: t, block: b, index: len(b.Args)}
	b.Args = append(b.Args, v)
	return v
}

// Terminator returns the last operation of the block, or nil if empty.
func (b *Block) Terminator() *Operation {
	if len(b.Ops) == 0 {
		return nil
	}
	return b.Ops[len(b.Ops)-1]
}

func (b *Block) indexOf(op *Operation) int {
	return slices.Index(b.Ops, op)
}

func (b *Block) insertBefore(op, before *Operation) {
	op.parent = b
	if before == nil {
		b.Ops = append(b.Ops, op)
		return
	}
	i := b.indexOf(before)
	if i < 0 {
		b.Ops = append(b.Ops, op)
		return
	}
	b.Ops = slices.Insert(b.Ops, i, op)
}

func (b *Block) remove(op *Operation) bool {
	i := b.indexOf(op)
	if i < 0 {
		return false
	}
	b.Ops = slices.Delete(b.Ops, i, i+1)
	op.parent = nil
	return true
}

// Module is the top-level container of functions.
type Module struct {
	Op *Operation
}

// NewModule creates an empty builtin.module.
func NewModule() *Module {
	op := &Operation{Name: ModuleOpName}
	r := &Region{parent: op}
	r.Blocks = []*Block{{parent: r}}
	op.Regions = []*Region{r}
	return &Module{Op: op}
}

// Body returns the module's single block.
func (m *Module) Body() *Block { return m.Op.Regions[0].Blocks[0] }

// Funcs returns the func.func operations of the module.
func (m *Module) Funcs() []*Operation {
	var out []*Operation
	for _, op := range m.Body().Ops {
		if op.Name == FuncOpName {
			out = append(out, op)
		}
	}
	return out
}

// LookupFunc returns the function named sym, or nil.
func (m *Module) LookupFunc(sym string) *Operation {
	for _, f := range m.Funcs() {
		if name, ok := f.Attr("sym_name").(StringAttr); ok && string(name) == sym {
			return f
		}
	}
	return nil
}

// Walk visits op and every operation nested in it in pre-order.
func Walk(op *Operation, fn func(*Operation)) {
	fn(op)
	for _, r := range op.Regions {
		for _, b := range r.Blocks {
			// Copy so fn may not observe a half-mutated slice.
			for _, nested := range slices.Clone(b.Ops) {
				Walk(nested, fn)
			}
		}
	}
}

// Snapshot collects, in pre-order, every operation nested in root for which
// keep returns true. The result is safe to iterate while mutating the IR.
func Snapshot(root *Operation, keep func(*Operation) bool) []*Operation {
	var out []*Operation
	Walk(root, func(op *Operation) {
		if keep(op) {
			out = append(out, op)
		}
	})
	return out
}

// IsAncestor reports whether anc is op or contains op.
func IsAncestor(anc, op *Operation) bool {
	for cur := op; cur != nil; cur = cur.ParentOp() {
		if cur == anc {
			return true
		}
	}
	return false
}

// Root returns the outermost operation containing op.
func Root(op *Operation) *Operation {
	for op.ParentOp() != nil {
		op = op.ParentOp()
	}
	return op
}

// Uses returns the operations under root that use v as an operand.
func Uses(root *Operation, v *Value) []*Operation {
	return Snapshot(root, func(op *Operation) bool {
		return slices.Contains(op.Operands, v)
	})
}

// CountOps returns a histogram of operation names nested in root,
// excluding root itself.
func CountOps(root *Operation) map[string]int {
	counts := make(map[string]int)
	Walk(root, func(op *Operation) {
		if op != root {
			counts[op.Name]++
		}
	})
	return counts
}
